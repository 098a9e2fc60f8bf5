package session

// State is a position in the launcher lifecycle.
type State string

const (
	StateInit            State = "INIT"
	StateCheckingRuntime State = "CHECKING_RUNTIME"
	StateCheckingDeps    State = "CHECKING_DEPS"
	StateInstalling      State = "INSTALLING"
	StateStarting        State = "STARTING"
	StateWaitingReady    State = "WAITING_READY"
	StateRunning         State = "RUNNING"
	StateShuttingDown    State = "SHUTTING_DOWN"
	StateStopped         State = "STOPPED"
	StateFailed          State = "FAILED"
)

// transitions lists the legal successors of each state. A watch-mode restart
// moves RUNNING back to STARTING.
var transitions = map[State][]State{
	StateInit:            {StateCheckingRuntime},
	StateCheckingRuntime: {StateCheckingDeps, StateFailed},
	StateCheckingDeps:    {StateInstalling, StateStarting, StateFailed},
	StateInstalling:      {StateStarting, StateFailed},
	StateStarting:        {StateWaitingReady, StateShuttingDown, StateFailed},
	StateWaitingReady:    {StateRunning, StateShuttingDown, StateFailed},
	StateRunning:         {StateShuttingDown, StateStarting},
	StateShuttingDown:    {StateStopped},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateFailed
}
