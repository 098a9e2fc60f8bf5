package metrics

import "time"

// ReadinessResult labels the outcome of one readiness wait.
type ReadinessResult string

const (
	ReadinessReady    ReadinessResult = "ready"
	ReadinessTimeout  ReadinessResult = "timeout"
	ReadinessCanceled ReadinessResult = "canceled"
)

// ShutdownOutcome labels how a server process was stopped.
type ShutdownOutcome string

const (
	ShutdownTerminated ShutdownOutcome = "terminated"
	ShutdownKilled     ShutdownOutcome = "killed"
	ShutdownExited     ShutdownOutcome = "exited"
)

// Recorder defines observability hooks for a launcher session.
type Recorder interface {
	IncServerStart()
	IncServerRestart(reason string)
	ObserveReadiness(result ReadinessResult, d time.Duration)
	IncOutputLines(n int)
	IncUnexpectedExit()
	IncShutdown(outcome ShutdownOutcome)
	SetServerUp(up bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncServerStart()                                 {}
func (NoopRecorder) IncServerRestart(string)                         {}
func (NoopRecorder) ObserveReadiness(ReadinessResult, time.Duration) {}
func (NoopRecorder) IncOutputLines(int)                              {}
func (NoopRecorder) IncUnexpectedExit()                              {}
func (NoopRecorder) IncShutdown(ShutdownOutcome)                     {}
func (NoopRecorder) SetServerUp(bool)                                {}
