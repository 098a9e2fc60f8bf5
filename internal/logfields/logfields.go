package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeySessionID  = "session_id"
	KeyState      = "state"
	KeyFrom       = "from"
	KeyTo         = "to"
	KeyPort       = "port"
	KeyAddr       = "addr"
	KeyURL        = "url"
	KeyPID        = "pid"
	KeyCommand    = "command"
	KeyDir        = "dir"
	KeyExitCode   = "exit_code"
	KeyDurationMS = "duration_ms"
	KeyAttempts   = "attempts"
	KeyPackage    = "package"
	KeyPath       = "path"
	KeySignal     = "signal"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func SessionID(id string) slog.Attr   { return slog.String(KeySessionID, id) }
func State(s string) slog.Attr        { return slog.String(KeyState, s) }
func From(s string) slog.Attr         { return slog.String(KeyFrom, s) }
func To(s string) slog.Attr           { return slog.String(KeyTo, s) }
func Port(p int) slog.Attr            { return slog.Int(KeyPort, p) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func PID(pid int) slog.Attr           { return slog.Int(KeyPID, pid) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func Dir(d string) slog.Attr          { return slog.String(KeyDir, d) }
func ExitCode(code int) slog.Attr     { return slog.Int(KeyExitCode, code) }
func Attempts(n int) slog.Attr        { return slog.Int(KeyAttempts, n) }
func Package(name string) slog.Attr   { return slog.String(KeyPackage, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Signal(s string) slog.Attr       { return slog.String(KeySignal, s) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// Elapsed reports the time since start in milliseconds.
func Elapsed(start time.Time) slog.Attr {
	return DurationMS(float64(time.Since(start).Microseconds()) / 1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
