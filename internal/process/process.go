// Package process wraps helper subprocesses behind a small interface whose
// lifecycle and output events are delivered on a loop.Loop.
package process

import "github.com/tanq16/streamz/internal/loop"

type State int

const (
	NotRunning State = iota
	Starting
	Running
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	default:
		return "not-running"
	}
}

type ExitStatus int

const (
	NormalExit ExitStatus = iota
	CrashExit
)

func (s ExitStatus) String() string {
	if s == CrashExit {
		return "crash"
	}
	return "normal"
}

// ErrorKind classifies a process-level failure. It describes a problem with
// the process itself (missing binary, crash), never a bad user input.
type ErrorKind int

const (
	FailedToStart ErrorKind = iota
	Crashed
	Timedout
	WriteError
	ReadError
	UnknownError
)

func (k ErrorKind) String() string {
	switch k {
	case FailedToStart:
		return "The process failed to start."
	case Crashed:
		return "The process crashed while attempting to run."
	case Timedout:
		return "The process has timed out."
	case WriteError:
		return "The process has encountered a write error."
	case ReadError:
		return "The process has encountered a read error."
	default:
		return "The process has encountered an unknown error."
	}
}

// Handler receives lifecycle events. Every callback runs on the loop the
// process was created with. Nil callbacks are skipped.
type Handler struct {
	Started     func()
	Error       func(kind ErrorKind)
	Finished    func(exitCode int, status ExitStatus)
	StdoutReady func()
	StderrReady func()
}

// Process is one helper subprocess.
//
// Start is a no-op unless the process is NotRunning. Kill is safe to call on
// a process that is not running. ReadAllStdout and ReadAllStderr return the
// bytes accumulated since the previous read. Only exit code 0 with
// NormalExit counts as success.
type Process interface {
	Start(program string, args []string)
	Kill()
	State() State
	ReadAllStdout() []byte
	ReadAllStderr() []byte
	SetHandler(h Handler)
	String() string
}

// Factory creates a fresh Process bound to l.
type Factory func(l *loop.Loop) Process

// Succeeded reports whether a finished process ended successfully.
func Succeeded(exitCode int, status ExitStatus) bool {
	return status == NormalExit && exitCode == 0
}
