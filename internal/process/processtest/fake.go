// Package processtest provides a scripted process.Process for tests of the
// helper wrappers. Events are posted onto the loop like the real process, so
// tests drive them with loop.Drain.
package processtest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tanq16/streamz/internal/loop"
	"github.com/tanq16/streamz/internal/process"
)

type Fake struct {
	loop        *loop.Loop
	failOnStart bool
	onStart     func(f *Fake)

	mu      sync.Mutex
	handler process.Handler
	state   process.State
	stdout  []byte
	stderr  []byte

	Program string
	Args    []string
	Starts  int
	Kills   int
}

func NewFake(l *loop.Loop) *Fake {
	return &Fake{loop: l}
}

func (f *Fake) SetHandler(h process.Handler) {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
}

func (f *Fake) State() process.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Fake) Start(program string, args []string) {
	f.mu.Lock()
	if f.state != process.NotRunning {
		f.mu.Unlock()
		return
	}
	f.Starts++
	f.Program = program
	f.Args = append([]string(nil), args...)
	if f.failOnStart {
		f.mu.Unlock()
		f.post(func(h process.Handler) {
			if h.Error != nil {
				h.Error(process.FailedToStart)
			}
		})
		return
	}
	f.state = process.Running
	f.mu.Unlock()
	f.post(func(h process.Handler) {
		if h.Started != nil {
			h.Started()
		}
	})
	if f.onStart != nil {
		f.loop.Post(func() { f.onStart(f) })
	}
}

// Kill behaves like a real kill: the process ends with CrashExit.
func (f *Fake) Kill() {
	f.mu.Lock()
	f.Kills++
	running := f.state != process.NotRunning
	f.mu.Unlock()
	if running {
		f.Crash()
	}
}

func (f *Fake) ReadAllStdout() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.stdout
	f.stdout = nil
	return out
}

func (f *Fake) ReadAllStderr() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.stderr
	f.stderr = nil
	return out
}

func (f *Fake) String() string {
	return fmt.Sprintf("[fake] %s %s", f.Program, strings.Join(f.Args, " "))
}

// WriteStdout appends data to the stdout buffer and posts StdoutReady.
func (f *Fake) WriteStdout(data string) {
	f.mu.Lock()
	f.stdout = append(f.stdout, data...)
	f.mu.Unlock()
	f.post(func(h process.Handler) {
		if h.StdoutReady != nil {
			h.StdoutReady()
		}
	})
}

// WriteStderr appends data to the stderr buffer and posts StderrReady.
func (f *Fake) WriteStderr(data string) {
	f.mu.Lock()
	f.stderr = append(f.stderr, data...)
	f.mu.Unlock()
	f.post(func(h process.Handler) {
		if h.StderrReady != nil {
			h.StderrReady()
		}
	})
}

// BufferStdout appends data without signalling, like output that is only
// read once the process finishes.
func (f *Fake) BufferStdout(data string) {
	f.mu.Lock()
	f.stdout = append(f.stdout, data...)
	f.mu.Unlock()
}

// BufferStderr is BufferStdout for stderr.
func (f *Fake) BufferStderr(data string) {
	f.mu.Lock()
	f.stderr = append(f.stderr, data...)
	f.mu.Unlock()
}

// Exit finishes the process normally with code.
func (f *Fake) Exit(code int) {
	f.finish(code, process.NormalExit)
}

// Crash finishes the process abnormally.
func (f *Fake) Crash() {
	f.finish(-1, process.CrashExit)
}

func (f *Fake) finish(code int, status process.ExitStatus) {
	f.loop.Post(func() {
		f.mu.Lock()
		f.state = process.NotRunning
		h := f.handler
		f.mu.Unlock()
		if status == process.CrashExit && h.Error != nil {
			h.Error(process.Crashed)
		}
		if h.Finished != nil {
			h.Finished(code, status)
		}
	})
}

func (f *Fake) post(fn func(h process.Handler)) {
	f.loop.Post(func() {
		f.mu.Lock()
		h := f.handler
		f.mu.Unlock()
		fn(h)
	})
}

// Factory records every Fake it creates. Use Factory.New as a
// process.Factory.
type Factory struct {
	mu      sync.Mutex
	created []*Fake

	// FailStarts makes every subsequently created fake fail on Start.
	FailStarts bool
	// OnStart runs on the loop after each successful Start, so a test can
	// script the process from its arguments.
	OnStart func(f *Fake)
}

func (fac *Factory) New(l *loop.Loop) process.Process {
	fac.mu.Lock()
	defer fac.mu.Unlock()
	f := NewFake(l)
	f.failOnStart = fac.FailStarts
	f.onStart = fac.OnStart
	fac.created = append(fac.created, f)
	return f
}

func (fac *Factory) Count() int {
	fac.mu.Lock()
	defer fac.mu.Unlock()
	return len(fac.created)
}

func (fac *Factory) Get(i int) *Fake {
	fac.mu.Lock()
	defer fac.mu.Unlock()
	if i < 0 || i >= len(fac.created) {
		return nil
	}
	return fac.created[i]
}

func (fac *Factory) Last() *Fake {
	return fac.Get(fac.Count() - 1)
}

// Find returns the most recent fake whose arguments contain arg.
func (fac *Factory) Find(arg string) *Fake {
	fac.mu.Lock()
	defer fac.mu.Unlock()
	for i := len(fac.created) - 1; i >= 0; i-- {
		for _, a := range fac.created[i].Args {
			if a == arg {
				return fac.created[i]
			}
		}
	}
	return nil
}
