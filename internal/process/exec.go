package process

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/streamz/internal/loop"
)

const readChunkSize = 32 * 1024

// Exec is the os/exec backed Process. The helper runs in its own process
// group so Kill also reaps anything it spawned (ffmpeg merges).
type Exec struct {
	loop *loop.Loop

	mu      sync.Mutex
	state   State
	handler Handler
	cmd     *exec.Cmd
	program string
	args    []string
	stdout  bytes.Buffer
	stderr  bytes.Buffer
}

func NewExec(l *loop.Loop) *Exec {
	return &Exec{loop: l}
}

// ExecFactory is a Factory producing Exec processes.
func ExecFactory(l *loop.Loop) Process {
	return NewExec(l)
}

func (p *Exec) SetHandler(h Handler) {
	p.mu.Lock()
	p.handler = h
	p.mu.Unlock()
}

func (p *Exec) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Exec) Start(program string, args []string) {
	p.mu.Lock()
	if p.state != NotRunning {
		p.mu.Unlock()
		return
	}
	p.state = Starting
	p.program = program
	p.args = append([]string(nil), args...)
	p.stdout.Reset()
	p.stderr.Reset()

	cmd := exec.Command(program, args...)
	setProcessGroup(cmd)
	stdout, err := cmd.StdoutPipe()
	var stderr io.ReadCloser
	if err == nil {
		stderr, err = cmd.StderrPipe()
	}
	if err == nil {
		err = cmd.Start()
	}
	if err != nil {
		p.state = NotRunning
		p.mu.Unlock()
		log.Debug().Str("op", "process/exec").Err(err).Msgf("could not start %s", program)
		p.post(func(h Handler) {
			if h.Error != nil {
				h.Error(FailedToStart)
			}
		})
		return
	}
	p.cmd = cmd
	p.state = Running
	p.mu.Unlock()

	log.Debug().Str("op", "process/exec").Msgf("started %s", p.String())
	p.post(func(h Handler) {
		if h.Started != nil {
			h.Started()
		}
	})
	go p.monitor(cmd, stdout, stderr)
}

func (p *Exec) Kill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == NotRunning || p.cmd == nil || p.cmd.Process == nil {
		return
	}
	if err := killProcessGroup(p.cmd); err != nil {
		log.Debug().Str("op", "process/exec").Err(err).Msgf("kill failed for pid %d", p.cmd.Process.Pid)
	}
}

func (p *Exec) ReadAllStdout() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return drain(&p.stdout)
}

func (p *Exec) ReadAllStderr() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return drain(&p.stderr)
}

func (p *Exec) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	pid := 0
	if p.cmd != nil && p.cmd.Process != nil {
		pid = p.cmd.Process.Pid
	}
	return fmt.Sprintf("[pid:%d] %s %s", pid, p.program, strings.Join(p.args, " "))
}

func (p *Exec) post(fn func(h Handler)) {
	p.loop.Post(func() {
		p.mu.Lock()
		h := p.handler
		p.mu.Unlock()
		fn(h)
	})
}

func (p *Exec) monitor(cmd *exec.Cmd, stdout, stderr io.Reader) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.pump(stdout, &p.stdout, func(h Handler) func() { return h.StdoutReady })
	}()
	go func() {
		defer wg.Done()
		p.pump(stderr, &p.stderr, func(h Handler) func() { return h.StderrReady })
	}()
	wg.Wait()

	code, status := exitInfo(cmd.Wait())
	log.Debug().Str("op", "process/exec").Msgf("%s exited with code %d (%s)", cmd.Path, code, status)
	p.loop.Post(func() {
		p.mu.Lock()
		p.state = NotRunning
		h := p.handler
		p.mu.Unlock()
		if status == CrashExit && h.Error != nil {
			h.Error(Crashed)
		}
		if h.Finished != nil {
			h.Finished(code, status)
		}
	})
}

func (p *Exec) pump(r io.Reader, buf *bytes.Buffer, pick func(Handler) func()) {
	chunk := make([]byte, readChunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			p.mu.Lock()
			buf.Write(chunk[:n])
			p.mu.Unlock()
			p.post(func(h Handler) {
				if fn := pick(h); fn != nil {
					fn()
				}
			})
		}
		if err != nil {
			return
		}
	}
}

func exitInfo(err error) (int, ExitStatus) {
	if err == nil {
		return 0, NormalExit
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ProcessState.Exited() {
			return exitErr.ProcessState.ExitCode(), NormalExit
		}
		return exitErr.ProcessState.ExitCode(), CrashExit
	}
	return -1, CrashExit
}

func drain(buf *bytes.Buffer) []byte {
	if buf.Len() == 0 {
		return nil
	}
	out := bytes.Clone(buf.Bytes())
	buf.Reset()
	return out
}
