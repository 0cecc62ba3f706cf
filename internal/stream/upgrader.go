package stream

import (
	"github.com/rs/zerolog/log"

	"github.com/tanq16/streamz/internal/helper"
	"github.com/tanq16/streamz/internal/loop"
	"github.com/tanq16/streamz/internal/process"
	"github.com/tanq16/streamz/internal/utils"
)

// Upgrader asks the helper to update itself.
type Upgrader struct {
	loop       *loop.Loop
	newProcess process.Factory
	cfg        helper.Config
	proc       process.Process
	succeeded  bool

	DoneFunc func()
}

func NewUpgrader(l *loop.Loop, newProcess process.Factory, cfg helper.Config) *Upgrader {
	return &Upgrader{loop: l, newProcess: newProcess, cfg: cfg}
}

func (u *Upgrader) RunAsync() {
	if running(u.proc) {
		return
	}
	u.succeeded = false
	logger := utils.HelperLogger("stream/upgrader", u.cfg.ProgramPath()+" --update")
	p := u.newProcess(u.loop)
	p.SetHandler(process.Handler{
		Error: func(kind process.ErrorKind) {
			log.Debug().Str("op", "stream/upgrader").Msg(kind.String())
			if kind == process.FailedToStart && p == u.proc {
				u.done()
			}
		},
		StdoutReady: func() {
			for _, line := range splitLines(p.ReadAllStdout()) {
				logger.Debug().Msg(string(line))
			}
		},
		StderrReady: func() {
			for _, line := range splitLines(p.ReadAllStderr()) {
				logger.Debug().Msgf("error: %s", line)
			}
		},
		Finished: func(code int, status process.ExitStatus) {
			if p != u.proc {
				return
			}
			switch {
			case status != process.NormalExit:
				log.Debug().Str("op", "stream/upgrader").Msg("the process crashed")
			case code == 0:
				u.succeeded = true
				log.Debug().Str("op", "stream/upgrader").Msg("upgraded")
			default:
				log.Debug().Str("op", "stream/upgrader").Msgf("can't upgrade, exit code %d", code)
			}
			u.done()
		},
	})
	u.proc = p
	p.Start(u.cfg.ProgramPath(), []string{"--no-color", "--update"})
	log.Debug().Str("op", "stream/upgrader").Msg(p.String())
}

func (u *Upgrader) done() {
	u.proc = nil
	if u.DoneFunc != nil {
		u.DoneFunc()
	}
}

// Succeeded reports whether the last run exited cleanly.
func (u *Upgrader) Succeeded() bool {
	return u.succeeded
}

func (u *Upgrader) IsRunning() bool {
	return running(u.proc)
}
