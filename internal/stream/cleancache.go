package stream

import (
	"github.com/rs/zerolog/log"

	"github.com/tanq16/streamz/internal/helper"
	"github.com/tanq16/streamz/internal/loop"
	"github.com/tanq16/streamz/internal/process"
)

// CleanCache removes the helper's cache directory.
type CleanCache struct {
	loop       *loop.Loop
	newProcess process.Factory
	cfg        helper.Config
	proc       process.Process
	cleaned    bool

	// DoneFunc fires once per run, whatever the outcome.
	DoneFunc func()
}

func NewCleanCache(l *loop.Loop, newProcess process.Factory, cfg helper.Config) *CleanCache {
	return &CleanCache{loop: l, newProcess: newProcess, cfg: cfg}
}

func (c *CleanCache) RunAsync() {
	if running(c.proc) {
		return
	}
	p := c.newProcess(c.loop)
	p.SetHandler(process.Handler{
		Error: func(kind process.ErrorKind) {
			log.Debug().Str("op", "stream/cleancache").Msg(kind.String())
			if kind == process.FailedToStart && p == c.proc {
				c.done()
			}
		},
		Finished: func(code int, status process.ExitStatus) {
			if p != c.proc {
				return
			}
			switch {
			case status != process.NormalExit:
				log.Debug().Str("op", "stream/cleancache").Msg("the process crashed")
			case code == 0:
				log.Debug().Str("op", "stream/cleancache").Msg("cleaned")
			default:
				log.Debug().Str("op", "stream/cleancache").Msgf("can't clean, exit code %d", code)
			}
			c.done()
		},
	})
	c.proc = p
	p.Start(c.cfg.ProgramPath(), []string{"--no-color", "--rm-cache-dir"})
	log.Debug().Str("op", "stream/cleancache").Msg(p.String())
}

// done marks the cache as cleaned even when cleaning failed, so it is never
// attempted twice.
func (c *CleanCache) done() {
	c.proc = nil
	c.cleaned = true
	if c.DoneFunc != nil {
		c.DoneFunc()
	}
}

func (c *CleanCache) IsCleaned() bool {
	return c.cleaned
}

func (c *CleanCache) IsRunning() bool {
	return running(c.proc)
}

// CacheDir is the directory the helper caches into.
func CacheDir() string {
	return helper.CacheDir()
}
