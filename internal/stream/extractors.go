package stream

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tanq16/streamz/internal/helper"
	"github.com/tanq16/streamz/internal/loop"
	"github.com/tanq16/streamz/internal/process"
)

// ExtractorListCollector fetches the supported site extractors and their
// descriptions with two parallel helper runs.
type ExtractorListCollector struct {
	loop       *loop.Loop
	newProcess process.Factory
	cfg        helper.Config

	extractorsProc   process.Process
	descriptionsProc process.Process
	extractors       []string
	descriptions     []string

	CollectedFunc func(extractors, descriptions []string)
	ErrorFunc     func(err error)
	FinishedFunc  func()
}

func NewExtractorListCollector(l *loop.Loop, newProcess process.Factory, cfg helper.Config) *ExtractorListCollector {
	return &ExtractorListCollector{loop: l, newProcess: newProcess, cfg: cfg}
}

func (c *ExtractorListCollector) RunAsync() {
	if !running(c.extractorsProc) {
		c.extractorsProc = c.start("--list-extractors", func(lines []string) { c.extractors = lines })
	}
	if !running(c.descriptionsProc) {
		c.descriptionsProc = c.start("--extractor-descriptions", func(lines []string) { c.descriptions = lines })
	}
}

func (c *ExtractorListCollector) start(option string, store func(lines []string)) process.Process {
	p := c.newProcess(c.loop)
	p.SetHandler(process.Handler{
		Error: func(kind process.ErrorKind) {
			if p != c.extractorsProc && p != c.descriptionsProc {
				return
			}
			log.Debug().Str("op", "stream/extractors").Msg(kind.String())
			c.extractors = nil
			c.descriptions = nil
			if kind == process.FailedToStart {
				c.stop()
				c.fail(ErrProcessLaunch)
			}
		},
		Finished: func(code int, status process.ExitStatus) {
			if p != c.extractorsProc && p != c.descriptionsProc {
				return
			}
			switch {
			case status != process.NormalExit:
				c.stop()
				c.fail(ErrProcessCrash)
			case code != 0:
				stderr := simplify(string(p.ReadAllStderr()))
				c.stop()
				c.fail(&ExitError{Code: code, Stderr: stderr})
			default:
				store(strings.Split(string(p.ReadAllStdout()), "\n"))
				c.collect()
			}
		},
	})
	p.Start(c.cfg.ProgramPath(), []string{"--no-color", option})
	log.Debug().Str("op", "stream/extractors").Msg(p.String())
	return p
}

// stop detaches both runs so a failure is reported once.
func (c *ExtractorListCollector) stop() {
	c.extractorsProc = detach(c.extractorsProc)
	c.descriptionsProc = detach(c.descriptionsProc)
}

func (c *ExtractorListCollector) IsRunning() bool {
	return running(c.extractorsProc) || running(c.descriptionsProc)
}

func (c *ExtractorListCollector) collect() {
	if len(c.extractors) == 0 || len(c.descriptions) == 0 {
		return
	}
	if c.CollectedFunc != nil {
		c.CollectedFunc(c.extractors, c.descriptions)
	}
	if c.FinishedFunc != nil {
		c.FinishedFunc()
	}
}

func (c *ExtractorListCollector) fail(err error) {
	if c.ErrorFunc != nil {
		c.ErrorFunc(err)
	}
	if c.FinishedFunc != nil {
		c.FinishedFunc()
	}
}
