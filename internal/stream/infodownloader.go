package stream

import (
	"github.com/rs/zerolog/log"

	"github.com/tanq16/streamz/internal/helper"
	"github.com/tanq16/streamz/internal/loop"
	"github.com/tanq16/streamz/internal/process"
)

// InfoDownloader collects the metadata of a URL. It runs two helper
// processes side by side: a full JSON dump of every item and a flat,
// ordered playlist listing. Their results are merged once both are in.
//
// All methods and callbacks run on the loop.
type InfoDownloader struct {
	loop       *loop.Loop
	newProcess process.Factory
	cfg        helper.Config
	cleaner    *CleanCache

	dumpProc process.Process
	flatProc process.Process
	url      string
	retrying bool
	dump     map[string]Info
	flat     []flatItem

	// CollectedFunc receives the merged items in playlist order.
	CollectedFunc func(infos []Info)
	ErrorFunc     func(err error)
}

func NewInfoDownloader(l *loop.Loop, newProcess process.Factory, cfg helper.Config) *InfoDownloader {
	d := &InfoDownloader{
		loop:       l,
		newProcess: newProcess,
		cfg:        cfg,
		cleaner:    NewCleanCache(l, newProcess, cfg),
	}
	d.cleaner.DoneFunc = d.onCacheCleaned
	return d
}

func dumpArgs(url string, cfg helper.Config) []string {
	args := []string{
		"--dump-json",
		"--yes-playlist",
		"--no-color",
		"--no-check-certificate",
		"--ignore-config",
		"--ignore-errors",
	}
	args = append(args, cfg.Args()...)
	return append(args, "--", url)
}

func flatArgs(url string, cfg helper.Config) []string {
	args := []string{
		"--dump-json",
		"--flat-playlist",
		"--yes-playlist",
		"--no-color",
		"--no-check-certificate",
		"--ignore-config",
		"--ignore-errors",
	}
	args = append(args, cfg.Args()...)
	return append(args, "--", url)
}

// RunAsync starts a new session for url, discarding any previous results.
func (d *InfoDownloader) RunAsync(url string) {
	d.url = url
	d.dump = nil
	d.flat = nil
	d.runDump()
	d.runFlat()
}

func (d *InfoDownloader) runDump() {
	if running(d.dumpProc) {
		return
	}
	p := d.newProcess(d.loop)
	p.SetHandler(process.Handler{
		Error: func(kind process.ErrorKind) { d.onError(p, kind) },
		Finished: func(code int, status process.ExitStatus) {
			if p == d.dumpProc {
				d.onDumpFinished(code, status)
			}
		},
	})
	d.dumpProc = p
	p.Start(d.cfg.ProgramPath(), dumpArgs(d.url, d.cfg))
	log.Debug().Str("op", "stream/infodownloader").Msg(p.String())
}

func (d *InfoDownloader) runFlat() {
	if running(d.flatProc) {
		return
	}
	p := d.newProcess(d.loop)
	p.SetHandler(process.Handler{
		Error: func(kind process.ErrorKind) { d.onError(p, kind) },
		Finished: func(code int, status process.ExitStatus) {
			if p == d.flatProc {
				d.onFlatFinished(code, status)
			}
		},
	})
	d.flatProc = p
	p.Start(d.cfg.ProgramPath(), flatArgs(d.url, d.cfg))
	log.Debug().Str("op", "stream/infodownloader").Msg(p.String())
}

// Stop kills both processes and drops the partial results. Nothing is
// reported for the stopped session afterwards.
func (d *InfoDownloader) Stop() {
	d.retrying = false
	d.stop()
}

func (d *InfoDownloader) stop() {
	d.dumpProc = detach(d.dumpProc)
	d.flatProc = detach(d.flatProc)
	d.dump = nil
	d.flat = nil
}

// IsRunning includes the cache clean that precedes a retry.
func (d *InfoDownloader) IsRunning() bool {
	return running(d.dumpProc) || running(d.flatProc) || (d.retrying && d.cleaner.IsRunning())
}

// URL returns the URL of the current session.
func (d *InfoDownloader) URL() string {
	return d.url
}

func (d *InfoDownloader) onError(p process.Process, kind process.ErrorKind) {
	if p != d.dumpProc && p != d.flatProc {
		return
	}
	log.Debug().Str("op", "stream/infodownloader").Msg(kind.String())
	d.dump = nil
	d.flat = nil
	if kind == process.FailedToStart {
		// No finish event follows a failed start.
		d.stop()
		d.report(ErrProcessLaunch)
	}
}

func (d *InfoDownloader) onDumpFinished(code int, status process.ExitStatus) {
	log.Debug().Str("op", "stream/infodownloader").Msgf("dump finished with code %d (%s)", code, status)
	if status != process.NormalExit {
		d.report(ErrProcessCrash)
		return
	}
	// With --ignore-errors, unavailable items of a playlist are reported
	// on stderr while available ones go to stdout.
	d.dump = parseDumpMap(d.dumpProc.ReadAllStdout(), d.dumpProc.ReadAllStderr())

	if code != 0 {
		// A playlist with a few broken items is accepted as is: dumping a
		// long playlist twice costs more than the missing items.
		isPlaylist := len(d.dump) > 1
		if !d.cleaner.IsCleaned() && !isPlaylist {
			log.Debug().Str("op", "stream/infodownloader").Msg("clearing helper cache before retrying")
			d.stop()
			d.retrying = true
			d.cleaner.RunAsync()
			return
		}
	}
	if len(d.dump) == 0 {
		d.report(ErrJSONParse)
		return
	}
	d.merge()
}

func (d *InfoDownloader) onFlatFinished(code int, status process.ExitStatus) {
	log.Debug().Str("op", "stream/infodownloader").Msgf("flat listing finished with code %d (%s)", code, status)
	if status != process.NormalExit {
		d.report(ErrProcessCrash)
		return
	}
	if code != 0 {
		d.report(ErrPlaylistIllFormed)
		return
	}
	d.flat = parseFlatList(d.flatProc.ReadAllStdout(), d.flatProc.ReadAllStderr())
	if len(d.flat) == 0 {
		d.report(ErrNoData)
		return
	}
	d.merge()
}

func (d *InfoDownloader) onCacheCleaned() {
	if !d.retrying {
		return
	}
	d.retrying = false
	d.RunAsync(d.url)
}

// merge emits the playlist once both sides have data. It is called by both
// finish handlers and does nothing until the counterpart is in.
func (d *InfoDownloader) merge() {
	if len(d.dump) == 0 || len(d.flat) == 0 {
		return
	}
	infos := make([]Info, 0, len(d.flat))
	for i, item := range d.flat {
		info, ok := d.dump[item.ID]
		if !ok {
			info = Info{ID: item.ID, err: ErrorUnavailable}
		}
		if info.DefaultTitle == "" {
			info.DefaultTitle = item.Title
		}
		if info.WebpageURL == "" {
			info.WebpageURL = item.URL
		}
		info.PlaylistIndex = i + 1
		infos = append(infos, info)
	}
	if d.CollectedFunc != nil {
		d.CollectedFunc(infos)
	}
}

func (d *InfoDownloader) report(err error) {
	d.dump = nil
	d.flat = nil
	if d.ErrorFunc != nil {
		d.ErrorFunc(err)
	}
}

func running(p process.Process) bool {
	return p != nil && p.State() != process.NotRunning
}

// detach kills p and unhooks its handler so no late event reaches the owner.
func detach(p process.Process) process.Process {
	if p == nil {
		return nil
	}
	p.SetHandler(process.Handler{})
	p.Kill()
	return nil
}
