package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tanq16/streamz/internal/helper"
	"github.com/tanq16/streamz/internal/loop"
	"github.com/tanq16/streamz/internal/output"
	"github.com/tanq16/streamz/internal/process"
	"github.com/tanq16/streamz/internal/sink"
	"github.com/tanq16/streamz/internal/stream"
	"github.com/tanq16/streamz/internal/utils"
	"github.com/tanq16/streamz/internal/worker"
)

var ErrJobsFailed = errors.New("one or more downloads failed")

type Options struct {
	Workers    int
	Helper     helper.Config
	NewProcess process.Factory
	// Uploader receives finished files of jobs with UploadTo set.
	Uploader sink.Uploader
	Output   *output.Manager
}

type Result struct {
	Files  []string
	Failed int
}

// Run resolves every job into its playlist items and downloads them, with at
// most opts.Workers helper invocations running at once. All wrappers live on
// one loop driven by the calling goroutine.
func Run(ctx context.Context, jobs []utils.StreamJob, opts Options) (Result, error) {
	if opts.Workers <= 0 {
		opts.Workers = worker.DefaultWorkers
	}
	if opts.NewProcess == nil {
		opts.NewProcess = process.ExecFactory
	}
	mgr := opts.Output
	if mgr == nil {
		mgr = output.NewManager()
	}
	mgr.StartDisplay()
	defer mgr.StopDisplay()

	r := &runner{
		ctx:    ctx,
		loop:   loop.New(),
		opts:   opts,
		mgr:    mgr,
		pool:   worker.NewPool(opts.Workers),
		aborts: make(map[int]func()),
	}
	for _, job := range jobs {
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		r.resolve(job)
	}
	r.loop.Post(r.pump)

	err := r.loop.Run(ctx)
	if err != nil {
		for _, abort := range r.aborts {
			abort()
		}
		r.pool.Wait()
		return r.result, fmt.Errorf("%w: %w", stream.ErrCancelled, err)
	}
	r.pool.Wait()
	if r.result.Failed > 0 {
		return r.result, ErrJobsFailed
	}
	return r.result, nil
}

type task struct {
	id  int
	run func(done func())
}

type runner struct {
	ctx  context.Context
	loop *loop.Loop
	opts Options
	mgr  *output.Manager
	pool *worker.Pool

	queue   []task
	active  int
	uploads int
	aborts  map[int]func()
	result  Result
}

func (r *runner) enqueue(id int, run func(done func())) {
	r.queue = append(r.queue, task{id: id, run: run})
}

// pump starts queued tasks while slots are free and quits the loop once
// nothing is queued, running or uploading.
func (r *runner) pump() {
	for r.active < r.opts.Workers && len(r.queue) > 0 {
		t := r.queue[0]
		r.queue = r.queue[1:]
		r.active++
		released := false
		t.run(func() {
			if released {
				return
			}
			released = true
			r.active--
			delete(r.aborts, t.id)
			r.loop.Post(r.pump)
		})
	}
	if r.active == 0 && len(r.queue) == 0 && r.uploads == 0 {
		r.loop.Quit()
	}
}

func (r *runner) fail(id int, err error) {
	r.result.Failed++
	r.mgr.ReportError(id, err)
}

func (r *runner) resolve(job utils.StreamJob) {
	id := r.mgr.Register(job.URL)
	r.enqueue(id, func(done func()) {
		logger := log.With().Str("op", "scheduler/scheduler").Str("job", job.ID).Logger()
		r.mgr.SetMessage(id, fmt.Sprintf("Resolving %s", job.URL))
		d := stream.NewInfoDownloader(r.loop, r.opts.NewProcess, r.opts.Helper)
		d.CollectedFunc = func(infos []stream.Info) {
			logger.Debug().Msgf("resolved %d items", len(infos))
			available := 0
			for i := range infos {
				info := infos[i]
				if !info.IsAvailable() {
					r.fail(r.mgr.Register(info.ID), fmt.Errorf("%s: %s", info.ID, info.Error()))
					continue
				}
				available++
				r.download(job, info)
			}
			r.mgr.Complete(id, fmt.Sprintf("Resolved %d of %d items from %s", available, len(infos), job.URL))
			done()
		}
		d.ErrorFunc = func(err error) {
			logger.Debug().Err(err).Msg("resolve failed")
			r.fail(id, err)
			done()
		}
		r.aborts[id] = d.Stop
		d.RunAsync(job.URL)
	})
}

func outputPathFor(dir string, info *stream.Info) string {
	path := filepath.Join(dir, info.FullFileName())
	if _, err := os.Stat(path); err == nil {
		path = utils.RenewOutputPath(path)
	}
	return path
}

// finalPath applies an extension change reported during the download.
func finalPath(path, ext string) string {
	if ext == "" || strings.EqualFold(filepath.Ext(path), "."+ext) {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + ext
}

func (r *runner) download(job utils.StreamJob, info stream.Info) {
	if job.Format != "" {
		info.SetFormatID(stream.ParseFormatID(job.Format))
	}
	id := r.mgr.Register(info.FullFileName())
	r.enqueue(id, func(done func()) {
		logger := log.With().Str("op", "scheduler/scheduler").Str("job", job.ID).Str("item", info.ID).Logger()
		s := stream.NewStream(r.loop, r.opts.NewProcess, r.opts.Helper)
		s.InitializeWithInfo(&info)
		url := info.WebpageURL
		if url == "" {
			url = job.URL
		}
		s.SetURL(url)
		s.SetReferringPage(job.Referer)
		s.SetOutputPath(outputPathFor(job.OutputDir, &info))
		r.mgr.SetMessage(id, fmt.Sprintf("Downloading %s", s.FileName()))

		var failure error
		s.ProgressFunc = func(received, total int64) {
			r.mgr.SetProgress(id, received, total)
		}
		s.MetadataFunc = func() {
			r.mgr.SetLabel(id, s.FileName())
		}
		s.ErrorFunc = func(err error) {
			if failure == nil {
				failure = err
			}
			if s.IsRunning() {
				r.mgr.Warn(id, err.Error())
				return
			}
			logger.Debug().Err(failure).Msg("download failed")
			r.fail(id, failure)
			done()
		}
		s.FinishedFunc = func() {
			path := finalPath(s.OutputPath(), s.FileExtension())
			logger.Debug().Msgf("downloaded %s", path)
			r.result.Files = append(r.result.Files, path)
			done()
			if job.UploadTo != "" && r.opts.Uploader != nil {
				r.upload(id, path, job.UploadTo)
				return
			}
			r.mgr.Complete(id, fmt.Sprintf("Downloaded %s", s.FileName()))
		}
		r.aborts[id] = func() {
			s.FinishedFunc = nil
			s.Abort()
		}
		s.Start()
	})
}

// upload runs on the worker pool and reports back on the loop.
func (r *runner) upload(id int, path, dest string) {
	r.uploads++
	r.mgr.SetMessage(id, fmt.Sprintf("Uploading %s", filepath.Base(path)))
	future := worker.Submit(r.ctx, r.pool, func(ctx context.Context) (string, error) {
		return r.opts.Uploader.Upload(ctx, path, dest)
	})
	go func() {
		location, err := future.Wait(context.Background())
		r.loop.Post(func() {
			r.uploads--
			if err != nil {
				r.fail(id, err)
			} else {
				r.mgr.Complete(id, fmt.Sprintf("Uploaded %s", location))
			}
			r.pump()
		})
	}()
}
