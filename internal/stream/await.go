package stream

import (
	"context"
	"fmt"

	"github.com/tanq16/streamz/internal/loop"
)

// Await runs l on the calling goroutine until start's finish function is
// called. It returns an ErrCancelled error when ctx ends first.
func Await(ctx context.Context, l *loop.Loop, start func(finish func())) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	finished := false
	l.Post(func() {
		start(func() {
			finished = true
			cancel()
		})
	})
	err := l.Run(runCtx)
	if finished {
		return nil
	}
	if err == nil {
		return ErrCancelled
	}
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}

// CollectInfo runs d for url and waits for the merged playlist.
func CollectInfo(ctx context.Context, l *loop.Loop, d *InfoDownloader, url string) ([]Info, error) {
	var infos []Info
	var failure error
	err := Await(ctx, l, func(finish func()) {
		d.CollectedFunc = func(collected []Info) {
			infos = collected
			finish()
		}
		d.ErrorFunc = func(err error) {
			failure = err
			finish()
		}
		d.RunAsync(url)
	})
	d.CollectedFunc = nil
	d.ErrorFunc = nil
	if err != nil {
		d.Stop()
		return nil, err
	}
	return infos, failure
}

// CollectExtractors runs c and waits for both lists.
func CollectExtractors(ctx context.Context, l *loop.Loop, c *ExtractorListCollector) (extractors, descriptions []string, err error) {
	var failure error
	err = Await(ctx, l, func(finish func()) {
		c.CollectedFunc = func(e, d []string) {
			extractors, descriptions = e, d
		}
		c.ErrorFunc = func(err error) {
			failure = err
		}
		c.FinishedFunc = finish
		c.RunAsync()
	})
	if err != nil {
		c.stop()
		return nil, nil, err
	}
	return extractors, descriptions, failure
}

// RunCleanCache removes the helper cache and waits for it.
func RunCleanCache(ctx context.Context, l *loop.Loop, c *CleanCache) error {
	return Await(ctx, l, func(finish func()) {
		c.DoneFunc = finish
		c.RunAsync()
	})
}

// RunUpgrade updates the helper and waits for it.
func RunUpgrade(ctx context.Context, l *loop.Loop, u *Upgrader) error {
	err := Await(ctx, l, func(finish func()) {
		u.DoneFunc = finish
		u.RunAsync()
	})
	if err != nil {
		return err
	}
	if !u.Succeeded() {
		return fmt.Errorf("helper upgrade failed")
	}
	return nil
}
