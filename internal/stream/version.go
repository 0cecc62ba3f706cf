package stream

import (
	"context"
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tanq16/streamz/internal/helper"
	"github.com/tanq16/streamz/internal/worker"
)

const unknownVersion = "unknown"

// VersionRunner runs the helper and returns its stdout. Tests replace it.
type VersionRunner func(ctx context.Context, program string, args []string) ([]byte, error)

func execVersion(ctx context.Context, program string, args []string) ([]byte, error) {
	return exec.CommandContext(ctx, program, args...).Output()
}

// VersionCache memoizes the helper version. The query blocks, so it runs on
// the worker pool rather than the loop.
type VersionCache struct {
	cfg  helper.Config
	pool *worker.Pool
	run  VersionRunner

	mu      sync.Mutex
	version string
}

func NewVersionCache(cfg helper.Config, pool *worker.Pool, run VersionRunner) *VersionCache {
	if run == nil {
		run = execVersion
	}
	return &VersionCache{cfg: cfg, pool: pool, run: run}
}

// Version blocks until the helper answers. It returns "unknown" when the
// helper cannot be run; that answer is not cached.
func (v *VersionCache) Version(ctx context.Context) string {
	v.mu.Lock()
	cached := v.version
	v.mu.Unlock()
	if cached != "" {
		return cached
	}
	out, err := v.run(ctx, v.cfg.ProgramPath(), []string{"--no-color", "--version"})
	if err != nil {
		log.Debug().Str("op", "stream/version").Err(err).Msg("can't query helper version")
		return unknownVersion
	}
	version := simplify(string(out))
	if version == "" {
		return unknownVersion
	}
	v.mu.Lock()
	v.version = version
	v.mu.Unlock()
	return version
}

// VersionAsync queries the version on the pool. Cancelling the future
// discards a slow answer.
func (v *VersionCache) VersionAsync(ctx context.Context) *worker.Future[string] {
	return worker.Submit(ctx, v.pool, func(ctx context.Context) (string, error) {
		return v.Version(ctx), nil
	})
}

// Reset forgets the cached version.
func (v *VersionCache) Reset() {
	v.mu.Lock()
	v.version = ""
	v.mu.Unlock()
}
