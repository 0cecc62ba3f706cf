package stream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanq16/streamz/internal/helper"
	"github.com/tanq16/streamz/internal/loop"
	"github.com/tanq16/streamz/internal/process/processtest"
)

// afterStart queues fn to run right after the task Await posts next.
func afterStart(l *loop.Loop, fn func()) {
	l.Post(func() { l.Post(fn) })
}

func TestAwait(t *testing.T) {
	l := loop.New()
	calls := 0
	err := Await(context.Background(), l, func(finish func()) {
		calls++
		l.Post(finish)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestAwaitCancelled(t *testing.T) {
	l := loop.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Await(ctx, l, func(finish func()) {})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectInfo(t *testing.T) {
	l := loop.New()
	fac := &processtest.Factory{}
	d := NewInfoDownloader(l, fac.New, helper.Config{})
	afterStart(l, func() {
		fac.Get(0).BufferStdout(lines(dumpLine("id1", "One")))
		fac.Get(0).Exit(0)
		fac.Get(1).BufferStdout(lines(flatLine("id1", "One")))
		fac.Get(1).Exit(0)
	})
	infos, err := CollectInfo(context.Background(), l, d, playlistURL)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "id1", infos[0].ID)
}

func TestCollectInfoError(t *testing.T) {
	l := loop.New()
	fac := &processtest.Factory{}
	d := NewInfoDownloader(l, fac.New, helper.Config{})
	afterStart(l, func() {
		fac.Get(1).Exit(1)
	})
	_, err := CollectInfo(context.Background(), l, d, playlistURL)
	assert.ErrorIs(t, err, ErrPlaylistIllFormed)
}

func TestCollectInfoCancelled(t *testing.T) {
	l := loop.New()
	fac := &processtest.Factory{}
	d := NewInfoDownloader(l, fac.New, helper.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CollectInfo(ctx, l, d, playlistURL)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.False(t, d.IsRunning())
	assert.Equal(t, 1, fac.Get(0).Kills)
}

func TestRunCleanCache(t *testing.T) {
	l := loop.New()
	fac := &processtest.Factory{}
	c := NewCleanCache(l, fac.New, helper.Config{})
	afterStart(l, func() { fac.Last().Exit(0) })
	require.NoError(t, RunCleanCache(context.Background(), l, c))
	assert.True(t, c.IsCleaned())
}

func TestRunUpgrade(t *testing.T) {
	l := loop.New()
	fac := &processtest.Factory{}
	u := NewUpgrader(l, fac.New, helper.Config{})
	afterStart(l, func() { fac.Last().Exit(1) })
	assert.Error(t, RunUpgrade(context.Background(), l, u))
}

func TestCollectExtractors(t *testing.T) {
	l := loop.New()
	fac := &processtest.Factory{}
	c := NewExtractorListCollector(l, fac.New, helper.Config{})
	afterStart(l, func() {
		fac.Find("--list-extractors").BufferStdout("youtube")
		fac.Find("--list-extractors").Exit(0)
		fac.Find("--extractor-descriptions").BufferStdout("YouTube.com")
		fac.Find("--extractor-descriptions").Exit(0)
	})
	names, descs, err := CollectExtractors(context.Background(), l, c)
	require.NoError(t, err)
	assert.Equal(t, []string{"youtube"}, names)
	assert.Equal(t, []string{"YouTube.com"}, descs)
}
