package stream

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanq16/streamz/internal/helper"
	"github.com/tanq16/streamz/internal/loop"
	"github.com/tanq16/streamz/internal/process/processtest"
)

const playlistURL = "https://www.youtube.com/playlist?list=PL123"

type infoRecorder struct {
	collected [][]Info
	errs      []error
}

func newTestInfoDownloader(t *testing.T, cfg helper.Config) (*InfoDownloader, *loop.Loop, *processtest.Factory, *infoRecorder) {
	t.Helper()
	l := loop.New()
	fac := &processtest.Factory{}
	d := NewInfoDownloader(l, fac.New, cfg)
	rec := &infoRecorder{}
	d.CollectedFunc = func(infos []Info) { rec.collected = append(rec.collected, infos) }
	d.ErrorFunc = func(err error) { rec.errs = append(rec.errs, err) }
	return d, l, fac, rec
}

func dumpLine(id, title string) string {
	return fmt.Sprintf(`{"id":%q,"title":%q,"ext":"mp4","format_id":"18","webpage_url":"https://www.youtube.com/watch?v=%s","formats":[{"format_id":"18","ext":"mp4","acodec":"mp4a","vcodec":"avc1","width":640,"height":360}]}`, id, title, id)
}

func flatLine(id, title string) string {
	return fmt.Sprintf(`{"_type":"url","id":%q,"ie_key":"Youtube","title":%q,"url":%q}`, id, title, id)
}

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func countWithArg(fac *processtest.Factory, arg string) int {
	n := 0
	for i := 0; i < fac.Count(); i++ {
		for _, a := range fac.Get(i).Args {
			if a == arg {
				n++
				break
			}
		}
	}
	return n
}

func TestInfoDownloaderArgs(t *testing.T) {
	d, l, fac, _ := newTestInfoDownloader(t, helper.Config{UserAgent: "agent/1"})
	d.RunAsync(playlistURL)
	l.Drain()

	require.Equal(t, 2, fac.Count())
	assert.True(t, d.IsRunning())
	assert.Equal(t, "yt-dlp", fac.Get(0).Program)
	assert.Equal(t, []string{
		"--dump-json", "--yes-playlist", "--no-color", "--no-check-certificate",
		"--ignore-config", "--ignore-errors", "--user-agent", "agent/1", "--", playlistURL,
	}, fac.Get(0).Args)
	assert.Equal(t, []string{
		"--dump-json", "--flat-playlist", "--yes-playlist", "--no-color", "--no-check-certificate",
		"--ignore-config", "--ignore-errors", "--user-agent", "agent/1", "--", playlistURL,
	}, fac.Get(1).Args)
}

func TestInfoDownloaderMergesInPlaylistOrder(t *testing.T) {
	d, l, fac, rec := newTestInfoDownloader(t, helper.Config{})
	d.RunAsync(playlistURL)
	l.Drain()
	dump, flat := fac.Get(0), fac.Get(1)

	dump.BufferStdout(lines(dumpLine("id1", "One"), dumpLine("id2", "Two"), dumpLine("id3", "Three")))
	dump.BufferStderr("ERROR: id4: Video unavailable\n")
	dump.Exit(1)
	l.Drain()
	assert.Empty(t, rec.collected, "waits for the flat listing")

	flat.BufferStdout(lines(flatLine("id2", "Two"), flatLine("id1", "One"), flatLine("id4", "Four"), flatLine("id3", "Three")))
	flat.Exit(0)
	l.Drain()

	require.Empty(t, rec.errs)
	require.Len(t, rec.collected, 1)
	infos := rec.collected[0]
	require.Len(t, infos, 4)

	var ids []string
	for i, info := range infos {
		ids = append(ids, info.ID)
		assert.Equal(t, i+1, info.PlaylistIndex)
	}
	assert.Equal(t, []string{"id2", "id1", "id4", "id3"}, ids)

	assert.True(t, infos[0].IsAvailable())
	assert.Equal(t, "Two", infos[0].Title())
	assert.Equal(t, ErrorUnavailable, infos[2].Error())
	assert.Empty(t, infos[2].Formats)
	assert.Equal(t, "Four", infos[2].Title(), "title falls back to the flat entry")
	assert.Equal(t, "id4", infos[2].WebpageURL)
	assert.Equal(t, 0, countWithArg(fac, "--rm-cache-dir"))
	assert.False(t, d.IsRunning())
}

func TestInfoDownloaderSynthesizesMissingItems(t *testing.T) {
	d, l, fac, rec := newTestInfoDownloader(t, helper.Config{})
	d.RunAsync(playlistURL)
	l.Drain()
	dump, flat := fac.Get(0), fac.Get(1)

	flat.BufferStdout(lines(flatLine("a", "A"), flatLine("ghost", "Ghost")))
	flat.Exit(0)
	l.Drain()
	assert.Empty(t, rec.collected, "waits for the dump")

	dump.BufferStdout(lines(dumpLine("a", "A")))
	dump.Exit(0)
	l.Drain()

	require.Len(t, rec.collected, 1)
	infos := rec.collected[0]
	require.Len(t, infos, 2)
	assert.Equal(t, "ghost", infos[1].ID)
	assert.Equal(t, ErrorUnavailable, infos[1].Error())
	assert.Equal(t, 2, infos[1].PlaylistIndex)
}

func TestInfoDownloaderSingleVideo(t *testing.T) {
	d, l, fac, rec := newTestInfoDownloader(t, helper.Config{})
	d.RunAsync("https://www.youtube.com/watch?v=solo")
	l.Drain()
	fac.Get(0).BufferStdout(lines(dumpLine("solo", "Solo")))
	fac.Get(0).Exit(0)
	fac.Get(1).BufferStdout(lines(flatLine("solo", "Solo")))
	fac.Get(1).Exit(0)
	l.Drain()

	require.Len(t, rec.collected, 1)
	require.Len(t, rec.collected[0], 1)
	assert.Equal(t, 1, rec.collected[0][0].PlaylistIndex)
}

func TestInfoDownloaderRetriesOnceAfterCacheClean(t *testing.T) {
	d, l, fac, rec := newTestInfoDownloader(t, helper.Config{})
	d.RunAsync(playlistURL)
	l.Drain()
	require.Equal(t, 2, fac.Count())

	fac.Get(0).Exit(2)
	l.Drain()
	assert.Empty(t, rec.errs)
	assert.Equal(t, 1, fac.Get(1).Kills, "flat listing is stopped before cleaning")

	clean := fac.Last()
	assert.Equal(t, []string{"--no-color", "--rm-cache-dir"}, clean.Args)
	clean.Exit(0)
	l.Drain()

	require.Equal(t, 5, fac.Count(), "dump and flat listing are relaunched")
	assert.Equal(t, playlistURL, fac.Get(3).Args[len(fac.Get(3).Args)-1])
	assert.True(t, d.IsRunning())

	fac.Get(3).Exit(2)
	fac.Get(4).BufferStdout(lines(flatLine("id1", "One")))
	fac.Get(4).Exit(0)
	l.Drain()

	assert.Equal(t, 1, countWithArg(fac, "--rm-cache-dir"), "the cache is cleaned once")
	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], ErrJSONParse)
	assert.Empty(t, rec.collected)
}

func TestInfoDownloaderRunningDuringCacheClean(t *testing.T) {
	d, l, fac, _ := newTestInfoDownloader(t, helper.Config{})
	d.RunAsync(playlistURL)
	l.Drain()
	fac.Get(0).Exit(1)
	l.Drain()

	require.Equal(t, 3, fac.Count())
	assert.True(t, d.IsRunning(), "the session stays busy while the cache is cleaned")

	d.Stop()
	assert.False(t, d.IsRunning())
	fac.Last().Exit(0)
	l.Drain()
	assert.Equal(t, 3, fac.Count(), "a stopped session is not relaunched")
	assert.False(t, d.IsRunning())
}

func TestInfoDownloaderPlaylistErrorsSkipRetry(t *testing.T) {
	d, l, fac, rec := newTestInfoDownloader(t, helper.Config{})
	d.RunAsync(playlistURL)
	l.Drain()

	fac.Get(0).BufferStdout(lines(dumpLine("id1", "One")))
	fac.Get(0).BufferStderr("ERROR: id2: Private video\n")
	fac.Get(0).Exit(1)
	fac.Get(1).BufferStdout(lines(flatLine("id1", "One"), flatLine("id2", "Two")))
	fac.Get(1).Exit(0)
	l.Drain()

	assert.Equal(t, 0, countWithArg(fac, "--rm-cache-dir"))
	require.Len(t, rec.collected, 1)
	assert.Len(t, rec.collected[0], 2)
}

func TestInfoDownloaderRetryAfterCleanFailure(t *testing.T) {
	d, l, fac, rec := newTestInfoDownloader(t, helper.Config{})
	d.RunAsync(playlistURL)
	l.Drain()
	fac.Get(0).Exit(1)
	l.Drain()

	fac.Last().Exit(3)
	l.Drain()
	require.Equal(t, 5, fac.Count(), "a failed clean still retries")

	fac.Get(3).BufferStdout(lines(dumpLine("id1", "One")))
	fac.Get(3).Exit(0)
	fac.Get(4).BufferStdout(lines(flatLine("id1", "One")))
	fac.Get(4).Exit(0)
	l.Drain()
	assert.Empty(t, rec.errs)
	require.Len(t, rec.collected, 1)
}

func TestInfoDownloaderStopSuppressesEvents(t *testing.T) {
	d, l, fac, rec := newTestInfoDownloader(t, helper.Config{})
	d.RunAsync(playlistURL)
	l.Drain()
	dump, flat := fac.Get(0), fac.Get(1)

	d.Stop()
	assert.False(t, d.IsRunning())
	assert.Equal(t, 1, dump.Kills)
	assert.Equal(t, 1, flat.Kills)

	dump.BufferStdout(lines(dumpLine("id1", "One")))
	dump.Exit(0)
	flat.BufferStdout(lines(flatLine("id1", "One")))
	flat.Exit(0)
	l.Drain()

	assert.Empty(t, rec.collected)
	assert.Empty(t, rec.errs)
}

func TestInfoDownloaderStopDuringCacheClean(t *testing.T) {
	d, l, fac, rec := newTestInfoDownloader(t, helper.Config{})
	d.RunAsync(playlistURL)
	l.Drain()
	fac.Get(0).Exit(2)
	l.Drain()

	d.Stop()
	fac.Last().Exit(0)
	l.Drain()

	assert.Equal(t, 3, fac.Count(), "no retry after stop")
	assert.Empty(t, rec.errs)
}

func TestInfoDownloaderRunAsyncResets(t *testing.T) {
	d, l, fac, rec := newTestInfoDownloader(t, helper.Config{})
	d.RunAsync(playlistURL)
	l.Drain()
	d.Stop()
	l.Drain()

	d.RunAsync(playlistURL)
	l.Drain()
	require.Equal(t, 4, fac.Count())
	fac.Get(2).BufferStdout(lines(dumpLine("id1", "One")))
	fac.Get(2).Exit(0)
	fac.Get(3).BufferStdout(lines(flatLine("id1", "One")))
	fac.Get(3).Exit(0)
	l.Drain()
	assert.Len(t, rec.collected, 1)
}

func TestInfoDownloaderErrors(t *testing.T) {
	tests := []struct {
		name   string
		script func(dump, flat *processtest.Fake)
		want   error
	}{
		{
			name:   "dump crashed",
			script: func(dump, flat *processtest.Fake) { dump.Crash() },
			want:   ErrProcessCrash,
		},
		{
			name:   "flat listing crashed",
			script: func(dump, flat *processtest.Fake) { flat.Crash() },
			want:   ErrProcessCrash,
		},
		{
			name:   "flat listing ill-formed",
			script: func(dump, flat *processtest.Fake) { flat.Exit(1) },
			want:   ErrPlaylistIllFormed,
		},
		{
			name: "flat listing empty",
			script: func(dump, flat *processtest.Fake) {
				flat.BufferStdout("garbage\n")
				flat.Exit(0)
			},
			want: ErrNoData,
		},
		{
			name:   "dump empty",
			script: func(dump, flat *processtest.Fake) { dump.Exit(0) },
			want:   ErrJSONParse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, l, fac, rec := newTestInfoDownloader(t, helper.Config{})
			d.RunAsync(playlistURL)
			l.Drain()
			tt.script(fac.Get(0), fac.Get(1))
			l.Drain()
			require.Len(t, rec.errs, 1)
			assert.ErrorIs(t, rec.errs[0], tt.want)
			assert.Empty(t, rec.collected)
		})
	}
}

func TestInfoDownloaderLaunchFailureReportedOnce(t *testing.T) {
	l := loop.New()
	fac := &processtest.Factory{FailStarts: true}
	d := NewInfoDownloader(l, fac.New, helper.Config{})
	var errs []error
	d.ErrorFunc = func(err error) { errs = append(errs, err) }
	d.RunAsync(playlistURL)
	l.Drain()

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrProcessLaunch)
	assert.False(t, d.IsRunning())
}
