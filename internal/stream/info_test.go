package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInfo() Info {
	return Info{
		ID:              "abc",
		DefaultTitle:    "My Video",
		DefaultSuffix:   "mp4",
		DefaultFormatID: ParseFormatID("22"),
		Formats: []Format{
			{ID: ParseFormatID("18"), Ext: "mp4", ACodec: "mp4a", VCodec: "avc1", Width: 640, Height: 360, FileSize: 1000},
			{ID: ParseFormatID("22"), Ext: "mp4", ACodec: "mp4a", VCodec: "avc1", Width: 1280, Height: 720, FileSize: 5000},
			{ID: ParseFormatID("137"), Ext: "mp4", ACodec: "none", VCodec: "avc1", Width: 1920, Height: 1080, FPS: 30, TBR: 4000, FileSize: 9000},
			{ID: ParseFormatID("248"), Ext: "webm", ACodec: "none", VCodec: "vp9", Width: 1920, Height: 1080, FPS: 30, TBR: 3000, FileSize: 8000},
			{ID: ParseFormatID("140"), Ext: "m4a", ACodec: "mp4a", VCodec: "none", ASR: 44100, ABR: 128, FileSize: 700},
			{ID: ParseFormatID("251"), Ext: "webm", ACodec: "opus", VCodec: "none", ASR: 48000, ABR: 160, FileSize: 800},
		},
	}
}

func TestFormatString(t *testing.T) {
	tests := []struct {
		name string
		f    Format
		want string
	}{
		{
			name: "video and audio",
			f:    Format{Ext: "mp4", ACodec: "mp4a", VCodec: "avc1", Width: 1280, Height: 720, Note: "720p"},
			want: "Video 1280 x 720 (720p)",
		},
		{
			name: "unknown dimensions with size",
			f:    Format{Ext: "mp4", ACodec: "mp4a", VCodec: "avc1", FileSize: 1048576},
			want: "Video ? x ?, size: 1.0 MiB",
		},
		{
			name: "video only",
			f:    Format{Ext: "webm", ACodec: "none", VCodec: "vp9", Width: 1920, Height: 1080, FPS: 60, TBR: 4500},
			want: "[WEBM] 1920 x 1080 (60 fps) @ 4500 KBit/s, codec: vp9",
		},
		{
			name: "audio only",
			f:    Format{Ext: "m4a", ACodec: "mp4a.40.2", VCodec: "none", ASR: 44100, ABR: 128},
			want: "[M4A] 44100 Hz @ 128 KBit/s, codec: mp4a.40.2",
		},
		{
			name: "neither",
			f:    Format{ACodec: "none", VCodec: "none"},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.String())
		})
	}
}

func TestFormatMediaKinds(t *testing.T) {
	info := sampleInfo()
	for _, f := range info.AudioFormats() {
		assert.True(t, f.HasAudio())
		assert.False(t, f.HasVideo())
	}
	for _, f := range info.VideoFormats() {
		assert.True(t, f.HasVideo())
		assert.False(t, f.HasAudio())
	}
	assert.Len(t, info.AudioFormats(), 2)
	assert.Len(t, info.VideoFormats(), 2)
}

func TestInfoOverrides(t *testing.T) {
	info := sampleInfo()

	info.SetTitle("Other")
	assert.Equal(t, "Other", info.Title())
	info.SetTitle("My Video")
	assert.Equal(t, "My Video", info.Title())
	assert.Empty(t, info.userTitle)

	info.SetSuffix("mkv")
	assert.Equal(t, "mkv", info.Suffix())
	info.SetSuffix("mp4")
	assert.Empty(t, info.userSuffix)

	info.SetSuffix("mkv")
	info.SetFormatID(ParseFormatID("137+140"))
	assert.Empty(t, info.userSuffix, "selecting a format drops the suffix override")
	assert.Equal(t, "137+140", info.FormatID().String())

	info.SetFormatID(ParseFormatID("22"))
	assert.True(t, info.userFormatID.IsEmpty())
	assert.Equal(t, "22", info.FormatID().String())
}

func TestInfoSuffixFor(t *testing.T) {
	info := sampleInfo()
	assert.Equal(t, "mp4", info.SuffixFor(ParseFormatID("22")))
	assert.Equal(t, "webm", info.SuffixFor(ParseFormatID("248+140")))
	assert.Equal(t, "m4a", info.SuffixFor(ParseFormatID("140")))
	assert.Equal(t, "webm", info.SuffixFor(ParseFormatID("140+251")))
	assert.Equal(t, "mp4", info.SuffixFor(ParseFormatID("999")))

	empty := Info{}
	assert.Equal(t, "???", empty.SuffixFor(ParseFormatID("22")))
}

func TestInfoGuessFullSize(t *testing.T) {
	info := sampleInfo()
	assert.Equal(t, int64(5000), info.GuessFullSize())
	assert.Equal(t, int64(9700), info.GuessFullSizeFor(ParseFormatID("137+140")))
	assert.Equal(t, int64(700), info.GuessFullSizeFor(ParseFormatID("999+140")))
	assert.Equal(t, int64(-1), info.GuessFullSizeFor(FormatID{}))
}

func TestInfoFileNames(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{title: "My Video", want: "My Video"},
		{title: `  He said "hi"  `, want: "He said 'hi'"},
		{title: "a/b\\c:d*e", want: "a_b_c_d_e"},
		{title: "a//??b", want: "a_b"},
		{title: "Café (live) [4K] #1, part 2 & more", want: "Café (live) [4K] #1, part 2 & more"},
		{title: "tabs\tand\nnewlines", want: "tabs and newlines"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			info := Info{DefaultTitle: tt.title}
			assert.Equal(t, tt.want, info.FileBaseName())
		})
	}

	info := sampleInfo()
	assert.Equal(t, "My Video.mp4", info.FullFileName())
	info.SetSuffix("")
	info.DefaultSuffix = ""
	info.DefaultFormatID = FormatID{}
	assert.Equal(t, "My Video.???", info.FullFileName())
}

func TestInfoFormatString(t *testing.T) {
	info := sampleInfo()
	info.SetFormatID(ParseFormatID("137+140"))
	assert.Equal(t,
		"[MP4] 1920 x 1080 (30 fps) @ 4000 KBit/s, codec: avc1 [M4A] 44100 Hz @ 128 KBit/s, codec: mp4a",
		info.FormatString())
}

func TestInfoDefaultFormats(t *testing.T) {
	info := sampleInfo()
	info.Formats = append(info.Formats, info.Formats[0])
	formats := info.DefaultFormats()
	require.Len(t, formats, 2)
	assert.Equal(t, "18", formats[0].ID.String())
	assert.Equal(t, "22", formats[1].ID.String())
}

func TestInfoAvailability(t *testing.T) {
	info := sampleInfo()
	assert.True(t, info.IsAvailable())
	info.SetError(ErrorUnavailable)
	assert.False(t, info.IsAvailable())
	assert.Equal(t, ErrorUnavailable, info.Error())
	assert.Equal(t, "unavailable", info.Error().String())
}
