package stream

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tanq16/streamz/internal/utils"
)

const codecNone = "none"

// Format is one entry of the helper's "formats" array.
type Format struct {
	ID       FormatID `json:"format_id"`
	Ext      string   `json:"ext"`
	Note     string   `json:"format_note,omitempty"`
	FileSize int64    `json:"filesize,omitempty"`
	ACodec   string   `json:"acodec"`
	ABR      int      `json:"abr,omitempty"`
	ASR      int      `json:"asr,omitempty"`
	VCodec   string   `json:"vcodec"`
	Width    int      `json:"width,omitempty"`
	Height   int      `json:"height,omitempty"`
	FPS      int      `json:"fps,omitempty"`
	TBR      int      `json:"tbr,omitempty"`
}

func (f Format) HasVideo() bool {
	return f.VCodec != codecNone
}

func (f Format) HasAudio() bool {
	return f.ACodec != codecNone
}

func (f Format) String() string {
	switch {
	case f.HasVideo() && f.HasAudio():
		var sb strings.Builder
		fmt.Fprintf(&sb, "Video %s x %s", dimension(f.Width), dimension(f.Height))
		if f.Note != "" {
			fmt.Fprintf(&sb, " (%s)", f.Note)
		}
		if f.FileSize > 0 {
			fmt.Fprintf(&sb, ", size: %s", utils.FormatBytes(f.FileSize))
		}
		return sb.String()
	case f.HasVideo():
		return fmt.Sprintf("[%s] %d x %d (%d fps) @ %d KBit/s, codec: %s",
			strings.ToUpper(f.Ext), f.Width, f.Height, f.FPS, f.TBR, f.VCodec)
	case f.HasAudio():
		return fmt.Sprintf("[%s] %d Hz @ %d KBit/s, codec: %s",
			strings.ToUpper(f.Ext), f.ASR, f.ABR, f.ACodec)
	}
	return ""
}

func dimension(v int) string {
	if v <= 0 {
		return "?"
	}
	return strconv.Itoa(v)
}
