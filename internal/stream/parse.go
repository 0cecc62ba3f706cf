package stream

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	errorHeader        = "ERROR:"
	errorHeaderColor   = "\033[0;31mERROR:\033[0m"
	warningHeader      = "WARNING:"
	warningHeaderColor = "\033[0;33mWARNING:\033[0m"
)

type dumpRecord struct {
	ID            string       `json:"id"`
	Filename      string       `json:"_filename"`
	WebpageURL    string       `json:"webpage_url"`
	FullTitle     string       `json:"fulltitle"`
	Title         string       `json:"title"`
	Ext           string       `json:"ext"`
	Description   string       `json:"description"`
	Thumbnail     string       `json:"thumbnail"`
	Extractor     string       `json:"extractor"`
	ExtractorKey  string       `json:"extractor_key"`
	FormatID      string       `json:"format_id"`
	Formats       []dumpFormat `json:"formats"`
	Playlist      text         `json:"playlist"`
	PlaylistIndex number       `json:"playlist_index"`
}

type dumpFormat struct {
	FormatID   string `json:"format_id"`
	Ext        string `json:"ext"`
	FormatNote string `json:"format_note"`
	Filesize   number `json:"filesize"`
	ACodec     string `json:"acodec"`
	ABR        number `json:"abr"`
	ASR        number `json:"asr"`
	VCodec     string `json:"vcodec"`
	Width      number `json:"width"`
	Height     number `json:"height"`
	FPS        number `json:"fps"`
	TBR        number `json:"tbr"`
}

type flatItem struct {
	Type  string `json:"_type"`
	ID    string `json:"id"`
	IEKey string `json:"ie_key"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// number accepts JSON numbers, numeric strings and null. Fractions are
// truncated.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = number(v)
	return nil
}

func (n number) Int() int {
	return int(n)
}

// text accepts JSON strings, numbers and null.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = text(s)
		return nil
	}
	*t = text(strings.TrimSpace(string(data)))
	return nil
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(line) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}

// parseDumpMap merges every stdout record, then every stderr record, keyed
// by item id. Later records replace earlier ones.
func parseDumpMap(stdout, stderr []byte) map[string]Info {
	dump := make(map[string]Info)
	for _, line := range splitLines(stdout) {
		info := parseDumpItem(line)
		dump[info.ID] = info
	}
	for _, line := range splitLines(stderr) {
		info, ok := parseDumpError(string(line))
		if !ok {
			log.Debug().Str("op", "stream/parse").Msgf("dump stderr: %s", line)
			continue
		}
		dump[info.ID] = info
	}
	return dump
}

func parseDumpItem(line []byte) Info {
	var rec dumpRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		log.Debug().Str("op", "stream/parse").Err(err).Msg("malformed dump record")
		return Info{err: ErrorJSONFormat}
	}
	info := Info{
		ID:              rec.ID,
		Filename:        rec.Filename,
		WebpageURL:      rec.WebpageURL,
		FullTitle:       rec.FullTitle,
		DefaultTitle:    rec.Title,
		DefaultSuffix:   rec.Ext,
		Description:     rec.Description,
		Thumbnail:       rec.Thumbnail,
		Extractor:       rec.Extractor,
		ExtractorKey:    rec.ExtractorKey,
		DefaultFormatID: ParseFormatID(rec.FormatID),
		Playlist:        string(rec.Playlist),
		PlaylistIndex:   rec.PlaylistIndex.Int(),
	}
	for _, f := range rec.Formats {
		info.Formats = append(info.Formats, Format{
			ID:       ParseFormatID(f.FormatID),
			Ext:      f.Ext,
			Note:     f.FormatNote,
			FileSize: int64(f.Filesize),
			ACodec:   f.ACodec,
			ABR:      f.ABR.Int(),
			ASR:      f.ASR.Int(),
			VCodec:   f.VCodec,
			Width:    f.Width.Int(),
			Height:   f.Height.Int(),
			FPS:      f.FPS.Int(),
			TBR:      f.TBR.Int(),
		})
	}
	return info
}

// parseDumpError reads "ERROR: <id>: <message>" into an unavailable item.
func parseDumpError(line string) (Info, bool) {
	line, ok := stripHeader(line, errorHeader, errorHeaderColor)
	if !ok {
		return Info{}, false
	}
	return Info{ID: streamIDFromError(errorHeader + line), err: ErrorUnavailable}, true
}

// streamIDFromError returns the second colon-delimited token, so
// "ERROR: 0123456789a: YouTube said: Unable to extract video data" gives
// "0123456789a".
func streamIDFromError(line string) string {
	var values []string
	for _, v := range strings.Split(line, ":") {
		if v != "" {
			values = append(values, v)
		}
	}
	if len(values) > 1 {
		return strings.TrimSpace(values[1])
	}
	return ""
}

func parseFlatList(stdout, stderr []byte) []flatItem {
	var list []flatItem
	for _, line := range splitLines(stdout) {
		var item flatItem
		if err := json.Unmarshal(line, &item); err != nil {
			log.Debug().Str("op", "stream/parse").Err(err).Msg("skipping malformed playlist entry")
			continue
		}
		if item.ID != "" {
			list = append(list, item)
		}
	}
	for _, line := range splitLines(stderr) {
		log.Debug().Str("op", "stream/parse").Msgf("flat stderr: %s", line)
	}
	return list
}

// stripHeader removes a plain or coloured message header, case-insensitively.
func stripHeader(line string, headers ...string) (string, bool) {
	for _, h := range headers {
		if len(line) >= len(h) && strings.EqualFold(line[:len(h)], h) {
			return line[len(h):], true
		}
	}
	return line, false
}

func hasHeader(line string, headers ...string) bool {
	_, ok := stripHeader(line, headers...)
	return ok
}
