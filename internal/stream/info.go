package stream

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// InfoError is the per-item availability state. It never fails a whole
// playlist.
type InfoError int

const (
	NoError InfoError = iota
	ErrorJSONFormat
	ErrorUnavailable
)

func (e InfoError) String() string {
	switch e {
	case ErrorJSONFormat:
		return "json-format"
	case ErrorUnavailable:
		return "unavailable"
	default:
		return "ok"
	}
}

const (
	legalChars    = "-+' @()[]{}°#,.&"
	unknownSuffix = "???"
)

var underscoreRun = regexp.MustCompile(`_+`)

// Info is the metadata of one item, as dumped by the helper. Title, suffix
// and format id have user overrides layered over the dumped defaults.
type Info struct {
	ID              string   `json:"id"`
	Filename        string   `json:"_filename,omitempty"`
	WebpageURL      string   `json:"webpage_url,omitempty"`
	FullTitle       string   `json:"fulltitle,omitempty"`
	DefaultTitle    string   `json:"title,omitempty"`
	DefaultSuffix   string   `json:"ext,omitempty"`
	Description     string   `json:"description,omitempty"`
	Thumbnail       string   `json:"thumbnail,omitempty"`
	Extractor       string   `json:"extractor,omitempty"`
	ExtractorKey    string   `json:"extractor_key,omitempty"`
	DefaultFormatID FormatID `json:"format_id"`
	Formats         []Format `json:"formats,omitempty"`
	Playlist        string   `json:"playlist,omitempty"`
	PlaylistIndex   int      `json:"playlist_index,omitempty"`

	userTitle    string
	userSuffix   string
	userFormatID FormatID
	err          InfoError
}

func (i *Info) Error() InfoError {
	return i.err
}

func (i *Info) SetError(err InfoError) {
	i.err = err
}

func (i *Info) IsAvailable() bool {
	return i.err == NoError
}

func (i *Info) Title() string {
	if i.userTitle == "" {
		return i.DefaultTitle
	}
	return i.userTitle
}

// SetTitle overrides the title. Setting the default clears the override.
func (i *Info) SetTitle(title string) {
	if title == i.DefaultTitle {
		title = ""
	}
	i.userTitle = title
}

func (i *Info) Suffix() string {
	if i.userSuffix == "" {
		return i.SuffixFor(i.FormatID())
	}
	return i.userSuffix
}

func (i *Info) SetSuffix(suffix string) {
	if suffix == i.DefaultSuffix {
		suffix = ""
	}
	i.userSuffix = suffix
}

func (i *Info) FormatID() FormatID {
	if i.userFormatID.IsEmpty() {
		return i.DefaultFormatID
	}
	return i.userFormatID
}

// SetFormatID selects a format and drops any suffix override, since the
// suffix follows the selected format.
func (i *Info) SetFormatID(id FormatID) {
	i.userSuffix = ""
	if id.Equal(i.DefaultFormatID) {
		id = FormatID{}
	}
	i.userFormatID = id
}

// SuffixFor returns the file extension the helper produces for id: the
// extension of the first video format in the selector, else the last
// matching audio one.
func (i *Info) SuffixFor(id FormatID) string {
	if i.DefaultFormatID.IsEmpty() {
		return unknownSuffix
	}
	if i.DefaultFormatID.Equal(id) {
		return i.DefaultSuffix
	}
	suffix := i.DefaultSuffix
	for _, part := range id.CompoundIDs() {
		for _, f := range i.Formats {
			if !part.Equal(f.ID) {
				continue
			}
			if f.HasVideo() {
				return f.Ext
			}
			suffix = f.Ext
		}
	}
	return suffix
}

func (i *Info) FileBaseName() string {
	return cleanFileName(i.Title())
}

func (i *Info) FullFileName() string {
	if suffix := i.Suffix(); suffix != "" {
		return fmt.Sprintf("%s.%s", i.FileBaseName(), suffix)
	}
	return i.FileBaseName()
}

// GuessFullSize estimates the download size of the selected format.
func (i *Info) GuessFullSize() int64 {
	return i.GuessFullSizeFor(i.FormatID())
}

// GuessFullSizeFor sums the known sizes of every token of id. It returns -1
// for an empty id.
func (i *Info) GuessFullSizeFor(id FormatID) int64 {
	if id.IsEmpty() {
		return -1
	}
	sizes := make(map[string]int64, len(i.Formats))
	for _, f := range i.Formats {
		sizes[f.ID.String()] = f.FileSize
	}
	var total int64
	for _, part := range id.CompoundIDs() {
		total += sizes[part.String()]
	}
	return total
}

// FormatString describes every format of the current selection.
func (i *Info) FormatString() string {
	var parts []string
	for _, part := range i.FormatID().CompoundIDs() {
		for _, f := range i.Formats {
			if part.Equal(f.ID) {
				parts = append(parts, f.String())
			}
		}
	}
	return strings.Join(parts, " ")
}

// DefaultFormats lists the formats carrying both video and audio, without
// duplicates, by ascending resolution and then description.
func (i *Info) DefaultFormats() []Format {
	byKey := make(map[string]Format)
	for _, f := range i.Formats {
		if f.HasVideo() && f.HasAudio() {
			byKey[fmt.Sprintf("%016d %016d %s", f.Width, f.Height, f.String())] = f
		}
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Format, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	return out
}

func (i *Info) AudioFormats() []Format {
	var out []Format
	for _, f := range i.Formats {
		if !f.HasVideo() && f.HasAudio() {
			out = append(out, f)
		}
	}
	return out
}

func (i *Info) VideoFormats() []Format {
	var out []Format
	for _, f := range i.Formats {
		if f.HasVideo() && !f.HasAudio() {
			out = append(out, f)
		}
	}
	return out
}

func cleanFileName(name string) string {
	name = simplify(name)
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || strings.ContainsRune(legalChars, r):
			return r
		case r == '"':
			return '\''
		default:
			return '_'
		}
	}, name)
	return simplify(underscoreRun.ReplaceAllString(cleaned, "_"))
}

// simplify trims s and collapses inner whitespace runs to one space.
func simplify(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
