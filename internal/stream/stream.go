package stream

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tanq16/streamz/internal/helper"
	"github.com/tanq16/streamz/internal/loop"
	"github.com/tanq16/streamz/internal/process"
	"github.com/tanq16/streamz/internal/utils"
)

const (
	Website = "http://ytdl-org.github.io/youtube-dl/"

	downloadHeader      = "[download]"
	nextSectionMarker   = "Destination:"
	mergeWarning        = "Requested formats are incompatible for merge and will be merged into mkv."
	mergeFallbackSuffix = "mkv"
	maxStderrTail       = 8
)

var mergeFormats = map[string]bool{
	"mkv":  true,
	"mp4":  true,
	"ogg":  true,
	"webm": true,
	"flv":  true,
}

// Stream downloads one item with the helper and reports byte progress.
//
// A download made of several formats (video+audio) arrives as consecutive
// sections, each announced by a "Destination:" line. Received bytes are the
// completed sections plus the current one.
type Stream struct {
	loop       *loop.Loop
	newProcess process.Factory
	cfg        helper.Config
	proc       process.Process
	lineBuf    []byte
	stderrBuf  []byte
	stderrTail []string

	url              string
	outputPath       string
	referringPage    string
	selectedFormatID FormatID

	bytesReceived               int64
	bytesReceivedCurrentSection int64
	bytesTotal                  int64
	bytesTotalCurrentSection    int64

	fileBaseName  string
	fileExtension string

	ProgressFunc func(received, total int64)
	FinishedFunc func()
	ErrorFunc    func(err error)
	// MetadataFunc fires when the output file name changes, like the helper
	// switching the container to mkv.
	MetadataFunc func()
}

func NewStream(l *loop.Loop, newProcess process.Factory, cfg helper.Config) *Stream {
	return &Stream{loop: l, newProcess: newProcess, cfg: cfg}
}

func (s *Stream) Clear() {
	s.url = ""
	s.outputPath = ""
	s.selectedFormatID = FormatID{}
	s.bytesReceived = 0
	s.bytesReceivedCurrentSection = 0
	s.bytesTotal = 0
	s.bytesTotalCurrentSection = 0
	s.fileBaseName = ""
	s.fileExtension = ""
}

// IsEmpty reports whether no format is selected.
func (s *Stream) IsEmpty() bool {
	return s.selectedFormatID.IsEmpty()
}

// InitializeWithInfo selects the item's format and seeds the size estimate.
func (s *Stream) InitializeWithInfo(info *Info) {
	s.selectedFormatID = info.FormatID()
	s.bytesReceived = 0
	s.bytesReceivedCurrentSection = 0
	s.bytesTotal = 0
	s.bytesTotalCurrentSection = info.GuessFullSize()
	s.fileBaseName = info.FileBaseName()
	s.fileExtension = info.Suffix()
}

func (s *Stream) URL() string {
	return s.url
}

func (s *Stream) SetURL(url string) {
	s.url = url
}

func (s *Stream) OutputPath() string {
	return s.outputPath
}

func (s *Stream) SetOutputPath(outputPath string) {
	s.outputPath = outputPath
}

func (s *Stream) ReferringPage() string {
	return s.referringPage
}

func (s *Stream) SetReferringPage(referringPage string) {
	s.referringPage = referringPage
}

// SelectedFormatID is the helper selector. The video token comes first:
// "299+251", not "251+299".
func (s *Stream) SelectedFormatID() FormatID {
	return s.selectedFormatID
}

func (s *Stream) SetSelectedFormatID(id FormatID) {
	s.selectedFormatID = id
}

func (s *Stream) FileSizeInBytes() int64 {
	return s.total()
}

func (s *Stream) SetFileSizeInBytes(size int64) {
	s.bytesTotal = size
}

func (s *Stream) FileName() string {
	if s.fileExtension == "" {
		return s.fileBaseName
	}
	return fmt.Sprintf("%s.%s", s.fileBaseName, s.fileExtension)
}

func (s *Stream) FileExtension() string {
	return s.fileExtension
}

func (s *Stream) IsRunning() bool {
	return running(s.proc)
}

func (s *Stream) args() []string {
	args := []string{
		"--output", s.outputPath,
		"--no-playlist",
		"--no-color",
		"--no-check-certificate",
		"--no-overwrites",
		"--no-continue",
		"--no-part",
		"--no-mtime",
		"--no-cache-dir",
		"--restrict-filenames",
		"--ignore-config",
		"--format", s.selectedFormatID.String(),
	}
	args = append(args, s.cfg.Args()...)
	if s.referringPage != "" {
		args = append(args, "--referer", s.referringPage)
	}
	if isMergeFormat(s.fileExtension) {
		args = append(args, "--merge-output-format", s.fileExtension)
	}
	return append(args, "--", s.url)
}

// Start launches the download. It does nothing without a selected format or
// while a download is running.
func (s *Stream) Start() {
	if s.IsEmpty() || s.IsRunning() {
		return
	}
	p := s.newProcess(s.loop)
	p.SetHandler(process.Handler{
		Error: func(kind process.ErrorKind) {
			if p != s.proc {
				return
			}
			log.Debug().Str("op", "stream/stream").Msg(kind.String())
			if kind == process.FailedToStart {
				s.proc = nil
				s.emitError(ErrProcessLaunch)
			}
		},
		Finished: func(code int, status process.ExitStatus) {
			if p == s.proc {
				s.onFinished(code, status)
			}
		},
		StdoutReady: func() {
			if p == s.proc {
				s.onStdout(p.ReadAllStdout())
			}
		},
		StderrReady: func() {
			if p == s.proc {
				s.onStderr(p.ReadAllStderr())
			}
		},
	})
	s.proc = p
	s.lineBuf = nil
	s.stderrBuf = nil
	s.stderrTail = nil
	p.Start(s.cfg.ProgramPath(), s.args())
	log.Debug().Str("op", "stream/stream").Msg(p.String())
}

// Abort kills the download. FinishedFunc is always called and nothing else
// is reported afterwards.
func (s *Stream) Abort() {
	s.proc = detach(s.proc)
	if s.FinishedFunc != nil {
		s.FinishedFunc()
	}
}

func (s *Stream) onFinished(code int, status process.ExitStatus) {
	p := s.proc
	if rest := bytes.TrimSpace(s.lineBuf); len(rest) > 0 {
		s.parseStandardOutput(string(rest))
	}
	s.lineBuf = nil
	switch {
	case status != process.NormalExit:
		s.emitError(ErrProcessCrash)
	case code == 0:
		if len(bytes.TrimSpace(s.stderrBuf)) > 0 {
			s.onStderr([]byte("\n"))
		}
		s.emitProgress(s.total(), s.total())
		if s.FinishedFunc != nil {
			s.FinishedFunc()
		}
	default:
		rest := append(s.stderrBuf, p.ReadAllStderr()...)
		s.stderrBuf = nil
		s.stderrTail = append(s.stderrTail, string(rest))
		s.emitError(&ExitError{Code: code, Stderr: simplify(strings.Join(s.stderrTail, " "))})
	}
}

func (s *Stream) onStdout(data []byte) {
	s.lineBuf = append(s.lineBuf, data...)
	for {
		i := bytes.IndexAny(s.lineBuf, "\r\n")
		if i < 0 {
			return
		}
		line := string(s.lineBuf[:i])
		s.lineBuf = s.lineBuf[i+1:]
		if strings.TrimSpace(line) != "" {
			s.parseStandardOutput(line)
		}
	}
}

// onStderr only parses complete lines. A partial line waits for the next
// read, or ends up in the exit error text.
func (s *Stream) onStderr(data []byte) {
	s.stderrBuf = append(s.stderrBuf, data...)
	i := bytes.LastIndexByte(s.stderrBuf, '\n')
	if i < 0 {
		return
	}
	complete := s.stderrBuf[:i+1]
	s.stderrBuf = append([]byte(nil), s.stderrBuf[i+1:]...)
	for _, line := range splitLines(complete) {
		l := strings.TrimSpace(string(line))
		s.stderrTail = append(s.stderrTail, l)
		if len(s.stderrTail) > maxStderrTail {
			s.stderrTail = s.stderrTail[1:]
		}
		s.parseStandardError(l)
	}
}

func (s *Stream) parseStandardOutput(line string) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 || !strings.EqualFold(tokens[0], downloadHeader) {
		return
	}
	if len(tokens) > 2 && tokens[1] == nextSectionMarker {
		s.bytesReceived += s.bytesReceivedCurrentSection
		s.emitProgress(s.bytesReceived, s.total())
		return
	}
	if len(tokens) > 3 && strings.Contains(tokens[1], "%") && tokens[2] == "of" {
		percent, err := utils.ParsePercent(tokens[1])
		if err != nil {
			log.Debug().Str("op", "stream/stream").Err(err).Msg("can't parse progress")
			return
		}
		size, err := utils.ParseBytes(tokens[3])
		if err != nil {
			log.Debug().Str("op", "stream/stream").Err(err).Msg("can't parse progress")
			return
		}
		s.bytesTotalCurrentSection = size
		s.bytesReceivedCurrentSection = int64(math.Ceil(percent * float64(size) / 100.0))
	}
	s.emitProgress(s.bytesReceived+s.bytesReceivedCurrentSection, s.total())
}

func (s *Stream) parseStandardError(line string) {
	switch {
	case hasHeader(line, errorHeader, errorHeaderColor):
		s.emitError(&HelperError{Line: line})
	case hasHeader(line, warningHeader, warningHeaderColor):
		if strings.Contains(strings.ToLower(line), strings.ToLower(mergeWarning)) {
			s.fileExtension = mergeFallbackSuffix
			if s.MetadataFunc != nil {
				s.MetadataFunc()
			}
		}
	default:
		log.Debug().Str("op", "stream/stream").Msg(line)
	}
}

// total prefers the authoritative size and falls back to the current
// section's estimate.
func (s *Stream) total() int64 {
	if s.bytesTotal > 0 {
		return s.bytesTotal
	}
	return s.bytesTotalCurrentSection
}

func (s *Stream) emitProgress(received, total int64) {
	if s.ProgressFunc != nil {
		s.ProgressFunc(received, total)
	}
}

func (s *Stream) emitError(err error) {
	if s.ErrorFunc != nil {
		s.ErrorFunc(err)
	}
}

func isMergeFormat(suffix string) bool {
	return mergeFormats[strings.ToLower(suffix)]
}
