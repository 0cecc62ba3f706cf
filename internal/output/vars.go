package output

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("37"))            // dark green
	success2Style = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))             // green
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))             // red
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))            // yellow
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))            // blue
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))            // cyan
	debugStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))           // light grey
	detailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))            // purple
	streamStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))           // grey
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")) // purple
)

var StyleSymbols = map[string]string{
	"pass":    "✓",
	"fail":    "✗",
	"warning": "!",
	"pending": "◉",
	"info":    "ℹ",
	"arrow":   "→",
	"bullet":  "•",
	"dot":     "·",
	"hline":   "━",
}

// Job states shown by the Manager.
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusSuccess = "success"
	StatusError   = "error"
	StatusWarning = "warning"
)

// Format kinds used when listing an item's formats.
const (
	FormatMuxed     = "muxed"
	FormatVideoOnly = "video"
	FormatAudioOnly = "audio"
)

func PrintSuccess(text string) {
	fmt.Println(successStyle.Render(text))
}
func PrintError(text string) {
	fmt.Println(errorStyle.Render(text))
}
func PrintWarning(text string) {
	fmt.Println(warningStyle.Render(text))
}
func FError(text string) string {
	return errorStyle.Render(text)
}
func FWarning(text string) string {
	return warningStyle.Render(text)
}
func FInfo(text string) string {
	return infoStyle.Render(text)
}
func FDebug(text string) string {
	return debugStyle.Render(text)
}
func FDetail(text string) string {
	return detailStyle.Render(text)
}
func FHeader(text string) string {
	return headerStyle.Render(text)
}

// FStatus styles text the way the Manager shows a job in that state.
func FStatus(status, text string) string {
	switch status {
	case StatusSuccess:
		return successStyle.Render(text)
	case StatusError:
		return errorStyle.Render(text)
	case StatusWarning:
		return warningStyle.Render(text)
	default:
		return pendingStyle.Render(text)
	}
}

// FFormat marks a format line with its kind so muxed, video-only and
// audio-only entries stand apart in a listing.
func FFormat(kind, text string) string {
	switch kind {
	case FormatMuxed:
		return success2Style.Render(StyleSymbols["pass"]) + " " + text
	case FormatVideoOnly:
		return detailStyle.Render(StyleSymbols["bullet"]) + " " + text
	case FormatAudioOnly:
		return infoStyle.Render(StyleSymbols["dot"]) + " " + text
	default:
		return text
	}
}
