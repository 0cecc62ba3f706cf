package output

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/tanq16/streamz/internal/utils"
)

// ProgressBar renders a fixed-width bar. An unknown total (<= 0) renders
// as an empty bar with the received byte count only.
func ProgressBar(received, total int64, width int) string {
	if width <= 0 {
		width = 30
	}
	if received < 0 {
		received = 0
	}
	if total <= 0 {
		bar := StyleSymbols["bullet"] + strings.Repeat(" ", width) + StyleSymbols["bullet"]
		return fmt.Sprintf("%s %s / ?", bar, utils.FormatBytes(received))
	}
	if received > total {
		received = total
	}
	percent := float64(received) / float64(total)
	filled := max(0, min(int(percent*float64(width)), width))
	bar := StyleSymbols["bullet"]
	bar += strings.Repeat(StyleSymbols["hline"], filled)
	bar += strings.Repeat(" ", width-filled)
	bar += StyleSymbols["bullet"]
	return fmt.Sprintf("%s %.1f%% %s %s / %s", bar, percent*100, StyleSymbols["bullet"],
		utils.FormatBytes(received), utils.FormatBytes(total))
}

// IsInteractive reports whether stdout is a terminal that can be redrawn.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func getTerminalSize() (width, height int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 || height <= 0 {
		return 80, 24
	}
	return width, height
}

// truncate cuts text to at most n runes.
func truncate(text string, n int) string {
	if n <= 3 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n-3]) + "..."
}
