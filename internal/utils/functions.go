package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

func RenewOutputPath(outputPath string) string {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	index := 1
	for {
		outputPath = filepath.Join(dir, fmt.Sprintf("%s-(%d)%s", name, index, ext))
		if _, err := os.Stat(outputPath); os.IsNotExist(err) {
			return outputPath
		}
		index++
	}
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

// ParseBytes reads a helper size token such as "10.00MiB", "~1.2GiB" or
// "532KiB". The "~" prefix marks an estimate and is accepted.
func ParseBytes(token string) (int64, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "~"))
	if token == "" {
		return -1, ErrInvalidSize
	}
	n, err := humanize.ParseBytes(token)
	if err != nil {
		return -1, fmt.Errorf("%w: %q", ErrInvalidSize, token)
	}
	return int64(n), nil
}

// ParsePercent reads "45.0%" as 45.0. Negative values are rejected.
func ParsePercent(token string) (float64, error) {
	value := strings.TrimSuffix(strings.TrimSpace(token), "%")
	percent, err := strconv.ParseFloat(value, 64)
	if err != nil || percent < 0 {
		return -1, fmt.Errorf("%w: %q", ErrInvalidPercent, token)
	}
	return percent, nil
}

func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "?"
	}
	return humanize.IBytes(uint64(bytes))
}

func FormatSpeed(bytes int64, elapsed float64) string {
	if elapsed <= 0 || bytes <= 0 {
		return "0 B/s"
	}
	return FormatBytes(int64(float64(bytes)/elapsed)) + "/s"
}
