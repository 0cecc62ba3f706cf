package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBytes(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		want    int64
		wantErr bool
	}{
		{name: "mebibytes", token: "10.00MiB", want: 10 * 1024 * 1024},
		{name: "kibibytes", token: "512KiB", want: 512 * 1024},
		{name: "gibibytes", token: "1.50GiB", want: 1610612736},
		{name: "estimate prefix", token: "~2.00MiB", want: 2 * 1024 * 1024},
		{name: "plain bytes", token: "900B", want: 900},
		{name: "decimal megabytes", token: "3MB", want: 3000000},
		{name: "empty", token: "", wantErr: true},
		{name: "unknown", token: "Unknown", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBytes(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSize)
				assert.Equal(t, int64(-1), got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		token   string
		want    float64
		wantErr bool
	}{
		{token: "45.0%", want: 45},
		{token: "100%", want: 100},
		{token: "0.1%", want: 0.1},
		{token: "abc%", wantErr: true},
		{token: "-3%", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParsePercent(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPercent)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRenewOutputPath(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(original, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clip-(1).mp4"), []byte("x"), 0644))

	assert.Equal(t, filepath.Join(dir, "clip-(2).mp4"), RenewOutputPath(original))
}

func TestParseHeaderArgs(t *testing.T) {
	got := ParseHeaderArgs([]string{"Cookie: a=b", "broken", " X-Token :  abc "})
	assert.Equal(t, map[string]string{"Cookie": "a=b", "X-Token": "abc"}, got)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "?", FormatBytes(-1))
	assert.Equal(t, "10 MiB", FormatBytes(10*1024*1024))
	assert.Equal(t, "0 B/s", FormatSpeed(10, 0))
	assert.Equal(t, "1.0 KiB/s", FormatSpeed(2048, 2))
}
