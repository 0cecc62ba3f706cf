// Package helper resolves the external media-extraction helper and holds the
// collaborator settings (user agent, proxy) passed to every invocation.
package helper

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/tanq16/streamz/internal/utils"
)

// Config is read by every helper wrapper when it builds argument lists.
type Config struct {
	Program       string
	UserAgent     string
	ProxyURL      string
	ProxyUsername string
	ProxyPassword string
	Headers       map[string]string
}

// ProgramPath returns the helper executable, defaulting to yt-dlp on PATH.
func (c Config) ProgramPath() string {
	if c.Program == "" {
		return utils.DefaultHelperName
	}
	return c.Program
}

// Args renders the optional network arguments. Empty values are omitted
// because the helper rejects options with empty arguments.
func (c Config) Args() []string {
	var args []string
	if c.UserAgent != "" {
		args = append(args, "--user-agent", c.UserAgent)
	}
	if proxy := c.Proxy(); proxy != "" {
		args = append(args, "--proxy", proxy)
	}
	keys := make([]string, 0, len(c.Headers))
	for k := range c.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--add-header", k+":"+c.Headers[k])
	}
	return args
}

func (c Config) Proxy() string {
	return utils.ProxyWithAuth(c.ProxyURL, c.ProxyUsername, c.ProxyPassword)
}

func (c Config) HTTPClientConfig() utils.HTTPClientConfig {
	return utils.HTTPClientConfig{
		ProxyURL:      c.ProxyURL,
		ProxyUsername: c.ProxyUsername,
		ProxyPassword: c.ProxyPassword,
		UserAgent:     c.UserAgent,
	}
}

// CacheDir follows the XDG convention: $XDG_CACHE_HOME, else ~/.cache.
func CacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Clean(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(".cache")
	}
	return filepath.Join(home, ".cache")
}
