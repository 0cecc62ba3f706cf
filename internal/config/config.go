// Package config reads the optional streamz settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/tanq16/streamz/internal/helper"
	"github.com/tanq16/streamz/internal/utils"
)

// File mirrors config.yaml. Every field is optional; command-line flags win
// over file values.
type File struct {
	Helper        string            `yaml:"helper"`
	UserAgent     string            `yaml:"user_agent"`
	Proxy         string            `yaml:"proxy"`
	ProxyUsername string            `yaml:"proxy_username"`
	ProxyPassword string            `yaml:"proxy_password"`
	Headers       map[string]string `yaml:"headers"`
	Workers       int               `yaml:"workers"`
	OutputDir     string            `yaml:"output_dir"`
	UploadTo      string            `yaml:"upload_to"`
	AWSProfile    string            `yaml:"aws_profile"`
}

// DefaultPath is $XDG_CONFIG_HOME/streamz/config.yaml, else
// ~/.config/streamz/config.yaml.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "streamz", "config.yaml")
}

// Load reads path, or DefaultPath when path is empty. A missing default
// file is not an error; a missing explicit file is.
func Load(path string) (File, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return File{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("error reading config: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("error parsing config %s: %w", path, err)
	}
	if f.Workers < 0 {
		return File{}, fmt.Errorf("error parsing config %s: workers must not be negative", path)
	}
	log.Debug().Str("op", "config/config").Msgf("loaded %s", path)
	return f, nil
}

// HelperConfig converts the file into helper settings. "randomize" as user agent
// picks one from the built-in list.
func (f File) HelperConfig() helper.Config {
	userAgent := f.UserAgent
	if userAgent == "randomize" {
		userAgent = utils.GetRandomUserAgent()
	}
	return helper.Config{
		Program:       f.Helper,
		UserAgent:     userAgent,
		ProxyURL:      f.Proxy,
		ProxyUsername: f.ProxyUsername,
		ProxyPassword: f.ProxyPassword,
		Headers:       f.Headers,
	}
}
