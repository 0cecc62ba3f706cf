package helper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/streamz/internal/utils"
)

const releaseURL = "https://github.com/yt-dlp/yt-dlp/releases/latest/download/%s"

var ErrUnsupportedPlatform = errors.New("unsupported OS/arch for helper download")

// Locate resolves the helper executable: explicit path, PATH lookup, a copy
// next to our executable, a previously downloaded copy in the cache, and
// finally a fresh download of the release asset when allowDownload is set.
func Locate(ctx context.Context, cfg Config, allowDownload bool) (string, error) {
	if cfg.Program != "" {
		if _, err := os.Stat(cfg.Program); err == nil {
			return cfg.Program, nil
		}
		if path, err := exec.LookPath(cfg.Program); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("helper %q not found", cfg.Program)
	}
	if path, err := exec.LookPath(utils.DefaultHelperName); err == nil {
		return path, nil
	}
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), executableName())
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	cached := cachedHelperPath()
	if _, err := os.Stat(cached); err == nil {
		return cached, nil
	}
	if !allowDownload {
		return "", fmt.Errorf("%s not found in PATH", utils.DefaultHelperName)
	}
	log.Info().Str("op", "helper/locate").Msgf("%s not found, downloading release to %s", utils.DefaultHelperName, cached)
	if err := downloadHelper(ctx, cfg, cached); err != nil {
		return "", err
	}
	return cached, nil
}

func executableName() string {
	if runtime.GOOS == "windows" {
		return utils.DefaultHelperName + ".exe"
	}
	return utils.DefaultHelperName
}

func cachedHelperPath() string {
	return filepath.Join(CacheDir(), "streamz", executableName())
}

func releaseAsset(goos, goarch string) (string, error) {
	switch {
	case goos == "windows" && goarch == "amd64":
		return "yt-dlp.exe", nil
	case goos == "windows" && goarch == "arm64":
		return "yt-dlp_arm64.exe", nil
	case goos == "linux" && goarch == "amd64":
		return "yt-dlp_linux", nil
	case goos == "linux" && goarch == "arm64":
		return "yt-dlp_linux_aarch64", nil
	case goos == "darwin":
		return "yt-dlp_macos", nil
	default:
		return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
	}
}

func downloadHelper(ctx context.Context, cfg Config, dest string) error {
	asset, err := releaseAsset(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("error creating cache directory: %w", err)
	}
	client := utils.NewStreamzHTTPClient(cfg.HTTPClientConfig())
	if err := downloadFile(ctx, client, fmt.Sprintf(releaseURL, asset), dest); err != nil {
		return err
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(dest, 0755); err != nil {
			return fmt.Errorf("error setting permissions: %w", err)
		}
	}
	return nil
}

func downloadFile(ctx context.Context, client *utils.StreamzHTTPClient, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}
	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
