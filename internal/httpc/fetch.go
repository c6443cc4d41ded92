package httpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/teslashibe/go-lens/internal/log"
)

// ErrNoSource is returned when a file is missing and there is nowhere to
// fetch it from.
var ErrNoSource = errors.New("file missing and no download URL configured")

// Download fetches rawURL into dest. The file appears atomically: a failed
// download leaves nothing behind.
func Download(ctx context.Context, client *http.Client, rawURL, dest string) error {
	if client == nil {
		client = Client
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", rawURL, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("install %s: %w", dest, err)
	}

	log.Info("downloaded model", "file", dest, "bytes", n)
	return nil
}

// EnsureFile makes sure path exists, downloading it from baseURL joined with
// the file's base name when it does not. An empty baseURL disables fetching.
func EnsureFile(ctx context.Context, baseURL, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if baseURL == "" {
		return fmt.Errorf("%s: %w", path, ErrNoSource)
	}

	src, err := url.JoinPath(baseURL, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("model url: %w", err)
	}
	return Download(ctx, Client, src, path)
}
