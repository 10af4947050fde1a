package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/scaii/sky-install/pkg/telemetry"
)

// ErrDownload is returned when a remote archive cannot be retrieved.
var ErrDownload = errors.New("download failed")

// Downloader fetches files over HTTP.
type Downloader struct {
	Client *http.Client
	// Progress, when set, receives a progress bar while the body is read.
	Progress io.Writer
}

// NewDownloader returns a downloader with timeouts suited to large archives.
func NewDownloader(progress io.Writer) *Downloader {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSHandshakeTimeout = 30 * time.Second

	return &Downloader{
		Client: &http.Client{
			Transport: transport,
			Timeout:   300 * time.Second,
		},
		Progress: progress,
	}
}

// Download writes the body at url to dest.
func (d *Downloader) Download(ctx context.Context, url, dest string) error {
	telemetry.FromContext(ctx).NewComponentLogger("download").
		WithFields(map[string]interface{}{"url": url, "dest": dest}).
		Info("Downloading")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDownload, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: unexpected status %s", ErrDownload, url, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", dest, err)
	}
	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	var w io.Writer = out
	if d.Progress != nil {
		bar := progressbar.NewOptions64(
			resp.ContentLength,
			progressbar.OptionSetWriter(d.Progress),
			progressbar.OptionSetDescription(filepath.Base(dest)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		w = io.MultiWriter(out, bar)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: %s: %v", ErrDownload, url, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	return os.Rename(tmp, dest)
}
