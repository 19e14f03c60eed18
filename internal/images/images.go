package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"romdex/internal/library"
	"romdex/internal/logging"
)

const downloadTimeout = 30 * time.Second

// Downloader fetches cover art and screenshots into the image directory.
// Lazy mode skips downloads entirely; records keep the remote URLs either
// way, so a later eager pass can backfill.
type Downloader struct {
	dir        string
	lazy       bool
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes a Downloader.
type Option func(*Downloader)

// WithHTTPClient overrides the HTTP client, primarily for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// New constructs a Downloader writing into dir.
func New(dir string, lazy bool, logger *slog.Logger, opts ...Option) *Downloader {
	d := &Downloader{
		dir:        dir,
		lazy:       lazy,
		httpClient: &http.Client{Timeout: downloadTimeout},
		logger:     logging.NewComponentLogger(logger, "images"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads the cover and screenshots for a record unless lazy mode
// is on. Failures are logged and swallowed; image downloads never fail a
// batch.
func (d *Downloader) Fetch(ctx context.Context, rec library.Record) {
	if d == nil || d.lazy {
		return
	}
	if rec.CoverURL != "" {
		d.fetchOne(ctx, rec, rec.CoverURL, d.coverPath(rec), "cover")
	}
	for i, url := range rec.Screenshots {
		if url == "" {
			continue
		}
		d.fetchOne(ctx, rec, url, d.screenshotPath(rec, i, url), "screenshot")
	}
}

func (d *Downloader) fetchOne(ctx context.Context, rec library.Record, url, target, kind string) {
	if target == "" {
		return
	}
	if _, err := os.Stat(target); err == nil {
		return
	}
	if err := d.download(ctx, url, target); err != nil {
		d.logger.Warn(kind+" download failed",
			logging.String(logging.FieldTitle, rec.Title),
			logging.String(logging.FieldPlatform, rec.PlatformKey),
			logging.Error(err))
	}
}

func (d *Downloader) coverPath(rec library.Record) string {
	if rec.GameID == 0 || rec.PlatformKey == "" {
		return ""
	}
	return filepath.Join(d.dir, rec.PlatformKey, fmt.Sprintf("%d%s", rec.GameID, imageExt(rec.CoverURL)))
}

func (d *Downloader) screenshotPath(rec library.Record, index int, url string) string {
	if rec.GameID == 0 || rec.PlatformKey == "" {
		return ""
	}
	return filepath.Join(d.dir, rec.PlatformKey, fmt.Sprintf("%d_s%d%s", rec.GameID, index+1, imageExt(url)))
}

func imageExt(url string) string {
	ext := strings.ToLower(filepath.Ext(url))
	if ext == "" || len(ext) > 5 {
		ext = ".jpg"
	}
	return ext
}

func (d *Downloader) download(ctx context.Context, url, target string) error {
	if strings.HasPrefix(url, "//") {
		url = "https:" + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	tmpPath := target + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write image: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close image: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("finalize image: %w", err)
	}
	return nil
}
