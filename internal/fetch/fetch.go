// Package fetch streams remote audio payloads to disk or to another writer
// without holding the whole body in memory.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// ChunkSize is the copy buffer used for every transfer.
const ChunkSize = 8 << 10

const userAgent = "ym-bot/0.2"

// HTTPClient wraps the stdlib client for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError reports a non-200 upstream answer.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Acquirer downloads direct links. Safe for concurrent use.
type Acquirer struct {
	httpClient HTTPClient
	logger     *zap.Logger
}

// NewAcquirer builds an Acquirer; a nil client gets a default one without
// an overall timeout, since callers bound transfers through the context.
func NewAcquirer(httpClient HTTPClient, logger *zap.Logger) *Acquirer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConnsPerHost:   8,
		}}
	}
	return &Acquirer{httpClient: httpClient, logger: logger}
}

// Open starts a GET and returns the body when the upstream answers 200.
// The caller owns the returned body.
func (a *Acquirer) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	if url == "" {
		return nil, fmt.Errorf("url is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return resp.Body, nil
}

// Fetch streams url into dest, overwriting it. On failure a partial file is
// removed and the cause is returned.
func (a *Acquirer) Fetch(ctx context.Context, url, dest string) error {
	body, err := a.Open(ctx, url)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer body.Close()

	written, err := writeFile(dest, body)
	if err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("download interrupted after %s: %w", humanize.Bytes(uint64(written)), err)
	}

	a.logger.Debug("download finished", zap.String("dest", dest), zap.String("bytes", humanize.Bytes(uint64(written))))
	return nil
}

// Copy streams r into w in ChunkSize pieces.
func Copy(w io.Writer, r io.Reader) (int64, error) {
	return io.CopyBuffer(w, r, make([]byte, ChunkSize))
}

func writeFile(dest string, r io.Reader) (int64, error) {
	if dir := filepath.Dir(dest); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("ensure dir: %w", err)
		}
	}

	out, err := os.Create(dest) //nolint:gosec // destination controlled internally
	if err != nil {
		return 0, err
	}

	written, copyErr := Copy(onlyWriter{out}, r)
	closeErr := out.Close()
	if copyErr != nil {
		return written, copyErr
	}
	return written, closeErr
}

// onlyWriter hides ReadFrom so transfers go through the fixed-size buffer.
type onlyWriter struct {
	io.Writer
}
