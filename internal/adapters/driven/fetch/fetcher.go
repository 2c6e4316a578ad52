// Package fetch downloads open-access PDFs to the local data directory.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driven"
)

// Ensure Fetcher implements the interface.
var _ driven.FileFetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	// DefaultTimeout covers slow publisher servers; PDFs can be tens
	// of megabytes.
	DefaultTimeout = 2 * time.Minute

	// userAgent identifies the pipeline to publisher servers.
	userAgent = "evidencer/1.0"
)

// Fetcher downloads files over HTTP.
type Fetcher struct {
	client *http.Client
}

// New creates a fetcher with the default timeout.
func New() *Fetcher {
	return NewWithClient(&http.Client{Timeout: DefaultTimeout})
}

// NewWithClient creates a fetcher with a custom HTTP client. Used by tests.
func NewWithClient(client *http.Client) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch downloads url to destPath. The file is written to a temporary
// sibling first and renamed into place, so an interrupted download never
// leaves a truncated PDF behind.
func (f *Fetcher) Fetch(ctx context.Context, url, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed (status %d)", resp.StatusCode)
	}

	// Some pdf_urls serve an HTML landing page instead of the PDF
	head := make([]byte, 5)
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("read response: %w", err)
	}
	if !bytes.HasPrefix(head[:n], []byte("%PDF")) {
		return fmt.Errorf("%s did not return a PDF", url)
	}

	tmpPath := destPath + ".partial"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := out.Write(head[:n]); err != nil {
		out.Close()
		os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("write file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("write file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("close file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("rename file: %w", err)
	}

	return nil
}
