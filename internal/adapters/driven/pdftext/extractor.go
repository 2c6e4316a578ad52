// Package pdftext extracts plain text from PDF files by shelling out to
// the poppler pdftotext utility. The command is abstracted behind the
// CommandRunner port so the extractor can be tested without poppler
// installed.
package pdftext

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/dsp-labs/evidencer-cli/internal/core/domain"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// command is the external binary used for extraction.
const command = "pdftotext"

// execRunner runs commands with os/exec.
type execRunner struct{}

// Run executes the named command and returns its stdout.
func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor extracts text from PDFs using pdftotext.
type Extractor struct {
	runner driven.CommandRunner
}

// New creates an extractor backed by the real pdftotext binary.
func New() *Extractor {
	return &Extractor{runner: execRunner{}}
}

// NewWithRunner creates an extractor with a custom command runner.
// Used by tests.
func NewWithRunner(runner driven.CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// Available reports whether the pdftotext binary can be found.
func Available() bool {
	_, err := exec.LookPath(command)
	return err == nil
}

// ExtractText returns the text content of the PDF at path. The "-" output
// argument makes pdftotext write to stdout. An empty result with nil
// error means the PDF had no extractable text.
func (e *Extractor) ExtractText(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("pdftext: %w: %s", domain.ErrNotFound, path)
	}

	out, err := e.runner.Run(ctx, command, "-q", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftext: run %s: %w", command, err)
	}

	return strings.TrimSpace(string(out)), nil
}
