package driven

import "context"

// CommandRunner executes an external command and returns its combined
// output. Abstracted so adapters that shell out (pdftotext) can be
// tested without the binary installed.
type CommandRunner interface {
	// Run executes the named command with arguments and returns stdout.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// TextExtractor produces plain text from a PDF file.
type TextExtractor interface {
	// ExtractText returns the text content of the PDF at path.
	// An empty string with nil error means the PDF had no extractable
	// text (scanned images, encrypted content).
	ExtractText(ctx context.Context, path string) (string, error)
}

// FileFetcher downloads a remote file to a local path.
type FileFetcher interface {
	// Fetch downloads url to destPath, creating parent directories as
	// needed. Existing files are overwritten.
	Fetch(ctx context.Context, url, destPath string) error
}
