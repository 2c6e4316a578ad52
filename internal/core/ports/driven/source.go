package driven

import (
	"context"

	"github.com/dsp-labs/evidencer-cli/internal/core/domain"
)

// LiteratureSource fetches scholarly works from a provider (OpenAlex).
// Implementations handle pagination and rate limiting internally and
// stream results as they arrive.
type LiteratureSource interface {
	// Name returns the provider identifier (e.g. "openalex").
	Name() string

	// Validate checks the source is properly configured, typically by
	// making a lightweight test request.
	Validate(ctx context.Context) error

	// Fetch streams works matching the query. The reference channel is
	// closed when fetching completes; any terminal failure is delivered
	// on the error channel. References arrive without study IDs (they
	// are assigned after screening).
	Fetch(ctx context.Context, query SearchQuery) (<-chan domain.Reference, <-chan error)
}

// SearchQuery describes one literature search request.
type SearchQuery struct {
	// Term is the full-text search query.
	Term string

	// MinCitations is the citation count filter expression (e.g. ">4").
	MinCitations string

	// MaxWorks caps the total number of works fetched across pages.
	MaxWorks int
}
