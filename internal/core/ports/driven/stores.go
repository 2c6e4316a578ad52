package driven

import (
	"context"

	"github.com/dsp-labs/evidencer-cli/internal/core/domain"
)

// SearchStore persists literature search runs.
type SearchStore interface {
	// Save stores or updates a search run.
	Save(ctx context.Context, search domain.Search) error

	// Get retrieves a search run by ID.
	Get(ctx context.Context, id string) (*domain.Search, error)

	// Latest returns the most recent search run, or domain.ErrNotFound.
	Latest(ctx context.Context) (*domain.Search, error)

	// List returns all search runs, newest first.
	List(ctx context.Context) ([]domain.Search, error)
}

// ReferenceStore persists screened references.
type ReferenceStore interface {
	// SaveAll stores the references for a search run in one transaction.
	SaveAll(ctx context.Context, refs []domain.Reference) error

	// Get retrieves a reference by study ID within a search run.
	Get(ctx context.Context, searchID, studyID string) (*domain.Reference, error)

	// ListBySearch returns all references for a search run, in study
	// ID order.
	ListBySearch(ctx context.Context, searchID string) ([]domain.Reference, error)
}

// ExtractionStore persists extraction rows.
type ExtractionStore interface {
	// Save stores or updates one extraction row.
	Save(ctx context.Context, ex domain.Extraction) error

	// ListBySearch returns all extraction rows for a search run,
	// ordered by study ID and result index.
	ListBySearch(ctx context.Context, searchID string) ([]domain.Extraction, error)

	// DeleteByStudy removes all rows for a study, used when a study is
	// re-extracted.
	DeleteByStudy(ctx context.Context, searchID, studyID string) error

	// UpdateMapping sets the mapped ontology terms on a row.
	UpdateMapping(ctx context.Context, id, intervention, outcome string) error
}
