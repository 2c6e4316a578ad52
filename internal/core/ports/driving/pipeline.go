// Package driving provides interfaces for primary/inbound ports: the
// operations the CLI invokes on the core services.
package driving

import (
	"context"
	"io"

	"github.com/dsp-labs/evidencer-cli/internal/core/domain"
)

// SearchPipeline runs a literature search end to end: fetch, screen,
// persist, download PDFs.
type SearchPipeline interface {
	// Run executes a search and returns a report of what happened.
	Run(ctx context.Context, req SearchRequest) (*SearchReport, error)
}

// SearchRequest configures one search run.
type SearchRequest struct {
	// Term is the search query.
	Term string

	// Description is the free-text relevance description for LLM
	// screening. Empty skips screening.
	Description string

	// MinCitations is the citation filter expression (e.g. ">4").
	MinCitations string

	// MaxWorks caps the number of works fetched.
	MaxWorks int

	// SkipPDFs disables PDF downloading.
	SkipPDFs bool
}

// SearchReport summarises a completed search run.
type SearchReport struct {
	// SearchID identifies the stored run.
	SearchID string

	// Fetched is the number of works returned by the provider.
	Fetched int

	// Kept is the number of references kept after screening.
	Kept int

	// PDFsDownloaded is the number of PDFs successfully fetched.
	PDFsDownloaded int

	// PDFDir is the directory PDFs were written to.
	PDFDir string
}

// ExtractionPipeline runs the three-pass extraction over a search run's
// studies.
type ExtractionPipeline interface {
	// Run extracts every study of the search run and returns a report.
	Run(ctx context.Context, req ExtractRequest) (*ExtractReport, error)

	// ExtractStudy extracts a single study. Used by watch mode when a
	// PDF arrives.
	ExtractStudy(ctx context.Context, searchID, studyID string, extraItems []string) ([]domain.Extraction, error)
}

// ExtractRequest configures one extraction run.
type ExtractRequest struct {
	// SearchID identifies the search run to extract.
	SearchID string

	// ExtraItems are user-supplied additional items to extract per
	// study (pass 3).
	ExtraItems []string

	// Workers bounds extraction concurrency (0 means the default).
	Workers int
}

// ExtractReport summarises a completed extraction run.
type ExtractReport struct {
	// Studies is the number of studies processed.
	Studies int

	// Rows is the number of extraction rows produced.
	Rows int

	// Skipped is the number of studies skipped (no text, no abstract).
	Skipped int

	// Failed is the number of studies whose passes all failed.
	Failed int
}

// OntologyMapper assigns canonical ontology terms to extracted
// intervention and outcome variables.
type OntologyMapper interface {
	// Run maps every extraction row of the search run.
	Run(ctx context.Context, req MapRequest) (*MapReport, error)
}

// MapRequest configures one mapping run.
type MapRequest struct {
	// SearchID identifies the search run to map.
	SearchID string

	// InterventionOntologyPath is the CSV or JSON file of intervention
	// terms.
	InterventionOntologyPath string

	// OutcomeOntologyPath is the CSV or JSON file of outcome terms.
	OutcomeOntologyPath string
}

// MapReport summarises a completed mapping run.
type MapReport struct {
	// Rows is the number of extraction rows considered.
	Rows int

	// Mapped is the number of rows that received at least one term.
	Mapped int
}

// Exporter writes the evidence base out for downstream modelling.
type Exporter interface {
	// ExportReferences writes the screened references of a search run
	// as CSV. Returns the number of data rows written.
	ExportReferences(ctx context.Context, searchID string, w io.Writer) (int, error)

	// ExportExtractions writes the extraction rows of a search run as
	// CSV, including mapped ontology terms. Returns the number of data
	// rows written.
	ExportExtractions(ctx context.Context, searchID string, extraItems []string, w io.Writer) (int, error)
}
