package domain

import (
	"fmt"
	"time"
)

// NA is the sentinel for missing values. It is carried through every
// pipeline stage and into the exported CSV, so that a downstream reader
// can distinguish "not reported" from an empty cell.
const NA = "NA"

// Reference is a single scholarly work returned by a literature search,
// after abstract reconstruction and open-access resolution.
type Reference struct {
	// StudyID is the sequential identifier assigned after screening
	// (study_1, study_2, ...). Empty until assignment.
	StudyID string

	// SearchID links to the Search that produced this reference.
	SearchID string

	// Title is the work title.
	Title string

	// DOI is the work's DOI URL, if any.
	DOI string

	// PublicationYear is the year of publication (0 if unknown).
	PublicationYear int

	// Abstract is the plain-text abstract reconstructed from the
	// provider's inverted index.
	Abstract string

	// LandingPageURL is the best open-access landing page.
	LandingPageURL string

	// PDFURL is the direct open-access PDF link, if any.
	PDFURL string

	// OpenAccess reports whether an open-access copy exists.
	OpenAccess bool

	// Included is the screening decision. References are persisted only
	// after screening, so this is true unless screening was skipped.
	Included bool

	// CreatedAt is when the reference was stored.
	CreatedAt time.Time
}

// HasAbstract reports whether the reference carries usable abstract text.
func (r Reference) HasAbstract() bool {
	return r.Abstract != "" && r.Abstract != NA
}

// PDFFilename returns the canonical file name for the downloaded PDF.
func (r Reference) PDFFilename() string {
	return r.StudyID + ".pdf"
}

// StudyIDFor returns the sequential study identifier for position i
// (zero-based) in the screened reference list.
func StudyIDFor(i int) string {
	return fmt.Sprintf("study_%d", i+1)
}

// Search records one literature search run: the query, the optional
// relevance description used for LLM screening, and where its artefacts
// (references, PDFs) live.
type Search struct {
	// ID is the unique identifier for the search run.
	ID string

	// Term is the search query sent to the literature provider.
	Term string

	// Description is the free-text relevance description used for LLM
	// screening. Empty means screening was skipped.
	Description string

	// MinCitations is the citation count filter (e.g. ">4").
	MinCitations string

	// MaxWorks caps the number of works fetched.
	MaxWorks int

	// Fetched is the number of works returned by the provider.
	Fetched int

	// Kept is the number of references kept after screening.
	Kept int

	// CreatedAt is when the search was run.
	CreatedAt time.Time
}
