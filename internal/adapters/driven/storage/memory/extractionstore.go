package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dsp-labs/evidencer-cli/internal/core/domain"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driven"
)

// Ensure ExtractionStore implements the interface.
var _ driven.ExtractionStore = (*ExtractionStore)(nil)

// ExtractionStore is an in-memory implementation of driven.ExtractionStore.
type ExtractionStore struct {
	mu   sync.RWMutex
	rows map[string]domain.Extraction // row ID -> row
}

// NewExtractionStore creates a new in-memory extraction store.
func NewExtractionStore() *ExtractionStore {
	return &ExtractionStore{
		rows: make(map[string]domain.Extraction),
	}
}

// Save stores or updates one extraction row.
func (s *ExtractionStore) Save(_ context.Context, ex domain.Extraction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[ex.ID] = ex
	return nil
}

// ListBySearch returns all rows for a search run, ordered by study ID
// and result index.
func (s *ExtractionStore) ListBySearch(_ context.Context, searchID string) ([]domain.Extraction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Extraction
	for _, row := range s.rows {
		if row.SearchID == searchID {
			result = append(result, row)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.StudyID != b.StudyID {
			return studyNumber(a.StudyID) < studyNumber(b.StudyID)
		}
		return a.ResultIndex < b.ResultIndex
	})
	return result, nil
}

// DeleteByStudy removes all rows for a study.
func (s *ExtractionStore) DeleteByStudy(_ context.Context, searchID, studyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, row := range s.rows {
		if row.SearchID == searchID && row.StudyID == studyID {
			delete(s.rows, id)
		}
	}
	return nil
}

// UpdateMapping sets the mapped ontology terms on a row.
func (s *ExtractionStore) UpdateMapping(_ context.Context, id, intervention, outcome string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	row.MappedIntervention = intervention
	row.MappedOutcome = outcome
	s.rows[id] = row
	return nil
}
