package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dsp-labs/evidencer-cli/internal/core/domain"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driven"
)

// Ensure ReferenceStore implements the interface.
var _ driven.ReferenceStore = (*ReferenceStore)(nil)

// ReferenceStore is an in-memory implementation of driven.ReferenceStore.
type ReferenceStore struct {
	mu   sync.RWMutex
	refs map[string]map[string]domain.Reference // searchID -> studyID -> ref
}

// NewReferenceStore creates a new in-memory reference store.
func NewReferenceStore() *ReferenceStore {
	return &ReferenceStore{
		refs: make(map[string]map[string]domain.Reference),
	}
}

// SaveAll stores the references for a search run.
func (s *ReferenceStore) SaveAll(_ context.Context, refs []domain.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ref := range refs {
		if s.refs[ref.SearchID] == nil {
			s.refs[ref.SearchID] = make(map[string]domain.Reference)
		}
		s.refs[ref.SearchID][ref.StudyID] = ref
	}
	return nil
}

// Get retrieves a reference by study ID within a search run.
func (s *ReferenceStore) Get(_ context.Context, searchID, studyID string) (*domain.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.refs[searchID][studyID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &ref, nil
}

// ListBySearch returns all references for a search run in study ID order.
func (s *ReferenceStore) ListBySearch(_ context.Context, searchID string) ([]domain.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Reference, 0, len(s.refs[searchID]))
	for _, ref := range s.refs[searchID] {
		result = append(result, ref)
	}
	sort.Slice(result, func(i, j int) bool {
		return studyNumber(result[i].StudyID) < studyNumber(result[j].StudyID)
	})
	return result, nil
}

// studyNumber extracts the sequence number from a study_N identifier.
func studyNumber(studyID string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(studyID, "study_"))
	return n
}
