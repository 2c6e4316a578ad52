package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dsp-labs/evidencer-cli/internal/core/domain"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driven"
)

// Ensure SearchStore implements the interface.
var _ driven.SearchStore = (*SearchStore)(nil)

// SearchStore is an in-memory implementation of driven.SearchStore.
type SearchStore struct {
	mu       sync.RWMutex
	searches map[string]domain.Search
}

// NewSearchStore creates a new in-memory search store.
func NewSearchStore() *SearchStore {
	return &SearchStore{
		searches: make(map[string]domain.Search),
	}
}

// Save stores or updates a search run.
func (s *SearchStore) Save(_ context.Context, search domain.Search) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches[search.ID] = search
	return nil
}

// Get retrieves a search run by ID.
func (s *SearchStore) Get(_ context.Context, id string) (*domain.Search, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search, ok := s.searches[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &search, nil
}

// Latest returns the most recent search run.
func (s *SearchStore) Latest(_ context.Context) (*domain.Search, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *domain.Search
	for _, search := range s.searches {
		if latest == nil || search.CreatedAt.After(latest.CreatedAt) {
			s := search
			latest = &s
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

// List returns all search runs, newest first.
func (s *SearchStore) List(_ context.Context) ([]domain.Search, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Search, 0, len(s.searches))
	for _, search := range s.searches {
		result = append(result, search)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
