package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/dsp-labs/evidencer-cli/internal/core/domain"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driven"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driving"
	"github.com/dsp-labs/evidencer-cli/internal/logger"
)

// Ensure MapService implements the interface.
var _ driving.OntologyMapper = (*MapService)(nil)

// MapService assigns canonical ontology terms to extracted intervention
// and outcome variables by embedding both and matching on cosine
// similarity.
type MapService struct {
	embedder    driven.EmbeddingService
	searchStore driven.SearchStore
	exStore     driven.ExtractionStore
}

// NewMapService creates an ontology mapper.
func NewMapService(
	embedder driven.EmbeddingService,
	searchStore driven.SearchStore,
	exStore driven.ExtractionStore,
) *MapService {
	return &MapService{
		embedder:    embedder,
		searchStore: searchStore,
		exStore:     exStore,
	}
}

// Run maps every extraction row of the search run.
func (s *MapService) Run(ctx context.Context, req driving.MapRequest) (*driving.MapReport, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("mapping requires embeddings: %w", domain.ErrEmbeddingUnavailable)
	}

	search, err := s.resolveSearch(ctx, req.SearchID)
	if err != nil {
		return nil, err
	}

	interventions, err := LoadOntology(req.InterventionOntologyPath, domain.OntologyIntervention)
	if err != nil {
		return nil, fmt.Errorf("load intervention ontology: %w", err)
	}
	outcomes, err := LoadOntology(req.OutcomeOntologyPath, domain.OntologyOutcome)
	if err != nil {
		return nil, fmt.Errorf("load outcome ontology: %w", err)
	}

	rows, err := s.exStore.ListBySearch(ctx, search.ID)
	if err != nil {
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("search %s has no extraction rows: %w", search.ID, domain.ErrNotFound)
	}

	logger.Section("Ontology mapping")
	logger.Info("Mapping %d rows against %d intervention and %d outcome terms",
		len(rows), len(interventions.Terms), len(outcomes.Terms))

	interventionIndex, err := s.buildIndex(ctx, interventions)
	if err != nil {
		return nil, fmt.Errorf("embed intervention ontology: %w", err)
	}
	outcomeIndex, err := s.buildIndex(ctx, outcomes)
	if err != nil {
		return nil, fmt.Errorf("embed outcome ontology: %w", err)
	}

	report := &driving.MapReport{Rows: len(rows)}
	// Variables repeat across rows; embed each distinct text once
	cache := make(map[string]domain.TermMatch)

	for _, row := range rows {
		interv := s.match(ctx, row.Detail.Intervention, interventionIndex, cache)
		outcome := s.match(ctx, row.Detail.Outcome, outcomeIndex, cache)

		if err := s.exStore.UpdateMapping(ctx, row.ID, interv.Term, outcome.Term); err != nil {
			return nil, fmt.Errorf("update mapping for %s: %w", row.StudyID, err)
		}
		if interv.Term != domain.NA || outcome.Term != domain.NA {
			report.Mapped++
		}
	}

	logger.Info("Mapped %d of %d rows", report.Mapped, report.Rows)
	return report, nil
}

func (s *MapService) resolveSearch(ctx context.Context, searchID string) (*domain.Search, error) {
	if searchID == "" {
		search, err := s.searchStore.Latest(ctx)
		if err != nil {
			return nil, fmt.Errorf("no search runs found: %w", err)
		}
		return search, nil
	}
	search, err := s.searchStore.Get(ctx, searchID)
	if err != nil {
		return nil, fmt.Errorf("get search %s: %w", searchID, err)
	}
	return search, nil
}

// termIndex pairs ontology terms with their embeddings.
type termIndex struct {
	terms   []string
	vectors [][]float32
}

// buildIndex embeds every ontology term in one batch. An empty
// ontology produces an empty index that never matches.
func (s *MapService) buildIndex(ctx context.Context, o domain.Ontology) (*termIndex, error) {
	if o.Empty() {
		return &termIndex{}, nil
	}
	vectors, err := s.embedder.EmbedBatch(ctx, o.Terms)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(o.Terms) {
		return nil, fmt.Errorf("embedding count mismatch: %d terms, %d vectors", len(o.Terms), len(vectors))
	}
	return &termIndex{terms: o.Terms, vectors: vectors}, nil
}

// match finds the ontology term closest to the extracted variable text.
// NA or empty variables never match, and neither does an empty index.
// An embedding failure degrades the lookup to NA rather than aborting
// the run. The cache key includes the first term of the index so
// intervention and outcome lookups don't collide.
func (s *MapService) match(ctx context.Context, text string, index *termIndex, cache map[string]domain.TermMatch) domain.TermMatch {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, domain.NA) || len(index.terms) == 0 {
		return domain.NoMatch()
	}

	key := index.terms[0] + "\x00" + text
	if m, ok := cache[key]; ok {
		return m
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		logger.Warn("Embedding failed for %q: %v", text, err)
		return domain.NoMatch()
	}

	best := domain.NoMatch()
	for i, termVector := range index.vectors {
		if sim := CosineSimilarity(vector, termVector); sim > best.Similarity || best.Term == domain.NA {
			best = domain.TermMatch{Term: index.terms[i], Similarity: sim}
		}
	}

	cache[key] = best
	return best
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// LoadOntology reads a flat term list from a CSV or JSON file. CSV files
// use the 'term' column when a header declares one, otherwise the first
// column. JSON files hold either a list of strings or a list of objects
// with a "term" key.
func LoadOntology(path string, kind domain.OntologyKind) (domain.Ontology, error) {
	o := domain.Ontology{Kind: kind, Source: path}

	var terms []string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		terms, err = loadCSVTerms(path)
	case ".json":
		terms, err = loadJSONTerms(path)
	default:
		return o, fmt.Errorf("%w: %s (want .csv or .json)", domain.ErrUnsupportedFormat, path)
	}
	if err != nil {
		return o, err
	}

	// De-duplicate while preserving file order
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		o.Terms = append(o.Terms, t)
	}

	if o.Empty() {
		logger.Warn("Ontology %s contains no terms, its mappings will all be NA", path)
	}
	return o, nil
}

func loadCSVTerms(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Find the 'term' column if a header names one, else use column 0
	col := 0
	startRow := 0
	for i, name := range records[0] {
		if strings.EqualFold(strings.TrimSpace(name), "term") {
			col = i
			startRow = 1
			break
		}
	}

	var terms []string
	for _, record := range records[startRow:] {
		if col < len(record) {
			terms = append(terms, record[col])
		}
	}
	return terms, nil
}

func loadJSONTerms(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var plain []string
	if err := json.Unmarshal(data, &plain); err == nil {
		return plain, nil
	}

	var objects []map[string]any
	if err := json.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	var terms []string
	for _, obj := range objects {
		if term, ok := obj["term"].(string); ok {
			terms = append(terms, term)
		}
	}
	return terms, nil
}
