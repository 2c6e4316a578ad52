package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dsp-labs/evidencer-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/dsp-labs/evidencer-cli/internal/core/domain"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// search, reference, and extraction stores through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.evidencer/data/evidence.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".evidencer", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "evidence.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SearchStore returns a SearchStore interface backed by this store.
func (s *Store) SearchStore() driven.SearchStore {
	return &searchStore{store: s}
}

// ReferenceStore returns a ReferenceStore interface backed by this store.
func (s *Store) ReferenceStore() driven.ReferenceStore {
	return &referenceStore{store: s}
}

// ExtractionStore returns an ExtractionStore interface backed by this store.
func (s *Store) ExtractionStore() driven.ExtractionStore {
	return &extractionStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Search Store ====================

// searchStore implements driven.SearchStore.
type searchStore struct {
	store *Store
}

var _ driven.SearchStore = (*searchStore)(nil)

// Save stores or updates a search run.
func (s *searchStore) Save(ctx context.Context, search domain.Search) error {
	if search.CreatedAt.IsZero() {
		search.CreatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO searches (id, term, description, min_citations, max_works, fetched, kept, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			term = excluded.term,
			description = excluded.description,
			min_citations = excluded.min_citations,
			max_works = excluded.max_works,
			fetched = excluded.fetched,
			kept = excluded.kept
	`, search.ID, search.Term, search.Description, search.MinCitations,
		search.MaxWorks, search.Fetched, search.Kept, search.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving search: %w", err)
	}
	return nil
}

// Get retrieves a search run by ID.
func (s *searchStore) Get(ctx context.Context, id string) (*domain.Search, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, term, description, min_citations, max_works, fetched, kept, created_at
		FROM searches WHERE id = ?
	`, id)
	return scanSearch(row)
}

// Latest returns the most recent search run.
func (s *searchStore) Latest(ctx context.Context) (*domain.Search, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, term, description, min_citations, max_works, fetched, kept, created_at
		FROM searches ORDER BY created_at DESC, id DESC LIMIT 1
	`)
	return scanSearch(row)
}

// List returns all search runs, newest first.
func (s *searchStore) List(ctx context.Context) ([]domain.Search, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, term, description, min_citations, max_works, fetched, kept, created_at
		FROM searches ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying searches: %w", err)
	}
	defer rows.Close()

	var searches []domain.Search //nolint:prealloc // size unknown from query
	for rows.Next() {
		var search domain.Search
		var createdAt sql.NullTime
		if err := rows.Scan(&search.ID, &search.Term, &search.Description, &search.MinCitations,
			&search.MaxWorks, &search.Fetched, &search.Kept, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning search: %w", err)
		}
		if createdAt.Valid {
			search.CreatedAt = createdAt.Time
		}
		searches = append(searches, search)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating searches: %w", err)
	}

	return searches, nil
}

// scanSearch scans a single search row.
func scanSearch(row *sql.Row) (*domain.Search, error) {
	var search domain.Search
	var createdAt sql.NullTime
	if err := row.Scan(&search.ID, &search.Term, &search.Description, &search.MinCitations,
		&search.MaxWorks, &search.Fetched, &search.Kept, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning search: %w", err)
	}
	if createdAt.Valid {
		search.CreatedAt = createdAt.Time
	}
	return &search, nil
}

// ==================== Reference Store ====================

// referenceStore implements driven.ReferenceStore.
type referenceStore struct {
	store *Store
}

var _ driven.ReferenceStore = (*referenceStore)(nil)

// SaveAll stores the references for a search run in one transaction.
func (s *referenceStore) SaveAll(ctx context.Context, refs []domain.Reference) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO study_references
			(search_id, study_id, title, doi, publication_year, abstract,
			 landing_page_url, pdf_url, is_oa, included, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(search_id, study_id) DO UPDATE SET
			title = excluded.title,
			doi = excluded.doi,
			publication_year = excluded.publication_year,
			abstract = excluded.abstract,
			landing_page_url = excluded.landing_page_url,
			pdf_url = excluded.pdf_url,
			is_oa = excluded.is_oa,
			included = excluded.included
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, ref := range refs {
		createdAt := ref.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := stmt.ExecContext(ctx, ref.SearchID, ref.StudyID, ref.Title, ref.DOI,
			ref.PublicationYear, ref.Abstract, ref.LandingPageURL, ref.PDFURL,
			ref.OpenAccess, ref.Included, createdAt); err != nil {
			return fmt.Errorf("saving reference %s: %w", ref.StudyID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Get retrieves a reference by study ID within a search run.
func (s *referenceStore) Get(ctx context.Context, searchID, studyID string) (*domain.Reference, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT search_id, study_id, title, doi, publication_year, abstract,
		       landing_page_url, pdf_url, is_oa, included, created_at
		FROM study_references WHERE search_id = ? AND study_id = ?
	`, searchID, studyID)

	ref, err := scanReference(row)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// ListBySearch returns all references for a search run in study ID order.
func (s *referenceStore) ListBySearch(ctx context.Context, searchID string) ([]domain.Reference, error) {
	// study_N sorts lexicographically wrong past study_9; order by the
	// numeric suffix instead.
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT search_id, study_id, title, doi, publication_year, abstract,
		       landing_page_url, pdf_url, is_oa, included, created_at
		FROM study_references WHERE search_id = ?
		ORDER BY CAST(substr(study_id, 7) AS INTEGER)
	`, searchID)
	if err != nil {
		return nil, fmt.Errorf("querying references: %w", err)
	}
	defer rows.Close()

	var refs []domain.Reference //nolint:prealloc // size unknown from query
	for rows.Next() {
		var ref domain.Reference
		var createdAt sql.NullTime
		if err := rows.Scan(&ref.SearchID, &ref.StudyID, &ref.Title, &ref.DOI,
			&ref.PublicationYear, &ref.Abstract, &ref.LandingPageURL, &ref.PDFURL,
			&ref.OpenAccess, &ref.Included, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning reference: %w", err)
		}
		if createdAt.Valid {
			ref.CreatedAt = createdAt.Time
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating references: %w", err)
	}

	return refs, nil
}

// scanReference scans a single reference row.
func scanReference(row *sql.Row) (*domain.Reference, error) {
	var ref domain.Reference
	var createdAt sql.NullTime
	if err := row.Scan(&ref.SearchID, &ref.StudyID, &ref.Title, &ref.DOI,
		&ref.PublicationYear, &ref.Abstract, &ref.LandingPageURL, &ref.PDFURL,
		&ref.OpenAccess, &ref.Included, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning reference: %w", err)
	}
	if createdAt.Valid {
		ref.CreatedAt = createdAt.Time
	}
	return &ref, nil
}

// ==================== Extraction Store ====================

// extractionStore implements driven.ExtractionStore.
type extractionStore struct {
	store *Store
}

var _ driven.ExtractionStore = (*extractionStore)(nil)

// Save stores or updates one extraction row.
func (s *extractionStore) Save(ctx context.Context, ex domain.Extraction) error {
	extrasJSON, err := json.Marshal(ex.Extras)
	if err != nil {
		return fmt.Errorf("marshalling extras: %w", err)
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO extractions
			(id, search_id, study_id, filename,
			 study_title, outcome_population, intervention_population,
			 secondary_characteristics, country, study_type, num_main_results,
			 result_index, result_text,
			 effect_size_type, effect_size, uncertainty, p_value, sample_size,
			 intervention, outcome, extras,
			 mapped_intervention, mapped_outcome, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			study_title = excluded.study_title,
			outcome_population = excluded.outcome_population,
			intervention_population = excluded.intervention_population,
			secondary_characteristics = excluded.secondary_characteristics,
			country = excluded.country,
			study_type = excluded.study_type,
			num_main_results = excluded.num_main_results,
			result_index = excluded.result_index,
			result_text = excluded.result_text,
			effect_size_type = excluded.effect_size_type,
			effect_size = excluded.effect_size,
			uncertainty = excluded.uncertainty,
			p_value = excluded.p_value,
			sample_size = excluded.sample_size,
			intervention = excluded.intervention,
			outcome = excluded.outcome,
			extras = excluded.extras,
			mapped_intervention = excluded.mapped_intervention,
			mapped_outcome = excluded.mapped_outcome
	`, ex.ID, ex.SearchID, ex.StudyID, ex.Filename,
		ex.Meta.StudyTitle, ex.Meta.OutcomePopulation, ex.Meta.InterventionPopulation,
		ex.Meta.SecondaryCharacteristics, ex.Meta.Country, ex.Meta.StudyType, ex.Meta.NumMainResults,
		ex.ResultIndex, ex.ResultText,
		ex.Detail.EffectSizeType, ex.Detail.EffectSize, ex.Detail.Uncertainty,
		ex.Detail.PValue, ex.Detail.SampleSize,
		ex.Detail.Intervention, ex.Detail.Outcome, string(extrasJSON),
		ex.MappedIntervention, ex.MappedOutcome, ex.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving extraction: %w", err)
	}
	return nil
}

// ListBySearch returns all extraction rows for a search run, ordered by
// study and result index.
func (s *extractionStore) ListBySearch(ctx context.Context, searchID string) ([]domain.Extraction, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, search_id, study_id, filename,
		       study_title, outcome_population, intervention_population,
		       secondary_characteristics, country, study_type, num_main_results,
		       result_index, result_text,
		       effect_size_type, effect_size, uncertainty, p_value, sample_size,
		       intervention, outcome, extras,
		       mapped_intervention, mapped_outcome, created_at
		FROM extractions WHERE search_id = ?
		ORDER BY CAST(substr(study_id, 7) AS INTEGER), result_index
	`, searchID)
	if err != nil {
		return nil, fmt.Errorf("querying extractions: %w", err)
	}
	defer rows.Close()

	var extractions []domain.Extraction //nolint:prealloc // size unknown from query
	for rows.Next() {
		var ex domain.Extraction
		var extrasJSON string
		var createdAt sql.NullTime
		if err := rows.Scan(&ex.ID, &ex.SearchID, &ex.StudyID, &ex.Filename,
			&ex.Meta.StudyTitle, &ex.Meta.OutcomePopulation, &ex.Meta.InterventionPopulation,
			&ex.Meta.SecondaryCharacteristics, &ex.Meta.Country, &ex.Meta.StudyType,
			&ex.Meta.NumMainResults, &ex.ResultIndex, &ex.ResultText,
			&ex.Detail.EffectSizeType, &ex.Detail.EffectSize, &ex.Detail.Uncertainty,
			&ex.Detail.PValue, &ex.Detail.SampleSize,
			&ex.Detail.Intervention, &ex.Detail.Outcome, &extrasJSON,
			&ex.MappedIntervention, &ex.MappedOutcome, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning extraction: %w", err)
		}

		if err := json.Unmarshal([]byte(extrasJSON), &ex.Extras); err != nil {
			return nil, fmt.Errorf("unmarshaling extras: %w", err)
		}
		if createdAt.Valid {
			ex.CreatedAt = createdAt.Time
		}
		extractions = append(extractions, ex)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating extractions: %w", err)
	}

	return extractions, nil
}

// DeleteByStudy removes all rows for a study.
func (s *extractionStore) DeleteByStudy(ctx context.Context, searchID, studyID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM extractions WHERE search_id = ? AND study_id = ?", searchID, studyID)
	if err != nil {
		return fmt.Errorf("deleting extractions: %w", err)
	}
	return nil
}

// UpdateMapping sets the mapped ontology terms on a row.
func (s *extractionStore) UpdateMapping(ctx context.Context, id, intervention, outcome string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE extractions SET mapped_intervention = ?, mapped_outcome = ? WHERE id = ?
	`, intervention, outcome, id)
	if err != nil {
		return fmt.Errorf("updating mapping: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
