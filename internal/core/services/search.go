package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dsp-labs/evidencer-cli/internal/core/domain"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driven"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driving"
	"github.com/dsp-labs/evidencer-cli/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchPipeline = (*SearchService)(nil)

// downloadConcurrency bounds simultaneous PDF downloads. Open-access
// hosts are third-party servers; hammering them gets downloads blocked.
const downloadConcurrency = 4

// SearchService runs a literature search end to end: fetch works from
// the provider, screen them against the user's relevance description,
// assign study IDs, persist the kept references, and download
// open-access PDFs.
type SearchService struct {
	source      driven.LiteratureSource
	llm         driven.LLMService
	prompts     driven.PromptStore
	searchStore driven.SearchStore
	refStore    driven.ReferenceStore
	fetcher     driven.FileFetcher
	dataDir     string
}

// NewSearchService creates a search pipeline. The LLM service is
// optional; without it, searches with a relevance description fail with
// domain.ErrLLMUnavailable. The fetcher is optional; without it, PDF
// downloading is disabled.
func NewSearchService(
	source driven.LiteratureSource,
	llm driven.LLMService,
	prompts driven.PromptStore,
	searchStore driven.SearchStore,
	refStore driven.ReferenceStore,
	fetcher driven.FileFetcher,
	dataDir string,
) *SearchService {
	return &SearchService{
		source:      source,
		llm:         llm,
		prompts:     prompts,
		searchStore: searchStore,
		refStore:    refStore,
		fetcher:     fetcher,
		dataDir:     dataDir,
	}
}

// PDFDir returns the directory PDFs for a search run are stored in.
func (s *SearchService) PDFDir(searchID string) string {
	return filepath.Join(s.dataDir, "pdfs", searchID)
}

// Run executes a search request.
func (s *SearchService) Run(ctx context.Context, req driving.SearchRequest) (*driving.SearchReport, error) {
	if strings.TrimSpace(req.Term) == "" {
		return nil, fmt.Errorf("%w: search term is empty", domain.ErrInvalidInput)
	}
	if s.source == nil {
		return nil, fmt.Errorf("no literature source configured: %w", domain.ErrEmailRequired)
	}
	if req.Description != "" && s.llm == nil {
		return nil, fmt.Errorf("screening requires an LLM: %w", domain.ErrLLMUnavailable)
	}

	searchID := uuid.New().String()
	logger.Section("Search")
	logger.Info("Searching %s for %q", s.source.Name(), req.Term)

	// 1. Fetch works from the provider
	refs, fetched, err := s.fetchAll(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch works: %w", err)
	}
	logger.Info("Fetched %d works", fetched)

	// 2. Screen against the relevance description
	kept := refs
	if req.Description != "" {
		kept, err = s.screen(ctx, req.Description, refs)
		if err != nil {
			return nil, fmt.Errorf("screen references: %w", err)
		}
		logger.Info("Kept %d of %d references after screening", len(kept), fetched)
	}

	// 3. Assign sequential study IDs in screened order
	now := time.Now().UTC()
	for i := range kept {
		kept[i].StudyID = domain.StudyIDFor(i)
		kept[i].SearchID = searchID
		kept[i].Included = true
		kept[i].CreatedAt = now
	}

	// 4. Persist the run
	search := domain.Search{
		ID:           searchID,
		Term:         req.Term,
		Description:  req.Description,
		MinCitations: req.MinCitations,
		MaxWorks:     req.MaxWorks,
		Fetched:      fetched,
		Kept:         len(kept),
		CreatedAt:    now,
	}
	if err := s.searchStore.Save(ctx, search); err != nil {
		return nil, fmt.Errorf("save search: %w", err)
	}
	if err := s.refStore.SaveAll(ctx, kept); err != nil {
		return nil, fmt.Errorf("save references: %w", err)
	}

	report := &driving.SearchReport{
		SearchID: searchID,
		Fetched:  fetched,
		Kept:     len(kept),
	}

	// 5. Download open-access PDFs
	if !req.SkipPDFs && s.fetcher != nil {
		report.PDFDir = s.PDFDir(searchID)
		report.PDFsDownloaded = s.downloadPDFs(ctx, report.PDFDir, kept)
		logger.Info("Downloaded %d PDFs to %s", report.PDFsDownloaded, report.PDFDir)
	}

	return report, nil
}

// fetchAll drains the source's reference stream.
func (s *SearchService) fetchAll(ctx context.Context, req driving.SearchRequest) ([]domain.Reference, int, error) {
	refCh, errCh := s.source.Fetch(ctx, driven.SearchQuery{
		Term:         req.Term,
		MinCitations: req.MinCitations,
		MaxWorks:     req.MaxWorks,
	})

	var refs []domain.Reference
	for ref := range refCh {
		refs = append(refs, ref)
	}
	if err := <-errCh; err != nil {
		return nil, 0, err
	}
	return refs, len(refs), nil
}

// screen asks the LLM for an include/exclude verdict on each reference.
// A reference is kept only when the verdict contains "include" and not
// "exclude"; anything else, including an LLM failure, excludes it.
func (s *SearchService) screen(ctx context.Context, description string, refs []domain.Reference) ([]domain.Reference, error) {
	systemPrompt, err := s.prompts.Load(driven.PromptScreenSystem)
	if err != nil {
		return nil, fmt.Errorf("load screening system prompt: %w", err)
	}
	userTemplate, err := s.prompts.Load(driven.PromptScreen)
	if err != nil {
		return nil, fmt.Errorf("load screening prompt: %w", err)
	}

	var kept []domain.Reference
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ref.Title == "" || !ref.HasAbstract() {
			continue
		}

		verdict, err := s.llm.Chat(ctx, []driven.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(userTemplate, description, ref.Title, ref.Abstract)},
		}, driven.ChatOptions{Temperature: 0})
		if err != nil {
			logger.Warn("Screening failed for %q: %v", ref.Title, err)
			continue
		}

		verdict = strings.ToLower(verdict)
		if strings.Contains(verdict, "include") && !strings.Contains(verdict, "exclude") {
			kept = append(kept, ref)
		}
	}
	return kept, nil
}

// downloadPDFs fetches open-access PDFs concurrently. Individual
// failures are logged and skipped; a dead link must not abort the run.
func (s *SearchService) downloadPDFs(ctx context.Context, pdfDir string, refs []domain.Reference) int {
	if err := os.MkdirAll(pdfDir, 0700); err != nil {
		logger.Warn("Cannot create PDF directory %s: %v", pdfDir, err)
		return 0
	}

	var downloaded atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(downloadConcurrency)

	for _, ref := range refs {
		if strings.TrimSpace(ref.PDFURL) == "" {
			continue
		}
		g.Go(func() error {
			dest := filepath.Join(pdfDir, ref.PDFFilename())
			if err := s.fetcher.Fetch(ctx, ref.PDFURL, dest); err != nil {
				logger.Warn("Failed to download %s: %v", ref.PDFURL, err)
				return nil
			}
			logger.Debug("Downloaded %s", dest)
			downloaded.Add(1)
			return nil
		})
	}

	_ = g.Wait()
	return int(downloaded.Load())
}
