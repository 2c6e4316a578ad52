package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dsp-labs/evidencer-cli/internal/core/domain"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driven"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driving"
	"github.com/dsp-labs/evidencer-cli/internal/logger"
)

// Ensure ExtractService implements the interface.
var _ driving.ExtractionPipeline = (*ExtractService)(nil)

// DefaultWorkers bounds concurrent study extraction when the request
// doesn't specify a worker count.
const DefaultWorkers = 4

// Answer counts of the fixed extraction passes.
const (
	metaAnswerCount   = 8
	detailAnswerCount = 7
)

// ExtractService runs the three-pass extraction over a search run's
// studies. Pass 1 pulls study-level meta information, pass 2 pulls
// effect details for each main result, pass 3 answers user-supplied
// extra items. Each main result becomes one evidence row.
type ExtractService struct {
	llm         driven.LLMService
	prompts     driven.PromptStore
	searchStore driven.SearchStore
	refStore    driven.ReferenceStore
	exStore     driven.ExtractionStore
	pdfText     driven.TextExtractor
	dataDir     string
}

// NewExtractService creates an extraction pipeline. The text extractor
// is optional; without it, extraction always falls back to the stored
// abstract.
func NewExtractService(
	llm driven.LLMService,
	prompts driven.PromptStore,
	searchStore driven.SearchStore,
	refStore driven.ReferenceStore,
	exStore driven.ExtractionStore,
	pdfText driven.TextExtractor,
	dataDir string,
) *ExtractService {
	return &ExtractService{
		llm:         llm,
		prompts:     prompts,
		searchStore: searchStore,
		refStore:    refStore,
		exStore:     exStore,
		pdfText:     pdfText,
		dataDir:     dataDir,
	}
}

// Run extracts every study of the search run.
func (s *ExtractService) Run(ctx context.Context, req driving.ExtractRequest) (*driving.ExtractReport, error) {
	if s.llm == nil {
		return nil, fmt.Errorf("extraction requires an LLM: %w", domain.ErrLLMUnavailable)
	}

	search, err := s.resolveSearch(ctx, req.SearchID)
	if err != nil {
		return nil, err
	}

	refs, err := s.refStore.ListBySearch(ctx, search.ID)
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("search %s has no references: %w", search.ID, domain.ErrNotFound)
	}

	workers := req.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	logger.Section("Extraction")
	logger.Info("Extracting %d studies with %d workers", len(refs), workers)

	report := &driving.ExtractReport{Studies: len(refs)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, ref := range refs {
		g.Go(func() error {
			rows, err := s.ExtractStudy(gctx, search.ID, ref.StudyID, req.ExtraItems)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, domain.ErrNoText):
				logger.Warn("Skipping %s: no PDF text or abstract", ref.StudyID)
				report.Skipped++
			case err != nil:
				logger.Warn("Extraction failed for %s: %v", ref.StudyID, err)
				report.Failed++
			default:
				report.Rows += len(rows)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("Extracted %d rows (%d skipped, %d failed)", report.Rows, report.Skipped, report.Failed)
	return report, nil
}

// ExtractStudy runs the three passes for a single study and persists
// the resulting rows, replacing any rows from a previous extraction.
func (s *ExtractService) ExtractStudy(ctx context.Context, searchID, studyID string, extraItems []string) ([]domain.Extraction, error) {
	ref, err := s.refStore.Get(ctx, searchID, studyID)
	if err != nil {
		return nil, fmt.Errorf("get reference: %w", err)
	}

	text, filename, err := s.paperText(ctx, *ref)
	if err != nil {
		return nil, err
	}

	// Pass 1: study-level meta information
	meta, err := s.extractMeta(ctx, studyID, text)
	if err != nil {
		return nil, fmt.Errorf("meta pass: %w", err)
	}

	// Pass 3 runs once per study; its answers repeat on every row
	var extras []string
	if len(extraItems) > 0 {
		extras, err = s.extractExtras(ctx, text, extraItems)
		if err != nil {
			logger.Warn("Extras pass failed for %s: %v", studyID, err)
			extras = make([]string, len(extraItems))
			for i := range extras {
				extras[i] = domain.NA
			}
		}
	}

	results := domain.SplitMainResults(meta.MainResults)
	if declared := domain.DeclaredResultCount(meta); declared != len(results) {
		logger.Debug("%s: declared %d main results, parsed %d", studyID, declared, len(results))
	}

	now := time.Now().UTC()
	newRow := func(index int, resultText string, detail domain.ResultDetail) domain.Extraction {
		return domain.Extraction{
			ID:                 uuid.New().String(),
			SearchID:           searchID,
			StudyID:            studyID,
			Filename:           filename,
			Meta:               meta,
			ResultIndex:        index,
			ResultText:         resultText,
			Detail:             detail,
			Extras:             extras,
			MappedIntervention: domain.NA,
			MappedOutcome:      domain.NA,
			CreatedAt:          now,
		}
	}

	var rows []domain.Extraction
	if len(results) == 0 {
		// Still emit one row so the study appears in the evidence base
		rows = append(rows, newRow(0, domain.NA, domain.NAResultDetail()))
	} else {
		// Pass 2: effect details per main result
		for i, resultText := range results {
			detail, err := s.extractDetail(ctx, text, resultText)
			if err != nil {
				logger.Warn("Detail pass failed for %s result %d: %v", studyID, i+1, err)
				detail = domain.NAResultDetail()
			}
			rows = append(rows, newRow(i+1, resultText, detail))
		}
	}

	// Replace any rows from a previous run
	if err := s.exStore.DeleteByStudy(ctx, searchID, studyID); err != nil {
		return nil, fmt.Errorf("clear previous rows: %w", err)
	}
	for _, row := range rows {
		if err := s.exStore.Save(ctx, row); err != nil {
			return nil, fmt.Errorf("save row: %w", err)
		}
	}

	return rows, nil
}

// resolveSearch returns the named search run, or the latest when no ID
// is given.
func (s *ExtractService) resolveSearch(ctx context.Context, searchID string) (*domain.Search, error) {
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

// paperText returns the best available text for a study: extracted PDF
// text when a downloaded PDF exists, otherwise the stored abstract.
// Returns the PDF filename when the PDF was used, "" otherwise.
func (s *ExtractService) paperText(ctx context.Context, ref domain.Reference) (string, string, error) {
	if s.pdfText != nil {
		pdfPath := filepath.Join(s.dataDir, "pdfs", ref.SearchID, ref.PDFFilename())
		if _, err := os.Stat(pdfPath); err == nil {
			text, err := s.pdfText.ExtractText(ctx, pdfPath)
			if err != nil {
				logger.Warn("PDF text extraction failed for %s: %v", pdfPath, err)
			} else if text != "" {
				return text, ref.PDFFilename(), nil
			}
		}
	}

	if ref.HasAbstract() {
		logger.Debug("%s: using abstract fallback", ref.StudyID)
		return ref.Abstract, "", nil
	}
	return "", "", domain.ErrNoText
}

// extractMeta runs pass 1 and parses the eight enumerated answers. An
// LLM failure degrades to an all-NA meta so the study still yields a
// row; only a prompt store failure is an error.
func (s *ExtractService) extractMeta(ctx context.Context, studyID, text string) (domain.MetaInfo, error) {
	prompt, err := s.prompts.Load(driven.PromptMeta)
	if err != nil {
		return domain.NAMetaInfo(), fmt.Errorf("load meta prompt: %w", err)
	}

	content, err := s.llm.Generate(ctx, prompt+"\n\nPaper text:\n"+text, driven.GenerateOptions{Temperature: 0})
	if err != nil {
		logger.Warn("Meta pass failed for %s: %v", studyID, err)
		return domain.NAMetaInfo(), nil
	}

	a := domain.ParseEnumerated(content, metaAnswerCount)
	return domain.MetaInfo{
		StudyTitle:               a[0],
		OutcomePopulation:        a[1],
		InterventionPopulation:   a[2],
		SecondaryCharacteristics: a[3],
		Country:                  a[4],
		StudyType:                a[5],
		NumMainResults:           a[6],
		MainResults:              a[7],
	}, nil
}

// extractDetail runs pass 2 for one main result.
func (s *ExtractService) extractDetail(ctx context.Context, text, resultText string) (domain.ResultDetail, error) {
	template, err := s.prompts.Load(driven.PromptDetail)
	if err != nil {
		return domain.NAResultDetail(), fmt.Errorf("load detail prompt: %w", err)
	}

	prompt := fmt.Sprintf(template, resultText) + "\n\nPaper text:\n" + text
	content, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: 0})
	if err != nil {
		return domain.NAResultDetail(), err
	}

	a := domain.ParseEnumerated(content, detailAnswerCount)
	return domain.ResultDetail{
		EffectSizeType: a[0],
		EffectSize:     a[1],
		Uncertainty:    a[2],
		PValue:         a[3],
		SampleSize:     a[4],
		Intervention:   a[5],
		Outcome:        a[6],
	}, nil
}

// extractExtras runs pass 3 for the user-supplied items.
func (s *ExtractService) extractExtras(ctx context.Context, text string, items []string) ([]string, error) {
	header, err := s.prompts.Load(driven.PromptExtras)
	if err != nil {
		return nil, fmt.Errorf("load extras prompt: %w", err)
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\nItems:\n")
	for i, item := range items {
		fmt.Fprintf(&b, "%d: %s\n", i+1, item)
	}
	b.WriteString("\nPaper text:\n")
	b.WriteString(text)

	content, err := s.llm.Generate(ctx, b.String(), driven.GenerateOptions{Temperature: 0})
	if err != nil {
		return nil, err
	}
	return domain.ParseEnumerated(content, len(items)), nil
}
