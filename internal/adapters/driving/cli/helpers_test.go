package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/dsp-labs/evidencer-cli/internal/adapters/driven/config/file"
	"github.com/dsp-labs/evidencer-cli/internal/adapters/driven/storage/memory"
	"github.com/dsp-labs/evidencer-cli/internal/core/domain"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driven"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driving"
)

// --- Mock driving services ---

type mockSearchPipeline struct {
	report  *driving.SearchReport
	err     error
	lastReq driving.SearchRequest
}

func (m *mockSearchPipeline) Run(_ context.Context, req driving.SearchRequest) (*driving.SearchReport, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		return m.report, nil
	}
	return &driving.SearchReport{SearchID: "s1", Fetched: 5, Kept: 3}, nil
}

type mockExtractPipeline struct {
	report  *driving.ExtractReport
	err     error
	lastReq driving.ExtractRequest
}

func (m *mockExtractPipeline) Run(_ context.Context, req driving.ExtractRequest) (*driving.ExtractReport, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		return m.report, nil
	}
	return &driving.ExtractReport{Studies: 3, Rows: 7}, nil
}

func (m *mockExtractPipeline) ExtractStudy(_ context.Context, _, studyID string, _ []string) ([]domain.Extraction, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []domain.Extraction{{StudyID: studyID}}, nil
}

type mockOntologyMapper struct {
	report  *driving.MapReport
	err     error
	lastReq driving.MapRequest
}

func (m *mockOntologyMapper) Run(_ context.Context, req driving.MapRequest) (*driving.MapReport, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		return m.report, nil
	}
	return &driving.MapReport{Rows: 7, Mapped: 6}, nil
}

type mockExporter struct {
	csv string
	n   int
	err error
}

func (m *mockExporter) ExportReferences(_ context.Context, _ string, w io.Writer) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	_, _ = io.WriteString(w, m.csv)
	return m.n, nil
}

func (m *mockExporter) ExportExtractions(_ context.Context, _ string, _ []string, w io.Writer) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	_, _ = io.WriteString(w, m.csv)
	return m.n, nil
}

// --- Mock driven services for status --check and config show ---

type mockLLMService struct {
	model   string
	pingErr error
}

func (m *mockLLMService) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	return "", nil
}

func (m *mockLLMService) Chat(_ context.Context, _ []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	return "", nil
}

func (m *mockLLMService) ModelName() string { return m.model }

func (m *mockLLMService) Ping(_ context.Context) error { return m.pingErr }

func (m *mockLLMService) Close() error { return nil }

type mockEmbeddingService struct {
	model   string
	pingErr error
}

func (m *mockEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, _ []string) ([][]float32, error) {
	return nil, nil
}

func (m *mockEmbeddingService) Dimensions() int { return 3 }

func (m *mockEmbeddingService) ModelName() string { return m.model }

func (m *mockEmbeddingService) Ping(_ context.Context) error { return m.pingErr }

func (m *mockEmbeddingService) Close() error { return nil }

type mockLiteratureSource struct {
	name        string
	validateErr error
}

func (m *mockLiteratureSource) Name() string { return m.name }

func (m *mockLiteratureSource) Validate(_ context.Context) error { return m.validateErr }

func (m *mockLiteratureSource) Fetch(_ context.Context, _ driven.SearchQuery) (<-chan domain.Reference, <-chan error) {
	refs := make(chan domain.Reference)
	errs := make(chan error, 1)
	close(refs)
	return refs, errs
}

type mockPromptDir struct {
	dir string
}

func (m *mockPromptDir) Load(_ string) (string, error) { return "", nil }

func (m *mockPromptDir) Reload() {}

func (m *mockPromptDir) Dir() string { return m.dir }

// setupTestServices wires mock services into the package vars and
// returns a cleanup that restores the previous wiring and resets flag
// state between tests.
func setupTestServices() func() {
	prevSearch := searchPipeline
	prevExtract := extractPipeline
	prevMapper := ontologyMapper
	prevExporter := exporter
	prevStore := searchStore
	prevConfig := configStore
	prevPrompts := promptStore
	prevSource := source
	prevLLM := llmService
	prevEmbedder := embedder
	prevDataDir := dataDir

	store := memory.NewSearchStore()
	_ = store.Save(context.Background(), domain.Search{
		ID: "s1", Term: "parenting", Fetched: 5, Kept: 3, CreatedAt: time.Now(),
	})

	tmpDir, _ := os.MkdirTemp("", "evidencer-cli-test")
	cfg, _ := file.NewConfigStore(tmpDir)

	SetServices(Services{
		Search:      &mockSearchPipeline{},
		Extract:     &mockExtractPipeline{},
		Mapper:      &mockOntologyMapper{},
		Exporter:    &mockExporter{csv: "study_id,title\nstudy_1,A\n", n: 1},
		SearchStore: store,
		Config:      cfg,
		DataDir:     tmpDir,
	})

	return func() {
		searchPipeline = prevSearch
		extractPipeline = prevExtract
		ontologyMapper = prevMapper
		exporter = prevExporter
		searchStore = prevStore
		configStore = prevConfig
		promptStore = prevPrompts
		source = prevSource
		llmService = prevLLM
		embedder = prevEmbedder
		dataDir = prevDataDir
		resetFlags()
		_ = os.RemoveAll(tmpDir)
	}
}

// resetFlags clears flag-bound package vars so one test's flags don't
// leak into the next.
func resetFlags() {
	searchDescription = ""
	searchMinCitations = ""
	searchMaxWorks = 0
	searchSkipPDFs = false
	extractItems = nil
	extractWorkers = 0
	extractWatch = false
	mapInterventions = ""
	mapOutcomes = ""
	exportOutput = ""
	exportItems = nil
	statusCheck = false
}
