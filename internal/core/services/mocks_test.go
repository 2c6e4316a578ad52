package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dsp-labs/evidencer-cli/internal/core/domain"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

// mockSource implements driven.LiteratureSource.
type mockSource struct {
	refs     []domain.Reference
	fetchErr error
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) Validate(_ context.Context) error { return nil }

func (m *mockSource) Fetch(_ context.Context, _ driven.SearchQuery) (<-chan domain.Reference, <-chan error) {
	refCh := make(chan domain.Reference, len(m.refs))
	errCh := make(chan error, 1)
	for _, ref := range m.refs {
		refCh <- ref
	}
	close(refCh)
	errCh <- m.fetchErr
	close(errCh)
	return refCh, errCh
}

// mockLLM implements driven.LLMService. generateFn and chatFn let each
// test script the responses.
type mockLLM struct {
	generateFn func(prompt string) (string, error)
	chatFn     func(messages []driven.ChatMessage) (string, error)
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	if m.generateFn == nil {
		return "", nil
	}
	return m.generateFn(prompt)
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	if m.chatFn == nil {
		return "", nil
	}
	return m.chatFn(messages)
}

func (m *mockLLM) ModelName() string { return "mock-llm" }

func (m *mockLLM) Ping(_ context.Context) error { return nil }

func (m *mockLLM) Close() error { return nil }

// mockEmbedder implements driven.EmbeddingService with a fixed
// text-to-vector table.
type mockEmbedder struct {
	vectors  map[string][]float32
	embedErr error // single Embed calls only
	batchErr error // EmbedBatch calls only
}

func (m *mockEmbedder) vectorFor(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	return []float32{0, 0, 1}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	result := make([][]float32, 0, len(texts))
	for _, text := range texts {
		result = append(result, m.vectorFor(text))
	}
	return result, nil
}

func (m *mockEmbedder) Dimensions() int { return 3 }

func (m *mockEmbedder) ModelName() string { return "mock-embedding" }

func (m *mockEmbedder) Ping(_ context.Context) error { return nil }

func (m *mockEmbedder) Close() error { return nil }

// mockPrompts implements driven.PromptStore with marker templates so
// tests can tell the passes apart by prompt prefix.
type mockPrompts struct{}

func (m *mockPrompts) Load(name string) (string, error) {
	switch name {
	case driven.PromptScreenSystem:
		return "SCREEN_SYSTEM", nil
	case driven.PromptScreen:
		return "SCREEN desc=%s title=%s abstract=%s", nil
	case driven.PromptMeta:
		return "META", nil
	case driven.PromptDetail:
		return "DETAIL result=%s", nil
	case driven.PromptExtras:
		return "EXTRAS", nil
	}
	return "", fmt.Errorf("unknown prompt %q", name)
}

func (m *mockPrompts) Reload() {}

func (m *mockPrompts) Dir() string { return "" }

// mockFetcher implements driven.FileFetcher, recording fetched URLs and
// writing a stub file to the destination.
type mockFetcher struct {
	mu       sync.Mutex
	fetched  []string
	fetchErr error
}

func (m *mockFetcher) Fetch(_ context.Context, url, destPath string) error {
	if m.fetchErr != nil {
		return m.fetchErr
	}
	m.mu.Lock()
	m.fetched = append(m.fetched, url)
	m.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(destPath), 0700); err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte("%PDF-1.4 stub"), 0600)
}

func (m *mockFetcher) urls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fetched...)
}

// mockTextExtractor implements driven.TextExtractor with a fixed result.
type mockTextExtractor struct {
	text string
	err  error
}

func (m *mockTextExtractor) ExtractText(_ context.Context, _ string) (string, error) {
	return m.text, m.err
}
