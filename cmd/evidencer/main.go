// Command evidencer builds an evidence base from the scientific
// literature: OpenAlex search, LLM screening, three-pass extraction,
// ontology mapping and CSV export.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dsp-labs/evidencer-cli/internal/adapters/driven/config/file"
	embeddingopenai "github.com/dsp-labs/evidencer-cli/internal/adapters/driven/embedding/openai"
	"github.com/dsp-labs/evidencer-cli/internal/adapters/driven/fetch"
	llmopenai "github.com/dsp-labs/evidencer-cli/internal/adapters/driven/llm/openai"
	"github.com/dsp-labs/evidencer-cli/internal/adapters/driven/pdftext"
	"github.com/dsp-labs/evidencer-cli/internal/adapters/driven/storage/sqlite"
	"github.com/dsp-labs/evidencer-cli/internal/adapters/driving/cli"
	"github.com/dsp-labs/evidencer-cli/internal/connectors/openalex"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driven"
	"github.com/dsp-labs/evidencer-cli/internal/core/services"
	"github.com/dsp-labs/evidencer-cli/internal/logger"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	promptStore, err := file.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("open prompts: %w", err)
	}

	dataDir, err := resolveDataDir(os.Args[1:])
	if err != nil {
		return err
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	// The literature source needs a contact email; without one the
	// search command reports the misconfiguration when run.
	var source driven.LiteratureSource
	if email := resolveEmail(configStore); email != "" {
		source, err = openalex.NewClient(openalex.Config{Email: email})
		if err != nil {
			return fmt.Errorf("openalex client: %w", err)
		}
	}

	// LLM and embeddings are optional at startup; commands that need
	// them fail with a hint when no API key is configured.
	var llm driven.LLMService
	var embedder driven.EmbeddingService
	if apiKey := resolveAPIKey(configStore); apiKey != "" {
		llm, err = llmopenai.NewLLMService(llmopenai.LLMConfig{
			APIKey: apiKey,
			Model:  configStore.GetString(file.KeyLLMModel),
		})
		if err != nil {
			return fmt.Errorf("llm service: %w", err)
		}
		defer llm.Close()

		embedder, err = embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
			APIKey: apiKey,
			Model:  configStore.GetString(file.KeyEmbeddingModel),
		})
		if err != nil {
			return fmt.Errorf("embedding service: %w", err)
		}
		defer embedder.Close()
	}

	var textExtractor driven.TextExtractor
	if pdftext.Available() {
		textExtractor = pdftext.New()
	} else {
		logger.Debug("pdftotext not found, extraction falls back to abstracts")
	}

	searchStore := store.SearchStore()
	refStore := store.ReferenceStore()
	exStore := store.ExtractionStore()

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Search:      services.NewSearchService(source, llm, promptStore, searchStore, refStore, fetch.New(), dataDir),
		Extract:     services.NewExtractService(llm, promptStore, searchStore, refStore, exStore, textExtractor, dataDir),
		Mapper:      services.NewMapService(embedder, searchStore, exStore),
		Exporter:    services.NewExportService(searchStore, refStore, exStore),
		SearchStore: searchStore,
		Config:      configStore,
		Prompts:     promptStore,
		Source:      source,
		LLM:         llm,
		Embedder:    embedder,
		DataDir:     dataDir,
	})

	return cli.Execute()
}

// resolveDataDir scans the raw arguments for --data-dir ahead of
// cobra's flag parsing, because the stores must open before Execute.
// Falls back to EVIDENCER_DATA_DIR, then ~/.evidencer/data.
func resolveDataDir(args []string) (string, error) {
	for i, arg := range args {
		switch {
		case arg == "--data-dir" && i+1 < len(args):
			return args[i+1], nil
		case strings.HasPrefix(arg, "--data-dir="):
			return strings.TrimPrefix(arg, "--data-dir="), nil
		}
	}
	if dir := os.Getenv("EVIDENCER_DATA_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".evidencer", "data"), nil
}

// resolveEmail prefers the OPENALEX_EMAIL environment variable over the
// stored configuration.
func resolveEmail(cfg driven.ConfigStore) string {
	if email := os.Getenv("OPENALEX_EMAIL"); email != "" {
		return email
	}
	return cfg.GetString(file.KeyEmail)
}

// resolveAPIKey prefers the OPENAI_API_KEY environment variable over
// the key stored with 'evidencer config set-key'.
func resolveAPIKey(cfg driven.ConfigStore) string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	return cfg.GetString(file.KeyAPIKey)
}
