// Package cli implements the evidencer command-line interface using
// cobra. Commands talk to the core services through the driving ports;
// concrete services are injected by main via SetServices.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driven"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driving"
	"github.com/dsp-labs/evidencer-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services injected by main. Commands check for nil and fail with a
// configuration hint, so a partially wired binary still starts.
var (
	searchPipeline  driving.SearchPipeline
	extractPipeline driving.ExtractionPipeline
	ontologyMapper  driving.OntologyMapper
	exporter        driving.Exporter
	searchStore     driven.SearchStore
	configStore     driven.ConfigStore
	promptStore     driven.PromptStore
	source          driven.LiteratureSource
	llmService      driven.LLMService
	embedder        driven.EmbeddingService
	dataDir         string
)

var (
	verbose bool

	// dataDirFlag mirrors the --data-dir value. main resolves the
	// directory before Execute (the stores open before flag parsing),
	// so the flag is registered here only for help output and
	// validation.
	dataDirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "evidencer",
	Short: "Build an evidence base from the scientific literature",
	Long: `Evidencer assembles structured evidence from the scientific literature.

It searches OpenAlex for relevant works, screens them against your
description with an LLM, downloads open-access PDFs, extracts effect
sizes and study design in three LLM passes, maps the extracted
variables onto your ontologies, and exports the result as CSV.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (default ~/.evidencer/data)")
}

// Services bundles everything the commands need. LLM, Embedder and
// Source may be nil when not configured; commands that inspect them
// report "not configured" instead of failing.
type Services struct {
	Search      driving.SearchPipeline
	Extract     driving.ExtractionPipeline
	Mapper      driving.OntologyMapper
	Exporter    driving.Exporter
	SearchStore driven.SearchStore
	Config      driven.ConfigStore
	Prompts     driven.PromptStore
	Source      driven.LiteratureSource
	LLM         driven.LLMService
	Embedder    driven.EmbeddingService
	DataDir     string
}

// SetServices injects the concrete services. Called by main before
// Execute.
func SetServices(s Services) {
	searchPipeline = s.Search
	extractPipeline = s.Extract
	ontologyMapper = s.Mapper
	exporter = s.Exporter
	searchStore = s.SearchStore
	configStore = s.Config
	promptStore = s.Prompts
	source = s.Source
	llmService = s.LLM
	embedder = s.Embedder
	dataDir = s.DataDir
}

// SetVersion overrides the reported version. Called by main with the
// build-time value.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
