package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dsp-labs/evidencer-cli/internal/adapters/driven/config/file"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driving"
)

var (
	searchDescription  string
	searchMinCitations string
	searchMaxWorks     int
	searchSkipPDFs     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Search the literature and screen the results",
	Long: `Searches OpenAlex for works matching the term, reconstructs abstracts,
screens each work against your relevance description with an LLM, and
downloads open-access PDFs for the kept references.

Screening requires --description and a configured OpenAI API key.
Without a description every fetched work is kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchDescription, "description", "d", "", "relevance description for LLM screening")
	searchCmd.Flags().StringVar(&searchMinCitations, "min-citations", "", "citation count filter (e.g. '>4')")
	searchCmd.Flags().IntVarP(&searchMaxWorks, "max-works", "n", 0, "maximum number of works to fetch")
	searchCmd.Flags().BoolVar(&searchSkipPDFs, "skip-pdfs", false, "do not download open-access PDFs")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchPipeline == nil {
		return errors.New("search pipeline not configured")
	}

	req := driving.SearchRequest{
		Term:         args[0],
		Description:  searchDescription,
		MinCitations: searchMinCitations,
		MaxWorks:     searchMaxWorks,
		SkipPDFs:     searchSkipPDFs,
	}

	// Config supplies defaults for flags left unset
	if configStore != nil {
		if req.MinCitations == "" {
			req.MinCitations = configStore.GetString(file.KeyMinCitations)
		}
		if req.MaxWorks == 0 {
			req.MaxWorks = configStore.GetInt(file.KeyMaxWorks)
		}
	}
	if req.MinCitations == "" {
		req.MinCitations = ">4"
	}
	if req.MaxWorks == 0 {
		req.MaxWorks = 200
	}

	report, err := searchPipeline.Run(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	cmd.Printf("Search %s complete\n", report.SearchID)
	cmd.Printf("  Fetched: %d works\n", report.Fetched)
	cmd.Printf("  Kept:    %d references\n", report.Kept)
	if report.PDFDir != "" {
		cmd.Printf("  PDFs:    %d downloaded to %s\n", report.PDFsDownloaded, report.PDFDir)
	}
	return nil
}
