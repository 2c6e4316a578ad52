package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCheck bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List search runs and their progress",
	Long: `Lists every stored search run, newest first, with the query, how many
works were fetched and how many references survived screening.

With --check, verifies the configured external services instead: the
literature source and the OpenAI LLM and embedding endpoints.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusCheck, "check", false, "verify the configured external services are reachable")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if statusCheck {
		return runStatusCheck(cmd)
	}

	if searchStore == nil {
		return errors.New("search store not configured")
	}

	searches, err := searchStore.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list search runs: %w", err)
	}

	if len(searches) == 0 {
		cmd.Println("No search runs yet. Start with: evidencer search \"your term\"")
		return nil
	}

	cmd.Println("Search runs:")
	cmd.Println()
	for _, s := range searches {
		cmd.Printf("  %s\n", s.ID)
		cmd.Printf("    Term:    %q\n", s.Term)
		if s.Description != "" {
			cmd.Printf("    Screen:  %q\n", s.Description)
		}
		cmd.Printf("    Kept:    %d of %d fetched\n", s.Kept, s.Fetched)
		cmd.Printf("    Run at:  %s\n", s.CreatedAt.Local().Format("2006-01-02 15:04"))
		cmd.Println()
	}
	return nil
}

// runStatusCheck probes each configured external service. Unreachable
// services are reported but never fail the command, so a partial setup
// can still be inspected.
func runStatusCheck(cmd *cobra.Command) error {
	ctx := cmd.Context()
	report := func(name string, err error) {
		if err != nil {
			cmd.Printf("  %-20s unreachable: %v\n", name, err)
			return
		}
		cmd.Printf("  %-20s ok\n", name)
	}

	cmd.Println("Service checks:")
	if source == nil {
		cmd.Printf("  %-20s not configured (set openalex.email)\n", "literature source")
	} else {
		report(source.Name(), source.Validate(ctx))
	}
	if llmService == nil {
		cmd.Printf("  %-20s not configured (run: evidencer config set-key)\n", "llm")
	} else {
		report("llm ("+llmService.ModelName()+")", llmService.Ping(ctx))
	}
	if embedder == nil {
		cmd.Printf("  %-20s not configured (run: evidencer config set-key)\n", "embeddings")
	} else {
		report("embeddings ("+embedder.ModelName()+")", embedder.Ping(ctx))
	}
	return nil
}
