package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dsp-labs/evidencer-cli/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage evidencer configuration",
	Long: `View and change configuration: OpenAlex contact email, search
defaults, OpenAI models and API key.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Sets a configuration value. Known keys:

  openalex.email           contact email for OpenAlex polite pool (required)
  openalex.min_citations   default citation filter (e.g. '>4')
  openalex.max_works       default cap on fetched works
  openai.llm_model         chat model for screening and extraction
  openai.embedding_model   model for ontology mapping
  extract.workers          concurrent extraction workers`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the OpenAI API key",
	Long: `Prompts for the OpenAI API key without echoing it and stores it in the
configuration file. The OPENAI_API_KEY environment variable takes
precedence over the stored key.`,
	Args: cobra.NoArgs,
	RunE: runConfigSetKey,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if configStore == nil {
			return errors.New("config store not configured")
		}
		cmd.Println(configStore.Path())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	showValue := func(key string) string {
		if v := configStore.GetString(key); v != "" {
			return v
		}
		if v := configStore.GetInt(key); v != 0 {
			return strconv.Itoa(v)
		}
		return "(not set)"
	}

	cmd.Println("[OpenAlex]")
	cmd.Printf("  Email:         %s\n", showValue(file.KeyEmail))
	cmd.Printf("  Min citations: %s\n", showValue(file.KeyMinCitations))
	cmd.Printf("  Max works:     %s\n", showValue(file.KeyMaxWorks))
	cmd.Println()

	cmd.Println("[OpenAI]")
	if key := configStore.GetString(file.KeyAPIKey); key != "" {
		cmd.Printf("  API key:         %s\n", maskAPIKey(key))
	} else if os.Getenv("OPENAI_API_KEY") != "" {
		cmd.Printf("  API key:         (from environment)\n")
	} else {
		cmd.Printf("  API key:         (not set)\n")
	}
	// Prefer the model the running services actually use; the config
	// value alone misses adapter defaults.
	if llmService != nil {
		cmd.Printf("  LLM model:       %s\n", llmService.ModelName())
	} else {
		cmd.Printf("  LLM model:       %s\n", showValue(file.KeyLLMModel))
	}
	if embedder != nil {
		cmd.Printf("  Embedding model: %s\n", embedder.ModelName())
	} else {
		cmd.Printf("  Embedding model: %s\n", showValue(file.KeyEmbeddingModel))
	}
	cmd.Println()

	cmd.Println("[Extraction]")
	cmd.Printf("  Workers: %s\n", showValue(file.KeyWorkers))

	if promptStore != nil {
		cmd.Println()
		cmd.Println("[Prompts]")
		cmd.Printf("  Directory: %s\n", promptStore.Dir())
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key, value := args[0], args[1]

	// Numeric keys get stored as integers
	switch key {
	case file.KeyMaxWorks, file.KeyWorkers:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s wants an integer, got %q", key, value)
		}
		if err := configStore.Set(key, n); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	default:
		if err := configStore.Set(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}

	cmd.Printf("Set %s\n", key)
	return nil
}

func runConfigSetKey(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cmd.Print("OpenAI API key: ")
	key := readPassword()
	cmd.Println()
	if key == "" {
		return errors.New("no key entered")
	}

	if err := configStore.Set(file.KeyAPIKey, key); err != nil {
		return fmt.Errorf("store API key: %w", err)
	}
	cmd.Printf("Stored API key %s in %s\n", maskAPIKey(key), configStore.Path())
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
