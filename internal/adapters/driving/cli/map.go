package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driving"
)

var (
	mapInterventions string
	mapOutcomes      string
)

var mapCmd = &cobra.Command{
	Use:   "map [search-id]",
	Short: "Map extracted variables onto your ontologies",
	Long: `Assigns a canonical ontology term to every extracted intervention and
outcome variable. Both the ontology terms and the variables are
embedded; each variable gets the term with the highest cosine
similarity.

Ontology files are CSV (a 'term' column, or the first column) or JSON
(a list of strings, or objects with a "term" key). Rows whose variable
is NA stay NA. With no search-id the most recent search run is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMap,
}

func init() {
	mapCmd.Flags().StringVar(&mapInterventions, "interventions", "", "intervention ontology file (CSV or JSON)")
	mapCmd.Flags().StringVar(&mapOutcomes, "outcomes", "", "outcome ontology file (CSV or JSON)")
	_ = mapCmd.MarkFlagRequired("interventions")
	_ = mapCmd.MarkFlagRequired("outcomes")
	rootCmd.AddCommand(mapCmd)
}

func runMap(cmd *cobra.Command, args []string) error {
	if ontologyMapper == nil {
		return errors.New("ontology mapper not configured")
	}

	req := driving.MapRequest{
		InterventionOntologyPath: mapInterventions,
		OutcomeOntologyPath:      mapOutcomes,
	}
	if len(args) > 0 {
		req.SearchID = args[0]
	}

	report, err := ontologyMapper.Run(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("mapping failed: %w", err)
	}

	cmd.Printf("Mapping complete\n")
	cmd.Printf("  Rows:   %d\n", report.Rows)
	cmd.Printf("  Mapped: %d\n", report.Mapped)
	return nil
}
