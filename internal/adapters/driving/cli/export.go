package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportItems  []string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the evidence base as CSV",
}

var exportReferencesCmd = &cobra.Command{
	Use:   "references [search-id]",
	Short: "Export the screened references",
	Long: `Writes the screened references of a search run as CSV: study ID,
title, DOI, publication year, abstract and open-access links. With no
search-id the most recent search run is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExportReferences,
}

var exportExtractionsCmd = &cobra.Command{
	Use:   "extractions [search-id]",
	Short: "Export the extraction rows",
	Long: `Writes the evidence base of a search run as CSV: one row per main
result, with study meta fields, effect details, mapped ontology terms
and any extra items. Name the extra items with --item in the order they
were extracted so their columns get written. With no search-id the most
recent search run is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExportExtractions,
}

func init() {
	exportCmd.PersistentFlags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	exportExtractionsCmd.Flags().StringArrayVarP(&exportItems, "item", "i", nil, "extra item label (repeatable, in extraction order)")
	exportCmd.AddCommand(exportReferencesCmd)
	exportCmd.AddCommand(exportExtractionsCmd)
	rootCmd.AddCommand(exportCmd)
}

func runExportReferences(cmd *cobra.Command, args []string) error {
	if exporter == nil {
		return errors.New("exporter not configured")
	}

	w, done, err := exportWriter(cmd)
	if err != nil {
		return err
	}
	defer done()

	n, err := exporter.ExportReferences(cmd.Context(), searchIDArg(args), w)
	if err != nil {
		return fmt.Errorf("export references: %w", err)
	}
	reportExport(cmd, n)
	return nil
}

func runExportExtractions(cmd *cobra.Command, args []string) error {
	if exporter == nil {
		return errors.New("exporter not configured")
	}

	w, done, err := exportWriter(cmd)
	if err != nil {
		return err
	}
	defer done()

	n, err := exporter.ExportExtractions(cmd.Context(), searchIDArg(args), exportItems, w)
	if err != nil {
		return fmt.Errorf("export extractions: %w", err)
	}
	reportExport(cmd, n)
	return nil
}

func searchIDArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// exportWriter returns the destination writer: the --output file when
// given, otherwise the command's stdout.
func exportWriter(cmd *cobra.Command) (io.Writer, func(), error) {
	if exportOutput == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(exportOutput)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", exportOutput, err)
	}
	return f, func() { _ = f.Close() }, nil
}

func reportExport(cmd *cobra.Command, rows int) {
	if exportOutput != "" {
		cmd.Printf("Wrote %d rows to %s\n", rows, exportOutput)
	}
}
