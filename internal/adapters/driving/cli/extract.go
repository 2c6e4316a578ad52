package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driving"
	"github.com/dsp-labs/evidencer-cli/internal/logger"
)

var (
	extractItems   []string
	extractWorkers int
	extractWatch   bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [search-id]",
	Short: "Extract structured evidence from the screened studies",
	Long: `Runs the three-pass LLM extraction over every study of a search run.

Pass 1 pulls study-level information (population, country, study design,
main results). Pass 2 pulls effect sizes for each main result. Pass 3
answers any extra items given with --item. Each main result becomes one
row of the evidence base.

Studies with a downloaded PDF are extracted from the full text via
pdftotext; studies without one fall back to the stored abstract.

With no search-id the most recent search run is used. With --watch the
command keeps running and re-extracts a study whenever its PDF appears
in the run's PDF directory, so manually sourced PDFs can be dropped in.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringArrayVarP(&extractItems, "item", "i", nil, "extra item to extract per study (repeatable)")
	extractCmd.Flags().IntVarP(&extractWorkers, "workers", "w", 0, "concurrent extraction workers")
	extractCmd.Flags().BoolVar(&extractWatch, "watch", false, "watch the PDF directory and re-extract on new PDFs")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	if extractPipeline == nil {
		return errors.New("extraction pipeline not configured")
	}

	var searchID string
	if len(args) > 0 {
		searchID = args[0]
	}

	req := driving.ExtractRequest{
		SearchID:   searchID,
		ExtraItems: extractItems,
		Workers:    extractWorkers,
	}

	report, err := extractPipeline.Run(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	cmd.Printf("Extraction complete\n")
	cmd.Printf("  Studies: %d\n", report.Studies)
	cmd.Printf("  Rows:    %d\n", report.Rows)
	if report.Skipped > 0 {
		cmd.Printf("  Skipped: %d (no PDF text or abstract)\n", report.Skipped)
	}
	if report.Failed > 0 {
		cmd.Printf("  Failed:  %d\n", report.Failed)
	}

	if extractWatch {
		return watchPDFDir(cmd, searchID)
	}
	return nil
}

// watchPDFDir blocks watching the run's PDF directory and re-extracts a
// study whenever its PDF is written. Stops on SIGINT/SIGTERM.
func watchPDFDir(cmd *cobra.Command, searchID string) error {
	id, err := resolveSearchID(cmd.Context(), searchID)
	if err != nil {
		return err
	}

	pdfDir := filepath.Join(dataDir, "pdfs", id)
	if err := os.MkdirAll(pdfDir, 0700); err != nil {
		return fmt.Errorf("create PDF directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(pdfDir); err != nil {
		return fmt.Errorf("watch %s: %w", pdfDir, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s for new PDFs (Ctrl-C to stop)\n", pdfDir)

	for {
		select {
		case <-ctx.Done():
			cmd.Println("Stopped watching")
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Write covers both fresh downloads and in-place updates;
			// Create alone fires before the file is fully written
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			studyID := studyIDFromPDF(event.Name)
			if studyID == "" {
				continue
			}
			cmd.Printf("Detected %s, extracting %s\n", filepath.Base(event.Name), studyID)
			rows, err := extractPipeline.ExtractStudy(ctx, id, studyID, extractItems)
			if err != nil {
				logger.Warn("Extraction failed for %s: %v", studyID, err)
				continue
			}
			cmd.Printf("Extracted %d rows for %s\n", len(rows), studyID)
		}
	}
}

// resolveSearchID returns the given ID, or the latest search run's.
func resolveSearchID(ctx context.Context, searchID string) (string, error) {
	if searchID != "" {
		return searchID, nil
	}
	if searchStore == nil {
		return "", errors.New("search store not configured")
	}
	latest, err := searchStore.Latest(ctx)
	if err != nil {
		return "", fmt.Errorf("no search runs found: %w", err)
	}
	return latest.ID, nil
}

// studyIDFromPDF maps a watched file name back to its study ID.
// Only study_N.pdf names count; anything else is ignored.
func studyIDFromPDF(path string) string {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ".pdf") || !strings.HasPrefix(name, "study_") {
		return ""
	}
	return strings.TrimSuffix(name, ".pdf")
}
