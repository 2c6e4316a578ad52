package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/dsp-labs/evidencer-cli/internal/core/domain"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driven"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driving"
)

// Ensure ExportService implements the interface.
var _ driving.Exporter = (*ExportService)(nil)

// ExportService writes the evidence base out as CSV for downstream
// modelling tools.
type ExportService struct {
	searchStore driven.SearchStore
	refStore    driven.ReferenceStore
	exStore     driven.ExtractionStore
}

// NewExportService creates an exporter.
func NewExportService(
	searchStore driven.SearchStore,
	refStore driven.ReferenceStore,
	exStore driven.ExtractionStore,
) *ExportService {
	return &ExportService{
		searchStore: searchStore,
		refStore:    refStore,
		exStore:     exStore,
	}
}

// ExportReferences writes the screened references of a search run.
func (s *ExportService) ExportReferences(ctx context.Context, searchID string, w io.Writer) (int, error) {
	search, err := s.resolveSearch(ctx, searchID)
	if err != nil {
		return 0, err
	}

	refs, err := s.refStore.ListBySearch(ctx, search.ID)
	if err != nil {
		return 0, fmt.Errorf("list references: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{
		"study_id",
		"title",
		"doi",
		"publication_year",
		"abstract",
		"landing_page_url",
		"pdf_url",
		"is_oa",
	}
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	for _, ref := range refs {
		record := []string{
			ref.StudyID,
			ref.Title,
			ref.DOI,
			yearString(ref.PublicationYear),
			ref.Abstract,
			ref.LandingPageURL,
			ref.PDFURL,
			strconv.FormatBool(ref.OpenAccess),
		}
		if err := cw.Write(record); err != nil {
			return 0, fmt.Errorf("write reference %s: %w", ref.StudyID, err)
		}
	}

	cw.Flush()
	return len(refs), cw.Error()
}

// ExportExtractions writes the extraction rows of a search run,
// including mapped ontology terms. The extraItems labels add one
// extra_N column per item.
func (s *ExportService) ExportExtractions(ctx context.Context, searchID string, extraItems []string, w io.Writer) (int, error) {
	search, err := s.resolveSearch(ctx, searchID)
	if err != nil {
		return 0, err
	}

	rows, err := s.exStore.ListBySearch(ctx, search.ID)
	if err != nil {
		return 0, fmt.Errorf("list extractions: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{
		"study_id",
		"filename",
		"study_title",
		"population_outcome_measured_in",
		"population_intervention_affected_or_predictor",
		"secondary_characteristics",
		"country",
		"study_type_letter",
		"num_main_results",
		"main_result_index",
		"main_result_text",
		"effect_size_type",
		"effect_size",
		"effect_size_uncertainty",
		"p_value",
		"total_sample_size",
		"intervention_or_predictor_variable",
		"outcome_variable",
		"mapped_intervention",
		"mapped_outcome",
	}
	for i := range extraItems {
		header = append(header, fmt.Sprintf("extra_%d", i+1))
	}
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.StudyID,
			row.Filename,
			row.Meta.StudyTitle,
			row.Meta.OutcomePopulation,
			row.Meta.InterventionPopulation,
			row.Meta.SecondaryCharacteristics,
			row.Meta.Country,
			row.Meta.StudyType,
			row.Meta.NumMainResults,
			strconv.Itoa(row.ResultIndex),
			row.ResultText,
			row.Detail.EffectSizeType,
			row.Detail.EffectSize,
			row.Detail.Uncertainty,
			row.Detail.PValue,
			row.Detail.SampleSize,
			row.Detail.Intervention,
			row.Detail.Outcome,
			row.MappedIntervention,
			row.MappedOutcome,
		}
		for i := range extraItems {
			if i < len(row.Extras) {
				record = append(record, row.Extras[i])
			} else {
				record = append(record, domain.NA)
			}
		}
		if err := cw.Write(record); err != nil {
			return 0, fmt.Errorf("write row for %s: %w", row.StudyID, err)
		}
	}

	cw.Flush()
	return len(rows), cw.Error()
}

func (s *ExportService) resolveSearch(ctx context.Context, searchID string) (*domain.Search, error) {
	if searchID == "" {
		search, err := s.searchStore.Latest(ctx)
		if err != nil {
			return nil, fmt.Errorf("no search runs found: %w", err)
		}
		return search, nil
	}
	search, err := s.searchStore.Get(ctx, searchID)
	if err != nil {
		return nil, fmt.Errorf("get search %s: %w", searchID, err)
	}
	return search, nil
}

func yearString(year int) string {
	if year == 0 {
		return domain.NA
	}
	return strconv.Itoa(year)
}
