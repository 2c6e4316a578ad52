package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driving"
)

func TestExtractCmd_Use(t *testing.T) {
	assert.Equal(t, "extract [search-id]", extractCmd.Use)
}

func TestExtractCmd_Short(t *testing.T) {
	assert.Equal(t, "Extract structured evidence from the screened studies", extractCmd.Short)
}

func TestExtractCmd_Long(t *testing.T) {
	assert.Contains(t, extractCmd.Long, "three-pass")
	assert.Contains(t, extractCmd.Long, "pdftotext")
	assert.Contains(t, extractCmd.Long, "--watch")
}

func TestExtractCmd_HasFlags(t *testing.T) {
	flag := extractCmd.Flags().Lookup("item")
	require.NotNil(t, flag, "item flag should exist")
	assert.Equal(t, "i", flag.Shorthand)

	flag = extractCmd.Flags().Lookup("workers")
	require.NotNil(t, flag, "workers flag should exist")
	assert.Equal(t, "w", flag.Shorthand)

	assert.NotNil(t, extractCmd.Flags().Lookup("watch"))
}

func TestExtractCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"extract"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Studies: 3")
	assert.Contains(t, buf.String(), "Rows:    7")
}

func TestExtractCmd_PassesSearchIDAndItems(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	pipeline := &mockExtractPipeline{}
	extractPipeline = pipeline

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{
		"extract", "s1",
		"--item", "funding source",
		"--item", "conflicts of interest",
		"--workers", "2",
	})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, "s1", pipeline.lastReq.SearchID)
	assert.Equal(t, []string{"funding source", "conflicts of interest"}, pipeline.lastReq.ExtraItems)
	assert.Equal(t, 2, pipeline.lastReq.Workers)
}

func TestExtractCmd_ReportsSkippedAndFailed(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	extractPipeline = &mockExtractPipeline{
		report: &driving.ExtractReport{Studies: 4, Rows: 5, Skipped: 2, Failed: 1},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"extract"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Skipped: 2")
	assert.Contains(t, buf.String(), "Failed:  1")
}

func TestExtractCmd_NotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	extractPipeline = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"extract"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestStudyIDFromPDF(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/pdfs/s1/study_3.pdf", "study_3"},
		{"study_12.pdf", "study_12"},
		{"/data/pdfs/s1/study_3.pdf.partial", ""},
		{"/data/pdfs/s1/notes.txt", ""},
		{"/data/pdfs/s1/paper.pdf", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, studyIDFromPDF(tt.path), tt.path)
	}
}
