package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [term]", searchCmd.Use)
}

func TestSearchCmd_Short(t *testing.T) {
	assert.Equal(t, "Search the literature and screen the results", searchCmd.Short)
}

func TestSearchCmd_Long(t *testing.T) {
	assert.Contains(t, searchCmd.Long, "OpenAlex")
	assert.Contains(t, searchCmd.Long, "screens")
	assert.Contains(t, searchCmd.Long, "PDFs")
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_HasFlags(t *testing.T) {
	flag := searchCmd.Flags().Lookup("description")
	require.NotNil(t, flag, "description flag should exist")
	assert.Equal(t, "d", flag.Shorthand)

	flag = searchCmd.Flags().Lookup("max-works")
	require.NotNil(t, flag, "max-works flag should exist")
	assert.Equal(t, "n", flag.Shorthand)

	assert.NotNil(t, searchCmd.Flags().Lookup("min-citations"))
	assert.NotNil(t, searchCmd.Flags().Lookup("skip-pdfs"))
}

func TestSearchCmd_ExecutesWithTerm(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "parenting interventions"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Fetched: 5 works")
	assert.Contains(t, buf.String(), "Kept:    3 references")
}

func TestSearchCmd_AppliesDefaults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	pipeline := &mockSearchPipeline{}
	searchPipeline = pipeline

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "parenting"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, ">4", pipeline.lastReq.MinCitations)
	assert.Equal(t, 200, pipeline.lastReq.MaxWorks)
}

func TestSearchCmd_PassesFlags(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	pipeline := &mockSearchPipeline{}
	searchPipeline = pipeline

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{
		"search", "parenting",
		"--description", "parenting intervention studies",
		"--min-citations", ">10",
		"--max-works", "50",
		"--skip-pdfs",
	})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, "parenting", pipeline.lastReq.Term)
	assert.Equal(t, "parenting intervention studies", pipeline.lastReq.Description)
	assert.Equal(t, ">10", pipeline.lastReq.MinCitations)
	assert.Equal(t, 50, pipeline.lastReq.MaxWorks)
	assert.True(t, pipeline.lastReq.SkipPDFs)
}

func TestSearchCmd_NotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	searchPipeline = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search", "parenting"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
