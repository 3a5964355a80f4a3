package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lumen/internal/core/domain"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_Short(t *testing.T) {
	assert.Equal(t, "Search the course material", searchCmd.Short)
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

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "3", flag.DefValue)
}

func TestSearchCmd_ExecutesWithQuery(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "  parallax  "})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "[1] Parallax (0.71)")
	assert.Contains(t, out, "Source: lecture-03")
	assert.Contains(t, out, "The apparent shift")
	assert.Contains(t, out, "[2] Magnitudes (0.12 below floor)")
	assert.Equal(t, "parallax", indexService.(*mockIndexService).lastQuery)
}

func TestSearchCmd_ExecutesWithShortLimitFlag(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "-n", "5", "another query"})
	defer func() {
		rootCmd.SetArgs(nil)
		searchLimit = domain.DefaultTopK
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, 5, indexService.(*mockIndexService).lastK)
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "--json", "test query"})
	defer func() {
		rootCmd.SetArgs(nil)
		searchJSON = false // Reset flag
	}()

	err := rootCmd.Execute()
	require.NoError(t, err)

	var results []searchResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].ChunkID)
	assert.True(t, results[0].Relevant)
	assert.False(t, results[1].Relevant)
}

func TestSearchCmd_NoResults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	indexService = &mockIndexService{built: true}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "quasars"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No results found.")
}

func TestSearchCmd_IngestsBeforeFirstSearch(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	indexService = &mockIndexService{built: false}
	ingest := &mockIngestService{report: testReport()}
	ingestService = ingest

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "parallax"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, 1, ingest.calls)
}

func TestSearchCmd_IngestFailure(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	indexService = &mockIndexService{built: false}
	ingestService = &mockIngestService{err: domain.ErrNoDocuments}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search", "parallax"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.ErrorIs(t, err, domain.ErrNoDocuments)
}

func TestSearchCmd_SearchFailure(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	indexService = &mockIndexService{built: true, err: domain.ErrEmbeddingUnavailable}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search", "parallax"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "search failed")
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		n        int
		expected string
	}{
		{
			name:     "drops header line",
			text:     "# Title\nBody text here.",
			n:        50,
			expected: "Body text here.",
		},
		{
			name:     "keeps text without header",
			text:     "Plain line\nsecond",
			n:        50,
			expected: "Plain line second",
		},
		{
			name:     "shortens long text",
			text:     "# T\nabcdefghij",
			n:        4,
			expected: "abcd...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, snippet(domain.Chunk{Text: tt.text}, tt.n))
		})
	}
}
