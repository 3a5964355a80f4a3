package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lumen/internal/core/domain"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the course material",
	Long: `Ranks lecture sections by embedding similarity to the query.
Scores are cosine similarities; hits below the relevance floor are marked.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultTopK, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

type searchResult struct {
	ChunkID  int     `json:"chunk_id"`
	Source   string  `json:"source"`
	Section  string  `json:"section"`
	Score    float64 `json:"score"`
	Relevant bool    `json:"relevant"`
	Text     string  `json:"text"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(args[0])

	if err := ensureIndex(cmd.Context()); err != nil {
		return err
	}

	hits, err := indexService.Search(cmd.Context(), query, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	floor := indexService.RelevanceFloor()
	results := make([]searchResult, len(hits))
	for i := range hits {
		results[i] = searchResult{
			ChunkID:  hits[i].Chunk.ID,
			Source:   hits[i].Chunk.Source,
			Section:  hits[i].Chunk.SectionTitle,
			Score:    hits[i].Score,
			Relevant: hits[i].Score >= floor,
			Text:     hits[i].Chunk.Text,
		}
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, hits, floor)
}

func outputSearchJSON(cmd *cobra.Command, results []searchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, hits []domain.ScoredChunk, floor float64) error {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println(styles.Title.Render("Results:"))
	cmd.Println()
	for i := range hits {
		title := hits[i].Chunk.SectionTitle
		if title == "" {
			title = fmt.Sprintf("chunk %d", hits[i].Chunk.ID)
		}

		marker := ""
		if hits[i].Score < floor {
			marker = " below floor"
		}

		score := fmt.Sprintf("(%.2f%s)", hits[i].Score, marker)
		cmd.Printf("  [%d] %s %s\n", i+1, styles.Section.Render(title), styles.Muted.Render(score))
		if hits[i].Chunk.Source != "" {
			cmd.Printf("      %s\n", styles.Muted.Render("Source: "+hits[i].Chunk.Source))
		}
		cmd.Printf("      %s\n", snippet(hits[i].Chunk, 160))
		cmd.Println()
	}

	return nil
}

// snippet returns the first body line of a chunk, shortened to n bytes.
func snippet(c domain.Chunk, n int) string {
	text := c.Text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 && domain.HeaderDepth(text[:idx]) > 0 {
		text = text[idx+1:]
	}
	text = strings.Join(strings.Fields(text), " ")
	short := domain.Chunk{Text: text}.Excerpt(n)
	if len(short) < len(text) {
		short += "..."
	}
	return short
}
