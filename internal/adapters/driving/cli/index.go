package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/services"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the course material and print a report",
	Long: `Loads the lecture directory, chunks every file by header and embeds the
chunks. The index lives in memory, so this is mainly a dry run that shows
which files were used and why others were skipped.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if err := ensureEngine(); err != nil {
		return err
	}

	report, err := ingestService.Ingest(cmd.Context())
	if err != nil {
		if services.IsIngestConfigError(err) {
			return fmt.Errorf("nothing to index: %w", err)
		}
		return fmt.Errorf("indexing failed: %w", err)
	}

	printIngestReport(cmd, report)
	return nil
}

func printIngestReport(cmd *cobra.Command, report *domain.IngestReport) {
	cmd.Println(styles.Title.Render("Index Report"))
	cmd.Println("============")
	cmd.Printf("  Documents found: %d\n", report.Documents)
	cmd.Printf("  Documents indexed: %d\n", report.Indexed)
	cmd.Printf("  Chunks: %d\n", report.Chunks)
	cmd.Printf("  Dimensions: %d\n", report.Stats.Dimensions)
	cmd.Printf("  Similarity: %s\n", report.Stats.SimilarityMode())
	if report.Stats.Model != "" {
		cmd.Printf("  Model: %s\n", report.Stats.Model)
	}
	if report.Stats.Backend != "" {
		cmd.Printf("  Backend: %s\n", report.Stats.Backend)
	}

	if len(report.Skipped) == 0 {
		return
	}
	cmd.Println()
	cmd.Println(styles.Warning.Render(fmt.Sprintf("Skipped (%d):", len(report.Skipped))))
	for _, issue := range report.Skipped {
		cmd.Printf("  %s: %s\n", issue.URI, skipReason(issue.Reason))
	}
}

func skipReason(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, domain.ErrEmptyDocument):
		return "empty file"
	case errors.Is(err, domain.ErrMalformedDocument):
		return "no markdown headers"
	case errors.Is(err, domain.ErrNoUsableChunks):
		return "no section long enough"
	default:
		return err.Error()
	}
}
