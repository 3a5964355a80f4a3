// Package cli implements the lumen command line interface with cobra.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lumen/internal/core/ports/driving"
	"github.com/custodia-labs/lumen/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

var (
	verbose   bool
	ephemeral bool
)

// Services used by the commands. They are wired lazily on first use so that
// cheap commands such as version never touch the config directory. Tests
// replace them with mocks.
var (
	settingsService driving.SettingsService
	indexService    driving.IndexService
	ingestService   driving.IngestService
	answerService   driving.AnswerService
	toolRegistry    driving.ToolRegistry
	historyService  driving.HistoryService

	// watchCorpus blocks, calling onChange after the corpus settles.
	watchCorpus func(ctx context.Context, onChange func()) error
)

var rootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "Course-material tutor with tool calling",
	Long: `Lumen answers questions about a directory of markdown lectures.

It chunks the lectures by header, embeds every chunk into an in-memory index
and lets a reasoning service search the material and run astronomy
calculations before answering.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false,
		"keep settings and history in memory only")
}

// Execute runs the root command and releases wired resources.
func Execute() {
	err := rootCmd.Execute()
	shutdown()
	if err != nil {
		os.Exit(1)
	}
}
