package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lumen/internal/core/services"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently asked questions",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one question and its answer",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all history",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", services.DefaultHistoryLimit, "maximum number of entries")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output entries as JSON")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	if err := ensureHistory(); err != nil {
		return err
	}

	records, err := historyService.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	if historyJSON {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal history: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(records) == 0 {
		cmd.Println("No history yet.")
		return nil
	}

	for i := range records {
		r := records[i]
		flag := ""
		if r.Degraded {
			flag = " [degraded]"
		}
		cmd.Printf("%s  %s  %s%s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.ID, oneLine(r.Query, 60), flag)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	if err := ensureHistory(); err != nil {
		return err
	}

	r, err := historyService.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	cmd.Printf("ID: %s\n", r.ID)
	cmd.Printf("Asked: %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("Question: %s\n", r.Query)
	cmd.Printf("Tool calls: %d, rounds: %d, %dms\n", r.ToolCalls, r.Rounds, r.Duration.Milliseconds())
	if r.Degraded {
		cmd.Println("Degraded: yes")
	}
	cmd.Println()
	cmd.Println(r.Answer)
	return nil
}

func runHistoryClear(cmd *cobra.Command, _ []string) error {
	if err := ensureHistory(); err != nil {
		return err
	}
	if err := historyService.Clear(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("History cleared.")
	return nil
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
