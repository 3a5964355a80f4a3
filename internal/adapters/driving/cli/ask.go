package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askJSON    bool
	askVerbose bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the tutor a question",
	Long: `Answers a question from the course material.

The reasoning service may search the lectures and run calculation tools
before it answers. When nothing relevant is found, the tutor says so instead
of guessing.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().BoolVar(&askVerbose, "trace", false, "show the tools that were called")
	rootCmd.AddCommand(askCmd)
}

type askOutput struct {
	Answer    string   `json:"answer"`
	Degraded  bool     `json:"degraded"`
	State     string   `json:"state"`
	Reason    string   `json:"reason,omitempty"`
	ToolCalls []string `json:"tool_calls"`
	Rounds    int      `json:"rounds"`
	ElapsedMS int64    `json:"elapsed_ms"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	if err := ensureAnswer(cmd.Context()); err != nil {
		return err
	}

	ans, err := answerService.Answer(cmd.Context(), question)

	out := askOutput{
		Answer:    ans.Text,
		Degraded:  ans.Degraded,
		State:     string(ans.State),
		ToolCalls: []string{},
		Rounds:    ans.Rounds,
		ElapsedMS: ans.Duration.Milliseconds(),
	}
	if ans.Reason != nil {
		out.Reason = ans.Reason.Error()
	}
	for _, call := range ans.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, call.Name)
	}

	if askJSON {
		data, jerr := json.MarshalIndent(out, "", "  ")
		if jerr != nil {
			return fmt.Errorf("failed to marshal answer: %w", jerr)
		}
		cmd.Println(string(data))
	} else {
		if out.Degraded {
			cmd.Println(styles.Warning.Render(out.Answer))
		} else {
			cmd.Println(out.Answer)
		}
		if askVerbose {
			cmd.Println()
			cmd.Println(styles.Muted.Render(fmt.Sprintf("State: %s, rounds: %d, %dms", out.State, out.Rounds, out.ElapsedMS)))
			for i, call := range ans.ToolCalls {
				status := "ok"
				if call.IsError {
					status = "error"
				}
				cmd.Println(styles.Muted.Render(fmt.Sprintf("  %d. %s (%s)", i+1, call.Name, status)))
			}
			if out.Reason != "" {
				cmd.Println(styles.Muted.Render("Reason: " + out.Reason))
			}
		}
	}

	// The answer text was still printed; a systemic failure sets the exit code.
	return err
}
