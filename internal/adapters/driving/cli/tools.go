package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lumen/internal/core/domain"
)

var toolArgsJSON string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and run the tutor's tools",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tools",
	Args:  cobra.NoArgs,
	RunE:  runToolsList,
}

var toolsCallCmd = &cobra.Command{
	Use:   "call [name] [key=value...]",
	Short: "Run a tool directly",
	Long: `Runs a registered tool and prints its JSON result.

Arguments are given as key=value pairs; numbers and booleans are detected
automatically. Use --args to pass a JSON object instead.

Examples:
  lumen tools call parallax_to_distance parallax_arcsec=0.1
  lumen tools call convert_distance value=1 from=pc to=ly
  lumen tools call search_course_materials --args '{"query":"red giants","top_k":2}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runToolsCall,
}

func init() {
	toolsCallCmd.Flags().StringVar(&toolArgsJSON, "args", "", "tool arguments as a JSON object")
	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsCallCmd)
	rootCmd.AddCommand(toolsCmd)
}

func runToolsList(cmd *cobra.Command, _ []string) error {
	if err := ensureEngine(); err != nil {
		return err
	}

	specs := toolRegistry.List()
	if len(specs) == 0 {
		cmd.Println("No tools registered.")
		return nil
	}

	for _, spec := range specs {
		cmd.Printf("%s\n", spec.Name)
		cmd.Printf("  %s\n", spec.Description)
		for _, name := range paramNames(spec) {
			p := spec.Parameters[name]
			req := ""
			if p.Required {
				req = ", required"
			}
			cmd.Printf("    %s (%s%s): %s\n", name, p.Type, req, p.Description)
		}
		cmd.Println()
	}
	return nil
}

func runToolsCall(cmd *cobra.Command, args []string) error {
	name := args[0]

	toolArgs, err := parseToolArgs(toolArgsJSON, args[1:])
	if err != nil {
		return err
	}

	if err := ensureEngine(); err != nil {
		return err
	}
	tool, ok := toolRegistry.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownTool, name)
	}
	if tool.Spec.Name == "search_course_materials" {
		if err := ensureIndex(cmd.Context()); err != nil {
			return err
		}
	}

	result, err := toolRegistry.Call(cmd.Context(), domain.ToolCallRequest{Name: name, Arguments: toolArgs})
	if err != nil {
		return fmt.Errorf("tool %s failed: %w", name, err)
	}

	data, err := json.MarshalIndent(result.Payload(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))

	if result.IsError() {
		return errors.New("tool reported an error")
	}
	return nil
}

// parseToolArgs merges a JSON object with key=value pairs. Pairs win.
func parseToolArgs(raw string, pairs []string) (map[string]any, error) {
	out := make(map[string]any)
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("%w: --args must be a JSON object: %v", domain.ErrInvalidInput, err)
		}
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: argument %q is not key=value", domain.ErrInvalidInput, pair)
		}
		out[key] = parseArgValue(value)
	}
	return out, nil
}

// parseArgValue decodes numbers and booleans the way a JSON decoder would.
func parseArgValue(v string) any {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}

func paramNames(spec domain.ToolSpec) []string {
	required := spec.RequiredParams()
	names := append([]string(nil), required...)
	var optional []string
	for name, p := range spec.Parameters {
		if !p.Required {
			optional = append(optional, name)
		}
	}
	sort.Strings(optional)
	return append(names, optional...)
}
