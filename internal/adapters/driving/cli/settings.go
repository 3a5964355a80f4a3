package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the corpus location, AI providers, retrieval and
orchestration limits.

Settings live in ~/.lumen/config.toml. LUMEN_* environment variables and a
.env file in the working directory override them without being saved.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set a single setting by its dotted key, for example:

  lumen settings set index.top_k 5
  lumen settings set corpus.dir ./Lecture
  lumen settings set corpus.patterns "*.md,*.markdown"

Run 'lumen settings keys' to list every key.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List setting keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsSetKeyCmd = &cobra.Command{
	Use:       "set-key [embedding|llm]",
	Short:     "Store an API key without echoing it",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"embedding", "llm"},
	RunE:      runSettingsSetKey,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Choose the embedding provider used to index the course material.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Choose the reasoning service that answers questions and calls tools.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsSetKeyCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

// settingRow is one "Label: value" line of settings show.
type settingRow struct {
	label string
	value string
}

type settingSection struct {
	title string
	rows  []settingRow
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if err := ensureSettings(); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println(styles.Title.Render("Current Settings"))
	if configPath != "" {
		cmd.Println(styles.Muted.Render("File: " + configPath))
	}
	cmd.Println()

	for _, sec := range describeSettings(settings) {
		cmd.Println(styles.Section.Render("[" + sec.title + "]"))
		for _, row := range sec.rows {
			cmd.Printf("  %s: %s\n", row.label, row.value)
		}
		cmd.Println()
	}

	if err := settingsService.Validate(); err != nil {
		cmd.Println(styles.Warning.Render(fmt.Sprintf("Warning: %v", err)))
		cmd.Println("Run 'lumen settings llm' or 'lumen settings set-key llm' to fix it.")
		return nil
	}
	cmd.Println(styles.Success.Render("Configuration is valid."))
	return nil
}

// describeSettings lays out the settings in display order. Rows that do not
// apply to the chosen provider are left out.
func describeSettings(s *domain.AppSettings) []settingSection {
	emb := []settingRow{
		{"Provider", s.Embedding.Provider.Description()},
		{"Model", s.Embedding.Model},
	}
	if s.Embedding.Provider == domain.AIProviderHash {
		emb = append(emb, settingRow{"Dimensions", strconv.Itoa(s.Embedding.Dimensions)})
	}
	emb = append(emb, providerRows(s.Embedding.Provider, s.Embedding.BaseURL, s.Embedding.APIKey)...)
	emb = append(emb, settingRow{"Status", configuredStatus(s.Embedding.IsConfigured())})

	llm := []settingRow{
		{"Provider", s.LLM.Provider.Description()},
		{"Model", s.LLM.Model},
	}
	llm = append(llm, providerRows(s.LLM.Provider, s.LLM.BaseURL, s.LLM.APIKey)...)
	llm = append(llm,
		settingRow{"Max tokens", strconv.Itoa(s.LLM.MaxTokens)},
		settingRow{"Temperature", fmt.Sprintf("%.2f", s.LLM.Temperature)},
		settingRow{"Status", configuredStatus(s.LLM.IsConfigured())},
	)

	o := s.Orchestrator
	return []settingSection{
		{"Corpus", []settingRow{
			{"Directory", s.Corpus.Dir},
			{"Patterns", strings.Join(s.Corpus.Patterns, ", ")},
		}},
		{"Embedding", emb},
		{"LLM", llm},
		{"Index", []settingRow{
			{"Backend", s.Index.Backend.Description()},
			{"Top K", strconv.Itoa(s.Index.TopK)},
			{"Relevance floor", fmt.Sprintf("%.2f", s.Index.RelevanceFloor)},
			{"Min chunk length", strconv.Itoa(s.Index.MinChunkLength)},
			{"Context chars", strconv.Itoa(s.Index.ContextChars)},
		}},
		{"Orchestrator", []settingRow{
			{"Max tool calls", strconv.Itoa(o.MaxToolCalls)},
			{"Max retries", strconv.Itoa(o.MaxRetries)},
			{"Initial backoff", o.InitialBackoff.String()},
			{"Request timeout", o.RequestTimeout.String()},
			{"Requests per second", fmt.Sprintf("%.1f", o.RequestsPerSecond)},
			{"Require grounding", yesNo(o.RequireGrounding)},
		}},
		{"History", []settingRow{
			{"Enabled", yesNo(s.History.Enabled)},
		}},
	}
}

func providerRows(p domain.AIProvider, baseURL, apiKey string) []settingRow {
	var rows []settingRow
	if p.IsLocal() {
		rows = append(rows, settingRow{"Base URL", baseURL})
	}
	if p.RequiresAPIKey() {
		key := "(not set)"
		if apiKey != "" {
			key = maskAPIKey(apiKey)
		}
		rows = append(rows, settingRow{"API Key", key})
	}
	return rows
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if err := ensureSettings(); err != nil {
		return err
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	shown := value
	if services.IsSecretKey(key) {
		shown = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, shown)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	for _, key := range services.SettingKeys() {
		cmd.Println(key)
	}
	return nil
}

func runSettingsSetKey(cmd *cobra.Command, args []string) error {
	target := args[0]
	if target != "embedding" && target != "llm" {
		return fmt.Errorf("%w: expected embedding or llm, got %q", domain.ErrInvalidInput, target)
	}

	if err := ensureSettings(); err != nil {
		return err
	}

	cmd.Print("Enter API key: ")
	key := readPassword(cmd.InOrStdin())
	cmd.Println()
	if key == "" {
		return errors.New("API key is required")
	}

	if err := settingsService.Set(target+".api_key", key); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}
	cmd.Printf("Stored %s API key %s\n", target, maskAPIKey(key))
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if err := ensureSettings(); err != nil {
		return err
	}
	current, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	return chooseProvider(cmd, providerWizard{
		kind:      "Embedding",
		providers: domain.AllEmbeddingProviders(),
		models:    domain.DefaultEmbeddingModels(),
		current:   current.Embedding.Provider,
		model:     current.Embedding.Model,
		save:      settingsService.SetEmbeddingProvider,
		validate:  settingsService.ValidateEmbeddingConfig,
	})
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if err := ensureSettings(); err != nil {
		return err
	}
	current, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	return chooseProvider(cmd, providerWizard{
		kind:      "LLM",
		providers: domain.AllLLMProviders(),
		models:    domain.DefaultLLMModels(),
		current:   current.LLM.Provider,
		model:     current.LLM.Model,
		save:      settingsService.SetLLMProvider,
		validate:  settingsService.ValidateLLMConfig,
	})
}

// providerWizard describes one interactive provider selection.
type providerWizard struct {
	kind      string
	providers []domain.AIProvider
	models    map[domain.AIProvider]string
	current   domain.AIProvider
	model     string
	save      func(p domain.AIProvider, model, apiKey string) error
	validate  func() error
}

// chooseProvider asks for provider, model and key, saves them and pings the
// result. Pressing enter keeps the current provider and, if unchanged, its model.
func chooseProvider(cmd *cobra.Command, w providerWizard) error {
	reader := bufio.NewReader(cmd.InOrStdin())

	def := 1
	cmd.Printf("Select %s Provider\n", w.kind)
	for i, p := range w.providers {
		marker := ""
		if p == w.current {
			def = i + 1
			marker = styles.Muted.Render(" (current)")
		}
		cmd.Printf("  %d. %s%s\n", i+1, p.Description(), marker)
	}
	cmd.Printf("\nEnter choice [%d]: ", def)
	provider := w.providers[parseChoice(readLine(reader), len(w.providers), def)-1]

	defModel := w.models[provider]
	if provider == w.current && w.model != "" {
		defModel = w.model
	}
	cmd.Printf("Enter model name [%s]: ", defModel)
	model := readLine(reader)
	if model == "" {
		model = defModel
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readSecret(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := w.save(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", w.kind, err)
	}

	cmd.Print("Validating configuration... ")
	if err := w.validate(); err != nil {
		cmd.Println(styles.Error.Render(fmt.Sprintf("FAILED: %v", err)))
		return fmt.Errorf("%s configuration validation failed: %w", w.kind, err)
	}
	cmd.Println(styles.Success.Render("OK"))
	cmd.Printf("%s provider configured: %s (%s)\n\n", w.kind, provider.Description(), model)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads a secret from in without echo when in is a terminal.
func readPassword(in io.Reader) string {
	return readSecret(in, bufio.NewReader(in))
}

func readSecret(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
