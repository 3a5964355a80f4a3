package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// defaultPrompts seeds the prompt directory and backs any prompt whose file
// is missing or blank.
var defaultPrompts = map[string]string{
	driven.PromptTutorSystem: domain.DefaultTutorPrompt,
}

// PromptStore loads prompts from <dir>/<name>.txt. A file is re-read whenever
// its modification time or size changes, so edits apply to the next question
// without restarting a long-running MCP server.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.Mutex
	cache map[string]cachedPrompt
}

type cachedPrompt struct {
	text    string
	modTime time.Time
	size    int64
}

// NewPromptStore creates a prompt store rooted at promptDir, defaulting to
// ~/.lumen/prompts. No I/O happens until the first Load.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		promptDir = filepath.Join(dir, "prompts")
	}
	return &PromptStore{
		dir:   promptDir,
		cache: make(map[string]cachedPrompt),
	}, nil
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Path returns the file a prompt is read from.
func (s *PromptStore) Path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// Load returns the named prompt. Built-in prompts never fail: an unreadable
// directory, missing file or blank file yields the default text.
func (s *PromptStore) Load(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: prompt name %q", domain.ErrInvalidInput, name)
	}
	s.seedOnce.Do(s.seed)

	fallback, builtin := defaultPrompts[name]
	text, err := s.read(name)
	switch {
	case err == nil && text != "":
		return text, nil
	case builtin:
		return fallback, nil
	case err == nil:
		return "", fmt.Errorf("load prompt %q: file is empty", name)
	default:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}
}

// Reload forgets every cached prompt.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]cachedPrompt)
	s.mu.Unlock()
}

// read returns the trimmed file content, reusing the cached copy while the
// file is unchanged.
func (s *PromptStore) read(name string) (string, error) {
	if s.seedErr != nil {
		return "", s.seedErr
	}
	path := s.Path(name)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	c, ok := s.cache[name]
	s.mu.Unlock()
	if ok && c.modTime.Equal(info.ModTime()) && c.size == info.Size() {
		return c.text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))

	s.mu.Lock()
	s.cache[name] = cachedPrompt{text: text, modTime: info.ModTime(), size: info.Size()}
	s.mu.Unlock()
	return text, nil
}

// seed creates the prompt directory and writes any default prompt that has
// no file yet. Existing files are never overwritten.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}
	for name, content := range defaultPrompts {
		path := s.Path(name)
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		if err := os.WriteFile(path, []byte(content+"\n"), 0600); err != nil {
			s.seedErr = fmt.Errorf("write default prompt %q: %w", name, err)
			return
		}
	}
}
