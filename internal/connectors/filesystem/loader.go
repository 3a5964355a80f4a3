// Package filesystem loads the lecture corpus from a local directory and
// watches it for changes.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driven"
	"github.com/custodia-labs/lumen/internal/logger"
	"github.com/custodia-labs/lumen/internal/normalisers/markdown"
)

// Verify interface compliance.
var _ driven.DocumentLoader = (*Loader)(nil)

// DefaultPatterns matches markdown lectures.
var DefaultPatterns = []string{"*.md"}

// Loader reads matching files under a root directory.
type Loader struct {
	rootPath string
	patterns []string
}

// New creates a loader for rootPath. Empty patterns default to *.md.
func New(rootPath string, patterns []string) *Loader {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	return &Loader{
		rootPath: rootPath,
		patterns: append([]string(nil), patterns...),
	}
}

// Location returns the corpus directory.
func (l *Loader) Location() string {
	return l.rootPath
}

// Load walks the directory and returns every matching document sorted by path.
// A missing directory is reported as domain.ErrNoDocuments.
func (l *Loader) Load(ctx context.Context) ([]*domain.Document, []domain.IngestIssue, error) {
	if err := l.validate(); err != nil {
		return nil, nil, err
	}

	paths, err := l.matchingFiles(ctx)
	if err != nil {
		return nil, nil, err
	}

	var (
		docs   []*domain.Document
		issues []domain.IngestIssue
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		doc, err := readDocument(path)
		if err != nil {
			logger.Warn("Skipping unreadable file %s: %v", path, err)
			issues = append(issues, domain.IngestIssue{URI: path, Reason: err})
			continue
		}
		docs = append(docs, doc)
	}

	logger.Debug("Loaded %d documents from %s", len(docs), l.rootPath)
	return docs, issues, nil
}

// validate checks that the root exists, is a directory and every pattern is well formed.
func (l *Loader) validate() error {
	if strings.TrimSpace(l.rootPath) == "" {
		return fmt.Errorf("%w: corpus directory is not set", domain.ErrNoDocuments)
	}
	info, err := os.Stat(l.rootPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: corpus directory does not exist: %s", domain.ErrNoDocuments, l.rootPath)
	}
	if err != nil {
		return fmt.Errorf("cannot access corpus directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: corpus path is not a directory: %s", domain.ErrNoDocuments, l.rootPath)
	}
	for _, p := range l.patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("%w: bad pattern %q", domain.ErrInvalidInput, p)
		}
	}
	return nil
}

func (l *Loader) matchingFiles(ctx context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(l.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subdirectories are skipped rather than failing the load
			if d != nil && d.IsDir() && path != l.rootPath {
				logger.Warn("Skipping directory %s: %v", path, err)
				return filepath.SkipDir
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if path != l.rootPath && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if l.matches(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking corpus directory: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// matches reports whether a file name matches any pattern.
func (l *Loader) matches(name string) bool {
	for _, p := range l.patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

func readDocument(path string) (*domain.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	text := markdown.Normalise(string(content))

	return &domain.Document{
		ID:       uuid.New().String(),
		URI:      path,
		Name:     name,
		Title:    titleOf(text, name),
		Content:  text,
		LoadedAt: time.Now(),
	}, nil
}

// titleOf returns the first level-1 header, or fallback.
func titleOf(content, fallback string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if domain.HeaderDepth(line) == 1 {
			if title := strings.TrimSpace(strings.TrimPrefix(line, "#")); title != "" {
				return title
			}
		}
	}
	return fallback
}

// isHidden checks if any component of a path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
