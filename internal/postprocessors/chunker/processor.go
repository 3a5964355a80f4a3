// Package chunker splits structured documents into sections at "## " headers.
package chunker

import (
	"strings"

	"github.com/custodia-labs/lumen/internal/core/domain"
)

// DefaultMinLength is the default minimum chunk length in bytes.
const DefaultMinLength = domain.DefaultMinChunkLength

// sectionMarker starts every depth-2 header line.
const sectionMarker = "## "

// Processor splits document content into header-delimited sections.
// It implements the driven.Chunker interface.
type Processor struct {
	minLength int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMinLength sets the minimum length a section needs to be kept.
func WithMinLength(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.minLength = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		minLength: DefaultMinLength,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// MinLength returns the configured minimum chunk length.
func (p *Processor) MinLength() int {
	return p.minLength
}

// Chunk splits the document at every line beginning with "## ".
// The text before the first marker is one candidate. Candidates are trimmed
// and dropped when shorter than the minimum length; IDs are positions in the
// kept result.
func (p *Processor) Chunk(doc *domain.Document) []domain.Chunk {
	if doc == nil || doc.Content == "" {
		return nil
	}

	var chunks []domain.Chunk
	for _, s := range splitSections(doc.Content) {
		text := strings.TrimSpace(s.text)
		if text == "" || len(text) < p.minLength {
			continue
		}
		title := s.title
		if title == "" {
			title = prefixTitle(text, doc.Title)
		}
		chunks = append(chunks, domain.NewChunk(len(chunks), doc, title, text))
	}

	return chunks
}

type section struct {
	title string
	text  string
}

// splitSections cuts content before every marker line, keeping the marker
// with the section it opens.
func splitSections(content string) []section {
	lines := strings.SplitAfter(content, "\n")

	sections := []section{{}}
	var b strings.Builder
	for _, line := range lines {
		if strings.HasPrefix(line, sectionMarker) {
			sections[len(sections)-1].text = b.String()
			b.Reset()
			title := strings.TrimSpace(strings.TrimPrefix(line, sectionMarker))
			sections = append(sections, section{title: title})
		}
		b.WriteString(line)
	}
	sections[len(sections)-1].text = b.String()

	return sections
}

// prefixTitle names the leading section after its first level-1 header.
func prefixTitle(text, fallback string) string {
	for _, line := range strings.Split(text, "\n") {
		if domain.HeaderDepth(line) == 1 {
			return strings.TrimSpace(line[2:])
		}
	}
	return fallback
}
