package domain

import (
	"bytes"
	"strings"
	"time"
	"unicode/utf8"
)

// Document represents a structured text file loaded for indexing.
// It is immutable once loaded.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the original location (file path).
	URI string

	// Name is the source file name without extension.
	Name string

	// Title is the human-readable title (first level-1 header or Name).
	Title string

	// Content is the full raw text, header markers included.
	Content string

	// LoadedAt is when the document was read.
	LoadedAt time.Time
}

// Validate checks that the document can be chunked.
// Binary content and documents without any header line are rejected.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.Content) == "" {
		return ErrEmptyDocument
	}
	if !utf8.ValidString(d.Content) || bytes.IndexByte([]byte(d.Content), 0) >= 0 {
		return ErrMalformedDocument
	}
	if !HasHeader(d.Content) {
		return ErrMalformedDocument
	}
	return nil
}

// HasHeader reports whether text contains at least one markdown header line
// of any depth.
func HasHeader(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if HeaderDepth(line) > 0 {
			return true
		}
	}
	return false
}

// HeaderDepth returns the number of leading '#' markers of a header line,
// or 0 when the line is not a header ("#" run followed by a space).
func HeaderDepth(line string) int {
	depth := 0
	for depth < len(line) && line[depth] == '#' {
		depth++
	}
	if depth == 0 || depth > 6 || depth >= len(line) || line[depth] != ' ' {
		return 0
	}
	return depth
}

// Chunk represents a retrievable section of a document.
// Chunks are immutable after creation.
type Chunk struct {
	// ID is the dense 0-based position of the chunk in its ordered set.
	ID int

	// DocumentID links to the parent Document.
	DocumentID string

	// Source is the name of the file the chunk came from.
	Source string

	// SectionTitle is the header text the chunk starts with.
	SectionTitle string

	// Text is the chunk content, header line included.
	Text string

	// ByteLength always equals len(Text).
	ByteLength int
}

// NewChunk creates a chunk and fixes ByteLength to the text length.
func NewChunk(id int, doc *Document, sectionTitle, text string) Chunk {
	c := Chunk{
		ID:           id,
		SectionTitle: sectionTitle,
		Text:         text,
		ByteLength:   len(text),
	}
	if doc != nil {
		c.DocumentID = doc.ID
		c.Source = doc.Name
	}
	return c
}

// WithID returns a copy of the chunk carrying a new id.
func (c Chunk) WithID(id int) Chunk {
	c.ID = id
	return c
}

// Excerpt returns at most n bytes of the chunk text, cut on a rune boundary.
func (c Chunk) Excerpt(n int) string {
	if n <= 0 || len(c.Text) <= n {
		return c.Text
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(c.Text[cut]) {
		cut--
	}
	return c.Text[:cut]
}
