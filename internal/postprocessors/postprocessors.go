// Package postprocessors builds the chunkers that turn loaded documents into
// indexable units.
package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driven"
	"github.com/custodia-labs/lumen/internal/postprocessors/chunker"
)

// DefaultChunker is the name of the built-in section chunker.
const DefaultChunker = "chunker"

// Options carries the chunker settings taken from the index configuration.
type Options struct {
	// MinLength is the shortest section kept, in bytes.
	MinLength int
}

type builder func(opts Options) driven.Chunker

var builders = map[string]builder{
	DefaultChunker: func(opts Options) driven.Chunker {
		return chunker.New(chunker.WithMinLength(opts.MinLength))
	},
}

// Names returns the registered chunker names, sorted.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates the named chunker.
// Returns ErrUnsupportedType if the name is not registered.
func Build(name string, opts Options) (driven.Chunker, error) {
	b, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown chunker %s", domain.ErrUnsupportedType, name)
	}
	if opts.MinLength < 0 {
		return nil, fmt.Errorf("%w: min length %d", domain.ErrInvalidInput, opts.MinLength)
	}
	return b(opts), nil
}

// NewDefault builds the section chunker with the given minimum length.
func NewDefault(minLength int) (driven.Chunker, error) {
	return Build(DefaultChunker, Options{MinLength: minLength})
}
