// Package retrieval exposes the embedding index as a tool.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driving"
	"github.com/custodia-labs/lumen/internal/logger"
	"github.com/custodia-labs/lumen/internal/tools"
)

// SearchToolName is the name the search tool is advertised under.
const SearchToolName = "search_course_materials"

// MaxTopK caps the number of results a single call may request.
const MaxTopK = 10

// Config controls how search results are presented.
type Config struct {
	// TopK is used when the caller omits top_k.
	TopK int

	// ContextChars truncates each returned chunk text.
	ContextChars int
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = domain.DefaultTopK
	}
	if c.ContextChars <= 0 {
		c.ContextChars = domain.DefaultContextChars
	}
	return c
}

// SearchTool returns the course-material search tool backed by index.
func SearchTool(index driving.IndexService, cfg Config) driving.Tool {
	cfg = cfg.withDefaults()
	s := &searcher{index: index, cfg: cfg}

	return driving.Tool{
		Spec: domain.ToolSpec{
			Name: SearchToolName,
			Description: "Search the course materials for sections relevant to a query. " +
				"Returns the best matching sections with a similarity score. " +
				"If found is false, nothing relevant exists and you must say so rather than guess.",
			Parameters: map[string]domain.ParamSpec{
				"query": {
					Type:        domain.ParamString,
					Description: "What to look for, in natural language.",
					Required:    true,
				},
				"top_k": {
					Type:        domain.ParamInteger,
					Description: fmt.Sprintf("Number of sections to return (1-%d, default %d).", MaxTopK, cfg.TopK),
				},
			},
		},
		Func: s.search,
	}
}

type searcher struct {
	index driving.IndexService
	cfg   Config
}

func (s *searcher) search(ctx context.Context, args map[string]any) (domain.ToolOutcome, error) {
	query, _ := tools.String(args, "query")
	if query == "" {
		return domain.ToolError{Message: "query must not be empty"}, nil
	}
	k := clampTopK(tools.Int(args, "top_k", s.cfg.TopK))

	hits, err := s.index.Search(ctx, query, k)
	if err != nil {
		if errors.Is(err, domain.ErrSearchUnavailable) {
			logger.Warn("search unavailable: %v", err)
			return domain.ToolError{
				Message:   "search is temporarily unavailable",
				Grounding: domain.GroundingUnavailable,
			}, nil
		}
		return nil, err
	}

	floor := s.index.RelevanceFloor()
	relevant := domain.AboveFloor(hits, floor)
	top := domain.TopScore(hits)
	logger.Debug("search %q: %d hits, %d above floor %.2f, top %.3f", query, len(hits), len(relevant), floor, top)

	results := make([]any, 0, len(relevant))
	for _, h := range relevant {
		results = append(results, map[string]any{
			"chunk_id": h.Chunk.ID,
			"section":  h.Chunk.SectionTitle,
			"source":   h.Chunk.Source,
			"score":    tools.Round(h.Score, 4),
			"text":     h.Chunk.Excerpt(s.cfg.ContextChars),
		})
	}

	value := map[string]any{
		"query":   query,
		"found":   len(results) > 0,
		"results": results,
	}
	if len(hits) > 0 {
		value["top_score"] = tools.Round(top, 4)
	}

	grounding := domain.GroundingFound
	if len(results) == 0 {
		grounding = domain.GroundingEmpty
		value["message"] = "No relevant content was found in the course materials."
	}

	return domain.ToolOk{Value: value, Grounding: grounding}, nil
}

func clampTopK(k int) int {
	if k < 1 {
		return 1
	}
	if k > MaxTopK {
		return MaxTopK
	}
	return k
}
