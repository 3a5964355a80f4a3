package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/services"
)

const (
	// URIScheme is the custom URI scheme for Lumen resources.
	uriScheme = "lumen://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "index",
		Name:        "index",
		Description: "Statistics of the course material index",
		MIMEType:    "application/json",
	}, s.handleIndexResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "history",
		Name:        "history",
		Description: "Recently answered questions",
		MIMEType:    "application/json",
	}, s.handleHistoryResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "history/{queryId}",
		Name:        "history-entry",
		Description: "One answered question",
		MIMEType:    "application/json",
	}, s.handleHistoryEntryResource)
}

type indexInfo struct {
	Built      bool   `json:"built"`
	Chunks     int    `json:"chunks"`
	Dimensions int    `json:"dimensions"`
	Similarity string `json:"similarity"`
	Model      string `json:"model,omitempty"`
	Backend    string `json:"backend,omitempty"`
	BuiltAt    string `json:"built_at,omitempty"`
}

type historyInfo struct {
	ID         string `json:"id"`
	Query      string `json:"query"`
	Answer     string `json:"answer"`
	Degraded   bool   `json:"degraded"`
	ToolCalls  int    `json:"tool_calls"`
	Rounds     int    `json:"rounds"`
	DurationMS int64  `json:"duration_ms"`
	CreatedAt  string `json:"created_at"`
}

// handleIndexResource returns the current index statistics.
func (s *Server) handleIndexResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Index == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	stats := s.ports.Index.Stats()
	info := indexInfo{
		Built:      stats.Built,
		Chunks:     stats.Chunks,
		Dimensions: stats.Dimensions,
		Similarity: stats.SimilarityMode(),
		Model:      stats.Model,
		Backend:    stats.Backend,
	}
	if !stats.BuiltAt.IsZero() {
		info.BuiltAt = stats.BuiltAt.Format(time.RFC3339)
	}

	return jsonResource(req.Params.URI, info)
}

// handleHistoryResource returns the most recent answered questions.
func (s *Server) handleHistoryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.History == nil {
		return jsonResource(req.Params.URI, []historyInfo{})
	}

	records, err := s.ports.History.Recent(ctx, services.DefaultHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}

	infos := make([]historyInfo, len(records))
	for i := range records {
		infos[i] = toHistoryInfo(records[i])
	}
	return jsonResource(req.Params.URI, infos)
}

// handleHistoryEntryResource returns one answered question.
func (s *Server) handleHistoryEntryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.History == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	id := extractQueryID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	record, err := s.ports.History.Get(ctx, id)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return jsonResource(req.Params.URI, toHistoryInfo(*record))
}

func toHistoryInfo(r domain.QueryRecord) historyInfo {
	return historyInfo{
		ID:         r.ID,
		Query:      r.Query,
		Answer:     r.Answer,
		Degraded:   r.Degraded,
		ToolCalls:  r.ToolCalls,
		Rounds:     r.Rounds,
		DurationMS: r.Duration.Milliseconds(),
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
	}
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractQueryID extracts the query ID from a URI like lumen://history/{queryId}.
func extractQueryID(uri string) string {
	const prefix = uriScheme + "history/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
