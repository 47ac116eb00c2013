package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterResources registers every currently stored document as an MCP
// resource. Call after the initial sync so the snapshot is complete;
// reads always go through the store, so content stays live even when
// the resource list ages.
func (s *Server) RegisterResources(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.store.Snapshot()
	for _, doc := range snapshot {
		uri := fmt.Sprintf("doc://%s", doc.ID)
		s.mcp.AddResource(
			&mcp.Resource{
				Name:        filepath.Base(doc.ID),
				URI:         uri,
				Description: doc.Title,
				MIMEType:    MimeTypeForPath(doc.ID),
			},
			s.makeDocumentHandler(doc.ID),
		)
	}

	s.logger.Info("registered resources", slog.Int("count", len(snapshot)))
	return nil
}

// makeDocumentHandler creates a read handler for one document id.
func (s *Server) makeDocumentHandler(id string) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return s.handleReadDocument(ctx, id)
	}
}

// handleReadDocument serves the stored plain text for a document id.
// The store is the source of truth, a document deleted since
// registration reads as not-found.
func (s *Server) handleReadDocument(ctx context.Context, id string) (*mcp.ReadResourceResult, error) {
	if !isValidDocumentID(id) {
		return nil, NewInvalidParamsError(fmt.Sprintf("invalid document id: %s", id))
	}

	doc, ok := s.store.Get(id)
	if !ok {
		return nil, NewResourceNotFoundError(fmt.Sprintf("doc://%s", id))
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      fmt.Sprintf("doc://%s", id),
				MIMEType: MimeTypeForPath(id),
				Text:     doc.PlainText,
			},
		},
	}, nil
}

// isValidDocumentID rejects absolute paths and traversal attempts.
func isValidDocumentID(id string) bool {
	if id == "" {
		return false
	}
	if strings.HasPrefix(id, "/") {
		return false
	}
	// Windows drive prefix
	if len(id) >= 2 && id[1] == ':' {
		return false
	}
	for _, part := range strings.Split(id, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

// QueryMetricsOutput is the JSON structure for the query_metrics resource.
type QueryMetricsOutput struct {
	Summary             QueryMetricsSummary `json:"summary"`
	OpCounts            map[string]int64    `json:"op_counts"`
	TopTerms            []QueryTermCount    `json:"top_terms"`
	ZeroResultQueries   []string            `json:"zero_result_queries"`
	LatencyDistribution map[string]int64    `json:"latency_distribution"`
}

// QueryMetricsSummary provides overview statistics.
type QueryMetricsSummary struct {
	TotalQueries  int64   `json:"total_queries"`
	TimePeriod    string  `json:"time_period"`
	ZeroResultPct float64 `json:"zero_result_pct"`
}

// QueryTermCount represents a term and its frequency.
type QueryTermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// registerQueryMetricsResource registers the query_metrics resource.
func (s *Server) registerQueryMetricsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "query_metrics",
			URI:         "docdex://query_metrics",
			Description: "Query pattern telemetry for this session",
			MIMEType:    "application/json",
		},
		s.makeQueryMetricsHandler(),
	)
}

// makeQueryMetricsHandler creates a handler for the query_metrics resource.
func (s *Server) makeQueryMetricsHandler() mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		s.mu.RLock()
		metrics := s.metrics
		s.mu.RUnlock()

		if metrics == nil {
			return nil, NewInvalidParamsError("query metrics not available")
		}

		snapshot := metrics.Snapshot()

		output := QueryMetricsOutput{
			Summary: QueryMetricsSummary{
				TotalQueries:  snapshot.TotalQueries,
				TimePeriod:    "session",
				ZeroResultPct: snapshot.ZeroResultPercentage(),
			},
			OpCounts:            make(map[string]int64),
			TopTerms:            make([]QueryTermCount, 0, len(snapshot.TopTerms)),
			ZeroResultQueries:   snapshot.ZeroResultQueries,
			LatencyDistribution: make(map[string]int64),
		}

		for op, count := range snapshot.OpCounts {
			output.OpCounts[string(op)] = count
		}
		for _, tc := range snapshot.TopTerms {
			output.TopTerms = append(output.TopTerms, QueryTermCount{
				Term:  tc.Term,
				Count: tc.Count,
			})
		}
		for bucket, count := range snapshot.LatencyDistribution {
			output.LatencyDistribution[string(bucket)] = count
		}

		content, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			return nil, MapError(err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      "docdex://query_metrics",
					MIMEType: "application/json",
					Text:     string(content),
				},
			},
		}, nil
	}
}
