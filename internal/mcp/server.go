package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docdex/docdex/internal/async"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/query"
	"github.com/docdex/docdex/internal/store"
	"github.com/docdex/docdex/internal/telemetry"
	"github.com/docdex/docdex/pkg/version"
)

// Server is the MCP server for DocDex. It bridges AI clients with the
// query dispatcher over stdio.
type Server struct {
	mcp        *mcp.Server
	dispatcher *query.Dispatcher
	store      *store.DocumentStore
	index      *index.Index
	config     *config.Config
	logger     *slog.Logger

	rootPath string

	// Initial sync progress (nil when not syncing)
	syncProgress *async.SyncProgress

	// Active watching mechanism, reported by index_status.
	watcherType func() string

	// Query telemetry (optional, set via SetMetrics)
	metrics *telemetry.QueryMetrics

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates a new MCP server. rootPath is the absolute document
// root reported by index_status and used to resolve document resources.
func NewServer(dispatcher *query.Dispatcher, st *store.DocumentStore, ix *index.Index, cfg *config.Config, rootPath string) (*Server, error) {
	if dispatcher == nil {
		return nil, errors.New("query dispatcher is required")
	}
	if st == nil {
		return nil, errors.New("document store is required")
	}
	if ix == nil {
		return nil, errors.New("index is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		dispatcher: dispatcher,
		store:      st,
		index:      ix,
		config:     cfg,
		rootPath:   rootPath,
		logger:     slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "DocDex",
			Version: version.Version,
		},
		nil, // ServerOptions - capabilities are inferred from registered tools/resources
	)

	s.registerTools()

	return s, nil
}

// SetSyncProgress wires the initial sync tracker so index_status can
// report scan progress.
func (s *Server) SetSyncProgress(progress *async.SyncProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncProgress = progress
}

// SetWatcherType wires the function reporting the active watch
// mechanism.
func (s *Server) SetWatcherType(fn func() string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherType = fn
}

// SetMetrics sets the query metrics collector for telemetry.
// When set, a query_metrics resource is registered.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m

	if m != nil {
		s.registerQueryMetricsResource()
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "DocDex", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        "search_documents",
			Description: "Full-text fuzzy search over the live document index. Matches titles, body text and tags with typo tolerance; titles weigh heaviest. The index tracks the filesystem, so results reflect the documents as they are right now.",
		},
		{
			Name:        "get_document",
			Description: "Fetch one document by its path relative to the root: title, front-matter metadata, full plain text and modification time.",
		},
		{
			Name:        "list_documents",
			Description: "List every indexed document, optionally narrowed to an exact tag. Useful for orientation before searching.",
		},
		{
			Name:        "find_similar",
			Description: "Find documents related to a given one by vocabulary overlap. Good for surfacing companion notes and follow-ups.",
		},
		{
			Name:        "search_by_date",
			Description: "List documents by modification time window, newest first. Accepts calendar dates or RFC 3339 timestamps; both bounds are optional and strict.",
		},
		{
			Name:        "index_status",
			Description: "Check whether the index is ready, how many documents it holds, and how the filesystem is being watched. Use before searching right after startup.",
		},
	}
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	for _, t := range s.ListTools() {
		tool := &mcp.Tool{Name: t.Name, Description: t.Description}
		switch t.Name {
		case "search_documents":
			mcp.AddTool(s.mcp, tool, s.mcpSearchDocumentsHandler)
		case "get_document":
			mcp.AddTool(s.mcp, tool, s.mcpGetDocumentHandler)
		case "list_documents":
			mcp.AddTool(s.mcp, tool, s.mcpListDocumentsHandler)
		case "find_similar":
			mcp.AddTool(s.mcp, tool, s.mcpFindSimilarHandler)
		case "search_by_date":
			mcp.AddTool(s.mcp, tool, s.mcpSearchByDateHandler)
		case "index_status":
			mcp.AddTool(s.mcp, tool, s.mcpIndexStatusHandler)
		}
		s.logger.Debug("Registered tool", slog.String("name", t.Name))
	}

	s.logger.Info("MCP tools registered", slog.Int("count", len(s.ListTools())))
}

// clampLimit applies the tool-level limit policy: zero means default,
// positive values are clamped into [1, 50].
func clampLimit(limit int) (int, error) {
	const maxLimit = 50
	if limit < 0 {
		return 0, NewInvalidParamsError(fmt.Sprintf("limit must be positive, got %d", limit))
	}
	if limit > maxLimit {
		return maxLimit, nil
	}
	return limit, nil
}

// mcpSearchDocumentsHandler is the MCP SDK handler for search_documents.
func (s *Server) mcpSearchDocumentsHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchDocumentsInput) (
	*mcp.CallToolResult,
	SearchDocumentsOutput,
	error,
) {
	if input.Query == "" {
		return nil, SearchDocumentsOutput{}, NewInvalidParamsError("query parameter is required")
	}
	limit, err := clampLimit(input.Limit)
	if err != nil {
		return nil, SearchDocumentsOutput{}, err
	}

	results, err := s.dispatcher.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchDocumentsOutput{}, MapError(err)
	}

	output := SearchDocumentsOutput{
		Results: make([]SearchResultOutput, 0, len(results)),
	}
	for _, r := range results {
		output.Results = append(output.Results, SearchResultOutput{
			ID:      r.ID,
			Title:   r.Title,
			Score:   r.Score,
			Excerpt: r.Excerpt,
			Tags:    r.Tags,
		})
	}
	return nil, output, nil
}

// mcpGetDocumentHandler is the MCP SDK handler for get_document.
func (s *Server) mcpGetDocumentHandler(ctx context.Context, _ *mcp.CallToolRequest, input GetDocumentInput) (
	*mcp.CallToolResult,
	GetDocumentOutput,
	error,
) {
	if input.ID == "" {
		return nil, GetDocumentOutput{}, NewInvalidParamsError("id parameter is required")
	}

	doc, err := s.dispatcher.GetDocument(ctx, input.ID)
	if err != nil {
		return nil, GetDocumentOutput{}, MapError(err)
	}

	return nil, GetDocumentOutput{
		ID:           doc.ID,
		Title:        doc.Title,
		Metadata:     doc.Metadata,
		Content:      doc.Content,
		LastModified: doc.LastModified.Format(time.RFC3339),
	}, nil
}

// mcpListDocumentsHandler is the MCP SDK handler for list_documents.
func (s *Server) mcpListDocumentsHandler(ctx context.Context, _ *mcp.CallToolRequest, input ListDocumentsInput) (
	*mcp.CallToolResult,
	ListDocumentsOutput,
	error,
) {
	docs, err := s.dispatcher.ListDocuments(ctx, input.Tag)
	if err != nil {
		return nil, ListDocumentsOutput{}, MapError(err)
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentSummaryOutput, 0, len(docs)),
	}
	for _, d := range docs {
		output.Documents = append(output.Documents, DocumentSummaryOutput{
			ID:           d.ID,
			Title:        d.Title,
			Tags:         d.Tags,
			LastModified: d.LastModified.Format(time.RFC3339),
		})
	}
	return nil, output, nil
}

// mcpFindSimilarHandler is the MCP SDK handler for find_similar.
func (s *Server) mcpFindSimilarHandler(ctx context.Context, _ *mcp.CallToolRequest, input FindSimilarInput) (
	*mcp.CallToolResult,
	FindSimilarOutput,
	error,
) {
	if input.ID == "" {
		return nil, FindSimilarOutput{}, NewInvalidParamsError("id parameter is required")
	}
	limit, err := clampLimit(input.Limit)
	if err != nil {
		return nil, FindSimilarOutput{}, err
	}

	results, err := s.dispatcher.FindSimilar(ctx, input.ID, limit)
	if err != nil {
		return nil, FindSimilarOutput{}, MapError(err)
	}

	output := FindSimilarOutput{
		Results: make([]SimilarResultOutput, 0, len(results)),
	}
	for _, r := range results {
		output.Results = append(output.Results, SimilarResultOutput{
			ID:    r.ID,
			Title: r.Title,
			Score: r.Score,
		})
	}
	return nil, output, nil
}

// mcpSearchByDateHandler is the MCP SDK handler for search_by_date.
func (s *Server) mcpSearchByDateHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchByDateInput) (
	*mcp.CallToolResult,
	SearchByDateOutput,
	error,
) {
	docs, err := s.dispatcher.SearchByDate(ctx, input.After, input.Before)
	if err != nil {
		return nil, SearchByDateOutput{}, MapError(err)
	}

	output := SearchByDateOutput{
		Documents: make([]DocumentSummaryOutput, 0, len(docs)),
	}
	for _, d := range docs {
		output.Documents = append(output.Documents, DocumentSummaryOutput{
			ID:           d.ID,
			Title:        d.Title,
			LastModified: d.LastModified.Format(time.RFC3339),
			Excerpt:      d.Excerpt,
		})
	}
	return nil, output, nil
}

// mcpIndexStatusHandler is the MCP SDK handler for index_status.
func (s *Server) mcpIndexStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	s.mu.RLock()
	progress := s.syncProgress
	watcherType := s.watcherType
	s.mu.RUnlock()

	output := &IndexStatusOutput{
		Root:          s.rootPath,
		DocumentCount: s.store.Len(),
		Ready:         s.index.Ready(),
		Watcher:       "none",
	}
	if watcherType != nil {
		output.Watcher = watcherType()
	}
	if t := s.index.LastRebuild(); !t.IsZero() {
		output.LastRebuild = t.Format(time.RFC3339)
	}
	if progress != nil {
		snap := progress.Snapshot()
		output.Sync = &SyncProgress{
			Status:         snap.Status,
			Stage:          snap.Stage,
			FilesProcessed: snap.FilesProcessed,
			ElapsedSeconds: snap.ElapsedSeconds,
			ErrorMessage:   snap.ErrorMessage,
		}
	}

	return nil, output, nil
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	s.logger.Info("Starting MCP server",
		slog.String("transport", transport),
		slog.String("addr", addr))

	switch transport {
	case "stdio":
		s.logger.Debug("Using stdio transport for JSON-RPC")
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	// The MCP server stops when its context is canceled
	return nil
}
