package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/internal/async"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/normalize"
	"github.com/docdex/docdex/internal/query"
	"github.com/docdex/docdex/internal/store"
)

// ============================================================================
// Test Helpers
// ============================================================================

func newTestServer(t *testing.T) (*Server, *store.DocumentStore, *index.Index) {
	t.Helper()

	cfg := config.NewConfig()
	st := store.NewDocumentStore()
	ix := index.New(index.DefaultConfig())
	t.Cleanup(func() { _ = ix.Close() })

	dispatcher := query.New(cfg, st, ix, nil, nil)
	srv, err := NewServer(dispatcher, st, ix, cfg, "/tmp/docs")
	require.NoError(t, err)
	return srv, st, ix
}

func addDoc(t *testing.T, st *store.DocumentStore, id, title, body string, rev uint64, tags ...string) {
	t.Helper()

	plain, tokens := normalize.Normalize([]byte(body))
	meta := map[string]any{}
	if len(tags) > 0 {
		anyTags := make([]any, len(tags))
		for i, tg := range tags {
			anyTags[i] = tg
		}
		meta["tags"] = anyTags
	}
	st.Upsert(id, store.Document{
		Title:        title,
		PlainText:    plain,
		Metadata:     meta,
		LastModified: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(rev) * time.Hour),
		Tokens:       tokens,
	}, rev)
}

func seedServer(t *testing.T, st *store.DocumentStore, ix *index.Index) {
	t.Helper()

	addDoc(t, st, "deploy.md", "Deployment Guide", "How to deploy and roll back the service.", 1, "ops")
	addDoc(t, st, "oncall.md", "Oncall Handbook", "Deploy freezes and escalation paths.", 2, "ops", "oncall")
	require.NoError(t, ix.Rebuild(context.Background(), st.Snapshot()))
}

// ============================================================================
// Construction
// ============================================================================

func TestNewServer_RequiresDependencies(t *testing.T) {
	cfg := config.NewConfig()
	st := store.NewDocumentStore()
	ix := index.New(index.DefaultConfig())
	defer func() { _ = ix.Close() }()
	dispatcher := query.New(cfg, st, ix, nil, nil)

	_, err := NewServer(nil, st, ix, cfg, "/tmp")
	assert.Error(t, err)

	_, err = NewServer(dispatcher, nil, ix, cfg, "/tmp")
	assert.Error(t, err)

	_, err = NewServer(dispatcher, st, nil, cfg, "/tmp")
	assert.Error(t, err)

	srv, err := NewServer(dispatcher, st, ix, nil, "/tmp")
	require.NoError(t, err, "nil config falls back to defaults")
	assert.NotNil(t, srv.MCPServer())
}

func TestServer_Info(t *testing.T) {
	srv, _, _ := newTestServer(t)

	name, ver := srv.Info()

	assert.Equal(t, "DocDex", name)
	assert.NotEmpty(t, ver)
}

func TestServer_ListTools(t *testing.T) {
	srv, _, _ := newTestServer(t)

	tools := srv.ListTools()

	require.Len(t, tools, 6)
	names := make([]string, 0, len(tools))
	for _, tl := range tools {
		names = append(names, tl.Name)
		assert.NotEmpty(t, tl.Description)
	}
	assert.Equal(t, []string{
		"search_documents", "get_document", "list_documents",
		"find_similar", "search_by_date", "index_status",
	}, names)
}

// ============================================================================
// search_documents
// ============================================================================

func TestSearchDocuments_ReturnsResults(t *testing.T) {
	srv, st, ix := newTestServer(t)
	seedServer(t, st, ix)

	_, out, err := srv.mcpSearchDocumentsHandler(context.Background(), nil, SearchDocumentsInput{Query: "deploy"})

	require.NoError(t, err)
	require.NotEmpty(t, out.Results)
	assert.Equal(t, "deploy.md", out.Results[0].ID)
	assert.NotEmpty(t, out.Results[0].Excerpt)
}

func TestSearchDocuments_MissingQuery_IsInvalidParams(t *testing.T) {
	srv, st, ix := newTestServer(t)
	seedServer(t, st, ix)

	_, _, err := srv.mcpSearchDocumentsHandler(context.Background(), nil, SearchDocumentsInput{})

	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestSearchDocuments_NegativeLimit_IsInvalidParams(t *testing.T) {
	srv, st, ix := newTestServer(t)
	seedServer(t, st, ix)

	_, _, err := srv.mcpSearchDocumentsHandler(context.Background(), nil, SearchDocumentsInput{Query: "deploy", Limit: -3})

	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestSearchDocuments_OversizedLimit_IsClamped(t *testing.T) {
	srv, st, ix := newTestServer(t)
	seedServer(t, st, ix)

	_, out, err := srv.mcpSearchDocumentsHandler(context.Background(), nil, SearchDocumentsInput{Query: "deploy", Limit: 500})

	require.NoError(t, err)
	assert.LessOrEqual(t, len(out.Results), 50)
}

func TestSearchDocuments_BeforeRebuild_IsIndexNotReady(t *testing.T) {
	srv, st, _ := newTestServer(t)
	addDoc(t, st, "a.md", "A", "alpha", 1)

	_, _, err := srv.mcpSearchDocumentsHandler(context.Background(), nil, SearchDocumentsInput{Query: "alpha"})

	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeIndexNotReady, mcpErr.Code)
}

// ============================================================================
// get_document
// ============================================================================

func TestGetDocument_ReturnsRecord(t *testing.T) {
	srv, st, ix := newTestServer(t)
	seedServer(t, st, ix)

	_, out, err := srv.mcpGetDocumentHandler(context.Background(), nil, GetDocumentInput{ID: "oncall.md"})

	require.NoError(t, err)
	assert.Equal(t, "oncall.md", out.ID)
	assert.Equal(t, "Oncall Handbook", out.Title)
	assert.Contains(t, out.Content, "escalation")
	_, parseErr := time.Parse(time.RFC3339, out.LastModified)
	assert.NoError(t, parseErr)
}

func TestGetDocument_Unknown_IsNotFound(t *testing.T) {
	srv, st, ix := newTestServer(t)
	seedServer(t, st, ix)

	_, _, err := srv.mcpGetDocumentHandler(context.Background(), nil, GetDocumentInput{ID: "nope.md"})

	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeDocumentNotFound, mcpErr.Code)
}

// ============================================================================
// list_documents
// ============================================================================

func TestListDocuments_FiltersByTag(t *testing.T) {
	srv, st, ix := newTestServer(t)
	seedServer(t, st, ix)

	_, all, err := srv.mcpListDocumentsHandler(context.Background(), nil, ListDocumentsInput{})
	require.NoError(t, err)
	assert.Len(t, all.Documents, 2)

	_, oncall, err := srv.mcpListDocumentsHandler(context.Background(), nil, ListDocumentsInput{Tag: "oncall"})
	require.NoError(t, err)
	require.Len(t, oncall.Documents, 1)
	assert.Equal(t, "oncall.md", oncall.Documents[0].ID)
}

// ============================================================================
// find_similar
// ============================================================================

func TestFindSimilar_ReturnsRelated(t *testing.T) {
	srv, st, ix := newTestServer(t)
	seedServer(t, st, ix)

	_, out, err := srv.mcpFindSimilarHandler(context.Background(), nil, FindSimilarInput{ID: "deploy.md"})

	require.NoError(t, err)
	require.NotEmpty(t, out.Results)
	assert.Equal(t, "oncall.md", out.Results[0].ID)
	assert.Greater(t, out.Results[0].Score, 0.0)
}

func TestFindSimilar_MissingID_IsInvalidParams(t *testing.T) {
	srv, st, ix := newTestServer(t)
	seedServer(t, st, ix)

	_, _, err := srv.mcpFindSimilarHandler(context.Background(), nil, FindSimilarInput{})

	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

// ============================================================================
// search_by_date
// ============================================================================

func TestSearchByDate_FiltersAndSorts(t *testing.T) {
	srv, st, ix := newTestServer(t)
	seedServer(t, st, ix)

	_, out, err := srv.mcpSearchByDateHandler(context.Background(), nil, SearchByDateInput{After: "2024-06-01"})

	require.NoError(t, err)
	require.Len(t, out.Documents, 2)
	assert.Equal(t, "oncall.md", out.Documents[0].ID, "newest first")
}

func TestSearchByDate_MalformedDate_IsInvalidParams(t *testing.T) {
	srv, st, ix := newTestServer(t)
	seedServer(t, st, ix)

	_, _, err := srv.mcpSearchByDateHandler(context.Background(), nil, SearchByDateInput{After: "not-a-date"})

	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

// ============================================================================
// index_status
// ============================================================================

func TestIndexStatus_ReportsStoreAndIndexState(t *testing.T) {
	srv, st, ix := newTestServer(t)
	seedServer(t, st, ix)
	srv.SetWatcherType(func() string { return "fsnotify" })

	_, out, err := srv.mcpIndexStatusHandler(context.Background(), nil, IndexStatusInput{})

	require.NoError(t, err)
	assert.Equal(t, "/tmp/docs", out.Root)
	assert.Equal(t, 2, out.DocumentCount)
	assert.True(t, out.Ready)
	assert.NotEmpty(t, out.LastRebuild)
	assert.Equal(t, "fsnotify", out.Watcher)
	assert.Nil(t, out.Sync)
}

func TestIndexStatus_IncludesSyncProgress(t *testing.T) {
	srv, _, _ := newTestServer(t)
	progress := async.NewSyncProgress()
	progress.FileProcessed()
	progress.FileProcessed()
	srv.SetSyncProgress(progress)

	_, out, err := srv.mcpIndexStatusHandler(context.Background(), nil, IndexStatusInput{})

	require.NoError(t, err)
	require.NotNil(t, out.Sync)
	assert.Equal(t, "syncing", out.Sync.Status)
	assert.Equal(t, 2, out.Sync.FilesProcessed)
	assert.False(t, out.Ready)
	assert.Equal(t, "none", out.Watcher)
}
