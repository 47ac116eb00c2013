// Package query exposes the read-side operations over the store, index
// and similarity engine. The dispatcher is stateless: every call works
// against a fresh snapshot and nothing here mutates.
package query

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/errors"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/similarity"
	"github.com/docdex/docdex/internal/store"
)

// Recorder receives per-operation telemetry. Implementations must be
// safe for concurrent use.
type Recorder interface {
	RecordQuery(op string, query string, latency time.Duration, results int)
}

// SearchResult is one ranked full-text match.
type SearchResult struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Score   float64  `json:"score"`
	Excerpt string   `json:"excerpt"`
	Tags    []string `json:"tags,omitempty"`
}

// DocumentView is the full record returned by GetDocument.
type DocumentView struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Content      string         `json:"content"`
	LastModified time.Time      `json:"last_modified"`
}

// DocumentSummary is the listing shape used by ListDocuments and
// SearchByDate.
type DocumentSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Tags         []string  `json:"tags,omitempty"`
	LastModified time.Time `json:"last_modified"`
	Excerpt      string    `json:"excerpt,omitempty"`
}

// SimilarResult is one ranked related document.
type SimilarResult struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Dispatcher routes read operations to the store, index and similarity
// engine.
type Dispatcher struct {
	cfg     *config.Config
	store   *store.DocumentStore
	index   *index.Index
	logger  *slog.Logger
	metrics Recorder
}

// New creates a Dispatcher. metrics may be nil.
func New(cfg *config.Config, st *store.DocumentStore, ix *index.Index, logger *slog.Logger, metrics Recorder) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:     cfg,
		store:   st,
		index:   ix,
		logger:  logger,
		metrics: metrics,
	}
}

// Search runs a fuzzy weighted full-text query. A zero limit means the
// configured default; negative limits are validation errors; large
// limits are clamped.
func (d *Dispatcher) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	started := time.Now()
	reqID := requestID()

	if strings.TrimSpace(query) == "" {
		return nil, errors.New(errors.ErrCodeQueryEmpty, "search query must not be empty", nil).
			WithSuggestion("provide at least one search term")
	}
	limit, err := d.resolveLimit(limit, d.cfg.Search.DefaultLimit)
	if err != nil {
		return nil, err
	}

	matches, err := d.index.Search(ctx, query, limit)
	if err != nil {
		if stderrors.Is(err, index.ErrIndexNotReady) {
			return nil, errors.New(errors.ErrCodeIndexNotReady, "search index is still building", err).
				WithSuggestion("retry once the initial scan completes")
		}
		return nil, errors.New(errors.ErrCodeSearchFailed, "search failed", err)
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		doc, ok := d.store.Get(m.ID)
		if !ok {
			// Indexed snapshot can trail the store; skip rather than
			// return a record we can no longer show.
			continue
		}
		results = append(results, SearchResult{
			ID:      m.ID,
			Title:   doc.Title,
			Score:   m.Score,
			Excerpt: d.excerpt(doc.PlainText, query),
			Tags:    doc.Tags(),
		})
	}

	d.finish("search", reqID, query, started, len(results))
	return results, nil
}

// GetDocument returns the full record for one document id.
func (d *Dispatcher) GetDocument(ctx context.Context, id string) (DocumentView, error) {
	started := time.Now()
	reqID := requestID()

	if err := validateID(id); err != nil {
		return DocumentView{}, err
	}
	doc, ok := d.store.Get(id)
	if !ok {
		return DocumentView{}, errors.NotFoundError(id)
	}

	d.finish("get", reqID, id, started, 1)
	return DocumentView{
		ID:           doc.ID,
		Title:        doc.Title,
		Metadata:     doc.Metadata,
		Content:      doc.PlainText,
		LastModified: doc.LastModified,
	}, nil
}

// ListDocuments returns every document, or exactly those tagged with
// tag. Tag matching is exact and case-sensitive. Results come back in
// snapshot order, which is sorted by id.
func (d *Dispatcher) ListDocuments(ctx context.Context, tag string) ([]DocumentSummary, error) {
	started := time.Now()
	reqID := requestID()

	snapshot := d.store.Snapshot()
	results := make([]DocumentSummary, 0, len(snapshot))
	for _, doc := range snapshot {
		if tag != "" && !doc.HasTag(tag) {
			continue
		}
		results = append(results, DocumentSummary{
			ID:           doc.ID,
			Title:        doc.Title,
			Tags:         doc.Tags(),
			LastModified: doc.LastModified,
		})
	}

	d.finish("list", reqID, tag, started, len(results))
	return results, nil
}

// FindSimilar ranks documents by token-set overlap with the target.
func (d *Dispatcher) FindSimilar(ctx context.Context, id string, limit int) ([]SimilarResult, error) {
	started := time.Now()
	reqID := requestID()

	if err := validateID(id); err != nil {
		return nil, err
	}
	limit, err := d.resolveLimit(limit, d.cfg.Similarity.DefaultLimit)
	if err != nil {
		return nil, err
	}

	target, ok := d.store.Get(id)
	if !ok {
		return nil, errors.NotFoundError(id)
	}

	snapshot := d.store.Snapshot()
	ranked := similarity.Rank(snapshot, target, limit)

	byID := make(map[string]store.Document, len(snapshot))
	for _, doc := range snapshot {
		byID[doc.ID] = doc
	}

	results := make([]SimilarResult, 0, len(ranked))
	for _, m := range ranked {
		results = append(results, SimilarResult{
			ID:    m.ID,
			Title: byID[m.ID].Title,
			Score: m.Score,
		})
	}

	d.finish("similar", reqID, id, started, len(results))
	return results, nil
}

// SearchByDate filters the snapshot by LastModified, strictly after
// and/or strictly before the given bounds. Either bound may be empty.
// Results are descending by LastModified, ties broken by id.
func (d *Dispatcher) SearchByDate(ctx context.Context, after, before string) ([]DocumentSummary, error) {
	started := time.Now()
	reqID := requestID()

	var (
		afterT, beforeT time.Time
		hasAfter        = strings.TrimSpace(after) != ""
		hasBefore       = strings.TrimSpace(before) != ""
		err             error
	)
	if hasAfter {
		if afterT, err = parseDate(after); err != nil {
			return nil, err
		}
	}
	if hasBefore {
		if beforeT, err = parseDate(before); err != nil {
			return nil, err
		}
	}

	results := make([]DocumentSummary, 0)
	for _, doc := range d.store.Snapshot() {
		if hasAfter && !doc.LastModified.After(afterT) {
			continue
		}
		if hasBefore && !doc.LastModified.Before(beforeT) {
			continue
		}
		results = append(results, DocumentSummary{
			ID:           doc.ID,
			Title:        doc.Title,
			LastModified: doc.LastModified,
			Excerpt:      d.excerpt(doc.PlainText, ""),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].LastModified.Equal(results[j].LastModified) {
			return results[i].LastModified.After(results[j].LastModified)
		}
		return results[i].ID < results[j].ID
	})

	d.finish("by_date", reqID, after+".."+before, started, len(results))
	return results, nil
}

// resolveLimit applies the zero-means-default rule and clamps to the
// configured maximum.
func (d *Dispatcher) resolveLimit(limit, def int) (int, error) {
	if limit < 0 {
		return 0, errors.New(errors.ErrCodeInvalidLimit,
			fmt.Sprintf("limit must be positive, got %d", limit), nil)
	}
	if limit == 0 {
		limit = def
	}
	if max := d.cfg.Search.MaxLimit; max > 0 && limit > max {
		limit = max
	}
	return limit, nil
}

// excerpt returns the leading slice of text cut back to a word
// boundary, preferring a window around the first query term hit.
func (d *Dispatcher) excerpt(text, query string) string {
	maxLen := d.cfg.Search.ExcerptLength
	if maxLen <= 0 {
		maxLen = 160
	}
	if len(text) <= maxLen {
		return text
	}

	start := 0
	if query != "" {
		if pos := firstTermHit(text, query); pos > maxLen/2 {
			start = wordBoundaryBefore(text, pos-maxLen/2)
		}
	}

	end := start + maxLen
	if end >= len(text) {
		start = wordBoundaryBefore(text, len(text)-maxLen)
		end = len(text)
	} else {
		end = wordBoundaryBefore(text, end)
		if end <= start {
			end = start + maxLen
		}
	}

	out := strings.TrimSpace(text[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}

// firstTermHit returns the byte offset of the earliest case-insensitive
// occurrence of any query term, or 0 when nothing matches.
func firstTermHit(text, query string) int {
	lower := strings.ToLower(text)
	best := -1
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if pos := strings.Index(lower, term); pos >= 0 && (best < 0 || pos < best) {
			best = pos
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

// wordBoundaryBefore walks pos back to the nearest space so a cut never
// splits a word. Falls back to pos when there is no space to find.
func wordBoundaryBefore(text string, pos int) int {
	if pos <= 0 {
		return 0
	}
	if pos >= len(text) {
		pos = len(text)
	}
	if idx := strings.LastIndexByte(text[:pos], ' '); idx > 0 {
		return idx + 1
	}
	return pos
}

// parseDate accepts a calendar date (midnight UTC) or a full RFC 3339
// timestamp.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New(errors.ErrCodeInvalidDate,
		fmt.Sprintf("unrecognized date %q", s), nil).
		WithSuggestion("use YYYY-MM-DD or an RFC 3339 timestamp")
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "document id must not be empty", nil)
	}
	if strings.HasPrefix(id, "/") || strings.Contains(id, "..") {
		return errors.New(errors.ErrCodeInvalidPath,
			fmt.Sprintf("document id must be a relative path inside the root: %s", id), nil)
	}
	return nil
}

func requestID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func (d *Dispatcher) finish(op, reqID, input string, started time.Time, results int) {
	elapsed := time.Since(started)
	d.logger.Debug("query served",
		slog.String("op", op),
		slog.String("request_id", reqID),
		slog.Duration("duration", elapsed),
		slog.Int("results", results))
	if d.metrics != nil {
		d.metrics.RecordQuery(op, input, elapsed, results)
	}
}
