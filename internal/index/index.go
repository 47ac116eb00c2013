// Package index provides the full-text search index over the document
// store. The index is an in-memory bleve index built from a store snapshot;
// it is derived and disposable. Every change batch replaces it wholesale,
// there is no incremental patching.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/docdex/docdex/internal/store"
)

// DocAnalyzerName is the name of the custom analyzer applied to all fields:
// unicode word boundaries, lowercased.
const DocAnalyzerName = "doc_analyzer"

// Indexed field names. Match.Fields reports hits against these.
const (
	FieldTitle = "title"
	FieldBody  = "body"
	FieldTags  = "tags"
)

// rebuildBatchSize bounds how many documents a single bleve batch carries.
const rebuildBatchSize = 500

// ErrIndexNotReady is returned by Search before the first successful
// rebuild has populated the index.
var ErrIndexNotReady = errors.New("search index not ready")

// Config tunes query-time matching.
type Config struct {
	// Fuzziness is the edit-distance tolerance for each query term (0-2).
	Fuzziness int

	// TitleBoost, BodyBoost and TagBoost weigh per-field matches. Titles
	// carry the strongest signal, tags the weakest.
	TitleBoost float64
	BodyBoost  float64
	TagBoost   float64
}

// DefaultConfig returns the standard weighting.
func DefaultConfig() Config {
	return Config{
		Fuzziness:  1,
		TitleBoost: 3.0,
		BodyBoost:  2.0,
		TagBoost:   1.0,
	}
}

// Match is a single search hit.
type Match struct {
	// ID is the document id.
	ID string

	// Score is distance-like: bleve relevance mapped through 1/(1+r).
	// Lower is better.
	Score float64

	// Fields lists which of title/body/tags matched, in that fixed order.
	Fields []string
}

// Index is the bleve-backed search index. Rebuild replaces its contents
// from a store snapshot; Search runs weighted fuzzy queries against the
// most recently built snapshot. Safe for concurrent use.
type Index struct {
	cfg Config

	mu          sync.RWMutex
	index       bleve.Index
	order       map[string]int // id -> position in the snapshot the index was built from
	docCount    int
	lastRebuild time.Time
}

// New returns an empty index. Search returns ErrIndexNotReady until the
// first successful Rebuild.
func New(cfg Config) *Index {
	return &Index{cfg: cfg}
}

// indexDocument is the shape handed to bleve for each document.
type indexDocument struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

// createIndexMapping builds the bleve mapping shared by every rebuild.
func createIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(DocAnalyzerName,
		map[string]interface{}{
			"type":      custom.Name,
			"tokenizer": unicode.Name,
			"token_filters": []string{
				lowercase.Name,
			},
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create custom analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = DocAnalyzerName
	return indexMapping, nil
}

// Rebuild replaces the index contents with the given snapshot. The
// replacement is built without holding the lock, then swapped in; in-flight
// searches finish against the old index before it is closed.
func (ix *Index) Rebuild(ctx context.Context, docs []store.Document) error {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return err
	}

	next, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	order := make(map[string]int, len(docs))
	batch := next.NewBatch()
	for i, doc := range docs {
		order[doc.ID] = i
		err := batch.Index(doc.ID, indexDocument{
			Title: doc.Title,
			Body:  doc.PlainText,
			Tags:  doc.Tags(),
		})
		if err != nil {
			_ = next.Close()
			return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
		if batch.Size() >= rebuildBatchSize {
			if err := ctx.Err(); err != nil {
				_ = next.Close()
				return err
			}
			if err := next.Batch(batch); err != nil {
				_ = next.Close()
				return fmt.Errorf("failed to apply index batch: %w", err)
			}
			batch = next.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := next.Batch(batch); err != nil {
			_ = next.Close()
			return fmt.Errorf("failed to apply index batch: %w", err)
		}
	}

	ix.mu.Lock()
	old := ix.index
	ix.index = next
	ix.order = order
	ix.docCount = len(docs)
	ix.lastRebuild = time.Now()
	ix.mu.Unlock()

	// Readers that saw the old index drained before the swap completed.
	if old != nil {
		_ = old.Close()
	}

	return nil
}

// Search runs a weighted fuzzy query and returns up to limit matches in
// ascending score order (lower is better). Ties keep the snapshot order of
// the rebuild that produced the current index.
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.index == nil {
		return nil, ErrIndexNotReady
	}
	if strings.TrimSpace(query) == "" {
		return []Match{}, nil
	}

	request := ix.newSearchRequest(query, limit)
	result, err := ix.index.SearchInContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	matches := make([]Match, 0, len(result.Hits))
	for _, hit := range result.Hits {
		matches = append(matches, Match{
			ID:     hit.ID,
			Score:  1 / (1 + hit.Score),
			Fields: matchedFields(hit),
		})
	}

	// Bleve orders hits by descending relevance but leaves ties undefined;
	// re-sort on the mapped score with snapshot position as the tie-break.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score < matches[j].Score
		}
		return ix.order[matches[i].ID] < ix.order[matches[j].ID]
	})

	return matches, nil
}

// newSearchRequest assembles the disjunction of per-field fuzzy match
// queries that implements weighted matching.
func (ix *Index) newSearchRequest(query string, limit int) *bleve.SearchRequest {
	title := bleve.NewMatchQuery(query)
	title.SetField(FieldTitle)
	title.SetFuzziness(ix.cfg.Fuzziness)
	title.SetBoost(ix.cfg.TitleBoost)

	body := bleve.NewMatchQuery(query)
	body.SetField(FieldBody)
	body.SetFuzziness(ix.cfg.Fuzziness)
	body.SetBoost(ix.cfg.BodyBoost)

	tags := bleve.NewMatchQuery(query)
	tags.SetField(FieldTags)
	tags.SetFuzziness(ix.cfg.Fuzziness)
	tags.SetBoost(ix.cfg.TagBoost)

	request := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(title, body, tags))
	request.Size = limit
	request.IncludeLocations = true
	return request
}

// matchedFields reports which indexed fields produced the hit, in the
// fixed title/body/tags order.
func matchedFields(hit *search.DocumentMatch) []string {
	fields := make([]string, 0, 3)
	for _, field := range []string{FieldTitle, FieldBody, FieldTags} {
		if len(hit.Locations[field]) > 0 {
			fields = append(fields, field)
		}
	}
	return fields
}

// Ready reports whether at least one rebuild has completed.
func (ix *Index) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index != nil
}

// DocCount returns the number of documents in the current index.
func (ix *Index) DocCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.docCount
}

// LastRebuild returns when the most recent rebuild completed, or the zero
// time before the first one.
func (ix *Index) LastRebuild() time.Time {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.lastRebuild
}

// Close releases the underlying bleve index. Subsequent searches return
// ErrIndexNotReady. Safe to call more than once.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.index == nil {
		return nil
	}

	err := ix.index.Close()
	ix.index = nil
	ix.order = nil
	ix.docCount = 0
	return err
}
