// Package similarity ranks documents by token-set overlap. Scores are
// computed on demand against a store snapshot; the store mutates
// continuously, so a cached pairwise matrix would need invalidation on
// every change and is deliberately not kept.
package similarity

import (
	"sort"

	"github.com/docdex/docdex/internal/store"
)

// Match is one related-document hit.
type Match struct {
	ID    string
	Score float64 // Jaccard index, [0,1], higher is more similar
}

// Jaccard returns |a ∩ b| / |a ∪ b| for two token sets, or 0 when either
// set is empty. Symmetric, and 1 when both sets are equal and non-empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	// Iterate the smaller set.
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	intersection := 0
	for token := range small {
		if _, ok := large[token]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// Rank scores every snapshot document against the target's token set and
// returns up to limit matches, descending by similarity. The target itself
// is excluded; ties keep the snapshot order, which the store guarantees is
// sorted by id. Zero-score candidates are dropped.
func Rank(snapshot []store.Document, target store.Document, limit int) []Match {
	if limit <= 0 {
		return []Match{}
	}

	matches := make([]Match, 0, len(snapshot))
	for _, doc := range snapshot {
		if doc.ID == target.ID {
			continue
		}
		score := Jaccard(target.Tokens, doc.Tokens)
		if score == 0 {
			continue
		}
		matches = append(matches, Match{ID: doc.ID, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
