package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDoc(title string) Document {
	return Document{
		Title:        title,
		PlainText:    title + " body",
		LastModified: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// Upsert / Get
// =============================================================================

func TestUpsert_NewDocument_Applies(t *testing.T) {
	// Given: an empty store
	s := NewDocumentStore()

	// When: inserting a document
	applied := s.Upsert("notes/todo.md", testDoc("Todo"), 1)

	// Then: the write applies and the record is readable
	assert.True(t, applied)
	doc, ok := s.Get("notes/todo.md")
	require.True(t, ok)
	assert.Equal(t, "Todo", doc.Title)
	assert.Equal(t, "notes/todo.md", doc.ID, "store should stamp the id onto the record")
	assert.Equal(t, 1, s.Len())
}

func TestUpsert_NewerRevision_ReplacesWhole(t *testing.T) {
	// Given: a stored document
	s := NewDocumentStore()
	first := testDoc("Before")
	first.Metadata = map[string]any{"tags": []any{"old"}}
	require.True(t, s.Upsert("a.md", first, 1))

	// When: a newer revision arrives without metadata
	require.True(t, s.Upsert("a.md", testDoc("After"), 2))

	// Then: the record is fully replaced, not merged
	doc, ok := s.Get("a.md")
	require.True(t, ok)
	assert.Equal(t, "After", doc.Title)
	assert.Nil(t, doc.Metadata)
	assert.Equal(t, 1, s.Len())
}

func TestUpsert_StaleRevision_Discarded(t *testing.T) {
	// Given: a document written at revision 5
	s := NewDocumentStore()
	require.True(t, s.Upsert("a.md", testDoc("Current"), 5))

	// When: a slower read from revision 3 finishes afterwards
	applied := s.Upsert("a.md", testDoc("Stale"), 3)

	// Then: the stale write is discarded
	assert.False(t, applied)
	doc, _ := s.Get("a.md")
	assert.Equal(t, "Current", doc.Title)
}

func TestUpsert_EqualRevision_Discarded(t *testing.T) {
	s := NewDocumentStore()
	require.True(t, s.Upsert("a.md", testDoc("First"), 5))

	assert.False(t, s.Upsert("a.md", testDoc("Replay"), 5))
	doc, _ := s.Get("a.md")
	assert.Equal(t, "First", doc.Title)
}

func TestGet_Missing_ReturnsFalse(t *testing.T) {
	s := NewDocumentStore()
	_, ok := s.Get("nope.md")
	assert.False(t, ok)
}

// =============================================================================
// Remove / Tombstones
// =============================================================================

func TestRemove_NewerRevision_Deletes(t *testing.T) {
	// Given: a stored document
	s := NewDocumentStore()
	require.True(t, s.Upsert("a.md", testDoc("Doc"), 1))

	// When: removing with a newer revision
	removed := s.Remove("a.md", 2)

	// Then: the record is gone
	assert.True(t, removed)
	_, ok := s.Get("a.md")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestRemove_StaleRevision_Ignored(t *testing.T) {
	// Given: a document written at revision 5
	s := NewDocumentStore()
	require.True(t, s.Upsert("a.md", testDoc("Doc"), 5))

	// When: a delete from an older event arrives late
	removed := s.Remove("a.md", 4)

	// Then: the record survives
	assert.False(t, removed)
	_, ok := s.Get("a.md")
	assert.True(t, ok)
}

func TestRemove_TombstoneBlocksResurrection(t *testing.T) {
	// Given: a delete observed at revision 7 for a file the store never held
	s := NewDocumentStore()
	assert.False(t, s.Remove("ghost.md", 7), "nothing to remove yet")

	// When: an in-flight read from revision 6 finally lands
	applied := s.Upsert("ghost.md", testDoc("Zombie"), 6)

	// Then: the tombstone wins; the document stays dead
	assert.False(t, applied)
	_, ok := s.Get("ghost.md")
	assert.False(t, ok)
}

func TestRemove_ThenNewerCreate_Applies(t *testing.T) {
	// Given: create, delete, re-create in revision order
	s := NewDocumentStore()
	require.True(t, s.Upsert("a.md", testDoc("V1"), 1))
	require.True(t, s.Remove("a.md", 2))

	// When: the re-created file is read at revision 3
	applied := s.Upsert("a.md", testDoc("V2"), 3)

	// Then: the newest event wins
	assert.True(t, applied)
	doc, _ := s.Get("a.md")
	assert.Equal(t, "V2", doc.Title)
}

// =============================================================================
// Snapshot
// =============================================================================

func TestSnapshot_SortedByID(t *testing.T) {
	// Given: documents inserted out of lexical order
	s := NewDocumentStore()
	require.True(t, s.Upsert("c.md", testDoc("C"), 1))
	require.True(t, s.Upsert("a.md", testDoc("A"), 2))
	require.True(t, s.Upsert("b.md", testDoc("B"), 3))

	// When: taking a snapshot
	snap := s.Snapshot()

	// Then: records come back sorted by id
	require.Len(t, snap, 3)
	assert.Equal(t, "a.md", snap[0].ID)
	assert.Equal(t, "b.md", snap[1].ID)
	assert.Equal(t, "c.md", snap[2].ID)
}

func TestSnapshot_IsolatedFromLaterMutations(t *testing.T) {
	// Given: a snapshot of one document
	s := NewDocumentStore()
	require.True(t, s.Upsert("a.md", testDoc("A"), 1))
	snap := s.Snapshot()

	// When: the store changes afterwards
	require.True(t, s.Upsert("b.md", testDoc("B"), 2))
	require.True(t, s.Remove("a.md", 3))

	// Then: the snapshot still reflects the old state
	require.Len(t, snap, 1)
	assert.Equal(t, "a.md", snap[0].ID)
	assert.Equal(t, "A", snap[0].Title)
}

func TestSnapshot_Empty(t *testing.T) {
	s := NewDocumentStore()
	assert.Empty(t, s.Snapshot())
}

// =============================================================================
// Clear
// =============================================================================

func TestClear_DropsRecordsAndSetsFloor(t *testing.T) {
	// Given: a populated store cleared at revision 10
	s := NewDocumentStore()
	require.True(t, s.Upsert("a.md", testDoc("A"), 1))
	require.True(t, s.Upsert("b.md", testDoc("B"), 2))
	s.Clear(10)

	// Then: the store is empty
	assert.Equal(t, 0, s.Len())

	// And: writes from before the clear are discarded
	assert.False(t, s.Upsert("a.md", testDoc("Old"), 5))
	assert.False(t, s.Upsert("a.md", testDoc("AtFloor"), 10))

	// And: writes after the floor apply
	assert.True(t, s.Upsert("a.md", testDoc("New"), 11))
}

func TestClear_FloorNeverLowers(t *testing.T) {
	// Given: a floor at revision 10
	s := NewDocumentStore()
	s.Clear(10)

	// When: a later clear passes a smaller revision
	s.Clear(4)

	// Then: the higher floor still holds
	assert.False(t, s.Upsert("a.md", testDoc("Old"), 7))
	assert.True(t, s.Upsert("a.md", testDoc("New"), 11))
}

// =============================================================================
// Concurrency
// =============================================================================

func TestStore_ConcurrentUpserts(t *testing.T) {
	// Given: many goroutines writing distinct ids
	s := NewDocumentStore()
	const n = 64

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("doc-%03d.md", i)
			s.Upsert(id, testDoc(id), uint64(i+1))
		}(i)
	}
	wg.Wait()

	// Then: every write landed and snapshots stay ordered
	assert.Equal(t, n, s.Len())
	snap := s.Snapshot()
	require.Len(t, snap, n)
	for i := 1; i < len(snap); i++ {
		assert.Less(t, snap[i-1].ID, snap[i].ID)
	}
}
