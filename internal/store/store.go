// Package store holds the live document table the index and query layers
// read from. It is the single source of truth between filesystem
// synchronization passes; nothing in it survives a process restart.
package store

import (
	"sort"
	"sync"
)

// DocumentStore is a revision-guarded in-memory document map.
//
// Every mutation carries a revision allocated by the synchronizer in event
// arrival order. The store keeps the highest revision applied per id
// (removals included, as tombstones) and discards writes that carry an
// older one. File reads finish out of order under concurrent load; the
// guard makes the newest event win regardless of which read returns last.
type DocumentStore struct {
	mu        sync.RWMutex
	docs      map[string]Document
	revisions map[string]uint64
	floor     uint64 // Clear floor: revisions at or below this are stale for every id
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs:      make(map[string]Document),
		revisions: make(map[string]uint64),
	}
}

// Upsert inserts or fully replaces the record for id. The write applies
// only if rev is newer than both the clear floor and the last revision seen
// for this id; stale writes are discarded and reported as false. Records
// are replaced whole, never merged, so a stored document always reflects a
// single read of the file.
func (s *DocumentStore) Upsert(id string, doc Document, rev uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.newer(id, rev) {
		return false
	}

	doc.ID = id
	s.docs[id] = doc
	s.revisions[id] = rev
	return true
}

// Remove deletes the record for id if rev is newer than the last revision
// seen. The revision is recorded as a tombstone even when no record exists,
// so a slower in-flight read from before the delete cannot resurrect the
// document. Returns true only when a record was actually removed.
func (s *DocumentStore) Remove(id string, rev uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.newer(id, rev) {
		return false
	}

	s.revisions[id] = rev
	if _, ok := s.docs[id]; !ok {
		return false
	}
	delete(s.docs, id)
	return true
}

// newer reports whether rev may be applied for id. Caller holds the lock.
func (s *DocumentStore) newer(id string, rev uint64) bool {
	if rev <= s.floor {
		return false
	}
	if last, ok := s.revisions[id]; ok && rev <= last {
		return false
	}
	return true
}

// Get returns the record for id.
func (s *DocumentStore) Get(id string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	return doc, ok
}

// Snapshot returns a point-in-time copy of all records sorted by id. The
// order is the stable tie-break used by search and similarity ranking.
// Mutations that begin after Snapshot returns are never reflected in the
// result; record maps are shared and treated as immutable after insert.
func (s *DocumentStore) Snapshot() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

// Clear removes all records and revision state, recording rev as a floor:
// any write carrying rev or older is discarded afterwards. Used before a
// full rescan so in-flight reads from the previous generation cannot leak
// into the fresh one.
func (s *DocumentStore) Clear(rev uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = make(map[string]Document)
	s.revisions = make(map[string]uint64)
	if rev > s.floor {
		s.floor = rev
	}
}

// Len returns the number of stored records.
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
