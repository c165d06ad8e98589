package storage

import (
	"sync"

	"github.com/haldane/peritext/internal/changes"
	"github.com/haldane/peritext/internal/clock"
)

// SnapshotPolicy determines when to refresh a document's cached text
// snapshot. Unlike the teacher's OT snapshot (which let loading skip
// straight past old operations), a CRDT snapshot here is a read cache
// only: reconstructing a *document.Document still requires replaying
// every change, since only the full op log carries enough identity
// information to rebuild the causal tree. The snapshot holds the visible
// plain text and the clock it was taken at; it carries no formatting.
type SnapshotPolicy struct {
	mu               sync.Mutex
	threshold        int
	changesSinceSave map[string]int
}

// NewSnapshotPolicy creates a policy that triggers a snapshot refresh
// every N applied changes.
func NewSnapshotPolicy(threshold int) *SnapshotPolicy {
	return &SnapshotPolicy{
		threshold:        threshold,
		changesSinceSave: make(map[string]int),
	}
}

// RecordChange records that a change was applied to docID. Returns true
// if a snapshot refresh should be taken now.
func (p *SnapshotPolicy) RecordChange(docID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.changesSinceSave[docID]++
	return p.changesSinceSave[docID] >= p.threshold
}

// Reset clears the counter after a snapshot has been taken.
func (p *SnapshotPolicy) Reset(docID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.changesSinceSave[docID] = 0
}

// DocumentLoader reconstructs a document's full change history from
// storage, for a caller to replay into a fresh document.Document.
type DocumentLoader struct {
	store Store
}

// NewDocumentLoader creates a new document loader.
func NewDocumentLoader(store Store) *DocumentLoader {
	return &DocumentLoader{store: store}
}

// LoadResult is the change history needed to reconstruct a document, in
// the order it should be replayed.
type LoadResult struct {
	Changes []changes.Change
	Clock   clock.VectorClock
	IsNew   bool
}

// Load fetches every change recorded for docID.
func (l *DocumentLoader) Load(docID string) (LoadResult, error) {
	exists, err := l.store.DocumentExists(docID)
	if err != nil {
		return LoadResult{}, err
	}
	if !exists {
		return LoadResult{IsNew: true}, nil
	}

	all, err := l.store.ChangesSince(docID, clock.NewVectorClock())
	if err != nil {
		return LoadResult{}, err
	}
	clk, err := l.store.Clock(docID)
	if err != nil {
		return LoadResult{}, err
	}
	return LoadResult{Changes: all, Clock: clk}, nil
}
