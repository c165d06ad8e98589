package storage

import (
	"sync"
	"time"

	"github.com/haldane/peritext/internal/changes"
	"github.com/haldane/peritext/internal/clock"
)

// documentData holds all persisted data for a single document.
type documentData struct {
	history  *changes.History
	clk      clock.VectorClock
	snapshot *Snapshot
}

// MemoryStore is an in-memory implementation of the Store interface.
// Useful for testing and development, mirroring the teacher's
// MemoryStore.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*documentData
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]*documentData),
	}
}

// CreateDocument creates a new document with the given ID.
func (m *MemoryStore) CreateDocument(docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.docs[docID]; exists {
		return ErrDocumentExists
	}

	m.docs[docID] = &documentData{
		history: changes.NewHistory(),
		clk:     clock.NewVectorClock(),
	}
	return nil
}

// DocumentExists checks if a document exists.
func (m *MemoryStore) DocumentExists(docID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.docs[docID]
	return exists, nil
}

// AppendChange records c in docID's history.
func (m *MemoryStore) AppendChange(docID string, c changes.Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, exists := m.docs[docID]
	if !exists {
		return ErrDocumentNotFound
	}

	doc.history.Append(c)
	doc.clk.Advance(c.Actor, c.EndCounter())
	return nil
}

// ChangesSince returns the changes docID has recorded beyond since,
// using the same diff rule as spec.md §4.5.
func (m *MemoryStore) ChangesSince(docID string, since clock.VectorClock) ([]changes.Change, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, exists := m.docs[docID]
	if !exists {
		return nil, ErrDocumentNotFound
	}

	return changes.GetMissingChanges(doc.history, doc.clk, since), nil
}

// Clock returns docID's current vector clock.
func (m *MemoryStore) Clock(docID string) (clock.VectorClock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, exists := m.docs[docID]
	if !exists {
		return nil, ErrDocumentNotFound
	}
	return doc.clk.Clone(), nil
}

// SaveSnapshot persists a snapshot of the document.
func (m *MemoryStore) SaveSnapshot(docID string, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, exists := m.docs[docID]
	if !exists {
		return ErrDocumentNotFound
	}

	snap.DocID = docID
	snap.CreatedAt = time.Now()
	doc.snapshot = &snap
	return nil
}

// LoadSnapshot retrieves the latest snapshot for a document.
func (m *MemoryStore) LoadSnapshot(docID string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, exists := m.docs[docID]
	if !exists {
		return Snapshot{}, ErrDocumentNotFound
	}
	if doc.snapshot == nil {
		return Snapshot{}, ErrSnapshotNotFound
	}
	return *doc.snapshot, nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
