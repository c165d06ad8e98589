// Package storage persists a document's change history and periodic
// snapshots, adapted from the teacher's Store interface (which persisted
// OT operations and content snapshots) to the change-record/vector-clock
// world of this system. Persistence durability is explicitly outside
// spec.md's core scope (§1); this package exists to give the domain
// dependencies (pgx, redis) in SPEC_FULL.md §11 a concrete home.
package storage

import (
	"errors"
	"time"

	"github.com/haldane/peritext/internal/changes"
	"github.com/haldane/peritext/internal/clock"
)

// Common errors.
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentExists   = errors.New("document already exists")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// Snapshot is a point-in-time capture of a document's visible text and
// the vector clock it was captured at.
type Snapshot struct {
	DocID     string
	Clock     clock.VectorClock
	Text      string
	CreatedAt time.Time
}

// Store defines the interface for persisting a document's change
// history. Implementations can use in-memory storage, databases, or
// other backends.
type Store interface {
	// CreateDocument creates a new document with the given ID. Returns
	// ErrDocumentExists if the document already exists.
	CreateDocument(docID string) error

	// DocumentExists checks if a document exists.
	DocumentExists(docID string) (bool, error)

	// AppendChange records c in docID's history. Returns
	// ErrDocumentNotFound if the document doesn't exist.
	AppendChange(docID string, c changes.Change) error

	// ChangesSince returns every change docID has recorded that the
	// caller, at vector clock since, has not yet observed.
	ChangesSince(docID string, since clock.VectorClock) ([]changes.Change, error)

	// Clock returns the vector clock implied by docID's full history.
	Clock(docID string) (clock.VectorClock, error)

	// SaveSnapshot persists a snapshot of the document. Returns
	// ErrDocumentNotFound if the document doesn't exist.
	SaveSnapshot(docID string, snap Snapshot) error

	// LoadSnapshot retrieves the latest snapshot for a document. Returns
	// ErrDocumentNotFound if the document doesn't exist, or
	// ErrSnapshotNotFound if it exists but has no snapshot yet.
	LoadSnapshot(docID string) (Snapshot, error)
}
