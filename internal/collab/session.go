package collab

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/haldane/peritext/internal/changes"
	"github.com/haldane/peritext/internal/clock"
	"github.com/haldane/peritext/internal/corerr"
	"github.com/haldane/peritext/internal/document"
	"github.com/haldane/peritext/internal/relay"
	"github.com/haldane/peritext/internal/storage"
)

// Common errors.
var (
	ErrSessionClosed = errors.New("session is closed")
)

// Session coordinates collaborative editing for a single document. It
// wires together the document facade, storage, and relay broadcasting,
// the same role the teacher's Session played for OT, Store, and ACL.
//
// Unlike the teacher's OT session, a Session here never produces changes
// of its own: every change a client sends already carries its own
// actor-stamped ops, resolved by that client's own document.Document. A
// Session's embedded document exists only as the canonical, continuously
// up to date replica the server holds for reads and for validating
// incoming changes before they're persisted and broadcast.
type Session struct {
	docID string

	mu     sync.RWMutex
	doc    *document.Document
	closed bool

	store          storage.Store
	hub            *relay.Hub
	snapshotPolicy *storage.SnapshotPolicy
}

// SessionConfig holds configuration for creating a session.
type SessionConfig struct {
	DocID          string
	Store          storage.Store
	Hub            *relay.Hub
	SnapshotPolicy *storage.SnapshotPolicy
}

// NewSession creates a new collaborative editing session.
func NewSession(cfg SessionConfig) *Session {
	return &Session{
		docID:          cfg.DocID,
		store:          cfg.Store,
		hub:            cfg.Hub,
		snapshotPolicy: cfg.SnapshotPolicy,
	}
}

// Load initializes the session by replaying the document's full change
// history from storage. A flattened text snapshot can't shortcut this:
// rebuilding a document.Document requires every change's identities
// (storage/snapshot.go).
func (s *Session) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	loader := storage.NewDocumentLoader(s.store)

	result, err := loader.Load(s.docID)
	if err != nil {
		return err
	}

	if result.IsNew {
		if err := s.store.CreateDocument(s.docID); err != nil {
			return err
		}
	}

	s.doc = document.NewDocument(clock.ActorId(s.docID))
	return applyInCausalOrder(s.doc, result.Changes)
}

// applyInCausalOrder feeds changes into doc, re-attempting any whose
// dependencies aren't satisfied yet until either every change has
// applied or a full pass makes no progress.
func applyInCausalOrder(doc *document.Document, pending []changes.Change) error {
	for len(pending) > 0 {
		progressed := false
		remaining := pending[:0]

		for _, c := range pending {
			if err := doc.ApplyChange(c); err != nil {
				if errors.Is(err, corerr.ErrMissingDependency) {
					remaining = append(remaining, c)
					continue
				}
				return err
			}
			progressed = true
		}

		if !progressed {
			return corerr.ErrNonConvergence
		}
		pending = remaining
	}
	return nil
}

// SubmitChange integrates a change a client produced locally. It applies
// the change to the session's canonical replica, persists it, maybe
// refreshes the snapshot, and broadcasts it to every other client
// subscribed to the document (excluding the sender).
func (s *Session) SubmitChange(senderClientID string, c changes.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	if err := s.doc.ApplyChange(c); err != nil {
		return err
	}

	if err := s.store.AppendChange(s.docID, c); err != nil {
		return err
	}

	s.maybeSnapshot()
	s.broadcast(senderClientID, c)

	return nil
}

// maybeSnapshot checks if a snapshot refresh is due and takes one.
func (s *Session) maybeSnapshot() {
	if s.snapshotPolicy == nil {
		return
	}

	if s.snapshotPolicy.RecordChange(s.docID) {
		_ = s.saveSnapshot() // best effort, mirrors the teacher's maybeSnapshot
		s.snapshotPolicy.Reset(s.docID)
	}
}

// broadcast sends the change to every other client subscribed to this
// document.
func (s *Session) broadcast(senderClientID string, c changes.Change) {
	if s.hub == nil {
		return
	}

	s.hub.BroadcastChange(s.docID, c, senderClientID)
}

// saveSnapshot persists a read cache of the current document text.
func (s *Session) saveSnapshot() error {
	text := strings.Join(s.doc.RootText(), "")
	return s.store.SaveSnapshot(s.docID, storage.Snapshot{
		DocID:     s.docID,
		Clock:     s.doc.Clock(),
		Text:      text,
		CreatedAt: time.Now(),
	})
}

// GetState returns the document's current text runs and vector clock.
func (s *Session) GetState() ([]document.TextRun, clock.VectorClock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, nil, ErrSessionClosed
	}

	runs, err := s.doc.GetTextWithFormatting([]string{"text"})
	if err != nil {
		return nil, nil, err
	}
	return runs, s.doc.Clock(), nil
}

// Sync returns every change the document has recorded beyond since, for
// a client catching up after a disconnect (spec.md §4.5).
func (s *Session) Sync(since clock.VectorClock) ([]changes.Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	return s.store.ChangesSince(s.docID, since)
}

// DocID returns the document ID for this session.
func (s *Session) DocID() string {
	return s.docID
}

// Clock returns the session's current vector clock.
func (s *Session) Clock() clock.VectorClock {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.doc.Clock()
}

// Close closes the session and saves a final snapshot.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	return s.saveSnapshot()
}
