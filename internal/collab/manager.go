package collab

import (
	"sync"

	"github.com/haldane/peritext/internal/relay"
	"github.com/haldane/peritext/internal/storage"
)

// Manager manages multiple document sessions, mirroring the teacher's
// Manager minus its ACL wiring: authentication and permissions are
// explicitly out of scope (SPEC_FULL.md §1 Non-goals).
//
// A session is registered behind a slot rather than loaded while holding
// the manager's lock. Unlike the teacher's OT sessions, Session.Load
// here replays a document's full change history (storage has no
// snapshot-based fast-forward, see storage/snapshot.go) and can take
// long enough on a large document that serializing every document's
// first load behind one lock would stall unrelated documents. A slot's
// own done channel lets concurrent GetOrCreateSession calls for the same
// docID wait on that one load without blocking callers working with
// other documents.
type Manager struct {
	mu    sync.RWMutex
	slots map[string]*sessionSlot

	store          storage.Store
	hub            *relay.Hub
	snapshotPolicy *storage.SnapshotPolicy
}

// sessionSlot holds the result of loading one document's session. done
// is closed exactly once, after session and err have been set, so a
// reader that observes done closed may read either field without racing
// the loader.
type sessionSlot struct {
	done    chan struct{}
	session *Session
	err     error
}

func newSessionSlot() *sessionSlot {
	return &sessionSlot{done: make(chan struct{})}
}

// ManagerConfig holds configuration for creating a manager.
type ManagerConfig struct {
	Store          storage.Store
	Hub            *relay.Hub
	SnapshotPolicy *storage.SnapshotPolicy
}

// NewManager creates a new session manager.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		slots:          make(map[string]*sessionSlot),
		store:          cfg.Store,
		hub:            cfg.Hub,
		snapshotPolicy: cfg.SnapshotPolicy,
	}
}

// GetOrCreateSession returns an existing session or creates and loads a
// new one. Only the goroutine that actually inserts the slot runs
// Load; everyone else waits on the slot's done channel.
func (m *Manager) GetOrCreateSession(docID string) (*Session, error) {
	m.mu.Lock()
	slot, exists := m.slots[docID]
	owns := !exists
	if owns {
		slot = newSessionSlot()
		m.slots[docID] = slot
	}
	m.mu.Unlock()

	if !owns {
		<-slot.done
		return slot.session, slot.err
	}

	session := NewSession(SessionConfig{
		DocID:          docID,
		Store:          m.store,
		Hub:            m.hub,
		SnapshotPolicy: m.snapshotPolicy,
	})

	if err := session.Load(); err != nil {
		slot.err = err
		close(slot.done)

		m.mu.Lock()
		if m.slots[docID] == slot {
			delete(m.slots, docID)
		}
		m.mu.Unlock()

		return nil, err
	}

	slot.session = session
	close(slot.done)

	return session, nil
}

// GetSession returns an existing, already-loaded session or nil if
// there isn't one yet. Unlike GetOrCreateSession, it never waits on a
// load in progress.
func (m *Manager) GetSession(docID string) *Session {
	m.mu.RLock()
	slot, exists := m.slots[docID]
	m.mu.RUnlock()

	if !exists {
		return nil
	}

	select {
	case <-slot.done:
		return slot.session
	default:
		return nil
	}
}

// CloseSession closes and removes a session, waiting for its load to
// finish first if one is still in flight.
func (m *Manager) CloseSession(docID string) error {
	m.mu.Lock()
	slot, exists := m.slots[docID]
	if exists {
		delete(m.slots, docID)
	}
	m.mu.Unlock()

	if !exists {
		return nil
	}

	<-slot.done
	if slot.session == nil {
		return slot.err
	}
	return slot.session.Close()
}

// CloseAll closes all sessions.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	slots := make([]*sessionSlot, 0, len(m.slots))
	for _, slot := range m.slots {
		slots = append(slots, slot)
	}
	m.slots = make(map[string]*sessionSlot)
	m.mu.Unlock()

	var lastErr error

	for _, slot := range slots {
		<-slot.done
		if slot.session == nil {
			if slot.err != nil {
				lastErr = slot.err
			}
			continue
		}
		if err := slot.session.Close(); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// SessionCount returns the number of sessions that have finished
// loading successfully.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	slots := make([]*sessionSlot, 0, len(m.slots))
	for _, slot := range m.slots {
		slots = append(slots, slot)
	}
	m.mu.RUnlock()

	count := 0
	for _, slot := range slots {
		select {
		case <-slot.done:
			if slot.session != nil {
				count++
			}
		default:
		}
	}
	return count
}
