// Package sequence implements the RGA-like causal tree that gives every
// character in the document a stable identity and a deterministic total
// order, per spec.md §4.1. It supports insertion and deletion with
// tombstones and never physically removes a character once observed.
package sequence

import (
	"sort"
	"sync"

	"github.com/haldane/peritext/internal/clock"
	"github.com/haldane/peritext/internal/corerr"
)

// List is a single replica's view of the sequence CRDT. It is safe for
// concurrent use, mirroring the teacher's ot.Document locking discipline,
// though spec.md's concurrency model only requires this at the facade
// boundary.
type List struct {
	mu sync.RWMutex

	// index maps an OpId to its slot in the arena.
	index map[clock.OpId]int
	arena []character

	// children maps a predecessor id (clock.Zero for the sentinel head) to
	// the ids of characters inserted directly after it, sorted by OpId
	// descending -- standard RGA sibling order, so a later concurrent
	// insert at the same anchor sorts to the left of an earlier one.
	children map[clock.OpId][]clock.OpId
}

// NewList returns an empty sequence.
func NewList() *List {
	return &List{
		index:    make(map[clock.OpId]int),
		children: make(map[clock.OpId][]clock.OpId),
	}
}

// InsertedChar describes one character produced by a local Insert call,
// in the form a Change record's ops need.
type InsertedChar struct {
	ID          clock.OpId
	Predecessor clock.OpId
	Value       string
}

// Insert produces ops inserting each value after the visible character at
// index-1 (or after the sentinel head if index==0), chaining each
// subsequent value's predecessor to the character just inserted so that
// a multi-character local insert keeps its relative order under any
// interleaving of later concurrent inserts. nextCounter must return a
// fresh, strictly increasing counter for the local actor on every call.
func (l *List) Insert(index int, values []string, actor clock.ActorId, nextCounter func() uint64) ([]InsertedChar, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	visible := l.orderedVisibleLocked()
	if index < 0 || index > len(visible) {
		return nil, corerr.ErrOutOfBounds
	}

	predecessor := clock.Zero
	if index > 0 {
		predecessor = visible[index-1]
	}

	out := make([]InsertedChar, 0, len(values))
	for _, v := range values {
		id := clock.OpId{Counter: nextCounter(), Actor: actor}
		if err := l.applyInsertLocked(id, predecessor, v); err != nil {
			return nil, err
		}
		out = append(out, InsertedChar{ID: id, Predecessor: predecessor, Value: v})
		predecessor = id
	}
	return out, nil
}

// ApplyInsert integrates a remote (or already-assigned local) insert op.
// It returns corerr.ErrMissingDependency if predecessor has not been
// observed, and is idempotent if id has already been applied.
func (l *List) ApplyInsert(id, predecessor clock.OpId, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.applyInsertLocked(id, predecessor, value)
}

func (l *List) applyInsertLocked(id, predecessor clock.OpId, value string) error {
	if _, ok := l.index[id]; ok {
		return nil // idempotent: already applied
	}
	if !predecessor.IsZero() {
		if _, ok := l.index[predecessor]; !ok {
			return corerr.ErrMissingDependency
		}
	}

	l.arena = append(l.arena, character{id: id, value: value, predecessor: predecessor})
	l.index[id] = len(l.arena) - 1
	l.insertChildLocked(predecessor, id)
	return nil
}

// insertChildLocked inserts id into predecessor's children, keeping the
// slice sorted by OpId descending.
func (l *List) insertChildLocked(predecessor, id clock.OpId) {
	siblings := l.children[predecessor]
	at := sort.Search(len(siblings), func(i int) bool {
		return siblings[i].Less(id)
	})
	siblings = append(siblings, clock.Zero)
	copy(siblings[at+1:], siblings[at:])
	siblings[at] = id
	l.children[predecessor] = siblings
}

// Delete produces count tombstone ops naming the ids of the count visible
// characters starting at index.
func (l *List) Delete(index, count int) ([]clock.OpId, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	visible := l.orderedVisibleLocked()
	if index < 0 || count < 0 || index+count > len(visible) {
		return nil, corerr.ErrOutOfBounds
	}

	targets := make([]clock.OpId, count)
	copy(targets, visible[index:index+count])
	for _, id := range targets {
		l.applyDeleteLocked(id)
	}
	return targets, nil
}

// ApplyDelete tombstones the character named by id. It is idempotent and
// returns corerr.ErrMissingDependency if id has not been observed.
func (l *List) ApplyDelete(id clock.OpId) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.index[id]; !ok {
		return corerr.ErrMissingDependency
	}
	l.applyDeleteLocked(id)
	return nil
}

func (l *List) applyDeleteLocked(id clock.OpId) {
	l.arena[l.index[id]].deleted = true
}

// VisibleText returns the current visible document as an ordered slice of
// values (spec.md §4.4 "root.text exposes the visible text as an ordered
// sequence of values").
func (l *List) VisibleText() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.orderedVisibleLocked()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = l.arena[l.index[id]].value
	}
	return out
}

// Has reports whether id has been observed (inserted, whether or not
// since tombstoned). The sentinel head id is always considered present.
func (l *List) Has(id clock.OpId) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if id.IsZero() {
		return true
	}
	_, ok := l.index[id]
	return ok
}

// VisibleLen returns the number of non-tombstoned characters.
func (l *List) VisibleLen() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.orderedVisibleLocked())
}

// PositionToOpId returns the id of the visible character currently at pos.
func (l *List) PositionToOpId(pos int) (clock.OpId, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	visible := l.orderedVisibleLocked()
	if pos < 0 || pos >= len(visible) {
		return clock.Zero, corerr.ErrOutOfBounds
	}
	return visible[pos], nil
}

// OpIdToPosition returns the position id would occupy among the visible
// characters: its own index if it is visible, or the count of visible
// characters preceding it in tree order if it has been tombstoned (spec's
// anchor-gravity rule for marks anchored through a concurrent deletion).
// The sentinel head id (clock.Zero) resolves to -1, meaning "before the
// first character".
func (l *List) OpIdToPosition(id clock.OpId) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if id.IsZero() {
		return -1, nil
	}
	if _, ok := l.index[id]; !ok {
		return 0, corerr.ErrMissingDependency
	}

	pos := 0
	for _, other := range l.orderedAllLocked() {
		if other == id {
			return pos, nil
		}
		if !l.arena[l.index[other]].deleted {
			pos++
		}
	}
	// Unreachable: id was found in l.index, so it must appear in the walk.
	return 0, corerr.ErrMissingDependency
}

// orderedVisibleLocked returns the ids of non-tombstoned characters in
// document order. Callers must hold l.mu.
func (l *List) orderedVisibleLocked() []clock.OpId {
	all := l.orderedAllLocked()
	out := make([]clock.OpId, 0, len(all))
	for _, id := range all {
		if !l.arena[l.index[id]].deleted {
			out = append(out, id)
		}
	}
	return out
}

// orderedAllLocked returns the ids of every character (including
// tombstones) in document order: a pre-order walk of the causal tree
// rooted at the sentinel head, visiting each node's children by OpId
// descending. Callers must hold l.mu.
func (l *List) orderedAllLocked() []clock.OpId {
	var out []clock.OpId
	var walk func(predecessor clock.OpId)
	walk = func(predecessor clock.OpId) {
		for _, child := range l.children[predecessor] {
			out = append(out, child)
			walk(child)
		}
	}
	walk(clock.Zero)
	return out
}
