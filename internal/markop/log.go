package markop

import "sort"

// Log is the causally-applied, sorted sequence of resolved mark
// operations for one document (spec.md §4.2). Entries are kept sorted by
// their own OpId: this is a pure function of the set of entries, so any
// two replicas that have appended the same set of ResolvedOps end up
// with the identical log order regardless of the order they received
// them in (spec.md §8's Convergence property).
type Log struct {
	ops []ResolvedOp
}

// NewLog returns an empty resolved-op log.
func NewLog() *Log {
	return &Log{}
}

// Append inserts op into the log, keeping it sorted by ResolvedOp.ID.
// Idempotent: appending an op whose ID is already present is a no-op,
// mirroring the sequence CRDT's idempotent apply.
func (l *Log) Append(op ResolvedOp) {
	at := sort.Search(len(l.ops), func(i int) bool {
		return !l.ops[i].ID.Less(op.ID)
	})
	if at < len(l.ops) && l.ops[at].ID == op.ID {
		return
	}
	l.ops = append(l.ops, ResolvedOp{})
	copy(l.ops[at+1:], l.ops[at:])
	l.ops[at] = op
}

// All returns the log's entries in their canonical replay order. The
// returned slice must not be mutated by the caller.
func (l *Log) All() []ResolvedOp {
	return l.ops
}

// Len returns the number of resolved ops in the log.
func (l *Log) Len() int {
	return len(l.ops)
}
