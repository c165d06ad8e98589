// Package clock implements the operation identifiers and vector clocks that
// give every operation in the document a stable, totally-ordered identity.
package clock

import "fmt"

// ActorId is an opaque stable identifier assigned once to each replica.
type ActorId string

// OpId is the identity of a single operation: a per-actor counter paired
// with the actor that produced it. Counters are positive and strictly
// increasing within an actor.
type OpId struct {
	Counter uint64
	Actor   ActorId
}

// Zero is the identity used as the sentinel predecessor for insertions at
// the very head of a sequence. No real operation ever carries it.
var Zero = OpId{}

// IsZero reports whether id is the sentinel head identity.
func (id OpId) IsZero() bool {
	return id == Zero
}

// Compare returns -1, 0, or 1 as id orders before, equal to, or after other.
// Counter is compared first, actor id lexicographically breaks ties. This is
// the total order spec.md uses for concurrent-insert resolution (sibling
// children of the same predecessor sort by this order, descending) and for
// the resolved mark-op log's tie-break.
func (id OpId) Compare(other OpId) int {
	switch {
	case id.Counter < other.Counter:
		return -1
	case id.Counter > other.Counter:
		return 1
	case id.Actor < other.Actor:
		return -1
	case id.Actor > other.Actor:
		return 1
	default:
		return 0
	}
}

// Less reports whether id orders strictly before other.
func (id OpId) Less(other OpId) bool {
	return id.Compare(other) < 0
}

// Greater reports whether id orders strictly after other.
func (id OpId) Greater(other OpId) bool {
	return id.Compare(other) > 0
}

func (id OpId) String() string {
	return fmt.Sprintf("%d@%s", id.Counter, id.Actor)
}
