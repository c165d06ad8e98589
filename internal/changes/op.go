// Package changes implements the change record wire format (spec.md §6)
// and the vector-clock diff used to decide what a replica still needs to
// send another replica (spec.md §4.5).
package changes

import (
	"fmt"

	"github.com/haldane/peritext/internal/clock"
	"github.com/haldane/peritext/internal/corerr"
	"github.com/haldane/peritext/internal/markop"
)

// ActionKind is the tagged variant discriminator for a PrimitiveOp, per
// spec.md §9's "model PrimitiveOp ... as sum types" guidance. The wire
// encoding keeps all four variants in one flat JSON object (spec.md §6),
// so the sum-type discipline is enforced by the constructors below rather
// than by distinct Go types.
type ActionKind string

const (
	ActionInsert     ActionKind = "insert"
	ActionDelete     ActionKind = "delete"
	ActionAddMark    ActionKind = "addMark"
	ActionRemoveMark ActionKind = "removeMark"
)

// PrimitiveOp is one entry in a Change's ops list, in the wire-compatible
// shape of spec.md §6. Only the fields relevant to Action are populated;
// callers should build one with NewInsertOp/NewDeleteOp/NewAddMarkOp/
// NewRemoveMarkOp rather than setting fields directly.
type PrimitiveOp struct {
	Action ActionKind `json:"action"`
	Path   []string   `json:"path"`

	Index  int      `json:"index,omitempty"`
	Values []string `json:"values,omitempty"`

	Count int `json:"count,omitempty"`

	StartIndex int               `json:"startIndex,omitempty"`
	EndIndex   int               `json:"endIndex,omitempty"`
	MarkType   string            `json:"markType,omitempty"`
	Attrs      map[string]string `json:"attrs,omitempty"`

	// The fields below carry the identity-resolved form of this op, filled
	// in by the document facade at creation time (spec.md §4.1/§4.2: an
	// insert's predecessor and a delete's targets are character ids, and a
	// mark op's start/end are anchor OpIds -- resolving them once at the
	// producing replica is what lets "index" stay meaningful when the
	// change is applied on a replica with a different, but causally
	// consistent, view of the document). A Change decoded straight off the
	// wire must carry these; only a caller-built op passed into
	// Document.Change leaves them nil.
	Predecessor *clock.OpId  `json:"predecessor,omitempty"`
	Targets     []clock.OpId `json:"targets,omitempty"`
	StartAnchor *clock.OpId  `json:"startAnchor,omitempty"`
	EndAnchor   *clock.OpId  `json:"endAnchor,omitempty"`
}

var textPath = []string{"text"}

// NewInsertOp builds an insert PrimitiveOp.
func NewInsertOp(index int, values []string) PrimitiveOp {
	return PrimitiveOp{Action: ActionInsert, Path: textPath, Index: index, Values: values}
}

// NewDeleteOp builds a delete PrimitiveOp.
func NewDeleteOp(index, count int) PrimitiveOp {
	return PrimitiveOp{Action: ActionDelete, Path: textPath, Index: index, Count: count}
}

// NewAddMarkOp builds an addMark PrimitiveOp.
func NewAddMarkOp(startIndex, endIndex int, markType string, attrs map[string]string) PrimitiveOp {
	return PrimitiveOp{
		Action: ActionAddMark, Path: textPath,
		StartIndex: startIndex, EndIndex: endIndex,
		MarkType: markType, Attrs: attrs,
	}
}

// NewRemoveMarkOp builds a removeMark PrimitiveOp.
func NewRemoveMarkOp(startIndex, endIndex int, markType string, attrs map[string]string) PrimitiveOp {
	return PrimitiveOp{
		Action: ActionRemoveMark, Path: textPath,
		StartIndex: startIndex, EndIndex: endIndex,
		MarkType: markType, Attrs: attrs,
	}
}

// Validate checks that op carries the fields its Action requires,
// returning corerr.ErrMalformedOp or corerr.ErrUnknownMark otherwise.
// Called when decoding a Change received from another replica.
func (op PrimitiveOp) Validate() error {
	switch op.Action {
	case ActionInsert:
		if len(op.Values) == 0 {
			return fmt.Errorf("%w: insert with no values", corerr.ErrMalformedOp)
		}
	case ActionDelete:
		if op.Count <= 0 {
			return fmt.Errorf("%w: delete with non-positive count", corerr.ErrMalformedOp)
		}
	case ActionAddMark:
		if op.EndIndex < op.StartIndex {
			return fmt.Errorf("%w: addMark with end before start", corerr.ErrMalformedOp)
		}
		if _, err := markop.NewMarkValue(op.MarkType, op.Attrs); err != nil {
			return err
		}
	case ActionRemoveMark:
		if op.EndIndex < op.StartIndex {
			return fmt.Errorf("%w: removeMark with end before start", corerr.ErrMalformedOp)
		}
		if _, err := markop.NewRemoveMarkValue(op.MarkType, op.Attrs); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unrecognized action %q", corerr.ErrMalformedOp, op.Action)
	}
	return nil
}

// CounterSpan returns how many OpId counters op consumes: one per
// inserted value, one per deleted character, or exactly one for a single
// mark change (spec.md §3, "each op inside is assigned consecutive
// counters").
func (op PrimitiveOp) CounterSpan() int {
	switch op.Action {
	case ActionInsert:
		return len(op.Values)
	case ActionDelete:
		return op.Count
	default:
		return 1
	}
}
