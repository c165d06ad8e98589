// Package document implements the facade (spec.md §4.4) that holds a
// replica's text sequence and mark log, and exposes change/applyChange/
// clock/getTextWithFormatting to callers.
package document

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/haldane/peritext/internal/changes"
	"github.com/haldane/peritext/internal/clock"
	"github.com/haldane/peritext/internal/corerr"
	"github.com/haldane/peritext/internal/markop"
	"github.com/haldane/peritext/internal/sequence"
)

// Document is one replica's view of the text and its formatting. It is
// exclusively owned by its replica (spec.md §5). Change, ApplyChange,
// Clock and GetTextWithFormatting hold d.mu, so concurrent calls to them
// are serialized; RootText and History do not take d.mu.
type Document struct {
	mu sync.RWMutex

	actorId clock.ActorId
	counter uint64
	seq     uint64
	clk     clock.VectorClock

	text    *sequence.List
	marks   *markop.Log
	history *changes.History
}

// NewDocument returns a new, empty document owned by actorId. If actorId
// is empty a fresh one is generated, mirroring the teacher's
// per-connection id assignment in internal/handler/websocket.go.
func NewDocument(actorId clock.ActorId) *Document {
	if actorId == "" {
		actorId = clock.ActorId(uuid.New().String())
	}
	return &Document{
		actorId: actorId,
		clk:     clock.NewVectorClock(),
		text:    sequence.NewList(),
		marks:   markop.NewLog(),
		history: changes.NewHistory(),
	}
}

// ActorId returns the document's own actor identity.
func (d *Document) ActorId() clock.ActorId {
	return d.actorId
}

// Clock returns a copy of the current vector clock (spec.md §4.4).
func (d *Document) Clock() clock.VectorClock {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.clk.Clone()
}

// RootText exposes the visible text as an ordered sequence of values
// (spec.md §4.4, "root.text exposes the visible text... for position
// arithmetic in callers").
func (d *Document) RootText() []string {
	return d.text.VisibleText()
}

// History returns the document's append-only change history, for a sync
// helper to read with changes.GetMissingChanges.
func (d *Document) History() *changes.History {
	return d.history
}

// Change validates ops, applies them locally, and returns the resulting
// Change record. The document reflects the edit immediately (spec.md
// §4.4); on error, no part of ops has been applied.
func (d *Document) Change(ops []changes.PrimitiveOp) (changes.Change, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.validateLocalOpsLocked(ops); err != nil {
		return changes.Change{}, err
	}

	// Number this change's ops above every counter already observed, so
	// they order after everything in deps.
	for _, n := range d.clk {
		if n > d.counter {
			d.counter = n
		}
	}
	startCounter := d.counter + 1
	deps := d.clk.Clone()
	resolved := make([]changes.PrimitiveOp, len(ops))

	for i, op := range ops {
		r, err := d.applyLocalOpLocked(op)
		if err != nil {
			return changes.Change{}, err
		}
		resolved[i] = r
	}

	d.seq++
	change := changes.Change{
		Actor:        d.actorId,
		StartCounter: startCounter,
		Seq:          d.seq,
		Deps:         deps,
		Ops:          resolved,
	}
	d.clk.Advance(d.actorId, change.EndCounter())
	d.history.Append(change)
	return change, nil
}

// validateLocalOpsLocked checks every op for well-formedness and bounds,
// simulating the visible length across the whole batch so a later op's
// validity (which depends on earlier ops in the same change having
// applied) can be checked before anything actually mutates. This is what
// lets Change fail atomically (spec.md §7, "local errors abort the
// current change call without mutating state").
func (d *Document) validateLocalOpsLocked(ops []changes.PrimitiveOp) error {
	virtualLen := d.text.VisibleLen()
	for _, op := range ops {
		if err := op.Validate(); err != nil {
			return err
		}
		switch op.Action {
		case changes.ActionInsert:
			if op.Index < 0 || op.Index > virtualLen {
				return corerr.ErrOutOfBounds
			}
			virtualLen += len(op.Values)
		case changes.ActionDelete:
			if op.Index < 0 || op.Index+op.Count > virtualLen {
				return corerr.ErrOutOfBounds
			}
			virtualLen -= op.Count
		case changes.ActionAddMark, changes.ActionRemoveMark:
			if op.StartIndex < 0 || op.EndIndex < op.StartIndex || op.EndIndex >= virtualLen {
				return corerr.ErrOutOfBounds
			}
		}
	}
	return nil
}

func (d *Document) nextCounter() uint64 {
	d.counter++
	return d.counter
}

// applyLocalOpLocked mutates d.text/d.marks for a single, already
// bounds-checked op and returns the identity-resolved copy to store in
// the change record.
func (d *Document) applyLocalOpLocked(op changes.PrimitiveOp) (changes.PrimitiveOp, error) {
	switch op.Action {
	case changes.ActionInsert:
		inserted, err := d.text.Insert(op.Index, op.Values, d.actorId, d.nextCounter)
		if err != nil {
			return changes.PrimitiveOp{}, err
		}
		pred := inserted[0].Predecessor
		resolved := op
		resolved.Predecessor = &pred
		return resolved, nil

	case changes.ActionDelete:
		targets, err := d.text.Delete(op.Index, op.Count)
		if err != nil {
			return changes.PrimitiveOp{}, err
		}
		d.counter += uint64(len(targets)) // one counter per tombstone, as CounterSpan counts
		resolved := op
		resolved.Targets = targets
		return resolved, nil

	case changes.ActionAddMark, changes.ActionRemoveMark:
		return d.applyLocalMarkOpLocked(op)

	default:
		return changes.PrimitiveOp{}, fmt.Errorf("%w: unrecognized action %q", corerr.ErrMalformedOp, op.Action)
	}
}

func (d *Document) applyLocalMarkOpLocked(op changes.PrimitiveOp) (changes.PrimitiveOp, error) {
	var mark markop.MarkValue
	var kind markop.Kind
	var err error
	if op.Action == changes.ActionAddMark {
		kind = markop.AddMark
		mark, err = markop.NewMarkValue(op.MarkType, op.Attrs)
	} else {
		kind = markop.RemoveMark
		mark, err = markop.NewRemoveMarkValue(op.MarkType, op.Attrs)
	}
	if err != nil {
		return changes.PrimitiveOp{}, err
	}

	start, err := d.resolveStartAnchorLocked(op.StartIndex)
	if err != nil {
		return changes.PrimitiveOp{}, err
	}
	end, err := d.resolveEndAnchorLocked(op.EndIndex)
	if err != nil {
		return changes.PrimitiveOp{}, err
	}

	id := clock.OpId{Counter: d.nextCounter(), Actor: d.actorId}
	d.marks.Append(markop.ResolvedOp{ID: id, Kind: kind, Mark: mark, Start: start, End: end})

	resolved := op
	resolved.StartAnchor = &start
	resolved.EndAnchor = &end
	return resolved, nil
}

// resolveStartAnchorLocked implements the left-gravity anchor rule
// (spec.md §4.1): the start of a range anchors to the character just
// before it, or the sentinel head if the range starts at position 0.
func (d *Document) resolveStartAnchorLocked(pos int) (clock.OpId, error) {
	if pos == 0 {
		return clock.Zero, nil
	}
	return d.text.PositionToOpId(pos - 1)
}

// resolveEndAnchorLocked implements the right-gravity anchor rule: the
// end of a range (inclusive) anchors to the character at that position.
func (d *Document) resolveEndAnchorLocked(pos int) (clock.OpId, error) {
	return d.text.PositionToOpId(pos)
}
