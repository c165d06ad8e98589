package document

import (
	"fmt"

	"github.com/haldane/peritext/internal/changes"
	"github.com/haldane/peritext/internal/clock"
	"github.com/haldane/peritext/internal/corerr"
	"github.com/haldane/peritext/internal/markop"
)

// ApplyChange integrates a change produced by another replica. If its
// deps are not yet satisfied it fails with corerr.ErrMissingDependency
// and the document is left unchanged -- the caller is expected to
// re-queue and retry once more of the actor's history has arrived
// (spec.md §4.4, §7). Applying the same change twice is a no-op.
func (d *Document) ApplyChange(c changes.Change) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.clk.Covers(c.Deps) {
		return corerr.ErrMissingDependency
	}
	if d.clk.Get(c.Actor) >= c.EndCounter() {
		return nil // already applied
	}
	if err := d.validateExternalRefsLocked(c); err != nil {
		return err
	}

	counter := c.StartCounter
	for _, op := range c.Ops {
		switch op.Action {
		case changes.ActionInsert:
			pred := clock.Zero
			if op.Predecessor != nil {
				pred = *op.Predecessor
			}
			for _, v := range op.Values {
				id := clock.OpId{Counter: counter, Actor: c.Actor}
				if err := d.text.ApplyInsert(id, pred, v); err != nil {
					return err
				}
				pred = id
				counter++
			}

		case changes.ActionDelete:
			for _, target := range op.Targets {
				if err := d.text.ApplyDelete(target); err != nil {
					return err
				}
				counter++
			}

		case changes.ActionAddMark, changes.ActionRemoveMark:
			if err := d.applyRemoteMarkOpLocked(op, c.Actor, counter); err != nil {
				return err
			}
			counter++

		default:
			return fmt.Errorf("%w: unrecognized action %q", corerr.ErrMalformedOp, op.Action)
		}
	}

	d.clk.Advance(c.Actor, c.EndCounter())
	d.history.Append(c)
	return nil
}

func (d *Document) applyRemoteMarkOpLocked(op changes.PrimitiveOp, actor clock.ActorId, counter uint64) error {
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
		return err
	}
	if op.EndAnchor == nil {
		return fmt.Errorf("%w: mark op missing end anchor", corerr.ErrMalformedOp)
	}

	start := clock.Zero
	if op.StartAnchor != nil {
		start = *op.StartAnchor
	}

	id := clock.OpId{Counter: counter, Actor: actor}
	d.marks.Append(markop.ResolvedOp{ID: id, Kind: kind, Mark: mark, Start: start, End: *op.EndAnchor})
	return nil
}

// withinChange reports whether id is one of the identities c itself will
// create -- either by an earlier op in c, or by the same insert's own
// value-chaining -- as opposed to a reference to something that must
// already have been observed before c can apply.
func withinChange(id clock.OpId, c changes.Change) bool {
	return id.Actor == c.Actor && id.Counter >= c.StartCounter && id.Counter <= c.EndCounter()
}

// validateExternalRefsLocked checks that every identity c references but
// does not itself create is already present, before any of c is applied.
// Because deps being satisfied does not, by itself, guarantee a
// reference resolves (a reference could point at an id created by a
// concurrent change this replica hasn't applied yet even though it's not
// a hard causal dependency), this keeps applyChange atomic on its most
// realistic failure path without requiring a rollback log.
func (d *Document) validateExternalRefsLocked(c changes.Change) error {
	checkAnchor := func(anchor *clock.OpId) error {
		if anchor == nil || anchor.IsZero() || withinChange(*anchor, c) {
			return nil
		}
		if !d.text.Has(*anchor) {
			return corerr.ErrMissingDependency
		}
		return nil
	}

	for _, op := range c.Ops {
		switch op.Action {
		case changes.ActionInsert:
			if err := checkAnchor(op.Predecessor); err != nil {
				return err
			}
		case changes.ActionDelete:
			for _, target := range op.Targets {
				t := target
				if err := checkAnchor(&t); err != nil {
					return err
				}
			}
		case changes.ActionAddMark, changes.ActionRemoveMark:
			if err := checkAnchor(op.StartAnchor); err != nil {
				return err
			}
			if err := checkAnchor(op.EndAnchor); err != nil {
				return err
			}
		}
	}
	return nil
}
