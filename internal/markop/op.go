package markop

import (
	"fmt"

	"github.com/haldane/peritext/internal/clock"
	"github.com/haldane/peritext/internal/corerr"
)

// Kind distinguishes adding a mark from removing one.
type Kind int

const (
	AddMark Kind = iota
	RemoveMark
)

func (k Kind) String() string {
	if k == AddMark {
		return "addMark"
	}
	return "removeMark"
}

// ResolvedOp is a mark operation after its visible start/end positions
// (as seen by the replica that produced it) have been translated into
// anchor OpIds, per spec.md §4.1's anchor-gravity rule: Start uses
// left-gravity (the character before the range), End uses right-gravity
// (the character at the range's last covered position).
type ResolvedOp struct {
	// ID is this op's own identity, used as the log's deterministic
	// tie-break order (see SPEC_FULL.md's Open Question #4).
	ID clock.OpId

	Kind Kind
	Mark MarkValue

	Start clock.OpId // left-gravity anchor; clock.Zero means "start of document"
	End   clock.OpId // right-gravity anchor; always a real character
}

// NewMarkValue validates a wire-format markType/attrs pair and builds the
// MarkValue it describes. Returns corerr.ErrUnknownMark for an
// unrecognized markType and corerr.ErrMalformedOp when a parameterized
// mark is missing its required attribute.
func NewMarkValue(markType string, attrs map[string]string) (MarkValue, error) {
	t, err := ParseMarkType(markType)
	if err != nil {
		return MarkValue{}, err
	}

	switch t {
	case Link:
		url, ok := attrs["url"]
		if !ok || url == "" {
			return MarkValue{}, fmt.Errorf("%w: link requires a url", corerr.ErrMalformedOp)
		}
		return LinkValue(url), nil
	case Comment:
		id, ok := attrs["id"]
		if !ok || id == "" {
			return MarkValue{}, fmt.Errorf("%w: comment requires an id", corerr.ErrMalformedOp)
		}
		return CommentValue(id), nil
	default:
		return MarkValue{Type: t}, nil
	}
}

// NewRemoveMarkValue validates a removeMark's markType/attrs. removeMark
// on a link needs no attrs (it removes whatever link is present);
// removeMark on a comment needs the specific id to remove.
func NewRemoveMarkValue(markType string, attrs map[string]string) (MarkValue, error) {
	t, err := ParseMarkType(markType)
	if err != nil {
		return MarkValue{}, err
	}

	if t == Comment {
		id, ok := attrs["id"]
		if !ok || id == "" {
			return MarkValue{}, fmt.Errorf("%w: removeMark comment requires an id", corerr.ErrMalformedOp)
		}
		return CommentValue(id), nil
	}
	return MarkValue{Type: t}, nil
}
