// Package markop resolves addMark/removeMark operations into a
// causally-applied, sorted log addressed by character identities
// (spec.md §4.2), ready for the format span engine to replay.
package markop

import (
	"fmt"

	"github.com/haldane/peritext/internal/corerr"
)

// MarkType enumerates the inline formatting kinds spec.md's data model
// allows. It is a tagged variant rather than a free-form string, per
// spec.md §9's "model PrimitiveOp and MarkValue as sum types" guidance.
type MarkType int

const (
	Strong MarkType = iota
	Em
	Link
	Comment
)

func (t MarkType) String() string {
	switch t {
	case Strong:
		return "strong"
	case Em:
		return "em"
	case Link:
		return "link"
	case Comment:
		return "comment"
	default:
		return fmt.Sprintf("MarkType(%d)", int(t))
	}
}

// ParseMarkType validates and converts a wire-format markType string.
// Returns corerr.ErrUnknownMark for anything outside
// {strong, em, link, comment}.
func ParseMarkType(s string) (MarkType, error) {
	switch s {
	case "strong":
		return Strong, nil
	case "em":
		return Em, nil
	case "link":
		return Link, nil
	case "comment":
		return Comment, nil
	default:
		return 0, fmt.Errorf("%w: %q", corerr.ErrUnknownMark, s)
	}
}

// HasParam reports whether t requires a parameter (link needs a url,
// comment needs an id).
func (t MarkType) HasParam() bool {
	return t == Link || t == Comment
}
