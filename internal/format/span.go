// Package format replays a causally-ordered log of resolved mark
// operations into a normalized sequence of format spans covering the
// document, per spec.md §4.3.
package format

import "github.com/haldane/peritext/internal/markop"

// FormatSpan is a maximal run of positions bearing a single set of marks.
type FormatSpan struct {
	Start int
	Marks map[markop.MarkValue]struct{}
}

func newSpan(start int) FormatSpan {
	return FormatSpan{Start: start, Marks: make(map[markop.MarkValue]struct{})}
}

func (s FormatSpan) clone() FormatSpan {
	out := newSpan(s.Start)
	for v := range s.Marks {
		out.Marks[v] = struct{}{}
	}
	return out
}

func marksEqual(a, b map[markop.MarkValue]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for v := range a {
		if _, ok := b[v]; !ok {
			return false
		}
	}
	return true
}

// Op is a mark operation ready to be replayed: its start/end anchors have
// already been resolved to concrete visible positions (spec.md §4.1's
// anchor-gravity rule, applied by the document facade).
type Op struct {
	Kind  markop.Kind
	Mark  markop.MarkValue
	Start int
	End   int
}
