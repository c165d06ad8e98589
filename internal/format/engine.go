package format

import "github.com/haldane/peritext/internal/markop"

// GetSpanAtPosition returns the rightmost span with span.Start <= pos, and
// its 0-based index, or ok==false if pos precedes every span (including
// when spans is empty).
func GetSpanAtPosition(spans []FormatSpan, pos int) (span FormatSpan, index int, ok bool) {
	if len(spans) == 0 || pos < spans[0].Start {
		return FormatSpan{}, -1, false
	}

	lo, hi, result := 0, len(spans)-1, -1
	for lo <= hi {
		mid := (lo + hi) / 2
		if spans[mid].Start <= pos {
			result = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return spans[result], result, true
}

// ensureBoundary makes sure spans has a span starting exactly at pos,
// splitting the span that currently covers pos and giving the new span a
// copy of its marks. A pos at or before 0 is always already covered by
// spans[0]. spans must be non-empty and start at 0.
func ensureBoundary(spans []FormatSpan, pos int) []FormatSpan {
	span, idx, ok := GetSpanAtPosition(spans, pos)
	if !ok || span.Start == pos {
		return spans
	}

	newSpan := span.clone()
	newSpan.Start = pos

	out := make([]FormatSpan, 0, len(spans)+1)
	out = append(out, spans[:idx+1]...)
	out = append(out, newSpan)
	out = append(out, spans[idx+1:]...)
	return out
}

// applyMarkChange updates a single span's mark set for one op, per
// spec.md §4.3's per-mark-type rules.
func applyMarkChange(span *FormatSpan, op Op) {
	switch op.Kind {
	case markop.AddMark:
		if op.Mark.Type == markop.Link {
			removeMarksOfType(span, markop.Link)
		}
		span.Marks[op.Mark] = struct{}{}
	case markop.RemoveMark:
		if op.Mark.Type == markop.Link {
			removeMarksOfType(span, markop.Link)
			return
		}
		delete(span.Marks, op.Mark)
	}
}

func removeMarksOfType(span *FormatSpan, t markop.MarkType) {
	for v := range span.Marks {
		if v.Type == t {
			delete(span.Marks, v)
		}
	}
}

// applyOp folds a single resolved op into spans: it ensures boundaries at
// op.Start and op.End+1, then updates every span whose Start falls within
// [op.Start, op.End].
func applyOp(spans []FormatSpan, op Op) []FormatSpan {
	spans = ensureBoundary(spans, op.Start)
	spans = ensureBoundary(spans, op.End+1)

	for i := range spans {
		if spans[i].Start >= op.Start && spans[i].Start <= op.End {
			applyMarkChange(&spans[i], op)
		}
	}
	return spans
}

// ReplayOps folds ops, in the order given, into a normalized FormatSpan
// sequence covering [0, documentLength). Operations are non-commutative:
// the final state of any position is whatever the last op touching it
// left behind (spec.md §4.3's "Non-commutativity").
func ReplayOps(ops []Op, documentLength int) []FormatSpan {
	spans := []FormatSpan{newSpan(0)}
	for _, op := range ops {
		spans = applyOp(spans, op)
	}
	return Normalize(spans, documentLength)
}

// Normalize enforces spec.md §3's FormatSpan invariants: spans sorted by
// start with the first at 0, no two adjacent spans sharing the same mark
// set, and no span at or beyond documentLength.
func Normalize(spans []FormatSpan, documentLength int) []FormatSpan {
	filtered := make([]FormatSpan, 0, len(spans))
	for _, s := range spans {
		if s.Start >= documentLength {
			continue
		}
		filtered = append(filtered, s)
	}

	collapsed := make([]FormatSpan, 0, len(filtered))
	for _, s := range filtered {
		if n := len(collapsed); n > 0 && marksEqual(collapsed[n-1].Marks, s.Marks) {
			continue
		}
		collapsed = append(collapsed, s)
	}

	if len(collapsed) == 0 || collapsed[0].Start != 0 {
		collapsed = append([]FormatSpan{newSpan(0)}, collapsed...)
	}
	return collapsed
}
