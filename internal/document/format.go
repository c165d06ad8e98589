package document

import (
	"fmt"
	"strings"

	"github.com/haldane/peritext/internal/clock"
	"github.com/haldane/peritext/internal/corerr"
	"github.com/haldane/peritext/internal/format"
	"github.com/haldane/peritext/internal/markop"
)

// TextRun is one contiguous run of visible text sharing the same marks,
// the shape spec.md §6 calls getTextWithFormatting's "[(text, marks)]".
type TextRun struct {
	Text  string
	Marks map[markop.MarkValue]struct{}
}

// GetTextWithFormatting returns the visible text at path joined with its
// formatting spans (spec.md §4.4). The only supported path is ["text"];
// the rooted text list is the sole CRDT this core supports (spec.md §1's
// "single rooted text list" non-goal).
func (d *Document) GetTextWithFormatting(path []string) ([]TextRun, error) {
	if len(path) != 1 || path[0] != "text" {
		return nil, fmt.Errorf("%w: unsupported path %v", corerr.ErrMalformedOp, path)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	visible := d.text.VisibleText()
	spans, err := d.formatSpansLocked(len(visible))
	if err != nil {
		return nil, err
	}
	return joinTextWithSpans(visible, spans), nil
}

// formatSpansLocked re-resolves every mark op's anchors against the
// current sequence state and replays them into a normalized span list
// (SPEC_FULL.md Open Question #2: anchors are re-resolved lazily at read
// time rather than cached).
func (d *Document) formatSpansLocked(documentLength int) ([]format.FormatSpan, error) {
	resolvedOps := d.marks.All()
	ops := make([]format.Op, 0, len(resolvedOps))
	for _, rop := range resolvedOps {
		start, err := d.startPositionFromAnchorLocked(rop.Start)
		if err != nil {
			return nil, err
		}
		end, err := d.endPositionFromAnchorLocked(rop.End)
		if err != nil {
			return nil, err
		}
		ops = append(ops, format.Op{Kind: rop.Kind, Mark: rop.Mark, Start: start, End: end})
	}
	return format.ReplayOps(ops, documentLength), nil
}

func (d *Document) startPositionFromAnchorLocked(anchor clock.OpId) (int, error) {
	if anchor.IsZero() {
		return 0, nil
	}
	pos, err := d.text.OpIdToPosition(anchor)
	if err != nil {
		return 0, err
	}
	return pos + 1, nil
}

func (d *Document) endPositionFromAnchorLocked(anchor clock.OpId) (int, error) {
	return d.text.OpIdToPosition(anchor)
}

// joinTextWithSpans folds adjacent visible characters covered by the
// same span into one TextRun.
func joinTextWithSpans(visible []string, spans []format.FormatSpan) []TextRun {
	runs := make([]TextRun, 0, len(spans))
	for i, span := range spans {
		end := len(visible)
		if i+1 < len(spans) {
			end = spans[i+1].Start
		}
		if span.Start >= end {
			continue
		}

		var b strings.Builder
		for _, v := range visible[span.Start:end] {
			b.WriteString(v)
		}
		runs = append(runs, TextRun{Text: b.String(), Marks: span.Marks})
	}
	return runs
}
