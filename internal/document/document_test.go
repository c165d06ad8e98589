package document_test

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/haldane/peritext/internal/changes"
	"github.com/haldane/peritext/internal/clock"
	"github.com/haldane/peritext/internal/corerr"
	"github.com/haldane/peritext/internal/document"
	"github.com/stretchr/testify/require"
)

func chars(s string) []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}

func TestDocument_LocalInsertAndDelete(t *testing.T) {
	t.Parallel()

	doc := document.NewDocument("doc0")

	_, err := doc.Change([]changes.PrimitiveOp{changes.NewInsertOp(0, chars("hello"))})
	require.NoError(t, err)
	require.Equal(t, chars("hello"), doc.RootText())

	_, err = doc.Change([]changes.PrimitiveOp{changes.NewDeleteOp(1, 3)})
	require.NoError(t, err)
	require.Equal(t, chars("ho"), doc.RootText())
}

func TestDocument_ChangeRejectsOutOfBoundsAtomically(t *testing.T) {
	t.Parallel()

	doc := document.NewDocument("doc0")
	_, err := doc.Change([]changes.PrimitiveOp{changes.NewInsertOp(0, chars("ab"))})
	require.NoError(t, err)

	_, err = doc.Change([]changes.PrimitiveOp{
		changes.NewInsertOp(0, chars("X")),
		changes.NewDeleteOp(10, 1),
	})
	require.ErrorIs(t, err, corerr.ErrOutOfBounds)
	require.Equal(t, chars("ab"), doc.RootText(), "first op in the failed change must not have applied")
}

func TestDocument_AutoGeneratesActorId(t *testing.T) {
	t.Parallel()

	doc := document.NewDocument("")
	require.NotEmpty(t, doc.ActorId())
}

func TestDocument_ApplyChange_MissingDependency(t *testing.T) {
	t.Parallel()

	a := document.NewDocument("a")
	b := document.NewDocument("b")

	_, err := a.Change([]changes.PrimitiveOp{changes.NewInsertOp(0, chars("hi"))})
	require.NoError(t, err)
	change2, err := a.Change([]changes.PrimitiveOp{changes.NewInsertOp(2, chars("!"))})
	require.NoError(t, err)

	// b has not yet seen change1, so change2's deps are unsatisfied.
	err = b.ApplyChange(change2)
	require.ErrorIs(t, err, corerr.ErrMissingDependency)
	require.Empty(t, b.RootText())
}

func TestDocument_ApplyChange_Idempotent(t *testing.T) {
	t.Parallel()

	a := document.NewDocument("a")
	b := document.NewDocument("b")

	change, err := a.Change([]changes.PrimitiveOp{changes.NewInsertOp(0, chars("hi"))})
	require.NoError(t, err)

	require.NoError(t, b.ApplyChange(change))
	require.NoError(t, b.ApplyChange(change))
	require.Equal(t, chars("hi"), b.RootText())
}

func TestDocument_Convergence_ConcurrentInsertsAndMarks(t *testing.T) {
	t.Parallel()

	a := document.NewDocument("a")
	b := document.NewDocument("b")

	base, err := a.Change([]changes.PrimitiveOp{changes.NewInsertOp(0, chars("hello world"))})
	require.NoError(t, err)
	require.NoError(t, b.ApplyChange(base))

	// Concurrent edits: a bolds "hello", b appends "!" at the end.
	boldChange, err := a.Change([]changes.PrimitiveOp{changes.NewAddMarkOp(0, 4, "strong", nil)})
	require.NoError(t, err)
	appendChange, err := b.Change([]changes.PrimitiveOp{changes.NewInsertOp(11, chars("!"))})
	require.NoError(t, err)

	require.NoError(t, a.ApplyChange(appendChange))
	require.NoError(t, b.ApplyChange(boldChange))

	require.Equal(t, a.RootText(), b.RootText())
	require.Equal(t, a.Clock(), b.Clock())

	runsA, err := a.GetTextWithFormatting([]string{"text"})
	require.NoError(t, err)
	runsB, err := b.GetTextWithFormatting([]string{"text"})
	require.NoError(t, err)
	require.Equal(t, runsA, runsB)
}

func TestDocument_GetTextWithFormatting_BasicSpan(t *testing.T) {
	t.Parallel()

	doc := document.NewDocument("doc0")
	_, err := doc.Change([]changes.PrimitiveOp{changes.NewInsertOp(0, chars("hello world"))})
	require.NoError(t, err)

	_, err = doc.Change([]changes.PrimitiveOp{changes.NewAddMarkOp(0, 4, "strong", nil)})
	require.NoError(t, err)

	runs, err := doc.GetTextWithFormatting([]string{"text"})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "hello", runs[0].Text)
	require.Len(t, runs[0].Marks, 1)
	require.Equal(t, " world", runs[1].Text)
	require.Empty(t, runs[1].Marks)
}

func TestDocument_GetTextWithFormatting_RejectsUnknownPath(t *testing.T) {
	t.Parallel()

	doc := document.NewDocument("doc0")
	_, err := doc.GetTextWithFormatting([]string{"comments"})
	require.ErrorIs(t, err, corerr.ErrMalformedOp)
}

// randomPrimitiveOp picks one of the four op kinds and keeps its indices
// within the given visible length, which the caller reads from the same
// replica just before applying the op; any op Change still rejects is
// simply skipped by the caller.
func randomPrimitiveOp(rnd *rand.Rand, length int) changes.PrimitiveOp {
	kind := rnd.Intn(4)
	if length == 0 {
		kind = 0
	}
	switch kind {
	case 0:
		index := rnd.Intn(length + 1)
		values := make([]string, 1+rnd.Intn(3))
		for i := range values {
			values[i] = string(rune('a' + rnd.Intn(26)))
		}
		return changes.NewInsertOp(index, values)
	case 1:
		index := rnd.Intn(length)
		count := 1 + rnd.Intn(length-index)
		return changes.NewDeleteOp(index, count)
	case 2:
		start := rnd.Intn(length)
		end := start + rnd.Intn(length-start)
		return changes.NewAddMarkOp(start, end, "strong", nil)
	default:
		start := rnd.Intn(length)
		end := start + rnd.Intn(length-start)
		return changes.NewRemoveMarkOp(start, end, "strong", nil)
	}
}

// syncAll applies every change dst hasn't seen yet from src's history,
// retrying changes whose dependencies aren't satisfied yet until no
// further progress is made (mirrors collab.applyInCausalOrder, but
// against an in-memory History rather than storage).
func syncAll(dst, src *document.Document) error {
	for {
		missing := changes.GetMissingChanges(src.History(), src.Clock(), dst.Clock())
		if len(missing) == 0 {
			return nil
		}

		progressed := false
		for _, c := range missing {
			err := dst.ApplyChange(c)
			if err == nil {
				progressed = true
				continue
			}
			if errors.Is(err, corerr.ErrMissingDependency) {
				continue
			}
			return err
		}
		if !progressed {
			return nil
		}
	}
}

// TestDocument_Fuzz_ConvergenceAcrossReplicas is spec.md §8 scenario 7: N
// replicas each produce M random ops, then sync with each other across
// random pairwise rounds; every replica must end up with the same
// visible text, vector clock, and formatting spans.
func TestDocument_Fuzz_ConvergenceAcrossReplicas(t *testing.T) {
	t.Parallel()

	const replicaCount = 4
	const opsPerRound = 6
	const rounds = 3

	property := func(seed int64) bool {
		rnd := rand.New(rand.NewSource(seed))

		docs := make([]*document.Document, replicaCount)
		for i := range docs {
			docs[i] = document.NewDocument(clock.ActorId(fmt.Sprintf("r%d", i)))
		}

		for round := 0; round < rounds; round++ {
			for i := 0; i < opsPerRound; i++ {
				r := rnd.Intn(replicaCount)
				op := randomPrimitiveOp(rnd, len(docs[r].RootText()))
				if _, err := docs[r].Change([]changes.PrimitiveOp{op}); err != nil {
					continue
				}
			}

			for pass := 0; pass < replicaCount*2; pass++ {
				for _, i := range rnd.Perm(replicaCount) {
					for _, j := range rnd.Perm(replicaCount) {
						if i == j {
							continue
						}
						if err := syncAll(docs[j], docs[i]); err != nil {
							return false
						}
					}
				}
			}
		}

		baseText := docs[0].RootText()
		baseClock := docs[0].Clock()
		baseRuns, err := docs[0].GetTextWithFormatting([]string{"text"})
		if err != nil {
			return false
		}

		for _, d := range docs[1:] {
			if !reflect.DeepEqual(baseText, d.RootText()) {
				return false
			}
			if !baseClock.Equal(d.Clock()) {
				return false
			}
			runs, err := d.GetTextWithFormatting([]string{"text"})
			if err != nil || !reflect.DeepEqual(baseRuns, runs) {
				return false
			}
		}
		return true
	}

	if err := quick.Check(property, &quick.Config{MaxCount: 20}); err != nil {
		t.Error(err)
	}
}
