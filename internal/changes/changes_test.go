package changes_test

import (
	"testing"

	"github.com/haldane/peritext/internal/changes"
	"github.com/haldane/peritext/internal/clock"
	"github.com/haldane/peritext/internal/corerr"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveOp_CounterSpan(t *testing.T) {
	t.Parallel()

	require.Equal(t, 3, changes.NewInsertOp(0, []string{"a", "b", "c"}).CounterSpan())
	require.Equal(t, 2, changes.NewDeleteOp(0, 2).CounterSpan())
	require.Equal(t, 1, changes.NewAddMarkOp(2, 9, "strong", nil).CounterSpan())
	require.Equal(t, 1, changes.NewRemoveMarkOp(2, 9, "strong", nil).CounterSpan())
}

func TestPrimitiveOp_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, changes.NewInsertOp(0, []string{"a"}).Validate())

	empty := changes.NewInsertOp(0, nil)
	require.ErrorIs(t, empty.Validate(), corerr.ErrMalformedOp)

	badDelete := changes.NewDeleteOp(0, 0)
	require.ErrorIs(t, badDelete.Validate(), corerr.ErrMalformedOp)

	badMark := changes.NewAddMarkOp(0, 5, "underline", nil)
	require.ErrorIs(t, badMark.Validate(), corerr.ErrUnknownMark)

	missingURL := changes.NewAddMarkOp(0, 5, "link", nil)
	require.ErrorIs(t, missingURL.Validate(), corerr.ErrMalformedOp)
}

func TestChange_EndCounter(t *testing.T) {
	t.Parallel()

	c := changes.Change{
		Actor:        "a",
		StartCounter: 5,
		Ops: []changes.PrimitiveOp{
			changes.NewInsertOp(0, []string{"x", "y", "z"}),
			changes.NewAddMarkOp(0, 2, "strong", nil),
		},
	}
	require.Equal(t, uint64(8), c.EndCounter())
}

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	t.Parallel()

	c := changes.Change{
		Actor:        "doc0",
		StartCounter: 1,
		Seq:          1,
		Deps:         clock.VectorClock{"doc1": 3},
		Ops: []changes.PrimitiveOp{
			changes.NewInsertOp(0, []string{"h", "i"}),
			changes.NewAddMarkOp(0, 1, "link", map[string]string{"url": "https://example.com"}),
		},
	}

	data, err := changes.Marshal(c)
	require.NoError(t, err)

	got, err := changes.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, c, got)
}

func TestUnmarshal_RejectsMalformed(t *testing.T) {
	t.Parallel()

	_, err := changes.Unmarshal([]byte(`{"actor":"a","ops":[{"action":"insert","values":[]}]}`))
	require.ErrorIs(t, err, corerr.ErrMalformedOp)
}

func TestGetMissingChanges(t *testing.T) {
	t.Parallel()

	history := changes.NewHistory()
	c1 := changes.Change{Actor: "a", StartCounter: 1, Seq: 1, Ops: []changes.PrimitiveOp{changes.NewInsertOp(0, []string{"x"})}}
	c2 := changes.Change{Actor: "a", StartCounter: 2, Seq: 2, Ops: []changes.PrimitiveOp{changes.NewInsertOp(1, []string{"y"})}}
	history.Append(c1)
	history.Append(c2)

	sourceClock := clock.VectorClock{"a": 2}

	t.Run("target has seen nothing", func(t *testing.T) {
		t.Parallel()
		missing := changes.GetMissingChanges(history, sourceClock, clock.NewVectorClock())
		require.ElementsMatch(t, []changes.Change{c1, c2}, missing)
	})

	t.Run("target partially caught up", func(t *testing.T) {
		t.Parallel()
		missing := changes.GetMissingChanges(history, sourceClock, clock.VectorClock{"a": 1})
		require.Equal(t, []changes.Change{c2}, missing)
	})

	t.Run("target fully caught up", func(t *testing.T) {
		t.Parallel()
		missing := changes.GetMissingChanges(history, sourceClock, clock.VectorClock{"a": 2})
		require.Empty(t, missing)
	})
}
