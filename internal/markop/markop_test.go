package markop_test

import (
	"testing"

	"github.com/haldane/peritext/internal/clock"
	"github.com/haldane/peritext/internal/corerr"
	"github.com/haldane/peritext/internal/markop"
	"github.com/stretchr/testify/require"
)

func TestParseMarkType_Unknown(t *testing.T) {
	t.Parallel()

	_, err := markop.ParseMarkType("underline")
	require.ErrorIs(t, err, corerr.ErrUnknownMark)
}

func TestNewMarkValue_LinkRequiresURL(t *testing.T) {
	t.Parallel()

	_, err := markop.NewMarkValue("link", nil)
	require.ErrorIs(t, err, corerr.ErrMalformedOp)

	v, err := markop.NewMarkValue("link", map[string]string{"url": "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, markop.LinkValue("https://example.com"), v)
}

func TestNewMarkValue_CommentRequiresID(t *testing.T) {
	t.Parallel()

	_, err := markop.NewMarkValue("comment", nil)
	require.ErrorIs(t, err, corerr.ErrMalformedOp)

	v, err := markop.NewMarkValue("comment", map[string]string{"id": "c1"})
	require.NoError(t, err)
	require.Equal(t, markop.CommentValue("c1"), v)
}

func TestNewMarkValue_BareMarksIgnoreAttrs(t *testing.T) {
	t.Parallel()

	v, err := markop.NewMarkValue("strong", map[string]string{"url": "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, markop.StrongValue, v)
}

func TestNewRemoveMarkValue_LinkNeedsNoAttrs(t *testing.T) {
	t.Parallel()

	v, err := markop.NewRemoveMarkValue("link", nil)
	require.NoError(t, err)
	require.Equal(t, markop.MarkValue{Type: markop.Link}, v)
}

func TestLog_AppendIsSortedByID(t *testing.T) {
	t.Parallel()

	log := markop.NewLog()
	opB := markop.ResolvedOp{ID: clock.OpId{Counter: 2, Actor: "a"}}
	opA := markop.ResolvedOp{ID: clock.OpId{Counter: 1, Actor: "a"}}

	log.Append(opB)
	log.Append(opA)

	got := log.All()
	require.Len(t, got, 2)
	require.Equal(t, opA.ID, got[0].ID)
	require.Equal(t, opB.ID, got[1].ID)
}

func TestLog_AppendIsIdempotent(t *testing.T) {
	t.Parallel()

	log := markop.NewLog()
	op := markop.ResolvedOp{ID: clock.OpId{Counter: 1, Actor: "a"}, Mark: markop.StrongValue}

	log.Append(op)
	log.Append(op)

	require.Equal(t, 1, log.Len())
}

func TestLog_OrderIndependentOfAppendOrder(t *testing.T) {
	t.Parallel()

	ops := []markop.ResolvedOp{
		{ID: clock.OpId{Counter: 3, Actor: "a"}},
		{ID: clock.OpId{Counter: 1, Actor: "b"}},
		{ID: clock.OpId{Counter: 2, Actor: "a"}},
	}

	logForward := markop.NewLog()
	for _, op := range ops {
		logForward.Append(op)
	}

	logReverse := markop.NewLog()
	for i := len(ops) - 1; i >= 0; i-- {
		logReverse.Append(ops[i])
	}

	require.Equal(t, logForward.All(), logReverse.All())
}
