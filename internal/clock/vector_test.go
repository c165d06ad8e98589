package clock_test

import (
	"testing"

	"github.com/haldane/peritext/internal/clock"
	"github.com/stretchr/testify/require"
)

func TestVectorClock_AdvanceIsMonotonic(t *testing.T) {
	t.Parallel()

	vc := clock.NewVectorClock()
	vc.Advance("doc0", 3)
	vc.Advance("doc0", 1) // lower value must not regress the clock

	require.EqualValues(t, 3, vc.Get("doc0"))
}

func TestVectorClock_Has(t *testing.T) {
	t.Parallel()

	vc := clock.NewVectorClock()
	vc.Advance("doc0", 5)

	require.True(t, vc.Has(clock.OpId{Counter: 3, Actor: "doc0"}))
	require.True(t, vc.Has(clock.OpId{Counter: 5, Actor: "doc0"}))
	require.False(t, vc.Has(clock.OpId{Counter: 6, Actor: "doc0"}))
	require.False(t, vc.Has(clock.OpId{Counter: 1, Actor: "doc1"}))
}

func TestVectorClock_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	vc := clock.NewVectorClock()
	vc.Advance("doc0", 2)

	clone := vc.Clone()
	clone.Advance("doc0", 9)

	require.EqualValues(t, 2, vc.Get("doc0"))
	require.EqualValues(t, 9, clone.Get("doc0"))
}

func TestVectorClock_Covers(t *testing.T) {
	t.Parallel()

	vc := clock.NewVectorClock()
	vc.Advance("doc0", 3)
	vc.Advance("doc1", 2)

	deps := clock.NewVectorClock()
	deps.Advance("doc0", 3)

	require.True(t, vc.Covers(deps))

	deps.Advance("doc1", 3)
	require.False(t, vc.Covers(deps))
}

func TestVectorClock_Equal(t *testing.T) {
	t.Parallel()

	a := clock.NewVectorClock()
	a.Advance("doc0", 1)

	b := clock.NewVectorClock()
	b.Advance("doc0", 1)

	require.True(t, a.Equal(b))

	b.Advance("doc1", 1)
	require.False(t, a.Equal(b))
}
