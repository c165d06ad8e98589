package clock

// VectorClock maps an actor to the highest counter observed from that
// actor. A value of 0 (the zero-value default) means no operation from
// that actor has been applied; clock[a] == n means all operations
// (1..=n, a) have been applied. Iteration order over a VectorClock is
// never observable — callers must not depend on it.
type VectorClock map[ActorId]uint64

// NewVectorClock returns an empty clock.
func NewVectorClock() VectorClock {
	return make(VectorClock)
}

// Get returns the highest counter seen from actor, or 0 if none.
func (vc VectorClock) Get(actor ActorId) uint64 {
	return vc[actor]
}

// Has reports whether operation id has already been observed by vc.
func (vc VectorClock) Has(id OpId) bool {
	return vc[id.Actor] >= id.Counter
}

// Advance raises vc[actor] to n if n is higher than the current value.
// Clocks only ever move forward (spec.md §3, "monotonically non-decreasing").
func (vc VectorClock) Advance(actor ActorId, n uint64) {
	if n > vc[actor] {
		vc[actor] = n
	}
}

// Clone returns an independent copy of vc, so callers may hand it out
// without aliasing the document's internal state (spec.md §4.4 "clock:
// returns a copy of the current vector clock").
func (vc VectorClock) Clone() VectorClock {
	out := make(VectorClock, len(vc))
	for actor, n := range vc {
		out[actor] = n
	}
	return out
}

// Covers reports whether vc has observed everything other has observed,
// i.e. other's dependencies are all satisfied by vc. Used to decide
// whether a Change's deps are satisfied before it may be applied.
func (vc VectorClock) Covers(other VectorClock) bool {
	for actor, n := range other {
		if vc[actor] < n {
			return false
		}
	}
	return true
}

// Equal reports whether vc and other observe exactly the same operations.
func (vc VectorClock) Equal(other VectorClock) bool {
	for actor, n := range vc {
		if other[actor] != n {
			return false
		}
	}
	for actor, n := range other {
		if vc[actor] != n {
			return false
		}
	}
	return true
}
