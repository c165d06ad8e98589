package changes

import "github.com/haldane/peritext/internal/clock"

// History is an append-only record of every change a replica has
// produced or applied, grouped by actor and kept in seq order (spec.md
// §6, "Persistent state: append-only history of changes per actor; the
// document state is fully reconstructible from this log").
type History struct {
	byActor map[clock.ActorId][]Change
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{byActor: make(map[clock.ActorId][]Change)}
}

// Append records c under its actor. Callers are expected to append in
// seq order; Append does not re-sort.
func (h *History) Append(c Change) {
	h.byActor[c.Actor] = append(h.byActor[c.Actor], c)
}

// For returns the changes recorded for actor, in seq order. The returned
// slice must not be mutated by the caller.
func (h *History) For(actor clock.ActorId) []Change {
	return h.byActor[actor]
}

// GetMissingChanges implements spec.md §4.5: for every actor the source
// has observed operations from, it selects the changes target has not
// yet applied. A change is missing for target when its EndCounter
// exceeds target's recorded counter for that actor, i.e. at least one of
// its ops has not been observed yet.
func GetMissingChanges(source *History, sourceClock, targetClock clock.VectorClock) []Change {
	var missing []Change
	for actor := range sourceClock {
		have := targetClock.Get(actor)
		for _, c := range source.For(actor) {
			if c.EndCounter() > have {
				missing = append(missing, c)
			}
		}
	}
	return missing
}
