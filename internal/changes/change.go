package changes

import (
	"encoding/json"
	"fmt"

	"github.com/haldane/peritext/internal/clock"
	"github.com/haldane/peritext/internal/corerr"
)

// Change is a causally-atomic unit produced by one actor (spec.md §3). It
// is a value type: callers must not mutate a Change after handing it to
// another replica (spec.md §9, "immutable change records").
type Change struct {
	Actor        clock.ActorId     `json:"actor"`
	StartCounter uint64            `json:"startCounter"`
	Seq          uint64            `json:"seq"`
	Deps         clock.VectorClock `json:"deps"`
	Ops          []PrimitiveOp     `json:"ops"`
}

// OpCount returns the total number of OpId counters this change consumes
// across all of its ops.
func (c Change) OpCount() int {
	total := 0
	for _, op := range c.Ops {
		total += op.CounterSpan()
	}
	return total
}

// EndCounter returns the highest counter this change assigns, i.e. the
// value the actor's vector clock entry advances to once the change is
// applied (spec.md §4.4's "clock[actor] = max(clock[actor], startCounter +
// ops.length - 1)", generalized to ops that each span more than one
// counter).
func (c Change) EndCounter() uint64 {
	n := c.OpCount()
	if n == 0 {
		return c.StartCounter
	}
	return c.StartCounter + uint64(n) - 1
}

// Validate checks every op in c and returns the first error found.
func (c Change) Validate() error {
	if c.Actor == "" {
		return fmt.Errorf("%w: change with empty actor", corerr.ErrMalformedOp)
	}
	for _, op := range c.Ops {
		if err := op.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Marshal encodes c in the wire-compatible shape of spec.md §6.
func Marshal(c Change) ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal decodes and validates a Change from its wire encoding.
func Unmarshal(data []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return Change{}, fmt.Errorf("%w: %v", corerr.ErrMalformedOp, err)
	}
	if c.Deps == nil {
		c.Deps = clock.NewVectorClock()
	}
	if err := c.Validate(); err != nil {
		return Change{}, err
	}
	return c, nil
}
