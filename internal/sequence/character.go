package sequence

import "github.com/haldane/peritext/internal/clock"

// character is a single node of the causal tree: one inserted value plus
// the bookkeeping needed to place and, later, tombstone it. It is never
// removed once created (spec.md §3, "tombstones are never physically
// removed").
type character struct {
	id          clock.OpId
	value       string
	deleted     bool
	predecessor clock.OpId
}
