// Package corerr provides the shared error kinds used across the
// sequence CRDT, formatting engine, and document facade. Kept as its own
// package (mirroring a dedicated errors package) so every layer below the
// facade can return one of these sentinels without importing the facade
// itself.
package corerr

import "errors"

var (
	// ErrMissingDependency means an applied op or change refers to
	// operations this replica has not yet observed. Recoverable: the
	// caller should re-queue the enclosing change and retry later.
	ErrMissingDependency = errors.New("peritext: missing dependency")

	// ErrOutOfBounds means a local index/count argument violates the
	// visible length of the sequence at call time. Fatal for the call,
	// not for the document.
	ErrOutOfBounds = errors.New("peritext: index out of bounds")

	// ErrUnknownMark means an op names a markType outside
	// {strong, em, link, comment}.
	ErrUnknownMark = errors.New("peritext: unknown mark type")

	// ErrMalformedOp means an op is missing attrs required by its type
	// (e.g. link without a url, comment without an id).
	ErrMalformedOp = errors.New("peritext: malformed operation")

	// ErrNonConvergence means a sync helper exceeded its retry bound
	// while re-queueing deferred changes. It indicates data corruption
	// or an implementation bug, never an expected runtime condition.
	ErrNonConvergence = errors.New("peritext: sync did not converge")
)
