// errors.go: Sentinel error values for the ring transport
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ringlog

import "errors"

// Pre-allocated errors to avoid allocations in hot paths. Callers compare
// with errors.Is; a nil error is the "Ok" result (committed, or silently
// filtered by level).
var (
	// ErrFull is returned when a reservation would not fit in the space
	// currently available. Transient: the caller may drop, spin, or
	// escalate. No cursor is modified.
	ErrFull = errors.New("ringlog: ring full")

	// ErrInvalid is returned for programmer error: a nil logger or
	// buffer, a non-power-of-two capacity, or a record whose total size
	// exceeds capacity/2. Never retried; surfaced immediately.
	ErrInvalid = errors.New("ringlog: invalid argument")

	// ErrEmpty is returned by Read when the write and read cursors
	// coincide: there is nothing committed to drain.
	ErrEmpty = errors.New("ringlog: ring empty")

	// ErrBusy is returned by Read when the slot at the read cursor has
	// been reserved by a producer but not yet committed. The caller
	// must not skip past the slot; retry, possibly after a yield.
	ErrBusy = errors.New("ringlog: slot busy")
)
