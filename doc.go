// doc.go: Package documentation
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package ringlog implements a bounded, in-memory, lock-free log record
// transport for resource-constrained environments: many producers reserve
// and commit fixed-header records into a power-of-two ring; exactly one
// consumer drains them.
//
// Producers and the consumer never block on each other. Reservation is a
// CAS loop over an atomic write cursor; commit is a single release store of
// the record's length word, which doubles as a completion flag. The drain
// side polls that same word with an acquire load: zero means "not yet
// committed" (the slot may simply be reserved and mid-write), nonzero means
// "ready to copy out."
//
// # Quick Start
//
//	buf := make([]byte, 4096)
//	logger, err := ringlog.Init(buf, 4096)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := logger.Write(ringlog.Info, ts, "listener started"); err != nil {
//		// ErrFull: ring is at capacity, caller decides whether to drop or spin.
//	}
//
//	out := make([]byte, 256)
//	n, lvl, ts, err := logger.Read(out)
//	switch err {
//	case nil:
//		fmt.Printf("[%s] %d %s\n", lvl, ts, out[:n])
//	case ringlog.ErrEmpty:
//		// nothing to drain right now
//	case ringlog.ErrBusy:
//		// a producer reserved this slot but hasn't committed yet; retry later
//	}
//
// # What this package does not do
//
// Message formatting beyond the convenience WriteFormat, timestamp
// acquisition, buffer allocation, and output of drained records are all
// left to the caller (the clock package offers an optional timestamp
// source, and the sink package an optional output for drained records).
// This package never allocates on
// the Write/WriteRaw/Read paths and never blocks.
//
// # Signal and interrupt safety
//
// WriteRaw and the string-message Write call no allocator, no lock, and no
// non-reentrant runtime service; both are safe to call from a signal or
// interrupt handler that preempts another producer or the consumer mid
// operation. WriteFormat is not: it calls fmt.Sprintf, which is not
// async-signal-safe on most platforms. Format your message ahead of time
// and call WriteRaw from a handler.
package ringlog
