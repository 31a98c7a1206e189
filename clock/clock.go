// Package clock provides a cached millisecond timestamp source for callers
// of ringlog.Logger.Write and friends.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package clock

import (
	"time"

	"github.com/agilira/go-timecache"
)

// Source produces the uint32 timestamps ringlog.Logger expects, backed by
// github.com/agilira/go-timecache so repeated calls under load don't each
// pay for a time.Now syscall. It is a caller convenience: Logger itself
// takes a uint32 directly and never imports this package.
type Source struct {
	cache *timecache.TimeCache
	epoch time.Time
}

// New creates a Source with millisecond resolution, matching the
// resolution the teacher's Logger uses for its own latency measurements.
func New() *Source {
	s := &Source{epoch: time.Now()}
	s.cache = timecache.NewWithResolution(time.Millisecond)
	return s
}

// Now returns milliseconds elapsed since the Source was created, truncated
// to fit the uint32 timestamp field records carry. A Source wraps after
// roughly 49 days of continuous use; callers needing absolute time should
// record their own epoch alongside the ring buffer's contents.
func (s *Source) Now() uint32 {
	elapsed := s.cache.CachedTime().Sub(s.epoch)
	if elapsed < 0 {
		return 0
	}
	return uint32(elapsed.Milliseconds())
}

// Stop releases the background ticker backing the cached clock. Callers
// that create a Source for the lifetime of a process don't need to call
// this; it exists for short-lived Sources (tests, CLI runs).
func (s *Source) Stop() {
	if s.cache != nil {
		s.cache.Stop()
	}
}
