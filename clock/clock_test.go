// clock_test.go
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSourceNowIsMonotonicAndNonNegative(t *testing.T) {
	s := New()
	defer s.Stop()

	first := s.Now()
	time.Sleep(5 * time.Millisecond)
	second := s.Now()

	assert.GreaterOrEqual(t, second, first)
}

func TestSourceNowStartsNearZero(t *testing.T) {
	s := New()
	defer s.Stop()

	assert.Less(t, s.Now(), uint32(1000))
}
