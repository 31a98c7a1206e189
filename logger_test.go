// logger_test.go: Round-trip, admission, and boundary property tests
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ringlog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitPowerOfTwo(t *testing.T) {
	// P1: init with a non-power-of-two capacity fails with ErrInvalid.
	tests := []struct {
		capacity uint32
		wantErr  bool
	}{
		{0, true},
		{3, true},
		{100, true},
		{1, false},
		{2, false},
		{1024, false},
	}

	for _, tt := range tests {
		buf := make([]byte, tt.capacity)
		l, err := Init(buf, tt.capacity)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalid, "capacity %d", tt.capacity)
			assert.Nil(t, l)
			continue
		}
		require.NoError(t, err, "capacity %d", tt.capacity)
		assert.True(t, l.IsEmpty())
	}
}

func TestInitRejectsNilOrMismatchedBuffer(t *testing.T) {
	_, err := Init(nil, 16)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Init(make([]byte, 8), 16)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestScenario1_InitDefaults(t *testing.T) {
	buf := make([]byte, 1024)
	l, err := Init(buf, 1024)
	require.NoError(t, err)
	assert.Equal(t, Trace, l.GetLevel())
	assert.True(t, l.IsEmpty())
}

func TestRoundTrip(t *testing.T) {
	// P2: write then read yields exactly (level, timestamp, msg); the
	// ring is empty afterward.
	buf := make([]byte, 1024)
	l, err := Init(buf, 1024)
	require.NoError(t, err)

	require.NoError(t, l.Write(Info, 12345, "Test message"))

	out := make([]byte, 64)
	n, lvl, ts, err := l.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, Info, lvl)
	assert.EqualValues(t, 12345, ts)
	assert.Equal(t, "Test message", string(out[:n]))
	assert.True(t, l.IsEmpty())
}

func TestRoundTripAcrossPayloadSizes(t *testing.T) {
	buf := make([]byte, 4096)
	l, err := Init(buf, 4096)
	require.NoError(t, err)

	for _, n := range []int{0, 1, 3, 4, 7, 100, 500} {
		msg := strings.Repeat("x", n)
		require.NoError(t, l.Write(Debug, uint32(n), msg))

		out := make([]byte, 600)
		got, lvl, ts, err := l.Read(out)
		require.NoError(t, err, "n=%d", n)
		assert.Equal(t, n, got)
		assert.Equal(t, Debug, lvl)
		assert.EqualValues(t, n, ts)
		assert.Equal(t, msg, string(out[:got]))
	}
	assert.True(t, l.IsEmpty())
}

func TestOversizeRejected(t *testing.T) {
	// P7 / scenario 5: a record whose total size exceeds capacity/2
	// returns ErrInvalid without modifying cursors.
	buf := make([]byte, 1024)
	l, err := Init(buf, 1024)
	require.NoError(t, err)

	before := l.Available()
	msg := strings.Repeat("a", 600) // 12 + 600 > 512
	err = l.Write(Info, 0, msg)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, before, l.Available())
	assert.True(t, l.IsEmpty())
}

func TestEmptyAndBusyAreDistinct(t *testing.T) {
	// P8: an untouched ring reports Empty, not Busy. A reserved-but-
	// uncommitted slot reports Busy.
	buf := make([]byte, 256)
	l, err := Init(buf, 256)
	require.NoError(t, err)

	_, _, _, err = l.Read(make([]byte, 16))
	assert.ErrorIs(t, err, ErrEmpty)

	pos, err := l.reserve(align4(headerSize + 4))
	require.NoError(t, err)
	_ = pos // slot reserved, never committed

	_, _, _, err = l.Read(make([]byte, 16))
	assert.ErrorIs(t, err, ErrBusy)
}

func TestReadRejectsZeroLengthOutput(t *testing.T) {
	buf := make([]byte, 256)
	l, err := Init(buf, 256)
	require.NoError(t, err)
	require.NoError(t, l.Write(Info, 0, "hi"))

	_, _, _, err = l.Read(nil)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestTruncationOnDrain(t *testing.T) {
	buf := make([]byte, 1024)
	l, err := Init(buf, 1024)
	require.NoError(t, err)

	require.NoError(t, l.Write(Warn, 1, "0123456789"))

	out := make([]byte, 4)
	n, lvl, _, err := l.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, Warn, lvl)
	assert.Equal(t, "0123", string(out))
	assert.True(t, l.IsEmpty())
}

func TestFullReturnsImmediatelyWithoutBlocking(t *testing.T) {
	buf := make([]byte, 64)
	l, err := Init(buf, 64)
	require.NoError(t, err)

	successes := 0
	var lastErr error
	for i := 0; i < 1000; i++ {
		if err := l.Write(Info, uint32(i), "msg"); err != nil {
			lastErr = err
			break
		}
		successes++
	}
	assert.ErrorIs(t, lastErr, ErrFull)
	assert.Greater(t, successes, 0)
	assert.Less(t, successes, 1000)
}

func TestFIFOPerProducer(t *testing.T) {
	// P3: in the absence of Full, a single producer's records drain in
	// the order written.
	buf := make([]byte, 4096)
	l, err := Init(buf, 4096)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		require.NoError(t, l.Write(Info, uint32(i), "m"))
	}

	for i := 0; i < 20; i++ {
		out := make([]byte, 16)
		n, _, ts, err := l.Read(out)
		require.NoError(t, err)
		assert.EqualValues(t, i, ts)
		assert.Equal(t, "m", string(out[:n]))
	}
	assert.True(t, l.IsEmpty())
}
