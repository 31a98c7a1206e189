// format_test.go: WriteFormat behavior and its level-gate short-circuit
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ringlog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario4_WriteFormatUntilFull(t *testing.T) {
	buf := make([]byte, 256)
	l, err := Init(buf, 256)
	require.NoError(t, err)

	successes := 0
	for i := 0; i < 100; i++ {
		err := l.WriteFormat(Info, uint32(i), "Message %d", i)
		if err != nil {
			assert.ErrorIs(t, err, ErrFull)
			break
		}
		successes++
	}

	assert.Greater(t, successes, 0)
	assert.Less(t, successes, 100)

	for i := 0; i < successes; i++ {
		out := make([]byte, 32)
		n, lvl, ts, err := l.Read(out)
		require.NoError(t, err)
		assert.Equal(t, Info, lvl)
		assert.EqualValues(t, i, ts)
		assert.Equal(t, fmt.Sprintf("Message %d", i), string(out[:n]))
	}
	assert.True(t, l.IsEmpty())
}

func TestWriteFormatFilteredWritesNothing(t *testing.T) {
	buf := make([]byte, 256)
	l, err := Init(buf, 256)
	require.NoError(t, err)
	l.SetLevel(Error)

	called := false
	arg := func() string {
		called = true
		return "should not matter"
	}

	require.NoError(t, l.WriteFormat(Debug, 0, "%s", arg()))
	assert.True(t, called, "Go evaluates args eagerly; the gate only saves the Sprintf call itself")
	assert.True(t, l.IsEmpty())
}
