// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package events

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMsg struct {
	kind Kind
	n    int
}

func (m testMsg) Kind() Kind { return m.kind }

const testKind Kind = FirstUserKind

func TestQueueEmpty(t *testing.T) {
	var q Queue
	q.Init()
	assert.Nil(t, q.Next())
	assert.Equal(t, int64(0), q.Len())
}

func TestQueueFIFO(t *testing.T) {
	var q Queue
	q.Init()
	for i := 0; i < 5; i++ {
		q.Send(testMsg{kind: testKind, n: i})
	}
	require.Equal(t, int64(5), q.Len())
	for i := 0; i < 5; i++ {
		m := q.Next()
		require.NotNil(t, m)
		assert.Equal(t, i, m.(testMsg).n)
	}
	assert.Nil(t, q.Next())
}

func TestQueueConcurrentSenders(t *testing.T) {
	var q Queue
	q.Init()

	const senders = 8
	const perSender = 200

	var wg sync.WaitGroup
	wg.Add(senders)
	for s := 0; s < senders; s++ {
		go func(s int) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				q.Send(testMsg{kind: testKind, n: s*perSender + i})
			}
		}(s)
	}
	wg.Wait()

	seen := map[int]bool{}
	count := 0
	for {
		m := q.Next()
		if m == nil {
			break
		}
		seen[m.(testMsg).n] = true
		count++
	}
	assert.Equal(t, senders*perSender, count)
	assert.Len(t, seen, senders*perSender)
}

func TestQueueSendBoundedRejectsPastMax(t *testing.T) {
	var q Queue
	q.Init()
	var pending atomic.Int32

	assert.True(t, q.SendBounded(testMsg{kind: testKind, n: 0}, &pending, 2))
	assert.True(t, q.SendBounded(testMsg{kind: testKind, n: 1}, &pending, 2))
	assert.False(t, q.SendBounded(testMsg{kind: testKind, n: 2}, &pending, 2), "a third send must be rejected once pending reaches max")
	require.Equal(t, int64(2), q.Len())

	require.NotNil(t, q.Next())
	pending.Add(-1)
	assert.True(t, q.SendBounded(testMsg{kind: testKind, n: 3}, &pending, 2), "draining one slot admits another send")
}

func TestQueueSendBoundedConcurrentNeverExceedsMax(t *testing.T) {
	var q Queue
	q.Init()
	var pending atomic.Int32

	const callers = 16
	var admitted atomic.Int32
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			if q.SendBounded(testMsg{kind: testKind}, &pending, 2) {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), admitted.Load())
	assert.Equal(t, int64(2), q.Len())
}
