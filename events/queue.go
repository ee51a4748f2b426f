// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// based on cogentcore.org/core/events, which is itself based on
// golang.org/x/exp/shiny:
// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package events provides the coordination channel that the loop
// controller and render worker use to exchange messages: a lock-free
// FIFO queue that each agent owns as its event sink, plus the Message
// interface messages implement.
package events

import (
	"sync"
	"sync/atomic"
)

// Message is the interface implemented by everything that can be
// posted to a [Queue]. It is intentionally minimal: messages carry
// only plain data, never shared mutable state, so there is nothing to
// synchronize beyond delivery order.
type Message interface {
	// Kind identifies the message's concrete type for dispatch.
	Kind() Kind
}

// Queue is a lock-free FIFO freelist-based message queue. It must be
// initialized using [Queue.Init] before use. One Queue exists per
// agent (controller, worker) and is only ever drained by its owning
// agent; any goroutine may Send to it.
type Queue struct {
	head atomic.Pointer[queueItem]
	tail atomic.Pointer[queueItem]
	len  atomic.Int64
}

// Init initializes the queue. It must be called before first use.
func (q *Queue) Init() {
	head := &queueItem{}
	q.head.Store(head)
	q.tail.Store(head)
}

type queueItem struct {
	next atomic.Pointer[queueItem]
	v    Message
}

var queueItemPool = sync.Pool{
	New: func() any { return &queueItem{} },
}

// Next removes and returns the next message in the queue.
// It returns nil if the queue is empty.
func (q *Queue) Next() Message {
	var first, last, firstNext *queueItem
	for {
		first = q.head.Load()
		last = q.tail.Load()
		firstNext = first.next.Load()
		if first == q.head.Load() {
			if first == last {
				if firstNext == nil {
					return nil
				}
				q.tail.CompareAndSwap(last, firstNext)
			} else {
				v := firstNext.v
				if q.head.CompareAndSwap(first, firstNext) {
					q.len.Add(-1)
					queueItemPool.Put(first)
					return v
				}
			}
		}
	}
}

// Send adds a message to the end of the queue.
func (q *Queue) Send(m Message) {
	i := queueItemPool.Get().(*queueItem)
	i.next.Store(nil)
	i.v = m

	var last, lastNext *queueItem
	for {
		last = q.tail.Load()
		lastNext = last.next.Load()
		if q.tail.Load() == last {
			if lastNext == nil {
				if last.next.CompareAndSwap(lastNext, i) {
					q.tail.CompareAndSwap(last, i)
					q.len.Add(1)
					return
				}
			} else {
				q.tail.CompareAndSwap(last, lastNext)
			}
		}
	}
}

// Len returns the number of messages currently queued.
func (q *Queue) Len() int64 {
	return q.len.Load()
}

// SendBounded sends m only if pending is below max, admitting it with
// the same compare-and-swap discipline the queue itself uses for head
// and tail rather than a separate load-then-increment that a second
// caller could race past the bound. It reports whether m was sent.
//
// This exists for one caller: the render worker lets at most
// [Config]-independent 2 AdvanceAnimations requests outstrip however
// fast the controller is draining its queue, so a controller that is
// busy for a few frames cannot build an unbounded backlog of
// animation advances the worker has no way to retract.
func (q *Queue) SendBounded(m Message, pending *atomic.Int32, max int32) bool {
	for {
		cur := pending.Load()
		if cur >= max {
			return false
		}
		if pending.CompareAndSwap(cur, cur+1) {
			q.Send(m)
			return true
		}
	}
}
