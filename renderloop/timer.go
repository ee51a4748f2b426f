// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package renderloop

import (
	"sync"
	"time"
)

// tickerLoop runs fn on every tick of a [time.Ticker] until stopped.
// Start and Stop are idempotent and safe to call from any goroutine,
// following the same guarded-goroutine idiom used for blink timers
// elsewhere in this codebase: a mutex protects a nilable stop channel
// so a redundant Start or a Stop on an already-stopped loop is a
// no-op rather than a panic or a leaked goroutine.
type tickerLoop struct {
	mu   sync.Mutex
	stop chan struct{}
}

// Start begins calling fn every interval, if not already running.
func (t *tickerLoop) Start(interval time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return
	}
	stop := make(chan struct{})
	t.stop = stop
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

// Stop halts the loop, if running.
func (t *tickerLoop) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop == nil {
		return
	}
	close(t.stop)
	t.stop = nil
}

// Running reports whether the loop is currently active.
func (t *tickerLoop) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

// oneShot fires fn once after delay unless canceled first, following
// the same guarded-goroutine idiom as tickerLoop. Used to coalesce a
// burst of update() calls behind a single deferred sync.
type oneShot struct {
	mu    sync.Mutex
	timer *time.Timer
}

// Arm schedules fn to run after delay, replacing any previously
// scheduled call.
func (o *oneShot) Arm(delay time.Duration, fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(delay, fn)
}

// Cancel stops a pending call, if any.
func (o *oneShot) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}
