// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scenegraph

import (
	"sync"
	"time"

	"github.com/coreviz/renderloop/renderloop"
)

// TickerAnimationDriver is a minimal [renderloop.AnimationDriver]: it
// tracks a set of running animations by handle and fires its
// started/stopped callbacks on the transition between zero and
// nonzero active animations. A background ticker prunes animations
// whose deadline has passed even if nothing ever calls Advance,
// following the same guarded ticker-goroutine shape as this
// codebase's UI blink timers.
type TickerAnimationDriver struct {
	mu      sync.Mutex
	active  map[int]time.Time // handle -> deadline
	nextID  int
	started []func()
	stopped []func()

	checkInterval time.Duration
	ticker        *time.Ticker
	stop          chan struct{}
}

// NewTickerAnimationDriver returns a driver whose background prune
// loop runs every checkInterval.
func NewTickerAnimationDriver(checkInterval time.Duration) *TickerAnimationDriver {
	return &TickerAnimationDriver{
		active:        make(map[int]time.Time),
		checkInterval: checkInterval,
	}
}

// StartAnimation registers a new running animation with the given
// duration and returns a handle to stop it early with StopAnimation.
// If the driver was idle, its started callbacks fire.
func (d *TickerAnimationDriver) StartAnimation(duration time.Duration) int {
	d.mu.Lock()
	wasEmpty := len(d.active) == 0
	id := d.nextID
	d.nextID++
	d.active[id] = time.Now().Add(duration)
	d.ensureTickerLocked()
	fns := d.snapshotLocked(wasEmpty, true)
	d.mu.Unlock()
	fire(fns)
	return id
}

// StopAnimation removes a running animation before its deadline. If
// the driver becomes idle as a result, its stopped callbacks fire.
func (d *TickerAnimationDriver) StopAnimation(id int) {
	d.mu.Lock()
	if _, ok := d.active[id]; !ok {
		d.mu.Unlock()
		return
	}
	delete(d.active, id)
	becameEmpty := len(d.active) == 0
	fns := d.snapshotLocked(becameEmpty, false)
	d.mu.Unlock()
	fire(fns)
}

// IsRunning implements renderloop.AnimationDriver.
func (d *TickerAnimationDriver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.active) > 0
}

// Advance implements renderloop.AnimationDriver. It prunes any
// animation whose deadline has now passed.
func (d *TickerAnimationDriver) Advance() {
	d.prune()
}

// Install implements renderloop.AnimationDriver. This minimal driver
// has no global registry to install into.
func (d *TickerAnimationDriver) Install() {}

// OnStarted implements renderloop.AnimationDriver.
func (d *TickerAnimationDriver) OnStarted(fn func()) {
	d.mu.Lock()
	d.started = append(d.started, fn)
	d.mu.Unlock()
}

// OnStopped implements renderloop.AnimationDriver.
func (d *TickerAnimationDriver) OnStopped(fn func()) {
	d.mu.Lock()
	d.stopped = append(d.stopped, fn)
	d.mu.Unlock()
}

func (d *TickerAnimationDriver) prune() {
	d.mu.Lock()
	wasEmpty := len(d.active) == 0
	now := time.Now()
	for id, deadline := range d.active {
		if !now.Before(deadline) {
			delete(d.active, id)
		}
	}
	becameEmpty := !wasEmpty && len(d.active) == 0
	if len(d.active) == 0 && d.ticker != nil {
		d.ticker.Stop()
		d.ticker = nil
		close(d.stop)
		d.stop = nil
	}
	fns := d.snapshotLocked(becameEmpty, false)
	d.mu.Unlock()
	fire(fns)
}

// ensureTickerLocked starts the prune loop if it is not already
// running. Caller must hold d.mu.
func (d *TickerAnimationDriver) ensureTickerLocked() {
	if d.ticker != nil || d.checkInterval <= 0 {
		return
	}
	d.ticker = time.NewTicker(d.checkInterval)
	d.stop = make(chan struct{})
	ticker, stop := d.ticker, d.stop
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				d.prune()
			}
		}
	}()
}

// snapshotLocked returns the started or stopped callback slice to
// invoke outside the lock, or nil if this call did not cause a
// running/idle transition. Caller must hold d.mu.
func (d *TickerAnimationDriver) snapshotLocked(transitioned, toRunning bool) []func() {
	if !transitioned {
		return nil
	}
	if toRunning {
		return d.started
	}
	return d.stopped
}

func fire(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

var _ renderloop.AnimationDriver = (*TickerAnimationDriver)(nil)
