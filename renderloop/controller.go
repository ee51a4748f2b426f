// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package renderloop

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coreviz/renderloop/diag"
	"github.com/coreviz/renderloop/events"
)

// rendezvous is the single synchronous blocking point shared between
// the controller and the worker. The controller blocks in
// polishAndSync until the worker has finished SyncSceneGraph for
// every tracked window and signals ready, after which the worker
// continues on to render and present without holding the lock; the
// same rendezvous is reused by a TryRelease the controller needs to
// wait for, signaled once the worker has finished releasing.
type rendezvous struct {
	mu    sync.Mutex
	cond  *sync.Cond
	ready bool
}

func newRendezvous() *rendezvous {
	r := &rendezvous{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// signal marks the rendezvous ready and wakes the waiter. Called by
// the worker once SyncSceneGraph has returned.
func (r *rendezvous) signal() {
	r.mu.Lock()
	r.ready = true
	r.cond.Signal()
	r.mu.Unlock()
}

// wait blocks until signal has been called since the last reset,
// then clears ready for the next round trip.
func (r *rendezvous) wait() {
	r.mu.Lock()
	for !r.ready {
		r.cond.Wait()
	}
	r.ready = false
	r.mu.Unlock()
}

// LoopController is the UI agent half of the render loop: it tracks
// every window the application has shown, turns windowing-system
// notifications (exposure, resize, destruction) and paint requests
// into messages for the render agent, and blocks briefly at the
// polish-and-sync rendezvous on every frame. It does not own a
// goroutine of its own; ProcessEvents must be driven by the host's
// own event loop (see Run for a minimal standalone driver).
type LoopController struct {
	cfg  *Config
	diag *diag.Sink

	queue            events.Queue // inbound: AdvanceAnimations, AnimationStateChanged, UpdateLater
	workerQueue      *events.Queue
	notify           chan struct{}
	sync             *rendezvous
	worker           *RenderWorker
	driver           AnimationDriver
	animationPending *atomic.Int32
	onRenderAgent    *atomic.Bool

	workerRunning atomic.Bool

	mu               sync.Mutex // guards windows and animationRunning
	windows          []controllerWindow
	animationRunning bool
	fallback         tickerLoop
	exhaust          map[Window]*oneShot
}

// NewLoopController builds a controller and its paired worker, and
// wires the animation driver's started/stopped notifications into
// both agents. The worker's goroutine is not started here: it starts
// lazily on the first Expose and may stop and restart again across
// the controller's lifetime (see handleExposure and sendTryRelease).
func NewLoopController(cfg *Config, sg SceneGraphContext, ctxFactory ContextFactory, surfaceFactory SurfaceFactory, fbReader FramebufferReader, sink *diag.Sink) *LoopController {
	if cfg == nil {
		cfg = ConfigFromEnv()
	}
	if sink == nil {
		sink = diag.NewSink(cfg.WindowTiming, nil)
	}
	pending := &atomic.Int32{}
	onRenderAgent := &atomic.Bool{}
	sp := newRendezvous()

	c := &LoopController{
		cfg:              cfg,
		diag:             sink,
		notify:           make(chan struct{}, 1),
		sync:             sp,
		animationPending: pending,
		onRenderAgent:    onRenderAgent,
		exhaust:          make(map[Window]*oneShot),
	}
	c.queue.Init()

	w := newRenderWorker(sg, ctxFactory, surfaceFactory, fbReader, sp, &c.queue, c.wake, pending, onRenderAgent, sink)
	c.worker = w
	c.workerQueue = &w.queue

	driver := sg.CreateAnimationDriver(c)
	driver.OnStarted(func() {
		c.queue.Send(AnimationStateChanged{Running: true})
		c.wake()
		w.queue.Send(AnimationStateChanged{Running: true})
		w.wake()
	})
	driver.OnStopped(func() {
		c.queue.Send(AnimationStateChanged{Running: false})
		c.wake()
		w.queue.Send(AnimationStateChanged{Running: false})
		w.wake()
	})
	driver.Install()
	c.driver = driver

	return c
}

// OwnerName implements AnimationOwner.
func (c *LoopController) OwnerName() string { return "controller" }

// AnimationDriver returns the animation driver created for this
// controller's scene-graph context.
func (c *LoopController) AnimationDriver() AnimationDriver { return c.driver }

// SceneGraphContext returns the scene-graph context owned by the
// render agent. The context itself must still only be touched from
// the render agent; this exists so callers can query it (e.g. IsReady)
// without reaching into the worker directly.
func (c *LoopController) SceneGraphContext() SceneGraphContext { return c.worker.sg }

func (c *LoopController) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Run drives ProcessEvents every time a message arrives, until stop
// is closed. It is a convenience for applications with no event loop
// of their own to integrate with; applications embedding the render
// loop into an existing GUI event loop should call ProcessEvents
// directly whenever their own loop observes a wake.
func (c *LoopController) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-c.notify:
			c.ProcessEvents()
		}
	}
}

// ProcessEvents drains every message currently queued for the
// controller. Safe to call even when the queue is empty.
func (c *LoopController) ProcessEvents() {
	for {
		m := c.queue.Next()
		if m == nil {
			return
		}
		switch msg := m.(type) {
		case AdvanceAnimations:
			c.animationPending.Add(-1)
			if c.driver != nil {
				c.driver.Advance()
			}
			c.updateExposedWindows()
		case AnimationStateChanged:
			c.mu.Lock()
			c.animationRunning = msg.Running
			c.mu.Unlock()
			c.updateFallbackTimer()
		case UpdateLater:
			c.MaybeUpdate(msg.Win)
		}
	}
}

// Show registers win with the controller, creating its native handle
// if necessary. It does not imply exposure; call ExposureChanged once
// the windowing system reports the window on screen.
func (c *LoopController) Show(win Window) error {
	if err := win.CreateHandle(); err != nil {
		return fmt.Errorf("renderloop: create handle: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if findWindow(c.windows, win) < 0 {
		c.windows = append(c.windows, controllerWindow{win: win})
	}
	return nil
}

// Hide obscures win and removes it from the controller's tracked set,
// requesting release of its render-side resources (and, unless some
// other tracked window opted into persistence, the shared GPU and
// scene-graph contexts too). It blocks until the render agent has
// acknowledged the release.
func (c *LoopController) Hide(win Window) {
	c.ExposureChanged(win, false)

	c.mu.Lock()
	idx := findWindow(c.windows, win)
	if idx >= 0 {
		c.windows = append(c.windows[:idx], c.windows[idx+1:]...)
	}
	c.mu.Unlock()

	c.exhaustFor(win).Cancel()

	c.sendTryRelease(TryRelease{Win: win, InDestructor: false})
}

// WindowDestroyed removes win from the controller entirely, first
// hiding it if it was still exposed, and forces the render agent to
// release win's own resources regardless of any persistence flag it
// requested (unlike Hide, which honors them). It blocks until the
// render agent has acknowledged the release.
func (c *LoopController) WindowDestroyed(win Window) {
	if win.Exposed() {
		c.Hide(win)
	} else {
		c.mu.Lock()
		idx := findWindow(c.windows, win)
		if idx >= 0 {
			c.windows = append(c.windows[:idx], c.windows[idx+1:]...)
		}
		c.mu.Unlock()
		c.exhaustFor(win).Cancel()
	}

	c.sendTryRelease(TryRelease{Win: win, InDestructor: true})
}

// sendTryRelease posts t to the worker and, if it is currently
// running and not already on its way out, blocks on the shared
// rendezvous until the worker acknowledges it - reusing the same
// mutex/condition variable a sync does, same as release does on the
// host this loop is modeled on. A worker that is not running has
// nothing to release, so posting and waiting would block forever; a
// worker already mid-exit will signal on its own without needing this
// release to prod it.
func (c *LoopController) sendTryRelease(t TryRelease) {
	if !c.workerRunning.Load() || c.worker.shouldExit.Load() {
		return
	}
	c.workerQueue.Send(t)
	c.worker.wake()
	c.sync.wait()
	if c.worker.shouldExit.Load() {
		<-c.worker.done
		c.workerRunning.Store(false)
	}
}

// ExposureChanged notifies the controller that the windowing system's
// exposure state for win changed, registering win if it had not been
// shown explicitly.
func (c *LoopController) ExposureChanged(win Window, exposed bool) {
	c.mu.Lock()
	if findWindow(c.windows, win) < 0 {
		c.windows = append(c.windows, controllerWindow{win: win})
	}
	c.mu.Unlock()

	if exposed {
		c.handleExposure(win)
	} else {
		c.handleObscurity(win)
	}
}

func (c *LoopController) handleExposure(win Window) {
	if c.workerRunning.CompareAndSwap(false, true) {
		c.worker.start()
	}

	size := win.Size()
	c.workerQueue.Send(Expose{Win: win, Size: size})
	c.worker.wake()
	c.updateFallbackTimer()
	c.polishAndSync()
}

func (c *LoopController) handleObscurity(win Window) {
	c.workerQueue.Send(Obscure{Win: win})
	c.worker.wake()
	c.updateFallbackTimer()
}

// Resize notifies the controller that win's surface size changed. A
// sync and an immediate render/present follow, per contract, so
// callers never need to also call Update after Resize.
func (c *LoopController) Resize(win Window, size image.Point) {
	c.workerQueue.Send(Resize{Win: win, Size: size})
	c.worker.wake()
	c.polishAndSync()
}

// Update requests a frame for win. Repeated calls before the request
// is serviced coalesce into one, delayed by Config.ExhaustDelay.
//
// Called from the render agent itself (typically a scene-graph
// callback invoked synchronously during sync or render), it cannot
// safely run the normal scheduling path, since that blocks the UI
// agent on a rendezvous the render agent's own goroutine would then
// never get around to signaling. In that case it instead posts a
// self-message directly to the worker, asking for another
// render-and-present pass without a fresh sync.
func (c *LoopController) Update(win Window) {
	if c.onRenderAgent.Load() {
		c.workerQueue.Send(RequestRepaint{Win: win})
		c.worker.wake()
		return
	}

	c.mu.Lock()
	idx := findWindow(c.windows, win)
	if idx < 0 {
		c.windows = append(c.windows, controllerWindow{win: win})
		idx = len(c.windows) - 1
	}
	if c.windows[idx].pendingUpdate {
		c.mu.Unlock()
		return
	}
	c.windows[idx].pendingUpdate = true
	c.mu.Unlock()

	if c.cfg.ExhaustDelay <= 0 {
		c.deliverUpdate(win)
		return
	}
	c.exhaustFor(win).Arm(c.cfg.ExhaustDelay, func() {
		c.deliverUpdate(win)
	})
}

func (c *LoopController) deliverUpdate(win Window) {
	c.mu.Lock()
	idx := findWindow(c.windows, win)
	if idx >= 0 {
		c.windows[idx].pendingUpdate = false
	}
	c.mu.Unlock()
	c.polishAndSync()
}

// updateExposedWindows requests a frame for every currently-exposed
// tracked window. It stands in for the per-item dirty notification a
// real scene-graph's animated bindings would fire into Update on
// their own as a side effect of being advanced; since the animation
// driver here advances every running animation in one step with no
// per-item granularity, requesting every exposed window is the
// faithful global equivalent.
func (c *LoopController) updateExposedWindows() {
	c.mu.Lock()
	wins := make([]Window, 0, len(c.windows))
	for _, cw := range c.windows {
		if cw.win.Exposed() {
			wins = append(wins, cw.win)
		}
	}
	c.mu.Unlock()

	for _, win := range wins {
		c.Update(win)
	}
}

// MaybeUpdate requests a frame for win only if it is currently
// exposed; a no-op for obscured or untracked windows.
//
// A call arriving from the render agent itself is deferred by posting
// an UpdateLater self-message to the controller's own queue, rather
// than running the exposure check and scheduling path directly; it
// runs for real the next time ProcessEvents drains the controller's
// queue on the UI agent.
func (c *LoopController) MaybeUpdate(win Window) {
	if c.onRenderAgent.Load() {
		c.queue.Send(UpdateLater{Win: win})
		c.wake()
		return
	}
	if !win.Exposed() {
		return
	}
	c.Update(win)
}

func (c *LoopController) exhaustFor(win Window) *oneShot {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.exhaust[win]
	if !ok {
		o = &oneShot{}
		c.exhaust[win] = o
	}
	return o
}

// polishAndSync polishes every tracked window's pending layout on the
// UI agent, then blocks until the render agent has finished copying
// every exposed window's synced scene state, without blocking on the
// render or present that follows. A no-op if no tracked window is
// currently exposed, so callers never need to guard the call
// themselves (e.g. a coalesced Update firing after its window was
// hidden).
func (c *LoopController) polishAndSync() {
	c.mu.Lock()
	if !c.anyWindowExposedLocked() {
		c.mu.Unlock()
		return
	}
	windows := append([]controllerWindow(nil), c.windows...)
	c.mu.Unlock()

	t0 := time.Now()
	for _, cw := range windows {
		cw.win.Private().PolishItems()
	}
	tPolish := time.Since(t0)

	c.mu.Lock()
	for i := range c.windows {
		c.windows[i].pendingUpdate = false
	}
	c.mu.Unlock()

	t1 := time.Now()
	c.workerQueue.Send(RequestSync{})
	c.worker.wake()
	c.sync.wait()
	tWait := time.Since(t1)

	c.diag.PolishSync(diag.PolishSyncTiming{
		Polish: tPolish,
		Wait:   tWait,
	})
}

// Grab synchronously renders win offscreen and returns the result. It
// does not expose win or otherwise change its tracked/exposure state:
// a window the render agent is not already tracking (never exposed)
// or one without a valid size yet yields a nil image and a nil error,
// the same empty result grabbing a window produces before the render
// agent has ever started.
func (c *LoopController) Grab(win Window) (image.Image, error) {
	if !c.workerRunning.Load() {
		return nil, nil
	}
	if err := win.CreateHandle(); err != nil {
		return nil, fmt.Errorf("renderloop: create handle: %w", err)
	}

	win.Private().PolishItems()

	g := &Grab{Win: win, Done: make(chan struct{})}
	c.workerQueue.Send(g)
	c.worker.wake()
	<-g.Done

	return g.Result, g.Err
}

// updateFallbackTimer starts or stops the obscure-mode animation
// fallback ticker so that animations keep advancing at roughly
// display-refresh cadence even while nothing is on screen to benefit
// from the render agent's own vsync-paced AdvanceAnimations cadence.
func (c *LoopController) updateFallbackTimer() {
	c.mu.Lock()
	want := c.animationRunning && !c.anyWindowExposedLocked()
	c.mu.Unlock()

	if want {
		c.fallback.Start(c.cfg.RefreshInterval, func() {
			if c.driver != nil {
				c.driver.Advance()
			}
		})
	} else {
		c.fallback.Stop()
	}
}

// Shutdown tells the render agent to release its GPU and scene-graph
// contexts unconditionally and exit, then blocks until it has. Safe
// to call even if windows are still tracked (none of them will be
// rendered again afterward) or if the worker never started at all
// (nothing to tear down, so this returns immediately).
func (c *LoopController) Shutdown() {
	c.fallback.Stop()
	c.mu.Lock()
	for _, o := range c.exhaust {
		o.Cancel()
	}
	c.mu.Unlock()

	if !c.workerRunning.Load() {
		return
	}
	c.workerQueue.Send(TryRelease{Win: nil, InDestructor: true})
	c.worker.wake()
	<-c.worker.done
	c.workerRunning.Store(false)
}

func (c *LoopController) anyWindowExposedLocked() bool {
	for _, w := range c.windows {
		if w.win.Exposed() {
			return true
		}
	}
	return false
}
