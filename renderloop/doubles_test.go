// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package renderloop

import (
	"image"
	"sync"
	"time"
)

// fakeWindowPrivate is a minimal WindowPrivate double that counts
// calls instead of doing any real layout, sync, or rendering work.
type fakeWindowPrivate struct {
	mu sync.Mutex

	polishCount  int
	syncCount    int
	renderCount  int
	cleanupCount int
	swapCount    int

	persistentSG  bool
	persistentGPU bool
	renderer      any

	// onRender, if set, runs synchronously from RenderSceneGraph, on
	// the render agent's own goroutine - used to exercise re-entrant
	// Update/MaybeUpdate calls.
	onRender func()
}

func (p *fakeWindowPrivate) PolishItems() {
	p.mu.Lock()
	p.polishCount++
	p.mu.Unlock()
}

func (p *fakeWindowPrivate) SyncSceneGraph() {
	p.mu.Lock()
	p.syncCount++
	p.renderer = "synced"
	p.mu.Unlock()
}

func (p *fakeWindowPrivate) RenderSceneGraph(image.Point) {
	p.mu.Lock()
	p.renderCount++
	hook := p.onRender
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (p *fakeWindowPrivate) CleanupNodesOnShutdown() {
	p.mu.Lock()
	p.cleanupCount++
	p.mu.Unlock()
}

func (p *fakeWindowPrivate) FireFrameSwapped() {
	p.mu.Lock()
	p.swapCount++
	p.mu.Unlock()
}

func (p *fakeWindowPrivate) Renderer() any { p.mu.Lock(); defer p.mu.Unlock(); return p.renderer }

func (p *fakeWindowPrivate) PersistentSceneGraph() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.persistentSG
}

func (p *fakeWindowPrivate) PersistentGPUContext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.persistentGPU
}

func (p *fakeWindowPrivate) counts() (polish, sync, render, cleanup, swap int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polishCount, p.syncCount, p.renderCount, p.cleanupCount, p.swapCount
}

// fakeWindow is a minimal Window double backed by a fakeWindowPrivate.
type fakeWindow struct {
	mu      sync.Mutex
	visible bool
	exposed bool
	handle  bool
	size    image.Point
	priv    *fakeWindowPrivate
}

func newFakeWindow(w, h int) *fakeWindow {
	return &fakeWindow{size: image.Pt(w, h), priv: &fakeWindowPrivate{}}
}

func (w *fakeWindow) Visible() bool { w.mu.Lock(); defer w.mu.Unlock(); return w.visible }
func (w *fakeWindow) Exposed() bool { w.mu.Lock(); defer w.mu.Unlock(); return w.exposed }
func (w *fakeWindow) HasHandle() bool { w.mu.Lock(); defer w.mu.Unlock(); return w.handle }

func (w *fakeWindow) CreateHandle() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handle = true
	return nil
}

func (w *fakeWindow) RequestedFormat() SurfaceFormat {
	w.mu.Lock()
	defer w.mu.Unlock()
	return SurfaceFormat{Width: w.size.X, Height: w.size.Y}
}

func (w *fakeWindow) Size() image.Point { w.mu.Lock(); defer w.mu.Unlock(); return w.size }

func (w *fakeWindow) Private() WindowPrivate { return w.priv }

func (w *fakeWindow) setExposed(v bool) { w.mu.Lock(); w.exposed = v; w.mu.Unlock() }
func (w *fakeWindow) setSize(p image.Point) { w.mu.Lock(); w.size = p; w.mu.Unlock() }

// fakeSurface is a minimal Surface double.
type fakeSurface struct {
	size image.Point
}

func (s *fakeSurface) Size() image.Point { return s.size }

// fakeContext is a minimal Context double that records activity.
type fakeContext struct {
	mu               sync.Mutex
	makeCurrentCount int
	swapCount        int
	destroyCount     int
	destroyed        bool
}

func (c *fakeContext) MakeCurrent(Surface) error {
	c.mu.Lock()
	c.makeCurrentCount++
	c.mu.Unlock()
	return nil
}

func (c *fakeContext) DoneCurrent() {}

func (c *fakeContext) SwapBuffers(Surface) {
	c.mu.Lock()
	c.swapCount++
	c.mu.Unlock()
}

func (c *fakeContext) Destroy() {
	c.mu.Lock()
	c.destroyCount++
	c.destroyed = true
	c.mu.Unlock()
}

func (c *fakeContext) snapshot() (makeCurrent, swap, destroy int, destroyed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.makeCurrentCount, c.swapCount, c.destroyCount, c.destroyed
}

// fakeSceneGraphContext is a minimal SceneGraphContext double.
type fakeSceneGraphContext struct {
	mu     sync.Mutex
	ready  bool
	driver *fakeAnimationDriver
}

func (s *fakeSceneGraphContext) Initialize(Context) error {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSceneGraphContext) IsReady() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.ready }

func (s *fakeSceneGraphContext) Invalidate() { s.mu.Lock(); s.ready = false; s.mu.Unlock() }

func (s *fakeSceneGraphContext) CreateAnimationDriver(owner AnimationOwner) AnimationDriver {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.driver == nil {
		s.driver = &fakeAnimationDriver{}
	}
	return s.driver
}

// fakeAnimationDriver is a minimal AnimationDriver double whose
// SetRunning test helper drives the same started/stopped callback
// wiring production code registers through OnStarted/OnStopped.
type fakeAnimationDriver struct {
	mu       sync.Mutex
	running  bool
	advances int
	started  []func()
	stopped  []func()
}

func (d *fakeAnimationDriver) IsRunning() bool { d.mu.Lock(); defer d.mu.Unlock(); return d.running }

func (d *fakeAnimationDriver) Advance() {
	d.mu.Lock()
	d.advances++
	d.mu.Unlock()
}

func (d *fakeAnimationDriver) Install() {}

func (d *fakeAnimationDriver) OnStarted(fn func()) {
	d.mu.Lock()
	d.started = append(d.started, fn)
	d.mu.Unlock()
}

func (d *fakeAnimationDriver) OnStopped(fn func()) {
	d.mu.Lock()
	d.stopped = append(d.stopped, fn)
	d.mu.Unlock()
}

// SetRunning flips the driver's running state and invokes whichever
// set of callbacks that transition registered, exactly as a real
// driver would when an animation starts or stops.
func (d *fakeAnimationDriver) SetRunning(running bool) {
	d.mu.Lock()
	changed := d.running != running
	d.running = running
	var fns []func()
	if changed {
		if running {
			fns = append(fns, d.started...)
		} else {
			fns = append(fns, d.stopped...)
		}
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (d *fakeAnimationDriver) advanceCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.advances
}

func newTestController() (*LoopController, *fakeSceneGraphContext, *fakeContext) {
	sg := &fakeSceneGraphContext{}
	ctx := &fakeContext{}
	ctxFactory := func(Window) (Context, error) { return ctx, nil }
	surfaceFactory := func(w Window) (Surface, error) { return &fakeSurface{size: w.Size()}, nil }
	fbReader := func(size image.Point) image.Image { return image.NewRGBA(image.Rect(0, 0, size.X, size.Y)) }

	cfg := &Config{ExhaustDelay: 0, RefreshInterval: 10 * time.Millisecond}

	c := NewLoopController(cfg, sg, ctxFactory, surfaceFactory, fbReader, nil)
	return c, sg, ctx
}
