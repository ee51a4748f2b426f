// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package renderloop

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/coreviz/renderloop/diag"
	"github.com/coreviz/renderloop/events"
)

// RenderWorker is the render agent half of the render loop: it owns
// the GPU context and every window's surface, performs
// SyncSceneGraph/RenderSceneGraph on behalf of the scene-graph context,
// and sleeps whenever its message queue is empty. It does not stay
// awake while animations run: each animated frame arrives as a fresh
// RequestSync, after the controller handles the AdvanceAnimations the
// previous sync posted.
// All of its fields besides the ones explicitly noted are touched only
// from its own goroutine; cross-agent state changes always arrive as
// messages on queue.
type RenderWorker struct {
	sg             SceneGraphContext
	ctxFactory     ContextFactory
	surfaceFactory SurfaceFactory
	fbReader       FramebufferReader
	diag           *diag.Sink

	sync             *rendezvous
	controllerQueue  *events.Queue
	controllerWake   func()
	animationPending *atomic.Int32
	onRenderAgent    *atomic.Bool

	queue  events.Queue
	notify chan struct{}
	done   chan struct{}

	shouldExit atomic.Bool

	windows          []workerWindow
	gpu              Context
	surfaces         map[Window]Surface
	animationRunning bool
	sleeping         bool
	lastFrame        time.Time

	deferredDeletes []func()
}

func newRenderWorker(
	sg SceneGraphContext,
	ctxFactory ContextFactory,
	surfaceFactory SurfaceFactory,
	fbReader FramebufferReader,
	sp *rendezvous,
	controllerQueue *events.Queue,
	controllerWake func(),
	animationPending *atomic.Int32,
	onRenderAgent *atomic.Bool,
	sink *diag.Sink,
) *RenderWorker {
	w := &RenderWorker{
		sg:               sg,
		ctxFactory:       ctxFactory,
		surfaceFactory:   surfaceFactory,
		fbReader:         fbReader,
		diag:             sink,
		sync:             sp,
		controllerQueue:  controllerQueue,
		controllerWake:   controllerWake,
		animationPending: animationPending,
		onRenderAgent:    onRenderAgent,
		notify:           make(chan struct{}, 1),
		done:             make(chan struct{}),
		surfaces:         make(map[Window]Surface),
	}
	w.queue.Init()
	return w
}

// wake prods the worker's loop in case it is sleeping. Safe to call
// from any goroutine.
func (w *RenderWorker) wake() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// start (re)launches run on a fresh goroutine, resetting shouldExit
// and done first so a worker that has previously stopped (its window
// list emptied by a TryRelease) can be started again from scratch.
// Callers must not invoke start while a previous run goroutine might
// still be executing; the controller only does so after observing the
// old goroutine's done channel close.
func (w *RenderWorker) start() {
	w.shouldExit.Store(false)
	w.done = make(chan struct{})
	go w.run()
}

// run is the render agent's entire lifetime: drain messages, render
// whatever that produced, run any deferred deletions, and sleep until
// woken. It must run on a dedicated goroutine pinned to its OS thread,
// since the GPU context it owns is thread-affine. It returns for good
// once shouldExit is set; start launches a new one to resume later.
func (w *RenderWorker) run() {
	runtime.LockOSThread()
	defer close(w.done)

	for {
		for {
			m := w.queue.Next()
			if m == nil {
				break
			}
			w.dispatch(m)
		}
		w.runDeferredDeletes()
		if w.shouldExit.Load() {
			return
		}
		w.sleeping = true
		<-w.notify
		w.sleeping = false
	}
}

// dispatch runs a single message's handler with onRenderAgent held
// true for its duration, so that any host callback invoked
// synchronously from within the handler (SyncSceneGraph,
// RenderSceneGraph, CleanupNodesOnShutdown) that calls back into
// Update/MaybeUpdate is
// recognized as running on the render agent rather than the UI agent.
func (w *RenderWorker) dispatch(m events.Message) {
	w.onRenderAgent.Store(true)
	defer w.onRenderAgent.Store(false)

	switch msg := m.(type) {
	case Expose:
		w.handleExpose(msg)
	case Obscure:
		w.handleObscure(msg)
	case Resize:
		w.handleResize(msg)
	case RequestSync:
		w.handleRequestSync(msg)
	case RequestRepaint:
		w.renderAndPresent(msg.Win)
	case TryRelease:
		w.handleTryRelease(msg)
	case *Grab:
		w.handleGrab(msg)
	case AnimationStateChanged:
		w.animationRunning = msg.Running
	}
}

func (w *RenderWorker) handleExpose(e Expose) {
	idx := findWindow(w.windows, e.Win)
	if idx < 0 {
		w.windows = append(w.windows, workerWindow{win: e.Win, size: e.Size})
	} else {
		w.windows[idx].size = e.Size
	}

	if err := w.ensureGPUContext(e.Win); err != nil {
		w.diag.Trace("worker", "expose: gpu context: "+err.Error())
		return
	}
	if err := w.ensureSurface(e.Win); err != nil {
		w.diag.Trace("worker", "expose: surface: "+err.Error())
		return
	}
	if !w.sg.IsReady() {
		if err := w.sg.Initialize(w.gpu); err != nil {
			w.diag.Trace("worker", "expose: scene graph init: "+err.Error())
		}
	}
}

func (w *RenderWorker) handleObscure(o Obscure) {
	idx := findWindow(w.windows, o.Win)
	if idx < 0 {
		return
	}
	priv := o.Win.Private()
	if !priv.PersistentSceneGraph() {
		w.scheduleDelete(priv.CleanupNodesOnShutdown)
	}
	if !priv.PersistentGPUContext() {
		delete(w.surfaces, o.Win)
	}
	w.windows = append(w.windows[:idx], w.windows[idx+1:]...)
}

func (w *RenderWorker) handleResize(r Resize) {
	if idx := findWindow(w.windows, r.Win); idx >= 0 {
		w.windows[idx].size = r.Size
	}
}

// handleRequestSync is the render agent's side of the polish-and-sync
// rendezvous: sync every tracked window while the controller is
// blocked waiting on the rendezvous, signal once, then render and
// present every one of them without the controller waiting any
// further. Mirrors sync() and syncAndRender() looping over
// the full window list rather than a single target.
func (w *RenderWorker) handleRequestSync(RequestSync) {
	for _, ww := range w.windows {
		if ww.size.X <= 0 || ww.size.Y <= 0 {
			continue
		}
		ww.win.Private().SyncSceneGraph()
	}
	w.sync.signal()

	for _, ww := range w.windows {
		w.renderAndPresent(ww.win)
	}

	if w.animationRunning && len(w.windows) > 0 {
		if w.controllerQueue.SendBounded(AdvanceAnimations{}, w.animationPending, 2) {
			w.controllerWake()
		}
	}
}

// renderAndPresent renders win's current scene-graph state and
// presents it, recording per-frame timing. A no-op if win has no
// valid size or surface yet (e.g. exposed before its first resize).
func (w *RenderWorker) renderAndPresent(win Window) {
	idx := findWindow(w.windows, win)
	if idx < 0 {
		return
	}
	size := w.windows[idx].size
	if size.X <= 0 || size.Y <= 0 {
		return
	}
	surf := w.surfaces[win]
	if surf == nil {
		return
	}

	t0 := time.Now()
	sinceLast := t0.Sub(w.lastFrame)
	w.lastFrame = t0

	if err := w.gpu.MakeCurrent(surf); err != nil {
		w.diag.Trace("worker", "render: make current: "+err.Error())
		return
	}
	win.Private().RenderSceneGraph(size)
	tRender := time.Since(t0)

	w.gpu.SwapBuffers(surf)
	win.Private().FireFrameSwapped()

	w.diag.Timing(diag.FrameTiming{
		SinceLast:   sinceLast,
		FirstRender: tRender,
		AfterSwap:   time.Since(t0) - tRender,
	})
}

// handleTryRelease invalidates t.Win's scene-graph nodes and, if no
// remaining tracked window's persistence flags say otherwise, the
// shared scene-graph and GPU contexts as well. t.Win is usually gone
// from w.windows already, since Hide posts Obscure before TryRelease;
// WindowDestroyed on a window that is no longer exposed posts no
// Obscure, so t.Win is removed here if it is still listed. Its own
// persistence flags are still consulted (unless InDestructor, which
// overrides them) by seeding the OR below with them directly. When
// the scene-graph context is invalidated, pending deferred deletions
// are flushed right after it. The t.Win != nil path signals the
// shared rendezvous when it finishes, same as a sync does, so the
// controller's Hide/WindowDestroyed can block until release is done
// instead of racing ahead of it.
//
// t.Win == nil means LoopController itself is shutting down: teardown
// is then unconditional and the worker exits regardless of what
// windows remain. Shutdown waits on the worker's done channel directly
// rather than this rendezvous, so this path does not signal it.
func (w *RenderWorker) handleTryRelease(t TryRelease) {
	if t.Win == nil {
		for _, ww := range w.windows {
			ww.win.Private().CleanupNodesOnShutdown()
		}
		if w.sg.IsReady() {
			w.sg.Invalidate()
		}
		if w.gpu != nil {
			w.gpu.Destroy()
			w.gpu = nil
		}
		w.surfaces = make(map[Window]Surface)
		w.windows = nil
		w.shouldExit.Store(true)
		return
	}

	if idx := findWindow(w.windows, t.Win); idx >= 0 {
		w.windows = append(w.windows[:idx], w.windows[idx+1:]...)
	}

	priv := t.Win.Private()
	persistSG := !t.InDestructor && priv.PersistentSceneGraph()
	persistGPU := !t.InDestructor && priv.PersistentGPUContext()
	for _, ww := range w.windows {
		if ww.win == t.Win {
			continue
		}
		p := ww.win.Private()
		persistSG = persistSG || p.PersistentSceneGraph()
		persistGPU = persistGPU || p.PersistentGPUContext()
	}

	if !persistSG || t.InDestructor {
		priv.CleanupNodesOnShutdown()
	}
	if !persistSG {
		if w.sg.IsReady() {
			w.sg.Invalidate()
		}
		w.runDeferredDeletes()
	}
	if !persistGPU && w.gpu != nil {
		w.gpu.Destroy()
		w.gpu = nil
		w.surfaces = make(map[Window]Surface)
	}
	if w.gpu == nil && len(w.windows) == 0 {
		w.shouldExit.Store(true)
	}
	w.sync.signal()
}

// handleGrab renders g.Win offscreen and reads its framebuffer back
// into g.Result. Unlike a regular sync, it syncs and renders g.Win
// itself rather than going through a RequestSync round trip. A window
// this worker is not tracking (never exposed) or one with no valid
// size yet is left with a nil Result and no error, matching the empty
// image a grab of a window the render thread was never running for,
// or never exposed, produces.
func (w *RenderWorker) handleGrab(g *Grab) {
	defer close(g.Done)

	idx := findWindow(w.windows, g.Win)
	if idx < 0 {
		return
	}
	size := w.windows[idx].size
	if size.X <= 0 || size.Y <= 0 {
		return
	}
	if err := w.ensureGPUContext(g.Win); err != nil {
		g.Err = err
		return
	}
	if err := w.ensureSurface(g.Win); err != nil {
		g.Err = err
		return
	}
	surf := w.surfaces[g.Win]
	if err := w.gpu.MakeCurrent(surf); err != nil {
		g.Err = err
		return
	}
	g.Win.Private().SyncSceneGraph()
	g.Win.Private().RenderSceneGraph(size)
	g.Result = w.fbReader(size)
	w.gpu.DoneCurrent()
}

func (w *RenderWorker) ensureGPUContext(seed Window) error {
	if w.gpu != nil {
		return nil
	}
	ctx, err := w.ctxFactory(seed)
	if err != nil {
		return fmt.Errorf("renderloop: create gpu context: %w", err)
	}
	w.gpu = ctx
	return nil
}

func (w *RenderWorker) ensureSurface(win Window) error {
	if _, ok := w.surfaces[win]; ok {
		return nil
	}
	surf, err := w.surfaceFactory(win)
	if err != nil {
		return fmt.Errorf("renderloop: create surface: %w", err)
	}
	w.surfaces[win] = surf
	return nil
}

// scheduleDelete queues fn to run once the worker's message queue has
// drained, mirroring how deferred window/item deletions wait for the
// event loop to go idle instead of running inline mid-dispatch.
func (w *RenderWorker) scheduleDelete(fn func()) {
	w.deferredDeletes = append(w.deferredDeletes, fn)
}

func (w *RenderWorker) runDeferredDeletes() {
	if len(w.deferredDeletes) == 0 {
		return
	}
	pending := w.deferredDeletes
	w.deferredDeletes = nil
	for _, fn := range pending {
		fn()
	}
}
