// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package renderloop implements the cross-agent coordination protocol
// that drives a scene-graph-based UI toolkit's render thread: the
// message taxonomy exchanged between the UI agent (a [LoopController])
// and the render agent (a [RenderWorker]), the polish-and-sync
// rendezvous, the GPU/scene-graph resource lifecycle across
// exposure/obscurity transitions, the sleep/wake model of the render
// worker, and the synchronous offscreen grab operation.
//
// The scene-graph node model, the GPU backend, per-item layout, the
// animation expression system, and windowing-system integration are
// all external collaborators, referenced only through the small
// interfaces declared in this file. See the gpu and scenegraph
// packages for real/minimal implementations of those contracts.
package renderloop

import "image"

// Window is the windowing-system window this render loop drives.
// Implementations are expected to be stable pointer identities: the
// same Window value is used as a map/slice key throughout a window's
// lifetime.
type Window interface {
	// Visible reports whether the host considers the window visible
	// (shown, not minimized). It does not imply Exposed.
	Visible() bool

	// Exposed reports whether the windowing system currently considers
	// the window exposed (on screen, not occluded).
	Exposed() bool

	// HasHandle reports whether the native window handle has been
	// created yet.
	HasHandle() bool

	// CreateHandle creates the native window handle if it does not
	// already exist. It is idempotent.
	CreateHandle() error

	// RequestedFormat returns the surface format the window was
	// configured with, used to bootstrap a temporary offscreen surface
	// when the window's own size is not yet valid.
	RequestedFormat() SurfaceFormat

	// Size returns the window's current surface size, in pixels.
	// A zero width or height means the window is not yet ready to
	// render to.
	Size() image.Point

	// Private returns the per-window private API used by the render
	// loop to drive layout, sync, and render for this window.
	Private() WindowPrivate
}

// SurfaceFormat describes the pixel format a GPU surface should be
// created with. Backend-specific detail lives in Extra; Width and
// Height are only consulted when bootstrapping a temporary offscreen
// surface ahead of a window's own surface being ready.
type SurfaceFormat struct {
	Width, Height int
	Extra         any
}

// WindowPrivate is the per-window contract the render loop needs in
// order to drive layout, scene-graph sync, and rendering for a single
// window. It corresponds to the host's internal per-window API
// (QQuickWindowPrivate in the system this loop is modeled on).
type WindowPrivate interface {
	// PolishItems finalizes per-item layout on the UI agent. Called
	// once per window immediately before every polish-and-sync.
	PolishItems()

	// SyncSceneGraph copies UI-side dirty scene state into render-side
	// structures. Called on the render agent with the UI agent blocked.
	SyncSceneGraph()

	// RenderSceneGraph renders the synced scene graph at the given
	// size. Called on the render agent, UI agent not blocked.
	RenderSceneGraph(size image.Point)

	// CleanupNodesOnShutdown releases render-side scene-graph nodes
	// for this window, called when the window's resources are being
	// torn down and its scene graph is not persistent.
	CleanupNodesOnShutdown()

	// FireFrameSwapped notifies the window that a frame was just
	// swapped to the screen.
	FireFrameSwapped()

	// Renderer returns the window's renderer, or nil if no sync has
	// happened yet for this window.
	Renderer() any

	// PersistentSceneGraph reports whether this window opted out of
	// scene-graph teardown on obscurity.
	PersistentSceneGraph() bool

	// PersistentGPUContext reports whether this window opted out of
	// GPU context teardown on obscurity.
	PersistentGPUContext() bool
}

// Context is the render loop's GPU-context contract: enough to bind a
// surface as the current render target, submit a frame, and present
// it. It is owned exclusively by the render worker.
type Context interface {
	// MakeCurrent prepares the context to render to the given surface,
	// analogous to binding a GL context to a surface: subsequent
	// RenderSceneGraph calls target this surface until the next
	// MakeCurrent, DoneCurrent, or SwapBuffers call.
	MakeCurrent(s Surface) error

	// DoneCurrent releases the current render target without
	// presenting it.
	DoneCurrent()

	// SwapBuffers presents the frame rendered since the last
	// MakeCurrent call to the given surface.
	SwapBuffers(s Surface)

	// Destroy releases all resources owned by the context. The
	// context must not be used afterward.
	Destroy()
}

// Surface is a GPU-presentable render target bound to a [Window].
type Surface interface {
	// Size returns the surface's current size in pixels.
	Size() image.Point
}

// ContextFactory lazily creates the GPU context the render worker
// uses for all windows. It is called with the first window the
// worker is tracking; if that window's size is not yet valid, the
// factory is responsible for bootstrapping a temporary offscreen
// surface (conventionally 64x64) using the window's requested format
// instead, to avoid backend warnings about binding to a zero-sized
// surface.
type ContextFactory func(firstWindow Window) (Context, error)

// SurfaceFactory creates the [Surface] a window presents to, given
// the window itself. It is called whenever an exposed or grabbed
// window has no surface yet: on its first exposure, and again after
// an obscure or a GPU context teardown has dropped its surface.
type SurfaceFactory func(w Window) (Surface, error)

// FramebufferReader reads back the current render target's pixels at
// the given size, producing the image a grab() call returns.
type FramebufferReader func(size image.Point) image.Image

// SceneGraphContext is the scene-graph node model's entry point, as
// consumed by the render loop. The node model itself — how nodes are
// represented, walked, and diffed — is entirely external; the render
// loop only needs to initialize it against a GPU context, check
// readiness, invalidate it, and obtain an [AnimationDriver] from it.
type SceneGraphContext interface {
	// Initialize binds the scene-graph context to a GPU context. Safe
	// to call multiple times; a no-op once already initialized and
	// ready.
	Initialize(gpu Context) error

	// IsReady reports whether Initialize has completed successfully.
	IsReady() bool

	// Invalidate releases all render-side resources held by the
	// scene-graph context. After Invalidate, IsReady reports false
	// until Initialize is called again.
	Invalidate()

	// CreateAnimationDriver returns the animation driver associated
	// with this scene-graph context, installing owner as the object
	// that receives started/stopped notifications.
	CreateAnimationDriver(owner AnimationOwner) AnimationDriver
}

// AnimationOwner identifies the object an [AnimationDriver] is
// created for. The render loop passes itself; external
// implementations may use it to scope per-owner animation state.
type AnimationOwner interface {
	// OwnerName exists only to keep AnimationOwner non-empty so
	// accidental nil interfaces are caught at compile time; it is not
	// otherwise used by the render loop.
	OwnerName() string
}

// AnimationDriver paces scene animations. The render loop never
// advances it directly from the render agent — advancement always
// happens on the UI agent, either in response to an AdvanceAnimations
// message from the render worker (visible mode) or a fallback timer
// (obscure mode) — but it does observe the driver's running state via
// OnStarted/OnStopped so it knows when to fall back to timer-driven
// pacing.
type AnimationDriver interface {
	// IsRunning reports whether any animation is currently active.
	IsRunning() bool

	// Advance steps all active animations by the elapsed time since
	// the previous Advance call. Must only be called from the UI
	// agent.
	Advance()

	// Install registers the driver as the active driver for whatever
	// animation expression system produced it.
	Install()

	// OnStarted registers fn to be called whenever the driver
	// transitions from not-running to running. fn may be called from
	// any goroutine that triggers the transition; implementations
	// registering fn must not assume it runs on any particular agent.
	OnStarted(fn func())

	// OnStopped registers fn to be called whenever the driver
	// transitions from running to not-running. Same caller-goroutine
	// caveat as OnStarted.
	OnStopped(fn func())
}
