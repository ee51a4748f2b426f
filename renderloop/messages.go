// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package renderloop

import (
	"image"

	"github.com/coreviz/renderloop/events"
)

// Message kinds. Each concrete message type below implements
// events.Message by returning its own constant from Kind.
const (
	KindExpose events.Kind = events.FirstUserKind + iota
	KindObscure
	KindRequestSync
	KindResize
	KindTryRelease
	KindGrab
	KindAdvanceAnimations
	KindAnimationStateChanged
	KindRequestRepaint
	KindUpdateLater
)

// Expose is sent controller -> worker when a window becomes exposed.
// It carries the window's identity and its size at the moment of
// exposure, since the worker tracks its own copy of each window's
// size independently of the controller.
type Expose struct {
	Win  Window
	Size image.Point
}

// Kind implements events.Message.
func (Expose) Kind() events.Kind { return KindExpose }

// Obscure is sent controller -> worker when a window stops being
// exposed (hidden, occluded, or destroyed).
type Obscure struct {
	Win Window
}

// Kind implements events.Message.
func (Obscure) Kind() events.Kind { return KindObscure }

// RequestSync is sent controller -> worker as the second half of a
// polish-and-sync rendezvous: polish has already run on the UI agent
// for every tracked window, and the render agent should now call
// SyncSceneGraph for every window it has exposed, signal the
// rendezvous once, and render and present the resulting frames. It
// carries no window of its own since the rendezvous it drives is
// global, not per-window.
type RequestSync struct{}

// Kind implements events.Message.
func (RequestSync) Kind() events.Kind { return KindRequestSync }

// Resize is sent controller -> worker when a window's surface size
// changes. The worker updates its own tracked size so that the next
// render call uses the right viewport even if the accompanying sync
// has not been processed yet.
type Resize struct {
	Win  Window
	Size image.Point
}

// Kind implements events.Message.
func (Resize) Kind() events.Kind { return KindResize }

// TryRelease is sent controller -> worker to invalidate the resources
// associated with Win and, depending on the remaining tracked windows'
// persistence flags, the shared GPU and scene-graph contexts as well.
//
// Win is nil for the one case with no specific target: LoopController's
// own Shutdown, which tears down unconditionally regardless of any
// window's persistence flags or whether other windows remain, since
// the whole render loop is exiting.
type TryRelease struct {
	Win Window

	// InDestructor indicates the release is happening because Win
	// itself is being destroyed, not merely hidden; this forces
	// Win's own scene-graph node cleanup and excludes Win's own
	// persistence flags from the OR computed over the remaining
	// tracked windows.
	InDestructor bool
}

// Kind implements events.Message.
func (TryRelease) Kind() events.Kind { return KindTryRelease }

// Grab is sent controller -> worker to request a synchronous offscreen
// render of win at its current size. Done is closed by the worker once
// Result (or Err) has been set, so the controller can block on it with
// a plain channel receive instead of the general rendezvous machinery.
// Result stays nil with no Err if win is not currently tracked by the
// worker (never exposed) or has no valid size yet; Err is reserved for
// genuine GPU/surface failures.
type Grab struct {
	Win    Window
	Result image.Image
	Err    error
	Done   chan struct{}
}

// Kind implements events.Message.
func (*Grab) Kind() events.Kind { return KindGrab }

// AdvanceAnimations is sent worker -> controller after a sync, asking
// the controller to advance the animation driver by one tick. It
// carries no window: the driver advances every running animation in
// one step regardless of which window's items they belong to, mirroring
// how it is posted as a plain timer-less event with no window payload.
// The worker bounds how many of these can be outstanding at once
// (see [events.Queue.SendBounded]); the controller releases a slot
// each time it handles one.
type AdvanceAnimations struct{}

// Kind implements events.Message.
func (AdvanceAnimations) Kind() events.Kind { return KindAdvanceAnimations }

// AnimationStateChanged is sent to whichever agent's queue owns a
// piece of state that depends on whether any animation is currently
// running (the render worker's sleep predicate; the controller's
// obscure-mode fallback timer). It is posted by the [AnimationDriver]'s
// started/stopped callbacks, which may run on any goroutine, so that
// the actual state mutation always happens on the receiving agent's
// own loop.
type AnimationStateChanged struct {
	Running bool
}

// Kind implements events.Message.
func (AnimationStateChanged) Kind() events.Kind { return KindAnimationStateChanged }

// RequestRepaint is a worker self-message, posted by LoopController.Update
// when it is called while already running on the render agent
// (e.g. from a scene-graph callback invoked during sync or render).
// It asks for another render-and-present pass without going through
// the controller at all, since the controller side of a sync round
// trip cannot be re-entered from the goroutine that is itself
// blocked servicing it.
type RequestRepaint struct {
	Win Window
}

// Kind implements events.Message.
func (RequestRepaint) Kind() events.Kind { return KindRequestRepaint }

// UpdateLater is a controller self-message, posted by MaybeUpdate when
// it is called while running on the render agent instead of the UI
// agent. It defers the normal maybeUpdate scheduling until the next
// time ProcessEvents runs on the controller's own goroutine, rather
// than invoking the scheduling path directly from the wrong agent.
type UpdateLater struct {
	Win Window
}

// Kind implements events.Message.
func (UpdateLater) Kind() events.Kind { return KindUpdateLater }
