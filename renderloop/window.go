// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package renderloop

import "image"

// controllerWindow is the UI agent's view of a tracked window: the
// window itself plus whether a sync has been requested for it that
// the render agent has not yet picked up. pendingUpdate is only ever
// read or written from the controller's own goroutine.
type controllerWindow struct {
	win           Window
	pendingUpdate bool
}

// workerWindow is the render agent's view of a tracked window: the
// window itself plus the worker's own copy of its current size. The
// worker keeps its own copy rather than calling win.Size() so that a
// size change delivered via a Resize message takes effect immediately,
// even if the window's own getter would return something stale or if
// the getter is not safe to call off the UI agent.
type workerWindow struct {
	win  Window
	size image.Point
}

// findWindow returns the index of the entry in windows whose win
// field equals target, or -1 if none matches. Generalizes the
// original's linear-scan windowFor helper across the controller's and
// worker's differently-shaped per-window records.
func findWindow[T interface{ window() Window }](windows []T, target Window) int {
	for i, w := range windows {
		if w.window() == target {
			return i
		}
	}
	return -1
}

func (w controllerWindow) window() Window { return w.win }
func (w workerWindow) window() Window     { return w.win }
