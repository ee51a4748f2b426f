// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scenegraph provides a minimal scene-graph node-tree double:
// enough to satisfy the render loop's SceneGraphContext contract
// without depending on a real GPU-backed renderer. Applications with
// an actual node/material/geometry model implement the same contract
// against their own types; this package exists so the render loop can
// be exercised and tested on its own.
package scenegraph

import (
	"fmt"
	"sync"
	"time"

	"github.com/coreviz/renderloop/renderloop"
)

// Node is the smallest unit this package's tree understands: a
// rectangle of a solid color, optionally with children offset within
// its own bounds. Real scene-graph implementations would replace this
// with geometry, materials, and transforms; this one exists to give
// RenderSceneGraph something to walk.
type Node struct {
	Color    [4]float32
	X, Y     int
	W, H     int
	Children []*Node
}

// Context is a minimal [renderloop.SceneGraphContext]: it holds a
// root node per window and becomes "ready" once bound to a GPU
// context, without allocating any real GPU resources itself (that is
// the backend's job, reached through the renderloop.Context it is
// initialized with).
type Context struct {
	mu       sync.Mutex
	ready    bool
	gpu      renderloop.Context
	roots    map[renderloop.Window]*Node
	driver   *TickerAnimationDriver
	animHint time.Duration
}

// NewContext returns a scene-graph context whose animation driver
// polls for expired animations every animHint (see
// [TickerAnimationDriver]); pass 0 to disable background pruning and
// rely solely on Advance calls.
func NewContext(animHint time.Duration) *Context {
	return &Context{
		roots:    make(map[renderloop.Window]*Node),
		animHint: animHint,
	}
}

// Initialize implements renderloop.SceneGraphContext.
func (c *Context) Initialize(gpu renderloop.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gpu == nil {
		return fmt.Errorf("scenegraph: initialize with nil gpu context")
	}
	c.gpu = gpu
	c.ready = true
	return nil
}

// IsReady implements renderloop.SceneGraphContext.
func (c *Context) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Invalidate implements renderloop.SceneGraphContext.
func (c *Context) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gpu = nil
	c.ready = false
	c.roots = make(map[renderloop.Window]*Node)
}

// CreateAnimationDriver implements renderloop.SceneGraphContext. The
// same driver is returned on every call; owner is accepted for
// contract compatibility but otherwise unused by this minimal
// implementation.
func (c *Context) CreateAnimationDriver(owner renderloop.AnimationOwner) renderloop.AnimationDriver {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.driver == nil {
		c.driver = NewTickerAnimationDriver(c.animHint)
	}
	return c.driver
}

// SetRoot assigns win's root node, creating the window's entry if
// needed. RenderSceneGraph implementations built on this package
// should call SetRoot during SyncSceneGraph and read it back during
// RenderSceneGraph.
func (c *Context) SetRoot(win renderloop.Window, root *Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roots[win] = root
}

// Root returns win's current root node, or nil if none has been set.
func (c *Context) Root(win renderloop.Window) *Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roots[win]
}

var _ renderloop.SceneGraphContext = (*Context)(nil)
