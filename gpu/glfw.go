// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !offscreen && ((darwin && !ios) || windows || (linux && !android) || dragonfly || openbsd)

// Package gpu is the render loop's WebGPU backend: a renderloop.Context
// implementation backed by github.com/cogentcore/webgpu, and a
// renderloop.Surface implementation backed by glfw windows for desktop
// platforms. Other platforms (mobile, web) need to provide their own
// Surface/ContextFactory pair; the render loop only depends on the
// small interfaces in the renderloop package, never on this package
// directly.
package gpu

import (
	"fmt"
	"image"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/coreviz/renderloop/renderloop"
)

var (
	glfwInitOnce sync.Once
	glfwInitErr  error
)

// initGLFW calls glfw.Init exactly once; IMPORTANT: the first call
// must happen on the main OS thread, before any window is created.
func initGLFW() error {
	glfwInitOnce.Do(func() {
		glfwInitErr = glfw.Init()
	})
	return glfwInitErr
}

// GLFWSurface adapts a glfw window's WebGPU surface to the render
// loop's Surface contract.
type GLFWSurface struct {
	win        *glfw.Window
	surface    *wgpu.Surface
	size       image.Point
	configured bool
}

// Size implements renderloop.Surface.
func (s *GLFWSurface) Size() image.Point { return s.size }

// Resize updates the surface's tracked size; the next MakeCurrent
// call reconfigures the underlying WebGPU surface to match.
func (s *GLFWSurface) Resize(size image.Point) {
	s.size = size
	s.configured = false
}

// Release destroys the surface and its backing glfw window.
func (s *GLFWSurface) Release() {
	if s.surface != nil {
		s.surface.Release()
		s.surface = nil
	}
	if s.win != nil {
		s.win.Destroy()
		s.win = nil
	}
}

// CreateDesktopSurface creates a glfw window sized to win's current
// surface size and wraps its WebGPU surface. If win has no valid size
// yet, the width and height of its requested format are used instead,
// and a 64x64 placeholder if those are not valid either.
// Intended as the building block behind both a renderloop.SurfaceFactory
// and the temporary surface a renderloop.ContextFactory bootstraps
// adapter selection with.
func CreateDesktopSurface(inst *wgpu.Instance, win renderloop.Window) (*GLFWSurface, error) {
	if err := initGLFW(); err != nil {
		return nil, fmt.Errorf("gpu: glfw init: %w", err)
	}

	size := win.Size()
	if size.X <= 0 || size.Y <= 0 {
		requested := win.RequestedFormat()
		size = image.Pt(requested.Width, requested.Height)
	}
	if size.X <= 0 || size.Y <= 0 {
		size = image.Pt(64, 64)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	w, err := glfw.CreateWindow(size.X, size.Y, "", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: create window: %w", err)
	}

	surf := inst.CreateSurface(wgpuglfw.GetSurfaceDescriptor(w))
	gs := &GLFWSurface{win: w, surface: surf, size: size}
	w.SetSizeCallback(func(_ *glfw.Window, width, height int) {
		gs.Resize(image.Pt(width, height))
	})
	return gs, nil
}

// NewSurfaceFactory returns a [renderloop.SurfaceFactory] that opens a
// desktop window per tracked renderloop.Window, sharing ctx's WebGPU
// instance. ctx must already be created by [NewContextFactory] before
// the render worker calls the returned factory.
func NewSurfaceFactory(ctx *Context) renderloop.SurfaceFactory {
	return func(win renderloop.Window) (renderloop.Surface, error) {
		return CreateDesktopSurface(ctx.instance, win)
	}
}

var _ renderloop.Surface = (*GLFWSurface)(nil)
