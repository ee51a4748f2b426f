// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !offscreen && ((darwin && !ios) || windows || (linux && !android) || dragonfly || openbsd)

package gpu

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/coreviz/renderloop/renderloop"
)

// Context is the render loop's WebGPU-backed [renderloop.Context]. It
// owns a single instance, adapter and device until Destroy, and per
// MakeCurrent call acquires whichever surface's
// swapchain texture is being rendered to next.
//
// WebGPU has no notion of a thread-bound "current" context the way GL
// does; MakeCurrent and DoneCurrent instead bracket the render target
// a RenderSceneGraph call should draw into.
type Context struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu            sync.Mutex
	activeSurface *GLFWSurface
	activeTexture *wgpu.SurfaceTexture
	activeView    *wgpu.TextureView
	encoder       *wgpu.CommandEncoder
}

// NewContextFactory returns a [renderloop.ContextFactory] that creates
// a new GPU context (instance, adapter and device) on every call,
// bootstrapping adapter selection from a temporary surface made by
// [CreateDesktopSurface] for seed.
func NewContextFactory() renderloop.ContextFactory {
	return func(seed renderloop.Window) (renderloop.Context, error) {
		inst := wgpu.CreateInstance(nil)

		bootstrap, err := CreateDesktopSurface(inst, seed)
		if err != nil {
			inst.Release()
			return nil, err
		}
		defer bootstrap.Release()

		adapter, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{
			CompatibleSurface: bootstrap.surface,
		})
		if err != nil {
			inst.Release()
			return nil, fmt.Errorf("gpu: request adapter: %w", err)
		}

		device, err := adapter.RequestDevice(nil)
		if err != nil {
			adapter.Release()
			inst.Release()
			return nil, fmt.Errorf("gpu: request device: %w", err)
		}

		return &Context{
			instance: inst,
			adapter:  adapter,
			device:   device,
			queue:    device.GetQueue(),
		}, nil
	}
}

// Device returns the context's WebGPU device, for building pipelines
// and resources outside this package.
func (c *Context) Device() *wgpu.Device { return c.device }

// Queue returns the context's command queue.
func (c *Context) Queue() *wgpu.Queue { return c.queue }

// MakeCurrent implements renderloop.Context. It configures surf on
// first use or after a resize, acquires its current swapchain
// texture, and opens a command encoder ready for RenderSceneGraph to
// record draw calls into.
func (c *Context) MakeCurrent(surf renderloop.Surface) error {
	gs, ok := surf.(*GLFWSurface)
	if !ok {
		return fmt.Errorf("gpu: MakeCurrent: surface is not a *gpu.GLFWSurface")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.configureLocked(gs); err != nil {
		return err
	}

	tex, err := gs.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("gpu: get current texture: %w", err)
	}
	view, err := tex.Texture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("gpu: create texture view: %w", err)
	}
	enc, err := c.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}

	c.activeSurface = gs
	c.activeTexture = tex
	c.activeView = view
	c.encoder = enc
	return nil
}

func (c *Context) configureLocked(gs *GLFWSurface) error {
	if gs.configured {
		return nil
	}
	caps := gs.surface.GetCapabilities(c.adapter)
	if len(caps.Formats) == 0 {
		return fmt.Errorf("gpu: surface reports no supported formats")
	}
	gs.surface.Configure(c.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsage_RenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(gs.size.X),
		Height:      uint32(gs.size.Y),
		PresentMode: wgpu.PresentMode_Fifo,
		AlphaMode:   caps.AlphaModes[0],
	})
	gs.configured = true
	return nil
}

// ActiveView returns the texture view bound by the most recent
// MakeCurrent call, or nil outside a MakeCurrent/DoneCurrent bracket.
// A scene-graph renderer attaches its render pass to this view.
func (c *Context) ActiveView() *wgpu.TextureView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeView
}

// Encoder returns the command encoder opened by the most recent
// MakeCurrent call.
func (c *Context) Encoder() *wgpu.CommandEncoder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.encoder
}

// DoneCurrent implements renderloop.Context. It releases the active
// view and texture without presenting them; used for offscreen grabs,
// where SwapBuffers would show the frame on screen.
func (c *Context) DoneCurrent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseActiveLocked()
}

func (c *Context) releaseActiveLocked() {
	if c.activeView != nil {
		c.activeView.Release()
	}
	if c.activeTexture != nil {
		c.activeTexture.Texture.Release()
	}
	c.activeView = nil
	c.activeTexture = nil
	c.activeSurface = nil
	c.encoder = nil
}

// SwapBuffers implements renderloop.Context. It submits the command
// encoder opened by MakeCurrent and presents surf's swapchain texture.
func (c *Context) SwapBuffers(surf renderloop.Surface) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.encoder != nil {
		cmd := c.encoder.Finish(nil)
		c.queue.Submit(cmd)
		cmd.Release()
	}
	if gs, ok := surf.(*GLFWSurface); ok && gs.surface != nil {
		gs.surface.Present()
	}
	c.releaseActiveLocked()
}

// Destroy implements renderloop.Context.
func (c *Context) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseActiveLocked()
	if c.device != nil {
		c.device.Release()
		c.device = nil
	}
	if c.adapter != nil {
		c.adapter.Release()
		c.adapter = nil
	}
	if c.instance != nil {
		c.instance.Release()
		c.instance = nil
	}
}

var _ renderloop.Context = (*Context)(nil)
