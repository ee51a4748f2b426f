// Copyright (c) 2025, Cogent Viz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !offscreen && ((darwin && !ios) || windows || (linux && !android) || dragonfly || openbsd)

package gpu

import (
	"image"

	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/image/draw"

	"github.com/coreviz/renderloop/renderloop"
)

// NewFramebufferReader returns a [renderloop.FramebufferReader] that
// copies ctx's currently active render target into host memory. It
// must be called after RenderSceneGraph has recorded into the view
// MakeCurrent opened, and before SwapBuffers or DoneCurrent releases
// it, matching the grab ordering the render worker follows.
func NewFramebufferReader(ctx *Context) renderloop.FramebufferReader {
	return func(size image.Point) image.Image {
		return ctx.readActiveTexture(size)
	}
}

// readActiveTexture copies the active texture to a host-visible
// buffer with CopyTextureToBuffer, maps it synchronously, and
// converts the result from the GPU's row-aligned layout into a tight
// image.RGBA.
func (c *Context) readActiveTexture(size image.Point) image.Image {
	c.mu.Lock()
	tex := c.activeTexture
	device, queue := c.device, c.queue
	c.mu.Unlock()

	blank := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	if tex == nil || size.X <= 0 || size.Y <= 0 {
		return blank
	}

	bytesPerRow := alignUp(uint32(size.X)*4, 256)
	bufSize := uint64(bytesPerRow) * uint64(size.Y)

	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Size:  bufSize,
		Usage: wgpu.BufferUsage_CopyDst | wgpu.BufferUsage_MapRead,
	})
	if err != nil {
		return blank
	}
	defer buf.Release()

	enc, err := device.CreateCommandEncoder(nil)
	if err != nil {
		return blank
	}
	enc.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{Texture: tex.Texture},
		&wgpu.ImageCopyBuffer{
			Buffer: buf,
			Layout: wgpu.TextureDataLayout{BytesPerRow: bytesPerRow, RowsPerImage: uint32(size.Y)},
		},
		&wgpu.Extent3D{Width: uint32(size.X), Height: uint32(size.Y), DepthOrArrayLayers: 1},
	)
	cmd := enc.Finish(nil)
	queue.Submit(cmd)
	cmd.Release()

	done := make(chan struct{})
	buf.MapAsync(wgpu.MapMode_Read, 0, bufSize, func(wgpu.BufferMapAsyncStatus) { close(done) })
	device.Poll(true, nil)
	<-done
	defer buf.Unmap()

	raw := buf.GetMappedRange(0, bufSize)
	src := &image.RGBA{
		Pix:    raw,
		Stride: int(bytesPerRow),
		Rect:   image.Rect(0, 0, size.X, size.Y),
	}

	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.Draw(dst, dst.Bounds(), src, image.Point{}, draw.Src)
	return dst
}

func alignUp(v, align uint32) uint32 {
	if r := v % align; r != 0 {
		v += align - r
	}
	return v
}
