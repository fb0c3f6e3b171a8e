// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	"github.com/devblok/framepace/core"
	"github.com/devblok/framepace/gfx"
	"github.com/pkg/errors"
)

// depth formats in order of preference
var depthFormats = []gfx.Format{
	gfx.FormatD32Sfloat,
	gfx.FormatD32SfloatS8Uint,
	gfx.FormatD24UnormS8Uint,
	gfx.FormatD16Unorm,
}

// ChooseDepthFormat picks the first depth format usable as an attachment.
func ChooseDepthFormat(dev gfx.Device) (gfx.Format, error) {
	for _, f := range depthFormats {
		if dev.FormatFeatures(f)&gfx.FeatureDepthStencilAttachment != 0 {
			return f, nil
		}
	}
	return gfx.FormatUndefined, errors.New("renderer.ChooseDepthFormat(): no depth attachment format")
}

// Attachments are the swapchain sized render targets besides the
// swapchain images: depth, and a multisampled colour target resolved
// into the swapchain image when Samples is above one.
type Attachments struct {
	Depth       *core.Image
	DepthFormat gfx.Format
	DepthView   gfx.ImageView

	Color     *core.Image
	ColorView gfx.ImageView

	Samples uint32

	arena core.Arena
}

// NewAttachments creates the attachments for an extent. The depth image
// is moved into its attachment layout before returning.
func NewAttachments(engine *core.TransferEngine, extent gfx.Extent2D, color gfx.Format, samples uint32) (*Attachments, error) {
	dev := engine.Context().Device
	depthFormat, err := ChooseDepthFormat(dev)
	if err != nil {
		return nil, err
	}
	if samples == 0 {
		samples = 1
	}
	a := &Attachments{
		DepthFormat: depthFormat,
		Samples:     samples,
	}
	size := gfx.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1}

	if samples > 1 {
		a.Color, err = engine.CreateImage(gfx.ImageInfo{
			Format:  color,
			Extent:  size,
			Levels:  1,
			Samples: samples,
			Usage:   gfx.ImageColorAttachment | gfx.ImageTransientAttachment,
		}, gfx.MemoryDeviceLocal)
		if err != nil {
			return nil, err
		}
		a.arena.Add(a.Color)
		a.ColorView, err = dev.CreateImageView(a.Color.Raw(), color, gfx.AspectColor, 1)
		if err != nil {
			a.Release()
			return nil, errors.Wrap(err, "renderer.NewAttachments()")
		}
		a.arena.Add(a.ColorView)
	}

	a.Depth, err = engine.CreateImage(gfx.ImageInfo{
		Format:  depthFormat,
		Extent:  size,
		Levels:  1,
		Samples: samples,
		Usage:   gfx.ImageDepthStencilAttachment,
	}, gfx.MemoryDeviceLocal)
	if err != nil {
		a.Release()
		return nil, err
	}
	a.arena.Add(a.Depth)

	aspect := gfx.AspectDepth
	if depthFormat.HasStencil() {
		aspect |= gfx.AspectStencil
	}
	a.DepthView, err = dev.CreateImageView(a.Depth.Raw(), depthFormat, aspect, 1)
	if err != nil {
		a.Release()
		return nil, errors.Wrap(err, "renderer.NewAttachments()")
	}
	a.arena.Add(a.DepthView)

	if err := engine.TransitionLayout(a.Depth, gfx.LayoutUndefined, gfx.LayoutDepthStencilAttachment, 0, 1); err != nil {
		a.Release()
		return nil, err
	}
	return a, nil
}

// Multisampled reports whether rendering resolves a multisampled target.
func (a *Attachments) Multisampled() bool {
	return a.Color != nil
}

// Release destroys the views and images.
func (a *Attachments) Release() {
	a.arena.Release()
}
