// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package soft

import (
	"github.com/devblok/framepace/gfx"
	"github.com/pkg/errors"
)

// NewSurface creates an emulated surface with the given capabilities. It
// reports B8G8R8A8 sRGB and FIFO plus mailbox unless changed.
func NewSurface(caps gfx.SurfaceCapabilities) *Surface {
	return &Surface{
		caps: caps,
		formats: []gfx.SurfaceFormat{
			{Format: gfx.FormatB8G8R8A8Unorm, ColorSpace: gfx.ColorSpaceSrgbNonlinear},
			{Format: gfx.FormatB8G8R8A8Srgb, ColorSpace: gfx.ColorSpaceSrgbNonlinear},
		},
		modes: []gfx.PresentMode{gfx.PresentModeFifo, gfx.PresentModeMailbox},
	}
}

// Surface implements gfx.Surface with scripted behaviour.
type Surface struct {
	caps    gfx.SurfaceCapabilities
	formats []gfx.SurfaceFormat
	modes   []gfx.PresentMode

	stale  bool
	script []uint32
	next   int

	created   []gfx.SwapchainInfo
	presented []uint32

	// OnAcquire, when set, runs after every successful acquire.
	OnAcquire func(index uint32)
}

// Capabilities implements gfx.Surface.
func (s *Surface) Capabilities() (gfx.SurfaceCapabilities, error) {
	return s.caps, nil
}

// Formats implements gfx.Surface.
func (s *Surface) Formats() ([]gfx.SurfaceFormat, error) {
	return s.formats, nil
}

// PresentModes implements gfx.Surface.
func (s *Surface) PresentModes() ([]gfx.PresentMode, error) {
	return s.modes, nil
}

// SetCapabilities replaces the reported capabilities.
func (s *Surface) SetCapabilities(caps gfx.SurfaceCapabilities) {
	s.caps = caps
}

// SetFormats replaces the reported formats.
func (s *Surface) SetFormats(formats ...gfx.SurfaceFormat) {
	s.formats = formats
}

// SetPresentModes replaces the reported present modes.
func (s *Surface) SetPresentModes(modes ...gfx.PresentMode) {
	s.modes = modes
}

// Invalidate makes the current swapchain out of date until the next one
// is created.
func (s *Surface) Invalidate() {
	s.stale = true
}

// ScriptAcquire sets the image indices acquire returns, cycling through
// them. Without a script images are handed out round robin.
func (s *Surface) ScriptAcquire(indices ...uint32) {
	s.script = indices
	s.next = 0
}

// Created returns the parameters of every swapchain created so far.
func (s *Surface) Created() []gfx.SwapchainInfo {
	return s.created
}

// Presented returns the image indices in presentation order.
func (s *Surface) Presented() []uint32 {
	return s.presented
}

// Swapchain implements gfx.Swapchain.
type Swapchain struct {
	device  *Device
	surface *Surface
	info    gfx.SwapchainInfo
	images  []*Image
	retired bool
	acquire uint32
}

// Info returns the creation parameters.
func (s *Swapchain) Info() gfx.SwapchainInfo {
	return s.info
}

// Images implements gfx.Swapchain.
func (s *Swapchain) Images() []gfx.Image {
	out := make([]gfx.Image, len(s.images))
	for idx, img := range s.images {
		out[idx] = img
	}
	return out
}

// Acquire implements gfx.Swapchain.
func (s *Swapchain) Acquire(signal gfx.Semaphore) (uint32, bool, error) {
	if s.retired {
		s.device.violate("acquire from retired swapchain")
	}
	if s.surface.stale {
		return 0, false, errors.Wrap(gfx.ErrOutOfDate, "soft.AcquireNextImage()")
	}
	sem, ok := signal.(*Semaphore)
	if !ok {
		return 0, false, errors.Errorf("soft.AcquireNextImage(): foreign semaphore %T", signal)
	}
	if sem.signaled {
		s.device.violate("acquire signals a semaphore that is already signalled")
	}

	var index uint32
	if len(s.surface.script) > 0 {
		index = s.surface.script[s.surface.next%len(s.surface.script)] % uint32(len(s.images))
		s.surface.next++
	} else {
		index = s.acquire % uint32(len(s.images))
		s.acquire++
	}
	sem.signaled = true
	if s.surface.OnAcquire != nil {
		s.surface.OnAcquire(index)
	}
	return index, false, nil
}

// Present implements gfx.Swapchain. Presentation is queued behind the
// submitted work.
func (s *Swapchain) Present(index uint32, wait gfx.Semaphore) (bool, error) {
	if s.surface.stale {
		return false, errors.Wrap(gfx.ErrOutOfDate, "soft.QueuePresent()")
	}
	if int(index) >= len(s.images) {
		return false, errors.Errorf("soft.QueuePresent(): image %d out of range", index)
	}
	p := &presentOp{swapchain: s, index: index}
	if wait != nil {
		p.wait = wait.(*Semaphore)
	}
	s.device.pending = append(s.device.pending, &submission{seq: -1, present: p})
	return false, nil
}

// Release implements gfx.Releasable.
func (s *Swapchain) Release() {
	s.device.untrack(s)
}
