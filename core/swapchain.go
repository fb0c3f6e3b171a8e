// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/devblok/framepace/gfx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Window is the presentation window as the engine sees it.
type Window interface {
	// DrawableSize returns the current size of the drawable area in pixels.
	DrawableSize() gfx.Extent2D

	// Resized reports whether the window was resized since the last call.
	Resized() bool

	// WaitEvents blocks until the window receives an event.
	WaitEvents()
}

// Swapchain is one generation of the swapchain. It never changes, a new one
// is created on recreation.
type Swapchain struct {
	Raw         gfx.Swapchain
	Images      []gfx.Image
	Views       []gfx.ImageView
	Format      gfx.SurfaceFormat
	PresentMode gfx.PresentMode
	Extent      gfx.Extent2D
}

// ImageCount returns the number of swapchain images.
func (s *Swapchain) ImageCount() int {
	return len(s.Images)
}

// Dependant is a set of objects built from the current swapchain.
// Release runs before the swapchain is replaced, Rebuild after.
type Dependant struct {
	Name    string
	Release func()
	Rebuild func(*Swapchain) error
}

// NewSwapchainManager creates a manager for the surface of a window. The
// swapchain is created by Create.
func NewSwapchainManager(ctx Context, surface gfx.Surface, window Window, desired gfx.PresentMode) *SwapchainManager {
	return &SwapchainManager{
		ctx:     ctx,
		log:     ctx.log("swapchain"),
		surface: surface,
		window:  window,
		desired: desired,
	}
}

// SwapchainManager owns the swapchain and drives its recreation.
type SwapchainManager struct {
	ctx     Context
	log     logrus.FieldLogger
	surface gfx.Surface
	window  Window
	desired gfx.PresentMode

	current     *Swapchain
	dependants  []Dependant
	recreations int
}

// Current returns the live swapchain.
func (m *SwapchainManager) Current() *Swapchain {
	return m.current
}

// Recreations returns how many times the swapchain was recreated.
func (m *SwapchainManager) Recreations() int {
	return m.recreations
}

// Register adds objects to release and rebuild around every recreation.
// They are rebuilt in registration order and released in reverse.
func (m *SwapchainManager) Register(d Dependant) {
	m.dependants = append(m.dependants, d)
}

// Create creates the first swapchain.
func (m *SwapchainManager) Create() error {
	if m.current != nil {
		return errors.New("core.SwapchainManager.Create(): swapchain exists")
	}
	sc, err := m.build(nil)
	if err != nil {
		return err
	}
	m.current = sc
	return nil
}

// Recreate replaces the swapchain and everything depending on it. While the
// window has no area it waits for window events.
func (m *SwapchainManager) Recreate() error {
	for m.window.DrawableSize().Empty() {
		m.window.WaitEvents()
	}
	if err := m.ctx.Device.WaitIdle(); err != nil {
		return classify("core.Recreate()", err)
	}

	for idx := len(m.dependants) - 1; idx >= 0; idx-- {
		if release := m.dependants[idx].Release; release != nil {
			release()
		}
	}

	old := m.current
	if old != nil {
		for _, v := range old.Views {
			v.Release()
		}
	}
	var oldRaw gfx.Swapchain
	if old != nil {
		oldRaw = old.Raw
	}
	sc, err := m.build(oldRaw)
	if oldRaw != nil {
		oldRaw.Release()
	}
	m.current = nil
	if err != nil {
		return err
	}
	m.current = sc
	m.recreations++

	for _, d := range m.dependants {
		if d.Rebuild == nil {
			continue
		}
		if err := d.Rebuild(sc); err != nil {
			return errors.Wrapf(err, "rebuild %s", d.Name)
		}
	}
	m.log.WithFields(logrus.Fields{
		"extent": sc.Extent,
		"images": len(sc.Images),
	}).Info("swapchain recreated")
	return nil
}

// Destroy releases the swapchain and its views. Dependants are released by
// their owners.
func (m *SwapchainManager) Destroy() {
	if m.current == nil {
		return
	}
	for _, v := range m.current.Views {
		v.Release()
	}
	m.current.Raw.Release()
	m.current = nil
}

func (m *SwapchainManager) build(old gfx.Swapchain) (*Swapchain, error) {
	const op = "core.CreateSwapchain()"

	caps, err := m.surface.Capabilities()
	if err != nil {
		return nil, classify(op, err)
	}
	formats, err := m.surface.Formats()
	if err != nil {
		return nil, classify(op, err)
	}
	modes, err := m.surface.PresentModes()
	if err != nil {
		return nil, classify(op, err)
	}
	if len(formats) == 0 {
		return nil, configErrorf(op, "surface reports no formats")
	}
	if len(modes) == 0 {
		return nil, configErrorf(op, "surface reports no present modes")
	}

	info := gfx.SwapchainInfo{
		ImageCount:  ChooseImageCount(caps),
		Format:      ChooseFormat(formats),
		PresentMode: ChoosePresentMode(modes, m.desired),
		Extent:      ChooseExtent(caps, m.window.DrawableSize()),
	}
	raw, err := m.ctx.Device.CreateSwapchain(m.surface, info, old)
	if err != nil {
		return nil, classify(op, err)
	}

	sc := &Swapchain{
		Raw:         raw,
		Images:      raw.Images(),
		Format:      info.Format,
		PresentMode: info.PresentMode,
		Extent:      info.Extent,
	}
	for _, img := range sc.Images {
		view, err := m.ctx.Device.CreateImageView(img, info.Format.Format, gfx.AspectColor, 1)
		if err != nil {
			for _, v := range sc.Views {
				v.Release()
			}
			raw.Release()
			return nil, classify(op, err)
		}
		sc.Views = append(sc.Views, view)
	}

	m.log.WithFields(logrus.Fields{
		"images":      len(sc.Images),
		"format":      info.Format.Format,
		"presentMode": info.PresentMode,
		"extent":      info.Extent,
	}).Debug("swapchain created")
	return sc, nil
}

// ChooseImageCount asks for one image more than the minimum, within the
// maximum when there is one.
func ChooseImageCount(caps gfx.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// ChooseFormat prefers 8 bit BGRA or RGBA sRGB in the sRGB non-linear
// colour space, otherwise the first format.
func ChooseFormat(formats []gfx.SurfaceFormat) gfx.SurfaceFormat {
	for _, f := range formats {
		if (f.Format == gfx.FormatB8G8R8A8Srgb || f.Format == gfx.FormatR8G8B8A8Srgb) &&
			f.ColorSpace == gfx.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

// ChoosePresentMode returns desired when available, FIFO otherwise.
func ChoosePresentMode(modes []gfx.PresentMode, desired gfx.PresentMode) gfx.PresentMode {
	for _, m := range modes {
		if m == desired {
			return m
		}
	}
	return gfx.PresentModeFifo
}

// ChooseExtent uses the surface extent unless the surface leaves it to the
// swapchain, then the drawable size clamped into the limits per axis.
func ChooseExtent(caps gfx.SurfaceCapabilities, drawable gfx.Extent2D) gfx.Extent2D {
	if caps.CurrentExtent.Width != gfx.UndefinedExtent {
		return caps.CurrentExtent
	}
	return gfx.Extent2D{
		Width:  clamp(drawable.Width, caps.MinExtent.Width, caps.MaxExtent.Width),
		Height: clamp(drawable.Height, caps.MinExtent.Height, caps.MaxExtent.Height),
	}
}

func clamp(v, min, max uint32) uint32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
