// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/framepace/gfx"
	vk "github.com/devblok/vulkan"
)

// Surface implements gfx.Surface for a window surface. It answers queries
// once a device is created for it.
type Surface struct {
	instance vk.Instance
	physical vk.PhysicalDevice
	surface  vk.Surface

	// raw formats keyed by their gfx form, used when creating swapchains
	formats map[gfx.SurfaceFormat]vk.SurfaceFormat
}

// Handle returns the Vulkan surface.
func (s *Surface) Handle() vk.Surface {
	return s.surface
}

func (s *Surface) capabilities() (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := result("vk.GetPhysicalDeviceSurfaceCapabilities()", vk.GetPhysicalDeviceSurfaceCapabilities(s.physical, s.surface, &caps)); err != nil {
		return caps, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

// Capabilities implements gfx.Surface.
func (s *Surface) Capabilities() (gfx.SurfaceCapabilities, error) {
	caps, err := s.capabilities()
	if err != nil {
		return gfx.SurfaceCapabilities{}, err
	}
	return gfx.SurfaceCapabilities{
		MinImageCount: caps.MinImageCount,
		MaxImageCount: caps.MaxImageCount,
		CurrentExtent: gfx.Extent2D{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height},
		MinExtent:     gfx.Extent2D{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
		MaxExtent:     gfx.Extent2D{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
	}, nil
}

// Formats implements gfx.Surface. Formats without a gfx counterpart are
// left out.
func (s *Surface) Formats() ([]gfx.SurfaceFormat, error) {
	var count uint32
	if err := result("vk.GetPhysicalDeviceSurfaceFormats()", vk.GetPhysicalDeviceSurfaceFormats(s.physical, s.surface, &count, nil)); err != nil {
		return nil, err
	}
	raw := make([]vk.SurfaceFormat, count)
	if err := result("vk.GetPhysicalDeviceSurfaceFormats()", vk.GetPhysicalDeviceSurfaceFormats(s.physical, s.surface, &count, raw)); err != nil {
		return nil, err
	}

	s.formats = make(map[gfx.SurfaceFormat]vk.SurfaceFormat)
	var out []gfx.SurfaceFormat
	for _, f := range raw {
		f.Deref()
		sf := gfx.SurfaceFormat{
			Format:     fromFormat(f.Format),
			ColorSpace: fromColorSpace(f.ColorSpace),
		}
		if sf.Format == gfx.FormatUndefined {
			continue
		}
		if _, ok := s.formats[sf]; !ok {
			s.formats[sf] = f
			out = append(out, sf)
		}
	}
	return out, nil
}

// PresentModes implements gfx.Surface.
func (s *Surface) PresentModes() ([]gfx.PresentMode, error) {
	var count uint32
	if err := result("vk.GetPhysicalDeviceSurfacePresentModes()", vk.GetPhysicalDeviceSurfacePresentModes(s.physical, s.surface, &count, nil)); err != nil {
		return nil, err
	}
	raw := make([]vk.PresentMode, count)
	if err := result("vk.GetPhysicalDeviceSurfacePresentModes()", vk.GetPhysicalDeviceSurfacePresentModes(s.physical, s.surface, &count, raw)); err != nil {
		return nil, err
	}
	var out []gfx.PresentMode
	for _, m := range raw {
		if mode, ok := fromPresentMode(m); ok {
			out = append(out, mode)
		}
	}
	return out, nil
}

func (s *Surface) rawFormat(f gfx.SurfaceFormat) vk.SurfaceFormat {
	if raw, ok := s.formats[f]; ok {
		return raw
	}
	return vk.SurfaceFormat{Format: Format(f.Format), ColorSpace: vk.ColorSpaceSrgbNonlinear}
}

// Release destroys the surface.
func (s *Surface) Release() {
	vk.DestroySurface(s.instance, s.surface, nil)
}
