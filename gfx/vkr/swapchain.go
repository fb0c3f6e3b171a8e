// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/framepace/gfx"
	vk "github.com/devblok/vulkan"
)

var compositeAlphaFlags = []vk.CompositeAlphaFlagBits{
	vk.CompositeAlphaOpaqueBit,
	vk.CompositeAlphaPreMultipliedBit,
	vk.CompositeAlphaPostMultipliedBit,
	vk.CompositeAlphaInheritBit,
}

func newSwapchain(d *Device, s *Surface, info gfx.SwapchainInfo, old vk.Swapchain) (*Swapchain, error) {
	caps, err := s.capabilities()
	if err != nil {
		return nil, err
	}

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, flag := range compositeAlphaFlags {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(flag) != 0 {
			compositeAlpha = flag
			break
		}
	}

	format := s.rawFormat(info.Format)
	scci := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         s.surface,
		MinImageCount:   info.ImageCount,
		ImageFormat:     format.Format,
		ImageColorSpace: format.ColorSpace,
		ImageExtent: vk.Extent2D{
			Width:  info.Extent.Width,
			Height: info.Extent.Height,
		},
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      presentModes[info.PresentMode],
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     old,
	}

	var swapchain vk.Swapchain
	if err := result("vk.CreateSwapchain()", vk.CreateSwapchain(d.device, &scci, nil, &swapchain)); err != nil {
		return nil, err
	}

	var numImages uint32
	if err := result("vk.GetSwapchainImages(num)", vk.GetSwapchainImages(d.device, swapchain, &numImages, nil)); err != nil {
		vk.DestroySwapchain(d.device, swapchain, nil)
		return nil, err
	}
	vkImages := make([]vk.Image, numImages)
	if err := result("vk.GetSwapchainImages(images)", vk.GetSwapchainImages(d.device, swapchain, &numImages, vkImages)); err != nil {
		vk.DestroySwapchain(d.device, swapchain, nil)
		return nil, err
	}

	images := make([]gfx.Image, numImages)
	for idx, img := range vkImages {
		images[idx] = &Image{
			device: d.device,
			image:  img,
			info: gfx.ImageInfo{
				Format:  info.Format.Format,
				Extent:  gfx.Extent3D{Width: info.Extent.Width, Height: info.Extent.Height, Depth: 1},
				Levels:  1,
				Samples: 1,
				Usage:   gfx.ImageColorAttachment | gfx.ImageTransferSrc,
			},
		}
	}

	return &Swapchain{
		device:    d.device,
		queue:     d.queue,
		swapchain: swapchain,
		images:    images,
	}, nil
}

// Swapchain implements gfx.Swapchain.
type Swapchain struct {
	device    vk.Device
	queue     vk.Queue
	swapchain vk.Swapchain
	images    []gfx.Image
}

// Handle returns the vulkan swapchain.
func (s *Swapchain) Handle() vk.Swapchain {
	return s.swapchain
}

// Images implements gfx.Swapchain.
func (s *Swapchain) Images() []gfx.Image {
	return s.images
}

// Acquire implements gfx.Swapchain.
func (s *Swapchain) Acquire(signal gfx.Semaphore) (uint32, bool, error) {
	var idx uint32
	res := vk.AcquireNextImage(s.device, s.swapchain, timeout(gfx.Forever), signal.(*Semaphore).semaphore, vk.NullFence, &idx)
	if res == vk.Suboptimal {
		return idx, true, nil
	}
	if err := result("vk.AcquireNextImage()", res); err != nil {
		return 0, false, err
	}
	return idx, false, nil
}

// Present implements gfx.Swapchain.
func (s *Swapchain) Present(idx uint32, wait gfx.Semaphore) (bool, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.(*Semaphore).semaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.swapchain},
		PImageIndices:      []uint32{idx},
	}
	res := vk.QueuePresent(s.queue, &presentInfo)
	if res == vk.Suboptimal {
		return true, nil
	}
	return false, result("vk.QueuePresent()", res)
}

// Release destroys the swapchain, its images go with it.
func (s *Swapchain) Release() {
	vk.DestroySwapchain(s.device, s.swapchain, nil)
}
