// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/devblok/framepace/gfx"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
)

// Memory defines a usable memory region.
type Memory struct {
	device vk.Device
	memory vk.DeviceMemory
	size   uint64
}

// Handle returns the vulkan memory handle.
func (m *Memory) Handle() vk.DeviceMemory {
	return m.memory
}

// Size implements gfx.Memory.
func (m *Memory) Size() uint64 {
	return m.size
}

// Map implements gfx.Memory.
func (m *Memory) Map() ([]byte, error) {
	var data unsafe.Pointer
	if err := result("vk.MapMemory()", vk.MapMemory(m.device, m.memory, 0, vk.DeviceSize(m.size), 0, &data)); err != nil {
		return nil, err
	}
	return bytesAt(data, int(m.size)), nil
}

// Unmap implements gfx.Memory.
func (m *Memory) Unmap() {
	vk.UnmapMemory(m.device, m.memory)
}

// Release frees memory.
func (m *Memory) Release() {
	vk.FreeMemory(m.device, m.memory, nil)
}

// Buffer wraps a vulkan buffer.
type Buffer struct {
	device vk.Device
	buffer vk.Buffer
	size   uint64
	req    gfx.MemoryRequirements
	bound  bool
}

// Handle returns the vulkan buffer handle.
func (b *Buffer) Handle() vk.Buffer {
	return b.buffer
}

// Size implements gfx.Buffer.
func (b *Buffer) Size() uint64 {
	return b.size
}

// Requirements implements gfx.Buffer.
func (b *Buffer) Requirements() gfx.MemoryRequirements {
	return b.req
}

// Bind implements gfx.Buffer.
func (b *Buffer) Bind(m gfx.Memory) error {
	if b.bound {
		return errors.New("vk.BindBufferMemory(): already bound")
	}
	if err := result("vk.BindBufferMemory()", vk.BindBufferMemory(b.device, b.buffer, m.(*Memory).memory, 0)); err != nil {
		return err
	}
	b.bound = true
	return nil
}

// Release destroys the buffer, memory is released by its owner.
func (b *Buffer) Release() {
	vk.DestroyBuffer(b.device, b.buffer, nil)
}

// Image wraps a vulkan image. Swapchain images are not owned and are
// left alone on Release.
type Image struct {
	device vk.Device
	image  vk.Image
	info   gfx.ImageInfo
	req    gfx.MemoryRequirements
	owned  bool
	bound  bool
}

// Handle returns the vulkan image handle.
func (i *Image) Handle() vk.Image {
	return i.image
}

// Info implements gfx.Image.
func (i *Image) Info() gfx.ImageInfo {
	return i.info
}

// Requirements implements gfx.Image.
func (i *Image) Requirements() gfx.MemoryRequirements {
	return i.req
}

// Bind implements gfx.Image.
func (i *Image) Bind(m gfx.Memory) error {
	if !i.owned || i.bound {
		return errors.New("vk.BindImageMemory(): already bound")
	}
	if err := result("vk.BindImageMemory()", vk.BindImageMemory(i.device, i.image, m.(*Memory).memory, 0)); err != nil {
		return err
	}
	i.bound = true
	return nil
}

// Release destroys the image.
func (i *Image) Release() {
	if i.owned {
		vk.DestroyImage(i.device, i.image, nil)
	}
}

// ImageView wraps a vulkan image view.
type ImageView struct {
	device vk.Device
	view   vk.ImageView
}

// Handle returns the vulkan image view handle.
func (v *ImageView) Handle() vk.ImageView {
	return v.view
}

// Release destroys the view.
func (v *ImageView) Release() {
	vk.DestroyImageView(v.device, v.view, nil)
}

// Sampler wraps a vulkan sampler.
type Sampler struct {
	device  vk.Device
	sampler vk.Sampler
}

// Handle returns the vulkan sampler handle.
func (s *Sampler) Handle() vk.Sampler {
	return s.sampler
}

// Release destroys the sampler.
func (s *Sampler) Release() {
	vk.DestroySampler(s.device, s.sampler, nil)
}

// Fence wraps a vulkan fence.
type Fence struct {
	device vk.Device
	fence  vk.Fence
}

// Release destroys the fence.
func (f *Fence) Release() {
	vk.DestroyFence(f.device, f.fence, nil)
}

// Semaphore wraps a vulkan semaphore.
type Semaphore struct {
	device    vk.Device
	semaphore vk.Semaphore
}

// Release destroys the semaphore.
func (s *Semaphore) Release() {
	vk.DestroySemaphore(s.device, s.semaphore, nil)
}
