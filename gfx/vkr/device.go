// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"strings"

	"github.com/devblok/framepace/gfx"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
)

// DeviceConfiguration selects the physical device and extra extensions.
type DeviceConfiguration struct {
	PhysicalDevice int
	Extensions     []string
}

// NewDevice creates the logical device for the surface, with one queue
// that does both graphics and present, and its command pool.
func NewDevice(instance *Instance, surface *Surface, cfg DeviceConfiguration) (*Device, error) {
	devices := instance.AvailableDevices()
	if cfg.PhysicalDevice < 0 || cfg.PhysicalDevice >= len(devices) {
		return nil, errors.Errorf("vk.CreateDevice(): physical device %d out of %d", cfg.PhysicalDevice, len(devices))
	}
	physical := devices[cfg.PhysicalDevice]
	surface.physical = physical

	family, err := queueFamily(physical, surface.surface)
	if err != nil {
		return nil, err
	}

	extensions := append([]string{vk.KhrSwapchainExtensionName}, cfg.Extensions...)
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: family,
		QueueCount:       1,
		PQueuePriorities: []float32{1},
	}}

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(physical, &features)
	features.Deref()

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			SamplerAnisotropy: features.SamplerAnisotropy,
		}},
	}

	var device vk.Device
	if err := result("vk.CreateDevice()", vk.CreateDevice(physical, &dci, nil, &device)); err != nil {
		return nil, err
	}

	var queue vk.Queue
	vk.GetDeviceQueue(device, family, 0, &queue)

	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if err := result("vk.CreateCommandPool()", vk.CreateCommandPool(device, &cpci, nil, &pool)); err != nil {
		vk.DestroyDevice(device, nil)
		return nil, err
	}

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physical, &properties)
	properties.Deref()
	properties.Limits.Deref()

	return &Device{
		physical:     physical,
		device:       device,
		queue:        queue,
		family:       family,
		pool:         pool,
		memoryTypes:  memoryTypes(physical),
		anisotropy:   features.SamplerAnisotropy.B(),
		sampleCounts: properties.Limits.FramebufferColorSampleCounts & properties.Limits.FramebufferDepthSampleCounts,
	}, nil
}

// queueFamily finds a family with graphics that can present to the surface.
func queueFamily(physical vk.PhysicalDevice, surface vk.Surface) (uint32, error) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &count, nil)
	if count == 0 {
		return 0, errors.New("vk.GetPhysicalDeviceQueueFamilyProperties(): no queuefamilies on GPU")
	}
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &count, families)

	for i := uint32(0); i < count; i++ {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		var supportsPresent vk.Bool32
		if err := result("vk.GetPhysicalDeviceSurfaceSupport()", vk.GetPhysicalDeviceSurfaceSupport(physical, i, surface, &supportsPresent)); err != nil {
			return 0, err
		}
		if supportsPresent.B() {
			return i, nil
		}
	}
	return 0, errors.New("vk.GetPhysicalDeviceSurfaceSupport(): no queue family with graphics and present")
}

func memoryTypes(physical vk.PhysicalDevice) []gfx.MemoryType {
	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(physical, &props)
	props.Deref()

	types := make([]gfx.MemoryType, props.MemoryTypeCount)
	for idx := range types {
		props.MemoryTypes[idx].Deref()
		types[idx] = gfx.MemoryType{
			Properties: fromMemoryProperties(props.MemoryTypes[idx].PropertyFlags),
			Heap:       props.MemoryTypes[idx].HeapIndex,
		}
	}
	return types
}

var memoryPropertyNames = []string{"device-local", "host-visible", "host-coherent", "host-cached", "lazily-allocated"}

func describeMemory(p gfx.MemoryProperty) string {
	var names []string
	for idx, name := range memoryPropertyNames {
		if p&(1<<uint(idx)) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Device implements gfx.Device on a Vulkan logical device.
type Device struct {
	physical     vk.PhysicalDevice
	device       vk.Device
	queue        vk.Queue
	family       uint32
	pool         vk.CommandPool
	memoryTypes  []gfx.MemoryType
	anisotropy   bool
	sampleCounts vk.SampleCountFlags
}

// Handle returns the logical device.
func (d *Device) Handle() vk.Device {
	return d.device
}

// Physical returns the physical device.
func (d *Device) Physical() vk.PhysicalDevice {
	return d.physical
}

// Queue returns the graphics and present queue.
func (d *Device) Queue() vk.Queue {
	return d.queue
}

// Pool returns the command pool command buffers are allocated from.
func (d *Device) Pool() vk.CommandPool {
	return d.pool
}

// SupportsSamples reports whether colour and depth attachments can have
// n samples.
func (d *Device) SupportsSamples(n uint32) bool {
	return d.sampleCounts&vk.SampleCountFlags(Samples(n)) != 0
}

// MemoryTypes implements gfx.Device.
func (d *Device) MemoryTypes() []gfx.MemoryType {
	return d.memoryTypes
}

// FormatFeatures implements gfx.Device.
func (d *Device) FormatFeatures(f gfx.Format) gfx.FormatFeature {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(d.physical, Format(f), &props)
	props.Deref()
	return gfx.FormatFeature(unbits(uint32(props.OptimalTilingFeatures), formatFeatures))
}

// CreateBuffer implements gfx.Device.
func (d *Device) CreateBuffer(size uint64, usage gfx.BufferUsage) (gfx.Buffer, error) {
	bci := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(bits(uint32(usage), bufferUsages)),
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := result("vk.CreateBuffer()", vk.CreateBuffer(d.device, &bci, nil, &buffer)); err != nil {
		return nil, err
	}
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.device, buffer, &req)
	req.Deref()
	return &Buffer{
		device: d.device,
		buffer: buffer,
		size:   size,
		req:    requirements(req),
	}, nil
}

// CreateImage implements gfx.Device.
func (d *Device) CreateImage(info gfx.ImageInfo) (gfx.Image, error) {
	ici := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    Format(info.Format),
		Extent: vk.Extent3D{
			Width:  info.Extent.Width,
			Height: info.Extent.Height,
			Depth:  info.Extent.Depth,
		},
		MipLevels:     info.Levels,
		ArrayLayers:   1,
		Samples:       Samples(info.Samples),
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(bits(uint32(info.Usage), imageUsages)),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var image vk.Image
	if err := result("vk.CreateImage()", vk.CreateImage(d.device, &ici, nil, &image)); err != nil {
		return nil, err
	}
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.device, image, &req)
	req.Deref()
	return &Image{
		device: d.device,
		image:  image,
		info:   info,
		req:    requirements(req),
		owned:  true,
	}, nil
}

func requirements(req vk.MemoryRequirements) gfx.MemoryRequirements {
	return gfx.MemoryRequirements{
		Size:      uint64(req.Size),
		Alignment: uint64(req.Alignment),
		TypeBits:  req.MemoryTypeBits,
	}
}

// Allocate implements gfx.Device.
func (d *Device) Allocate(size uint64, memoryType uint32) (gfx.Memory, error) {
	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: memoryType,
	}
	var memory vk.DeviceMemory
	if err := result("vk.AllocateMemory()", vk.AllocateMemory(d.device, &mai, nil, &memory)); err != nil {
		return nil, err
	}
	return &Memory{
		device: d.device,
		memory: memory,
		size:   size,
	}, nil
}

// CreateImageView implements gfx.Device.
func (d *Device) CreateImageView(img gfx.Image, format gfx.Format, aspect gfx.Aspect, levels uint32) (gfx.ImageView, error) {
	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.(*Image).image,
		ViewType: vk.ImageViewType2d,
		Format:   Format(format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     Aspect(aspect),
			BaseMipLevel:   0,
			LevelCount:     levels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if err := result("vk.CreateImageView()", vk.CreateImageView(d.device, &ivci, nil, &view)); err != nil {
		return nil, err
	}
	return &ImageView{device: d.device, view: view}, nil
}

// CreateSampler implements gfx.Device. Anisotropy is dropped when the
// device does not support it.
func (d *Device) CreateSampler(info gfx.SamplerInfo) (gfx.Sampler, error) {
	sci := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               filter(info.Filter),
		MinFilter:               filter(info.Filter),
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		BorderColor:             vk.BorderColorFloatOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MinLod:                  0,
		MaxLod:                  info.MaxLod,
	}
	if d.anisotropy && info.MaxAnisotropy > 1 {
		sci.AnisotropyEnable = vk.True
		sci.MaxAnisotropy = info.MaxAnisotropy
	}
	var sampler vk.Sampler
	if err := result("vk.CreateSampler()", vk.CreateSampler(d.device, &sci, nil, &sampler)); err != nil {
		return nil, err
	}
	return &Sampler{device: d.device, sampler: sampler}, nil
}

// CreateFence implements gfx.Device.
func (d *Device) CreateFence(signaled bool) (gfx.Fence, error) {
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fci.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if err := result("vk.CreateFence()", vk.CreateFence(d.device, &fci, nil, &fence)); err != nil {
		return nil, err
	}
	return &Fence{device: d.device, fence: fence}, nil
}

// CreateSemaphore implements gfx.Device.
func (d *Device) CreateSemaphore() (gfx.Semaphore, error) {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if err := result("vk.CreateSemaphore()", vk.CreateSemaphore(d.device, &sci, nil, &semaphore)); err != nil {
		return nil, err
	}
	return &Semaphore{device: d.device, semaphore: semaphore}, nil
}

func fences(fs []gfx.Fence) []vk.Fence {
	out := make([]vk.Fence, len(fs))
	for idx, f := range fs {
		out[idx] = f.(*Fence).fence
	}
	return out
}

func semaphores(ss []gfx.Semaphore) []vk.Semaphore {
	out := make([]vk.Semaphore, len(ss))
	for idx, s := range ss {
		out[idx] = s.(*Semaphore).semaphore
	}
	return out
}

// WaitForFences implements gfx.Device.
func (d *Device) WaitForFences(fs []gfx.Fence, ns uint64) error {
	return result("vk.WaitForFences()", vk.WaitForFences(d.device, uint32(len(fs)), fences(fs), vk.True, timeout(ns)))
}

// ResetFences implements gfx.Device.
func (d *Device) ResetFences(fs ...gfx.Fence) error {
	return result("vk.ResetFences()", vk.ResetFences(d.device, uint32(len(fs)), fences(fs)))
}

// AllocateCommandBuffers implements gfx.Device.
func (d *Device) AllocateCommandBuffers(n int) ([]gfx.CommandBuffer, error) {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(n),
	}
	buffers := make([]vk.CommandBuffer, n)
	if err := result("vk.AllocateCommandBuffers()", vk.AllocateCommandBuffers(d.device, &cbai, buffers)); err != nil {
		return nil, err
	}
	out := make([]gfx.CommandBuffer, n)
	for idx, cb := range buffers {
		out[idx] = &CommandBuffer{
			device: d.device,
			pool:   d.pool,
			buffer: cb,
		}
	}
	return out, nil
}

// Submit implements gfx.Device.
func (d *Device) Submit(info gfx.SubmitInfo, fence gfx.Fence) error {
	waitStages := make([]vk.PipelineStageFlags, len(info.WaitStages))
	for idx, s := range info.WaitStages {
		waitStages[idx] = Stages(s)
	}
	buffers := make([]vk.CommandBuffer, len(info.CommandBuffers))
	for idx, cb := range info.CommandBuffers {
		buffers[idx] = cb.(*CommandBuffer).buffer
	}
	si := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(info.Wait)),
		PWaitSemaphores:      semaphores(info.Wait),
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   uint32(len(buffers)),
		PCommandBuffers:      buffers,
		SignalSemaphoreCount: uint32(len(info.Signal)),
		PSignalSemaphores:    semaphores(info.Signal),
	}
	vkFence := vk.NullFence
	if fence != nil {
		vkFence = fence.(*Fence).fence
	}
	return result("vk.QueueSubmit()", vk.QueueSubmit(d.queue, 1, []vk.SubmitInfo{si}, vkFence))
}

// WaitQueueIdle implements gfx.Device.
func (d *Device) WaitQueueIdle() error {
	return result("vk.QueueWaitIdle()", vk.QueueWaitIdle(d.queue))
}

// WaitIdle implements gfx.Device.
func (d *Device) WaitIdle() error {
	return result("vk.DeviceWaitIdle()", vk.DeviceWaitIdle(d.device))
}

// CreateSwapchain implements gfx.Device.
func (d *Device) CreateSwapchain(surface gfx.Surface, info gfx.SwapchainInfo, old gfx.Swapchain) (gfx.Swapchain, error) {
	s := surface.(*Surface)
	oldSwapchain := vk.NullSwapchain
	if old != nil {
		oldSwapchain = old.(*Swapchain).swapchain
	}
	return newSwapchain(d, s, info, oldSwapchain)
}

// Destroy destroys the command pool and the device. Every object created
// from the device must be released before.
func (d *Device) Destroy() {
	vk.DestroyCommandPool(d.device, d.pool, nil)
	vk.DestroyDevice(d.device, nil)
}
