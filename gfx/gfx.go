// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines the explicit GPU device model that renderers drive.
// Backends implement it: vkr on top of Vulkan, soft as a validating
// CPU emulation used by tests.
package gfx

import "github.com/pkg/errors"

// Results a backend reports for device calls.
var (
	ErrOutOfDate     = errors.New("surface out of date")
	ErrDeviceLost    = errors.New("device lost")
	ErrTimeout       = errors.New("wait timed out")
	ErrOutOfMemory   = errors.New("out of device memory")
	ErrPoolExhausted = errors.New("descriptor pool exhausted")
)

// Forever is the timeout that never expires.
const Forever = ^uint64(0)

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// Memory is a block of device memory.
type Memory interface {
	Releasable

	// Size returns the size of the block in bytes.
	Size() uint64

	// Map makes the whole block visible to the host. Only memory with
	// MemoryHostVisible can be mapped.
	Map() ([]byte, error)

	// Unmap removes the mapping returned by Map.
	Unmap()
}

// Buffer is a linear array of device data.
type Buffer interface {
	Releasable

	// Size returns the size requested at creation.
	Size() uint64

	// Requirements returns what the backing memory must satisfy.
	Requirements() MemoryRequirements

	// Bind attaches memory to the buffer, it is done exactly once.
	Bind(Memory) error
}

// Image is a multi-level texel array.
type Image interface {
	Releasable

	// Info returns the parameters the image was created with.
	Info() ImageInfo

	// Requirements returns what the backing memory must satisfy.
	Requirements() MemoryRequirements

	// Bind attaches memory to the image, it is done exactly once.
	Bind(Memory) error
}

// ImageView is a view of an image usable by descriptors and framebuffers.
type ImageView interface {
	Releasable
}

// Sampler holds the sampling state for textures.
type Sampler interface {
	Releasable
}

// Fence is a completion signal observable by the host.
type Fence interface {
	Releasable
}

// Semaphore orders work on the device without host involvement.
type Semaphore interface {
	Releasable
}

// DescriptorLayout describes the bindings of descriptor sets.
type DescriptorLayout interface {
	Releasable
}

// DescriptorSet is an allocated set of descriptors.
type DescriptorSet interface{}

// DescriptorPool allocates descriptor sets. Releasing the pool frees
// every set allocated from it.
type DescriptorPool interface {
	Releasable

	// Allocate allocates n sets of the given layout.
	Allocate(layout DescriptorLayout, n int) ([]DescriptorSet, error)
}

// CommandBuffer records commands for the device queue.
type CommandBuffer interface {
	Releasable

	// Begin starts recording. oneTime marks buffers submitted only once.
	Begin(oneTime bool) error

	// End finishes recording.
	End() error

	// Reset discards recorded commands.
	Reset() error

	// PipelineBarrier inserts an execution and memory dependency with
	// image layout transitions.
	PipelineBarrier(src, dst Stage, barriers ...ImageBarrier)

	// CopyBuffer copies size bytes from the start of src to the start of dst.
	CopyBuffer(src, dst Buffer, size uint64)

	// CopyBufferToImage copies buffer data into one level of an image
	// that is in the given layout.
	CopyBufferToImage(src Buffer, dst Image, layout Layout, region BufferImageCopy)

	// CopyImageToBuffer copies one level of an image into a buffer.
	CopyImageToBuffer(src Image, layout Layout, dst Buffer, region BufferImageCopy)

	// BlitImage copies between levels with scaling and filtering.
	BlitImage(src Image, srcLayout Layout, dst Image, dstLayout Layout, blit Blit, filter Filter)
}

// Surface is a presentation target as seen by the device.
type Surface interface {
	Capabilities() (SurfaceCapabilities, error)
	Formats() ([]SurfaceFormat, error)
	PresentModes() ([]PresentMode, error)
}

// Swapchain is the ordered set of presentable images of a surface.
type Swapchain interface {
	Releasable

	// Images returns the presentable images in index order.
	Images() []Image

	// Acquire returns the index of the next image and signals the semaphore
	// once it can be written to. A suboptimal swapchain still works, but
	// should be recreated when convenient. Returns ErrOutOfDate when the
	// swapchain no longer matches its surface.
	Acquire(signal Semaphore) (index uint32, suboptimal bool, err error)

	// Present queues the image for display after wait is signalled.
	Present(index uint32, wait Semaphore) (suboptimal bool, err error)
}

// Device is the logical connection to a GPU together with the single
// queue and command pool the renderer uses. It must not be used
// concurrently from more than one goroutine.
type Device interface {
	// MemoryTypes returns the memory types in index order.
	MemoryTypes() []MemoryType

	// FormatFeatures returns the features of the format with optimal tiling.
	FormatFeatures(Format) FormatFeature

	CreateBuffer(size uint64, usage BufferUsage) (Buffer, error)
	CreateImage(info ImageInfo) (Image, error)
	Allocate(size uint64, memoryType uint32) (Memory, error)
	CreateImageView(img Image, format Format, aspect Aspect, levels uint32) (ImageView, error)
	CreateSampler(info SamplerInfo) (Sampler, error)

	CreateFence(signaled bool) (Fence, error)
	CreateSemaphore() (Semaphore, error)

	// WaitForFences blocks until every fence is signalled or the timeout
	// in nanoseconds passes.
	WaitForFences(fences []Fence, timeout uint64) error
	ResetFences(fences ...Fence) error

	AllocateCommandBuffers(n int) ([]CommandBuffer, error)

	// Submit hands the batch to the queue, fence may be nil.
	Submit(info SubmitInfo, fence Fence) error

	// WaitQueueIdle blocks until the queue has no pending work.
	WaitQueueIdle() error

	// WaitIdle blocks until the whole device has no pending work.
	WaitIdle() error

	CreateDescriptorLayout(bindings []DescriptorBinding) (DescriptorLayout, error)
	CreateDescriptorPool(maxSets uint32, sizes []DescriptorPoolSize) (DescriptorPool, error)
	UpdateDescriptorSet(set DescriptorSet, writes ...DescriptorWrite)

	// CreateSwapchain creates a swapchain for the surface, old may be nil and
	// is retired by the call.
	CreateSwapchain(surface Surface, info SwapchainInfo, old Swapchain) (Swapchain, error)
}
