// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import "math"

// UndefinedExtent marks a surface extent that is decided by the swapchain.
const UndefinedExtent = math.MaxUint32

// Layout is the arrangement of image memory expected by the next access.
type Layout int

// Image layouts.
const (
	LayoutUndefined Layout = iota
	LayoutTransferDst
	LayoutTransferSrc
	LayoutShaderReadOnly
	LayoutDepthStencilAttachment
	LayoutColorAttachment
	LayoutPresentSrc
)

var layoutNames = [...]string{
	"undefined",
	"transfer-dst",
	"transfer-src",
	"shader-read-only",
	"depth-stencil-attachment",
	"color-attachment",
	"present-src",
}

func (l Layout) String() string {
	if l < 0 || int(l) >= len(layoutNames) {
		return "unknown"
	}
	return layoutNames[l]
}

// Stage is a set of pipeline stages.
type Stage uint32

// Pipeline stages.
const (
	StageTopOfPipe Stage = 1 << iota
	StageTransfer
	StageVertexShader
	StageFragmentShader
	StageEarlyFragmentTests
	StageColorAttachmentOutput
	StageBottomOfPipe
	StageHost
)

// Access is a set of memory access kinds.
type Access uint32

// Memory access kinds. AccessNone is the empty set.
const (
	AccessTransferRead Access = 1 << iota
	AccessTransferWrite
	AccessShaderRead
	AccessDepthStencilRead
	AccessDepthStencilWrite
	AccessColorAttachmentRead
	AccessColorAttachmentWrite
	AccessHostRead
	AccessHostWrite

	AccessNone Access = 0
)

// Writes reports the write kinds contained in a.
func (a Access) Writes() Access {
	return a & (AccessTransferWrite | AccessDepthStencilWrite | AccessColorAttachmentWrite | AccessHostWrite)
}

// MemoryProperty is a set of memory type properties.
type MemoryProperty uint32

// Memory type properties.
const (
	MemoryDeviceLocal MemoryProperty = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
	MemoryHostCached
	MemoryLazilyAllocated
)

// BufferUsage is a set of permitted buffer usages.
type BufferUsage uint32

// Buffer usages.
const (
	BufferTransferSrc BufferUsage = 1 << iota
	BufferTransferDst
	BufferUniform
	BufferVertex
	BufferIndex
)

// ImageUsage is a set of permitted image usages.
type ImageUsage uint32

// Image usages.
const (
	ImageTransferSrc ImageUsage = 1 << iota
	ImageTransferDst
	ImageSampled
	ImageColorAttachment
	ImageDepthStencilAttachment
	ImageTransientAttachment
)

// Format is a pixel format.
type Format int

// Pixel formats.
const (
	FormatUndefined Format = iota
	FormatR8G8B8A8Unorm
	FormatR8G8B8A8Srgb
	FormatB8G8R8A8Unorm
	FormatB8G8R8A8Srgb
	FormatD16Unorm
	FormatD24UnormS8Uint
	FormatD32Sfloat
	FormatD32SfloatS8Uint
	FormatX8D24UnormPack32
)

// HasStencil reports whether the format carries a stencil component.
func (f Format) HasStencil() bool {
	return f == FormatD24UnormS8Uint || f == FormatD32SfloatS8Uint
}

// HasDepth reports whether the format is a depth format.
func (f Format) HasDepth() bool {
	switch f {
	case FormatD16Unorm, FormatD24UnormS8Uint, FormatD32Sfloat, FormatD32SfloatS8Uint, FormatX8D24UnormPack32:
		return true
	}
	return false
}

// TexelSize returns the number of bytes of a single texel.
func (f Format) TexelSize() int {
	switch f {
	case FormatD16Unorm:
		return 2
	case FormatD32SfloatS8Uint:
		return 8
	case FormatUndefined:
		return 0
	}
	return 4
}

// ColorSpace is a presentation colour space.
type ColorSpace int

// Colour spaces.
const (
	ColorSpaceSrgbNonlinear ColorSpace = iota
	ColorSpaceExtendedSrgbLinear
	ColorSpaceOther
)

// PresentMode is the way a swapchain queues images for display.
type PresentMode int

// Present modes.
const (
	PresentModeImmediate PresentMode = iota
	PresentModeMailbox
	PresentModeFifo
	PresentModeFifoRelaxed
)

var presentModeNames = [...]string{"immediate", "mailbox", "fifo", "fifo-relaxed"}

func (p PresentMode) String() string {
	if p < 0 || int(p) >= len(presentModeNames) {
		return "unknown"
	}
	return presentModeNames[p]
}

// ParsePresentMode is the inverse of PresentMode.String.
func ParsePresentMode(s string) (PresentMode, bool) {
	for idx, name := range presentModeNames {
		if name == s {
			return PresentMode(idx), true
		}
	}
	return PresentModeFifo, false
}

// Aspect selects the planes of an image.
type Aspect uint32

// Image aspects.
const (
	AspectColor Aspect = 1 << iota
	AspectDepth
	AspectStencil
)

// Filter is a sampling filter.
type Filter int

// Filters.
const (
	FilterNearest Filter = iota
	FilterLinear
)

// FormatFeature is a set of operations supported on a format.
type FormatFeature uint32

// Format features of optimal tiling images.
const (
	FeatureSampledImage FormatFeature = 1 << iota
	FeatureSampledImageFilterLinear
	FeatureBlitSrc
	FeatureBlitDst
	FeatureColorAttachment
	FeatureDepthStencilAttachment
)

// DescriptorType is the kind of resource a descriptor refers to.
type DescriptorType int

// Descriptor types.
const (
	DescriptorUniformBuffer DescriptorType = iota
	DescriptorCombinedImageSampler
)

// ShaderStage is a set of shader stages.
type ShaderStage uint32

// Shader stages.
const (
	ShaderVertex ShaderStage = 1 << iota
	ShaderFragment
)

// Extent2D is a two dimensional size in pixels.
type Extent2D struct {
	Width, Height uint32
}

// Empty reports whether the extent has no area.
func (e Extent2D) Empty() bool {
	return e.Width == 0 || e.Height == 0
}

// Extent3D is a three dimensional size in texels.
type Extent3D struct {
	Width, Height, Depth uint32
}

// MemoryType describes one memory type of the device.
type MemoryType struct {
	Properties MemoryProperty
	Heap       uint32
}

// MemoryRequirements is what the device demands from the memory backing an object.
type MemoryRequirements struct {
	Size      uint64
	Alignment uint64
	TypeBits  uint32
}

// SurfaceCapabilities are the limits a surface imposes on swapchains.
// A CurrentExtent of UndefinedExtent means the swapchain decides.
type SurfaceCapabilities struct {
	MinImageCount uint32
	MaxImageCount uint32 // zero means no limit
	CurrentExtent Extent2D
	MinExtent     Extent2D
	MaxExtent     Extent2D
}

// SurfaceFormat is a format and colour space pair supported by a surface.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// ImageInfo describes an image to create.
type ImageInfo struct {
	Format  Format
	Extent  Extent3D
	Levels  uint32
	Samples uint32
	Usage   ImageUsage
}

// ImageBarrier is a layout transition and memory dependency on a range of levels.
type ImageBarrier struct {
	Image      Image
	OldLayout  Layout
	NewLayout  Layout
	SrcAccess  Access
	DstAccess  Access
	Aspect     Aspect
	BaseLevel  uint32
	LevelCount uint32
}

// BufferImageCopy is a region copied between a buffer and one image level.
type BufferImageCopy struct {
	BufferOffset uint64
	Aspect       Aspect
	Level        uint32
	Extent       Extent3D
}

// Blit copies a whole level into another level with scaling.
type Blit struct {
	Aspect    Aspect
	SrcLevel  uint32
	SrcExtent Extent3D
	DstLevel  uint32
	DstExtent Extent3D
}

// SubmitInfo is one batch of command buffers for the queue.
type SubmitInfo struct {
	Wait           []Semaphore
	WaitStages     []Stage
	CommandBuffers []CommandBuffer
	Signal         []Semaphore
}

// DescriptorBinding is one binding of a descriptor layout.
type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
	Stages  ShaderStage
}

// DescriptorPoolSize reserves Count descriptors of one type in a pool.
type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

// ImageSampler pairs a view with a sampler for combined image sampler descriptors.
type ImageSampler struct {
	View    ImageView
	Sampler Sampler
	Layout  Layout
}

// DescriptorWrite updates descriptors of one binding starting at ArrayElement.
type DescriptorWrite struct {
	Binding      uint32
	ArrayElement uint32
	Type         DescriptorType
	Buffer       Buffer
	Range        uint64
	Images       []ImageSampler
}

// SwapchainInfo describes a swapchain to create.
type SwapchainInfo struct {
	ImageCount  uint32
	Format      SurfaceFormat
	Extent      Extent2D
	PresentMode PresentMode
}

// SamplerInfo describes a texture sampler.
type SamplerInfo struct {
	Filter        Filter
	MaxLod        float32
	MaxAnisotropy float32
}
