// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/framepace/gfx"
	vk "github.com/devblok/vulkan"
)

// bits maps every set bit of v to the entry of table at its position.
func bits(v uint32, table []uint32) uint32 {
	var out uint32
	for idx, flag := range table {
		if v&(1<<uint(idx)) != 0 {
			out |= flag
		}
	}
	return out
}

// unbits is the inverse of bits.
func unbits(v uint32, table []uint32) uint32 {
	var out uint32
	for idx, flag := range table {
		if v&flag != 0 {
			out |= 1 << uint(idx)
		}
	}
	return out
}

var layouts = [...]vk.ImageLayout{
	gfx.LayoutUndefined:              vk.ImageLayoutUndefined,
	gfx.LayoutTransferDst:            vk.ImageLayoutTransferDstOptimal,
	gfx.LayoutTransferSrc:            vk.ImageLayoutTransferSrcOptimal,
	gfx.LayoutShaderReadOnly:         vk.ImageLayoutShaderReadOnlyOptimal,
	gfx.LayoutDepthStencilAttachment: vk.ImageLayoutDepthStencilAttachmentOptimal,
	gfx.LayoutColorAttachment:        vk.ImageLayoutColorAttachmentOptimal,
	gfx.LayoutPresentSrc:             vk.ImageLayoutPresentSrc,
}

// Layout converts a layout.
func Layout(l gfx.Layout) vk.ImageLayout {
	return layouts[l]
}

var stages = []uint32{
	uint32(vk.PipelineStageTopOfPipeBit),
	uint32(vk.PipelineStageTransferBit),
	uint32(vk.PipelineStageVertexShaderBit),
	uint32(vk.PipelineStageFragmentShaderBit),
	uint32(vk.PipelineStageEarlyFragmentTestsBit),
	uint32(vk.PipelineStageColorAttachmentOutputBit),
	uint32(vk.PipelineStageBottomOfPipeBit),
	uint32(vk.PipelineStageHostBit),
}

// Stages converts pipeline stages.
func Stages(s gfx.Stage) vk.PipelineStageFlags {
	return vk.PipelineStageFlags(bits(uint32(s), stages))
}

var accesses = []uint32{
	uint32(vk.AccessTransferReadBit),
	uint32(vk.AccessTransferWriteBit),
	uint32(vk.AccessShaderReadBit),
	uint32(vk.AccessDepthStencilAttachmentReadBit),
	uint32(vk.AccessDepthStencilAttachmentWriteBit),
	uint32(vk.AccessColorAttachmentReadBit),
	uint32(vk.AccessColorAttachmentWriteBit),
	uint32(vk.AccessHostReadBit),
	uint32(vk.AccessHostWriteBit),
}

// Access converts memory access kinds.
func Access(a gfx.Access) vk.AccessFlags {
	return vk.AccessFlags(bits(uint32(a), accesses))
}

var memoryProperties = []uint32{
	uint32(vk.MemoryPropertyDeviceLocalBit),
	uint32(vk.MemoryPropertyHostVisibleBit),
	uint32(vk.MemoryPropertyHostCoherentBit),
	uint32(vk.MemoryPropertyHostCachedBit),
	uint32(vk.MemoryPropertyLazilyAllocatedBit),
}

func fromMemoryProperties(flags vk.MemoryPropertyFlags) gfx.MemoryProperty {
	return gfx.MemoryProperty(unbits(uint32(flags), memoryProperties))
}

var bufferUsages = []uint32{
	uint32(vk.BufferUsageTransferSrcBit),
	uint32(vk.BufferUsageTransferDstBit),
	uint32(vk.BufferUsageUniformBufferBit),
	uint32(vk.BufferUsageVertexBufferBit),
	uint32(vk.BufferUsageIndexBufferBit),
}

var imageUsages = []uint32{
	uint32(vk.ImageUsageTransferSrcBit),
	uint32(vk.ImageUsageTransferDstBit),
	uint32(vk.ImageUsageSampledBit),
	uint32(vk.ImageUsageColorAttachmentBit),
	uint32(vk.ImageUsageDepthStencilAttachmentBit),
	uint32(vk.ImageUsageTransientAttachmentBit),
}

var formats = [...]vk.Format{
	gfx.FormatUndefined:        vk.FormatUndefined,
	gfx.FormatR8G8B8A8Unorm:    vk.FormatR8g8b8a8Unorm,
	gfx.FormatR8G8B8A8Srgb:     vk.FormatR8g8b8a8Srgb,
	gfx.FormatB8G8R8A8Unorm:    vk.FormatB8g8r8a8Unorm,
	gfx.FormatB8G8R8A8Srgb:     vk.FormatB8g8r8a8Srgb,
	gfx.FormatD16Unorm:         vk.FormatD16Unorm,
	gfx.FormatD24UnormS8Uint:   vk.FormatD24UnormS8Uint,
	gfx.FormatD32Sfloat:        vk.FormatD32Sfloat,
	gfx.FormatD32SfloatS8Uint:  vk.FormatD32SfloatS8Uint,
	gfx.FormatX8D24UnormPack32: vk.FormatX8D24UnormPack32,
}

// Format converts a pixel format.
func Format(f gfx.Format) vk.Format {
	return formats[f]
}

func fromFormat(f vk.Format) gfx.Format {
	for idx, vf := range formats {
		if vf == f {
			return gfx.Format(idx)
		}
	}
	return gfx.FormatUndefined
}

func fromColorSpace(c vk.ColorSpace) gfx.ColorSpace {
	if c == vk.ColorSpaceSrgbNonlinear {
		return gfx.ColorSpaceSrgbNonlinear
	}
	return gfx.ColorSpaceOther
}

var presentModes = [...]vk.PresentMode{
	gfx.PresentModeImmediate:   vk.PresentModeImmediate,
	gfx.PresentModeMailbox:     vk.PresentModeMailbox,
	gfx.PresentModeFifo:        vk.PresentModeFifo,
	gfx.PresentModeFifoRelaxed: vk.PresentModeFifoRelaxed,
}

func fromPresentMode(m vk.PresentMode) (gfx.PresentMode, bool) {
	for idx, vm := range presentModes {
		if vm == m {
			return gfx.PresentMode(idx), true
		}
	}
	return 0, false
}

var aspects = []uint32{
	uint32(vk.ImageAspectColorBit),
	uint32(vk.ImageAspectDepthBit),
	uint32(vk.ImageAspectStencilBit),
}

// Aspect converts image aspects.
func Aspect(a gfx.Aspect) vk.ImageAspectFlags {
	return vk.ImageAspectFlags(bits(uint32(a), aspects))
}

func filter(f gfx.Filter) vk.Filter {
	if f == gfx.FilterLinear {
		return vk.FilterLinear
	}
	return vk.FilterNearest
}

var formatFeatures = []uint32{
	uint32(vk.FormatFeatureSampledImageBit),
	uint32(vk.FormatFeatureSampledImageFilterLinearBit),
	uint32(vk.FormatFeatureBlitSrcBit),
	uint32(vk.FormatFeatureBlitDstBit),
	uint32(vk.FormatFeatureColorAttachmentBit),
	uint32(vk.FormatFeatureDepthStencilAttachmentBit),
}

func descriptorType(t gfx.DescriptorType) vk.DescriptorType {
	if t == gfx.DescriptorCombinedImageSampler {
		return vk.DescriptorTypeCombinedImageSampler
	}
	return vk.DescriptorTypeUniformBuffer
}

var shaderStages = []uint32{
	uint32(vk.ShaderStageVertexBit),
	uint32(vk.ShaderStageFragmentBit),
}

// ShaderStages converts shader stages.
func ShaderStages(s gfx.ShaderStage) vk.ShaderStageFlags {
	return vk.ShaderStageFlags(bits(uint32(s), shaderStages))
}

// Samples converts a sample count, the flag bit of n samples is n.
func Samples(n uint32) vk.SampleCountFlagBits {
	if n == 0 {
		return vk.SampleCount1Bit
	}
	return vk.SampleCountFlagBits(n)
}
