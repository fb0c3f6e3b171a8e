// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/framepace/gfx"
	vk "github.com/devblok/vulkan"
)

// CommandBuffer implements gfx.CommandBuffer. Draw commands are recorded
// directly on Handle by the renderer.
type CommandBuffer struct {
	device vk.Device
	pool   vk.CommandPool
	buffer vk.CommandBuffer
}

// Handle returns the vulkan command buffer.
func (c *CommandBuffer) Handle() vk.CommandBuffer {
	return c.buffer
}

// Begin implements gfx.CommandBuffer. Buffers that are not one-time may
// be resubmitted while pending.
func (c *CommandBuffer) Begin(oneTime bool) error {
	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit),
	}
	if oneTime {
		cbbi.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	return result("vk.BeginCommandBuffer()", vk.BeginCommandBuffer(c.buffer, &cbbi))
}

// End implements gfx.CommandBuffer.
func (c *CommandBuffer) End() error {
	return result("vk.EndCommandBuffer()", vk.EndCommandBuffer(c.buffer))
}

// Reset implements gfx.CommandBuffer.
func (c *CommandBuffer) Reset() error {
	return result("vk.ResetCommandBuffer()", vk.ResetCommandBuffer(c.buffer, vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit)))
}

// PipelineBarrier implements gfx.CommandBuffer.
func (c *CommandBuffer) PipelineBarrier(src, dst gfx.Stage, barriers ...gfx.ImageBarrier) {
	imbs := make([]vk.ImageMemoryBarrier, len(barriers))
	for idx, b := range barriers {
		imbs[idx] = vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       Access(b.SrcAccess),
			DstAccessMask:       Access(b.DstAccess),
			OldLayout:           Layout(b.OldLayout),
			NewLayout:           Layout(b.NewLayout),
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               b.Image.(*Image).image,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     Aspect(b.Aspect),
				BaseMipLevel:   b.BaseLevel,
				LevelCount:     b.LevelCount,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
	}
	vk.CmdPipelineBarrier(c.buffer, Stages(src), Stages(dst), 0, 0, nil, 0, nil, uint32(len(imbs)), imbs)
}

// CopyBuffer implements gfx.CommandBuffer.
func (c *CommandBuffer) CopyBuffer(src, dst gfx.Buffer, size uint64) {
	vk.CmdCopyBuffer(c.buffer, src.(*Buffer).buffer, dst.(*Buffer).buffer, 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(size),
	}})
}

func bufferImageCopy(region gfx.BufferImageCopy) vk.BufferImageCopy {
	return vk.BufferImageCopy{
		BufferOffset: vk.DeviceSize(region.BufferOffset),
		ImageOffset:  vk.Offset3D{},
		ImageExtent: vk.Extent3D{
			Width:  region.Extent.Width,
			Height: region.Extent.Height,
			Depth:  region.Extent.Depth,
		},
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     Aspect(region.Aspect),
			MipLevel:       region.Level,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
}

// CopyBufferToImage implements gfx.CommandBuffer.
func (c *CommandBuffer) CopyBufferToImage(src gfx.Buffer, dst gfx.Image, layout gfx.Layout, region gfx.BufferImageCopy) {
	vk.CmdCopyBufferToImage(c.buffer, src.(*Buffer).buffer, dst.(*Image).image, Layout(layout), 1, []vk.BufferImageCopy{bufferImageCopy(region)})
}

// CopyImageToBuffer implements gfx.CommandBuffer.
func (c *CommandBuffer) CopyImageToBuffer(src gfx.Image, layout gfx.Layout, dst gfx.Buffer, region gfx.BufferImageCopy) {
	vk.CmdCopyImageToBuffer(c.buffer, src.(*Image).image, Layout(layout), dst.(*Buffer).buffer, 1, []vk.BufferImageCopy{bufferImageCopy(region)})
}

// BlitImage implements gfx.CommandBuffer.
func (c *CommandBuffer) BlitImage(src gfx.Image, srcLayout gfx.Layout, dst gfx.Image, dstLayout gfx.Layout, blit gfx.Blit, f gfx.Filter) {
	region := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask:     Aspect(blit.Aspect),
			MipLevel:       blit.SrcLevel,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		SrcOffsets: [2]vk.Offset3D{{}, {
			X: int32(blit.SrcExtent.Width),
			Y: int32(blit.SrcExtent.Height),
			Z: int32(blit.SrcExtent.Depth),
		}},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask:     Aspect(blit.Aspect),
			MipLevel:       blit.DstLevel,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		DstOffsets: [2]vk.Offset3D{{}, {
			X: int32(blit.DstExtent.Width),
			Y: int32(blit.DstExtent.Height),
			Z: int32(blit.DstExtent.Depth),
		}},
	}
	vk.CmdBlitImage(c.buffer, src.(*Image).image, Layout(srcLayout), dst.(*Image).image, Layout(dstLayout), 1, []vk.ImageBlit{region}, filter(f))
}

// Release returns the buffer to its pool.
func (c *CommandBuffer) Release() {
	vk.FreeCommandBuffers(c.device, c.pool, 1, []vk.CommandBuffer{c.buffer})
}
