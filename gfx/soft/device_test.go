// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package soft_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/pkg/errors"

	"github.com/devblok/framepace/gfx"
	"github.com/devblok/framepace/gfx/soft"
)

// hostBuffer creates a buffer bound to host visible memory.
func hostBuffer(c *qt.C, dev *soft.Device, data []byte, usage gfx.BufferUsage) (gfx.Buffer, gfx.Memory) {
	c.Helper()
	buf, err := dev.CreateBuffer(uint64(len(data)), usage)
	c.Assert(err, qt.IsNil)
	mem, err := dev.Allocate(buf.Requirements().Size, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(buf.Bind(mem), qt.IsNil)
	raw, err := mem.Map()
	c.Assert(err, qt.IsNil)
	copy(raw, data)
	mem.Unmap()
	return buf, mem
}

func record(c *qt.C, dev *soft.Device, fn func(cb gfx.CommandBuffer)) gfx.CommandBuffer {
	c.Helper()
	cbs, err := dev.AllocateCommandBuffers(1)
	c.Assert(err, qt.IsNil)
	c.Assert(cbs[0].Begin(true), qt.IsNil)
	fn(cbs[0])
	c.Assert(cbs[0].End(), qt.IsNil)
	return cbs[0]
}

func TestReleaseTwice(t *testing.T) {
	c := qt.New(t)
	dev := soft.NewDevice(soft.Config{})

	fence, err := dev.CreateFence(false)
	c.Assert(err, qt.IsNil)
	c.Assert(dev.Live(), qt.DeepEquals, []string{"fence"})
	fence.Release()
	fence.Release()
	c.Assert(dev.Live(), qt.HasLen, 0)
	c.Assert(dev.Violations(), qt.DeepEquals, []string{"release of *soft.Fence that is not alive"})
}

func TestCopyNeedsBarrier(t *testing.T) {
	c := qt.New(t)
	dev := soft.NewDevice(soft.Config{})

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	src, _ := hostBuffer(c, dev, data, gfx.BufferTransferSrc)
	img, err := dev.CreateImage(gfx.ImageInfo{
		Format: gfx.FormatR8G8B8A8Unorm,
		Extent: gfx.Extent3D{Width: 2, Height: 2, Depth: 1},
		Usage:  gfx.ImageTransferDst,
	})
	c.Assert(err, qt.IsNil)
	region := gfx.BufferImageCopy{Aspect: gfx.AspectColor, Extent: gfx.Extent3D{Width: 2, Height: 2, Depth: 1}}

	cb := record(c, dev, func(cb gfx.CommandBuffer) {
		cb.CopyBufferToImage(src, img, gfx.LayoutTransferDst, region)
	})
	c.Assert(dev.Submit(gfx.SubmitInfo{CommandBuffers: []gfx.CommandBuffer{cb}}, nil), qt.IsNil)
	c.Assert(dev.Violations(), qt.HasLen, 0)
	c.Assert(dev.WaitQueueIdle(), qt.IsNil)

	violations := dev.Violations()
	c.Assert(violations, qt.HasLen, 2)
	c.Assert(violations[0], qt.Equals, "copy to image level 0 in layout undefined, given transfer-dst, needs transfer-dst")
	c.Assert(violations[1], qt.Equals, "copy to image level 0 without a barrier making transfer writes available")

	dev = soft.NewDevice(soft.Config{})
	src, _ = hostBuffer(c, dev, data, gfx.BufferTransferSrc)
	img, err = dev.CreateImage(gfx.ImageInfo{
		Format: gfx.FormatR8G8B8A8Unorm,
		Extent: gfx.Extent3D{Width: 2, Height: 2, Depth: 1},
		Usage:  gfx.ImageTransferDst,
	})
	c.Assert(err, qt.IsNil)
	cb = record(c, dev, func(cb gfx.CommandBuffer) {
		cb.PipelineBarrier(gfx.StageTopOfPipe, gfx.StageTransfer, gfx.ImageBarrier{
			Image:      img,
			OldLayout:  gfx.LayoutUndefined,
			NewLayout:  gfx.LayoutTransferDst,
			DstAccess:  gfx.AccessTransferWrite,
			Aspect:     gfx.AspectColor,
			LevelCount: 1,
		})
		cb.CopyBufferToImage(src, img, gfx.LayoutTransferDst, region)
	})
	c.Assert(dev.Submit(gfx.SubmitInfo{CommandBuffers: []gfx.CommandBuffer{cb}}, nil), qt.IsNil)
	c.Assert(dev.WaitQueueIdle(), qt.IsNil)
	c.Assert(dev.Violations(), qt.HasLen, 0)
	c.Assert(dev.Audit(), qt.HasLen, 1)

	lvl := img.(*soft.Image).Levels()[0]
	c.Assert(lvl.Layout, qt.Equals, gfx.LayoutTransferDst)
	c.Assert(lvl.Data, qt.DeepEquals, data)
}

func TestBarrierStageCoverage(t *testing.T) {
	c := qt.New(t)
	dev := soft.NewDevice(soft.Config{})
	img, err := dev.CreateImage(gfx.ImageInfo{
		Format: gfx.FormatR8G8B8A8Unorm,
		Extent: gfx.Extent3D{Width: 1, Height: 1, Depth: 1},
	})
	c.Assert(err, qt.IsNil)

	cb := record(c, dev, func(cb gfx.CommandBuffer) {
		cb.PipelineBarrier(gfx.StageTopOfPipe, gfx.StageVertexShader, gfx.ImageBarrier{
			Image:      img,
			NewLayout:  gfx.LayoutTransferDst,
			DstAccess:  gfx.AccessTransferWrite,
			Aspect:     gfx.AspectColor,
			LevelCount: 1,
		})
	})
	c.Assert(dev.Submit(gfx.SubmitInfo{CommandBuffers: []gfx.CommandBuffer{cb}}, nil), qt.IsNil)
	c.Assert(dev.WaitQueueIdle(), qt.IsNil)
	c.Assert(dev.Violations(), qt.HasLen, 1)
	c.Assert(dev.Violations()[0], qt.Matches, `destination access .* is not performed by stages .*`)
}

func TestSameImageInFlight(t *testing.T) {
	c := qt.New(t)
	dev := soft.NewDevice(soft.Config{})
	img, err := dev.CreateImage(gfx.ImageInfo{
		Format: gfx.FormatB8G8R8A8Srgb,
		Extent: gfx.Extent3D{Width: 4, Height: 4, Depth: 1},
	})
	c.Assert(err, qt.IsNil)

	draw := func(cb gfx.CommandBuffer) { cb.(*soft.CommandBuffer).Draw(img) }
	first, second := record(c, dev, draw), record(c, dev, draw)
	c.Assert(dev.Submit(gfx.SubmitInfo{CommandBuffers: []gfx.CommandBuffer{first}}, nil), qt.IsNil)
	c.Assert(dev.Submit(gfx.SubmitInfo{CommandBuffers: []gfx.CommandBuffer{second}}, nil), qt.IsNil)
	c.Assert(dev.Violations(), qt.HasLen, 1)
	c.Assert(dev.Violations()[0], qt.Matches, `image .* written by submissions 0 and 1 in flight together`)

	c.Assert(dev.WaitQueueIdle(), qt.IsNil)
	third := record(c, dev, draw)
	c.Assert(dev.Submit(gfx.SubmitInfo{CommandBuffers: []gfx.CommandBuffer{third}}, nil), qt.IsNil)
	c.Assert(dev.Violations(), qt.HasLen, 1)
}

func TestFences(t *testing.T) {
	c := qt.New(t)
	dev := soft.NewDevice(soft.Config{})

	idle, err := dev.CreateFence(false)
	c.Assert(err, qt.IsNil)
	err = dev.WaitForFences([]gfx.Fence{idle}, gfx.Forever)
	c.Assert(errors.Is(err, gfx.ErrTimeout), qt.IsTrue)
	c.Assert(dev.Violations(), qt.DeepEquals, []string{"wait on fence that will never be signalled"})

	dev = soft.NewDevice(soft.Config{})
	fences := make([]gfx.Fence, 3)
	for i := range fences {
		fences[i], err = dev.CreateFence(false)
		c.Assert(err, qt.IsNil)
		c.Assert(dev.Submit(gfx.SubmitInfo{}, fences[i]), qt.IsNil)
	}
	c.Assert(dev.MaxInFlight(), qt.Equals, 3)
	c.Assert(dev.Submissions(), qt.Equals, 3)

	fences[2].Release()
	c.Assert(dev.Violations(), qt.DeepEquals, []string{"release of fence used by pending work"})

	c.Assert(dev.WaitForFences(fences[:1], gfx.Forever), qt.IsNil)
	c.Assert(fences[0].(*soft.Fence).Signaled(), qt.IsTrue)
	c.Assert(fences[1].(*soft.Fence).Signaled(), qt.IsFalse)
	c.Assert(dev.ResetFences(fences[0]), qt.IsNil)
	c.Assert(fences[0].(*soft.Fence).Signaled(), qt.IsFalse)
	c.Assert(dev.WaitIdle(), qt.IsNil)
	c.Assert(dev.MaxInFlight(), qt.Equals, 3)
}

func TestHostAccessWhileRead(t *testing.T) {
	c := qt.New(t)
	dev := soft.NewDevice(soft.Config{})

	data := []byte{9, 8, 7, 6}
	src, mem := hostBuffer(c, dev, data, gfx.BufferTransferSrc)
	dst, _ := hostBuffer(c, dev, make([]byte, 4), gfx.BufferTransferDst)

	cb := record(c, dev, func(cb gfx.CommandBuffer) {
		cb.CopyBuffer(src, dst, 4)
	})
	c.Assert(dev.Submit(gfx.SubmitInfo{CommandBuffers: []gfx.CommandBuffer{cb}}, nil), qt.IsNil)

	_, err := mem.Map()
	c.Assert(err, qt.IsNil)
	mem.Unmap()
	c.Assert(dev.Violations(), qt.DeepEquals, []string{"host access to buffer read by pending work"})

	c.Assert(dev.WaitQueueIdle(), qt.IsNil)
	c.Assert(dst.(*soft.Buffer).Bytes(), qt.DeepEquals, data)
	c.Assert(dev.Violations(), qt.HasLen, 1)
}

func TestDeviceLocalMemoryIsNotMappable(t *testing.T) {
	c := qt.New(t)
	dev := soft.NewDevice(soft.Config{})

	mem, err := dev.Allocate(64, 0)
	c.Assert(err, qt.IsNil)
	_, err = mem.Map()
	c.Assert(err, qt.ErrorMatches, "soft.Map\\(\\): memory not host visible")

	_, err = dev.Allocate(64, 7)
	c.Assert(errors.Is(err, gfx.ErrOutOfMemory), qt.IsTrue)
}
