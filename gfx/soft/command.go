// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package soft

import (
	"github.com/devblok/framepace/gfx"
	"github.com/pkg/errors"
)

// Barrier is one executed image barrier as seen by the audit log.
type Barrier struct {
	SrcStage  gfx.Stage
	DstStage  gfx.Stage
	SrcAccess gfx.Access
	DstAccess gfx.Access
	OldLayout gfx.Layout
	NewLayout gfx.Layout
	Aspect    gfx.Aspect
	BaseLevel uint32
	Levels    uint32
}

type op struct {
	run    func()
	target *Image
	reads  []*Buffer
}

// CommandBuffer implements gfx.CommandBuffer. Recorded commands run when
// the queue reaches the submission that carries them.
type CommandBuffer struct {
	device    *Device
	recording bool
	ops       []op
}

// Begin implements gfx.CommandBuffer.
func (c *CommandBuffer) Begin(oneTime bool) error {
	if c.recording {
		return errors.New("soft.BeginCommandBuffer(): already recording")
	}
	c.recording = true
	c.ops = c.ops[:0]
	return nil
}

// End implements gfx.CommandBuffer.
func (c *CommandBuffer) End() error {
	if !c.recording {
		return errors.New("soft.EndCommandBuffer(): not recording")
	}
	c.recording = false
	return nil
}

// Reset implements gfx.CommandBuffer.
func (c *CommandBuffer) Reset() error {
	c.recording = false
	c.ops = c.ops[:0]
	return nil
}

// Release implements gfx.Releasable.
func (c *CommandBuffer) Release() {
	c.device.untrack(c)
}

func (c *CommandBuffer) record(o op) {
	if !c.recording {
		c.device.violate("command recorded outside Begin/End")
	}
	c.ops = append(c.ops, o)
}

func (c *CommandBuffer) execute() {
	for _, o := range c.ops {
		if o.run != nil {
			o.run()
		}
	}
}

// Draw records rendering into a presentable image reading the given
// buffers, the emulated part of a render pass.
func (c *CommandBuffer) Draw(target gfx.Image, reads ...gfx.Buffer) {
	img, _ := target.(*Image)
	o := op{target: img}
	for _, r := range reads {
		if b, ok := r.(*Buffer); ok {
			o.reads = append(o.reads, b)
		}
	}
	o.run = func() {
		if img != nil {
			img.levels[0].Layout = gfx.LayoutPresentSrc
			img.levels[0].pending = 0
		}
	}
	c.record(o)
}

// PipelineBarrier implements gfx.CommandBuffer.
func (c *CommandBuffer) PipelineBarrier(src, dst gfx.Stage, barriers ...gfx.ImageBarrier) {
	bs := append([]gfx.ImageBarrier(nil), barriers...)
	c.record(op{run: func() {
		for _, b := range bs {
			c.device.barrier(src, dst, b)
		}
	}})
}

// CopyBuffer implements gfx.CommandBuffer.
func (c *CommandBuffer) CopyBuffer(src, dst gfx.Buffer, size uint64) {
	s, d := src.(*Buffer), dst.(*Buffer)
	c.record(op{reads: []*Buffer{s}, run: func() {
		if s.usage&gfx.BufferTransferSrc == 0 || d.usage&gfx.BufferTransferDst == 0 {
			c.device.violate("buffer copy without transfer usage")
		}
		if s.memory == nil || d.memory == nil {
			c.device.violate("buffer copy with unbound buffer")
			return
		}
		if size > s.size || size > d.size {
			c.device.violate("buffer copy of %d bytes out of range", size)
			return
		}
		copy(d.Bytes()[:size], s.Bytes()[:size])
	}})
}

// CopyBufferToImage implements gfx.CommandBuffer.
func (c *CommandBuffer) CopyBufferToImage(src gfx.Buffer, dst gfx.Image, layout gfx.Layout, region gfx.BufferImageCopy) {
	s, d := src.(*Buffer), dst.(*Image)
	c.record(op{reads: []*Buffer{s}, run: func() {
		lvl := c.device.level(d, region.Level)
		if lvl == nil {
			return
		}
		c.device.checkWrite(d, region.Level, layout, gfx.LayoutTransferDst, "copy to image")
		if region.Extent != lvl.Extent {
			c.device.violate("copy to image level %d with extent %v, level is %v", region.Level, region.Extent, lvl.Extent)
			return
		}
		from := s.Bytes()[region.BufferOffset:]
		if len(from) < len(lvl.Data) {
			c.device.violate("copy to image reads past end of buffer")
			return
		}
		copy(lvl.Data, from)
	}})
}

// CopyImageToBuffer implements gfx.CommandBuffer.
func (c *CommandBuffer) CopyImageToBuffer(src gfx.Image, layout gfx.Layout, dst gfx.Buffer, region gfx.BufferImageCopy) {
	s, d := src.(*Image), dst.(*Buffer)
	c.record(op{run: func() {
		lvl := c.device.level(s, region.Level)
		if lvl == nil {
			return
		}
		c.device.checkRead(s, region.Level, layout, gfx.LayoutTransferSrc, "copy from image")
		to := d.Bytes()[region.BufferOffset:]
		if len(to) < len(lvl.Data) {
			c.device.violate("copy from image writes past end of buffer")
			return
		}
		copy(to, lvl.Data)
	}})
}

// BlitImage implements gfx.CommandBuffer.
func (c *CommandBuffer) BlitImage(src gfx.Image, srcLayout gfx.Layout, dst gfx.Image, dstLayout gfx.Layout, blit gfx.Blit, filter gfx.Filter) {
	s, d := src.(*Image), dst.(*Image)
	c.record(op{run: func() {
		features := c.device.FormatFeatures(s.info.Format)
		if features&gfx.FeatureBlitSrc == 0 || features&gfx.FeatureBlitDst == 0 {
			c.device.violate("blit of format %d without blit support", s.info.Format)
		}
		if filter == gfx.FilterLinear && features&gfx.FeatureSampledImageFilterLinear == 0 {
			c.device.violate("linear blit of format %d without linear filter support", s.info.Format)
		}
		from, to := c.device.level(s, blit.SrcLevel), c.device.level(d, blit.DstLevel)
		if from == nil || to == nil {
			return
		}
		c.device.checkRead(s, blit.SrcLevel, srcLayout, gfx.LayoutTransferSrc, "blit source")
		c.device.checkWrite(d, blit.DstLevel, dstLayout, gfx.LayoutTransferDst, "blit destination")
		if blit.SrcExtent != from.Extent || blit.DstExtent != to.Extent {
			c.device.violate("blit %v -> %v does not cover levels %v -> %v", blit.SrcExtent, blit.DstExtent, from.Extent, to.Extent)
			return
		}
		downsample(from, to, s.info.Format.TexelSize())
	}})
}

func (d *Device) level(img *Image, n uint32) *Level {
	if int(n) >= len(img.levels) {
		d.violate("access to level %d of image with %d levels", n, len(img.levels))
		return nil
	}
	return img.levels[n]
}

// checkWrite validates a transfer write into a level and records it.
func (d *Device) checkWrite(img *Image, n uint32, given, want gfx.Layout, what string) {
	lvl := img.levels[n]
	if given != want || lvl.Layout != want {
		d.violate("%s level %d in layout %s, given %s, needs %s", what, n, lvl.Layout, given, want)
	}
	if lvl.visible&gfx.AccessTransferWrite == 0 {
		d.violate("%s level %d without a barrier making transfer writes available", what, n)
	}
	if lvl.pending != 0 {
		d.violate("%s level %d: write after write without a barrier", what, n)
	}
	lvl.pending |= gfx.AccessTransferWrite
}

// checkRead validates a transfer read from a level.
func (d *Device) checkRead(img *Image, n uint32, given, want gfx.Layout, what string) {
	lvl := img.levels[n]
	if given != want || lvl.Layout != want {
		d.violate("%s level %d in layout %s, given %s, needs %s", what, n, lvl.Layout, given, want)
	}
	if lvl.visible&gfx.AccessTransferRead == 0 {
		d.violate("%s level %d without a barrier making transfer reads visible", what, n)
	}
	if lvl.pending != 0 {
		d.violate("%s level %d: read after write without a barrier", what, n)
	}
}

// barrier executes one image barrier, checking it against tracked state.
func (d *Device) barrier(src, dst gfx.Stage, b gfx.ImageBarrier) {
	d.audit = append(d.audit, Barrier{
		SrcStage:  src,
		DstStage:  dst,
		SrcAccess: b.SrcAccess,
		DstAccess: b.DstAccess,
		OldLayout: b.OldLayout,
		NewLayout: b.NewLayout,
		Aspect:    b.Aspect,
		BaseLevel: b.BaseLevel,
		Levels:    b.LevelCount,
	})

	if !stageCovers(src, b.SrcAccess) {
		d.violate("source access %b is not performed by stages %b", b.SrcAccess, src)
	}
	if !stageCovers(dst, b.DstAccess) {
		d.violate("destination access %b is not performed by stages %b", b.DstAccess, dst)
	}

	img, ok := b.Image.(*Image)
	if !ok {
		d.violate("barrier on foreign image %T", b.Image)
		return
	}
	if b.NewLayout == gfx.LayoutUndefined {
		d.violate("transition into undefined layout")
	}
	if b.NewLayout == gfx.LayoutDepthStencilAttachment {
		want := gfx.AspectDepth
		if img.info.Format.HasStencil() {
			want |= gfx.AspectStencil
		}
		if b.Aspect != want {
			d.violate("depth transition with aspect %b, format needs %b", b.Aspect, want)
		}
	}
	for n := b.BaseLevel; n < b.BaseLevel+b.LevelCount; n++ {
		lvl := d.level(img, n)
		if lvl == nil {
			return
		}
		if b.OldLayout != gfx.LayoutUndefined && b.OldLayout != lvl.Layout {
			d.violate("barrier on level %d from %s, level is in %s", n, b.OldLayout, lvl.Layout)
		}
		if missing := lvl.pending &^ b.SrcAccess; missing != 0 {
			d.violate("barrier on level %d does not make writes %b available", n, missing)
		}
		lvl.Layout = b.NewLayout
		lvl.pending = 0
		lvl.visible = b.DstAccess
	}
}

// stageCovers reports whether every access kind can happen in the stages.
func stageCovers(stages gfx.Stage, access gfx.Access) bool {
	need := func(a gfx.Access, s gfx.Stage) bool {
		return access&a == 0 || stages&s != 0
	}
	return need(gfx.AccessTransferRead|gfx.AccessTransferWrite, gfx.StageTransfer) &&
		need(gfx.AccessShaderRead, gfx.StageVertexShader|gfx.StageFragmentShader) &&
		need(gfx.AccessDepthStencilRead|gfx.AccessDepthStencilWrite, gfx.StageEarlyFragmentTests) &&
		need(gfx.AccessColorAttachmentRead|gfx.AccessColorAttachmentWrite, gfx.StageColorAttachmentOutput) &&
		need(gfx.AccessHostRead|gfx.AccessHostWrite, gfx.StageHost)
}

// downsample fills to from a larger level averaging the covered texels.
func downsample(from, to *Level, texel int) {
	fw, fh := int(from.Extent.Width), int(from.Extent.Height)
	tw, th := int(to.Extent.Width), int(to.Extent.Height)
	if texel == 0 || fw == 0 || fh == 0 {
		return
	}
	rx, ry := fw/tw, fh/th
	if rx < 1 {
		rx = 1
	}
	if ry < 1 {
		ry = 1
	}
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			sx, sy := x*fw/tw, y*fh/th
			for ch := 0; ch < texel; ch++ {
				var sum, n int
				for oy := 0; oy < ry && sy+oy < fh; oy++ {
					for ox := 0; ox < rx && sx+ox < fw; ox++ {
						sum += int(from.Data[((sy+oy)*fw+sx+ox)*texel+ch])
						n++
					}
				}
				to.Data[(y*tw+x)*texel+ch] = byte(sum / n)
			}
		}
	}
}
