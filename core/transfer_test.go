// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/framepace/core"
	"github.com/devblok/framepace/gfx"
	"github.com/devblok/framepace/gfx/soft"
)

func colorImage(c *qt.C, engine *core.TransferEngine, levels uint32) *core.Image {
	c.Helper()
	img, err := engine.CreateImage(gfx.ImageInfo{
		Format: gfx.FormatR8G8B8A8Srgb,
		Extent: gfx.Extent3D{Width: 16, Height: 8},
		Levels: levels,
		Usage:  gfx.ImageTransferSrc | gfx.ImageTransferDst | gfx.ImageSampled,
	}, gfx.MemoryDeviceLocal)
	c.Assert(err, qt.IsNil)
	return img
}

func TestTransitionBarriers(t *testing.T) {
	c := qt.New(t)
	dev, ctx, _ := newTestContext(soft.Config{})
	engine := core.NewTransferEngine(ctx)

	img := colorImage(c, engine, 1)
	defer img.Release()

	c.Assert(engine.TransitionLayout(img, gfx.LayoutUndefined, gfx.LayoutTransferDst, 0, 1), qt.IsNil)
	c.Assert(engine.TransitionLayout(img, gfx.LayoutTransferDst, gfx.LayoutShaderReadOnly, 0, 1), qt.IsNil)
	c.Assert(img.Layout(0), qt.Equals, gfx.LayoutShaderReadOnly)

	c.Assert(dev.Audit(), qt.DeepEquals, []soft.Barrier{
		{
			SrcStage: gfx.StageTopOfPipe, DstStage: gfx.StageTransfer,
			SrcAccess: gfx.AccessNone, DstAccess: gfx.AccessTransferWrite,
			OldLayout: gfx.LayoutUndefined, NewLayout: gfx.LayoutTransferDst,
			Aspect: gfx.AspectColor, BaseLevel: 0, Levels: 1,
		},
		{
			SrcStage: gfx.StageTransfer, DstStage: gfx.StageFragmentShader,
			SrcAccess: gfx.AccessTransferWrite, DstAccess: gfx.AccessShaderRead,
			OldLayout: gfx.LayoutTransferDst, NewLayout: gfx.LayoutShaderReadOnly,
			Aspect: gfx.AspectColor, BaseLevel: 0, Levels: 1,
		},
	})
	assertClean(c, dev)
}

func TestTransitionDepthAspect(t *testing.T) {
	c := qt.New(t)

	for _, test := range []struct {
		name   string
		format gfx.Format
		aspect gfx.Aspect
	}{
		{"D32", gfx.FormatD32Sfloat, gfx.AspectDepth},
		{"D16", gfx.FormatD16Unorm, gfx.AspectDepth},
		{"D24S8", gfx.FormatD24UnormS8Uint, gfx.AspectDepth | gfx.AspectStencil},
		{"D32S8", gfx.FormatD32SfloatS8Uint, gfx.AspectDepth | gfx.AspectStencil},
	} {
		c.Run(test.name, func(c *qt.C) {
			dev, ctx, _ := newTestContext(soft.Config{})
			engine := core.NewTransferEngine(ctx)

			img, err := engine.CreateImage(gfx.ImageInfo{
				Format: test.format,
				Extent: gfx.Extent3D{Width: 8, Height: 8},
				Usage:  gfx.ImageDepthStencilAttachment,
			}, gfx.MemoryDeviceLocal)
			c.Assert(err, qt.IsNil)
			defer img.Release()

			c.Assert(engine.TransitionLayout(img, gfx.LayoutUndefined, gfx.LayoutDepthStencilAttachment, 0, 1), qt.IsNil)
			audit := dev.Audit()
			c.Assert(audit, qt.HasLen, 1)
			c.Assert(audit[0].Aspect, qt.Equals, test.aspect)
			c.Assert(audit[0].SrcStage, qt.Equals, gfx.StageTopOfPipe)
			c.Assert(audit[0].DstStage, qt.Equals, gfx.StageEarlyFragmentTests)
			c.Assert(audit[0].DstAccess, qt.Equals, gfx.AccessDepthStencilRead|gfx.AccessDepthStencilWrite)
			assertClean(c, dev)
		})
	}
}

func TestTransitionUnsupported(t *testing.T) {
	c := qt.New(t)
	dev, ctx, _ := newTestContext(soft.Config{})
	engine := core.NewTransferEngine(ctx)

	img := colorImage(c, engine, 1)
	defer img.Release()

	err := engine.TransitionLayout(img, gfx.LayoutUndefined, gfx.LayoutShaderReadOnly, 0, 1)
	c.Assert(errors.Is(err, core.ErrUnsupportedTransition), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, `core.TransitionLayout\(\): unsupported transition: .*`)

	// nothing is recorded or submitted for a rejected transition
	c.Assert(dev.Audit(), qt.HasLen, 0)
	c.Assert(dev.Submissions(), qt.Equals, 0)
	c.Assert(img.Layout(0), qt.Equals, gfx.LayoutUndefined)
}

func TestTransitionLayoutMismatch(t *testing.T) {
	c := qt.New(t)
	dev, ctx, _ := newTestContext(soft.Config{})
	engine := core.NewTransferEngine(ctx)

	img := colorImage(c, engine, 3)
	defer img.Release()

	err := engine.TransitionLayout(img, gfx.LayoutTransferDst, gfx.LayoutShaderReadOnly, 0, 1)
	c.Assert(errors.Is(err, core.ErrLayoutMismatch), qt.IsTrue)

	c.Assert(engine.TransitionLayout(img, gfx.LayoutUndefined, gfx.LayoutTransferDst, 1, 2), qt.IsNil)
	err = engine.TransitionLayout(img, gfx.LayoutUndefined, gfx.LayoutTransferDst, 0, 3)
	c.Assert(errors.Is(err, core.ErrLayoutMismatch), qt.IsTrue)
	c.Assert(img.Layout(0), qt.Equals, gfx.LayoutUndefined)
	c.Assert(img.Layout(1), qt.Equals, gfx.LayoutTransferDst)

	err = engine.TransitionLayout(img, gfx.LayoutUndefined, gfx.LayoutTransferDst, 2, 2)
	c.Assert(errors.Is(err, core.ErrConfiguration), qt.IsTrue)
	assertClean(c, dev)
}

func TestUploadDownload(t *testing.T) {
	c := qt.New(t)
	dev, ctx, _ := newTestContext(soft.Config{})
	engine := core.NewTransferEngine(ctx)

	buf, err := engine.CreateBuffer(64, gfx.BufferTransferSrc|gfx.BufferTransferDst|gfx.BufferVertex, gfx.MemoryDeviceLocal)
	c.Assert(err, qt.IsNil)

	data := make([]byte, 64)
	for idx := range data {
		data[idx] = byte(idx * 3)
	}
	c.Assert(engine.Upload(buf, data), qt.IsNil)
	c.Assert(buf.Raw().(*soft.Buffer).Bytes(), qt.DeepEquals, data)

	back, err := engine.Download(buf)
	c.Assert(err, qt.IsNil)
	c.Assert(back, qt.DeepEquals, data)

	c.Assert(engine.Upload(buf, make([]byte, 65)), qt.ErrorMatches, `core.Upload\(\): 65 bytes into buffer of 64`)

	buf.Release()
	assertClean(c, dev)
	c.Assert(dev.Live(), qt.HasLen, 0)
}

func TestCreateBufferNoMemoryType(t *testing.T) {
	c := qt.New(t)
	dev, ctx, _ := newTestContext(soft.Config{})
	engine := core.NewTransferEngine(ctx)

	_, err := engine.CreateBuffer(64, gfx.BufferUniform, gfx.MemoryDeviceLocal|gfx.MemoryHostVisible)
	c.Assert(errors.Is(err, core.ErrAllocation), qt.IsTrue)
	c.Assert(dev.Live(), qt.HasLen, 0)

	_, ctx, _ = newTestContext(soft.Config{MemoryTypes: soft.UnifiedMemoryTypes()})
	engine = core.NewTransferEngine(ctx)
	buf, err := engine.CreateBuffer(64, gfx.BufferUniform, gfx.MemoryDeviceLocal|gfx.MemoryHostVisible)
	c.Assert(err, qt.IsNil)
	c.Assert(buf.Write([]byte{1, 2, 3}), qt.IsNil)
	read, err := buf.Read(3)
	c.Assert(err, qt.IsNil)
	c.Assert(read, qt.DeepEquals, []byte{1, 2, 3})
	buf.Release()
}

func TestOneShotReleasesOnError(t *testing.T) {
	c := qt.New(t)
	dev, ctx, _ := newTestContext(soft.Config{})
	engine := core.NewTransferEngine(ctx)

	err := engine.OneShot(func(gfx.CommandBuffer) error {
		return errors.New("recording failed")
	})
	c.Assert(err, qt.ErrorMatches, "recording failed")
	c.Assert(dev.Submissions(), qt.Equals, 0)
	c.Assert(dev.Live(), qt.HasLen, 0)
}

func TestFailedOneShotRestoresLayouts(t *testing.T) {
	c := qt.New(t)
	dev, ctx, _ := newTestContext(soft.Config{})
	engine := core.NewTransferEngine(ctx)

	img := colorImage(c, engine, 3)
	defer img.Release()

	dev.FailNextSubmit(gfx.ErrDeviceLost)
	err := engine.TransitionLayout(img, gfx.LayoutUndefined, gfx.LayoutTransferDst, 0, 2)
	c.Assert(errors.Is(err, core.ErrDeviceLost), qt.IsTrue, qt.Commentf("%v", err))
	for level := uint32(0); level < 3; level++ {
		c.Assert(img.Layout(level), qt.Equals, gfx.LayoutUndefined)
	}

	dev.FailNextSubmit(gfx.ErrDeviceLost)
	c.Assert(engine.UploadImage(img, make([]byte, 16*8*4)), qt.Not(qt.IsNil))
	for level := uint32(0); level < 3; level++ {
		c.Assert(img.Layout(level), qt.Equals, gfx.LayoutUndefined)
	}

	c.Assert(engine.UploadImage(img, make([]byte, 16*8*4)), qt.IsNil)
	for level := uint32(0); level < 3; level++ {
		c.Assert(img.Layout(level), qt.Equals, gfx.LayoutShaderReadOnly)
	}
	c.Assert(dev.Live(), qt.HasLen, 2, qt.Commentf("%v", dev.Live()))
	assertClean(c, dev)
}

func TestUploadImage(t *testing.T) {
	c := qt.New(t)
	dev, ctx, _ := newTestContext(soft.Config{})
	engine := core.NewTransferEngine(ctx)

	img := colorImage(c, engine, 1)
	defer img.Release()

	pixels := make([]byte, 16*8*4)
	for idx := range pixels {
		pixels[idx] = byte(idx)
	}
	c.Assert(engine.UploadImage(img, pixels[:10]), qt.ErrorMatches, `core.UploadImage\(\): 10 bytes for a 16x8 image, need 512`)
	c.Assert(engine.UploadImage(img, pixels), qt.IsNil)

	level := img.Raw().(*soft.Image).Levels()[0]
	c.Assert(level.Layout, qt.Equals, gfx.LayoutShaderReadOnly)
	c.Assert(level.Data, qt.DeepEquals, pixels)
	c.Assert(img.Layout(0), qt.Equals, gfx.LayoutShaderReadOnly)

	err := engine.UploadImage(img, pixels)
	c.Assert(errors.Is(err, core.ErrLayoutMismatch), qt.IsTrue)
	assertClean(c, dev)
}
