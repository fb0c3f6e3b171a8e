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

func TestMipLevels(t *testing.T) {
	c := qt.New(t)

	for _, test := range []struct {
		width, height, levels uint32
	}{
		{1, 1, 1},
		{2, 1, 2},
		{256, 256, 9},
		{256, 128, 9},
		{300, 7, 9},
		{1, 1024, 11},
		{0, 0, 1},
	} {
		c.Assert(core.MipLevels(test.width, test.height), qt.Equals, test.levels,
			qt.Commentf("%dx%d", test.width, test.height))
	}
}

func TestMipExtent(t *testing.T) {
	c := qt.New(t)

	c.Assert(core.MipExtent(256, 64, 0), qt.Equals, gfx.Extent2D{Width: 256, Height: 64})
	c.Assert(core.MipExtent(256, 64, 3), qt.Equals, gfx.Extent2D{Width: 32, Height: 8})
	c.Assert(core.MipExtent(256, 64, 7), qt.Equals, gfx.Extent2D{Width: 2, Height: 1})
	c.Assert(core.MipExtent(256, 64, 8), qt.Equals, gfx.Extent2D{Width: 1, Height: 1})
	c.Assert(core.MipExtent(256, 64, 40), qt.Equals, gfx.Extent2D{Width: 1, Height: 1})
}

func TestGenerateMipChain(t *testing.T) {
	c := qt.New(t)
	dev, ctx, _ := newTestContext(soft.Config{})
	engine := core.NewTransferEngine(ctx)

	const width, height = 16, 4
	levels := core.MipLevels(width, height)
	c.Assert(levels, qt.Equals, uint32(5))

	pixels := make([]byte, width*height*4)
	for idx := range pixels {
		pixels[idx] = 200
	}
	tex, err := core.NewTextureFromPixels(engine, width, height, pixels)
	c.Assert(err, qt.IsNil)
	defer tex.Release()

	c.Assert(tex.Image.Levels(), qt.Equals, levels)
	raw := tex.Image.Raw().(*soft.Image).Levels()
	c.Assert(raw, qt.HasLen, int(levels))
	for l, lvl := range raw {
		want := core.MipExtent(width, height, uint32(l))
		c.Assert(lvl.Extent, qt.Equals, gfx.Extent3D{Width: want.Width, Height: want.Height, Depth: 1})
		c.Assert(lvl.Layout, qt.Equals, gfx.LayoutShaderReadOnly)
		c.Assert(tex.Image.Layout(uint32(l)), qt.Equals, gfx.LayoutShaderReadOnly)
	}
	// a uniform image stays uniform when downsampled
	c.Assert(raw[levels-1].Data, qt.DeepEquals, []byte{200, 200, 200, 200})

	// every level but the last goes through transfer-src once
	var toSrc, toRead int
	for _, b := range dev.Audit() {
		switch b.NewLayout {
		case gfx.LayoutTransferSrc:
			toSrc++
		case gfx.LayoutShaderReadOnly:
			toRead++
			c.Assert(b.DstStage, qt.Equals, gfx.StageFragmentShader)
			c.Assert(b.DstAccess, qt.Equals, gfx.AccessShaderRead)
		}
	}
	c.Assert(toSrc, qt.Equals, int(levels)-1)
	c.Assert(toRead, qt.Equals, int(levels))
	assertClean(c, dev)
}

func TestGenerateMipChainUnsupportedBlit(t *testing.T) {
	c := qt.New(t)

	for _, test := range []struct {
		features gfx.FormatFeature
		message  string
	}{
		{gfx.FeatureSampledImage | gfx.FeatureSampledImageFilterLinear, `.*blit needs .*`},
		{gfx.FeatureSampledImage | gfx.FeatureBlitSrc | gfx.FeatureBlitDst, `.*supports blits but not linear filtering`},
	} {
		dev, ctx, _ := newTestContext(soft.Config{
			Features: map[gfx.Format]gfx.FormatFeature{core.TextureFormat: test.features},
		})
		engine := core.NewTransferEngine(ctx)

		_, err := core.NewTextureFromPixels(engine, 8, 8, make([]byte, 8*8*4))
		c.Assert(errors.Is(err, core.ErrUnsupportedBlit), qt.IsTrue, qt.Commentf("features %b", test.features))
		c.Assert(err, qt.ErrorMatches, test.message)
		c.Assert(dev.Live(), qt.HasLen, 0)
		assertClean(c, dev)
	}
}

func TestSingleLevelTextureSkipsBlit(t *testing.T) {
	c := qt.New(t)
	dev, ctx, _ := newTestContext(soft.Config{
		Features: map[gfx.Format]gfx.FormatFeature{core.TextureFormat: gfx.FeatureSampledImage},
	})
	engine := core.NewTransferEngine(ctx)

	tex, err := core.NewTextureFromPixels(engine, 1, 1, []byte{1, 2, 3, 4})
	c.Assert(err, qt.IsNil)
	c.Assert(tex.Image.Levels(), qt.Equals, uint32(1))
	c.Assert(tex.Image.Layout(0), qt.Equals, gfx.LayoutShaderReadOnly)
	tex.Release()
	assertClean(c, dev)
}
