// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"math/bits"

	"github.com/devblok/framepace/gfx"
	"github.com/pkg/errors"
)

// MipLevels returns the length of a full mip chain: floor(log2(max(w, h))) + 1.
func MipLevels(width, height uint32) uint32 {
	max := width
	if height > max {
		max = height
	}
	if max == 0 {
		return 1
	}
	return uint32(bits.Len32(max))
}

// MipExtent returns the size of a mip level, never smaller than 1x1.
func MipExtent(width, height, level uint32) gfx.Extent2D {
	return gfx.Extent2D{
		Width:  halve(width, level),
		Height: halve(height, level),
	}
}

func halve(v, times uint32) uint32 {
	if times >= 32 {
		return 1
	}
	v >>= times
	if v == 0 {
		return 1
	}
	return v
}

// blitFeatures are needed to generate a mip chain of a format, the chain
// is blitted with linear filtering.
const (
	blitFeatures   = gfx.FeatureBlitSrc | gfx.FeatureBlitDst
	filterFeatures = gfx.FeatureSampledImageFilterLinear
)

// GenerateMipChain fills levels 1..n-1 of img from level 0 by successive
// linear blits. Every level has to be in transfer-dst layout with level 0
// holding the image, afterwards every level is ready for sampling.
func (t *TransferEngine) GenerateMipChain(img *Image) error {
	const op = "core.GenerateMipChain()"

	info := img.Info()
	features := t.ctx.Device.FormatFeatures(info.Format)
	if features&blitFeatures != blitFeatures {
		return newError(KindUnsupportedBlit, op,
			errors.Errorf("format %d supports %b, blit needs %b", info.Format, features, blitFeatures))
	}
	if features&filterFeatures != filterFeatures {
		return newError(KindUnsupportedBlit, op,
			errors.Errorf("format %d supports blits but not linear filtering", info.Format))
	}
	levels := img.Levels()
	if err := img.expect(op, gfx.LayoutTransferDst, 0, levels); err != nil {
		return err
	}

	width, height := info.Extent.Width, info.Extent.Height
	return t.OneShot(func(cb gfx.CommandBuffer) error {
		barrier := gfx.ImageBarrier{
			Image:      img.Raw(),
			Aspect:     gfx.AspectColor,
			LevelCount: 1,
		}

		for level := uint32(1); level < levels; level++ {
			prev := level - 1
			barrier.BaseLevel = prev

			barrier.OldLayout, barrier.NewLayout = gfx.LayoutTransferDst, gfx.LayoutTransferSrc
			barrier.SrcAccess, barrier.DstAccess = gfx.AccessTransferWrite, gfx.AccessTransferRead
			cb.PipelineBarrier(gfx.StageTransfer, gfx.StageTransfer, barrier)

			from, to := MipExtent(width, height, prev), MipExtent(width, height, level)
			cb.BlitImage(img.Raw(), gfx.LayoutTransferSrc, img.Raw(), gfx.LayoutTransferDst, gfx.Blit{
				Aspect:    gfx.AspectColor,
				SrcLevel:  prev,
				SrcExtent: gfx.Extent3D{Width: from.Width, Height: from.Height, Depth: 1},
				DstLevel:  level,
				DstExtent: gfx.Extent3D{Width: to.Width, Height: to.Height, Depth: 1},
			}, gfx.FilterLinear)

			barrier.OldLayout, barrier.NewLayout = gfx.LayoutTransferSrc, gfx.LayoutShaderReadOnly
			barrier.SrcAccess, barrier.DstAccess = gfx.AccessTransferRead, gfx.AccessShaderRead
			cb.PipelineBarrier(gfx.StageTransfer, gfx.StageFragmentShader, barrier)
			t.setLayout(img, gfx.LayoutShaderReadOnly, prev, 1)
		}

		barrier.BaseLevel = levels - 1
		barrier.OldLayout, barrier.NewLayout = gfx.LayoutTransferDst, gfx.LayoutShaderReadOnly
		barrier.SrcAccess, barrier.DstAccess = gfx.AccessTransferWrite, gfx.AccessShaderRead
		cb.PipelineBarrier(gfx.StageTransfer, gfx.StageFragmentShader, barrier)
		t.setLayout(img, gfx.LayoutShaderReadOnly, levels-1, 1)
		return nil
	})
}
