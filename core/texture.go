// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"image"

	"github.com/devblok/framepace/gfx"
)

// Texture is a sampled, mip mapped image.
type Texture struct {
	Image   *Image
	View    gfx.ImageView
	Sampler gfx.Sampler
}

// TextureFormat is the format decoded textures are uploaded in.
const TextureFormat = gfx.FormatR8G8B8A8Srgb

// NewTexture uploads a decoded image with a full mip chain.
func NewTexture(t *TransferEngine, img image.Image) (*Texture, error) {
	pixels, err := GetPixels(img, 0)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return NewTextureFromPixels(t, uint32(b.Dx()), uint32(b.Dy()), pixels)
}

// NewTextureFromPixels uploads tightly packed RGBA pixels with a full mip
// chain.
func NewTextureFromPixels(t *TransferEngine, width, height uint32, pixels []byte) (*Texture, error) {
	levels := MipLevels(width, height)
	img, err := t.CreateImage(gfx.ImageInfo{
		Format: TextureFormat,
		Extent: gfx.Extent3D{Width: width, Height: height, Depth: 1},
		Levels: levels,
		Usage:  gfx.ImageTransferSrc | gfx.ImageTransferDst | gfx.ImageSampled,
	}, gfx.MemoryDeviceLocal)
	if err != nil {
		return nil, err
	}

	var arena Arena
	arena.Add(img)
	if err := t.UploadImage(img, pixels); err != nil {
		arena.Release()
		return nil, err
	}

	dev := t.Context().Device
	view, err := dev.CreateImageView(img.Raw(), TextureFormat, gfx.AspectColor, levels)
	if err != nil {
		arena.Release()
		return nil, classify("core.NewTexture()", err)
	}
	arena.Add(view)

	sampler, err := dev.CreateSampler(gfx.SamplerInfo{
		Filter:        gfx.FilterLinear,
		MaxLod:        float32(levels),
		MaxAnisotropy: 16,
	})
	if err != nil {
		arena.Release()
		return nil, classify("core.NewTexture()", err)
	}

	return &Texture{
		Image:   img,
		View:    view,
		Sampler: sampler,
	}, nil
}

// Release destroys the sampler, view and image.
func (t *Texture) Release() {
	t.Sampler.Release()
	t.View.Release()
	t.Image.Release()
}
