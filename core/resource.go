// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/devblok/framepace/gfx"
	"github.com/pkg/errors"
)

// findMemoryType returns the first memory type allowed by typeBits that
// has every requested property.
func findMemoryType(types []gfx.MemoryType, typeBits uint32, props gfx.MemoryProperty) (uint32, error) {
	for idx := uint32(0); idx < uint32(len(types)) && idx < 32; idx++ {
		if typeBits&(1<<idx) != 0 && types[idx].Properties&props == props {
			return idx, nil
		}
	}
	return 0, newError(KindAllocation, "core.findMemoryType()",
		errors.Errorf("no memory type in mask %b with properties %b", typeBits, props))
}

// Buffer is a device buffer together with the memory backing it.
type Buffer struct {
	buffer gfx.Buffer
	memory gfx.Memory
	props  gfx.MemoryProperty
}

// Raw returns the device buffer.
func (b *Buffer) Raw() gfx.Buffer {
	return b.buffer
}

// Size returns the usable size in bytes.
func (b *Buffer) Size() uint64 {
	return b.buffer.Size()
}

// Properties returns the properties of the backing memory.
func (b *Buffer) Properties() gfx.MemoryProperty {
	return b.props
}

// Write copies data to the start of a host visible buffer through a
// mapping.
func (b *Buffer) Write(data []byte) error {
	if uint64(len(data)) > b.Size() {
		return errors.Errorf("core.Buffer.Write(): %d bytes into buffer of %d", len(data), b.Size())
	}
	mapped, err := b.memory.Map()
	if err != nil {
		return classify("core.Buffer.Write()", err)
	}
	copy(mapped, data)
	b.memory.Unmap()
	return nil
}

// Read copies the start of a host visible buffer out through a mapping.
func (b *Buffer) Read(size uint64) ([]byte, error) {
	if size > b.Size() {
		return nil, errors.Errorf("core.Buffer.Read(): %d bytes from buffer of %d", size, b.Size())
	}
	mapped, err := b.memory.Map()
	if err != nil {
		return nil, classify("core.Buffer.Read()", err)
	}
	out := make([]byte, size)
	copy(out, mapped)
	b.memory.Unmap()
	return out, nil
}

// Release destroys the buffer and frees its memory.
func (b *Buffer) Release() {
	b.buffer.Release()
	b.memory.Release()
}

// Image is a device image with its memory and the tracked layout of every
// mip level.
type Image struct {
	image   gfx.Image
	memory  gfx.Memory
	info    gfx.ImageInfo
	layouts []gfx.Layout
}

// Raw returns the device image.
func (i *Image) Raw() gfx.Image {
	return i.image
}

// Info returns the creation parameters.
func (i *Image) Info() gfx.ImageInfo {
	return i.info
}

// Extent returns the size of level 0.
func (i *Image) Extent() gfx.Extent2D {
	return gfx.Extent2D{Width: i.info.Extent.Width, Height: i.info.Extent.Height}
}

// Levels returns the number of mip levels.
func (i *Image) Levels() uint32 {
	return uint32(len(i.layouts))
}

// Layout returns the tracked layout of a mip level.
func (i *Image) Layout(level uint32) gfx.Layout {
	return i.layouts[level]
}

// expect checks that the levels are in the given layout.
func (i *Image) expect(op string, old gfx.Layout, base, count uint32) error {
	if count == 0 || base+count > uint32(len(i.layouts)) {
		return configErrorf(op, "levels %d+%d of an image with %d", base, count, len(i.layouts))
	}
	for l := base; l < base+count; l++ {
		if i.layouts[l] != old {
			return newError(KindLayoutMismatch, op,
				errors.Errorf("level %d is %s, expected %s", l, i.layouts[l], old))
		}
	}
	return nil
}

func (i *Image) setLayout(layout gfx.Layout, base, count uint32) {
	for l := base; l < base+count; l++ {
		i.layouts[l] = layout
	}
}

// Release destroys the image and frees its memory.
func (i *Image) Release() {
	i.image.Release()
	i.memory.Release()
}
