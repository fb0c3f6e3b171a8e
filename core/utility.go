// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"image"
	"unsafe"

	"golang.org/x/image/draw"
)

type sliceHeader struct {
	Data uintptr
	Len  int
	Cap  int
}

// SliceUint32 reslices bytes into a uint32, that is used
// to sumbit vulkan shaders for processing
func SliceUint32(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	const m = 0x7fffffff
	return (*[m / 4]uint32)(unsafe.Pointer((*sliceHeader)(unsafe.Pointer(&data)).Data))[:len(data)/4]
}

// GetPixels transforms a given image into right arrangement of pixels
// by drawing the decoded image onto a controlled RGBA canvas. A rowPitch
// smaller than a packed row is ignored and rows are tightly packed.
func GetPixels(img image.Image, rowPitch int) ([]uint8, error) {
	bounds := img.Bounds()
	rect := image.Rect(0, 0, bounds.Dx(), bounds.Dy())
	newImg := image.NewRGBA(rect)
	if rowPitch > 4*rect.Dx() {
		newImg.Stride = rowPitch
		newImg.Pix = make([]uint8, rowPitch*rect.Dy())
	}
	draw.Draw(newImg, rect, img, bounds.Min, draw.Src)
	return newImg.Pix, nil
}
