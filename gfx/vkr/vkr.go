// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vkr implements the gfx device model on top of Vulkan.
package vkr

import (
	"fmt"
	"unsafe"

	"github.com/devblok/framepace/gfx"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
)

type sliceHeader struct {
	Data uintptr
	Len  int
	Cap  int
}

// result turns a Vulkan result into an error. The gfx results are the
// cause, so callers can match them with errors.Is.
func result(op string, res vk.Result) error {
	switch res {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate:
		return errors.Wrap(gfx.ErrOutOfDate, op)
	case vk.ErrorDeviceLost:
		return errors.Wrap(gfx.ErrDeviceLost, op)
	case vk.Timeout:
		return errors.Wrap(gfx.ErrTimeout, op)
	case vk.ErrorOutOfDeviceMemory, vk.ErrorOutOfHostMemory:
		return errors.Wrap(gfx.ErrOutOfMemory, op)
	}
	if err := vk.Error(res); err != nil {
		return errors.New(op + ": " + err.Error())
	}
	return errors.Errorf("%s: result %d", op, res)
}

// timeout converts a gfx timeout to the width the bindings take, values
// past the platform uint saturate to waiting forever.
func timeout(ns uint64) uint {
	if ns > uint64(^uint(0)) {
		return ^uint(0)
	}
	return uint(ns)
}

func safeString(s string) string {
	return fmt.Sprintf("%s\x00", s)
}

func safeStrings(sgs []string) []string {
	safe := []string{}
	for _, s := range sgs {
		safe = append(safe, safeString(s))
	}
	return safe
}

func bytesAt(p unsafe.Pointer, size int) []byte {
	return *(*[]byte)(unsafe.Pointer(&sliceHeader{
		Data: uintptr(p),
		Len:  size,
		Cap:  size,
	}))
}
