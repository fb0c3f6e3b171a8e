// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/framepace/gfx"
	vk "github.com/devblok/vulkan"
)

func TestTimeout(t *testing.T) {
	c := qt.New(t)

	c.Assert(timeout(0), qt.Equals, uint(0))
	c.Assert(timeout(1000), qt.Equals, uint(1000))
	c.Assert(timeout(gfx.Forever), qt.Equals, ^uint(0))
}

func TestResult(t *testing.T) {
	c := qt.New(t)

	c.Assert(result("op", vk.Success), qt.IsNil)
	for res, want := range map[vk.Result]error{
		vk.ErrorOutOfDate:         gfx.ErrOutOfDate,
		vk.ErrorDeviceLost:        gfx.ErrDeviceLost,
		vk.Timeout:                gfx.ErrTimeout,
		vk.ErrorOutOfDeviceMemory: gfx.ErrOutOfMemory,
	} {
		err := result("vk.Op()", res)
		c.Assert(errors.Is(err, want), qt.IsTrue, qt.Commentf("%v", err))
		c.Assert(err, qt.ErrorMatches, `vk\.Op\(\): .*`)
	}
}
