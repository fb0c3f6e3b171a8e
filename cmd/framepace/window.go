// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"unsafe"

	"github.com/devblok/framepace/core"
	"github.com/pkg/errors"
)

// windowSystem is a window the renderer can present to.
type windowSystem interface {
	core.Window

	// ProcAddr returns the vkGetInstanceProcAddr of the window system.
	ProcAddr() unsafe.Pointer

	// InstanceExtensions returns the instance extensions surfaces need.
	InstanceExtensions() []string

	// CreateSurface creates a surface of the window for a Vulkan instance.
	CreateSurface(instance interface{}) (uintptr, error)

	// PollEvents handles pending events and reports whether the user
	// asked to quit.
	PollEvents() bool

	Destroy()
}

func newWindowSystem(name string, width, height uint32) (windowSystem, error) {
	switch name {
	case "sdl":
		return newSDLWindow(width, height)
	case "glfw":
		return newGLFWWindow(width, height)
	}
	return nil, errors.Errorf("main.newWindowSystem(): unknown window system %q", name)
}

const windowTitle = "framepace"
