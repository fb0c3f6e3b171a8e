// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"unsafe"

	"github.com/devblok/framepace/gfx"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
)

type glfwWindow struct {
	window  *glfw.Window
	resized bool
}

func newGLFWWindow(width, height uint32) (*glfwWindow, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "glfw.Init()")
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err := glfw.CreateWindow(int(width), int(height), windowTitle, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "glfw.CreateWindow()")
	}
	w := &glfwWindow{window: window}
	window.SetFramebufferSizeCallback(func(*glfw.Window, int, int) {
		w.resized = true
	})
	window.SetKeyCallback(func(win *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			win.SetShouldClose(true)
		}
	})
	return w, nil
}

func (w *glfwWindow) ProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (w *glfwWindow) InstanceExtensions() []string {
	return w.window.GetRequiredInstanceExtensions()
}

func (w *glfwWindow) CreateSurface(instance interface{}) (uintptr, error) {
	surface, err := w.window.CreateWindowSurface(instance, nil)
	if err != nil {
		return 0, errors.Wrap(err, "glfw.CreateWindowSurface()")
	}
	return surface, nil
}

func (w *glfwWindow) DrawableSize() gfx.Extent2D {
	width, height := w.window.GetFramebufferSize()
	return gfx.Extent2D{Width: uint32(width), Height: uint32(height)}
}

func (w *glfwWindow) Resized() bool {
	resized := w.resized
	w.resized = false
	return resized
}

func (w *glfwWindow) WaitEvents() {
	glfw.WaitEvents()
}

func (w *glfwWindow) PollEvents() bool {
	glfw.PollEvents()
	return w.window.ShouldClose()
}

func (w *glfwWindow) Destroy() {
	w.window.Destroy()
	glfw.Terminate()
}
