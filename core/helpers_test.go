// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/devblok/framepace/core"
	"github.com/devblok/framepace/gfx"
	"github.com/devblok/framepace/gfx/soft"
	"github.com/devblok/framepace/model"
)

// newTestContext returns an emulated device with a context logging into a
// test hook.
func newTestContext(cfg soft.Config) (*soft.Device, core.Context, *test.Hook) {
	dev := soft.NewDevice(cfg)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return dev, core.NewContext(dev, logger), hook
}

// assertClean fails when the emulated device found any misuse.
func assertClean(c *qt.C, dev *soft.Device) {
	c.Helper()
	c.Assert(dev.Violations(), qt.HasLen, 0, qt.Commentf("%v", dev.Violations()))
}

func windowSurface() *soft.Surface {
	return soft.NewSurface(gfx.SurfaceCapabilities{
		MinImageCount: 2,
		CurrentExtent: gfx.Extent2D{Width: gfx.UndefinedExtent, Height: gfx.UndefinedExtent},
		MinExtent:     gfx.Extent2D{Width: 1, Height: 1},
		MaxExtent:     gfx.Extent2D{Width: 4096, Height: 4096},
	})
}

// testWindow is a window whose size and resize latch the test controls.
type testWindow struct {
	size    gfx.Extent2D
	resized bool
	waits   int
	onWait  func(w *testWindow)
}

func (w *testWindow) DrawableSize() gfx.Extent2D {
	return w.size
}

func (w *testWindow) Resized() bool {
	r := w.resized
	w.resized = false
	return r
}

func (w *testWindow) WaitEvents() {
	w.waits++
	if w.onWait != nil {
		w.onWait(w)
	}
}

// drawRecorder records one emulated draw per swapchain image reading the
// uniform buffers of that image.
type drawRecorder struct {
	dev      gfx.Device
	cbs      []gfx.CommandBuffer
	bindings *core.BindingSet
	builds   int
}

func (r *drawRecorder) Build(sc *core.Swapchain, bindings *core.BindingSet, objects []*core.Object) error {
	r.Release()
	cbs, err := r.dev.AllocateCommandBuffers(sc.ImageCount())
	if err != nil {
		return err
	}
	for idx, cb := range cbs {
		if err := cb.Begin(false); err != nil {
			return err
		}
		var reads []gfx.Buffer
		for o := range objects {
			reads = append(reads, bindings.Uniform(o, idx).Raw())
		}
		cb.(*soft.CommandBuffer).Draw(sc.Images[idx], reads...)
		if err := cb.End(); err != nil {
			return err
		}
	}
	r.cbs = cbs
	r.bindings = bindings
	r.builds++
	return nil
}

func (r *drawRecorder) CommandBuffer(image int) gfx.CommandBuffer {
	return r.cbs[image]
}

func (r *drawRecorder) Release() {
	for _, cb := range r.cbs {
		cb.Release()
	}
	r.cbs = nil
}

// testObject creates an object with a 4x4 texture and a single triangle.
func testObject(c *qt.C, engine *core.TransferEngine, name string, textures int) *core.Object {
	c.Helper()
	vertices := []model.Vertex{{}, {}, {}}
	indices := []uint32{0, 1, 2}
	mesh, err := core.NewMesh(engine, vertices, indices)
	c.Assert(err, qt.IsNil)

	obj := &core.Object{
		Name:   name,
		Source: model.NewStatic(vertices, indices),
		Mesh:   mesh,
	}
	for idx := 0; idx < textures; idx++ {
		tex, err := core.NewTextureFromPixels(engine, 4, 4, make([]byte, 4*4*4))
		c.Assert(err, qt.IsNil)
		obj.Textures = append(obj.Textures, tex)
	}
	return obj
}

func releaseObject(obj *core.Object) {
	for _, tex := range obj.Textures {
		tex.Release()
	}
	obj.Mesh.Release()
}
