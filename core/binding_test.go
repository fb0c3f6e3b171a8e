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
	"github.com/devblok/framepace/model"
)

func TestBindingSetRebuild(t *testing.T) {
	c := qt.New(t)
	dev, ctx, _ := newTestContext(soft.Config{})
	engine := core.NewTransferEngine(ctx)

	objects := []*core.Object{
		testObject(c, engine, "one", 1),
		testObject(c, engine, "two", 3),
	}
	defer func() {
		for _, obj := range objects {
			releaseObject(obj)
		}
	}()

	b, err := core.NewBindingSet(ctx, engine, 4)
	c.Assert(err, qt.IsNil)
	defer b.Destroy()

	c.Assert(b.Rebuild(3, objects), qt.IsNil)
	c.Assert(b.ImageCount(), qt.Equals, 3)
	c.Assert(b.Objects(), qt.HasLen, 2)

	seen := make(map[gfx.DescriptorSet]bool)
	for o, obj := range objects {
		for img := 0; img < 3; img++ {
			set := b.Set(o, img).(*soft.DescriptorSet)
			c.Assert(seen[set], qt.IsFalse)
			seen[set] = true

			ub, ok := set.Write(core.UniformBinding)
			c.Assert(ok, qt.IsTrue)
			c.Assert(ub.Buffer, qt.Equals, b.Uniform(o, img).Raw())
			c.Assert(ub.Range, qt.Equals, core.UniformSize)

			tex, ok := set.Write(core.TextureBinding)
			c.Assert(ok, qt.IsTrue)
			c.Assert(tex.Images, qt.HasLen, 4)
			// unused slots repeat the first texture
			c.Assert(tex.Images[0].View, qt.Equals, obj.Textures[0].View)
			c.Assert(tex.Images[3].View, qt.Equals, obj.Textures[0].View)
			c.Assert(tex.Images[0].Layout, qt.Equals, gfx.LayoutShaderReadOnly)
		}
	}

	c.Assert(b.Rebuild(2, objects[:1]), qt.IsNil)
	c.Assert(b.ImageCount(), qt.Equals, 2)
	c.Assert(b.Update(1, func(*core.Object) model.Uniform { return model.Uniform{} }), qt.IsNil)
	c.Assert(b.Update(2, func(*core.Object) model.Uniform { return model.Uniform{} }), qt.ErrorMatches, `.*image 2 of 2`)
	assertClean(c, dev)
}

func TestBindingSetTextureLimits(t *testing.T) {
	c := qt.New(t)
	_, ctx, _ := newTestContext(soft.Config{})
	engine := core.NewTransferEngine(ctx)

	_, err := core.NewBindingSet(ctx, engine, 0)
	c.Assert(errors.Is(err, core.ErrConfiguration), qt.IsTrue)

	b, err := core.NewBindingSet(ctx, engine, 2)
	c.Assert(err, qt.IsNil)
	defer b.Destroy()

	many := testObject(c, engine, "many", 3)
	defer releaseObject(many)
	err = b.Rebuild(3, []*core.Object{many})
	c.Assert(errors.Is(err, core.ErrConfiguration), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, `.*"many" has 3 textures, layout holds 2`)

	bare := &core.Object{Name: "bare"}
	err = b.Rebuild(3, []*core.Object{bare})
	c.Assert(errors.Is(err, core.ErrConfiguration), qt.IsTrue)
}

func TestBindingSetReleaseFreesEverything(t *testing.T) {
	c := qt.New(t)
	dev, ctx, _ := newTestContext(soft.Config{})
	engine := core.NewTransferEngine(ctx)

	obj := testObject(c, engine, "one", 1)
	b, err := core.NewBindingSet(ctx, engine, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(b.Rebuild(3, []*core.Object{obj}), qt.IsNil)

	b.Destroy()
	releaseObject(obj)
	c.Assert(dev.Live(), qt.HasLen, 0)
	assertClean(c, dev)
}
