// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package assets_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gobuffalo/packd"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/image/bmp"

	"github.com/devblok/framepace/assets"
	"github.com/devblok/framepace/core"
	"github.com/devblok/framepace/gfx"
	"github.com/devblok/framepace/gfx/soft"
	"github.com/devblok/framepace/utility/kar"
)

const triangle = `<?xml version="1.0" encoding="utf-8"?>
<COLLADA xmlns="http://www.collada.org/2005/11/COLLADASchema" version="1.4.1">
  <library_geometries>
    <geometry id="Tri-mesh" name="Tri">
      <mesh>
        <source id="Tri-mesh-positions">
          <float_array id="Tri-mesh-positions-array" count="9">0 0 0 1 0 0 0 1 0</float_array>
          <technique_common><accessor count="3" stride="3"/></technique_common>
        </source>
        <source id="Tri-mesh-normals">
          <float_array id="Tri-mesh-normals-array" count="3">0 0 1</float_array>
          <technique_common><accessor count="1" stride="3"/></technique_common>
        </source>
        <source id="Tri-mesh-map-0">
          <float_array id="Tri-mesh-map-0-array" count="6">0 0 1 0 0 1</float_array>
          <technique_common><accessor count="3" stride="2"/></technique_common>
        </source>
        <vertices id="Tri-mesh-vertices">
          <input semantic="POSITION" source="#Tri-mesh-positions"/>
        </vertices>
        <triangles count="1">
          <input semantic="VERTEX" source="#Tri-mesh-vertices" offset="0"/>
          <input semantic="NORMAL" source="#Tri-mesh-normals" offset="1"/>
          <input semantic="TEXCOORD" source="#Tri-mesh-map-0" offset="2" set="0"/>
          <p>0 0 0 1 0 1 2 0 2</p>
        </triangles>
      </mesh>
    </geometry>
  </library_geometries>
</COLLADA>`

func checker(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.NRGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.NRGBA{B: 255, A: 255})
			}
		}
	}
	return img
}

func testFiles(c *qt.C) map[string][]byte {
	c.Helper()
	var pngData, bmpData bytes.Buffer
	c.Assert(png.Encode(&pngData, checker(8, 8)), qt.IsNil)
	c.Assert(bmp.Encode(&bmpData, checker(4, 2)), qt.IsNil)
	return map[string][]byte{
		"models/tri.dae":       []byte(triangle),
		"textures/checker.png": pngData.Bytes(),
		"textures/normal.bmp":  bmpData.Bytes(),
	}
}

func newLoader(c *qt.C, src assets.Source) (*soft.Device, *assets.Loader) {
	dev := soft.NewDevice(soft.Config{})
	logger, _ := test.NewNullLogger()
	ctx := core.NewContext(dev, logger)
	return dev, assets.NewLoader(src, core.NewTransferEngine(ctx), logger)
}

func TestLoaderFromBox(t *testing.T) {
	c := qt.New(t)
	box := packd.NewMemoryBox()
	for name, data := range testFiles(c) {
		c.Assert(box.AddBytes(name, data), qt.IsNil)
	}
	src := assets.NewBoxSource(box)
	c.Assert(src.Files(), qt.DeepEquals, []string{"models/tri.dae", "textures/checker.png", "textures/normal.bmp"})

	dev, loader := newLoader(c, src)

	img, err := loader.Image("textures/normal.bmp")
	c.Assert(err, qt.IsNil)
	c.Assert(img.Bounds().Size(), qt.Equals, image.Pt(4, 2))

	obj, err := loader.Object(assets.ObjectInfo{
		Name:     "tri",
		Model:    "models/tri.dae",
		Textures: []string{"textures/checker.png", "textures/normal.bmp", "textures/checker.png"},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(obj.Mesh.Count, qt.Equals, uint32(3))
	c.Assert(obj.Textures, qt.HasLen, 3)
	c.Assert(obj.Textures[0], qt.Equals, obj.Textures[2])
	c.Assert(obj.Textures[0].Image.Levels(), qt.Equals, uint32(4))
	c.Assert(obj.Textures[0].Image.Layout(3), qt.Equals, gfx.LayoutShaderReadOnly)
	c.Assert(loader.Objects(), qt.HasLen, 1)

	loader.Release()
	c.Assert(dev.Live(), qt.HasLen, 0)
	c.Assert(dev.Violations(), qt.HasLen, 0)
}

func TestLoaderErrors(t *testing.T) {
	c := qt.New(t)
	box := packd.NewMemoryBox()
	c.Assert(box.AddString("broken.png", "not a png"), qt.IsNil)
	c.Assert(box.AddString("model.obj", "v 0 0 0"), qt.IsNil)
	_, loader := newLoader(c, assets.NewBoxSource(box))

	_, err := loader.Texture("broken.png")
	c.Assert(err, qt.ErrorMatches, `assets.Image\(broken.png\): .*`)

	_, err = loader.Model("model.obj")
	c.Assert(err, qt.ErrorMatches, `.*unsupported model format ".obj"`)

	_, err = loader.Texture("missing.png")
	c.Assert(err, qt.Not(qt.IsNil))

	_, err = loader.Object(assets.ObjectInfo{Name: "bare", Model: "model.dae"})
	c.Assert(err, qt.ErrorMatches, `.*no textures`)
}

func TestArchiveSource(t *testing.T) {
	c := qt.New(t)
	builder, err := kar.NewBuilder(kar.Header{Author: "test", Version: 1})
	c.Assert(err, qt.IsNil)
	defer builder.Close()
	files := testFiles(c)
	for name, data := range files {
		c.Assert(builder.Add(name, bytes.NewReader(data)), qt.IsNil)
	}

	path := filepath.Join(c.Mkdir(), "assets.kar")
	f, err := os.Create(path)
	c.Assert(err, qt.IsNil)
	_, err = builder.WriteTo(f)
	c.Assert(err, qt.IsNil)
	c.Assert(f.Close(), qt.IsNil)

	archive, err := assets.OpenArchive(path)
	c.Assert(err, qt.IsNil)
	defer archive.Close()
	c.Assert(archive.Files(), qt.HasLen, 3)

	data, err := archive.ReadAll("models/tri.dae")
	c.Assert(err, qt.IsNil)
	c.Assert(data, qt.DeepEquals, files["models/tri.dae"])

	dev, loader := newLoader(c, archive)
	defer loader.Release()
	tex, err := loader.Texture("textures/checker.png")
	c.Assert(err, qt.IsNil)
	c.Assert(tex.Image.Extent(), qt.Equals, gfx.Extent2D{Width: 8, Height: 8})
	c.Assert(dev.Violations(), qt.HasLen, 0)

	_, err = assets.OpenArchive(filepath.Join(c.Mkdir(), "missing.kar"))
	c.Assert(err, qt.Not(qt.IsNil))
}
