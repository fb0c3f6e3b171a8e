// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gobuffalo/packd"

	"github.com/devblok/framepace/core/renderer"
)

func TestShaderTypeOf(t *testing.T) {
	c := qt.New(t)

	for name, want := range map[string]renderer.ShaderType{
		"base.vert.spv":          renderer.VertexShaderType,
		"base.frag.spv":          renderer.FragmentShaderType,
		"shaders/light.frag.spv": renderer.FragmentShaderType,
		"base.geom.spv":          renderer.UnknownShaderType,
		"base.vert":              renderer.UnknownShaderType,
		"base.spv":               renderer.UnknownShaderType,
		"a.b.vert.spv":           renderer.UnknownShaderType,
	} {
		c.Assert(renderer.ShaderTypeOf(name), qt.Equals, want, qt.Commentf(name))
	}
}

func TestShaderFiles(t *testing.T) {
	c := qt.New(t)

	box := packd.NewMemoryBox()
	c.Assert(box.AddBytes("z.vert.spv", []byte{3, 2, 0x23, 7}), qt.IsNil)
	c.Assert(box.AddBytes("a.frag.spv", []byte{3, 2, 0x23, 7, 0, 0, 0, 0}), qt.IsNil)
	c.Assert(box.AddString("README", "not a shader"), qt.IsNil)

	files, err := renderer.ShaderFiles(box)
	c.Assert(err, qt.IsNil)
	c.Assert(files, qt.HasLen, 2)
	c.Assert(files[0].Name, qt.Equals, "a.frag.spv")
	c.Assert(files[0].Type, qt.Equals, renderer.FragmentShaderType)
	c.Assert(files[0].Code, qt.HasLen, 8)
	c.Assert(files[1].Name, qt.Equals, "z.vert.spv")
	c.Assert(files[1].Type, qt.Equals, renderer.VertexShaderType)
}

func TestShaderFilesRejectsTruncatedCode(t *testing.T) {
	c := qt.New(t)

	box := packd.NewMemoryBox()
	c.Assert(box.AddBytes("bad.vert.spv", []byte{1, 2, 3}), qt.IsNil)

	_, err := renderer.ShaderFiles(box)
	c.Assert(err, qt.ErrorMatches, `renderer.ShaderFiles\(\): shader bad.vert.spv is 3 bytes, not SPIR-V`)
}

func TestShaderBox(t *testing.T) {
	c := qt.New(t)

	dir := c.Mkdir()
	c.Assert(os.MkdirAll(filepath.Join(dir, "sub"), 0755), qt.IsNil)
	for name, contents := range map[string][]byte{
		"base.vert.spv":     {1, 0, 0, 0},
		"sub/base.frag.spv": {2, 0, 0, 0},
		"base.vert":         []byte("#version 450"),
	} {
		c.Assert(ioutil.WriteFile(filepath.Join(dir, name), contents, 0644), qt.IsNil)
	}

	box, err := renderer.ShaderBox(dir)
	c.Assert(err, qt.IsNil)
	c.Assert(box.Has("base.vert.spv"), qt.IsTrue)
	c.Assert(box.Has("sub/base.frag.spv"), qt.IsTrue)
	c.Assert(box.Has("base.vert"), qt.IsFalse)

	files, err := renderer.ShaderFiles(box)
	c.Assert(err, qt.IsNil)
	c.Assert(files, qt.HasLen, 2)

	_, err = renderer.ShaderBox(filepath.Join(dir, "missing"))
	c.Assert(err, qt.Not(qt.IsNil))
}
