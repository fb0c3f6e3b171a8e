// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestCompressExtract(t *testing.T) {
	c := qt.New(t)
	log, hook := test.NewNullLogger()

	src := c.Mkdir()
	files := map[string]string{
		"cube.dae":            "<COLLADA/>",
		"textures/cube.png":   "png bytes",
		"textures/deep/n.png": "normal map",
	}
	for name, contents := range files {
		path := filepath.Join(src, filepath.FromSlash(name))
		c.Assert(os.MkdirAll(filepath.Dir(path), 0755), qt.IsNil)
		c.Assert(ioutil.WriteFile(path, []byte(contents), 0644), qt.IsNil)
	}

	archive := filepath.Join(c.Mkdir(), "assets.kar")
	c.Assert(compressFiles(log, src, archive), qt.IsNil)
	c.Assert(hook.LastEntry().Message, qt.Equals, "archive written")
	c.Assert(hook.LastEntry().Data["files"], qt.Equals, 3)

	err := compressFiles(log, src, archive)
	c.Assert(err, qt.ErrorMatches, `destination file .* exists, will not overwrite`)

	mapped, ar, err := openArchive(archive)
	c.Assert(err, qt.IsNil)
	defer mapped.Close()
	c.Assert(ar.Files(), qt.DeepEquals, []string{"cube.dae", "textures/cube.png", "textures/deep/n.png"})

	dst := c.Mkdir()
	c.Assert(extractFiles(log, archive, dst), qt.IsNil)
	for name, contents := range files {
		data, err := ioutil.ReadFile(filepath.Join(dst, filepath.FromSlash(name)))
		c.Assert(err, qt.IsNil)
		c.Assert(string(data), qt.Equals, contents)
	}

	c.Assert(listFiles(log, archive), qt.IsNil)
	c.Assert(hook.LastEntry().Data["size"], qt.Equals, int64(len("normal map")))
}
