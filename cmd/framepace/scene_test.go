// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/framepace/assets"
)

func TestObjectFlags(t *testing.T) {
	c := qt.New(t)

	var objects objectFlags
	c.Assert(objects.Set("suzanne=models/suzanne.dae:suzanne.png,suzanne_n.png"), qt.IsNil)
	c.Assert(objects.Set("cube=cube.dae:cube.png"), qt.IsNil)
	c.Assert(objects, qt.DeepEquals, objectFlags{
		{Name: "suzanne", Model: "models/suzanne.dae", Textures: []string{"suzanne.png", "suzanne_n.png"}},
		{Name: "cube", Model: "cube.dae", Textures: []string{"cube.png"}},
	})
	c.Assert(objects.String(), qt.Equals, "suzanne,cube")

	for _, bad := range []string{"", "cube", "=cube.dae:cube.png", "cube=:cube.png", "cube=cube.dae:", "cube:cube.png"} {
		c.Assert(objects.Set(bad), qt.ErrorMatches, `object .*: want name=model:texture,...`, qt.Commentf(bad))
	}
}

func TestDiscoverObjects(t *testing.T) {
	c := qt.New(t)

	objects := discoverObjects([]string{
		"assets/cube.dae",
		"assets/cube.png",
		"assets/cube_normal.png",
		"assets/cube.txt",
		"assets/suzanne.dae",
		"assets/suzanne.jpg",
		"other/cube.png",
		"lonely.dae",
	})
	c.Assert(objects, qt.DeepEquals, []assets.ObjectInfo{
		{Name: "cube", Model: "assets/cube.dae", Textures: []string{"assets/cube.png", "assets/cube_normal.png"}},
		{Name: "suzanne", Model: "assets/suzanne.dae", Textures: []string{"assets/suzanne.jpg"}},
	})
}
