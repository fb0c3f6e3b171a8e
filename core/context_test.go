// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/framepace/core"
	"github.com/devblok/framepace/gfx/soft"
)

type releaseLog struct {
	name string
	log  *[]string
}

func (r releaseLog) Release() {
	*r.log = append(*r.log, r.name)
}

func TestArenaReleasesInReverse(t *testing.T) {
	c := qt.New(t)

	var released []string
	var arena core.Arena
	arena.Add(releaseLog{"a", &released}, nil, releaseLog{"b", &released})
	arena.Add(releaseLog{"c", &released})
	c.Assert(arena.Len(), qt.Equals, 3)

	arena.Release()
	c.Assert(released, qt.DeepEquals, []string{"c", "b", "a"})
	c.Assert(arena.Len(), qt.Equals, 0)

	arena.Release()
	c.Assert(released, qt.HasLen, 3)
}

func TestContextLogsComponent(t *testing.T) {
	c := qt.New(t)
	_, ctx, hook := newTestContext(soft.Config{})
	engine := core.NewTransferEngine(ctx)

	_, err := engine.CreateBuffer(16, 0, 1<<7)
	c.Assert(err, qt.Not(qt.IsNil))

	entry := hook.LastEntry()
	c.Assert(entry, qt.Not(qt.IsNil))
	c.Assert(entry.Data["component"], qt.Equals, "transfer")
	c.Assert(entry.Message, qt.Equals, "no suitable memory type")
}
