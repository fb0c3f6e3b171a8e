// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
	pkgerrors "github.com/pkg/errors"

	"github.com/devblok/framepace/gfx"
)

func TestClassify(t *testing.T) {
	c := qt.New(t)

	for _, test := range []struct {
		err  error
		kind Kind
	}{
		{gfx.ErrOutOfDate, KindStaleSurface},
		{gfx.ErrDeviceLost, KindDeviceLost},
		{gfx.ErrTimeout, KindTimeout},
		{gfx.ErrOutOfMemory, KindAllocation},
		{gfx.ErrPoolExhausted, KindAllocation},
		{errors.New("unexpected"), KindOther},
	} {
		err := classify("op", pkgerrors.Wrap(test.err, "alloc"))
		var target *Error
		c.Assert(errors.As(err, &target), qt.IsTrue)
		c.Assert(target.Kind, qt.Equals, test.kind, qt.Commentf("%v", test.err))
		c.Assert(target.Op, qt.Equals, "op")
		c.Assert(errors.Is(err, test.err), qt.IsTrue)
	}

	err := classify("op", pkgerrors.Wrap(gfx.ErrPoolExhausted, "alloc"))
	c.Assert(errors.Is(err, ErrAllocation), qt.IsTrue)
	c.Assert(classify("op", nil), qt.IsNil)

	own := &Error{Kind: KindConfiguration, Op: "inner"}
	c.Assert(classify("outer", own), qt.Equals, error(own))
}
