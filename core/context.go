// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/devblok/framepace/gfx"
	"github.com/sirupsen/logrus"
)

// Context is the device handle set every engine component is built from.
type Context struct {
	Device gfx.Device
	Logger logrus.FieldLogger
}

// NewContext creates a context, a nil logger means the standard logger.
func NewContext(device gfx.Device, logger logrus.FieldLogger) Context {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return Context{
		Device: device,
		Logger: logger,
	}
}

func (c Context) log(component string) logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.WithField("component", component)
	}
	return c.Logger.WithField("component", component)
}

// Arena groups releasables so they are released together in reverse order
// of addition.
type Arena struct {
	items []gfx.Releasable
}

// Add appends releasables, nil values are skipped.
func (a *Arena) Add(items ...gfx.Releasable) {
	for _, item := range items {
		if item != nil {
			a.items = append(a.items, item)
		}
	}
}

// Len returns the number of held releasables.
func (a *Arena) Len() int {
	return len(a.items)
}

// Release releases everything held, last added first, and empties the arena.
func (a *Arena) Release() {
	for idx := len(a.items) - 1; idx >= 0; idx-- {
		a.items[idx].Release()
	}
	a.items = a.items[:0]
}
