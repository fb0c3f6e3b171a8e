// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"

	"github.com/devblok/framepace/gfx"
	"github.com/pkg/errors"
)

// Kind classifies engine failures.
type Kind int

// Failure kinds.
const (
	KindOther Kind = iota
	KindConfiguration
	KindAllocation
	KindUnsupportedTransition
	KindUnsupportedBlit
	KindLayoutMismatch
	KindStaleSurface
	KindDeviceLost
	KindTimeout
)

var kindNames = [...]string{
	"error",
	"configuration error",
	"allocation error",
	"unsupported transition",
	"unsupported blit",
	"layout mismatch",
	"stale surface",
	"device lost",
	"timeout",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Error is a classified engine failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Sentinels matching any Error of their kind through errors.Is.
var (
	ErrConfiguration         = &Error{Kind: KindConfiguration}
	ErrAllocation            = &Error{Kind: KindAllocation}
	ErrUnsupportedTransition = &Error{Kind: KindUnsupportedTransition}
	ErrUnsupportedBlit       = &Error{Kind: KindUnsupportedBlit}
	ErrLayoutMismatch        = &Error{Kind: KindLayoutMismatch}
	ErrStaleSurface          = &Error{Kind: KindStaleSurface}
	ErrDeviceLost            = &Error{Kind: KindDeviceLost}
	ErrTimeout               = &Error{Kind: KindTimeout}
)

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return e.Kind.String()
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Cause returns the underlying error.
func (e *Error) Cause() error {
	return e.Err
}

// Is matches sentinels of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

func newError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func configErrorf(op, format string, args ...interface{}) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: errors.Errorf(format, args...)}
}

// classify turns a backend failure into an engine error.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*Error); ok {
		return err
	}
	switch {
	case errors.Is(err, gfx.ErrOutOfDate):
		return newError(KindStaleSurface, op, err)
	case errors.Is(err, gfx.ErrDeviceLost):
		return newError(KindDeviceLost, op, err)
	case errors.Is(err, gfx.ErrTimeout):
		return newError(KindTimeout, op, err)
	case errors.Is(err, gfx.ErrOutOfMemory), errors.Is(err, gfx.ErrPoolExhausted):
		return newError(KindAllocation, op, err)
	}
	return newError(KindOther, op, err)
}

// Recoverable reports whether rendering can continue after err by
// recreating the swapchain.
func Recoverable(err error) bool {
	return errors.Is(err, ErrStaleSurface)
}
