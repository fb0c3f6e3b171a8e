// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model

import (
	"sync"

	glm "github.com/go-gl/mathgl/mgl32"
)

// transform is the thread-safe placement shared by object kinds.
type transform struct {
	mutex    sync.RWMutex
	position glm.Mat4
	rotation glm.Mat4
}

// SetPosition implements interface
func (t *transform) SetPosition(pos glm.Mat4) {
	t.mutex.Lock()
	t.position = pos
	t.mutex.Unlock()
}

// Position implements interface
func (t *transform) Position() glm.Mat4 {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.position
}

// SetRotation implements interface
func (t *transform) SetRotation(rot glm.Mat4) {
	t.mutex.Lock()
	t.rotation = rot
	t.mutex.Unlock()
}

// Rotation implements interface
func (t *transform) Rotation() glm.Mat4 {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.rotation
}
