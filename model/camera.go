// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model

import (
	"math"

	glm "github.com/go-gl/mathgl/mgl32"
)

// Camera projection defaults.
const (
	DefaultFov  float32 = 25
	DefaultNear float32 = 0.1
	DefaultFar  float32 = 100
)

// NewCamera creates a camera at pos looking down the negative Z axis.
func NewCamera(pos glm.Vec3) *Camera {
	c := &Camera{
		Position: pos,
		Up:       glm.Vec3{0, 1, 0},
		Yaw:      -90,
		Fov:      DefaultFov,
		Near:     DefaultNear,
		Far:      DefaultFar,
	}
	c.updateFront()
	return c
}

// Camera is a free look camera. Angles are in degrees.
type Camera struct {
	Position glm.Vec3
	Front    glm.Vec3
	Up       glm.Vec3

	Yaw   float32
	Pitch float32

	Fov, Near, Far float32
}

// Turn rotates the camera, pitch is kept within (-89, 89).
func (c *Camera) Turn(yaw, pitch float32) {
	c.Yaw += yaw
	c.Pitch += pitch
	if c.Pitch > 89 {
		c.Pitch = 89
	}
	if c.Pitch < -89 {
		c.Pitch = -89
	}
	c.updateFront()
}

// Move moves the camera along its front and right vectors.
func (c *Camera) Move(forward, right float32) {
	side := c.Front.Cross(c.Up).Normalize()
	c.Position = c.Position.Add(c.Front.Mul(forward)).Add(side.Mul(right))
}

func (c *Camera) updateFront() {
	yaw, pitch := float64(c.Yaw)*math.Pi/180, float64(c.Pitch)*math.Pi/180
	c.Front = glm.Vec3{
		float32(math.Cos(yaw) * math.Cos(pitch)),
		float32(math.Sin(pitch)),
		float32(math.Sin(yaw) * math.Cos(pitch)),
	}.Normalize()
}

// View returns the view matrix.
func (c *Camera) View() glm.Mat4 {
	return glm.LookAtV(c.Position, c.Position.Add(c.Front), c.Up)
}

// Projection returns the projection for a target of the given size, with
// the Y axis flipped for clip space pointing down.
func (c *Camera) Projection(width, height uint32) glm.Mat4 {
	aspect := float32(1)
	if height != 0 {
		aspect = float32(width) / float32(height)
	}
	proj := glm.Perspective(glm.DegToRad(c.Fov), aspect, c.Near, c.Far)
	proj[5] *= -1
	return proj
}

// Uniform builds the uniform of an object seen from the camera.
func (c *Camera) Uniform(o Object, width, height uint32) Uniform {
	return Uniform{
		Model:      ModelMatrix(o),
		View:       c.View(),
		Projection: c.Projection(width, height),
	}
}
