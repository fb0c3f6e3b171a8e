// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package model holds the scene side data the renderer consumes: objects,
// vertices, the per object uniform and the camera producing it.
package model

import (
	glm "github.com/go-gl/mathgl/mgl32"
)

// Object represents the engine supported model
type Object interface {

	// SetPosition sets the object's current position in space.
	// Has to be thread-safe
	SetPosition(glm.Mat4)

	// Position gets the object's current position in space.
	// Has to be thread-safe
	Position() glm.Mat4

	// SetRotation sets the object's rotation matrix.
	// Has to be thread-safe
	SetRotation(glm.Mat4)

	// Rotation gets the object's rotation matrix.
	// Has to be thread-safe
	Rotation() glm.Mat4

	// Vertices returns the vertices for Renderer use,
	// so it has to match the descriptors exactly
	Vertices() []Vertex

	// Indices returns the triangle list indexing Vertices.
	Indices() []uint32
}

// Vertex is a model vertex
type Vertex struct {
	Pos     glm.Vec3
	Normal  glm.Vec3
	UV      glm.Vec2
	Tangent glm.Vec3
}

// Uniform defines a model-view-projection object
type Uniform struct {
	Model      glm.Mat4
	View       glm.Mat4
	Projection glm.Mat4
}

// ModelMatrix combines position and rotation of an object.
func ModelMatrix(o Object) glm.Mat4 {
	return o.Position().Mul4(o.Rotation())
}

// NewStatic creates an object from fixed geometry placed at the origin.
func NewStatic(vertices []Vertex, indices []uint32) *Static {
	s := &Static{
		vertices: vertices,
		indices:  indices,
	}
	s.position = glm.Ident4()
	s.rotation = glm.Ident4()
	return s
}

// Static is an object with geometry that never changes.
type Static struct {
	transform

	vertices []Vertex
	indices  []uint32
}

// Vertices implements interface
func (s *Static) Vertices() []Vertex {
	return s.vertices
}

// Indices implements interface
func (s *Static) Indices() []uint32 {
	return s.indices
}
