// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model

import (
	glm "github.com/go-gl/mathgl/mgl32"
)

// ComputeTangents fills in the tangent of every vertex from the UV
// gradient of the triangles it belongs to.
func ComputeTangents(vertices []Vertex, indices []uint32) {
	for idx := range vertices {
		vertices[idx].Tangent = glm.Vec3{}
	}
	for tri := 0; tri+2 < len(indices); tri += 3 {
		i0, i1, i2 := indices[tri], indices[tri+1], indices[tri+2]
		v0, v1, v2 := vertices[i0], vertices[i1], vertices[i2]

		e1, e2 := v1.Pos.Sub(v0.Pos), v2.Pos.Sub(v0.Pos)
		d1, d2 := v1.UV.Sub(v0.UV), v2.UV.Sub(v0.UV)

		det := d1[0]*d2[1] - d2[0]*d1[1]
		if det == 0 {
			continue
		}
		t := e1.Mul(d2[1]).Sub(e2.Mul(d1[1])).Mul(1 / det)

		vertices[i0].Tangent = vertices[i0].Tangent.Add(t)
		vertices[i1].Tangent = vertices[i1].Tangent.Add(t)
		vertices[i2].Tangent = vertices[i2].Tangent.Add(t)
	}
	for idx := range vertices {
		if vertices[idx].Tangent.Len() > 0 {
			vertices[idx].Tangent = vertices[idx].Tangent.Normalize()
		}
	}
}
