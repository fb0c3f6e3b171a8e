// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/devblok/framepace/util/collada"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// ImportColladaObject reads given file and converts the first Collada
// geometry to engine's internal object. Every triangle corner becomes a
// vertex, tangents are derived from the texture coordinates.
func ImportColladaObject(fileContents []byte) (*ColladaObject, error) {
	var colladaModel collada.Collada
	if err := xml.Unmarshal(fileContents, &colladaModel); err != nil {
		return nil, errors.Wrap(err, "collada decode")
	}
	if len(colladaModel.Geometries) == 0 {
		return nil, errors.New("collada: no geometry")
	}

	mesh := colladaModel.Geometries[0].Mesh
	positions, err := positionSource(&mesh)
	if err != nil {
		return nil, err
	}

	triangles := mesh.Triangles
	stride := triangles.Stride()
	vertexInput, _ := triangles.Input("VERTEX")

	normals, normalOffset, hasNormals := optionalSource(&mesh, "NORMAL")
	texcoords, uvOffset, hasUV := optionalSource(&mesh, "TEXCOORD")

	var (
		vertices []Vertex
		indices  []uint32
	)
	for corner := 0; corner+stride <= len(triangles.Index); corner += stride {
		p := triangles.Index[corner : corner+stride]

		var vert Vertex
		pos := p[vertexInput.Offset]
		if 3*pos+2 >= len(positions.Floats.Data) {
			return nil, errors.Errorf("collada: position index %d out of range", pos)
		}
		vert.Pos = glm.Vec3{
			positions.Floats.Data[3*pos],
			positions.Floats.Data[3*pos+1],
			positions.Floats.Data[3*pos+2],
		}
		if hasNormals {
			n := p[normalOffset]
			if 3*n+2 < len(normals.Floats.Data) {
				vert.Normal = glm.Vec3{
					normals.Floats.Data[3*n],
					normals.Floats.Data[3*n+1],
					normals.Floats.Data[3*n+2],
				}
			}
		}
		if hasUV {
			uvStride := texcoords.Accessor.Stride
			if uvStride == 0 {
				uvStride = 2
			}
			t := p[uvOffset]
			if uvStride*t+1 < len(texcoords.Floats.Data) {
				// Collada origin is bottom left, textures are top left
				vert.UV = glm.Vec2{
					texcoords.Floats.Data[uvStride*t],
					1 - texcoords.Floats.Data[uvStride*t+1],
				}
			}
		}

		indices = append(indices, uint32(len(vertices)))
		vertices = append(vertices, vert)
	}
	ComputeTangents(vertices, indices)

	obj := &ColladaObject{
		vertices: vertices,
		indices:  indices,
	}
	obj.position = glm.Ident4()
	obj.rotation = glm.Ident4()
	return obj, nil
}

// ColladaObject is imported from a collada (.dae) file.
// Loaded and held in memory
type ColladaObject struct {
	transform

	vertices []Vertex
	indices  []uint32
}

// Vertices implements interface
func (co *ColladaObject) Vertices() []Vertex {
	return co.vertices
}

// Indices implements interface
func (co *ColladaObject) Indices() []uint32 {
	return co.indices
}

func positionSource(mesh *collada.Mesh) (collada.Source, error) {
	for _, in := range mesh.Vertices.Inputs {
		if in.Semantic == "POSITION" {
			if s, ok := mesh.Find(in.Source); ok {
				return s, nil
			}
		}
	}
	return findSource(mesh.Source, "positions")
}

func optionalSource(mesh *collada.Mesh, semantic string) (collada.Source, uint, bool) {
	in, ok := mesh.Triangles.Input(semantic)
	if !ok {
		return collada.Source{}, 0, false
	}
	s, ok := mesh.Find(in.Source)
	return s, in.Offset, ok
}

func findSource(sources []collada.Source, dataType string) (collada.Source, error) {
	for _, s := range sources {
		if strings.HasSuffix(s.ID, fmt.Sprintf("-%s", dataType)) {
			return s, nil
		}
	}
	return collada.Source{}, errors.Errorf("collada: %s source not found", dataType)
}
