// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"unsafe"

	"github.com/devblok/framepace/gfx"
	"github.com/devblok/framepace/model"
)

// Mesh is geometry in device local vertex and index buffers.
type Mesh struct {
	Vertices *Buffer
	Indices  *Buffer
	Count    uint32
}

// NewMesh uploads the geometry of an object.
func NewMesh(t *TransferEngine, vertices []model.Vertex, indices []uint32) (*Mesh, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, configErrorf("core.NewMesh()", "empty geometry")
	}
	vb, err := uploadSlice(t, vertexBytes(vertices), gfx.BufferVertex)
	if err != nil {
		return nil, err
	}
	ib, err := uploadSlice(t, indexBytes(indices), gfx.BufferIndex)
	if err != nil {
		vb.Release()
		return nil, err
	}
	return &Mesh{
		Vertices: vb,
		Indices:  ib,
		Count:    uint32(len(indices)),
	}, nil
}

func uploadSlice(t *TransferEngine, data []byte, usage gfx.BufferUsage) (*Buffer, error) {
	buf, err := t.CreateBuffer(uint64(len(data)), usage|gfx.BufferTransferDst|gfx.BufferTransferSrc, gfx.MemoryDeviceLocal)
	if err != nil {
		return nil, err
	}
	if err := t.Upload(buf, data); err != nil {
		buf.Release()
		return nil, err
	}
	return buf, nil
}

// Release destroys both buffers.
func (m *Mesh) Release() {
	m.Indices.Release()
	m.Vertices.Release()
}

func vertexBytes(v []model.Vertex) []byte {
	size := int(unsafe.Sizeof(model.Vertex{})) * len(v)
	return *(*[]byte)(unsafe.Pointer(&sliceHeader{
		Data: uintptr(unsafe.Pointer(&v[0])),
		Len:  size,
		Cap:  size,
	}))
}

func indexBytes(v []uint32) []byte {
	size := 4 * len(v)
	return *(*[]byte)(unsafe.Pointer(&sliceHeader{
		Data: uintptr(unsafe.Pointer(&v[0])),
		Len:  size,
		Cap:  size,
	}))
}

func uniformBytes(u *model.Uniform) []byte {
	return (*[unsafe.Sizeof(model.Uniform{})]byte)(unsafe.Pointer(u))[:]
}
