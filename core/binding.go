// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"unsafe"

	"github.com/devblok/framepace/gfx"
	"github.com/devblok/framepace/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Descriptor bindings of every object.
const (
	UniformBinding = 0
	TextureBinding = 1
)

// UniformSize is the size of the per object uniform buffer.
const UniformSize = uint64(unsafe.Sizeof(model.Uniform{}))

// Object is one drawable thing: where it is, its geometry and textures.
type Object struct {
	Name     string
	Source   model.Object
	Mesh     *Mesh
	Textures []*Texture
}

// UniformSource produces the uniform of an object for the current frame.
type UniformSource func(obj *Object) model.Uniform

// NewBindingSet creates the descriptor layout shared by every object: a
// uniform buffer for the vertex stage and an array of maxTextures samplers
// for the fragment stage. Sets are created by Rebuild.
func NewBindingSet(ctx Context, engine *TransferEngine, maxTextures uint32) (*BindingSet, error) {
	if maxTextures == 0 {
		return nil, configErrorf("core.NewBindingSet()", "no texture slots")
	}
	layout, err := ctx.Device.CreateDescriptorLayout([]gfx.DescriptorBinding{
		{
			Binding: UniformBinding,
			Type:    gfx.DescriptorUniformBuffer,
			Count:   1,
			Stages:  gfx.ShaderVertex,
		},
		{
			Binding: TextureBinding,
			Type:    gfx.DescriptorCombinedImageSampler,
			Count:   maxTextures,
			Stages:  gfx.ShaderFragment,
		},
	})
	if err != nil {
		return nil, classify("core.NewBindingSet()", err)
	}
	return &BindingSet{
		ctx:         ctx,
		log:         ctx.log("bindings"),
		engine:      engine,
		layout:      layout,
		maxTextures: maxTextures,
	}, nil
}

// BindingSet holds per object, per swapchain image uniform buffers and
// descriptor sets. Index order is [object][image].
type BindingSet struct {
	ctx         Context
	log         logrus.FieldLogger
	engine      *TransferEngine
	layout      gfx.DescriptorLayout
	maxTextures uint32

	pool     gfx.DescriptorPool
	arena    Arena
	objects  []*Object
	uniforms [][]*Buffer
	sets     [][]gfx.DescriptorSet
	images   int
}

// Layout returns the descriptor layout of the sets.
func (b *BindingSet) Layout() gfx.DescriptorLayout {
	return b.layout
}

// Objects returns the objects of the last rebuild.
func (b *BindingSet) Objects() []*Object {
	return b.objects
}

// ImageCount returns the image count of the last rebuild.
func (b *BindingSet) ImageCount() int {
	return b.images
}

// Set returns the descriptor set of an object for a swapchain image.
func (b *BindingSet) Set(object, image int) gfx.DescriptorSet {
	return b.sets[object][image]
}

// Uniform returns the uniform buffer of an object for a swapchain image.
func (b *BindingSet) Uniform(object, image int) *Buffer {
	return b.uniforms[object][image]
}

// Rebuild discards every set and buffer and creates them for imageCount
// swapchain images and the given objects.
func (b *BindingSet) Rebuild(imageCount int, objects []*Object) error {
	const op = "core.BindingSet.Rebuild()"
	b.Release()

	for _, obj := range objects {
		if len(obj.Textures) == 0 {
			return configErrorf(op, "object %q has no texture", obj.Name)
		}
		if uint32(len(obj.Textures)) > b.maxTextures {
			return configErrorf(op, "object %q has %d textures, layout holds %d", obj.Name, len(obj.Textures), b.maxTextures)
		}
	}
	if imageCount == 0 || len(objects) == 0 {
		b.objects, b.images = objects, imageCount
		return nil
	}

	n, k := uint32(len(objects)), uint32(imageCount)
	pool, err := b.ctx.Device.CreateDescriptorPool(n*k, []gfx.DescriptorPoolSize{
		{Type: gfx.DescriptorUniformBuffer, Count: n * k},
		{Type: gfx.DescriptorCombinedImageSampler, Count: n * b.maxTextures * k},
	})
	if err != nil {
		return classify(op, err)
	}
	b.pool = pool

	b.uniforms = make([][]*Buffer, len(objects))
	b.sets = make([][]gfx.DescriptorSet, len(objects))
	for o, obj := range objects {
		images := make([]gfx.ImageSampler, b.maxTextures)
		for idx := range images {
			tex := obj.Textures[0]
			if idx < len(obj.Textures) {
				tex = obj.Textures[idx]
			}
			images[idx] = gfx.ImageSampler{
				View:    tex.View,
				Sampler: tex.Sampler,
				Layout:  gfx.LayoutShaderReadOnly,
			}
		}

		for img := 0; img < imageCount; img++ {
			ub, err := b.engine.CreateBuffer(UniformSize, gfx.BufferUniform, staging)
			if err != nil {
				b.Release()
				return err
			}
			b.arena.Add(ub)
			b.uniforms[o] = append(b.uniforms[o], ub)

			sets, err := pool.Allocate(b.layout, 1)
			if err != nil {
				b.Release()
				return classify(op, err)
			}
			b.sets[o] = append(b.sets[o], sets[0])

			b.ctx.Device.UpdateDescriptorSet(sets[0],
				gfx.DescriptorWrite{
					Binding: UniformBinding,
					Type:    gfx.DescriptorUniformBuffer,
					Buffer:  ub.Raw(),
					Range:   UniformSize,
				},
				gfx.DescriptorWrite{
					Binding: TextureBinding,
					Type:    gfx.DescriptorCombinedImageSampler,
					Images:  images,
				},
			)
		}
	}
	b.objects, b.images = objects, imageCount

	b.log.WithFields(logrus.Fields{
		"objects": len(objects),
		"images":  imageCount,
	}).Debug("bindings rebuilt")
	return nil
}

// Update writes the uniform of every object into its buffer for image.
func (b *BindingSet) Update(image int, source UniformSource) error {
	if image >= b.images {
		return errors.Errorf("core.BindingSet.Update(): image %d of %d", image, b.images)
	}
	for o, obj := range b.objects {
		u := source(obj)
		if err := b.uniforms[o][image].Write(uniformBytes(&u)); err != nil {
			return err
		}
	}
	return nil
}

// Release frees the pool, every set allocated from it and the uniform
// buffers. The layout survives until Destroy.
func (b *BindingSet) Release() {
	b.arena.Release()
	if b.pool != nil {
		b.pool.Release()
		b.pool = nil
	}
	b.uniforms, b.sets, b.objects, b.images = nil, nil, nil, 0
}

// Destroy releases everything including the layout.
func (b *BindingSet) Destroy() {
	b.Release()
	if b.layout != nil {
		b.layout.Release()
		b.layout = nil
	}
}
