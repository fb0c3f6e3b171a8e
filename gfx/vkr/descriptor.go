// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/framepace/gfx"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
)

// DescriptorLayout wraps a descriptor set layout.
type DescriptorLayout struct {
	device vk.Device
	layout vk.DescriptorSetLayout
}

// Handle returns the vulkan descriptor set layout.
func (l *DescriptorLayout) Handle() vk.DescriptorSetLayout {
	return l.layout
}

// Release destroys the layout.
func (l *DescriptorLayout) Release() {
	vk.DestroyDescriptorSetLayout(l.device, l.layout, nil)
}

// CreateDescriptorLayout implements gfx.Device.
func (d *Device) CreateDescriptorLayout(bindings []gfx.DescriptorBinding) (gfx.DescriptorLayout, error) {
	dslb := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for idx, b := range bindings {
		dslb[idx] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  descriptorType(b.Type),
			DescriptorCount: b.Count,
			StageFlags:      ShaderStages(b.Stages),
		}
	}
	dslci := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(dslb)),
		PBindings:    dslb,
	}
	var layout vk.DescriptorSetLayout
	if err := result("vk.CreateDescriptorSetLayout()", vk.CreateDescriptorSetLayout(d.device, &dslci, nil, &layout)); err != nil {
		return nil, err
	}
	return &DescriptorLayout{device: d.device, layout: layout}, nil
}

// DescriptorPool implements gfx.DescriptorPool.
type DescriptorPool struct {
	device vk.Device
	pool   vk.DescriptorPool
}

// Allocate implements gfx.DescriptorPool, sets are allocated one by one.
func (p *DescriptorPool) Allocate(layout gfx.DescriptorLayout, n int) ([]gfx.DescriptorSet, error) {
	dsai := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout.(*DescriptorLayout).layout},
	}
	sets := make([]gfx.DescriptorSet, n)
	for idx := range sets {
		var set vk.DescriptorSet
		res := vk.AllocateDescriptorSets(p.device, &dsai, &set)
		if res == vk.ErrorOutOfPoolMemory || res == vk.ErrorFragmentedPool {
			return nil, errors.Wrapf(gfx.ErrPoolExhausted, "vk.AllocateDescriptorSets()[%d]", idx)
		}
		if err := result("vk.AllocateDescriptorSets()", res); err != nil {
			return nil, err
		}
		sets[idx] = &DescriptorSet{set: set}
	}
	return sets, nil
}

// Release destroys the pool and every set allocated from it.
func (p *DescriptorPool) Release() {
	vk.DestroyDescriptorPool(p.device, p.pool, nil)
}

// DescriptorSet wraps an allocated descriptor set.
type DescriptorSet struct {
	set vk.DescriptorSet
}

// Handle returns the vulkan descriptor set.
func (s *DescriptorSet) Handle() vk.DescriptorSet {
	return s.set
}

// CreateDescriptorPool implements gfx.Device.
func (d *Device) CreateDescriptorPool(maxSets uint32, sizes []gfx.DescriptorPoolSize) (gfx.DescriptorPool, error) {
	dps := make([]vk.DescriptorPoolSize, len(sizes))
	for idx, s := range sizes {
		dps[idx] = vk.DescriptorPoolSize{
			Type:            descriptorType(s.Type),
			DescriptorCount: s.Count,
		}
	}
	dpci := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(dps)),
		PPoolSizes:    dps,
	}
	var pool vk.DescriptorPool
	if err := result("vk.CreateDescriptorPool()", vk.CreateDescriptorPool(d.device, &dpci, nil, &pool)); err != nil {
		return nil, err
	}
	return &DescriptorPool{device: d.device, pool: pool}, nil
}

// UpdateDescriptorSet implements gfx.Device.
func (d *Device) UpdateDescriptorSet(set gfx.DescriptorSet, writes ...gfx.DescriptorWrite) {
	dst := set.(*DescriptorSet).set
	wds := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          dst,
			DstBinding:      w.Binding,
			DstArrayElement: w.ArrayElement,
			DescriptorType:  descriptorType(w.Type),
		}
		switch w.Type {
		case gfx.DescriptorUniformBuffer:
			write.DescriptorCount = 1
			write.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: w.Buffer.(*Buffer).buffer,
				Offset: 0,
				Range:  vk.DeviceSize(w.Range),
			}}
		case gfx.DescriptorCombinedImageSampler:
			infos := make([]vk.DescriptorImageInfo, len(w.Images))
			for idx, img := range w.Images {
				infos[idx] = vk.DescriptorImageInfo{
					ImageLayout: Layout(img.Layout),
					ImageView:   img.View.(*ImageView).view,
					Sampler:     img.Sampler.(*Sampler).sampler,
				}
			}
			write.DescriptorCount = uint32(len(infos))
			write.PImageInfo = infos
		}
		wds = append(wds, write)
	}
	vk.UpdateDescriptorSets(d.device, uint32(len(wds)), wds, 0, nil)
}
