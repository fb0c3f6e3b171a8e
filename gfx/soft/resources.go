// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package soft

import (
	"github.com/devblok/framepace/gfx"
	"github.com/pkg/errors"
)

// Memory implements gfx.Memory with a host byte slice.
type Memory struct {
	device     *Device
	data       []byte
	properties gfx.MemoryProperty
	mapped     bool
	buffers    []*Buffer
}

// Size implements gfx.Memory.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// Properties returns the properties of the memory type it came from.
func (m *Memory) Properties() gfx.MemoryProperty {
	return m.properties
}

// Map implements gfx.Memory.
func (m *Memory) Map() ([]byte, error) {
	if m.properties&gfx.MemoryHostVisible == 0 {
		m.device.violate("map of memory that is not host visible")
		return nil, errors.New("soft.Map(): memory not host visible")
	}
	if m.mapped {
		m.device.violate("memory mapped twice")
	}
	for _, b := range m.buffers {
		if m.device.bufferInUse(b) {
			m.device.violate("host access to buffer read by pending work")
		}
	}
	m.mapped = true
	return m.data, nil
}

// Unmap implements gfx.Memory.
func (m *Memory) Unmap() {
	m.mapped = false
}

// Release implements gfx.Releasable.
func (m *Memory) Release() {
	m.device.untrack(m)
}

// Buffer implements gfx.Buffer.
type Buffer struct {
	device *Device
	size   uint64
	usage  gfx.BufferUsage
	memory *Memory
}

// Size implements gfx.Buffer.
func (b *Buffer) Size() uint64 {
	return b.size
}

// Requirements implements gfx.Buffer. Uniform buffers want host memory on
// real hardware too, every type is allowed here.
func (b *Buffer) Requirements() gfx.MemoryRequirements {
	return gfx.MemoryRequirements{
		Size:      align(b.size, 256),
		Alignment: 256,
		TypeBits:  allTypes(b.device),
	}
}

// Bind implements gfx.Buffer.
func (b *Buffer) Bind(mem gfx.Memory) error {
	sm, ok := mem.(*Memory)
	if !ok {
		return errors.Errorf("soft.BindBuffer(): foreign memory %T", mem)
	}
	if b.memory != nil {
		b.device.violate("buffer bound twice")
	}
	if sm.Size() < b.size {
		return errors.New("soft.BindBuffer(): memory too small")
	}
	b.memory = sm
	sm.buffers = append(sm.buffers, b)
	return nil
}

// Bytes returns the contents of the buffer.
func (b *Buffer) Bytes() []byte {
	if b.memory == nil {
		return nil
	}
	return b.memory.data[:b.size]
}

// Release implements gfx.Releasable.
func (b *Buffer) Release() {
	if b.device.bufferInUse(b) {
		b.device.violate("release of buffer read by pending work")
	}
	b.device.untrack(b)
}

// Level is the tracked state of one mip level.
type Level struct {
	Extent  gfx.Extent3D
	Layout  gfx.Layout
	Data    []byte
	pending gfx.Access // writes not yet made available by a barrier
	visible gfx.Access // accesses allowed by the last barrier
}

// Image implements gfx.Image.
type Image struct {
	device      *Device
	info        gfx.ImageInfo
	levels      []*Level
	memory      *Memory
	index       int
	presentable bool
}

func newImage(d *Device, info gfx.ImageInfo) *Image {
	img := &Image{device: d, info: info, index: -1}
	w, h := info.Extent.Width, info.Extent.Height
	for l := uint32(0); l < info.Levels; l++ {
		img.levels = append(img.levels, &Level{
			Extent: gfx.Extent3D{Width: w, Height: h, Depth: 1},
			Layout: gfx.LayoutUndefined,
			Data:   make([]byte, int(w)*int(h)*info.Format.TexelSize()),
		})
		w, h = half(w), half(h)
	}
	return img
}

func half(v uint32) uint32 {
	if v > 1 {
		return v / 2
	}
	return 1
}

// Info implements gfx.Image.
func (i *Image) Info() gfx.ImageInfo {
	return i.info
}

// Requirements implements gfx.Image.
func (i *Image) Requirements() gfx.MemoryRequirements {
	var size uint64
	for _, l := range i.levels {
		size += uint64(len(l.Data))
	}
	if size == 0 {
		size = 1
	}
	return gfx.MemoryRequirements{
		Size:      align(size, 4096),
		Alignment: 4096,
		TypeBits:  deviceLocalTypes(i.device),
	}
}

// Bind implements gfx.Image.
func (i *Image) Bind(mem gfx.Memory) error {
	sm, ok := mem.(*Memory)
	if !ok {
		return errors.Errorf("soft.BindImage(): foreign memory %T", mem)
	}
	if i.memory != nil {
		i.device.violate("image bound twice")
	}
	i.memory = sm
	return nil
}

// Levels returns the tracked state of every mip level.
func (i *Image) Levels() []*Level {
	return i.levels
}

// Release implements gfx.Releasable.
func (i *Image) Release() {
	if i.presentable {
		i.device.violate("release of swapchain image")
		return
	}
	i.device.untrack(i)
}

// ImageView implements gfx.ImageView.
type ImageView struct {
	device *Device
	image  *Image
	levels uint32
}

// Image returns the viewed image.
func (v *ImageView) Image() *Image {
	return v.image
}

// Release implements gfx.Releasable.
func (v *ImageView) Release() {
	v.device.untrack(v)
}

// Sampler implements gfx.Sampler.
type Sampler struct {
	device *Device
	info   gfx.SamplerInfo
}

// Info returns the creation parameters.
func (s *Sampler) Info() gfx.SamplerInfo {
	return s.info
}

// Release implements gfx.Releasable.
func (s *Sampler) Release() {
	s.device.untrack(s)
}

// Fence implements gfx.Fence.
type Fence struct {
	device   *Device
	signaled bool
}

// Signaled reports the fence state.
func (f *Fence) Signaled() bool {
	return f.signaled
}

// Release implements gfx.Releasable.
func (f *Fence) Release() {
	if f.device.hasPending(f) {
		f.device.violate("release of fence used by pending work")
	}
	f.device.untrack(f)
}

// Semaphore implements gfx.Semaphore.
type Semaphore struct {
	device   *Device
	signaled bool
}

// Release implements gfx.Releasable.
func (s *Semaphore) Release() {
	s.device.untrack(s)
}

// DescriptorLayout implements gfx.DescriptorLayout.
type DescriptorLayout struct {
	device   *Device
	bindings []gfx.DescriptorBinding
}

func (l *DescriptorLayout) binding(n uint32) (gfx.DescriptorBinding, bool) {
	for _, b := range l.bindings {
		if b.Binding == n {
			return b, true
		}
	}
	return gfx.DescriptorBinding{}, false
}

// Release implements gfx.Releasable.
func (l *DescriptorLayout) Release() {
	l.device.untrack(l)
}

// DescriptorPool implements gfx.DescriptorPool.
type DescriptorPool struct {
	device    *Device
	maxSets   uint32
	sets      uint32
	remaining map[gfx.DescriptorType]uint32
	released  bool
}

// Allocate implements gfx.DescriptorPool.
func (p *DescriptorPool) Allocate(layout gfx.DescriptorLayout, n int) ([]gfx.DescriptorSet, error) {
	sl, ok := layout.(*DescriptorLayout)
	if !ok {
		return nil, errors.Errorf("soft.AllocateDescriptorSets(): foreign layout %T", layout)
	}
	out := make([]gfx.DescriptorSet, 0, n)
	for idx := 0; idx < n; idx++ {
		if p.sets+1 > p.maxSets {
			return nil, errors.Wrap(gfx.ErrPoolExhausted, "soft.AllocateDescriptorSets(): sets")
		}
		for _, b := range sl.bindings {
			if p.remaining[b.Type] < b.Count {
				return nil, errors.Wrapf(gfx.ErrPoolExhausted, "soft.AllocateDescriptorSets(): type %d", b.Type)
			}
			p.remaining[b.Type] -= b.Count
		}
		p.sets++
		out = append(out, &DescriptorSet{
			pool:   p,
			layout: sl,
			writes: make(map[uint32]gfx.DescriptorWrite),
		})
	}
	return out, nil
}

// Release implements gfx.Releasable.
func (p *DescriptorPool) Release() {
	p.released = true
	p.device.untrack(p)
}

// DescriptorSet is an emulated descriptor set.
type DescriptorSet struct {
	pool   *DescriptorPool
	layout *DescriptorLayout
	writes map[uint32]gfx.DescriptorWrite
}

// Write returns the last write to a binding.
func (s *DescriptorSet) Write(binding uint32) (gfx.DescriptorWrite, bool) {
	w, ok := s.writes[binding]
	return w, ok
}

func align(v, a uint64) uint64 {
	return (v + a - 1) / a * a
}

func allTypes(d *Device) uint32 {
	return 1<<uint(len(d.cfg.MemoryTypes)) - 1
}

// deviceLocalTypes returns the types an optimal image may live in.
func deviceLocalTypes(d *Device) uint32 {
	var bits uint32
	for idx, t := range d.cfg.MemoryTypes {
		if t.Properties&gfx.MemoryDeviceLocal != 0 {
			bits |= 1 << uint(idx)
		}
	}
	if bits == 0 {
		return allTypes(d)
	}
	return bits
}
