// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package soft is a CPU emulation of the gfx device model. Transfers and
// blits run in host memory, the queue executes lazily in submission order
// when the host waits, and every command is validated against the tracked
// layout and access state of the resources it touches. Findings are kept
// as violations, barriers in an audit log, so tests can assert on them.
package soft

import (
	"fmt"

	"github.com/devblok/framepace/gfx"
	"github.com/pkg/errors"
)

// DiscreteMemoryTypes is the memory layout of a GPU without unified memory.
func DiscreteMemoryTypes() []gfx.MemoryType {
	return []gfx.MemoryType{
		{Properties: gfx.MemoryDeviceLocal, Heap: 0},
		{Properties: gfx.MemoryHostVisible | gfx.MemoryHostCoherent, Heap: 1},
		{Properties: gfx.MemoryHostVisible | gfx.MemoryHostCoherent | gfx.MemoryHostCached, Heap: 1},
	}
}

// UnifiedMemoryTypes is the memory layout of an integrated GPU.
func UnifiedMemoryTypes() []gfx.MemoryType {
	return []gfx.MemoryType{
		{Properties: gfx.MemoryDeviceLocal | gfx.MemoryHostVisible | gfx.MemoryHostCoherent, Heap: 0},
	}
}

// Config configures an emulated device.
type Config struct {
	// MemoryTypes defaults to DiscreteMemoryTypes.
	MemoryTypes []gfx.MemoryType

	// Features overrides the format features of listed formats, every
	// other format supports everything.
	Features map[gfx.Format]gfx.FormatFeature
}

// NewDevice creates an emulated device.
func NewDevice(cfg Config) *Device {
	if len(cfg.MemoryTypes) == 0 {
		cfg.MemoryTypes = DiscreteMemoryTypes()
	}
	return &Device{
		cfg:  cfg,
		live: make(map[interface{}]string),
	}
}

// Device implements gfx.Device.
type Device struct {
	cfg Config

	pending   []*submission
	submitted int

	live       map[interface{}]string
	violations []string
	audit      []Barrier

	inFlight    int
	maxInFlight int

	submitErr error
}

type submission struct {
	seq      int
	info     gfx.SubmitInfo
	fence    *Fence
	present  *presentOp
	targets  []*Image
	reads    []*Buffer
	complete bool
}

type presentOp struct {
	swapchain *Swapchain
	index     uint32
	wait      *Semaphore
}

// Violations returns every misuse found so far.
func (d *Device) Violations() []string {
	return append([]string(nil), d.violations...)
}

// Audit returns the executed barriers in execution order.
func (d *Device) Audit() []Barrier {
	return append([]Barrier(nil), d.audit...)
}

// ResetAudit clears the audit log.
func (d *Device) ResetAudit() {
	d.audit = d.audit[:0]
}

// MaxInFlight returns the highest number of fenced submissions that were
// pending at the same time.
func (d *Device) MaxInFlight() int {
	return d.maxInFlight
}

// FailNextSubmit makes the next Submit return err without queueing work.
func (d *Device) FailNextSubmit(err error) {
	d.submitErr = err
}

// Submissions returns the number of command batches submitted.
func (d *Device) Submissions() int {
	return d.submitted
}

// Live returns descriptions of objects created and not yet released.
func (d *Device) Live() []string {
	var out []string
	for _, desc := range d.live {
		out = append(out, desc)
	}
	return out
}

func (d *Device) violate(format string, args ...interface{}) {
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}

func (d *Device) track(obj interface{}, desc string) {
	d.live[obj] = desc
}

func (d *Device) untrack(obj interface{}) {
	if _, ok := d.live[obj]; !ok {
		d.violate("release of %T that is not alive", obj)
		return
	}
	delete(d.live, obj)
}

// MemoryTypes implements gfx.Device.
func (d *Device) MemoryTypes() []gfx.MemoryType {
	return d.cfg.MemoryTypes
}

// FormatFeatures implements gfx.Device.
func (d *Device) FormatFeatures(f gfx.Format) gfx.FormatFeature {
	if features, ok := d.cfg.Features[f]; ok {
		return features
	}
	return gfx.FeatureSampledImage | gfx.FeatureSampledImageFilterLinear | gfx.FeatureBlitSrc |
		gfx.FeatureBlitDst | gfx.FeatureColorAttachment | gfx.FeatureDepthStencilAttachment
}

// CreateBuffer implements gfx.Device.
func (d *Device) CreateBuffer(size uint64, usage gfx.BufferUsage) (gfx.Buffer, error) {
	if size == 0 {
		return nil, errors.New("soft.CreateBuffer(): zero size")
	}
	b := &Buffer{device: d, size: size, usage: usage}
	d.track(b, fmt.Sprintf("buffer(%d)", size))
	return b, nil
}

// CreateImage implements gfx.Device.
func (d *Device) CreateImage(info gfx.ImageInfo) (gfx.Image, error) {
	if info.Extent.Width == 0 || info.Extent.Height == 0 {
		return nil, errors.New("soft.CreateImage(): zero extent")
	}
	if info.Levels == 0 {
		info.Levels = 1
	}
	if info.Extent.Depth == 0 {
		info.Extent.Depth = 1
	}
	img := newImage(d, info)
	d.track(img, fmt.Sprintf("image(%dx%d)", info.Extent.Width, info.Extent.Height))
	return img, nil
}

// Allocate implements gfx.Device.
func (d *Device) Allocate(size uint64, memoryType uint32) (gfx.Memory, error) {
	if int(memoryType) >= len(d.cfg.MemoryTypes) {
		return nil, errors.Wrapf(gfx.ErrOutOfMemory, "soft.Allocate(): memory type %d", memoryType)
	}
	m := &Memory{
		device:     d,
		data:       make([]byte, size),
		properties: d.cfg.MemoryTypes[memoryType].Properties,
	}
	d.track(m, fmt.Sprintf("memory(%d)", size))
	return m, nil
}

// CreateImageView implements gfx.Device.
func (d *Device) CreateImageView(img gfx.Image, format gfx.Format, aspect gfx.Aspect, levels uint32) (gfx.ImageView, error) {
	si, ok := img.(*Image)
	if !ok {
		return nil, errors.Errorf("soft.CreateImageView(): foreign image %T", img)
	}
	v := &ImageView{device: d, image: si, levels: levels}
	d.track(v, "view")
	return v, nil
}

// CreateSampler implements gfx.Device.
func (d *Device) CreateSampler(info gfx.SamplerInfo) (gfx.Sampler, error) {
	s := &Sampler{device: d, info: info}
	d.track(s, "sampler")
	return s, nil
}

// CreateFence implements gfx.Device.
func (d *Device) CreateFence(signaled bool) (gfx.Fence, error) {
	f := &Fence{device: d, signaled: signaled}
	d.track(f, "fence")
	return f, nil
}

// CreateSemaphore implements gfx.Device.
func (d *Device) CreateSemaphore() (gfx.Semaphore, error) {
	s := &Semaphore{device: d}
	d.track(s, "semaphore")
	return s, nil
}

// WaitForFences implements gfx.Device. Pending work runs in order until
// each fence is signalled. A fence that nothing pending will signal never
// becomes signalled, which is reported as a timeout.
func (d *Device) WaitForFences(fences []gfx.Fence, timeout uint64) error {
	for _, f := range fences {
		sf, ok := f.(*Fence)
		if !ok {
			return errors.Errorf("soft.WaitForFences(): foreign fence %T", f)
		}
		for !sf.signaled {
			if !d.hasPending(sf) {
				d.violate("wait on fence that will never be signalled")
				return errors.Wrap(gfx.ErrTimeout, "soft.WaitForFences()")
			}
			d.step()
		}
	}
	return nil
}

func (d *Device) hasPending(f *Fence) bool {
	for _, s := range d.pending {
		if s.fence == f {
			return true
		}
	}
	return false
}

// ResetFences implements gfx.Device.
func (d *Device) ResetFences(fences ...gfx.Fence) error {
	for _, f := range fences {
		sf, ok := f.(*Fence)
		if !ok {
			return errors.Errorf("soft.ResetFences(): foreign fence %T", f)
		}
		if d.hasPending(sf) {
			d.violate("reset of fence used by pending work")
		}
		sf.signaled = false
	}
	return nil
}

// AllocateCommandBuffers implements gfx.Device.
func (d *Device) AllocateCommandBuffers(n int) ([]gfx.CommandBuffer, error) {
	out := make([]gfx.CommandBuffer, n)
	for idx := range out {
		cb := &CommandBuffer{device: d}
		d.track(cb, "command buffer")
		out[idx] = cb
	}
	return out, nil
}

// Submit implements gfx.Device.
func (d *Device) Submit(info gfx.SubmitInfo, fence gfx.Fence) error {
	if err := d.submitErr; err != nil {
		d.submitErr = nil
		return errors.Wrap(err, "soft.Submit()")
	}
	s := &submission{seq: d.submitted, info: info}
	d.submitted++

	if fence != nil {
		sf, ok := fence.(*Fence)
		if !ok {
			return errors.Errorf("soft.Submit(): foreign fence %T", fence)
		}
		if sf.signaled {
			d.violate("submit with signalled fence")
		}
		if d.hasPending(sf) {
			d.violate("submit with fence already used by pending work")
		}
		s.fence = sf
	}
	if len(info.Wait) != len(info.WaitStages) {
		d.violate("submit with %d wait semaphores and %d stages", len(info.Wait), len(info.WaitStages))
	}

	for _, c := range info.CommandBuffers {
		cb, ok := c.(*CommandBuffer)
		if !ok {
			return errors.Errorf("soft.Submit(): foreign command buffer %T", c)
		}
		if cb.recording {
			d.violate("submit of command buffer still recording")
		}
		for _, op := range cb.ops {
			if op.target != nil {
				s.targets = append(s.targets, op.target)
			}
			s.reads = append(s.reads, op.reads...)
		}
	}

	for _, t := range s.targets {
		for _, p := range d.pending {
			for _, pt := range p.targets {
				if pt == t {
					d.violate("image %d written by submissions %d and %d in flight together", t.index, p.seq, s.seq)
				}
			}
		}
	}

	d.pending = append(d.pending, s)
	if s.fence != nil {
		d.inFlight++
		if d.inFlight > d.maxInFlight {
			d.maxInFlight = d.inFlight
		}
	}
	return nil
}

// WaitQueueIdle implements gfx.Device.
func (d *Device) WaitQueueIdle() error {
	for len(d.pending) > 0 {
		d.step()
	}
	return nil
}

// WaitIdle implements gfx.Device.
func (d *Device) WaitIdle() error {
	return d.WaitQueueIdle()
}

// step executes the oldest pending entry.
func (d *Device) step() {
	s := d.pending[0]
	d.pending = d.pending[1:]

	if s.present != nil {
		d.executePresent(s.present)
		s.complete = true
		return
	}

	for _, w := range s.info.Wait {
		sem := w.(*Semaphore)
		if !sem.signaled {
			d.violate("submission %d waits on a semaphore nothing signalled", s.seq)
		}
		sem.signaled = false
	}
	for _, c := range s.info.CommandBuffers {
		c.(*CommandBuffer).execute()
	}
	for _, sig := range s.info.Signal {
		sem := sig.(*Semaphore)
		if sem.signaled {
			d.violate("submission %d signals a semaphore that is already signalled", s.seq)
		}
		sem.signaled = true
	}
	if s.fence != nil {
		s.fence.signaled = true
		d.inFlight--
	}
	s.complete = true
}

func (d *Device) executePresent(p *presentOp) {
	if p.wait != nil {
		if !p.wait.signaled {
			d.violate("present of image %d waits on a semaphore nothing signalled", p.index)
		}
		p.wait.signaled = false
	}
	p.swapchain.surface.presented = append(p.swapchain.surface.presented, p.index)
}

// bufferInUse reports whether pending work reads from b.
func (d *Device) bufferInUse(b *Buffer) bool {
	for _, s := range d.pending {
		for _, r := range s.reads {
			if r == b {
				return true
			}
		}
	}
	return false
}

// CreateDescriptorLayout implements gfx.Device.
func (d *Device) CreateDescriptorLayout(bindings []gfx.DescriptorBinding) (gfx.DescriptorLayout, error) {
	l := &DescriptorLayout{device: d, bindings: append([]gfx.DescriptorBinding(nil), bindings...)}
	d.track(l, "descriptor layout")
	return l, nil
}

// CreateDescriptorPool implements gfx.Device.
func (d *Device) CreateDescriptorPool(maxSets uint32, sizes []gfx.DescriptorPoolSize) (gfx.DescriptorPool, error) {
	p := &DescriptorPool{
		device:    d,
		maxSets:   maxSets,
		remaining: make(map[gfx.DescriptorType]uint32),
	}
	for _, s := range sizes {
		p.remaining[s.Type] += s.Count
	}
	d.track(p, "descriptor pool")
	return p, nil
}

// UpdateDescriptorSet implements gfx.Device.
func (d *Device) UpdateDescriptorSet(set gfx.DescriptorSet, writes ...gfx.DescriptorWrite) {
	ds, ok := set.(*DescriptorSet)
	if !ok {
		d.violate("update of foreign descriptor set %T", set)
		return
	}
	if ds.pool.released {
		d.violate("update of descriptor set from released pool")
	}
	for _, w := range writes {
		binding, ok := ds.layout.binding(w.Binding)
		if !ok {
			d.violate("write to missing binding %d", w.Binding)
			continue
		}
		if binding.Type != w.Type {
			d.violate("write of type %d to binding %d of type %d", w.Type, w.Binding, binding.Type)
		}
		count := uint32(1)
		if w.Type == gfx.DescriptorCombinedImageSampler {
			count = uint32(len(w.Images))
		}
		if w.ArrayElement+count > binding.Count {
			d.violate("write past end of binding %d", w.Binding)
		}
		ds.writes[w.Binding] = w
	}
}

// CreateSwapchain implements gfx.Device.
func (d *Device) CreateSwapchain(surface gfx.Surface, info gfx.SwapchainInfo, old gfx.Swapchain) (gfx.Swapchain, error) {
	srf, ok := surface.(*Surface)
	if !ok {
		return nil, errors.Errorf("soft.CreateSwapchain(): foreign surface %T", surface)
	}
	if info.Extent.Empty() {
		d.violate("swapchain with empty extent")
		return nil, errors.New("soft.CreateSwapchain(): empty extent")
	}
	if old != nil {
		if os, ok := old.(*Swapchain); ok {
			os.retired = true
		}
	}
	sc := &Swapchain{device: d, surface: srf, info: info}
	for idx := uint32(0); idx < info.ImageCount; idx++ {
		img := newImage(d, gfx.ImageInfo{
			Format:  info.Format.Format,
			Extent:  gfx.Extent3D{Width: info.Extent.Width, Height: info.Extent.Height, Depth: 1},
			Levels:  1,
			Samples: 1,
			Usage:   gfx.ImageColorAttachment,
		})
		img.index = int(idx)
		img.presentable = true
		sc.images = append(sc.images, img)
	}
	srf.created = append(srf.created, info)
	srf.stale = false
	d.track(sc, "swapchain")
	return sc, nil
}
