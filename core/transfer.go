// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/devblok/framepace/gfx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// staging is the memory every host to device copy goes through.
const staging = gfx.MemoryHostVisible | gfx.MemoryHostCoherent

// NewTransferEngine creates the transfer engine of a device context.
func NewTransferEngine(ctx Context) *TransferEngine {
	return &TransferEngine{
		ctx: ctx,
		log: ctx.log("transfer"),
	}
}

// TransferEngine creates device resources and moves data into them with
// one-shot command sequences.
type TransferEngine struct {
	ctx Context
	log logrus.FieldLogger

	// undo restores layouts recorded by the running one-shot.
	undo      []func()
	recording bool
}

// Context returns the device context the engine works on.
func (t *TransferEngine) Context() Context {
	return t.ctx
}

// CreateBuffer creates a buffer bound to memory with the given properties.
func (t *TransferEngine) CreateBuffer(size uint64, usage gfx.BufferUsage, props gfx.MemoryProperty) (*Buffer, error) {
	dev := t.ctx.Device
	buffer, err := dev.CreateBuffer(size, usage)
	if err != nil {
		return nil, classify("core.CreateBuffer()", err)
	}
	memory, err := t.allocate(buffer.Requirements(), props)
	if err != nil {
		buffer.Release()
		return nil, err
	}
	if err := buffer.Bind(memory); err != nil {
		buffer.Release()
		memory.Release()
		return nil, classify("core.CreateBuffer()", err)
	}
	return &Buffer{
		buffer: buffer,
		memory: memory,
		props:  props,
	}, nil
}

// CreateImage creates an image bound to memory with the given properties.
// Every level starts out undefined.
func (t *TransferEngine) CreateImage(info gfx.ImageInfo, props gfx.MemoryProperty) (*Image, error) {
	if info.Levels == 0 {
		info.Levels = 1
	}
	if info.Samples == 0 {
		info.Samples = 1
	}
	if info.Extent.Depth == 0 {
		info.Extent.Depth = 1
	}
	dev := t.ctx.Device
	image, err := dev.CreateImage(info)
	if err != nil {
		return nil, classify("core.CreateImage()", err)
	}
	memory, err := t.allocate(image.Requirements(), props)
	if err != nil {
		image.Release()
		return nil, err
	}
	if err := image.Bind(memory); err != nil {
		image.Release()
		memory.Release()
		return nil, classify("core.CreateImage()", err)
	}
	return &Image{
		image:   image,
		memory:  memory,
		info:    info,
		layouts: make([]gfx.Layout, info.Levels),
	}, nil
}

func (t *TransferEngine) allocate(req gfx.MemoryRequirements, props gfx.MemoryProperty) (gfx.Memory, error) {
	typeIdx, err := findMemoryType(t.ctx.Device.MemoryTypes(), req.TypeBits, props)
	if err != nil {
		t.log.WithFields(logrus.Fields{
			"size":       req.Size,
			"typeBits":   req.TypeBits,
			"properties": props,
		}).Error("no suitable memory type")
		return nil, err
	}
	memory, err := t.ctx.Device.Allocate(req.Size, typeIdx)
	if err != nil {
		return nil, classify("core.allocate()", err)
	}
	return memory, nil
}

// OneShot records commands with fn into a transient command buffer, submits
// it and waits for the queue to become idle. The command buffer is freed
// before returning, whatever the outcome. Layouts recorded by fn are
// restored when the sequence fails.
func (t *TransferEngine) OneShot(fn func(gfx.CommandBuffer) error) (err error) {
	if t.recording {
		return errors.New("core.OneShot(): already recording")
	}
	t.recording = true
	defer func() {
		if err != nil {
			for idx := len(t.undo) - 1; idx >= 0; idx-- {
				t.undo[idx]()
			}
		}
		t.undo = nil
		t.recording = false
	}()
	return t.oneShot(fn)
}

func (t *TransferEngine) oneShot(fn func(gfx.CommandBuffer) error) error {
	dev := t.ctx.Device
	cbs, err := dev.AllocateCommandBuffers(1)
	if err != nil {
		return classify("core.OneShot()", err)
	}
	cb := cbs[0]
	defer cb.Release()

	if err := cb.Begin(true); err != nil {
		return classify("core.OneShot()", err)
	}
	if err := fn(cb); err != nil {
		cb.End()
		return err
	}
	if err := cb.End(); err != nil {
		return classify("core.OneShot()", err)
	}
	if err := dev.Submit(gfx.SubmitInfo{CommandBuffers: []gfx.CommandBuffer{cb}}, nil); err != nil {
		return classify("core.OneShot()", err)
	}
	return classify("core.OneShot()", dev.WaitQueueIdle())
}

// Upload copies data into the start of dst through a staging buffer.
func (t *TransferEngine) Upload(dst *Buffer, data []byte) error {
	if uint64(len(data)) > dst.Size() {
		return errors.Errorf("core.Upload(): %d bytes into buffer of %d", len(data), dst.Size())
	}
	if len(data) == 0 {
		return nil
	}
	stage, err := t.stage(data)
	if err != nil {
		return err
	}
	defer stage.Release()

	return t.OneShot(func(cb gfx.CommandBuffer) error {
		cb.CopyBuffer(stage.Raw(), dst.Raw(), uint64(len(data)))
		return nil
	})
}

// Download copies the contents of src back to the host.
func (t *TransferEngine) Download(src *Buffer) ([]byte, error) {
	stage, err := t.CreateBuffer(src.Size(), gfx.BufferTransferDst, staging)
	if err != nil {
		return nil, err
	}
	defer stage.Release()

	if err := t.OneShot(func(cb gfx.CommandBuffer) error {
		cb.CopyBuffer(src.Raw(), stage.Raw(), src.Size())
		return nil
	}); err != nil {
		return nil, err
	}
	return stage.Read(src.Size())
}

// UploadImage fills level 0 of an undefined image with tightly packed
// pixels and leaves every level ready for sampling. With more than one
// level the rest of the chain is generated from level 0.
func (t *TransferEngine) UploadImage(dst *Image, pixels []byte) error {
	info := dst.Info()
	want := int(info.Extent.Width) * int(info.Extent.Height) * info.Format.TexelSize()
	if len(pixels) != want {
		return errors.Errorf("core.UploadImage(): %d bytes for a %dx%d image, need %d",
			len(pixels), info.Extent.Width, info.Extent.Height, want)
	}
	if err := dst.expect("core.UploadImage()", gfx.LayoutUndefined, 0, dst.Levels()); err != nil {
		return err
	}

	stage, err := t.stage(pixels)
	if err != nil {
		return err
	}
	defer stage.Release()

	if err := t.OneShot(func(cb gfx.CommandBuffer) error {
		if err := t.RecordTransition(cb, dst, gfx.LayoutUndefined, gfx.LayoutTransferDst, 0, dst.Levels()); err != nil {
			return err
		}
		cb.CopyBufferToImage(stage.Raw(), dst.Raw(), gfx.LayoutTransferDst, gfx.BufferImageCopy{
			Aspect: gfx.AspectColor,
			Level:  0,
			Extent: info.Extent,
		})
		return nil
	}); err != nil {
		return err
	}

	if dst.Levels() > 1 {
		return t.GenerateMipChain(dst)
	}
	return t.TransitionLayout(dst, gfx.LayoutTransferDst, gfx.LayoutShaderReadOnly, 0, 1)
}

// stage creates a staging buffer holding data.
func (t *TransferEngine) stage(data []byte) (*Buffer, error) {
	stage, err := t.CreateBuffer(uint64(len(data)), gfx.BufferTransferSrc, staging)
	if err != nil {
		return nil, err
	}
	if err := stage.Write(data); err != nil {
		stage.Release()
		return nil, err
	}
	return stage, nil
}

// transition is the synchronization of one supported layout edge.
type transition struct {
	srcStage, dstStage   gfx.Stage
	srcAccess, dstAccess gfx.Access
}

var transitions = map[[2]gfx.Layout]transition{
	{gfx.LayoutUndefined, gfx.LayoutTransferDst}: {
		srcStage: gfx.StageTopOfPipe, srcAccess: gfx.AccessNone,
		dstStage: gfx.StageTransfer, dstAccess: gfx.AccessTransferWrite,
	},
	{gfx.LayoutTransferDst, gfx.LayoutShaderReadOnly}: {
		srcStage: gfx.StageTransfer, srcAccess: gfx.AccessTransferWrite,
		dstStage: gfx.StageFragmentShader, dstAccess: gfx.AccessShaderRead,
	},
	{gfx.LayoutUndefined, gfx.LayoutDepthStencilAttachment}: {
		srcStage: gfx.StageTopOfPipe, srcAccess: gfx.AccessNone,
		dstStage: gfx.StageEarlyFragmentTests, dstAccess: gfx.AccessDepthStencilRead | gfx.AccessDepthStencilWrite,
	},
}

// TransitionLayout moves levels of img from old to new layout in a
// one-shot sequence.
func (t *TransferEngine) TransitionLayout(img *Image, old, new gfx.Layout, baseLevel, levels uint32) error {
	if _, _, err := lookupTransition(img, old, new, baseLevel, levels); err != nil {
		return err
	}
	return t.OneShot(func(cb gfx.CommandBuffer) error {
		return t.RecordTransition(cb, img, old, new, baseLevel, levels)
	})
}

// RecordTransition records a supported layout transition into cb and
// updates the tracked layouts.
func (t *TransferEngine) RecordTransition(cb gfx.CommandBuffer, img *Image, old, new gfx.Layout, baseLevel, levels uint32) error {
	tr, aspect, err := lookupTransition(img, old, new, baseLevel, levels)
	if err != nil {
		return err
	}
	cb.PipelineBarrier(tr.srcStage, tr.dstStage, gfx.ImageBarrier{
		Image:      img.Raw(),
		OldLayout:  old,
		NewLayout:  new,
		SrcAccess:  tr.srcAccess,
		DstAccess:  tr.dstAccess,
		Aspect:     aspect,
		BaseLevel:  baseLevel,
		LevelCount: levels,
	})
	t.setLayout(img, new, baseLevel, levels)
	return nil
}

// setLayout updates the tracked layouts of img, remembering the previous
// ones while a one-shot is recording.
func (t *TransferEngine) setLayout(img *Image, layout gfx.Layout, base, count uint32) {
	if t.recording {
		prev := append([]gfx.Layout(nil), img.layouts[base:base+count]...)
		t.undo = append(t.undo, func() { copy(img.layouts[base:], prev) })
	}
	img.setLayout(layout, base, count)
}

func lookupTransition(img *Image, old, new gfx.Layout, baseLevel, levels uint32) (transition, gfx.Aspect, error) {
	tr, ok := transitions[[2]gfx.Layout{old, new}]
	if !ok {
		return transition{}, 0, newError(KindUnsupportedTransition, "core.TransitionLayout()",
			errors.Errorf("%s -> %s", old, new))
	}
	if err := img.expect("core.TransitionLayout()", old, baseLevel, levels); err != nil {
		return transition{}, 0, err
	}
	aspect := gfx.AspectColor
	if new == gfx.LayoutDepthStencilAttachment {
		aspect = gfx.AspectDepth
		if img.Info().Format.HasStencil() {
			aspect |= gfx.AspectStencil
		}
	}
	return tr, aspect, nil
}
