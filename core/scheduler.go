// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"time"

	"github.com/devblok/framepace/gfx"
	"github.com/loov/hrtime"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// frameSlot is the synchronization of one frame in flight.
type frameSlot struct {
	imageAvailable gfx.Semaphore
	renderDone     gfx.Semaphore
	inFlight       gfx.Fence
}

// Stats are frame pacing counters.
type Stats struct {
	Frames      int
	Recreations int
	LastFrame   time.Duration
	MaxFrame    time.Duration
}

// FrameScheduler paces frames: at most frames submissions are in flight
// and no swapchain image is written by two of them at once.
type FrameScheduler struct {
	ctx        Context
	log        logrus.FieldLogger
	frames     int
	swapchains *SwapchainManager
	bindings   *BindingSet
	recorder   Recorder
	window     Window

	slots []frameSlot
	busy  []gfx.Fence
	slot  int
	arena Arena

	stats Stats
}

// NewFrameScheduler creates a scheduler for frames slots. Synchronization
// objects are built by Rebuild once the swapchain exists.
func NewFrameScheduler(ctx Context, frames int, swapchains *SwapchainManager, bindings *BindingSet, recorder Recorder, window Window) *FrameScheduler {
	return &FrameScheduler{
		ctx:        ctx,
		log:        ctx.log("scheduler"),
		frames:     frames,
		swapchains: swapchains,
		bindings:   bindings,
		recorder:   recorder,
		window:     window,
	}
}

// Rebuild creates the frame slots and an empty image busy map for sc.
func (f *FrameScheduler) Rebuild(sc *Swapchain) error {
	f.Release()
	dev := f.ctx.Device
	f.slots = make([]frameSlot, f.frames)
	for idx := range f.slots {
		var (
			slot frameSlot
			err  error
		)
		if slot.imageAvailable, err = dev.CreateSemaphore(); err != nil {
			return classify("core.FrameScheduler.Rebuild()", err)
		}
		f.arena.Add(slot.imageAvailable)
		if slot.renderDone, err = dev.CreateSemaphore(); err != nil {
			return classify("core.FrameScheduler.Rebuild()", err)
		}
		f.arena.Add(slot.renderDone)
		if slot.inFlight, err = dev.CreateFence(true); err != nil {
			return classify("core.FrameScheduler.Rebuild()", err)
		}
		f.arena.Add(slot.inFlight)
		f.slots[idx] = slot
	}
	f.busy = make([]gfx.Fence, sc.ImageCount())
	return nil
}

// Release destroys the frame slots.
func (f *FrameScheduler) Release() {
	f.arena.Release()
	f.slots, f.busy = nil, nil
}

// Stats returns the pacing counters.
func (f *FrameScheduler) Stats() Stats {
	return f.stats
}

// RenderFrame renders and presents one frame. A stale swapchain or a
// resized window recreates the swapchain, the frame is skipped when that
// happens before submission.
func (f *FrameScheduler) RenderFrame(source UniformSource) error {
	start := hrtime.Now()
	dev := f.ctx.Device
	slot := f.slots[f.slot]

	if err := dev.WaitForFences([]gfx.Fence{slot.inFlight}, gfx.Forever); err != nil {
		return classify("core.RenderFrame(): wait frame", err)
	}

	sc := f.swapchains.Current()
	image, _, err := sc.Raw.Acquire(slot.imageAvailable)
	if err != nil {
		if err = classify("core.RenderFrame(): acquire", err); !Recoverable(err) {
			return err
		}
		return f.recreate("acquire")
	}
	if f.window.Resized() {
		return f.recreate("resize")
	}

	if busy := f.busy[image]; busy != nil {
		if err := dev.WaitForFences([]gfx.Fence{busy}, gfx.Forever); err != nil {
			return classify("core.RenderFrame(): wait image", err)
		}
	}
	f.busy[image] = slot.inFlight

	if err := f.bindings.Update(int(image), source); err != nil {
		return err
	}

	if err := dev.ResetFences(slot.inFlight); err != nil {
		return classify("core.RenderFrame(): reset", err)
	}
	if err := dev.Submit(gfx.SubmitInfo{
		Wait:           []gfx.Semaphore{slot.imageAvailable},
		WaitStages:     []gfx.Stage{gfx.StageColorAttachmentOutput},
		CommandBuffers: []gfx.CommandBuffer{f.recorder.CommandBuffer(int(image))},
		Signal:         []gfx.Semaphore{slot.renderDone},
	}, slot.inFlight); err != nil {
		return classify("core.RenderFrame(): submit", err)
	}

	_, err = sc.Raw.Present(image, slot.renderDone)
	if err != nil {
		if err = classify("core.RenderFrame(): present", err); !Recoverable(err) {
			return err
		}
	}
	resized := f.window.Resized()
	if err != nil || resized {
		if err := f.recreate("present"); err != nil {
			return err
		}
	}

	f.slot = (f.slot + 1) % f.frames
	f.stats.Frames++
	f.stats.LastFrame = hrtime.Since(start)
	if f.stats.LastFrame > f.stats.MaxFrame {
		f.stats.MaxFrame = f.stats.LastFrame
	}
	f.log.WithFields(logrus.Fields{
		"image": image,
		"slot":  f.slot,
	}).Debug("frame presented")
	return nil
}

func (f *FrameScheduler) recreate(reason string) error {
	f.log.WithField("reason", reason).Info("recreating swapchain")
	f.stats.Recreations++
	if err := f.swapchains.Recreate(); err != nil {
		return errors.Wrap(err, "core.RenderFrame(): recreate")
	}
	return nil
}
