// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/devblok/framepace/gfx"
	"github.com/devblok/framepace/model"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Recorder records the per image command buffers of a swapchain: render
// pass, pipeline, attachments and framebuffers are its business.
type Recorder interface {
	// Build creates everything for sc and records one command buffer per
	// swapchain image drawing objects with their binding sets.
	Build(sc *Swapchain, bindings *BindingSet, objects []*Object) error

	// CommandBuffer returns the recorded command buffer of a swapchain image.
	CommandBuffer(image int) gfx.CommandBuffer

	// Release destroys everything Build created.
	Release()
}

// NewRenderer creates a renderer on the context. It is usable after
// Initialise.
func NewRenderer(ctx Context, cfg RendererConfiguration, recorder Recorder) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if recorder == nil {
		return nil, configErrorf("core.NewRenderer()", "no recorder")
	}
	return &Renderer{
		ctx:      ctx,
		log:      ctx.log("renderer"),
		cfg:      cfg,
		engine:   NewTransferEngine(ctx),
		recorder: recorder,
		camera:   model.NewCamera(glm.Vec3{0, 0, 3}),
	}, nil
}

// Renderer ties together the swapchain, the bindings, the recorder and the
// frame scheduler.
type Renderer struct {
	ctx      Context
	log      logrus.FieldLogger
	cfg      RendererConfiguration
	engine   *TransferEngine
	recorder Recorder
	camera   *model.Camera

	swapchains *SwapchainManager
	bindings   *BindingSet
	scheduler  *FrameScheduler
	objects    []*Object
}

// Engine returns the transfer engine textures and meshes are uploaded with.
func (r *Renderer) Engine() *TransferEngine {
	return r.engine
}

// Camera returns the camera the uniforms are computed from.
func (r *Renderer) Camera() *model.Camera {
	return r.camera
}

// Swapchains returns the swapchain manager, nil before Initialise.
func (r *Renderer) Swapchains() *SwapchainManager {
	return r.swapchains
}

// Stats returns the frame pacing counters.
func (r *Renderer) Stats() Stats {
	if r.scheduler == nil {
		return Stats{}
	}
	return r.scheduler.Stats()
}

// Initialise creates the swapchain of the surface and everything built
// from it for the given objects.
func (r *Renderer) Initialise(surface gfx.Surface, window Window, objects []*Object) error {
	if r.swapchains != nil {
		return errors.New("core.Renderer.Initialise(): already initialised")
	}
	bindings, err := NewBindingSet(r.ctx, r.engine, r.cfg.MaxTexturesPerObject)
	if err != nil {
		return err
	}
	r.bindings = bindings
	r.objects = objects
	r.swapchains = NewSwapchainManager(r.ctx, surface, window, r.cfg.PresentMode)
	r.scheduler = NewFrameScheduler(r.ctx, r.cfg.FramesInFlight, r.swapchains, r.bindings, r.recorder, window)

	r.swapchains.Register(Dependant{
		Name:    "bindings",
		Release: r.bindings.Release,
		Rebuild: func(sc *Swapchain) error {
			return r.bindings.Rebuild(sc.ImageCount(), r.objects)
		},
	})
	r.swapchains.Register(Dependant{
		Name:    "recorder",
		Release: r.recorder.Release,
		Rebuild: func(sc *Swapchain) error {
			return r.recorder.Build(sc, r.bindings, r.objects)
		},
	})
	r.swapchains.Register(Dependant{
		Name:    "sync",
		Release: r.scheduler.Release,
		Rebuild: r.scheduler.Rebuild,
	})

	if err := r.swapchains.Create(); err != nil {
		return err
	}
	sc := r.swapchains.Current()
	if err := r.bindings.Rebuild(sc.ImageCount(), r.objects); err != nil {
		return err
	}
	if err := r.recorder.Build(sc, r.bindings, r.objects); err != nil {
		return err
	}
	if err := r.scheduler.Rebuild(sc); err != nil {
		return err
	}

	r.log.WithFields(logrus.Fields{
		"objects": len(objects),
		"frames":  r.cfg.FramesInFlight,
		"images":  sc.ImageCount(),
	}).Info("renderer initialised")
	return nil
}

// RenderFrame draws one frame with the camera uniforms.
func (r *Renderer) RenderFrame() error {
	if r.scheduler == nil {
		return errors.New("core.Renderer.RenderFrame(): not initialised")
	}
	extent := r.swapchains.Current().Extent
	return r.scheduler.RenderFrame(func(obj *Object) model.Uniform {
		return r.camera.Uniform(obj.Source, extent.Width, extent.Height)
	})
}

// RenderFrameWith draws one frame with uniforms from source.
func (r *Renderer) RenderFrameWith(source UniformSource) error {
	if r.scheduler == nil {
		return errors.New("core.Renderer.RenderFrameWith(): not initialised")
	}
	return r.scheduler.RenderFrame(source)
}

// Destroy waits for the device to go idle and releases everything in
// reverse order of creation. Objects passed to Initialise stay with the
// caller.
func (r *Renderer) Destroy() {
	if err := r.ctx.Device.WaitIdle(); err != nil {
		r.log.WithError(err).Warn("wait idle before destroy")
	}
	if r.scheduler != nil {
		r.scheduler.Release()
	}
	r.recorder.Release()
	if r.bindings != nil {
		r.bindings.Destroy()
	}
	if r.swapchains != nil {
		r.swapchains.Destroy()
	}
	r.scheduler, r.bindings, r.swapchains = nil, nil, nil
}
