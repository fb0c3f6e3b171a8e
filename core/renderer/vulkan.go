// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package renderer records the draw commands of the engine with Vulkan.
package renderer

import (
	"github.com/devblok/framepace/core"
	"github.com/devblok/framepace/gfx"
	"github.com/devblok/framepace/gfx/vkr"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// NewVulkanRecorder creates a recorder drawing with the given shaders.
// The shaders stay owned by the recorder and are destroyed by Destroy.
func NewVulkanRecorder(ctx core.Context, device *vkr.Device, shaders []*Shader, cfg Configuration) (*VulkanRecorder, error) {
	if len(shaders) == 0 {
		return nil, errors.New("renderer.NewVulkanRecorder(): no shaders")
	}
	pcci := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	var pipelineCache vk.PipelineCache
	if err := vk.Error(vk.CreatePipelineCache(device.Handle(), &pcci, nil, &pipelineCache)); err != nil {
		return nil, errors.New("vk.CreatePipelineCache(): " + err.Error())
	}

	samples := cfg.Samples
	if samples == 0 || !device.SupportsSamples(samples) {
		samples = 1
	}

	log := ctx.Logger.WithField("component", "recorder")
	if samples != cfg.Samples {
		log.WithField("samples", cfg.Samples).Warn("multisampling not supported, using 1 sample")
	}

	return &VulkanRecorder{
		log:           log,
		engine:        core.NewTransferEngine(ctx),
		device:        device,
		shaders:       shaders,
		cfg:           cfg,
		samples:       samples,
		pipelineCache: pipelineCache,
	}, nil
}

// VulkanRecorder implements core.Recorder. Everything it builds depends
// on the swapchain and is rebuilt on every recreation.
type VulkanRecorder struct {
	log     logrus.FieldLogger
	engine  *core.TransferEngine
	device  *vkr.Device
	shaders []*Shader
	cfg     Configuration
	samples uint32

	pipelineCache  vk.PipelineCache
	renderPass     vk.RenderPass
	pipelineLayout vk.PipelineLayout
	pipeline       vk.Pipeline
	attachments    *Attachments
	framebuffers   []vk.Framebuffer
	commandBuffers []gfx.CommandBuffer
}

// Samples returns the multisample count in use.
func (v *VulkanRecorder) Samples() uint32 {
	return v.samples
}

// Build implements core.Recorder.
func (v *VulkanRecorder) Build(sc *core.Swapchain, bindings *core.BindingSet, objects []*core.Object) error {
	v.Release()

	attachments, err := NewAttachments(v.engine, sc.Extent, sc.Format.Format, v.samples)
	if err != nil {
		return err
	}
	v.attachments = attachments

	steps := []func() error{
		func() error { return v.createRenderPass(sc.Format.Format) },
		func() error { return v.createPipelineLayout(bindings.Layout()) },
		v.createPipeline,
		func() error { return v.createFramebuffers(sc) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			v.Release()
			return err
		}
	}

	cbs, err := v.device.AllocateCommandBuffers(sc.ImageCount())
	if err != nil {
		v.Release()
		return errors.Wrap(err, "renderer.Build()")
	}
	v.commandBuffers = cbs
	for idx := range cbs {
		if err := v.buildCommandBuffer(idx, sc.Extent, bindings, objects); err != nil {
			v.Release()
			return err
		}
	}

	v.log.WithFields(logrus.Fields{
		"images":  sc.ImageCount(),
		"objects": len(objects),
		"samples": v.samples,
		"depth":   attachments.DepthFormat,
	}).Debug("command buffers recorded")
	return nil
}

// CommandBuffer implements core.Recorder.
func (v *VulkanRecorder) CommandBuffer(image int) gfx.CommandBuffer {
	return v.commandBuffers[image]
}

func (v *VulkanRecorder) createRenderPass(format gfx.Format) error {
	samples := vkr.Samples(v.samples)
	colorFinal := vk.ImageLayoutPresentSrc
	if v.attachments.Multisampled() {
		colorFinal = vk.ImageLayoutColorAttachmentOptimal
	}

	attachments := []vk.AttachmentDescription{
		{
			Format:         vkr.Format(format),
			Samples:        samples,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    colorFinal,
		},
		{
			Format:         vkr.Format(v.attachments.DepthFormat),
			Samples:        samples,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutDepthStencilAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	colorAttachmentRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	depthAttachmentRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colorAttachmentRef)),
		PColorAttachments:       colorAttachmentRef,
		PDepthStencilAttachment: &depthAttachmentRef,
	}

	if v.attachments.Multisampled() {
		attachments[0].StoreOp = vk.AttachmentStoreOpDontCare
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         vkr.Format(format),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		})
		subpass.PResolveAttachments = []vk.AttachmentReference{{
			Attachment: 2,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}}
	}

	subpassDependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
	}

	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{subpassDependency},
	}

	var renderPass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(v.device.Handle(), &rpci, nil, &renderPass)); err != nil {
		return errors.New("vk.CreateRenderPass(): " + err.Error())
	}
	v.renderPass = renderPass
	return nil
}

func (v *VulkanRecorder) createPipelineLayout(layout gfx.DescriptorLayout) error {
	dl, ok := layout.(*vkr.DescriptorLayout)
	if !ok {
		return errors.Errorf("renderer.createPipelineLayout(): foreign layout %T", layout)
	}
	plci := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{dl.Handle()},
	}

	var pipelineLayout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(v.device.Handle(), &plci, nil, &pipelineLayout)); err != nil {
		return errors.New("vk.CreatePipelineLayout(): " + err.Error())
	}
	v.pipelineLayout = pipelineLayout
	return nil
}

func (v *VulkanRecorder) createPipeline() error {
	stages := make([]vk.PipelineShaderStageCreateInfo, 0, len(v.shaders))
	for _, shader := range v.shaders {
		var stage vk.ShaderStageFlagBits
		switch shader.Type() {
		case VertexShaderType:
			stage = vk.ShaderStageVertexBit
		case FragmentShaderType:
			stage = vk.ShaderStageFragmentBit
		default:
			return errors.Errorf("renderer.createPipeline(): shader %s of unsupported type", shader.Name())
		}
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: shader.Module(),
			PName:  "main\x00",
		})
	}

	vertexAttributeDescriptions := VertexAttributeDescriptions()
	vertexBindingDescriptions := VertexBindingDescriptions()

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexAttributeDescriptionCount: uint32(len(vertexAttributeDescriptions)),
			PVertexAttributeDescriptions:    vertexAttributeDescriptions,
			VertexBindingDescriptionCount:   uint32(len(vertexBindingDescriptions)),
			PVertexBindingDescriptions:      vertexBindingDescriptions,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
			FrontFace:   vk.FrontFaceCounterClockwise,
			LineWidth:   1.0,
		},
		PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:       vk.True,
			DepthWriteEnable:      vk.True,
			DepthCompareOp:        vk.CompareOpLess,
			DepthBoundsTestEnable: vk.False,
			StencilTestEnable:     vk.False,
			Back: vk.StencilOpState{
				FailOp:    vk.StencilOpKeep,
				PassOp:    vk.StencilOpKeep,
				CompareOp: vk.CompareOpAlways,
			},
			Front: vk.StencilOpState{
				FailOp:    vk.StencilOpKeep,
				PassOp:    vk.StencilOpKeep,
				CompareOp: vk.CompareOpAlways,
			},
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vkr.Samples(v.samples),
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				ColorWriteMask: 0xF,
				BlendEnable:    vk.False,
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateScissor,
				vk.DynamicStateViewport,
			},
		},
		Layout:     v.pipelineLayout,
		RenderPass: v.renderPass,
	}}

	pipelines := make([]vk.Pipeline, len(gpci))
	if err := vk.Error(vk.CreateGraphicsPipelines(v.device.Handle(), v.pipelineCache, uint32(len(gpci)), gpci, nil, pipelines)); err != nil {
		return errors.New("vk.CreateGraphicsPipelines(): " + err.Error())
	}
	v.pipeline = pipelines[0]
	return nil
}

func viewHandle(view gfx.ImageView) vk.ImageView {
	return view.(*vkr.ImageView).Handle()
}

func (v *VulkanRecorder) createFramebuffers(sc *core.Swapchain) error {
	for idx, view := range sc.Views {
		attachments := []vk.ImageView{
			viewHandle(view),
			viewHandle(v.attachments.DepthView),
		}
		if v.attachments.Multisampled() {
			attachments = []vk.ImageView{
				viewHandle(v.attachments.ColorView),
				viewHandle(v.attachments.DepthView),
				viewHandle(view),
			}
		}
		fci := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      v.renderPass,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           sc.Extent.Width,
			Height:          sc.Extent.Height,
			Layers:          1,
		}

		var framebuffer vk.Framebuffer
		if err := vk.Error(vk.CreateFramebuffer(v.device.Handle(), &fci, nil, &framebuffer)); err != nil {
			return errors.Errorf("vk.CreateFramebuffer()[%d]: %s", idx, err.Error())
		}
		v.framebuffers = append(v.framebuffers, framebuffer)
	}
	return nil
}

func (v *VulkanRecorder) buildCommandBuffer(imageIdx int, extent gfx.Extent2D, bindings *core.BindingSet, objects []*core.Object) error {
	cb := v.commandBuffers[imageIdx]
	if err := cb.Begin(false); err != nil {
		return errors.Wrapf(err, "renderer.Build()[%d]", imageIdx)
	}
	cmd := cb.(*vkr.CommandBuffer).Handle()

	clearValues := make([]vk.ClearValue, 3)
	clearValues[0].SetColor(v.cfg.ClearColor[:])
	clearValues[1].SetDepthStencil(1, 0)
	clearValues[2].SetColor(v.cfg.ClearColor[:])

	renderArea := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height},
	}
	rpbi := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      v.renderPass,
		Framebuffer:     v.framebuffers[imageIdx],
		RenderArea:      renderArea,
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}

	vk.CmdBeginRenderPass(cmd, &rpbi, vk.SubpassContentsInline)
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, v.pipeline)
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{renderArea})

	for o, obj := range objects {
		vertices := obj.Mesh.Vertices.Raw().(*vkr.Buffer).Handle()
		indices := obj.Mesh.Indices.Raw().(*vkr.Buffer).Handle()
		set := bindings.Set(o, imageIdx).(*vkr.DescriptorSet).Handle()

		vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{vertices}, []vk.DeviceSize{0})
		vk.CmdBindIndexBuffer(cmd, indices, 0, vk.IndexTypeUint32)
		vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, v.pipelineLayout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
		vk.CmdDrawIndexed(cmd, obj.Mesh.Count, 1, 0, 0, 0)
	}

	vk.CmdEndRenderPass(cmd)
	return errors.Wrapf(cb.End(), "renderer.Build()[%d]", imageIdx)
}

// Release implements core.Recorder.
func (v *VulkanRecorder) Release() {
	dev := v.device.Handle()
	for _, cb := range v.commandBuffers {
		cb.Release()
	}
	v.commandBuffers = nil
	for _, fb := range v.framebuffers {
		vk.DestroyFramebuffer(dev, fb, nil)
	}
	v.framebuffers = nil
	if v.pipeline != vk.NullPipeline {
		vk.DestroyPipeline(dev, v.pipeline, nil)
		v.pipeline = vk.NullPipeline
	}
	if v.pipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(dev, v.pipelineLayout, nil)
		v.pipelineLayout = vk.NullPipelineLayout
	}
	if v.renderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(dev, v.renderPass, nil)
		v.renderPass = vk.NullRenderPass
	}
	if v.attachments != nil {
		v.attachments.Release()
		v.attachments = nil
	}
}

// Destroy releases everything including the shaders and pipeline cache.
func (v *VulkanRecorder) Destroy() {
	v.Release()
	for _, shader := range v.shaders {
		shader.Destroy()
	}
	v.shaders = nil
	vk.DestroyPipelineCache(v.device.Handle(), v.pipelineCache, nil)
}
