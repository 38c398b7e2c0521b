package render

/*
#include <vulkan/vulkan.h>
*/
import "C"
import (
	"fmt"
	"unsafe"

	"github.com/mirelforge/photon/assets/shaders"
	"github.com/mirelforge/photon/math"
	"github.com/mirelforge/photon/scene"
	"github.com/mirelforge/photon/vulkan"
)

type shadowPushConstants struct {
	Model math.Mat4
}

// ShadowPass depth-only renders the opaque/mask drawlists into each cascade
// of a ShadowAtlas from that cascade's light-space view-projection.
type ShadowPass struct {
	RenderPass C.VkRenderPass
	Pipeline   *vulkan.Pipeline

	DescriptorPool *vulkan.DescriptorPool
	Framebuffers   [ShadowCascadeCount]C.VkFramebuffer
	UniformBuffers [ShadowCascadeCount]*vulkan.Buffer
	DescriptorSets [ShadowCascadeCount]vulkan.DescriptorSet

	size uint32
}

// createShadowRenderPass builds a depth-only render pass: vulkan.CreateRenderPass
// always emits a color attachment destined for VK_IMAGE_LAYOUT_PRESENT_SRC_KHR,
// which doesn't fit a depth-only offscreen target, so the shadow pass builds
// its own single-attachment VkRenderPassCreateInfo instead.
func createShadowRenderPass(device *vulkan.Device, depthFormat C.VkFormat) (C.VkRenderPass, error) {
	depthAttachment := C.VkAttachmentDescription{
		format:         depthFormat,
		samples:        C.VK_SAMPLE_COUNT_1_BIT,
		loadOp:         C.VK_ATTACHMENT_LOAD_OP_CLEAR,
		storeOp:        C.VK_ATTACHMENT_STORE_OP_STORE,
		stencilLoadOp:  C.VK_ATTACHMENT_LOAD_OP_DONT_CARE,
		stencilStoreOp: C.VK_ATTACHMENT_STORE_OP_DONT_CARE,
		initialLayout:  C.VK_IMAGE_LAYOUT_UNDEFINED,
		finalLayout:    C.VK_IMAGE_LAYOUT_SHADER_READ_ONLY_OPTIMAL,
	}
	depthRef := C.VkAttachmentReference{attachment: 0, layout: C.VK_IMAGE_LAYOUT_DEPTH_STENCIL_ATTACHMENT_OPTIMAL}

	subpass := C.VkSubpassDescription{
		pipelineBindPoint:      C.VK_PIPELINE_BIND_POINT_GRAPHICS,
		pDepthStencilAttachment: &depthRef,
	}

	dependency := C.VkSubpassDependency{
		srcSubpass:    C.VK_SUBPASS_EXTERNAL,
		dstSubpass:    0,
		srcStageMask:  C.VK_PIPELINE_STAGE_FRAGMENT_SHADER_BIT,
		srcAccessMask: C.VK_ACCESS_SHADER_READ_BIT,
		dstStageMask:  C.VK_PIPELINE_STAGE_EARLY_FRAGMENT_TESTS_BIT,
		dstAccessMask: C.VK_ACCESS_DEPTH_STENCIL_ATTACHMENT_WRITE_BIT,
	}

	createInfo := C.VkRenderPassCreateInfo{
		sType:           C.VK_STRUCTURE_TYPE_RENDER_PASS_CREATE_INFO,
		attachmentCount: 1,
		pAttachments:    &depthAttachment,
		subpassCount:    1,
		pSubpasses:      &subpass,
		dependencyCount: 1,
		pDependencies:   &dependency,
	}

	var renderPass C.VkRenderPass
	result := C.vkCreateRenderPass(device.Device, &createInfo, nil, &renderPass)
	if result != C.VK_SUCCESS {
		return nil, fmt.Errorf("failed to create shadow render pass: %d", result)
	}
	return renderPass, nil
}

func NewShadowPass(device *vulkan.Device, atlas *ShadowAtlas) (*ShadowPass, error) {
	renderPass, err := createShadowRenderPass(device, atlas.Cascades[0].Format)
	if err != nil {
		return nil, err
	}

	setLayout, err := vulkan.CreateDescriptorSetLayout(device, []C.VkDescriptorSetLayoutBinding{
		vulkan.UniformBufferBinding(0, C.VK_SHADER_STAGE_VERTEX_BIT),
	})
	if err != nil {
		return nil, fmt.Errorf("shadow descriptor layout: %w", err)
	}

	vertexCode, err := shaders.Compile(shaders.ShadowVertexGLSL, shaders.StageVertex)
	if err != nil {
		return nil, fmt.Errorf("shadow vertex shader: %w", err)
	}
	fragmentCode, err := shaders.Compile(shaders.ShadowFragmentGLSL, shaders.StageFragment)
	if err != nil {
		return nil, fmt.Errorf("shadow fragment shader: %w", err)
	}

	config := vulkan.DefaultPipelineConfig()
	config.VertexShaderCode = vertexCode
	config.FragmentShaderCode = fragmentCode
	config.VertexDescription = vertexPositionOnlyDescription()
	config.CullMode = C.VK_CULL_MODE_FRONT_BIT // shifts peter-panning toward the light, not away from it
	config.BlendEnable = false
	config.ViewportWidth = float32(atlas.Size)
	config.ViewportHeight = float32(atlas.Size)
	config.RenderPass = renderPass
	config.DescriptorSetLayout = setLayout
	config.PushConstantSize = uint32(unsafe.Sizeof(shadowPushConstants{}))
	config.PushConstantStages = C.VK_SHADER_STAGE_VERTEX_BIT

	pipeline, err := vulkan.CreateGraphicsPipeline(device, config)
	if err != nil {
		return nil, fmt.Errorf("shadow pipeline: %w", err)
	}

	pool, err := vulkan.CreateDescriptorPool(device, []C.VkDescriptorPoolSize{
		{_type: C.VK_DESCRIPTOR_TYPE_UNIFORM_BUFFER, descriptorCount: ShadowCascadeCount},
	}, ShadowCascadeCount)
	if err != nil {
		return nil, fmt.Errorf("shadow descriptor pool: %w", err)
	}

	layouts := make([]C.VkDescriptorSetLayout, ShadowCascadeCount)
	for i := range layouts {
		layouts[i] = setLayout
	}
	sets, err := pool.AllocateDescriptorSets(device, layouts)
	if err != nil {
		return nil, fmt.Errorf("shadow descriptor sets: %w", err)
	}

	sp := &ShadowPass{RenderPass: renderPass, Pipeline: pipeline, DescriptorPool: pool, size: atlas.Size}
	for i := 0; i < ShadowCascadeCount; i++ {
		sp.DescriptorSets[i] = sets[i]

		ubo, err := vulkan.CreateBuffer(device, uint64(unsafe.Sizeof(ShadowUniform{})),
			C.VK_BUFFER_USAGE_UNIFORM_BUFFER_BIT,
			C.VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT|C.VK_MEMORY_PROPERTY_HOST_COHERENT_BIT)
		if err != nil {
			return nil, fmt.Errorf("shadow uniform buffer %d: %w", i, err)
		}
		if err := ubo.Map(device); err != nil {
			return nil, err
		}
		sp.UniformBuffers[i] = ubo
		vulkan.UpdateDescriptorSetBuffer(device, sets[i].Handle, 0, ubo.Handle, 0, uint64(unsafe.Sizeof(ShadowUniform{})))

		cascadeView := atlas.Cascades[i].View
		fbInfo := C.VkFramebufferCreateInfo{
			sType:           C.VK_STRUCTURE_TYPE_FRAMEBUFFER_CREATE_INFO,
			renderPass:      renderPass,
			attachmentCount: 1,
			pAttachments:    &cascadeView,
			width:           C.uint32_t(atlas.Size),
			height:          C.uint32_t(atlas.Size),
			layers:          1,
		}
		result := C.vkCreateFramebuffer(device.Device, &fbInfo, nil, &sp.Framebuffers[i])
		if result != C.VK_SUCCESS {
			return nil, fmt.Errorf("shadow framebuffer %d: %d", i, result)
		}
	}

	return sp, nil
}

// Record draws every opaque/mask drawcall into cascadeIndex's framebuffer.
func (sp *ShadowPass) Record(cb *vulkan.CommandBuffer, geometry *GeometryBuffers, cascadeIndex int, lightViewProjection math.Mat4, set *scene.DrawlistSet) {
	uniform := ShadowUniform{LightViewProjection: lightViewProjection}
	sp.UniformBuffers[cascadeIndex].CopyData(unsafe.Pointer(&uniform), uint64(unsafe.Sizeof(uniform)))

	clearValues := []C.VkClearValue{depthClearValue()}
	renderArea := C.VkRect2D{extent: C.VkExtent2D{width: C.uint32_t(sp.size), height: C.uint32_t(sp.size)}}
	cb.BeginRenderPass(sp.RenderPass, sp.Framebuffers[cascadeIndex], renderArea, clearValues)
	cb.BindPipeline(sp.Pipeline.Handle)
	cb.SetViewport(C.VkViewport{width: C.float(sp.size), height: C.float(sp.size), minDepth: 0, maxDepth: 1})
	cb.SetScissor(renderArea)
	cb.BindDescriptorSets(sp.Pipeline.Layout, 0, []C.VkDescriptorSet{sp.DescriptorSets[cascadeIndex].Handle})

	for _, dc := range set.OpaqueAndMask() {
		pc := shadowPushConstants{Model: dc.World}
		cb.PushConstants(sp.Pipeline.Layout, C.VK_SHADER_STAGE_VERTEX_BIT, 0, uint32(unsafe.Sizeof(pc)), unsafe.Pointer(&pc))
		recordDrawcall(cb, geometry, dc)
	}

	cb.EndRenderPass()
}

func (sp *ShadowPass) Destroy(device *vulkan.Device) {
	for i := range sp.Framebuffers {
		C.vkDestroyFramebuffer(device.Device, sp.Framebuffers[i], nil)
		sp.UniformBuffers[i].Destroy(device)
	}
	sp.DescriptorPool.Destroy(device)
	sp.Pipeline.Destroy(device)
	vulkan.DestroyRenderPass(device, sp.RenderPass)
}

func depthClearValue() C.VkClearValue {
	var cv C.VkClearValue
	depthStencil := (*C.VkClearDepthStencilValue)(unsafe.Pointer(&cv))
	depthStencil.depth = 1.0
	return cv
}
