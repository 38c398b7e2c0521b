package render

/*
#include <vulkan/vulkan.h>
*/
import "C"
import (
	"fmt"
	"unsafe"

	"github.com/mirelforge/photon/assets/shaders"
	"github.com/mirelforge/photon/vulkan"
)

// LightingPass is a fullscreen-triangle pass: it reads the GBuffer and
// ShadowAtlas and writes one shaded HDR pixel per screen pixel, replacing
// the per-light, per-object shading a forward renderer would do.
type LightingPass struct {
	RenderPass C.VkRenderPass
	Pipeline   *vulkan.Pipeline
	Framebuffer C.VkFramebuffer

	paramsLayout  C.VkDescriptorSetLayout
	gbufferLayout C.VkDescriptorSetLayout
	shadowLayout  C.VkDescriptorSetLayout

	descriptorPool *vulkan.DescriptorPool
	paramsSet      vulkan.DescriptorSet
	gbufferSet     vulkan.DescriptorSet
	shadowSet      vulkan.DescriptorSet

	cameraUBO *vulkan.Buffer
	paramsUBO *vulkan.Buffer
	gbufferSampler C.VkSampler

	width, height uint32
}

func NewLightingPass(device *vulkan.Device, gbuffer *GBuffer, atlas *ShadowAtlas, hdr *HDRTarget) (*LightingPass, error) {
	renderPass, err := createHDRColorRenderPass(device)
	if err != nil {
		return nil, err
	}

	paramsLayout, err := vulkan.CreateDescriptorSetLayout(device, []C.VkDescriptorSetLayoutBinding{
		vulkan.UniformBufferBinding(0, C.VK_SHADER_STAGE_FRAGMENT_BIT),
		vulkan.UniformBufferBinding(1, C.VK_SHADER_STAGE_FRAGMENT_BIT),
	})
	if err != nil {
		return nil, fmt.Errorf("lighting params layout: %w", err)
	}

	gbufferLayout, err := vulkan.CreateDescriptorSetLayout(device, []C.VkDescriptorSetLayoutBinding{
		vulkan.CombinedImageSamplerBinding(0, C.VK_SHADER_STAGE_FRAGMENT_BIT),
		vulkan.CombinedImageSamplerBinding(1, C.VK_SHADER_STAGE_FRAGMENT_BIT),
		vulkan.CombinedImageSamplerBinding(2, C.VK_SHADER_STAGE_FRAGMENT_BIT),
		vulkan.CombinedImageSamplerBinding(3, C.VK_SHADER_STAGE_FRAGMENT_BIT),
		vulkan.CombinedImageSamplerBinding(4, C.VK_SHADER_STAGE_FRAGMENT_BIT),
	})
	if err != nil {
		return nil, fmt.Errorf("lighting gbuffer layout: %w", err)
	}

	shadowLayout, err := vulkan.CreateDescriptorSetLayout(device, []C.VkDescriptorSetLayoutBinding{
		vulkan.CombinedImageSamplerBinding(0, C.VK_SHADER_STAGE_FRAGMENT_BIT),
		vulkan.CombinedImageSamplerBinding(1, C.VK_SHADER_STAGE_FRAGMENT_BIT),
		vulkan.CombinedImageSamplerBinding(2, C.VK_SHADER_STAGE_FRAGMENT_BIT),
	})
	if err != nil {
		return nil, fmt.Errorf("lighting shadow layout: %w", err)
	}

	vertexCode, err := shaders.Compile(shaders.FullscreenTriangleVertexGLSL, shaders.StageVertex)
	if err != nil {
		return nil, fmt.Errorf("fullscreen triangle vertex shader: %w", err)
	}
	fragmentCode, err := shaders.Compile(shaders.LightingFragmentGLSL, shaders.StageFragment)
	if err != nil {
		return nil, fmt.Errorf("lighting fragment shader: %w", err)
	}

	config := vulkan.DefaultPipelineConfig()
	config.VertexShaderCode = vertexCode
	config.FragmentShaderCode = fragmentCode
	config.ViewportWidth = float32(gbuffer.Width)
	config.ViewportHeight = float32(gbuffer.Height)
	config.DepthTestEnable = false
	config.DepthWriteEnable = false
	config.BlendEnable = false
	config.CullMode = C.VK_CULL_MODE_NONE
	config.RenderPass = renderPass
	config.DescriptorSetLayouts = []C.VkDescriptorSetLayout{paramsLayout, gbufferLayout, shadowLayout}

	pipeline, err := vulkan.CreateGraphicsPipeline(device, config)
	if err != nil {
		return nil, fmt.Errorf("lighting pipeline: %w", err)
	}

	pool, err := vulkan.CreateDescriptorPool(device, []C.VkDescriptorPoolSize{
		{_type: C.VK_DESCRIPTOR_TYPE_UNIFORM_BUFFER, descriptorCount: 2},
		{_type: C.VK_DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER, descriptorCount: 8},
	}, 3)
	if err != nil {
		return nil, fmt.Errorf("lighting descriptor pool: %w", err)
	}

	sets, err := pool.AllocateDescriptorSets(device, []C.VkDescriptorSetLayout{paramsLayout, gbufferLayout, shadowLayout})
	if err != nil {
		return nil, fmt.Errorf("lighting descriptor sets: %w", err)
	}

	gbufferSampler, err := vulkan.CreateSampler(device, C.VK_FILTER_NEAREST, C.VK_FILTER_NEAREST, C.VK_SAMPLER_ADDRESS_MODE_CLAMP_TO_EDGE, 1.0)
	if err != nil {
		return nil, fmt.Errorf("lighting gbuffer sampler: %w", err)
	}

	lp := &LightingPass{
		RenderPass:     renderPass,
		Pipeline:       pipeline,
		paramsLayout:   paramsLayout,
		gbufferLayout:  gbufferLayout,
		shadowLayout:   shadowLayout,
		descriptorPool: pool,
		paramsSet:      sets[0],
		gbufferSet:     sets[1],
		shadowSet:      sets[2],
		gbufferSampler: gbufferSampler,
		width:          gbuffer.Width,
		height:         gbuffer.Height,
	}

	cameraUBO, err := vulkan.CreateBuffer(device, uint64(unsafe.Sizeof(CameraUniform{})),
		C.VK_BUFFER_USAGE_UNIFORM_BUFFER_BIT,
		C.VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT|C.VK_MEMORY_PROPERTY_HOST_COHERENT_BIT)
	if err != nil {
		return nil, fmt.Errorf("lighting camera uniform buffer: %w", err)
	}
	if err := cameraUBO.Map(device); err != nil {
		return nil, err
	}
	lp.cameraUBO = cameraUBO
	vulkan.UpdateDescriptorSetBuffer(device, lp.paramsSet.Handle, 0, cameraUBO.Handle, 0, uint64(unsafe.Sizeof(CameraUniform{})))

	paramsUBO, err := vulkan.CreateBuffer(device, uint64(unsafe.Sizeof(LightingParams{})),
		C.VK_BUFFER_USAGE_UNIFORM_BUFFER_BIT,
		C.VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT|C.VK_MEMORY_PROPERTY_HOST_COHERENT_BIT)
	if err != nil {
		return nil, fmt.Errorf("lighting params uniform buffer: %w", err)
	}
	if err := paramsUBO.Map(device); err != nil {
		return nil, err
	}
	lp.paramsUBO = paramsUBO
	vulkan.UpdateDescriptorSetBuffer(device, lp.paramsSet.Handle, 1, paramsUBO.Handle, 0, uint64(unsafe.Sizeof(LightingParams{})))

	vulkan.UpdateDescriptorSetImage(device, lp.gbufferSet.Handle, 0, gbuffer.Albedo.View, gbufferSampler)
	vulkan.UpdateDescriptorSetImage(device, lp.gbufferSet.Handle, 1, gbuffer.Normal.View, gbufferSampler)
	vulkan.UpdateDescriptorSetImage(device, lp.gbufferSet.Handle, 2, gbuffer.Material.View, gbufferSampler)
	vulkan.UpdateDescriptorSetImage(device, lp.gbufferSet.Handle, 3, gbuffer.Emissive.View, gbufferSampler)
	vulkan.UpdateDescriptorSetImage(device, lp.gbufferSet.Handle, 4, gbuffer.Depth.View, gbufferSampler)
	for i, cascade := range atlas.Cascades {
		vulkan.UpdateDescriptorSetImage(device, lp.shadowSet.Handle, uint32(i), cascade.View, atlas.Sampler)
	}

	fbAttachment := hdr.Image.View
	fbInfo := C.VkFramebufferCreateInfo{
		sType:           C.VK_STRUCTURE_TYPE_FRAMEBUFFER_CREATE_INFO,
		renderPass:      renderPass,
		attachmentCount: 1,
		pAttachments:    &fbAttachment,
		width:           C.uint32_t(gbuffer.Width),
		height:          C.uint32_t(gbuffer.Height),
		layers:          1,
	}
	result := C.vkCreateFramebuffer(device.Device, &fbInfo, nil, &lp.Framebuffer)
	if result != C.VK_SUCCESS {
		return nil, fmt.Errorf("lighting framebuffer: %d", result)
	}

	return lp, nil
}

// createHDRColorRenderPass is a single-color-attachment render pass whose
// output stays in VK_IMAGE_LAYOUT_SHADER_READ_ONLY_OPTIMAL for the bloom
// and composite passes to sample afterward, unlike vulkan.CreateRenderPass's
// present-destined layout.
func createHDRColorRenderPass(device *vulkan.Device) (C.VkRenderPass, error) {
	colorAttachment := C.VkAttachmentDescription{
		format:         C.VK_FORMAT_R16G16B16A16_SFLOAT,
		samples:        C.VK_SAMPLE_COUNT_1_BIT,
		loadOp:         C.VK_ATTACHMENT_LOAD_OP_CLEAR,
		storeOp:        C.VK_ATTACHMENT_STORE_OP_STORE,
		stencilLoadOp:  C.VK_ATTACHMENT_LOAD_OP_DONT_CARE,
		stencilStoreOp: C.VK_ATTACHMENT_STORE_OP_DONT_CARE,
		initialLayout:  C.VK_IMAGE_LAYOUT_UNDEFINED,
		finalLayout:    C.VK_IMAGE_LAYOUT_SHADER_READ_ONLY_OPTIMAL,
	}
	colorRef := C.VkAttachmentReference{attachment: 0, layout: C.VK_IMAGE_LAYOUT_COLOR_ATTACHMENT_OPTIMAL}
	subpass := C.VkSubpassDescription{
		pipelineBindPoint:    C.VK_PIPELINE_BIND_POINT_GRAPHICS,
		colorAttachmentCount: 1,
		pColorAttachments:    &colorRef,
	}
	dependency := C.VkSubpassDependency{
		srcSubpass:    C.VK_SUBPASS_EXTERNAL,
		dstSubpass:    0,
		srcStageMask:  C.VK_PIPELINE_STAGE_FRAGMENT_SHADER_BIT,
		srcAccessMask: C.VK_ACCESS_SHADER_READ_BIT,
		dstStageMask:  C.VK_PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT,
		dstAccessMask: C.VK_ACCESS_COLOR_ATTACHMENT_WRITE_BIT,
	}
	createInfo := C.VkRenderPassCreateInfo{
		sType:           C.VK_STRUCTURE_TYPE_RENDER_PASS_CREATE_INFO,
		attachmentCount: 1,
		pAttachments:    &colorAttachment,
		subpassCount:    1,
		pSubpasses:      &subpass,
		dependencyCount: 1,
		pDependencies:   &dependency,
	}
	var renderPass C.VkRenderPass
	result := C.vkCreateRenderPass(device.Device, &createInfo, nil, &renderPass)
	if result != C.VK_SUCCESS {
		return nil, fmt.Errorf("failed to create hdr color render pass: %d", result)
	}
	return renderPass, nil
}

// Record draws the fullscreen triangle, shading every pixel from the
// already-populated GBuffer and ShadowAtlas.
func (lp *LightingPass) Record(cb *vulkan.CommandBuffer, camera CameraUniform, params LightingParams) {
	lp.cameraUBO.CopyData(unsafe.Pointer(&camera), uint64(unsafe.Sizeof(camera)))
	lp.paramsUBO.CopyData(unsafe.Pointer(&params), uint64(unsafe.Sizeof(params)))

	clearValues := []C.VkClearValue{{}}
	renderArea := C.VkRect2D{extent: C.VkExtent2D{width: C.uint32_t(lp.width), height: C.uint32_t(lp.height)}}
	cb.BeginRenderPass(lp.RenderPass, lp.Framebuffer, renderArea, clearValues)
	cb.BindPipeline(lp.Pipeline.Handle)
	cb.SetViewport(C.VkViewport{width: C.float(lp.width), height: C.float(lp.height), minDepth: 0, maxDepth: 1})
	cb.SetScissor(renderArea)
	cb.BindDescriptorSets(lp.Pipeline.Layout, 0, []C.VkDescriptorSet{lp.paramsSet.Handle, lp.gbufferSet.Handle, lp.shadowSet.Handle})
	cb.Draw(3, 1, 0, 0)
	cb.EndRenderPass()
}

func (lp *LightingPass) Destroy(device *vulkan.Device) {
	C.vkDestroyFramebuffer(device.Device, lp.Framebuffer, nil)
	vulkan.DestroySampler(device, lp.gbufferSampler)
	lp.cameraUBO.Destroy(device)
	lp.paramsUBO.Destroy(device)
	lp.descriptorPool.Destroy(device)
	lp.Pipeline.Destroy(device)
	vulkan.DestroyDescriptorSetLayout(device, lp.paramsLayout)
	vulkan.DestroyDescriptorSetLayout(device, lp.gbufferLayout)
	vulkan.DestroyDescriptorSetLayout(device, lp.shadowLayout)
	vulkan.DestroyRenderPass(device, lp.RenderPass)
}
