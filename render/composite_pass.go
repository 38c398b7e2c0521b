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

// CompositePass is the final pass before present: tonemaps the HDR target
// combined with the bloom chain's mip 0 using the auto-exposure pass's
// adapted luminance, then optionally applies FXAA. It targets the
// swapchain directly, so unlike every earlier pass its render pass ends in
// VK_IMAGE_LAYOUT_PRESENT_SRC_KHR rather than a sampled intermediate.
type CompositePass struct {
	RenderPass C.VkRenderPass
	Pipeline   *vulkan.Pipeline

	setLayout      C.VkDescriptorSetLayout
	descriptorPool *vulkan.DescriptorPool
	descriptorSet  vulkan.DescriptorSet

	paramsUBO *vulkan.Buffer

	hdrSampler   C.VkSampler
	bloomSampler C.VkSampler
}

func NewCompositePass(device *vulkan.Device, swapchainFormat C.VkFormat, hdr *HDRTarget, bloom *BloomChain, exposure *ExposurePass, width, height uint32) (*CompositePass, error) {
	renderPass, err := vulkan.CreateRenderPass(device, swapchainFormat, 0)
	if err != nil {
		return nil, fmt.Errorf("composite render pass: %w", err)
	}

	setLayout, err := vulkan.CreateDescriptorSetLayout(device, []C.VkDescriptorSetLayoutBinding{
		vulkan.CombinedImageSamplerBinding(0, C.VK_SHADER_STAGE_FRAGMENT_BIT),
		vulkan.CombinedImageSamplerBinding(1, C.VK_SHADER_STAGE_FRAGMENT_BIT),
		vulkan.StorageBufferBinding(2, C.VK_SHADER_STAGE_FRAGMENT_BIT),
		vulkan.UniformBufferBinding(3, C.VK_SHADER_STAGE_FRAGMENT_BIT),
	})
	if err != nil {
		return nil, fmt.Errorf("composite descriptor layout: %w", err)
	}

	vertCode, err := shaders.Compile(shaders.FullscreenTriangleVertexGLSL, shaders.StageVertex)
	if err != nil {
		return nil, fmt.Errorf("composite vertex shader: %w", err)
	}
	fragCode, err := shaders.Compile(shaders.CompositeFragmentGLSL, shaders.StageFragment)
	if err != nil {
		return nil, fmt.Errorf("composite fragment shader: %w", err)
	}

	config := vulkan.DefaultPipelineConfig()
	config.VertexShaderCode = vertCode
	config.FragmentShaderCode = fragCode
	config.ViewportWidth = width
	config.ViewportHeight = height
	config.DepthTestEnable = false
	config.DepthWriteEnable = false
	config.CullMode = C.VK_CULL_MODE_NONE
	config.RenderPass = renderPass
	config.DescriptorSetLayout = setLayout

	pipeline, err := vulkan.CreateGraphicsPipeline(device, config)
	if err != nil {
		return nil, fmt.Errorf("composite pipeline: %w", err)
	}

	pool, err := vulkan.CreateDescriptorPool(device, []C.VkDescriptorPoolSize{
		{_type: C.VK_DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER, descriptorCount: 2},
		{_type: C.VK_DESCRIPTOR_TYPE_STORAGE_BUFFER, descriptorCount: 1},
		{_type: C.VK_DESCRIPTOR_TYPE_UNIFORM_BUFFER, descriptorCount: 1},
	}, 1)
	if err != nil {
		return nil, fmt.Errorf("composite descriptor pool: %w", err)
	}
	sets, err := pool.AllocateDescriptorSets(device, []C.VkDescriptorSetLayout{setLayout})
	if err != nil {
		return nil, fmt.Errorf("composite descriptor set: %w", err)
	}

	paramsUBO, err := vulkan.CreateBuffer(device, uint64(unsafe.Sizeof(CompositeParams{})),
		C.VK_BUFFER_USAGE_UNIFORM_BUFFER_BIT,
		C.VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT|C.VK_MEMORY_PROPERTY_HOST_COHERENT_BIT)
	if err != nil {
		return nil, fmt.Errorf("composite params buffer: %w", err)
	}
	if err := paramsUBO.Map(device); err != nil {
		return nil, err
	}

	hdrSampler, err := vulkan.CreateSampler(device, C.VK_FILTER_LINEAR, C.VK_FILTER_LINEAR, C.VK_SAMPLER_ADDRESS_MODE_CLAMP_TO_EDGE, 1.0)
	if err != nil {
		return nil, fmt.Errorf("composite hdr sampler: %w", err)
	}
	bloomSampler, err := vulkan.CreateSampler(device, C.VK_FILTER_LINEAR, C.VK_FILTER_LINEAR, C.VK_SAMPLER_ADDRESS_MODE_CLAMP_TO_EDGE, 1.0)
	if err != nil {
		return nil, fmt.Errorf("composite bloom sampler: %w", err)
	}

	vulkan.UpdateDescriptorSetImage(device, sets[0].Handle, 0, hdr.Image.View, hdrSampler)
	vulkan.UpdateDescriptorSetImage(device, sets[0].Handle, 1, bloom.MipViews[0], bloomSampler)
	vulkan.UpdateDescriptorSetStorageBuffer(device, sets[0].Handle, 2, exposure.resultBuffer.Handle, 0, uint64(unsafe.Sizeof(ExposureResult{})))
	vulkan.UpdateDescriptorSetBuffer(device, sets[0].Handle, 3, paramsUBO.Handle, 0, uint64(unsafe.Sizeof(CompositeParams{})))

	return &CompositePass{
		RenderPass:     renderPass,
		Pipeline:       pipeline,
		setLayout:      setLayout,
		descriptorPool: pool,
		descriptorSet:  sets[0],
		paramsUBO:      paramsUBO,
		hdrSampler:     hdrSampler,
		bloomSampler:   bloomSampler,
	}, nil
}

func (cp *CompositePass) Record(cb *vulkan.CommandBuffer, framebuffer C.VkFramebuffer, width, height uint32, bloomIntensity, exposure float32, fxaaEnabled bool) {
	params := CompositeParams{
		BloomIntensity: bloomIntensity,
		Exposure:       exposure,
		InverseResolution: [2]float32{1.0 / float32(width), 1.0 / float32(height)},
	}
	if fxaaEnabled {
		params.FXAAEnabled = 1
	}
	cp.paramsUBO.CopyData(unsafe.Pointer(&params), uint64(unsafe.Sizeof(params)))

	clearValues := []C.VkClearValue{{}}
	renderArea := C.VkRect2D{extent: C.VkExtent2D{width: C.uint32_t(width), height: C.uint32_t(height)}}
	cb.BeginRenderPass(cp.RenderPass, framebuffer, renderArea, clearValues)
	cb.BindPipeline(cp.Pipeline.Handle)
	cb.SetViewport(C.VkViewport{width: C.float(width), height: C.float(height), minDepth: 0, maxDepth: 1})
	cb.SetScissor(renderArea)
	cb.BindDescriptorSets(cp.Pipeline.Layout, 0, []C.VkDescriptorSet{cp.descriptorSet.Handle})
	cb.Draw(3, 1, 0, 0)
	cb.EndRenderPass()
}

func (cp *CompositePass) Destroy(device *vulkan.Device) {
	vulkan.DestroySampler(device, cp.hdrSampler)
	vulkan.DestroySampler(device, cp.bloomSampler)
	cp.paramsUBO.Destroy(device)
	cp.descriptorPool.Destroy(device)
	cp.Pipeline.Destroy(device)
	vulkan.DestroyDescriptorSetLayout(device, cp.setLayout)
	vulkan.DestroyRenderPass(device, cp.RenderPass)
}
