package render

/*
#include <vulkan/vulkan.h>
*/
import "C"
import (
	"fmt"

	"github.com/mirelforge/photon/assets/shaders"
	"github.com/mirelforge/photon/vulkan"
)

// debugOverlaySize is the side length, in pixels, of the corner square the
// cascade visualization draws into.
const debugOverlaySize = 256

// DebugPass draws a single shadow cascade's depth into a small square in the
// corner of the already-composited frame, gated by Options.DebugCascadeLayer.
// It runs in its own render pass that loads rather than clears the
// swapchain image, since CompositePass has already filled it.
type DebugPass struct {
	RenderPass C.VkRenderPass
	Pipeline   *vulkan.Pipeline

	setLayout      C.VkDescriptorSetLayout
	descriptorPool *vulkan.DescriptorPool
	descriptorSets [ShadowCascadeCount]vulkan.DescriptorSet

	sampler C.VkSampler
}

func createDebugOverlayRenderPass(device *vulkan.Device, swapchainFormat C.VkFormat) (C.VkRenderPass, error) {
	colorAttachment := C.VkAttachmentDescription{
		format:         swapchainFormat,
		samples:        C.VK_SAMPLE_COUNT_1_BIT,
		loadOp:         C.VK_ATTACHMENT_LOAD_OP_LOAD,
		storeOp:        C.VK_ATTACHMENT_STORE_OP_STORE,
		stencilLoadOp:  C.VK_ATTACHMENT_LOAD_OP_DONT_CARE,
		stencilStoreOp: C.VK_ATTACHMENT_STORE_OP_DONT_CARE,
		initialLayout:  C.VK_IMAGE_LAYOUT_PRESENT_SRC_KHR,
		finalLayout:    C.VK_IMAGE_LAYOUT_PRESENT_SRC_KHR,
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
		srcStageMask:  C.VK_PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT,
		srcAccessMask: 0,
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
		return nil, fmt.Errorf("failed to create debug overlay render pass: %d", result)
	}
	return renderPass, nil
}

func NewDebugPass(device *vulkan.Device, swapchainFormat C.VkFormat, atlas *ShadowAtlas) (*DebugPass, error) {
	renderPass, err := createDebugOverlayRenderPass(device, swapchainFormat)
	if err != nil {
		return nil, err
	}

	setLayout, err := vulkan.CreateDescriptorSetLayout(device, []C.VkDescriptorSetLayoutBinding{
		vulkan.CombinedImageSamplerBinding(0, C.VK_SHADER_STAGE_FRAGMENT_BIT),
	})
	if err != nil {
		return nil, fmt.Errorf("debug descriptor layout: %w", err)
	}

	vertCode, err := shaders.Compile(shaders.FullscreenTriangleVertexGLSL, shaders.StageVertex)
	if err != nil {
		return nil, fmt.Errorf("debug vertex shader: %w", err)
	}
	fragCode, err := shaders.Compile(shaders.DebugCascadeFragmentGLSL, shaders.StageFragment)
	if err != nil {
		return nil, fmt.Errorf("debug fragment shader: %w", err)
	}

	config := vulkan.DefaultPipelineConfig()
	config.VertexShaderCode = vertCode
	config.FragmentShaderCode = fragCode
	config.ViewportWidth = debugOverlaySize
	config.ViewportHeight = debugOverlaySize
	config.DepthTestEnable = false
	config.DepthWriteEnable = false
	config.CullMode = C.VK_CULL_MODE_NONE
	config.BlendEnable = false
	config.RenderPass = renderPass
	config.DescriptorSetLayout = setLayout

	pipeline, err := vulkan.CreateGraphicsPipeline(device, config)
	if err != nil {
		return nil, fmt.Errorf("debug pipeline: %w", err)
	}

	pool, err := vulkan.CreateDescriptorPool(device, []C.VkDescriptorPoolSize{
		{_type: C.VK_DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER, descriptorCount: ShadowCascadeCount},
	}, ShadowCascadeCount)
	if err != nil {
		return nil, fmt.Errorf("debug descriptor pool: %w", err)
	}
	layouts := make([]C.VkDescriptorSetLayout, ShadowCascadeCount)
	for i := range layouts {
		layouts[i] = setLayout
	}
	sets, err := pool.AllocateDescriptorSets(device, layouts)
	if err != nil {
		return nil, fmt.Errorf("debug descriptor sets: %w", err)
	}

	sampler, err := vulkan.CreateSampler(device, C.VK_FILTER_LINEAR, C.VK_FILTER_LINEAR, C.VK_SAMPLER_ADDRESS_MODE_CLAMP_TO_EDGE, 1.0)
	if err != nil {
		return nil, fmt.Errorf("debug sampler: %w", err)
	}

	dp := &DebugPass{RenderPass: renderPass, Pipeline: pipeline, setLayout: setLayout, descriptorPool: pool, sampler: sampler}
	for i := 0; i < ShadowCascadeCount; i++ {
		dp.descriptorSets[i] = sets[i]
		vulkan.UpdateDescriptorSetImage(device, sets[i].Handle, 0, atlas.Cascades[i].View, sampler)
	}
	return dp, nil
}

// Record draws cascadeIndex's depth into a debugOverlaySize square in the
// top-left corner of framebuffer, which must already hold the composited
// frame (its render pass loads rather than clears).
func (dp *DebugPass) Record(cb *vulkan.CommandBuffer, framebuffer C.VkFramebuffer, frameWidth, frameHeight uint32, cascadeIndex int) {
	renderArea := C.VkRect2D{extent: C.VkExtent2D{width: C.uint32_t(frameWidth), height: C.uint32_t(frameHeight)}}
	clearValues := []C.VkClearValue{{}} // unused: the attachment's loadOp is LOAD, not CLEAR
	cb.BeginRenderPass(dp.RenderPass, framebuffer, renderArea, clearValues)
	cb.BindPipeline(dp.Pipeline.Handle)
	cb.SetViewport(C.VkViewport{width: debugOverlaySize, height: debugOverlaySize, minDepth: 0, maxDepth: 1})
	cb.SetScissor(C.VkRect2D{extent: C.VkExtent2D{width: debugOverlaySize, height: debugOverlaySize}})
	cb.BindDescriptorSets(dp.Pipeline.Layout, 0, []C.VkDescriptorSet{dp.descriptorSets[cascadeIndex].Handle})
	cb.Draw(3, 1, 0, 0)
	cb.EndRenderPass()
}

func (dp *DebugPass) Destroy(device *vulkan.Device) {
	vulkan.DestroySampler(device, dp.sampler)
	dp.descriptorPool.Destroy(device)
	dp.Pipeline.Destroy(device)
	vulkan.DestroyDescriptorSetLayout(device, dp.setLayout)
	vulkan.DestroyRenderPass(device, dp.RenderPass)
}
