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
	"github.com/mirelforge/photon/textures"
	"github.com/mirelforge/photon/vulkan"
)

type gbufferVertexPushConstants struct {
	Model        math.Mat4
	NormalMatrix math.Mat4
}

type gbufferMaterialPushConstants struct {
	BaseColorFactor         [4]float32
	MetallicFactor          float32
	RoughnessFactor         float32
	NormalScale             float32
	AlphaCutoff             float32
	EmissiveFactorStrength  [4]float32
}

// GBufferPass renders the visible drawlist's geometry into a GBuffer: world
// normal, base color, metallic/roughness/occlusion, and emissive, so the
// lighting pass can shade every pixel once rather than per light per object.
type GBufferPass struct {
	RenderPass C.VkRenderPass
	Pipeline   *vulkan.Pipeline

	cameraSetLayout   C.VkDescriptorSetLayout
	materialSetLayout C.VkDescriptorSetLayout

	descriptorPool *vulkan.DescriptorPool
	cameraSet      vulkan.DescriptorSet
	cameraUBO      *vulkan.Buffer

	// materialSets caches one descriptor set per *scene.Material so repeated
	// drawcalls against the same material don't re-allocate or re-write it.
	materialSets map[*scene.Material]vulkan.DescriptorSet

	defaultTexture *textures.Texture
	width, height  uint32
}

func createGBufferRenderPass(device *vulkan.Device, depthFormat C.VkFormat) (C.VkRenderPass, error) {
	formats := [4]C.VkFormat{
		C.VK_FORMAT_R8G8B8A8_UNORM,
		C.VK_FORMAT_R16G16B16A16_SFLOAT,
		C.VK_FORMAT_R8G8_UNORM,
		C.VK_FORMAT_R16G16B16A16_SFLOAT,
	}

	var attachments [5]C.VkAttachmentDescription
	var colorRefs [4]C.VkAttachmentReference
	for i, format := range formats {
		attachments[i] = C.VkAttachmentDescription{
			format:         format,
			samples:        C.VK_SAMPLE_COUNT_1_BIT,
			loadOp:         C.VK_ATTACHMENT_LOAD_OP_CLEAR,
			storeOp:        C.VK_ATTACHMENT_STORE_OP_STORE,
			stencilLoadOp:  C.VK_ATTACHMENT_LOAD_OP_DONT_CARE,
			stencilStoreOp: C.VK_ATTACHMENT_STORE_OP_DONT_CARE,
			initialLayout:  C.VK_IMAGE_LAYOUT_UNDEFINED,
			finalLayout:    C.VK_IMAGE_LAYOUT_SHADER_READ_ONLY_OPTIMAL,
		}
		colorRefs[i] = C.VkAttachmentReference{attachment: C.uint32_t(i), layout: C.VK_IMAGE_LAYOUT_COLOR_ATTACHMENT_OPTIMAL}
	}

	attachments[4] = C.VkAttachmentDescription{
		format:         depthFormat,
		samples:        C.VK_SAMPLE_COUNT_1_BIT,
		loadOp:         C.VK_ATTACHMENT_LOAD_OP_CLEAR,
		storeOp:        C.VK_ATTACHMENT_STORE_OP_STORE,
		stencilLoadOp:  C.VK_ATTACHMENT_LOAD_OP_DONT_CARE,
		stencilStoreOp: C.VK_ATTACHMENT_STORE_OP_DONT_CARE,
		initialLayout:  C.VK_IMAGE_LAYOUT_UNDEFINED,
		finalLayout:    C.VK_IMAGE_LAYOUT_SHADER_READ_ONLY_OPTIMAL,
	}
	depthRef := C.VkAttachmentReference{attachment: 4, layout: C.VK_IMAGE_LAYOUT_DEPTH_STENCIL_ATTACHMENT_OPTIMAL}

	subpass := C.VkSubpassDescription{
		pipelineBindPoint:       C.VK_PIPELINE_BIND_POINT_GRAPHICS,
		colorAttachmentCount:    4,
		pColorAttachments:       &colorRefs[0],
		pDepthStencilAttachment: &depthRef,
	}

	dependency := C.VkSubpassDependency{
		srcSubpass:    C.VK_SUBPASS_EXTERNAL,
		dstSubpass:    0,
		srcStageMask:  C.VK_PIPELINE_STAGE_FRAGMENT_SHADER_BIT,
		srcAccessMask: C.VK_ACCESS_SHADER_READ_BIT,
		dstStageMask:  C.VK_PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT | C.VK_PIPELINE_STAGE_EARLY_FRAGMENT_TESTS_BIT,
		dstAccessMask: C.VK_ACCESS_COLOR_ATTACHMENT_WRITE_BIT | C.VK_ACCESS_DEPTH_STENCIL_ATTACHMENT_WRITE_BIT,
	}

	createInfo := C.VkRenderPassCreateInfo{
		sType:           C.VK_STRUCTURE_TYPE_RENDER_PASS_CREATE_INFO,
		attachmentCount: 5,
		pAttachments:    &attachments[0],
		subpassCount:    1,
		pSubpasses:      &subpass,
		dependencyCount: 1,
		pDependencies:   &dependency,
	}

	var renderPass C.VkRenderPass
	result := C.vkCreateRenderPass(device.Device, &createInfo, nil, &renderPass)
	if result != C.VK_SUCCESS {
		return nil, fmt.Errorf("failed to create gbuffer render pass: %d", result)
	}
	return renderPass, nil
}

func NewGBufferPass(device *vulkan.Device, gbuffer *GBuffer, defaultTexture *textures.Texture) (*GBufferPass, error) {
	renderPass, err := createGBufferRenderPass(device, gbuffer.Depth.Format)
	if err != nil {
		return nil, err
	}

	cameraSetLayout, err := vulkan.CreateDescriptorSetLayout(device, []C.VkDescriptorSetLayoutBinding{
		vulkan.UniformBufferBinding(0, C.VK_SHADER_STAGE_VERTEX_BIT),
	})
	if err != nil {
		return nil, fmt.Errorf("gbuffer camera descriptor layout: %w", err)
	}

	materialSetLayout, err := vulkan.CreateDescriptorSetLayout(device, []C.VkDescriptorSetLayoutBinding{
		vulkan.CombinedImageSamplerBinding(0, C.VK_SHADER_STAGE_FRAGMENT_BIT),
		vulkan.CombinedImageSamplerBinding(1, C.VK_SHADER_STAGE_FRAGMENT_BIT),
		vulkan.CombinedImageSamplerBinding(2, C.VK_SHADER_STAGE_FRAGMENT_BIT),
		vulkan.CombinedImageSamplerBinding(3, C.VK_SHADER_STAGE_FRAGMENT_BIT),
		vulkan.CombinedImageSamplerBinding(4, C.VK_SHADER_STAGE_FRAGMENT_BIT),
	})
	if err != nil {
		return nil, fmt.Errorf("gbuffer material descriptor layout: %w", err)
	}

	vertexCode, err := shaders.Compile(shaders.GBufferVertexGLSL, shaders.StageVertex)
	if err != nil {
		return nil, fmt.Errorf("gbuffer vertex shader: %w", err)
	}
	fragmentCode, err := shaders.Compile(shaders.GBufferFragmentGLSL, shaders.StageFragment)
	if err != nil {
		return nil, fmt.Errorf("gbuffer fragment shader: %w", err)
	}

	config := vulkan.DefaultPipelineConfig()
	config.VertexShaderCode = vertexCode
	config.FragmentShaderCode = fragmentCode
	config.VertexDescription = vertexFullDescription()
	config.ViewportWidth = float32(gbuffer.Width)
	config.ViewportHeight = float32(gbuffer.Height)
	config.ColorAttachmentCount = 4
	config.BlendEnable = false // the G-buffer carries raw material data, never blended
	config.RenderPass = renderPass
	config.DescriptorSetLayouts = []C.VkDescriptorSetLayout{cameraSetLayout, materialSetLayout}
	// The vertex and fragment push-constant blocks are disjoint Vulkan
	// ranges addressed at the same offset 0 from each shader stage's own
	// view; a single backing range spanning both stages covers them since
	// neither shader reads the other's bytes.
	vertexPCSize := uint32(unsafe.Sizeof(gbufferVertexPushConstants{}))
	materialPCSize := uint32(unsafe.Sizeof(gbufferMaterialPushConstants{}))
	if materialPCSize > vertexPCSize {
		config.PushConstantSize = materialPCSize
	} else {
		config.PushConstantSize = vertexPCSize
	}
	config.PushConstantStages = C.VK_SHADER_STAGE_VERTEX_BIT | C.VK_SHADER_STAGE_FRAGMENT_BIT

	pipeline, err := vulkan.CreateGraphicsPipeline(device, config)
	if err != nil {
		return nil, fmt.Errorf("gbuffer pipeline: %w", err)
	}

	pool, err := vulkan.CreateDescriptorPool(device, []C.VkDescriptorPoolSize{
		{_type: C.VK_DESCRIPTOR_TYPE_UNIFORM_BUFFER, descriptorCount: 1},
		{_type: C.VK_DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER, descriptorCount: 5 * maxMaterialDescriptorSets},
	}, 1+maxMaterialDescriptorSets)
	if err != nil {
		return nil, fmt.Errorf("gbuffer descriptor pool: %w", err)
	}

	cameraSets, err := pool.AllocateDescriptorSets(device, []C.VkDescriptorSetLayout{cameraSetLayout})
	if err != nil {
		return nil, fmt.Errorf("gbuffer camera descriptor set: %w", err)
	}

	cameraUBO, err := vulkan.CreateBuffer(device, uint64(unsafe.Sizeof(CameraUniform{})),
		C.VK_BUFFER_USAGE_UNIFORM_BUFFER_BIT,
		C.VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT|C.VK_MEMORY_PROPERTY_HOST_COHERENT_BIT)
	if err != nil {
		return nil, fmt.Errorf("gbuffer camera uniform buffer: %w", err)
	}
	if err := cameraUBO.Map(device); err != nil {
		return nil, err
	}
	vulkan.UpdateDescriptorSetBuffer(device, cameraSets[0].Handle, 0, cameraUBO.Handle, 0, uint64(unsafe.Sizeof(CameraUniform{})))

	return &GBufferPass{
		RenderPass:        renderPass,
		Pipeline:          pipeline,
		cameraSetLayout:   cameraSetLayout,
		materialSetLayout: materialSetLayout,
		descriptorPool:    pool,
		cameraSet:         cameraSets[0],
		cameraUBO:         cameraUBO,
		materialSets:      make(map[*scene.Material]vulkan.DescriptorSet),
		defaultTexture:    defaultTexture,
		width:             gbuffer.Width,
		height:            gbuffer.Height,
	}, nil
}

// maxMaterialDescriptorSets bounds the descriptor pool's static allocation.
// A scene with more distinct materials than this needs a larger pool; sized
// generously for a single glTF asset rather than a full asset library.
const maxMaterialDescriptorSets = 256

func (gp *GBufferPass) textureOrDefault(t *textures.Texture) *textures.Texture {
	if t == nil {
		return gp.defaultTexture
	}
	return t
}

// materialDescriptorSet returns mat's cached set, allocating and writing it
// on first use.
func (gp *GBufferPass) materialDescriptorSet(device *vulkan.Device, mat *scene.Material) (C.VkDescriptorSet, error) {
	if set, ok := gp.materialSets[mat]; ok {
		return set.Handle, nil
	}

	sets, err := gp.descriptorPool.AllocateDescriptorSets(device, []C.VkDescriptorSetLayout{gp.materialSetLayout})
	if err != nil {
		return nil, fmt.Errorf("material descriptor set for %q: %w", mat.Name, err)
	}
	set := sets[0]
	gp.materialSets[mat] = set

	bind := func(binding uint32, tex *textures.Texture) {
		tex = gp.textureOrDefault(tex)
		vulkan.UpdateDescriptorSetImage(device, set.Handle, binding, tex.Upload.Image.View, tex.Upload.Sampler)
	}
	bind(0, mat.AlbedoTexture)
	bind(1, mat.MetallicRoughnessTexture)
	bind(2, mat.NormalTexture)
	bind(3, mat.OcclusionTexture)
	bind(4, mat.EmissiveTexture)

	return set.Handle, nil
}

// Record draws every opaque/mask drawcall in set into framebuffer, writing
// the four G-buffer attachments plus depth.
func (gp *GBufferPass) Record(device *vulkan.Device, cb *vulkan.CommandBuffer, framebuffer C.VkFramebuffer, geometry *GeometryBuffers, camera CameraUniform, set *scene.DrawlistSet) error {
	gp.cameraUBO.CopyData(unsafe.Pointer(&camera), uint64(unsafe.Sizeof(camera)))

	clearValues := []C.VkClearValue{{}, {}, {}, {}, depthClearValue()}
	renderArea := C.VkRect2D{extent: C.VkExtent2D{width: C.uint32_t(gp.width), height: C.uint32_t(gp.height)}}
	cb.BeginRenderPass(gp.RenderPass, framebuffer, renderArea, clearValues)
	cb.BindPipeline(gp.Pipeline.Handle)
	cb.SetViewport(C.VkViewport{width: C.float(gp.width), height: C.float(gp.height), minDepth: 0, maxDepth: 1})
	cb.SetScissor(renderArea)

	var lastMaterial *scene.Material
	for _, b := range set.Buckets() {
		for _, dc := range append(append([]scene.Drawcall{}, b.Opaque...), b.Mask...) {
			mat := dc.Primitive.Material
			if mat != lastMaterial {
				materialSet, err := gp.materialDescriptorSet(device, mat)
				if err != nil {
					return err
				}
				cb.BindDescriptorSets(gp.Pipeline.Layout, 0, []C.VkDescriptorSet{gp.cameraSet.Handle, materialSet})
				matPC := gbufferMaterialPushConstants{
					BaseColorFactor:        [4]float32{mat.BaseColorFactor.R, mat.BaseColorFactor.G, mat.BaseColorFactor.B, mat.BaseColorFactor.A},
					MetallicFactor:         mat.MetallicFactor,
					RoughnessFactor:        mat.RoughnessFactor,
					NormalScale:            mat.NormalScale,
					AlphaCutoff:            alphaCutoffFor(mat),
					EmissiveFactorStrength: [4]float32{mat.EmissiveFactor.R, mat.EmissiveFactor.G, mat.EmissiveFactor.B, mat.EmissiveStrength},
				}
				cb.PushConstants(gp.Pipeline.Layout, C.VK_SHADER_STAGE_FRAGMENT_BIT, 0, uint32(unsafe.Sizeof(matPC)), unsafe.Pointer(&matPC))
				lastMaterial = mat
			}

			normalMatrix := dc.World.Inverse().Transpose()
			vertexPC := gbufferVertexPushConstants{Model: dc.World, NormalMatrix: normalMatrix}
			cb.PushConstants(gp.Pipeline.Layout, C.VK_SHADER_STAGE_VERTEX_BIT, 0, uint32(unsafe.Sizeof(vertexPC)), unsafe.Pointer(&vertexPC))

			recordDrawcall(cb, geometry, dc)
		}
	}

	cb.EndRenderPass()
	return nil
}

// alphaCutoffFor returns 0 for opaque materials (texture alpha is ignored by
// the G-buffer output regardless) so the shader's discard never fires.
func alphaCutoffFor(mat *scene.Material) float32 {
	if mat.AlphaMode == scene.AlphaMask {
		return mat.AlphaCutoff
	}
	return 0
}

func (gp *GBufferPass) Destroy(device *vulkan.Device) {
	gp.cameraUBO.Destroy(device)
	gp.descriptorPool.Destroy(device)
	gp.Pipeline.Destroy(device)
	vulkan.DestroyDescriptorSetLayout(device, gp.cameraSetLayout)
	vulkan.DestroyDescriptorSetLayout(device, gp.materialSetLayout)
	vulkan.DestroyRenderPass(device, gp.RenderPass)
}
