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

// BloomPass extracts bright pixels from the HDR target and blurs them
// across a mip chain: one threshold-clamped downsample dispatch per mip on
// the way down, then an additive upsample dispatch per mip on the way back
// up, landing the bloom contribution in mip 0 for the composite pass.
type BloomPass struct {
	downsamplePipeline *vulkan.Pipeline
	upsamplePipeline   *vulkan.Pipeline

	setLayout      C.VkDescriptorSetLayout
	descriptorPool *vulkan.DescriptorPool

	// downsampleSets[i] reads hdr/mip(i-1) and writes mip i (i==0 reads hdr).
	// upsampleSets[i] reads mip(i+1) and accumulates into mip i.
	downsampleSets []vulkan.DescriptorSet
	upsampleSets   []vulkan.DescriptorSet

	hdrSampler C.VkSampler

	mipLevels     uint32
	width, height uint32
}

func NewBloomPass(device *vulkan.Device, hdr *HDRTarget, chain *BloomChain, width, height uint32) (*BloomPass, error) {
	setLayout, err := vulkan.CreateDescriptorSetLayout(device, []C.VkDescriptorSetLayoutBinding{
		vulkan.CombinedImageSamplerBinding(0, C.VK_SHADER_STAGE_COMPUTE_BIT),
		vulkan.StorageImageBinding(1, C.VK_SHADER_STAGE_COMPUTE_BIT),
	})
	if err != nil {
		return nil, fmt.Errorf("bloom descriptor layout: %w", err)
	}

	downsampleCode, err := shaders.Compile(shaders.BloomDownsampleComputeGLSL, shaders.StageCompute)
	if err != nil {
		return nil, fmt.Errorf("bloom downsample shader: %w", err)
	}
	upsampleCode, err := shaders.Compile(shaders.BloomUpsampleComputeGLSL, shaders.StageCompute)
	if err != nil {
		return nil, fmt.Errorf("bloom upsample shader: %w", err)
	}

	pcSize := uint32(unsafe.Sizeof(BloomPushConstants{}))
	downsamplePipeline, err := vulkan.CreateComputePipeline(device, vulkan.ComputePipelineConfig{
		ShaderCode: downsampleCode, DescriptorSetLayout: setLayout, PushConstantSize: pcSize,
	})
	if err != nil {
		return nil, fmt.Errorf("bloom downsample pipeline: %w", err)
	}
	upsamplePipeline, err := vulkan.CreateComputePipeline(device, vulkan.ComputePipelineConfig{
		ShaderCode: upsampleCode, DescriptorSetLayout: setLayout, PushConstantSize: pcSize,
	})
	if err != nil {
		return nil, fmt.Errorf("bloom upsample pipeline: %w", err)
	}
	downsamplePipeline.DescriptorSetLayout = nil
	upsamplePipeline.DescriptorSetLayout = nil

	mipLevels := chain.MipLevels
	pool, err := vulkan.CreateDescriptorPool(device, []C.VkDescriptorPoolSize{
		{_type: C.VK_DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER, descriptorCount: 2 * mipLevels},
		{_type: C.VK_DESCRIPTOR_TYPE_STORAGE_IMAGE, descriptorCount: 2 * mipLevels},
	}, 2*mipLevels)
	if err != nil {
		return nil, fmt.Errorf("bloom descriptor pool: %w", err)
	}

	hdrSampler, err := vulkan.CreateSampler(device, C.VK_FILTER_LINEAR, C.VK_FILTER_LINEAR, C.VK_SAMPLER_ADDRESS_MODE_CLAMP_TO_EDGE, 1.0)
	if err != nil {
		return nil, fmt.Errorf("bloom hdr sampler: %w", err)
	}

	bp := &BloomPass{
		downsamplePipeline: downsamplePipeline,
		upsamplePipeline:   upsamplePipeline,
		setLayout:          setLayout,
		descriptorPool:     pool,
		hdrSampler:         hdrSampler,
		mipLevels:          mipLevels,
		width:              width,
		height:             height,
	}

	layouts := make([]C.VkDescriptorSetLayout, mipLevels)
	for i := range layouts {
		layouts[i] = setLayout
	}
	bp.downsampleSets, err = pool.AllocateDescriptorSets(device, layouts)
	if err != nil {
		return nil, fmt.Errorf("bloom downsample sets: %w", err)
	}
	bp.upsampleSets, err = pool.AllocateDescriptorSets(device, layouts)
	if err != nil {
		return nil, fmt.Errorf("bloom upsample sets: %w", err)
	}

	for mip := uint32(0); mip < mipLevels; mip++ {
		var srcView C.VkImageView
		var srcSampler C.VkSampler
		if mip == 0 {
			srcView, srcSampler = hdr.Image.View, hdrSampler
		} else {
			srcView, srcSampler = chain.MipViews[mip-1], chain.Sampler
		}
		vulkan.UpdateDescriptorSetImage(device, bp.downsampleSets[mip].Handle, 0, srcView, srcSampler)
		vulkan.UpdateDescriptorSetStorageImage(device, bp.downsampleSets[mip].Handle, 1, chain.MipViews[mip])
	}

	for mip := uint32(0); mip < mipLevels; mip++ {
		if mip == mipLevels-1 {
			continue // top mip has nothing below it to pull from
		}
		vulkan.UpdateDescriptorSetImage(device, bp.upsampleSets[mip].Handle, 0, chain.MipViews[mip+1], chain.Sampler)
		vulkan.UpdateDescriptorSetStorageImage(device, bp.upsampleSets[mip].Handle, 1, chain.MipViews[mip])
	}

	return bp, nil
}

func mipExtent(width, height, mip uint32) (uint32, uint32) {
	w, h := width, height
	for i := uint32(0); i < mip; i++ {
		if w > 1 {
			w /= 2
		}
		if h > 1 {
			h /= 2
		}
	}
	return w, h
}

// Record dispatches the full downsample-then-upsample chain. Each stage is
// separated by an image memory barrier since every dispatch reads the
// previous dispatch's write.
func (bp *BloomPass) Record(cb *vulkan.CommandBuffer, chain *BloomChain, threshold, intensity float32) {
	cb.BindComputePipeline(bp.downsamplePipeline.Handle)
	srcW, srcH := bp.width, bp.height
	for mip := uint32(0); mip < bp.mipLevels; mip++ {
		dstW, dstH := mipExtent(bp.width, bp.height, mip)
		pc := BloomPushConstants{SrcWidth: srcW, SrcHeight: srcH, Threshold: threshold, Intensity: intensity}
		cb.BindComputeDescriptorSets(bp.downsamplePipeline.Layout, 0, []C.VkDescriptorSet{bp.downsampleSets[mip].Handle})
		cb.PushComputeConstants(bp.downsamplePipeline.Layout, 0, uint32(unsafe.Sizeof(pc)), unsafe.Pointer(&pc))
		cb.Dispatch((dstW+7)/8, (dstH+7)/8, 1)
		imageComputeBarrier(cb, chain.Image.Handle)
		srcW, srcH = dstW, dstH
	}

	cb.BindComputePipeline(bp.upsamplePipeline.Handle)
	for mip := int(bp.mipLevels) - 2; mip >= 0; mip-- {
		dstW, dstH := mipExtent(bp.width, bp.height, uint32(mip))
		pc := BloomPushConstants{SrcWidth: dstW, SrcHeight: dstH, Threshold: threshold, Intensity: intensity}
		cb.BindComputeDescriptorSets(bp.upsamplePipeline.Layout, 0, []C.VkDescriptorSet{bp.upsampleSets[mip].Handle})
		cb.PushComputeConstants(bp.upsamplePipeline.Layout, 0, uint32(unsafe.Sizeof(pc)), unsafe.Pointer(&pc))
		cb.Dispatch((dstW+7)/8, (dstH+7)/8, 1)
		imageComputeBarrier(cb, chain.Image.Handle)
	}
}

func imageComputeBarrier(cb *vulkan.CommandBuffer, image C.VkImage) {
	barrier := C.VkImageMemoryBarrier{
		sType:               C.VK_STRUCTURE_TYPE_IMAGE_MEMORY_BARRIER,
		srcAccessMask:       C.VK_ACCESS_SHADER_WRITE_BIT,
		dstAccessMask:       C.VK_ACCESS_SHADER_READ_BIT | C.VK_ACCESS_SHADER_WRITE_BIT,
		oldLayout:           C.VK_IMAGE_LAYOUT_GENERAL,
		newLayout:           C.VK_IMAGE_LAYOUT_GENERAL,
		srcQueueFamilyIndex: C.VK_QUEUE_FAMILY_IGNORED,
		dstQueueFamilyIndex: C.VK_QUEUE_FAMILY_IGNORED,
		image:               image,
	}
	barrier.subresourceRange.aspectMask = C.VK_IMAGE_ASPECT_COLOR_BIT
	barrier.subresourceRange.levelCount = C.VK_REMAINING_MIP_LEVELS
	barrier.subresourceRange.layerCount = 1
	C.vkCmdPipelineBarrier(cb.Handle, C.VK_PIPELINE_STAGE_COMPUTE_SHADER_BIT, C.VK_PIPELINE_STAGE_COMPUTE_SHADER_BIT, 0, 0, nil, 0, nil, 1, &barrier)
}

func (bp *BloomPass) Destroy(device *vulkan.Device) {
	vulkan.DestroySampler(device, bp.hdrSampler)
	bp.descriptorPool.Destroy(device)
	bp.downsamplePipeline.Destroy(device)
	bp.upsamplePipeline.Destroy(device)
	vulkan.DestroyDescriptorSetLayout(device, bp.setLayout)
}
