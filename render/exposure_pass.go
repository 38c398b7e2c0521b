package render

/*
#include <vulkan/vulkan.h>
*/
import "C"
import (
	"fmt"
	"math"
	"unsafe"

	"github.com/mirelforge/photon/assets/shaders"
	"github.com/mirelforge/photon/vulkan"
)

// histogramBinCount matches ExposureHistogramComputeGLSL's fixed-size
// HistogramBuffer.bins array.
const histogramBinCount = 256

// ExposurePass derives a scene's median luminance each frame via a
// log-luminance histogram, then exponentially adapts toward it, the same
// two-dispatch shape as a game engine's auto-exposure: build the
// distribution, then reduce and smooth it rather than reacting to a single
// frame's brightness.
type ExposurePass struct {
	histogramPipeline *vulkan.Pipeline
	adaptPipeline     *vulkan.Pipeline

	setLayout      C.VkDescriptorSetLayout
	descriptorPool *vulkan.DescriptorPool
	descriptorSet  vulkan.DescriptorSet

	histogramBuffer *vulkan.Buffer
	resultBuffer    *vulkan.Buffer

	minLogLuminance   float32
	logLuminanceRange float32
}

func NewExposurePass(device *vulkan.Device, hdr *HDRTarget, width, height uint32) (*ExposurePass, error) {
	setLayout, err := vulkan.CreateDescriptorSetLayout(device, []C.VkDescriptorSetLayoutBinding{
		vulkan.StorageImageBinding(0, C.VK_SHADER_STAGE_COMPUTE_BIT),
		vulkan.StorageBufferBinding(1, C.VK_SHADER_STAGE_COMPUTE_BIT),
		vulkan.StorageBufferBinding(2, C.VK_SHADER_STAGE_COMPUTE_BIT),
	})
	if err != nil {
		return nil, fmt.Errorf("exposure descriptor layout: %w", err)
	}

	histogramCode, err := shaders.Compile(shaders.ExposureHistogramComputeGLSL, shaders.StageCompute)
	if err != nil {
		return nil, fmt.Errorf("exposure histogram shader: %w", err)
	}
	adaptCode, err := shaders.Compile(shaders.ExposureAdaptComputeGLSL, shaders.StageCompute)
	if err != nil {
		return nil, fmt.Errorf("exposure adapt shader: %w", err)
	}

	pcSize := uint32(unsafe.Sizeof(ExposurePushConstants{}))
	histogramPipeline, err := vulkan.CreateComputePipeline(device, vulkan.ComputePipelineConfig{
		ShaderCode: histogramCode, DescriptorSetLayout: setLayout, PushConstantSize: pcSize,
	})
	if err != nil {
		return nil, fmt.Errorf("exposure histogram pipeline: %w", err)
	}
	adaptPipeline, err := vulkan.CreateComputePipeline(device, vulkan.ComputePipelineConfig{
		ShaderCode: adaptCode, DescriptorSetLayout: setLayout, PushConstantSize: pcSize,
	})
	if err != nil {
		return nil, fmt.Errorf("exposure adapt pipeline: %w", err)
	}
	// Both pipelines share setLayout; ExposurePass.Destroy owns its single
	// destruction so Pipeline.Destroy doesn't double-free it.
	histogramPipeline.DescriptorSetLayout = nil
	adaptPipeline.DescriptorSetLayout = nil

	pool, err := vulkan.CreateDescriptorPool(device, []C.VkDescriptorPoolSize{
		{_type: C.VK_DESCRIPTOR_TYPE_STORAGE_IMAGE, descriptorCount: 1},
		{_type: C.VK_DESCRIPTOR_TYPE_STORAGE_BUFFER, descriptorCount: 2},
	}, 1)
	if err != nil {
		return nil, fmt.Errorf("exposure descriptor pool: %w", err)
	}
	sets, err := pool.AllocateDescriptorSets(device, []C.VkDescriptorSetLayout{setLayout})
	if err != nil {
		return nil, fmt.Errorf("exposure descriptor set: %w", err)
	}

	histogramBuffer, err := vulkan.CreateBuffer(device, histogramBinCount*4,
		C.VK_BUFFER_USAGE_STORAGE_BUFFER_BIT, C.VK_MEMORY_PROPERTY_DEVICE_LOCAL_BIT)
	if err != nil {
		return nil, fmt.Errorf("exposure histogram buffer: %w", err)
	}
	resultBuffer, err := vulkan.CreateBuffer(device, uint64(unsafe.Sizeof(ExposureResult{})),
		C.VK_BUFFER_USAGE_STORAGE_BUFFER_BIT,
		C.VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT|C.VK_MEMORY_PROPERTY_HOST_COHERENT_BIT)
	if err != nil {
		return nil, fmt.Errorf("exposure result buffer: %w", err)
	}
	if err := resultBuffer.Map(device); err != nil {
		return nil, err
	}

	vulkan.UpdateDescriptorSetStorageImage(device, sets[0].Handle, 0, hdr.Image.View)
	vulkan.UpdateDescriptorSetStorageBuffer(device, sets[0].Handle, 1, histogramBuffer.Handle, 0, histogramBinCount*4)
	vulkan.UpdateDescriptorSetStorageBuffer(device, sets[0].Handle, 2, resultBuffer.Handle, 0, uint64(unsafe.Sizeof(ExposureResult{})))

	return &ExposurePass{
		histogramPipeline: histogramPipeline,
		adaptPipeline:     adaptPipeline,
		setLayout:         setLayout,
		descriptorPool:    pool,
		descriptorSet:     sets[0],
		histogramBuffer:   histogramBuffer,
		resultBuffer:      resultBuffer,
		minLogLuminance:   -8,
		logLuminanceRange: 16,
	}, nil
}

// Record dispatches the histogram build over width x height 16x16 tiles,
// a buffer barrier so the adapt pass observes the completed histogram, then
// the single-invocation adapt dispatch.
func (ep *ExposurePass) Record(cb *vulkan.CommandBuffer, width, height uint32, deltaTime, adaptSpeed, targetGray float32) {
	pc := ExposurePushConstants{
		ImageWidth: width, ImageHeight: height,
		MinLogLuminance: ep.minLogLuminance, LogLuminanceRange: ep.logLuminanceRange,
		DeltaTime: deltaTime, AdaptSpeed: adaptSpeed, TargetGray: targetGray,
	}

	cb.BindComputePipeline(ep.histogramPipeline.Handle)
	cb.BindComputeDescriptorSets(ep.histogramPipeline.Layout, 0, []C.VkDescriptorSet{ep.descriptorSet.Handle})
	cb.PushComputeConstants(ep.histogramPipeline.Layout, 0, uint32(unsafe.Sizeof(pc)), unsafe.Pointer(&pc))
	groupsX := (width + 15) / 16
	groupsY := (height + 15) / 16
	cb.Dispatch(groupsX, groupsY, 1)

	cb.BufferMemoryBarrier(ep.histogramBuffer.Handle,
		C.VK_ACCESS_SHADER_WRITE_BIT, C.VK_ACCESS_SHADER_READ_BIT|C.VK_ACCESS_SHADER_WRITE_BIT,
		C.VK_PIPELINE_STAGE_COMPUTE_SHADER_BIT, C.VK_PIPELINE_STAGE_COMPUTE_SHADER_BIT)

	cb.BindComputePipeline(ep.adaptPipeline.Handle)
	cb.BindComputeDescriptorSets(ep.adaptPipeline.Layout, 0, []C.VkDescriptorSet{ep.descriptorSet.Handle})
	cb.PushComputeConstants(ep.adaptPipeline.Layout, 0, uint32(unsafe.Sizeof(pc)), unsafe.Pointer(&pc))
	cb.Dispatch(1, 1, 1)
}

// AverageLuminance reads back the adapted exposure result. The result
// buffer is host-coherent so this is valid once the frame's compute work
// has been waited on (after the frame fence, before the next dispatch).
func (ep *ExposurePass) AverageLuminance() float32 {
	var result ExposureResult
	ep.resultBuffer.Read(unsafe.Pointer(&result), uint64(unsafe.Sizeof(result)))
	if result.AverageLuminance <= 0 || math.IsNaN(float64(result.AverageLuminance)) {
		return 1.0
	}
	return result.AverageLuminance
}

func (ep *ExposurePass) Destroy(device *vulkan.Device) {
	ep.histogramBuffer.Destroy(device)
	ep.resultBuffer.Destroy(device)
	ep.descriptorPool.Destroy(device)
	ep.histogramPipeline.Destroy(device)
	ep.adaptPipeline.Destroy(device)
	vulkan.DestroyDescriptorSetLayout(device, ep.setLayout)
}
