package render

/*
#include <vulkan/vulkan.h>
*/
import "C"
import (
	"fmt"

	"github.com/mirelforge/photon/scene"
	"github.com/mirelforge/photon/textures"
	"github.com/mirelforge/photon/vulkan"
)

// framesInFlight bounds how many frames can be submitted to the GPU before
// the CPU must wait, the same double/triple-buffering tradeoff the
// swapchain image count makes.
const framesInFlight = 2

// frameSync is one frame-in-flight's synchronization primitives and command
// buffer, cycled round-robin so the CPU never overwrites a buffer the GPU
// hasn't finished reading.
type frameSync struct {
	commandBuffer  vulkan.CommandBuffer
	imageAvailable *vulkan.Semaphore
	renderFinished *vulkan.Semaphore
	inFlight       *vulkan.Fence
}

// FrameGraph owns every offscreen target and pass and drives them through
// one frame's submission order: three shadow cascades, the G-buffer, the
// lighting resolve, auto-exposure, bloom, and finally composite+FXAA onto
// the swapchain image about to be presented.
type FrameGraph struct {
	device    *vulkan.Device
	swapchain *vulkan.SwapChain
	options   Options

	gbuffer *GBuffer
	atlas   *ShadowAtlas
	hdr     *HDRTarget
	bloom   *BloomChain

	shadowPass    *ShadowPass
	gbufferPass   *GBufferPass
	lightingPass  *LightingPass
	exposurePass  *ExposurePass
	bloomPass     *BloomPass
	compositePass *CompositePass
	debugPass     *DebugPass

	gbufferFramebuffer    C.VkFramebuffer
	compositeFramebuffers []C.VkFramebuffer

	frames     [framesInFlight]frameSync
	frameIndex int
}

// NewFrameGraph builds every offscreen render target and pass at swapchain
// resolution. The caller must have already created sc (and its presentation
// surface); FrameGraph owns only the render targets and passes that sit
// between geometry submission and present.
func NewFrameGraph(device *vulkan.Device, sc *vulkan.SwapChain, defaultTexture *textures.Texture, options Options) (*FrameGraph, error) {
	fg := &FrameGraph{device: device, swapchain: sc, options: options}

	var err error
	fg.gbuffer, err = CreateGBuffer(device, options.Width, options.Height)
	if err != nil {
		return nil, fmt.Errorf("framegraph gbuffer: %w", err)
	}
	fg.atlas, err = CreateShadowAtlas(device, options.ShadowMapSize)
	if err != nil {
		return nil, fmt.Errorf("framegraph shadow atlas: %w", err)
	}
	fg.hdr, err = CreateHDRTarget(device, options.Width, options.Height)
	if err != nil {
		return nil, fmt.Errorf("framegraph hdr target: %w", err)
	}
	fg.bloom, err = CreateBloomChain(device, options.Width, options.Height, options.BloomMipLevels)
	if err != nil {
		return nil, fmt.Errorf("framegraph bloom chain: %w", err)
	}

	fg.shadowPass, err = NewShadowPass(device, fg.atlas)
	if err != nil {
		return nil, fmt.Errorf("framegraph shadow pass: %w", err)
	}
	fg.gbufferPass, err = NewGBufferPass(device, fg.gbuffer, defaultTexture)
	if err != nil {
		return nil, fmt.Errorf("framegraph gbuffer pass: %w", err)
	}
	fg.lightingPass, err = NewLightingPass(device, fg.gbuffer, fg.atlas, fg.hdr)
	if err != nil {
		return nil, fmt.Errorf("framegraph lighting pass: %w", err)
	}
	fg.exposurePass, err = NewExposurePass(device, fg.hdr, options.Width, options.Height)
	if err != nil {
		return nil, fmt.Errorf("framegraph exposure pass: %w", err)
	}
	fg.bloomPass, err = NewBloomPass(device, fg.hdr, fg.bloom, options.Width, options.Height)
	if err != nil {
		return nil, fmt.Errorf("framegraph bloom pass: %w", err)
	}
	fg.compositePass, err = NewCompositePass(device, sc.Format, fg.hdr, fg.bloom, fg.exposurePass, options.Width, options.Height)
	if err != nil {
		return nil, fmt.Errorf("framegraph composite pass: %w", err)
	}
	fg.debugPass, err = NewDebugPass(device, sc.Format, fg.atlas)
	if err != nil {
		return nil, fmt.Errorf("framegraph debug pass: %w", err)
	}

	if err := fg.createGBufferFramebuffer(); err != nil {
		return nil, err
	}
	if err := sc.CreateFramebuffers(device, fg.compositePass.RenderPass, nil); err != nil {
		return nil, fmt.Errorf("framegraph swapchain framebuffers: %w", err)
	}
	fg.compositeFramebuffers = sc.Framebuffers

	if err := fg.createSyncObjects(); err != nil {
		return nil, err
	}

	return fg, nil
}

func (fg *FrameGraph) createGBufferFramebuffer() error {
	attachments := []C.VkImageView{
		fg.gbuffer.Albedo.View, fg.gbuffer.Normal.View, fg.gbuffer.Material.View, fg.gbuffer.Emissive.View,
		fg.gbuffer.Depth.View,
	}
	fbInfo := C.VkFramebufferCreateInfo{
		sType:           C.VK_STRUCTURE_TYPE_FRAMEBUFFER_CREATE_INFO,
		renderPass:      fg.gbufferPass.RenderPass,
		attachmentCount: C.uint32_t(len(attachments)),
		pAttachments:    &attachments[0],
		width:           C.uint32_t(fg.gbuffer.Width),
		height:          C.uint32_t(fg.gbuffer.Height),
		layers:          1,
	}
	result := C.vkCreateFramebuffer(fg.device.Device, &fbInfo, nil, &fg.gbufferFramebuffer)
	if result != C.VK_SUCCESS {
		return fmt.Errorf("framegraph gbuffer framebuffer: %d", result)
	}
	return nil
}

func (fg *FrameGraph) createSyncObjects() error {
	buffers, err := vulkan.AllocateCommandBuffers(fg.device, fg.device.CommandPool, framesInFlight)
	if err != nil {
		return fmt.Errorf("framegraph command buffers: %w", err)
	}
	for i := range fg.frames {
		fg.frames[i].commandBuffer = buffers[i]

		fg.frames[i].imageAvailable, err = vulkan.CreateSemaphore(fg.device)
		if err != nil {
			return fmt.Errorf("framegraph image-available semaphore %d: %w", i, err)
		}
		fg.frames[i].renderFinished, err = vulkan.CreateSemaphore(fg.device)
		if err != nil {
			return fmt.Errorf("framegraph render-finished semaphore %d: %w", i, err)
		}
		fg.frames[i].inFlight, err = vulkan.CreateFence(fg.device, true)
		if err != nil {
			return fmt.Errorf("framegraph in-flight fence %d: %w", i, err)
		}
	}
	return nil
}

// FrameParams is everything a single DrawFrame call needs beyond what the
// FrameGraph already owns: the scene's active camera state, lighting, and
// the pre-culled drawlists for the main view and each shadow cascade.
type FrameParams struct {
	Camera           CameraUniform
	Lighting         LightingParams
	MainDrawlist     *scene.DrawlistSet
	CascadeDrawlists [ShadowCascadeCount]*scene.DrawlistSet
	DeltaTime        float32
}

// DrawFrame records and submits one full frame: shadow cascades, G-buffer,
// lighting, auto-exposure, bloom, and composite, then presents. It returns
// a *FrameError classifying any failure so the caller can decide whether to
// recreate the swapchain (see IsRecreateSwapchain) or treat it as fatal.
func (fg *FrameGraph) DrawFrame(geometry *GeometryBuffers, params FrameParams, cascadeViewProj [ShadowCascadeCount]CameraUniform) error {
	fs := &fg.frames[fg.frameIndex]

	if err := fs.inFlight.Wait(fg.device, ^uint64(0)); err != nil {
		return newFrameError("wait-fence", FrameErrorFenceTimeout, err)
	}

	imageIndex, err := fg.swapchain.AcquireNextImage(fg.device, fs.imageAvailable.Handle, ^uint64(0))
	if err != nil {
		return newFrameError("acquire", classifySwapchainError(err), err)
	}

	if err := fs.inFlight.Reset(fg.device); err != nil {
		return newFrameError("reset-fence", FrameErrorUnknown, err)
	}

	cb := &fs.commandBuffer
	if err := cb.Begin(false); err != nil {
		return newFrameError("begin", FrameErrorUnknown, err)
	}

	for i := 0; i < ShadowCascadeCount; i++ {
		fg.shadowPass.Record(cb, geometry, i, cascadeViewProj[i].ViewProjection, params.CascadeDrawlists[i])
	}

	if err := fg.gbufferPass.Record(fg.device, cb, fg.gbufferFramebuffer, geometry, params.Camera, params.MainDrawlist); err != nil {
		return newFrameError("gbuffer", FrameErrorUnknown, err)
	}

	fg.lightingPass.Record(cb, params.Camera, params.Lighting)

	if fg.options.AutoExposure {
		fg.exposurePass.Record(cb, fg.options.Width, fg.options.Height, params.DeltaTime, fg.options.ExposureAdaptSpeed, fg.options.ExposureTargetGray)
	}

	fg.bloomPass.Record(cb, fg.bloom, fg.options.BloomThreshold, fg.options.BloomIntensity)

	exposure := fg.options.FixedExposure
	if fg.options.AutoExposure {
		exposure = fg.exposurePass.AverageLuminance()
	}
	fg.compositePass.Record(cb, fg.compositeFramebuffers[imageIndex], fg.options.Width, fg.options.Height,
		fg.options.BloomIntensity, exposure, fg.options.FXAAEnabled)

	if fg.options.DebugCascadeLayer >= 0 && fg.options.DebugCascadeLayer < ShadowCascadeCount {
		fg.debugPass.Record(cb, fg.compositeFramebuffers[imageIndex], fg.options.Width, fg.options.Height, fg.options.DebugCascadeLayer)
	}

	if err := cb.End(); err != nil {
		return newFrameError("end", FrameErrorUnknown, err)
	}

	waitSemaphores := []C.VkSemaphore{fs.imageAvailable.Handle}
	signalSemaphores := []C.VkSemaphore{fs.renderFinished.Handle}
	if err := vulkan.SubmitQueue(fg.device.GraphicsQueue, []vulkan.CommandBuffer{*cb}, waitSemaphores, signalSemaphores, fs.inFlight); err != nil {
		return newFrameError("submit", FrameErrorUnknown, err)
	}

	presentErr := vulkan.PresentQueue(fg.device.PresentQueue, []C.VkSwapchainKHR{fg.swapchain.Handle}, []uint32{imageIndex}, signalSemaphores)
	if presentErr != nil {
		return newFrameError("present", classifySwapchainError(presentErr), presentErr)
	}

	fg.frameIndex = (fg.frameIndex + 1) % framesInFlight
	return nil
}

func (fg *FrameGraph) Destroy() {
	fg.device.WaitIdle()

	for i := range fg.frames {
		fg.frames[i].imageAvailable.Destroy(fg.device)
		fg.frames[i].renderFinished.Destroy(fg.device)
		fg.frames[i].inFlight.Destroy(fg.device)
	}
	cmdBuffers := make([]vulkan.CommandBuffer, framesInFlight)
	for i := range fg.frames {
		cmdBuffers[i] = fg.frames[i].commandBuffer
	}
	vulkan.FreeCommandBuffers(fg.device, fg.device.CommandPool, cmdBuffers)

	C.vkDestroyFramebuffer(fg.device.Device, fg.gbufferFramebuffer, nil)

	fg.debugPass.Destroy(fg.device)
	fg.compositePass.Destroy(fg.device)
	fg.bloomPass.Destroy(fg.device)
	fg.exposurePass.Destroy(fg.device)
	fg.lightingPass.Destroy(fg.device)
	fg.gbufferPass.Destroy(fg.device)
	fg.shadowPass.Destroy(fg.device)

	fg.bloom.Destroy(fg.device)
	fg.hdr.Destroy(fg.device)
	fg.atlas.Destroy(fg.device)
	fg.gbuffer.Destroy(fg.device)
}
