package render

/*
#include <vulkan/vulkan.h>
*/
import "C"
import (
	"fmt"

	"github.com/mirelforge/photon/vulkan"
)

// GBuffer holds the attachments the geometry pass writes and the lighting
// pass reads: base color, world-space normal + roughness, material
// (metallic, occlusion), emissive, and depth.
type GBuffer struct {
	Albedo   *vulkan.Image // RGBA8: base color rgb, unused a
	Normal   *vulkan.Image // RGBA16F: world-space normal xyz, roughness a
	Material *vulkan.Image // RG8: metallic, occlusion
	Emissive *vulkan.Image // RGBA16F: emissive rgb + strength a
	Depth    *vulkan.Image

	Width, Height uint32
}

func createColorTarget(device *vulkan.Device, width, height uint32, format C.VkFormat, usage C.VkImageUsageFlags) (*vulkan.Image, error) {
	img, err := vulkan.CreateImage(device, width, height, format,
		C.VK_IMAGE_TILING_OPTIMAL, usage|C.VK_IMAGE_USAGE_SAMPLED_BIT,
		C.VK_MEMORY_PROPERTY_DEVICE_LOCAL_BIT, 1)
	if err != nil {
		return nil, err
	}
	if err := img.CreateView(device, C.VK_IMAGE_ASPECT_COLOR_BIT); err != nil {
		img.Destroy(device)
		return nil, err
	}
	return img, nil
}

// createSampledDepthTarget builds a depth attachment the lighting pass can
// sample afterward; vulkan.CreateDepthBuffer omits VK_IMAGE_USAGE_SAMPLED_BIT
// since the teacher never reads a depth buffer back in a later pass.
func createSampledDepthTarget(device *vulkan.Device, width, height uint32) (*vulkan.Image, error) {
	format := vulkan.FindDepthFormat(device)
	img, err := vulkan.CreateImage(device, width, height, format,
		C.VK_IMAGE_TILING_OPTIMAL,
		C.VK_IMAGE_USAGE_DEPTH_STENCIL_ATTACHMENT_BIT|C.VK_IMAGE_USAGE_SAMPLED_BIT,
		C.VK_MEMORY_PROPERTY_DEVICE_LOCAL_BIT, 1)
	if err != nil {
		return nil, err
	}
	if err := img.CreateView(device, C.VK_IMAGE_ASPECT_DEPTH_BIT); err != nil {
		img.Destroy(device)
		return nil, err
	}
	return img, nil
}

func CreateGBuffer(device *vulkan.Device, width, height uint32) (*GBuffer, error) {
	gb := &GBuffer{Width: width, Height: height}

	var err error
	gb.Albedo, err = createColorTarget(device, width, height, C.VK_FORMAT_R8G8B8A8_UNORM, C.VK_IMAGE_USAGE_COLOR_ATTACHMENT_BIT)
	if err != nil {
		return nil, fmt.Errorf("gbuffer albedo: %w", err)
	}
	gb.Normal, err = createColorTarget(device, width, height, C.VK_FORMAT_R16G16B16A16_SFLOAT, C.VK_IMAGE_USAGE_COLOR_ATTACHMENT_BIT)
	if err != nil {
		return nil, fmt.Errorf("gbuffer normal: %w", err)
	}
	gb.Material, err = createColorTarget(device, width, height, C.VK_FORMAT_R8G8_UNORM, C.VK_IMAGE_USAGE_COLOR_ATTACHMENT_BIT)
	if err != nil {
		return nil, fmt.Errorf("gbuffer material: %w", err)
	}
	gb.Emissive, err = createColorTarget(device, width, height, C.VK_FORMAT_R16G16B16A16_SFLOAT, C.VK_IMAGE_USAGE_COLOR_ATTACHMENT_BIT)
	if err != nil {
		return nil, fmt.Errorf("gbuffer emissive: %w", err)
	}
	gb.Depth, err = createSampledDepthTarget(device, width, height)
	if err != nil {
		return nil, fmt.Errorf("gbuffer depth: %w", err)
	}

	return gb, nil
}

func (gb *GBuffer) Destroy(device *vulkan.Device) {
	gb.Albedo.Destroy(device)
	gb.Normal.Destroy(device)
	gb.Material.Destroy(device)
	gb.Emissive.Destroy(device)
	gb.Depth.Destroy(device)
}

// ShadowAtlas holds one depth image per cascade. A true 2D array would save
// descriptor binds, but the existing vulkan.Image/CreateImage helpers only
// model single-layer images, so cascades are bound individually instead
// (three sampler bindings in the lighting shader rather than one array).
type ShadowAtlas struct {
	Cascades [ShadowCascadeCount]*vulkan.Image
	Size     uint32
	Sampler  C.VkSampler
}

func CreateShadowAtlas(device *vulkan.Device, size uint32) (*ShadowAtlas, error) {
	atlas := &ShadowAtlas{Size: size}
	for i := range atlas.Cascades {
		img, err := vulkan.CreateImage(device, size, size, vulkan.FindDepthFormat(device),
			C.VK_IMAGE_TILING_OPTIMAL,
			C.VK_IMAGE_USAGE_DEPTH_STENCIL_ATTACHMENT_BIT|C.VK_IMAGE_USAGE_SAMPLED_BIT,
			C.VK_MEMORY_PROPERTY_DEVICE_LOCAL_BIT, 1)
		if err != nil {
			return nil, fmt.Errorf("shadow cascade %d: %w", i, err)
		}
		if err := img.CreateView(device, C.VK_IMAGE_ASPECT_DEPTH_BIT); err != nil {
			img.Destroy(device)
			return nil, fmt.Errorf("shadow cascade %d view: %w", i, err)
		}
		atlas.Cascades[i] = img
	}

	sampler, err := vulkan.CreateComparisonSampler(device, C.VK_SAMPLER_ADDRESS_MODE_CLAMP_TO_BORDER)
	if err != nil {
		return nil, fmt.Errorf("shadow sampler: %w", err)
	}
	atlas.Sampler = sampler

	return atlas, nil
}

func (a *ShadowAtlas) Destroy(device *vulkan.Device) {
	vulkan.DestroySampler(device, a.Sampler)
	for _, img := range a.Cascades {
		img.Destroy(device)
	}
}

// BloomChain is a single image whose mip levels progressively downsample
// the bright-pass result; each compute dispatch reads mip N and writes
// mip N+1 on the way down, then reverses on the way up, accumulating into
// mip 0 which the composite pass samples.
type BloomChain struct {
	Image     *vulkan.Image
	MipViews  []C.VkImageView
	MipLevels uint32
	Sampler   C.VkSampler
}

func CreateBloomChain(device *vulkan.Device, width, height, mipLevels uint32) (*BloomChain, error) {
	img, err := vulkan.CreateImage(device, width, height, C.VK_FORMAT_R16G16B16A16_SFLOAT,
		C.VK_IMAGE_TILING_OPTIMAL,
		C.VK_IMAGE_USAGE_STORAGE_BIT|C.VK_IMAGE_USAGE_SAMPLED_BIT|C.VK_IMAGE_USAGE_TRANSFER_DST_BIT,
		C.VK_MEMORY_PROPERTY_DEVICE_LOCAL_BIT, mipLevels)
	if err != nil {
		return nil, fmt.Errorf("bloom image: %w", err)
	}
	if err := img.CreateView(device, C.VK_IMAGE_ASPECT_COLOR_BIT); err != nil {
		img.Destroy(device)
		return nil, fmt.Errorf("bloom base view: %w", err)
	}

	chain := &BloomChain{Image: img, MipLevels: mipLevels}
	chain.MipViews = make([]C.VkImageView, mipLevels)
	for mip := uint32(0); mip < mipLevels; mip++ {
		view, err := vulkan.CreateImageViewMip(device, img.Handle, img.Format, C.VK_IMAGE_ASPECT_COLOR_BIT, mip)
		if err != nil {
			return nil, fmt.Errorf("bloom mip %d view: %w", mip, err)
		}
		chain.MipViews[mip] = view
	}

	sampler, err := vulkan.CreateSampler(device, C.VK_FILTER_LINEAR, C.VK_FILTER_LINEAR, C.VK_SAMPLER_ADDRESS_MODE_CLAMP_TO_EDGE, 1.0)
	if err != nil {
		return nil, fmt.Errorf("bloom sampler: %w", err)
	}
	chain.Sampler = sampler

	return chain, nil
}

func (b *BloomChain) Destroy(device *vulkan.Device) {
	vulkan.DestroySampler(device, b.Sampler)
	for _, view := range b.MipViews {
		C.vkDestroyImageView(device.Device, view, nil)
	}
	b.Image.Destroy(device)
}

// HDRTarget is the lighting pass's output, read by both the bloom bright
// pass and the composite pass.
type HDRTarget struct {
	Image *vulkan.Image
}

func CreateHDRTarget(device *vulkan.Device, width, height uint32) (*HDRTarget, error) {
	img, err := createColorTarget(device, width, height, C.VK_FORMAT_R16G16B16A16_SFLOAT,
		C.VK_IMAGE_USAGE_COLOR_ATTACHMENT_BIT|C.VK_IMAGE_USAGE_STORAGE_BIT)
	if err != nil {
		return nil, fmt.Errorf("hdr target: %w", err)
	}
	return &HDRTarget{Image: img}, nil
}

func (t *HDRTarget) Destroy(device *vulkan.Device) {
	t.Image.Destroy(device)
}
