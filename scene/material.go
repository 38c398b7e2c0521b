package scene

import (
	"github.com/mirelforge/photon/core"
	"github.com/mirelforge/photon/textures"
)

// AlphaMode mirrors glTF's alphaMode: how a primitive's alpha channel is
// interpreted when it's binned into a Drawlist and later composited.
type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota // alpha ignored, primitive is fully opaque
	AlphaMask                    // alpha < AlphaCutoff is discarded, otherwise opaque
	AlphaBlend                   // binned into Drawlist.Blend, which no render pass draws
)

// Material is a PBR metallic-roughness material, per glTF 2.0's material
// model. Index is a stable identifier assigned at load time and used as the
// primary key when sorting drawcalls, to minimize descriptor-set rebinds.
type Material struct {
	Name  string
	Index int

	BaseColorFactor core.Color
	MetallicFactor  float32
	RoughnessFactor float32

	EmissiveFactor   core.Color
	EmissiveStrength float32 // KHR_materials_emissive_strength multiplier

	NormalScale float32
	AlphaCutoff float32
	AlphaMode   AlphaMode
	DoubleSided bool

	AlbedoTexture            *textures.Texture
	MetallicRoughnessTexture *textures.Texture // G = roughness, B = metallic
	NormalTexture            *textures.Texture
	OcclusionTexture         *textures.Texture
	EmissiveTexture          *textures.Texture
}

// DefaultMaterial returns a fully opaque white material with glTF's default
// factors (metallic 1, roughness 1), used when a primitive references no
// material.
func DefaultMaterial() *Material {
	return &Material{
		Name:            "default",
		BaseColorFactor: core.ColorWhite,
		MetallicFactor:  1.0,
		RoughnessFactor: 1.0,
		EmissiveFactor:  core.ColorBlack,
		NormalScale:     1.0,
		AlphaCutoff:     0.5,
		AlphaMode:       AlphaOpaque,
	}
}

// NewMaterial builds a material from the scalar PBR factors; textures are
// attached afterward by the loader.
func NewMaterial(name string, baseColor core.Color, metallic, roughness float32) *Material {
	return &Material{
		Name:            name,
		BaseColorFactor: baseColor,
		MetallicFactor:  metallic,
		RoughnessFactor: roughness,
		EmissiveFactor:  core.ColorBlack,
		NormalScale:     1.0,
		AlphaCutoff:     0.5,
		AlphaMode:       AlphaOpaque,
	}
}
