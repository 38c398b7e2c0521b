package render

// Options configures a FrameGraph at construction time. Unlike the
// per-pipeline *Config structs in the vulkan package, Options groups every
// knob a caller is expected to touch into one flat struct, following the
// same shape as vulkan.SwapChainConfig/InstanceConfig.
type Options struct {
	Width, Height uint32

	ShadowMapSize uint32

	// CSMBlendFactor, in [0,1], does double duty: it mixes the logarithmic
	// and linear cascade-split schemes (0 = pure logarithmic, 1 = pure
	// linear) and sizes the cross-cascade blend region the lighting pass
	// feathers near each split (0 = hard boundary, no interpolation; 1 =
	// the entire cascade width blends into the next).
	CSMBlendFactor float32

	BloomMipLevels  uint32
	BloomThreshold  float32
	BloomIntensity  float32

	AutoExposure      bool
	ExposureAdaptSpeed float32
	ExposureTargetGray float32
	FixedExposure      float32

	FXAAEnabled bool

	DedicatedComputeQueue bool

	DebugCascadeLayer int // -1 disables; 0..ShadowCascadeCount-1 visualizes a layer
}

func DefaultOptions(width, height uint32) Options {
	return Options{
		Width:          width,
		Height:         height,
		ShadowMapSize:  2048,
		CSMBlendFactor: 0.5,

		BloomMipLevels: 5,
		BloomThreshold: 1.0,
		BloomIntensity: 0.05,

		AutoExposure:       true,
		ExposureAdaptSpeed: 1.1,
		ExposureTargetGray: 0.18,
		FixedExposure:      1.0,

		FXAAEnabled: true,

		DedicatedComputeQueue: true,

		DebugCascadeLayer: -1,
	}
}
