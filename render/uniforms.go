package render

import "github.com/mirelforge/photon/math"

// ShadowCascadeCount mirrors scene.ShadowCascadeCount; kept independent so
// the render package does not need to import scene just for the constant.
const ShadowCascadeCount = 3

// CameraUniform is the std140 mirror of the `Camera` uniform block bound at
// set 0, binding 0 in the G-buffer and lighting shaders.
type CameraUniform struct {
	View           math.Mat4
	Projection     math.Mat4
	ViewProjection math.Mat4
	InverseView    math.Mat4
	InverseProj    math.Mat4
	EyePosition    [3]float32
	_pad0          float32
}

// ShadowUniform is bound at set 0, binding 0 of the shadow pass, one per
// cascade draw (the framegraph rebinds it between cascades rather than
// indexing an array, since each cascade renders into its own framebuffer).
type ShadowUniform struct {
	LightViewProjection math.Mat4
}

// CascadeData is the std140 mirror of one entry of the lighting pass's
// cascade array, carrying what's needed to pick a cascade and sample it.
type CascadeData struct {
	LightViewProjection math.Mat4
	SplitFar            float32
	_pad0, _pad1, _pad2 float32
}

// LightingParams is bound at set 0, binding 1 of the lighting pass
// fullscreen-triangle shader, which reconstructs world position from the
// G-buffer depth and shades with a single directional light plus a constant
// ambient term (AmbientColor * AmbientIntensity); no image-based lighting is
// sampled.
type LightingParams struct {
	SunDirection  [3]float32
	_pad0         float32
	SunColor      [3]float32
	SunIntensity  float32
	AmbientColor  [3]float32
	AmbientIntensity float32
	Cascades       [ShadowCascadeCount]CascadeData
	ShadowBias     float32
	CascadeCount   uint32
	CSMBlendFactor float32
	_pad2          float32
}

// ExposurePushConstants drives the auto-exposure histogram-build and
// adapt compute dispatches.
type ExposurePushConstants struct {
	ImageWidth, ImageHeight uint32
	MinLogLuminance         float32
	LogLuminanceRange       float32
	DeltaTime               float32
	AdaptSpeed              float32
	TargetGray              float32
	_pad0                   float32
}

// ExposureResult is the single-float SSBO the adapt compute stage writes
// and the composite pass reads: the scene's adapted luminance, an
// exponentially smoothed median of the luminance histogram.
type ExposureResult struct {
	AverageLuminance float32
}

// BloomPushConstants parameterizes each step of the downsample/upsample
// mip chain; which mips a step reads and writes is set by the descriptor set
// bound for it, not by these constants.
type BloomPushConstants struct {
	SrcWidth, SrcHeight uint32
	Threshold           float32
	Intensity           float32
}

// CompositeParams is bound at set 0, binding 0 of the composite+FXAA pass.
type CompositeParams struct {
	BloomIntensity float32
	Exposure       float32
	FXAAEnabled    uint32
	_pad0          float32
	InverseResolution [2]float32
	_pad1, _pad2      float32
}
