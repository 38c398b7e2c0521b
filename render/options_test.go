package render

import "testing"

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions(1920, 1080)

	if opts.Width != 1920 || opts.Height != 1080 {
		t.Errorf("Width/Height = %d/%d, want 1920/1080", opts.Width, opts.Height)
	}
	if opts.ShadowMapSize == 0 {
		t.Error("ShadowMapSize must default to a nonzero size")
	}
	if opts.DebugCascadeLayer != -1 {
		t.Errorf("DebugCascadeLayer = %d, want -1 (disabled)", opts.DebugCascadeLayer)
	}
	if !opts.AutoExposure {
		t.Error("expected AutoExposure to default on")
	}
	if !opts.FXAAEnabled {
		t.Error("expected FXAAEnabled to default on")
	}
	if opts.BloomMipLevels == 0 {
		t.Error("BloomMipLevels must default to a nonzero level count")
	}
	if opts.CSMBlendFactor < 0 || opts.CSMBlendFactor > 1 {
		t.Errorf("CSMBlendFactor = %v, want a value in [0,1]", opts.CSMBlendFactor)
	}
}
