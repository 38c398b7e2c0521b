package scene

import (
	"testing"

	"github.com/mirelforge/photon/math"
)

func TestKeyframeSpan(t *testing.T) {
	times := []float32{0, 1, 2, 4}

	tests := []struct {
		name      string
		t         float32
		wantK     int
		wantFrac  float32
	}{
		{"before first", -1, 0, 0},
		{"at first", 0, 0, 0},
		{"mid first span", 0.5, 0, 0.5},
		{"at second", 1, 1, 0},
		{"mid last span", 3, 2, 0.5},
		{"after last", 10, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, frac := keyframeSpan(times, tt.t)
			if k != tt.wantK || frac != tt.wantFrac {
				t.Errorf("keyframeSpan(%v) = (%d, %v), want (%d, %v)", tt.t, k, frac, tt.wantK, tt.wantFrac)
			}
		})
	}
}

func TestChannelSampleVec3Linear(t *testing.T) {
	node := NewNode("target")
	ch := &Channel{
		TargetNode: node,
		Path:       PathTranslation,
		Interp:     InterpLinear,
		Times:      []float32{0, 1},
		ValuesVec3: []math.Vec3{{X: 0}, {X: 10}},
	}
	ch.apply(0.5)

	want := math.Vec3{X: 5}
	if node.Transform.Position != want {
		t.Errorf("Position = %v, want %v", node.Transform.Position, want)
	}
}

func TestChannelSampleVec3Step(t *testing.T) {
	node := NewNode("target")
	ch := &Channel{
		TargetNode: node,
		Path:       PathScale,
		Interp:     InterpStep,
		Times:      []float32{0, 1},
		ValuesVec3: []math.Vec3{{X: 1, Y: 1, Z: 1}, {X: 2, Y: 2, Z: 2}},
	}
	ch.apply(0.9)

	want := math.Vec3{X: 1, Y: 1, Z: 1}
	if node.Transform.Scale != want {
		t.Errorf("Scale = %v, want %v (step interpolation should hold the earlier keyframe)", node.Transform.Scale, want)
	}
}

func TestAnimationSampleClampsToDuration(t *testing.T) {
	node := NewNode("target")
	ch := &Channel{
		TargetNode: node,
		Path:       PathTranslation,
		Interp:     InterpLinear,
		Times:      []float32{0, 1},
		ValuesVec3: []math.Vec3{{X: 0}, {X: 10}},
	}
	anim := &Animation{Channels: []*Channel{ch}, Duration: 1}
	anim.Sample(100)

	want := math.Vec3{X: 10}
	if node.Transform.Position != want {
		t.Errorf("Position = %v, want %v after sampling past Duration", node.Transform.Position, want)
	}
}
