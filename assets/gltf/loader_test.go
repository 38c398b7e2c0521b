package gltf

import (
	"testing"

	"github.com/mirelforge/photon/math"
)

func TestLocalBounds(t *testing.T) {
	tests := []struct {
		name      string
		positions [][3]float32
		wantMin   math.Vec3
		wantMax   math.Vec3
	}{
		{"empty", nil, math.Vec3{}, math.Vec3{}},
		{"single", [][3]float32{{1, 2, 3}}, math.Vec3{X: 1, Y: 2, Z: 3}, math.Vec3{X: 1, Y: 2, Z: 3}},
		{
			"spread",
			[][3]float32{{-1, 0, 5}, {2, -3, 1}, {0, 4, 0}},
			math.Vec3{X: -1, Y: -3, Z: 0},
			math.Vec3{X: 2, Y: 4, Z: 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box := localBounds(tt.positions)
			if box.Min != tt.wantMin || box.Max != tt.wantMax {
				t.Errorf("localBounds() = {%v %v}, want {%v %v}", box.Min, box.Max, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestStripCubicTangentsVec3(t *testing.T) {
	// glTF cubic-spline samplers store (in-tangent, value, out-tangent) per
	// keyframe; only the middle entry is the actual value.
	in := [][3]float32{
		{0, 0, 0}, {1, 1, 1}, {0, 0, 0}, // keyframe 0
		{0, 0, 0}, {2, 2, 2}, {0, 0, 0}, // keyframe 1
	}
	got := stripCubicTangentsVec3(in, 2)
	want := [][3]float32{{1, 1, 1}, {2, 2, 2}}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStripCubicTangentsVec4(t *testing.T) {
	in := [][4]float32{
		{0, 0, 0, 0}, {0, 0, 0, 1}, {0, 0, 0, 0},
		{0, 0, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 0},
	}
	got := stripCubicTangentsVec4(in, 2)
	want := [][4]float32{{0, 0, 0, 1}, {0, 0, 1, 0}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestToVec3Slice(t *testing.T) {
	got := toVec3Slice([][3]float32{{1, 2, 3}, {4, 5, 6}})
	want := []math.Vec3{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestToQuatSlice(t *testing.T) {
	got := toQuatSlice([][4]float32{{1, 2, 3, 4}})
	want := math.Quaternion{X: 1, Y: 2, Z: 3, W: 4}
	if got[0] != want {
		t.Errorf("got[0] = %v, want %v", got[0], want)
	}
}
