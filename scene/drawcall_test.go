package scene

import (
	"testing"

	"github.com/mirelforge/photon/math"
)

func TestDrawlistAddBucketsByAlphaMode(t *testing.T) {
	opaqueMat := &Material{AlphaMode: AlphaOpaque}
	maskMat := &Material{AlphaMode: AlphaMask}
	blendMat := &Material{AlphaMode: AlphaBlend}

	var dl Drawlist
	dl.add(Drawcall{Primitive: &Primitive{Material: opaqueMat}})
	dl.add(Drawcall{Primitive: &Primitive{Material: maskMat}})
	dl.add(Drawcall{Primitive: &Primitive{Material: blendMat}})

	if len(dl.Opaque) != 1 || len(dl.Mask) != 1 || len(dl.Blend) != 1 {
		t.Fatalf("got Opaque=%d Mask=%d Blend=%d, want 1 each", len(dl.Opaque), len(dl.Mask), len(dl.Blend))
	}
}

func TestDrawlistSetBucketFor(t *testing.T) {
	var set DrawlistSet

	tests := []struct {
		name       string
		material   *Material
		skinned    bool
		wantBucket *Drawlist
	}{
		{"single-sided static", &Material{}, false, &set.SingleSidedStatic},
		{"single-sided skinned", &Material{}, true, &set.SingleSidedSkinned},
		{"double-sided static", &Material{DoubleSided: true}, false, &set.DoubleSidedStatic},
		{"double-sided skinned", &Material{DoubleSided: true}, true, &set.DoubleSidedSkinned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prim := &Primitive{Material: tt.material, Skinned: tt.skinned}
			if got := set.bucketFor(prim); got != tt.wantBucket {
				t.Errorf("bucketFor() picked the wrong bucket")
			}
		})
	}
}

func TestSortOpaqueBucketsByMaterialThenVertexBuffer(t *testing.T) {
	matA := &Material{Index: 0}
	matB := &Material{Index: 1}

	dl := Drawlist{
		Opaque: []Drawcall{
			{Primitive: &Primitive{Material: matB, VertexBufferIndex: 0}},
			{Primitive: &Primitive{Material: matA, VertexBufferIndex: 1}},
			{Primitive: &Primitive{Material: matA, VertexBufferIndex: 0}},
		},
	}
	dl.sortOpaqueBuckets()

	if dl.Opaque[0].Primitive.Material.Index != 0 || dl.Opaque[0].Primitive.VertexBufferIndex != 0 {
		t.Errorf("expected (matA, vb0) first, got material %d vb %d", dl.Opaque[0].Primitive.Material.Index, dl.Opaque[0].Primitive.VertexBufferIndex)
	}
	if dl.Opaque[2].Primitive.Material.Index != 1 {
		t.Errorf("expected matB last, got material %d", dl.Opaque[2].Primitive.Material.Index)
	}
}

func TestSortBlendBackToFront(t *testing.T) {
	dl := Drawlist{
		Blend: []Drawcall{
			{Near: 1}, {Near: 5}, {Near: 3},
		},
	}
	dl.sortBlendBackToFront()

	want := []float32{5, 3, 1}
	for i, w := range want {
		if dl.Blend[i].Near != w {
			t.Errorf("Blend[%d].Near = %v, want %v", i, dl.Blend[i].Near, w)
		}
	}
}

func TestGenerateDrawcallsCullsOutsideFrustum(t *testing.T) {
	proj := math.Mat4Perspective(1.0472, 1.0, 0.1, 100.0)
	view := math.Mat4LookAt(math.Vec3{X: 0, Y: 0, Z: 5}, math.Vec3Zero, math.Vec3Up)
	vp := proj.Mul(view)
	fp := FrustumParams{
		View: view, Projection: proj, ViewProjection: vp,
		Eye: math.Vec3{X: 0, Y: 0, Z: 5}, Direction: math.Vec3{X: 0, Y: 0, Z: -1},
		Frustum: FrustumFromVP(vp),
	}

	root := NewNode("root")

	visible := NewNode("visible")
	visible.Mesh = &Mesh{Primitives: []*Primitive{{
		Material:  &Material{},
		LocalAABB: AABB{Min: math.Vec3{X: -0.5, Y: -0.5, Z: -0.5}, Max: math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}},
	}}}
	root.AddChild(visible)

	hidden := NewNode("hidden")
	hidden.SetPosition(math.Vec3{X: 1000, Y: 0, Z: 0})
	hidden.Mesh = &Mesh{Primitives: []*Primitive{{
		Material:  &Material{},
		LocalAABB: AABB{Min: math.Vec3{X: -0.5, Y: -0.5, Z: -0.5}, Max: math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}},
	}}}
	root.AddChild(hidden)

	set, summary := GenerateDrawcalls(root, fp)

	if summary.ObjectCount != 1 {
		t.Errorf("ObjectCount = %d, want 1", summary.ObjectCount)
	}
	if len(set.SingleSidedStatic.Opaque) != 1 {
		t.Errorf("expected exactly one surviving drawcall, got %d", len(set.SingleSidedStatic.Opaque))
	}
}

func TestClampGBufferNearFar(t *testing.T) {
	tests := []struct {
		name           string
		near, far      float32
		wantNear       float32
		wantFarAtLeast float32
	}{
		{"typical", 1, 1000, 1, 1000},
		{"near below floor", 0.001, 10, 0.01, 10},
		{"far below floor", 0, 0, 0.01, 0.02},
		{"near too close to far for ratio", 49.99, 50, 0.25, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			near, far := ClampGBufferNearFar(tt.near, tt.far)
			if near != tt.wantNear {
				t.Errorf("near = %v, want %v", near, tt.wantNear)
			}
			if far < tt.wantFarAtLeast {
				t.Errorf("far = %v, want at least %v", far, tt.wantFarAtLeast)
			}
			if near > far {
				t.Errorf("near (%v) > far (%v)", near, far)
			}
		})
	}
}
