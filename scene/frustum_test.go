package scene

import (
	"testing"

	"github.com/mirelforge/photon/math"
)

func TestFrustumFromVPAcceptsOrigin(t *testing.T) {
	proj := math.Mat4Perspective(1.0472, 1.0, 0.1, 100.0)
	view := math.Mat4LookAt(math.Vec3{X: 0, Y: 0, Z: 5}, math.Vec3Zero, math.Vec3Up)
	vp := proj.Mul(view)

	frustum := FrustumFromVP(vp)
	box := AABB{Min: math.Vec3{X: -0.5, Y: -0.5, Z: -0.5}, Max: math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}}

	for i, p := range frustum.Planes {
		if !p.AcceptsAABB(box) {
			t.Errorf("plane %d rejected a box at the origin, expected inside frustum", i)
		}
	}
}

func TestFrustumFromVPRejectsBehindCamera(t *testing.T) {
	proj := math.Mat4Perspective(1.0472, 1.0, 0.1, 100.0)
	view := math.Mat4LookAt(math.Vec3{X: 0, Y: 0, Z: 5}, math.Vec3Zero, math.Vec3Up)
	vp := proj.Mul(view)

	frustum := FrustumFromVP(vp)
	box := AABB{Min: math.Vec3{X: -0.1, Y: -0.1, Z: 9}, Max: math.Vec3{X: 0.1, Y: 0.1, Z: 9.2}}

	accepted := true
	for i := 0; i < 4; i++ {
		if !frustum.Planes[i].AcceptsAABB(box) {
			accepted = false
		}
	}
	if !frustum.Planes[4].AcceptsAABB(box) {
		accepted = false
	}
	if accepted {
		t.Error("expected a box far behind the camera to be rejected by the near plane")
	}
}

func TestAABBUnion(t *testing.T) {
	a := AABB{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	b := AABB{Min: math.Vec3{X: 0, Y: 2, Z: -5}, Max: math.Vec3{X: 3, Y: 4, Z: 0}}
	u := a.Union(b)

	want := AABB{Min: math.Vec3{X: -1, Y: -1, Z: -5}, Max: math.Vec3{X: 3, Y: 4, Z: 1}}
	if u != want {
		t.Errorf("Union() = %+v, want %+v", u, want)
	}
}

func TestTransformAABB(t *testing.T) {
	box := AABB{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	translated := TransformAABB(box, math.Mat4Translation(math.Vec3{X: 5, Y: 0, Z: 0}))

	want := AABB{Min: math.Vec3{X: 4, Y: -1, Z: -1}, Max: math.Vec3{X: 6, Y: 1, Z: 1}}
	if translated != want {
		t.Errorf("TransformAABB() = %+v, want %+v", translated, want)
	}
}
