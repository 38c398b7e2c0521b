package scene

import (
	"testing"

	"github.com/mirelforge/photon/math"
)

func TestDeriveShadowCascadesSplitsAreIncreasing(t *testing.T) {
	cam := NewCamera(1.0472, 16.0/9.0, 0.1, 100.0)
	cam.SetPosition(math.Vec3{X: 0, Y: 5, Z: 10})
	cam.LookAt(math.Vec3Zero, math.Vec3Up)

	sun := math.Vec3{X: 0.3, Y: -1, Z: -0.2}.Normalize()
	cascades := DeriveShadowCascades(cam, sun, 0.5)

	var lastSplit float32
	for i, c := range cascades {
		if c.SplitFar <= lastSplit {
			t.Errorf("cascade %d SplitFar = %v, want > previous %v", i, c.SplitFar, lastSplit)
		}
		lastSplit = c.SplitFar
		if c.HalfWidth <= 0 || c.HalfHeight <= 0 {
			t.Errorf("cascade %d has non-positive extent %v x %v", i, c.HalfWidth, c.HalfHeight)
		}
	}
	if cascades[ShadowCascadeCount-1].SplitFar != cam.FarPlane {
		t.Errorf("last cascade SplitFar = %v, want camera far plane %v", cascades[ShadowCascadeCount-1].SplitFar, cam.FarPlane)
	}
}

func TestDeriveShadowCascadesBlendFactorBoundaries(t *testing.T) {
	// near=0.1, far=100 makes far/near = 1000 = 10^3, so the logarithmic
	// split lands on exact powers of ten at t=1/3 and t=2/3.
	cam := NewCamera(1.0472, 16.0/9.0, 0.1, 100.0)
	cam.SetPosition(math.Vec3{X: 0, Y: 5, Z: 10})
	cam.LookAt(math.Vec3Zero, math.Vec3Up)
	sun := math.Vec3{X: 0.3, Y: -1, Z: -0.2}.Normalize()

	const eps = 1e-3

	logCascades := DeriveShadowCascades(cam, sun, 0)
	if absf(logCascades[0].SplitFar-1.0) > eps {
		t.Errorf("blendFactor=0 (pure log) cascade 0 SplitFar = %v, want 1.0", logCascades[0].SplitFar)
	}
	if absf(logCascades[1].SplitFar-10.0) > eps {
		t.Errorf("blendFactor=0 (pure log) cascade 1 SplitFar = %v, want 10.0", logCascades[1].SplitFar)
	}

	linCascades := DeriveShadowCascades(cam, sun, 1)
	if absf(linCascades[0].SplitFar-33.4) > eps {
		t.Errorf("blendFactor=1 (pure linear) cascade 0 SplitFar = %v, want 33.4", linCascades[0].SplitFar)
	}
	if absf(linCascades[1].SplitFar-66.7) > eps {
		t.Errorf("blendFactor=1 (pure linear) cascade 1 SplitFar = %v, want 66.7", linCascades[1].SplitFar)
	}
}

func TestConvexHull2DSquare(t *testing.T) {
	pts := []math.Vec2{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
		{X: 0.5, Y: 0.5}, // interior point, must not appear in hull
	}
	hull := convexHull2D(pts)
	if len(hull) != 4 {
		t.Fatalf("len(hull) = %d, want 4", len(hull))
	}
	for _, p := range hull {
		if p == (math.Vec2{X: 0.5, Y: 0.5}) {
			t.Error("interior point leaked into convex hull")
		}
	}
}

func TestMinAreaRectSquare(t *testing.T) {
	hull := []math.Vec2{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}}
	_, _, center, halfW, halfH := minAreaRect(hull)

	if center != (math.Vec2{}) {
		t.Errorf("center = %v, want origin", center)
	}
	if halfW != 1 || halfH != 1 {
		t.Errorf("halfW/halfH = %v/%v, want 1/1", halfW, halfH)
	}
}
