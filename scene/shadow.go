package scene

import (
	stdmath "math"
	"sort"

	"github.com/mirelforge/photon/math"
)

// ShadowCascadeCount is the number of cascades the shadow pass renders, one
// separate depth image each.
const ShadowCascadeCount = 3

// ShadowParameter is a FrustumParams for one cascade, plus the half-extents
// of the orthographic projection the cascade was fitted with.
type ShadowParameter struct {
	FrustumParams
	HalfWidth, HalfHeight float32

	// SplitFar is the view-space depth (distance along the camera's forward
	// axis from its eye) where this cascade's slice of [NearPlane, FarPlane]
	// ends. The lighting pass compares a pixel's reconstructed view-space
	// depth against each cascade's SplitFar to pick which one to sample.
	SplitFar float32
}

// DeriveShadowCascades splits cam's [NearPlane, FarPlane] range into
// ShadowCascadeCount z-slices and fits a minimum-area, sun-aligned
// orthographic frustum around each slice's world-space corners.
//
// blendFactor, in [0,1], mixes the logarithmic and linear split schemes
// for the interior splits: 0 yields the pure logarithmic split, 1 the pure
// linear split. It is the same value the lighting pass uses to size its
// cross-cascade blend region, so a caller passing 1 gets both "linear
// split" and "maximal blending region" at once, matching the other end's
// "hard boundaries, no interpolation" at 0.
func DeriveShadowCascades(cam *Camera, sunDirection math.Vec3, blendFactor float32) [ShadowCascadeCount]ShadowParameter {
	near, far := cam.NearPlane, cam.FarPlane

	var splits [ShadowCascadeCount + 1]float32
	splits[0] = near
	splits[ShadowCascadeCount] = far
	for i := 1; i < ShadowCascadeCount; i++ {
		t := float32(i) / float32(ShadowCascadeCount)
		logSplit := near * float32(stdmath.Pow(float64(far/near), float64(t)))
		linSplit := near + (far-near)*t
		splits[i] = logSplit*(1-blendFactor) + linSplit*blendFactor
	}

	forward := cam.GetForward()
	up := cam.GetUp()
	right := cam.GetRight()
	halfFovY := cam.FOV / 2
	aspect := cam.AspectRatio

	var out [ShadowCascadeCount]ShadowParameter
	for i := 0; i < ShadowCascadeCount; i++ {
		corners := frustumSliceCorners(cam.Position, forward, up, right, halfFovY, aspect, splits[i], splits[i+1])
		out[i] = fitCascade(corners, sunDirection)
		out[i].SplitFar = splits[i+1]
	}
	return out
}

// frustumSliceCorners returns the 8 world-space corners of the camera's
// view frustum between nearDist and farDist along its forward axis.
func frustumSliceCorners(eye, forward, up, right math.Vec3, halfFovY, aspect, nearDist, farDist float32) [8]math.Vec3 {
	var out [8]math.Vec3
	dists := [2]float32{nearDist, farDist}
	for d, dist := range dists {
		halfH := float32(stdmath.Tan(float64(halfFovY))) * dist
		halfW := halfH * aspect
		center := eye.Add(forward.Mul(dist))
		out[d*4+0] = center.Add(up.Mul(halfH)).Sub(right.Mul(halfW))
		out[d*4+1] = center.Add(up.Mul(halfH)).Add(right.Mul(halfW))
		out[d*4+2] = center.Sub(up.Mul(halfH)).Sub(right.Mul(halfW))
		out[d*4+3] = center.Sub(up.Mul(halfH)).Add(right.Mul(halfW))
	}
	return out
}

// fitCascade builds the sun-aligned orthographic ShadowParameter that
// tightly bounds corners: it projects them onto the plane perpendicular to
// sunDirection, finds their 2D convex hull, and fits the minimum-area
// rectangle around that hull so the shadow map wastes the least texel
// budget on empty space.
func fitCascade(corners [8]math.Vec3, sunDirection math.Vec3) ShadowParameter {
	lightForward := sunDirection.Normalize()

	lightUp0 := math.Vec3Up
	if absf(lightForward.Dot(lightUp0)) > 0.99 {
		lightUp0 = math.Vec3Right
	}
	lightRight0 := lightUp0.Cross(lightForward).Normalize()
	lightUp0 = lightForward.Cross(lightRight0).Normalize()

	pts := make([]math.Vec2, len(corners))
	for i, c := range corners {
		pts[i] = math.Vec2{X: c.Dot(lightRight0), Y: c.Dot(lightUp0)}
	}

	hull := convexHull2D(pts)
	axis, perp, center2D, halfW, halfH := minAreaRect(hull)

	finalRight := lightRight0.Mul(axis.X).Add(lightUp0.Mul(axis.Y)).Normalize()
	finalUp := lightRight0.Mul(perp.X).Add(lightUp0.Mul(perp.Y)).Normalize()
	centerWorld := lightRight0.Mul(center2D.X).Add(lightUp0.Mul(center2D.Y))

	minAlong, maxAlong := corners[0].Dot(lightForward), corners[0].Dot(lightForward)
	for _, c := range corners[1:] {
		d := c.Dot(lightForward)
		if d < minAlong {
			minAlong = d
		}
		if d > maxAlong {
			maxAlong = d
		}
	}

	const eyeMargin = 1.0
	eye := centerWorld.Add(lightForward.Mul(minAlong - eyeMargin))
	nearDist := eyeMargin - 0.01
	farDist := eyeMargin + (maxAlong - minAlong) + 0.01

	view := math.Mat4LookAt(eye, eye.Add(lightForward), finalUp)
	projection := math.Mat4Orthographic(-halfW, halfW, -halfH, halfH, nearDist, farDist)
	vp := projection.Mul(view)

	return ShadowParameter{
		FrustumParams: FrustumParams{
			View:           view,
			Projection:     projection,
			ViewProjection: vp,
			Eye:            eye,
			Direction:      lightForward,
			Frustum:        FrustumFromVP(vp),
		},
		HalfWidth:  halfW,
		HalfHeight: halfH,
	}
}

// convexHull2D computes the convex hull of pts via Andrew's monotone chain,
// returning hull vertices in counter-clockwise order. With only 8 input
// points (a frustum slice's corners) this is cheap enough to run per
// cascade per frame.
func convexHull2D(pts []math.Vec2) []math.Vec2 {
	sorted := append([]math.Vec2(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b math.Vec2) float32 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	n := len(sorted)
	hull := make([]math.Vec2, 0, 2*n)

	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	return hull[:len(hull)-1]
}

// minAreaRect finds the minimum-area rectangle enclosing a convex polygon by
// rotating calipers: one of the rectangle's sides always lies flush with a
// hull edge, so testing each edge's direction as a candidate axis suffices.
// Returns the axis/perpendicular unit directions, the rectangle center, and
// its half-width/half-height along those directions.
func minAreaRect(hull []math.Vec2) (axis, perp, center math.Vec2, halfW, halfH float32) {
	if len(hull) == 0 {
		return math.Vec2{X: 1}, math.Vec2{Y: 1}, math.Vec2{}, 0, 0
	}
	if len(hull) == 1 {
		return math.Vec2{X: 1}, math.Vec2{Y: 1}, hull[0], 0, 0
	}

	bestArea := float32(stdmath.Inf(1))
	for i := 0; i < len(hull); i++ {
		a := hull[i]
		b := hull[(i+1)%len(hull)]
		edge := b.Sub(a)
		if edge.Length() == 0 {
			continue
		}
		candAxis := edge.Normalize()
		candPerp := math.Vec2{X: -candAxis.Y, Y: candAxis.X}

		minA, maxA := candAxis.Dot(hull[0]), candAxis.Dot(hull[0])
		minP, maxP := candPerp.Dot(hull[0]), candPerp.Dot(hull[0])
		for _, p := range hull[1:] {
			da, dp := candAxis.Dot(p), candPerp.Dot(p)
			minA, maxA = minf(minA, da), maxf(maxA, da)
			minP, maxP = minf(minP, dp), maxf(maxP, dp)
		}

		area := (maxA - minA) * (maxP - minP)
		if area < bestArea {
			bestArea = area
			axis, perp = candAxis, candPerp
			halfW, halfH = (maxA-minA)/2, (maxP-minP)/2
			centerA, centerP := (minA+maxA)/2, (minP+maxP)/2
			center = candAxis.Mul(centerA).Add(candPerp.Mul(centerP))
		}
	}
	return axis, perp, center, halfW, halfH
}

func absf(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
