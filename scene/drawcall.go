package scene

import (
	"sort"

	"github.com/mirelforge/photon/math"
)

// Drawcall is one primitive instance ready to be recorded: a reference back
// to its owning node (for the world matrix and, if skinned, the joint
// buffer) and the primitive geometry/material to bind.
type Drawcall struct {
	Node      *Node
	Primitive *Primitive
	World     math.Mat4

	// Near/Far are this drawcall's AABB projected onto the view direction,
	// in view-space depth. The generator tracks the running min/max of these
	// across all accepted drawcalls to report in Summary.
	Near, Far float32
}

// Drawlist buckets drawcalls by alpha mode. Opaque and Mask are sorted by
// (material, vertex buffer, offset) to minimize state changes; Blend is
// sorted back-to-front instead and is therefore never sorted by material.
type Drawlist struct {
	Opaque []Drawcall
	Mask   []Drawcall
	Blend  []Drawcall
}

func (dl *Drawlist) add(dc Drawcall) {
	switch dc.Primitive.Material.AlphaMode {
	case AlphaMask:
		dl.Mask = append(dl.Mask, dc)
	case AlphaBlend:
		dl.Blend = append(dl.Blend, dc)
	default:
		dl.Opaque = append(dl.Opaque, dc)
	}
}

func sortKeyLess(a, b Drawcall) bool {
	am, bm := a.Primitive.Material, b.Primitive.Material
	if am.Index != bm.Index {
		return am.Index < bm.Index
	}
	if a.Primitive.VertexBufferIndex != b.Primitive.VertexBufferIndex {
		return a.Primitive.VertexBufferIndex < b.Primitive.VertexBufferIndex
	}
	return a.Primitive.VertexOffset < b.Primitive.VertexOffset
}

func (dl *Drawlist) sortOpaqueBuckets() {
	sort.Slice(dl.Opaque, func(i, j int) bool { return sortKeyLess(dl.Opaque[i], dl.Opaque[j]) })
	sort.Slice(dl.Mask, func(i, j int) bool { return sortKeyLess(dl.Mask[i], dl.Mask[j]) })
}

// sortBlendBackToFront orders the Blend bucket by decreasing Near so the
// farthest primitive from the eye draws first. Spec ordering is "per
// primitive" rather than per triangle: this is a best effort for the single
// transparency sort pass this renderer performs (see Non-goals).
func (dl *Drawlist) sortBlendBackToFront() {
	sort.Slice(dl.Blend, func(i, j int) bool { return dl.Blend[i].Near > dl.Blend[j].Near })
}

// DrawlistSet partitions a frame's drawcalls along the two axes the pipeline
// needs distinct vertex layouts and pipeline state for: single- vs.
// double-sided (back-face culling on/off) and static vs. skinned (joint
// buffer bound or not).
type DrawlistSet struct {
	SingleSidedStatic  Drawlist
	SingleSidedSkinned Drawlist
	DoubleSidedStatic  Drawlist
	DoubleSidedSkinned Drawlist
}

func (s *DrawlistSet) bucketFor(primitive *Primitive) *Drawlist {
	switch {
	case primitive.Material.DoubleSided && primitive.Skinned:
		return &s.DoubleSidedSkinned
	case primitive.Material.DoubleSided:
		return &s.DoubleSidedStatic
	case primitive.Skinned:
		return &s.SingleSidedSkinned
	default:
		return &s.SingleSidedStatic
	}
}

// Buckets returns all four per-sidedness/skinning buckets. Useful for passes
// that don't distinguish that axis, such as the shadow depth-only pass.
func (s *DrawlistSet) Buckets() [4]*Drawlist {
	return [4]*Drawlist{&s.SingleSidedStatic, &s.SingleSidedSkinned, &s.DoubleSidedStatic, &s.DoubleSidedSkinned}
}

// OpaqueAndMask returns every Opaque and Mask drawcall across all buckets, in
// bucket order.
func (s *DrawlistSet) OpaqueAndMask() []Drawcall {
	var out []Drawcall
	for _, b := range s.Buckets() {
		out = append(out, b.Opaque...)
		out = append(out, b.Mask...)
	}
	return out
}

func (s *DrawlistSet) sort() {
	for _, dl := range []*Drawlist{&s.SingleSidedStatic, &s.SingleSidedSkinned, &s.DoubleSidedStatic, &s.DoubleSidedSkinned} {
		dl.sortOpaqueBuckets()
		dl.sortBlendBackToFront()
	}
}

// Summary reports the aggregate statistics of one culling pass: the tightest
// near/far bound across every accepted drawcall (for e.g. shadow cascade
// derivation) and object/vertex counts for frame-statistics logging.
type Summary struct {
	Near, Far              float32
	MinBounding, MaxBounding math.Vec3
	ObjectCount, VertexCount int
}

// GenerateDrawcalls walks the node tree rooted at root, culls every primitive
// against fp's frustum, and bins the survivors into a DrawlistSet. Culling
// tests the four side planes first (Frustum.Planes[0:4]); only AABBs that
// pass all four have their corners projected onto fp.Direction to derive a
// per-drawcall near/far, after which the near/far planes (Planes[4:6]) are
// tested to finish the full six-plane accept/reject decision.
func GenerateDrawcalls(root *Node, fp FrustumParams) (*DrawlistSet, Summary) {
	set := &DrawlistSet{}
	var summary Summary
	first := true

	root.Traverse(func(node *Node) {
		if !node.Visible || node.Mesh == nil {
			return
		}
		world := node.GetWorldMatrix()

		for _, prim := range node.Mesh.Primitives {
			if prim.Material == nil {
				continue
			}

			var box AABB
			if prim.Skinned && node.Skin != nil {
				box = node.Skin.SkinnedAABB(prim.LocalAABB)
			} else {
				box = TransformAABB(prim.LocalAABB, world)
			}

			accept, near, far := testAABB(box, &fp.Frustum, fp.Eye, fp.Direction)
			if !accept {
				continue
			}

			dc := Drawcall{Node: node, Primitive: prim, World: world, Near: near, Far: far}
			set.bucketFor(prim).add(dc)

			if first {
				summary.Near, summary.Far = near, far
				summary.MinBounding, summary.MaxBounding = box.Min, box.Max
				first = false
			} else {
				if near < summary.Near {
					summary.Near = near
				}
				if far > summary.Far {
					summary.Far = far
				}
				summary.MinBounding = math.Vec3{
					X: minf(summary.MinBounding.X, box.Min.X),
					Y: minf(summary.MinBounding.Y, box.Min.Y),
					Z: minf(summary.MinBounding.Z, box.Min.Z),
				}
				summary.MaxBounding = math.Vec3{
					X: maxf(summary.MaxBounding.X, box.Max.X),
					Y: maxf(summary.MaxBounding.Y, box.Max.Y),
					Z: maxf(summary.MaxBounding.Z, box.Max.Z),
				}
			}
			summary.ObjectCount++
			summary.VertexCount += int(prim.VertexCount)
		}
	})

	set.sort()
	return set, summary
}

// testAABB performs the side-planes-then-depth-planes cull described above,
// returning the AABB's near/far extent along direction when accepted.
func testAABB(box AABB, frustum *Frustum, eye, direction math.Vec3) (accept bool, near, far float32) {
	for i := 0; i < 4; i++ {
		if !frustum.Planes[i].AcceptsAABB(box) {
			return false, 0, 0
		}
	}

	corners := box.Corners()
	near = direction.Dot(corners[0].Sub(eye))
	far = near
	for i := 1; i < 8; i++ {
		d := direction.Dot(corners[i].Sub(eye))
		if d < near {
			near = d
		}
		if d > far {
			far = d
		}
	}

	for i := 4; i < 6; i++ {
		if !frustum.Planes[i].AcceptsAABB(box) {
			return false, 0, 0
		}
	}

	return true, near, far
}

// ClampGBufferNearFar bounds a scene-derived near/far pair to values the
// perspective projection and depth buffer can represent without excessive
// precision loss: far is floored at 0.02, and near is floored at 0.01 while
// never exceeding far-0.01 or far/200 (a practical depth-precision ratio for
// a 32-bit float depth buffer).
func ClampGBufferNearFar(near, far float32) (float32, float32) {
	far = maxf(0.02, far)
	near = maxf(0.01, minf(near, minf(far-0.01, far/200)))
	return near, far
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
