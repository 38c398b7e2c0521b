package scene

import "github.com/mirelforge/photon/math"

// Mesh is an ordered list of primitives sharing a node's world transform.
// Vertex/index data itself is not resident here: the mesh loader uploads it
// once to GPU vertex buffers and each Primitive only carries a reference
// into that upload (buffer index + offset + count).
type Mesh struct {
	Name       string
	Primitives []*Primitive
}

// Update is a no-op hook kept for symmetry with Node.Update; mesh geometry
// is immutable post-upload, only joint transforms animate.
func (m *Mesh) Update(deltaTime float32) {}

// Primitive is one drawable piece of a mesh: a vertex range in some vertex
// buffer, an optional material, and the local-space bounds used for culling.
type Primitive struct {
	VertexBufferIndex int // which of the model's uploaded vertex buffers
	VertexOffset      uint32
	VertexCount       uint32

	IndexBufferIndex int // -1 if the primitive is unindexed
	IndexOffset      uint32
	IndexCount       uint32

	Material *Material // nil primitives are skipped by the drawcall generator

	LocalAABB AABB

	// Skinned is true when every vertex in VertexOffset..VertexOffset+VertexCount
	// carries Joints/Weights relative to the owning node's Skin.
	Skinned bool
}

// Skin binds a set of joint nodes and their inverse-bind matrices to the
// skinned primitives of whatever node references it.
type Skin struct {
	Name                string
	Joints              []*Node // joint[i] corresponds to InverseBindMatrices[i]
	InverseBindMatrices []math.Mat4
}

// SkinnedAABB returns the world-space AABB of a skinned primitive's local
// bounds, unioning the box transformed by every joint's current
// (jointWorld * inverseBind) skinning matrix. This is a coarse but safe
// bound: it does not weight per-vertex joint influence, so it is never
// tighter than the true posed bounds and never smaller.
func (s *Skin) SkinnedAABB(local AABB) AABB {
	if len(s.Joints) == 0 {
		return local
	}
	var out AABB
	for i, joint := range s.Joints {
		skinMatrix := joint.GetWorldMatrix().Mul(s.InverseBindMatrices[i])
		posed := TransformAABB(local, skinMatrix)
		if i == 0 {
			out = posed
		} else {
			out = out.Union(posed)
		}
	}
	return out
}
