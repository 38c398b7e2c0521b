package scene

import (
	"github.com/mirelforge/photon/core"
	"github.com/mirelforge/photon/math"
)

// ComputeTangents generates per-vertex tangent and bitangent vectors in place
// for a flat vertex/index buffer. Tangents are required for tangent-space
// normal mapping. Vertices must already carry UV coordinates; triangles with
// a degenerate UV area are skipped.
//
// Call this on primitives the mesh loader decoded without a glTF-supplied
// TANGENT attribute, before the buffer is uploaded to the GPU.
func ComputeTangents(vertices []core.Vertex, indices []uint32) {
	for i := range vertices {
		vertices[i].Tangent = math.Vec3{}
		vertices[i].Bitangent = math.Vec3{}
	}

	// accum adds the tangent/bitangent contribution of one triangle to its vertices.
	accum := func(i0, i1, i2 uint32) {
		v0 := vertices[i0]
		v1 := vertices[i1]
		v2 := vertices[i2]

		e1 := v1.Position.Sub(v0.Position)
		e2 := v2.Position.Sub(v0.Position)

		du1 := v1.UV.X - v0.UV.X
		dv1 := v1.UV.Y - v0.UV.Y
		du2 := v2.UV.X - v0.UV.X
		dv2 := v2.UV.Y - v0.UV.Y

		denom := du1*dv2 - du2*dv1
		if denom == 0 {
			return // degenerate UV triangle
		}
		r := 1.0 / denom

		t := e1.Mul(dv2 * r).Sub(e2.Mul(dv1 * r))
		b := e2.Mul(du1 * r).Sub(e1.Mul(du2 * r))

		vertices[i0].Tangent = vertices[i0].Tangent.Add(t)
		vertices[i1].Tangent = vertices[i1].Tangent.Add(t)
		vertices[i2].Tangent = vertices[i2].Tangent.Add(t)

		vertices[i0].Bitangent = vertices[i0].Bitangent.Add(b)
		vertices[i1].Bitangent = vertices[i1].Bitangent.Add(b)
		vertices[i2].Bitangent = vertices[i2].Bitangent.Add(b)
	}

	if len(indices) > 0 {
		for i := 0; i+2 < len(indices); i += 3 {
			accum(indices[i], indices[i+1], indices[i+2])
		}
	} else {
		for i := 0; i+2 < len(vertices); i += 3 {
			accum(uint32(i), uint32(i+1), uint32(i+2))
		}
	}

	// Gram-Schmidt orthogonalize and normalize each vertex tangent frame.
	for i := range vertices {
		n := vertices[i].Normal
		t := vertices[i].Tangent
		b := vertices[i].Bitangent

		// T = normalize(T - N*(N·T))
		t = t.Sub(n.Mul(n.Dot(t)))
		if t.LengthSqr() < 1e-8 {
			// Degenerate: choose an arbitrary tangent perpendicular to N.
			if tangentAbs(n.X) < 0.9 {
				t = math.Vec3{X: 1}.Sub(n.Mul(n.X))
			} else {
				t = math.Vec3{Y: 1}.Sub(n.Mul(n.Y))
			}
		}
		vertices[i].Tangent = t.Normalize()

		if b.LengthSqr() < 1e-8 {
			b = n.Cross(vertices[i].Tangent)
		}
		vertices[i].Bitangent = b.Normalize()
	}
}

func tangentAbs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
