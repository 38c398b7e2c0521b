// Package gltf adapts qmuntal/gltf documents into the engine's scene graph:
// nodes, meshes, PBR metallic-roughness materials, skins, and animations,
// uploading geometry and textures through the caller's GeometryBuffers and
// TextureManager as it goes.
package gltf

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"path/filepath"

	gltfdoc "github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mirelforge/photon/core"
	"github.com/mirelforge/photon/math"
	"github.com/mirelforge/photon/render"
	"github.com/mirelforge/photon/scene"
	"github.com/mirelforge/photon/textures"
	"github.com/mirelforge/photon/vulkan"
)

// Result is the scene content decoded from one glTF document.
type Result struct {
	Roots      []*scene.Node
	Animations []*scene.Animation
}

// Load opens a .gltf or .glb file at path, uploads its geometry to geometry
// and its images through texMgr, and returns the resulting scene graph.
func Load(device *vulkan.Device, geometry *render.GeometryBuffers, texMgr *textures.TextureManager, path string) (*Result, error) {
	doc, err := gltfdoc.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	l := &loader{
		device:   device,
		geometry: geometry,
		textures: texMgr,
		doc:      doc,
		dir:      filepath.Dir(path),
	}
	return l.build()
}

type loader struct {
	device   *vulkan.Device
	geometry *render.GeometryBuffers
	textures *textures.TextureManager
	doc      *gltfdoc.Document
	dir      string

	textureCache  []*textures.Texture
	materialCache []*scene.Material
	meshCache     []*scene.Mesh
	nodeCache     []*scene.Node
	skinCache     []*scene.Skin
}

func (l *loader) build() (*Result, error) {
	if err := l.loadTextures(); err != nil {
		return nil, err
	}
	if err := l.loadMaterials(); err != nil {
		return nil, err
	}
	if err := l.loadMeshes(); err != nil {
		return nil, err
	}
	l.skinCache = make([]*scene.Skin, len(l.doc.Skins))
	if err := l.loadNodes(); err != nil {
		return nil, err
	}
	animations, err := l.loadAnimations()
	if err != nil {
		return nil, err
	}

	result := &Result{Animations: animations}
	if l.doc.Scene != nil && int(*l.doc.Scene) < len(l.doc.Scenes) {
		for _, rootIdx := range l.doc.Scenes[*l.doc.Scene].Nodes {
			if int(rootIdx) < len(l.nodeCache) {
				result.Roots = append(result.Roots, l.nodeCache[rootIdx])
			}
		}
		return result, nil
	}

	// No default scene: every node that isn't somebody's child is a root.
	hasParent := make([]bool, len(l.nodeCache))
	for _, gn := range l.doc.Nodes {
		for _, c := range gn.Children {
			if int(c) < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	for i, n := range l.nodeCache {
		if n != nil && !hasParent[i] {
			result.Roots = append(result.Roots, n)
		}
	}
	return result, nil
}

// --- textures -------------------------------------------------------------

func (l *loader) loadTextures() error {
	l.textureCache = make([]*textures.Texture, len(l.doc.Textures))
	for i, gt := range l.doc.Textures {
		if gt.Source == nil {
			continue
		}
		img := l.doc.Images[*gt.Source]

		var tex *textures.Texture
		var err error
		switch {
		case img.BufferView != nil:
			var raw []byte
			raw, err = modeler.ReadBufferView(l.doc, l.doc.BufferViews[*img.BufferView])
			if err == nil {
				name := img.Name
				if name == "" {
					name = fmt.Sprintf("embedded_%d", *gt.Source)
				}
				tex, err = l.decodeAndRegister(name, raw)
			}
		case img.URI != "" && img.IsEmbeddedResource():
			var raw []byte
			raw, err = img.MarshalData()
			if err == nil {
				name := img.Name
				if name == "" {
					name = fmt.Sprintf("dataurl_%d", *gt.Source)
				}
				tex, err = l.decodeAndRegister(name, raw)
			}
		case img.URI != "":
			tex, err = l.textures.LoadTexture(filepath.Join(l.dir, img.URI))
		}
		if err != nil {
			return fmt.Errorf("gltf texture %d: %w", i, err)
		}
		l.textureCache[i] = tex
	}
	return nil
}

func (l *loader) decodeAndRegister(key string, raw []byte) (*textures.Texture, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	tex, err := textures.CreateTextureFromPixels(l.device, key, uint32(bounds.Dx()), uint32(bounds.Dy()), rgba.Pix)
	if err != nil {
		return nil, err
	}
	return l.textures.RegisterTexture(key, tex), nil
}

func (l *loader) textureAt(index uint32) *textures.Texture {
	if int(index) < len(l.textureCache) {
		return l.textureCache[index]
	}
	return nil
}

func (l *loader) texturePtrAt(index *uint32) *textures.Texture {
	if index == nil {
		return nil
	}
	return l.textureAt(*index)
}

// --- materials --------------------------------------------------------------

func (l *loader) loadMaterials() error {
	l.materialCache = make([]*scene.Material, len(l.doc.Materials))
	for i, gm := range l.doc.Materials {
		mat := scene.DefaultMaterial()
		mat.Name = gm.Name
		mat.Index = i

		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			cf := pbr.BaseColorFactorOrDefault()
			mat.BaseColorFactor = core.Color{R: cf[0], G: cf[1], B: cf[2], A: cf[3]}
			mat.MetallicFactor = pbr.MetallicFactorOrDefault()
			mat.RoughnessFactor = pbr.RoughnessFactorOrDefault()
			if pbr.BaseColorTexture != nil {
				mat.AlbedoTexture = l.textureAt(pbr.BaseColorTexture.Index)
			}
			if pbr.MetallicRoughnessTexture != nil {
				mat.MetallicRoughnessTexture = l.textureAt(pbr.MetallicRoughnessTexture.Index)
			}
		}

		ef := gm.EmissiveFactor
		mat.EmissiveFactor = core.Color{R: ef[0], G: ef[1], B: ef[2], A: 1}
		mat.EmissiveStrength = 1.0
		if ext, ok := gm.Extensions["KHR_materials_emissive_strength"]; ok {
			if fields, ok := ext.(map[string]interface{}); ok {
				if v, ok := fields["emissiveStrength"].(float64); ok {
					mat.EmissiveStrength = float32(v)
				}
			}
		}
		if gm.EmissiveTexture != nil {
			mat.EmissiveTexture = l.textureAt(gm.EmissiveTexture.Index)
		}

		mat.NormalScale = 1.0
		if gm.NormalTexture != nil {
			mat.NormalScale = gm.NormalTexture.ScaleOrDefault()
			mat.NormalTexture = l.texturePtrAt(gm.NormalTexture.Index)
		}
		if gm.OcclusionTexture != nil {
			mat.OcclusionTexture = l.texturePtrAt(gm.OcclusionTexture.Index)
		}

		mat.AlphaCutoff = gm.AlphaCutoffOrDefault()
		switch gm.AlphaMode {
		case gltfdoc.AlphaMask:
			mat.AlphaMode = scene.AlphaMask
		case gltfdoc.AlphaBlend:
			mat.AlphaMode = scene.AlphaBlend
		default:
			mat.AlphaMode = scene.AlphaOpaque
		}
		mat.DoubleSided = gm.DoubleSided

		l.materialCache[i] = mat
	}
	return nil
}

// --- meshes -----------------------------------------------------------------

func (l *loader) loadMeshes() error {
	l.meshCache = make([]*scene.Mesh, len(l.doc.Meshes))
	for mi, gm := range l.doc.Meshes {
		mesh := &scene.Mesh{Name: gm.Name}
		for pi, prim := range gm.Primitives {
			sp, err := l.loadPrimitive(prim)
			if err != nil {
				return fmt.Errorf("gltf mesh %d primitive %d: %w", mi, pi, err)
			}
			mesh.Primitives = append(mesh.Primitives, sp)
		}
		l.meshCache[mi] = mesh
	}
	return nil
}

func (l *loader) loadPrimitive(prim *gltfdoc.Primitive) (*scene.Primitive, error) {
	posIdx, ok := prim.Attributes[gltfdoc.POSITION]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(l.doc, l.doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	var uvs [][2]float32
	var tangents [][4]float32
	var colors [][4]float32
	var joints [][4]uint16
	var weights [][4]float32
	hasSkin := false

	if idx, ok := prim.Attributes[gltfdoc.NORMAL]; ok {
		normals, _ = modeler.ReadNormal(l.doc, l.doc.Accessors[idx], nil)
	}
	if idx, ok := prim.Attributes[gltfdoc.TEXCOORD_0]; ok {
		uvs, _ = modeler.ReadTextureCoord(l.doc, l.doc.Accessors[idx], nil)
	}
	if idx, ok := prim.Attributes[gltfdoc.TANGENT]; ok {
		tangents, _ = modeler.ReadTangent(l.doc, l.doc.Accessors[idx], nil)
	}
	if idx, ok := prim.Attributes[gltfdoc.COLOR_0]; ok {
		colors, _ = modeler.ReadColor(l.doc, l.doc.Accessors[idx], nil)
	}
	if idx, ok := prim.Attributes[gltfdoc.JOINTS_0]; ok {
		joints, _ = modeler.ReadJoints(l.doc, l.doc.Accessors[idx], nil)
		hasSkin = true
	}
	if idx, ok := prim.Attributes[gltfdoc.WEIGHTS_0]; ok {
		weights, _ = modeler.ReadWeights(l.doc, l.doc.Accessors[idx], nil)
	}

	verts := make([]core.Vertex, len(positions))
	for i, p := range positions {
		v := core.Vertex{
			Position: math.Vec3{X: p[0], Y: p[1], Z: p[2]},
			Normal:   math.Vec3{X: 0, Y: 1, Z: 0},
			Color:    core.ColorWhite,
		}
		if i < len(normals) {
			n := normals[i]
			v.Normal = math.Vec3{X: n[0], Y: n[1], Z: n[2]}
		}
		if i < len(uvs) {
			v.UV = math.Vec2{X: uvs[i][0], Y: uvs[i][1]}
		}
		if i < len(tangents) {
			t := tangents[i]
			v.Tangent = math.Vec3{X: t[0], Y: t[1], Z: t[2]}
			v.Bitangent = v.Normal.Cross(v.Tangent).Mul(t[3])
		}
		if i < len(colors) {
			c := colors[i]
			v.Color = core.Color{R: c[0], G: c[1], B: c[2], A: c[3]}
		}
		if i < len(joints) {
			v.Joints = joints[i]
		}
		if i < len(weights) {
			w := weights[i]
			v.Weights = math.Vec4{X: w[0], Y: w[1], Z: w[2], W: w[3]}
		}
		verts[i] = v
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(l.doc, l.doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	}

	if len(tangents) == 0 && len(uvs) > 0 {
		scene.ComputeTangents(verts, indices)
	}

	local := localBounds(positions)

	vbIdx, ibIdx, err := l.geometry.UploadMeshData(l.device, verts, indices)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	sp := &scene.Primitive{
		VertexBufferIndex: vbIdx,
		VertexCount:       uint32(len(verts)),
		IndexBufferIndex:  ibIdx,
		IndexCount:        uint32(len(indices)),
		LocalAABB:         local,
		Skinned:           hasSkin,
	}
	if prim.Material != nil && int(*prim.Material) < len(l.materialCache) {
		sp.Material = l.materialCache[*prim.Material]
	} else {
		sp.Material = scene.DefaultMaterial()
	}
	return sp, nil
}

func localBounds(positions [][3]float32) scene.AABB {
	if len(positions) == 0 {
		return scene.AABB{}
	}
	min := math.Vec3{X: positions[0][0], Y: positions[0][1], Z: positions[0][2]}
	max := min
	for _, p := range positions[1:] {
		if p[0] < min.X {
			min.X = p[0]
		}
		if p[1] < min.Y {
			min.Y = p[1]
		}
		if p[2] < min.Z {
			min.Z = p[2]
		}
		if p[0] > max.X {
			max.X = p[0]
		}
		if p[1] > max.Y {
			max.Y = p[1]
		}
		if p[2] > max.Z {
			max.Z = p[2]
		}
	}
	return scene.AABB{Min: min, Max: max}
}

// --- nodes and skins ---------------------------------------------------------

func (l *loader) loadNodes() error {
	l.nodeCache = make([]*scene.Node, len(l.doc.Nodes))
	for i, gn := range l.doc.Nodes {
		name := gn.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		n := scene.NewNode(name)

		t := gn.TranslationOrDefault()
		n.SetPosition(math.Vec3{X: t[0], Y: t[1], Z: t[2]})
		sc := gn.ScaleOrDefault()
		n.SetScale(math.Vec3{X: sc[0], Y: sc[1], Z: sc[2]})
		r := gn.RotationOrDefault()
		n.SetRotation(math.Quaternion{X: r[0], Y: r[1], Z: r[2], W: r[3]})

		if gn.Mesh != nil && int(*gn.Mesh) < len(l.meshCache) {
			n.Mesh = l.meshCache[*gn.Mesh]
		}
		l.nodeCache[i] = n
	}

	for i, gn := range l.doc.Nodes {
		for _, childIdx := range gn.Children {
			if int(childIdx) < len(l.nodeCache) {
				l.nodeCache[i].AddChild(l.nodeCache[childIdx])
			}
		}
	}

	// Skins reference joint nodes, so they can only be resolved once the
	// whole node tree above exists.
	for i, gn := range l.doc.Nodes {
		if gn.Skin == nil {
			continue
		}
		skin, err := l.loadSkin(*gn.Skin)
		if err != nil {
			return fmt.Errorf("gltf node %d skin: %w", i, err)
		}
		l.nodeCache[i].Skin = skin
	}

	return nil
}

func (l *loader) loadSkin(index uint32) (*scene.Skin, error) {
	if int(index) < len(l.skinCache) && l.skinCache[index] != nil {
		return l.skinCache[index], nil
	}
	gs := l.doc.Skins[index]

	joints := make([]*scene.Node, len(gs.Joints))
	for i, jointIdx := range gs.Joints {
		joints[i] = l.nodeCache[jointIdx]
	}

	var inverseBind []math.Mat4
	if gs.InverseBindMatrices != nil {
		raw, err := modeler.ReadAccessor(l.doc, l.doc.Accessors[*gs.InverseBindMatrices], nil)
		if err != nil {
			return nil, fmt.Errorf("inverse bind matrices: %w", err)
		}
		mats, ok := raw.([][4][4]float32)
		if !ok {
			return nil, fmt.Errorf("unexpected inverse bind matrix accessor type %T", raw)
		}
		inverseBind = make([]math.Mat4, len(mats))
		for i, m := range mats {
			inverseBind[i] = math.Mat4(m)
		}
	} else {
		inverseBind = make([]math.Mat4, len(gs.Joints))
		for i := range inverseBind {
			inverseBind[i] = math.Mat4Identity()
		}
	}

	skin := &scene.Skin{Name: gs.Name, Joints: joints, InverseBindMatrices: inverseBind}
	l.skinCache[index] = skin
	return skin, nil
}

// --- animations ---------------------------------------------------------------

func (l *loader) loadAnimations() ([]*scene.Animation, error) {
	out := make([]*scene.Animation, 0, len(l.doc.Animations))
	for ai, ga := range l.doc.Animations {
		anim := &scene.Animation{Name: ga.Name}
		if anim.Name == "" {
			anim.Name = fmt.Sprintf("animation_%d", ai)
		}

		for ci, gc := range ga.Channels {
			if gc.Target.Node == nil {
				continue // targets no node (e.g. a morph-weight-only channel)
			}
			node := l.nodeCache[*gc.Target.Node]
			sampler := ga.Samplers[gc.Sampler]
			isCubic := sampler.Interpolation == gltfdoc.InterpolationCubicSpline

			times, err := l.readFloatAccessor(sampler.Input)
			if err != nil {
				return nil, fmt.Errorf("animation %d channel %d input: %w", ai, ci, err)
			}

			ch := &scene.Channel{TargetNode: node, Times: times}
			switch gc.Target.Path {
			case gltfdoc.TRSTranslation, gltfdoc.TRSScale:
				vecs, err := l.readVec3Accessor(sampler.Output)
				if err != nil {
					return nil, fmt.Errorf("animation %d channel %d output: %w", ai, ci, err)
				}
				if isCubic {
					vecs = stripCubicTangentsVec3(vecs, len(times))
				}
				ch.ValuesVec3 = toVec3Slice(vecs)
				if gc.Target.Path == gltfdoc.TRSTranslation {
					ch.Path = scene.PathTranslation
				} else {
					ch.Path = scene.PathScale
				}
			case gltfdoc.TRSRotation:
				quats, err := l.readVec4Accessor(sampler.Output)
				if err != nil {
					return nil, fmt.Errorf("animation %d channel %d output: %w", ai, ci, err)
				}
				if isCubic {
					quats = stripCubicTangentsVec4(quats, len(times))
				}
				ch.ValuesQuat = toQuatSlice(quats)
				ch.Path = scene.PathRotation
			default:
				continue // morph target weights are not supported
			}

			switch sampler.Interpolation {
			case gltfdoc.InterpolationStep:
				ch.Interp = scene.InterpStep
			case gltfdoc.InterpolationCubicSpline:
				ch.Interp = scene.InterpCubicSpline
			default:
				ch.Interp = scene.InterpLinear
			}

			if len(times) > 0 && times[len(times)-1] > anim.Duration {
				anim.Duration = times[len(times)-1]
			}
			anim.Channels = append(anim.Channels, ch)
		}
		out = append(out, anim)
	}
	return out, nil
}

func (l *loader) readFloatAccessor(index uint32) ([]float32, error) {
	raw, err := modeler.ReadAccessor(l.doc, l.doc.Accessors[index], nil)
	if err != nil {
		return nil, err
	}
	vals, ok := raw.([]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected accessor type %T", raw)
	}
	return vals, nil
}

func (l *loader) readVec3Accessor(index uint32) ([][3]float32, error) {
	raw, err := modeler.ReadAccessor(l.doc, l.doc.Accessors[index], nil)
	if err != nil {
		return nil, err
	}
	vals, ok := raw.([][3]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected accessor type %T", raw)
	}
	return vals, nil
}

func (l *loader) readVec4Accessor(index uint32) ([][4]float32, error) {
	raw, err := modeler.ReadAccessor(l.doc, l.doc.Accessors[index], nil)
	if err != nil {
		return nil, err
	}
	vals, ok := raw.([][4]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected accessor type %T", raw)
	}
	return vals, nil
}

func stripCubicTangentsVec3(vs [][3]float32, keyframeCount int) [][3]float32 {
	out := make([][3]float32, keyframeCount)
	for k := 0; k < keyframeCount; k++ {
		out[k] = vs[3*k+1]
	}
	return out
}

func stripCubicTangentsVec4(vs [][4]float32, keyframeCount int) [][4]float32 {
	out := make([][4]float32, keyframeCount)
	for k := 0; k < keyframeCount; k++ {
		out[k] = vs[3*k+1]
	}
	return out
}

func toVec3Slice(vs [][3]float32) []math.Vec3 {
	out := make([]math.Vec3, len(vs))
	for i, v := range vs {
		out[i] = math.Vec3{X: v[0], Y: v[1], Z: v[2]}
	}
	return out
}

func toQuatSlice(vs [][4]float32) []math.Quaternion {
	out := make([]math.Quaternion, len(vs))
	for i, v := range vs {
		out[i] = math.Quaternion{X: v[0], Y: v[1], Z: v[2], W: v[3]}
	}
	return out
}
