package render

/*
#include <vulkan/vulkan.h>
*/
import "C"
import (
	"fmt"
	"unsafe"

	"github.com/mirelforge/photon/core"
	"github.com/mirelforge/photon/scene"
	"github.com/mirelforge/photon/vulkan"
)

// GeometryBuffers is every device-local vertex/index buffer a loaded scene
// needs. scene.Primitive.VertexBufferIndex/IndexBufferIndex index into the
// parallel slices here, following the glTF convention of many small
// buffer-views rather than one combined megabuffer.
type GeometryBuffers struct {
	VertexBuffers []*vulkan.Buffer
	IndexBuffers  []*vulkan.Buffer
}

// UploadMeshData creates a device-local vertex buffer (and, if indices is
// non-empty, an index buffer) from CPU mesh data, staging through a
// temporary host-visible buffer the way vulkan.UploadTextureData does for
// images.
func (g *GeometryBuffers) UploadMeshData(device *vulkan.Device, vertices []core.Vertex, indices []uint32) (vertexBufferIndex, indexBufferIndex int, err error) {
	vertexBuffer, err := uploadStaged(device, unsafe.Pointer(&vertices[0]), uint64(len(vertices))*uint64(unsafe.Sizeof(core.Vertex{})),
		C.VK_BUFFER_USAGE_VERTEX_BUFFER_BIT)
	if err != nil {
		return 0, -1, fmt.Errorf("upload vertex buffer: %w", err)
	}
	g.VertexBuffers = append(g.VertexBuffers, vertexBuffer)
	vertexBufferIndex = len(g.VertexBuffers) - 1

	indexBufferIndex = -1
	if len(indices) > 0 {
		indexBuffer, err := uploadStaged(device, unsafe.Pointer(&indices[0]), uint64(len(indices))*4,
			C.VK_BUFFER_USAGE_INDEX_BUFFER_BIT)
		if err != nil {
			return vertexBufferIndex, -1, fmt.Errorf("upload index buffer: %w", err)
		}
		g.IndexBuffers = append(g.IndexBuffers, indexBuffer)
		indexBufferIndex = len(g.IndexBuffers) - 1
	}

	return vertexBufferIndex, indexBufferIndex, nil
}

func uploadStaged(device *vulkan.Device, data unsafe.Pointer, size uint64, usage C.VkBufferUsageFlags) (*vulkan.Buffer, error) {
	staging, err := vulkan.CreateBuffer(device, size, C.VK_BUFFER_USAGE_TRANSFER_SRC_BIT,
		C.VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT|C.VK_MEMORY_PROPERTY_HOST_COHERENT_BIT)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(device)
	if err := staging.Map(device); err != nil {
		return nil, err
	}
	staging.CopyData(data, size)
	staging.Unmap(device)

	dst, err := vulkan.CreateBuffer(device, size, usage|C.VK_BUFFER_USAGE_TRANSFER_DST_BIT, C.VK_MEMORY_PROPERTY_DEVICE_LOCAL_BIT)
	if err != nil {
		return nil, err
	}
	if err := vulkan.CopyBuffer(device, staging.Handle, dst.Handle, size, device.CommandPool, device.GraphicsQueue); err != nil {
		dst.Destroy(device)
		return nil, err
	}
	return dst, nil
}

func (g *GeometryBuffers) Destroy(device *vulkan.Device) {
	for _, b := range g.VertexBuffers {
		b.Destroy(device)
	}
	for _, b := range g.IndexBuffers {
		b.Destroy(device)
	}
}

// vertexFullDescription is the binding/attribute layout for core.Vertex,
// matching GBufferVertexGLSL's input locations 0-5.
func vertexFullDescription() vulkan.VertexInputDescription {
	stride := uint32(unsafe.Sizeof(core.Vertex{}))
	var v core.Vertex
	base := unsafe.Pointer(&v)
	offset := func(field unsafe.Pointer) uint32 { return uint32(uintptr(field) - uintptr(base)) }

	return vulkan.VertexInputDescription{
		BindingDescriptions: []C.VkVertexInputBindingDescription{
			vulkan.GetVertexLayoutBinding(0, stride),
		},
		AttributeDescriptions: []C.VkVertexInputAttributeDescription{
			vulkan.GetVertexAttributeLocation(0, 0, C.VK_FORMAT_R32G32B32_SFLOAT, offset(unsafe.Pointer(&v.Position))),
			vulkan.GetVertexAttributeLocation(1, 0, C.VK_FORMAT_R32G32B32_SFLOAT, offset(unsafe.Pointer(&v.Normal))),
			vulkan.GetVertexAttributeLocation(2, 0, C.VK_FORMAT_R32G32_SFLOAT, offset(unsafe.Pointer(&v.UV))),
			vulkan.GetVertexAttributeLocation(3, 0, C.VK_FORMAT_R32G32B32A32_SFLOAT, offset(unsafe.Pointer(&v.Color))),
			vulkan.GetVertexAttributeLocation(4, 0, C.VK_FORMAT_R32G32B32_SFLOAT, offset(unsafe.Pointer(&v.Tangent))),
			vulkan.GetVertexAttributeLocation(5, 0, C.VK_FORMAT_R32G32B32_SFLOAT, offset(unsafe.Pointer(&v.Bitangent))),
		},
	}
}

// vertexPositionOnlyDescription reuses the full vertex's stride and binding
// but only declares the Position attribute, since the shadow pass's vertex
// shader only reads the position input (location 0).
func vertexPositionOnlyDescription() vulkan.VertexInputDescription {
	full := vertexFullDescription()
	return vulkan.VertexInputDescription{
		BindingDescriptions:   full.BindingDescriptions,
		AttributeDescriptions: full.AttributeDescriptions[:1],
	}
}

// recordDrawcall binds dc's vertex/index buffers (looked up in g) and issues
// the draw call, indexed or not.
func recordDrawcall(cb *vulkan.CommandBuffer, g *GeometryBuffers, dc scene.Drawcall) {
	prim := dc.Primitive
	vb := g.VertexBuffers[prim.VertexBufferIndex]
	cb.BindVertexBuffer(vb.Handle, 0)

	if prim.IndexBufferIndex >= 0 {
		ib := g.IndexBuffers[prim.IndexBufferIndex]
		cb.BindIndexBuffer(ib.Handle, 0, C.VK_INDEX_TYPE_UINT32)
		cb.DrawIndexed(prim.IndexCount, 1, prim.IndexOffset, prim.VertexOffset, 0)
	} else {
		cb.Draw(prim.VertexCount, 1, prim.VertexOffset, 0)
	}
}
