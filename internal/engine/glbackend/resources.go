package glbackend

import (
	"errors"
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/midgard-scene/internal/engine/geometry"
)

// gpuMesh holds the buffers behind a mesh handle, which is the VAO name.
type gpuMesh struct {
	vao, vbo, ebo uint32
	indexCount    int32
}

// UploadMesh uploads g and returns the handle and index count to store in
// a node.Mesh.
func (b *Backend) UploadMesh(g *geometry.Geometry) (uint32, int32, error) {
	if err := g.Validate(); err != nil {
		return 0, 0, err
	}
	if len(g.Vertices) == 0 || len(g.Indices) == 0 {
		return 0, 0, errors.New("upload mesh: empty geometry")
	}

	var m gpuMesh
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(g.Vertices)*geometry.VertexSize, gl.Ptr(g.Vertices), gl.STATIC_DRAW)

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(g.Indices)*4, gl.Ptr(g.Indices), gl.STATIC_DRAW)

	// Position(12) + Normal(12) + UV(8) + Joints(16) + Weights(16) = 64 bytes
	stride := int32(geometry.VertexSize)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 12)
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, 24)
	gl.EnableVertexAttribArray(3)
	gl.VertexAttribPointerWithOffset(3, 4, gl.FLOAT, false, stride, 32)
	gl.EnableVertexAttribArray(4)
	gl.VertexAttribPointerWithOffset(4, 4, gl.FLOAT, false, stride, 48)

	gl.BindVertexArray(0)

	m.indexCount = int32(len(g.Indices))
	b.meshes[m.vao] = &m
	return m.vao, m.indexCount, nil
}

// UploadTexture uploads img with mipmaps and returns the texture name.
func (b *Backend) UploadTexture(img *image.RGBA) (uint32, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return 0, errors.New("upload texture: empty image")
	}

	var texID uint32
	gl.GenTextures(1, &texID)
	gl.BindTexture(gl.TEXTURE_2D, texID)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(img.Stride/4))
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(bounds.Dx()), int32(bounds.Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	b.textures = append(b.textures, texID)
	return texID, nil
}

func (b *Backend) destroyResources() {
	for _, m := range b.meshes {
		gl.DeleteVertexArrays(1, &m.vao)
		gl.DeleteBuffers(1, &m.vbo)
		gl.DeleteBuffers(1, &m.ebo)
	}
	b.meshes = make(map[uint32]*gpuMesh)
	if len(b.textures) > 0 {
		gl.DeleteTextures(int32(len(b.textures)), &b.textures[0])
		b.textures = nil
	}
}
