package input

import (
	"github.com/Algorhythm-sxv/culet/asset/scene"
	"github.com/Algorhythm-sxv/culet/types"
	"github.com/chewxy/math32"
)

// A triangle surface described by a shared vertex list and index triplets.
// This is the parsed form of a gem asset before compilation flattens it
// into the buffers the tracer consumes.
type Mesh struct {
	Name     string
	Vertices []types.Vec3
	Indices  []uint32

	bbox            [2]types.Vec3
	bboxNeedsUpdate bool
}

// Create a new empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:            name,
		bboxNeedsUpdate: true,
	}
}

// Append a vertex and return its index.
func (m *Mesh) AddVertex(v types.Vec3) uint32 {
	m.Vertices = append(m.Vertices, v)
	m.bboxNeedsUpdate = true
	return uint32(len(m.Vertices) - 1)
}

// Append a triangle as a triplet of vertex indices.
func (m *Mesh) AddTriangle(i0, i1, i2 uint32) {
	m.Indices = append(m.Indices, i0, i1, i2)
}

// Number of triangles in the mesh.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Fetch the vertices for the triangle at triIndex.
func (m *Mesh) TriangleVertices(triIndex int) (v0, v1, v2 types.Vec3) {
	base := triIndex * 3
	return m.Vertices[m.Indices[base]], m.Vertices[m.Indices[base+1]], m.Vertices[m.Indices[base+2]]
}

// Mark the bbox of this mesh as dirty.
func (m *Mesh) MarkBBoxDirty() {
	m.bboxNeedsUpdate = true
}

// Get mesh bounding box.
func (m *Mesh) BBox() [2]types.Vec3 {
	if m.bboxNeedsUpdate {
		m.bbox = [2]types.Vec3{
			{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32},
			{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32},
		}

		for _, v := range m.Vertices {
			m.bbox[0] = types.MinVec3(m.bbox[0], v)
			m.bbox[1] = types.MaxVec3(m.bbox[1], v)
		}

		m.bboxNeedsUpdate = false
	}

	return m.bbox
}

// The scene contains the parsed gem geometry together with any camera and
// material settings picked up from the source asset. It is the input to the
// scene compiler.
type Scene struct {
	Mesh     *Mesh
	Camera   *scene.Camera
	Material scene.Material
}

// Create a new scene with default camera and material settings.
func NewScene() *Scene {
	return &Scene{
		Mesh:     NewMesh(""),
		Camera:   scene.NewCamera(),
		Material: scene.DefaultMaterial(),
	}
}
