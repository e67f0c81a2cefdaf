package compiler

import (
	"fmt"
	"time"

	"github.com/Algorhythm-sxv/culet/asset/compiler/bvh"
	"github.com/Algorhythm-sxv/culet/asset/compiler/input"
	"github.com/Algorhythm-sxv/culet/asset/scene"
	"github.com/Algorhythm-sxv/culet/log"
	"github.com/Algorhythm-sxv/culet/types"
)

// Maximum number of triangles per BVH leaf.
const minTrianglesPerLeaf = 2

type sceneCompiler struct {
	parsedScene   *input.Scene
	compiledScene *scene.Scene
	logger        log.Logger
}

// Compile a scene representation parsed by a scene reader into the flat
// buffer format consumed by the tracer kernels.
func Compile(parsedScene *input.Scene) (*scene.Scene, error) {
	compiler := &sceneCompiler{
		parsedScene:   parsedScene,
		compiledScene: &scene.Scene{},
		logger:        log.New("scene compiler"),
	}

	start := time.Now()
	compiler.logger.Noticef("compiling scene")

	var err error
	err = compiler.validateGeometry()
	if err != nil {
		return nil, err
	}

	err = compiler.flattenGeometry()
	if err != nil {
		return nil, err
	}

	err = compiler.partitionGeometry()
	if err != nil {
		return nil, err
	}

	err = compiler.setupView()
	if err != nil {
		return nil, err
	}

	compiler.logger.Noticef("compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return compiler.compiledScene, nil
}

// Ensure the parsed mesh and material can be rendered before any buffers
// are generated.
func (sc *sceneCompiler) validateGeometry() error {
	mesh := sc.parsedScene.Mesh
	if mesh == nil || len(mesh.Indices) == 0 {
		return fmt.Errorf("compiler: scene contains no geometry")
	}
	if len(mesh.Indices)%3 != 0 {
		return fmt.Errorf("compiler: mesh index count %d is not a multiple of 3", len(mesh.Indices))
	}
	for _, index := range mesh.Indices {
		if int(index) >= len(mesh.Vertices) {
			return fmt.Errorf("compiler: mesh index %d out of range (%d vertices)", index, len(mesh.Vertices))
		}
	}

	mat := sc.parsedScene.Material
	if mat.RefractiveIndex < 1 {
		return fmt.Errorf("compiler: gem refractive index %.3f must be >= 1", mat.RefractiveIndex)
	}
	for _, channel := range mat.Attenuation {
		if channel < 0 {
			return fmt.Errorf("compiler: gem attenuation %v must be non-negative", mat.Attenuation)
		}
	}

	return nil
}

// Copy the indexed mesh geometry into the 16-byte stride buffers the
// tracers upload and precompute the per-triangle face normals.
func (sc *sceneCompiler) flattenGeometry() error {
	start := time.Now()
	mesh := sc.parsedScene.Mesh
	triCount := mesh.TriangleCount()
	sc.logger.Noticef("flattening geometry (%d vertices, %d triangles)", len(mesh.Vertices), triCount)

	sc.compiledScene.VertexList = make([]types.Vec4, len(mesh.Vertices))
	for index, vertex := range mesh.Vertices {
		sc.compiledScene.VertexList[index] = vertex.Vec4(0)
	}

	sc.compiledScene.IndexList = append([]uint32(nil), mesh.Indices...)

	degenerate := 0
	sc.compiledScene.NormalList = make([]types.Vec4, triCount)
	for triIndex := 0; triIndex < triCount; triIndex++ {
		v0, v1, v2 := mesh.TriangleVertices(triIndex)
		normal := v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()
		if normal == (types.Vec3{}) {
			degenerate++
		}
		sc.compiledScene.NormalList[triIndex] = normal.Vec4(0)
	}
	if degenerate > 0 {
		sc.logger.Warningf("mesh contains %d degenerate triangles with zero-area normals", degenerate)
	}

	sc.logger.Infof("flattened geometry in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Build the BVH over the mesh triangles. Leaf nodes reference triangles
// through the index permutation emitted by the builder.
func (sc *sceneCompiler) partitionGeometry() error {
	start := time.Now()
	mesh := sc.parsedScene.Mesh
	triCount := mesh.TriangleCount()
	sc.logger.Noticef("partitioning geometry (%d triangles)", triCount)

	volumes := make([]bvh.BoundedVolume, triCount)
	for triIndex := 0; triIndex < triCount; triIndex++ {
		v0, v1, v2 := mesh.TriangleVertices(triIndex)
		volumes[triIndex] = triangleVolume{
			bbox: [2]types.Vec3{
				types.MinVec3(types.MinVec3(v0, v1), v2),
				types.MaxVec3(types.MaxVec3(v0, v1), v2),
			},
			center: v0.Add(v1).Add(v2).Mul(1.0 / 3.0),
		}
	}

	sc.compiledScene.BvhNodeList, sc.compiledScene.TriIndexList = bvh.Build(volumes, minTrianglesPerLeaf)

	sc.logger.Infof("partitioned geometry in %d ms (%d nodes)", time.Since(start).Nanoseconds()/1e6, len(sc.compiledScene.BvhNodeList))
	return nil
}

// Attach the camera and gem material picked up by the scene reader.
func (sc *sceneCompiler) setupView() error {
	sc.compiledScene.Camera = sc.parsedScene.Camera
	if sc.compiledScene.Camera == nil {
		sc.compiledScene.Camera = scene.NewCamera()
	}
	sc.compiledScene.Material = sc.parsedScene.Material

	return nil
}

type triangleVolume struct {
	bbox   [2]types.Vec3
	center types.Vec3
}

func (tv triangleVolume) BBox() [2]types.Vec3 {
	return tv.bbox
}

func (tv triangleVolume) Center() types.Vec3 {
	return tv.center
}
