package scene

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/Algorhythm-sxv/culet/types"
	"github.com/olekukonko/tablewriter"
)

// Bvh nodes pack an axis-aligned bounding box together with two multipurpose
// uint32 parameters whose meaning depends on the node type:
//
//   - TriCount == 0: interior node; LeftOrFirst points to the left child and
//     the right child is always stored at LeftOrFirst+1.
//   - TriCount > 0: leaf node; LeftOrFirst is an offset into the scene's
//     triangle index list and TriCount the number of triangles in the leaf.
//
// Node 0 is always the tree root. The 32-byte layout matches the buffer
// layout the traversal kernel expects, so node lists can be uploaded as-is.
type BvhNode struct {
	Min         types.Vec3
	LeftOrFirst uint32

	Max      types.Vec3
	TriCount uint32
}

// Set bounding box.
func (n *BvhNode) SetBBox(bbox [2]types.Vec3) {
	n.Min = bbox[0]
	n.Max = bbox[1]
}

// Convert the node into an interior node pointing to its left child. The
// right child is implied at left+1.
func (n *BvhNode) SetChildNodes(left uint32) {
	n.LeftOrFirst = left
	n.TriCount = 0
}

// Convert the node into a leaf covering count entries of the scene triangle
// index list starting at firstTriIndex.
func (n *BvhNode) SetTriangles(firstTriIndex, count uint32) {
	n.LeftOrFirst = firstTriIndex
	n.TriCount = count
}

// Returns true if this node is a leaf.
func (n *BvhNode) IsLeaf() bool {
	return n.TriCount > 0
}

// Get left and right child node indices. Only valid for interior nodes.
func (n *BvhNode) ChildNodes() (left, right uint32) {
	return n.LeftOrFirst, n.LeftOrFirst + 1
}

// Get triangle index offset and count. Only valid for leaf nodes.
func (n *BvhNode) Triangles() (firstTriIndex, count uint32) {
	return n.LeftOrFirst, n.TriCount
}

// Material describes the optical properties of the gem surface. The tracer
// treats the whole mesh as a single dielectric.
type Material struct {
	// Per-channel Beer-Lambert absorption applied to ray segments that
	// travel inside the gem.
	Attenuation types.Vec3

	// Relative refractive index of the gem over the surrounding medium.
	RefractiveIndex float32
}

// Default gem material: magenta-absorbing glass.
func DefaultMaterial() Material {
	return Material{
		Attenuation:     types.XYZ(1, 0, 1),
		RefractiveIndex: 1.5,
	}
}

// A compiled gem scene. All geometry is flattened into GPU-style buffers:
// vertices and per-triangle normals use a 16-byte stride, triangles are
// defined by consecutive index triplets and the BVH references triangles
// through a separate index permutation list.
type Scene struct {
	VertexList   []types.Vec4
	NormalList   []types.Vec4
	IndexList    []uint32
	TriIndexList []uint32
	BvhNodeList  []BvhNode

	Material Material

	// The scene camera.
	Camera *Camera
}

// Number of triangles in the scene.
func (sc *Scene) TriangleCount() int {
	return len(sc.IndexList) / 3
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset", "Items", "Size"})
	table.Append([]string{"Vertices", fmt.Sprintf("%d", len(sc.VertexList)), fmtSize(sc.VertexList)})
	table.Append([]string{"Indices", fmt.Sprintf("%d", len(sc.IndexList)), fmtSize(sc.IndexList)})
	table.Append([]string{"Normals", fmt.Sprintf("%d", len(sc.NormalList)), fmtSize(sc.NormalList)})
	table.Append([]string{"Triangles", fmt.Sprintf("%d", sc.TriangleCount()), " "})
	table.Append([]string{"BVH nodes", fmt.Sprintf("%d", len(sc.BvhNodeList)), fmtSize(sc.BvhNodeList)})
	table.Append([]string{"BVH tri indices", fmt.Sprintf("%d", len(sc.TriIndexList)), fmtSize(sc.TriIndexList)})
	table.SetFooter([]string{"Total", " ", strings.TrimLeft(fmtSize(sc.VertexList, sc.IndexList, sc.NormalList, sc.BvhNodeList, sc.TriIndexList), " ")})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
