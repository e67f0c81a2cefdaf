package bvh

import (
	"time"

	"github.com/Algorhythm-sxv/culet/asset/scene"
	"github.com/Algorhythm-sxv/culet/log"
	"github.com/Algorhythm-sxv/culet/types"
	"github.com/chewxy/math32"
)

// The traversal kernel walks the tree with a fixed 32-entry stack. The
// builder never exceeds this depth; partitions that reach the cap become
// leaves regardless of their size.
const maxTreeDepth = 30

// The BoundedVolume interface is implemented by anything that can be
// partitioned by the bvh builder.
type BoundedVolume interface {
	BBox() [2]types.Vec3
	Center() types.Vec3
}

type stats struct {
	totalItems   int
	leafs        int
	maxDepth     int
	maxLeafItems int
}

type builder struct {
	logger log.Logger

	// Bvh nodes stored as a contiguous list. Child nodes of the same
	// parent always occupy adjacent slots with the left child first.
	nodes []scene.BvhNode

	// The volumes being partitioned and the permutation that maps their
	// current slots back to the original workList indices.
	workList  []BoundedVolume
	itemOrder []uint32

	// The maximum number of items a node may contain before the builder
	// attempts to split it.
	minLeafItems int

	stats stats
}

// Construct a BVH from a set of bounded volumes. The workList must contain
// at least one item.
//
// Nodes are partitioned by splitting at the spatial midpoint of their
// longest axis; splits that would leave one side empty keep the node as a
// leaf. The builder returns the node list (node 0 is the root, children of
// the same parent are adjacent) together with a permutation of workList
// indices. Leaf nodes address contiguous ranges of that permutation.
func Build(workList []BoundedVolume, minLeafItems int) ([]scene.BvhNode, []uint32) {
	if minLeafItems < 1 {
		minLeafItems = 1
	}

	b := &builder{
		logger:       log.New("bvh"),
		nodes:        make([]scene.BvhNode, 1, 2*len(workList)+1),
		workList:     append([]BoundedVolume(nil), workList...),
		itemOrder:    make([]uint32, len(workList)),
		minLeafItems: minLeafItems,
		stats: stats{
			totalItems: len(workList),
		},
	}
	for index := range b.itemOrder {
		b.itemOrder[index] = uint32(index)
	}

	start := time.Now()
	b.subdivide(0, 0, uint32(len(b.workList)), 0)
	b.logger.Debugf(
		"BVH tree build time: %d ms, items: %d, nodes: %d, leafs: %d, max depth: %d, max leaf items: %d",
		time.Since(start).Nanoseconds()/1e6,
		b.stats.totalItems, len(b.nodes), b.stats.leafs, b.stats.maxDepth, b.stats.maxLeafItems,
	)

	return b.nodes, b.itemOrder
}

// Partition the workList range [first, first+count) into the node at
// nodeIndex, splitting recursively until a leaf threshold is reached.
func (b *builder) subdivide(nodeIndex uint32, first, count uint32, depth int) {
	if depth > b.stats.maxDepth {
		b.stats.maxDepth = depth
	}

	// Grow the node bounds over the contained items
	min := types.XYZ(math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32)
	max := types.XYZ(-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32)
	for index := first; index < first+count; index++ {
		itemBBox := b.workList[index].BBox()
		min = types.MinVec3(min, itemBBox[0])
		max = types.MaxVec3(max, itemBBox[1])
	}
	b.nodes[nodeIndex].SetBBox([2]types.Vec3{min, max})

	if int(count) <= b.minLeafItems || depth >= maxTreeDepth {
		b.makeLeaf(nodeIndex, first, count)
		return
	}

	// Split at the spatial midpoint of the longest node axis
	side := max.Sub(min)
	axis := 0
	if side[1] > side[axis] {
		axis = 1
	}
	if side[2] > side[axis] {
		axis = 2
	}
	splitPoint := (min[axis] + max[axis]) * 0.5

	// In-place partition; items whose center lies left of the split point
	// move to the front of the range
	left := int(first)
	right := int(first+count) - 1
	for left <= right {
		if b.workList[left].Center()[axis] < splitPoint {
			left++
		} else {
			b.workList[left], b.workList[right] = b.workList[right], b.workList[left]
			b.itemOrder[left], b.itemOrder[right] = b.itemOrder[right], b.itemOrder[left]
			right--
		}
	}

	leftCount := uint32(left) - first
	if leftCount == 0 || leftCount == count {
		// Degenerate split; keep the node as a leaf
		b.makeLeaf(nodeIndex, first, count)
		return
	}

	// Reserve adjacent slots for both children before recursing so that
	// the right child always sits at left+1
	leftIndex := uint32(len(b.nodes))
	b.nodes = append(b.nodes, scene.BvhNode{}, scene.BvhNode{})
	b.nodes[nodeIndex].SetChildNodes(leftIndex)

	b.subdivide(leftIndex, first, leftCount, depth+1)
	b.subdivide(leftIndex+1, first+leftCount, count-leftCount, depth+1)
}

// Setup the node at nodeIndex as a leaf covering the workList range
// [first, first+count).
func (b *builder) makeLeaf(nodeIndex uint32, first, count uint32) {
	b.nodes[nodeIndex].SetTriangles(first, count)

	b.stats.leafs++
	if int(count) > b.stats.maxLeafItems {
		b.stats.maxLeafItems = int(count)
	}
}
