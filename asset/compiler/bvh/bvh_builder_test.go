package bvh

import (
	"testing"

	"github.com/Algorhythm-sxv/culet/asset/scene"
	"github.com/Algorhythm-sxv/culet/types"
)

type testVolume struct {
	bbox   [2]types.Vec3
	center types.Vec3
}

func (v testVolume) BBox() [2]types.Vec3 {
	return v.bbox
}

func (v testVolume) Center() types.Vec3 {
	return v.center
}

func makeVolume(min, max types.Vec3) testVolume {
	return testVolume{
		bbox:   [2]types.Vec3{min, max},
		center: min.Add(max).Mul(0.5),
	}
}

func quadrantVolumes() []BoundedVolume {
	return []BoundedVolume{
		makeVolume(types.XYZ(-2, 0, -2), types.XYZ(-1, 1, -1)),
		makeVolume(types.XYZ(1, 0, -2), types.XYZ(2, 1, -1)),
		makeVolume(types.XYZ(-2, 0, 1), types.XYZ(-1, 1, 2)),
		makeVolume(types.XYZ(1, 0, 1), types.XYZ(2, 1, 2)),
	}
}

func TestBuildSingleLeaf(t *testing.T) {
	nodes, itemOrder := Build(quadrantVolumes(), 4)

	if len(nodes) != 1 {
		t.Fatalf("expected bvh tree to have 1 node; got %d", len(nodes))
	}
	if !nodes[0].IsLeaf() {
		t.Fatal("expected root to be a leaf")
	}
	first, count := nodes[0].Triangles()
	if first != 0 || count != 4 {
		t.Fatalf("expected root leaf to cover items [0, 4); got [%d, %d)", first, first+count)
	}
	if nodes[0].Min != types.XYZ(-2, 0, -2) || nodes[0].Max != types.XYZ(2, 1, 2) {
		t.Fatalf("expected root bbox to cover all items; got %v - %v", nodes[0].Min, nodes[0].Max)
	}
	if len(itemOrder) != 4 {
		t.Fatalf("expected an item order entry per input item; got %d", len(itemOrder))
	}
}

func TestBuildPartitioning(t *testing.T) {
	items := quadrantVolumes()
	nodes, itemOrder := Build(items, 1)

	if expCount := 7; len(nodes) != expCount {
		t.Fatalf("expected bvh tree to have %d nodes; got %d", expCount, len(nodes))
	}
	if nodes[0].IsLeaf() {
		t.Fatal("expected root to be an interior node")
	}

	// Walk the tree validating the invariants: adjacent children, parent
	// bounds enclosing child bounds and each item referenced exactly once.
	seen := make(map[uint32]int)
	leafs := 0
	var walk func(nodeIndex uint32)
	walk = func(nodeIndex uint32) {
		node := nodes[nodeIndex]
		if node.IsLeaf() {
			leafs++
			first, count := node.Triangles()
			for slot := first; slot < first+count; slot++ {
				seen[itemOrder[slot]]++
			}
			return
		}

		left, right := node.ChildNodes()
		if right != left+1 {
			t.Fatalf("expected child nodes to be adjacent; got %d and %d", left, right)
		}
		for _, childIndex := range []uint32{left, right} {
			child := nodes[childIndex]
			if types.MinVec3(node.Min, child.Min) != node.Min || types.MaxVec3(node.Max, child.Max) != node.Max {
				t.Fatalf("expected node %d bbox to enclose child %d", nodeIndex, childIndex)
			}
			walk(childIndex)
		}
	}
	walk(0)

	if expCount := 4; leafs != expCount {
		t.Fatalf("expected %d leafs; got %d", expCount, leafs)
	}
	for itemIndex := range items {
		if seen[uint32(itemIndex)] != 1 {
			t.Fatalf("expected item %d to be referenced by exactly one leaf; got %d references", itemIndex, seen[uint32(itemIndex)])
		}
	}
}

func TestBuildDegenerateSplit(t *testing.T) {
	// All items share a center so the midpoint split cannot separate them.
	items := []BoundedVolume{
		makeVolume(types.XYZ(-1, -1, -1), types.XYZ(1, 1, 1)),
		makeVolume(types.XYZ(-1, -1, -1), types.XYZ(1, 1, 1)),
		makeVolume(types.XYZ(-1, -1, -1), types.XYZ(1, 1, 1)),
	}
	nodes, _ := Build(items, 1)

	if len(nodes) != 1 {
		t.Fatalf("expected the degenerate split to keep a single leaf; got %d nodes", len(nodes))
	}
	if _, count := nodes[0].Triangles(); count != 3 {
		t.Fatalf("expected the leaf to keep all 3 items; got %d", count)
	}
}

func TestBuildInputOrderPreserved(t *testing.T) {
	items := quadrantVolumes()
	itemsCopy := append([]BoundedVolume(nil), items...)

	Build(items, 1)

	for index := range items {
		if items[index] != itemsCopy[index] {
			t.Fatalf("expected Build not to reorder the caller work list; item %d moved", index)
		}
	}
}

var benchNodes []scene.BvhNode

func BenchmarkBuild(b *testing.B) {
	items := make([]BoundedVolume, 0, 1024)
	for x := 0; x < 32; x++ {
		for z := 0; z < 32; z++ {
			min := types.XYZ(float32(x), 0, float32(z))
			items = append(items, makeVolume(min, min.Add(types.XYZ(0.9, 0.9, 0.9))))
		}
	}

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		benchNodes, _ = Build(items, 2)
	}
}
