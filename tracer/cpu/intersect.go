package cpu

import (
	"github.com/Algorhythm-sxv/culet/types"
)

const (
	// Rays with |det| below this are treated as parallel to the triangle
	// plane. A numerical stability threshold, not a physical constant.
	parallelEpsilon = 1e-7

	// Minimum accepted hit distance. Excludes self-intersections when a
	// ray is respawned on a surface it just hit.
	minHitDistance = 1e-5

	// Sentinel distance reported for rays that hit nothing.
	missDistance = 1e30

	// Capacity of the BVH traversal stack. Sized well above the depth of
	// any tree the builder emits for gem-sized meshes.
	traversalStackSize = 32
)

// A ray with its precomputed reciprocal direction for slab tests.
type Ray struct {
	Origin types.Vec3
	Dir    types.Vec3
	InvDir types.Vec3
}

// Create a ray. The direction does not need to be normalized.
func NewRay(origin, dir types.Vec3) Ray {
	dir = dir.Normalize()
	return Ray{
		Origin: origin,
		Dir:    dir,
		InvDir: dir.Reciprocal(),
	}
}

// Surface data for the closest intersection along a ray.
type HitInfo struct {
	Position types.Vec3
	Normal   types.Vec3
	Distance float32

	// True when the ray hits the side the normal points toward.
	FrontFace bool
}

// Möller-Trumbore ray/triangle test. Returns the hit distance and true when
// the ray crosses the closed triangle beyond minDist.
func intersectTriangle(r Ray, v0, v1, v2 types.Vec3, minDist float32) (float32, bool) {
	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)

	pvec := r.Dir.Cross(edge2)
	det := edge1.Dot(pvec)
	if det > -parallelEpsilon && det < parallelEpsilon {
		return 0, false
	}
	invDet := 1 / det

	tvec := r.Origin.Sub(v0)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}

	qvec := tvec.Cross(edge1)
	v := r.Dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := edge2.Dot(qvec) * invDet
	if t <= minDist {
		return 0, false
	}
	return t, true
}

// Slab ray/AABB test. Returns the distance to the box entry point or the
// miss sentinel when the ray misses the box, exits before reaching it or
// enters it beyond farLimit. Zero direction components produce infinite
// slab distances which the explicit comparisons below order correctly;
// 0*inf NaNs compare false everywhere and drop out of the running min/max.
func intersectAABB(r Ray, bboxMin, bboxMax types.Vec3, farLimit float32) float32 {
	var tmin, tmax float32 = -missDistance, missDistance
	for axis := 0; axis < 3; axis++ {
		t1 := (bboxMin[axis] - r.Origin[axis]) * r.InvDir[axis]
		t2 := (bboxMax[axis] - r.Origin[axis]) * r.InvDir[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}

	if tmax >= tmin && tmin < farLimit && tmax > 0 {
		return tmin
	}
	return missDistance
}

// Fetch the vertices for the triangle at triIndex.
func (k *kernel) triangleVertices(triIndex uint32) (v0, v1, v2 types.Vec3) {
	base := triIndex * 3
	return k.sceneData.VertexList[k.sceneData.IndexList[base]].Vec3(),
		k.sceneData.VertexList[k.sceneData.IndexList[base+1]].Vec3(),
		k.sceneData.VertexList[k.sceneData.IndexList[base+2]].Vec3()
}

// Find the closest triangle hit along r. Returns the hit distance and the
// index of the hit triangle; a distance >= missDistance indicates a miss.
func (k *kernel) intersectScene(r Ray) (float32, uint32) {
	if len(k.sceneData.BvhNodeList) != 0 {
		return k.intersectBVH(r)
	}
	return k.intersectLinear(r)
}

// Iterative BVH traversal with an explicit node stack. Children are visited
// near-first and pruned against the best hit found so far.
func (k *kernel) intersectBVH(r Ray) (float32, uint32) {
	var (
		stack     [traversalStackSize]uint32
		stackTop  int
		nodeIndex uint32
	)

	nodes := k.sceneData.BvhNodeList
	bestDist := float32(missDistance)
	bestTri := uint32(0)

	for {
		node := &nodes[nodeIndex]
		if node.IsLeaf() {
			first, count := node.Triangles()
			for offset := first; offset < first+count; offset++ {
				triIndex := k.sceneData.TriIndexList[offset]
				v0, v1, v2 := k.triangleVertices(triIndex)
				if t, hit := intersectTriangle(r, v0, v1, v2, minHitDistance); hit && t < bestDist {
					bestDist = t
					bestTri = triIndex
				}
			}

			if stackTop == 0 {
				break
			}
			stackTop--
			nodeIndex = stack[stackTop]
			continue
		}

		left, right := node.ChildNodes()
		leftDist := intersectAABB(r, nodes[left].Min, nodes[left].Max, bestDist)
		rightDist := intersectAABB(r, nodes[right].Min, nodes[right].Max, bestDist)
		if leftDist > rightDist {
			left, right = right, left
			leftDist, rightDist = rightDist, leftDist
		}

		if leftDist >= missDistance {
			if stackTop == 0 {
				break
			}
			stackTop--
			nodeIndex = stack[stackTop]
			continue
		}

		nodeIndex = left
		if rightDist < missDistance {
			stack[stackTop] = right
			stackTop++
		}
	}

	return bestDist, bestTri
}

// Test every scene triangle and keep the closest hit. Used when the scene
// carries no BVH; functionally equivalent to the BVH traversal.
func (k *kernel) intersectLinear(r Ray) (float32, uint32) {
	bestDist := float32(missDistance)
	bestTri := uint32(0)

	triCount := uint32(k.sceneData.TriangleCount())
	for triIndex := uint32(0); triIndex < triCount; triIndex++ {
		v0, v1, v2 := k.triangleVertices(triIndex)
		if t, hit := intersectTriangle(r, v0, v1, v2, minHitDistance); hit && t < bestDist {
			bestDist = t
			bestTri = triIndex
		}
	}

	return bestDist, bestTri
}

// Expand a closest-hit result into the surface data the integrator needs.
func (k *kernel) hitInfo(r Ray, dist float32, triIndex uint32) HitInfo {
	normal := k.sceneData.NormalList[triIndex].Vec3()
	return HitInfo{
		Position:  r.Origin.Add(r.Dir.Mul(dist)),
		Normal:    normal,
		Distance:  dist,
		FrontFace: r.Dir.Dot(normal) < 0,
	}
}
