package scene

import (
	"testing"

	"github.com/Algorhythm-sxv/culet/types"
	"github.com/chewxy/math32"
)

func TestViewportSymmetricRays(t *testing.T) {
	camera := NewCamera()
	camera.FOV = 90
	camera.AspectRatio = 1
	camera.FocalLength = 1

	vp := camera.Viewport(2, 2)

	// With a 90 degree horizontal fov the image plane half-width equals
	// the focal length, so the four pixel centers of a 2x2 frame sit at
	// (+/-0.5, +/-0.5, -1).
	expDirs := [4]types.Vec3{
		types.XYZ(-0.5, 0.5, -1).Normalize(),
		types.XYZ(0.5, 0.5, -1).Normalize(),
		types.XYZ(-0.5, -0.5, -1).Normalize(),
		types.XYZ(0.5, -0.5, -1).Normalize(),
	}

	var got [4]types.Vec3
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			pos := vp.At(float32(x)+0.5, float32(y)+0.5)
			got[y*2+x] = pos.Sub(vp.Origin).Normalize()
		}
	}

	for index, expDir := range expDirs {
		if !vecNear(got[index], expDir, 1e-6) {
			t.Fatalf("expected pixel %d ray dir to be %v; got %v", index, expDir, got[index])
		}
	}

	// Mirror symmetry across both axes.
	if got[0][0] != -got[1][0] || got[0][1] != got[1][1] {
		t.Fatalf("expected rays 0,1 to mirror across X; got %v and %v", got[0], got[1])
	}
	if got[0][1] != -got[2][1] || got[0][0] != got[2][0] {
		t.Fatalf("expected rays 0,2 to mirror across Y; got %v and %v", got[0], got[2])
	}
}

func TestCameraBasis(t *testing.T) {
	camera := NewCamera()
	camera.Up = types.XYZ(0.3, 1, 0)

	left, up := camera.Basis()

	if delta := math32.Abs(left.Len() - 1); delta > 1e-6 {
		t.Fatalf("expected left basis vector to be unit length; got %f", left.Len())
	}
	if delta := math32.Abs(up.Len() - 1); delta > 1e-6 {
		t.Fatalf("expected up basis vector to be unit length; got %f", up.Len())
	}
	if dot := math32.Abs(left.Dot(camera.LookDir)); dot > 1e-6 {
		t.Fatalf("expected left to be orthogonal to the view dir; got dot %f", dot)
	}
	if dot := math32.Abs(up.Dot(camera.LookDir)); dot > 1e-6 {
		t.Fatalf("expected up to be orthogonal to the view dir; got dot %f", dot)
	}
	if dot := math32.Abs(up.Dot(left)); dot > 1e-6 {
		t.Fatalf("expected up to be orthogonal to left; got dot %f", dot)
	}
	if dot := up.Dot(camera.Up); dot < 0 {
		t.Fatalf("expected up to agree with the up hint; got dot %f", dot)
	}
}

func TestCameraOrbit(t *testing.T) {
	camera := NewCamera()
	camera.Position = types.XYZ(0, 0, 10)
	camera.LookAt(types.XYZ(0, 0, 0))

	camera.Orbit(math32.Pi/2, 0)

	if !vecNear(camera.Position, types.XYZ(10, 0, 0), 1e-4) {
		t.Fatalf("expected orbited position to be (10,0,0); got %v", camera.Position)
	}
	if !vecNear(camera.LookDir, types.XYZ(-1, 0, 0), 1e-4) {
		t.Fatalf("expected orbited view dir to be (-1,0,0); got %v", camera.LookDir)
	}
	if delta := math32.Abs(camera.Position.Sub(camera.Target).Len() - 10); delta > 1e-4 {
		t.Fatalf("expected orbit to preserve the distance to the target; drifted by %f", delta)
	}
}

func TestCameraLookAt(t *testing.T) {
	camera := NewCamera()
	camera.Position = types.XYZ(0.2, 0, 10)
	camera.LookAt(types.XYZ(0, 0, -1.5))

	expDir := types.XYZ(-0.2, 0, -11.5).Normalize()
	if !vecNear(camera.LookDir, expDir, 1e-6) {
		t.Fatalf("expected view dir %v; got %v", expDir, camera.LookDir)
	}
	if camera.Target != types.XYZ(0, 0, -1.5) {
		t.Fatalf("expected orbit target to track the look-at point; got %v", camera.Target)
	}
}

func vecNear(a, b types.Vec3, eps float32) bool {
	return math32.Abs(a[0]-b[0]) <= eps && math32.Abs(a[1]-b[1]) <= eps && math32.Abs(a[2]-b[2]) <= eps
}
