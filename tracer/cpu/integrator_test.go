package cpu

import (
	"testing"

	"github.com/Algorhythm-sxv/culet/asset/scene"
	"github.com/Algorhythm-sxv/culet/tracer"
	"github.com/Algorhythm-sxv/culet/types"
	"github.com/chewxy/math32"
)

func TestFresnel(t *testing.T) {
	type spec struct {
		incoming types.Vec3
		normal   types.Vec3
		etaI     float32
		etaT     float32
		expMin   float32
		expMax   float32
	}

	specs := []spec{
		// Normal incidence air to glass: ((1.5-1)/(1.5+1))^2 = 0.04.
		{types.XYZ(0, 0, -1), types.XYZ(0, 0, 1), 1, 1.5, 0.039, 0.041},
		// Normal incidence glass to air gives the same ratio.
		{types.XYZ(0, 0, -1), types.XYZ(0, 0, 1), 1.5, 1, 0.039, 0.041},
		// 45 degrees inside glass exceeds the critical angle: exactly 1.
		{types.XYZ(1, 0, -1), types.XYZ(0, 0, 1), 1.5, 1, 1, 1},
		// 30 degrees inside glass still transmits.
		{types.XYZ(0.5, 0, -0.8660254), types.XYZ(0, 0, 1), 1.5, 1, 0, 0.999},
		// Grazing external incidence approaches full reflection.
		{types.XYZ(0.999, 0, -0.0447), types.XYZ(0, 0, 1), 1, 1.5, 0.5, 1},
	}

	for specIndex, spec := range specs {
		got := fresnel(spec.incoming.Normalize(), spec.normal, spec.etaI, spec.etaT)
		if got < spec.expMin || got > spec.expMax {
			t.Fatalf("[spec %d] expected reflectance in [%f, %f]; got %f", specIndex, spec.expMin, spec.expMax, got)
		}
	}
}

func TestReflectRefract(t *testing.T) {
	normal := types.XYZ(0, 0, 1)

	got := reflect(types.XYZ(0, 0, -1), normal)
	if !vec3Approx(got, types.XYZ(0, 0, 1)) {
		t.Fatalf("expected head-on reflection (0, 0, 1); got %v", got)
	}

	got = reflect(types.XYZ(1, 0, -1).Normalize(), normal)
	if !vec3Approx(got, types.XYZ(1, 0, 1).Normalize()) {
		t.Fatalf("expected 45 degree reflection; got %v", got)
	}

	// Normal incidence passes straight through regardless of the ratio.
	got = refract(types.XYZ(0, 0, -1), normal, 1/1.5)
	if !vec3Approx(got, types.XYZ(0, 0, -1)) {
		t.Fatalf("expected refraction to continue straight; got %v", got)
	}

	// 45 degrees air to glass bends toward the normal: sin(t) = sin(45)/1.5.
	got = refract(types.XYZ(1, 0, -1).Normalize(), normal, 1/1.5)
	sinT := math32.Sqrt(0.5) / 1.5
	exp := types.XYZ(sinT, 0, -math32.Sqrt(1-sinT*sinT))
	if !vec3Approx(got, exp) {
		t.Fatalf("expected refracted direction %v; got %v", exp, got)
	}

	// Beyond the critical angle the clamp degrades to a unit tangent
	// instead of producing NaNs.
	got = refract(types.XYZ(1, 0, -1).Normalize(), normal, 1.5)
	if got != got {
		t.Fatalf("expected a well defined direction under TIR; got %v", got)
	}
	if math32.Abs(got.Len()-1) > 1e-4 {
		t.Fatalf("expected a unit direction under TIR; got %v with length %f", got, got.Len())
	}
}

func TestLightingModels(t *testing.T) {
	type spec struct {
		model    tracer.LightingModel
		dir      types.Vec3
		expColor float32
	}

	cos5 := math32.Cos(5 * math32.Pi / 180)
	sin5 := math32.Sin(5 * math32.Pi / 180)
	cos15 := math32.Cos(15 * math32.Pi / 180)
	sin15 := math32.Sin(15 * math32.Pi / 180)

	specs := []spec{
		// Straight back at the camera.
		{tracer.CosineLight, types.XYZ(0, 0, 1), 2},
		// Inside the 10 degree cone: intensity falls off with the cosine.
		{tracer.CosineLight, types.XYZ(sin5, 0, cos5), 2 * cos5},
		// Outside the cone.
		{tracer.CosineLight, types.XYZ(sin15, 0, cos15), 0},
		// Away from the camera.
		{tracer.CosineLight, types.XYZ(0, 0, -1), 0},
		// The isometric model lights every ray leaving toward the
		// camera half-space at constant intensity.
		{tracer.IsometricLight, types.XYZ(0, 0, 1), 2},
		{tracer.IsometricLight, types.XYZ(sin15, 0, cos15), 2},
		{tracer.IsometricLight, types.XYZ(1, 0, 0), 2},
		{tracer.IsometricLight, types.XYZ(0, 0, -1), 0},
	}

	camera := scene.NewCamera()
	for specIndex, spec := range specs {
		k := &kernel{
			camera: camera,
			params: tracer.RenderParams{Model: spec.model, LightIntensity: 2},
		}

		got := k.lightColor(spec.dir)
		exp := splat(spec.expColor)
		if !vec3Approx(got, exp) {
			t.Fatalf("[spec %d] expected light color %v; got %v", specIndex, exp, got)
		}
	}
}

func TestTraceMissReturnsBackground(t *testing.T) {
	k := &kernel{
		sceneData: &scene.Scene{Material: scene.DefaultMaterial()},
		camera:    scene.NewCamera(),
		params:    tracer.DefaultRenderParams(),
	}

	r := NewRay(types.XYZ(0, 0, 5), types.XYZ(0, 0, -1))
	if got := k.trace(r); got != (types.Vec3{}) {
		t.Fatalf("expected black for a primary miss; got %v", got)
	}

	k.params.Background = types.XYZ(0.1, 0.2, 0.3)
	if got := k.trace(r); got != k.params.Background {
		t.Fatalf("expected background %v for a primary miss; got %v", k.params.Background, got)
	}
}

func TestTraceSingleSurface(t *testing.T) {
	k := testKernel(
		[]types.Vec3{
			types.XYZ(-5, -5, 0),
			types.XYZ(5, -5, 0),
			types.XYZ(0, 5, 0),
		},
		[]uint32{0, 1, 2},
	)
	k.camera.Position = types.XYZ(0, 0, 5)
	k.camera.LookAt(types.XYZ(0, 0, 0))
	k.params.MaxBounces = 1
	k.params.LightIntensity = 1

	// Head-on the Fresnel ratio is 0.04 and the mirror reflection points
	// straight back at the light, so the pixel carries F0 alone: there is
	// no geometry behind the facet for the refracted ray to hit.
	r := NewRay(types.XYZ(0, 0, 5), types.XYZ(0, 0, -1))
	got := k.trace(r)
	if math32.Abs(got[0]-0.04) > 1e-3 || math32.Abs(got[1]-0.04) > 1e-3 || math32.Abs(got[2]-0.04) > 1e-3 {
		t.Fatalf("expected single surface color (0.04, 0.04, 0.04); got %v", got)
	}

	// A deeper bounce budget changes nothing: the interior ray escapes
	// without hitting another facet.
	k.params.MaxBounces = 8
	if got8 := k.trace(r); got8 != got {
		t.Fatalf("expected identical color for a deeper bounce budget; got %v vs %v", got8, got)
	}

	// A zero budget swallows the hit.
	k.params.MaxBounces = 0
	if got0 := k.trace(r); got0 != (types.Vec3{}) {
		t.Fatalf("expected black for a zero bounce budget; got %v", got0)
	}
}

func TestTraceSlabComposition(t *testing.T) {
	// Two parallel unit quads bound a glass slab between z=0 and z=-1.
	// A head-on ray enters the front face, bounces between the faces and
	// leaks light back toward the camera on every even bounce.
	slabKernel := func() *kernel {
		k := testKernel(
			[]types.Vec3{
				{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0},
				{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
			},
			[]uint32{
				0, 1, 2, 0, 2, 3,
				4, 6, 5, 4, 7, 6,
			},
		)
		k.camera.Position = types.XYZ(0, 0, 5)
		k.camera.LookAt(types.XYZ(0, 0, 0))
		k.params.MaxBounces = 4
		k.params.LightIntensity = 1
		k.sceneData.Material.Attenuation = types.XYZ(0, 0, 0)
		return k
	}

	// With R = 0.04 at every interface the first escaping contribution
	// comes from the second internal bounce:
	//   bounce 2: color = 1 * (1-R)            = 0.96
	//   bounce 1: color = color * R            = 0.0384
	//   surface:  F0 + color * (1-F0)          = 0.076864
	k := slabKernel()
	r := NewRay(types.XYZ(0.2, 0.2, 1), types.XYZ(0, 0, -1))
	got := k.trace(r)
	exp := float32(0.076864)
	if math32.Abs(got[0]-exp) > 1e-3 || math32.Abs(got[1]-exp) > 1e-3 || math32.Abs(got[2]-exp) > 1e-3 {
		t.Fatalf("expected slab color near %f per channel; got %v", exp, got)
	}

	// An attenuation of ln(2) per unit halves the light leak as it is
	// folded back over the unit-length entry segment:
	//   0.04 + 0.0384 * 0.5 * 0.96 = 0.058432
	k = slabKernel()
	ln2 := math32.Log(2)
	k.sceneData.Material.Attenuation = types.XYZ(ln2, ln2, ln2)
	got = k.trace(r)
	exp = 0.058432
	if math32.Abs(got[0]-exp) > 1e-3 || math32.Abs(got[1]-exp) > 1e-3 || math32.Abs(got[2]-exp) > 1e-3 {
		t.Fatalf("expected attenuated slab color near %f per channel; got %v", exp, got)
	}

	// Identical inputs produce bit-identical output.
	if rerun := k.trace(r); rerun != got {
		t.Fatalf("expected trace to be deterministic; got %v vs %v", rerun, got)
	}
}
