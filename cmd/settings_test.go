package cmd

import (
	"testing"

	"github.com/Algorhythm-sxv/culet/asset/scene"
	"github.com/Algorhythm-sxv/culet/tracer"
	"github.com/Algorhythm-sxv/culet/types"
	"gopkg.in/yaml.v3"
)

func TestParseColor(t *testing.T) {
	type spec struct {
		in       string
		expColor [3]float32
		expError bool
	}

	specs := []spec{
		{"0,0,0", [3]float32{0, 0, 0}, false},
		{"0.25, 0.5, 1", [3]float32{0.25, 0.5, 1}, false},
		{"1,2", [3]float32{}, true},
		{"1,2,3,4", [3]float32{}, true},
		{"1,red,3", [3]float32{}, true},
	}

	for idx, s := range specs {
		got, err := parseColor(s.in)
		if s.expError {
			if err == nil {
				t.Fatalf("[spec %d] expected a parse error for %q", idx, s.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("[spec %d] %v", idx, err)
		}
		if got != s.expColor {
			t.Fatalf("[spec %d] expected color %v; got %v", idx, s.expColor, got)
		}
	}
}

func TestRendererOptions(t *testing.T) {
	settings := renderSettings{
		Width:           640,
		Height:          480,
		SamplesPerPixel: 32,
		Bounces:         6,
		LightModel:      "isometric",
		LightIntensity:  1.5,
		Gamma:           2.2,
		Workers:         4,
		Seed:            7,
		Background:      [3]float32{0.1, 0.2, 0.3},
	}

	opts, err := settings.rendererOptions()
	if err != nil {
		t.Fatal(err)
	}

	if opts.FrameW != 640 || opts.FrameH != 480 {
		t.Fatalf("expected frame dims 640x480; got %dx%d", opts.FrameW, opts.FrameH)
	}
	if opts.SamplesPerPixel != 32 || opts.NumWorkers != 4 || opts.Seed != 7 {
		t.Fatalf("unexpected sampling options: %+v", opts)
	}
	if opts.Params.Model != tracer.IsometricLight {
		t.Fatalf("expected the isometric lighting model; got %d", opts.Params.Model)
	}
	if opts.Params.MaxBounces != 6 || opts.Params.LightIntensity != 1.5 || opts.Params.Gamma != 2.2 {
		t.Fatalf("unexpected render params: %+v", opts.Params)
	}
	if opts.Params.Background != types.XYZ(0.1, 0.2, 0.3) {
		t.Fatalf("expected background (0.1, 0.2, 0.3); got %v", opts.Params.Background)
	}

	settings.LightModel = "radiosity"
	if _, err = settings.rendererOptions(); err == nil {
		t.Fatal("expected an error for an unsupported light model")
	}
}

func TestApplySceneOverrides(t *testing.T) {
	sc := &scene.Scene{
		Material: scene.DefaultMaterial(),
		Camera:   scene.NewCamera(),
	}

	// A zero value leaves the scene untouched.
	renderSettings{}.applyScene(sc)
	if sc.Material.RefractiveIndex != scene.DefaultMaterial().RefractiveIndex {
		t.Fatalf("expected refractive index to keep its default; got %f", sc.Material.RefractiveIndex)
	}
	if sc.Camera.Position != types.XYZ(0, 0, 0) {
		t.Fatalf("expected camera position to keep its default; got %v", sc.Camera.Position)
	}

	settings := renderSettings{
		RefractiveIndex: 2.42,
		Attenuation:     &[3]float32{0.2, 0.3, 0.4},
		CameraPosition:  &[3]float32{0, 0, 5},
		CameraTarget:    &[3]float32{0, 0, 0},
		FOV:             45,
	}
	settings.applyScene(sc)

	if sc.Material.RefractiveIndex != 2.42 {
		t.Fatalf("expected refractive index 2.42; got %f", sc.Material.RefractiveIndex)
	}
	if sc.Material.Attenuation != types.XYZ(0.2, 0.3, 0.4) {
		t.Fatalf("expected attenuation (0.2, 0.3, 0.4); got %v", sc.Material.Attenuation)
	}
	if sc.Camera.Position != types.XYZ(0, 0, 5) {
		t.Fatalf("expected camera position (0, 0, 5); got %v", sc.Camera.Position)
	}
	if sc.Camera.Target != types.XYZ(0, 0, 0) {
		t.Fatalf("expected camera target (0, 0, 0); got %v", sc.Camera.Target)
	}
	if !vecApprox(sc.Camera.LookDir, types.XYZ(0, 0, -1)) {
		t.Fatalf("expected camera to look at the target; got %v", sc.Camera.LookDir)
	}
	if sc.Camera.FOV != 45 {
		t.Fatalf("expected fov 45; got %f", sc.Camera.FOV)
	}
}

func TestSettingsYaml(t *testing.T) {
	payload := `
width: 1024
height: 768
spp: 64
light-model: isometric
refractive-index: 1.77
attenuation: [0.5, 0.1, 0.5]
camera-position: [0, 0, 5]
`

	var settings renderSettings
	if err := yaml.Unmarshal([]byte(payload), &settings); err != nil {
		t.Fatal(err)
	}

	if settings.Width != 1024 || settings.Height != 768 || settings.SamplesPerPixel != 64 {
		t.Fatalf("unexpected frame settings: %+v", settings)
	}
	if settings.LightModel != "isometric" {
		t.Fatalf("expected the isometric light model; got %q", settings.LightModel)
	}
	if settings.RefractiveIndex != 1.77 {
		t.Fatalf("expected refractive index 1.77; got %f", settings.RefractiveIndex)
	}
	if settings.Attenuation == nil || *settings.Attenuation != [3]float32{0.5, 0.1, 0.5} {
		t.Fatalf("expected attenuation override (0.5, 0.1, 0.5); got %v", settings.Attenuation)
	}
	if settings.CameraPosition == nil || *settings.CameraPosition != [3]float32{0, 0, 5} {
		t.Fatalf("expected camera position override (0, 0, 5); got %v", settings.CameraPosition)
	}
	// Fields absent from the file keep their zero values so defaults and
	// flags can fill them in.
	if settings.CameraTarget != nil || settings.FOV != 0 {
		t.Fatalf("expected absent overrides to stay unset; got %+v", settings)
	}
}

func vecApprox(a, b types.Vec3) bool {
	for i := 0; i < 3; i++ {
		d := a[i] - b[i]
		if d < -1e-4 || d > 1e-4 {
			return false
		}
	}
	return true
}
