package renderer

import (
	"testing"

	"github.com/Algorhythm-sxv/culet/asset/scene"
	"github.com/Algorhythm-sxv/culet/tracer"
	"github.com/Algorhythm-sxv/culet/types"
)

func TestNewDefaultValidation(t *testing.T) {
	sc := emptyScene()

	type spec struct {
		sc     *scene.Scene
		opts   Options
		expErr error
	}

	specs := []spec{
		{nil, Options{FrameW: 8, FrameH: 8}, ErrSceneNotDefined},
		{&scene.Scene{Material: scene.DefaultMaterial()}, Options{FrameW: 8, FrameH: 8}, ErrCameraNotDefined},
		{sc, Options{FrameW: 0, FrameH: 8}, ErrInvalidOptions},
		{sc, Options{FrameW: 8, FrameH: 0}, ErrInvalidOptions},
		{sc, Options{FrameW: 8, FrameH: 8, Params: tracer.RenderParams{MaxBounces: 17}}, ErrInvalidOptions},
	}

	for specIndex, spec := range specs {
		_, err := NewDefault(spec.sc, spec.opts)
		if err != spec.expErr {
			t.Fatalf("[spec %d] expected error %v; got %v", specIndex, spec.expErr, err)
		}
	}
}

func TestRenderBackgroundFrame(t *testing.T) {
	sc := emptyScene()

	params := tracer.DefaultRenderParams()
	params.Background = types.XYZ(0.25, 0.25, 0.25)
	params.Gamma = 2

	opts := Options{
		FrameW:          8,
		FrameH:          8,
		SamplesPerPixel: 4,
		NumWorkers:      2,
		Params:          params,
	}

	r, err := NewDefault(sc, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if err = r.Render(); err != nil {
		t.Fatal(err)
	}

	frame := r.Frame()
	if frame.Rect.Dx() != 8 || frame.Rect.Dy() != 8 {
		t.Fatalf("expected an 8x8 frame; got %dx%d", frame.Rect.Dx(), frame.Rect.Dy())
	}

	// A gamma of 2 maps the 0.25 background exactly to byte 128.
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c := frame.RGBAAt(x, y)
			if c.R != 128 || c.G != 128 || c.B != 128 || c.A != 255 {
				t.Fatalf("expected pixel (%d, %d) to be (128, 128, 128, 255); got (%d, %d, %d, %d)", x, y, c.R, c.G, c.B, c.A)
			}
		}
	}

	stats := r.Stats()
	if len(stats.Tracers) != 2 {
		t.Fatalf("expected stats for 2 tracers; got %d", len(stats.Tracers))
	}
	var totalRows uint32
	for _, trStat := range stats.Tracers {
		totalRows += trStat.BlockH
	}
	if totalRows != 8 {
		t.Fatalf("expected the tracer blocks to cover all 8 frame rows; got %d", totalRows)
	}
}

func TestRenderAccumulationReset(t *testing.T) {
	sc := emptyScene()

	r, err := NewDefault(sc, Options{FrameW: 4, FrameH: 4, NumWorkers: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	inner := r.(*defaultRenderer)
	for pass := 0; pass < 3; pass++ {
		if err = r.Render(); err != nil {
			t.Fatal(err)
		}
	}
	if inner.frameCount != 3 {
		t.Fatalf("expected 3 accumulated passes; got %d", inner.frameCount)
	}

	r.UpdateCamera(sc.Camera)
	if inner.frameCount != 0 {
		t.Fatalf("expected a camera update to restart the accumulation; got %d passes", inner.frameCount)
	}
	for i, v := range inner.accumBuffer {
		if v != 0 {
			t.Fatalf("expected a zeroed accumulation buffer; got %f at index %d", v, i)
		}
	}

	if err = r.Render(); err != nil {
		t.Fatal(err)
	}
	if inner.frameCount != 1 {
		t.Fatalf("expected 1 accumulated pass; got %d", inner.frameCount)
	}
}

func TestWorkerClamping(t *testing.T) {
	sc := emptyScene()

	r, err := NewDefault(sc, Options{FrameW: 4, FrameH: 2, NumWorkers: 16})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	inner := r.(*defaultRenderer)
	if len(inner.tracers) != 2 {
		t.Fatalf("expected the worker count to be clamped to the 2 frame rows; got %d", len(inner.tracers))
	}

	if err = r.Render(); err != nil {
		t.Fatal(err)
	}
}

func emptyScene() *scene.Scene {
	return &scene.Scene{
		Material: scene.DefaultMaterial(),
		Camera:   scene.NewCamera(),
	}
}
