package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Algorhythm-sxv/culet/asset/scene"
	"github.com/Algorhythm-sxv/culet/renderer"
	"github.com/Algorhythm-sxv/culet/tracer"
	"github.com/Algorhythm-sxv/culet/types"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"
)

// Render settings assembled from an optional yaml file and the command line
// flags. Flags win over file values.
type renderSettings struct {
	Width           uint32  `yaml:"width"`
	Height          uint32  `yaml:"height"`
	SamplesPerPixel uint32  `yaml:"spp"`
	Bounces         uint32  `yaml:"bounces"`
	LightModel      string  `yaml:"light-model"`
	LightIntensity  float32 `yaml:"light-intensity"`
	Gamma           float32 `yaml:"gamma"`
	Workers         uint32  `yaml:"workers"`
	Seed            uint32  `yaml:"seed"`

	Background [3]float32 `yaml:"background"`

	// Optional overrides for the loaded scene. Wavefront and stl assets
	// carry no optical properties so these are the only way to set them.
	RefractiveIndex float32     `yaml:"refractive-index"`
	Attenuation     *[3]float32 `yaml:"attenuation"`
	CameraPosition  *[3]float32 `yaml:"camera-position"`
	CameraTarget    *[3]float32 `yaml:"camera-target"`
	FOV             float32     `yaml:"fov"`
}

// Assemble the render settings for a render command invocation.
func loadRenderSettings(ctx *cli.Context) (renderSettings, error) {
	params := tracer.DefaultRenderParams()
	settings := renderSettings{
		Width:           512,
		Height:          512,
		SamplesPerPixel: 16,
		Bounces:         params.MaxBounces,
		LightModel:      "cosine",
		LightIntensity:  params.LightIntensity,
		Gamma:           params.Gamma,
		Background:      [3]float32{params.Background[0], params.Background[1], params.Background[2]},
	}

	if settingsFile := ctx.String("settings"); settingsFile != "" {
		payload, err := os.ReadFile(settingsFile)
		if err != nil {
			return settings, err
		}
		if err = yaml.Unmarshal(payload, &settings); err != nil {
			return settings, fmt.Errorf("%s: %s", settingsFile, err.Error())
		}
	}

	if ctx.IsSet("width") {
		settings.Width = uint32(ctx.Int("width"))
	}
	if ctx.IsSet("height") {
		settings.Height = uint32(ctx.Int("height"))
	}
	if ctx.IsSet("spp") {
		settings.SamplesPerPixel = uint32(ctx.Int("spp"))
	}
	if ctx.IsSet("bounces") {
		settings.Bounces = uint32(ctx.Int("bounces"))
	}
	if ctx.IsSet("light-model") {
		settings.LightModel = ctx.String("light-model")
	}
	if ctx.IsSet("light-intensity") {
		settings.LightIntensity = float32(ctx.Float64("light-intensity"))
	}
	if ctx.IsSet("gamma") {
		settings.Gamma = float32(ctx.Float64("gamma"))
	}
	if ctx.IsSet("workers") {
		settings.Workers = uint32(ctx.Int("workers"))
	}
	if ctx.IsSet("seed") {
		settings.Seed = uint32(ctx.Int("seed"))
	}
	if ctx.IsSet("background") {
		background, err := parseColor(ctx.String("background"))
		if err != nil {
			return settings, err
		}
		settings.Background = background
	}

	return settings, nil
}

// Apply scene-level overrides to a loaded scene.
func (s renderSettings) applyScene(sc *scene.Scene) {
	if s.RefractiveIndex > 0 {
		sc.Material.RefractiveIndex = s.RefractiveIndex
	}
	if s.Attenuation != nil {
		sc.Material.Attenuation = types.XYZ(s.Attenuation[0], s.Attenuation[1], s.Attenuation[2])
	}
	if s.CameraPosition != nil {
		sc.Camera.Position = types.XYZ(s.CameraPosition[0], s.CameraPosition[1], s.CameraPosition[2])
		sc.Camera.LookAt(sc.Camera.Target)
	}
	if s.CameraTarget != nil {
		sc.Camera.LookAt(types.XYZ(s.CameraTarget[0], s.CameraTarget[1], s.CameraTarget[2]))
	}
	if s.FOV > 0 {
		sc.Camera.FOV = s.FOV
	}
}

// Convert the settings to renderer options.
func (s renderSettings) rendererOptions() (renderer.Options, error) {
	params := tracer.RenderParams{
		MaxBounces:     s.Bounces,
		LightIntensity: s.LightIntensity,
		Background:     types.XYZ(s.Background[0], s.Background[1], s.Background[2]),
		Gamma:          s.Gamma,
	}

	switch s.LightModel {
	case "cosine":
		params.Model = tracer.CosineLight
	case "isometric":
		params.Model = tracer.IsometricLight
	default:
		return renderer.Options{}, fmt.Errorf("unsupported light model %q; expected cosine or isometric", s.LightModel)
	}

	return renderer.Options{
		FrameW:          s.Width,
		FrameH:          s.Height,
		SamplesPerPixel: s.SamplesPerPixel,
		NumWorkers:      s.Workers,
		Seed:            s.Seed,
		Params:          params,
	}, nil
}

// Parse a comma separated rgb color triplet.
func parseColor(val string) ([3]float32, error) {
	var out [3]float32

	fields := strings.Split(val, ",")
	if len(fields) != 3 {
		return out, fmt.Errorf("invalid color %q; expected 3 comma separated values", val)
	}
	for idx, field := range fields {
		channel, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
		if err != nil {
			return out, fmt.Errorf("invalid color %q: %s", val, err.Error())
		}
		out[idx] = float32(channel)
	}

	return out, nil
}
