package cmd

import (
	"errors"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"os"

	"github.com/Algorhythm-sxv/culet/asset/scene"
	"github.com/Algorhythm-sxv/culet/asset/scene/reader"
	"github.com/Algorhythm-sxv/culet/renderer"
	"github.com/chewxy/math32"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli"
)

// Render a still frame to a png file.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	settings, err := loadRenderSettings(ctx)
	if err != nil {
		return err
	}

	sc, err := loadScene(ctx, settings)
	if err != nil {
		return err
	}

	opts, err := settings.rendererOptions()
	if err != nil {
		return err
	}

	// Each pass accumulates one sample per pixel so the progress bar can
	// track the render.
	passes := opts.SamplesPerPixel
	opts.SamplesPerPixel = 1

	r, err := renderer.NewDefault(sc, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	bar := progressbar.Default(int64(passes), "rendering")
	for pass := uint32(0); pass < passes; pass++ {
		if err = r.Render(); err != nil {
			return err
		}
		bar.Add(1)
	}

	// Display stats
	logger.Noticef("frame statistics:\n%s", r.Stats().Table())

	imgFile := ctx.String("out")
	if err = writePng(r.Frame(), imgFile); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s", imgFile)

	return nil
}

// Render a turntable animation to an animated gif file. The camera circles
// its orbit target once over the animation.
func RenderOrbit(ctx *cli.Context) error {
	setupLogging(ctx)

	settings, err := loadRenderSettings(ctx)
	if err != nil {
		return err
	}

	sc, err := loadScene(ctx, settings)
	if err != nil {
		return err
	}

	opts, err := settings.rendererOptions()
	if err != nil {
		return err
	}

	frames := ctx.Int("frames")
	if frames <= 0 {
		return errors.New("the animation frame count must be positive")
	}
	delay := ctx.Int("delay")

	r, err := renderer.NewDefault(sc, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	out := &gif.GIF{
		Image:     make([]*image.Paletted, 0, frames),
		Delay:     make([]int, 0, frames),
		LoopCount: 0,
	}

	yawStep := 2 * math32.Pi / float32(frames)
	bar := progressbar.Default(int64(frames), "rendering")
	for frame := 0; frame < frames; frame++ {
		if err = r.Render(); err != nil {
			return err
		}

		// Quantize the frame for the gif
		frameImg := r.Frame()
		palImg := image.NewPaletted(frameImg.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(palImg, palImg.Bounds(), frameImg, image.Point{})
		out.Image = append(out.Image, palImg)
		out.Delay = append(out.Delay, delay)

		// Step the camera around its target. The camera update also
		// restarts the sample accumulation for the next frame.
		sc.Camera.Orbit(yawStep, 0)
		r.UpdateCamera(sc.Camera)
		bar.Add(1)
	}

	imgFile := ctx.String("out")
	f, err := os.Create(imgFile)
	if err != nil {
		return err
	}
	defer f.Close()

	if err = gif.EncodeAll(f, out); err != nil {
		return err
	}
	logger.Noticef("wrote %d frames to %s", frames, imgFile)

	return nil
}

// Render an interactive view of the scene in an opengl window.
func RenderInteractive(ctx *cli.Context) error {
	setupLogging(ctx)

	settings, err := loadRenderSettings(ctx)
	if err != nil {
		return err
	}

	sc, err := loadScene(ctx, settings)
	if err != nil {
		return err
	}

	opts, err := settings.rendererOptions()
	if err != nil {
		return err
	}

	r, err := renderer.NewInteractive(sc, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	return r.Render()
}

// Load the scene argument and apply the settings overrides to it.
func loadScene(ctx *cli.Context, settings renderSettings) (*scene.Scene, error) {
	if ctx.NArg() != 1 {
		return nil, errors.New("missing scene file argument")
	}

	sc, err := reader.ReadScene(ctx.Args().First())
	if err != nil {
		return nil, err
	}

	settings.applyScene(sc)
	if sc.Camera != nil {
		sc.Camera.AspectRatio = float32(settings.Width) / float32(settings.Height)
	}

	return sc, nil
}

// Write a rendered frame to a png file.
func writePng(frame *image.RGBA, imgFile string) error {
	f, err := os.Create(imgFile)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, frame)
}
