package renderer

import (
	"image"

	"github.com/Algorhythm-sxv/culet/asset/scene"
)

type Renderer interface {
	// Render frame.
	Render() error

	// Shutdown renderer and any attached tracers.
	Close()

	// Get the rendered frame contents.
	Frame() *image.RGBA

	// Push a camera update to the attached tracers and restart sample
	// accumulation.
	UpdateCamera(camera *scene.Camera)

	// Get render statistics.
	Stats() FrameStats
}
