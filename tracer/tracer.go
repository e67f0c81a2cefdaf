package tracer

import (
	"time"

	"github.com/Algorhythm-sxv/culet/types"
)

// The type of state pushed into a tracer by an update.
type ChangeType uint8

const (
	// A *scene.Scene upload: geometry buffers, bvh, material and camera.
	SceneData ChangeType = iota

	// A *scene.Camera refresh between frames.
	CameraData

	// A RenderParams refresh.
	ParamsData
)

type UpdateMode uint8

const (
	// Apply the change before returning.
	Synchronous UpdateMode = iota

	// Queue the change; it is applied before the next traced block.
	Asynchronous
)

// The lighting model evaluated on rays that escape the gem.
type LightingModel uint8

const (
	// A narrow camera-aligned light with cosine falloff.
	CosineLight LightingModel = iota

	// Constant intensity for any front-lit escaping ray.
	IsometricLight
)

// RenderParams control the light transport integrator and the framebuffer
// conversion.
type RenderParams struct {
	// Maximum number of internal bounces per primary ray. Bounded by the
	// integrator's record capacity (16).
	MaxBounces uint32

	// Intensity of the camera-aligned light.
	LightIntensity float32

	// The lighting model evaluated on escaping rays.
	Model LightingModel

	// Color returned by primary rays that miss the gem.
	Background types.Vec3

	// Gamma used when converting accumulated samples to 8-bit RGBA.
	Gamma float32
}

// Default render parameters.
func DefaultRenderParams() RenderParams {
	return RenderParams{
		MaxBounces:     8,
		LightIntensity: 1.0,
		Model:          CosineLight,
		Background:     types.XYZ(0, 0, 0),
		Gamma:          2.2,
	}
}

// A unit of work that is processed by a tracer: a horizontal band of frame
// rows.
type BlockRequest struct {
	// Block start row and height.
	BlockY uint32
	BlockH uint32

	// The number of emitted rays per traced pixel.
	SamplesPerPixel uint32

	// Number of accumulated frames from the current camera position. The
	// framebuffer sync divides accumulated samples by this count.
	FrameCount uint32

	// A seed for the per-pixel sample jitter.
	Seed uint32

	// A channel to signal on block completion with the number of
	// completed rows.
	DoneChan chan<- uint32

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// Tracer statistics for the last rendered frame.
type Stats struct {
	// The rendered block height.
	BlockH uint32

	// The time spent rendering the last block.
	RenderTime time.Duration

	// The time spent applying queued state changes.
	UpdateTime time.Duration
}

// The Tracer interface is implemented by ray tracing backends that render
// blocks of frame rows into a shared framebuffer.
type Tracer interface {
	// Get tracer id.
	Id() string

	// Get the tracer's relative speed estimate.
	Speed() uint32

	// Attach the tracer to the shared framebuffers and start its worker.
	Init(frameW, frameH uint32, accumBuffer []float32, frameBuffer []uint8) error

	// Shutdown and cleanup tracer.
	Close()

	// Push a state change to the tracer. Asynchronous changes are queued
	// and applied together before the next traced block so that no block
	// observes a partial update.
	UpdateState(mode UpdateMode, change ChangeType, data interface{})

	// Enqueue a block trace request. Completion is signaled on the
	// request's done channel with the number of completed rows.
	Trace(blockReq *BlockRequest)

	// Enqueue a framebuffer sync request: convert the accumulated samples
	// for the block's rows into 8-bit RGBA.
	SyncFramebuffer(blockReq *BlockRequest)

	// Retrieve last frame statistics.
	Stats() *Stats
}
