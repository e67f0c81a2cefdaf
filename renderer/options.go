package renderer

import "github.com/Algorhythm-sxv/culet/tracer"

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Number of rays emitted per pixel for each accumulated pass.
	SamplesPerPixel uint32

	// Number of worker tracers to attach. Zero selects one per logical
	// CPU.
	NumWorkers uint32

	// Seed for the per-pixel sample jitter.
	Seed uint32

	// Light transport parameters pushed to the tracers.
	Params tracer.RenderParams

	// The block scheduler splitting frame rows across the tracer pool.
	// Nil selects the feedback-driven scheduler.
	Scheduler tracer.BlockScheduler
}
