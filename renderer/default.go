package renderer

import (
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/Algorhythm-sxv/culet/asset/scene"
	"github.com/Algorhythm-sxv/culet/log"
	"github.com/Algorhythm-sxv/culet/tracer"
	"github.com/Algorhythm-sxv/culet/tracer/cpu"
)

// Upper bound for the bounce count accepted from the host. Matches the
// integrator's bounce-record capacity.
const maxSupportedBounces = 16

type defaultRenderer struct {
	logger log.Logger

	options Options

	// The scene and camera pushed to the tracers.
	sc     *scene.Scene
	camera *scene.Camera

	// The tracer pool and its block scheduler.
	tracers   []tracer.Tracer
	scheduler tracer.BlockScheduler

	// Shared output buffers written by the tracers.
	accumBuffer []float32
	frameBuffer []uint8

	// Per-tracer row assignments for the last frame.
	blockAssignments []uint32

	// Completion channels shared by all block requests.
	doneChan chan uint32
	errChan  chan error

	// Closed on shutdown to abort in-flight frames.
	closeChan chan struct{}
	closeOnce sync.Once

	// Number of accumulated frames since the last state change.
	frameCount uint32

	stats FrameStats
}

// Create a renderer that renders the scene with a pool of CPU tracers. One
// tracer is attached per worker; the scheduler splits the frame rows across
// them every pass.
func NewDefault(sc *scene.Scene, opts Options) (Renderer, error) {
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if sc.Camera == nil {
		return nil, ErrCameraNotDefined
	}

	logger := log.New("renderer")
	if opts.FrameW == 0 || opts.FrameH == 0 {
		logger.Errorf("invalid frame dimensions %dx%d", opts.FrameW, opts.FrameH)
		return nil, ErrInvalidOptions
	}
	if opts.Params.MaxBounces > maxSupportedBounces {
		logger.Errorf("bounce count %d exceeds the supported maximum of %d", opts.Params.MaxBounces, maxSupportedBounces)
		return nil, ErrInvalidOptions
	}
	if opts.Params.MaxBounces == 0 {
		opts.Params.MaxBounces = 1
	}
	if opts.SamplesPerPixel == 0 {
		opts.SamplesPerPixel = 1
	}
	if opts.NumWorkers == 0 {
		opts.NumWorkers = uint32(runtime.NumCPU())
	}
	if opts.NumWorkers > opts.FrameH {
		opts.NumWorkers = opts.FrameH
	}
	if opts.Scheduler == nil {
		opts.Scheduler = tracer.PerfectScheduler()
	}

	r := &defaultRenderer{
		logger:      logger,
		options:     opts,
		sc:          sc,
		camera:      sc.Camera,
		scheduler:   opts.Scheduler,
		accumBuffer: make([]float32, opts.FrameW*opts.FrameH*4),
		frameBuffer: make([]uint8, opts.FrameW*opts.FrameH*4),
		doneChan:    make(chan uint32, opts.NumWorkers),
		errChan:     make(chan error, opts.NumWorkers),
		closeChan:   make(chan struct{}, 0),
	}

	for workerIndex := uint32(0); workerIndex < opts.NumWorkers; workerIndex++ {
		tr := cpu.NewTracer(fmt.Sprintf("cpu-%d", workerIndex))
		if err := tr.Init(opts.FrameW, opts.FrameH, r.accumBuffer, r.frameBuffer); err != nil {
			r.Close()
			return nil, err
		}
		r.tracers = append(r.tracers, tr)
	}
	if len(r.tracers) == 0 {
		return nil, ErrNoTracers
	}

	for _, tr := range r.tracers {
		tr.UpdateState(tracer.Synchronous, tracer.SceneData, sc)
		tr.UpdateState(tracer.Synchronous, tracer.ParamsData, opts.Params)
	}

	logger.Noticef("attached %d tracers", len(r.tracers))
	return r, nil
}

// Render frame.
func (r *defaultRenderer) Render() error {
	return r.renderFrame()
}

// Shutdown renderer and any attached tracers.
func (r *defaultRenderer) Close() {
	r.closeOnce.Do(func() {
		close(r.closeChan)
	})
	for _, tr := range r.tracers {
		tr.Close()
	}
}

// Get the rendered frame contents. The returned image shares the
// framebuffer storage; it is valid until the next render pass.
func (r *defaultRenderer) Frame() *image.RGBA {
	return &image.RGBA{
		Pix:    r.frameBuffer,
		Stride: int(r.options.FrameW) * 4,
		Rect:   image.Rect(0, 0, int(r.options.FrameW), int(r.options.FrameH)),
	}
}

// Get render statistics.
func (r *defaultRenderer) Stats() FrameStats {
	return r.stats
}

// Push a camera update to the attached tracers and restart sample
// accumulation.
func (r *defaultRenderer) UpdateCamera(camera *scene.Camera) {
	r.camera = camera
	for _, tr := range r.tracers {
		tr.UpdateState(tracer.Asynchronous, tracer.CameraData, camera)
	}
	r.resetAccumulation()
}

// Push a render parameter update to the attached tracers and restart sample
// accumulation.
func (r *defaultRenderer) updateParams(params tracer.RenderParams) {
	r.options.Params = params
	for _, tr := range r.tracers {
		tr.UpdateState(tracer.Asynchronous, tracer.ParamsData, params)
	}
	r.resetAccumulation()
}

// Zero the accumulated samples so the next pass starts a fresh frame.
func (r *defaultRenderer) resetAccumulation() {
	for i := range r.accumBuffer {
		r.accumBuffer[i] = 0
	}
	r.frameCount = 0
}

// Render a single accumulation pass: schedule row blocks over the tracer
// pool, trace them concurrently and sync the framebuffer.
func (r *defaultRenderer) renderFrame() error {
	start := time.Now()
	r.frameCount++

	r.blockAssignments = r.scheduler.Schedule(r.tracers, r.options.FrameH)

	// Clamp assignments to the frame edge so a skewed schedule can never
	// write outside the buffers.
	var total uint32
	for idx := range r.blockAssignments {
		if total+r.blockAssignments[idx] > r.options.FrameH {
			r.blockAssignments[idx] = r.options.FrameH - total
		}
		total += r.blockAssignments[idx]
	}

	pending := r.dispatchBlocks(opTrace)
	if err := r.waitForBlocks(pending); err != nil {
		return err
	}

	pending = r.dispatchBlocks(opSync)
	if err := r.waitForBlocks(pending); err != nil {
		return err
	}

	r.collectStats(time.Since(start))
	r.logger.Debugf("rendered pass %d in %d ms", r.frameCount, r.stats.RenderTime.Nanoseconds()/1e6)
	return nil
}

type blockOp uint8

const (
	opTrace blockOp = iota
	opSync
)

// Hand every tracer its assigned row block. Returns the number of dispatched
// requests.
func (r *defaultRenderer) dispatchBlocks(op blockOp) int {
	var blockY uint32
	pending := 0
	for idx, tr := range r.tracers {
		blockH := r.blockAssignments[idx]
		if blockH == 0 {
			continue
		}

		blockReq := &tracer.BlockRequest{
			BlockY:          blockY,
			BlockH:          blockH,
			SamplesPerPixel: r.options.SamplesPerPixel,
			FrameCount:      r.frameCount,
			Seed:            r.options.Seed,
			DoneChan:        r.doneChan,
			ErrChan:         r.errChan,
		}

		switch op {
		case opSync:
			tr.SyncFramebuffer(blockReq)
		default:
			tr.Trace(blockReq)
		}
		pending++
		blockY += blockH
	}

	return pending
}

// Wait for the pending block requests to complete.
func (r *defaultRenderer) waitForBlocks(pending int) error {
	for ; pending > 0; pending-- {
		select {
		case <-r.doneChan:
		case err := <-r.errChan:
			return err
		case <-r.closeChan:
			return ErrInterrupted
		}
	}
	return nil
}

// Update the per-frame statistics from the attached tracers.
func (r *defaultRenderer) collectStats(renderTime time.Duration) {
	r.stats = FrameStats{
		Tracers:    make([]TracerStat, 0, len(r.tracers)),
		RenderTime: renderTime,
	}

	for _, tr := range r.tracers {
		trStats := tr.Stats()
		r.stats.Tracers = append(r.stats.Tracers, TracerStat{
			Id:           tr.Id(),
			BlockH:       trStats.BlockH,
			FramePercent: float32(trStats.BlockH) * 100.0 / float32(r.options.FrameH),
			RenderTime:   trStats.RenderTime,
		})
	}
}
