package cpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/Algorhythm-sxv/culet/asset/scene"
	"github.com/Algorhythm-sxv/culet/log"
	"github.com/Algorhythm-sxv/culet/tracer"
	"github.com/Algorhythm-sxv/culet/types"
	"github.com/chewxy/math32"
)

type blockOp uint8

const (
	opTrace blockOp = iota
	opSync
)

// A queued unit of work for the tracer worker.
type workItem struct {
	op  blockOp
	req *tracer.BlockRequest
}

type cpuTracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	// The tracer id.
	id string

	// Frame dimensions and the shared output buffers. The accumulation
	// buffer holds RGBA float32 samples; the framebuffer 8-bit RGBA.
	frameW      uint32
	frameH      uint32
	accumBuffer []float32
	frameBuffer []uint8

	// A buffer for queuing updates. Updates are grouped by type and
	// latest updates always overwrite the previous ones.
	updateBuffer map[tracer.ChangeType]interface{}

	// A channel for receiving work from the renderer.
	reqChan chan workItem

	// A channel for signaling the worker to exit.
	closeChan chan struct{}

	// Statistics for last rendered frame.
	stats *tracer.Stats

	// The ray evaluation kernel fed by state updates.
	kernel kernel
}

// Create a new CPU tracer.
func NewTracer(id string) tracer.Tracer {
	return &cpuTracer{
		logger:       log.New(fmt.Sprintf("cpu tracer (%s)", id)),
		id:           id,
		updateBuffer: make(map[tracer.ChangeType]interface{}, 0),
		reqChan:      make(chan workItem, 1),
		stats:        &tracer.Stats{},
		kernel:       kernel{params: tracer.DefaultRenderParams()},
	}
}

// Get tracer id.
func (tr *cpuTracer) Id() string {
	return tr.id
}

// Get the tracer's relative speed estimate. CPU workers are identical cores
// so they all report the same unit speed.
func (tr *cpuTracer) Speed() uint32 {
	return 1
}

// Attach the tracer to the shared framebuffers and start its worker.
func (tr *cpuTracer) Init(frameW, frameH uint32, accumBuffer []float32, frameBuffer []uint8) error {
	tr.Lock()
	defer tr.Unlock()

	pixels := int(frameW) * int(frameH)
	if len(accumBuffer) < pixels*4 || len(frameBuffer) < pixels*4 {
		return ErrInvalidFrameDims
	}

	tr.frameW = frameW
	tr.frameH = frameH
	tr.accumBuffer = accumBuffer
	tr.frameBuffer = frameBuffer

	if tr.closeChan == nil {
		tr.startWorker()
	}

	return nil
}

// Shutdown and cleanup tracer.
func (tr *cpuTracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	tr.cleanup()
}

// Cleanup tracer. This method is meant to be called while holding tr.Lock()
func (tr *cpuTracer) cleanup() {
	// If the worker is running shut it down
	if tr.closeChan != nil {
		tr.closeChan <- struct{}{}

		// wait for worker to ack close and shutdown channel
		<-tr.closeChan
		close(tr.closeChan)
		tr.closeChan = nil
	}
	tr.wg.Wait()

	tr.accumBuffer = nil
	tr.frameBuffer = nil
	tr.kernel.sceneData = nil
	tr.kernel.camera = nil
}

// Append a change to the tracer's update buffer. Synchronous changes are
// committed before returning; asynchronous ones before the next block.
func (tr *cpuTracer) UpdateState(mode tracer.UpdateMode, change tracer.ChangeType, data interface{}) {
	tr.updateBuffer[change] = data

	if mode == tracer.Synchronous {
		if err := tr.commitUpdates(); err != nil {
			tr.logger.Error(err)
		}
	}
}

// Commit queued changes.
func (tr *cpuTracer) commitUpdates() error {
	for change, data := range tr.updateBuffer {
		switch change {
		case tracer.SceneData:
			sc := data.(*scene.Scene)
			tr.kernel.sceneData = sc
			if sc.Camera != nil {
				tr.kernel.camera = sc.Camera
			}
		case tracer.CameraData:
			tr.kernel.camera = data.(*scene.Camera)
		case tracer.ParamsData:
			tr.kernel.params = data.(tracer.RenderParams)
		default:
			return fmt.Errorf("cpu tracer: unsupported state change type %d", change)
		}
	}

	tr.updateBuffer = make(map[tracer.ChangeType]interface{}, 0)
	return nil
}

// Enqueue a block trace request.
func (tr *cpuTracer) Trace(blockReq *tracer.BlockRequest) {
	tr.enqueue(workItem{op: opTrace, req: blockReq})
}

// Enqueue a framebuffer sync request for the block's rows.
func (tr *cpuTracer) SyncFramebuffer(blockReq *tracer.BlockRequest) {
	tr.enqueue(workItem{op: opSync, req: blockReq})
}

func (tr *cpuTracer) enqueue(work workItem) {
	select {
	case tr.reqChan <- work:
	default:
		// drop the request if worker is not listening
		tr.logger.Error("request processor did not receive block request")
	}
}

// Retrieve last frame statistics.
func (tr *cpuTracer) Stats() *tracer.Stats {
	return tr.stats
}

// Spawn a go-routine to process block requests.
func (tr *cpuTracer) startWorker() {
	// Worker already running
	if tr.closeChan != nil {
		return
	}
	tr.closeChan = make(chan struct{}, 0)

	readyChan := make(chan struct{}, 0)
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		var startTime time.Time
		var err error
		close(readyChan)
		for {
			select {
			case work := <-tr.reqChan:

				// Apply any pending changes
				if len(tr.updateBuffer) != 0 {
					startTime = time.Now()
					err = tr.commitUpdates()
					if err != nil {
						work.req.ErrChan <- err
						continue
					}
					tr.stats.UpdateTime = time.Since(startTime)
				}

				// Process block and reply with our completion status
				startTime = time.Now()
				switch work.op {
				case opSync:
					err = tr.syncBlock(work.req)
				default:
					err = tr.traceBlock(work.req)
				}
				if err != nil {
					work.req.ErrChan <- err
					continue
				}

				// Update stats
				if work.op == opTrace {
					tr.stats.BlockH = work.req.BlockH
					tr.stats.RenderTime = time.Since(startTime)
				}

				work.req.DoneChan <- work.req.BlockH
			case <-tr.closeChan:
				// Ack close
				tr.closeChan <- struct{}{}
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

// Trace the rows of a block and add the averaged per-pixel samples into the
// accumulation buffer.
func (tr *cpuTracer) traceBlock(blockReq *tracer.BlockRequest) error {
	if tr.kernel.sceneData == nil {
		return ErrNoSceneData
	}
	if tr.kernel.camera == nil {
		return ErrNoCameraData
	}

	viewport := tr.kernel.camera.Viewport(tr.frameW, tr.frameH)
	samples := blockReq.SamplesPerPixel
	if samples == 0 {
		samples = 1
	}
	frameCount := blockReq.FrameCount
	if frameCount == 0 {
		frameCount = 1
	}

	for y := blockReq.BlockY; y < blockReq.BlockY+blockReq.BlockH; y++ {
		rowOffset := y * tr.frameW * 4
		for x := uint32(0); x < tr.frameW; x++ {
			var sum types.Vec3
			for sample := uint32(0); sample < samples; sample++ {
				fx := float32(x) + 0.5
				fy := float32(y) + 0.5
				// The first sample of an accumulation run targets the
				// pixel center; every later sample is jittered by its
				// index across all accumulated frames.
				if pass := (frameCount-1)*samples + sample; pass != 0 {
					jx, jy := sampleJitter(x, y, pass, blockReq.Seed)
					fx += jx
					fy += jy
				}

				r := NewRay(viewport.Origin, viewport.At(fx, fy).Sub(viewport.Origin))
				sum = sum.Add(tr.kernel.trace(r))
			}

			mean := sum.Mul(1 / float32(samples))
			offset := rowOffset + x*4
			tr.accumBuffer[offset] += mean[0]
			tr.accumBuffer[offset+1] += mean[1]
			tr.accumBuffer[offset+2] += mean[2]
			tr.accumBuffer[offset+3]++
		}
	}

	return nil
}

// Convert the accumulated samples for the block's rows into gamma-encoded
// 8-bit RGBA.
func (tr *cpuTracer) syncBlock(blockReq *tracer.BlockRequest) error {
	frameCount := blockReq.FrameCount
	if frameCount == 0 {
		frameCount = 1
	}
	scale := 1 / float32(frameCount)

	invGamma := float32(1)
	if tr.kernel.params.Gamma > 0 {
		invGamma = 1 / tr.kernel.params.Gamma
	}

	start := blockReq.BlockY * tr.frameW * 4
	end := (blockReq.BlockY + blockReq.BlockH) * tr.frameW * 4
	for offset := start; offset < end; offset += 4 {
		for channel := uint32(0); channel < 3; channel++ {
			v := math32.Pow(tr.accumBuffer[offset+channel]*scale, invGamma)
			if v > 1 {
				v = 1
			}
			tr.frameBuffer[offset+channel] = uint8(v*255 + 0.5)
		}
		tr.frameBuffer[offset+3] = 255
	}

	return nil
}

// Derive a deterministic sub-pixel jitter in [-0.5, 0.5) for a sample. The
// avalanche step decorrelates neighboring pixels and successive samples
// without any cross-pixel state.
func sampleJitter(x, y, sample, seed uint32) (float32, float32) {
	h := x*0x9e3779b1 ^ y*0x85ebca77 ^ sample*0xc2b2ae3d ^ seed
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16

	jx := float32(h&0xffff)/65536 - 0.5
	jy := float32(h>>16)/65536 - 0.5
	return jx, jy
}
