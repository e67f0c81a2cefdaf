package renderer

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/Algorhythm-sxv/culet/asset/scene"
	"github.com/Algorhythm-sxv/culet/tracer"
	"github.com/Algorhythm-sxv/culet/types"
	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	// Coefficient for converting delta cursor movements to orbit angles.
	orbitSensitivity float32 = 0.005

	// Coefficient for converting delta cursor movements to pan offsets.
	panSensitivity float32 = 0.01

	// Pan step for the arrow keys.
	cameraPanStep float32 = 0.05

	// Dolly step per scroll wheel tick.
	cameraDollyStep float32 = 0.1

	// Multiplier applied to the light intensity by the -/= keys.
	lightIntensityStep float32 = 1.25

	// Height in pixels of the block-assignment chart.
	assignmentChartHeight uint32 = 20
)

const (
	leftMouseButton  = 0
	rightMouseButton = 1
)

// An interactive opengl-based renderer. Samples accumulate progressively
// while the camera is still; any camera or parameter change restarts the
// accumulation.
type interactiveGLRenderer struct {
	*defaultRenderer

	// Total samples to accumulate per pixel. Zero accumulates forever.
	targetSamples      uint32
	accumulatedSamples uint32

	// opengl handles
	window *glfw.Window
	texFbo uint32

	// state
	lastCursorPos types.Vec2
	mousePressed  [2]bool

	// mutex for synchronizing updates
	sync.Mutex

	// Display options
	showUI          bool
	assignmentChart *assignmentChart
}

// Create an interactive opengl renderer. The caller must have locked the
// main OS thread before invoking this as glfw requires its event loop to
// run on it.
func NewInteractive(sc *scene.Scene, opts Options) (Renderer, error) {
	// Each pass traces one sample per pixel so that intermediate frames
	// can be displayed while the accumulation converges.
	targetSamples := opts.SamplesPerPixel
	opts.SamplesPerPixel = 1

	base, err := NewDefault(sc, opts)
	if err != nil {
		return nil, err
	}

	r := &interactiveGLRenderer{
		defaultRenderer: base.(*defaultRenderer),
		targetSamples:   targetSamples,
	}

	err = r.initGL(opts)
	if err != nil {
		r.Close()
		return nil, err
	}

	err = r.initUI()
	if err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

func (r *interactiveGLRenderer) Close() {
	if r.window != nil {
		r.window.SetShouldClose(true)
	}
	r.defaultRenderer.Close()
}

func (r *interactiveGLRenderer) initGL(opts Options) error {
	var err error
	if err = glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize glfw: %s", err.Error())
	}

	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	r.window, err = glfw.CreateWindow(int(opts.FrameW), int(opts.FrameH), "culet", nil, nil)
	if err != nil {
		return fmt.Errorf("could not create opengl window: %s", err.Error())
	}
	r.window.MakeContextCurrent()

	if err = gl.Init(); err != nil {
		return fmt.Errorf("could not init opengl: %s", err.Error())
	}

	// Setup texture for the framebuffer contents
	var fbTexture uint32
	gl.GenTextures(1, &fbTexture)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, fbTexture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(opts.FrameW), int32(opts.FrameH), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)

	// Attach texture to FBO
	gl.GenFramebuffers(1, &r.texFbo)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, r.texFbo)
	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, fbTexture, 0)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

	// Bind event callbacks
	r.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	r.window.SetKeyCallback(r.onKeyEvent)
	r.window.SetMouseButtonCallback(r.onMouseEvent)
	r.window.SetCursorPosCallback(r.onCursorPosEvent)
	r.window.SetScrollCallback(r.onScrollEvent)

	return nil
}

func (r *interactiveGLRenderer) Render() error {
	for !r.window.ShouldClose() {
		glfw.PollEvents()

		// Don't do anything if we don't require additional samples
		if r.targetSamples != 0 && r.accumulatedSamples >= r.targetSamples {
			continue
		}

		// Render next pass
		r.Lock()
		err := r.renderFrame()
		if err != nil {
			r.Unlock()
			return err
		}
		r.accumulatedSamples++

		// Upload the framebuffer to the texture and blit it to the
		// window. The framebuffer stores rows top to bottom so the blit
		// flips Y.
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(r.options.FrameW), int32(r.options.FrameH), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(r.frameBuffer))
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, r.texFbo)
		gl.BlitFramebuffer(0, 0, int32(r.options.FrameW), int32(r.options.FrameH), 0, int32(r.options.FrameH), int32(r.options.FrameW), 0, gl.COLOR_BUFFER_BIT, gl.LINEAR)
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

		// Display tracer stats
		if r.showUI {
			r.renderUI()
		}

		r.window.SwapBuffers()
		r.Unlock()
	}
	return nil
}

func (r *interactiveGLRenderer) initUI() error {
	// Setup ortho projection for UI bits
	gl.Disable(gl.DEPTH_TEST)
	gl.MatrixMode(gl.PROJECTION)
	gl.LoadIdentity()
	gl.Ortho(0, float64(r.options.FrameW), float64(r.options.FrameH), 0, -1, 1)
	gl.Viewport(0, 0, int32(r.options.FrameW), int32(r.options.FrameH))
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadIdentity()

	r.assignmentChart = makeAssignmentChart(len(r.tracers), int(r.options.FrameW))

	return nil
}

func (r *interactiveGLRenderer) renderUI() {
	// Outline each tracer's block for the last pass
	var y int32 = 1
	var frameW int32 = int32(r.options.FrameW) - 1
	gl.LineWidth(2.0)
	for seriesIndex, blockH := range r.blockAssignments {
		gl.Color3fv(&r.assignmentChart.colors[seriesIndex][0])
		gl.Begin(gl.LINE_LOOP)
		gl.Vertex2i(0, y)
		gl.Vertex2i(frameW, y)
		gl.Vertex2i(frameW, y+int32(blockH))
		gl.Vertex2i(0, y+int32(blockH))
		gl.End()

		y += int32(blockH)
	}

	for seriesIndex, blockH := range r.blockAssignments {
		r.assignmentChart.Push(seriesIndex, float32(blockH))
	}
	r.assignmentChart.Draw(r.options.FrameH-assignmentChartHeight, assignmentChartHeight)
}

func (r *interactiveGLRenderer) onKeyEvent(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press && action != glfw.Repeat {
		return
	}

	// Double pan speed if shift is pressed
	var panStep float32 = cameraPanStep
	if (mods & glfw.ModShift) == glfw.ModShift {
		panStep = 2.0 * cameraPanStep
	}

	switch key {
	case glfw.KeyEscape:
		r.window.SetShouldClose(true)
	case glfw.KeyTab:
		r.showUI = !r.showUI
		if r.showUI {
			r.assignmentChart.Clear()
		}
	case glfw.KeyUp:
		r.camera.Pan(0, panStep)
		r.applyCamera()
	case glfw.KeyDown:
		r.camera.Pan(0, -panStep)
		r.applyCamera()
	case glfw.KeyLeft:
		r.camera.Pan(panStep, 0)
		r.applyCamera()
	case glfw.KeyRight:
		r.camera.Pan(-panStep, 0)
		r.applyCamera()
	case glfw.KeyLeftBracket:
		params := r.options.Params
		if params.MaxBounces > 1 {
			params.MaxBounces--
			r.applyParams(params)
		}
	case glfw.KeyRightBracket:
		params := r.options.Params
		if params.MaxBounces < maxSupportedBounces {
			params.MaxBounces++
			r.applyParams(params)
		}
	case glfw.KeyMinus:
		params := r.options.Params
		params.LightIntensity /= lightIntensityStep
		r.applyParams(params)
	case glfw.KeyEqual:
		params := r.options.Params
		params.LightIntensity *= lightIntensityStep
		r.applyParams(params)
	}
}

func (r *interactiveGLRenderer) onMouseEvent(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mod glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft && button != glfw.MouseButtonRight {
		return
	}

	r.mousePressed[leftMouseButton] = false
	r.mousePressed[rightMouseButton] = false

	if action == glfw.Press {
		xPos, yPos := w.GetCursorPos()
		r.lastCursorPos[0], r.lastCursorPos[1] = float32(xPos), float32(yPos)

		buttonIndex := leftMouseButton
		if button == glfw.MouseButtonRight {
			buttonIndex = rightMouseButton
		}

		r.mousePressed[buttonIndex] = true
	}
}

func (r *interactiveGLRenderer) onCursorPosEvent(w *glfw.Window, xPos, yPos float64) {
	if !r.mousePressed[leftMouseButton] && !r.mousePressed[rightMouseButton] {
		return
	}

	// Calculate delta movement
	newPos := types.Vec2{float32(xPos), float32(yPos)}
	delta := r.lastCursorPos.Sub(newPos)
	r.lastCursorPos = newPos

	if r.mousePressed[leftMouseButton] {
		// The left mouse button orbits the camera around its target
		r.camera.Orbit(delta[0]*orbitSensitivity, delta[1]*orbitSensitivity)
	} else {
		// The right mouse button pans the camera and its target
		r.camera.Pan(-delta[0]*panSensitivity, -delta[1]*panSensitivity)
	}
	r.applyCamera()
}

func (r *interactiveGLRenderer) onScrollEvent(w *glfw.Window, xOffset, yOffset float64) {
	r.camera.Dolly(float32(yOffset) * cameraDollyStep)
	r.applyCamera()
}

func (r *interactiveGLRenderer) applyCamera() {
	r.Lock()
	defer r.Unlock()

	r.UpdateCamera(r.camera)
	r.accumulatedSamples = 0
}

func (r *interactiveGLRenderer) applyParams(params tracer.RenderParams) {
	r.Lock()
	defer r.Unlock()

	r.updateParams(params)
	r.accumulatedSamples = 0
}

// A scrolling stacked chart of per-tracer row assignments. Each column
// stacks the rows assigned to every tracer for one pass, scaled to the
// chart height.
type assignmentChart struct {
	series [][]float32
	colors []types.Vec3
}

func makeAssignmentChart(numSeries, histCount int) *assignmentChart {
	c := &assignmentChart{
		series: make([][]float32, numSeries),
		colors: make([]types.Vec3, numSeries),
	}

	for sIndex := 0; sIndex < numSeries; sIndex++ {
		c.series[sIndex] = make([]float32, histCount)
		c.colors[sIndex] = types.XYZ(rand.Float32(), rand.Float32(), 1.0)
	}

	return c
}

// Reset chart history.
func (c *assignmentChart) Clear() {
	histCount := len(c.series[0])
	for sIndex := 0; sIndex < len(c.series); sIndex++ {
		c.series[sIndex] = make([]float32, histCount)
	}
}

// Shift a series left and append a new value at the end.
func (c *assignmentChart) Push(seriesIndex int, val float32) {
	c.series[seriesIndex] = append(c.series[seriesIndex][1:], val)
}

func (c *assignmentChart) Draw(chartY, chartHeight uint32) {
	gl.LineWidth(1.0)
	gl.Begin(gl.LINES)
	for x := 0; x < len(c.series[0]); x++ {
		var sum float32 = 0
		var scale float32 = 1.0
		for sIndex := 0; sIndex < len(c.series); sIndex++ {
			sum += c.series[sIndex][x]
		}
		if sum > 0.0 {
			scale = float32(chartHeight) / sum
		}

		var y float32 = float32(chartY)
		for sIndex := 0; sIndex < len(c.series); sIndex++ {
			segment := c.series[sIndex][x] * scale
			gl.Color3fv(&c.colors[sIndex][0])
			gl.Vertex2f(float32(x), y)
			gl.Vertex2f(float32(x), y+segment)
			y += segment
		}
	}
	gl.End()
}
