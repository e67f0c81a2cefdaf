package scene

import (
	"github.com/Algorhythm-sxv/culet/types"
	"github.com/chewxy/math32"
)

// Viewport describes the image plane of a camera for a particular frame
// size. Pixel (0,0) maps to the top-left corner; rays are generated by
// offsetting TopLeft with multiples of the per-pixel deltas and normalizing
// against the camera origin.
type Viewport struct {
	Origin  types.Vec3
	TopLeft types.Vec3
	DeltaX  types.Vec3
	DeltaY  types.Vec3
}

// Get the image plane position for fractional pixel coordinates. Callers
// pass x+0.5, y+0.5 for pixel centers.
func (vp *Viewport) At(fx, fy float32) types.Vec3 {
	return vp.TopLeft.Add(vp.DeltaX.Mul(fx)).Add(vp.DeltaY.Mul(fy))
}

// The camera type implements a pinhole model: an eye position, a view
// direction and an image plane at FocalLength units along it sized by the
// horizontal field of view and the aspect ratio.
type Camera struct {
	Position types.Vec3
	LookDir  types.Vec3
	Up       types.Vec3

	// Pivot point for interactive orbiting. Defaults to the point one
	// focal length along the view direction.
	Target types.Vec3

	// Horizontal field of view in degrees.
	FOV float32

	// Viewport width over height.
	AspectRatio float32

	FocalLength float32
}

// Create a camera with the default gem-viewing setup: at the origin looking
// down the negative Z axis.
func NewCamera() *Camera {
	return &Camera{
		Position:    types.XYZ(0, 0, 0),
		LookDir:     types.XYZ(0, 0, -1),
		Up:          types.XYZ(0, 1, 0),
		Target:      types.XYZ(0, 0, -1),
		FOV:         90,
		AspectRatio: 16.0 / 9.0,
		FocalLength: 1,
	}
}

// Point the camera at target and keep it as the orbit pivot.
func (c *Camera) LookAt(target types.Vec3) {
	c.Target = target
	c.LookDir = target.Sub(c.Position).Normalize()
}

// Derive the orthonormal screen basis from the view direction and the up
// hint. The returned up vector always points to the same half-space as the
// hint.
func (c *Camera) Basis() (left, up types.Vec3) {
	left = c.Up.Cross(c.LookDir).Normalize()
	up = c.Up.Cross(c.LookDir).Cross(c.LookDir).Normalize()
	if up.Dot(c.Up) < 0 {
		up = up.Neg()
	}
	return left, up
}

// Derive the image plane for a frame. The viewport spans twice the
// horizontal half-width FocalLength*tan(FOV/2) and its height follows from
// the aspect ratio; deltas walk it left to right, top to bottom.
func (c *Camera) Viewport(frameW, frameH uint32) Viewport {
	left, up := c.Basis()

	halfW := c.FocalLength * math32.Tan(c.FOV*math32.Pi/360)
	halfH := halfW / c.AspectRatio

	topLeft := c.Position.
		Add(c.LookDir.Mul(c.FocalLength)).
		Add(left.Mul(halfW)).
		Add(up.Mul(halfH))

	return Viewport{
		Origin:  c.Position,
		TopLeft: topLeft,
		DeltaX:  left.Mul(-2 * halfW / float32(frameW)),
		DeltaY:  up.Mul(-2 * halfH / float32(frameH)),
	}
}

// Rotate the camera position around the orbit target. Yaw rotates around
// the screen up axis, pitch around the screen left axis; both angles are in
// radians.
func (c *Camera) Orbit(yaw, pitch float32) {
	left, up := c.Basis()
	rot := types.QuatFromAxisAngle(up, yaw).Mul(types.QuatFromAxisAngle(left, pitch)).Normalize()

	offset := c.Position.Sub(c.Target)
	c.Position = c.Target.Add(rot.Rotate(offset))
	c.LookDir = c.Target.Sub(c.Position).Normalize()
}

// Move the camera along the view direction.
func (c *Camera) Dolly(amount float32) {
	c.Position = c.Position.Add(c.LookDir.Mul(amount))
}

// Shift the camera and its orbit target along the screen axes.
func (c *Camera) Pan(dx, dy float32) {
	left, up := c.Basis()
	offset := left.Mul(dx).Add(up.Mul(dy))
	c.Position = c.Position.Add(offset)
	c.Target = c.Target.Add(offset)
}
