package cpu

import "errors"

var (
	ErrInvalidFrameDims = errors.New("cpu tracer: frame buffers too small for the frame dimensions")
	ErrNoSceneData      = errors.New("cpu tracer: no scene data uploaded")
	ErrNoCameraData     = errors.New("cpu tracer: no camera data uploaded")
)
