package layer

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange   = errors.New("invalid frame range")
	ErrFrameExists    = errors.New("frame already exists")
	ErrBindingMissing = errors.New("layer has no binding")
)

// StructuralError reports timeline content that cannot be played or
// exported as is.
type StructuralError struct {
	Layer  string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("layer %s: %s", e.Layer, e.Reason)
}

// ApplyError wraps a binding failure for one bone during one tick.
type ApplyError struct {
	Layer string
	Bone  string
	Frame float64
	Err   error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("layer %s: apply %s at frame %.2f: %v", e.Layer, e.Bone, e.Frame, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }
