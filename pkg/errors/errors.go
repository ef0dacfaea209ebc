// Package errors provides structured error handling for geovideo layers.
//
// Most failures inside a layer are recoverable: a bad frame or a texture the
// GPU refuses to allocate must never crash or stall the host's map
// rendering. Such failures are sent to the global [ErrorHandler] with
// [Report] instead of being returned into the host's render loop. Only
// construction-time geometry validation surfaces as a returned error.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Sentinel errors for the failure classes a layer can hit.
var (
	// ErrDegenerateGeometry is returned when a geographic quad is collinear,
	// self-overlapping, or has out-of-range coordinates.
	ErrDegenerateGeometry = stderrors.New("geovideo: degenerate geometry")

	// ErrTextureAllocation is reported when the graphics backend refuses to
	// allocate or fill a texture.
	ErrTextureAllocation = stderrors.New("geovideo: texture allocation failed")

	// ErrInvalidFrameBuffer is returned when a decoded frame has zero or
	// oversized dimensions, an unknown pixel format, or too little pixel data.
	ErrInvalidFrameBuffer = stderrors.New("geovideo: invalid frame buffer")

	// ErrLifecycleMisuse marks host calls outside the attach/detach window.
	// Layers ignore such calls; the sentinel exists for logging and tests.
	ErrLifecycleMisuse = stderrors.New("geovideo: lifecycle misuse")

	// ErrSourceInactive is returned when a frame arrives while the layer has
	// no playing source: idle, or holding the last frame after the end.
	ErrSourceInactive = stderrors.New("geovideo: source not playing")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindGeometry indicates an invalid quad or projection failure.
	KindGeometry
	// KindTexture indicates a texture allocation or upload failure.
	KindTexture
	// KindFrame indicates a rejected frame buffer.
	KindFrame
	// KindLifecycle indicates an attach, draw, or detach problem.
	KindLifecycle
	// KindPlayback indicates a failed decoder control signal.
	KindPlayback
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindGeometry:
		return "geometry"
	case KindTexture:
		return "texture"
	case KindFrame:
		return "frame"
	case KindLifecycle:
		return "lifecycle"
	case KindPlayback:
		return "playback"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// LayerError represents a structured error raised by a layer component.
type LayerError struct {
	// Op is the operation that failed (e.g., "texture.Manager.Current").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Layer is the identifier of the layer involved, if known.
	Layer string
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *LayerError) Error() string {
	if e.Layer != "" {
		return fmt.Sprintf("%s [%s] layer=%s: %v", e.Op, e.Kind, e.Layer, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *LayerError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "render.Binding.Draw").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// FrameError describes why a frame buffer was rejected.
type FrameError struct {
	// Width and Height are the dimensions the frame claimed.
	Width, Height int
	// Reason is a short description of the violated constraint.
	Reason string
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %dx%d rejected: %s", e.Width, e.Height, e.Reason)
}

func (e *FrameError) Unwrap() error {
	return ErrInvalidFrameBuffer
}

// ErrorHandler receives errors reported by layer components.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *LayerError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
