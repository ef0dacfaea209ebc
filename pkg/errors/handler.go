package errors

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// handlerSlot wraps the handler so atomic.Value always stores one
// concrete type.
type handlerSlot struct {
	h ErrorHandler
}

var current atomic.Value

func init() {
	current.Store(handlerSlot{h: &LogHandler{}})
}

// SetHandler installs h as the process-wide handler and returns the one it
// replaces. Passing nil installs a fresh LogHandler.
func SetHandler(h ErrorHandler) ErrorHandler {
	if h == nil {
		h = &LogHandler{}
	}
	return current.Swap(handlerSlot{h: h}).(handlerSlot).h
}

// Handler returns the process-wide handler.
func Handler() ErrorHandler {
	return current.Load().(handlerSlot).h
}

// Report stamps err with the current time, unless already set, and hands it
// to the handler. Safe to call from any goroutine.
func Report(err *LayerError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	Handler().HandleError(err)
}

// ReportPanic hands a recovered panic to the handler.
func ReportPanic(err *PanicError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	Handler().HandlePanic(err)
}

// Recover reports a panic in progress instead of letting it unwind into
// the host. It must be deferred directly:
//
//	defer errors.Recover("render.Binding.Draw")
func Recover(op string) {
	r := recover()
	if r == nil {
		return
	}
	ReportPanic(&PanicError{
		Op:         op,
		Value:      r,
		StackTrace: CaptureStack(),
	})
}

// CaptureStack formats the caller's stack, one "function\n\tfile:line"
// entry per frame, starting at the function that called CaptureStack's
// caller.
func CaptureStack() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	if n == 0 {
		return ""
	}
	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for more := true; more; {
		var f runtime.Frame
		f, more = frames.Next()
		fmt.Fprintf(&sb, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
	}
	return sb.String()
}
