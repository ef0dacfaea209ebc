package errors

import "sync"

// Recorder is an ErrorHandler that keeps every report in memory.
type Recorder struct {
	mu     sync.Mutex
	errs   []*LayerError
	panics []*PanicError
}

// HandleError implements ErrorHandler.
func (r *Recorder) HandleError(err *LayerError) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

// HandlePanic implements ErrorHandler.
func (r *Recorder) HandlePanic(err *PanicError) {
	r.mu.Lock()
	r.panics = append(r.panics, err)
	r.mu.Unlock()
}

// Errors returns a copy of the recorded errors.
func (r *Recorder) Errors() []*LayerError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*LayerError(nil), r.errs...)
}

// Panics returns a copy of the recorded panics.
func (r *Recorder) Panics() []*PanicError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*PanicError(nil), r.panics...)
}

// CountKind returns how many recorded errors have the given kind.
func (r *Recorder) CountKind(kind ErrorKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.errs {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// SetupRecorder installs a Recorder as the global handler for the duration
// of a test. The cleanup function should be testing.T.Cleanup or equivalent.
//
//	rec := errors.SetupRecorder(t.Cleanup)
func SetupRecorder(cleanup func(func())) *Recorder {
	rec := &Recorder{}
	old := SetHandler(rec)
	cleanup(func() { SetHandler(old) })
	return rec
}
