package errors

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LogHandler is the default ErrorHandler. It writes logrus entries: layer
// errors at warning level, panics at error level.
//
// A failure that repeats every frame would otherwise log sixty times a
// second, so repeats of the same op, kind, and layer within Interval are
// counted instead of logged and the count is attached to the next entry
// that gets through.
type LogHandler struct {
	// Verbose adds stack traces to entries.
	Verbose bool

	// Logger receives the entries. Nil means the logrus standard logger.
	Logger logrus.FieldLogger

	// Interval is the minimum time between entries for the same failure.
	// Zero means one second; negative logs every report.
	Interval time.Duration

	mu   sync.Mutex
	seen map[repeatKey]*repeat
}

type repeatKey struct {
	op, layer string
	kind      ErrorKind
}

type repeat struct {
	last       time.Time
	suppressed int
}

func (h *LogHandler) logger() logrus.FieldLogger {
	if h.Logger != nil {
		return h.Logger
	}
	return logrus.StandardLogger()
}

func (h *LogHandler) interval() time.Duration {
	if h.Interval == 0 {
		return time.Second
	}
	return h.Interval
}

// admit reports whether err should be logged and how many repeats were
// dropped since the last entry for the same failure.
func (h *LogHandler) admit(err *LayerError) (bool, int) {
	window := h.interval()
	if window < 0 {
		return true, 0
	}
	now := err.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.seen == nil {
		h.seen = make(map[repeatKey]*repeat)
	}
	key := repeatKey{op: err.Op, layer: err.Layer, kind: err.Kind}
	r := h.seen[key]
	if r == nil {
		h.seen[key] = &repeat{last: now}
		return true, 0
	}
	if now.Sub(r.last) < window {
		r.suppressed++
		return false, 0
	}
	dropped := r.suppressed
	r.last, r.suppressed = now, 0
	return true, dropped
}

// HandleError logs err at warning level.
func (h *LogHandler) HandleError(err *LayerError) {
	if err == nil {
		return
	}
	ok, dropped := h.admit(err)
	if !ok {
		return
	}
	entry := h.logger().WithFields(logrus.Fields{
		"op":   err.Op,
		"kind": err.Kind.String(),
	})
	if err.Layer != "" {
		entry = entry.WithField("layer", err.Layer)
	}
	if dropped > 0 {
		entry = entry.WithField("repeated", dropped)
	}
	if h.Verbose && err.StackTrace != "" {
		entry = entry.WithField("stack", err.StackTrace)
	}
	entry.WithError(err.Err).Warn("layer error")
}

// HandlePanic logs err at error level. Panics are never coalesced.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	entry := h.logger().WithFields(logrus.Fields{
		"op":    err.Op,
		"panic": err.Value,
	})
	if h.Verbose && err.StackTrace != "" {
		entry = entry.WithField("stack", err.StackTrace)
	}
	entry.Error("recovered panic")
}
