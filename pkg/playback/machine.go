// Package playback tracks whether a layer's video source is producing
// frames and applies the loop policy when it ends.
//
// The machine never decodes anything. It decides whether submitted frames
// are accepted and, at end of stream, either holds the last frame or asks
// the decoder to seek back to the start. Decoder control calls are
// fire-and-forget; the machine waits passively for the next frame instead
// of polling.
package playback

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/go-drift/geovideo/pkg/errors"
)

// Decoder is the control surface of an external decoder. Both calls must
// return promptly; the actual seek happens asynchronously.
type Decoder interface {
	// SeekToStart asks the decoder to continue from the first frame.
	SeekToStart() error
	// Resume asks a decoder that stopped at end of stream to continue
	// delivering frames.
	Resume() error
}

// Machine is the playback state machine. All methods are safe for
// concurrent use: end-of-stream and frame arrival come from the decoder's
// goroutine while the render thread reads the state.
type Machine struct {
	// Layer is used to label reported errors.
	Layer string

	// OnStateChanged is called after every transition, outside the lock.
	// Set it before attaching a decoder.
	OnStateChanged func(from, to State)

	loop atomic.Bool

	mu       sync.Mutex
	state    State   // guarded by mu
	decoder  Decoder // guarded by mu
	restarts int64   // guarded by mu
}

// NewMachine creates an idle machine with looping enabled.
func NewMachine(layer string) *Machine {
	m := &Machine{Layer: layer}
	m.loop.Store(true)
	return m
}

// Loop reports whether the source restarts when it ends.
func (m *Machine) Loop() bool {
	return m.loop.Load()
}

// SetLoop changes the loop policy. The new value is read at the next end of
// stream; a restart already in progress is not affected.
func (m *Machine) SetLoop(loop bool) {
	m.loop.Store(loop)
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Decoder returns the attached decoder, or nil.
func (m *Machine) Decoder() Decoder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decoder
}

// Restarts returns how many loop restarts have been requested.
func (m *Machine) Restarts() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restarts
}

// SetDecoder attaches d and moves to StatePlaying. Passing nil detaches the
// current decoder and moves to StateIdle.
func (m *Machine) SetDecoder(d Decoder) {
	m.mu.Lock()
	m.decoder = d
	to := StateIdle
	if d != nil {
		to = StatePlaying
	}
	from := m.state
	m.state = to
	m.mu.Unlock()

	m.notify(from, to)
}

// EndOfStream applies the loop policy. It only acts in StatePlaying; a
// repeated or stale signal in any other state is ignored.
func (m *Machine) EndOfStream() {
	m.mu.Lock()
	if m.state != StatePlaying {
		m.mu.Unlock()
		return
	}
	d := m.decoder
	from := m.state
	to := StateEndedHolding
	if m.loop.Load() {
		to = StateRestarting
		m.restarts++
	}
	m.state = to
	m.mu.Unlock()

	m.notify(from, to)
	if to != StateRestarting {
		return
	}

	logrus.WithFields(logrus.Fields{"layer": m.Layer}).Debug("loop restart requested")
	err := d.SeekToStart()
	if err == nil {
		err = d.Resume()
	}
	if err != nil {
		errors.Report(&errors.LayerError{
			Op:    "playback.Machine.EndOfStream",
			Kind:  errors.KindPlayback,
			Layer: m.Layer,
			Err:   fmt.Errorf("restart failed: %w", err),
		})
		m.holdAfterFailedRestart(d)
	}
}

// holdAfterFailedRestart falls back to holding the last frame if the
// restart that failed is still the one in progress.
func (m *Machine) holdAfterFailedRestart(d Decoder) {
	m.mu.Lock()
	if m.state != StateRestarting || m.decoder != d {
		m.mu.Unlock()
		return
	}
	m.state = StateEndedHolding
	m.mu.Unlock()
	m.notify(StateRestarting, StateEndedHolding)
}

// AcceptFrame reports whether a newly decoded frame should be shown.
// Frames are refused while idle or holding. The first frame after a
// restart moves the machine back to StatePlaying.
func (m *Machine) AcceptFrame() bool {
	m.mu.Lock()
	switch m.state {
	case StatePlaying:
		m.mu.Unlock()
		return true
	case StateRestarting:
		m.state = StatePlaying
		m.mu.Unlock()
		m.notify(StateRestarting, StatePlaying)
		return true
	default:
		m.mu.Unlock()
		return false
	}
}

// Active reports whether new frames are expected, meaning the host should
// keep scheduling repaints.
func (m *Machine) Active() bool {
	s := m.State()
	return s == StatePlaying || s == StateRestarting
}

func (m *Machine) notify(from, to State) {
	if from == to {
		return
	}
	if cb := m.OnStateChanged; cb != nil {
		cb(from, to)
	}
}
