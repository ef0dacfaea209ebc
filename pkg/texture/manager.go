// Package texture owns the GPU texture a layer samples from and the
// single-slot mailbox that feeds it.
//
// Frames arrive through [Manager.Submit] on the decoder's goroutine and sit
// in one pending slot; a newer frame replaces an older one that was never
// drawn. [Manager.Current] runs on the render thread, promotes the pending
// frame, uploads it, and returns the texture to draw. The pending slot is
// the only state shared between the two threads.
package texture

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/go-drift/geovideo/pkg/errors"
	"github.com/go-drift/geovideo/pkg/frame"
	"github.com/go-drift/geovideo/pkg/gpu"
)

// Stats counts frame traffic through a Manager.
type Stats struct {
	// Submitted counts frames that passed validation and entered the slot.
	Submitted int64
	// Rejected counts frames refused by validation.
	Rejected int64
	// Dropped counts pending frames replaced before they were drawn.
	Dropped int64
	// Uploaded counts frames copied to the GPU.
	Uploaded int64
	// Reallocations counts texture (re)allocations.
	Reallocations int64
}

// Manager holds the current texture and the pending frame slot.
//
// Submit, HasPending, and Stats are safe for concurrent use. Current and
// Release must only be called on the render thread.
type Manager struct {
	// Layer is used to label reported errors.
	Layer string

	mu      sync.Mutex
	pending *frame.Buffer // guarded by mu

	maxSize atomic.Int64

	submitted     atomic.Int64
	rejected      atomic.Int64
	dropped       atomic.Int64
	uploaded      atomic.Int64
	reallocations atomic.Int64

	// Render thread only.
	current *frame.Buffer
	tex     gpu.Texture
}

// NewManager creates a manager for the named layer.
func NewManager(layer string) *Manager {
	return &Manager{Layer: layer}
}

// SetMaxTextureSize records the device limit so Submit can reject oversized
// frames before they reach the render thread. Zero disables the check.
func (m *Manager) SetMaxTextureSize(n int) {
	m.maxSize.Store(int64(n))
}

// MaxTextureSize returns the device limit recorded at attach, or zero
// before the first attach.
func (m *Manager) MaxTextureSize() int {
	return int(m.maxSize.Load())
}

// Submit validates b and stores it as the pending frame, discarding any
// pending frame not yet drawn. It never blocks on the render thread.
// Invalid frames are rejected with an error wrapping
// [errors.ErrInvalidFrameBuffer]; the current texture is unaffected.
func (m *Manager) Submit(b *frame.Buffer) error {
	if err := b.Validate(int(m.maxSize.Load())); err != nil {
		m.rejected.Add(1)
		return err
	}
	m.mu.Lock()
	old := m.pending
	m.pending = b
	m.mu.Unlock()

	m.submitted.Add(1)
	if old != nil {
		m.dropped.Add(1)
	}
	return nil
}

// HasPending reports whether a frame is waiting for upload.
func (m *Manager) HasPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

func (m *Manager) takePending() *frame.Buffer {
	m.mu.Lock()
	b := m.pending
	m.pending = nil
	m.mu.Unlock()
	return b
}

// DropPending discards the pending frame, if any.
func (m *Manager) DropPending() {
	if m.takePending() != nil {
		m.dropped.Add(1)
	}
}

// Current promotes the pending frame, if any, uploads it to g, and returns
// the texture to draw. At most one upload happens per call. ok is false when
// there is nothing to draw this tick: no frame has been uploaded yet or a
// texture allocation failed. Failures are reported, never returned; the
// previous texture stays current.
func (m *Manager) Current(g gpu.Graphics) (t gpu.Texture, ok bool) {
	next := m.takePending()
	restoring := false
	if next == nil && m.tex == 0 && m.current != nil {
		// Re-attached after Release: restore the last frame.
		next, restoring = m.current, true
	}
	if next == nil {
		return m.tex, m.tex != 0
	}

	if err := next.Validate(g.MaxTextureSize()); err != nil {
		m.rejected.Add(1)
		m.report("texture.Manager.Current", errors.KindFrame, err)
		if restoring {
			m.current = nil
		}
		return m.tex, m.tex != 0
	}

	if m.tex != 0 && next.SameShape(m.current) {
		if err := g.UploadTexture(m.tex, next); err != nil {
			m.report("texture.Manager.Current", errors.KindTexture, fmt.Errorf("%w: %w", errors.ErrTextureAllocation, err))
			return m.tex, true
		}
		m.current = next
		m.uploaded.Add(1)
		return m.tex, true
	}

	// Allocate and fill the replacement before releasing the old texture so
	// a failure leaves the last good frame in place.
	tex, err := g.CreateTexture(next.Width, next.Height, next.Format)
	if err == nil {
		if err = g.UploadTexture(tex, next); err != nil {
			g.DeleteTexture(tex)
		}
	}
	if err != nil {
		m.report("texture.Manager.Current", errors.KindTexture, fmt.Errorf("%w: %w", errors.ErrTextureAllocation, err))
		if restoring {
			m.current = nil
		}
		return 0, false
	}
	if m.tex != 0 {
		g.DeleteTexture(m.tex)
	}
	logrus.WithFields(logrus.Fields{
		"layer":  m.Layer,
		"width":  next.Width,
		"height": next.Height,
		"format": next.Format.String(),
	}).Debug("texture allocated")

	m.tex = tex
	m.current = next
	m.reallocations.Add(1)
	m.uploaded.Add(1)
	return m.tex, true
}

// Texture returns the live texture handle without uploading.
func (m *Manager) Texture() gpu.Texture {
	return m.tex
}

// Frame returns the frame most recently uploaded.
func (m *Manager) Frame() *frame.Buffer {
	return m.current
}

// Release deletes the texture and drops any pending frame. The last
// uploaded frame is kept on the CPU so a later Current on a new context can
// restore it. Release is idempotent.
func (m *Manager) Release(g gpu.Graphics) {
	m.DropPending()
	if m.tex != 0 && g != nil {
		g.DeleteTexture(m.tex)
	}
	m.tex = 0
}

// Stats returns a snapshot of the counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Submitted:     m.submitted.Load(),
		Rejected:      m.rejected.Load(),
		Dropped:       m.dropped.Load(),
		Uploaded:      m.uploaded.Load(),
		Reallocations: m.reallocations.Load(),
	}
}

func (m *Manager) report(op string, kind errors.ErrorKind, err error) {
	errors.Report(&errors.LayerError{
		Op:    op,
		Kind:  kind,
		Layer: m.Layer,
		Err:   err,
	})
}
