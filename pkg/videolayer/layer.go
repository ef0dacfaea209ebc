// Package videolayer is the public surface of a video texture draped over a
// geographic quad inside a host map renderer.
//
// A [Layer] is created with an identifier, an optional decoder, and four
// corner coordinates. The host drives it through [Layer.Attach],
// [Layer.Draw], and [Layer.Detach] on its rendering thread; the decoder
// feeds it through [Layer.SubmitFrame] and [Layer.EndOfStream] from its own
// goroutine.
//
//	layer, err := videolayer.New("harbor", dec, quad, &videolayer.Options{
//		RequestRepaint: mapView.TriggerRepaint,
//	})
//	if err != nil {
//		return err
//	}
//	host.AddCustomLayer(layer)
package videolayer

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/go-drift/geovideo/pkg/errors"
	"github.com/go-drift/geovideo/pkg/frame"
	"github.com/go-drift/geovideo/pkg/geo"
	"github.com/go-drift/geovideo/pkg/gpu"
	"github.com/go-drift/geovideo/pkg/playback"
	"github.com/go-drift/geovideo/pkg/render"
	"github.com/go-drift/geovideo/pkg/texture"
)

// HostAPIVersion is the version of the attach/draw/detach contract this
// package implements. Scene files may require a minimum version.
const HostAPIVersion = "v1.2.0"

// Options configures a Layer. The zero value loops and requests no repaints.
type Options struct {
	// Loop overrides the default loop policy when non-nil.
	Loop *bool

	// RequestRepaint asks the host to schedule another frame. It is called
	// from the decoder's goroutine after every accepted frame and must not
	// block.
	RequestRepaint func()

	// OnStateChanged is called after every playback transition. It may run
	// while the layer holds its source lock and must not call SubmitFrame,
	// SetSource, or RemoveSource synchronously.
	OnStateChanged func(from, to playback.State)
}

// Stats is a snapshot of a layer's frame traffic.
type Stats struct {
	texture.Stats
	// Refused counts frames that arrived with no playing source.
	Refused int64
	// Draws counts draw calls issued to the graphics backend.
	Draws int64
	// Restarts counts loop restarts requested from the decoder.
	Restarts int64
}

// Layer is a video texture mapped onto a geographic quad.
type Layer struct {
	id   string
	quad geo.Quad

	requestRepaint func()

	machine  *playback.Machine
	textures *texture.Manager
	binding  *render.Binding

	// mu orders frame acceptance against source changes so a frame
	// accepted for a removed source never reaches the pending slot.
	mu sync.Mutex

	rejected atomic.Int64
	refused  atomic.Int64
}

var _ frame.Sink = (*Layer)(nil)

// New creates a detached layer. id must be non-empty. quad is validated
// here, including under [geo.WebMercator]; a degenerate quad, or one that
// collapses beyond the mercator latitude limit, fails with
// [errors.ErrDegenerateGeometry] before any GPU work. source may be nil and attached later with
// [Layer.SetSource]. opts may be nil.
func New(id string, source playback.Decoder, quad geo.Quad, opts *Options) (*Layer, error) {
	if id == "" {
		return nil, fmt.Errorf("videolayer: identifier must not be empty")
	}
	if _, err := geo.Build(quad, geo.WebMercator{}); err != nil {
		return nil, fmt.Errorf("videolayer %q: %w", id, err)
	}
	if opts == nil {
		opts = &Options{}
	}

	textures := texture.NewManager(id)
	l := &Layer{
		id:             id,
		quad:           quad,
		requestRepaint: opts.RequestRepaint,
		machine:        playback.NewMachine(id),
		textures:       textures,
		binding:        render.NewBinding(id, quad, textures),
	}
	if opts.Loop != nil {
		l.machine.SetLoop(*opts.Loop)
	}
	l.machine.OnStateChanged = func(from, to playback.State) {
		logrus.WithFields(logrus.Fields{
			"layer": id,
			"from":  from.String(),
			"to":    to.String(),
		}).Debug("playback state changed")
		if cb := opts.OnStateChanged; cb != nil {
			cb(from, to)
		}
	}
	if source != nil {
		l.machine.SetDecoder(source)
	}
	return l, nil
}

// ID returns the layer identifier.
func (l *Layer) ID() string {
	return l.id
}

// Quad returns the geographic corners the video is mapped onto.
func (l *Layer) Quad() geo.Quad {
	return l.quad
}

// Loop reports whether the source restarts when it ends.
func (l *Layer) Loop() bool {
	return l.machine.Loop()
}

// SetLoop changes the loop policy. It takes effect at the next end of
// stream.
func (l *Layer) SetLoop(loop bool) {
	l.machine.SetLoop(loop)
}

// State returns the playback state.
func (l *Layer) State() playback.State {
	return l.machine.State()
}

// SetSource attaches a decoder and starts accepting its frames. The last
// drawn frame stays visible until the new source delivers one.
func (l *Layer) SetSource(d playback.Decoder) {
	if d == nil {
		l.RemoveSource()
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.machine.SetDecoder(d)
}

// RemoveSource detaches the decoder and discards any frame not yet drawn.
func (l *Layer) RemoveSource() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.machine.SetDecoder(nil)
	l.textures.DropPending()
}

// SubmitFrame hands a decoded frame to the layer. It is safe to call from
// any goroutine and never blocks on the render thread. Invalid frames fail
// with [errors.ErrInvalidFrameBuffer] and frames arriving while idle or
// holding fail with [errors.ErrSourceInactive]; in both cases the frame on
// screen is unchanged.
func (l *Layer) SubmitFrame(b *frame.Buffer) error {
	if err := b.Validate(l.textures.MaxTextureSize()); err != nil {
		l.rejected.Add(1)
		l.reportFrame(err)
		return err
	}

	l.mu.Lock()
	if !l.machine.AcceptFrame() {
		l.mu.Unlock()
		l.refused.Add(1)
		return fmt.Errorf("%w: state %s", errors.ErrSourceInactive, l.machine.State())
	}
	err := l.textures.Submit(b)
	l.mu.Unlock()
	if err != nil {
		l.reportFrame(err)
		return err
	}
	if l.requestRepaint != nil {
		l.requestRepaint()
	}
	return nil
}

// EndOfStream tells the layer the decoder delivered its last frame. With
// looping on the decoder is asked to seek to the start; otherwise the last
// frame is held.
func (l *Layer) EndOfStream() {
	l.machine.EndOfStream()
}

// NeedsRepaint reports whether the host should keep scheduling frames:
// the source is playing or restarting, or a frame waits to be drawn.
func (l *Layer) NeedsRepaint() bool {
	return l.machine.Active() || l.textures.HasPending()
}

// Attach allocates GPU resources on ctx. Call it on the rendering thread.
func (l *Layer) Attach(ctx render.Context) error {
	return l.binding.Attach(ctx)
}

// Draw renders the current frame with the host's projection matrix. It is
// a no-op outside the attach window.
func (l *Layer) Draw(projection gpu.Matrix) {
	l.binding.Draw(projection)
}

// Detach releases all GPU resources. It also serves as the host's context
// teardown hook and may be called at any time, any number of times.
func (l *Layer) Detach() {
	l.binding.Detach()
}

// Attached reports whether the layer holds GPU resources.
func (l *Layer) Attached() bool {
	return l.binding.Attached()
}

// Stats returns a snapshot of the layer's counters. It is safe to call from
// any goroutine.
func (l *Layer) Stats() Stats {
	st := Stats{
		Stats:    l.textures.Stats(),
		Refused:  l.refused.Load(),
		Draws:    l.binding.Draws(),
		Restarts: l.machine.Restarts(),
	}
	st.Rejected += l.rejected.Load()
	return st
}

func (l *Layer) reportFrame(err error) {
	errors.Report(&errors.LayerError{
		Op:    "videolayer.Layer.SubmitFrame",
		Kind:  errors.KindFrame,
		Layer: l.id,
		Err:   err,
	})
}
