// Package render implements the custom-layer lifecycle a host map renderer
// drives: attach, draw once per frame, detach.
//
// The host is treated as an adversarial caller. Draw before Attach or after
// Detach does nothing and issues no graphics calls, Detach may be called at
// any time and more than once, and a second Attach re-creates resources on
// the new context. All methods run on the host's rendering thread and never
// block.
package render

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/go-drift/geovideo/pkg/errors"
	"github.com/go-drift/geovideo/pkg/geo"
	"github.com/go-drift/geovideo/pkg/gpu"
	"github.com/go-drift/geovideo/pkg/texture"
)

// Context is what the host provides at attach time.
type Context struct {
	// Graphics is the backend for the host's rendering context.
	Graphics gpu.Graphics
	// Projector converts coordinates into the host's working space. Nil
	// selects geo.WebMercator.
	Projector geo.Projector
}

// Binding draws one quad textured with the frames held by a
// texture.Manager.
type Binding struct {
	layer    string
	quad     geo.Quad
	textures *texture.Manager

	gfx       gpu.Graphics
	projector geo.Projector
	program   gpu.Program
	geometry  gpu.Geometry
	projected *geo.Geometry

	draws   atomic.Int64
	ignored atomic.Int64
}

// NewBinding creates a detached binding for quad. The quad must already be
// validated.
func NewBinding(layer string, quad geo.Quad, textures *texture.Manager) *Binding {
	return &Binding{
		layer:    layer,
		quad:     quad,
		textures: textures,
	}
}

// Attached reports whether the binding holds GPU resources.
func (b *Binding) Attached() bool {
	return b.gfx != nil
}

// Geometry returns the projected geometry, or nil before the first attach.
func (b *Binding) Geometry() *geo.Geometry {
	return b.projected
}

// Draws returns the number of draw calls issued. It is safe to call from
// any goroutine.
func (b *Binding) Draws() int64 {
	return b.draws.Load()
}

// Ignored returns the number of Draw calls made outside the attach window.
func (b *Binding) Ignored() int64 {
	return b.ignored.Load()
}

// Attach compiles the shader program and uploads the quad geometry on
// ctx.Graphics. Attaching while attached first releases the previous
// resources. On failure everything allocated so far is released, the error
// is reported and returned, and the binding stays detached.
func (b *Binding) Attach(ctx Context) (err error) {
	if ctx.Graphics == nil {
		return b.fail("render.Binding.Attach", fmt.Errorf("%w: nil graphics context", errors.ErrLifecycleMisuse))
	}
	if b.Attached() {
		b.Detach()
	}

	g := ctx.Graphics
	defer func() {
		if err != nil {
			b.release(g)
		}
	}()

	if b.projected == nil || !sameProjector(b.projector, ctx.Projector) {
		projected, err := geo.Build(b.quad, ctx.Projector)
		if err != nil {
			return b.fail("render.Binding.Attach", err)
		}
		b.projected = projected
		b.projector = ctx.Projector
	}

	b.program, err = g.CreateProgram(shaderSource("VERTEX"), shaderSource("FRAGMENT"))
	if err != nil {
		return b.fail("render.Binding.Attach", fmt.Errorf("shader program: %w", err))
	}
	b.geometry, err = g.CreateGeometry(b.projected.Interleaved(), b.projected.IndexSlice())
	if err != nil {
		return b.fail("render.Binding.Attach", fmt.Errorf("quad geometry: %w", err))
	}

	b.textures.SetMaxTextureSize(g.MaxTextureSize())
	b.gfx = g
	logrus.WithFields(logrus.Fields{"layer": b.layer}).Debug("layer attached")
	return nil
}

// Draw renders the quad with the current frame using the host-supplied
// projection matrix. It is a no-op outside the attach window, before the
// first frame arrives, or for a non-finite matrix.
func (b *Binding) Draw(projection gpu.Matrix) {
	if !b.Attached() {
		b.ignored.Add(1)
		return
	}
	defer errors.Recover("render.Binding.Draw")

	if !projection.Finite() {
		return
	}
	tex, ok := b.textures.Current(b.gfx)
	if !ok {
		return
	}

	g := b.gfx
	g.UseProgram(b.program)
	g.BindTexture(tex)
	g.BindGeometry(b.geometry)
	g.SetProjection(b.program, projection)
	g.DrawElements(len(b.projected.Indices))
	b.draws.Add(1)
}

// Detach releases the program, texture, and geometry and drops any pending
// frame. It is safe to call at any time and more than once.
func (b *Binding) Detach() {
	if !b.Attached() {
		b.textures.DropPending()
		return
	}
	b.release(b.gfx)
	b.gfx = nil
	logrus.WithFields(logrus.Fields{"layer": b.layer}).Debug("layer detached")
}

func (b *Binding) release(g gpu.Graphics) {
	b.textures.Release(g)
	if b.geometry != 0 {
		g.DeleteGeometry(b.geometry)
		b.geometry = 0
	}
	if b.program != 0 {
		g.DeleteProgram(b.program)
		b.program = 0
	}
}

func (b *Binding) fail(op string, err error) error {
	kind := errors.KindLifecycle
	if errors.Is(err, errors.ErrDegenerateGeometry) {
		kind = errors.KindGeometry
	}
	errors.Report(&errors.LayerError{
		Op:    op,
		Kind:  kind,
		Layer: b.layer,
		Err:   err,
	})
	return err
}

// sameProjector compares projectors without panicking on incomparable
// dynamic types such as ProjectorFunc.
func sameProjector(a, b geo.Projector) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
