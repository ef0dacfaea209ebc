// Package gpu defines the graphics backend a layer draws through.
//
// The host hands a [Graphics] to the layer at attach time instead of the
// layer reaching for an implicit global context. All methods must be
// called on the host's rendering thread. Handles are backend-defined
// non-zero identifiers; zero means "no object".
package gpu

import "github.com/go-drift/geovideo/pkg/frame"

// Program is a linked shader program handle.
type Program uint32

// Texture is a 2D texture handle.
type Texture uint32

// Geometry is a vertex + index buffer pair handle.
type Geometry uint32

// Graphics is the subset of a GPU API needed to draw a textured quad.
type Graphics interface {
	// MaxTextureSize returns the largest supported texture width or height.
	MaxTextureSize() int

	// CreateProgram compiles and links a program from vertex and fragment
	// shader sources.
	CreateProgram(vertexSrc, fragmentSrc string) (Program, error)
	// DeleteProgram releases a program. Zero is ignored.
	DeleteProgram(p Program)

	// CreateTexture allocates an empty texture of the given shape.
	CreateTexture(width, height int, format frame.PixelFormat) (Texture, error)
	// UploadTexture copies b's pixels into t, which must match b's shape.
	UploadTexture(t Texture, b *frame.Buffer) error
	// DeleteTexture releases a texture. Zero is ignored.
	DeleteTexture(t Texture)

	// CreateGeometry uploads interleaved x, y, u, v vertices and indices.
	CreateGeometry(vertices []float32, indices []uint16) (Geometry, error)
	// DeleteGeometry releases a geometry. Zero is ignored.
	DeleteGeometry(g Geometry)

	// UseProgram makes p current.
	UseProgram(p Program)
	// BindTexture binds t to the sampler of the current program.
	BindTexture(t Texture)
	// BindGeometry binds g's vertex layout and index buffer.
	BindGeometry(g Geometry)
	// SetProjection sets the program's projection matrix uniform.
	SetProjection(p Program, m Matrix)
	// DrawElements draws count indices as triangles.
	DrawElements(count int)
}
