// Package gputest provides an in-memory [gpu.Graphics] for tests.
//
// Backend records every call so tests can assert on exact GPU traffic
// (for example, that a draw after detach issues nothing) and keeps the
// last uploaded pixels of each texture so tests can check what a draw
// would show.
package gputest

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-drift/geovideo/pkg/frame"
	"github.com/go-drift/geovideo/pkg/gpu"
)

// Texture is the recorded state of a live texture.
type Texture struct {
	Width, Height int
	Format        frame.PixelFormat
	// Pix is a copy of the most recent upload.
	Pix []byte
	// PTS is the timestamp of the most recent upload.
	PTS time.Duration
}

// Backend is a recording gpu.Graphics. The zero value is not usable; call
// [New].
type Backend struct {
	mu sync.Mutex

	// MaxSize is returned from MaxTextureSize.
	MaxSize int

	// FailCreateTexture, when set, makes CreateTexture return it.
	FailCreateTexture error
	// FailUpload, when set, makes UploadTexture return it.
	FailUpload error
	// FailProgram, when set, makes CreateProgram return it.
	FailProgram error

	nextID   uint32
	calls    map[string]int
	programs map[gpu.Program]bool
	textures map[gpu.Texture]*Texture
	geoms    map[gpu.Geometry][]float32

	boundProgram gpu.Program
	boundTexture gpu.Texture
	boundGeom    gpu.Geometry
	projection   gpu.Matrix
	lastDrawn    gpu.Texture
}

var _ gpu.Graphics = (*Backend)(nil)

// New creates a backend with a 4096 texture limit.
func New() *Backend {
	return &Backend{
		MaxSize:  4096,
		calls:    make(map[string]int),
		programs: make(map[gpu.Program]bool),
		textures: make(map[gpu.Texture]*Texture),
		geoms:    make(map[gpu.Geometry][]float32),
	}
}

func (b *Backend) record(name string) {
	b.calls[name]++
}

func (b *Backend) id() uint32 {
	b.nextID++
	return b.nextID
}

// Calls returns how many times the named method was called.
func (b *Backend) Calls(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

// TotalCalls returns the number of recorded calls across all methods.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// Live returns the number of programs, textures, and geometries not yet
// deleted.
func (b *Backend) Live() (programs, textures, geometries int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.programs), len(b.textures), len(b.geoms)
}

// TextureState returns the recorded state of t, or nil if t is not live.
func (b *Backend) TextureState(t gpu.Texture) *Texture {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.textures[t]
}

// LastDrawn returns the texture bound during the most recent DrawElements
// and its recorded state.
func (b *Backend) LastDrawn() (gpu.Texture, *Texture) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastDrawn, b.textures[b.lastDrawn]
}

// Projection returns the most recently set projection matrix.
func (b *Backend) Projection() gpu.Matrix {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.projection
}

// GeometryData returns the vertices uploaded for g.
func (b *Backend) GeometryData(g gpu.Geometry) []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.geoms[g]
}

func (b *Backend) MaxTextureSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("MaxTextureSize")
	return b.MaxSize
}

func (b *Backend) CreateProgram(vertexSrc, fragmentSrc string) (gpu.Program, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("CreateProgram")
	if b.FailProgram != nil {
		return 0, b.FailProgram
	}
	if vertexSrc == "" || fragmentSrc == "" {
		return 0, fmt.Errorf("gputest: empty shader source")
	}
	p := gpu.Program(b.id())
	b.programs[p] = true
	return p, nil
}

func (b *Backend) DeleteProgram(p gpu.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("DeleteProgram")
	delete(b.programs, p)
}

func (b *Backend) CreateTexture(width, height int, format frame.PixelFormat) (gpu.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("CreateTexture")
	if b.FailCreateTexture != nil {
		return 0, b.FailCreateTexture
	}
	if width <= 0 || height <= 0 || width > b.MaxSize || height > b.MaxSize {
		return 0, fmt.Errorf("gputest: bad texture size %dx%d", width, height)
	}
	t := gpu.Texture(b.id())
	b.textures[t] = &Texture{Width: width, Height: height, Format: format}
	return t, nil
}

func (b *Backend) UploadTexture(t gpu.Texture, buf *frame.Buffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("UploadTexture")
	if b.FailUpload != nil {
		return b.FailUpload
	}
	tex, ok := b.textures[t]
	if !ok {
		return fmt.Errorf("gputest: upload to unknown texture %d", t)
	}
	if tex.Width != buf.Width || tex.Height != buf.Height || tex.Format != buf.Format {
		return fmt.Errorf("gputest: upload shape mismatch")
	}
	tex.Pix = append(tex.Pix[:0], buf.Pix...)
	tex.PTS = buf.PTS
	return nil
}

func (b *Backend) DeleteTexture(t gpu.Texture) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("DeleteTexture")
	delete(b.textures, t)
}

func (b *Backend) CreateGeometry(vertices []float32, indices []uint16) (gpu.Geometry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("CreateGeometry")
	if len(vertices) == 0 || len(indices) == 0 {
		return 0, fmt.Errorf("gputest: empty geometry")
	}
	g := gpu.Geometry(b.id())
	b.geoms[g] = append([]float32(nil), vertices...)
	return g, nil
}

func (b *Backend) DeleteGeometry(g gpu.Geometry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("DeleteGeometry")
	delete(b.geoms, g)
}

func (b *Backend) UseProgram(p gpu.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("UseProgram")
	b.boundProgram = p
}

func (b *Backend) BindTexture(t gpu.Texture) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("BindTexture")
	b.boundTexture = t
}

func (b *Backend) BindGeometry(g gpu.Geometry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("BindGeometry")
	b.boundGeom = g
}

func (b *Backend) SetProjection(p gpu.Program, m gpu.Matrix) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("SetProjection")
	b.projection = m
}

func (b *Backend) DrawElements(count int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("DrawElements")
	b.lastDrawn = b.boundTexture
}
