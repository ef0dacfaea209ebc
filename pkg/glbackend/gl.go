//go:build cgo && !js

package glbackend

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"

	"github.com/go-drift/geovideo/pkg/frame"
	"github.com/go-drift/geovideo/pkg/gpu"
)

type program struct {
	projection int32
	sampler    int32
}

type geometry struct {
	vbo, ebo uint32
}

// GL draws through the current OpenGL context.
type GL struct {
	maxTextureSize int
	programs       map[gpu.Program]program
	geometries     map[gpu.Geometry]geometry
	current        gpu.Program
}

var _ gpu.Graphics = (*GL)(nil)

// New loads the GL entry points for the current context.
func New() (*GL, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gl.Init: %w", err)
	}
	var n int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &n)
	return &GL{
		maxTextureSize: int(n),
		programs:       make(map[gpu.Program]program),
		geometries:     make(map[gpu.Geometry]geometry),
	}, nil
}

func (g *GL) MaxTextureSize() int {
	return g.maxTextureSize
}

func (g *GL) CreateProgram(vertexSrc, fragmentSrc string) (gpu.Program, error) {
	vs, err := compileShader(gl.VERTEX_SHADER, vertexSrc)
	if err != nil {
		return 0, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vs)
	fs, err := compileShader(gl.FRAGMENT_SHADER, fragmentSrc)
	if err != nil {
		return 0, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(fs)

	id := gl.CreateProgram()
	gl.AttachShader(id, vs)
	gl.AttachShader(id, fs)
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(log))
		gl.DeleteProgram(id)
		return 0, fmt.Errorf("link error: %s", strings.TrimRight(log, "\x00"))
	}

	p := gpu.Program(id)
	g.programs[p] = program{
		projection: gl.GetUniformLocation(id, gl.Str("uProjection\x00")),
		sampler:    gl.GetUniformLocation(id, gl.Str("uTexture\x00")),
	}
	return p, nil
}

func (g *GL) DeleteProgram(p gpu.Program) {
	if p == 0 {
		return
	}
	gl.DeleteProgram(uint32(p))
	delete(g.programs, p)
	if g.current == p {
		g.current = 0
	}
}

func (g *GL) CreateTexture(width, height int, format frame.PixelFormat) (gpu.Texture, error) {
	internal, pixel, err := glFormat(format)
	if err != nil {
		return 0, err
	}
	drainErrors()

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	if format == frame.FormatLuminance8 {
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_SWIZZLE_G, gl.RED)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_SWIZZLE_B, gl.RED)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_SWIZZLE_A, gl.ONE)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(width), int32(height), 0, pixel, gl.UNSIGNED_BYTE, nil)

	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &id)
		return 0, fmt.Errorf("glTexImage2D %dx%d %s: error 0x%x", width, height, format, code)
	}
	return gpu.Texture(id), nil
}

func (g *GL) UploadTexture(t gpu.Texture, b *frame.Buffer) error {
	_, pixel, err := glFormat(b.Format)
	if err != nil {
		return err
	}
	rowLength, err := unpackRowLength(b)
	if err != nil {
		return err
	}
	if len(b.Pix) < uploadLen(b) {
		return fmt.Errorf("pixel data too short: %d < %d", len(b.Pix), uploadLen(b))
	}
	drainErrors()

	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, rowLength)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(b.Width), int32(b.Height), pixel, gl.UNSIGNED_BYTE, gl.Ptr(b.Pix))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("glTexSubImage2D: error 0x%x", code)
	}
	return nil
}

func (g *GL) DeleteTexture(t gpu.Texture) {
	if t == 0 {
		return
	}
	id := uint32(t)
	gl.DeleteTextures(1, &id)
}

func (g *GL) CreateGeometry(vertices []float32, indices []uint16) (gpu.Geometry, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return 0, fmt.Errorf("empty geometry")
	}
	var vao uint32
	var geom geometry
	gl.GenVertexArrays(1, &vao)
	gl.GenBuffers(1, &geom.vbo)
	gl.GenBuffers(1, &geom.ebo)

	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, geom.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, geom.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*2, gl.Ptr(indices), gl.STATIC_DRAW)

	const stride = 4 * 4
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, stride, gl.PtrOffset(2*4))
	gl.BindVertexArray(0)

	h := gpu.Geometry(vao)
	g.geometries[h] = geom
	return h, nil
}

func (g *GL) DeleteGeometry(h gpu.Geometry) {
	if h == 0 {
		return
	}
	if geom, ok := g.geometries[h]; ok {
		gl.DeleteBuffers(1, &geom.vbo)
		gl.DeleteBuffers(1, &geom.ebo)
		delete(g.geometries, h)
	}
	vao := uint32(h)
	gl.DeleteVertexArrays(1, &vao)
}

func (g *GL) UseProgram(p gpu.Program) {
	gl.UseProgram(uint32(p))
	g.current = p
}

func (g *GL) BindTexture(t gpu.Texture) {
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
	if prog, ok := g.programs[g.current]; ok {
		gl.Uniform1i(prog.sampler, 0)
	}
}

func (g *GL) BindGeometry(h gpu.Geometry) {
	gl.BindVertexArray(uint32(h))
}

func (g *GL) SetProjection(p gpu.Program, m gpu.Matrix) {
	prog, ok := g.programs[p]
	if !ok {
		return
	}
	gl.UniformMatrix4fv(prog.projection, 1, false, &m[0])
}

func (g *GL) DrawElements(count int) {
	gl.DrawElements(gl.TRIANGLES, int32(count), gl.UNSIGNED_SHORT, gl.PtrOffset(0))
	gl.BindVertexArray(0)
}

func glFormat(f frame.PixelFormat) (internal int32, pixel uint32, err error) {
	switch f {
	case frame.FormatRGBA8:
		return gl.RGBA8, gl.RGBA, nil
	case frame.FormatBGRA8:
		return gl.RGBA8, gl.BGRA, nil
	case frame.FormatLuminance8:
		return gl.R8, gl.RED, nil
	default:
		return 0, 0, fmt.Errorf("unsupported pixel format %s", f)
	}
}

// drainErrors clears errors left by the host so the next check only sees
// ours.
func drainErrors() {
	for i := 0; i < 16 && gl.GetError() != gl.NO_ERROR; i++ {
	}
}

func compileShader(shaderType uint32, source string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile error: %s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}
