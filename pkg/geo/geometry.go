package geo

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/go-drift/geovideo/pkg/errors"
)

// minProjectedArea is the smallest doubled float32 triangle area accepted
// after projection. Quads smaller than this vanish in vertex precision.
const minProjectedArea = 1e-14

// FloatsPerVertex is the number of float32 values per interleaved vertex
// (x, y, u, v).
const FloatsPerVertex = 4

// TexCoords holds the texture coordinate of each quad corner, in Corner
// order. Image row 0 is the top edge.
var TexCoords = [4][2]float32{
	TopLeft:     {0, 0},
	TopRight:    {1, 0},
	BottomRight: {1, 1},
	BottomLeft:  {0, 1},
}

// Indices splits the quad into the triangle fan (0,1,2) + (0,2,3).
var Indices = [6]uint16{0, 1, 2, 0, 2, 3}

// Vertex is a projected position paired with its texture coordinate.
type Vertex struct {
	X, Y float32
	U, V float32
}

// Geometry is the projected, ready-to-upload form of a Quad.
type Geometry struct {
	Vertices [4]Vertex
	Indices  [6]uint16
}

// Build projects q through p and pairs each corner with its texture
// coordinate. Quads crossing the antimeridian are unwrapped before
// projection. Build fails with [errors.ErrDegenerateGeometry] if q is
// invalid or collapses under the projection.
func Build(q Quad, p Projector) (*Geometry, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if p == nil {
		p = WebMercator{}
	}

	g := &Geometry{Indices: Indices}
	for i, c := range q.Unwrapped() {
		x, y := p.Project(c)
		g.Vertices[i] = Vertex{
			X: float32(x),
			Y: float32(y),
			U: TexCoords[i][0],
			V: TexCoords[i][1],
		}
		if math32.IsNaN(g.Vertices[i].X) || math32.IsNaN(g.Vertices[i].Y) ||
			math32.IsInf(g.Vertices[i].X, 0) || math32.IsInf(g.Vertices[i].Y, 0) {
			return nil, fmt.Errorf("%w: %s projects to a non-finite point", errors.ErrDegenerateGeometry, Corner(i))
		}
	}

	v := g.Vertices
	if math32.Abs(vertexCross(v[0], v[1], v[2])) < minProjectedArea ||
		math32.Abs(vertexCross(v[0], v[2], v[3])) < minProjectedArea {
		return nil, fmt.Errorf("%w: quad collapses after projection", errors.ErrDegenerateGeometry)
	}
	return g, nil
}

// Interleaved returns the vertices as x, y, u, v float32 runs.
func (g *Geometry) Interleaved() []float32 {
	out := make([]float32, 0, len(g.Vertices)*FloatsPerVertex)
	for _, v := range g.Vertices {
		out = append(out, v.X, v.Y, v.U, v.V)
	}
	return out
}

// IndexSlice returns the triangle indices as a slice.
func (g *Geometry) IndexSlice() []uint16 {
	return g.Indices[:]
}

func vertexCross(a, b, c Vertex) float32 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
