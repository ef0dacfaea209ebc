// Package geo converts geographic quadrilaterals into projected quad geometry.
//
// A [Quad] holds four corners in a fixed cyclic order: top-left, top-right,
// bottom-right, bottom-left. The order decides which image corner lands on
// which coordinate, so swapping corners silently mirrors or rotates the
// rendered video. [Build] runs the corners through a host-supplied
// [Projector] and produces a two-triangle [Geometry] with unit-square
// texture coordinates.
package geo

import (
	"fmt"
	"math"

	"github.com/go-drift/geovideo/pkg/errors"
)

// minPlanarArea is the smallest doubled triangle area, in square degrees,
// accepted for a quad half.
const minPlanarArea = 1e-12

// LatLng is a geographic coordinate in degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// String formats the coordinate as "lat,lng".
func (c LatLng) String() string {
	return fmt.Sprintf("%g,%g", c.Lat, c.Lng)
}

// Corner indexes the corners of a Quad.
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomRight
	BottomLeft
)

func (c Corner) String() string {
	switch c {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomRight:
		return "bottom-right"
	case BottomLeft:
		return "bottom-left"
	default:
		return "unknown"
	}
}

// Quad is four geographic corners ordered top-left, top-right,
// bottom-right, bottom-left.
type Quad [4]LatLng

// NewQuad builds a quad from its corners and validates it.
func NewQuad(topLeft, topRight, bottomRight, bottomLeft LatLng) (Quad, error) {
	q := Quad{topLeft, topRight, bottomRight, bottomLeft}
	if err := q.Validate(); err != nil {
		return Quad{}, err
	}
	return q, nil
}

// Corner returns the coordinate at c.
func (q Quad) Corner(c Corner) LatLng {
	return q[c]
}

// Validate checks that every coordinate is finite and in range and that the
// quad does not collapse or fold over itself. The returned error wraps
// [errors.ErrDegenerateGeometry].
func (q Quad) Validate() error {
	for i, c := range q {
		if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
			return fmt.Errorf("%w: %s corner is not finite", errors.ErrDegenerateGeometry, Corner(i))
		}
		if c.Lat < -90 || c.Lat > 90 {
			return fmt.Errorf("%w: %s latitude %g out of range", errors.ErrDegenerateGeometry, Corner(i), c.Lat)
		}
		if c.Lng < -360 || c.Lng > 360 {
			return fmt.Errorf("%w: %s longitude %g out of range", errors.ErrDegenerateGeometry, Corner(i), c.Lng)
		}
	}

	u := q.Unwrapped()
	for i := range u {
		prev := u[(i+3)%4]
		next := u[(i+1)%4]
		if u[i] == prev {
			return fmt.Errorf("%w: %s and %s coincide", errors.ErrDegenerateGeometry, Corner((i+3)%4), Corner(i))
		}
		if math.Abs(cross(prev, u[i], next)) < minPlanarArea {
			return fmt.Errorf("%w: collinear at %s", errors.ErrDegenerateGeometry, Corner(i))
		}
	}

	// The quad is drawn as the fan (0,1,2) + (0,2,3); both halves must
	// share a winding or the triangles overlap.
	a := cross(u[0], u[1], u[2])
	b := cross(u[0], u[2], u[3])
	if math.Abs(a) < minPlanarArea || math.Abs(b) < minPlanarArea || (a > 0) != (b > 0) {
		return fmt.Errorf("%w: quad folds across its diagonal", errors.ErrDegenerateGeometry)
	}
	return nil
}

// Unwrapped returns a copy whose longitudes are shifted by whole turns so
// each corner lies within 180° of the top-left corner. A quad straddling the
// antimeridian (e.g. 179° to -179°) becomes continuous (179° to 181°).
func (q Quad) Unwrapped() Quad {
	ref := q[TopLeft].Lng
	for i := 1; i < 4; i++ {
		for q[i].Lng-ref > 180 {
			q[i].Lng -= 360
		}
		for ref-q[i].Lng > 180 {
			q[i].Lng += 360
		}
	}
	return q
}

// CrossesAntimeridian reports whether the unwrapped quad extends past ±180°.
func (q Quad) CrossesAntimeridian() bool {
	for _, c := range q.Unwrapped() {
		if c.Lng > 180 || c.Lng < -180 {
			return true
		}
	}
	return false
}

// cross returns the z component of (b-a)×(c-a) in the lng/lat plane.
func cross(a, b, c LatLng) float64 {
	return (b.Lng-a.Lng)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lng-a.Lng)
}
