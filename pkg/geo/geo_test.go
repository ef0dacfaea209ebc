package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/geovideo/pkg/errors"
)

func sfQuad() Quad {
	return Quad{
		{Lat: 37.80, Lng: -122.46},
		{Lat: 37.80, Lng: -122.38},
		{Lat: 37.74, Lng: -122.38},
		{Lat: 37.74, Lng: -122.46},
	}
}

func TestNewQuadValid(t *testing.T) {
	q := sfQuad()
	got, err := NewQuad(q[0], q[1], q[2], q[3])
	require.NoError(t, err)
	assert.Equal(t, q, got)
	assert.Equal(t, q[2], got.Corner(BottomRight))
}

func TestValidateRejectsDegenerate(t *testing.T) {
	tests := []struct {
		name string
		quad Quad
	}{
		{"collinear", Quad{{0, 0}, {0, 1}, {0, 2}, {0, 3}}},
		{"duplicate corner", Quad{{1, 0}, {1, 0}, {0, 1}, {0, 0}}},
		{"bowtie", Quad{{1, 0}, {1, 1}, {0, 0}, {0, 1}}},
		{"nan", Quad{{math.NaN(), 0}, {1, 1}, {0, 1}, {0, 0}}},
		{"latitude out of range", Quad{{91, 0}, {91, 1}, {0, 1}, {0, 0}}},
		{"infinite longitude", Quad{{1, 0}, {1, math.Inf(1)}, {0, 1}, {0, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.quad.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrDegenerateGeometry))
		})
	}
}

func TestValidateAcceptsEitherWinding(t *testing.T) {
	q := sfQuad()
	mirrored := Quad{q[1], q[0], q[3], q[2]}
	assert.NoError(t, q.Validate())
	assert.NoError(t, mirrored.Validate())
}

func TestUnwrappedAntimeridian(t *testing.T) {
	q := Quad{
		{Lat: -16.0, Lng: 179.5},
		{Lat: -16.0, Lng: -179.5},
		{Lat: -17.0, Lng: -179.5},
		{Lat: -17.0, Lng: 179.5},
	}
	require.NoError(t, q.Validate())
	assert.True(t, q.CrossesAntimeridian())

	u := q.Unwrapped()
	assert.InDelta(t, 180.5, u[TopRight].Lng, 1e-9)
	assert.InDelta(t, 180.5, u[BottomRight].Lng, 1e-9)
	assert.InDelta(t, 179.5, u[BottomLeft].Lng, 1e-9)
	assert.False(t, sfQuad().CrossesAntimeridian())
}

func TestWebMercator(t *testing.T) {
	var p WebMercator
	x, y := p.Project(LatLng{0, 0})
	assert.InDelta(t, 0.5, x, 1e-12)
	assert.InDelta(t, 0.5, y, 1e-12)

	x, y = p.Project(LatLng{MaxMercatorLatitude, -180})
	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, 0, y, 1e-9)

	_, yPole := p.Project(LatLng{90, 0})
	assert.InDelta(t, 0, yPole, 1e-9, "latitude is clamped")

	x, _ = p.Project(LatLng{0, 270})
	assert.InDelta(t, 1.25, x, 1e-12, "longitude is not wrapped")
}

func TestBuildTexCoordsFollowCornerOrder(t *testing.T) {
	g, err := Build(sfQuad(), WebMercator{})
	require.NoError(t, err)

	require.Len(t, g.Vertices, 4)
	for i, v := range g.Vertices {
		assert.Equal(t, TexCoords[i], [2]float32{v.U, v.V}, "corner %s", Corner(i))
	}
	assert.Equal(t, [6]uint16{0, 1, 2, 0, 2, 3}, g.Indices)

	// North-west corner sits up and left of the south-east one.
	assert.Less(t, g.Vertices[TopLeft].X, g.Vertices[BottomRight].X)
	assert.Less(t, g.Vertices[TopLeft].Y, g.Vertices[BottomRight].Y)
}

func TestBuildUsesHostProjector(t *testing.T) {
	calls := 0
	flat := ProjectorFunc(func(c LatLng) (float64, float64) {
		calls++
		return c.Lng, -c.Lat
	})
	g, err := Build(sfQuad(), flat)
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.InDelta(t, -122.46, g.Vertices[TopLeft].X, 1e-4)
	assert.InDelta(t, -37.80, g.Vertices[TopLeft].Y, 1e-4)
}

func TestBuildAntimeridianIsContinuous(t *testing.T) {
	q := Quad{
		{Lat: -16.0, Lng: 179.5},
		{Lat: -16.0, Lng: -179.5},
		{Lat: -17.0, Lng: -179.5},
		{Lat: -17.0, Lng: 179.5},
	}
	g, err := Build(q, WebMercator{})
	require.NoError(t, err)
	width := g.Vertices[TopRight].X - g.Vertices[TopLeft].X
	assert.InDelta(t, 1.0/360, width, 1e-6)
}

func TestBuildRejectsCollapsingProjection(t *testing.T) {
	collapse := ProjectorFunc(func(c LatLng) (float64, float64) {
		return c.Lng, 0
	})
	_, err := Build(sfQuad(), collapse)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDegenerateGeometry))
}

func TestBuildPolarQuad(t *testing.T) {
	// Entirely past the mercator limit: valid on the sphere, flat once
	// projected.
	polar := Quad{{Lat: 89, Lng: 0}, {Lat: 89, Lng: 10}, {Lat: 88, Lng: 10}, {Lat: 88, Lng: 0}}
	require.NoError(t, polar.Validate())
	_, err := Build(polar, WebMercator{})
	assert.True(t, errors.Is(err, errors.ErrDegenerateGeometry))

	// Straddling the limit: the top edge is pinned to the map edge.
	edge := Quad{{Lat: 89, Lng: 0}, {Lat: 89, Lng: 10}, {Lat: 80, Lng: 10}, {Lat: 80, Lng: 0}}
	g, err := Build(edge, WebMercator{})
	require.NoError(t, err)
	assert.InDelta(t, 0, g.Vertices[TopLeft].Y, 1e-6)
	assert.Greater(t, g.Vertices[BottomLeft].Y, g.Vertices[TopLeft].Y)
}

func TestBuildDefaultsToWebMercator(t *testing.T) {
	a, err := Build(sfQuad(), nil)
	require.NoError(t, err)
	b, err := Build(sfQuad(), WebMercator{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestInterleaved(t *testing.T) {
	g, err := Build(sfQuad(), WebMercator{})
	require.NoError(t, err)
	data := g.Interleaved()
	require.Len(t, data, 4*FloatsPerVertex)
	assert.Equal(t, g.Vertices[BottomLeft].X, data[12])
	assert.Equal(t, float32(0), data[14])
	assert.Equal(t, float32(1), data[15])
	assert.Len(t, g.IndexSlice(), 6)
}
