package geo

import "math"

// MaxMercatorLatitude is the latitude at which Web Mercator reaches the top
// or bottom edge of the square world.
const MaxMercatorLatitude = 85.051128779806604

// Projector maps geographic coordinates into the host renderer's working
// coordinate space. Hosts supply their own implementation so that globe,
// mercator, or custom projections are honored without the layer assuming a
// flat mapping.
type Projector interface {
	Project(c LatLng) (x, y float64)
}

// ProjectorFunc adapts a function to the Projector interface.
type ProjectorFunc func(c LatLng) (x, y float64)

// Project calls f(c).
func (f ProjectorFunc) Project(c LatLng) (x, y float64) {
	return f(c)
}

// WebMercator projects into the unit-square mercator space used by custom
// map layers: x grows eastward from 0 at -180°, y grows southward from 0 at
// the northern edge. Longitudes outside ±180° extend past the square
// rather than wrapping, which keeps unwrapped quads continuous. Latitudes
// are clamped to ±[MaxMercatorLatitude].
type WebMercator struct{}

// Project implements Projector.
func (WebMercator) Project(c LatLng) (x, y float64) {
	lat := math.Max(-MaxMercatorLatitude, math.Min(MaxMercatorLatitude, c.Lat))
	x = (180 + c.Lng) / 360
	y = (180 - (180/math.Pi)*math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))) / 360
	return x, y
}
