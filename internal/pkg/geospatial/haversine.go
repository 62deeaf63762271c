package geospatial

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadiusMeters is the mean earth radius used for straight-line estimates.
const EarthRadiusMeters = 6371000.0

// Speed is an assumed average travel speed in km/h.
type Speed float64

const (
	CarSpeed  Speed = 50
	WalkSpeed Speed = 5
)

// MetersPerSecond converts the speed to m/s.
func (s Speed) MetersPerSecond() float64 {
	return float64(s) / 3.6
}

// Distance returns the great-circle distance in meters between two
// [lon, lat] points.
func Distance(a, b orb.Point) float64 {
	lat1, lat2 := radians(a.Lat()), radians(b.Lat())
	h := hav(lat2-lat1) + math.Cos(lat1)*math.Cos(lat2)*hav(radians(b.Lon()-a.Lon()))
	// Rounding can push h past 1 for antipodal points.
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(math.Min(1, h)))
}

// Estimate is a straight-line distance and the time to cover it.
type Estimate struct {
	Meters  float64
	Seconds float64
}

// Straight estimates travel from a to b in a straight line at speed s.
func Straight(a, b orb.Point, s Speed) Estimate {
	d := Distance(a, b)
	return Estimate{Meters: d, Seconds: d / s.MetersPerSecond()}
}

func hav(theta float64) float64 {
	s := math.Sin(theta / 2)
	return s * s
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
