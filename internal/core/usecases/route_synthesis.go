package usecases

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/samirrijal/parkpass/internal/core/domain"
	"github.com/samirrijal/parkpass/internal/core/ports"
	"github.com/samirrijal/parkpass/internal/pkg/geospatial"
)

// DecodeGeometry concatenates the line-string segments of a route into one
// coordinate sequence. Repeated coordinates are dropped, keeping the first
// occurrence. Segments that are not valid LINESTRING text are skipped.
func DecodeGeometry(raw *ports.RawRoute) []domain.GeoPoint {
	if raw == nil {
		return nil
	}

	var coords []domain.GeoPoint
	seen := make(map[orb.Point]struct{})
	for _, selection := range raw.Selections {
		ls, err := wkt.UnmarshalLineString(selection)
		if err != nil {
			continue
		}
		for _, p := range ls {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			coords = append(coords, domain.GeoPoint{Lon: p.Lon(), Lat: p.Lat()})
		}
	}
	return coords
}

// SynthesizeLeg turns a routing response into a RouteLeg. Without usable
// geometry the leg is a straight-line estimate marked as fallback; missing
// totals alone are replaced by the estimate without marking the leg.
func SynthesizeLeg(from, to domain.GeoPoint, mode domain.TransportMode, raw *ports.RawRoute) domain.RouteLeg {
	coords := DecodeGeometry(raw)
	if len(coords) == 0 {
		return FallbackLeg(from, to, mode)
	}

	leg := domain.RouteLeg{
		Coordinates:     coords,
		DistanceMeters:  raw.TotalDistance,
		DurationSeconds: raw.TotalDuration,
		Mode:            mode,
	}

	estimate := geospatial.Straight(toPoint(from), toPoint(to), speedFor(mode))
	if leg.DistanceMeters <= 0 {
		leg.DistanceMeters = estimate.Meters
	}
	if leg.DurationSeconds <= 0 {
		leg.DurationSeconds = estimate.Seconds
	}
	return leg
}

// FallbackLeg is a straight two-point line with haversine distance and a
// duration at the assumed speed for mode.
func FallbackLeg(from, to domain.GeoPoint, mode domain.TransportMode) domain.RouteLeg {
	estimate := geospatial.Straight(toPoint(from), toPoint(to), speedFor(mode))
	return domain.RouteLeg{
		Coordinates:     []domain.GeoPoint{from, to},
		DistanceMeters:  estimate.Meters,
		DurationSeconds: estimate.Seconds,
		Mode:            mode,
		IsFallback:      true,
	}
}

func speedFor(mode domain.TransportMode) geospatial.Speed {
	if mode == domain.ModeCar {
		return geospatial.CarSpeed
	}
	return geospatial.WalkSpeed
}

func toPoint(p domain.GeoPoint) orb.Point {
	return orb.Point{p.Lon, p.Lat}
}
