package http

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/parkpass/internal/core/domain"
)

// FeatureCollection converts a successful result into GeoJSON: the parking
// point followed by the drive and walk lines.
func FeatureCollection(res domain.ParkingRouteResult) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if !res.OK {
		return fc
	}

	parking := geojson.NewFeature(orb.Point{res.Parking.Lon, res.Parking.Lat})
	parking.Properties["kind"] = "parking"
	fc.Append(parking)

	for _, leg := range []*domain.RouteLeg{res.DrivingRoute, res.WalkingRoute} {
		line := make(orb.LineString, 0, len(leg.Coordinates))
		for _, p := range leg.Coordinates {
			line = append(line, orb.Point{p.Lon, p.Lat})
		}
		f := geojson.NewFeature(line)
		f.Properties["kind"] = "route"
		f.Properties["mode"] = string(leg.Mode)
		f.Properties["is_fallback"] = leg.IsFallback
		f.Properties["distance"] = leg.DistanceMeters
		f.Properties["duration"] = leg.DurationSeconds
		fc.Append(f)
	}
	return fc
}
