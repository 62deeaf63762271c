package domain

import (
	"fmt"
	"math"
	"time"
)

// DefaultWalkTimeSeconds is the walk budget used when a request does not set one.
const DefaultWalkTimeSeconds = 900

// TransportMode is the travel mode of a route leg.
type TransportMode string

const (
	ModeCar  TransportMode = "car"
	ModeWalk TransportMode = "walk"
)

// ParkingRouteRequest is the input of one orchestration.
type ParkingRouteRequest struct {
	Origin          GeoPoint `json:"origin"`
	Destination     GeoPoint `json:"destination"`
	WalkTimeSeconds int      `json:"walk_time_seconds"`
}

// RouteLeg is one directional segment of the trip.
type RouteLeg struct {
	Coordinates     []GeoPoint    `json:"coordinates"`
	DistanceMeters  float64       `json:"distance"`
	DurationSeconds float64       `json:"duration"`
	Mode            TransportMode `json:"mode"`
	IsFallback      bool          `json:"is_fallback"`
}

// ParkingRouteResult is the tagged outcome of an orchestration.
// Exactly one of the success fields (Parking and both routes) or Error is set.
type ParkingRouteResult struct {
	OK           bool      `json:"ok"`
	Parking      *GeoPoint `json:"parking,omitempty"`
	DrivingRoute *RouteLeg `json:"driving_route,omitempty"`
	WalkingRoute *RouteLeg `json:"walking_route,omitempty"`
	Error        ErrorCode `json:"error,omitempty"`
	Message      string    `json:"message,omitempty"`
}

// Success builds a success result.
func Success(parking GeoPoint, driving, walking RouteLeg) ParkingRouteResult {
	return ParkingRouteResult{
		OK:           true,
		Parking:      &parking,
		DrivingRoute: &driving,
		WalkingRoute: &walking,
	}
}

// Failure builds a failure result. message is empty for the stage codes.
func Failure(code ErrorCode, message string) ParkingRouteResult {
	return ParkingRouteResult{OK: false, Error: code, Message: message}
}

// Summary is the short user-facing text for the result.
func (r ParkingRouteResult) Summary() string {
	if !r.OK {
		return "Error: " + r.Error.Describe()
	}
	text := "Route built, parking found."
	if r.DrivingRoute != nil && r.WalkingRoute != nil {
		text += fmt.Sprintf(" Time: %d min by car + %d min on foot",
			minutes(r.DrivingRoute.DurationSeconds), minutes(r.WalkingRoute.DurationSeconds))
	}
	return text
}

func minutes(seconds float64) int {
	return int(math.Round(seconds / 60))
}

// SearchRecord is the persisted outcome of one orchestration.
type SearchRecord struct {
	ID              string    `json:"id"`
	RequestID       string    `json:"request_id,omitempty"`
	Origin          GeoPoint  `json:"origin"`
	Destination     GeoPoint  `json:"destination"`
	WalkTimeSeconds int       `json:"walk_time_seconds"`
	OK              bool      `json:"ok"`
	ErrorCode       ErrorCode `json:"error_code,omitempty"`
	Parking         *GeoPoint `json:"parking,omitempty"`
	DriveSeconds    float64   `json:"drive_seconds"`
	WalkSeconds     float64   `json:"walk_seconds"`
	DriveFallback   bool      `json:"drive_fallback"`
	WalkFallback    bool      `json:"walk_fallback"`
	CreatedAt       time.Time `json:"created_at"`
}

// RouteEvent is published after every orchestration. ID is unique per
// event and becomes the ID of the recorded SearchRecord.
type RouteEvent struct {
	ID        string              `json:"id"`
	RequestID string              `json:"request_id,omitempty"`
	Request   ParkingRouteRequest `json:"request"`
	Result    ParkingRouteResult  `json:"result"`
	Time      time.Time           `json:"time"`
}

// Record flattens the event into a SearchRecord.
func (e RouteEvent) Record() SearchRecord {
	rec := SearchRecord{
		ID:              e.ID,
		RequestID:       e.RequestID,
		Origin:          e.Request.Origin,
		Destination:     e.Request.Destination,
		WalkTimeSeconds: e.Request.WalkTimeSeconds,
		OK:              e.Result.OK,
		ErrorCode:       e.Result.Error,
		Parking:         e.Result.Parking,
		CreatedAt:       e.Time,
	}
	if d := e.Result.DrivingRoute; d != nil {
		rec.DriveSeconds = d.DurationSeconds
		rec.DriveFallback = d.IsFallback
	}
	if w := e.Result.WalkingRoute; w != nil {
		rec.WalkSeconds = w.DurationSeconds
		rec.WalkFallback = w.IsFallback
	}
	return rec
}
