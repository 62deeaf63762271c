package ports

import (
	"context"

	"github.com/samirrijal/parkpass/internal/core/domain"
)

// IsochroneProvider returns the reachable-area boundary around a point.
type IsochroneProvider interface {
	// WalkingIsochrone returns the raw multi-polygon text, or "" when the
	// service answered without isochrone data.
	WalkingIsochrone(ctx context.Context, center domain.GeoPoint, seconds int) (string, error)
}

// PlaceSearcher finds catalog items inside a polygon.
type PlaceSearcher interface {
	SearchInPolygon(ctx context.Context, query, polygon string) ([]domain.GeoPoint, error)
}

// MatrixRoute is one cell of a one-to-many distance matrix.
// TargetID is the index of the target in the request's point list (1-based).
type MatrixRoute struct {
	TargetID int
	Distance float64
}

// DistanceMatrix computes walking distances from one source to many targets.
type DistanceMatrix interface {
	WalkingDistances(ctx context.Context, source domain.GeoPoint, targets []domain.GeoPoint) ([]MatrixRoute, error)
}

// RawRoute is the undecoded first route of a routing response.
// Selections holds the line-string text of every maneuver segment in order.
// Zero distance or duration means the field was absent.
type RawRoute struct {
	TotalDistance float64
	TotalDuration float64
	Selections    []string
}

// RouteProvider computes a two-point route. A nil route with a nil error
// means the service returned no routes.
type RouteProvider interface {
	Route(ctx context.Context, from, to domain.GeoPoint, mode domain.TransportMode) (*RawRoute, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishRouteEvent(ctx context.Context, event *domain.RouteEvent) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeRouteEvents(ctx context.Context, handler func(ctx context.Context, event *domain.RouteEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
}

// PlanScheduler runs orchestrations asynchronously.
type PlanScheduler interface {
	// Schedule starts a plan and returns its ID.
	Schedule(ctx context.Context, req domain.ParkingRouteRequest) (string, error)
	// Result returns the finished result, or done=false while the plan is running.
	Result(ctx context.Context, id string) (result *domain.ParkingRouteResult, done bool, err error)
}
