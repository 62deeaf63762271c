package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/parkpass/internal/core/ports"
	"github.com/samirrijal/parkpass/internal/core/usecases"
)

// Pinger is a dependency that can report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
// Everything except Planner is optional.
type Dependencies struct {
	Planner   *usecases.ParkingRouteService
	History   *usecases.HistoryService
	Scheduler ports.PlanScheduler
	NATS      *nats.Conn
	DB        Pinger
	Cache     Pinger
	Version   string
}
