package workflows

import (
	"context"
	"errors"

	"github.com/samirrijal/parkpass/internal/core/domain"
	"github.com/samirrijal/parkpass/internal/core/usecases"
	"github.com/samirrijal/parkpass/internal/pkg/logging"
)

// PlanActivities holds the activity implementations for the parking-route workflow.
type PlanActivities struct {
	Planner *usecases.ParkingRouteService
}

// PlanParkingRoute runs the pipeline. It returns an error only when the
// worker is misconfigured; pipeline failures travel in the result.
func (a *PlanActivities) PlanParkingRoute(ctx context.Context, input PlanInput) (domain.ParkingRouteResult, error) {
	if a.Planner == nil {
		return domain.ParkingRouteResult{}, errors.New("planner not configured")
	}
	if input.RequestID != "" {
		ctx = logging.WithRequestID(ctx, input.RequestID)
		ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("request_id", input.RequestID))
	}
	return a.Planner.Plan(ctx, input.Request), nil
}
