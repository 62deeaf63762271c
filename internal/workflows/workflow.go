package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/parkpass/internal/core/domain"
)

// PlanInput is the input of the parking-route workflow.
type PlanInput struct {
	RequestID string
	Request   domain.ParkingRouteRequest
}

// ParkingRouteWorkflow runs one orchestration as a durable activity so that
// clients can poll for the result instead of holding a connection open.
// Pipeline failures are part of the result; only infrastructure failures
// fail the workflow.
func ParkingRouteWorkflow(ctx workflow.Context, input PlanInput) (domain.ParkingRouteResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting parking route workflow", "requestID", input.RequestID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 45 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			// Every attempt spends remote API quota.
			MaximumAttempts: 2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var result domain.ParkingRouteResult
	if err := workflow.ExecuteActivity(ctx, "PlanParkingRoute", input).Get(ctx, &result); err != nil {
		logger.Error("parking route activity failed", "error", err)
		return domain.ParkingRouteResult{}, err
	}

	logger.Info("Parking route workflow finished", "ok", result.OK, "code", string(result.Error))
	return result, nil
}
