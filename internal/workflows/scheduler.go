package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/parkpass/internal/core/domain"
	"github.com/samirrijal/parkpass/internal/pkg/logging"
)

// WorkflowIDPrefix prefixes the workflow ID of every scheduled plan.
const WorkflowIDPrefix = "parking-route-"

// Scheduler starts parking-route workflows on Temporal and reads their results.
type Scheduler struct {
	client    client.Client
	taskQueue string
}

// NewScheduler creates a scheduler submitting to taskQueue.
func NewScheduler(c client.Client, taskQueue string) *Scheduler {
	return &Scheduler{client: c, taskQueue: taskQueue}
}

// Schedule starts a workflow and returns its ID.
func (s *Scheduler) Schedule(ctx context.Context, req domain.ParkingRouteRequest) (string, error) {
	opts := client.StartWorkflowOptions{
		ID:                       WorkflowIDPrefix + uuid.NewString(),
		TaskQueue:                s.taskQueue,
		WorkflowExecutionTimeout: 2 * time.Minute,
	}
	input := PlanInput{RequestID: logging.RequestIDFrom(ctx), Request: req}

	run, err := s.client.ExecuteWorkflow(ctx, opts, ParkingRouteWorkflow, input)
	if err != nil {
		return "", fmt.Errorf("start parking route workflow: %w", err)
	}
	return run.GetID(), nil
}

// Result returns the workflow result once it has completed. Workflows that
// ended any other way (failed, timed out, terminated, canceled) are reported
// as unknown_error results.
func (s *Scheduler) Result(ctx context.Context, id string) (*domain.ParkingRouteResult, bool, error) {
	desc, err := s.client.DescribeWorkflowExecution(ctx, id, "")
	if err != nil {
		var nf *serviceerror.NotFound
		if errors.As(err, &nf) {
			return nil, false, domain.ErrNotFound
		}
		return nil, false, fmt.Errorf("describe workflow %s: %w", id, err)
	}

	status := desc.GetWorkflowExecutionInfo().GetStatus()
	switch status {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		return nil, false, nil
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		var res domain.ParkingRouteResult
		if err := s.client.GetWorkflow(ctx, id, "").Get(ctx, &res); err != nil {
			return nil, false, fmt.Errorf("get workflow %s result: %w", id, err)
		}
		return &res, true, nil
	default:
		res := domain.Failure(domain.ErrCodeUnknown, fmt.Sprintf("plan ended with status %s", status))
		return &res, true, nil
	}
}

// Ping checks the Temporal frontend.
func (s *Scheduler) Ping(ctx context.Context) error {
	_, err := s.client.CheckHealth(ctx, &client.CheckHealthRequest{})
	return err
}
