package http

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/parkpass/internal/core/domain"
)

// Walk-time budget accepted from clients, in seconds.
const (
	MinWalkTimeSeconds = 60
	MaxWalkTimeSeconds = 3600
)

// planRequest is the body of the parking-route endpoints.
type planRequest struct {
	Origin          *domain.GeoPoint `json:"origin"`
	Destination     *domain.GeoPoint `json:"destination"`
	WalkTimeSeconds *int             `json:"walk_time_seconds"`
}

// RouteResponse is a pipeline result with map helpers for the client.
type RouteResponse struct {
	domain.ParkingRouteResult
	Bounds  *domain.Bounds `json:"bounds,omitempty"`
	Summary string         `json:"summary"`
}

func newRouteResponse(res domain.ParkingRouteResult) RouteResponse {
	resp := RouteResponse{ParkingRouteResult: res, Summary: res.Summary()}
	if res.OK {
		points := []domain.GeoPoint{*res.Parking}
		points = append(points, res.DrivingRoute.Coordinates...)
		points = append(points, res.WalkingRoute.Coordinates...)
		b := domain.BoundsOf(points...)
		resp.Bounds = &b
	}
	return resp
}

// buildRequest validates client input. A nil walk time selects the default.
func buildRequest(origin, destination *domain.GeoPoint, walkTime *int) (domain.ParkingRouteRequest, error) {
	if origin == nil || destination == nil {
		return domain.ParkingRouteRequest{}, errors.New("origin and destination are required")
	}
	if !origin.Valid() {
		return domain.ParkingRouteRequest{}, errors.New("origin coordinates are out of range")
	}
	if !destination.Valid() {
		return domain.ParkingRouteRequest{}, errors.New("destination coordinates are out of range")
	}

	req := domain.ParkingRouteRequest{Origin: *origin, Destination: *destination}
	if walkTime != nil {
		if *walkTime < MinWalkTimeSeconds || *walkTime > MaxWalkTimeSeconds {
			return domain.ParkingRouteRequest{}, fmt.Errorf("walk_time_seconds must be between %d and %d", MinWalkTimeSeconds, MaxWalkTimeSeconds)
		}
		req.WalkTimeSeconds = *walkTime
	}
	return req, nil
}

func parsePlanRequest(c *fiber.Ctx) (domain.ParkingRouteRequest, error) {
	var body planRequest
	if err := c.BodyParser(&body); err != nil {
		return domain.ParkingRouteRequest{}, errors.New("invalid request body")
	}
	return buildRequest(body.Origin, body.Destination, body.WalkTimeSeconds)
}

// PlanRouteHandler runs the pipeline synchronously. Pipeline failures are
// reported in the body with status 200; only invalid input is a 400.
func PlanRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := parsePlanRequest(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		res := deps.Planner.Plan(c.UserContext(), req)
		setResultCode(c, res)
		return c.JSON(newRouteResponse(res))
	}
}

// PlanRouteGeoJSONHandler runs the pipeline and returns the parking spot
// and both legs as a GeoJSON FeatureCollection.
func PlanRouteGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := parsePlanRequest(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		res := deps.Planner.Plan(c.UserContext(), req)
		setResultCode(c, res)
		if !res.OK {
			return errPipeline(c, res)
		}

		data, err := FeatureCollection(res).MarshalJSON()
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}

// ScheduleRouteHandler starts an asynchronous plan.
func ScheduleRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Scheduler == nil {
			return errUnavailable(c, "asynchronous planning is not configured")
		}
		req, err := parsePlanRequest(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		id, err := deps.Scheduler.Schedule(c.UserContext(), req)
		if err != nil {
			return errInternal(c, err.Error())
		}

		statusURL := "/v1/parking-routes/async/" + id
		c.Location(statusURL)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"id":         id,
			"status":     "running",
			"status_url": statusURL,
		})
	}
}

// AsyncRouteResultHandler returns the result of an asynchronous plan, or
// 202 while it is still running.
func AsyncRouteResultHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Scheduler == nil {
			return errUnavailable(c, "asynchronous planning is not configured")
		}
		id := c.Params("id")

		res, done, err := deps.Scheduler.Result(c.UserContext(), id)
		if errors.Is(err, domain.ErrNotFound) {
			return errNotFound(c, "plan not found")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		if !done {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": id, "status": "running"})
		}
		return c.JSON(newRouteResponse(*res))
	}
}

// ListHistoryHandler returns past orchestrations, newest first.
func ListHistoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.History == nil {
			return errUnavailable(c, "search history is not configured")
		}

		pg := pageFromQuery(c)

		records, total, err := deps.History.List(c.UserContext(), pg.Offset, pg.Limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if records == nil {
			records = []domain.SearchRecord{}
		}

		pg.Total = total
		c.Set("Link", linkHeader(c.Path(), pg))
		return c.JSON(PaginatedResponse{Data: records, Pagination: pg})
	}
}

// GetHistoryHandler returns one past orchestration.
func GetHistoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.History == nil {
			return errUnavailable(c, "search history is not configured")
		}

		rec, err := deps.History.GetByID(c.UserContext(), c.Params("id"))
		if errors.Is(err, domain.ErrNotFound) {
			return errNotFound(c, "record not found")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(rec)
	}
}
