package dgis

import (
	"context"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/parkpass/internal/core/domain"
	"github.com/samirrijal/parkpass/internal/core/ports"
)

type matrixRequest struct {
	Points    []point `json:"points"`
	Transport string  `json:"transport"`
	Sources   []int   `json:"sources"`
	Targets   []int   `json:"targets"`
}

type matrixResponse struct {
	Routes []struct {
		SourceID int     `json:"source_id"`
		TargetID int     `json:"target_id"`
		Distance float64 `json:"distance"`
		Status   string  `json:"status"`
	} `json:"routes"`
}

// WalkingDistances requests a one-to-many walking matrix. The source is
// point 0 and targets are numbered from 1 in the given order. Routes the
// service marks as failed are dropped.
func (c *Client) WalkingDistances(ctx context.Context, source domain.GeoPoint, targets []domain.GeoPoint) ([]ports.MatrixRoute, error) {
	body := matrixRequest{
		Points:    make([]point, 0, len(targets)+1),
		Transport: "walking",
		Sources:   []int{0},
		Targets:   make([]int, 0, len(targets)),
	}
	body.Points = append(body.Points, point{Lat: source.Lat, Lon: source.Lon})
	for i, t := range targets {
		body.Points = append(body.Points, point{Lat: t.Lat, Lon: t.Lon})
		body.Targets = append(body.Targets, i+1)
	}

	var resp matrixResponse
	ok, err := c.call(ctx, EndpointMatrix, fasthttp.MethodPost, map[string]string{"version": "2.0"}, body, &resp)
	if err != nil || !ok {
		return nil, err
	}

	routes := make([]ports.MatrixRoute, 0, len(resp.Routes))
	for _, r := range resp.Routes {
		if r.Status != "" && r.Status != "OK" {
			continue
		}
		routes = append(routes, ports.MatrixRoute{TargetID: r.TargetID, Distance: r.Distance})
	}
	return routes, nil
}
