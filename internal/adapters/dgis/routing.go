package dgis

import (
	"context"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/parkpass/internal/core/domain"
	"github.com/samirrijal/parkpass/internal/core/ports"
)

type routingRequest struct {
	Points    []point `json:"points"`
	Transport string  `json:"transport"`
}

type routingResponse struct {
	Result []struct {
		TotalDistance float64 `json:"total_distance"`
		TotalDuration float64 `json:"total_duration"`
		Maneuvers     []struct {
			OutcomingPath *struct {
				Geometry []struct {
					Selection string `json:"selection"`
				} `json:"geometry"`
			} `json:"outcoming_path"`
		} `json:"maneuvers"`
	} `json:"result"`
}

// Route requests a two-point route and returns its first alternative
// undecoded. It returns nil when the service found no route.
func (c *Client) Route(ctx context.Context, from, to domain.GeoPoint, mode domain.TransportMode) (*ports.RawRoute, error) {
	body := routingRequest{
		Points: []point{
			{Lat: from.Lat, Lon: from.Lon},
			{Lat: to.Lat, Lon: to.Lon},
		},
		Transport: transport(mode),
	}

	var resp routingResponse
	ok, err := c.call(ctx, EndpointRouting, fasthttp.MethodPost, nil, body, &resp)
	if err != nil || !ok || len(resp.Result) == 0 {
		return nil, err
	}

	first := resp.Result[0]
	raw := &ports.RawRoute{
		TotalDistance: first.TotalDistance,
		TotalDuration: first.TotalDuration,
	}
	for _, m := range first.Maneuvers {
		if m.OutcomingPath == nil {
			continue
		}
		for _, g := range m.OutcomingPath.Geometry {
			if g.Selection != "" {
				raw.Selections = append(raw.Selections, g.Selection)
			}
		}
	}
	return raw, nil
}

func transport(mode domain.TransportMode) string {
	if mode == domain.ModeCar {
		return "car"
	}
	return "pedestrian"
}
