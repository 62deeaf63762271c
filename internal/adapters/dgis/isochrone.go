package dgis

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/parkpass/internal/core/domain"
)

type isochroneRequest struct {
	Start     point  `json:"start"`
	Durations []int  `json:"durations"`
	Reverse   bool   `json:"reverse"`
	Transport string `json:"transport"`
}

type isochroneResponse struct {
	Isochrones json.RawMessage `json:"isochrones"`
}

// WalkingIsochrone returns the raw JSON text of the isochrones field,
// or "" when the field is absent, null or empty.
func (c *Client) WalkingIsochrone(ctx context.Context, center domain.GeoPoint, seconds int) (string, error) {
	body := isochroneRequest{
		Start:     point{Lat: center.Lat, Lon: center.Lon},
		Durations: []int{seconds},
		Reverse:   false,
		Transport: "walking",
	}

	var resp isochroneResponse
	ok, err := c.call(ctx, EndpointIsochrone, fasthttp.MethodPost, nil, body, &resp)
	if err != nil || !ok {
		return "", err
	}

	raw := bytes.TrimSpace(resp.Isochrones)
	switch string(raw) {
	case "", "null", "[]", "{}", `""`:
		return "", nil
	}
	return string(raw), nil
}
