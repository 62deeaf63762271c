package dgis

import (
	"context"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/parkpass/internal/core/domain"
)

type catalogResponse struct {
	Result struct {
		Items []struct {
			Point *point `json:"point"`
		} `json:"items"`
	} `json:"result"`
}

// SearchInPolygon returns the points of the catalog items matching query
// inside polygon. Only the first page is read; items without a point are skipped.
func (c *Client) SearchInPolygon(ctx context.Context, query, polygon string) ([]domain.GeoPoint, error) {
	params := map[string]string{
		"q":       query,
		"fields":  "items.point",
		"polygon": polygon,
	}

	var resp catalogResponse
	ok, err := c.call(ctx, EndpointCatalog, fasthttp.MethodGet, params, nil, &resp)
	if err != nil || !ok {
		return nil, err
	}

	points := make([]domain.GeoPoint, 0, len(resp.Result.Items))
	for _, item := range resp.Result.Items {
		if item.Point == nil {
			continue
		}
		points = append(points, domain.GeoPoint{Lon: item.Point.Lon, Lat: item.Point.Lat})
	}
	return points, nil
}
