// Package dgis is a client for the 2GIS isochrone, catalog, distance matrix
// and routing APIs.
package dgis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/parkpass/internal/pkg/config"
	"github.com/samirrijal/parkpass/internal/pkg/logging"
	"github.com/samirrijal/parkpass/internal/pkg/metrics"
)

// Endpoint names used in metrics and errors.
const (
	EndpointIsochrone = "isochrone"
	EndpointCatalog   = "catalog"
	EndpointMatrix    = "matrix"
	EndpointRouting   = "routing"
)

const maxErrorBody = 256

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.Status)
}

// Client implements the isochrone, place search, distance matrix and route
// ports. It is safe for concurrent use.
type Client struct {
	http    *fasthttp.Client
	key     string
	urls    map[string]string
	timeout time.Duration
}

// NewClient creates a client from the GIS configuration.
func NewClient(cfg config.GISConfig) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http: &fasthttp.Client{
			Name:                "parkpass",
			MaxConnsPerHost:     64,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 30 * time.Second,
		},
		key: cfg.APIKey,
		urls: map[string]string{
			EndpointIsochrone: cfg.IsochroneURL,
			EndpointCatalog:   cfg.CatalogURL,
			EndpointMatrix:    cfg.MatrixURL,
			EndpointRouting:   cfg.RoutingURL,
		},
		timeout: timeout,
	}
}

// call sends one request and decodes a JSON response into out. query holds
// extra query parameters; the API key is always added. A 204 response
// leaves out untouched and reports ok=false.
func (c *Client) call(ctx context.Context, endpoint, method string, query map[string]string, body any, out any) (ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%s: %w", endpoint, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.urls[endpoint])
	req.Header.SetMethod(method)
	args := req.URI().QueryArgs()
	for k, v := range query {
		args.Set(k, v)
	}
	args.Set("key", c.key)

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("%s: encode request: %w", endpoint, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(data)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	err = c.http.DoDeadline(req, resp, deadline)
	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode())
	}
	metrics.GISRequestDuration.WithLabelValues(endpoint, status).Observe(time.Since(start).Seconds())

	if err != nil {
		return false, fmt.Errorf("%s: %w", endpoint, err)
	}

	code := resp.StatusCode()
	logging.FromContext(ctx).Debug("gis request", "endpoint", endpoint, "status", code, "duration", time.Since(start))

	if code == fasthttp.StatusNoContent {
		return false, nil
	}
	if code < 200 || code > 299 {
		excerpt := resp.Body()
		if len(excerpt) > maxErrorBody {
			excerpt = excerpt[:maxErrorBody]
		}
		return false, &StatusError{Endpoint: endpoint, Status: code, Body: string(excerpt)}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return false, fmt.Errorf("%s: decode response: %w", endpoint, err)
	}
	return true, nil
}

type point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
