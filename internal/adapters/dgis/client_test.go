package dgis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/parkpass/internal/core/domain"
	"github.com/samirrijal/parkpass/internal/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.GISConfig{
		APIKey:         "test-key",
		IsochroneURL:   srv.URL + "/isochrone/2.0.0",
		RoutingURL:     srv.URL + "/routing/7.0.0/global",
		CatalogURL:     srv.URL + "/3.0/items",
		MatrixURL:      srv.URL + "/get_dist_matrix",
		TimeoutSeconds: 2,
	})
}

func decodeBody(t *testing.T, r *http.Request, v any) {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode body %q: %v", data, err)
	}
}

func TestWalkingIsochrone(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/isochrone/2.0.0" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("expected key in query, got %q", got)
		}
		var body isochroneRequest
		decodeBody(t, r, &body)
		if body.Transport != "walking" || body.Reverse || len(body.Durations) != 1 || body.Durations[0] != 600 {
			t.Errorf("unexpected body %+v", body)
		}
		if body.Start.Lat != 55.76 || body.Start.Lon != 37.62 {
			t.Errorf("unexpected start %+v", body.Start)
		}
		_, _ = w.Write([]byte(`{"isochrones":[{"duration":600,"geometry":"MULTIPOLYGON(((1 2,3 4,1 2)))"}]}`))
	})

	text, err := c.WalkingIsochrone(context.Background(), domain.GeoPoint{Lon: 37.62, Lat: 55.76}, 600)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "MULTIPOLYGON(((1 2,3 4,1 2)))") {
		t.Errorf("expected raw isochrone text, got %q", text)
	}
}

func TestWalkingIsochrone_Empty(t *testing.T) {
	for _, payload := range []string{`{}`, `{"isochrones":null}`, `{"isochrones":[]}`} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(payload))
		})
		text, err := c.WalkingIsochrone(context.Background(), domain.GeoPoint{}, 900)
		if err != nil || text != "" {
			t.Errorf("%s: expected empty result, got %q, %v", payload, text, err)
		}
	}
}

func TestSearchInPolygon(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		q := r.URL.Query()
		if q.Get("q") != "Бесплатная парковка" || q.Get("fields") != "items.point" || q.Get("key") != "test-key" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("polygon") != "POLYGON((1 2,3 4,1 2))" {
			t.Errorf("unexpected polygon %q", q.Get("polygon"))
		}
		_, _ = w.Write([]byte(`{"result":{"items":[{"point":{"lat":55.1,"lon":37.1}},{"name":"no point"},{"point":{"lat":55.2,"lon":37.2}}]}}`))
	})

	points, err := c.SearchInPolygon(context.Background(), "Бесплатная парковка", "POLYGON((1 2,3 4,1 2))")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 || points[0] != (domain.GeoPoint{Lon: 37.1, Lat: 55.1}) {
		t.Errorf("unexpected points %v", points)
	}
}

func TestWalkingDistances(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("version") != "2.0" {
			t.Errorf("expected version=2.0, got %q", r.URL.RawQuery)
		}
		var body matrixRequest
		decodeBody(t, r, &body)
		if len(body.Points) != 3 || body.Points[0].Lat != 55.76 {
			t.Errorf("expected destination first, got %+v", body.Points)
		}
		if len(body.Sources) != 1 || body.Sources[0] != 0 {
			t.Errorf("unexpected sources %v", body.Sources)
		}
		if len(body.Targets) != 2 || body.Targets[0] != 1 || body.Targets[1] != 2 {
			t.Errorf("unexpected targets %v", body.Targets)
		}
		_, _ = w.Write([]byte(`{"routes":[
			{"source_id":0,"target_id":2,"distance":150,"status":"OK"},
			{"source_id":0,"target_id":1,"distance":0,"status":"FAIL"}
		]}`))
	})

	routes, err := c.WalkingDistances(context.Background(),
		domain.GeoPoint{Lon: 37.62, Lat: 55.76},
		[]domain.GeoPoint{{Lon: 37.61, Lat: 55.75}, {Lon: 37.63, Lat: 55.77}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 1 || routes[0].TargetID != 2 || routes[0].Distance != 150 {
		t.Errorf("unexpected routes %+v", routes)
	}
}

func TestRoute(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body routingRequest
		decodeBody(t, r, &body)
		if body.Transport != "pedestrian" {
			t.Errorf("expected pedestrian transport, got %q", body.Transport)
		}
		if len(body.Points) != 2 || body.Points[1].Lon != 37.62 {
			t.Errorf("unexpected points %+v", body.Points)
		}
		_, _ = w.Write([]byte(`{"result":[{"total_distance":420,"total_duration":310,"maneuvers":[
			{"outcoming_path":{"geometry":[{"selection":"LINESTRING(37.61 55.75, 37.615 55.755)"}]}},
			{"comment":"finish"},
			{"outcoming_path":{"geometry":[{"selection":"LINESTRING(37.615 55.755, 37.62 55.76)"},{"selection":""}]}}
		]},{"total_distance":999}]}`))
	})

	raw, err := c.Route(context.Background(),
		domain.GeoPoint{Lon: 37.61, Lat: 55.75}, domain.GeoPoint{Lon: 37.62, Lat: 55.76}, domain.ModeWalk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.TotalDistance != 420 || raw.TotalDuration != 310 {
		t.Errorf("expected first route totals, got %+v", raw)
	}
	if len(raw.Selections) != 2 {
		t.Errorf("expected 2 selections, got %v", raw.Selections)
	}
}

func TestRoute_CarTransport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body routingRequest
		decodeBody(t, r, &body)
		if body.Transport != "car" {
			t.Errorf("expected car transport, got %q", body.Transport)
		}
		_, _ = w.Write([]byte(`{"result":[]}`))
	})

	raw, err := c.Route(context.Background(), domain.GeoPoint{}, domain.GeoPoint{Lat: 1}, domain.ModeCar)
	if err != nil || raw != nil {
		t.Errorf("expected no route, got %+v, %v", raw, err)
	}
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"invalid key"}`))
	})

	_, err := c.SearchInPolygon(context.Background(), "q", "POLYGON((1 2))")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != http.StatusForbidden || se.Endpoint != EndpointCatalog || !strings.Contains(se.Body, "invalid key") {
		t.Errorf("unexpected error %+v", se)
	}
	if strings.Contains(err.Error(), "invalid key") {
		t.Errorf("error text must not carry the response body: %q", err.Error())
	}
}

func TestNoContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	raw, err := c.Route(context.Background(), domain.GeoPoint{}, domain.GeoPoint{Lat: 1}, domain.ModeCar)
	if err != nil || raw != nil {
		t.Errorf("expected nil route, got %+v, %v", raw, err)
	}
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})

	if _, err := c.WalkingDistances(context.Background(), domain.GeoPoint{}, []domain.GeoPoint{{}}); err == nil {
		t.Error("expected decode error")
	}
}

func TestContextDeadline(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.WalkingIsochrone(ctx, domain.GeoPoint{}, 900)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 250*time.Millisecond {
		t.Errorf("expected the context deadline to cut the call short, took %v", time.Since(start))
	}
}

func TestCanceledContext(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Route(ctx, domain.GeoPoint{}, domain.GeoPoint{}, domain.ModeCar); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Error("expected no request for a canceled context")
	}
}
