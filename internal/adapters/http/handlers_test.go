package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/parkpass/internal/adapters/http"
	"github.com/samirrijal/parkpass/internal/core/domain"
	"github.com/samirrijal/parkpass/internal/core/ports"
	"github.com/samirrijal/parkpass/internal/core/usecases"
)

// ---- Mock GIS ports ----

type mockIsochrones struct {
	fn func(ctx context.Context, center domain.GeoPoint, seconds int) (string, error)
}

func (m *mockIsochrones) WalkingIsochrone(ctx context.Context, center domain.GeoPoint, seconds int) (string, error) {
	return m.fn(ctx, center, seconds)
}

type mockPlaces struct {
	fn func(ctx context.Context, query, polygon string) ([]domain.GeoPoint, error)
}

func (m *mockPlaces) SearchInPolygon(ctx context.Context, query, polygon string) ([]domain.GeoPoint, error) {
	return m.fn(ctx, query, polygon)
}

type mockMatrix struct {
	fn func(ctx context.Context, source domain.GeoPoint, targets []domain.GeoPoint) ([]ports.MatrixRoute, error)
}

func (m *mockMatrix) WalkingDistances(ctx context.Context, source domain.GeoPoint, targets []domain.GeoPoint) ([]ports.MatrixRoute, error) {
	return m.fn(ctx, source, targets)
}

type mockRouter struct {
	fn func(ctx context.Context, from, to domain.GeoPoint, mode domain.TransportMode) (*ports.RawRoute, error)
}

func (m *mockRouter) Route(ctx context.Context, from, to domain.GeoPoint, mode domain.TransportMode) (*ports.RawRoute, error) {
	return m.fn(ctx, from, to, mode)
}

// ---- Mock repositories and backends ----

type mockSearchRepo struct {
	listFn    func(ctx context.Context, offset, limit int) ([]domain.SearchRecord, int, error)
	getByIDFn func(ctx context.Context, id string) (*domain.SearchRecord, error)
}

func (m *mockSearchRepo) Insert(ctx context.Context, rec *domain.SearchRecord) error { return nil }
func (m *mockSearchRepo) GetByID(ctx context.Context, id string) (*domain.SearchRecord, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockSearchRepo) List(ctx context.Context, offset, limit int) ([]domain.SearchRecord, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

type mockScheduler struct {
	scheduleFn func(ctx context.Context, req domain.ParkingRouteRequest) (string, error)
	resultFn   func(ctx context.Context, id string) (*domain.ParkingRouteResult, bool, error)
}

func (m *mockScheduler) Schedule(ctx context.Context, req domain.ParkingRouteRequest) (string, error) {
	return m.scheduleFn(ctx, req)
}
func (m *mockScheduler) Result(ctx context.Context, id string) (*domain.ParkingRouteResult, bool, error) {
	return m.resultFn(ctx, id)
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

// ---- Helpers ----

type gisMocks struct {
	isochrones *mockIsochrones
	places     *mockPlaces
	matrix     *mockMatrix
	router     *mockRouter
}

func happyGIS() *gisMocks {
	return &gisMocks{
		isochrones: &mockIsochrones{fn: func(ctx context.Context, center domain.GeoPoint, seconds int) (string, error) {
			return `[{"duration":900,"geometry":"MULTIPOLYGON(((37.61 55.75,37.63 55.75,37.63 55.77,37.61 55.75)))"}]`, nil
		}},
		places: &mockPlaces{fn: func(ctx context.Context, query, polygon string) ([]domain.GeoPoint, error) {
			return []domain.GeoPoint{{Lon: 37.615, Lat: 55.758}}, nil
		}},
		matrix: &mockMatrix{fn: func(ctx context.Context, source domain.GeoPoint, targets []domain.GeoPoint) ([]ports.MatrixRoute, error) {
			return []ports.MatrixRoute{{TargetID: 1, Distance: 320}}, nil
		}},
		router: &mockRouter{fn: func(ctx context.Context, from, to domain.GeoPoint, mode domain.TransportMode) (*ports.RawRoute, error) {
			if mode == domain.ModeCar {
				return &ports.RawRoute{
					TotalDistance: 1800,
					TotalDuration: 360,
					Selections:    []string{"LINESTRING(37.6 55.75,37.615 55.758)"},
				}, nil
			}
			return &ports.RawRoute{
				TotalDistance: 400,
				TotalDuration: 300,
				Selections:    []string{"LINESTRING(37.615 55.758,37.62 55.76)"},
			}, nil
		}},
	}
}

func (g *gisMocks) planner() *usecases.ParkingRouteService {
	return usecases.NewParkingRouteService(g.isochrones, g.places, g.matrix, g.router, nil, nil, usecases.ParkingRouteOptions{})
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	deps := &handler.Dependencies{Planner: happyGIS().planner()}
	for _, o := range opts {
		o(deps)
	}
	return deps
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return data
}

func doPost(t *testing.T, app *fiber.App, path, body string) (int, []byte, map[string]string) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	headers := map[string]string{
		"Content-Type": resp.Header.Get("Content-Type"),
		"Location":     resp.Header.Get("Location"),
	}
	return resp.StatusCode, readBody(t, resp.Body), headers
}

func doGet(t *testing.T, app *fiber.App, path string) (int, []byte, map[string]string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	headers := map[string]string{
		"Link":          resp.Header.Get("Link"),
		"Cache-Control": resp.Header.Get("Cache-Control"),
	}
	return resp.StatusCode, readBody(t, resp.Body), headers
}

const planBody = `{"origin":{"lon":37.60,"lat":55.75},"destination":{"lon":37.62,"lat":55.76},"walk_time_seconds":600}`

// ---- Tests ----

func TestPlanRoute_Success(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := doPost(t, app, "/v1/parking-routes", planBody)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var result handler.RouteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !result.OK || result.Parking == nil || *result.Parking != (domain.GeoPoint{Lon: 37.615, Lat: 55.758}) {
		t.Errorf("unexpected result %+v", result.ParkingRouteResult)
	}
	if result.DrivingRoute == nil || result.DrivingRoute.DistanceMeters != 1800 {
		t.Errorf("unexpected driving route %+v", result.DrivingRoute)
	}
	if result.Summary != "Route built, parking found. Time: 6 min by car + 5 min on foot" {
		t.Errorf("unexpected summary %q", result.Summary)
	}
	if result.Bounds == nil || result.Bounds.MinLon != 37.6 || result.Bounds.MaxLat != 55.76 {
		t.Errorf("unexpected bounds %+v", result.Bounds)
	}
}

func TestPlanRoute_PassesWalkTime(t *testing.T) {
	gis := happyGIS()
	var gotSeconds int
	gis.isochrones.fn = func(ctx context.Context, center domain.GeoPoint, seconds int) (string, error) {
		gotSeconds = seconds
		return "", nil
	}
	app := setupApp(&handler.Dependencies{Planner: gis.planner()})

	doPost(t, app, "/v1/parking-routes", planBody)
	if gotSeconds != 600 {
		t.Errorf("expected walk time 600, got %d", gotSeconds)
	}

	doPost(t, app, "/v1/parking-routes", `{"origin":{"lon":37.6,"lat":55.75},"destination":{"lon":37.62,"lat":55.76}}`)
	if gotSeconds != domain.DefaultWalkTimeSeconds {
		t.Errorf("expected default walk time, got %d", gotSeconds)
	}
}

func TestPlanRoute_InvalidInput(t *testing.T) {
	app := setupApp(makeDeps())

	cases := map[string]string{
		"malformed body":    `{"origin":`,
		"missing origin":    `{"destination":{"lon":37.62,"lat":55.76}}`,
		"latitude range":    `{"origin":{"lon":37.6,"lat":95},"destination":{"lon":37.62,"lat":55.76}}`,
		"walk time too low": `{"origin":{"lon":37.6,"lat":55.75},"destination":{"lon":37.62,"lat":55.76},"walk_time_seconds":30}`,
		"walk time too big": `{"origin":{"lon":37.6,"lat":55.75},"destination":{"lon":37.62,"lat":55.76},"walk_time_seconds":7200}`,
	}
	for name, body := range cases {
		status, resp, _ := doPost(t, app, "/v1/parking-routes", body)
		if status != 400 {
			t.Errorf("%s: expected 400, got %d", name, status)
			continue
		}
		var apiErr handler.APIError
		if err := json.Unmarshal(resp, &apiErr); err != nil || apiErr.Code != "bad_request" {
			t.Errorf("%s: expected bad_request error, got %s", name, resp)
		}
	}
}

func TestPlanRoute_PipelineFailure(t *testing.T) {
	gis := happyGIS()
	gis.places.fn = func(ctx context.Context, query, polygon string) ([]domain.GeoPoint, error) {
		return nil, nil
	}
	app := setupApp(&handler.Dependencies{Planner: gis.planner()})

	status, body, _ := doPost(t, app, "/v1/parking-routes", planBody)
	if status != 200 {
		t.Fatalf("pipeline failures are reported in the body, got %d", status)
	}

	var result handler.RouteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if result.OK || result.Error != domain.ErrCodeNoParkingFound {
		t.Errorf("expected no_parking_found, got %+v", result.ParkingRouteResult)
	}
	if result.Bounds != nil || result.Parking != nil {
		t.Error("failure must not carry success fields")
	}
	if !strings.HasPrefix(result.Summary, "Error: ") {
		t.Errorf("unexpected summary %q", result.Summary)
	}
	if strings.Contains(string(body), `"message"`) {
		t.Errorf("stage failures carry no message, got %s", body)
	}
}

func TestPlanRouteGeoJSON_Success(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, headers := doPost(t, app, "/v1/parking-routes/geojson", planBody)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if headers["Content-Type"] != "application/geo+json" {
		t.Errorf("unexpected content type %q", headers["Content-Type"])
	}

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(body, &fc); err != nil {
		t.Fatalf("failed to parse GeoJSON: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 3 {
		t.Fatalf("expected 3 features, got %+v", fc)
	}
	if fc.Features[0].Geometry.Type != "Point" || fc.Features[1].Geometry.Type != "LineString" {
		t.Errorf("unexpected geometry order %+v", fc.Features)
	}
	if fc.Features[1].Properties["mode"] != "car" || fc.Features[2].Properties["mode"] != "walk" {
		t.Errorf("unexpected leg properties %+v", fc.Features)
	}
}

func TestPlanRouteGeoJSON_Failure(t *testing.T) {
	gis := happyGIS()
	gis.isochrones.fn = func(ctx context.Context, center domain.GeoPoint, seconds int) (string, error) {
		return "", errors.New("upstream down")
	}
	app := setupApp(&handler.Dependencies{Planner: gis.planner()})

	status, body, _ := doPost(t, app, "/v1/parking-routes/geojson", planBody)
	if status != 422 {
		t.Fatalf("expected 422, got %d", status)
	}
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatalf("failed to parse error: %v", err)
	}
	if apiErr.Code != string(domain.ErrCodePolygonNotFound) {
		t.Errorf("expected polygon_not_found, got %q", apiErr.Code)
	}
}

func TestScheduleRoute_NotConfigured(t *testing.T) {
	app := setupApp(makeDeps())

	status, _, _ := doPost(t, app, "/v1/parking-routes/async", planBody)
	if status != 503 {
		t.Errorf("expected 503, got %d", status)
	}
	status, _, _ = doGet(t, app, "/v1/parking-routes/async/abc")
	if status != 503 {
		t.Errorf("expected 503, got %d", status)
	}
}

func TestScheduleRoute_Accepted(t *testing.T) {
	var got domain.ParkingRouteRequest
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Scheduler = &mockScheduler{
			scheduleFn: func(ctx context.Context, req domain.ParkingRouteRequest) (string, error) {
				got = req
				return "plan-1", nil
			},
		}
	})
	app := setupApp(deps)

	status, body, headers := doPost(t, app, "/v1/parking-routes/async", planBody)
	if status != 202 {
		t.Fatalf("expected 202, got %d: %s", status, body)
	}
	if headers["Location"] != "/v1/parking-routes/async/plan-1" {
		t.Errorf("unexpected Location %q", headers["Location"])
	}
	var resp map[string]string
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["id"] != "plan-1" || resp["status"] != "running" {
		t.Errorf("unexpected response %v", resp)
	}
	if got.WalkTimeSeconds != 600 || got.Destination.Lat != 55.76 {
		t.Errorf("unexpected scheduled request %+v", got)
	}
}

func TestAsyncRouteResult(t *testing.T) {
	finished := domain.Failure(domain.ErrCodeNoParkingFound, "")
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Scheduler = &mockScheduler{
			resultFn: func(ctx context.Context, id string) (*domain.ParkingRouteResult, bool, error) {
				switch id {
				case "running":
					return nil, false, nil
				case "done":
					return &finished, true, nil
				case "broken":
					return nil, false, errors.New("temporal unavailable")
				}
				return nil, false, domain.ErrNotFound
			},
		}
	})
	app := setupApp(deps)

	tests := []struct {
		id     string
		status int
	}{
		{"running", 202},
		{"done", 200},
		{"missing", 404},
		{"broken", 500},
	}
	for _, tt := range tests {
		status, body, headers := doGet(t, app, "/v1/parking-routes/async/"+tt.id)
		if status != tt.status {
			t.Errorf("%s: expected %d, got %d", tt.id, tt.status, status)
		}
		if headers["Cache-Control"] != "no-store" {
			t.Errorf("%s: expected no-store, got %q", tt.id, headers["Cache-Control"])
		}
		if tt.id == "done" && !strings.Contains(string(body), `"error":"no_parking_found"`) {
			t.Errorf("expected finished result, got %s", body)
		}
	}
}

func TestListHistory_Pagination(t *testing.T) {
	var gotOffset, gotLimit int
	repo := &mockSearchRepo{
		listFn: func(ctx context.Context, offset, limit int) ([]domain.SearchRecord, int, error) {
			gotOffset, gotLimit = offset, limit
			return []domain.SearchRecord{
				{ID: "a", OK: true, CreatedAt: time.Now()},
				{ID: "b", ErrorCode: domain.ErrCodeNoParkingFound, CreatedAt: time.Now()},
			}, 5, nil
		},
	}
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.History = usecases.NewHistoryService(repo)
	}))

	status, body, headers := doGet(t, app, "/v1/parking-routes/history?offset=2&limit=2")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if gotOffset != 2 || gotLimit != 2 {
		t.Errorf("expected offset 2 limit 2, got %d %d", gotOffset, gotLimit)
	}

	var page struct {
		Data       []domain.SearchRecord `json:"data"`
		Pagination handler.Pagination    `json:"pagination"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(page.Data) != 2 || page.Pagination.Total != 5 {
		t.Errorf("unexpected page %+v", page)
	}

	link := headers["Link"]
	for _, rel := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `rel="last"`} {
		if !strings.Contains(link, rel) {
			t.Errorf("Link header missing %s: %q", rel, link)
		}
	}
	if headers["Cache-Control"] != "private, max-age=10" {
		t.Errorf("unexpected Cache-Control %q", headers["Cache-Control"])
	}
}

func TestListHistory_ClampsLimit(t *testing.T) {
	var gotLimit int
	repo := &mockSearchRepo{
		listFn: func(ctx context.Context, offset, limit int) ([]domain.SearchRecord, int, error) {
			gotLimit = limit
			return nil, 0, nil
		},
	}
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.History = usecases.NewHistoryService(repo)
	}))

	status, body, _ := doGet(t, app, "/v1/parking-routes/history?limit=500")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if gotLimit != 20 {
		t.Errorf("expected clamped limit 20, got %d", gotLimit)
	}
	if !strings.Contains(string(body), `"data":[]`) {
		t.Errorf("expected empty data array, got %s", body)
	}
}

func TestGetHistory(t *testing.T) {
	repo := &mockSearchRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.SearchRecord, error) {
			if id == "rec-1" {
				return &domain.SearchRecord{ID: "rec-1", OK: true}, nil
			}
			return nil, domain.ErrNotFound
		},
	}
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.History = usecases.NewHistoryService(repo)
	}))

	status, body, _ := doGet(t, app, "/v1/parking-routes/history/rec-1")
	if status != 200 || !strings.Contains(string(body), `"id":"rec-1"`) {
		t.Errorf("expected record, got %d: %s", status, body)
	}

	status, _, _ = doGet(t, app, "/v1/parking-routes/history/nope")
	if status != 404 {
		t.Errorf("expected 404, got %d", status)
	}
}

func TestHistory_NotConfigured(t *testing.T) {
	app := setupApp(makeDeps())

	status, _, _ := doGet(t, app, "/v1/parking-routes/history")
	if status != 503 {
		t.Errorf("expected 503, got %d", status)
	}
}

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(func(d *handler.Dependencies) { d.Version = "1.2.3" }))

	status, body, headers := doGet(t, app, "/v1/health")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var resp map[string]string
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["status"] != "healthy" || resp["version"] != "1.2.3" {
		t.Errorf("unexpected health %v", resp)
	}
	if headers["Cache-Control"] != "no-store" {
		t.Errorf("expected no-store, got %q", headers["Cache-Control"])
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		db     handler.Pinger
		status int
	}{
		{"no database", nil, 503},
		{"database down", &mockPinger{err: errors.New("connection refused")}, 503},
		{"database up", &mockPinger{}, 200},
	}
	for _, tt := range tests {
		app := setupApp(makeDeps(func(d *handler.Dependencies) {
			d.DB = tt.db
			d.Cache = &mockPinger{err: errors.New("cache down")}
		}))

		status, body, _ := doGet(t, app, "/v1/ready")
		if status != tt.status {
			t.Errorf("%s: expected %d, got %d: %s", tt.name, tt.status, status, body)
		}
	}
}

func TestGraphQL_ParkingRoute(t *testing.T) {
	app := setupApp(makeDeps())

	query := `{"query":"{ parkingRoute(origin:{lon:37.6,lat:55.75}, destination:{lon:37.62,lat:55.76}) { ok summary parking { lon lat } driving_route { mode is_fallback } } }"}`
	status, body, _ := doPost(t, app, "/graphql", query)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var resp struct {
		Data struct {
			ParkingRoute struct {
				OK      bool            `json:"ok"`
				Summary string          `json:"summary"`
				Parking domain.GeoPoint `json:"parking"`
				Driving struct {
					Mode       string `json:"mode"`
					IsFallback bool   `json:"is_fallback"`
				} `json:"driving_route"`
			} `json:"parkingRoute"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Errors) > 0 {
		t.Fatalf("unexpected errors %v", resp.Errors)
	}
	pr := resp.Data.ParkingRoute
	if !pr.OK || pr.Parking.Lat != 55.758 || pr.Driving.Mode != "car" || pr.Driving.IsFallback {
		t.Errorf("unexpected result %+v", pr)
	}
}

func TestGraphQL_InvalidCoordinates(t *testing.T) {
	app := setupApp(makeDeps())

	query := `{"query":"{ parkingRoute(origin:{lon:200,lat:55.75}, destination:{lon:37.62,lat:55.76}) { ok } }"}`
	status, body, _ := doPost(t, app, "/graphql", query)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"errors"`) {
		t.Errorf("expected GraphQL errors, got %s", body)
	}
}

func TestSecurityHeaders(t *testing.T) {
	app := setupApp(makeDeps())

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" || resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Errorf("missing security headers: %v", resp.Header)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("expected a request ID header")
	}
}

func TestDocs(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupDocs(app, "../../../api/openapi.yaml")

	status, body, _ := doGet(t, app, "/docs/openapi.json")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"/v1/parking-routes"`) {
		t.Errorf("expected parking-routes path in served document")
	}

	missing := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupDocs(missing, "does-not-exist.yaml")
	if status, _, _ := doGet(t, missing, "/docs/openapi.yaml"); status != 404 {
		t.Errorf("expected 404 for missing document, got %d", status)
	}
}
