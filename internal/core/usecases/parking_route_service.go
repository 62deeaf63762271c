package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/parkpass/internal/core/domain"
	"github.com/samirrijal/parkpass/internal/core/ports"
	"github.com/samirrijal/parkpass/internal/pkg/logging"
	"github.com/samirrijal/parkpass/internal/pkg/metrics"
	"github.com/samirrijal/parkpass/internal/pkg/telemetry"
)

// ParkingRouteOptions tunes the pipeline.
type ParkingRouteOptions struct {
	SearchTerm      string
	MaxCandidates   int
	DefaultWalkTime int
	CacheTTLSeconds int
}

// DefaultParkingRouteOptions mirrors the configuration defaults.
func DefaultParkingRouteOptions() ParkingRouteOptions {
	return ParkingRouteOptions{
		SearchTerm:      "Бесплатная парковка",
		MaxCandidates:   10,
		DefaultWalkTime: domain.DefaultWalkTimeSeconds,
		CacheTTLSeconds: 600,
	}
}

// ParkingRouteService finds free parking near a destination and builds the
// drive and walk legs to reach it.
type ParkingRouteService struct {
	isochrones ports.IsochroneProvider
	places     ports.PlaceSearcher
	matrix     ports.DistanceMatrix
	router     ports.RouteProvider
	cache      ports.CacheService
	events     ports.EventPublisher
	opts       ParkingRouteOptions
}

// NewParkingRouteService creates a new ParkingRouteService. cache and events may be nil.
func NewParkingRouteService(
	isochrones ports.IsochroneProvider,
	places ports.PlaceSearcher,
	matrix ports.DistanceMatrix,
	router ports.RouteProvider,
	cache ports.CacheService,
	events ports.EventPublisher,
	opts ParkingRouteOptions,
) *ParkingRouteService {
	def := DefaultParkingRouteOptions()
	if opts.SearchTerm == "" {
		opts.SearchTerm = def.SearchTerm
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = def.MaxCandidates
	}
	if opts.DefaultWalkTime <= 0 {
		opts.DefaultWalkTime = def.DefaultWalkTime
	}
	if opts.CacheTTLSeconds <= 0 {
		opts.CacheTTLSeconds = def.CacheTTLSeconds
	}
	return &ParkingRouteService{
		isochrones: isochrones,
		places:     places,
		matrix:     matrix,
		router:     router,
		cache:      cache,
		events:     events,
		opts:       opts,
	}
}

// Plan runs the whole pipeline and always returns a tagged result.
func (s *ParkingRouteService) Plan(ctx context.Context, req domain.ParkingRouteRequest) (result domain.ParkingRouteResult) {
	if req.WalkTimeSeconds <= 0 {
		req.WalkTimeSeconds = s.opts.DefaultWalkTime
	}

	ctx, span := telemetry.Tracer().Start(ctx, "parking_route.plan",
		trace.WithAttributes(attribute.Int(telemetry.AttrWalkTime, req.WalkTimeSeconds)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			result = domain.Failure(domain.ErrCodeUnknown, fmt.Sprint(r))
			logging.FromContext(ctx).Error("parking route pipeline panicked", "panic", r)
		}
		s.finish(ctx, span, req, result)
	}()

	parking, driving, walking, err := s.run(ctx, req)
	if err != nil {
		code := domain.CodeOf(err)
		logging.FromContext(ctx).Warn("parking route stage failed", "code", code, "error", err)
		return domain.Failure(code, failureMessage(code, err))
	}
	return domain.Success(parking, driving, walking)
}

// failureMessage is the message carried by a failed result. Stage codes
// speak for themselves; only unknown_error keeps the underlying cause.
func failureMessage(code domain.ErrorCode, err error) string {
	if code != domain.ErrCodeUnknown {
		return ""
	}
	var pe *domain.PipelineError
	if errors.As(err, &pe) && pe.Err != nil {
		return pe.Err.Error()
	}
	return err.Error()
}

func (s *ParkingRouteService) run(ctx context.Context, req domain.ParkingRouteRequest) (domain.GeoPoint, domain.RouteLeg, domain.RouteLeg, error) {
	var none domain.RouteLeg

	isochrone, err := s.FindArea(ctx, req.Destination, req.WalkTimeSeconds)
	if err != nil {
		return domain.GeoPoint{}, none, none, err
	}

	polygon, err := ExtractPolygon(isochrone)
	if err != nil {
		return domain.GeoPoint{}, none, none, err
	}

	candidates, err := s.FindParking(ctx, polygon)
	if err != nil {
		return domain.GeoPoint{}, none, none, err
	}

	ranked := s.Rank(ctx, req.Destination, candidates)
	if len(ranked) == 0 {
		return domain.GeoPoint{}, none, none, domain.StageError(domain.ErrCodeNoRatedParking, errors.New("ranking returned no candidates"))
	}
	parking := ranked[0]

	driving, walking, err := s.BuildLegs(ctx, req.Origin, parking, req.Destination)
	if err != nil {
		return domain.GeoPoint{}, none, none, err
	}
	return parking, driving, walking, nil
}

// FindArea returns the walking isochrone text around center.
func (s *ParkingRouteService) FindArea(ctx context.Context, center domain.GeoPoint, seconds int) (string, error) {
	ctx, span := startStage(ctx, "isochrone")
	defer span.End()
	defer metrics.ObserveStage("isochrone", time.Now())

	cacheKey := fmt.Sprintf("isochrone:%.5f:%.5f:%d", center.Lat, center.Lon, seconds)
	if text, ok := s.cachedString(ctx, "isochrone", cacheKey); ok {
		return text, nil
	}

	text, err := s.isochrones.WalkingIsochrone(ctx, center, seconds)
	if err != nil {
		return "", stageFailed(span, domain.StageError(domain.ErrCodePolygonNotFound, fmt.Errorf("isochrone request: %w", err)))
	}
	if text == "" {
		return "", stageFailed(span, domain.StageError(domain.ErrCodePolygonNotFound, errors.New("no isochrone data")))
	}

	s.store(ctx, cacheKey, text)
	return text, nil
}

// FindParking searches free parking inside polygon.
func (s *ParkingRouteService) FindParking(ctx context.Context, polygon string) ([]domain.GeoPoint, error) {
	ctx, span := startStage(ctx, "poi_search")
	defer span.End()
	defer metrics.ObserveStage("poi_search", time.Now())

	sum := sha256.Sum256([]byte(s.opts.SearchTerm + "|" + polygon))
	cacheKey := "parking:" + hex.EncodeToString(sum[:])

	var points []domain.GeoPoint
	if !s.cachedJSON(ctx, "parking", cacheKey, &points) {
		var err error
		points, err = s.places.SearchInPolygon(ctx, s.opts.SearchTerm, polygon)
		if err != nil {
			return nil, stageFailed(span, domain.StageError(domain.ErrCodeUnknown, fmt.Errorf("parking search: %w", err)))
		}
		if len(points) > 0 {
			if data, err := json.Marshal(points); err == nil {
				s.store(ctx, cacheKey, string(data))
			}
		}
	}

	span.SetAttributes(attribute.Int(telemetry.AttrCandidates, len(points)))
	if len(points) == 0 {
		return nil, stageFailed(span, domain.StageError(domain.ErrCodeNoParkingFound, errors.New("parking search returned no items")))
	}
	return points, nil
}

// Rank orders at most MaxCandidates candidates by walking distance from
// destination. When the matrix service fails the truncated list is
// returned in its original order.
func (s *ParkingRouteService) Rank(ctx context.Context, destination domain.GeoPoint, candidates []domain.GeoPoint) []domain.GeoPoint {
	ctx, span := startStage(ctx, "ranking")
	defer span.End()
	defer metrics.ObserveStage("ranking", time.Now())

	limited := candidates
	if len(limited) > s.opts.MaxCandidates {
		limited = limited[:s.opts.MaxCandidates]
	}
	span.SetAttributes(attribute.Int(telemetry.AttrCandidates, len(limited)))
	if len(limited) == 0 {
		return nil
	}

	routes, err := s.matrix.WalkingDistances(ctx, destination, limited)
	if err == nil && len(routes) == 0 {
		err = errors.New("matrix returned no routes")
	}
	if err != nil {
		metrics.RankingFallbacks.Inc()
		span.RecordError(err)
		logging.FromContext(ctx).Warn("ranking unavailable, using search order", "error", err, "candidates", len(limited))
		return append([]domain.GeoPoint(nil), limited...)
	}

	return orderByDistance(limited, routes)
}

// BuildLegs computes the drive leg (origin to parking) and the walk leg
// (parking to destination) concurrently.
func (s *ParkingRouteService) BuildLegs(ctx context.Context, origin, parking, destination domain.GeoPoint) (domain.RouteLeg, domain.RouteLeg, error) {
	defer metrics.ObserveStage("routing", time.Now())

	var driving, walking domain.RouteLeg
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer recoverLeg(ctx, domain.ModeCar, &err)
		driving, err = s.BuildLeg(gctx, origin, parking, domain.ModeCar)
		return err
	})
	g.Go(func() (err error) {
		defer recoverLeg(ctx, domain.ModeWalk, &err)
		walking, err = s.BuildLeg(gctx, parking, destination, domain.ModeWalk)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.RouteLeg{}, domain.RouteLeg{}, err
	}
	return driving, walking, nil
}

// recoverLeg turns a panic in a leg goroutine into an unknown_error.
func recoverLeg(ctx context.Context, mode domain.TransportMode, err *error) {
	if r := recover(); r != nil {
		logging.FromContext(ctx).Error("route leg panicked", "mode", mode, "panic", r)
		*err = domain.StageError(domain.ErrCodeUnknown, fmt.Errorf("%v", r))
	}
}

// BuildLeg routes from a to b in mode, falling back to a straight-line
// estimate when the response has no geometry.
func (s *ParkingRouteService) BuildLeg(ctx context.Context, from, to domain.GeoPoint, mode domain.TransportMode) (domain.RouteLeg, error) {
	ctx, span := startStage(ctx, "route_"+string(mode))
	defer span.End()

	raw, err := s.router.Route(ctx, from, to, mode)
	if err != nil {
		return domain.RouteLeg{}, stageFailed(span, domain.StageError(domain.ErrCodeUnknown, fmt.Errorf("%s route: %w", mode, err)))
	}

	leg := SynthesizeLeg(from, to, mode, raw)
	span.SetAttributes(
		attribute.String(telemetry.AttrLegMode, string(mode)),
		attribute.Bool(telemetry.AttrLegFallback, leg.IsFallback),
	)
	if leg.IsFallback {
		metrics.FallbackLegs.WithLabelValues(string(mode)).Inc()
	}
	return leg, nil
}

func (s *ParkingRouteService) finish(ctx context.Context, span trace.Span, req domain.ParkingRouteRequest, result domain.ParkingRouteResult) {
	code := "ok"
	if !result.OK {
		code = string(result.Error)
		span.SetStatus(codes.Error, code)
	}
	span.SetAttributes(attribute.String(telemetry.AttrResultCode, code))
	metrics.PipelineResults.WithLabelValues(code).Inc()

	log := logging.FromContext(ctx)
	if result.OK {
		log.Info("parking route built",
			"parking_lat", result.Parking.Lat, "parking_lon", result.Parking.Lon,
			"drive_fallback", result.DrivingRoute.IsFallback,
			"walk_fallback", result.WalkingRoute.IsFallback)
	} else {
		log.Info("parking route failed", "code", code)
	}

	if s.events == nil {
		return
	}
	event := &domain.RouteEvent{
		ID:        uuid.NewString(),
		RequestID: logging.RequestIDFrom(ctx),
		Request:   req,
		Result:    result,
		Time:      time.Now().UTC(),
	}
	if err := s.events.PublishRouteEvent(context.WithoutCancel(ctx), event); err != nil {
		log.Warn("publish route event", "error", err)
	}
}

func (s *ParkingRouteService) cachedString(ctx context.Context, op, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil || len(data) == 0 {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return "", false
	}
	metrics.CacheHits.WithLabelValues(op).Inc()
	return string(data), true
}

func (s *ParkingRouteService) cachedJSON(ctx context.Context, op, key string, v any) bool {
	text, ok := s.cachedString(ctx, op, key)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(text), v) == nil
}

func (s *ParkingRouteService) store(ctx context.Context, key, value string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, []byte(value), s.opts.CacheTTLSeconds)
}

func startStage(ctx context.Context, stage string) (context.Context, trace.Span) {
	return telemetry.Tracer().Start(ctx, "parking_route."+stage,
		trace.WithAttributes(attribute.String(telemetry.AttrStage, stage)))
}

func stageFailed(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
