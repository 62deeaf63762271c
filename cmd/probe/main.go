// Command probe checks that every remote GIS endpoint answers with the
// configured credential. It walks the same chain as a real plan around one
// point and exits non-zero on the first failing endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/samirrijal/parkpass/internal/adapters/dgis"
	"github.com/samirrijal/parkpass/internal/core/domain"
	"github.com/samirrijal/parkpass/internal/core/usecases"
	"github.com/samirrijal/parkpass/internal/pkg/config"
	"github.com/samirrijal/parkpass/internal/pkg/logging"
)

func main() {
	lon := flag.Float64("lon", 37.6173, "probe point longitude")
	lat := flag.Float64("lat", 55.7558, "probe point latitude")
	walk := flag.Int("walk", 600, "isochrone walk time in seconds")
	flag.Parse()

	cfg, err := config.Load("parkpass-probe")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("info", "text")

	center := domain.GeoPoint{Lon: *lon, Lat: *lat}
	if !center.Valid() {
		log.Fatalf("probe point %v is out of range", center)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, dgis.NewClient(cfg.GIS), center, *walk, cfg.GIS.SearchTerm); err != nil {
		attrs := []any{"error", err}
		var se *dgis.StatusError
		if errors.As(err, &se) {
			attrs = append(attrs, "body", se.Body)
		}
		slog.Error("probe failed", attrs...)
		os.Exit(1)
	}
	slog.Info("all endpoints answered")
}

func run(ctx context.Context, c *dgis.Client, center domain.GeoPoint, walk int, term string) error {
	start := time.Now()
	text, err := c.WalkingIsochrone(ctx, center, walk)
	if err != nil {
		return fmt.Errorf("%s: %w", dgis.EndpointIsochrone, err)
	}
	slog.Info("endpoint ok", "endpoint", dgis.EndpointIsochrone, "bytes", len(text), "took", time.Since(start))

	polygon, err := usecases.ExtractPolygon(text)
	if err != nil {
		return fmt.Errorf("%s: %w", dgis.EndpointIsochrone, err)
	}

	start = time.Now()
	points, err := c.SearchInPolygon(ctx, term, polygon)
	if err != nil {
		return fmt.Errorf("%s: %w", dgis.EndpointCatalog, err)
	}
	slog.Info("endpoint ok", "endpoint", dgis.EndpointCatalog, "items", len(points), "took", time.Since(start))

	// Matrix and routing still need a target when the catalog is empty here.
	target := domain.GeoPoint{Lon: center.Lon + 0.005, Lat: center.Lat + 0.003}
	if len(points) > 0 {
		target = points[0]
	}

	start = time.Now()
	routes, err := c.WalkingDistances(ctx, center, []domain.GeoPoint{target})
	if err != nil {
		return fmt.Errorf("%s: %w", dgis.EndpointMatrix, err)
	}
	slog.Info("endpoint ok", "endpoint", dgis.EndpointMatrix, "routes", len(routes), "took", time.Since(start))

	start = time.Now()
	raw, err := c.Route(ctx, center, target, domain.ModeCar)
	if err != nil {
		return fmt.Errorf("%s: %w", dgis.EndpointRouting, err)
	}
	segments := 0
	if raw != nil {
		segments = len(raw.Selections)
	}
	slog.Info("endpoint ok", "endpoint", dgis.EndpointRouting, "segments", segments, "took", time.Since(start))
	return nil
}
