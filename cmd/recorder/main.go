package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	natsadapter "github.com/samirrijal/parkpass/internal/adapters/nats"
	"github.com/samirrijal/parkpass/internal/adapters/postgres"
	"github.com/samirrijal/parkpass/internal/core/domain"
	"github.com/samirrijal/parkpass/internal/core/ports"
	"github.com/samirrijal/parkpass/internal/core/usecases"
	"github.com/samirrijal/parkpass/internal/pkg/config"
	"github.com/samirrijal/parkpass/internal/pkg/logging"
	"github.com/samirrijal/parkpass/internal/pkg/metrics"
)

// durableName is the JetStream consumer shared by all recorder replicas.
const durableName = "route-recorder"

func main() {
	cfg, err := config.Load("parkpass-recorder")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	history := usecases.NewHistoryService(postgres.NewSearchRepo(db))

	// NATS
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, durableName)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	if err := recordEvents(ctx, sub, history); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	go db.ReportPoolStats(ctx, 15*time.Second)

	// Metrics endpoint
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		addr = ":9102"
	}
	app := fiber.New(fiber.Config{DisableStartupMessage: true, AppName: "ParkPass recorder"})
	app.Get("/metrics", metrics.Handler())
	go func() {
		if err := app.Listen(addr); err != nil {
			slog.Error("metrics listener", "error", err)
		}
	}()

	slog.Info("recorder started", "durable", durableName, "metrics_addr", addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("received signal, shutting down recorder", "signal", sig.String())
	cancel()
	_ = app.Shutdown()
}

// recordEvents stores every route event delivered by sub. A failed insert
// is returned to the subscriber so the event is redelivered.
func recordEvents(ctx context.Context, sub ports.EventSubscriber, history *usecases.HistoryService) error {
	return sub.SubscribeRouteEvents(ctx, func(ctx context.Context, event *domain.RouteEvent) error {
		if err := history.Record(ctx, event); err != nil {
			metrics.EventsRecorded.WithLabelValues("error").Inc()
			slog.Error("record route event", "event_id", event.ID, "request_id", event.RequestID, "error", err)
			return err
		}
		metrics.EventsRecorded.WithLabelValues("ok").Inc()
		return nil
	})
}
