package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/parkpass/internal/adapters/dgis"
	natsadapter "github.com/samirrijal/parkpass/internal/adapters/nats"
	"github.com/samirrijal/parkpass/internal/adapters/valkey"
	"github.com/samirrijal/parkpass/internal/core/ports"
	"github.com/samirrijal/parkpass/internal/core/usecases"
	"github.com/samirrijal/parkpass/internal/pkg/config"
	"github.com/samirrijal/parkpass/internal/pkg/logging"
	"github.com/samirrijal/parkpass/internal/pkg/telemetry"
	"github.com/samirrijal/parkpass/internal/workflows"
)

func main() {
	cfg, err := config.Load("parkpass-planner")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(context.Background(), cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	var events ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	gis := dgis.NewClient(cfg.GIS)
	planner := usecases.NewParkingRouteService(gis, gis, gis, gis, cache, events, usecases.ParkingRouteOptions{
		SearchTerm:      cfg.GIS.SearchTerm,
		MaxCandidates:   cfg.Parking.MaxCandidates,
		DefaultWalkTime: cfg.Parking.DefaultWalkTime,
		CacheTTLSeconds: cfg.GIS.CacheTTLSeconds,
	})

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.ParkingRouteWorkflow)
	w.RegisterActivity(&workflows.PlanActivities{Planner: planner})

	slog.Info("planner worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
