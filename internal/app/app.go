package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	server "nock-and-loose/server"
	"nock-and-loose/server/internal/archive"
	servernet "nock-and-loose/server/internal/net"
	"nock-and-loose/server/internal/telemetry"
	"nock-and-loose/server/internal/world"
	"nock-and-loose/server/logging"
	loggingSinks "nock-and-loose/server/logging/sinks"
)

// Run wires the process and serves until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	cfg.applyEnv()

	telemetryLogger := telemetry.WrapLogger(log.Default())

	logCfg := logging.DefaultConfig()
	if len(cfg.Logging.Sinks) > 0 {
		logCfg.EnabledSinks = cfg.Logging.Sinks
	}
	logCfg.MinimumSeverity = parseSeverity(cfg.Logging.MinSeverity)

	var namedSinks []logging.NamedSink
	if logCfg.HasSink("console") {
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "console",
			Sink: loggingSinks.NewConsole(os.Stdout, logCfg.Console),
		})
	}
	if logCfg.HasSink("json") && cfg.Logging.JSONPath != "" {
		file, err := os.OpenFile(cfg.Logging.JSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening json log %s: %w", cfg.Logging.JSONPath, err)
		}
		defer file.Close()
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSON(file, logCfg.JSON.FlushInterval),
		})
	}

	router, err := logging.NewRouter(nil, logCfg, namedSinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	metrics := logging.NewMetrics()
	arena := world.NewArena(cfg.StandSpacing)
	resolver := server.NewResolver(arena, arena, server.ResolverConfig{
		MaxDistance: cfg.MaxShotDistance,
	})

	hubCfg := server.DefaultHubConfig()
	if cfg.AmmoPerPlayer > 0 {
		hubCfg.AmmoPerPlayer = cfg.AmmoPerPlayer
	}
	if cfg.Scoring != nil {
		hubCfg.Scoring = *cfg.Scoring
	}
	hubCfg.Publisher = router
	hubCfg.Logger = telemetryLogger
	hubCfg.Metrics = telemetry.WrapMetrics(metrics)
	hubCfg.OnPlayerJoined = arena.AddStand
	hubCfg.OnPlayerLeft = arena.RemoveStand

	if cfg.Archive.Addr != "" {
		publisher := archive.New(archive.Config{
			Addr:     cfg.Archive.Addr,
			Password: cfg.Archive.Password,
			DB:       cfg.Archive.DB,
			Stream:   cfg.Archive.Stream,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := publisher.Ping(pingCtx); err != nil {
			telemetryLogger.Printf("result archive unreachable at %s: %v", cfg.Archive.Addr, err)
		}
		cancel()
		defer publisher.Close()
		hubCfg.Archiver = publisher
	}

	hub := server.NewHub(resolver, hubCfg)
	stop := make(chan struct{})
	go hub.Run(stop)
	defer close(stop)

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPConfig{
		Logger:         telemetryLogger,
		Metrics:        metrics,
		AllowedOrigins: cfg.AllowedOrigins,
		AdminToken:     cfg.AdminToken,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	telemetryLogger.Printf("server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func parseSeverity(raw string) logging.Severity {
	switch raw {
	case "debug":
		return logging.SeverityDebug
	case "", "info":
		return logging.SeverityInfo
	case "warn", "warning":
		return logging.SeverityWarn
	case "error":
		return logging.SeverityError
	default:
		return logging.SeverityInfo
	}
}
