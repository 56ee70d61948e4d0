package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/cheya01/facial-recog-poc-server/internal/http"
	"github.com/cheya01/facial-recog-poc-server/internal/oracle"
	"github.com/cheya01/facial-recog-poc-server/internal/platform/config"
	"github.com/cheya01/facial-recog-poc-server/internal/platform/httpserver"
	"github.com/cheya01/facial-recog-poc-server/internal/platform/logger"
	"github.com/cheya01/facial-recog-poc-server/internal/platform/metrics"
	"github.com/cheya01/facial-recog-poc-server/internal/visitor/handler"
	"github.com/cheya01/facial-recog-poc-server/internal/visitor/service"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}

	cfg := config.FromEnv()
	log := logger.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	deps, err := buildDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close(log)

	comparator, err := oracle.New(cfg.Oracle.URL)
	if err != nil {
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	svc, err := service.New(deps.visitors, deps.blobs, comparator,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAuditPublisher(deps.auditPublisher),
		service.WithOracleTimeout(cfg.Oracle.Timeout),
		service.WithLocation(cfg.Calendar.Location),
	)
	if err != nil {
		return err
	}

	visitorHandler := handler.New(svc, log,
		handler.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
		handler.WithLocation(cfg.Calendar.Location),
	)
	router := httpapi.NewRouter(httpapi.Config{
		Logger:         log,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Gatherer:       prometheus.DefaultGatherer,
		HealthChecks:   deps.healthChecks,
		APIs:           []httpapi.RouteRegistrar{visitorHandler},
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return deps.auditWorker.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting visitor verification server",
			"addr", cfg.Server.Addr,
			"visitor_store", cfg.Storage.Backend,
			"blob_backend", cfg.Blob.Backend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
