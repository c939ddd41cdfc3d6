// Command server starts the regional work broker's HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/routerfleet/regional-broker/internal/adapter/httpserver"
	"github.com/routerfleet/regional-broker/internal/adapter/launcher/cloud"
	"github.com/routerfleet/regional-broker/internal/adapter/launcher/stub"
	"github.com/routerfleet/regional-broker/internal/adapter/observability"
	"github.com/routerfleet/regional-broker/internal/app"
	"github.com/routerfleet/regional-broker/internal/broker"
	"github.com/routerfleet/regional-broker/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	limits := broker.DefaultLimits()
	limits.WorkOffline = cfg.WorkOffline
	limits.MaxWorkers = cfg.MaxWorkers
	limits.WorkerStartupWindow = cfg.WorkerStartupWindow
	limits.WorkerTTL = cfg.WorkerTTL
	limits.MaxTasksPerPoll = cfg.MaxTasksPerPoll
	limits.MaxRedeliveryPasses = cfg.MaxRedeliveryPasses
	limits.RedeliveryQuietPeriod = cfg.RedeliveryQuietPeriod

	var launcherPort broker.LauncherPort
	if !cfg.WorkOffline {
		switch cfg.LauncherKind {
		case "cloud":
			launcherPort = cloud.New(cloud.Config{
				BaseURL:         cfg.LauncherURL,
				APIKey:          cfg.LauncherAPIKey,
				MaxElapsedTime:  cfg.LauncherMaxElapsed,
				InitialInterval: cfg.LauncherInitialWait,
			})
		default:
			launcherPort = stub.New()
		}
	}

	b := broker.New(limits, launcherPort)
	srv := httpserver.NewServer(cfg, b)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("launcher_kind", cfg.LauncherKind), slog.Bool("work_offline", cfg.WorkOffline))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
