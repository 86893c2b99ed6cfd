package main

import (
	"context"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dexroute/internal/api/rest"
	"dexroute/internal/config"
	"dexroute/internal/feed"
	"dexroute/internal/infra/health"
	"dexroute/internal/infra/http/middleware"
	"dexroute/internal/infra/log"
	"dexroute/internal/infra/metrics"
	"dexroute/internal/infra/netutil"
	"dexroute/internal/infra/runner"
	"dexroute/internal/infra/version"
	"dexroute/internal/router"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	logger := log.NewLogger(cfg)

	registry := metrics.Init(logger)
	pathRouter := router.New(cfg, logger)

	mux := http.NewServeMux()
	// query surface, throttled
	api := rest.New(pathRouter, logger)
	mux.Handle("/", middleware.Throttle(cfg.Server.ThrottleRPS, cfg.Server.ThrottleBurst, api.Handler()))
	// admin endpoints behind the CIDR gate
	adminCIDRs := netutil.ParseCIDRs(cfg.Server.AdminAllowCIDRs)
	mux.Handle("/metrics", middleware.AdminGate(adminCIDRs, metrics.Handler(registry)))
	mux.HandleFunc("/healthz", health.Healthz)
	mux.HandleFunc("/readyz", health.Readyz)
	mux.HandleFunc("/version", version.Handler)
	if cfg.Server.Pprof {
		mux.Handle("/debug/pprof/", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Index)))
		mux.Handle("/debug/pprof/cmdline", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Cmdline)))
		mux.Handle("/debug/pprof/profile", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Profile)))
		mux.Handle("/debug/pprof/symbol", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Symbol)))
		mux.Handle("/debug/pprof/trace", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Trace)))
	}

	handler := middleware.RequestID(middleware.Logger(logger)(mux))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	logger.Info().Str("addr", cfg.Server.Addr).Msg("dexroute started")

	g := &runner.Group{}
	var sources []feed.Source
	if cfg.Feed.SnapshotCSV != "" {
		sources = append(sources, feed.NewCSVSource(cfg.Feed.SnapshotCSV))
	}
	var feedErrCh <-chan error
	if len(sources) > 0 {
		ing := feed.NewIngester(cfg, pathRouter, logger, sources...)
		feedErrCh = g.Go(ctx, ing.Run)
	}

	health.SetReady(true)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ctx.Done():
	case s := <-sigCh:
		logger.Info().Str("signal", s.String()).Msg("shutdown signal received")
	case err := <-feedErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("feed worker error")
			health.SetReady(false)
		}
	}

	health.SetReady(false)
	cancel()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	g.Wait()
	logger.Info().Msg("shutdown complete")
}
