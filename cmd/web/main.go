package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	pageCache     = "public, max-age=300"
	limiterIdle   = time.Minute
)

// handleDashboard serves the static page shell; data arrives over SSE.
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", pageCache)
	if err := templates.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"config", cfg,
	)

	aliases, err := dataset.LoadColumnMap(cfg.Data.ColumnsFile)
	if err != nil {
		logger.Error("failed to load column map", "file", cfg.Data.ColumnsFile, "error", err)
		os.Exit(1)
	}

	loader := dataset.NewLoader(dataset.Options{
		Encoding: cfg.Data.Encoding,
		Aliases:  aliases,
		Workers:  cfg.Data.LoadWorkers,
		CacheDir: cfg.Data.CacheDir,
	}, logger)
	dashboard := services.NewDashboard(loader, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
	defer cancel()

	start := time.Now()
	if err := dashboard.LoadDefault(ctx, cfg.Data.DefaultFile); err != nil {
		logger.Error("failed to load default dataset", "file", cfg.Data.DefaultFile, "error", err)
		os.Exit(1)
	}
	logger.Info("default dataset loaded", "file", cfg.Data.DefaultFile, "duration", time.Since(start))

	templateHandlers := &server.TemplateHandlers{
		Dashboard: handleDashboard,
	}

	srv := server.NewServer(dashboard, logger, cfg.Data.MaxUploadBytes, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	pruneCtx, stopPrune := context.WithCancel(context.Background())
	go rateLimiter.Run(pruneCtx, limiterIdle)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	handler := middlewareChain(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		stopPrune()
		return nil
	})
	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("releasing session dataset", "stats", dashboard.Stats())
		dashboard.SetData(nil)
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
