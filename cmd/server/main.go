// TaskMaster - Telegram-driven task tracking server
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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/tmasterhq/taskmaster/internal/alert"
	"github.com/tmasterhq/taskmaster/internal/api"
	"github.com/tmasterhq/taskmaster/internal/bot"
	"github.com/tmasterhq/taskmaster/internal/config"
	"github.com/tmasterhq/taskmaster/internal/events"
	"github.com/tmasterhq/taskmaster/internal/middleware"
	"github.com/tmasterhq/taskmaster/internal/store"
	"github.com/tmasterhq/taskmaster/internal/telegram"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	if cfg.BotToken == "" {
		slog.Warn("BOT_TOKEN not set, outbound Telegram delivery will fail")
	}
	tg := telegram.NewClient(cfg.BotAPIBase, cfg.BotToken)

	hub := events.NewHub()

	// Initialize services.
	engine := bot.New(repo, tg, hub)
	dispatcher := alert.NewDispatcher(repo, tg, hub)

	// Initialize handlers.
	handler := api.NewHandler(repo, engine, dispatcher, hub)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	corsOrigins := []string{cfg.FrontendURL}
	if cfg.IsDevelopment() {
		corsOrigins = []string{"*"}
	}
	r.Use(middleware.CORS(corsOrigins))

	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout, WebSocket feed connections are long-lived
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start the alert sweep worker.
	alert.StartWorker(ctx, dispatcher, cfg.AlertSweepInterval)
	slog.Info("Alert worker started", "sweep_interval", cfg.AlertSweepInterval)

	// Start long polling when configured. Webhook deployments push updates
	// through POST /bot/messages instead.
	if cfg.BotPolling {
		poller := telegram.NewPoller(tg, engine.HandleMessage)
		go poller.Run(ctx)
		slog.Info("Telegram polling started")
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
