package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/inamate/maskstudio/internal/asset"
	"github.com/inamate/maskstudio/internal/auth"
	"github.com/inamate/maskstudio/internal/compositor"
	"github.com/inamate/maskstudio/internal/config"
	mw "github.com/inamate/maskstudio/internal/middleware"
	"github.com/inamate/maskstudio/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := asset.NewStore(cfg.AssetDir)
	if err != nil {
		slog.Error("open asset store", "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(cfg.JWTSecret)
	if !authService.Enabled() {
		slog.Warn("JWT_SECRET not set, authentication disabled")
	}

	assetHandler := asset.NewHandler(store, cfg.MaxUploadBytes())
	compositeHandler := compositor.NewHandler(cfg.MaxUploadBytes())

	hub := session.NewHub(store, cfg.HistoryLimit, cfg.MaxImagePixels)
	go hub.Run(ctx)
	editorHandler := session.NewHandler(hub, authService, cfg.OriginHosts())

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Asset endpoints (public, files are addressed by unguessable IDs)
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/mask/composite", compositeHandler.Composite).Methods("POST", "OPTIONS")
	api.HandleFunc("/assets/{assetId}", assetHandler.Delete).Methods("DELETE", "OPTIONS")

	// WebSocket endpoint
	r.Handle("/ws/editor", editorHandler).Methods("GET")

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Close editor connections before draining HTTP
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "assets", cfg.AssetDir, "auth", authService.Enabled())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
