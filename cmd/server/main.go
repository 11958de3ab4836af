package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photo-classifier/config"
	"photo-classifier/internal/container"
	"photo-classifier/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appContainer, err := container.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build services: %v", err)
	}
	defer appContainer.Close()

	srv := server.New(appContainer.ClassificationService, server.Options{
		MaxUpload:    cfg.MaxUploadBytes,
		DefaultModel: cfg.DefaultModel,
		SessionTTL:   cfg.SessionTTL,
		MaxSessions:  cfg.MaxSessions,
	})
	server.StartMetrics(cfg.MetricsAddr)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on %s", cfg.HTTPAddr)
	log.Printf("Models: %v (default %s)", appContainer.Dispatcher.Models(), cfg.DefaultModel)
	log.Println("Endpoints:")
	log.Println("  GET  /health                  - Health check")
	log.Println("  GET  /v1/models               - Available models")
	log.Println("  POST /v1/predict?model=...    - Predict from image upload")
	log.Println("  POST /v1/sessions             - Create session")
	log.Println("  POST /v1/sessions/{id}/image  - Replace session photo and predict")
	log.Println("  PUT  /v1/sessions/{id}/model  - Switch model and re-run")
	log.Println("  GET  /v1/sessions/{id}/rows   - Last result")
	log.Printf("Metrics on %s/metrics", cfg.MetricsAddr)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}
