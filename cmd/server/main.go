package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdf-signer/internal/config"
	"pdf-signer/internal/handler"
	"pdf-signer/internal/service"

	"github.com/joho/godotenv"
)

const (
	shutdownTimeout = 10 * time.Second
	janitorInterval = 5 * time.Minute
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}
	// Wiring
	container := config.NewContainer()
	cfg := container.Config

	service.InitPDFEngine()
	if err := container.Renderer.Init(); err != nil {
		container.Logger.Error("Page renderer failed to initialize", err)
		os.Exit(1)
	}

	rps, burst := cfg.GetRateLimit()
	limiter := handler.NewRateLimiter(rps, burst, container.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	container.Sessions.StartJanitor(ctx, janitorInterval, func() { limiter.Prune(janitorInterval) })

	// Handlers
	handlers := handler.Handlers{
		Session:   handler.NewSessionHandler(container.Sessions, container.Logger),
		Document:  handler.NewDocumentHandler(container.DocumentService, cfg.GetMaxPDFSize(), container.Logger),
		Signature: handler.NewSignatureHandler(container.DocumentService, cfg.GetMaxSignatureSize(), container.Logger),
	}
	if container.MemoryBlobs != nil {
		handlers.Blob = handler.NewBlobHandler(container.MemoryBlobs)
	}

	router := handler.NewRouter(
		container.Sessions,
		handlers,
		limiter,
		cfg.GetAllowedOrigins(),
		container.Logger,
	)

	// start server
	server := &http.Server{
		Addr:              ":" + cfg.GetServerPort(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server
	go func() {
		container.Logger.Info("Server listening", "address", server.Addr, "storage", cfg.GetStorageBackend())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Error("Server failed to start", err)
			os.Exit(1)
		}
	}()
	// Graceful shutdown
	<-ctx.Done()

	container.Logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Graceful shutdown failed", err)
		_ = server.Close()
	}

	container.Logger.Info("Server exited", "open_sessions", container.Sessions.Len())
}
