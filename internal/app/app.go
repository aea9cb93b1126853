// Package app holds the process wiring shared by the service binaries.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticketing/config"
	"ticketing/internal/api"
	"ticketing/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Init loads configuration and starts logging and tracing. The returned
// function flushes both and must be deferred by main.
func Init(service string) (*config.Config, func()) {
	cfg := config.Load(service)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.ServiceName); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	tp, err := util.InitTracer(cfg.Server.ServiceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}

	return cfg, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
		util.SyncLogger()
	}
}

// NewRouter creates the gin engine with the shared routes and returns the
// /api group services register on.
func NewRouter(cfg *config.Config, handler *api.Handler) (*gin.Engine, *gin.RouterGroup) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	return router, handler.SetupRoutes(router)
}

// Background is a long running component started next to the HTTP server.
type Background interface {
	Start(ctx context.Context) error
}

// Serve runs the HTTP server and the background components until SIGINT or
// SIGTERM, then shuts everything down. onStop runs after the server stopped
// accepting requests and the background context was cancelled.
func Serve(cfg *config.Config, router http.Handler, background []Background, onStop func()) {
	logger := util.GetLogger()

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	for _, b := range background {
		b := b
		go func() {
			if err := b.Start(workerCtx); err != nil {
				logger.Error("Background worker error", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if onStop != nil {
		onStop()
	}

	logger.Info("Server exited")
}
