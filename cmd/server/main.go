package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rpattn/gridsync/internal/assist"
	"github.com/rpattn/gridsync/internal/config"
	"github.com/rpattn/gridsync/internal/db"
	"github.com/rpattn/gridsync/internal/grid"
	"github.com/rpattn/gridsync/internal/middleware"
	"github.com/rpattn/gridsync/internal/repository"
	"github.com/rpattn/gridsync/internal/server"

	"github.com/rs/cors"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create repositories
	productRepo := repository.NewProductRepository(conn.Pool)
	auditRepo := repository.NewAuditLogRepository(conn.Pool)

	// Pick the validator: model-backed when a key is configured, heuristic
	// rules otherwise.
	var validator grid.Validator
	if cfg.Assist.APIKey != "" {
		genaiValidator, err := assist.NewGenAIValidator(ctx, cfg.Assist.APIKey, cfg.Assist.Model)
		if err != nil {
			log.Fatalf("Failed to create genai validator: %v", err)
		}
		validator = genaiValidator
		log.Printf("Using genai validator (model %s)", cfg.Assist.Model)
	} else {
		validator = assist.NewHeuristicValidator()
		log.Println("No assist API key configured, using heuristic validator")
	}

	manager := server.NewSessionManager(productRepo, auditRepo, validator, cfg.Grid)
	defer manager.CloseAll()

	gridHandler := server.NewHTTPHandler(manager)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	mux := http.NewServeMux()
	mux.Handle("/tenants/", corsHandler.Handler(middleware.LoggingMiddleware(gridHandler)))

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting grid server on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
