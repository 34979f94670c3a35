package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/peakform/coach/api"
	"github.com/peakform/coach/config"
	"github.com/peakform/coach/domain"
	"github.com/peakform/coach/internal/conversation"
	"github.com/peakform/coach/internal/dispatch"
	"github.com/peakform/coach/internal/orchestrator"
	"github.com/peakform/coach/internal/router"
	"github.com/peakform/coach/policy"
	"github.com/peakform/coach/provider"
	"github.com/peakform/coach/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting coach orchestrator...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Provider: %s (model %s)", cfg.ProviderURL, cfg.ProviderModel)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize completion provider client
	client := provider.NewClient(cfg.ProviderURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Wire the orchestration core
	table := dispatch.New(db, policyEngine)
	conv := conversation.New(db, cfg.HistoryWindow)
	rt := router.New(router.Config{
		ForcedRoute:      domain.Route(cfg.ForcedRoute),
		AllowFallback:    cfg.AllowFallback,
		ToolCallMinChars: cfg.ToolCallMinChars,
	})

	hub := api.NewHub()
	orch := orchestrator.New(db, client, rt, conv, table, cfg, hub)

	// Initialize handlers
	h := api.NewHandler(db, orch, cfg, hub)

	// Create Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	h.RegisterRoutes(e)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown gracefully: %v", err)
	}

	log.Println("Coach orchestrator stopped")
}
