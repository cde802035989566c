package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/boda2004/game-catalog/internal/app"
	"github.com/boda2004/game-catalog/internal/config"
	"github.com/boda2004/game-catalog/internal/handlers"
	"github.com/boda2004/game-catalog/internal/httpclient"
	"github.com/boda2004/game-catalog/internal/logger"
	"github.com/boda2004/game-catalog/internal/rawg"
	"github.com/boda2004/game-catalog/internal/steam"
	"github.com/boda2004/game-catalog/internal/store"
)

func main() {
	// Optional .env file for local development
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Clients for the external APIs
	rawgClient := rawg.NewClient(httpclient.NewClient(nil, nil), cfg.RAWGAPIURL, cfg.RAWGAPIKey)
	steamClient := steam.NewClient(cfg.SteamAPIURL, cfg.SteamAPIKey)
	if !rawgClient.HasAPIKey() {
		appLogger.Warn("RAWG_API_KEY not set, imports and search will be unavailable")
	}

	importer := app.NewImporter(db, rawgClient, steamClient, appLogger)
	library := app.NewLibrary(db, appLogger)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := handlers.NewHandler(cfg, db, rawgClient, importer, library, appLogger)
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
