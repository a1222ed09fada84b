// @title           Tribe API
// @version         1.0
// @description     Group trips for strangers: trust scores, vibe matching, join requests and the booking negotiation.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @securityDefinitions.apikey ServiceToken
// @in              header
// @name            X-Service-Token

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	_ "github.com/fkhayef/tribe/docs"
	"github.com/fkhayef/tribe/internal/config"
	"github.com/fkhayef/tribe/internal/events"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open stores: %v", err)
	}
	defer s.Close()

	bus, err := openBus(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open event bus: %v", err)
	}
	defer bus.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newApp(s, bus).routes(cfg),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

func openBus(ctx context.Context, cfg *config.Config) (events.Bus, error) {
	if !cfg.UsesRedis() {
		return events.NewHub(0), nil
	}
	bus, err := events.NewRedisBus(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	log.Println("[INFO] publishing events through redis")
	return bus, nil
}
