package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/tweetapp-be/internal/api"
	"github.com/isdelr/tweetapp-be/internal/auth"
	"github.com/isdelr/tweetapp-be/internal/config"
	"github.com/isdelr/tweetapp-be/internal/database"
	"github.com/isdelr/tweetapp-be/internal/logger"
	"github.com/isdelr/tweetapp-be/internal/monitoring"
	"github.com/isdelr/tweetapp-be/internal/repositories"
	"github.com/isdelr/tweetapp-be/internal/services"
	"github.com/isdelr/tweetapp-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	userService := services.NewUserService(db)
	eventService := services.NewEventService(db)
	tweetRepo := repositories.NewTweetRepository(db)
	tweetService := services.NewTweetService(tweetRepo, userService, eventService, hub)

	// Set up and run the event janitor
	janitor, err := monitoring.NewJanitor(eventService, cfg.JanitorSchedule, cfg.EventRetention)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.JanitorSchedule).Msg("Invalid janitor schedule")
	}
	janitor.Start()

	// Set up router
	router := api.NewRouter(api.Dependencies{
		DB:             db,
		Hub:            hub,
		Tokens:         auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.TokenTTL),
		TweetService:   tweetService,
		UserService:    userService,
		EventService:   eventService,
		HostStats:      monitoring.HostCollector{Sample: 200 * time.Millisecond},
		AllowedOrigins: cfg.AllowedOrigins,
		SecureCookies:  cfg.IsProduction(),
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	janitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Closing the hub disconnects feed clients still attached after Shutdown.
	hub.Stop()

	log.Info().Msg("Server exiting")
}
