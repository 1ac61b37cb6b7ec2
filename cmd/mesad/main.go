package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"mesa-status-backend/config"
	"mesa-status-backend/internal/api"
	"mesa-status-backend/internal/db"
	"mesa-status-backend/internal/events"
	"mesa-status-backend/internal/feed"
	"mesa-status-backend/internal/poller"
	"mesa-status-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "mesa-backend ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatalf("VAPID keys must be configured. Please generate them and add them to your config file.")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		natsPublisher, err := events.NewNATSPublisher(cfg.Events.NATSURL)
		if err != nil {
			logger.Fatalf("failed to connect event publisher: %v", err)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
		logger.Println("event publisher connected")
	}

	feedClient := feed.NewClient(&cfg.Feed)

	pollerSvc := poller.NewService(cfg, appStore, feedClient, publisher)
	go pollerSvc.Run(ctx)

	loc, err := time.LoadLocation(cfg.Feed.Timezone)
	if err != nil {
		logger.Printf("invalid timezone %q, falling back to UTC: %v", cfg.Feed.Timezone, err)
		loc = time.UTC
	}

	handler := api.NewHandler(appStore, &webpushOptions, pollerSvc, feedClient, publisher, loc)
	router := api.NewRouter(handler, &cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
