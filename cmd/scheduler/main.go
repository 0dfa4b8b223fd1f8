// Package main provides the entrypoint for the Punctual notification scheduler.
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

	"github.com/rs/zerolog"

	"github.com/punctualhq/punctual/internal/alert"
	"github.com/punctualhq/punctual/internal/database"
	"github.com/punctualhq/punctual/internal/directions"
	"github.com/punctualhq/punctual/internal/directions/googlemaps"
	"github.com/punctualhq/punctual/internal/dispatch"
	"github.com/punctualhq/punctual/internal/notify"
	"github.com/punctualhq/punctual/internal/notify/twilio"
	"github.com/punctualhq/punctual/internal/telemetry"
	"github.com/punctualhq/punctual/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "punctual-scheduler"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Punctual scheduler")

	// Scheduler exposes a health endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        os.Getenv("OTEL_ENABLED") == "true",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Str("database", dbConfig.Database).
		Msg("database connected")

	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	// Initialize directions provider and service
	directionsClient := googlemaps.NewClient(googlemaps.ClientConfig{
		APIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		Logger: log,
	})
	directionsService := directions.NewService(directions.ServiceConfig{
		Provider: directionsClient,
		Logger:   log,
		Metrics:  providerMetrics,
	})

	// Initialize SMS delivery
	twilioClient := twilio.NewClient(twilio.ClientConfig{
		AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		FromNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
		Logger:     log,
	})
	notifyService := notify.NewService(notify.ServiceConfig{
		Sender:  twilioClient,
		Logger:  log,
		Metrics: providerMetrics,
	})

	// Initialize repository, dispatcher, and poll loop
	alertRepo := alert.NewPostgresRepository(pool)
	dispatcher := dispatch.NewDispatcher(dispatch.DispatcherConfig{
		Repo:      alertRepo,
		Estimator: directionsService,
		Notifier:  notifyService,
		Logger:    log,
	})

	pollConfig := worker.DefaultPollConfig()
	if interval := os.Getenv("POLL_INTERVAL"); interval != "" {
		if d, parseErr := time.ParseDuration(interval); parseErr == nil {
			pollConfig.Interval = d
		} else {
			log.Warn().Str("value", interval).Msg("invalid POLL_INTERVAL, using default")
		}
	}

	pollLoop := worker.NewPollLoop(worker.PollLoopConfig{
		Config:     pollConfig,
		Dispatcher: dispatcher,
		Logger:     log,
	})

	// Start the poll loop
	go func() {
		if runErr := pollLoop.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			log.Error().Err(runErr).Msg("poll loop exited")
		}
	}()

	// Optional Pub/Sub recalculation jobs
	if projectID := os.Getenv("PUBSUB_PROJECT_ID"); projectID != "" {
		subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
		if subscription == "" {
			subscription = "punctual-scheduler-jobs"
		}

		alertService := alert.NewService(alert.ServiceConfig{
			Repo:      alertRepo,
			Estimator: directionsService,
			Logger:    log,
		})

		pubsubHandler, psErr := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			Alerts:           alertService,
			Logger:           log,
		})
		if psErr != nil {
			log.Fatal().Err(psErr).Msg("failed to create pubsub handler")
		}
		defer pubsubHandler.Close()

		go func() {
			if recvErr := pubsubHandler.Start(ctx); recvErr != nil && !errors.Is(recvErr, context.Canceled) {
				log.Error().Err(recvErr).Msg("pubsub handler exited")
			}
		}()
	}

	// Health check server
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		snapshot := pollLoop.MetricsSnapshot()
		fmt.Fprintf(w, `{"ticks":%d,"failures":%d}`, snapshot["ticks"], snapshot["failures"])
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if serveErr := server.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			log.Fatal().Err(serveErr).Msg("health server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down scheduler")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("scheduler stopped")
}
