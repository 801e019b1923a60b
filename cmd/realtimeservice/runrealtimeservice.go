/*
File: cmd/realtimeservice/runrealtimeservice.go
Description: Local development entrypoint. Runs the full service against
in-memory fakes, no GCP or Redis required.
*/
package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/EngDotorDaSilva/doafacil-sub000/cmd"
	"github.com/EngDotorDaSilva/doafacil-sub000/internal/api"
	"github.com/EngDotorDaSilva/doafacil-sub000/internal/app"
	"github.com/EngDotorDaSilva/doafacil-sub000/internal/auth"
	"github.com/EngDotorDaSilva/doafacil-sub000/internal/presence"
	rt "github.com/EngDotorDaSilva/doafacil-sub000/internal/realtime"
	"github.com/EngDotorDaSilva/doafacil-sub000/internal/thread"
	"github.com/EngDotorDaSilva/doafacil-sub000/realtimeservice"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().Str("service", "realtime-service-local").Logger()

	cfg, err := cmd.LoadLocal()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()
	deps, mirror, err := cmd.NewFakeDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize fake dependencies")
	}

	hub := rt.NewHub(logger.With().Str("component", "Hub").Logger())
	registry := presence.NewRegistry(mirror, uuid.NewString(), logger)
	deps.Broadcaster = hub
	deps.Presence = registry

	handshaker, err := auth.NewHandshaker([]byte(cfg.AuthSecret), deps.AccountFetcher, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create handshaker")
	}
	threadService, err := thread.NewService(deps.ThreadStore, hub, deps.IngestionProducer, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create thread service")
	}

	apiService, err := realtimeservice.New(
		cfg,
		deps,
		api.NewAuthMiddleware([]byte(cfg.AuthSecret), logger),
		logger.With().Str("component", "ApiService").Logger(),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create API service")
	}

	gateway, err := rt.NewGateway(
		cfg.WebSocketPort,
		cfg.AllowedOrigins,
		hub,
		registry,
		handshaker,
		threadService,
		logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create WebSocket gateway")
	}

	logger.Info().Msg("Starting in local mode with in-memory fakes.")
	app.Run(ctx, logger, apiService, gateway)
}
