// Package realtimeservice wires the public-facing half of the service: the
// HTTP API the CRUD layer and clients call, and the dispatch pipeline that
// consumes the ingress topic.
package realtimeservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/rs/zerolog"

	"github.com/EngDotorDaSilva/doafacil-sub000/internal/api"
	"github.com/EngDotorDaSilva/doafacil-sub000/internal/pipeline"
	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
	"github.com/EngDotorDaSilva/doafacil-sub000/realtimeservice/config"
)

// Wrapper bundles the API HTTP server and the dispatch pipeline into one
// startable unit.
type Wrapper struct {
	server            *http.Server
	processingService *messagepipeline.StreamingService[realtime.Event]
	apiHandler        *api.API
	logger            zerolog.Logger
}

// New creates and wires up the API service and its dispatch pipeline.
func New(
	cfg *config.AppConfig,
	dependencies *realtime.ServiceDependencies,
	authMiddleware func(http.Handler) http.Handler,
	logger zerolog.Logger,
) (*Wrapper, error) {
	apiHandler := api.NewAPI(
		dependencies.IngestionProducer,
		dependencies.TokenStore,
		dependencies.Presence,
		logger.With().Str("component", "API").Logger(),
	)

	processingService, err := newProcessingService(cfg, dependencies, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create processing service: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/events", authMiddleware(http.HandlerFunc(apiHandler.PublishEventHandler)))
	mux.Handle("POST /api/push-tokens", authMiddleware(http.HandlerFunc(apiHandler.RegisterTokenHandler)))
	mux.Handle("DELETE /api/push-tokens", authMiddleware(http.HandlerFunc(apiHandler.UnregisterTokenHandler)))
	mux.Handle("GET /api/presence/{accountID}", authMiddleware(http.HandlerFunc(apiHandler.PresenceHandler)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &Wrapper{
		server: &http.Server{
			Addr:    ":" + cfg.APIPort,
			Handler: mux,
		},
		processingService: processingService,
		apiHandler:        apiHandler,
		logger:            logger,
	}, nil
}

// newProcessingService builds the event dispatch pipeline.
func newProcessingService(
	cfg *config.AppConfig,
	dependencies *realtime.ServiceDependencies,
	logger zerolog.Logger,
) (*messagepipeline.StreamingService[realtime.Event], error) {
	processor := pipeline.NewDispatchProcessor(dependencies, cfg, logger)

	return messagepipeline.NewStreamingService[realtime.Event](
		messagepipeline.StreamingServiceConfig{NumWorkers: cfg.NumPipelineWorkers},
		dependencies.IngestionConsumer,
		pipeline.EventTransformer,
		processor,
		logger,
	)
}

// Handler exposes the API's HTTP handler, for tests that want to host it on
// their own listener.
func (w *Wrapper) Handler() http.Handler {
	return w.server.Handler
}

// Start runs the dispatch pipeline and then serves the HTTP API. It blocks
// until the server stops.
func (w *Wrapper) Start(ctx context.Context) error {
	w.logger.Info().Msg("Dispatch pipeline starting...")
	if err := w.processingService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start processing service: %w", err)
	}

	w.logger.Info().Str("addr", w.server.Addr).Msg("API server starting...")
	if err := w.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops all service components.
func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info().Msg("Shutting down service components...")
	var finalErr error

	if err := w.processingService.Stop(ctx); err != nil {
		w.logger.Error().Err(err).Msg("Processing service shutdown failed.")
		finalErr = err
	}

	if err := w.server.Shutdown(ctx); err != nil {
		w.logger.Error().Err(err).Msg("API server shutdown failed.")
		finalErr = err
	}

	w.logger.Info().Msg("All components shut down.")
	return finalErr
}
