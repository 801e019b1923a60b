/*
File: cmd/prod/runrealtimeservice.go
Description: Main entrypoint for the realtime service. Handles config
loading, dependency injection, and starting the application.
*/
package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/google/uuid"
	"github.com/illmade-knight/go-dataflow/pkg/cache"
	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/EngDotorDaSilva/doafacil-sub000/cmd"
	"github.com/EngDotorDaSilva/doafacil-sub000/internal/api"
	"github.com/EngDotorDaSilva/doafacil-sub000/internal/app"
	"github.com/EngDotorDaSilva/doafacil-sub000/internal/auth"
	"github.com/EngDotorDaSilva/doafacil-sub000/internal/platform/persistence"
	psub "github.com/EngDotorDaSilva/doafacil-sub000/internal/platform/pubsub"
	"github.com/EngDotorDaSilva/doafacil-sub000/internal/platform/push"
	"github.com/EngDotorDaSilva/doafacil-sub000/internal/presence"
	rt "github.com/EngDotorDaSilva/doafacil-sub000/internal/realtime"
	"github.com/EngDotorDaSilva/doafacil-sub000/internal/thread"
	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
	"github.com/EngDotorDaSilva/doafacil-sub000/realtimeservice"
	"github.com/EngDotorDaSilva/doafacil-sub000/realtimeservice/config"
)

func main() {
	// 1. Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := log.With().Str("service", "realtime-service").Logger()

	// 2. Load config.yaml and env overrides
	cfg, err := cmd.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.RunMode != "local" && cfg.AuthSecret == "" {
		logger.Fatal().Msg("AUTH_SECRET environment variable is required")
	}

	// 3. Create dependencies
	ctx := context.Background()
	deps, mirror, err := newDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize dependencies")
	}

	// 4. Build the live-delivery components. The hub and registry are shared
	// between the gateway and the dispatch pipeline.
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

	// 5. Create the two main services
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

	// 6. Run the application
	app.Run(ctx, logger, apiService, gateway)
}

// newDependencies builds the service dependency container.
func newDependencies(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (*realtime.ServiceDependencies, presence.MirrorStore, error) {
	if cfg.RunMode == "local" {
		logger.Warn().Msg("Running in 'local' mode. All external dependencies will be faked.")
		return cmd.NewFakeDependencies(ctx, cfg, logger)
	}
	return newProdDependencies(ctx, cfg, logger)
}

// newProdDependencies creates real, production-ready dependencies.
func newProdDependencies(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (*realtime.ServiceDependencies, presence.MirrorStore, error) {
	// Connect to GCP
	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to firestore: %w", err)
	}
	psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to pubsub: %w", err)
	}

	ingestProducer := psub.NewProducer(psClient.Publisher(cfg.IngressTopicID))

	accountFetcher, err := persistence.NewFirestoreAccountFetcher(fsClient, cfg.Firestore.AccountsCollection, logger)
	if err != nil {
		return nil, nil, err
	}
	tokenStore, err := persistence.NewFirestoreTokenStore(fsClient, cfg.Firestore.TokensCollection, logger)
	if err != nil {
		return nil, nil, err
	}
	threadStore, err := persistence.NewFirestoreThreadStore(fsClient, cfg.Firestore.ThreadsCollection, logger)
	if err != nil {
		return nil, nil, err
	}
	tokenFetcher, err := newFirestoreTokenFetcher(ctx, cfg, fsClient, logger)
	if err != nil {
		return nil, nil, err
	}
	ingestConsumer, err := newIngestionConsumer(ctx, cfg, psClient, logger)
	if err != nil {
		return nil, nil, err
	}
	pushNotifier, err := newPushNotifier(cfg, psClient, logger)
	if err != nil {
		return nil, nil, err
	}
	mirror, err := newPresenceMirror(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	return &realtime.ServiceDependencies{
		IngestionProducer:  ingestProducer,
		IngestionConsumer:  ingestConsumer,
		DeviceTokenFetcher: tokenFetcher,
		AccountFetcher:     accountFetcher,
		TokenStore:         tokenStore,
		ThreadStore:        threadStore,
		PushNotifier:       pushNotifier,
	}, mirror, nil
}

// newPresenceMirror creates the pluggable presence reflection based on config.
func newPresenceMirror(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (presence.MirrorStore, error) {
	mirrorType := cfg.PresenceMirror.Type
	logger.Info().Str("type", mirrorType).Msg("Initializing presence mirror...")

	switch mirrorType {
	case "redis":
		redisAddr := cfg.PresenceMirror.Redis.Addr
		if redisAddr == "" {
			return nil, fmt.Errorf("presence_mirror type is redis but no address is configured (check REDIS_ADDR env var)")
		}
		rdb := redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})
		// Test the connection
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis presence mirror at %s: %w", redisAddr, err)
		}
		logger.Info().Str("addr", redisAddr).Msg("Connected to Redis presence mirror")
		return persistence.NewRedisPresenceStore(rdb, cfg.PresenceMirror.TTL, logger)

	case "", "none":
		return nil, nil

	default:
		return nil, fmt.Errorf("invalid presence_mirror type: %s (must be 'redis' or 'none')", mirrorType)
	}
}

// newIngestionConsumer creates the persistent subscription for the main ingress topic.
func newIngestionConsumer(ctx context.Context, cfg *config.AppConfig, psClient *pubsub.Client, logger zerolog.Logger) (messagepipeline.MessageConsumer, error) {
	topicPath := fmt.Sprintf("projects/%s/topics/%s", cfg.ProjectID, cfg.IngressTopicID)
	subPath := fmt.Sprintf("projects/%s/subscriptions/%s", cfg.ProjectID, cfg.IngressSubscriptionID)
	dlqTopicPath := fmt.Sprintf("projects/%s/topics/%s", cfg.ProjectID, cfg.IngressTopicDLQID)
	subConfig := &pubsubpb.Subscription{
		Name:               subPath,
		Topic:              topicPath,
		AckDeadlineSeconds: 10,
		DeadLetterPolicy: &pubsubpb.DeadLetterPolicy{
			DeadLetterTopic:     dlqTopicPath,
			MaxDeliveryAttempts: 5,
		},
		EnableMessageOrdering: false,
	}
	sub, err := psClient.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: subPath})
	if err != nil {
		if status.Code(err) != codes.NotFound {
			return nil, fmt.Errorf("failed to get subscription %s: %w", subPath, err)
		}
		logger.Info().Str("subscription", subPath).Msg("Subscription not found, creating it...")
		sub, err = psClient.SubscriptionAdminClient.CreateSubscription(ctx, subConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create subscription %s: %w", subPath, err)
		}
	}
	return messagepipeline.NewGooglePubsubConsumer(
		messagepipeline.NewGooglePubsubConsumerDefaults(sub.Name), psClient, logger,
	)
}

// newFirestoreTokenFetcher creates the adapter for fetching device tokens from Firestore.
func newFirestoreTokenFetcher(ctx context.Context, cfg *config.AppConfig, fsClient *firestore.Client, logger zerolog.Logger) (cache.Fetcher[string, []realtime.DeviceToken], error) {
	docFetcher, err := cache.NewFirestore[string, persistence.DeviceTokenDoc](
		ctx,
		&cache.FirestoreConfig{ProjectID: cfg.ProjectID, CollectionName: cfg.Firestore.TokensCollection},
		fsClient,
		logger,
	)
	if err != nil {
		return nil, err
	}
	return &persistence.DeviceTokenAdapter{DocFetcher: docFetcher}, nil
}

// newPushNotifier creates a Pub/Sub-backed push notifier.
func newPushNotifier(cfg *config.AppConfig, psClient *pubsub.Client, logger zerolog.Logger) (realtime.PushNotifier, error) {
	pushProducer, err := messagepipeline.NewGooglePubsubProducer(
		messagepipeline.NewGooglePubsubProducerDefaults(cfg.PushTopicID), psClient, logger,
	)
	if err != nil {
		return nil, err
	}
	return push.NewPubSubNotifier(pushProducer, logger)
}
