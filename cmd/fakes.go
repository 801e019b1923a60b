package cmd

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/EngDotorDaSilva/doafacil-sub000/internal/presence"
	"github.com/EngDotorDaSilva/doafacil-sub000/internal/test/fakes"
	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
	"github.com/EngDotorDaSilva/doafacil-sub000/realtimeservice/config"
)

// NewFakeDependencies creates in-memory fakes for local development. The
// ingestion producer loops events straight back into the consumer, so the
// dispatch pipeline runs without a broker. Broadcaster and Presence are left
// unset; the entrypoint attaches the hub and registry it builds.
func NewFakeDependencies(_ context.Context, _ *config.AppConfig, logger zerolog.Logger) (*realtime.ServiceDependencies, presence.MirrorStore, error) {
	consumer := fakes.NewInMemoryConsumer(100, logger)
	tokenStore := fakes.NewTokenStore()

	// Seed a pair of demo accounts so local handshakes can succeed.
	accounts := fakes.NewAccountFetcher()
	accounts.Add(realtime.AccountSnapshot{ID: "demo-donor", Status: realtime.AccountActive})
	accounts.Add(realtime.AccountSnapshot{ID: "demo-center", Status: realtime.AccountActive})

	return &realtime.ServiceDependencies{
		IngestionProducer:  fakes.NewLoopbackProducer(consumer, logger),
		IngestionConsumer:  consumer,
		DeviceTokenFetcher: tokenStore,
		AccountFetcher:     accounts,
		TokenStore:         tokenStore,
		ThreadStore:        fakes.NewThreadStore(),
		PushNotifier:       fakes.NewPushNotifier(logger),
	}, fakes.NewPresenceMirror(), nil
}
