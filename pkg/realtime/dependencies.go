package realtime

import (
	"github.com/illmade-knight/go-dataflow/pkg/cache"
	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
)

// ServiceDependencies holds all the external services the realtime service
// needs to operate. This struct is used for dependency injection.
type ServiceDependencies struct {
	// --- Producers ---
	IngestionProducer IngestionProducer

	// --- Consumers ---
	IngestionConsumer messagepipeline.MessageConsumer

	// --- Live delivery ---
	Broadcaster Broadcaster
	Presence    PresenceReader

	// --- Storage & Caches ---
	DeviceTokenFetcher cache.Fetcher[string, []DeviceToken]
	AccountFetcher     cache.Fetcher[string, AccountSnapshot]
	TokenStore         TokenStore
	ThreadStore        ThreadStore

	// --- Notifiers ---
	PushNotifier PushNotifier
}
