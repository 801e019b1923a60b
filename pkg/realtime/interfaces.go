package realtime

import (
	"context"
	"time"
)

// IngestionProducer defines the interface for publishing a delivery event
// into the dispatch pipeline. The CRUD layer calls this after persisting a
// mutation; publishing is fire-and-forget from the mutation's perspective.
type IngestionProducer interface {
	Publish(ctx context.Context, evt *Event) error
}

// Broadcaster delivers events to live connections. Delivery is best-effort:
// a slow or dead connection never blocks delivery to others.
type Broadcaster interface {
	// BroadcastToAccount delivers evt to every live connection bound to
	// accountID. A no-op when the account has no live connections.
	BroadcastToAccount(accountID string, evt *Event)

	// BroadcastGlobal delivers evt to every live connection.
	BroadcastGlobal(evt *Event)
}

// PresenceReader exposes the online/offline predicate of the session registry.
type PresenceReader interface {
	IsOnline(accountID string) bool
}

// PushNotifier sends an out-of-band notification for evt to the given
// push destinations. Failures must be surfaced to the caller for logging
// but never retried into the triggering mutation.
type PushNotifier interface {
	Notify(ctx context.Context, tokens []DeviceToken, evt *Event) error
}

// TokenStore owns the write path of push destinations.
type TokenStore interface {
	// Register adds or replaces a push destination for the account.
	Register(ctx context.Context, accountID string, token DeviceToken) error

	// Unregister removes a push destination. Removing an unknown token is
	// a no-op.
	Unregister(ctx context.Context, accountID string, token string) error
}

// ThreadStore is the narrow view of the CRUD layer's conversation storage
// this subsystem consumes.
type ThreadStore interface {
	// GetThread fetches a thread by ID.
	GetThread(ctx context.Context, threadID string) (Thread, error)

	// MarkRead persists the reader's read timestamp on the thread.
	MarkRead(ctx context.Context, threadID string, accountID string, readAt time.Time) error
}
