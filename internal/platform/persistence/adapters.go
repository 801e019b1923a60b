package persistence

import (
	"context"

	"github.com/illmade-knight/go-dataflow/pkg/cache"

	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

// DeviceTokenDoc is the shape of the data stored in Firestore for push
// destinations.
type DeviceTokenDoc struct {
	Tokens []realtime.DeviceToken `firestore:"tokens"`
}

// DeviceTokenAdapter wraps a generic Firestore document fetcher and
// extracts the `Tokens` field from the returned struct. It adapts a fetcher
// of `DeviceTokenDoc` to the `[]realtime.DeviceToken` fetcher the
// dispatcher depends on.
type DeviceTokenAdapter struct {
	DocFetcher cache.Fetcher[string, DeviceTokenDoc]
}

// Fetch satisfies the cache.Fetcher[string, []realtime.DeviceToken]
// interface.
func (a *DeviceTokenAdapter) Fetch(ctx context.Context, accountID string) ([]realtime.DeviceToken, error) {
	doc, err := a.DocFetcher.Fetch(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return doc.Tokens, nil
}

// Close satisfies the cache.Fetcher interface.
func (a *DeviceTokenAdapter) Close() error {
	return a.DocFetcher.Close()
}
