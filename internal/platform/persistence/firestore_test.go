//go:build integration

/*
File: internal/platform/persistence/firestore_test.go
Description: Integration tests for the Firestore-backed token store, account
fetcher, and thread store, run against the Firestore emulator.
*/
package persistence_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/illmade-knight/go-test/emulators"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EngDotorDaSilva/doafacil-sub000/internal/platform/persistence"
	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

const (
	tokensCollection   = "device-tokens"
	accountsCollection = "accounts"
	threadsCollection  = "threads"
)

// setupSuite initializes the Firestore emulator and a client ONCE per test.
func setupSuite(t *testing.T) (context.Context, *firestore.Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	const projectID = "test-project-persistence"
	firestoreEmulator := emulators.SetupFirestoreEmulator(t, ctx, emulators.GetDefaultFirestoreConfig(projectID))
	fsClient, err := firestore.NewClient(ctx, projectID, firestoreEmulator.ClientOptions...)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = fsClient.Close()
	})

	return ctx, fsClient
}

func TestTokenStore_RegisterAndUnregister(t *testing.T) {
	ctx, fsClient := setupSuite(t)

	store, err := persistence.NewFirestoreTokenStore(fsClient, tokensCollection, zerolog.Nop())
	require.NoError(t, err)

	const accountID = "donor-token-test"

	// 1. Register two distinct destinations.
	err = store.Register(ctx, accountID, realtime.DeviceToken{Token: "tok-android", Platform: "android"})
	require.NoError(t, err)
	err = store.Register(ctx, accountID, realtime.DeviceToken{Token: "tok-web", Platform: "web"})
	require.NoError(t, err)

	readTokens := func() []realtime.DeviceToken {
		snap, err := fsClient.Collection(tokensCollection).Doc(accountID).Get(ctx)
		require.NoError(t, err)
		var doc persistence.DeviceTokenDoc
		require.NoError(t, snap.DataTo(&doc))
		return doc.Tokens
	}

	tokens := readTokens()
	require.Len(t, tokens, 2)

	// 2. Re-registering the same token value replaces it rather than
	// duplicating, even when the platform tag changes.
	err = store.Register(ctx, accountID, realtime.DeviceToken{Token: "tok-android", Platform: "ios"})
	require.NoError(t, err)

	tokens = readTokens()
	require.Len(t, tokens, 2, "re-registering a token must not duplicate it")
	for _, tok := range tokens {
		if tok.Token == "tok-android" {
			assert.Equal(t, "ios", tok.Platform)
		}
	}

	// 3. Unregister one destination; the other survives.
	err = store.Unregister(ctx, accountID, "tok-android")
	require.NoError(t, err)

	tokens = readTokens()
	require.Len(t, tokens, 1)
	assert.Equal(t, "tok-web", tokens[0].Token)

	// 4. Unregistering an unknown token or a missing document is a no-op.
	require.NoError(t, store.Unregister(ctx, accountID, "tok-never-registered"))
	require.NoError(t, store.Unregister(ctx, "account-without-doc", "tok-anything"))
}

func TestAccountFetcher(t *testing.T) {
	ctx, fsClient := setupSuite(t)

	fetcher, err := persistence.NewFirestoreAccountFetcher(fsClient, accountsCollection, zerolog.Nop())
	require.NoError(t, err)

	_, err = fsClient.Collection(accountsCollection).Doc("center-1").Set(ctx, map[string]any{
		"status": "active",
		"name":   "Centro de Doações Esperança",
	})
	require.NoError(t, err)
	_, err = fsClient.Collection(accountsCollection).Doc("donor-blocked").Set(ctx, map[string]any{
		"status": "blocked",
	})
	require.NoError(t, err)

	t.Run("Active account", func(t *testing.T) {
		snap, err := fetcher.Fetch(ctx, "center-1")
		require.NoError(t, err)
		assert.Equal(t, "center-1", snap.ID)
		assert.Equal(t, realtime.AccountActive, snap.Status)
	})

	t.Run("Blocked account", func(t *testing.T) {
		snap, err := fetcher.Fetch(ctx, "donor-blocked")
		require.NoError(t, err)
		assert.Equal(t, realtime.AccountBlocked, snap.Status)
	})

	t.Run("Missing account", func(t *testing.T) {
		_, err := fetcher.Fetch(ctx, "no-such-account")
		require.Error(t, err)
		assert.ErrorIs(t, err, persistence.ErrAccountNotFound)
	})
}

func TestThreadStore(t *testing.T) {
	ctx, fsClient := setupSuite(t)

	store, err := persistence.NewFirestoreThreadStore(fsClient, threadsCollection, zerolog.Nop())
	require.NoError(t, err)

	const threadID = "thread-getthread-test"
	_, err = fsClient.Collection(threadsCollection).Doc(threadID).Set(ctx, map[string]any{
		"participants": []string{"donor-1", "center-1"},
	})
	require.NoError(t, err)

	t.Run("GetThread", func(t *testing.T) {
		th, err := store.GetThread(ctx, threadID)
		require.NoError(t, err)
		assert.Equal(t, threadID, th.ID)
		assert.Equal(t, []string{"donor-1", "center-1"}, th.Participants)
	})

	t.Run("GetThread missing", func(t *testing.T) {
		_, err := store.GetThread(ctx, "no-such-thread")
		require.Error(t, err)
		assert.ErrorIs(t, err, persistence.ErrThreadNotFound)
	})

	t.Run("MarkRead writes per-reader timestamp", func(t *testing.T) {
		readAt := time.Now().UTC().Truncate(time.Millisecond)
		err := store.MarkRead(ctx, threadID, "donor-1", readAt)
		require.NoError(t, err)

		snap, err := fsClient.Collection(threadsCollection).Doc(threadID).Get(ctx)
		require.NoError(t, err)

		var doc struct {
			ReadAt map[string]time.Time `firestore:"readAt"`
		}
		require.NoError(t, snap.DataTo(&doc))
		require.Contains(t, doc.ReadAt, "donor-1")
		assert.WithinDuration(t, readAt, doc.ReadAt["donor-1"], time.Second)

		// A second reader's timestamp must not clobber the first.
		err = store.MarkRead(ctx, threadID, "center-1", readAt.Add(time.Minute))
		require.NoError(t, err)

		snap, err = fsClient.Collection(threadsCollection).Doc(threadID).Get(ctx)
		require.NoError(t, err)
		require.NoError(t, snap.DataTo(&doc))
		assert.Len(t, doc.ReadAt, 2)
	})

	t.Run("MarkRead on missing thread errors", func(t *testing.T) {
		err := store.MarkRead(ctx, "no-such-thread", "donor-1", time.Now().UTC())
		require.Error(t, err)
	})
}
