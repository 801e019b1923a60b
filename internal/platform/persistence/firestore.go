// Package persistence contains components for interacting with data stores:
// the push destination registry, the account status read path, and the
// narrow thread view this service consumes from the CRUD layer's records.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

var (
	// ErrAccountNotFound is returned when an account document does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrThreadNotFound is returned when a thread document does not exist.
	ErrThreadNotFound = errors.New("thread not found")
)

// FirestoreTokenStore implements realtime.TokenStore on a Firestore
// collection keyed by account ID, one DeviceTokenDoc per account.
type FirestoreTokenStore struct {
	client     *firestore.Client
	collection string
	logger     zerolog.Logger
}

// NewFirestoreTokenStore is the constructor for the FirestoreTokenStore.
func NewFirestoreTokenStore(client *firestore.Client, collection string, logger zerolog.Logger) (*FirestoreTokenStore, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client cannot be nil")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}
	return &FirestoreTokenStore{
		client:     client,
		collection: collection,
		logger:     logger,
	}, nil
}

// Register adds or replaces a push destination for the account. Replacement
// is keyed by token value, so re-registering a token updates its platform
// tag instead of duplicating it.
func (s *FirestoreTokenStore) Register(ctx context.Context, accountID string, token realtime.DeviceToken) error {
	docRef := s.client.Collection(s.collection).Doc(accountID)

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var doc DeviceTokenDoc
		snap, err := tx.Get(docRef)
		switch {
		case err == nil:
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("failed to unmarshal token document: %w", err)
			}
		case status.Code(err) == codes.NotFound:
			// First destination for this account.
		default:
			return fmt.Errorf("failed to read token document: %w", err)
		}

		tokens := make([]realtime.DeviceToken, 0, len(doc.Tokens)+1)
		for _, existing := range doc.Tokens {
			if existing.Token != token.Token {
				tokens = append(tokens, existing)
			}
		}
		doc.Tokens = append(tokens, token)
		return tx.Set(docRef, doc)
	})
}

// Unregister removes a push destination. Unknown tokens and missing
// documents are no-ops.
func (s *FirestoreTokenStore) Unregister(ctx context.Context, accountID string, token string) error {
	docRef := s.client.Collection(s.collection).Doc(accountID)

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var doc DeviceTokenDoc
		snap, err := tx.Get(docRef)
		if status.Code(err) == codes.NotFound {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read token document: %w", err)
		}
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("failed to unmarshal token document: %w", err)
		}

		kept := make([]realtime.DeviceToken, 0, len(doc.Tokens))
		for _, existing := range doc.Tokens {
			if existing.Token != token {
				kept = append(kept, existing)
			}
		}
		if len(kept) == len(doc.Tokens) {
			return nil
		}
		doc.Tokens = kept
		return tx.Set(docRef, doc)
	})
}

// accountDoc is the slice of the CRUD layer's account document this service
// reads.
type accountDoc struct {
	Status string `firestore:"status"`
}

// FirestoreAccountFetcher resolves account status for the handshake. It
// satisfies cache.Fetcher[string, realtime.AccountSnapshot].
type FirestoreAccountFetcher struct {
	client     *firestore.Client
	collection string
	logger     zerolog.Logger
}

// NewFirestoreAccountFetcher is the constructor for the account fetcher.
func NewFirestoreAccountFetcher(client *firestore.Client, collection string, logger zerolog.Logger) (*FirestoreAccountFetcher, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client cannot be nil")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}
	return &FirestoreAccountFetcher{
		client:     client,
		collection: collection,
		logger:     logger,
	}, nil
}

// Fetch satisfies the cache.Fetcher[string, realtime.AccountSnapshot]
// interface.
func (f *FirestoreAccountFetcher) Fetch(ctx context.Context, accountID string) (realtime.AccountSnapshot, error) {
	snap, err := f.client.Collection(f.collection).Doc(accountID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return realtime.AccountSnapshot{}, fmt.Errorf("account %s: %w", accountID, ErrAccountNotFound)
	}
	if err != nil {
		return realtime.AccountSnapshot{}, fmt.Errorf("failed to fetch account %s: %w", accountID, err)
	}

	var doc accountDoc
	if err := snap.DataTo(&doc); err != nil {
		return realtime.AccountSnapshot{}, fmt.Errorf("failed to unmarshal account %s: %w", accountID, err)
	}

	return realtime.AccountSnapshot{
		ID:     accountID,
		Status: realtime.AccountStatus(doc.Status),
	}, nil
}

// Close satisfies the cache.Fetcher interface. The firestore client is
// owned by the caller.
func (f *FirestoreAccountFetcher) Close() error { return nil }

// threadDoc is the slice of the CRUD layer's thread document this service
// reads and writes.
type threadDoc struct {
	Participants []string `firestore:"participants"`
}

// FirestoreThreadStore implements realtime.ThreadStore against the CRUD
// layer's thread collection: a participant read and a per-reader readAt put.
type FirestoreThreadStore struct {
	client     *firestore.Client
	collection string
	logger     zerolog.Logger
}

// NewFirestoreThreadStore is the constructor for the FirestoreThreadStore.
func NewFirestoreThreadStore(client *firestore.Client, collection string, logger zerolog.Logger) (*FirestoreThreadStore, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client cannot be nil")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}
	return &FirestoreThreadStore{
		client:     client,
		collection: collection,
		logger:     logger,
	}, nil
}

// GetThread fetches a thread by ID.
func (s *FirestoreThreadStore) GetThread(ctx context.Context, threadID string) (realtime.Thread, error) {
	snap, err := s.client.Collection(s.collection).Doc(threadID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return realtime.Thread{}, fmt.Errorf("thread %s: %w", threadID, ErrThreadNotFound)
	}
	if err != nil {
		return realtime.Thread{}, fmt.Errorf("failed to fetch thread %s: %w", threadID, err)
	}

	var doc threadDoc
	if err := snap.DataTo(&doc); err != nil {
		return realtime.Thread{}, fmt.Errorf("failed to unmarshal thread %s: %w", threadID, err)
	}

	return realtime.Thread{
		ID:           threadID,
		Participants: doc.Participants,
	}, nil
}

// MarkRead persists the reader's read timestamp on the thread document.
func (s *FirestoreThreadStore) MarkRead(ctx context.Context, threadID string, accountID string, readAt time.Time) error {
	docRef := s.client.Collection(s.collection).Doc(threadID)
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "readAt." + accountID, Value: readAt},
	})
	if err != nil {
		return fmt.Errorf("failed to persist read timestamp on thread %s: %w", threadID, err)
	}
	return nil
}
