// Package thread handles conversation-scoped signals: the ephemeral typing
// channel and persisted read receipts.
package thread

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

// ErrNotParticipant is returned when an account signals a thread it does
// not belong to.
var ErrNotParticipant = errors.New("account is not a participant of the thread")

// Service resolves thread participants and routes the two conversation
// signals. Typing goes straight to the other participant's room; read
// receipts are persisted first and then dispatched through the pipeline so
// an offline counterpart still learns about them.
type Service struct {
	store       realtime.ThreadStore
	broadcaster realtime.Broadcaster
	producer    realtime.IngestionProducer
	logger      zerolog.Logger
}

// NewService creates the thread signal service.
func NewService(
	store realtime.ThreadStore,
	broadcaster realtime.Broadcaster,
	producer realtime.IngestionProducer,
	logger zerolog.Logger,
) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("thread store cannot be nil")
	}
	if broadcaster == nil {
		return nil, fmt.Errorf("broadcaster cannot be nil")
	}
	if producer == nil {
		return nil, fmt.Errorf("ingestion producer cannot be nil")
	}
	return &Service{
		store:       store,
		broadcaster: broadcaster,
		producer:    producer,
		logger:      logger.With().Str("component", "ThreadService").Logger(),
	}, nil
}

// SendTyping forwards a transient typing signal to the thread's other
// participant. It is never persisted, never retried, and silently dropped
// when the thread lookup fails or the sender is not a participant.
func (s *Service) SendTyping(ctx context.Context, threadID, fromAccountID string, isTyping bool) {
	th, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		s.logger.Debug().Err(err).Str("thread", threadID).Msg("Dropping typing signal, thread lookup failed.")
		return
	}

	other, ok := th.OtherParticipant(fromAccountID)
	if !ok {
		s.logger.Debug().Str("thread", threadID).Str("account", fromAccountID).
			Msg("Dropping typing signal from non-participant.")
		return
	}

	evt, err := realtime.NewEvent(realtime.EventTyping, []string{other}, &realtime.TypingPayload{
		ThreadID:      threadID,
		FromAccountID: fromAccountID,
		IsTyping:      isTyping,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build typing event.")
		return
	}
	evt.Ephemeral = true

	// Direct room delivery: the signal self-expires client-side, so there
	// is no value in a pipeline hop or a push fallback.
	s.broadcaster.BroadcastToAccount(other, evt)
}

// MarkRead persists the reader's read timestamp, then notifies the other
// participant with the concrete recorded time. The persist failure is
// returned; a notification failure is logged and swallowed because the read
// state is already durable.
func (s *Service) MarkRead(ctx context.Context, threadID, readerAccountID string) error {
	th, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("failed to resolve thread %s: %w", threadID, err)
	}

	other, ok := th.OtherParticipant(readerAccountID)
	if !ok {
		return ErrNotParticipant
	}

	readAt := time.Now().UTC()
	if err := s.store.MarkRead(ctx, threadID, readerAccountID, readAt); err != nil {
		return fmt.Errorf("failed to persist read timestamp: %w", err)
	}

	evt, err := realtime.NewEvent(realtime.EventThreadRead, []string{other}, &realtime.ThreadReadPayload{
		ThreadID:        threadID,
		ReaderAccountID: readerAccountID,
		ReadAt:          readAt,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("thread", threadID).Msg("Failed to build thread-read event.")
		return nil
	}

	if err := s.producer.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("thread", threadID).Msg("Failed to publish thread-read event.")
	}
	return nil
}
