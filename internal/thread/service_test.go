package thread_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/EngDotorDaSilva/doafacil-sub000/internal/thread"
	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

// --- Mocks using testify/mock ---

type mockThreadStore struct {
	mock.Mock
}

func (m *mockThreadStore) GetThread(ctx context.Context, threadID string) (realtime.Thread, error) {
	args := m.Called(ctx, threadID)
	var result realtime.Thread
	if val, ok := args.Get(0).(realtime.Thread); ok {
		result = val
	}
	return result, args.Error(1)
}

func (m *mockThreadStore) MarkRead(ctx context.Context, threadID, accountID string, readAt time.Time) error {
	args := m.Called(ctx, threadID, accountID, readAt)
	return args.Error(0)
}

type mockBroadcaster struct {
	mock.Mock
}

func (m *mockBroadcaster) BroadcastToAccount(accountID string, evt *realtime.Event) {
	m.Called(accountID, evt)
}
func (m *mockBroadcaster) BroadcastGlobal(evt *realtime.Event) {
	m.Called(evt)
}

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) Publish(ctx context.Context, evt *realtime.Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

// --- Test Setup ---

var (
	testThread = realtime.Thread{ID: "thread-1", Participants: []string{"donor-1", "center-1"}}
	testErr    = errors.New("store unavailable")
)

func newTestService(t *testing.T) (*thread.Service, *mockThreadStore, *mockBroadcaster, *mockProducer) {
	t.Helper()
	store := new(mockThreadStore)
	broadcaster := new(mockBroadcaster)
	producer := new(mockProducer)
	svc, err := thread.NewService(store, broadcaster, producer, zerolog.Nop())
	require.NoError(t, err)
	return svc, store, broadcaster, producer
}

// --- SendTyping ---

func TestSendTyping_DeliversEphemeralEventToCounterpart(t *testing.T) {
	svc, store, broadcaster, producer := newTestService(t)

	store.On("GetThread", mock.Anything, "thread-1").Return(testThread, nil)
	broadcaster.On("BroadcastToAccount", "center-1", mock.MatchedBy(func(evt *realtime.Event) bool {
		if evt.Type != realtime.EventTyping || !evt.Ephemeral {
			return false
		}
		var payload realtime.TypingPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return false
		}
		return payload.ThreadID == "thread-1" && payload.FromAccountID == "donor-1" && payload.IsTyping
	})).Return()

	svc.SendTyping(context.Background(), "thread-1", "donor-1", true)

	mock.AssertExpectationsForObjects(t, store, broadcaster)
	producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestSendTyping_DroppedWhenThreadLookupFails(t *testing.T) {
	svc, store, broadcaster, _ := newTestService(t)

	store.On("GetThread", mock.Anything, "thread-1").Return(realtime.Thread{}, testErr)

	svc.SendTyping(context.Background(), "thread-1", "donor-1", true)

	broadcaster.AssertNotCalled(t, "BroadcastToAccount", mock.Anything, mock.Anything)
}

func TestSendTyping_DroppedForNonParticipant(t *testing.T) {
	svc, store, broadcaster, _ := newTestService(t)

	store.On("GetThread", mock.Anything, "thread-1").Return(testThread, nil)

	svc.SendTyping(context.Background(), "thread-1", "intruder", true)

	broadcaster.AssertNotCalled(t, "BroadcastToAccount", mock.Anything, mock.Anything)
}

// --- MarkRead ---

func TestMarkRead_PersistsThenPublishes(t *testing.T) {
	svc, store, _, producer := newTestService(t)

	store.On("GetThread", mock.Anything, "thread-1").Return(testThread, nil)
	store.On("MarkRead", mock.Anything, "thread-1", "donor-1", mock.AnythingOfType("time.Time")).Return(nil)
	producer.On("Publish", mock.Anything, mock.MatchedBy(func(evt *realtime.Event) bool {
		if evt.Type != realtime.EventThreadRead {
			return false
		}
		if len(evt.Targets) != 1 || evt.Targets[0] != "center-1" {
			return false
		}
		var payload realtime.ThreadReadPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return false
		}
		return payload.ReaderAccountID == "donor-1" && !payload.ReadAt.IsZero()
	})).Return(nil)

	err := svc.MarkRead(context.Background(), "thread-1", "donor-1")

	require.NoError(t, err)
	mock.AssertExpectationsForObjects(t, store, producer)
}

func TestMarkRead_NonParticipant(t *testing.T) {
	svc, store, _, producer := newTestService(t)

	store.On("GetThread", mock.Anything, "thread-1").Return(testThread, nil)

	err := svc.MarkRead(context.Background(), "thread-1", "intruder")

	require.ErrorIs(t, err, thread.ErrNotParticipant)
	store.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestMarkRead_PersistFailurePropagates(t *testing.T) {
	svc, store, _, producer := newTestService(t)

	store.On("GetThread", mock.Anything, "thread-1").Return(testThread, nil)
	store.On("MarkRead", mock.Anything, "thread-1", "donor-1", mock.AnythingOfType("time.Time")).Return(testErr)

	err := svc.MarkRead(context.Background(), "thread-1", "donor-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, testErr)
	producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestMarkRead_PublishFailureSwallowed(t *testing.T) {
	// Once the read state is durable, a notification failure must not force
	// the client to retry.
	svc, store, _, producer := newTestService(t)

	store.On("GetThread", mock.Anything, "thread-1").Return(testThread, nil)
	store.On("MarkRead", mock.Anything, "thread-1", "donor-1", mock.AnythingOfType("time.Time")).Return(nil)
	producer.On("Publish", mock.Anything, mock.Anything).Return(testErr)

	err := svc.MarkRead(context.Background(), "thread-1", "donor-1")

	require.NoError(t, err)
	mock.AssertExpectationsForObjects(t, store, producer)
}
