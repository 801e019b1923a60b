// Package fakes provides in-memory test doubles (fakes) and test-specific
// adapters for the service's dependencies. These are used in the cmd/local
// entrypoint and in integration tests.
package fakes

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/rs/zerolog"

	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

// --- Consumer ---

type InMemoryConsumer struct {
	outputChan chan messagepipeline.Message
	logger     zerolog.Logger
	stopOnce   sync.Once
	doneChan   chan struct{}
}

func NewInMemoryConsumer(bufferSize int, logger zerolog.Logger) *InMemoryConsumer {
	return &InMemoryConsumer{
		outputChan: make(chan messagepipeline.Message, bufferSize),
		logger:     logger.With().Str("component", "InMemoryConsumer").Logger(),
		doneChan:   make(chan struct{}),
	}
}
func (c *InMemoryConsumer) Push(msg messagepipeline.Message) {
	select {
	case c.outputChan <- msg:
	case <-c.doneChan:
	}
}
func (c *InMemoryConsumer) Messages() <-chan messagepipeline.Message { return c.outputChan }
func (c *InMemoryConsumer) Start(_ context.Context) error            { return nil }
func (c *InMemoryConsumer) Stop(_ context.Context) error {
	c.stopOnce.Do(func() {
		close(c.doneChan)
		close(c.outputChan)
	})
	return nil
}
func (c *InMemoryConsumer) Done() <-chan struct{} { return c.doneChan }

// --- Producers ---

// LoopbackProducer implements realtime.IngestionProducer by feeding published
// events straight back into an InMemoryConsumer, closing the loop between the
// API and the dispatch pipeline without a broker.
type LoopbackProducer struct {
	consumer *InMemoryConsumer
	logger   zerolog.Logger
}

func NewLoopbackProducer(consumer *InMemoryConsumer, logger zerolog.Logger) *LoopbackProducer {
	return &LoopbackProducer{consumer: consumer, logger: logger}
}

func (p *LoopbackProducer) Publish(_ context.Context, evt *realtime.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("loopback producer: failed to marshal event: %w", err)
	}
	p.logger.Info().Str("event_id", evt.ID).Msg("[FAKES-PRODUCER] Looping event back to consumer.")
	p.consumer.Push(messagepipeline.Message{
		MessageData: messagepipeline.MessageData{ID: evt.ID, Payload: payload},
		Ack:         func() {},
		Nack:        func() {},
	})
	return nil
}

// --- Persistence & Notifications ---

// PushNotifier records the notifications that would have gone to the push
// delivery topic.
type PushNotifier struct {
	logger zerolog.Logger

	mu       sync.Mutex
	notified []*realtime.Event
}

func NewPushNotifier(logger zerolog.Logger) *PushNotifier { return &PushNotifier{logger: logger} }
func (m *PushNotifier) Notify(_ context.Context, _ []realtime.DeviceToken, evt *realtime.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, evt)
	return nil
}
func (m *PushNotifier) Notified() []*realtime.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*realtime.Event, len(m.notified))
	copy(out, m.notified)
	return out
}

// TokenStore is an in-memory realtime.TokenStore that also serves as the
// device-token fetcher.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string][]realtime.DeviceToken
}

func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string][]realtime.DeviceToken)}
}

func (s *TokenStore) Register(_ context.Context, accountID string, token realtime.DeviceToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tokens[accountID] {
		if existing.Token == token.Token {
			return nil
		}
	}
	s.tokens[accountID] = append(s.tokens[accountID], token)
	return nil
}

func (s *TokenStore) Unregister(_ context.Context, accountID string, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tokens[accountID][:0]
	for _, existing := range s.tokens[accountID] {
		if existing.Token != token {
			kept = append(kept, existing)
		}
	}
	s.tokens[accountID] = kept
	return nil
}

// Fetch implements cache.Fetcher[string, []realtime.DeviceToken].
func (s *TokenStore) Fetch(_ context.Context, accountID string) ([]realtime.DeviceToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[accountID], nil
}
func (s *TokenStore) Close() error { return nil }

// AccountFetcher is an in-memory cache.Fetcher[string, realtime.AccountSnapshot].
type AccountFetcher struct {
	mu       sync.Mutex
	accounts map[string]realtime.AccountSnapshot
}

func NewAccountFetcher() *AccountFetcher {
	return &AccountFetcher{accounts: make(map[string]realtime.AccountSnapshot)}
}

func (f *AccountFetcher) Add(snapshot realtime.AccountSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[snapshot.ID] = snapshot
}

func (f *AccountFetcher) Fetch(_ context.Context, accountID string) (realtime.AccountSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, ok := f.accounts[accountID]
	if !ok {
		return realtime.AccountSnapshot{}, fmt.Errorf("account %s not found", accountID)
	}
	return snapshot, nil
}
func (f *AccountFetcher) Close() error { return nil }

// ThreadStore is an in-memory realtime.ThreadStore.
type ThreadStore struct {
	mu      sync.Mutex
	threads map[string]realtime.Thread
	reads   map[string]time.Time
}

func NewThreadStore() *ThreadStore {
	return &ThreadStore{
		threads: make(map[string]realtime.Thread),
		reads:   make(map[string]time.Time),
	}
}

func (s *ThreadStore) Add(thread realtime.Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[thread.ID] = thread
}

func (s *ThreadStore) GetThread(_ context.Context, threadID string) (realtime.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	thread, ok := s.threads[threadID]
	if !ok {
		return realtime.Thread{}, fmt.Errorf("thread %s not found", threadID)
	}
	return thread, nil
}

func (s *ThreadStore) MarkRead(_ context.Context, threadID, accountID string, readAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads[threadID+"/"+accountID] = readAt
	return nil
}

func (s *ThreadStore) ReadAt(threadID, accountID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.reads[threadID+"/"+accountID]
	return at, ok
}

// PresenceMirror is an in-memory presence.MirrorStore.
type PresenceMirror struct {
	mu      sync.Mutex
	entries map[string]realtime.ConnectionInfo
}

func NewPresenceMirror() *PresenceMirror {
	return &PresenceMirror{entries: make(map[string]realtime.ConnectionInfo)}
}

func (m *PresenceMirror) Set(_ context.Context, accountID string, info realtime.ConnectionInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[accountID] = info
	return nil
}

func (m *PresenceMirror) Delete(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, accountID)
	return nil
}

func (m *PresenceMirror) Get(accountID string) (realtime.ConnectionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.entries[accountID]
	return info, ok
}
