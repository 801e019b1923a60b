// Package realtime contains the public domain models, interfaces, and
// dependency definitions for the realtime service. It defines the contract
// between the CRUD layer, connected clients, and the delivery subsystem.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of delivery event carried by an Event envelope.
type EventType string

// Server-to-client signal types. Auth signals are only ever sent directly to
// the connection that attempted the handshake; presence signals go to every
// live connection.
const (
	EventAuthOK      EventType = "auth-ok"
	EventAuthError   EventType = "auth-error"
	EventAuthBlocked EventType = "auth-blocked"
	EventAuthDeleted EventType = "auth-deleted"

	EventUserOnline  EventType = "user-online"
	EventUserOffline EventType = "user-offline"

	EventTyping     EventType = "typing"
	EventMessageNew EventType = "message-new"
	EventThreadRead EventType = "thread-read"

	EventItemCreated      EventType = "item-created"
	EventItemUpdated      EventType = "item-updated"
	EventItemDeleted      EventType = "item-deleted"
	EventStatusChanged    EventType = "status-changed"
	EventModerationAction EventType = "moderation-action"
	EventCounterUpdate    EventType = "counter-update"
)

// Event is the immutable delivery envelope. It exists only for the duration
// of the broadcast/dispatch step and is never persisted by this service.
// An empty Targets slice means the event is broadcast to every live
// connection; otherwise it is dispatched per target account.
type Event struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	Targets    []string        `json:"targets,omitempty"`
	Ephemeral  bool            `json:"ephemeral,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// NewEvent builds an Event with a fresh ID, marshaling payload into the
// envelope. A nil payload is allowed.
func NewEvent(eventType EventType, targets []string, payload any) (*Event, error) {
	evt := &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Targets:    targets,
		OccurredAt: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event payload: %w", err)
		}
		evt.Payload = raw
	}
	return evt, nil
}

// IsGlobal reports whether the event is addressed to every live connection.
func (e *Event) IsGlobal() bool { return len(e.Targets) == 0 }

// Validate checks the minimal envelope invariants before dispatch.
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event is missing an id")
	}
	if e.Type == "" {
		return fmt.Errorf("event %s is missing a type", e.ID)
	}
	return nil
}

// Message is the chat message shape this subsystem reacts to. The record
// itself is owned by the CRUD layer.
type Message struct {
	ID        string     `json:"id"`
	SenderID  string     `json:"sender"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}

// MessagePayload is the payload of a message-new event.
type MessagePayload struct {
	ThreadID string  `json:"threadId"`
	Message  Message `json:"message"`
}

// ThreadReadPayload is the payload of a thread-read event, carrying the
// concrete persisted timestamp so the reader's counterpart can trust it.
type ThreadReadPayload struct {
	ThreadID        string    `json:"threadId"`
	ReaderAccountID string    `json:"readerAccountId"`
	ReadAt          time.Time `json:"readAt"`
}

// TypingPayload is the payload of an ephemeral typing event.
type TypingPayload struct {
	ThreadID      string `json:"threadId"`
	FromAccountID string `json:"fromAccountId"`
	IsTyping      bool   `json:"isTyping"`
}

// CounterPayload patches a single numeric field on an entity without
// refetching it.
type CounterPayload struct {
	EntityID string `json:"entityId"`
	Field    string `json:"field"`
	Value    int64  `json:"value"`
}

// StatusPayload is the payload of a status-changed event.
type StatusPayload struct {
	ItemID string `json:"itemId"`
	Status string `json:"status"`
}

// PresencePayload is the payload of user-online / user-offline events.
type PresencePayload struct {
	AccountID string `json:"accountId"`
}

// AuthResultPayload is the payload of an auth-ok signal.
type AuthResultPayload struct {
	AccountID string `json:"accountId"`
}

// Client-to-server signal types, sent over an established WebSocket.
const (
	SignalAuthenticate = "authenticate"
	SignalTyping       = "typing"
	SignalMarkRead     = "mark-read"
)

// ClientSignal is the single frame shape clients send over the live
// connection. Unused fields are omitted per signal type.
type ClientSignal struct {
	Type       string `json:"type"`
	Credential string `json:"credential,omitempty"`
	ThreadID   string `json:"threadId,omitempty"`
	IsTyping   bool   `json:"isTyping,omitempty"`
}

// AccountStatus is the moderation state of an account as recorded by the
// CRUD layer.
type AccountStatus string

const (
	AccountActive  AccountStatus = "active"
	AccountBlocked AccountStatus = "blocked"
	AccountDeleted AccountStatus = "deleted"
)

// AccountSnapshot is the slice of account state the handshake needs.
type AccountSnapshot struct {
	ID     string        `json:"id"`
	Status AccountStatus `json:"status"`
}

// Thread is a two-participant conversation, owned by the CRUD layer.
type Thread struct {
	ID           string   `json:"id"`
	Participants []string `json:"participants"`
}

// OtherParticipant returns the counterpart of accountID in the thread,
// and false when accountID is not a participant.
func (t *Thread) OtherParticipant(accountID string) (string, bool) {
	if len(t.Participants) != 2 {
		return "", false
	}
	switch accountID {
	case t.Participants[0]:
		return t.Participants[1], true
	case t.Participants[1]:
		return t.Participants[0], true
	}
	return "", false
}

// DeviceToken represents a registered push destination for an account.
type DeviceToken struct {
	Token    string `json:"token"`
	Platform string `json:"platform"` // e.g., "ios", "android", "web"
}

// PushPayload is the out-of-band notification handed to the push provider
// bridge when a target account has no live connection.
type PushPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// ConnectionInfo holds details about a live connection. It is what the
// presence mirror stores per online account.
type ConnectionInfo struct {
	ServerInstanceID string `json:"serverInstanceId"`
	ConnectedAt      int64  `json:"connectedAt"`
}
