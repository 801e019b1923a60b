// Package push bridges the dispatcher to the out-of-band push provider. It
// publishes one push command per registered destination to a Pub/Sub topic
// consumed by the provider-facing notification bridge.
package push

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/rs/zerolog"

	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

// EventProducer defines the interface for publishing a message to the push
// topic.
type EventProducer interface {
	Publish(ctx context.Context, data messagepipeline.MessageData) (string, error)
}

// PubSubNotifier implements the realtime.PushNotifier interface.
type PubSubNotifier struct {
	producer EventProducer
	logger   zerolog.Logger
}

// pushCommand is the message shape the notification bridge consumes: one
// destination plus the synthesized payload.
type pushCommand struct {
	Token    string                `json:"token"`
	Platform string                `json:"platform"`
	Payload  *realtime.PushPayload `json:"payload"`
}

// NewPubSubNotifier is the constructor for the PubSubNotifier.
func NewPubSubNotifier(producer EventProducer, logger zerolog.Logger) (*PubSubNotifier, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer cannot be nil")
	}
	return &PubSubNotifier{
		producer: producer,
		logger:   logger.With().Str("component", "PubSubNotifier").Logger(),
	}, nil
}

// Notify synthesizes a push payload for the event and publishes one command
// per destination token. A destination that fails to publish does not stop
// the rest; the first error is returned for logging by the caller.
func (n *PubSubNotifier) Notify(ctx context.Context, tokens []realtime.DeviceToken, evt *realtime.Event) error {
	if evt == nil {
		return fmt.Errorf("notify failed: event cannot be nil")
	}

	payload := BuildPayload(evt)
	var firstErr error

	for _, token := range tokens {
		command := pushCommand{
			Token:    token.Token,
			Platform: token.Platform,
			Payload:  payload,
		}
		commandBytes, err := json.Marshal(command)
		if err != nil {
			n.logger.Error().Err(err).Msg("Failed to marshal push command")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		messageData := messagepipeline.MessageData{
			ID:      uuid.NewString(),
			Payload: commandBytes,
		}
		if _, err := n.producer.Publish(ctx, messageData); err != nil {
			n.logger.Warn().Err(err).Str("platform", token.Platform).Msg("Failed to publish push command")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		return fmt.Errorf("failed to publish one or more push commands: %w", firstErr)
	}
	return nil
}

// BuildPayload synthesizes the user-facing notification for a delivery
// event: a title, a body, and a structured data map referencing the
// originating entity so the client can deep-link without a follow-up fetch.
func BuildPayload(evt *realtime.Event) *realtime.PushPayload {
	data := map[string]string{"type": string(evt.Type)}

	switch evt.Type {
	case realtime.EventMessageNew:
		var msg realtime.MessagePayload
		if err := json.Unmarshal(evt.Payload, &msg); err == nil {
			data["threadId"] = msg.ThreadID
		}
		return &realtime.PushPayload{
			Title: "New message",
			Body:  "You have received a new message.",
			Data:  data,
		}

	case realtime.EventThreadRead:
		var read realtime.ThreadReadPayload
		if err := json.Unmarshal(evt.Payload, &read); err == nil {
			data["threadId"] = read.ThreadID
		}
		return &realtime.PushPayload{
			Title: "Message read",
			Body:  "Your message has been read.",
			Data:  data,
		}

	case realtime.EventStatusChanged:
		var status realtime.StatusPayload
		if err := json.Unmarshal(evt.Payload, &status); err == nil {
			data["itemId"] = status.ItemID
			data["status"] = status.Status
		}
		return &realtime.PushPayload{
			Title: "Donation update",
			Body:  "A donation you follow has changed status.",
			Data:  data,
		}

	default:
		return &realtime.PushPayload{
			Title: "DoaFácil",
			Body:  "You have a new notification.",
			Data:  data,
		}
	}
}
