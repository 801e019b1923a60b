// Package pubsub contains concrete adapters for interacting with Google
// Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub/v2"

	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

// pubsubTopicClient defines the interface for the underlying pubsub topic.
// This allows us to use a mock for testing.
type pubsubTopicClient interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// Producer implements the realtime.IngestionProducer interface. It acts as
// an adapter, serializing a delivery event and publishing it to the ingress
// topic.
type Producer struct {
	topic pubsubTopicClient
}

// NewProducer is the constructor for the Pub/Sub producer. It takes a topic
// client that it will publish events to.
func NewProducer(topic pubsubTopicClient) *Producer {
	return &Producer{
		topic: topic,
	}
}

// Publish serializes the event and sends it to the message bus. It conforms
// to the realtime.IngestionProducer interface.
func (p *Producer) Publish(ctx context.Context, evt *realtime.Event) error {
	payloadBytes, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event for publishing: %w", err)
	}

	message := &pubsub.Message{
		Data: payloadBytes,
	}

	result := p.topic.Publish(ctx, message)
	if _, err = result.Get(ctx); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
