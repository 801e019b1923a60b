// Package pipeline contains the event dispatch stages: a transformer that
// validates raw bus payloads and the processor that routes each event to
// live delivery or an out-of-band push.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/rs/zerolog/log"

	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

// EventTransformer is a dataflow Transformer stage that safely unmarshals a
// raw message payload from the ingress topic into a validated
// realtime.Event. A payload that fails either step is marked for skipping
// so the StreamingService can Nack it.
func EventTransformer(_ context.Context, msg *messagepipeline.Message) (*realtime.Event, bool, error) {
	var evt realtime.Event
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		log.Error().Err(err).Str("msg_id", msg.ID).Msg("Failed to unmarshal delivery event")
		return nil, true, fmt.Errorf("failed to unmarshal delivery event from message %s: %w", msg.ID, err)
	}

	if err := evt.Validate(); err != nil {
		log.Error().Err(err).Str("msg_id", msg.ID).Msg("Rejected invalid delivery event")
		return nil, true, fmt.Errorf("invalid delivery event in message %s: %w", msg.ID, err)
	}

	return &evt, false, nil
}
