package pipeline_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EngDotorDaSilva/doafacil-sub000/internal/pipeline"
	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

func TestEventTransformer_Success(t *testing.T) {
	// Arrange
	evt, err := realtime.NewEvent(realtime.EventItemCreated, nil, realtime.StatusPayload{ItemID: "item-1"})
	require.NoError(t, err)
	payload, err := json.Marshal(evt)
	require.NoError(t, err)

	msg := &messagepipeline.Message{
		MessageData: messagepipeline.MessageData{ID: "msg-1", Payload: payload},
	}

	// Act
	decoded, skip, err := pipeline.EventTransformer(context.Background(), msg)

	// Assert
	require.NoError(t, err)
	assert.False(t, skip)
	require.NotNil(t, decoded)
	assert.Equal(t, evt.ID, decoded.ID)
	assert.Equal(t, realtime.EventItemCreated, decoded.Type)
}

func TestEventTransformer_MalformedPayload(t *testing.T) {
	msg := &messagepipeline.Message{
		MessageData: messagepipeline.MessageData{ID: "msg-1", Payload: []byte("not json")},
	}

	decoded, skip, err := pipeline.EventTransformer(context.Background(), msg)

	require.Error(t, err)
	assert.True(t, skip)
	assert.Nil(t, decoded)
}

func TestEventTransformer_InvalidEnvelope(t *testing.T) {
	// Valid JSON, but missing the required type field.
	payload, err := json.Marshal(realtime.Event{ID: "evt-1"})
	require.NoError(t, err)
	msg := &messagepipeline.Message{
		MessageData: messagepipeline.MessageData{ID: "msg-1", Payload: payload},
	}

	decoded, skip, err := pipeline.EventTransformer(context.Background(), msg)

	require.Error(t, err)
	assert.True(t, skip)
	assert.Nil(t, decoded)
}
