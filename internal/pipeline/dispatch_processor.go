package pipeline

import (
	"context"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/rs/zerolog"

	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
	"github.com/EngDotorDaSilva/doafacil-sub000/realtimeservice/config"
)

// NewDispatchProcessor returns the notification dispatcher: the pipeline
// stage that decides, per event and per target, between live delivery and
// an out-of-band push. An online target gets the live channel only and an
// offline target gets push only; the two paths are never combined for one
// event, so an already-connected client is never double-notified.
//
// The processor always returns nil for delivery-side failures: the
// triggering mutation already succeeded, and a redelivered event would
// risk duplicate pushes. Clients recover missed events on their next full
// refresh.
func NewDispatchProcessor(
	deps *realtime.ServiceDependencies,
	cfg *config.AppConfig,
	logger zerolog.Logger,
) messagepipeline.StreamProcessor[realtime.Event] {
	pushTimeout := cfg.PushSendTimeout

	return func(ctx context.Context, msg messagepipeline.Message, evt *realtime.Event) error {
		procLogger := logger.With().
			Str("event_id", evt.ID).
			Str("event_type", string(evt.Type)).
			Str("msg_id", msg.ID).
			Logger()

		if evt.IsGlobal() {
			deps.Broadcaster.BroadcastGlobal(evt)
			procLogger.Debug().Msg("Broadcast global event to all live connections.")
			return nil
		}

		for _, target := range evt.Targets {
			targetLogger := procLogger.With().Str("recipient", target).Logger()

			if deps.Presence.IsOnline(target) {
				deps.Broadcaster.BroadcastToAccount(target, evt)
				targetLogger.Debug().Msg("Recipient online, delivered over live channel.")
				continue
			}

			if evt.Ephemeral {
				targetLogger.Debug().Msg("Recipient offline and event is ephemeral, dropping.")
				continue
			}

			tokens, err := deps.DeviceTokenFetcher.Fetch(ctx, target)
			if err != nil {
				targetLogger.Warn().Err(err).Msg("Failed to fetch push destinations, skipping push.")
				continue
			}
			if len(tokens) == 0 {
				targetLogger.Debug().Msg("Recipient offline with no push destinations registered.")
				continue
			}

			pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
			if err := deps.PushNotifier.Notify(pushCtx, tokens, evt); err != nil {
				targetLogger.Warn().Err(err).Msg("Push dispatch failed.")
			} else {
				targetLogger.Debug().Int("destinations", len(tokens)).Msg("Recipient offline, push dispatched.")
			}
			cancel()
		}

		return nil
	}
}
