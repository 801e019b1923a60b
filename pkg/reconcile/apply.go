package reconcile

import (
	"encoding/json"
	"fmt"

	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

// Applier routes entity lifecycle events onto a View. It is the glue a
// client keeps per list: one View per filter/sort/pagination state, one
// Applier feeding it from the live connection.
type Applier[T Entity] struct {
	view   *View[T]
	decode func(json.RawMessage) (T, error)
	patch  func(item *T, field string, value int64)
}

// NewApplier builds an Applier. decode turns an event payload into the
// view's entity type; patch applies a counter-update to a single field
// and may be nil when the list carries no counters.
func NewApplier[T Entity](
	view *View[T],
	decode func(json.RawMessage) (T, error),
	patch func(item *T, field string, value int64),
) (*Applier[T], error) {
	if view == nil {
		return nil, fmt.Errorf("view cannot be nil")
	}
	if decode == nil {
		return nil, fmt.Errorf("decode func cannot be nil")
	}
	return &Applier[T]{view: view, decode: decode, patch: patch}, nil
}

// Apply merges one live event into the view. Events the view has no use
// for are ignored; a malformed payload is returned as an error so the
// client can fall back to a full refresh.
func (a *Applier[T]) Apply(evt *realtime.Event) error {
	switch evt.Type {
	case realtime.EventItemCreated:
		item, err := a.decode(evt.Payload)
		if err != nil {
			return fmt.Errorf("failed to decode created item: %w", err)
		}
		a.view.ApplyCreate(item)

	case realtime.EventItemUpdated, realtime.EventStatusChanged, realtime.EventModerationAction:
		item, err := a.decode(evt.Payload)
		if err != nil {
			return fmt.Errorf("failed to decode updated item: %w", err)
		}
		a.view.ApplyUpdate(item)

	case realtime.EventItemDeleted:
		item, err := a.decode(evt.Payload)
		if err != nil {
			return fmt.Errorf("failed to decode deleted item: %w", err)
		}
		a.view.ApplyDelete(item.EntityID())

	case realtime.EventCounterUpdate:
		if a.patch == nil {
			return nil
		}
		var counter realtime.CounterPayload
		if err := json.Unmarshal(evt.Payload, &counter); err != nil {
			return fmt.Errorf("failed to decode counter payload: %w", err)
		}
		a.view.ApplyPatch(counter.EntityID, func(item *T) {
			a.patch(item, counter.Field, counter.Value)
		})
	}
	return nil
}
