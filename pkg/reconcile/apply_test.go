package reconcile_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/reconcile"
)

type donationDoc struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Offers int64  `json:"offers"`
}

func (d donationDoc) EntityID() string { return d.ID }

func decodeDonation(raw json.RawMessage) (donationDoc, error) {
	var d donationDoc
	err := json.Unmarshal(raw, &d)
	return d, err
}

func patchDonation(d *donationDoc, field string, value int64) {
	if field == "offers" {
		d.Offers = value
	}
}

func newTestApplier(t *testing.T) (*reconcile.Applier[donationDoc], *reconcile.View[donationDoc]) {
	t.Helper()
	view := reconcile.NewView[donationDoc]()
	applier, err := reconcile.NewApplier(view, decodeDonation, patchDonation)
	require.NoError(t, err)
	return applier, view
}

func mustEvent(t *testing.T, eventType realtime.EventType, payload any) *realtime.Event {
	t.Helper()
	evt, err := realtime.NewEvent(eventType, nil, payload)
	require.NoError(t, err)
	return evt
}

func TestApplier_ItemCreated(t *testing.T) {
	applier, view := newTestApplier(t)

	err := applier.Apply(mustEvent(t, realtime.EventItemCreated, donationDoc{ID: "a", Title: "Blankets"}))

	require.NoError(t, err)
	assert.Equal(t, 1, view.Len())
	assert.Equal(t, reconcile.ProvenanceLiveInjected, view.Provenance("a"))
}

func TestApplier_UpdateFamily(t *testing.T) {
	applier, view := newTestApplier(t)
	view.Refresh([]donationDoc{{ID: "a", Title: "old"}})

	for _, eventType := range []realtime.EventType{
		realtime.EventItemUpdated,
		realtime.EventStatusChanged,
		realtime.EventModerationAction,
	} {
		err := applier.Apply(mustEvent(t, eventType, donationDoc{ID: "a", Title: string(eventType)}))
		require.NoError(t, err)
		assert.Equal(t, string(eventType), view.Items()[0].Title)
	}
	assert.Equal(t, 1, view.Len())
}

func TestApplier_ItemDeleted(t *testing.T) {
	applier, view := newTestApplier(t)
	view.Refresh([]donationDoc{{ID: "a"}})

	err := applier.Apply(mustEvent(t, realtime.EventItemDeleted, donationDoc{ID: "a"}))

	require.NoError(t, err)
	assert.Equal(t, 0, view.Len())
}

func TestApplier_CounterUpdate(t *testing.T) {
	applier, view := newTestApplier(t)
	view.Refresh([]donationDoc{{ID: "a", Offers: 1}})

	err := applier.Apply(mustEvent(t, realtime.EventCounterUpdate, realtime.CounterPayload{
		EntityID: "a",
		Field:    "offers",
		Value:    7,
	}))

	require.NoError(t, err)
	assert.Equal(t, int64(7), view.Items()[0].Offers)
}

func TestApplier_CounterUpdateWithoutPatchFunc(t *testing.T) {
	view := reconcile.NewView[donationDoc]()
	applier, err := reconcile.NewApplier(view, decodeDonation, nil)
	require.NoError(t, err)
	view.Refresh([]donationDoc{{ID: "a", Offers: 1}})

	err = applier.Apply(mustEvent(t, realtime.EventCounterUpdate, realtime.CounterPayload{
		EntityID: "a", Field: "offers", Value: 7,
	}))

	require.NoError(t, err)
	assert.Equal(t, int64(1), view.Items()[0].Offers)
}

func TestApplier_MalformedPayloadSurfacesError(t *testing.T) {
	applier, view := newTestApplier(t)

	evt := &realtime.Event{ID: "evt-1", Type: realtime.EventItemCreated, Payload: []byte("not json")}
	err := applier.Apply(evt)

	require.Error(t, err)
	assert.Equal(t, 0, view.Len())
}

func TestApplier_IgnoresUnrelatedEvents(t *testing.T) {
	applier, view := newTestApplier(t)

	err := applier.Apply(mustEvent(t, realtime.EventUserOnline, realtime.PresencePayload{AccountID: "donor-1"}))

	require.NoError(t, err)
	assert.Equal(t, 0, view.Len())
}
