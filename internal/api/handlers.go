// Package api defines the HTTP surface of the realtime service: event
// ingestion for the CRUD layer, push destination registration, and the
// presence predicate for sibling services.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

// API holds the dependencies for the stateless HTTP handlers.
type API struct {
	producer realtime.IngestionProducer
	tokens   realtime.TokenStore
	presence realtime.PresenceReader
	logger   zerolog.Logger
}

// NewAPI creates a new, stateless API handler.
func NewAPI(
	producer realtime.IngestionProducer,
	tokens realtime.TokenStore,
	presence realtime.PresenceReader,
	logger zerolog.Logger,
) *API {
	return &API{
		producer: producer,
		tokens:   tokens,
		presence: presence,
		logger:   logger,
	}
}

// PublishEventHandler ingests a delivery event from the CRUD layer and
// publishes it to the ingress topic. The caller's mutation has already been
// persisted; a 202 here only means the event entered the dispatch pipeline.
func (a *API) PublishEventHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := GetAccountIDFromContext(r.Context())
	if !ok {
		a.logger.Warn().Msg("PublishEventHandler: no caller identity in context")
		writeJSONError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}
	log := a.logger.With().Str("caller", callerID).Logger()

	var evt realtime.Event
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		log.Warn().Err(err).Msg("Failed to decode delivery event")
		writeJSONError(w, http.StatusBadRequest, "invalid event format")
		return
	}

	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	if err := evt.Validate(); err != nil {
		log.Warn().Err(err).Msg("Rejected invalid delivery event")
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.producer.Publish(r.Context(), &evt); err != nil {
		log.Error().Err(err).Str("event_id", evt.ID).Msg("Failed to publish event to ingress topic")
		writeJSONError(w, http.StatusInternalServerError, "failed to accept event")
		return
	}

	log.Debug().Str("event_id", evt.ID).Str("event_type", string(evt.Type)).Msg("Event accepted for dispatch")
	writeJSON(w, http.StatusAccepted, nil)
}

type tokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// RegisterTokenHandler records a push destination for the calling account.
func (a *API) RegisterTokenHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}

	var body tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Token == "" || body.Platform == "" {
		writeJSONError(w, http.StatusBadRequest, "token and platform are required")
		return
	}

	token := realtime.DeviceToken{Token: body.Token, Platform: body.Platform}
	if err := a.tokens.Register(r.Context(), accountID, token); err != nil {
		a.logger.Error().Err(err).Str("account", accountID).Msg("Failed to register push destination")
		writeJSONError(w, http.StatusInternalServerError, "failed to register push destination")
		return
	}

	a.logger.Info().Str("account", accountID).Str("platform", body.Platform).Msg("Push destination registered")
	w.WriteHeader(http.StatusNoContent)
}

// UnregisterTokenHandler removes a push destination for the calling
// account. Removing an unknown token is a no-op success.
func (a *API) UnregisterTokenHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}

	var body tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Token == "" {
		writeJSONError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := a.tokens.Unregister(r.Context(), accountID, body.Token); err != nil {
		a.logger.Error().Err(err).Str("account", accountID).Msg("Failed to unregister push destination")
		writeJSONError(w, http.StatusInternalServerError, "failed to unregister push destination")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type presenceResponse struct {
	AccountID string `json:"accountId"`
	Online    bool   `json:"online"`
}

// PresenceHandler reports whether an account has at least one live
// connection on this instance.
func (a *API) PresenceHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := GetAccountIDFromContext(r.Context()); !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}

	accountID := r.PathValue("accountID")
	if accountID == "" {
		writeJSONError(w, http.StatusBadRequest, "accountID is required")
		return
	}

	writeJSON(w, http.StatusOK, presenceResponse{
		AccountID: accountID,
		Online:    a.presence.IsOnline(accountID),
	})
}
