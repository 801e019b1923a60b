// Package auth implements the per-connection handshake: credential
// verification plus an account status lookup. It runs on every new
// connection, never across reconnects, because blocked/deleted status can
// change between connections.
package auth

import (
	"context"
	"fmt"

	"github.com/illmade-knight/go-dataflow/pkg/cache"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"

	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

// State is the handshake outcome.
type State int

const (
	// StateOK admits the connection and binds it to Result.AccountID.
	StateOK State = iota
	// StateError leaves the connection unauthenticated but open, so the
	// client can retry with a fresh credential.
	StateError
	// StateBlocked terminates the connection after the typed signal.
	StateBlocked
	// StateDeleted terminates the connection after the typed signal.
	StateDeleted
)

// Result is the outcome of one handshake attempt.
type Result struct {
	State     State
	AccountID string
}

// Handshaker validates connection credentials and resolves account status.
type Handshaker struct {
	secret   []byte
	accounts cache.Fetcher[string, realtime.AccountSnapshot]
	logger   zerolog.Logger
}

// NewHandshaker creates a Handshaker. secret is the HS256 key shared with
// the identity issuer.
func NewHandshaker(
	secret []byte,
	accounts cache.Fetcher[string, realtime.AccountSnapshot],
	logger zerolog.Logger,
) (*Handshaker, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	if accounts == nil {
		return nil, fmt.Errorf("account fetcher cannot be nil")
	}
	return &Handshaker{
		secret:   secret,
		accounts: accounts,
		logger:   logger.With().Str("component", "Handshaker").Logger(),
	}, nil
}

// Verify runs one handshake attempt for the given credential. Any failure
// to parse, verify, or resolve the account maps to StateError; only a
// resolved blocked/deleted account yields a terminal state.
func (h *Handshaker) Verify(ctx context.Context, credential string) Result {
	tok, err := jwt.Parse(
		[]byte(credential),
		jwt.WithKey(jwa.HS256, h.secret),
		jwt.WithValidate(true),
	)
	if err != nil {
		h.logger.Debug().Err(err).Msg("Credential failed verification.")
		return Result{State: StateError}
	}

	accountID := tok.Subject()
	if accountID == "" {
		h.logger.Debug().Msg("Credential carries no subject claim.")
		return Result{State: StateError}
	}

	snapshot, err := h.accounts.Fetch(ctx, accountID)
	if err != nil {
		h.logger.Warn().Err(err).Str("account", accountID).Msg("Account lookup failed during handshake.")
		return Result{State: StateError}
	}

	switch snapshot.Status {
	case realtime.AccountDeleted:
		return Result{State: StateDeleted, AccountID: accountID}
	case realtime.AccountBlocked:
		return Result{State: StateBlocked, AccountID: accountID}
	case realtime.AccountActive:
		return Result{State: StateOK, AccountID: accountID}
	default:
		h.logger.Warn().Str("account", accountID).Str("status", string(snapshot.Status)).
			Msg("Account has unrecognized status.")
		return Result{State: StateError}
	}
}
