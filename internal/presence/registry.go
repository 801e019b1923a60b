// Package presence tracks how many live connections each account holds and
// exposes the online/offline predicate the dispatcher routes on.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

// MirrorStore is an optional external reflection of presence state, so
// sibling services can read who is online without asking this process.
// Mirror failures are logged and swallowed; the in-process counters stay
// authoritative.
type MirrorStore interface {
	Set(ctx context.Context, accountID string, info realtime.ConnectionInfo) error
	Delete(ctx context.Context, accountID string) error
}

// TransitionFunc is invoked on a 0->1 (online) or 1->0 (offline) count
// transition. It runs outside the registry lock.
type TransitionFunc func(accountID string)

// Registry is the session registry: a mutex-guarded count of live
// connections per account. Multiple connections for the same account share
// one entry, so multi-device users transition online once and offline once.
type Registry struct {
	mu     sync.Mutex
	counts map[string]int

	onOnline  TransitionFunc
	onOffline TransitionFunc

	mirror     MirrorStore
	instanceID string
	logger     zerolog.Logger
}

// NewRegistry creates a registry. mirror may be nil when no external
// presence reflection is configured.
func NewRegistry(mirror MirrorStore, instanceID string, logger zerolog.Logger) *Registry {
	return &Registry{
		counts:     make(map[string]int),
		mirror:     mirror,
		instanceID: instanceID,
		logger:     logger.With().Str("component", "PresenceRegistry").Logger(),
	}
}

// SetTransitionHooks installs the online/offline transition callbacks.
// Must be called before connections start arriving.
func (r *Registry) SetTransitionHooks(onOnline, onOffline TransitionFunc) {
	r.onOnline = onOnline
	r.onOffline = onOffline
}

// Increment raises the account's connection count. The online transition
// fires exactly when the count goes 0->1.
func (r *Registry) Increment(ctx context.Context, accountID string) {
	r.mu.Lock()
	count := r.counts[accountID]
	r.counts[accountID] = count + 1
	r.mu.Unlock()

	if count != 0 {
		return
	}

	if r.mirror != nil {
		info := realtime.ConnectionInfo{
			ServerInstanceID: r.instanceID,
			ConnectedAt:      time.Now().Unix(),
		}
		if err := r.mirror.Set(ctx, accountID, info); err != nil {
			r.logger.Error().Err(err).Str("account", accountID).Msg("Failed to mirror presence set.")
		}
	}
	if r.onOnline != nil {
		r.onOnline(accountID)
	}
}

// Decrement lowers the account's connection count, floored at zero. The
// offline transition fires exactly when the count goes 1->0.
func (r *Registry) Decrement(ctx context.Context, accountID string) {
	r.mu.Lock()
	count := r.counts[accountID]
	if count == 0 {
		r.mu.Unlock()
		r.logger.Warn().Str("account", accountID).Msg("Decrement called for account with no live connections.")
		return
	}
	if count == 1 {
		delete(r.counts, accountID)
	} else {
		r.counts[accountID] = count - 1
	}
	r.mu.Unlock()

	if count != 1 {
		return
	}

	if r.mirror != nil {
		if err := r.mirror.Delete(ctx, accountID); err != nil {
			r.logger.Error().Err(err).Str("account", accountID).Msg("Failed to mirror presence delete.")
		}
	}
	if r.onOffline != nil {
		r.onOffline(accountID)
	}
}

// IsOnline reports whether the account has at least one live connection.
func (r *Registry) IsOnline(accountID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[accountID] > 0
}

// Count returns the account's live connection count.
func (r *Registry) Count(accountID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[accountID]
}
