package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"
)

type contextKey int

const accountIDKey contextKey = iota

// GetAccountIDFromContext returns the authenticated caller's account ID, as
// placed in the request context by NewAuthMiddleware.
func GetAccountIDFromContext(ctx context.Context) (string, bool) {
	accountID, ok := ctx.Value(accountIDKey).(string)
	return accountID, ok && accountID != ""
}

// NewAuthMiddleware returns middleware that verifies a Bearer token signed
// with the shared HS256 secret and injects its subject into the request
// context. Both clients and the CRUD layer authenticate this way.
func NewAuthMiddleware(secret []byte, logger zerolog.Logger) func(http.Handler) http.Handler {
	mwLogger := logger.With().Str("component", "AuthMiddleware").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			rawToken, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || rawToken == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing authentication token")
				return
			}

			tok, err := jwt.Parse([]byte(rawToken), jwt.WithKey(jwa.HS256, secret), jwt.WithValidate(true))
			if err != nil {
				mwLogger.Debug().Err(err).Msg("Rejected request with invalid token.")
				writeJSONError(w, http.StatusUnauthorized, "invalid authentication token")
				return
			}

			accountID := tok.Subject()
			if accountID == "" {
				writeJSONError(w, http.StatusUnauthorized, "token carries no subject")
				return
			}

			ctx := context.WithValue(r.Context(), accountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
