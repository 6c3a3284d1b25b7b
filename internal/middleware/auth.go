package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/avelldiaz/authbase/internal/auth"
	"github.com/avelldiaz/authbase/internal/http/respond"
	"github.com/avelldiaz/authbase/internal/models"
	"github.com/avelldiaz/authbase/internal/storage"
)

type contextKey int

const userContextKey contextKey = iota

// Messages stay generic on purpose: the response must not reveal whether
// the signature, structure, or account lookup failed.
const (
	msgNoToken      = "Access denied. No token provided."
	msgInvalidToken = "Invalid or expired token."
	msgExpiredToken = "Token has expired."
	msgServerConfig = "Server configuration error."
	msgUnexpected   = "An unexpected error occurred."
)

// Authenticate verifies the bearer token and resolves the current user.
// Requests that pass carry the user in the request context.
func Authenticate(tokens *auth.TokenManager, store storage.UserStore, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				respond.Error(w, http.StatusUnauthorized, msgNoToken)
				return
			}

			subject, err := tokens.Verify(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrNoSecret):
					log.Error("auth guard: signing secret is not configured")
					respond.Error(w, http.StatusInternalServerError, msgServerConfig)
				case errors.Is(err, auth.ErrTokenExpired):
					respond.Error(w, http.StatusUnauthorized, msgExpiredToken)
				default:
					respond.Error(w, http.StatusUnauthorized, msgInvalidToken)
				}
				return
			}

			user, err := store.FindByID(r.Context(), subject)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					respond.Error(w, http.StatusUnauthorized, msgInvalidToken)
					return
				}
				log.Error("auth guard: resolve user", "error", err)
				respond.Error(w, http.StatusInternalServerError, msgUnexpected)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user attached by Authenticate.
func UserFromContext(ctx context.Context) (models.SafeUser, bool) {
	user, ok := ctx.Value(userContextKey).(models.SafeUser)
	return user, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
