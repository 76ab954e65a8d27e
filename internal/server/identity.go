package server

import (
	"context"
	"net/http"

	"github.com/braindrive/library/internal/scope"
	"github.com/braindrive/library/pkg/mcperr"
)

type contextKey string

// userIDKey carries the normalized tenant id through the request context.
const userIDKey contextKey = "braindrive.user_id"

// enforceIdentity validates the user identity header and, when configured,
// the service token. /health is exempt.
func (s *Server) enforceIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == scope.HealthPath {
			next.ServeHTTP(w, r)

			return
		}

		ctx := r.Context()

		if s.cfg.Library.RequireUserHeader {
			raw := r.Header.Get(scope.UserIDHeader)
			if raw == "" {
				writeFailure(w, http.StatusUnauthorized, mcperr.New(
					"AUTH_REQUIRED",
					"Missing required user identity header.",
					map[string]any{"header": scope.UserIDHeader},
				))

				return
			}

			userID, err := scope.NormalizeUserID(raw)
			if err != nil {
				mcpErr, _ := mcperr.As(err)
				writeFailure(w, http.StatusUnauthorized, mcpErr)

				return
			}

			ctx = context.WithValue(ctx, userIDKey, userID)
		}

		if token := s.cfg.Library.ServiceToken; token != "" {
			if r.Header.Get(scope.ServiceTokenHeader) != token {
				writeFailure(w, http.StatusForbidden, mcperr.New(
					"AUTH_FORBIDDEN",
					"Invalid service token.",
					map[string]any{"header": scope.ServiceTokenHeader},
				))

				return
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestUserID reads the normalized user id cached by the middleware,
// falling back to the header when identity enforcement is disabled.
func requestUserID(r *http.Request) (string, error) {
	if cached, ok := r.Context().Value(userIDKey).(string); ok && cached != "" {
		return cached, nil
	}

	raw := r.Header.Get(scope.UserIDHeader)
	if raw == "" {
		return "", mcperr.New(
			"AUTH_REQUIRED",
			"Missing required user identity header.",
			map[string]any{"header": scope.UserIDHeader},
		)
	}

	return scope.NormalizeUserID(raw)
}
