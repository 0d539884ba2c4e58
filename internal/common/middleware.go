package common

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const viewerKey contextKey = "viewer_id"

// AuthMiddleware extracts the authenticated user from the Authorization header
// and stores their id in the request context for the handlers.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := ValidToken(tokenString, secret)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), viewerKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ViewerID returns the authenticated user id placed in the context by
// AuthMiddleware. The second return is false for unauthenticated contexts.
func ViewerID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(viewerKey).(string)
	return id, ok && id != ""
}

// WithViewer is used by tests and the websocket upgrader to seed a context.
func WithViewer(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, viewerKey, userID)
}
