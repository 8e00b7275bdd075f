package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/PauloHFS/goth-blog/internal/auth"
	"github.com/PauloHFS/goth-blog/internal/contextkeys"
	"github.com/PauloHFS/goth-blog/internal/logging"
	"github.com/PauloHFS/goth-blog/internal/policies"
)

// CredentialResolver turns a bearer credential into a user id.
// auth.Resolver satisfies it.
type CredentialResolver interface {
	Resolve(credential string) (userID int64, ok bool)
}

// Identity puts the requester into the context. A missing or invalid
// credential yields an anonymous requester and the request goes on.
func Identity(resolver CredentialResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requester := policies.Anonymous()
			if token := auth.BearerToken(r.Header.Get("Authorization")); token != "" {
				if userID, ok := resolver.Resolve(token); ok {
					requester = policies.AuthenticatedAs(userID)
					logging.AddToEvent(r.Context(), slog.Int64("user_id", userID))
				} else {
					logging.AddToEvent(r.Context(), slog.Bool("invalid_credential", true))
				}
			}
			next.ServeHTTP(w, r.WithContext(WithRequester(r.Context(), requester)))
		})
	}
}

// RequireAuth answers 401 unless Identity resolved a user.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetRequester(r.Context()).Present {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithRequester(ctx context.Context, requester policies.Requester) context.Context {
	return context.WithValue(ctx, contextkeys.RequesterKey, requester)
}

// GetRequester returns the requester stored by Identity, or anonymous.
func GetRequester(ctx context.Context) policies.Requester {
	if requester, ok := ctx.Value(contextkeys.RequesterKey).(policies.Requester); ok {
		return requester
	}
	return policies.Anonymous()
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
