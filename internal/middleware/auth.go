package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/kindredapp/companion/backend/internal/auth"
	"github.com/kindredapp/companion/backend/internal/model/companion"
	"github.com/kindredapp/companion/backend/pkg/utils"
)

type contextKey struct{ name string }

var identityKey = &contextKey{"identity"}

// RequireSession authenticates the bearer token on every request and injects
// the resolved user id into the request context. Requests without a valid
// session are rejected with 401 UNAUTHORIZED.
func RequireSession(authenticator auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := authenticator.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				utils.RespondJSON(w, http.StatusUnauthorized, &companion.Error{
					Message: "Unauthorized. Please sign in.",
					Code:    companion.CodeUnauthorized,
				})
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the authenticated user id stored by RequireSession,
// or the empty string when the request was not authenticated.
func IdentityFrom(ctx context.Context) string {
	userID, _ := ctx.Value(identityKey).(string)
	return userID
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
