package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/ecoctf/platform/internal/server/models"
)

type ctxKey int

const userKey ctxKey = 0

// Authenticator resolves bearer tokens to live users.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// requireAuth extracts the bearer token, resolves it to a user and stores
// the user in the request context. Every failure is the same uniform 401.
func requireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
				return
			}
			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				respondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
		})
	}
}

// userFrom returns the authenticated user stored by requireAuth.
func userFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
