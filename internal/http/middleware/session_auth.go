package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/oncontrol/platform/internal/auth"
	"github.com/oncontrol/platform/internal/model"
)

type contextKey string

const sessionUserKey contextKey = "sessionUser"

// SessionJWT enforces an HMAC-signed session token and puts the resolved
// identity on the request context.
func SessionJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "session auth disabled", http.StatusUnauthorized)
				return
			}
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			user, err := auth.VerifyToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), sessionUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated identity if present.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(sessionUserKey).(*model.User)
	return user, ok
}

// ContextUserSource adapts the request context to the gateway's identity
// lookup.
type ContextUserSource struct{}

func (ContextUserSource) CurrentUser(ctx context.Context) *model.User {
	user, _ := UserFromContext(ctx)
	return user
}
