package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Dan9191/budget-service/internal/apperr"
	"github.com/Dan9191/budget-service/internal/models"
	"github.com/Dan9191/budget-service/internal/response"
	"github.com/sirupsen/logrus"
)

type contextKey int

const userKey contextKey = iota

// Authenticator resolves a bearer token to the calling user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware requires a valid bearer token and stores the user in the request context
func AuthMiddleware(auth Authenticator, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				response.Error(w, r, log, apperr.Unauthenticated("Not authenticated", nil))
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				response.Error(w, r, log, err)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// UserFromContext returns the user set by AuthMiddleware
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok
}

// WithUser returns a copy of ctx carrying user
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}
