package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/naili/storefront/api/responses"
	"github.com/naili/storefront/pkg/auth/session"
	pkgerrors "github.com/naili/storefront/pkg/errors"
	"github.com/naili/storefront/pkg/logger"
)

const deviceIDHeader = "X-Device-Id"

// SessionResolver turns request credentials into a session.
type SessionResolver interface {
	Resolve(ctx context.Context, token, deviceID string) (session.Session, error)
}

// Session resolves the bearer token, or the device header for guests, and seeds
// the request context with the result. Requests carrying neither are rejected.
func Session(resolver SessionResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session resolver unavailable"))
				return
			}

			token := bearerToken(r.Header.Get("Authorization"))
			deviceID := strings.TrimSpace(r.Header.Get(deviceIDHeader))
			if token == "" && deviceID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			sess, err := resolver.Resolve(r.Context(), token, deviceID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithSession(r.Context(), sess)
			if logg != nil {
				if userID := session.UserID(sess); userID != "" {
					ctx = logg.WithUserID(ctx, userID)
				} else {
					ctx = logg.WithField(ctx, "device_id", deviceID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects guest sessions.
func RequireUser(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !session.IsAuthenticated(SessionFromContext(r.Context())) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(raw string) string {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
