package middleware

import (
	"context"

	"github.com/naili/storefront/pkg/auth/session"
)

type contextKey string

const ctxSession contextKey = "session"

// SessionFromContext returns the session resolved for the request, or nil.
func SessionFromContext(ctx context.Context) session.Session {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxSession).(session.Session); ok {
		return v
	}
	return nil
}

// UserIDFromContext is empty for guests and unresolved requests.
func UserIDFromContext(ctx context.Context) string {
	return session.UserID(SessionFromContext(ctx))
}

// WithSession injects the session into the context for downstream handlers.
func WithSession(ctx context.Context, sess session.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, sess)
}
