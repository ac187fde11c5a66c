package controllers

import (
	"context"
	"net/http"

	"github.com/naili/storefront/api/middleware"
	"github.com/naili/storefront/api/responses"
	"github.com/naili/storefront/pkg/auth/session"
	pkgerrors "github.com/naili/storefront/pkg/errors"
	"github.com/naili/storefront/pkg/logger"
)

type cartDropper interface {
	Drop(key string)
}

type profileForgetter interface {
	Forget(ctx context.Context, userID string)
}

// SessionSignout discards the session's cart state and cached profile. The
// remote cart is kept for the next sign-in.
func SessionSignout(carts cartDropper, profiles profileForgetter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session"))
			return
		}

		if carts != nil {
			carts.Drop(sess.Key())
		}
		if userID := session.UserID(sess); userID != "" && profiles != nil {
			profiles.Forget(r.Context(), userID)
		}

		responses.WriteSuccess(w, map[string]string{"status": "signed_out"})
	}
}
