package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/naili/storefront/api/middleware"
	"github.com/naili/storefront/api/responses"
	"github.com/naili/storefront/api/validators"
	checkoutsvc "github.com/naili/storefront/internal/checkout"
	pkgcheckout "github.com/naili/storefront/pkg/checkout"
	pkgerrors "github.com/naili/storefront/pkg/errors"
	"github.com/naili/storefront/pkg/logger"
)

// Address and phone may be omitted when the signed-in profile carries them.
type checkoutRequest struct {
	DeliveryAddress string `json:"delivery_address" validate:"max=500"`
	DeliveryPhone   string `json:"delivery_phone" validate:"max=32"`
	DeliveryNote    string `json:"delivery_note,omitempty" validate:"max=500"`
}

type checkoutResponse struct {
	OrderID      string            `json:"order_id"`
	State        checkoutsvc.State `json:"state"`
	PayableTotal decimal.Decimal   `json:"payable_total"`
}

// Checkout confirms the session cart as a pending order.
func Checkout(carts cartSessions, svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart registry unavailable"))
			return
		}
		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session"))
			return
		}
		rec, err := carts.Get(r.Context(), sess)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "cart is not synchronized"))
			return
		}
		rec.Wait()

		attempt, err := svc.ConfirmCart(r.Context(), sess, rec, pkgcheckout.Delivery{
			Address: validators.SanitizeString(payload.DeliveryAddress, 500),
			Phone:   validators.SanitizeString(payload.DeliveryPhone, 32),
			Note:    validators.SanitizeString(payload.DeliveryNote, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderID:      attempt.OrderID,
			State:        attempt.State,
			PayableTotal: attempt.PayableTotal,
		})
	}
}
