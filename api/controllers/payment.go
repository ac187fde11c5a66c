package controllers

import (
	"context"
	"net/http"

	"github.com/naili/storefront/api/middleware"
	"github.com/naili/storefront/api/responses"
	"github.com/naili/storefront/api/validators"
	"github.com/naili/storefront/internal/orders"
	"github.com/naili/storefront/internal/payments"
	"github.com/naili/storefront/pkg/auth/session"
	"github.com/naili/storefront/pkg/enums"
	pkgerrors "github.com/naili/storefront/pkg/errors"
	"github.com/naili/storefront/pkg/logger"
)

type paymentInitiator interface {
	Initiate(ctx context.Context, req payments.Request) (string, error)
}

type paymentResponse struct {
	OrderID     string `json:"order_id"`
	CheckoutURL string `json:"checkout_url"`
}

// OrderPayment starts hosted payment for a pending order and returns the
// provider's checkout URL.
func OrderPayment(svc orders.Service, payer paymentInitiator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRemoteUnavailable, "payments are not configured"))
			return
		}

		orderID, err := validators.PathParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, ok := middleware.SessionFromContext(r.Context()).(session.Authenticated)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required"))
			return
		}

		order, err := svc.Get(r.Context(), user.UserID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order.Status != enums.OrderStatusPending {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "order is not awaiting payment"))
			return
		}

		fullName := ""
		if user.Profile != nil {
			fullName = user.Profile.FullName
		}
		cartID := ""
		if order.CartID != nil {
			cartID = *order.CartID
		}

		checkoutURL, err := payer.Initiate(r.Context(), payments.Request{
			Email:    user.Email,
			FullName: fullName,
			Amount:   order.TotalAmount,
			Metadata: payments.Metadata{
				UserID:  user.UserID,
				OrderID: order.ID,
				CartID:  cartID,
				Address: order.DeliveryAddress,
				Phone:   order.DeliveryPhone,
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, paymentResponse{OrderID: order.ID, CheckoutURL: checkoutURL})
	}
}
