package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/naili/storefront/api/middleware"
	"github.com/naili/storefront/api/responses"
	"github.com/naili/storefront/api/validators"
	"github.com/naili/storefront/internal/cart"
	"github.com/naili/storefront/pkg/auth/session"
	pkgcheckout "github.com/naili/storefront/pkg/checkout"
	pkgerrors "github.com/naili/storefront/pkg/errors"
	"github.com/naili/storefront/pkg/logger"
)

type cartSessions interface {
	Get(ctx context.Context, sess session.Session) (*cart.Reconciler, error)
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=999"`
}

type cartResponse struct {
	cart.Snapshot
	DeliveryFee  decimal.Decimal `json:"delivery_fee"`
	PayableTotal decimal.Decimal `json:"payable_total"`
	LocalOnly    bool            `json:"local_only"`
}

func newCartResponse(rec *cart.Reconciler, fee decimal.Decimal) cartResponse {
	snap := rec.Snapshot()
	return cartResponse{
		Snapshot:     snap,
		DeliveryFee:  fee,
		PayableTotal: pkgcheckout.PayableTotal(snap.Totals.ItemPriceTotal, fee),
		LocalOnly:    snap.CartID == "",
	}
}

// reconcilerFor returns the session's reconciler. A failed mount is not fatal; the
// reconciler serves the local cart until a later request mounts it.
func reconcilerFor(r *http.Request, carts cartSessions) (*cart.Reconciler, error) {
	if carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart registry unavailable")
	}
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	rec, err := carts.Get(r.Context(), sess)
	if rec == nil {
		if err == nil {
			err = pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable")
		}
		return nil, err
	}
	return rec, nil
}

// CartFetch returns the session cart with its totals.
func CartFetch(carts cartSessions, fee decimal.Decimal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := reconcilerFor(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(rec, fee))
	}
}

// CartSetItem sets the quantity of one product; zero removes it. The response
// reflects the local cart, the remote write continues in the background.
func CartSetItem(carts cartSessions, fee decimal.Decimal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.PathParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rec, err := reconcilerFor(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := settledError(rec.SetQuantity(r.Context(), productID, *payload.Quantity)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(rec, fee))
	}
}

// CartRemoveItem drops one product from the cart.
func CartRemoveItem(carts cartSessions, fee decimal.Decimal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.PathParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rec, err := reconcilerFor(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := settledError(rec.RemoveItem(r.Context(), productID)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(rec, fee))
	}
}

// CartClear empties the cart.
func CartClear(carts cartSessions, fee decimal.Decimal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := reconcilerFor(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := settledError(rec.Clear(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(rec, fee))
	}
}

// settledError reports a mutation that was refused up front, such as one issued
// after the reconciler closed. Background sync outcomes are not waited for.
func settledError(done <-chan error) error {
	select {
	case err := <-done:
		if errors.Is(err, cart.ErrClosed) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "session signed out")
		}
		if pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			return err
		}
		return nil
	default:
		return nil
	}
}
