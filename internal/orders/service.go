package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/naili/storefront/pkg/db"
	pkgerrors "github.com/naili/storefront/pkg/errors"
	"github.com/naili/storefront/pkg/pagination"
)

// Service exposes the customer's order history.
type Service interface {
	ListForCustomer(ctx context.Context, userID string, params pagination.Params) (*OrderList, error)
	Get(ctx context.Context, userID, orderID string) (*OrderDetail, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListForCustomer(ctx context.Context, userID string, params pagination.Params) (*OrderList, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	list, err := s.repo.ListCustomerOrders(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "list orders")
	}
	return list, nil
}

func (s *service) Get(ctx context.Context, userID, orderID string) (*OrderDetail, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindCustomerOrder(ctx, userID, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "load order")
	}
	return detailFromModel(*order), nil
}
