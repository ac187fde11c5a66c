package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/naili/storefront/pkg/db/models"
	"github.com/naili/storefront/pkg/enums"
)

// OrderSummary is one row of the customer's order history.
type OrderSummary struct {
	ID              string            `json:"id"`
	Status          enums.OrderStatus `json:"status"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	TotalItems      int               `json:"total_items"`
	DeliveryAddress string            `json:"delivery_address"`
	CreatedAt       time.Time         `json:"created_at"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderLine is a snapshotted order line.
type OrderLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderDetail is the full view of a single order.
type OrderDetail struct {
	ID              string            `json:"id"`
	CartID          *string           `json:"cart_id,omitempty"`
	Status          enums.OrderStatus `json:"status"`
	DeliveryAddress string            `json:"delivery_address"`
	DeliveryPhone   string            `json:"delivery_phone"`
	DeliveryNote    *string           `json:"delivery_note,omitempty"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	FailureReason   *string           `json:"failure_reason,omitempty"`
	Items           []OrderLine       `json:"items"`
	CreatedAt       time.Time         `json:"created_at"`
}

func summaryFromModel(order models.Order) OrderSummary {
	total := 0
	for _, item := range order.Items {
		total += item.Quantity
	}
	return OrderSummary{
		ID:              order.ID,
		Status:          order.Status,
		TotalAmount:     order.TotalAmount,
		TotalItems:      total,
		DeliveryAddress: order.DeliveryAddress,
		CreatedAt:       order.CreatedAt,
	}
}

func detailFromModel(order models.Order) *OrderDetail {
	lines := make([]OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	return &OrderDetail{
		ID:              order.ID,
		CartID:          order.CartID,
		Status:          order.Status,
		DeliveryAddress: order.DeliveryAddress,
		DeliveryPhone:   order.DeliveryPhone,
		DeliveryNote:    order.DeliveryNote,
		TotalAmount:     order.TotalAmount,
		FailureReason:   order.FailureReason,
		Items:           lines,
		CreatedAt:       order.CreatedAt,
	}
}
