package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced    = "OrderPlaced"
	EventOrderCancelled = "OrderCancelled"
)

type OrderLineEvent struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderEvent is published after an order transaction commits.
type OrderEvent struct {
	EventID    string           `json:"event_id"`
	EventType  string           `json:"event_type"`
	OrderID    int64            `json:"order_id"`
	UserID     int64            `json:"user_id"`
	TotalMoney decimal.Decimal  `json:"total_money"`
	CouponCode string           `json:"coupon_code,omitempty"`
	Lines      []OrderLineEvent `json:"lines,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

func NewOrderEvent(eventType string, o *Order, at time.Time) OrderEvent {
	evt := OrderEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalMoney: o.TotalMoney,
		CouponCode: o.CouponCode,
		OccurredAt: at,
	}
	for _, d := range o.Details {
		evt.Lines = append(evt.Lines, OrderLineEvent{
			ProductID: d.ProductID,
			Quantity:  d.NumberOfProducts,
			Price:     d.Price,
		})
	}
	return evt
}
