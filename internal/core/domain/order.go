package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used for shipping and coupon dates.
const DateLayout = "2006-01-02"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	FullName        string          `json:"full_name"`
	Email           string          `json:"email"`
	PhoneNumber     string          `json:"phone_number"`
	Address         string          `json:"address"`
	Note            string          `json:"note"`
	Status          OrderStatus     `json:"status"`
	OrderDate       time.Time       `json:"order_date"`
	ShippingMethod  string          `json:"shipping_method"`
	ShippingAddress string          `json:"shipping_address"`
	ShippingDate    time.Time       `json:"shipping_date"`
	PaymentMethod   string          `json:"payment_method"`
	CouponCode      string          `json:"coupon_code,omitempty"`
	TotalMoney      decimal.Decimal `json:"total_money"`

	// Active is false once the order has been cancelled; rows are never removed.
	Active bool `json:"active"`

	Details []OrderDetail `json:"order_details,omitempty"`
}

// OrderDetail is one line of an order. The product is referenced by id only.
type OrderDetail struct {
	ID               int64           `json:"id"`
	OrderID          int64           `json:"order_id"`
	ProductID        int64           `json:"product_id"`
	Price            decimal.Decimal `json:"price"`
	NumberOfProducts int             `json:"number_of_products"`
	TotalMoney       decimal.Decimal `json:"total_money"`
	Color            string          `json:"color,omitempty"`
}

// NewOrderDetail snapshots the product price at order time.
func NewOrderDetail(orderID int64, p *Product, quantity int, color string) OrderDetail {
	return OrderDetail{
		OrderID:          orderID,
		ProductID:        p.ID,
		Price:            p.Price,
		NumberOfProducts: quantity,
		TotalMoney:       p.Price.Mul(decimal.NewFromInt(int64(quantity))),
		Color:            color,
	}
}

// Requantify returns the line with a new quantity and color. The price
// snapshot is kept and the line total recomputed from it.
func (d OrderDetail) Requantify(quantity int, color string) OrderDetail {
	d.NumberOfProducts = quantity
	d.TotalMoney = d.Price.Mul(decimal.NewFromInt(int64(quantity)))
	d.Color = color
	return d
}

// LinesTotal sums the line totals of the given details.
func LinesTotal(details []OrderDetail) decimal.Decimal {
	total := decimal.Zero
	for _, d := range details {
		total = total.Add(d.TotalMoney)
	}
	return total
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate parses a yyyy-MM-dd string as a calendar day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}
