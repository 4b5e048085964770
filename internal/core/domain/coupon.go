package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixedAmount
}

var hundred = decimal.NewFromInt(100)

type Coupon struct {
	ID                int64           `json:"id"`
	Code              string          `json:"code"`
	Description       string          `json:"description"`
	DiscountType      DiscountType    `json:"discount_type"`
	DiscountValue     decimal.Decimal `json:"discount_value"`
	MinPurchaseAmount decimal.Decimal `json:"min_purchase_amount"`

	// StartDate and EndDate are stored as yyyy-MM-dd strings.
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	Active bool `json:"active"`
}

// Window parses the stored validity bounds in loc.
func (c *Coupon) Window(loc *time.Location) (start, end time.Time, err error) {
	start, err = ParseDate(c.StartDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = ParseDate(c.EndDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// ValidOn reports whether day lies strictly between the start and end dates.
// Both boundary days are excluded.
func (c *Coupon) ValidOn(day time.Time) (bool, error) {
	start, end, err := c.Window(day.Location())
	if err != nil {
		return false, err
	}
	day = DateOf(day)
	return day.After(start) && day.Before(end), nil
}

// Discount is the amount taken off total, before flooring the result at zero.
func (c *Coupon) Discount(total decimal.Decimal) decimal.Decimal {
	switch c.DiscountType {
	case DiscountPercentage:
		return total.Mul(c.DiscountValue).Div(hundred)
	case DiscountFixedAmount:
		return c.DiscountValue
	}
	return decimal.Zero
}

// Apply returns max(0, total - discount).
func (c *Coupon) Apply(total decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, total.Sub(c.Discount(total)))
}
