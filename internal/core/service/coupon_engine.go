package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/catalog-orders/internal/core/domain"
	"github.com/rl1809/catalog-orders/internal/pkg/clock"
	"github.com/rl1809/catalog-orders/internal/port"
)

// CouponEngine validates a coupon code against an order total and computes
// the discounted amount. It never writes.
type CouponEngine struct {
	db    port.DatabaseRepository
	clock clock.Clock
}

func NewCouponEngine(db port.DatabaseRepository, clk clock.Clock) *CouponEngine {
	return &CouponEngine{db: db, clock: clk}
}

// Evaluate returns the total after applying the coupon identified by code.
func (e *CouponEngine) Evaluate(ctx context.Context, code string, total decimal.Decimal) (decimal.Decimal, error) {
	return e.evaluate(ctx, e.db.Repositories().Coupons, code, total)
}

// evaluate runs against the given repository so PlaceOrder can read the
// coupon inside its own transaction.
func (e *CouponEngine) evaluate(ctx context.Context, coupons port.CouponRepository, code string, total decimal.Decimal) (decimal.Decimal, error) {
	if code == "" {
		return decimal.Zero, &domain.CouponError{Code: code, Reason: "code is empty"}
	}
	if total.IsNegative() {
		return decimal.Zero, domain.NewFieldError("total", "must not be negative")
	}

	c, err := coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return decimal.Zero, &domain.CouponError{Code: code, Reason: "does not exist", Err: err}
		}
		return decimal.Zero, fmt.Errorf("find coupon: %w", err)
	}
	if !c.Active {
		return decimal.Zero, &domain.CouponError{Code: code, Reason: "is not active"}
	}

	ok, err := c.ValidOn(e.clock.Now())
	if err != nil {
		return decimal.Zero, &domain.CouponError{Code: code, Reason: "has a malformed validity window", Err: err}
	}
	if !ok {
		return decimal.Zero, &domain.CouponError{
			Code:   code,
			Reason: fmt.Sprintf("is only valid between %s and %s", c.StartDate, c.EndDate),
		}
	}

	if total.LessThan(c.MinPurchaseAmount) {
		return decimal.Zero, &domain.CouponError{
			Code:   code,
			Reason: fmt.Sprintf("requires a minimum purchase of %s", c.MinPurchaseAmount.StringFixed(2)),
		}
	}

	return c.Apply(total), nil
}
