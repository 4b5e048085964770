package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catalog-orders/internal/core/domain"
)

func TestCouponEngine_Evaluate(t *testing.T) {
	f := newFixture(t)
	f.addSave10()
	f.db.AddCoupon(domain.Coupon{
		ID:                2,
		Code:              "FLAT500",
		DiscountType:      domain.DiscountFixedAmount,
		DiscountValue:     decimal.NewFromInt(500),
		MinPurchaseAmount: decimal.NewFromInt(100),
		StartDate:         "2024-01-01",
		EndDate:           "2024-12-31",
		Active:            true,
	})
	f.db.AddCoupon(domain.Coupon{
		ID:                3,
		Code:              "OFF",
		DiscountType:      domain.DiscountPercentage,
		DiscountValue:     decimal.NewFromInt(5),
		MinPurchaseAmount: decimal.NewFromInt(1),
		StartDate:         "2024-01-01",
		EndDate:           "2024-12-31",
	})
	f.db.AddCoupon(domain.Coupon{
		ID:                4,
		Code:              "BROKEN",
		DiscountType:      domain.DiscountPercentage,
		DiscountValue:     decimal.NewFromInt(5),
		MinPurchaseAmount: decimal.NewFromInt(1),
		StartDate:         "01/01/2024",
		EndDate:           "2024-12-31",
		Active:            true,
	})
	ctx := context.Background()

	tests := []struct {
		name    string
		now     time.Time
		code    string
		total   int64
		want    int64
		wantErr error
	}{
		{name: "percentage", code: "SAVE10", total: 200, want: 180},
		{name: "fixed amount floors at zero", code: "FLAT500", total: 300, want: 0},
		{name: "minimum purchase is inclusive", code: "SAVE10", total: 50, want: 45},
		{name: "below minimum", code: "SAVE10", total: 49, wantErr: domain.ErrInvalidCoupon},
		{name: "on start date", now: time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC), code: "SAVE10", total: 200, wantErr: domain.ErrInvalidCoupon},
		{name: "day after start", now: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), code: "SAVE10", total: 200, want: 180},
		{name: "on end date", now: time.Date(2024, 12, 31, 8, 0, 0, 0, time.UTC), code: "SAVE10", total: 200, wantErr: domain.ErrInvalidCoupon},
		{name: "unknown code", code: "MISSING", total: 200, wantErr: domain.ErrNotFound},
		{name: "inactive", code: "OFF", total: 200, wantErr: domain.ErrInvalidCoupon},
		{name: "malformed window", code: "BROKEN", total: 200, wantErr: domain.ErrInvalidCoupon},
		{name: "empty code", code: "", total: 200, wantErr: domain.ErrInvalidCoupon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := tt.now
			if now.IsZero() {
				now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
			}
			f.clock.Set(now)

			got, err := f.engine.Evaluate(ctx, tt.code, decimal.NewFromInt(tt.total))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, domain.ErrInvalidCoupon)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)), "got %s", got)
		})
	}
}

func validCoupon(code string) CouponRequest {
	return CouponRequest{
		Code:              code,
		Description:       "summer sale",
		DiscountType:      domain.DiscountPercentage,
		DiscountValue:     decimal.NewFromInt(15),
		MinPurchaseAmount: decimal.NewFromInt(100),
		StartDate:         "2024-06-01",
		EndDate:           "2024-08-31",
		Active:            true,
	}
}

func TestCouponService_CRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.coupons.CreateCoupon(ctx, validCoupon("SUMMER15"))
	require.NoError(t, err)
	assert.NotZero(t, c.ID)

	_, err = f.coupons.CreateCoupon(ctx, validCoupon("SUMMER15"))
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	other, err := f.coupons.CreateCoupon(ctx, validCoupon("WINTER"))
	require.NoError(t, err)

	_, err = f.coupons.UpdateCoupon(ctx, other.ID, validCoupon("SUMMER15"))
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	req := validCoupon("SUMMER15")
	req.DiscountValue = decimal.NewFromInt(20)
	updated, err := f.coupons.UpdateCoupon(ctx, c.ID, req)
	require.NoError(t, err)
	assert.True(t, updated.DiscountValue.Equal(decimal.NewFromInt(20)))

	toggled, err := f.coupons.ToggleCoupon(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Active)

	_, err = f.engine.Evaluate(ctx, "SUMMER15", decimal.NewFromInt(200))
	require.ErrorIs(t, err, domain.ErrInvalidCoupon)

	list, err := f.coupons.ListCoupons(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, f.coupons.DeleteCoupon(ctx, c.ID))
	_, err = f.coupons.GetCoupon(ctx, c.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = f.coupons.DeleteCoupon(ctx, c.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCouponService_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *CouponRequest)
	}{
		{"short code", func(r *CouponRequest) { r.Code = "AB" }},
		{"unknown type", func(r *CouponRequest) { r.DiscountType = "BOGO" }},
		{"zero value", func(r *CouponRequest) { r.DiscountValue = decimal.Zero }},
		{"zero minimum", func(r *CouponRequest) { r.MinPurchaseAmount = decimal.Zero }},
		{"bad start date", func(r *CouponRequest) { r.StartDate = "June 1" }},
		{"end before start", func(r *CouponRequest) { r.EndDate = "2024-05-01" }},
	}

	f := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCoupon("VALID")
			tt.mutate(&req)
			_, err := f.coupons.CreateCoupon(context.Background(), req)
			require.ErrorIs(t, err, domain.ErrInvalidParam)
		})
	}
}
