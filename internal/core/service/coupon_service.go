package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/catalog-orders/internal/core/domain"
	"github.com/rl1809/catalog-orders/internal/port"
)

type CouponRequest struct {
	Code              string              `json:"code"`
	Description       string              `json:"description"`
	DiscountType      domain.DiscountType `json:"discount_type"`
	DiscountValue     decimal.Decimal     `json:"discount_value"`
	MinPurchaseAmount decimal.Decimal     `json:"min_purchase_amount"`
	StartDate         string              `json:"start_date"`
	EndDate           string              `json:"end_date"`
	Active            bool                `json:"active"`
}

func (r *CouponRequest) validate() error {
	code := strings.TrimSpace(r.Code)
	if len(code) < 3 || len(code) > 50 {
		return domain.NewFieldError("code", "must be between 3 and 50 characters")
	}
	if !r.DiscountType.Valid() {
		return domain.NewFieldError("discount_type", fmt.Sprintf("unknown type %q", r.DiscountType))
	}
	if !r.DiscountValue.IsPositive() {
		return domain.NewFieldError("discount_value", "must be positive")
	}
	if !r.MinPurchaseAmount.IsPositive() {
		return domain.NewFieldError("min_purchase_amount", "must be positive")
	}
	start, err := time.Parse(domain.DateLayout, r.StartDate)
	if err != nil {
		return domain.NewFieldError("start_date", "must be formatted as yyyy-MM-dd")
	}
	end, err := time.Parse(domain.DateLayout, r.EndDate)
	if err != nil {
		return domain.NewFieldError("end_date", "must be formatted as yyyy-MM-dd")
	}
	if !start.Before(end) {
		return domain.NewFieldError("end_date", "must be after start_date")
	}
	return nil
}

func (r *CouponRequest) applyTo(c *domain.Coupon) {
	c.Code = strings.TrimSpace(r.Code)
	c.Description = r.Description
	c.DiscountType = r.DiscountType
	c.DiscountValue = r.DiscountValue
	c.MinPurchaseAmount = r.MinPurchaseAmount
	c.StartDate = r.StartDate
	c.EndDate = r.EndDate
	c.Active = r.Active
}

// CouponService administers coupons. Evaluation lives in CouponEngine.
type CouponService struct {
	db port.DatabaseRepository
}

func NewCouponService(db port.DatabaseRepository) *CouponService {
	return &CouponService{db: db}
}

func (s *CouponService) CreateCoupon(ctx context.Context, req CouponRequest) (*domain.Coupon, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	c := &domain.Coupon{}
	req.applyTo(c)
	err := s.db.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		exists, err := repos.Coupons.ExistsByCode(ctx, c.Code)
		if err != nil {
			return fmt.Errorf("check coupon code: %w", err)
		}
		if exists {
			return fmt.Errorf("coupon %q: %w", c.Code, domain.ErrAlreadyExists)
		}
		if err := repos.Coupons.Insert(ctx, c); err != nil {
			return fmt.Errorf("insert coupon: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CouponService) UpdateCoupon(ctx context.Context, id int64, req CouponRequest) (*domain.Coupon, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var updated *domain.Coupon
	err := s.db.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		c, err := repos.Coupons.FindByID(ctx, id)
		if err != nil {
			return err
		}
		code := strings.TrimSpace(req.Code)
		if code != c.Code {
			exists, err := repos.Coupons.ExistsByCode(ctx, code)
			if err != nil {
				return fmt.Errorf("check coupon code: %w", err)
			}
			if exists {
				return fmt.Errorf("coupon %q: %w", code, domain.ErrAlreadyExists)
			}
		}
		req.applyTo(c)
		if err := repos.Coupons.Update(ctx, c); err != nil {
			return fmt.Errorf("update coupon %d: %w", id, err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *CouponService) DeleteCoupon(ctx context.Context, id int64) error {
	return s.db.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		if _, err := repos.Coupons.FindByID(ctx, id); err != nil {
			return err
		}
		if err := repos.Coupons.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete coupon %d: %w", id, err)
		}
		return nil
	})
}

func (s *CouponService) GetCoupon(ctx context.Context, id int64) (*domain.Coupon, error) {
	return s.db.Repositories().Coupons.FindByID(ctx, id)
}

func (s *CouponService) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	coupons, err := s.db.Repositories().Coupons.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}

// ToggleCoupon flips the active flag and returns the coupon.
func (s *CouponService) ToggleCoupon(ctx context.Context, id int64) (*domain.Coupon, error) {
	var toggled *domain.Coupon
	err := s.db.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		c, err := repos.Coupons.FindByID(ctx, id)
		if err != nil {
			return err
		}
		c.Active = !c.Active
		if err := repos.Coupons.Update(ctx, c); err != nil {
			return fmt.Errorf("update coupon %d: %w", id, err)
		}
		toggled = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toggled, nil
}
