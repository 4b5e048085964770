package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidParam      = errors.New("invalid parameter")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidCoupon     = errors.New("invalid coupon")
	ErrAlreadyExists     = errors.New("already exists")

	// ErrCacheUnavailable is logged by the cache layer and never returned to callers.
	ErrCacheUnavailable = errors.New("cache unavailable")
)

// NotFoundError names the entity that could not be resolved.
type NotFoundError struct {
	Entity string
	ID     any
}

func NewNotFound(entity string, id any) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cannot find %s with id %v", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// FieldError reports a rejected input field.
type FieldError struct {
	Field  string
	Reason string
}

func NewFieldError(field, reason string) *FieldError {
	return &FieldError{Field: field, Reason: reason}
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalidParam }

// StockError names the product whose available quantity cannot cover a request.
type StockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("order quantity (%d) exceeds available quantity (%d) for product %d (%s)",
		e.Requested, e.Available, e.ProductID, e.ProductName)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// CouponError explains why a coupon could not be applied. It matches
// ErrInvalidCoupon and, when set, the underlying cause.
type CouponError struct {
	Code   string
	Reason string
	Err    error
}

func (e *CouponError) Error() string {
	return fmt.Sprintf("coupon %q: %s", e.Code, e.Reason)
}

func (e *CouponError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidCoupon}
	}
	return []error{ErrInvalidCoupon, e.Err}
}
