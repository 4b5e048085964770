package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Thumbnail   string          `json:"thumbnail"`
	Description string          `json:"description"`
	CategoryID  int64           `json:"category_id"`

	// Quantity is what can still be sold; StockQuantity is what sits in the warehouse.
	Quantity      int `json:"quantity"`
	StockQuantity int `json:"stock_quantity"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Available is the sellable quantity, bounded by physical stock so that
// neither counter can go negative.
func (p *Product) Available() int {
	return min(p.Quantity, p.StockQuantity)
}

// Reserve takes n units out of both counters. The caller holds the row lock.
func (p *Product) Reserve(n int) error {
	if n <= 0 {
		return NewFieldError("quantity", "must be positive")
	}
	if n > p.Available() {
		return &StockError{ProductID: p.ID, ProductName: p.Name, Requested: n, Available: p.Available()}
	}
	p.Quantity -= n
	p.StockQuantity -= n
	return nil
}

// Release puts n units back into both counters.
func (p *Product) Release(n int) {
	if n <= 0 {
		return
	}
	p.Quantity += n
	p.StockQuantity += n
}

type User struct {
	ID          int64  `json:"id"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Active      bool   `json:"active"`
}
