package port

import (
	"context"

	"github.com/rl1809/catalog-orders/internal/core/domain"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Page is a zero-based page request.
type Page struct {
	Number int
	Size   int
}

// ProductFilter selects a page of products. CategoryID 0 matches every category.
type ProductFilter struct {
	Keyword    string
	CategoryID int64
	Page       Page
	Sort       SortDirection
}

type ProductPage struct {
	Products   []domain.Product `json:"products"`
	TotalCount int64            `json:"total_count"`
}

type OrderPage struct {
	Orders     []domain.Order `json:"orders"`
	TotalCount int64          `json:"total_count"`
}

type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

type CategoryRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Category, error)
	FindAll(ctx context.Context) ([]domain.Category, error)
	Insert(ctx context.Context, c *domain.Category) error
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id int64) error
}

type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Product, error)

	// FindByIDForUpdate reads the row and holds its lock until the transaction ends.
	// Outside a transaction it behaves like FindByID.
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.Product, error)

	FindByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)
	Search(ctx context.Context, filter ProductFilter) (*ProductPage, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Insert(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
}

// OrderRepository list queries only return active orders.
type OrderRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	Insert(ctx context.Context, o *domain.Order) error
	Update(ctx context.Context, o *domain.Order) error
	FindByUserID(ctx context.Context, userID int64) ([]domain.Order, error)
	FindByKeyword(ctx context.Context, keyword string, page Page) (*OrderPage, error)
	FindByUserIDAndKeyword(ctx context.Context, userID int64, keyword string, page Page) (*OrderPage, error)
}

type OrderDetailRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.OrderDetail, error)
	FindByOrderID(ctx context.Context, orderID int64) ([]domain.OrderDetail, error)
	Insert(ctx context.Context, d *domain.OrderDetail) error
	Update(ctx context.Context, d *domain.OrderDetail) error
	Delete(ctx context.Context, id int64) error
}

type CouponRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Coupon, error)
	FindByCode(ctx context.Context, code string) (*domain.Coupon, error)
	FindAll(ctx context.Context) ([]domain.Coupon, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Insert(ctx context.Context, c *domain.Coupon) error
	Update(ctx context.Context, c *domain.Coupon) error
	Delete(ctx context.Context, id int64) error
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Users        UserRepository
	Categories   CategoryRepository
	Products     ProductRepository
	Orders       OrderRepository
	OrderDetails OrderDetailRepository
	Coupons      CouponRepository
}

type DatabaseRepository interface {
	// Repositories returns repositories that run each statement on its own.
	Repositories() Repositories

	// WithinTx runs fn in a single transaction. fn's error or panic rolls
	// everything back; a nil return commits.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
