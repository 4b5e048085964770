package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/catalog-orders/internal/core/cache"
	"github.com/rl1809/catalog-orders/internal/core/domain"
	"github.com/rl1809/catalog-orders/internal/pkg/clock"
	"github.com/rl1809/catalog-orders/internal/port"
)

type CreateProductRequest struct {
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Thumbnail     string          `json:"thumbnail"`
	Description   string          `json:"description"`
	CategoryID    int64           `json:"category_id"`
	Quantity      int             `json:"quantity"`
	StockQuantity int             `json:"stock_quantity"`
}

func (r *CreateProductRequest) validate() error {
	if len(r.Name) < 3 || len(r.Name) > 200 {
		return domain.NewFieldError("name", "must be between 3 and 200 characters")
	}
	if r.Price.IsNegative() {
		return domain.NewFieldError("price", "must not be negative")
	}
	if r.Quantity < 0 || r.StockQuantity < 0 {
		return domain.NewFieldError("quantity", "must not be negative")
	}
	if r.Quantity > r.StockQuantity {
		return domain.NewFieldError("quantity", fmt.Sprintf("%d exceeds stock quantity %d", r.Quantity, r.StockQuantity))
	}
	return nil
}

// UpdateProductRequest carries the fields to change; nil fields are kept.
type UpdateProductRequest struct {
	Name          *string          `json:"name,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Thumbnail     *string          `json:"thumbnail,omitempty"`
	Description   *string          `json:"description,omitempty"`
	CategoryID    *int64           `json:"category_id,omitempty"`
	Quantity      *int             `json:"quantity,omitempty"`
	StockQuantity *int             `json:"stock_quantity,omitempty"`
}

type ProductService struct {
	db          port.DatabaseRepository
	cache       *cache.Layer
	invalidator *Invalidator
	clock       clock.Clock
}

func NewProductService(db port.DatabaseRepository, layer *cache.Layer, invalidator *Invalidator, clk clock.Clock) *ProductService {
	return &ProductService{db: db, cache: layer, invalidator: invalidator, clock: clk}
}

// GetProduct reads through product:{id}.
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	key := cache.ProductKey(id)
	var cached domain.Product
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	p, err := s.db.Repositories().Products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, p, cache.EntityTTL)
	return p, nil
}

// ListProducts reads one search page through its list key.
func (s *ProductService) ListProducts(ctx context.Context, filter port.ProductFilter) (*port.ProductPage, error) {
	page, err := normalizePage(filter.Page)
	if err != nil {
		return nil, err
	}
	filter.Page = page
	switch filter.Sort {
	case "":
		filter.Sort = port.SortAsc
	case port.SortAsc, port.SortDesc:
	default:
		return nil, domain.NewFieldError("sort", fmt.Sprintf("unknown direction %q", filter.Sort))
	}

	key := cache.ProductListKey(filter)
	var cached port.ProductPage
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	res, err := s.db.Repositories().Products.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	s.cache.Set(ctx, key, res, cache.ListTTL)
	return res, nil
}

func (s *ProductService) GetProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	products, err := s.db.Repositories().Products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	return products, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, req CreateProductRequest) (*domain.Product, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	p := &domain.Product{
		Name:          req.Name,
		Price:         req.Price,
		Thumbnail:     req.Thumbnail,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		Quantity:      req.Quantity,
		StockQuantity: req.StockQuantity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.db.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		if _, err := repos.Categories.FindByID(ctx, req.CategoryID); err != nil {
			return err
		}
		exists, err := repos.Products.ExistsByName(ctx, req.Name)
		if err != nil {
			return fmt.Errorf("check product name: %w", err)
		}
		if exists {
			return fmt.Errorf("product %q: %w", req.Name, domain.ErrAlreadyExists)
		}
		if err := repos.Products.Insert(ctx, p); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.ProductsChanged(ctx, p.ID)
	return p, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest) (*domain.Product, error) {
	var updated *domain.Product
	err := s.db.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		p, err := repos.Products.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Name != nil && *req.Name != p.Name {
			if len(*req.Name) < 3 || len(*req.Name) > 200 {
				return domain.NewFieldError("name", "must be between 3 and 200 characters")
			}
			exists, err := repos.Products.ExistsByName(ctx, *req.Name)
			if err != nil {
				return fmt.Errorf("check product name: %w", err)
			}
			if exists {
				return fmt.Errorf("product %q: %w", *req.Name, domain.ErrAlreadyExists)
			}
			p.Name = *req.Name
		}
		if req.CategoryID != nil {
			if _, err := repos.Categories.FindByID(ctx, *req.CategoryID); err != nil {
				return err
			}
			p.CategoryID = *req.CategoryID
		}
		if req.Price != nil {
			if req.Price.IsNegative() {
				return domain.NewFieldError("price", "must not be negative")
			}
			p.Price = *req.Price
		}
		if req.Thumbnail != nil {
			p.Thumbnail = *req.Thumbnail
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Quantity != nil {
			if *req.Quantity < 0 {
				return domain.NewFieldError("quantity", "must not be negative")
			}
			p.Quantity = *req.Quantity
		}
		if req.StockQuantity != nil {
			if *req.StockQuantity < 0 {
				return domain.NewFieldError("stock_quantity", "must not be negative")
			}
			p.StockQuantity = *req.StockQuantity
		}
		if p.Quantity > p.StockQuantity {
			return domain.NewFieldError("quantity", fmt.Sprintf("%d exceeds stock quantity %d", p.Quantity, p.StockQuantity))
		}
		p.UpdatedAt = s.clock.Now()

		if err := repos.Products.Update(ctx, p); err != nil {
			return fmt.Errorf("update product %d: %w", id, err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.ProductsChanged(ctx, id)
	return updated, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, id int64) error {
	err := s.db.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		if _, err := repos.Products.FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := repos.Products.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete product %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidator.ProductsChanged(ctx, id)
	return nil
}
