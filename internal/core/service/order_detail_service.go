package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/catalog-orders/internal/core/cache"
	"github.com/rl1809/catalog-orders/internal/core/domain"
	"github.com/rl1809/catalog-orders/internal/pkg/clock"
	"github.com/rl1809/catalog-orders/internal/port"
)

type OrderDetailRequest struct {
	OrderID   int64  `json:"order_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"number_of_products"`
	Color     string `json:"color,omitempty"`
}

func (r *OrderDetailRequest) validate() error {
	if r.OrderID <= 0 {
		return domain.NewFieldError("order_id", "must be positive")
	}
	if r.ProductID <= 0 {
		return domain.NewFieldError("product_id", "must be positive")
	}
	if r.Quantity <= 0 {
		return domain.NewFieldError("number_of_products", "must be positive")
	}
	return nil
}

// OrderDetailService edits individual order lines, keeping product
// inventory in step with every change.
type OrderDetailService struct {
	db          port.DatabaseRepository
	cache       *cache.Layer
	invalidator *Invalidator
	clock       clock.Clock
	tracer      trace.Tracer
	logger      *zap.Logger
}

func NewOrderDetailService(
	db port.DatabaseRepository,
	layer *cache.Layer,
	invalidator *Invalidator,
	clk clock.Clock,
	logger *zap.Logger,
) *OrderDetailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderDetailService{
		db:          db,
		cache:       layer,
		invalidator: invalidator,
		clock:       clk,
		tracer:      otel.Tracer(tracerName),
		logger:      logger,
	}
}

func (s *OrderDetailService) CreateOrderDetail(ctx context.Context, req OrderDetailRequest) (*domain.OrderDetail, error) {
	ctx, span := s.tracer.Start(ctx, "order_detail.create", trace.WithAttributes(
		attribute.Int64("order.id", req.OrderID),
		attribute.Int64("product.id", req.ProductID),
	))
	defer span.End()

	if err := req.validate(); err != nil {
		recordError(span, err)
		return nil, err
	}

	var detail domain.OrderDetail
	err := s.db.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		if err := requireActiveOrder(ctx, repos, req.OrderID); err != nil {
			return err
		}
		p, err := repos.Products.FindByIDForUpdate(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if err := p.Reserve(req.Quantity); err != nil {
			return err
		}
		p.UpdatedAt = s.clock.Now()
		if err := repos.Products.Update(ctx, p); err != nil {
			return fmt.Errorf("update product %d: %w", p.ID, err)
		}

		detail = domain.NewOrderDetail(req.OrderID, p, req.Quantity, req.Color)
		if err := repos.OrderDetails.Insert(ctx, &detail); err != nil {
			return fmt.Errorf("insert order detail: %w", err)
		}
		return nil
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	s.invalidator.ProductsChanged(ctx, detail.ProductID)
	s.invalidator.OrderDetailsChanged(ctx, detail.OrderID, detail.ID)
	return &detail, nil
}

// GetOrderDetail reads through order_detail:{id}.
func (s *OrderDetailService) GetOrderDetail(ctx context.Context, id int64) (*domain.OrderDetail, error) {
	key := cache.OrderDetailKey(id)
	var cached domain.OrderDetail
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	d, err := s.db.Repositories().OrderDetails.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, d, cache.EntityTTL)
	return d, nil
}

// ListOrderDetails reads through order_details:{orderId}.
func (s *OrderDetailService) ListOrderDetails(ctx context.Context, orderID int64) ([]domain.OrderDetail, error) {
	key := cache.OrderDetailsKey(orderID)
	var cached []domain.OrderDetail
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	details, err := s.db.Repositories().OrderDetails.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("find details of order %d: %w", orderID, err)
	}
	s.cache.Set(ctx, key, details, cache.ListTTL)
	return details, nil
}

// UpdateOrderDetail changes the product, quantity or color of a line. The
// quantity already held by the line counts as available for the same product.
func (s *OrderDetailService) UpdateOrderDetail(ctx context.Context, id int64, req OrderDetailRequest) (*domain.OrderDetail, error) {
	ctx, span := s.tracer.Start(ctx, "order_detail.update", trace.WithAttributes(attribute.Int64("order_detail.id", id)))
	defer span.End()

	if err := req.validate(); err != nil {
		recordError(span, err)
		return nil, err
	}

	var (
		updated    domain.OrderDetail
		oldOrderID int64
		touched    []int64
	)
	err := s.db.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		existing, err := repos.OrderDetails.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := requireActiveOrder(ctx, repos, req.OrderID); err != nil {
			return err
		}
		oldOrderID = existing.OrderID

		now := s.clock.Now()
		var target *domain.Product
		if existing.ProductID == req.ProductID {
			target, err = repos.Products.FindByIDForUpdate(ctx, req.ProductID)
			if err != nil {
				return err
			}
			available := target.Quantity + existing.NumberOfProducts
			if req.Quantity > available {
				return &domain.StockError{
					ProductID:   target.ID,
					ProductName: target.Name,
					Requested:   req.Quantity,
					Available:   available,
				}
			}
			delta := req.Quantity - existing.NumberOfProducts
			switch {
			case delta > 0:
				if err := target.Reserve(delta); err != nil {
					return err
				}
			case delta < 0:
				target.Release(-delta)
			}
			touched = []int64{target.ID}
		} else {
			// Lock both rows in ascending id order.
			first, second := existing.ProductID, req.ProductID
			if first > second {
				first, second = second, first
			}
			locked := make(map[int64]*domain.Product, 2)
			for _, pid := range []int64{first, second} {
				p, err := repos.Products.FindByIDForUpdate(ctx, pid)
				if err != nil {
					return err
				}
				locked[pid] = p
			}
			old := locked[existing.ProductID]
			old.Release(existing.NumberOfProducts)
			old.UpdatedAt = now
			if err := repos.Products.Update(ctx, old); err != nil {
				return fmt.Errorf("update product %d: %w", old.ID, err)
			}

			target = locked[req.ProductID]
			if err := target.Reserve(req.Quantity); err != nil {
				return err
			}
			touched = []int64{old.ID, target.ID}
		}

		target.UpdatedAt = now
		if err := repos.Products.Update(ctx, target); err != nil {
			return fmt.Errorf("update product %d: %w", target.ID, err)
		}

		if existing.ProductID == req.ProductID {
			updated = existing.Requantify(req.Quantity, req.Color)
			updated.OrderID = req.OrderID
		} else {
			updated = domain.NewOrderDetail(req.OrderID, target, req.Quantity, req.Color)
			updated.ID = existing.ID
		}
		if err := repos.OrderDetails.Update(ctx, &updated); err != nil {
			return fmt.Errorf("update order detail %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	s.invalidator.ProductsChanged(ctx, touched...)
	s.invalidator.OrderDetailsChanged(ctx, updated.OrderID, updated.ID)
	if oldOrderID != updated.OrderID {
		s.invalidator.OrderDetailsChanged(ctx, oldOrderID)
	}
	return &updated, nil
}

// requireActiveOrder rejects lines added to or moved into a cancelled order.
func requireActiveOrder(ctx context.Context, repos port.Repositories, orderID int64) error {
	o, err := repos.Orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.Active {
		return domain.NewFieldError("order_id", fmt.Sprintf("order %d is cancelled", orderID))
	}
	return nil
}

// DeleteOrderDetail removes a line and returns its quantity to the product.
func (s *OrderDetailService) DeleteOrderDetail(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "order_detail.delete", trace.WithAttributes(attribute.Int64("order_detail.id", id)))
	defer span.End()

	var removed *domain.OrderDetail
	err := s.db.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		d, err := repos.OrderDetails.FindByID(ctx, id)
		if err != nil {
			return err
		}
		p, err := repos.Products.FindByIDForUpdate(ctx, d.ProductID)
		if err != nil {
			return err
		}
		p.Release(d.NumberOfProducts)
		p.UpdatedAt = s.clock.Now()
		if err := repos.Products.Update(ctx, p); err != nil {
			return fmt.Errorf("update product %d: %w", p.ID, err)
		}
		if err := repos.OrderDetails.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete order detail %d: %w", id, err)
		}
		removed = d
		return nil
	})
	if err != nil {
		recordError(span, err)
		return err
	}

	s.invalidator.ProductsChanged(ctx, removed.ProductID)
	s.invalidator.OrderDetailsChanged(ctx, removed.OrderID, removed.ID)
	return nil
}
