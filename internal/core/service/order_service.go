package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/catalog-orders/internal/core/domain"
	"github.com/rl1809/catalog-orders/internal/pkg/clock"
	"github.com/rl1809/catalog-orders/internal/port"
)

const tracerName = "github.com/rl1809/catalog-orders/service"

const defaultPageSize = 10

type CartItem struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color,omitempty"`
}

type PlaceOrderRequest struct {
	UserID          int64      `json:"user_id"`
	FullName        string     `json:"full_name"`
	Email           string     `json:"email"`
	PhoneNumber     string     `json:"phone_number"`
	Address         string     `json:"address"`
	Note            string     `json:"note"`
	ShippingMethod  string     `json:"shipping_method"`
	ShippingAddress string     `json:"shipping_address"`
	ShippingDate    string     `json:"shipping_date,omitempty"`
	PaymentMethod   string     `json:"payment_method"`
	CouponCode      string     `json:"coupon_code,omitempty"`
	Items           []CartItem `json:"cart_items"`
}

func (r *PlaceOrderRequest) validate() error {
	if r.UserID <= 0 {
		return domain.NewFieldError("user_id", "must be positive")
	}
	if len(r.Items) == 0 {
		return domain.NewFieldError("cart_items", "cart is empty")
	}
	for _, it := range r.Items {
		if it.ProductID <= 0 {
			return domain.NewFieldError("product_id", "must be positive")
		}
		if it.Quantity <= 0 {
			return domain.NewFieldError("quantity", fmt.Sprintf("must be positive for product %d", it.ProductID))
		}
	}
	return nil
}

// quantities sums the requested quantity per product and returns the product
// ids in ascending order, which is the order their rows are locked in.
func (r *PlaceOrderRequest) quantities() (map[int64]int, []int64) {
	perProduct := make(map[int64]int, len(r.Items))
	for _, it := range r.Items {
		perProduct[it.ProductID] += it.Quantity
	}
	ids := make([]int64, 0, len(perProduct))
	for id := range perProduct {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return perProduct, ids
}

type UpdateOrderRequest struct {
	UserID          int64              `json:"user_id"`
	FullName        string             `json:"full_name"`
	Email           string             `json:"email"`
	PhoneNumber     string             `json:"phone_number"`
	Address         string             `json:"address"`
	Note            string             `json:"note"`
	Status          domain.OrderStatus `json:"status,omitempty"`
	ShippingMethod  string             `json:"shipping_method"`
	ShippingAddress string             `json:"shipping_address"`
	ShippingDate    string             `json:"shipping_date,omitempty"`
	PaymentMethod   string             `json:"payment_method"`
}

// OrderService places and maintains orders. Every write runs in a single
// database transaction; cache eviction and event publishing happen only
// after it commits.
type OrderService struct {
	db          port.DatabaseRepository
	coupons     *CouponEngine
	invalidator *Invalidator
	publisher   port.EventPublisher
	clock       clock.Clock
	tracer      trace.Tracer
	logger      *zap.Logger
}

func NewOrderService(
	db port.DatabaseRepository,
	coupons *CouponEngine,
	invalidator *Invalidator,
	publisher port.EventPublisher,
	clk clock.Clock,
	logger *zap.Logger,
) *OrderService {
	if publisher == nil {
		publisher = port.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		db:          db,
		coupons:     coupons,
		invalidator: invalidator,
		publisher:   publisher,
		clock:       clk,
		tracer:      otel.Tracer(tracerName),
		logger:      logger,
	}
}

// PlaceOrder validates stock for every cart line, applies the coupon, writes
// the order with its lines and decrements inventory, all or nothing.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.place", trace.WithAttributes(
		attribute.Int64("order.user_id", req.UserID),
		attribute.Int("order.lines", len(req.Items)),
		attribute.Bool("order.coupon", req.CouponCode != ""),
	))
	defer span.End()

	order, err := s.placeOrder(ctx, req)
	if err != nil {
		recordError(span, err)
		if !isClientError(err) {
			s.logger.Error("failed to place order", zap.Int64("user_id", req.UserID), zap.Error(err))
		}
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("order.id", order.ID),
		attribute.String("order.total", order.TotalMoney.String()),
	)
	span.SetStatus(codes.Ok, "order placed")

	s.invalidator.OrderPlaced(ctx, order)
	s.publish(ctx, domain.EventOrderPlaced, order)

	s.logger.Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
		zap.String("total", order.TotalMoney.String()))
	return order, nil
}

func (s *OrderService) placeOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	today := domain.DateOf(s.clock.Now())
	perProduct, ids := req.quantities()

	var order *domain.Order
	err := s.db.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		if _, err := repos.Users.FindByID(ctx, req.UserID); err != nil {
			return err
		}

		shippingDate := today
		if req.ShippingDate != "" {
			d, err := domain.ParseDate(req.ShippingDate, today.Location())
			if err != nil {
				return domain.NewFieldError("shipping_date", "must be formatted as yyyy-MM-dd")
			}
			shippingDate = d
		}

		locked := make(map[int64]*domain.Product, len(ids))
		for _, id := range ids {
			p, err := repos.Products.FindByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			locked[id] = p
		}

		total := decimal.Zero
		for _, it := range req.Items {
			total = total.Add(locked[it.ProductID].Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		if req.CouponCode != "" {
			discounted, err := s.coupons.evaluate(ctx, repos.Coupons, req.CouponCode, total)
			if err != nil {
				return err
			}
			total = discounted
		}

		if shippingDate.Before(today) {
			return domain.NewFieldError("shipping_date", "must be at least today")
		}

		for _, id := range ids {
			if err := locked[id].Reserve(perProduct[id]); err != nil {
				return err
			}
		}
		for _, id := range ids {
			locked[id].UpdatedAt = s.clock.Now()
			if err := repos.Products.Update(ctx, locked[id]); err != nil {
				return fmt.Errorf("update product %d: %w", id, err)
			}
		}

		o := &domain.Order{
			UserID:          req.UserID,
			FullName:        req.FullName,
			Email:           req.Email,
			PhoneNumber:     req.PhoneNumber,
			Address:         req.Address,
			Note:            req.Note,
			Status:          domain.OrderStatusPending,
			OrderDate:       today,
			ShippingMethod:  req.ShippingMethod,
			ShippingAddress: req.ShippingAddress,
			ShippingDate:    shippingDate,
			PaymentMethod:   req.PaymentMethod,
			CouponCode:      req.CouponCode,
			TotalMoney:      total,
			Active:          true,
		}
		if err := repos.Orders.Insert(ctx, o); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, it := range req.Items {
			d := domain.NewOrderDetail(o.ID, locked[it.ProductID], it.Quantity, it.Color)
			if err := repos.OrderDetails.Insert(ctx, &d); err != nil {
				return fmt.Errorf("insert order detail: %w", err)
			}
			o.Details = append(o.Details, d)
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder returns the order with its lines.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	repos := s.db.Repositories()
	o, err := repos.Orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := repos.OrderDetails.FindByOrderID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find order details: %w", err)
	}
	o.Details = details
	return o, nil
}

// ListUserOrders returns the active orders of a user.
func (s *OrderService) ListUserOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	orders, err := s.db.Repositories().Orders.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find orders of user %d: %w", userID, err)
	}
	return orders, nil
}

// SearchOrders pages through active orders whose contact fields contain keyword.
func (s *OrderService) SearchOrders(ctx context.Context, keyword string, page port.Page) (*port.OrderPage, error) {
	page, err := normalizePage(page)
	if err != nil {
		return nil, err
	}
	res, err := s.db.Repositories().Orders.FindByKeyword(ctx, keyword, page)
	if err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}
	return res, nil
}

// GetUserOrders is SearchOrders restricted to one user.
func (s *OrderService) GetUserOrders(ctx context.Context, userID int64, keyword string, page port.Page) (*port.OrderPage, error) {
	page, err := normalizePage(page)
	if err != nil {
		return nil, err
	}
	res, err := s.db.Repositories().Orders.FindByUserIDAndKeyword(ctx, userID, keyword, page)
	if err != nil {
		return nil, fmt.Errorf("search orders of user %d: %w", userID, err)
	}
	return res, nil
}

// UpdateOrder remaps the mutable fields of an order. The id, order date,
// total and lines never change.
func (s *OrderService) UpdateOrder(ctx context.Context, id int64, req UpdateOrderRequest) (*domain.Order, error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, domain.NewFieldError("status", fmt.Sprintf("unknown status %q", req.Status))
	}

	var order *domain.Order
	err := s.db.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		o, err := repos.Orders.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := repos.Users.FindByID(ctx, req.UserID); err != nil {
			return err
		}

		shippingDate := o.ShippingDate
		if req.ShippingDate != "" {
			shippingDate, err = domain.ParseDate(req.ShippingDate, o.OrderDate.Location())
			if err != nil {
				return domain.NewFieldError("shipping_date", "must be formatted as yyyy-MM-dd")
			}
		}
		if shippingDate.Before(domain.DateOf(o.OrderDate)) {
			return domain.NewFieldError("shipping_date", "must not be before the order date")
		}

		o.UserID = req.UserID
		o.FullName = req.FullName
		o.Email = req.Email
		o.PhoneNumber = req.PhoneNumber
		o.Address = req.Address
		o.Note = req.Note
		o.ShippingMethod = req.ShippingMethod
		o.ShippingAddress = req.ShippingAddress
		o.ShippingDate = shippingDate
		o.PaymentMethod = req.PaymentMethod
		if req.Status != "" {
			o.Status = req.Status
		}

		if err := repos.Orders.Update(ctx, o); err != nil {
			return fmt.Errorf("update order %d: %w", id, err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder soft-deletes the order. Inventory is not restocked.
func (s *OrderService) CancelOrder(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "order.cancel", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	var (
		order   *domain.Order
		changed bool
	)
	err := s.db.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		o, err := repos.Orders.FindByID(ctx, id)
		if err != nil {
			return err
		}
		order = o
		if !o.Active {
			return nil
		}
		o.Active = false
		if err := repos.Orders.Update(ctx, o); err != nil {
			return fmt.Errorf("deactivate order %d: %w", id, err)
		}
		changed = true
		return nil
	})
	if err != nil {
		recordError(span, err)
		return err
	}
	span.SetStatus(codes.Ok, "order cancelled")

	if changed {
		s.publish(ctx, domain.EventOrderCancelled, order)
	}
	return nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, o *domain.Order) {
	evt := domain.NewOrderEvent(eventType, o, s.clock.Now())
	if err := s.publisher.Publish(ctx, fmt.Sprintf("%d", o.ID), evt); err != nil {
		s.logger.Error("failed to publish order event",
			zap.String("event_type", eventType),
			zap.Int64("order_id", o.ID),
			zap.Error(err))
	}
}

func normalizePage(p port.Page) (port.Page, error) {
	if p.Number < 0 {
		return p, domain.NewFieldError("page", "must not be negative")
	}
	if p.Size < 0 {
		return p, domain.NewFieldError("limit", "must not be negative")
	}
	if p.Size == 0 {
		p.Size = defaultPageSize
	}
	return p, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// isClientError reports whether err is caused by the request rather than
// the infrastructure.
func isClientError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidParam) ||
		errors.Is(err, domain.ErrInvalidCoupon) ||
		errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrAlreadyExists)
}
