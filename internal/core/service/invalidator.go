package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/catalog-orders/internal/core/cache"
	"github.com/rl1809/catalog-orders/internal/core/domain"
	"github.com/rl1809/catalog-orders/internal/port"
)

// WarmPage is the product list page rebuilt after a product change when
// warming is on.
var WarmPage = port.ProductFilter{Page: port.Page{Number: 0, Size: 10}, Sort: port.SortAsc}

// Invalidator evicts cache entries made stale by a committed write. Callers
// must only invoke it after the transaction has committed.
type Invalidator struct {
	cache  *cache.Layer
	db     port.DatabaseRepository
	warm   bool
	logger *zap.Logger
}

func NewInvalidator(layer *cache.Layer, db port.DatabaseRepository, warm bool, logger *zap.Logger) *Invalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invalidator{cache: layer, db: db, warm: warm, logger: logger}
}

func (i *Invalidator) ProductsChanged(ctx context.Context, ids ...int64) {
	if !i.cache.Enabled() {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cache.ProductKey(id))
	}
	i.cache.Delete(ctx, keys...)
	i.cache.DeletePrefix(ctx, cache.ProductListPrefix)

	if i.warm {
		i.warmProductList(ctx)
	}
}

// CategoriesChanged also drops the product list namespace since list rows
// are filtered by category.
func (i *Invalidator) CategoriesChanged(ctx context.Context, ids ...int64) {
	if !i.cache.Enabled() {
		return
	}
	keys := []string{cache.CategoryListKey}
	for _, id := range ids {
		keys = append(keys, cache.CategoryKey(id))
	}
	i.cache.Delete(ctx, keys...)
	i.cache.DeletePrefix(ctx, cache.ProductListPrefix)
}

func (i *Invalidator) OrderDetailsChanged(ctx context.Context, orderID int64, detailIDs ...int64) {
	if !i.cache.Enabled() {
		return
	}
	keys := []string{cache.OrderDetailsKey(orderID)}
	for _, id := range detailIDs {
		keys = append(keys, cache.OrderDetailKey(id))
	}
	i.cache.Delete(ctx, keys...)
}

// OrderPlaced evicts every product the order touched and the order's line lists.
func (i *Invalidator) OrderPlaced(ctx context.Context, o *domain.Order) {
	seen := make(map[int64]struct{}, len(o.Details))
	var productIDs, detailIDs []int64
	for _, d := range o.Details {
		detailIDs = append(detailIDs, d.ID)
		if _, ok := seen[d.ProductID]; ok {
			continue
		}
		seen[d.ProductID] = struct{}{}
		productIDs = append(productIDs, d.ProductID)
	}
	i.ProductsChanged(ctx, productIDs...)
	i.OrderDetailsChanged(ctx, o.ID, detailIDs...)
}

func (i *Invalidator) warmProductList(ctx context.Context) {
	page, err := i.db.Repositories().Products.Search(ctx, WarmPage)
	if err != nil {
		i.logger.Warn("failed to warm product list", zap.Error(err))
		return
	}
	i.cache.Set(ctx, cache.ProductListKey(WarmPage), page, cache.ListTTL)
}
