package cache

import (
	"fmt"
	"time"

	"github.com/rl1809/catalog-orders/internal/port"
)

const (
	EntityTTL = 24 * time.Hour
	ListTTL   = time.Hour
)

const (
	productPrefix      = "product:"
	categoryPrefix     = "category:"
	orderDetailPrefix  = "order_detail:"
	orderDetailsPrefix = "order_details:"

	// CategoryListKey holds the full category list.
	CategoryListKey = "category:list"

	// ProductListPrefix namespaces every product search page.
	ProductListPrefix = "all_products:"
)

func ProductKey(id int64) string { return fmt.Sprintf("%s%d", productPrefix, id) }

func CategoryKey(id int64) string { return fmt.Sprintf("%s%d", categoryPrefix, id) }

func OrderDetailKey(id int64) string { return fmt.Sprintf("%s%d", orderDetailPrefix, id) }

func OrderDetailsKey(orderID int64) string { return fmt.Sprintf("%s%d", orderDetailsPrefix, orderID) }

// ProductListKey is all_products:{keyword}:{categoryId}:{page}:{size}:{sort}.
func ProductListKey(f port.ProductFilter) string {
	sort := f.Sort
	if sort == "" {
		sort = port.SortAsc
	}
	return fmt.Sprintf("%s%s:%d:%d:%d:%s", ProductListPrefix, f.Keyword, f.CategoryID, f.Page.Number, f.Page.Size, sort)
}
