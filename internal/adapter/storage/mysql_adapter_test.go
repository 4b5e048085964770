package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/catalog-orders/internal/core/domain"
	"github.com/rl1809/catalog-orders/internal/port"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/shop"
	}

	db, err := OpenMySQL(dsn, time.UTC)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := NewMySQLAdapter(db).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, ctx context.Context, repos port.Repositories, quantity int) *domain.Product {
	t.Helper()
	c := &domain.Category{Name: "test-category"}
	if err := repos.Categories.Insert(ctx, c); err != nil {
		t.Fatalf("insert category: %v", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	p := &domain.Product{
		Name:          fmt.Sprintf("test-product-%d", time.Now().UnixNano()),
		Price:         decimal.RequireFromString("19.99"),
		CategoryID:    c.ID,
		Quantity:      quantity,
		StockQuantity: quantity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repos.Products.Insert(ctx, p); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	t.Cleanup(func() {
		repos.Products.Delete(context.Background(), p.ID)
		repos.Categories.Delete(context.Background(), c.ID)
	})
	return p
}

func TestProductStore_RoundTrip(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	repos := NewMySQLAdapter(db).Repositories()
	p := seedProduct(t, ctx, repos, 10)

	got, err := repos.Products.FindByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if !got.Price.Equal(p.Price) {
		t.Errorf("expected price %s, got %s", p.Price, got.Price)
	}
	if got.Quantity != 10 || got.StockQuantity != 10 {
		t.Errorf("expected quantities 10/10, got %d/%d", got.Quantity, got.StockQuantity)
	}

	exists, err := repos.Products.ExistsByName(ctx, p.Name)
	if err != nil || !exists {
		t.Errorf("expected product name to exist, got %v (%v)", exists, err)
	}

	page, err := repos.Products.Search(ctx, port.ProductFilter{Keyword: p.Name[:12], CategoryID: p.CategoryID, Page: port.Page{Size: 10}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.TotalCount != 1 || len(page.Products) != 1 {
		t.Errorf("expected one match, got %d (%d rows)", page.TotalCount, len(page.Products))
	}
}

func TestProductStore_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	_, err := NewMySQLAdapter(db).Repositories().Products.FindByID(context.Background(), -1)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWithinTx_RollsBack(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	p := seedProduct(t, ctx, adapter.Repositories(), 5)
	errAbort := errors.New("abort")

	err := adapter.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		locked, err := repos.Products.FindByIDForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		if err := locked.Reserve(3); err != nil {
			return err
		}
		if err := repos.Products.Update(ctx, locked); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected abort error, got %v", err)
	}

	got, _ := adapter.Repositories().Products.FindByID(ctx, p.ID)
	if got.Quantity != 5 {
		t.Errorf("expected quantity 5 after rollback, got %d", got.Quantity)
	}
}

func TestWithinTx_ConcurrentReserve(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	initialStock := 20
	totalRequests := 50
	p := seedProduct(t, ctx, adapter.Repositories(), initialStock)

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := adapter.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
				locked, err := repos.Products.FindByIDForUpdate(ctx, p.ID)
				if err != nil {
					return err
				}
				if err := locked.Reserve(1); err != nil {
					return err
				}
				return repos.Products.Update(ctx, locked)
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}

	got, _ := adapter.Repositories().Products.FindByID(ctx, p.ID)
	if got.Quantity != 0 || got.StockQuantity != 0 {
		t.Errorf("expected quantities 0/0, got %d/%d", got.Quantity, got.StockQuantity)
	}
}

func TestOrderStore_KeywordSearchSkipsInactive(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	repos := NewMySQLAdapter(db).Repositories()
	marker := fmt.Sprintf("kw-%d", time.Now().UnixNano())
	today := time.Now().UTC().Truncate(24 * time.Hour)

	var ids []int64
	for i, active := range []bool{true, false} {
		o := &domain.Order{
			UserID:       1,
			FullName:     fmt.Sprintf("%s customer %d", marker, i),
			Status:       domain.OrderStatusPending,
			OrderDate:    today,
			ShippingDate: today,
			TotalMoney:   decimal.NewFromInt(100),
			Active:       active,
		}
		if err := repos.Orders.Insert(ctx, o); err != nil {
			t.Fatalf("insert order: %v", err)
		}
		ids = append(ids, o.ID)
	}
	t.Cleanup(func() {
		for _, id := range ids {
			db.ExecContext(context.Background(), `DELETE FROM orders WHERE id = ?`, id)
		}
	})

	page, err := repos.Orders.FindByKeyword(ctx, marker, port.Page{Size: 10})
	if err != nil {
		t.Fatalf("FindByKeyword failed: %v", err)
	}
	if page.TotalCount != 1 {
		t.Errorf("expected 1 active match, got %d", page.TotalCount)
	}

	o, err := repos.Orders.FindByID(ctx, ids[0])
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if o.CouponCode != "" {
		t.Errorf("expected empty coupon code, got %q", o.CouponCode)
	}
}

func TestCouponStore_DuplicateCode(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	repos := NewMySQLAdapter(db).Repositories()
	code := fmt.Sprintf("T%d", time.Now().UnixNano()%1_000_000_000)

	newCoupon := func() *domain.Coupon {
		return &domain.Coupon{
			Code:              code,
			DiscountType:      domain.DiscountPercentage,
			DiscountValue:     decimal.NewFromInt(10),
			MinPurchaseAmount: decimal.NewFromInt(50),
			StartDate:         "2024-01-01",
			EndDate:           "2024-12-31",
			Active:            true,
		}
	}

	first := newCoupon()
	if err := repos.Coupons.Insert(ctx, first); err != nil {
		t.Fatalf("insert coupon: %v", err)
	}
	defer repos.Coupons.Delete(ctx, first.ID)

	if err := repos.Coupons.Insert(ctx, newCoupon()); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := repos.Coupons.FindByCode(ctx, code)
	if err != nil {
		t.Fatalf("FindByCode failed: %v", err)
	}
	if got.DiscountType != domain.DiscountPercentage || got.StartDate != "2024-01-01" {
		t.Errorf("unexpected coupon %+v", got)
	}
}
