package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/catalog-orders/internal/adapter/storage"
	"github.com/rl1809/catalog-orders/internal/config"
	"github.com/rl1809/catalog-orders/internal/core/cache"
	"github.com/rl1809/catalog-orders/internal/core/domain"
	"github.com/rl1809/catalog-orders/internal/core/service"
	"github.com/rl1809/catalog-orders/internal/pkg/clock"
	"github.com/rl1809/catalog-orders/internal/port"
)

const (
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := storage.OpenMySQL(cfg.MySQLDSN, cfg.Location)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.MySQLMaxOpenConns)
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}

	adapter := storage.NewMySQLAdapter(db)
	if err := adapter.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	// Seed a fresh buyer and product so repeated runs do not interfere.
	runID := uuid.NewString()
	res, err := db.ExecContext(ctx, "INSERT INTO users (fullname, email) VALUES (?, ?)", "stress "+runID[:8], runID+"@example.com")
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	userID, _ := res.LastInsertId()

	repos := adapter.Repositories()
	category := &domain.Category{Name: "stress"}
	if err := repos.Categories.Insert(ctx, category); err != nil {
		log.Fatalf("failed to seed category: %v", err)
	}
	product := &domain.Product{
		Name:          "stress-item-" + runID,
		Price:         decimal.NewFromInt(10),
		CategoryID:    category.ID,
		Quantity:      initialStock,
		StockQuantity: initialStock,
	}
	if err := repos.Products.Insert(ctx, product); err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}

	logger := zap.NewNop()
	layer := cache.NewLayer(nil, false, logger)
	clk := clock.NewRealClock(cfg.Location)
	orderService := service.NewOrderService(
		adapter,
		service.NewCouponEngine(adapter, clk),
		service.NewInvalidator(layer, adapter, false, logger),
		port.NopPublisher{},
		clk,
		logger,
	)

	// Counters
	var successCount atomic.Int32
	var soldOutCount atomic.Int32
	var errorCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := orderService.PlaceOrder(ctx, service.PlaceOrderRequest{
				UserID:   userID,
				FullName: "stress buyer",
				Items:    []service.CartItem{{ProductID: product.ID, Quantity: 1}},
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				soldOutCount.Add(1)
			default:
				errorCount.Add(1)
				log.Printf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	soldOut := soldOutCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOut)
	fmt.Printf("Errors:           %d\n", errorCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock && soldOut == totalRequests-initialStock {
		fmt.Printf("PASS: Exactly %d orders succeeded, %d sold out\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d sold out, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, soldOut)
	}

	final, err := repos.Products.FindByID(ctx, product.ID)
	if err != nil {
		log.Fatalf("failed to read product: %v", err)
	}
	fmt.Printf("Final Quantity:   %d (stock %d)\n", final.Quantity, final.StockQuantity)

	if final.Quantity == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected quantity 0, got %d\n", final.Quantity)
	}
}
