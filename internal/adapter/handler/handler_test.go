package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/catalog-orders/internal/core/cache"
	"github.com/rl1809/catalog-orders/internal/core/domain"
	"github.com/rl1809/catalog-orders/internal/core/service"
	"github.com/rl1809/catalog-orders/internal/pkg/clock"
	"github.com/rl1809/catalog-orders/internal/port/mocks"
)

type testApp struct {
	db      *mocks.Database
	svc     Services
	orders  *service.OrderService
	coupons *service.CouponEngine
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db := mocks.NewDatabase()
	clk := clock.NewMockClock(time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC))
	logger := zap.NewNop()
	layer := cache.NewLayer(mocks.NewCache(), true, logger)
	inv := service.NewInvalidator(layer, db, false, logger)
	engine := service.NewCouponEngine(db, clk)

	db.AddUser(domain.User{ID: 1, FullName: "Alice Nguyen", Email: "alice@example.com", Active: true})
	db.AddCategory(domain.Category{ID: 1, Name: "phones"})
	db.AddProduct(domain.Product{ID: 1, Name: "iphone", Price: decimal.NewFromInt(100), CategoryID: 1, Quantity: 2, StockQuantity: 2})
	db.AddCoupon(domain.Coupon{
		ID: 1, Code: "SAVE10", DiscountType: domain.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10), MinPurchaseAmount: decimal.NewFromInt(50),
		StartDate: "2024-01-01", EndDate: "2024-12-31", Active: true,
	})

	orders := service.NewOrderService(db, engine, inv, nil, clk, logger)
	return &testApp{
		db: db,
		svc: Services{
			Orders:       orders,
			OrderDetails: service.NewOrderDetailService(db, layer, inv, clk, logger),
			Products:     service.NewProductService(db, layer, inv, clk),
			Categories:   service.NewCategoryService(db, layer, inv),
			Coupons:      service.NewCouponService(db),
			CouponEngine: engine,
		},
		orders:  orders,
		coupons: engine,
	}
}

func (a *testApp) mux() *http.ServeMux {
	mux := http.NewServeMux()
	NewHTTPHandler(a.svc, nil).Register(mux)
	return mux
}

func placeBody(qty int, coupon string) service.PlaceOrderRequest {
	return service.PlaceOrderRequest{
		UserID:     1,
		FullName:   "Alice Nguyen",
		Email:      "alice@example.com",
		Address:    "12 Tran Hung Dao",
		CouponCode: coupon,
		Items:      []service.CartItem{{ProductID: 1, Quantity: qty}},
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTP_PlaceAndGetOrder(t *testing.T) {
	app := newTestApp(t)
	mux := app.mux()

	rec := doJSON(t, mux, http.MethodPost, "/api/orders", placeBody(1, "SAVE10"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var order domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&order))
	assert.True(t, order.TotalMoney.Equal(decimal.NewFromInt(90)))

	rec = doJSON(t, mux, http.MethodGet, "/api/orders/"+jsonNumber(order.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, order.ID, got.ID)
	assert.Len(t, got.Details, 1)
}

func TestHTTP_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"insufficient stock", http.MethodPost, "/api/orders", placeBody(3, ""), http.StatusConflict},
		{"empty cart", http.MethodPost, "/api/orders", service.PlaceOrderRequest{UserID: 1}, http.StatusBadRequest},
		{"unknown coupon", http.MethodPost, "/api/orders", placeBody(1, "NOPE"), http.StatusUnprocessableEntity},
		{"missing order", http.MethodGet, "/api/orders/999", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/products/abc", nil, http.StatusBadRequest},
		{"missing product", http.MethodGet, "/api/products/42", nil, http.StatusNotFound},
		{"bad sort", http.MethodGet, "/api/products?sort=sideways", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, newTestApp(t).mux(), tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestHTTP_MalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	newTestApp(t).mux().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_CancelOrder(t *testing.T) {
	app := newTestApp(t)
	mux := app.mux()

	order, err := app.orders.PlaceOrder(context.Background(), placeBody(1, ""))
	require.NoError(t, err)

	rec := doJSON(t, mux, http.MethodDelete, "/api/orders/"+jsonNumber(order.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, mux, http.MethodDelete, "/api/orders/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_EvaluateCoupon(t *testing.T) {
	mux := newTestApp(t).mux()

	rec := doJSON(t, mux, http.MethodPost, "/api/coupons/evaluate", EvaluateCouponHTTPRequest{Code: "SAVE10", Total: decimal.NewFromInt(200)})
	require.Equal(t, http.StatusOK, rec.Code)
	var res EvaluateCouponHTTPResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.True(t, res.FinalTotal.Equal(decimal.NewFromInt(180)))

	rec = doJSON(t, mux, http.MethodPost, "/api/coupons/evaluate", EvaluateCouponHTTPRequest{Code: "SAVE10", Total: decimal.NewFromInt(20)})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHTTP_ListProductsAndHealth(t *testing.T) {
	mux := newTestApp(t).mux()

	rec := doJSON(t, mux, http.MethodGet, "/api/products?keyword=iph&category_id=1&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"iphone"`)

	rec = doJSON(t, mux, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func TestHTTP_OrderDetailRoutes(t *testing.T) {
	app := newTestApp(t)
	app.db.AddProduct(domain.Product{ID: 2, Name: "case", Price: decimal.NewFromInt(15), CategoryID: 1, Quantity: 4, StockQuantity: 4})
	mux := app.mux()

	order, err := app.orders.PlaceOrder(context.Background(), placeBody(1, ""))
	require.NoError(t, err)
	orderPath := "/api/orders/" + jsonNumber(order.ID)

	rec := doJSON(t, mux, http.MethodPost, "/api/order_details", service.OrderDetailRequest{OrderID: order.ID, ProductID: 2, Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.OrderDetail](t, rec)
	detailPath := "/api/order_details/" + jsonNumber(created.ID)

	rec = doJSON(t, mux, http.MethodGet, orderPath+"/details", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.OrderDetail](t, rec), 2)

	rec = doJSON(t, mux, http.MethodPut, detailPath, service.OrderDetailRequest{OrderID: order.ID, ProductID: 2, Quantity: 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, decode[domain.OrderDetail](t, rec).NumberOfProducts)

	rec = doJSON(t, mux, http.MethodPut, detailPath, service.OrderDetailRequest{OrderID: order.ID, ProductID: 2, Quantity: 9})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, detailPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodDelete, detailPath, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	p, _ := app.db.Product(2)
	assert.Equal(t, 4, p.Quantity)

	rec = doJSON(t, mux, http.MethodGet, detailPath, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_UpdateAndSearchOrders(t *testing.T) {
	app := newTestApp(t)
	mux := app.mux()

	order, err := app.orders.PlaceOrder(context.Background(), placeBody(1, ""))
	require.NoError(t, err)
	orderPath := "/api/orders/" + jsonNumber(order.ID)

	update := service.UpdateOrderRequest{
		UserID:       1,
		FullName:     "Alice Tran",
		Email:        "alice@example.com",
		Address:      "99 Le Loi",
		Status:       domain.OrderStatus("shipped"),
		ShippingDate: "2024-06-20",
	}
	rec := doJSON(t, mux, http.MethodPut, orderPath, update)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "99 Le Loi", decode[domain.Order](t, rec).Address)

	update.ShippingDate = "2024-06-01"
	rec = doJSON(t, mux, http.MethodPut, orderPath, update)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/orders?keyword=le+loi", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[struct {
		Orders []domain.Order `json:"orders"`
	}](t, rec).Orders, 1)

	rec = doJSON(t, mux, http.MethodGet, "/api/orders?user_id=1&keyword=nowhere", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[struct {
		Orders []domain.Order `json:"orders"`
	}](t, rec).Orders)

	rec = doJSON(t, mux, http.MethodGet, "/api/orders?page=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/users/1/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Order](t, rec), 1)
}

func TestHTTP_ProductAdminRoutes(t *testing.T) {
	mux := newTestApp(t).mux()

	rec := doJSON(t, mux, http.MethodPost, "/api/products", service.CreateProductRequest{
		Name: "Galaxy S24", Price: decimal.NewFromInt(700), CategoryID: 1, Quantity: 3, StockQuantity: 3,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Product](t, rec)
	path := "/api/products/" + jsonNumber(created.ID)

	price := decimal.NewFromInt(650)
	rec = doJSON(t, mux, http.MethodPut, path, service.UpdateProductRequest{Price: &price})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[domain.Product](t, rec).Price.Equal(price))

	rec = doJSON(t, mux, http.MethodGet, "/api/products/by-ids?ids=1,"+jsonNumber(created.ID)+",777", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Product](t, rec), 2)

	rec = doJSON(t, mux, http.MethodGet, "/api/products/by-ids?ids=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, mux, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_CategoryRoutes(t *testing.T) {
	mux := newTestApp(t).mux()

	rec := doJSON(t, mux, http.MethodPost, "/api/categories", CategoryHTTPRequest{Name: "tablets"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Category](t, rec)
	path := "/api/categories/" + jsonNumber(created.ID)

	rec = doJSON(t, mux, http.MethodPut, path, CategoryHTTPRequest{Name: "slates"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "slates", decode[domain.Category](t, rec).Name)

	rec = doJSON(t, mux, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Category](t, rec), 2)

	rec = doJSON(t, mux, http.MethodPost, "/api/categories", CategoryHTTPRequest{Name: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, mux, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_CouponAdminRoutes(t *testing.T) {
	mux := newTestApp(t).mux()

	req := service.CouponRequest{
		Code:              "FIXED20",
		DiscountType:      domain.DiscountFixedAmount,
		DiscountValue:     decimal.NewFromInt(20),
		MinPurchaseAmount: decimal.NewFromInt(100),
		StartDate:         "2024-01-01",
		EndDate:           "2024-12-31",
		Active:            true,
	}
	rec := doJSON(t, mux, http.MethodPost, "/api/coupons", req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Coupon](t, rec)
	path := "/api/coupons/" + jsonNumber(created.ID)

	rec = doJSON(t, mux, http.MethodPost, "/api/coupons", req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, mux, http.MethodPatch, path+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[domain.Coupon](t, rec).Active)

	rec = doJSON(t, mux, http.MethodPost, "/api/coupons/evaluate", EvaluateCouponHTTPRequest{Code: "FIXED20", Total: decimal.NewFromInt(150)})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req.Active = true
	req.DiscountValue = decimal.NewFromInt(30)
	rec = doJSON(t, mux, http.MethodPut, path, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, mux, http.MethodPost, "/api/coupons/evaluate", EvaluateCouponHTTPRequest{Code: "FIXED20", Total: decimal.NewFromInt(150)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[EvaluateCouponHTTPResponse](t, rec).FinalTotal.Equal(decimal.NewFromInt(120)))

	rec = doJSON(t, mux, http.MethodGet, "/api/coupons", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Coupon](t, rec), 2)

	rec = doJSON(t, mux, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, mux, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func dialBufconn(t *testing.T, app *testApp) *OrderServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterOrderServiceServer(srv, NewGRPCHandler(app.orders, app.coupons, nil))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewOrderServiceClient(conn)
}

func TestGRPC_PlaceAndCancel(t *testing.T) {
	app := newTestApp(t)
	client := dialBufconn(t, app)
	ctx := context.Background()

	req := placeBody(2, "")
	reply, err := client.PlaceOrder(ctx, &req)
	require.NoError(t, err)
	require.NotNil(t, reply.Order)
	assert.True(t, reply.Order.TotalMoney.Equal(decimal.NewFromInt(200)))

	again := placeBody(1, "")
	_, err = client.PlaceOrder(ctx, &again)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	cancelled, err := client.CancelOrder(ctx, &CancelOrderRequest{OrderID: reply.Order.ID})
	require.NoError(t, err)
	assert.True(t, cancelled.Success)

	_, err = client.CancelOrder(ctx, &CancelOrderRequest{OrderID: 999})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPC_EvaluateCoupon(t *testing.T) {
	client := dialBufconn(t, newTestApp(t))
	ctx := context.Background()

	reply, err := client.EvaluateCoupon(ctx, &EvaluateCouponRequest{Code: "SAVE10", Total: decimal.NewFromInt(100)})
	require.NoError(t, err)
	assert.True(t, reply.FinalTotal.Equal(decimal.NewFromInt(90)))

	_, err = client.EvaluateCoupon(ctx, &EvaluateCouponRequest{Code: "", Total: decimal.NewFromInt(100)})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = client.EvaluateCoupon(ctx, &EvaluateCouponRequest{Code: "SAVE10", Total: decimal.NewFromInt(-1)})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCCode(t *testing.T) {
	assert.Equal(t, codes.NotFound, grpcCode(domain.NewNotFound("order", 1)))
	assert.Equal(t, codes.FailedPrecondition, grpcCode(&domain.CouponError{Code: "X", Reason: "not found", Err: domain.ErrNotFound}))
	assert.Equal(t, codes.AlreadyExists, grpcCode(domain.ErrAlreadyExists))
	assert.Equal(t, codes.Internal, grpcCode(context.DeadlineExceeded))
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
