package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/catalog-orders/internal/core/domain"
	"github.com/rl1809/catalog-orders/internal/core/service"
	"github.com/rl1809/catalog-orders/internal/port"
)

// Services bundles the application services exposed over HTTP.
type Services struct {
	Orders       *service.OrderService
	OrderDetails *service.OrderDetailService
	Products     *service.ProductService
	Categories   *service.CategoryService
	Coupons      *service.CouponService
	CouponEngine *service.CouponEngine
}

type HTTPHandler struct {
	svc    Services
	logger *zap.Logger
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type EvaluateCouponHTTPRequest struct {
	Code  string          `json:"code"`
	Total decimal.Decimal `json:"total"`
}

type EvaluateCouponHTTPResponse struct {
	Code       string          `json:"code"`
	Total      decimal.Decimal `json:"total"`
	FinalTotal decimal.Decimal `json:"final_total"`
}

func NewHTTPHandler(svc Services, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{svc: svc, logger: logger}
}

// Register mounts every route on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)

	mux.HandleFunc("POST /api/orders", h.PlaceOrder)
	mux.HandleFunc("GET /api/orders", h.SearchOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("PUT /api/orders/{id}", h.UpdateOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", h.CancelOrder)
	mux.HandleFunc("GET /api/orders/{id}/details", h.ListOrderDetails)
	mux.HandleFunc("GET /api/users/{id}/orders", h.ListUserOrders)

	mux.HandleFunc("POST /api/order_details", h.CreateOrderDetail)
	mux.HandleFunc("GET /api/order_details/{id}", h.GetOrderDetail)
	mux.HandleFunc("PUT /api/order_details/{id}", h.UpdateOrderDetail)
	mux.HandleFunc("DELETE /api/order_details/{id}", h.DeleteOrderDetail)

	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/by-ids", h.GetProductsByIDs)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("POST /api/products", h.CreateProduct)
	mux.HandleFunc("PUT /api/products/{id}", h.UpdateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", h.DeleteProduct)

	mux.HandleFunc("GET /api/categories", h.ListCategories)
	mux.HandleFunc("GET /api/categories/{id}", h.GetCategory)
	mux.HandleFunc("POST /api/categories", h.CreateCategory)
	mux.HandleFunc("PUT /api/categories/{id}", h.UpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", h.DeleteCategory)

	mux.HandleFunc("POST /api/coupons/evaluate", h.EvaluateCoupon)
	mux.HandleFunc("GET /api/coupons", h.ListCoupons)
	mux.HandleFunc("GET /api/coupons/{id}", h.GetCoupon)
	mux.HandleFunc("POST /api/coupons", h.CreateCoupon)
	mux.HandleFunc("PUT /api/coupons/{id}", h.UpdateCoupon)
	mux.HandleFunc("DELETE /api/coupons/{id}", h.DeleteCoupon)
	mux.HandleFunc("PATCH /api/coupons/{id}/toggle", h.ToggleCoupon)
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req service.PlaceOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.svc.Orders.PlaceOrder(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// SearchOrders lists active orders matching keyword, scoped to user_id when given.
func (h *HTTPHandler) SearchOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, ok := queryPage(w, r)
	if !ok {
		return
	}
	userID, err := queryInt64(q.Get("user_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid user_id"})
		return
	}

	var res *port.OrderPage
	if userID > 0 {
		res, err = h.svc.Orders.GetUserOrders(r.Context(), userID, q.Get("keyword"), page)
	} else {
		res, err = h.svc.Orders.SearchOrders(r.Context(), q.Get("keyword"), page)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	order, err := h.svc.Orders.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req service.UpdateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	order, err := h.svc.Orders.UpdateOrder(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Orders.CancelOrder(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	orders, err := h.svc.Orders.ListUserOrders(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *HTTPHandler) ListOrderDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	details, err := h.svc.OrderDetails.ListOrderDetails(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *HTTPHandler) CreateOrderDetail(w http.ResponseWriter, r *http.Request) {
	var req service.OrderDetailRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := h.svc.OrderDetails.CreateOrderDetail(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *HTTPHandler) GetOrderDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.OrderDetails.GetOrderDetail(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *HTTPHandler) UpdateOrderDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req service.OrderDetailRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := h.svc.OrderDetails.UpdateOrderDetail(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *HTTPHandler) DeleteOrderDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.OrderDetails.DeleteOrderDetail(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) EvaluateCoupon(w http.ResponseWriter, r *http.Request) {
	var req EvaluateCouponHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	final, err := h.svc.CouponEngine.Evaluate(r.Context(), req.Code, req.Total)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EvaluateCouponHTTPResponse{Code: req.Code, Total: req.Total, FinalTotal: final})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
		message = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Message: message})
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrInvalidCoupon):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidParam):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCoupon):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid id"})
		return 0, false
	}
	return id, true
}

// queryPage reads page and limit. Range checks are left to the services.
func queryPage(w http.ResponseWriter, r *http.Request) (port.Page, bool) {
	q := r.URL.Query()
	page, err := queryInt64(q.Get("page"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid page"})
		return port.Page{}, false
	}
	limit, err := queryInt64(q.Get("limit"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid limit"})
		return port.Page{}, false
	}
	return port.Page{Number: int(page), Size: int(limit)}, true
}

func queryInt64(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func queryIDs(v string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
