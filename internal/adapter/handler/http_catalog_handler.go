package handler

import (
	"net/http"

	"github.com/rl1809/catalog-orders/internal/core/service"
	"github.com/rl1809/catalog-orders/internal/port"
)

type CategoryHTTPRequest struct {
	Name string `json:"name"`
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Products.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, ok := queryPage(w, r)
	if !ok {
		return
	}
	categoryID, err := queryInt64(q.Get("category_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid category_id"})
		return
	}

	res, err := h.svc.Products.ListProducts(r.Context(), port.ProductFilter{
		Keyword:    q.Get("keyword"),
		CategoryID: categoryID,
		Page:       page,
		Sort:       port.SortDirection(q.Get("sort")),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetProductsByIDs serves ?ids=1,2,3; unknown ids are skipped.
func (h *HTTPHandler) GetProductsByIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := queryIDs(r.URL.Query().Get("ids"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid ids"})
		return
	}
	products, err := h.svc.Products.GetProductsByIDs(r.Context(), ids)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req service.CreateProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.svc.Products.CreateProduct(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req service.UpdateProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.svc.Products.UpdateProduct(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Products.DeleteProduct(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Categories.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *HTTPHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Categories.GetCategory(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.svc.Categories.CreateCategory(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *HTTPHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req CategoryHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.svc.Categories.UpdateCategory(r.Context(), id, req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Categories.DeleteCategory(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.svc.Coupons.ListCoupons(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, coupons)
}

func (h *HTTPHandler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Coupons.GetCoupon(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *HTTPHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req service.CouponRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.svc.Coupons.CreateCoupon(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *HTTPHandler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req service.CouponRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.svc.Coupons.UpdateCoupon(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *HTTPHandler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Coupons.DeleteCoupon(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ToggleCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Coupons.ToggleCoupon(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
