package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ariefcatur/go-shop-checkout.git/internal/shop"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	Carts   CartStore
	Coupons CouponStore
}

type EnsureCartReq struct {
	UserID string `json:"user_id"`
}

type AddItemReq struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type SetQtyReq struct {
	Qty int `json:"qty"`
}

type ApplyCouponReq struct {
	Code string `json:"code"`
}

type CartResp struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Status        shop.CartStatus `json:"status"`
	Items         []CartItemResp  `json:"items"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	SubtotalCents int             `json:"subtotal_cents"`
	DiscountCents int             `json:"discount_cents"`
	TotalCents    int             `json:"total_cents"`
}

type CartItemResp struct {
	ProductID      string `json:"product_id"`
	Qty            int    `json:"qty"`
	PriceCents     int    `json:"price_cents"`
	LineTotalCents int    `json:"line_total_cents"`
}

func toCartResp(c *shop.Cart) CartResp {
	resp := CartResp{
		ID:            c.ID,
		UserID:        c.UserID,
		Status:        c.Status,
		CouponCode:    c.CouponCode,
		SubtotalCents: c.SubtotalCents,
		DiscountCents: c.DiscountCents,
		TotalCents:    c.TotalCents(),
	}
	for _, it := range c.Items {
		resp.Items = append(resp.Items, CartItemResp{
			ProductID:      it.ProductID,
			Qty:            it.Qty,
			PriceCents:     it.PriceCents,
			LineTotalCents: it.LineTotalCents,
		})
	}
	return resp
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Post("/carts", h.ensureCart)
	r.Get("/carts/{id}", h.getCart)
	r.Post("/carts/{id}/items", h.addItem)
	r.Put("/carts/{id}/items/{productID}", h.setItemQty)
	r.Delete("/carts/{id}/items/{productID}", h.removeItem)
	r.Post("/carts/{id}/coupon", h.applyCoupon)
	r.Delete("/carts/{id}/coupon", h.removeCoupon)
}

func reqCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}

func (h *CartHandler) ensureCart(w http.ResponseWriter, r *http.Request) {
	var req EnsureCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json"})
		return
	}
	ctx, cancel := reqCtx(r)
	defer cancel()

	c, err := h.Carts.EnsureCart(ctx, req.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(c))
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	c, err := h.Carts.GetCart(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(c))
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json"})
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "missing product_id", Code: shop.CodeMissingField})
		return
	}
	ctx, cancel := reqCtx(r)
	defer cancel()

	c, err := h.Carts.AddItem(ctx, chi.URLParam(r, "id"), req.ProductID, req.Qty)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(c))
}

func (h *CartHandler) setItemQty(w http.ResponseWriter, r *http.Request) {
	var req SetQtyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json"})
		return
	}
	ctx, cancel := reqCtx(r)
	defer cancel()

	c, err := h.Carts.SetItemQty(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "productID"), req.Qty)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(c))
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	c, err := h.Carts.RemoveItem(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "productID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(c))
}

func (h *CartHandler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req ApplyCouponReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json"})
		return
	}
	ctx, cancel := reqCtx(r)
	defer cancel()

	c, err := h.Coupons.ApplyCoupon(ctx, chi.URLParam(r, "id"), req.Code)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(c))
}

func (h *CartHandler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	c, err := h.Coupons.RemoveCoupon(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(c))
}
