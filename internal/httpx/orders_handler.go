package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	kafkax "github.com/ariefcatur/go-shop-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-shop-checkout.git/internal/redisx"
	"github.com/ariefcatur/go-shop-checkout.git/internal/shop"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type OrdersHandler struct {
	Orders         OrderStore
	Redis          *redis.Client
	ProducerStatus Publisher // topic order.status.changed
	ProducerCancel Publisher // topic order.cancelled
	Service        string
}

type TransitionReq struct {
	Status shop.Status `json:"status"`
	Note   string      `json:"note,omitempty"`
}

type OrderResp struct {
	ID            string         `json:"id"`
	ExternalID    string         `json:"external_id"`
	UserID        string         `json:"user_id"`
	AddressID     string         `json:"address_id"`
	PaymentMethod string         `json:"payment_method"`
	Status        shop.Status    `json:"status"`
	CouponCode    string         `json:"coupon_code,omitempty"`
	SubtotalCents int            `json:"subtotal_cents"`
	DiscountCents int            `json:"discount_cents"`
	TotalCents    int            `json:"total_cents"`
	Items         []CartItemResp `json:"items"`
	CreatedAt     time.Time      `json:"created_at"`
}

type HistoryEntryResp struct {
	Status    shop.Status `json:"status"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

func toOrderResp(o *shop.Order) OrderResp {
	resp := OrderResp{
		ID:            o.ID,
		ExternalID:    o.ExternalID,
		UserID:        o.UserID,
		AddressID:     o.AddressID,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		CouponCode:    o.CouponCode,
		SubtotalCents: o.SubtotalCents,
		DiscountCents: o.DiscountCents,
		TotalCents:    o.TotalCents,
		CreatedAt:     o.CreatedAt,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, CartItemResp{
			ProductID:      it.ProductID,
			Qty:            it.Qty,
			PriceCents:     it.PriceCents,
			LineTotalCents: it.LineTotalCents,
		})
	}
	return resp
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Get("/orders/{id}/history", h.getHistory)
	r.Post("/orders/{id}/status", h.transition)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	o, err := h.Orders.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResp(o))
}

// getStatus: cache dulu, fallback DB.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := reqCtx(r)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	o, err := h.Orders.GetOrder(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	b, _ := json.Marshal(map[string]any{"status": o.Status})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *OrdersHandler) getHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	entries, err := h.Orders.GetHistory(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]HistoryEntryResp, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryResp{Status: e.Status, Note: e.Note, CreatedAt: e.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) transition(w http.ResponseWriter, r *http.Request) {
	var req TransitionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json"})
		return
	}
	orderID := chi.URLParam(r, "id")
	ctx, cancel := reqCtx(r)
	defer cancel()

	o, restored, err := h.Orders.Transition(ctx, orderID, req.Status, req.Note)
	if err != nil {
		writeErr(w, err)
		return
	}

	// refresh cache status
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = h.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, o.Status), redisx.TTLStatusCache).Err()

	trace := r.Header.Get("X-Request-Id")
	h.publishStatusChanged(orderID, o.Status, req.Note, trace)
	if o.Status == shop.StatusCancelled {
		h.publishCancelled(orderID, restored, req.Note, trace)
	}

	writeJSON(w, http.StatusOK, toOrderResp(o))
}

func (h *OrdersHandler) publishStatusChanged(orderID string, to shop.Status, note, trace string) {
	ev := shop.Envelope{
		EventID:       uuid.NewString(),
		EventType:     shop.EventOrderStatusChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(shop.OrderStatusChangedPayload{OrderID: orderID, To: to, Note: note}),
	}
	h.ProducerStatus.Publish(shop.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(shop.EventOrderStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) publishCancelled(orderID string, restored []shop.ItemQty, note, trace string) {
	ev := shop.Envelope{
		EventID:       uuid.NewString(),
		EventType:     shop.EventOrderCancelled,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(shop.OrderCancelledPayload{OrderID: orderID, Restored: restored, Note: note}),
	}
	h.ProducerCancel.Publish(shop.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(shop.EventOrderCancelled)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
