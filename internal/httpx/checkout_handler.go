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

type CheckoutHandler struct {
	Checkout CheckoutStore
	Orders   OrderStore
	Redis    *redis.Client
	Producer Publisher // topic order.created
	Service  string
}

type CheckoutReq struct {
	ExternalID    string `json:"external_id"`
	CartID        string `json:"cart_id"`
	AddressID     string `json:"address_id"`
	PaymentMethod string `json:"payment_method"`
}

type CheckoutResp struct {
	OrderID    string      `json:"order_id"`
	Status     shop.Status `json:"status"`
	TotalCents int         `json:"total_cents"`
	Idempotent bool        `json:"idempotent"`
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.checkout)
}

func (h *CheckoutHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json"})
		return
	}
	ctx, cancel := reqCtx(r)
	defer cancel()

	// Fast-path idempotency via Redis; kalau cache meleset, repo tetap cek
	// external_id di DB (DB adalah kebenaran)
	if req.ExternalID != "" {
		idemKey := fmt.Sprintf(redisx.KeyIdemCheckout, req.ExternalID)
		if id, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && id != "" {
			if o, gerr := h.Orders.GetOrder(ctx, id); gerr == nil {
				writeJSON(w, http.StatusOK, CheckoutResp{
					OrderID:    o.ID,
					Status:     o.Status,
					TotalCents: o.TotalCents,
					Idempotent: true,
				})
				return
			}
		}
	}

	order, existed, err := h.Checkout.Checkout(ctx, shop.CheckoutInput{
		ExternalID:    req.ExternalID,
		CartID:        req.CartID,
		AddressID:     req.AddressID,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	// Simpan shortcut idempotency + cache status di Redis (DB tetap kebenaran)
	idemKey := fmt.Sprintf(redisx.KeyIdemCheckout, req.ExternalID)
	_ = h.Redis.Set(ctx, idemKey, order.ID, redisx.TTLIdempotency).Err()
	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, order.ID)
	_ = h.Redis.Set(ctx, statusKey, fmt.Sprintf(`{"status":%q}`, order.Status), redisx.TTLStatusCache).Err()

	if !existed {
		items := make([]shop.ItemQty, 0, len(order.Items))
		for _, it := range order.Items {
			items = append(items, shop.ItemQty{ProductID: it.ProductID, Qty: it.Qty})
		}
		ev := shop.Envelope{
			EventID:       uuid.NewString(),
			EventType:     shop.EventOrderCreated,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      h.Service,
			TraceID:       r.Header.Get("X-Request-Id"),
			CorrelationID: order.ID,
			Payload: kafkax.MustMarshal(shop.OrderCreatedPayload{
				OrderID:       order.ID,
				ExternalID:    order.ExternalID,
				UserID:        order.UserID,
				Items:         items,
				CouponCode:    order.CouponCode,
				DiscountCents: order.DiscountCents,
				TotalCents:    order.TotalCents,
			}),
		}
		h.Producer.Publish(shop.PartitionKey(order.ID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(shop.EventOrderCreated)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}

	code := http.StatusCreated
	if existed {
		code = http.StatusOK
	}
	writeJSON(w, code, CheckoutResp{
		OrderID:    order.ID,
		Status:     order.Status,
		TotalCents: order.TotalCents,
		Idempotent: existed,
	})
}
