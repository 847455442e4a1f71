package httpx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-shop-checkout.git/internal/shop"
	kafkago "github.com/segmentio/kafka-go"
)

// memStore is an in-memory stand-in for the pgx repos. It goes through the same
// pure rules (CheckCoupon, CheckStock, CanTransition, ...) as the real repos and
// keeps the same all-or-nothing semantics under one mutex.
type memStore struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	product map[string]*shop.Product
	cart    map[string]*shop.Cart
	coupon  map[string]*shop.Coupon
	order   map[string]*shop.Order
	history map[string][]shop.StatusEntry
	byExt   map[string]string
}

func newMemStore(now time.Time) *memStore {
	return &memStore{
		now:     now,
		product: map[string]*shop.Product{},
		cart:    map[string]*shop.Cart{},
		coupon:  map[string]*shop.Coupon{},
		order:   map[string]*shop.Order{},
		history: map[string][]shop.StatusEntry{},
		byExt:   map[string]string{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) addProduct(id string, price, stock int) {
	s.product[id] = &shop.Product{ID: id, SKU: "SKU-" + id, Name: id, PriceCents: price, Stock: stock}
}

func (s *memStore) addCoupon(c shop.Coupon) { s.coupon[c.Code] = &c }

func (s *memStore) stockOf(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.product[id].Stock
}

func copyCart(c *shop.Cart) *shop.Cart {
	out := *c
	out.Items = append([]shop.CartItem(nil), c.Items...)
	return &out
}

// --- CartStore ---

func (s *memStore) EnsureCart(_ context.Context, userID string) (*shop.Cart, error) {
	if userID == "" {
		return nil, shop.Invalid(shop.CodeMissingField, "user_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cart {
		if c.UserID == userID && c.Status == shop.CartOpen {
			return copyCart(c), nil
		}
	}
	c := &shop.Cart{ID: s.nextID("cart"), UserID: userID, Status: shop.CartOpen}
	s.cart[c.ID] = c
	return copyCart(c), nil
}

func (s *memStore) GetCart(_ context.Context, cartID string) (*shop.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cart[cartID]
	if !ok {
		return nil, shop.NotFound(shop.CodeCartNotFound, "cart not found: %s", cartID)
	}
	return copyCart(c), nil
}

func (s *memStore) openCartLocked(cartID string) (*shop.Cart, error) {
	c, ok := s.cart[cartID]
	if !ok {
		return nil, shop.NotFound(shop.CodeCartNotFound, "cart not found: %s", cartID)
	}
	if c.Status != shop.CartOpen {
		return nil, shop.Rule(shop.CodeCartClosed, "cart %s is already checked out", cartID)
	}
	return c, nil
}

// refreshTotalsLocked mirrors refreshCartTotals in the pg repo.
func (s *memStore) refreshTotalsLocked(c *shop.Cart) {
	c.SubtotalCents = shop.Subtotal(c.Items)
	c.DiscountCents = 0
	if c.CouponCode == "" {
		return
	}
	cpn, ok := s.coupon[c.CouponCode]
	if !ok || shop.CheckCouponAttached(cpn, c.SubtotalCents, s.now) != nil {
		c.CouponCode = ""
		return
	}
	c.DiscountCents = cpn.DiscountCents(c.SubtotalCents)
}

func (s *memStore) AddItem(_ context.Context, cartID, productID string, qty int) (*shop.Cart, error) {
	if qty <= 0 {
		return nil, shop.Invalid(shop.CodeInvalidQty, "qty must be positive, got %d", qty)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.openCartLocked(cartID)
	if err != nil {
		return nil, err
	}
	p, ok := s.product[productID]
	if !ok {
		return nil, shop.NotFound(shop.CodeProductNotFound, "product not found: %s", productID)
	}
	c.Items = shop.MergeLine(c.Items, cartID, productID, qty, p.PriceCents)
	s.refreshTotalsLocked(c)
	return copyCart(c), nil
}

func (s *memStore) SetItemQty(_ context.Context, cartID, productID string, qty int) (*shop.Cart, error) {
	if qty < 0 {
		return nil, shop.Invalid(shop.CodeInvalidQty, "qty must not be negative, got %d", qty)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.openCartLocked(cartID)
	if err != nil {
		return nil, err
	}
	items, ok := shop.SetLineQty(c.Items, productID, qty)
	if !ok {
		return nil, shop.NotFound(shop.CodeProductNotFound, "product %s is not in cart %s", productID, cartID)
	}
	c.Items = items
	s.refreshTotalsLocked(c)
	return copyCart(c), nil
}

func (s *memStore) RemoveItem(ctx context.Context, cartID, productID string) (*shop.Cart, error) {
	return s.SetItemQty(ctx, cartID, productID, 0)
}

// --- CouponStore ---

func (s *memStore) ApplyCoupon(_ context.Context, cartID, code string) (*shop.Cart, error) {
	if code == "" {
		return nil, shop.Invalid(shop.CodeMissingField, "coupon code is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.openCartLocked(cartID)
	if err != nil {
		return nil, err
	}
	cpn, ok := s.coupon[code]
	if !ok {
		return nil, shop.NotFound(shop.CodeCouponNotFound, "coupon not found: %s", code)
	}
	if cerr := shop.CheckCoupon(cpn, c.SubtotalCents, s.now); cerr != nil {
		return nil, cerr
	}
	cpn.UsedCount++
	c.CouponCode = code
	c.DiscountCents = cpn.DiscountCents(c.SubtotalCents)
	return copyCart(c), nil
}

func (s *memStore) RemoveCoupon(_ context.Context, cartID string) (*shop.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.openCartLocked(cartID)
	if err != nil {
		return nil, err
	}
	c.CouponCode = ""
	c.DiscountCents = 0
	return copyCart(c), nil
}

// --- CheckoutStore ---

func (s *memStore) Checkout(_ context.Context, in shop.CheckoutInput) (*shop.Order, bool, error) {
	switch {
	case in.ExternalID == "":
		return nil, false, shop.Invalid(shop.CodeMissingField, "external_id is required")
	case in.CartID == "":
		return nil, false, shop.Invalid(shop.CodeMissingField, "cart_id is required")
	case in.AddressID == "":
		return nil, false, shop.Invalid(shop.CodeMissingField, "address_id is required")
	case in.PaymentMethod == "":
		return nil, false, shop.Invalid(shop.CodeMissingField, "payment_method is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byExt[in.ExternalID]; ok {
		return s.order[id], true, nil
	}
	c, err := s.openCartLocked(in.CartID)
	if err != nil {
		return nil, false, err
	}
	if len(c.Items) == 0 {
		return nil, false, shop.Rule(shop.CodeCartEmpty, "cart %s has no items", in.CartID)
	}

	available := make(map[string]int, len(c.Items))
	for _, it := range c.Items {
		p, ok := s.product[it.ProductID]
		if !ok {
			return nil, false, shop.NotFound(shop.CodeProductNotFound, "product not found: %s", it.ProductID)
		}
		available[it.ProductID] = p.Stock
	}
	if short := shop.CheckStock(c.Items, available); len(short) > 0 {
		e := shop.Rule(shop.CodeOutOfStock, "insufficient stock for %d product(s)", len(short))
		e.Details = short
		return nil, false, e
	}

	for _, it := range c.Items {
		s.product[it.ProductID].Stock -= it.Qty
	}

	subtotal := shop.Subtotal(c.Items)
	total := subtotal - c.DiscountCents
	if total < 0 {
		total = 0
	}
	o := &shop.Order{
		ID:            s.nextID("order"),
		ExternalID:    in.ExternalID,
		UserID:        c.UserID,
		AddressID:     in.AddressID,
		PaymentMethod: in.PaymentMethod,
		Status:        shop.StatusPending,
		CouponCode:    c.CouponCode,
		SubtotalCents: subtotal,
		DiscountCents: c.DiscountCents,
		TotalCents:    total,
		CreatedAt:     s.now,
	}
	for _, it := range c.Items {
		o.Items = append(o.Items, shop.OrderItem{
			OrderID:        o.ID,
			ProductID:      it.ProductID,
			Qty:            it.Qty,
			PriceCents:     it.PriceCents,
			LineTotalCents: it.LineTotalCents,
		})
	}
	s.order[o.ID] = o
	s.byExt[in.ExternalID] = o.ID
	s.history[o.ID] = []shop.StatusEntry{{
		ID: s.nextID("hist"), OrderID: o.ID, Status: shop.StatusPending, Note: "order placed", CreatedAt: s.now,
	}}
	c.Status = shop.CartCheckedOut
	return o, false, nil
}

// --- OrderStore ---

func (s *memStore) GetOrder(_ context.Context, orderID string) (*shop.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.order[orderID]
	if !ok {
		return nil, shop.NotFound(shop.CodeOrderNotFound, "order not found: %s", orderID)
	}
	return o, nil
}

func (s *memStore) GetHistory(_ context.Context, orderID string) ([]shop.StatusEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.order[orderID]; !ok {
		return nil, shop.NotFound(shop.CodeOrderNotFound, "order not found: %s", orderID)
	}
	return append([]shop.StatusEntry(nil), s.history[orderID]...), nil
}

func (s *memStore) Transition(_ context.Context, orderID string, to shop.Status, note string) (*shop.Order, []shop.ItemQty, error) {
	if !shop.IsValidStatus(to) {
		return nil, nil, shop.Invalid(shop.CodeUnknownStatus, "unknown status: %s", to)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.order[orderID]
	if !ok {
		return nil, nil, shop.NotFound(shop.CodeOrderNotFound, "order not found: %s", orderID)
	}
	if !shop.CanTransition(o.Status, to) {
		return nil, nil, shop.Rule(shop.CodeIllegalTransition, "cannot transition order %s from %s to %s", orderID, o.Status, to)
	}

	var restored []shop.ItemQty
	if to == shop.StatusCancelled {
		for _, it := range o.Items {
			s.product[it.ProductID].Stock += it.Qty
			restored = append(restored, shop.ItemQty{ProductID: it.ProductID, Qty: it.Qty})
		}
	}
	o.Status = to
	s.history[orderID] = append(s.history[orderID], shop.StatusEntry{
		ID: s.nextID("hist"), OrderID: orderID, Status: to, Note: note, CreatedAt: s.now,
	})
	return o, restored, nil
}

// --- ProductStore ---

func (s *memStore) ListProducts(_ context.Context) ([]shop.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []shop.Product
	for _, p := range s.product {
		out = append(out, *p)
	}
	return out, nil
}

func (s *memStore) Restock(_ context.Context, productID string, qty int) (*shop.Product, error) {
	if qty <= 0 {
		return nil, shop.Invalid(shop.CodeInvalidQty, "restock qty must be positive, got %d", qty)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.product[productID]
	if !ok {
		return nil, shop.NotFound(shop.CodeProductNotFound, "product not found: %s", productID)
	}
	p.Stock += qty
	out := *p
	return &out, nil
}

// fakePublisher merekam event yang dipublish handler.
type fakePublisher struct {
	mu     sync.Mutex
	values [][]byte
}

func (f *fakePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = append(f.values, value)
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.values)
}
