package shop

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CheckoutRepo struct{ DB *pgxpool.Pool }

type CheckoutInput struct {
	ExternalID    string
	CartID        string
	AddressID     string
	PaymentMethod string
}

func (in *CheckoutInput) validate() *Error {
	switch {
	case in.ExternalID == "":
		return Invalid(CodeMissingField, "external_id is required")
	case in.CartID == "":
		return Invalid(CodeMissingField, "cart_id is required")
	case in.AddressID == "":
		return Invalid(CodeMissingField, "address_id is required")
	case in.PaymentMethod == "":
		return Invalid(CodeMissingField, "payment_method is required")
	}
	return nil
}

// Checkout: idempotent via external_id, all-or-nothing dalam satu transaksi.
// Lock stok per product (FOR UPDATE) -> cek semua line -> kalau ada yang kurang,
// rollback tanpa perubahan apa pun -> kalau cukup, kurangi stok, snapshot order
// + items + history PENDING, tutup cart.
func (r *CheckoutRepo) Checkout(ctx context.Context, in CheckoutInput) (order *Order, existed bool, err error) {
	if verr := in.validate(); verr != nil {
		return nil, false, verr
	}

	// cek existing by external_id dulu (DB adalah kebenaran, Redis cuma shortcut)
	var existingID string
	err = r.DB.QueryRow(ctx, `SELECT id FROM orders WHERE external_id=$1`, in.ExternalID).Scan(&existingID)
	if err == nil {
		o, gerr := (&OrderRepo{DB: r.DB}).GetOrder(ctx, existingID)
		return o, true, gerr
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, wrapPgErr(err)
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, false, wrapPgErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := requireOpenCart(ctx, tx, in.CartID); err != nil {
		return nil, false, err
	}
	cart, err := scanCart(ctx, tx, in.CartID)
	if err != nil {
		return nil, false, err
	}
	cart.Items, err = scanCartItems(ctx, tx, in.CartID)
	if err != nil {
		return nil, false, err
	}
	if len(cart.Items) == 0 {
		return nil, false, Rule(CodeCartEmpty, "cart %s has no items", in.CartID)
	}

	// lock product rows dengan urutan stabil biar dua checkout tidak deadlock
	sort.Slice(cart.Items, func(i, j int) bool { return cart.Items[i].ProductID < cart.Items[j].ProductID })

	available := make(map[string]int, len(cart.Items))
	for _, it := range cart.Items {
		var stock int
		err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, it.ProductID).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, NotFound(CodeProductNotFound, "product not found: %s", it.ProductID)
		} else if err != nil {
			return nil, false, wrapPgErr(err)
		}
		available[it.ProductID] = stock
	}

	if short := CheckStock(cart.Items, available); len(short) > 0 {
		e := Rule(CodeOutOfStock, "insufficient stock for %d product(s)", len(short))
		e.Details = short
		return nil, false, e // rollback via defer, stok tidak tersentuh
	}

	for _, it := range cart.Items {
		if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at=now() WHERE id=$1`, it.ProductID, it.Qty); err != nil {
			return nil, false, wrapPgErr(err)
		}
	}

	orderID := uuid.NewString()
	subtotal := Subtotal(cart.Items)
	discount := cart.DiscountCents
	total := subtotal - discount
	if total < 0 {
		total = 0
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, external_id, user_id, address_id, payment_method, status,
		                   coupon_code, subtotal_cents, discount_cents, total_cents)
		VALUES ($1, $2, $3, $4, $5, 'PENDING', $6, $7, $8, $9)`,
		orderID, in.ExternalID, cart.UserID, in.AddressID, in.PaymentMethod,
		cart.CouponCode, subtotal, discount, total)
	if isUniqueViolation(err) {
		// checkout bersamaan dengan external_id sama menang duluan; rollback
		// (defer) membatalkan pengurangan stok kita, lalu pulangkan order pemenang
		_ = tx.Rollback(ctx)
		err = r.DB.QueryRow(ctx, `SELECT id FROM orders WHERE external_id=$1`, in.ExternalID).Scan(&existingID)
		if err != nil {
			return nil, false, wrapPgErr(err)
		}
		o, gerr := (&OrderRepo{DB: r.DB}).GetOrder(ctx, existingID)
		return o, true, gerr
	}
	if err != nil {
		return nil, false, wrapPgErr(err)
	}

	for _, it := range cart.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, qty, price_cents, line_total_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			orderID, it.ProductID, it.Qty, it.PriceCents, it.LineTotalCents)
		if err != nil {
			return nil, false, wrapPgErr(err)
		}
	}

	// history pertama: PENDING
	_, err = tx.Exec(ctx, `
		INSERT INTO order_status_history(id, order_id, status, note)
		VALUES ($1, $2, 'PENDING', 'order placed')`, uuid.NewString(), orderID)
	if err != nil {
		return nil, false, wrapPgErr(err)
	}

	// tutup cart (soft close); cart baru dibuat di add-to-cart berikutnya
	_, err = tx.Exec(ctx, `UPDATE carts SET status='CHECKED_OUT', updated_at=now() WHERE id=$1`, in.CartID)
	if err != nil {
		return nil, false, wrapPgErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, wrapPgErr(err)
	}
	o, err := (&OrderRepo{DB: r.DB}).GetOrder(ctx, orderID)
	return o, false, err
}
