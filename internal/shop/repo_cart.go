package shop

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CartRepo struct{ DB *pgxpool.Pool }

// EnsureCart returns the user's OPEN cart, creating one if none exists.
func (r *CartRepo) EnsureCart(ctx context.Context, userID string) (*Cart, error) {
	if userID == "" {
		return nil, Invalid(CodeMissingField, "user_id is required")
	}
	var id string
	err := r.DB.QueryRow(ctx, `SELECT id FROM carts WHERE user_id=$1 AND status='OPEN'`, userID).Scan(&id)
	if err == nil {
		return r.GetCart(ctx, id)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrapPgErr(err)
	}

	id = uuid.NewString()
	_, err = r.DB.Exec(ctx, `
		INSERT INTO carts(id, user_id, status, coupon_code, discount_cents, subtotal_cents)
		VALUES ($1, $2, 'OPEN', '', 0, 0)`, id, userID)
	if isUniqueViolation(err) {
		// kalah race di index carts_user_open; pakai cart milik pemenang
		err = r.DB.QueryRow(ctx, `SELECT id FROM carts WHERE user_id=$1 AND status='OPEN'`, userID).Scan(&id)
		if err != nil {
			return nil, wrapPgErr(err)
		}
		return r.GetCart(ctx, id)
	}
	if err != nil {
		return nil, wrapPgErr(err)
	}
	return r.GetCart(ctx, id)
}

func (r *CartRepo) GetCart(ctx context.Context, cartID string) (*Cart, error) {
	c, err := scanCart(ctx, r.DB, cartID)
	if err != nil {
		return nil, err
	}
	c.Items, err = scanCartItems(ctx, r.DB, cartID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// AddItem menambah qty sebuah product ke cart; line yang sudah ada di-merge.
// Unit price dibaca dari products, bukan dari client.
func (r *CartRepo) AddItem(ctx context.Context, cartID, productID string, qty int) (*Cart, error) {
	if qty <= 0 {
		return nil, Invalid(CodeInvalidQty, "qty must be positive, got %d", qty)
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := requireOpenCart(ctx, tx, cartID); err != nil {
		return nil, err
	}

	var price int
	err = tx.QueryRow(ctx, `SELECT price_cents FROM products WHERE id=$1`, productID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFound(CodeProductNotFound, "product not found: %s", productID)
	} else if err != nil {
		return nil, wrapPgErr(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cart_items(cart_id, product_id, qty, price_cents, line_total_cents)
		VALUES ($1, $2, $3, $4, $3*$4)
		ON CONFLICT (cart_id, product_id) DO UPDATE
		SET qty = cart_items.qty + EXCLUDED.qty,
		    line_total_cents = (cart_items.qty + EXCLUDED.qty) * cart_items.price_cents
	`, cartID, productID, qty, price)
	if err != nil {
		return nil, wrapPgErr(err)
	}

	if err := refreshCartTotals(ctx, tx, cartID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, wrapPgErr(err)
	}
	return r.GetCart(ctx, cartID)
}

// SetItemQty sets a line's quantity; qty 0 removes the line.
func (r *CartRepo) SetItemQty(ctx context.Context, cartID, productID string, qty int) (*Cart, error) {
	if qty < 0 {
		return nil, Invalid(CodeInvalidQty, "qty must not be negative, got %d", qty)
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := requireOpenCart(ctx, tx, cartID); err != nil {
		return nil, err
	}

	var ct pgconn.CommandTag
	if qty == 0 {
		ct, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1 AND product_id=$2`, cartID, productID)
	} else {
		ct, err = tx.Exec(ctx, `
			UPDATE cart_items SET qty=$3, line_total_cents=$3*price_cents
			WHERE cart_id=$1 AND product_id=$2`, cartID, productID, qty)
	}
	if err != nil {
		return nil, wrapPgErr(err)
	}
	if ct.RowsAffected() == 0 {
		return nil, NotFound(CodeProductNotFound, "product %s is not in cart %s", productID, cartID)
	}

	if err := refreshCartTotals(ctx, tx, cartID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, wrapPgErr(err)
	}
	return r.GetCart(ctx, cartID)
}

func (r *CartRepo) RemoveItem(ctx context.Context, cartID, productID string) (*Cart, error) {
	return r.SetItemQty(ctx, cartID, productID, 0)
}

// --- shared helpers, dipakai juga oleh repo coupon & checkout ---

type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanCart(ctx context.Context, q pgQuerier, cartID string) (*Cart, error) {
	var c Cart
	err := q.QueryRow(ctx, `
		SELECT id, user_id, status, coupon_code, discount_cents, subtotal_cents, created_at, updated_at
		FROM carts WHERE id=$1`, cartID).
		Scan(&c.ID, &c.UserID, &c.Status, &c.CouponCode, &c.DiscountCents, &c.SubtotalCents, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFound(CodeCartNotFound, "cart not found: %s", cartID)
	} else if err != nil {
		return nil, wrapPgErr(err)
	}
	return &c, nil
}

func scanCartItems(ctx context.Context, q pgQuerier, cartID string) ([]CartItem, error) {
	rows, err := q.Query(ctx, `
		SELECT cart_id, product_id, qty, price_cents, line_total_cents
		FROM cart_items WHERE cart_id=$1 ORDER BY product_id`, cartID)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	defer rows.Close()

	var out []CartItem
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(&it.CartID, &it.ProductID, &it.Qty, &it.PriceCents, &it.LineTotalCents); err != nil {
			return nil, wrapPgErr(err)
		}
		out = append(out, it)
	}
	return out, wrapPgErr(rows.Err())
}

// requireOpenCart locks the cart row so mutation dan checkout tidak saling serobot.
func requireOpenCart(ctx context.Context, tx pgx.Tx, cartID string) error {
	var status CartStatus
	err := tx.QueryRow(ctx, `SELECT status FROM carts WHERE id=$1 FOR UPDATE`, cartID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound(CodeCartNotFound, "cart not found: %s", cartID)
	} else if err != nil {
		return wrapPgErr(err)
	}
	if status != CartOpen {
		return Rule(CodeCartClosed, "cart %s is already checked out", cartID)
	}
	return nil
}

// refreshCartTotals recomputes the stored subtotal from the lines and re-checks an
// attached coupon against it: discount mengikuti subtotal baru, dan coupon dilepas
// kalau cart tidak lagi memenuhi syaratnya (mis. turun di bawah minimum purchase).
// Usage count is not given back; usage is consumed, not reservable.
func refreshCartTotals(ctx context.Context, tx pgx.Tx, cartID string) error {
	var subtotal int
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(line_total_cents), 0) FROM cart_items WHERE cart_id=$1`, cartID).Scan(&subtotal)
	if err != nil {
		return wrapPgErr(err)
	}

	var code string
	if err := tx.QueryRow(ctx, `SELECT coupon_code FROM carts WHERE id=$1`, cartID).Scan(&code); err != nil {
		return wrapPgErr(err)
	}

	discount := 0
	if code != "" {
		cpn, err := scanCoupon(ctx, tx, code, false)
		if err != nil {
			var e *Error
			if errors.As(err, &e) && e.Kind == KindNotFound {
				code = "" // coupon row hilang; lepas saja
			} else {
				return err
			}
		} else if cerr := CheckCouponAttached(cpn, subtotal, time.Now()); cerr != nil {
			code = ""
		} else {
			discount = cpn.DiscountCents(subtotal)
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE carts SET subtotal_cents=$2, coupon_code=$3, discount_cents=$4, updated_at=now()
		WHERE id=$1`, cartID, subtotal, code, discount)
	return wrapPgErr(err)
}
