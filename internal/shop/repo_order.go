package shop

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepo struct{ DB *pgxpool.Pool }

func (r *OrderRepo) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, external_id, user_id, address_id, payment_method, status,
		       coupon_code, subtotal_cents, discount_cents, total_cents, created_at, updated_at
		FROM orders WHERE id=$1`, orderID).
		Scan(&o.ID, &o.ExternalID, &o.UserID, &o.AddressID, &o.PaymentMethod, &o.Status,
			&o.CouponCode, &o.SubtotalCents, &o.DiscountCents, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFound(CodeOrderNotFound, "order not found: %s", orderID)
	} else if err != nil {
		return nil, wrapPgErr(err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, qty, price_cents, line_total_cents
		FROM order_items WHERE order_id=$1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.Qty, &it.PriceCents, &it.LineTotalCents); err != nil {
			return nil, wrapPgErr(err)
		}
		o.Items = append(o.Items, it)
	}
	return &o, wrapPgErr(rows.Err())
}

func (r *OrderRepo) GetHistory(ctx context.Context, orderID string) ([]StatusEntry, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, status, note, created_at
		FROM order_status_history WHERE order_id=$1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	defer rows.Close()

	var out []StatusEntry
	for rows.Next() {
		var e StatusEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Note, &e.CreatedAt); err != nil {
			return nil, wrapPgErr(err)
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		// order tanpa history tidak pernah ada; bedakan dari order yang memang tidak ada
		if _, err := r.GetOrder(ctx, orderID); err != nil {
			return nil, err
		}
	}
	return out, wrapPgErr(rows.Err())
}

// Transition: validasi lewat state machine, append history, update status, semua
// dalam satu transaksi. Transisi ke CANCELLED mengembalikan stok tiap line tepat
// satu kali; cancel kedua ditolak karena CANCELLED terminal.
func (r *OrderRepo) Transition(ctx context.Context, orderID string, to Status, note string) (*Order, []ItemQty, error) {
	if !IsValidStatus(to) {
		return nil, nil, Invalid(CodeUnknownStatus, "unknown status: %s", to)
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, nil, wrapPgErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// lock order row supaya dua transisi bersamaan tidak double-apply
	var from Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&from)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, NotFound(CodeOrderNotFound, "order not found: %s", orderID)
	} else if err != nil {
		return nil, nil, wrapPgErr(err)
	}

	if !CanTransition(from, to) {
		return nil, nil, Rule(CodeIllegalTransition, "cannot transition order %s from %s to %s", orderID, from, to)
	}

	var restored []ItemQty
	if to == StatusCancelled {
		restored, err = restoreStock(ctx, tx, orderID)
		if err != nil {
			return nil, nil, err
		}
	}

	_, err = tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, orderID, to)
	if err != nil {
		return nil, nil, wrapPgErr(err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO order_status_history(id, order_id, status, note)
		VALUES ($1, $2, $3, $4)`, uuid.NewString(), orderID, to, note)
	if err != nil {
		return nil, nil, wrapPgErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, wrapPgErr(err)
	}
	o, err := r.GetOrder(ctx, orderID)
	return o, restored, err
}

// restoreStock mengembalikan qty tiap order item ke products. Hanya dipanggil dari
// transisi ke CANCELLED yang sudah lolos state machine, jadi tidak mungkin jalan
// dua kali untuk order yang sama.
func restoreStock(ctx context.Context, tx pgx.Tx, orderID string) ([]ItemQty, error) {
	rows, err := tx.Query(ctx, `SELECT product_id, qty FROM order_items WHERE order_id=$1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	defer rows.Close()

	var items []ItemQty
	for rows.Next() {
		var it ItemQty
		if err := rows.Scan(&it.ProductID, &it.Qty); err != nil {
			return nil, wrapPgErr(err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgErr(err)
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at=now() WHERE id=$1`, it.ProductID, it.Qty); err != nil {
			return nil, wrapPgErr(err)
		}
	}
	return items, nil
}
