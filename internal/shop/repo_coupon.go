package shop

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CouponRepo struct{ DB *pgxpool.Pool }

// ApplyCoupon: lock coupon row (FOR UPDATE) -> validasi -> attach ke cart ->
// used_count+1, semua dalam satu transaksi. Gagal validasi = rollback, cart dan
// counter tidak berubah.
func (r *CouponRepo) ApplyCoupon(ctx context.Context, cartID, code string) (*Cart, error) {
	if code == "" {
		return nil, Invalid(CodeMissingField, "coupon code is required")
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := requireOpenCart(ctx, tx, cartID); err != nil {
		return nil, err
	}
	var subtotal int
	if err := tx.QueryRow(ctx, `SELECT subtotal_cents FROM carts WHERE id=$1`, cartID).Scan(&subtotal); err != nil {
		return nil, wrapPgErr(err)
	}

	cpn, err := scanCoupon(ctx, tx, code, true)
	if err != nil {
		return nil, err
	}
	if cerr := CheckCoupon(cpn, subtotal, time.Now()); cerr != nil {
		return nil, cerr
	}
	discount := cpn.DiscountCents(subtotal)

	// guard used_count di SQL juga; kalau race tetap lolos validasi, jangan lewat limit
	ct, err := tx.Exec(ctx, `
		UPDATE coupons SET used_count = used_count + 1
		WHERE code=$1 AND (usage_limit = 0 OR used_count < usage_limit)`, code)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	if ct.RowsAffected() != 1 {
		return nil, Rule(CodeCouponExhausted, "coupon %s usage limit reached", code)
	}

	_, err = tx.Exec(ctx, `
		UPDATE carts SET coupon_code=$2, discount_cents=$3, updated_at=now()
		WHERE id=$1`, cartID, code, discount)
	if err != nil {
		return nil, wrapPgErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapPgErr(err)
	}
	return (&CartRepo{DB: r.DB}).GetCart(ctx, cartID)
}

// RemoveCoupon melepas coupon dari cart; total kembali ke subtotal. used_count
// tidak dikembalikan (usage is consumed, not reservable).
func (r *CouponRepo) RemoveCoupon(ctx context.Context, cartID string) (*Cart, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := requireOpenCart(ctx, tx, cartID); err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, `
		UPDATE carts SET coupon_code='', discount_cents=0, updated_at=now()
		WHERE id=$1`, cartID)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, wrapPgErr(err)
	}
	return (&CartRepo{DB: r.DB}).GetCart(ctx, cartID)
}

func (r *CouponRepo) GetCoupon(ctx context.Context, code string) (*Coupon, error) {
	return scanCoupon(ctx, r.DB, code, false)
}

// scanCoupon reads one coupon row; forUpdate locks it for the apply tx.
func scanCoupon(ctx context.Context, q pgQuerier, code string, forUpdate bool) (*Coupon, error) {
	sql := `
		SELECT code, percent, amount_cents, min_purchase_cents, max_discount_cents,
		       valid_from, valid_until, usage_limit, used_count, active
		FROM coupons WHERE code=$1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var c Coupon
	err := q.QueryRow(ctx, sql, code).Scan(
		&c.Code, &c.Percent, &c.AmountCents, &c.MinPurchaseCents, &c.MaxDiscountCents,
		&c.ValidFrom, &c.ValidUntil, &c.UsageLimit, &c.UsedCount, &c.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFound(CodeCouponNotFound, "coupon not found: %s", code)
	} else if err != nil {
		return nil, wrapPgErr(err)
	}
	return &c, nil
}
