package shop

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductRepo struct{ DB *pgxpool.Pool }

func (r *ProductRepo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, sku, name, stock, price_cents, created_at, updated_at
		FROM products ORDER BY sku`)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Stock, &p.PriceCents, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, wrapPgErr(err)
		}
		out = append(out, p)
	}
	return out, wrapPgErr(rows.Err())
}

// Restock: penambahan stok administratif. Pengurangan stok cuma lewat checkout.
func (r *ProductRepo) Restock(ctx context.Context, productID string, qty int) (*Product, error) {
	if qty <= 0 {
		return nil, Invalid(CodeInvalidQty, "restock qty must be positive, got %d", qty)
	}
	ct, err := r.DB.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at=now() WHERE id=$1`, productID, qty)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	if ct.RowsAffected() == 0 {
		return nil, NotFound(CodeProductNotFound, "product not found: %s", productID)
	}

	var p Product
	err = r.DB.QueryRow(ctx, `
		SELECT id, sku, name, stock, price_cents, created_at, updated_at
		FROM products WHERE id=$1`, productID).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Stock, &p.PriceCents, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	return &p, nil
}
