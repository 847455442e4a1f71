package shop

// Subtotal sums line totals. Harus selalu sama dengan SubtotalCents yang tersimpan.
func Subtotal(items []CartItem) int {
	var sum int
	for _, it := range items {
		sum += it.LineTotalCents
	}
	return sum
}

// MergeLine adds qty of a product into the item list: existing line bertambah,
// line baru dibuat dengan unit price saat ini. Returns the updated list.
func MergeLine(items []CartItem, cartID, productID string, qty, priceCents int) []CartItem {
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Qty += qty
			items[i].LineTotalCents = items[i].Qty * items[i].PriceCents
			return items
		}
	}
	return append(items, CartItem{
		CartID:         cartID,
		ProductID:      productID,
		Qty:            qty,
		PriceCents:     priceCents,
		LineTotalCents: qty * priceCents,
	})
}

// SetLineQty sets a line's quantity; qty 0 removes the line. Returns the updated
// list and whether the product was present.
func SetLineQty(items []CartItem, productID string, qty int) ([]CartItem, bool) {
	for i := range items {
		if items[i].ProductID != productID {
			continue
		}
		if qty == 0 {
			return append(items[:i], items[i+1:]...), true
		}
		items[i].Qty = qty
		items[i].LineTotalCents = qty * items[i].PriceCents
		return items, true
	}
	return items, false
}

// CheckStock verifies every line against available stock. Cocok dipakai di dalam
// transaksi checkout setelah baris product di-lock.
func CheckStock(items []CartItem, available map[string]int) []StockShortage {
	var short []StockShortage
	for _, it := range items {
		if have := available[it.ProductID]; have < it.Qty {
			short = append(short, StockShortage{ProductID: it.ProductID, Required: it.Qty, Available: have})
		}
	}
	return short
}
