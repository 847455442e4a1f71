package shop

import "time"

// CheckCoupon validates eligibility at application time. Urutan cek menentukan
// reason code yang dipulangkan; cart dan usage counter tidak disentuh di sini.
func CheckCoupon(c *Coupon, subtotalCents int, now time.Time) *Error {
	if !c.Active {
		return Rule(CodeCouponNotActive, "coupon %s is not active", c.Code)
	}
	if now.Before(c.ValidFrom) {
		return Rule(CodeCouponNotStarted, "coupon %s is not valid before %s", c.Code, c.ValidFrom.Format(time.RFC3339))
	}
	if now.After(c.ValidUntil) {
		return Rule(CodeCouponExpired, "coupon %s expired at %s", c.Code, c.ValidUntil.Format(time.RFC3339))
	}
	if subtotalCents < c.MinPurchaseCents {
		return Rule(CodeCouponMinPurchase, "coupon %s requires a minimum purchase of %d cents", c.Code, c.MinPurchaseCents)
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return Rule(CodeCouponExhausted, "coupon %s usage limit reached", c.Code)
	}
	return nil
}

// CheckCouponAttached re-validates a coupon that is already attached to a cart
// after the cart changed. Usage limit tidak dicek lagi: pemakaian user ini sudah
// dihitung waktu apply.
func CheckCouponAttached(c *Coupon, subtotalCents int, now time.Time) *Error {
	if !c.Active {
		return Rule(CodeCouponNotActive, "coupon %s is not active", c.Code)
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return Rule(CodeCouponExpired, "coupon %s is outside its validity window", c.Code)
	}
	if subtotalCents < c.MinPurchaseCents {
		return Rule(CodeCouponMinPurchase, "coupon %s requires a minimum purchase of %d cents", c.Code, c.MinPurchaseCents)
	}
	return nil
}

// DiscountCents computes the discount against a subtotal. A coupon is one of two
// models: Percent > 0 means percentage capped at MaxDiscountCents (AmountCents on
// the row is ignored), otherwise the fixed amount applies. Either way the result
// never exceeds the subtotal, so order totals stay >= 0.
func (c *Coupon) DiscountCents(subtotalCents int) int {
	var d int
	if c.Percent > 0 {
		d = subtotalCents * c.Percent / 100
		if c.MaxDiscountCents > 0 && d > c.MaxDiscountCents {
			d = c.MaxDiscountCents
		}
	} else {
		d = c.AmountCents
	}
	if d > subtotalCents {
		d = subtotalCents
	}
	if d < 0 {
		d = 0
	}
	return d
}
