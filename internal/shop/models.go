package shop

import "time"

type Product struct {
	ID         string
	SKU        string
	Name       string
	Stock      int
	PriceCents int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type CartStatus string

const (
	CartOpen       CartStatus = "OPEN"
	CartCheckedOut CartStatus = "CHECKED_OUT"
)

type Cart struct {
	ID            string
	UserID        string
	Status        CartStatus
	CouponCode    string // empty when no coupon attached
	DiscountCents int
	SubtotalCents int
	Items         []CartItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TotalCents is what the customer pays: subtotal minus the attached discount.
func (c *Cart) TotalCents() int {
	t := c.SubtotalCents - c.DiscountCents
	if t < 0 {
		return 0
	}
	return t
}

type CartItem struct {
	CartID         string
	ProductID      string
	Qty            int
	PriceCents     int // unit price captured from products at add time
	LineTotalCents int
}

type Coupon struct {
	Code             string
	Percent          int // 15 = 15%; 0 means the fixed-amount model applies
	AmountCents      int
	MinPurchaseCents int
	MaxDiscountCents int
	ValidFrom        time.Time
	ValidUntil       time.Time
	UsageLimit       int
	UsedCount        int
	Active           bool
}

type Order struct {
	ID            string
	ExternalID    string
	UserID        string
	AddressID     string
	PaymentMethod string
	Status        Status // lihat status.go
	CouponCode    string
	SubtotalCents int
	DiscountCents int
	TotalCents    int
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderItem struct {
	OrderID        string
	ProductID      string
	Qty            int
	PriceCents     int
	LineTotalCents int
}

// StatusEntry is one row of the append-only order status history.
type StatusEntry struct {
	ID        string
	OrderID   string
	Status    Status
	Note      string
	CreatedAt time.Time
}
