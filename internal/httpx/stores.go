package httpx

import (
	"context"

	"github.com/ariefcatur/go-shop-checkout.git/internal/shop"
	kafkago "github.com/segmentio/kafka-go"
)

// Store interfaces, dipenuhi oleh repo pgx di internal/shop. Handler cuma butuh
// method yang dipakainya; test pakai fake in-memory.

type CartStore interface {
	EnsureCart(ctx context.Context, userID string) (*shop.Cart, error)
	GetCart(ctx context.Context, cartID string) (*shop.Cart, error)
	AddItem(ctx context.Context, cartID, productID string, qty int) (*shop.Cart, error)
	SetItemQty(ctx context.Context, cartID, productID string, qty int) (*shop.Cart, error)
	RemoveItem(ctx context.Context, cartID, productID string) (*shop.Cart, error)
}

type CouponStore interface {
	ApplyCoupon(ctx context.Context, cartID, code string) (*shop.Cart, error)
	RemoveCoupon(ctx context.Context, cartID string) (*shop.Cart, error)
}

type CheckoutStore interface {
	Checkout(ctx context.Context, in shop.CheckoutInput) (*shop.Order, bool, error)
}

type OrderStore interface {
	GetOrder(ctx context.Context, orderID string) (*shop.Order, error)
	GetHistory(ctx context.Context, orderID string) ([]shop.StatusEntry, error)
	Transition(ctx context.Context, orderID string, to shop.Status, note string) (*shop.Order, []shop.ItemQty, error)
}

type ProductStore interface {
	ListProducts(ctx context.Context) ([]shop.Product, error)
	Restock(ctx context.Context, productID string, qty int) (*shop.Product, error)
}

// Publisher is what handlers need from the kafka producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}
