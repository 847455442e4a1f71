package shop

import (
	"errors"
	"fmt"
)

type ErrKind int

const (
	// KindInvalid: input salah bentuk (qty <= 0, field kosong). Jangan retry.
	KindInvalid ErrKind = iota
	// KindRule: business rule violated (coupon expired, out of stock, illegal
	// transition). Jangan retry.
	KindRule
	// KindNotFound: cart/order/coupon/product tidak ada.
	KindNotFound
	// KindConflict: lost a row-lock race or serialization failure; caller may
	// retry once.
	KindConflict
)

// Reason codes, stabil untuk client branching.
const (
	CodeCouponNotFound      = "COUPON_NOT_FOUND"
	CodeCouponNotActive     = "COUPON_NOT_ACTIVE"
	CodeCouponNotStarted    = "COUPON_NOT_STARTED"
	CodeCouponExpired       = "COUPON_EXPIRED"
	CodeCouponMinPurchase   = "COUPON_MIN_PURCHASE"
	CodeCouponExhausted     = "COUPON_EXHAUSTED"
	CodeCartNotFound        = "CART_NOT_FOUND"
	CodeCartEmpty           = "CART_EMPTY"
	CodeCartClosed          = "CART_CLOSED"
	CodeProductNotFound     = "PRODUCT_NOT_FOUND"
	CodeOrderNotFound       = "ORDER_NOT_FOUND"
	CodeOutOfStock          = "OUT_OF_STOCK"
	CodeIllegalTransition   = "ILLEGAL_TRANSITION"
	CodeUnknownStatus       = "UNKNOWN_STATUS"
	CodeInvalidQty          = "INVALID_QTY"
	CodeMissingField        = "MISSING_FIELD"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// Error is the typed result crossing the core boundary. Handlers map Kind to an
// HTTP status and pass Code through so clients can branch deterministically.
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	// Details carries per-line stock shortages on checkout rejection.
	Details []StockShortage
}

type StockShortage struct {
	ProductID string `json:"product_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func Invalid(code, format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Rule(code, format string, args ...any) *Error {
	return &Error{Kind: KindRule, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(code, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: CodeConcurrencyConflict, Message: fmt.Sprintf(format, args...)}
}

// AsError unwraps err into *Error kalau memang typed error dari package ini.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
