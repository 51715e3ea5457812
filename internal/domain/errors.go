package domain

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrorKind classifies a domain failure so callers can decide how to react.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindPolicy
	KindConcurrency
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPolicy:
		return "policy"
	case KindConcurrency:
		return "concurrency"
	default:
		return "unknown"
	}
}

// Error is the single error type surfaced by the cart, offer and order services.
// Two errors are considered equal by errors.Is when their codes match, so detailed
// copies made with Wrap still match the exported sentinels.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Retryable reports whether the whole operation may be retried once from scratch.
func (e *Error) Retryable() bool {
	return e.Kind == KindConcurrency
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrInvalidQuantity = newError(KindValidation, "INVALID_QUANTITY", "quantity must be at least 1")
	ErrInvalidOffer    = newError(KindValidation, "INVALID_OFFER", "offer is invalid")
	ErrInvalidStatus   = newError(KindValidation, "INVALID_STATUS", "unknown order status")

	ErrProductNotFound  = newError(KindNotFound, "PRODUCT_NOT_FOUND", "product not found")
	ErrOfferNotFound    = newError(KindNotFound, "OFFER_NOT_FOUND", "offer not found")
	ErrOrderNotFound    = newError(KindNotFound, "ORDER_NOT_FOUND", "order not found")
	ErrCartLineNotFound = newError(KindNotFound, "CART_LINE_NOT_FOUND", "product is not in the cart")

	ErrOutOfStock         = newError(KindPolicy, "OUT_OF_STOCK", "requested quantity exceeds available stock")
	ErrOfferNotActive     = newError(KindPolicy, "OFFER_NOT_ACTIVE", "offer is not active")
	ErrCategoryMismatch   = newError(KindPolicy, "CATEGORY_MISMATCH", "offer does not apply to the product category")
	ErrMinCartNotMet      = newError(KindPolicy, "MIN_CART_NOT_MET", "category subtotal is below the offer minimum")
	ErrEmptyCart          = newError(KindPolicy, "EMPTY_CART", "cart is empty")
	ErrProductUnavailable = newError(KindPolicy, "PRODUCT_UNAVAILABLE", "product is no longer available")
	ErrInvalidTransition  = newError(KindPolicy, "INVALID_TRANSITION", "order status transition is not allowed")

	ErrLockContention = newError(KindConcurrency, "LOCK_CONTENTION", "resource is busy, retry the operation")
)

// Wrap returns a copy of sentinel carrying extra detail in its message.
func Wrap(sentinel *Error, format string, args ...any) *Error {
	return &Error{
		Kind:    sentinel.Kind,
		Code:    sentinel.Code,
		Message: sentinel.Message + ": " + fmt.Sprintf(format, args...),
	}
}

// WrapCause returns a copy of sentinel whose Unwrap yields cause.
func WrapCause(sentinel *Error, cause error) *Error {
	return &Error{
		Kind:    sentinel.Kind,
		Code:    sentinel.Code,
		Message: sentinel.Message,
		Err:     cause,
	}
}

// AsError extracts a domain error from err, if there is one.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
