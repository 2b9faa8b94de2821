// Package apperror defines the typed errors returned by the cart engine.
package apperror

import (
	"errors"
	"fmt"
)

// Kind groups error codes into handling classes
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindInactive            Kind = "inactive"
	KindInvalidInput        Kind = "invalid_input"
	KindOutOfStock          Kind = "out_of_stock"
	KindConstraintViolation Kind = "constraint_violation"
	KindUnauthorized        Kind = "unauthorized"
)

// Error is a domain error with a stable machine-readable code
type Error struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// New creates a new domain error
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Is matches on code so that detailed copies still satisfy errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy carrying a more specific message
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// As extracts the *Error from err's chain
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}

var (
	ErrProductNotFound        = New(KindNotFound, "PRODUCT_NOT_FOUND", "product not found")
	ErrProductInactive        = New(KindInactive, "PRODUCT_INACTIVE", "this product is no longer available")
	ErrVariantNotFound        = New(KindNotFound, "VARIANT_NOT_FOUND", "product variant not found")
	ErrVariantProductMismatch = New(KindInvalidInput, "VARIANT_PRODUCT_MISMATCH", "variant does not belong to the product")
	ErrVariantInactive        = New(KindInactive, "VARIANT_INACTIVE", "this product option is no longer available")
	ErrVariantOptionsInvalid  = New(KindInvalidInput, "VARIANT_OPTIONS_INVALID", "variant options do not match the product's option axes")
	ErrBundleNotFound         = New(KindNotFound, "BUNDLE_NOT_FOUND", "bundle not found")
	ErrBundleInactive         = New(KindInactive, "BUNDLE_INACTIVE", "this bundle is no longer available")
	ErrBundleMalformed        = New(KindInvalidInput, "BUNDLE_MALFORMED", "bundle definition is malformed")
	ErrInvalidQuantity        = New(KindInvalidInput, "INVALID_QUANTITY", "quantity must be at least 1")
	ErrOutOfStock             = New(KindOutOfStock, "OUT_OF_STOCK", "insufficient stock")
	ErrCartItemNotFound       = New(KindNotFound, "CART_ITEM_NOT_FOUND", "cart item not found")
	ErrBatchTooLarge          = New(KindInvalidInput, "BATCH_TOO_LARGE", "too many items in one request")
	ErrBundleSlugTaken        = New(KindConstraintViolation, "BUNDLE_SLUG_TAKEN", "another bundle already uses this slug")
	ErrFavoriteConflict       = New(KindConstraintViolation, "FAVORITE_CONFLICT", "favorite was modified concurrently")
	ErrUnauthorized           = New(KindUnauthorized, "UNAUTHORIZED", "authentication required")
)
