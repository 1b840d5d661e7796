package orders

import "errors"

var (
	ErrNotFound             = errors.New("order not found")
	ErrEmptyCart            = errors.New("no items to order")
	ErrInvalidQty           = errors.New("invalid quantity")
	ErrProductUnavailable   = errors.New("product unavailable")
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
	ErrInvalidTransition    = errors.New("invalid status transition")
)
