package service

import "errors"

var (
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition  = errors.New("illegal transition of order status")
	ErrOutOfStock         = errors.New("product is out of stock")
	ErrRegionUnavailable  = errors.New("product is not available in this region")
	ErrCheckoutInProgress = errors.New("checkout with this idempotency key is already in progress")
	ErrStatusChanged      = errors.New("order status changed concurrently")
	ErrMissingCartKey     = errors.New("cart key is required")
	ErrUnknownStatus      = errors.New("unknown order status")
)
