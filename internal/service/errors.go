package service

import "errors"

// Order creation errors. All are caller-correctable.
var (
	// ErrMerchantNotFound is returned when the order references an unknown merchant
	ErrMerchantNotFound = errors.New("merchant not found")

	// ErrProductNotFound is returned when an ITEM order references an unknown product
	ErrProductNotFound = errors.New("product not found")

	// ErrProductMerchantMismatch is returned when the product belongs to another merchant
	ErrProductMerchantMismatch = errors.New("product does not belong to this merchant")

	// ErrCreditDisabled is returned when the merchant does not accept store credit gifts
	ErrCreditDisabled = errors.New("store credit is not enabled for this merchant")

	// ErrInvalidAmount is returned for a missing, zero or negative amount
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrAmountOutOfRange is returned when a credit amount is outside the merchant's bounds
	ErrAmountOutOfRange = errors.New("credit amount is outside the allowed range")

	// ErrProductRequired is returned when an ITEM order has no product
	ErrProductRequired = errors.New("product id required for item gifts")

	// ErrInvalidRequest is returned when request data is nil or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrPaymentFailed is returned when the payment collaborator declines the purchase
	ErrPaymentFailed = errors.New("payment failed")
)

// Redemption errors. None should be retried without new input.
var (
	// ErrNotFound is returned for absent orders, token mismatches and cross-merchant lookups alike
	ErrNotFound = errors.New("gift not found")

	// ErrWrongGiftType is returned when an item redemption targets a credit order or vice versa
	ErrWrongGiftType = errors.New("wrong gift type for this redemption")

	// ErrAlreadyFinalized is returned when the order is already redeemed or canceled
	ErrAlreadyFinalized = errors.New("gift already finalized")

	// ErrExpired is returned when the order's expiry has passed
	ErrExpired = errors.New("gift expired")

	// ErrNoBalance is returned when a credit order has nothing left to deduct
	ErrNoBalance = errors.New("no remaining balance")

	// ErrInsufficientBalance is returned when the deduction exceeds the remaining balance
	ErrInsufficientBalance = errors.New("amount exceeds remaining balance")

	// ErrInvalidTransition is returned for a status change the lifecycle does not allow
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Storage and generation errors.
var (
	// ErrDuplicateKey is returned by stores when an id, token or redeem code already exists
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrCodeSpaceExhausted is returned when code generation keeps colliding; it indicates misconfiguration
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique redeem code")
)

// Merchant authentication errors.
var (
	// ErrInvalidCredentials is returned for unknown emails, inactive users and wrong passwords alike
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized is returned when a bearer token is missing, invalid or revoked
	ErrUnauthorized = errors.New("unauthorized")
)
