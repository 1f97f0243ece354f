package domain

import "errors"

var (
	// ErrInvalidAmount is returned when a trade amount is not finite-positive.
	ErrInvalidAmount = errors.New("amount must be a finite positive number")
	// ErrInsufficientBalance is returned when the source balance is too low.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrRefreshFailed is returned when the rate simulation step fails.
	ErrRefreshFailed = errors.New("rate refresh failed")

	ErrInvalidKind        = errors.New("invalid trade kind")
	ErrUnknownCurrency    = errors.New("unknown currency")
	ErrSameCurrency       = errors.New("source and target currency are the same")
	ErrFeeExceedsProceeds = errors.New("fee exceeds trade proceeds")
	ErrNotFound           = errors.New("not found")
)
