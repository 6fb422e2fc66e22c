package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnavailable      = errors.New("content unavailable")
	ErrPaymentFailed    = errors.New("payment capture failed")
	ErrPaymentCancelled = errors.New("payment cancelled")
	ErrLocked           = errors.New("resource locked")
)
