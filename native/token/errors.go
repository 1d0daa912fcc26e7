package token

import (
	"fmt"

	"ewill/core/errs"
)

var (
	ErrNilState            = fmt.Errorf("token: state not configured")
	ErrInsufficientBalance = fmt.Errorf("token: %w", errs.ErrInsufficientFunds)
	ErrNotOwner            = fmt.Errorf("token: owner required: %w", errs.ErrUnauthorized)
	ErrNotMerchant         = fmt.Errorf("token: merchant required: %w", errs.ErrUnauthorized)
	ErrAlreadyIssued       = fmt.Errorf("token: supply already issued: %w", errs.ErrInvalidState)
	ErrInvalidAmount       = fmt.Errorf("token: %w: amount must be positive", errs.ErrInvalidConfiguration)
)
