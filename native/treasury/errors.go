package treasury

import (
	"fmt"

	"ewill/core/errs"
)

var (
	ErrNilState       = fmt.Errorf("treasury: state not configured")
	ErrNilLedger      = fmt.Errorf("treasury: ledger not configured")
	ErrNotAdmin       = fmt.Errorf("treasury: admin required: %w", errs.ErrUnauthorized)
	ErrInvalidAmount  = fmt.Errorf("treasury: %w: amount must be positive", errs.ErrInvalidConfiguration)
	ErrHalfBalanceCap = fmt.Errorf("treasury: withdrawal exceeds half of the balance: %w", errs.ErrInsufficientFunds)
	ErrLockedFund     = fmt.Errorf("treasury: withdrawal breaks the minimum locked fund: %w", errs.ErrInsufficientFunds)
	ErrTooFrequent    = fmt.Errorf("treasury: withdrawal window not elapsed: %w", errs.ErrOutOfWindow)
)
