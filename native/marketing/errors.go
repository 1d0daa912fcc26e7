package marketing

import (
	"fmt"

	"ewill/core/errs"
)

var (
	ErrNilState           = fmt.Errorf("marketing: state not configured")
	ErrNilLedger          = fmt.Errorf("marketing: ledger not configured")
	ErrNotMarketer        = fmt.Errorf("marketing: marketer required: %w", errs.ErrUnauthorized)
	ErrWindowInverted     = fmt.Errorf("marketing: %w: start must precede end", errs.ErrInvalidConfiguration)
	ErrBpsRange           = fmt.Errorf("marketing: %w: percentage above 100%%", errs.ErrInvalidConfiguration)
	ErrListMismatch       = fmt.Errorf("marketing: %w: provider and discount lists must pair up", errs.ErrInvalidConfiguration)
	ErrNoDefaultEntry     = fmt.Errorf("marketing: %w: default provider entry required", errs.ErrInvalidConfiguration)
	ErrZeroReferrer       = fmt.Errorf("marketing: %w: referrer must be set", errs.ErrInvalidConfiguration)
	ErrInsufficientBudget = fmt.Errorf("marketing: budget: %w", errs.ErrInsufficientFunds)
)
