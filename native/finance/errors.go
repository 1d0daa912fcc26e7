package finance

import (
	"fmt"

	"ewill/core/errs"
)

var (
	ErrNilState           = fmt.Errorf("finance: state not configured")
	ErrNilLedger          = fmt.Errorf("finance: ledger not configured")
	ErrNilEscrow          = fmt.Errorf("finance: escrow not configured")
	ErrNilTreasury        = fmt.Errorf("finance: treasury not configured")
	ErrNotAdmin           = fmt.Errorf("finance: admin required: %w", errs.ErrUnauthorized)
	ErrRatesNotSet        = fmt.Errorf("finance: %w: exchange rates not set", errs.ErrInvalidConfiguration)
	ErrInvalidAmount      = fmt.Errorf("finance: %w: amount must be positive", errs.ErrInvalidConfiguration)
	ErrInvalidYears       = fmt.Errorf("finance: %w: years must be between 1 and %d", errs.ErrInvalidConfiguration, MaxYears)
	ErrFeeRange           = fmt.Errorf("finance: %w: fee above 100%%", errs.ErrInvalidConfiguration)
	ErrDiscountExceedsFee = fmt.Errorf("finance: %w: discount and reward exceed the platform fee", errs.ErrInvalidConfiguration)
	ErrInsufficientTokens = fmt.Errorf("finance: payer tokens: %w", errs.ErrInsufficientFunds)
	ErrInsufficientEther  = fmt.Errorf("finance: payer ether: %w", errs.ErrInsufficientFunds)
	ErrInsufficientFloat  = fmt.Errorf("finance: float: %w", errs.ErrInsufficientFunds)
)
