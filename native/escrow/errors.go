package escrow

import (
	"fmt"

	"ewill/core/errs"
)

var (
	ErrNilState          = fmt.Errorf("escrow: state not configured")
	ErrNilLedger         = fmt.Errorf("escrow: ledger not configured")
	ErrProviderNotFound  = fmt.Errorf("escrow: provider: %w", errs.ErrNotFound)
	ErrAlreadyRegistered = fmt.Errorf("escrow: already registered: %w", errs.ErrInvalidState)
	ErrNotAdmin          = fmt.Errorf("escrow: admin required: %w", errs.ErrUnauthorized)
	ErrProviderBanned    = fmt.Errorf("escrow: provider banned: %w", errs.ErrInvalidState)
	ErrProviderNotBanned = fmt.Errorf("escrow: provider not banned: %w", errs.ErrInvalidState)
	ErrBadTargetState    = fmt.Errorf("escrow: unsupported target state: %w", errs.ErrInvalidConfiguration)
	ErrStateGate         = fmt.Errorf("escrow: disallowed state transition: %w", errs.ErrInvalidState)
	ErrInsufficientFund  = fmt.Errorf("escrow: %w", errs.ErrInsufficientFunds)
	ErrInvalidAmount     = fmt.Errorf("escrow: %w: amount must be positive", errs.ErrInvalidConfiguration)
	ErrZeroDelegate      = fmt.Errorf("escrow: %w: delegate must be set", errs.ErrInvalidConfiguration)
)
