// Package errs declares the failure categories shared by every settlement
// module. Engines wrap these sentinels with local context so callers can
// assert on the category with errors.Is while still seeing where the failure
// originated.
package errs

import "errors"

var (
	// ErrInsufficientFunds covers ledger, escrow, treasury and marketing
	// balance checks.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrUnauthorized covers wrong caller identity on admin, delegate,
	// owner or beneficiary gated operations.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidState covers operations attempted from a disallowed will
	// or provider state.
	ErrInvalidState = errors.New("invalid state")
	// ErrOutOfWindow covers time-gated operations attempted outside their
	// valid window.
	ErrOutOfWindow = errors.New("out of window")
	// ErrInvalidConfiguration covers bad admin input such as discount
	// percentages above 100%, mismatched list lengths or reversed windows.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrNotFound covers unknown will, provider and referral identifiers.
	ErrNotFound = errors.New("not found")
)

// Kind maps an error to the name of the category it wraps, or "internal" when
// it wraps none of them. The RPC layer uses the kind to pick an error code.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrOutOfWindow):
		return "out_of_window"
	case errors.Is(err, ErrInvalidConfiguration):
		return "invalid_configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
