package platform

import (
	"fmt"

	"ewill/core/errs"
)

var (
	// ErrNilState is returned when the engine is used before state is wired.
	ErrNilState = fmt.Errorf("platform: state not configured: %w", errs.ErrInvalidConfiguration)
	// ErrNilBilling is returned when fee orchestration is not wired.
	ErrNilBilling = fmt.Errorf("platform: billing not configured: %w", errs.ErrInvalidConfiguration)
	// ErrNilDirectory is returned when the provider directory is not wired.
	ErrNilDirectory = fmt.Errorf("platform: provider directory not configured: %w", errs.ErrInvalidConfiguration)
	// ErrWillNotFound is returned when the requested will does not exist.
	ErrWillNotFound = fmt.Errorf("platform: will not found: %w", errs.ErrNotFound)
	// ErrWillExists is returned when creating a will under an identifier that
	// is already in use.
	ErrWillExists = fmt.Errorf("platform: will already exists: %w", errs.ErrInvalidState)
	// ErrProviderInvalid is returned when the chosen provider is not eligible
	// to service wills.
	ErrProviderInvalid = fmt.Errorf("platform: provider not valid: %w", errs.ErrInvalidState)
	// ErrInvalidYears is returned when the requested coverage term is zero or
	// exceeds MaxYears.
	ErrInvalidYears = fmt.Errorf("platform: coverage term must be between 1 and %d years: %w", MaxYears, errs.ErrInvalidConfiguration)
	// ErrNotOwner is returned when a caller other than the will owner invokes
	// an owner-only operation.
	ErrNotOwner = fmt.Errorf("platform: caller is not the will owner: %w", errs.ErrUnauthorized)
	// ErrNotDelegate is returned when a caller is not the servicing
	// provider's delegate.
	ErrNotDelegate = fmt.Errorf("platform: caller is not the provider delegate: %w", errs.ErrUnauthorized)
	// ErrNotBeneficiary is returned when the claimant does not match the
	// beneficiary commitment.
	ErrNotBeneficiary = fmt.Errorf("platform: caller does not match beneficiary commitment: %w", errs.ErrUnauthorized)
	// ErrBadState is returned when the will is not in a state that permits
	// the requested transition.
	ErrBadState = fmt.Errorf("platform: operation not permitted in current will state: %w", errs.ErrInvalidState)
	// ErrRefreshTooSoon is returned when a refresh is attempted before a full
	// period has elapsed since the previous one.
	ErrRefreshTooSoon = fmt.Errorf("platform: refresh period has not elapsed: %w", errs.ErrOutOfWindow)
	// ErrOutsideProlongWindow is returned when prolongation is attempted
	// outside the final period of coverage.
	ErrOutsideProlongWindow = fmt.Errorf("platform: outside prolongation window: %w", errs.ErrOutOfWindow)
	// ErrNotExpired is returned when rejection is attempted while coverage is
	// still active.
	ErrNotExpired = fmt.Errorf("platform: coverage has not expired: %w", errs.ErrOutOfWindow)
	// ErrExpired is returned when an operation requires active coverage but
	// the will has lapsed.
	ErrExpired = fmt.Errorf("platform: coverage has expired: %w", errs.ErrOutOfWindow)
)
