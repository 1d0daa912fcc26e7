package platform

import (
	"encoding/binary"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"ewill/core/types"
)

// Lifecycle time constants. Coverage is prepaid in whole years and vests to
// the provider in 30-day periods.
const (
	OneYear        = 365 * 24 * 3600
	PeriodLength   = 30 * 24 * 3600
	PeriodsPerYear = 12
)

// MaxYears caps a single prepaid term. The bound keeps cent fee products
// inside uint64 and expiry timestamps inside int64 no matter what a caller
// submits over the wire.
const MaxYears = 100

// WillState represents the lifecycle states of a will record.
type WillState uint8

const (
	WillNone WillState = iota
	WillCreated
	WillActivated
	WillPending
	WillClaimed
	WillRejected
	WillDeleted
)

// Valid reports whether the state value is within the supported range.
func (s WillState) Valid() bool { return s <= WillDeleted }

// Terminal reports whether no further mutation is permitted from the state.
func (s WillState) Terminal() bool {
	switch s {
	case WillClaimed, WillRejected, WillDeleted:
		return true
	default:
		return false
	}
}

// String renders the state for event attributes and logs.
func (s WillState) String() string {
	switch s {
	case WillNone:
		return "none"
	case WillCreated:
		return "created"
	case WillActivated:
		return "activated"
	case WillPending:
		return "pending"
	case WillClaimed:
		return "claimed"
	case WillRejected:
		return "rejected"
	case WillDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Will is a deferred-transfer instruction record owned by a user, serviced by
// a provider and releasable to the beneficiary committed to in
// BeneficiaryHash.
type Will struct {
	ID              [32]byte      `json:"id"`
	Owner           types.Address `json:"owner"`
	Provider        types.Address `json:"provider"`
	Beneficiary     types.Address `json:"beneficiary"`
	BeneficiaryHash [32]byte      `json:"beneficiaryHash"`
	Description     string        `json:"description"`
	InfoID          uint64        `json:"infoId"`
	CreatedAt       int64         `json:"createdAt"`
	ValidTill       int64         `json:"validTill"`
	RefreshedAt     int64         `json:"refreshedAt"`
	YearsPaid       uint64        `json:"yearsPaid"`
	AutoRenew       bool          `json:"autoRenew"`
	Referrer        types.Address `json:"referrer"`
	State           WillState     `json:"state"`
}

// Clone returns a copy so callers can safely mutate the result without
// affecting the stored instance.
func (w *Will) Clone() *Will {
	if w == nil {
		return nil
	}
	clone := *w
	return &clone
}

// WillID derives the deterministic will identifier from the provider identity
// and a caller-supplied nonce. Binding the provider into the derivation
// prevents collisions across providers while letting users pick their nonce.
func WillID(provider types.Address, nonce uint64) [32]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	var id [32]byte
	copy(id[:], ethcrypto.Keccak256(provider[:], buf[:]))
	return id
}

// BeneficiaryHash commits to a beneficiary identity without revealing it.
func BeneficiaryHash(beneficiary types.Address) [32]byte {
	var h [32]byte
	copy(h[:], ethcrypto.Keccak256(beneficiary[:]))
	return h
}
