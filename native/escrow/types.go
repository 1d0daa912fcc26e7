package escrow

import (
	"fmt"
	"math/big"

	"ewill/core/types"
)

// ProviderState represents the lifecycle states of a registered provider.
type ProviderState uint8

const (
	ProviderNone ProviderState = iota
	ProviderPending
	ProviderWhitelisted
	ProviderActivated
	ProviderBanned
)

// Valid reports whether the state value is within the supported range.
func (s ProviderState) Valid() bool {
	switch s {
	case ProviderNone, ProviderPending, ProviderWhitelisted, ProviderActivated, ProviderBanned:
		return true
	default:
		return false
	}
}

// String renders the state for event attributes and logs.
func (s ProviderState) String() string {
	switch s {
	case ProviderNone:
		return "none"
	case ProviderPending:
		return "pending"
	case ProviderWhitelisted:
		return "whitelisted"
	case ProviderActivated:
		return "activated"
	case ProviderBanned:
		return "banned"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Provider captures the directory record and bonded-fund balance of a single
// service operator. Fund tracks the provider's share of the pooled vault
// custody; it only grows through topups and vested will fees.
type Provider struct {
	Address      types.Address `json:"address"`
	AnnualFee    uint64        `json:"annualFee"`
	Fund         *big.Int      `json:"fund"`
	InfoID       uint64        `json:"infoId"`
	Delegate     types.Address `json:"delegate"`
	State        ProviderState `json:"state"`
	RegisteredAt int64         `json:"registeredAt"`
}

// Clone returns a deep copy so callers can safely mutate the copy without
// affecting the stored instance.
func (p *Provider) Clone() *Provider {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Fund != nil {
		clone.Fund = new(big.Int).Set(p.Fund)
	} else {
		clone.Fund = big.NewInt(0)
	}
	return &clone
}

// SanitizeProvider validates and normalises a provider record, returning a
// cloned instance with a non-nil fund balance. The original is not mutated.
func SanitizeProvider(p *Provider) (*Provider, error) {
	if p == nil {
		return nil, fmt.Errorf("escrow: nil provider")
	}
	clone := p.Clone()
	if clone.Fund.Sign() < 0 {
		return nil, fmt.Errorf("escrow: provider fund must be non-negative")
	}
	if !clone.State.Valid() {
		return nil, fmt.Errorf("escrow: invalid provider state: %d", clone.State)
	}
	return clone, nil
}
