package finance

import (
	"encoding/hex"
	"math/big"

	"ewill/core/types"
)

const (
	EventTypeCharged   = "finance.charged"
	EventTypeRefunded  = "finance.refunded"
	EventTypeRewarded  = "finance.rewarded"
	EventTypeExchanged = "finance.exchanged"
)

// Charged is emitted after a fully settled charge with the final breakdown of
// every leg.
type Charged struct {
	Payer         types.Address
	Provider      types.Address
	Referrer      types.Address
	Gross         *big.Int
	PlatformShare *big.Int
	ProviderShare *big.Int
	Discount      *big.Int
	Reward        *big.Int
	WillID        [32]byte
}

func (Charged) EventType() string { return EventTypeCharged }

// Event returns the canonical attribute payload.
func (e Charged) Event() *types.Event {
	attrs := map[string]string{
		"payer":         e.Payer.Hex(),
		"provider":      e.Provider.Hex(),
		"gross":         formatAmount(e.Gross),
		"platformShare": formatAmount(e.PlatformShare),
		"providerShare": formatAmount(e.ProviderShare),
		"discount":      formatAmount(e.Discount),
		"reward":        formatAmount(e.Reward),
		"willId":        hex.EncodeToString(e.WillID[:]),
	}
	if !e.Referrer.IsZero() {
		attrs["referrer"] = e.Referrer.Hex()
	}
	return &types.Event{Type: EventTypeCharged, Attributes: attrs}
}

// Refunded is emitted when a provider-fee portion is reversed to a recipient.
type Refunded struct {
	Recipient types.Address
	Amount    *big.Int
	WillID    [32]byte
}

func (Refunded) EventType() string { return EventTypeRefunded }

// Event returns the canonical attribute payload.
func (e Refunded) Event() *types.Event {
	return &types.Event{
		Type: EventTypeRefunded,
		Attributes: map[string]string{
			"recipient": e.Recipient.Hex(),
			"amount":    formatAmount(e.Amount),
			"willId":    hex.EncodeToString(e.WillID[:]),
		},
	}
}

// Rewarded is emitted when a provider's escrow fund is credited outside the
// fee-charge path.
type Rewarded struct {
	Provider types.Address
	Amount   *big.Int
	WillID   [32]byte
}

func (Rewarded) EventType() string { return EventTypeRewarded }

// Event returns the canonical attribute payload.
func (e Rewarded) Event() *types.Event {
	return &types.Event{
		Type: EventTypeRewarded,
		Attributes: map[string]string{
			"provider": e.Provider.Hex(),
			"amount":   formatAmount(e.Amount),
			"willId":   hex.EncodeToString(e.WillID[:]),
		},
	}
}

// Exchanged is emitted when tokens are converted to native currency.
type Exchanged struct {
	Holder types.Address
	Tokens *big.Int
	Ethers *big.Int
}

func (Exchanged) EventType() string { return EventTypeExchanged }

// Event returns the canonical attribute payload.
func (e Exchanged) Event() *types.Event {
	return &types.Event{
		Type: EventTypeExchanged,
		Attributes: map[string]string{
			"holder": e.Holder.Hex(),
			"tokens": formatAmount(e.Tokens),
			"ethers": formatAmount(e.Ethers),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
