package token

import (
	"math/big"

	"ewill/core/types"
)

const (
	EventTypeIssued          = "token.issued"
	EventTypeTransferred     = "token.transferred"
	EventTypeMerchantAdded   = "token.merchant_added"
	EventTypeMerchantRemoved = "token.merchant_removed"
)

// Transferred is emitted for every successful balance move, including
// merchant-initiated collections, so the full flow of value stays auditable.
type Transferred struct {
	From   types.Address
	To     types.Address
	Amount *big.Int
}

func (Transferred) EventType() string { return EventTypeTransferred }

// Event returns the canonical attribute payload.
func (e Transferred) Event() *types.Event {
	return &types.Event{
		Type: EventTypeTransferred,
		Attributes: map[string]string{
			"from":   e.From.Hex(),
			"to":     e.To.Hex(),
			"amount": formatAmount(e.Amount),
		},
	}
}

// Issued is emitted once when the initial supply is granted to the owner.
type Issued struct {
	To     types.Address
	Amount *big.Int
}

func (Issued) EventType() string { return EventTypeIssued }

// Event returns the canonical attribute payload.
func (e Issued) Event() *types.Event {
	return &types.Event{
		Type: EventTypeIssued,
		Attributes: map[string]string{
			"to":     e.To.Hex(),
			"amount": formatAmount(e.Amount),
		},
	}
}

// MerchantUpdated is emitted when the owner mutates the merchant allow-list.
type MerchantUpdated struct {
	Merchant types.Address
	Added    bool
}

func (e MerchantUpdated) EventType() string {
	if e.Added {
		return EventTypeMerchantAdded
	}
	return EventTypeMerchantRemoved
}

// Event returns the canonical attribute payload.
func (e MerchantUpdated) Event() *types.Event {
	return &types.Event{
		Type:       e.EventType(),
		Attributes: map[string]string{"merchant": e.Merchant.Hex()},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
