package treasury

import (
	"encoding/hex"
	"math/big"

	"ewill/core/types"
)

const (
	EventTypeFunded   = "treasury.funded"
	EventTypeWithdrew = "treasury.withdrew"
)

// Funded is emitted on every platform-fee credit.
type Funded struct {
	Amount *big.Int
	WillID [32]byte
}

func (Funded) EventType() string { return EventTypeFunded }

// Event returns the canonical attribute payload.
func (e Funded) Event() *types.Event {
	return &types.Event{
		Type: EventTypeFunded,
		Attributes: map[string]string{
			"amount": formatAmount(e.Amount),
			"willId": hex.EncodeToString(e.WillID[:]),
		},
	}
}

// Withdrew is emitted when operational expenses are paid out.
type Withdrew struct {
	To     types.Address
	Amount *big.Int
}

func (Withdrew) EventType() string { return EventTypeWithdrew }

// Event returns the canonical attribute payload.
func (e Withdrew) Event() *types.Event {
	return &types.Event{
		Type: EventTypeWithdrew,
		Attributes: map[string]string{
			"to":     e.To.Hex(),
			"amount": formatAmount(e.Amount),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
