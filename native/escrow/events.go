package escrow

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"ewill/core/types"
)

const (
	EventTypeRegistered      = "escrow.registered"
	EventTypeActivated       = "escrow.activated"
	EventTypeBanned          = "escrow.banned"
	EventTypeFunded          = "escrow.funded"
	EventTypeRefunded        = "escrow.refunded"
	EventTypeToppedUp        = "escrow.topped_up"
	EventTypeWithdrew        = "escrow.withdrew"
	EventTypeDelegateUpdated = "escrow.delegate_updated"
)

// Registered is emitted when a provider creates a pending directory record.
type Registered struct {
	Provider  types.Address
	AnnualFee uint64
	Delegate  types.Address
}

func (Registered) EventType() string { return EventTypeRegistered }

// Event returns the canonical attribute payload.
func (e Registered) Event() *types.Event {
	return &types.Event{
		Type: EventTypeRegistered,
		Attributes: map[string]string{
			"provider":  e.Provider.Hex(),
			"annualFee": strconv.FormatUint(e.AnnualFee, 10),
			"delegate":  e.Delegate.Hex(),
		},
	}
}

// Activated is emitted on admin-driven state changes: activation,
// whitelisting and unban.
type Activated struct {
	Provider types.Address
	NewState ProviderState
}

func (Activated) EventType() string { return EventTypeActivated }

// Event returns the canonical attribute payload.
func (e Activated) Event() *types.Event {
	return &types.Event{
		Type: EventTypeActivated,
		Attributes: map[string]string{
			"provider": e.Provider.Hex(),
			"newState": e.NewState.String(),
		},
	}
}

// Banned is emitted when an admin bans a provider.
type Banned struct {
	Provider types.Address
}

func (Banned) EventType() string { return EventTypeBanned }

// Event returns the canonical attribute payload.
func (e Banned) Event() *types.Event {
	return &types.Event{
		Type:       EventTypeBanned,
		Attributes: map[string]string{"provider": e.Provider.Hex()},
	}
}

// FundMoved is the shared payload for fund credits, refunds, topups and
// withdrawals. WillID is all-zero for moves unrelated to a will, such as a
// bond topup.
type FundMoved struct {
	Type     string
	Provider types.Address
	Amount   *big.Int
	WillID   [32]byte
}

func (e FundMoved) EventType() string { return e.Type }

// Event returns the canonical attribute payload.
func (e FundMoved) Event() *types.Event {
	amount := "0"
	if e.Amount != nil {
		amount = e.Amount.String()
	}
	return &types.Event{
		Type: e.Type,
		Attributes: map[string]string{
			"provider": e.Provider.Hex(),
			"amount":   amount,
			"willId":   hex.EncodeToString(e.WillID[:]),
		},
	}
}

// DelegateUpdated is emitted when a provider rotates its delegate identity.
type DelegateUpdated struct {
	Provider types.Address
	Delegate types.Address
}

func (DelegateUpdated) EventType() string { return EventTypeDelegateUpdated }

// Event returns the canonical attribute payload.
func (e DelegateUpdated) Event() *types.Event {
	return &types.Event{
		Type: EventTypeDelegateUpdated,
		Attributes: map[string]string{
			"provider": e.Provider.Hex(),
			"delegate": e.Delegate.Hex(),
		},
	}
}
