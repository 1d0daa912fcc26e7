package marketing

import (
	"math/big"
	"strconv"

	"ewill/core/types"
)

const (
	EventTypeDiscountAdded   = "marketing.discount_added"
	EventTypeDiscountApplied = "marketing.discount_applied"
)

// DiscountAdded is emitted when the marketer registers or replaces a
// referrer's discount window.
type DiscountAdded struct {
	Referrer    types.Address
	Start       int64
	End         int64
	DiscountBps uint32
	RewardBps   uint32
}

func (DiscountAdded) EventType() string { return EventTypeDiscountAdded }

// Event returns the canonical attribute payload.
func (e DiscountAdded) Event() *types.Event {
	return &types.Event{
		Type: EventTypeDiscountAdded,
		Attributes: map[string]string{
			"referrer":    e.Referrer.Hex(),
			"start":       strconv.FormatInt(e.Start, 10),
			"end":         strconv.FormatInt(e.End, 10),
			"discountBps": strconv.FormatUint(uint64(e.DiscountBps), 10),
			"rewardBps":   strconv.FormatUint(uint64(e.RewardBps), 10),
		},
	}
}

// DiscountApplied is emitted when a charge consumes a discount.
type DiscountApplied struct {
	Referrer         types.Address
	Payer            types.Address
	PlatformDiscount *big.Int
	ProviderDiscount *big.Int
	Reward           *big.Int
}

func (DiscountApplied) EventType() string { return EventTypeDiscountApplied }

// Event returns the canonical attribute payload.
func (e DiscountApplied) Event() *types.Event {
	return &types.Event{
		Type: EventTypeDiscountApplied,
		Attributes: map[string]string{
			"referrer":         e.Referrer.Hex(),
			"payer":            e.Payer.Hex(),
			"platformDiscount": formatAmount(e.PlatformDiscount),
			"providerDiscount": formatAmount(e.ProviderDiscount),
			"reward":           formatAmount(e.Reward),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
