package marketing

import (
	"math/big"

	"ewill/core/types"
)

// PercentMultiplier is the per-mille scale used for discount and reward
// percentages: 1000 is 100%.
const PercentMultiplier = 1000

// UnlimitedUses marks a discount without a use counter.
const UnlimitedUses = int64(-1)

// DefaultProvider is the sentinel key holding the discount applied to any
// provider without a specific override.
var DefaultProvider = types.ZeroAddress

// Discount is the referral record for a single referrer: a time-boxed
// campaign granting a platform-fee discount, per-provider provider-fee
// discounts and a referrer reward.
type Discount struct {
	Referrer          types.Address            `json:"referrer"`
	Start             int64                    `json:"start"`
	End               int64                    `json:"end"`
	DiscountBps       uint32                   `json:"discountBps"`
	RewardBps         uint32                   `json:"rewardBps"`
	ProviderDiscounts map[types.Address]uint32 `json:"providerDiscounts"`
	RemainingUses     int64                    `json:"remainingUses"`
}

// Clone returns a deep copy so callers can safely mutate the copy without
// affecting the stored instance.
func (d *Discount) Clone() *Discount {
	if d == nil {
		return nil
	}
	clone := *d
	clone.ProviderDiscounts = make(map[types.Address]uint32, len(d.ProviderDiscounts))
	for provider, bps := range d.ProviderDiscounts {
		clone.ProviderDiscounts[provider] = bps
	}
	return &clone
}

// ActiveAt reports whether the discount window covers the timestamp and uses
// remain.
func (d *Discount) ActiveAt(now int64) bool {
	if d == nil {
		return false
	}
	if now < d.Start || now >= d.End {
		return false
	}
	return d.RemainingUses == UnlimitedUses || d.RemainingUses > 0
}

// ProviderBps resolves the provider-fee discount: the provider's override
// entry when present, otherwise the mandatory default entry.
func (d *Discount) ProviderBps(provider types.Address) uint32 {
	if d == nil {
		return 0
	}
	if bps, ok := d.ProviderDiscounts[provider]; ok {
		return bps
	}
	return d.ProviderDiscounts[DefaultProvider]
}

func clone(amount *big.Int) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(amount)
}

func share(amount *big.Int, bps uint32) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(bps)))
	return out.Quo(out, big.NewInt(PercentMultiplier))
}
