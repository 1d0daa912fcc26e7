package marketing

import (
	"math/big"
	"time"

	"ewill/core/events"
	"ewill/core/types"
)

// State describes the registry functionality the marketing engine needs from
// the surrounding state implementation.
type State interface {
	DiscountGet(referrer types.Address) (*Discount, bool)
	DiscountPut(d *Discount) error
}

type ledger interface {
	Transfer(from, to types.Address, amount *big.Int) error
	BalanceOf(addr types.Address) (*big.Int, error)
}

// Engine owns the referral-code registry and the marketing budget the
// discounts and rewards are paid from.
type Engine struct {
	state    State
	ledger   ledger
	emitter  events.Emitter
	nowFn    func() int64
	marketer types.Address
	vault    types.Address

	// Baseline applied when a referrer has no active campaign. Models the
	// standing referral code distinct from time-boxed campaigns; zero when
	// unconfigured.
	defaultDiscountBps uint32
	defaultRewardBps   uint32
}

// NewEngine creates a marketing engine bound to the given budget vault
// address.
func NewEngine(vault types.Address) *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
		vault:   vault,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetLedger configures the token ledger the budget is paid from.
func (e *Engine) SetLedger(l ledger) { e.ledger = l }

// SetMarketer configures the identity allowed to register discounts.
func (e *Engine) SetMarketer(marketer types.Address) { e.marketer = marketer }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetDefaultDiscount configures the standing baseline used when no campaign
// applies. Marketer only.
func (e *Engine) SetDefaultDiscount(caller types.Address, discountBps, rewardBps uint32) error {
	if caller != e.marketer {
		return ErrNotMarketer
	}
	if discountBps > PercentMultiplier || rewardBps > PercentMultiplier {
		return ErrBpsRange
	}
	e.defaultDiscountBps = discountBps
	e.defaultRewardBps = rewardBps
	return nil
}

// VaultAddress returns the budget custody address.
func (e *Engine) VaultAddress() types.Address { return e.vault }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.ledger == nil {
		return ErrNilLedger
	}
	return nil
}

// AddDiscount registers or replaces the referrer's discount window. The
// provider and discount lists must pair up and, when non-empty, carry an
// entry for the default-provider sentinel so lookups never fail open.
func (e *Engine) AddDiscount(caller, referrer types.Address, start, end int64, discountBps, rewardBps uint32, providers []types.Address, providerBps []uint32, usesLimit int64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if caller != e.marketer {
		return ErrNotMarketer
	}
	if referrer.IsZero() {
		return ErrZeroReferrer
	}
	if start >= end {
		return ErrWindowInverted
	}
	if discountBps > PercentMultiplier || rewardBps > PercentMultiplier {
		return ErrBpsRange
	}
	if len(providers) != len(providerBps) {
		return ErrListMismatch
	}
	table := make(map[types.Address]uint32, len(providers))
	for i, provider := range providers {
		if providerBps[i] > PercentMultiplier {
			return ErrBpsRange
		}
		table[provider] = providerBps[i]
	}
	if len(table) > 0 {
		if _, ok := table[DefaultProvider]; !ok {
			return ErrNoDefaultEntry
		}
	}
	if usesLimit < 0 {
		usesLimit = UnlimitedUses
	}
	d := &Discount{
		Referrer:          referrer,
		Start:             start,
		End:               end,
		DiscountBps:       discountBps,
		RewardBps:         rewardBps,
		ProviderDiscounts: table,
		RemainingUses:     usesLimit,
	}
	if err := e.state.DiscountPut(d); err != nil {
		return err
	}
	e.emit(DiscountAdded{Referrer: referrer, Start: start, End: end, DiscountBps: discountBps, RewardBps: rewardBps})
	return nil
}

// ReferrerDiscount projects the discount and reward a charge would carry,
// without moving funds. Expired, exhausted and unknown referral codes fall
// back to the standing baseline.
func (e *Engine) ReferrerDiscount(platformFee, providerFee *big.Int, provider, referrer types.Address) (platformDiscount, providerDiscount, reward *big.Int) {
	platformDiscount, providerDiscount, reward = big.NewInt(0), big.NewInt(0), big.NewInt(0)
	if e == nil || e.state == nil || referrer.IsZero() {
		return
	}
	d, ok := e.state.DiscountGet(referrer)
	if !ok || !d.ActiveAt(e.nowFn()) {
		platformDiscount = share(platformFee, e.defaultDiscountBps)
		providerDiscount = share(providerFee, e.defaultDiscountBps)
		reward = share(platformFee, e.defaultRewardBps)
		return
	}
	platformDiscount = share(platformFee, d.DiscountBps)
	providerDiscount = share(providerFee, d.ProviderBps(provider))
	reward = share(platformFee, d.RewardBps)
	return
}

// ApplyDiscount settles an already projected discount out of the marketing
// budget: the discount portion goes to the payer, the reward to the referrer,
// and a finite use counter is consumed. The amounts come from the caller's
// ReferrerDiscount projection so that a campaign expiring mid-charge cannot
// change what settles. Reachable only through the finance engine. An
// underfunded budget is a configuration error and fails the whole charge.
func (e *Engine) ApplyDiscount(payer, referrer types.Address, platformDiscount, providerDiscount, reward *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	platformDiscount = clone(platformDiscount)
	providerDiscount = clone(providerDiscount)
	reward = clone(reward)
	total := new(big.Int).Add(platformDiscount, providerDiscount)
	total.Add(total, reward)
	if total.Sign() == 0 {
		return nil
	}
	budget, err := e.ledger.BalanceOf(e.vault)
	if err != nil {
		return err
	}
	if budget.Cmp(total) < 0 {
		return ErrInsufficientBudget
	}
	discount := new(big.Int).Add(platformDiscount, providerDiscount)
	if discount.Sign() > 0 {
		if err := e.ledger.Transfer(e.vault, payer, discount); err != nil {
			return err
		}
	}
	if reward.Sign() > 0 {
		if err := e.ledger.Transfer(e.vault, referrer, reward); err != nil {
			return err
		}
	}
	if d, ok := e.state.DiscountGet(referrer); ok && d.RemainingUses > 0 {
		updated := d.Clone()
		updated.RemainingUses--
		if err := e.state.DiscountPut(updated); err != nil {
			return err
		}
	}
	e.emit(DiscountApplied{
		Referrer:         referrer,
		Payer:            payer,
		PlatformDiscount: platformDiscount,
		ProviderDiscount: providerDiscount,
		Reward:           reward,
	})
	return nil
}

// DiscountInfo returns a copy of the referrer's record.
func (e *Engine) DiscountInfo(referrer types.Address) (*Discount, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	d, ok := e.state.DiscountGet(referrer)
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}
