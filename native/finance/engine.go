package finance

import (
	"math/big"

	"ewill/core/events"
	"ewill/core/types"
)

// PercentMultiplier is the per-mille scale shared with the marketing engine.
const PercentMultiplier = 1000

// MaxYears caps a single charge's prepaid term so the cent products
// annualFee*years can never wrap uint64 on caller-supplied input.
const MaxYears = 100

// State persists the native-currency balance sheet used for dual-currency
// settlement.
type State interface {
	EtherBalance(addr types.Address) (*big.Int, error)
	SetEtherBalance(addr types.Address, amount *big.Int) error
}

type ledger interface {
	Transfer(from, to types.Address, amount *big.Int) error
	MerchantCollect(caller, from, to types.Address, amount *big.Int) error
	BalanceOf(addr types.Address) (*big.Int, error)
}

type escrowEngine interface {
	AnnualFee(provider types.Address) (uint64, error)
	VaultAddress() types.Address
	Fund(provider types.Address, amount *big.Int, willID [32]byte) error
	Refund(recipient types.Address, amount *big.Int, willID [32]byte) error
}

type treasuryEngine interface {
	VaultAddress() types.Address
	Fund(amount *big.Int, willID [32]byte) error
}

type marketingEngine interface {
	VaultAddress() types.Address
	ReferrerDiscount(platformFee, providerFee *big.Int, provider, referrer types.Address) (*big.Int, *big.Int, *big.Int)
	ApplyDiscount(payer, referrer types.Address, platformDiscount, providerDiscount, reward *big.Int) error
}

// Engine computes fees, converts between cents, tokens and native currency,
// and moves value across the ledger, escrow, treasury and marketing as one
// atomic settlement per call. Every leg is validated before the first balance
// mutation so a failed charge is never partially applied.
type Engine struct {
	state     State
	ledger    ledger
	escrow    escrowEngine
	treasury  treasuryEngine
	marketing marketingEngine
	emitter   events.Emitter
	admin     types.Address
	vault     types.Address

	annualPlatformFee uint64   // cents
	tokenRate         *big.Int // token wei per cent
	etherRate         *big.Int // ether wei per cent
	exchangeFeeBps    uint32
	// Standing referral percentage applied when no marketing campaign
	// covers the referrer. Discount and reward are both this share of the
	// platform fee and are absorbed by the treasury leg.
	referrerBps uint32
}

// NewEngine creates a finance engine bound to the given float vault address.
func NewEngine(vault types.Address) *Engine {
	return &Engine{
		emitter:   events.NoopEmitter{},
		vault:     vault,
		tokenRate: big.NewInt(0),
		etherRate: big.NewInt(0),
	}
}

// SetState configures the native-currency balance sheet.
func (e *Engine) SetState(state State) { e.state = state }

// SetLedger configures the token ledger.
func (e *Engine) SetLedger(l ledger) { e.ledger = l }

// SetEscrow wires the escrow collaborator.
func (e *Engine) SetEscrow(esc escrowEngine) { e.escrow = esc }

// SetTreasury wires the treasury collaborator.
func (e *Engine) SetTreasury(t treasuryEngine) { e.treasury = t }

// SetMarketing wires the optional discount engine. Passing nil disables
// campaign discounts; the standing referral percentage still applies.
func (e *Engine) SetMarketing(m marketingEngine) { e.marketing = m }

// SetAdmin configures the identity allowed to change rates and fees.
func (e *Engine) SetAdmin(admin types.Address) { e.admin = admin }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// VaultAddress returns the float custody address.
func (e *Engine) VaultAddress() types.Address { return e.vault }

// SetExchangeRates configures the token and native-currency rates in smallest
// units per cent. Admin only.
func (e *Engine) SetExchangeRates(caller types.Address, tokenWeiPerCent, etherWeiPerCent *big.Int) error {
	if caller != e.admin {
		return ErrNotAdmin
	}
	if tokenWeiPerCent == nil || tokenWeiPerCent.Sign() <= 0 || etherWeiPerCent == nil || etherWeiPerCent.Sign() <= 0 {
		return ErrRatesNotSet
	}
	e.tokenRate = new(big.Int).Set(tokenWeiPerCent)
	e.etherRate = new(big.Int).Set(etherWeiPerCent)
	return nil
}

// SetExchangeFee configures the token-to-ether conversion fee. Admin only.
func (e *Engine) SetExchangeFee(caller types.Address, bps uint32) error {
	if caller != e.admin {
		return ErrNotAdmin
	}
	if bps > PercentMultiplier {
		return ErrFeeRange
	}
	e.exchangeFeeBps = bps
	return nil
}

// SetAnnualPlatformFee configures the yearly platform fee in cents. Admin
// only.
func (e *Engine) SetAnnualPlatformFee(caller types.Address, cents uint64) error {
	if caller != e.admin {
		return ErrNotAdmin
	}
	e.annualPlatformFee = cents
	return nil
}

// SetReferrerDiscount configures the standing referral percentage. Admin
// only.
func (e *Engine) SetReferrerDiscount(caller types.Address, bps uint32) error {
	if caller != e.admin {
		return ErrNotAdmin
	}
	if bps > PercentMultiplier {
		return ErrFeeRange
	}
	e.referrerBps = bps
	return nil
}

// AnnualPlatformFee returns the configured yearly platform fee in cents.
func (e *Engine) AnnualPlatformFee() uint64 { return e.annualPlatformFee }

// CentsToTokens converts a cent amount to token base units at the configured
// rate.
func (e *Engine) CentsToTokens(cents uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(cents), e.tokenRate)
}

// CentsToEthers converts a cent amount to native-currency base units at the
// configured rate.
func (e *Engine) CentsToEthers(cents uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(cents), e.etherRate)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.ledger == nil {
		return ErrNilLedger
	}
	if e.escrow == nil {
		return ErrNilEscrow
	}
	if e.treasury == nil {
		return ErrNilTreasury
	}
	return nil
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

// TotalFee projects the gross fee, referrer reward and payer discount for a
// charge with the same parameters, in cents. Clients use it to preview a cost
// before committing.
func (e *Engine) TotalFee(years uint64, provider, referrer types.Address) (gross, reward, discount uint64, err error) {
	if err := e.ready(); err != nil {
		return 0, 0, 0, err
	}
	if years == 0 || years > MaxYears {
		return 0, 0, 0, ErrInvalidYears
	}
	providerFee, err := e.escrow.AnnualFee(provider)
	if err != nil {
		return 0, 0, 0, err
	}
	platformCents := e.annualPlatformFee * years
	providerCents := providerFee * years
	gross = platformCents + providerCents
	platDisc, provDisc, rewardAmt := e.projectDiscount(
		new(big.Int).SetUint64(platformCents),
		new(big.Int).SetUint64(providerCents),
		provider, referrer,
	)
	discount = new(big.Int).Add(platDisc, provDisc).Uint64()
	reward = rewardAmt.Uint64()
	return gross, reward, discount, nil
}

// TotalFeeTokens projects the same components in token base units.
func (e *Engine) TotalFeeTokens(years uint64, provider, referrer types.Address) (gross, reward, discount *big.Int, err error) {
	grossC, rewardC, discountC, err := e.TotalFee(years, provider, referrer)
	if err != nil {
		return nil, nil, nil, err
	}
	return e.CentsToTokens(grossC), e.CentsToTokens(rewardC), e.CentsToTokens(discountC), nil
}

// TotalFeeEthers projects the same components in native-currency base units.
func (e *Engine) TotalFeeEthers(years uint64, provider, referrer types.Address) (gross, reward, discount *big.Int, err error) {
	grossC, rewardC, discountC, err := e.TotalFee(years, provider, referrer)
	if err != nil {
		return nil, nil, nil, err
	}
	return e.CentsToEthers(grossC), e.CentsToEthers(rewardC), e.CentsToEthers(discountC), nil
}

// projectDiscount resolves the discount source for a referrer: an active
// marketing campaign wins, otherwise the standing referral percentage
// applies. Unit-agnostic: amounts come back in the units the fees were passed
// in.
func (e *Engine) projectDiscount(platformFee, providerFee *big.Int, provider, referrer types.Address) (platDisc, provDisc, reward *big.Int) {
	platDisc, provDisc, reward = big.NewInt(0), big.NewInt(0), big.NewInt(0)
	if referrer.IsZero() {
		return
	}
	if e.marketing != nil {
		platDisc, provDisc, reward = e.marketing.ReferrerDiscount(platformFee, providerFee, provider, referrer)
		if platDisc.Sign() > 0 || provDisc.Sign() > 0 || reward.Sign() > 0 {
			return
		}
	}
	if e.referrerBps > 0 {
		standing := new(big.Int).Mul(platformFee, new(big.Int).SetUint64(uint64(e.referrerBps)))
		standing.Quo(standing, big.NewInt(PercentMultiplier))
		platDisc = standing
		reward = new(big.Int).Set(standing)
	}
	return
}

// Charge settles a will fee: it collects the gross amount from the payer,
// routes the platform share to the treasury, the provider share to escrow
// custody, and applies referral discounts and rewards. Attached native
// currency only covers a token shortfall, selling tokens out of the finance
// float; any excess stays with the float as an exchange-rate buffer.
func (e *Engine) Charge(payer, provider, referrer types.Address, years uint64, etherValue *big.Int, willID [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if years == 0 || years > MaxYears {
		return ErrInvalidYears
	}
	if e.tokenRate.Sign() <= 0 {
		return ErrRatesNotSet
	}
	providerFee, err := e.escrow.AnnualFee(provider)
	if err != nil {
		return err
	}
	platformTokens := e.CentsToTokens(e.annualPlatformFee * years)
	providerTokens := e.CentsToTokens(providerFee * years)
	gross := new(big.Int).Add(platformTokens, providerTokens)

	platDisc, provDisc, reward := big.NewInt(0), big.NewInt(0), big.NewInt(0)
	campaign := false
	if !referrer.IsZero() {
		if e.marketing != nil {
			platDisc, provDisc, reward = e.marketing.ReferrerDiscount(platformTokens, providerTokens, provider, referrer)
			campaign = platDisc.Sign() > 0 || provDisc.Sign() > 0 || reward.Sign() > 0
		}
		if !campaign && e.referrerBps > 0 {
			standing := new(big.Int).Mul(platformTokens, new(big.Int).SetUint64(uint64(e.referrerBps)))
			standing.Quo(standing, big.NewInt(PercentMultiplier))
			platDisc = standing
			reward = new(big.Int).Set(standing)
		}
	}

	// The payer owes the gross amount on the campaign path: the marketing
	// budget reimburses the discount separately. On the standing path the
	// discount and reward come out of the treasury leg instead.
	owed := new(big.Int).Set(gross)
	treasuryShare := new(big.Int).Set(platformTokens)
	if !campaign && (platDisc.Sign() > 0 || reward.Sign() > 0) {
		taken := new(big.Int).Add(platDisc, reward)
		if taken.Cmp(platformTokens) > 0 {
			return ErrDiscountExceedsFee
		}
		owed.Sub(owed, platDisc)
		treasuryShare.Sub(treasuryShare, taken)
	}

	ether := big.NewInt(0)
	if etherValue != nil && etherValue.Sign() > 0 {
		if e.etherRate.Sign() <= 0 {
			return ErrRatesNotSet
		}
		ether = new(big.Int).Set(etherValue)
	}

	// Validate every leg before the first mutation.
	if ether.Sign() > 0 {
		held, err := e.state.EtherBalance(payer)
		if err != nil {
			return err
		}
		if held.Cmp(ether) < 0 {
			return ErrInsufficientEther
		}
	}
	payerTokens, err := e.ledger.BalanceOf(payer)
	if err != nil {
		return err
	}
	// Campaign discounts land on the payer before collection.
	available := new(big.Int).Set(payerTokens)
	if campaign {
		available.Add(available, platDisc)
		available.Add(available, provDisc)
	}
	cover := big.NewInt(0)
	if available.Cmp(owed) < 0 {
		shortfall := new(big.Int).Sub(owed, available)
		if ether.Sign() == 0 {
			return ErrInsufficientTokens
		}
		etherCents := new(big.Int).Quo(ether, e.etherRate)
		cover = new(big.Int).Mul(etherCents, e.tokenRate)
		if cover.Cmp(shortfall) > 0 {
			cover = shortfall
		}
		if cover.Cmp(shortfall) < 0 {
			return ErrInsufficientTokens
		}
		float, err := e.ledger.BalanceOf(e.vault)
		if err != nil {
			return err
		}
		if float.Cmp(cover) < 0 {
			return ErrInsufficientFloat
		}
	}
	if campaign {
		budget, err := e.ledger.BalanceOf(e.marketing.VaultAddress())
		if err != nil {
			return err
		}
		total := new(big.Int).Add(platDisc, provDisc)
		total.Add(total, reward)
		if budget.Cmp(total) < 0 {
			return ErrInsufficientTokens
		}
	}

	// Commit.
	if ether.Sign() > 0 {
		if err := e.moveEther(payer, e.vault, ether); err != nil {
			return err
		}
	}
	if cover.Sign() > 0 {
		if err := e.ledger.Transfer(e.vault, payer, cover); err != nil {
			return err
		}
	}
	if campaign {
		// Settle exactly the amounts projected during validation, so a
		// campaign expiring between the two reads cannot change the split
		// mid-commit.
		if err := e.marketing.ApplyDiscount(payer, referrer, platDisc, provDisc, reward); err != nil {
			return err
		}
	} else if reward.Sign() > 0 {
		if err := e.ledger.MerchantCollect(e.vault, payer, referrer, reward); err != nil {
			return err
		}
	}
	if providerTokens.Sign() > 0 {
		if err := e.ledger.MerchantCollect(e.vault, payer, e.escrow.VaultAddress(), providerTokens); err != nil {
			return err
		}
	}
	if treasuryShare.Sign() > 0 {
		if err := e.ledger.MerchantCollect(e.vault, payer, e.treasury.VaultAddress(), treasuryShare); err != nil {
			return err
		}
		if err := e.treasury.Fund(treasuryShare, willID); err != nil {
			return err
		}
	}
	e.emit(Charged{
		Payer:         payer,
		Provider:      provider,
		Referrer:      referrer,
		Gross:         gross,
		PlatformShare: treasuryShare,
		ProviderShare: providerTokens,
		Discount:      new(big.Int).Add(platDisc, provDisc),
		Reward:        reward,
		WillID:        willID,
	})
	return nil
}

// Refund reverses a previously charged provider-fee portion from escrow
// custody to the recipient's token balance.
func (e *Engine) Refund(recipient types.Address, amountCents uint64, willID [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.tokenRate.Sign() <= 0 {
		return ErrRatesNotSet
	}
	tokens := e.CentsToTokens(amountCents)
	if tokens.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := e.escrow.Refund(recipient, tokens, willID); err != nil {
		return err
	}
	e.emit(Refunded{Recipient: recipient, Amount: tokens, WillID: willID})
	return nil
}

// Reward credits a provider's escrow fund directly, outside the fee-charge
// path. Used by the will lifecycle to vest prepaid fees.
func (e *Engine) Reward(provider types.Address, amountTokens *big.Int, willID [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amountTokens == nil || amountTokens.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := e.escrow.Fund(provider, amountTokens, willID); err != nil {
		return err
	}
	e.emit(Rewarded{Provider: provider, Amount: amountTokens, WillID: willID})
	return nil
}

// ExchangeTokens converts the caller's tokens into native currency at the
// configured rates, less the exchange fee. Tokens move into the float; the
// payout comes from the float's native-currency balance.
func (e *Engine) ExchangeTokens(caller types.Address, tokenAmount *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if tokenAmount == nil || tokenAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if e.tokenRate.Sign() <= 0 || e.etherRate.Sign() <= 0 {
		return nil, ErrRatesNotSet
	}
	payout := new(big.Int).Mul(tokenAmount, e.etherRate)
	payout.Mul(payout, big.NewInt(PercentMultiplier-int64(e.exchangeFeeBps)))
	payout.Quo(payout, new(big.Int).Mul(e.tokenRate, big.NewInt(PercentMultiplier)))
	if payout.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	held, err := e.state.EtherBalance(e.vault)
	if err != nil {
		return nil, err
	}
	if held.Cmp(payout) < 0 {
		return nil, ErrInsufficientFloat
	}
	if err := e.ledger.MerchantCollect(e.vault, caller, e.vault, tokenAmount); err != nil {
		return nil, err
	}
	if err := e.moveEther(e.vault, caller, payout); err != nil {
		return nil, err
	}
	e.emit(Exchanged{Holder: caller, Tokens: tokenAmount, Ethers: payout})
	return payout, nil
}

// EtherBalance returns the native-currency balance tracked for the holder.
func (e *Engine) EtherBalance(addr types.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.state.EtherBalance(addr)
}

// DepositEther credits native currency to a holder's settlement balance. The
// daemon uses it to mirror inbound deposits.
func (e *Engine) DepositEther(addr types.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	held, err := e.state.EtherBalance(addr)
	if err != nil {
		return err
	}
	return e.state.SetEtherBalance(addr, new(big.Int).Add(held, amount))
}

func (e *Engine) moveEther(from, to types.Address, amount *big.Int) error {
	fromHeld, err := e.state.EtherBalance(from)
	if err != nil {
		return err
	}
	if fromHeld.Cmp(amount) < 0 {
		return ErrInsufficientEther
	}
	toHeld, err := e.state.EtherBalance(to)
	if err != nil {
		return err
	}
	if err := e.state.SetEtherBalance(from, new(big.Int).Sub(fromHeld, amount)); err != nil {
		return err
	}
	return e.state.SetEtherBalance(to, new(big.Int).Add(toHeld, amount))
}
