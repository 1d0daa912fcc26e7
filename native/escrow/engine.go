package escrow

import (
	"math/big"
	"time"

	"ewill/core/events"
	"ewill/core/types"
)

// State describes the directory functionality the escrow engine needs from the
// surrounding state implementation.
type State interface {
	ProviderGet(addr types.Address) (*Provider, bool)
	ProviderPut(p *Provider) error
	DelegateOf(delegate types.Address) (types.Address, bool)
	SetDelegate(delegate, provider types.Address) error
	DeleteDelegate(delegate types.Address) error
}

type ledger interface {
	Transfer(from, to types.Address, amount *big.Int) error
	MerchantCollect(caller, from, to types.Address, amount *big.Int) error
	BalanceOf(addr types.Address) (*big.Int, error)
}

// Engine owns the provider directory and the bonded-fund custody vault.
// Token custody for bonds and prepaid will fees is pooled at the vault
// address; per-provider spendable shares live on the Provider records.
type Engine struct {
	state           State
	ledger          ledger
	emitter         events.Emitter
	nowFn           func() int64
	admin           types.Address
	vault           types.Address
	minProviderFund *big.Int
}

// NewEngine creates an escrow engine with a no-op emitter bound to the given
// custody vault address.
func NewEngine(vault types.Address) *Engine {
	return &Engine{
		emitter:         events.NoopEmitter{},
		nowFn:           func() int64 { return time.Now().Unix() },
		vault:           vault,
		minProviderFund: big.NewInt(0),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetLedger configures the token ledger used for custody moves.
func (e *Engine) SetLedger(l ledger) { e.ledger = l }

// SetAdmin configures the identity allowed to activate, ban and unban
// providers.
func (e *Engine) SetAdmin(admin types.Address) { e.admin = admin }

// SetMinProviderFund configures the global minimum bond, in token base units.
// Admin only.
func (e *Engine) SetMinProviderFund(caller types.Address, amount *big.Int) error {
	if caller != e.admin {
		return ErrNotAdmin
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	e.minProviderFund = new(big.Int).Set(amount)
	return nil
}

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

// VaultAddress returns the module custody address. The daemon allow-lists it
// as a token merchant so bond topups can be collected.
func (e *Engine) VaultAddress() types.Address { return e.vault }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
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

func (e *Engine) loadProvider(addr types.Address) (*Provider, error) {
	p, ok := e.state.ProviderGet(addr)
	if !ok || p == nil || p.State == ProviderNone {
		return nil, ErrProviderNotFound
	}
	return p.Clone(), nil
}

func (e *Engine) storeProvider(p *Provider) error {
	sanitized, err := SanitizeProvider(p)
	if err != nil {
		return err
	}
	return e.state.ProviderPut(sanitized)
}

// indexDelegate records the reverse delegate lookup without clobbering a
// mapping another provider already holds. The Provider record stays the
// authoritative source of its delegate either way.
func (e *Engine) indexDelegate(delegate, provider types.Address) error {
	if owner, ok := e.state.DelegateOf(delegate); ok && owner != provider {
		return nil
	}
	return e.state.SetDelegate(delegate, provider)
}

// Register creates a Pending directory record for the caller. Re-registration
// is never silent: an existing record in any state, including Banned, rejects
// the call so recovery has to go through an explicit admin unban.
func (e *Engine) Register(caller types.Address, annualFee uint64, infoID uint64, delegate types.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if delegate.IsZero() {
		return ErrZeroDelegate
	}
	if existing, ok := e.state.ProviderGet(caller); ok && existing != nil && existing.State != ProviderNone {
		return ErrAlreadyRegistered
	}
	p := &Provider{
		Address:      caller,
		AnnualFee:    annualFee,
		Fund:         big.NewInt(0),
		InfoID:       infoID,
		Delegate:     delegate,
		State:        ProviderPending,
		RegisteredAt: e.now(),
	}
	if err := e.storeProvider(p); err != nil {
		return err
	}
	if err := e.indexDelegate(delegate, caller); err != nil {
		return err
	}
	e.emit(Registered{Provider: caller, AnnualFee: annualFee, Delegate: delegate})
	return nil
}

// ActivateProvider moves a provider into the Activated or Whitelisted state.
// Admin only. Banned providers must be unbanned first; re-activating an
// already-valid provider is accepted and applies no side effects beyond the
// state write.
func (e *Engine) ActivateProvider(caller, target types.Address, newState ProviderState) error {
	if err := e.ready(); err != nil {
		return err
	}
	if caller != e.admin {
		return ErrNotAdmin
	}
	if newState != ProviderActivated && newState != ProviderWhitelisted {
		return ErrBadTargetState
	}
	p, err := e.loadProvider(target)
	if err != nil {
		return err
	}
	switch p.State {
	case ProviderPending, ProviderActivated, ProviderWhitelisted:
	default:
		return ErrStateGate
	}
	p.State = newState
	if err := e.storeProvider(p); err != nil {
		return err
	}
	e.emit(Activated{Provider: target, NewState: newState})
	return nil
}

// Topup collects a bond contribution from the provider's token balance into
// the custody vault. Self-service; rejected while Banned.
func (e *Engine) Topup(caller types.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	p, err := e.loadProvider(caller)
	if err != nil {
		return err
	}
	if p.State == ProviderBanned {
		return ErrProviderBanned
	}
	if err := e.ledger.MerchantCollect(e.vault, caller, e.vault, amount); err != nil {
		return err
	}
	p.Fund = new(big.Int).Add(p.Fund, amount)
	if err := e.storeProvider(p); err != nil {
		return err
	}
	e.emit(FundMoved{Type: EventTypeToppedUp, Provider: caller, Amount: amount})
	return nil
}

// Withdraw releases part of the provider's spendable fund back to its token
// balance. Self-service; rejected while Banned or past the available balance.
func (e *Engine) Withdraw(caller types.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	p, err := e.loadProvider(caller)
	if err != nil {
		return err
	}
	if p.State == ProviderBanned {
		return ErrProviderBanned
	}
	if p.Fund.Cmp(amount) < 0 {
		return ErrInsufficientFund
	}
	if err := e.ledger.Transfer(e.vault, caller, amount); err != nil {
		return err
	}
	p.Fund = new(big.Int).Sub(p.Fund, amount)
	if err := e.storeProvider(p); err != nil {
		return err
	}
	e.emit(FundMoved{Type: EventTypeWithdrew, Provider: caller, Amount: amount})
	return nil
}

// Fund credits a provider's spendable fund. Reachable only through the
// finance engine, which holds the token custody leg; willID is all-zero for
// moves unrelated to a will.
func (e *Engine) Fund(provider types.Address, amount *big.Int, willID [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	p, err := e.loadProvider(provider)
	if err != nil {
		return err
	}
	p.Fund = new(big.Int).Add(p.Fund, amount)
	if err := e.storeProvider(p); err != nil {
		return err
	}
	e.emit(FundMoved{Type: EventTypeFunded, Provider: provider, Amount: amount, WillID: willID})
	return nil
}

// Refund pays unvested prepaid custody from the vault back to a recipient.
// Reachable only through the finance engine. The provider's realized fund is
// untouched: the refunded portion never vested.
func (e *Engine) Refund(recipient types.Address, amount *big.Int, willID [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := e.ledger.Transfer(e.vault, recipient, amount); err != nil {
		return err
	}
	e.emit(FundMoved{Type: EventTypeRefunded, Provider: recipient, Amount: amount, WillID: willID})
	return nil
}

// BanProvider marks a provider Banned. Admin only; banning an already-Banned
// provider fails so side effects cannot double-apply.
func (e *Engine) BanProvider(caller, provider types.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if caller != e.admin {
		return ErrNotAdmin
	}
	p, err := e.loadProvider(provider)
	if err != nil {
		return err
	}
	if p.State == ProviderBanned {
		return ErrProviderBanned
	}
	p.State = ProviderBanned
	if err := e.storeProvider(p); err != nil {
		return err
	}
	e.emit(Banned{Provider: provider})
	return nil
}

// UnbanProvider restores a Banned provider to Activated. Admin only. The
// provider becomes usable again only once its bond clears the minimum again.
func (e *Engine) UnbanProvider(caller, provider types.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if caller != e.admin {
		return ErrNotAdmin
	}
	p, err := e.loadProvider(provider)
	if err != nil {
		return err
	}
	if p.State != ProviderBanned {
		return ErrProviderNotBanned
	}
	p.State = ProviderActivated
	if err := e.storeProvider(p); err != nil {
		return err
	}
	e.emit(Activated{Provider: provider, NewState: ProviderActivated})
	return nil
}

// ChangeDelegate rotates the identity authorized to act for the provider,
// invalidating the prior reverse-index mapping. Self-service; rejected while
// Banned.
func (e *Engine) ChangeDelegate(caller, newDelegate types.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if newDelegate.IsZero() {
		return ErrZeroDelegate
	}
	p, err := e.loadProvider(caller)
	if err != nil {
		return err
	}
	if p.State == ProviderBanned {
		return ErrProviderBanned
	}
	if !p.Delegate.IsZero() {
		// Drop the reverse mapping only if this provider still owns it.
		if owner, ok := e.state.DelegateOf(p.Delegate); ok && owner == caller {
			if err := e.state.DeleteDelegate(p.Delegate); err != nil {
				return err
			}
		}
	}
	p.Delegate = newDelegate
	if err := e.storeProvider(p); err != nil {
		return err
	}
	if err := e.indexDelegate(newDelegate, caller); err != nil {
		return err
	}
	e.emit(DelegateUpdated{Provider: caller, Delegate: newDelegate})
	return nil
}

// UpdateInfo replaces the provider's opaque descriptor. Self-service;
// rejected while Banned.
func (e *Engine) UpdateInfo(caller types.Address, infoID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	p, err := e.loadProvider(caller)
	if err != nil {
		return err
	}
	if p.State == ProviderBanned {
		return ErrProviderBanned
	}
	p.InfoID = infoID
	return e.storeProvider(p)
}

// ProviderInfo returns a copy of the directory record.
func (e *Engine) ProviderInfo(addr types.Address) (*Provider, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.loadProvider(addr)
}

// ProviderByDelegate resolves the provider currently represented by the
// delegate identity.
func (e *Engine) ProviderByDelegate(delegate types.Address) (types.Address, bool) {
	if e == nil || e.state == nil {
		return types.Address{}, false
	}
	return e.state.DelegateOf(delegate)
}

// DelegateFor returns the identity currently authorized to operate on the
// provider's behalf.
func (e *Engine) DelegateFor(provider types.Address) (types.Address, error) {
	p, err := e.ProviderInfo(provider)
	if err != nil {
		return types.Address{}, err
	}
	return p.Delegate, nil
}

// AnnualFee returns the provider's configured annual fee in cents.
func (e *Engine) AnnualFee(addr types.Address) (uint64, error) {
	p, err := e.ProviderInfo(addr)
	if err != nil {
		return 0, err
	}
	return p.AnnualFee, nil
}

// MinFundForProvider returns the minimum bond required for the provider to be
// billing-eligible: zero for Whitelisted providers, otherwise the global
// minimum.
func (e *Engine) MinFundForProvider(addr types.Address) *big.Int {
	if e == nil || e.state == nil {
		return big.NewInt(0)
	}
	if p, ok := e.state.ProviderGet(addr); ok && p != nil && p.State == ProviderWhitelisted {
		return big.NewInt(0)
	}
	return new(big.Int).Set(e.minProviderFund)
}

// IsProviderValid reports whether the provider may service wills: Activated
// with a bond at or above the minimum, or Whitelisted regardless of bond.
func (e *Engine) IsProviderValid(addr types.Address) bool {
	if e == nil || e.state == nil {
		return false
	}
	p, ok := e.state.ProviderGet(addr)
	if !ok || p == nil {
		return false
	}
	switch p.State {
	case ProviderWhitelisted:
		return true
	case ProviderActivated:
		fund := p.Fund
		if fund == nil {
			fund = big.NewInt(0)
		}
		return fund.Cmp(e.minProviderFund) >= 0
	default:
		return false
	}
}
