package platform

import (
	"math/big"
	"time"

	"ewill/core/events"
	"ewill/core/types"
)

// State is the subset of world state the will engine depends on.
type State interface {
	WillGet(id [32]byte) (*Will, bool)
	WillPut(w *Will) error
	UserWills(owner types.Address) [][32]byte
	AppendUserWill(owner types.Address, id [32]byte) error
}

// billing is the fee-orchestration surface the engine needs. Settlement flows
// through it exclusively so the will engine never touches balances directly.
type billing interface {
	Charge(payer, provider, referrer types.Address, years uint64, etherValue *big.Int, willID [32]byte) error
	Refund(recipient types.Address, amountCents uint64, willID [32]byte) error
	Reward(provider types.Address, amountTokens *big.Int, willID [32]byte) error
	CentsToTokens(cents uint64) *big.Int
}

// directory exposes provider eligibility and delegation lookups.
type directory interface {
	IsProviderValid(provider types.Address) bool
	AnnualFee(provider types.Address) (uint64, error)
	DelegateFor(provider types.Address) (types.Address, error)
}

// Engine drives the will lifecycle state machine. All billing side effects of
// a transition are delegated to the finance engine.
type Engine struct {
	state     State
	billing   billing
	directory directory
	emitter   events.Emitter
	nowFn     func() int64
}

// NewEngine constructs a will engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the persistence backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetBilling wires the fee orchestrator.
func (e *Engine) SetBilling(b billing) { e.billing = b }

// SetDirectory wires the provider directory.
func (e *Engine) SetDirectory(d directory) { e.directory = d }

// SetEmitter configures the sink for lifecycle events.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// SetNowFunc overrides the engine clock. Tests use it to control period
// boundaries.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.billing == nil {
		return ErrNilBilling
	}
	if e.directory == nil {
		return ErrNilDirectory
	}
	return nil
}

func (e *Engine) loadWill(id [32]byte) (*Will, error) {
	w, ok := e.state.WillGet(id)
	if !ok || w == nil {
		return nil, ErrWillNotFound
	}
	return w.Clone(), nil
}

func (e *Engine) storeWill(w *Will) error {
	return e.state.WillPut(w.Clone())
}

// requireDelegate loads the will and verifies the caller is the authorized
// delegate of its servicing provider. The check runs against the provider
// record rather than the delegate index so one delegate may serve several
// providers.
func (e *Engine) requireDelegate(caller types.Address, id [32]byte) (*Will, error) {
	w, err := e.loadWill(id)
	if err != nil {
		return nil, err
	}
	delegate, err := e.directory.DelegateFor(w.Provider)
	if err != nil {
		return nil, err
	}
	if delegate != caller {
		return nil, ErrNotDelegate
	}
	return w, nil
}

// monthsLeft returns how many whole service periods remain before coverage
// lapses, never negative.
func monthsLeft(validTill, now int64) uint64 {
	if now >= validTill {
		return 0
	}
	return uint64(validTill-now) / PeriodLength
}

// CreateWill registers a new will for caller, charges the full prepaid term
// through the fee orchestrator and stores the record in the created state.
// The beneficiary is committed as a hash and only revealed at apply time.
func (e *Engine) CreateWill(caller types.Address, id [32]byte, description string, infoID uint64, years uint64, beneficiaryHash [32]byte, provider, referrer types.Address, etherValue *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if years == 0 || years > MaxYears {
		return ErrInvalidYears
	}
	if _, ok := e.state.WillGet(id); ok {
		return ErrWillExists
	}
	if !e.directory.IsProviderValid(provider) {
		return ErrProviderInvalid
	}
	if err := e.billing.Charge(caller, provider, referrer, years, etherValue, id); err != nil {
		return err
	}
	now := e.now()
	w := &Will{
		ID:              id,
		Owner:           caller,
		Provider:        provider,
		BeneficiaryHash: beneficiaryHash,
		Description:     description,
		InfoID:          infoID,
		CreatedAt:       now,
		ValidTill:       now + int64(years)*OneYear,
		RefreshedAt:     now,
		YearsPaid:       years,
		Referrer:        referrer,
		State:           WillCreated,
	}
	if err := e.storeWill(w); err != nil {
		return err
	}
	if err := e.state.AppendUserWill(caller, id); err != nil {
		return err
	}
	e.emit(&WillCreatedEvent{WillID: id, Owner: caller, Provider: provider, ValidTill: w.ValidTill})
	e.emit(&WillStateUpdatedEvent{WillID: id, Owner: caller, NewState: WillCreated})
	return nil
}

// ActivateWill confirms provider onboarding of a freshly created will. Only
// the provider's delegate may activate, and only from the created state.
func (e *Engine) ActivateWill(caller types.Address, id [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	w, err := e.requireDelegate(caller, id)
	if err != nil {
		return err
	}
	if w.State != WillCreated {
		return ErrBadState
	}
	w.State = WillActivated
	if err := e.storeWill(w); err != nil {
		return err
	}
	e.emit(&WillStateUpdatedEvent{WillID: id, Owner: w.Owner, NewState: WillActivated})
	return nil
}

// ApplyWill records the revealed beneficiary identity reported by the
// provider's delegate and moves the will to the pending state, from which the
// beneficiary may claim.
func (e *Engine) ApplyWill(caller types.Address, id [32]byte, beneficiary types.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	w, err := e.requireDelegate(caller, id)
	if err != nil {
		return err
	}
	if w.State != WillActivated {
		return ErrBadState
	}
	w.Beneficiary = beneficiary
	w.State = WillPending
	if err := e.storeWill(w); err != nil {
		return err
	}
	e.emit(&WillStateUpdatedEvent{WillID: id, Owner: w.Owner, NewState: WillPending})
	return nil
}

// ClaimWill releases a pending will to the beneficiary. The caller must hash
// to the commitment made at creation. Any unvested service periods settle to
// the provider's escrow fund.
func (e *Engine) ClaimWill(caller types.Address, id [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	w, err := e.loadWill(id)
	if err != nil {
		return err
	}
	if w.State != WillPending {
		return ErrBadState
	}
	if BeneficiaryHash(caller) != w.BeneficiaryHash {
		return ErrNotBeneficiary
	}
	annualFee, err := e.directory.AnnualFee(w.Provider)
	if err != nil {
		return err
	}
	months := monthsLeft(w.ValidTill, e.now())
	if months > 0 {
		annualTokens := e.billing.CentsToTokens(annualFee)
		vest := new(big.Int).Mul(annualTokens, new(big.Int).SetUint64(months))
		vest.Quo(vest, big.NewInt(PeriodsPerYear))
		if vest.Sign() > 0 {
			if err := e.billing.Reward(w.Provider, vest, id); err != nil {
				return err
			}
		}
	}
	w.Beneficiary = caller
	w.State = WillClaimed
	if err := e.storeWill(w); err != nil {
		return err
	}
	e.emit(&WillStateUpdatedEvent{WillID: id, Owner: w.Owner, NewState: WillClaimed})
	return nil
}

// RefreshWill confirms one elapsed service period and vests a single period's
// share of the prepaid annual fee to the provider. A refresh is accepted only
// once per period and only while coverage is active.
func (e *Engine) RefreshWill(caller types.Address, id [32]byte, autoRenew bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	w, err := e.requireDelegate(caller, id)
	if err != nil {
		return err
	}
	if w.State != WillActivated {
		return ErrBadState
	}
	now := e.now()
	if now > w.ValidTill {
		return ErrExpired
	}
	if now < w.RefreshedAt+PeriodLength {
		return ErrRefreshTooSoon
	}
	annualFee, err := e.directory.AnnualFee(w.Provider)
	if err != nil {
		return err
	}
	vest := new(big.Int).Quo(e.billing.CentsToTokens(annualFee), big.NewInt(PeriodsPerYear))
	if vest.Sign() > 0 {
		if err := e.billing.Reward(w.Provider, vest, id); err != nil {
			return err
		}
	}
	w.RefreshedAt = now
	w.AutoRenew = autoRenew
	if err := e.storeWill(w); err != nil {
		return err
	}
	e.emit(&WillRefreshedEvent{WillID: id, Provider: w.Provider, RefreshedAt: now})
	return nil
}

// ProlongWill extends coverage by additional prepaid years. Only the owner may
// prolong, and only within the final period before expiry.
func (e *Engine) ProlongWill(caller types.Address, id [32]byte, years uint64, etherValue *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if years == 0 || years > MaxYears {
		return ErrInvalidYears
	}
	w, err := e.loadWill(id)
	if err != nil {
		return err
	}
	if w.Owner != caller {
		return ErrNotOwner
	}
	if w.State != WillActivated {
		return ErrBadState
	}
	now := e.now()
	if now < w.ValidTill-PeriodLength || now > w.ValidTill {
		return ErrOutsideProlongWindow
	}
	if err := e.billing.Charge(caller, w.Provider, w.Referrer, years, etherValue, id); err != nil {
		return err
	}
	w.ValidTill += int64(years) * OneYear
	w.YearsPaid += years
	if err := e.storeWill(w); err != nil {
		return err
	}
	e.emit(&WillProlongedEvent{WillID: id, Owner: w.Owner, Years: years, ValidTill: w.ValidTill})
	return nil
}

// DeleteWill retires an active will at the owner's request. Whole unserved
// periods of the prepaid provider fee are refunded to the owner; the platform
// fee is not.
func (e *Engine) DeleteWill(caller types.Address, id [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	w, err := e.loadWill(id)
	if err != nil {
		return err
	}
	if w.Owner != caller {
		return ErrNotOwner
	}
	if w.State != WillActivated {
		return ErrBadState
	}
	annualFee, err := e.directory.AnnualFee(w.Provider)
	if err != nil {
		return err
	}
	months := monthsLeft(w.ValidTill, e.now())
	refundCents := annualFee * months / PeriodsPerYear
	if refundCents > 0 {
		if err := e.billing.Refund(caller, refundCents, id); err != nil {
			return err
		}
	}
	w.State = WillDeleted
	if err := e.storeWill(w); err != nil {
		return err
	}
	e.emit(&WillStateUpdatedEvent{WillID: id, Owner: w.Owner, NewState: WillDeleted})
	return nil
}

// RejectWill closes an activated will whose coverage lapsed without a claim.
// Only the provider's delegate may reject, and only after expiry. A will with
// a pending claim stays open so the beneficiary can still collect.
func (e *Engine) RejectWill(caller types.Address, id [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	w, err := e.requireDelegate(caller, id)
	if err != nil {
		return err
	}
	if w.State != WillActivated {
		return ErrBadState
	}
	if e.now() <= w.ValidTill {
		return ErrNotExpired
	}
	w.State = WillRejected
	if err := e.storeWill(w); err != nil {
		return err
	}
	e.emit(&WillStateUpdatedEvent{WillID: id, Owner: w.Owner, NewState: WillRejected})
	return nil
}

// WillByID returns a copy of the stored will record.
func (e *Engine) WillByID(id [32]byte) (*Will, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.loadWill(id)
}

// WillsOf lists the identifiers of every will the owner has created.
func (e *Engine) WillsOf(owner types.Address) [][32]byte {
	if e == nil || e.state == nil {
		return nil
	}
	return e.state.UserWills(owner)
}
