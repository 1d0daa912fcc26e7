package treasury

import (
	"math/big"
	"time"

	"ewill/core/events"
	"ewill/core/types"
)

// WithdrawalInterval is the default rolling window between operational
// withdrawals.
const WithdrawalInterval = 30 * 24 * time.Hour

// State persists the withdrawal throttle metadata across restarts.
type State interface {
	TreasuryLastWithdrawal() (int64, error)
	SetTreasuryLastWithdrawal(ts int64) error
}

type ledger interface {
	Transfer(from, to types.Address, amount *big.Int) error
	BalanceOf(addr types.Address) (*big.Int, error)
}

// Engine owns the platform revenue pool. Tokens collected as platform fees
// accumulate at the vault address; operational spending is throttled to one
// withdrawal per rolling window and to at most half of the pre-withdrawal
// balance.
type Engine struct {
	state         State
	ledger        ledger
	emitter       events.Emitter
	nowFn         func() int64
	admin         types.Address
	vault         types.Address
	minLockedFund *big.Int
	interval      time.Duration
}

// NewEngine creates a treasury engine bound to the given vault address.
func NewEngine(vault types.Address) *Engine {
	return &Engine{
		emitter:       events.NoopEmitter{},
		nowFn:         func() int64 { return time.Now().Unix() },
		vault:         vault,
		minLockedFund: big.NewInt(0),
		interval:      WithdrawalInterval,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetLedger configures the token ledger used for custody moves.
func (e *Engine) SetLedger(l ledger) { e.ledger = l }

// SetAdmin configures the identity allowed to withdraw operational funds.
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

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetWithdrawalInterval overrides the rolling window between withdrawals.
func (e *Engine) SetWithdrawalInterval(d time.Duration) {
	if d <= 0 {
		e.interval = WithdrawalInterval
		return
	}
	e.interval = d
}

// SetMinLockedFund configures the balance floor that withdrawals may never
// break. Admin only.
func (e *Engine) SetMinLockedFund(caller types.Address, amount *big.Int) error {
	if caller != e.admin {
		return ErrNotAdmin
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	e.minLockedFund = new(big.Int).Set(amount)
	return nil
}

// MinLockedFund returns the configured balance floor.
func (e *Engine) MinLockedFund() *big.Int { return new(big.Int).Set(e.minLockedFund) }

// VaultAddress returns the module custody address.
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

// Balance returns the current revenue pool balance.
func (e *Engine) Balance() (*big.Int, error) {
	if e == nil || e.ledger == nil {
		return nil, ErrNilLedger
	}
	return e.ledger.BalanceOf(e.vault)
}

// Fund records a platform-fee credit. The token leg is moved by the finance
// engine before this call; the event keeps the credit attributable to the
// will that paid it (all-zero for unrelated credits).
func (e *Engine) Fund(amount *big.Int, willID [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	e.emit(Funded{Amount: amount, WillID: willID})
	return nil
}

// PayOperationalExpenses releases tokens from the pool to the recipient.
// Admin only. A withdrawal must leave at least half of the pre-withdrawal
// balance and the configured locked floor in place, and at most one
// withdrawal is permitted per rolling window.
func (e *Engine) PayOperationalExpenses(caller, recipient types.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if caller != e.admin {
		return ErrNotAdmin
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	last, err := e.state.TreasuryLastWithdrawal()
	if err != nil {
		return err
	}
	now := e.nowFn()
	if last > 0 && now-last < int64(e.interval/time.Second) {
		return ErrTooFrequent
	}
	balance, err := e.ledger.BalanceOf(e.vault)
	if err != nil {
		return err
	}
	doubled := new(big.Int).Lsh(amount, 1)
	if doubled.Cmp(balance) > 0 {
		return ErrHalfBalanceCap
	}
	remaining := new(big.Int).Sub(balance, amount)
	if remaining.Cmp(e.minLockedFund) < 0 {
		return ErrLockedFund
	}
	if err := e.ledger.Transfer(e.vault, recipient, amount); err != nil {
		return err
	}
	if err := e.state.SetTreasuryLastWithdrawal(now); err != nil {
		return err
	}
	e.emit(Withdrew{To: recipient, Amount: amount})
	return nil
}
