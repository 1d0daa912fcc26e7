package token

import (
	"math/big"

	"ewill/core/events"
	"ewill/core/types"
)

// State describes the minimal functionality the ledger needs from the
// surrounding state implementation.
type State interface {
	GetAccount(addr types.Address) (*types.Account, error)
	PutAccount(addr types.Address, acc *types.Account) error
	TokenSupply() (*big.Int, error)
	SetTokenSupply(supply *big.Int) error
	IsMerchant(addr types.Address) (bool, error)
	PutMerchant(addr types.Address) error
	DeleteMerchant(addr types.Address) error
}

// Ledger implements the fungible balance store. A distinguished merchant
// allow-list, managed by the owner, lets billing modules pull funds from any
// holder without per-call consent.
type Ledger struct {
	state   State
	emitter events.Emitter
	owner   types.Address
}

// NewLedger creates a ledger with a no-op emitter. Callers can override the
// emitter via SetEmitter.
func NewLedger() *Ledger {
	return &Ledger{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the ledger.
func (l *Ledger) SetState(state State) { l.state = state }

// SetOwner configures the identity allowed to manage the merchant list.
func (l *Ledger) SetOwner(owner types.Address) { l.owner = owner }

// Owner returns the configured owner identity.
func (l *Ledger) Owner() types.Address { return l.owner }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func (l *Ledger) emit(evt events.Event) {
	if l == nil || l.emitter == nil {
		return
	}
	l.emitter.Emit(evt)
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Issue grants the initial supply to the owner. It may run exactly once;
// afterwards the sum of all balances equals the total supply for the lifetime
// of the ledger.
func (l *Ledger) Issue(to types.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	supply, err := l.state.TokenSupply()
	if err != nil {
		return err
	}
	if supply != nil && supply.Sign() > 0 {
		return ErrAlreadyIssued
	}
	acc, err := l.state.GetAccount(to)
	if err != nil {
		return err
	}
	acc = acc.Clone()
	acc.Balance = new(big.Int).Add(acc.Balance, amt)
	if err := l.state.PutAccount(to, acc); err != nil {
		return err
	}
	if err := l.state.SetTokenSupply(amt); err != nil {
		return err
	}
	l.emit(Issued{To: to, Amount: amt})
	return nil
}

// TotalSupply returns the issued supply.
func (l *Ledger) TotalSupply() (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	supply, err := l.state.TokenSupply()
	if err != nil {
		return nil, err
	}
	return cloneBigInt(supply), nil
}

// BalanceOf returns the current balance of the holder.
func (l *Ledger) BalanceOf(addr types.Address) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	acc, err := l.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil || acc.Balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(acc.Balance), nil
}

// Transfer moves amount from the sender to the recipient. It fails closed when
// the sender balance is insufficient and leaves all state untouched.
func (l *Ledger) Transfer(from, to types.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	return l.move(from, to, amount)
}

// MerchantCollect moves funds from an arbitrary holder without the holder's
// per-call consent. Only allow-listed merchant identities may invoke it; the
// allow-list models an approved billing relationship.
func (l *Ledger) MerchantCollect(caller, from, to types.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	ok, err := l.state.IsMerchant(caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMerchant
	}
	return l.move(from, to, amount)
}

// AddMerchant adds an identity to the merchant allow-list. Owner only.
func (l *Ledger) AddMerchant(caller, merchant types.Address) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	if caller != l.owner {
		return ErrNotOwner
	}
	if err := l.state.PutMerchant(merchant); err != nil {
		return err
	}
	l.emit(MerchantUpdated{Merchant: merchant, Added: true})
	return nil
}

// RemoveMerchant removes an identity from the merchant allow-list. Owner only.
func (l *Ledger) RemoveMerchant(caller, merchant types.Address) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	if caller != l.owner {
		return ErrNotOwner
	}
	if err := l.state.DeleteMerchant(merchant); err != nil {
		return err
	}
	l.emit(MerchantUpdated{Merchant: merchant, Added: false})
	return nil
}

// IsMerchant reports whether the identity is currently allow-listed.
func (l *Ledger) IsMerchant(addr types.Address) (bool, error) {
	if l == nil || l.state == nil {
		return false, ErrNilState
	}
	return l.state.IsMerchant(addr)
}

func (l *Ledger) move(from, to types.Address, amount *big.Int) error {
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return ErrInvalidAmount
	}
	fromAcc, err := l.state.GetAccount(from)
	if err != nil {
		return err
	}
	if from == to {
		if fromAcc.Clone().Balance.Cmp(amt) < 0 {
			return ErrInsufficientBalance
		}
		l.emit(Transferred{From: from, To: to, Amount: amt})
		return nil
	}
	toAcc, err := l.state.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc = fromAcc.Clone()
	toAcc = toAcc.Clone()
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := l.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	if err := l.state.PutAccount(to, toAcc); err != nil {
		return err
	}
	l.emit(Transferred{From: from, To: to, Amount: amt})
	return nil
}
