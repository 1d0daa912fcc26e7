package treasury

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"ewill/core/types"
)

type mockState struct {
	lastWithdrawal int64
}

func (m *mockState) TreasuryLastWithdrawal() (int64, error) { return m.lastWithdrawal, nil }

func (m *mockState) SetTreasuryLastWithdrawal(ts int64) error {
	m.lastWithdrawal = ts
	return nil
}

type mockLedger struct {
	balances map[types.Address]*big.Int
}

func newMockLedger() *mockLedger {
	return &mockLedger{balances: make(map[types.Address]*big.Int)}
}

func (m *mockLedger) balance(addr types.Address) *big.Int {
	if bal, ok := m.balances[addr]; ok {
		return bal
	}
	return big.NewInt(0)
}

func (m *mockLedger) Transfer(from, to types.Address, amount *big.Int) error {
	if m.balance(from).Cmp(amount) < 0 {
		return errors.New("mock ledger: insufficient balance")
	}
	m.balances[from] = new(big.Int).Sub(m.balance(from), amount)
	m.balances[to] = new(big.Int).Add(m.balance(to), amount)
	return nil
}

func (m *mockLedger) BalanceOf(addr types.Address) (*big.Int, error) {
	return new(big.Int).Set(m.balance(addr)), nil
}

func addr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

var (
	admin     = addr(0x01)
	recipient = addr(0x02)
)

func newTestEngine(now *int64) (*Engine, *mockState, *mockLedger) {
	state := &mockState{}
	ledger := newMockLedger()
	engine := NewEngine(types.ModuleAddress("treasury"))
	engine.SetState(state)
	engine.SetLedger(ledger)
	engine.SetAdmin(admin)
	engine.SetNowFunc(func() int64 { return *now })
	return engine, state, ledger
}

func TestPayOperationalExpensesHalfCap(t *testing.T) {
	now := int64(1_000_000)
	engine, _, ledger := newTestEngine(&now)
	ledger.balances[engine.VaultAddress()] = big.NewInt(1000)

	// Exactly half is the largest permitted withdrawal.
	if err := engine.PayOperationalExpenses(admin, recipient, big.NewInt(501)); !errors.Is(err, ErrHalfBalanceCap) {
		t.Fatalf("expected ErrHalfBalanceCap, got %v", err)
	}
	if err := engine.PayOperationalExpenses(admin, recipient, big.NewInt(500)); err != nil {
		t.Fatalf("withdraw half: %v", err)
	}
	if ledger.balance(recipient).Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("recipient balance %s", ledger.balance(recipient))
	}
}

func TestPayOperationalExpensesWindow(t *testing.T) {
	now := int64(1_000_000)
	engine, state, ledger := newTestEngine(&now)
	ledger.balances[engine.VaultAddress()] = big.NewInt(1000)

	if err := engine.PayOperationalExpenses(admin, recipient, big.NewInt(100)); err != nil {
		t.Fatalf("first withdrawal: %v", err)
	}
	if state.lastWithdrawal != now {
		t.Fatalf("timestamp not persisted: %d", state.lastWithdrawal)
	}

	if err := engine.PayOperationalExpenses(admin, recipient, big.NewInt(100)); !errors.Is(err, ErrTooFrequent) {
		t.Fatalf("expected ErrTooFrequent, got %v", err)
	}

	// One second short of the window still fails; the boundary passes.
	now += int64((30*24*time.Hour)/time.Second) - 1
	if err := engine.PayOperationalExpenses(admin, recipient, big.NewInt(100)); !errors.Is(err, ErrTooFrequent) {
		t.Fatalf("expected ErrTooFrequent at window edge, got %v", err)
	}
	now++
	if err := engine.PayOperationalExpenses(admin, recipient, big.NewInt(100)); err != nil {
		t.Fatalf("withdrawal after window: %v", err)
	}
}

func TestPayOperationalExpensesLockedFloor(t *testing.T) {
	now := int64(1_000_000)
	engine, _, ledger := newTestEngine(&now)
	ledger.balances[engine.VaultAddress()] = big.NewInt(1000)
	if err := engine.SetMinLockedFund(admin, big.NewInt(600)); err != nil {
		t.Fatalf("set floor: %v", err)
	}

	if err := engine.PayOperationalExpenses(admin, recipient, big.NewInt(450)); !errors.Is(err, ErrLockedFund) {
		t.Fatalf("expected ErrLockedFund, got %v", err)
	}
	if err := engine.PayOperationalExpenses(admin, recipient, big.NewInt(400)); err != nil {
		t.Fatalf("withdrawal above floor: %v", err)
	}
}

func TestPayOperationalExpensesAdminOnly(t *testing.T) {
	now := int64(1_000_000)
	engine, _, ledger := newTestEngine(&now)
	ledger.balances[engine.VaultAddress()] = big.NewInt(1000)

	if err := engine.PayOperationalExpenses(recipient, recipient, big.NewInt(10)); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := engine.PayOperationalExpenses(admin, recipient, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestFundRejectsNonPositive(t *testing.T) {
	now := int64(1_000_000)
	engine, _, _ := newTestEngine(&now)
	var willID [32]byte
	if err := engine.Fund(big.NewInt(0), willID); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := engine.Fund(big.NewInt(5), willID); err != nil {
		t.Fatalf("fund: %v", err)
	}
}
