package marketing

import (
	"errors"
	"math/big"
	"testing"

	"ewill/core/types"
)

type mockState struct {
	discounts map[types.Address]*Discount
}

func newMockState() *mockState {
	return &mockState{discounts: make(map[types.Address]*Discount)}
}

func (m *mockState) DiscountGet(referrer types.Address) (*Discount, bool) {
	d, ok := m.discounts[referrer]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

func (m *mockState) DiscountPut(d *Discount) error {
	m.discounts[d.Referrer] = d.Clone()
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
	marketer = addr(0x01)
	referrer = addr(0x02)
	provider = addr(0x03)
	payer    = addr(0x04)
)

func newTestEngine(now *int64) (*Engine, *mockState, *mockLedger) {
	state := newMockState()
	ledger := newMockLedger()
	engine := NewEngine(types.ModuleAddress("marketing"))
	engine.SetState(state)
	engine.SetLedger(ledger)
	engine.SetMarketer(marketer)
	engine.SetNowFunc(func() int64 { return *now })
	return engine, state, ledger
}

func TestAddDiscountValidation(t *testing.T) {
	now := int64(1_000)
	engine, _, _ := newTestEngine(&now)

	if err := engine.AddDiscount(payer, referrer, 0, 100, 50, 50, nil, nil, -1); !errors.Is(err, ErrNotMarketer) {
		t.Fatalf("expected ErrNotMarketer, got %v", err)
	}
	if err := engine.AddDiscount(marketer, types.ZeroAddress, 0, 100, 50, 50, nil, nil, -1); !errors.Is(err, ErrZeroReferrer) {
		t.Fatalf("expected ErrZeroReferrer, got %v", err)
	}
	if err := engine.AddDiscount(marketer, referrer, 100, 100, 50, 50, nil, nil, -1); !errors.Is(err, ErrWindowInverted) {
		t.Fatalf("expected ErrWindowInverted, got %v", err)
	}
	if err := engine.AddDiscount(marketer, referrer, 0, 100, 1001, 50, nil, nil, -1); !errors.Is(err, ErrBpsRange) {
		t.Fatalf("expected ErrBpsRange, got %v", err)
	}
	if err := engine.AddDiscount(marketer, referrer, 0, 100, 50, 50, []types.Address{provider}, nil, -1); !errors.Is(err, ErrListMismatch) {
		t.Fatalf("expected ErrListMismatch, got %v", err)
	}
	// A non-empty provider table must carry the default entry.
	if err := engine.AddDiscount(marketer, referrer, 0, 100, 50, 50, []types.Address{provider}, []uint32{100}, -1); !errors.Is(err, ErrNoDefaultEntry) {
		t.Fatalf("expected ErrNoDefaultEntry, got %v", err)
	}
	providers := []types.Address{DefaultProvider, provider}
	bps := []uint32{50, 100}
	if err := engine.AddDiscount(marketer, referrer, 0, 100, 50, 50, providers, bps, -1); err != nil {
		t.Fatalf("add discount: %v", err)
	}
	d, ok := engine.DiscountInfo(referrer)
	if !ok {
		t.Fatal("discount not stored")
	}
	if d.RemainingUses != UnlimitedUses {
		t.Fatalf("expected unlimited uses, got %d", d.RemainingUses)
	}
}

func TestReferrerDiscountProjection(t *testing.T) {
	now := int64(1_000)
	engine, _, _ := newTestEngine(&now)
	providers := []types.Address{DefaultProvider, provider}
	bps := []uint32{50, 100}
	if err := engine.AddDiscount(marketer, referrer, 500, 2_000, 200, 100, providers, bps, -1); err != nil {
		t.Fatalf("add discount: %v", err)
	}

	platformFee := big.NewInt(1000)
	providerFee := big.NewInt(2000)

	platDisc, provDisc, reward := engine.ReferrerDiscount(platformFee, providerFee, provider, referrer)
	if platDisc.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("platform discount %s", platDisc)
	}
	if provDisc.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("provider discount %s (override 10%%)", provDisc)
	}
	if reward.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("reward %s", reward)
	}

	// An unknown provider falls back to the default entry.
	other := addr(0x09)
	_, provDisc, _ = engine.ReferrerDiscount(platformFee, providerFee, other, referrer)
	if provDisc.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("default provider discount %s", provDisc)
	}

	// Outside the window the projection collapses to the standing baseline
	// (zero when none is configured).
	now = 3_000
	platDisc, provDisc, reward = engine.ReferrerDiscount(platformFee, providerFee, provider, referrer)
	if platDisc.Sign() != 0 || provDisc.Sign() != 0 || reward.Sign() != 0 {
		t.Fatalf("expected zero projection after expiry, got %s %s %s", platDisc, provDisc, reward)
	}
}

func TestDefaultDiscountBaseline(t *testing.T) {
	now := int64(1_000)
	engine, _, _ := newTestEngine(&now)
	if err := engine.SetDefaultDiscount(marketer, 100, 50); err != nil {
		t.Fatalf("set default: %v", err)
	}

	platDisc, provDisc, reward := engine.ReferrerDiscount(big.NewInt(1000), big.NewInt(2000), provider, referrer)
	if platDisc.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("baseline platform discount %s", platDisc)
	}
	if provDisc.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("baseline provider discount %s", provDisc)
	}
	if reward.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("baseline reward %s", reward)
	}
}

func TestApplyDiscountPaysFromBudget(t *testing.T) {
	now := int64(1_000)
	engine, _, ledger := newTestEngine(&now)
	providers := []types.Address{DefaultProvider}
	bps := []uint32{100}
	if err := engine.AddDiscount(marketer, referrer, 0, 2_000, 200, 100, providers, bps, 2); err != nil {
		t.Fatalf("add discount: %v", err)
	}

	platformFee := big.NewInt(1000)
	providerFee := big.NewInt(2000)
	// 20% of 1000 + 10% of 2000 to the payer, 10% of 1000 to the referrer.
	platDisc, provDisc, reward := engine.ReferrerDiscount(platformFee, providerFee, provider, referrer)
	if platDisc.Cmp(big.NewInt(200)) != 0 || provDisc.Cmp(big.NewInt(200)) != 0 || reward.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected projection %s %s %s", platDisc, provDisc, reward)
	}

	if err := engine.ApplyDiscount(payer, referrer, platDisc, provDisc, reward); !errors.Is(err, ErrInsufficientBudget) {
		t.Fatalf("expected ErrInsufficientBudget, got %v", err)
	}

	ledger.balances[engine.VaultAddress()] = big.NewInt(10_000)
	if err := engine.ApplyDiscount(payer, referrer, platDisc, provDisc, reward); err != nil {
		t.Fatalf("apply discount: %v", err)
	}
	if ledger.balance(payer).Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("payer credit %s", ledger.balance(payer))
	}
	if ledger.balance(referrer).Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("referrer credit %s", ledger.balance(referrer))
	}

	d, _ := engine.DiscountInfo(referrer)
	if d.RemainingUses != 1 {
		t.Fatalf("uses not consumed: %d", d.RemainingUses)
	}

	if err := engine.ApplyDiscount(payer, referrer, platDisc, provDisc, reward); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	d, _ = engine.DiscountInfo(referrer)
	if d.RemainingUses != 0 {
		t.Fatalf("uses not exhausted: %d", d.RemainingUses)
	}
	if d.ActiveAt(now) {
		t.Fatal("exhausted discount must be inactive")
	}
}

func TestApplyDiscountSettlesProjectedAmounts(t *testing.T) {
	now := int64(1_000)
	engine, _, ledger := newTestEngine(&now)
	providers := []types.Address{DefaultProvider}
	bps := []uint32{100}
	if err := engine.AddDiscount(marketer, referrer, 0, 2_000, 200, 100, providers, bps, 2); err != nil {
		t.Fatalf("add discount: %v", err)
	}
	ledger.balances[engine.VaultAddress()] = big.NewInt(10_000)

	platDisc, provDisc, reward := engine.ReferrerDiscount(big.NewInt(1000), big.NewInt(2000), provider, referrer)

	// The campaign expires between projection and settlement; the projected
	// amounts must still be what lands on the ledger.
	now = 3_000
	if err := engine.ApplyDiscount(payer, referrer, platDisc, provDisc, reward); err != nil {
		t.Fatalf("apply discount: %v", err)
	}
	if ledger.balance(payer).Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("payer credit %s", ledger.balance(payer))
	}
	if ledger.balance(referrer).Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("referrer credit %s", ledger.balance(referrer))
	}
	d, _ := engine.DiscountInfo(referrer)
	if d.RemainingUses != 1 {
		t.Fatalf("uses not consumed: %d", d.RemainingUses)
	}
}
