package platform

import (
	"errors"
	"math/big"
	"testing"

	"ewill/core/types"
)

type mockState struct {
	wills     map[[32]byte]*Will
	userWills map[types.Address][][32]byte
}

func newMockState() *mockState {
	return &mockState{
		wills:     make(map[[32]byte]*Will),
		userWills: make(map[types.Address][][32]byte),
	}
}

func (m *mockState) WillGet(id [32]byte) (*Will, bool) {
	w, ok := m.wills[id]
	if !ok {
		return nil, false
	}
	return w.Clone(), true
}

func (m *mockState) WillPut(w *Will) error {
	m.wills[w.ID] = w.Clone()
	return nil
}

func (m *mockState) UserWills(owner types.Address) [][32]byte {
	return m.userWills[owner]
}

func (m *mockState) AppendUserWill(owner types.Address, id [32]byte) error {
	m.userWills[owner] = append(m.userWills[owner], id)
	return nil
}

// mockBilling records every settlement call the lifecycle makes.
type mockBilling struct {
	tokenRate *big.Int
	chargeErr error

	charges     int
	chargeYears uint64
	refunded    uint64
	rewarded    *big.Int
}

func newMockBilling() *mockBilling {
	return &mockBilling{tokenRate: big.NewInt(1_000_000), rewarded: big.NewInt(0)}
}

func (m *mockBilling) Charge(_, _, _ types.Address, years uint64, _ *big.Int, _ [32]byte) error {
	if m.chargeErr != nil {
		return m.chargeErr
	}
	m.charges++
	m.chargeYears += years
	return nil
}

func (m *mockBilling) Refund(_ types.Address, amountCents uint64, _ [32]byte) error {
	m.refunded += amountCents
	return nil
}

func (m *mockBilling) Reward(_ types.Address, amountTokens *big.Int, _ [32]byte) error {
	m.rewarded.Add(m.rewarded, amountTokens)
	return nil
}

func (m *mockBilling) CentsToTokens(cents uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(cents), m.tokenRate)
}

type mockDirectory struct {
	valid     map[types.Address]bool
	annualFee uint64
	delegates map[types.Address]types.Address
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		valid:     make(map[types.Address]bool),
		annualFee: 2400,
		delegates: make(map[types.Address]types.Address),
	}
}

func (m *mockDirectory) IsProviderValid(provider types.Address) bool { return m.valid[provider] }

func (m *mockDirectory) AnnualFee(types.Address) (uint64, error) { return m.annualFee, nil }

func (m *mockDirectory) DelegateFor(provider types.Address) (types.Address, error) {
	delegate, ok := m.delegates[provider]
	if !ok {
		return types.Address{}, errors.New("mock directory: unknown provider")
	}
	return delegate, nil
}

func addr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

var (
	owner       = addr(0x01)
	provider    = addr(0x02)
	delegate    = addr(0x03)
	beneficiary = addr(0x04)
)

type fixture struct {
	engine    *Engine
	state     *mockState
	billing   *mockBilling
	directory *mockDirectory
	now       int64
}

func newFixture() *fixture {
	f := &fixture{
		state:     newMockState(),
		billing:   newMockBilling(),
		directory: newMockDirectory(),
		now:       1_000_000,
	}
	f.directory.valid[provider] = true
	f.directory.delegates[provider] = delegate
	engine := NewEngine()
	engine.SetState(f.state)
	engine.SetBilling(f.billing)
	engine.SetDirectory(f.directory)
	engine.SetNowFunc(func() int64 { return f.now })
	f.engine = engine
	return f
}

func (f *fixture) create(t *testing.T, years uint64) [32]byte {
	t.Helper()
	id := WillID(provider, 1)
	hash := BeneficiaryHash(beneficiary)
	if err := f.engine.CreateWill(owner, id, "family estate", 9, years, hash, provider, types.ZeroAddress, nil); err != nil {
		t.Fatalf("create will: %v", err)
	}
	return id
}

func (f *fixture) createActivated(t *testing.T, years uint64) [32]byte {
	t.Helper()
	id := f.create(t, years)
	if err := f.engine.ActivateWill(delegate, id); err != nil {
		t.Fatalf("activate will: %v", err)
	}
	return id
}

func TestWillIDBindsProvider(t *testing.T) {
	other := addr(0x07)
	if WillID(provider, 1) == WillID(other, 1) {
		t.Fatal("identifiers must differ across providers for the same nonce")
	}
	if WillID(provider, 1) == WillID(provider, 2) {
		t.Fatal("identifiers must differ across nonces")
	}
}

func TestCreateWill(t *testing.T) {
	f := newFixture()
	id := f.create(t, 3)

	w, err := f.engine.WillByID(id)
	if err != nil {
		t.Fatalf("will by id: %v", err)
	}
	if w.State != WillCreated {
		t.Fatalf("state %s", w.State)
	}
	if w.ValidTill != f.now+3*OneYear {
		t.Fatalf("valid till %d", w.ValidTill)
	}
	if w.RefreshedAt != f.now || w.YearsPaid != 3 {
		t.Fatalf("record %+v", w)
	}
	if f.billing.charges != 1 || f.billing.chargeYears != 3 {
		t.Fatalf("billing calls %d years %d", f.billing.charges, f.billing.chargeYears)
	}
	ids := f.engine.WillsOf(owner)
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("owner index %v", ids)
	}

	if err := f.engine.CreateWill(owner, id, "", 0, 1, BeneficiaryHash(beneficiary), provider, types.ZeroAddress, nil); !errors.Is(err, ErrWillExists) {
		t.Fatalf("expected ErrWillExists, got %v", err)
	}
}

func TestCreateWillValidation(t *testing.T) {
	f := newFixture()
	id := WillID(provider, 2)
	hash := BeneficiaryHash(beneficiary)

	if err := f.engine.CreateWill(owner, id, "", 0, 0, hash, provider, types.ZeroAddress, nil); !errors.Is(err, ErrInvalidYears) {
		t.Fatalf("expected ErrInvalidYears, got %v", err)
	}
	if err := f.engine.CreateWill(owner, id, "", 0, MaxYears+1, hash, provider, types.ZeroAddress, nil); !errors.Is(err, ErrInvalidYears) {
		t.Fatalf("expected ErrInvalidYears above cap, got %v", err)
	}
	invalid := addr(0x55)
	if err := f.engine.CreateWill(owner, id, "", 0, 1, hash, invalid, types.ZeroAddress, nil); !errors.Is(err, ErrProviderInvalid) {
		t.Fatalf("expected ErrProviderInvalid, got %v", err)
	}
	f.billing.chargeErr = errors.New("payment declined")
	if err := f.engine.CreateWill(owner, id, "", 0, 1, hash, provider, types.ZeroAddress, nil); err == nil {
		t.Fatal("expected charge failure to abort creation")
	}
	if _, err := f.engine.WillByID(id); !errors.Is(err, ErrWillNotFound) {
		t.Fatal("failed creation must not store a record")
	}
}

func TestActivateWillDelegateOnly(t *testing.T) {
	f := newFixture()
	id := f.create(t, 1)

	if err := f.engine.ActivateWill(owner, id); !errors.Is(err, ErrNotDelegate) {
		t.Fatalf("expected ErrNotDelegate, got %v", err)
	}
	if err := f.engine.ActivateWill(delegate, id); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := f.engine.ActivateWill(delegate, id); !errors.Is(err, ErrBadState) {
		t.Fatalf("expected ErrBadState on double activate, got %v", err)
	}
}

func TestApplyAndClaim(t *testing.T) {
	f := newFixture()
	id := f.createActivated(t, 2)

	if err := f.engine.ApplyWill(delegate, id, beneficiary); err != nil {
		t.Fatalf("apply: %v", err)
	}
	w, _ := f.engine.WillByID(id)
	if w.State != WillPending || w.Beneficiary != beneficiary {
		t.Fatalf("record after apply %+v", w)
	}

	if err := f.engine.ClaimWill(owner, id); !errors.Is(err, ErrNotBeneficiary) {
		t.Fatalf("expected ErrNotBeneficiary, got %v", err)
	}

	// One year into a two-year term: 12 whole periods remain (365 days at
	// 30-day periods), so one year of fees vests back to the provider.
	f.now += OneYear
	if err := f.engine.ClaimWill(beneficiary, id); err != nil {
		t.Fatalf("claim: %v", err)
	}
	w, _ = f.engine.WillByID(id)
	if w.State != WillClaimed {
		t.Fatalf("state %s", w.State)
	}
	annualTokens := f.billing.CentsToTokens(f.directory.annualFee)
	want := new(big.Int).Mul(annualTokens, big.NewInt(12))
	want.Quo(want, big.NewInt(PeriodsPerYear))
	if f.billing.rewarded.Cmp(want) != 0 {
		t.Fatalf("vested %s, want %s", f.billing.rewarded, want)
	}
}

func TestClaimAfterExpiryVestsNothing(t *testing.T) {
	f := newFixture()
	id := f.createActivated(t, 1)
	if err := f.engine.ApplyWill(delegate, id, beneficiary); err != nil {
		t.Fatalf("apply: %v", err)
	}
	f.now += OneYear + PeriodLength
	if err := f.engine.ClaimWill(beneficiary, id); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if f.billing.rewarded.Sign() != 0 {
		t.Fatalf("expired claim vested %s", f.billing.rewarded)
	}
}

func TestRefreshWill(t *testing.T) {
	f := newFixture()
	id := f.createActivated(t, 1)

	if err := f.engine.RefreshWill(delegate, id, true); !errors.Is(err, ErrRefreshTooSoon) {
		t.Fatalf("expected ErrRefreshTooSoon, got %v", err)
	}

	f.now += PeriodLength
	if err := f.engine.RefreshWill(owner, id, true); !errors.Is(err, ErrNotDelegate) {
		t.Fatalf("expected ErrNotDelegate, got %v", err)
	}
	if err := f.engine.RefreshWill(delegate, id, true); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	want := new(big.Int).Quo(f.billing.CentsToTokens(f.directory.annualFee), big.NewInt(PeriodsPerYear))
	if f.billing.rewarded.Cmp(want) != 0 {
		t.Fatalf("vested %s, want %s", f.billing.rewarded, want)
	}
	w, _ := f.engine.WillByID(id)
	if w.RefreshedAt != f.now || !w.AutoRenew {
		t.Fatalf("record after refresh %+v", w)
	}

	// A second refresh inside the same period is rejected.
	f.now += PeriodLength - 1
	if err := f.engine.RefreshWill(delegate, id, true); !errors.Is(err, ErrRefreshTooSoon) {
		t.Fatalf("expected ErrRefreshTooSoon, got %v", err)
	}

	// Past expiry the will can no longer be serviced.
	f.now += OneYear
	if err := f.engine.RefreshWill(delegate, id, true); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestProlongWillWindow(t *testing.T) {
	f := newFixture()
	id := f.createActivated(t, 1)
	created := f.now

	if err := f.engine.ProlongWill(owner, id, 1, nil); !errors.Is(err, ErrOutsideProlongWindow) {
		t.Fatalf("expected ErrOutsideProlongWindow, got %v", err)
	}

	f.now = created + OneYear - PeriodLength/2
	if err := f.engine.ProlongWill(delegate, id, 1, nil); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := f.engine.ProlongWill(owner, id, 0, nil); !errors.Is(err, ErrInvalidYears) {
		t.Fatalf("expected ErrInvalidYears, got %v", err)
	}
	if err := f.engine.ProlongWill(owner, id, MaxYears+1, nil); !errors.Is(err, ErrInvalidYears) {
		t.Fatalf("expected ErrInvalidYears above cap, got %v", err)
	}
	if err := f.engine.ProlongWill(owner, id, 2, nil); err != nil {
		t.Fatalf("prolong: %v", err)
	}
	w, _ := f.engine.WillByID(id)
	if w.ValidTill != created+3*OneYear {
		t.Fatalf("valid till %d", w.ValidTill)
	}
	if w.YearsPaid != 3 {
		t.Fatalf("years paid %d", w.YearsPaid)
	}
	if f.billing.charges != 2 {
		t.Fatalf("billing charges %d", f.billing.charges)
	}

	// After expiry the window is closed.
	f.now = w.ValidTill + 1
	if err := f.engine.ProlongWill(owner, id, 1, nil); !errors.Is(err, ErrOutsideProlongWindow) {
		t.Fatalf("expected ErrOutsideProlongWindow after expiry, got %v", err)
	}
}

func TestDeleteWillRefundsWholePeriods(t *testing.T) {
	f := newFixture()
	id := f.createActivated(t, 1)

	if err := f.engine.DeleteWill(delegate, id); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	// Half a year in: 6 whole periods remain of the 12 paid.
	f.now += OneYear / 2
	if err := f.engine.DeleteWill(owner, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	w, _ := f.engine.WillByID(id)
	if w.State != WillDeleted {
		t.Fatalf("state %s", w.State)
	}
	if f.billing.refunded != f.directory.annualFee*6/12 {
		t.Fatalf("refunded %d cents", f.billing.refunded)
	}

	if err := f.engine.DeleteWill(owner, id); !errors.Is(err, ErrBadState) {
		t.Fatalf("expected ErrBadState on double delete, got %v", err)
	}
}

func TestRejectWillRequiresExpiry(t *testing.T) {
	f := newFixture()
	id := f.createActivated(t, 1)

	if err := f.engine.RejectWill(delegate, id); !errors.Is(err, ErrNotExpired) {
		t.Fatalf("expected ErrNotExpired, got %v", err)
	}
	f.now += OneYear + 1
	if err := f.engine.RejectWill(owner, id); !errors.Is(err, ErrNotDelegate) {
		t.Fatalf("expected ErrNotDelegate, got %v", err)
	}
	if err := f.engine.RejectWill(delegate, id); err != nil {
		t.Fatalf("reject: %v", err)
	}
	w, _ := f.engine.WillByID(id)
	if w.State != WillRejected {
		t.Fatalf("state %s", w.State)
	}
}

func TestRejectLeavesPendingClaimOpen(t *testing.T) {
	f := newFixture()
	id := f.createActivated(t, 1)
	if err := f.engine.ApplyWill(delegate, id, beneficiary); err != nil {
		t.Fatalf("apply: %v", err)
	}
	f.now += OneYear + 1
	if err := f.engine.RejectWill(delegate, id); !errors.Is(err, ErrBadState) {
		t.Fatalf("expected ErrBadState, got %v", err)
	}
	if err := f.engine.ClaimWill(beneficiary, id); err != nil {
		t.Fatalf("claim after failed reject: %v", err)
	}
	w, _ := f.engine.WillByID(id)
	if w.State != WillClaimed {
		t.Fatalf("state %s", w.State)
	}
}
