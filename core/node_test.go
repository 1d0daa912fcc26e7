package core

import (
	"errors"
	"math/big"
	"testing"

	"ewill/config"
	"ewill/core/types"
	"ewill/native/escrow"
	"ewill/native/marketing"
	"ewill/native/platform"
	"ewill/native/treasury"
	"ewill/storage"
)

func addr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

var (
	ownerAddr    = addr(0xAA)
	adminAddr    = addr(0xAB)
	marketerAddr = addr(0xAC)
	payerAddr    = addr(0x01)
	providerAddr = addr(0x02)
	delegateAddr = addr(0x03)
	beneficiary  = addr(0x04)
	referrerAddr = addr(0x05)
)

// tokens converts cents at the 100 wei/cent test rate.
func tokens(cents int64) *big.Int {
	return big.NewInt(cents * 100)
}

func testConfig() *config.Config {
	return &config.Config{
		OwnerAddress:              ownerAddr.Hex(),
		AdminAddress:              adminAddr.Hex(),
		MarketerAddress:           marketerAddr.Hex(),
		AnnualPlatformFeeCents:    500,
		TokenRateWeiPerCent:       "100",
		EtherRateWeiPerCent:       "10",
		MinProviderFundWei:        "0",
		TreasuryWithdrawalSeconds: 30 * 24 * 3600,
		TreasuryMinLockedFundWei:  "0",
	}
}

func testGenesis() *config.Genesis {
	return &config.Genesis{
		Alloc: map[string]string{
			ownerAddr.Hex(): "1000000",
			payerAddr.Hex(): "1000000",
		},
	}
}

// newTestNode boots a node over the database with a controllable clock shared
// by every engine.
func newTestNode(t *testing.T, db storage.Database, now *int64) *Node {
	t.Helper()
	n, err := NewNode(testConfig(), db, nil)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	clock := func() int64 { return *now }
	n.Platform.SetNowFunc(clock)
	n.Escrow.SetNowFunc(clock)
	n.Treasury.SetNowFunc(clock)
	n.Marketing.SetNowFunc(clock)
	return n
}

func registerProvider(t *testing.T, n *Node) {
	t.Helper()
	err := n.WithWrite(func() error {
		if err := n.Escrow.Register(providerAddr, 2000, 7, delegateAddr); err != nil {
			return err
		}
		return n.Escrow.ActivateProvider(adminAddr, providerAddr, escrow.ProviderWhitelisted)
	})
	if err != nil {
		t.Fatalf("register provider: %v", err)
	}
}

func balance(t *testing.T, n *Node, a types.Address) *big.Int {
	t.Helper()
	bal, err := n.Ledger.BalanceOf(a)
	if err != nil {
		t.Fatalf("balance of %s: %v", a.Hex(), err)
	}
	return bal
}

func TestWillLifecycle(t *testing.T) {
	db := storage.NewMemDB()
	now := int64(1_700_000_000)
	n := newTestNode(t, db, &now)
	if err := n.ApplyGenesis(testGenesis()); err != nil {
		t.Fatalf("apply genesis: %v", err)
	}
	registerProvider(t, n)

	id := platform.WillID(providerAddr, 1)
	err := n.WithWrite(func() error {
		return n.Platform.CreateWill(payerAddr, id, "estate", 0, 1, platform.BeneficiaryHash(beneficiary), providerAddr, types.ZeroAddress, nil)
	})
	if err != nil {
		t.Fatalf("create will: %v", err)
	}

	// One prepaid year: 2000 cents provider fee plus 500 cents platform fee.
	if got := balance(t, n, payerAddr); got.Cmp(tokens(10_000-2_500)) != 0 {
		t.Fatalf("payer balance %s", got)
	}
	if got := balance(t, n, types.ModuleAddress(EscrowVaultName)); got.Cmp(tokens(2_000)) != 0 {
		t.Fatalf("escrow vault %s", got)
	}
	treasuryBal, err := n.Treasury.Balance()
	if err != nil {
		t.Fatalf("treasury balance: %v", err)
	}
	if treasuryBal.Cmp(tokens(500)) != 0 {
		t.Fatalf("treasury vault %s", treasuryBal)
	}

	if err := n.WithWrite(func() error { return n.Platform.ActivateWill(delegateAddr, id) }); err != nil {
		t.Fatalf("activate: %v", err)
	}

	now += platform.PeriodLength
	if err := n.WithWrite(func() error { return n.Platform.RefreshWill(delegateAddr, id, true) }); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	p, err := n.Escrow.ProviderInfo(providerAddr)
	if err != nil {
		t.Fatalf("provider info: %v", err)
	}
	// One period of the 200_000-wei annual fee vested.
	if p.Fund.Cmp(big.NewInt(16_666)) != 0 {
		t.Fatalf("provider fund after refresh %s", p.Fund)
	}

	if err := n.WithWrite(func() error { return n.Platform.ApplyWill(delegateAddr, id, beneficiary) }); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := n.WithWrite(func() error { return n.Platform.ClaimWill(beneficiary, id) }); err != nil {
		t.Fatalf("claim: %v", err)
	}
	w, err := n.Platform.WillByID(id)
	if err != nil {
		t.Fatalf("will by id: %v", err)
	}
	if w.State != platform.WillClaimed || w.Beneficiary != beneficiary {
		t.Fatalf("record after claim %+v", w)
	}
	// Eleven remaining periods vested on claim: 200_000*11/12 on top of the
	// refresh vest.
	p, _ = n.Escrow.ProviderInfo(providerAddr)
	if p.Fund.Cmp(big.NewInt(16_666+183_333)) != 0 {
		t.Fatalf("provider fund after claim %s", p.Fund)
	}

	// Everything above was snapshotted; a fresh node over the same database
	// resumes where this one stopped, and genesis does not re-seed.
	reopened, err := NewNode(testConfig(), db, nil)
	if err != nil {
		t.Fatalf("reopen node: %v", err)
	}
	if err := reopened.ApplyGenesis(testGenesis()); err != nil {
		t.Fatalf("re-apply genesis: %v", err)
	}
	supply, err := reopened.Ledger.TotalSupply()
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}
	if supply.Cmp(tokens(20_000)) != 0 {
		t.Fatalf("supply after reopen %s", supply)
	}
	w2, err := reopened.Platform.WillByID(id)
	if err != nil {
		t.Fatalf("will after reopen: %v", err)
	}
	if w2.State != platform.WillClaimed {
		t.Fatalf("state after reopen %s", w2.State)
	}
	p2, err := reopened.Escrow.ProviderInfo(providerAddr)
	if err != nil {
		t.Fatalf("provider after reopen: %v", err)
	}
	if p2.Fund.Cmp(p.Fund) != 0 {
		t.Fatalf("fund after reopen %s", p2.Fund)
	}
}

func TestDeleteWillRefund(t *testing.T) {
	db := storage.NewMemDB()
	now := int64(1_700_000_000)
	n := newTestNode(t, db, &now)
	if err := n.ApplyGenesis(testGenesis()); err != nil {
		t.Fatalf("apply genesis: %v", err)
	}
	registerProvider(t, n)

	id := platform.WillID(providerAddr, 1)
	err := n.WithWrite(func() error {
		return n.Platform.CreateWill(payerAddr, id, "", 0, 1, platform.BeneficiaryHash(beneficiary), providerAddr, types.ZeroAddress, nil)
	})
	if err != nil {
		t.Fatalf("create will: %v", err)
	}
	if err := n.WithWrite(func() error { return n.Platform.ActivateWill(delegateAddr, id) }); err != nil {
		t.Fatalf("activate: %v", err)
	}

	// Half the term served: six whole periods of the provider fee refund.
	now += platform.OneYear / 2
	if err := n.WithWrite(func() error { return n.Platform.DeleteWill(payerAddr, id) }); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := balance(t, n, payerAddr); got.Cmp(tokens(10_000-2_500+1_000)) != 0 {
		t.Fatalf("payer balance after refund %s", got)
	}
	if got := balance(t, n, types.ModuleAddress(EscrowVaultName)); got.Cmp(tokens(2_000-1_000)) != 0 {
		t.Fatalf("escrow vault after refund %s", got)
	}
	w, _ := n.Platform.WillByID(id)
	if w.State != platform.WillDeleted {
		t.Fatalf("state %s", w.State)
	}
}

func TestCampaignDiscountFlow(t *testing.T) {
	db := storage.NewMemDB()
	now := int64(1_700_000_000)
	n := newTestNode(t, db, &now)
	if err := n.ApplyGenesis(testGenesis()); err != nil {
		t.Fatalf("apply genesis: %v", err)
	}
	registerProvider(t, n)

	marketingVault := types.ModuleAddress(MarketingVaultName)
	err := n.WithWrite(func() error {
		if err := n.Ledger.Transfer(ownerAddr, marketingVault, tokens(1_000)); err != nil {
			return err
		}
		return n.Marketing.AddDiscount(
			marketerAddr, referrerAddr,
			now-10, now+platform.OneYear,
			100, 50,
			[]types.Address{marketing.DefaultProvider}, []uint32{100},
			marketing.UnlimitedUses,
		)
	})
	if err != nil {
		t.Fatalf("campaign setup: %v", err)
	}

	id := platform.WillID(providerAddr, 1)
	err = n.WithWrite(func() error {
		return n.Platform.CreateWill(payerAddr, id, "", 0, 1, platform.BeneficiaryHash(beneficiary), providerAddr, referrerAddr, nil)
	})
	if err != nil {
		t.Fatalf("create will: %v", err)
	}

	// 10% off both fees lands on the payer, the 5% platform-fee reward on the
	// referrer, all paid from the campaign budget. The vaults keep their full
	// shares.
	if got := balance(t, n, payerAddr); got.Cmp(tokens(10_000-2_500+250)) != 0 {
		t.Fatalf("payer balance %s", got)
	}
	if got := balance(t, n, referrerAddr); got.Cmp(tokens(25)) != 0 {
		t.Fatalf("referrer balance %s", got)
	}
	if got := balance(t, n, marketingVault); got.Cmp(tokens(1_000-250-25)) != 0 {
		t.Fatalf("marketing vault %s", got)
	}
	if got := balance(t, n, types.ModuleAddress(EscrowVaultName)); got.Cmp(tokens(2_000)) != 0 {
		t.Fatalf("escrow vault %s", got)
	}
	treasuryBal, _ := n.Treasury.Balance()
	if treasuryBal.Cmp(tokens(500)) != 0 {
		t.Fatalf("treasury vault %s", treasuryBal)
	}
}

func TestTreasuryWithdrawalThrottle(t *testing.T) {
	db := storage.NewMemDB()
	now := int64(1_700_000_000)
	n := newTestNode(t, db, &now)
	if err := n.ApplyGenesis(testGenesis()); err != nil {
		t.Fatalf("apply genesis: %v", err)
	}
	registerProvider(t, n)

	id := platform.WillID(providerAddr, 1)
	err := n.WithWrite(func() error {
		return n.Platform.CreateWill(payerAddr, id, "", 0, 1, platform.BeneficiaryHash(beneficiary), providerAddr, types.ZeroAddress, nil)
	})
	if err != nil {
		t.Fatalf("create will: %v", err)
	}

	recipient := addr(0x66)
	err = n.WithWrite(func() error {
		return n.Treasury.PayOperationalExpenses(adminAddr, recipient, tokens(250))
	})
	if err != nil {
		t.Fatalf("first withdrawal: %v", err)
	}
	if got := balance(t, n, recipient); got.Cmp(tokens(250)) != 0 {
		t.Fatalf("recipient balance %s", got)
	}

	err = n.WithWrite(func() error {
		return n.Treasury.PayOperationalExpenses(adminAddr, recipient, tokens(10))
	})
	if !errors.Is(err, treasury.ErrTooFrequent) {
		t.Fatalf("expected ErrTooFrequent, got %v", err)
	}

	now += 30 * 24 * 3600
	err = n.WithWrite(func() error {
		return n.Treasury.PayOperationalExpenses(adminAddr, recipient, tokens(10))
	})
	if err != nil {
		t.Fatalf("withdrawal after window: %v", err)
	}
}
