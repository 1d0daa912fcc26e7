package core

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ewill/config"
	"ewill/core/events"
	"ewill/core/types"
	"ewill/native/escrow"
	"ewill/native/finance"
	"ewill/native/marketing"
	"ewill/native/platform"
	"ewill/native/token"
	"ewill/native/treasury"
	"ewill/state"
	"ewill/storage"
)

// Module vault names. The deterministic addresses derived from them hold the
// pooled custody of each engine.
const (
	EscrowVaultName    = "escrow"
	TreasuryVaultName  = "treasury"
	MarketingVaultName = "marketing"
	FinanceVaultName   = "finance"
)

// Node owns the world state and every settlement engine wired over it. All
// mutating entry points go through WithWrite so a mutation and its snapshot
// persist atomically with respect to other callers.
type Node struct {
	mu sync.Mutex

	cfg      *config.Config
	db       storage.Database
	state    *state.Manager
	recorder *events.Recorder
	logger   *slog.Logger

	Ledger    *token.Ledger
	Escrow    *escrow.Engine
	Treasury  *treasury.Engine
	Marketing *marketing.Engine
	Finance   *finance.Engine
	Platform  *platform.Engine
}

// NewNode builds a fully wired node over the given database, restoring any
// persisted snapshot.
func NewNode(cfg *config.Config, db storage.Database, logger *slog.Logger) (*Node, error) {
	if logger == nil {
		logger = slog.Default()
	}
	manager := state.NewManager()
	if err := manager.Load(db); err != nil {
		return nil, err
	}

	n := &Node{
		cfg:      cfg,
		db:       db,
		state:    manager,
		recorder: events.NewRecorder(1024),
		logger:   logger,
	}

	emitter := events.Multi{n.recorder, logEmitter{logger}}

	ledger := token.NewLedger()
	ledger.SetState(manager)
	ledger.SetOwner(cfg.Owner())
	ledger.SetEmitter(emitter)

	escrowEngine := escrow.NewEngine(types.ModuleAddress(EscrowVaultName))
	escrowEngine.SetState(manager)
	escrowEngine.SetLedger(ledger)
	escrowEngine.SetAdmin(cfg.Admin())
	escrowEngine.SetEmitter(emitter)

	treasuryEngine := treasury.NewEngine(types.ModuleAddress(TreasuryVaultName))
	treasuryEngine.SetState(manager)
	treasuryEngine.SetLedger(ledger)
	treasuryEngine.SetAdmin(cfg.Admin())
	treasuryEngine.SetEmitter(emitter)

	marketingEngine := marketing.NewEngine(types.ModuleAddress(MarketingVaultName))
	marketingEngine.SetState(manager)
	marketingEngine.SetLedger(ledger)
	marketingEngine.SetMarketer(cfg.Marketer())
	marketingEngine.SetEmitter(emitter)

	financeEngine := finance.NewEngine(types.ModuleAddress(FinanceVaultName))
	financeEngine.SetState(manager)
	financeEngine.SetLedger(ledger)
	financeEngine.SetEscrow(escrowEngine)
	financeEngine.SetTreasury(treasuryEngine)
	financeEngine.SetMarketing(marketingEngine)
	financeEngine.SetAdmin(cfg.Admin())
	financeEngine.SetEmitter(emitter)

	platformEngine := platform.NewEngine()
	platformEngine.SetState(manager)
	platformEngine.SetBilling(financeEngine)
	platformEngine.SetDirectory(escrowEngine)
	platformEngine.SetEmitter(emitter)

	n.Ledger = ledger
	n.Escrow = escrowEngine
	n.Treasury = treasuryEngine
	n.Marketing = marketingEngine
	n.Finance = financeEngine
	n.Platform = platformEngine

	if err := n.applyConfig(); err != nil {
		return nil, err
	}
	return n, nil
}

// applyConfig pushes the static billing parameters into the engines and
// allow-lists the module vaults so they can pull fees from holders.
func (n *Node) applyConfig() error {
	admin := n.cfg.Admin()
	if err := n.Finance.SetExchangeRates(admin, n.cfg.TokenRate(), n.cfg.EtherRate()); err != nil {
		return fmt.Errorf("node: exchange rates: %w", err)
	}
	if err := n.Finance.SetExchangeFee(admin, n.cfg.ExchangeFeeBps); err != nil {
		return fmt.Errorf("node: exchange fee: %w", err)
	}
	if err := n.Finance.SetAnnualPlatformFee(admin, n.cfg.AnnualPlatformFeeCents); err != nil {
		return fmt.Errorf("node: platform fee: %w", err)
	}
	if err := n.Finance.SetReferrerDiscount(admin, n.cfg.ReferrerDiscountBps); err != nil {
		return fmt.Errorf("node: referrer discount: %w", err)
	}
	if err := n.Escrow.SetMinProviderFund(admin, n.cfg.MinProviderFund()); err != nil {
		return fmt.Errorf("node: min provider fund: %w", err)
	}
	if n.cfg.TreasuryWithdrawalSeconds > 0 {
		n.Treasury.SetWithdrawalInterval(time.Duration(n.cfg.TreasuryWithdrawalSeconds) * time.Second)
	}
	if err := n.Treasury.SetMinLockedFund(admin, n.cfg.TreasuryMinLockedFund()); err != nil {
		return fmt.Errorf("node: treasury min locked fund: %w", err)
	}

	owner := n.cfg.Owner()
	for _, vault := range []string{EscrowVaultName, TreasuryVaultName, MarketingVaultName, FinanceVaultName} {
		if err := n.Ledger.AddMerchant(owner, types.ModuleAddress(vault)); err != nil {
			return fmt.Errorf("node: allow-list %s vault: %w", vault, err)
		}
	}
	return nil
}

// ApplyGenesis seeds the initial world state exactly once: the one-time
// issuance split across the allocations, the merchant allow-list and any
// seeded ether balances. A node with an existing supply skips issuance.
func (n *Node) ApplyGenesis(gen *config.Genesis) error {
	if gen == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	supply, err := n.Ledger.TotalSupply()
	if err != nil {
		return err
	}
	if supply.Sign() > 0 {
		// Issuance already happened; a restarted node must not re-seed.
		return nil
	}

	total, err := gen.TotalSupply()
	if err != nil {
		return err
	}
	if total.Sign() > 0 {
		owner := n.cfg.Owner()
		if err := n.Ledger.Issue(owner, total); err != nil {
			return err
		}
		alloc, err := gen.TokenAllocations()
		if err != nil {
			return err
		}
		for addr, amount := range alloc {
			if addr == owner || amount.Sign() == 0 {
				continue
			}
			if err := n.Ledger.Transfer(owner, addr, amount); err != nil {
				return fmt.Errorf("node: genesis allocation for %s: %w", addr.Hex(), err)
			}
		}
	}

	merchants, err := gen.MerchantAddresses()
	if err != nil {
		return err
	}
	for _, merchant := range merchants {
		if err := n.Ledger.AddMerchant(n.cfg.Owner(), merchant); err != nil {
			return err
		}
	}

	etherAlloc, err := gen.EtherAllocations()
	if err != nil {
		return err
	}
	for addr, amount := range etherAlloc {
		if amount.Sign() == 0 {
			continue
		}
		if err := n.Finance.DepositEther(addr, amount); err != nil {
			return err
		}
	}
	return n.state.Persist(n.db)
}

// WithWrite runs fn under the node's write lock and persists a snapshot when
// it succeeds. Engines validate before committing, so a failed fn leaves the
// in-memory state unchanged and nothing is persisted.
func (n *Node) WithWrite(fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	return n.state.Persist(n.db)
}

// Events returns the most recent settlement events, oldest first, in their
// canonical attribute form.
func (n *Node) Events() []*types.Event {
	recorded := n.recorder.Events()
	out := make([]*types.Event, 0, len(recorded))
	for _, evt := range recorded {
		out = append(out, canonicalEvent(evt))
	}
	return out
}

func canonicalEvent(evt events.Event) *types.Event {
	if payload, ok := evt.(interface{ Event() *types.Event }); ok {
		return payload.Event()
	}
	return &types.Event{Type: evt.EventType()}
}

// State exposes the world state for read-only queries.
func (n *Node) State() *state.Manager { return n.state }

// Close releases the underlying database.
func (n *Node) Close() {
	n.db.Close()
}

// logEmitter mirrors every settlement event into the structured log.
type logEmitter struct {
	logger *slog.Logger
}

func (l logEmitter) Emit(evt events.Event) {
	if l.logger == nil || evt == nil {
		return
	}
	payload := canonicalEvent(evt)
	attrs := make([]any, 0, 2+2*len(payload.Attributes))
	attrs = append(attrs, "type", payload.Type)
	for k, v := range payload.Attributes {
		attrs = append(attrs, k, v)
	}
	l.logger.Debug("event", attrs...)
}
