package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"ewill/core/types"
	"ewill/native/escrow"
	"ewill/native/marketing"
	"ewill/native/platform"
	"ewill/storage"
)

var snapshotKey = []byte("state/snapshot")

// snapshot is the JSON-serializable projection of the world state. Maps keyed
// by 32-byte identifiers are flattened to slices; the manager rebuilds the
// indexes on load.
type snapshot struct {
	Accounts               map[types.Address]*types.Account `json:"accounts"`
	TokenSupply            *big.Int                         `json:"tokenSupply"`
	Merchants              []types.Address                  `json:"merchants"`
	Providers              []*escrow.Provider               `json:"providers"`
	Delegates              map[types.Address]types.Address  `json:"delegates"`
	Discounts              []*marketing.Discount            `json:"discounts"`
	Wills                  []*platform.Will                 `json:"wills"`
	UserWills              map[types.Address][][32]byte     `json:"userWills"`
	EtherBalances          map[types.Address]*big.Int       `json:"etherBalances"`
	TreasuryLastWithdrawal int64                            `json:"treasuryLastWithdrawal"`
}

// Persist writes the current world state to the database as a single
// snapshot record.
func (m *Manager) Persist(db storage.Database) error {
	m.mu.RLock()
	snap := snapshot{
		Accounts:               make(map[types.Address]*types.Account, len(m.accounts)),
		TokenSupply:            new(big.Int).Set(m.tokenSupply),
		Merchants:              make([]types.Address, 0, len(m.merchants)),
		Providers:              make([]*escrow.Provider, 0, len(m.providers)),
		Delegates:              make(map[types.Address]types.Address, len(m.delegates)),
		Discounts:              make([]*marketing.Discount, 0, len(m.discounts)),
		Wills:                  make([]*platform.Will, 0, len(m.wills)),
		UserWills:              make(map[types.Address][][32]byte, len(m.userWills)),
		EtherBalances:          make(map[types.Address]*big.Int, len(m.etherBalances)),
		TreasuryLastWithdrawal: m.treasuryLastWithdrawal,
	}
	for addr, acc := range m.accounts {
		snap.Accounts[addr] = acc.Clone()
	}
	for addr := range m.merchants {
		snap.Merchants = append(snap.Merchants, addr)
	}
	for _, p := range m.providers {
		snap.Providers = append(snap.Providers, p.Clone())
	}
	for delegate, provider := range m.delegates {
		snap.Delegates[delegate] = provider
	}
	for _, d := range m.discounts {
		snap.Discounts = append(snap.Discounts, d.Clone())
	}
	for _, w := range m.wills {
		snap.Wills = append(snap.Wills, w.Clone())
	}
	for owner, ids := range m.userWills {
		out := make([][32]byte, len(ids))
		copy(out, ids)
		snap.UserWills[owner] = out
	}
	for addr, bal := range m.etherBalances {
		snap.EtherBalances[addr] = new(big.Int).Set(bal)
	}
	m.mu.RUnlock()

	raw, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("state: encode snapshot: %w", err)
	}
	return db.Put(snapshotKey, raw)
}

// Load replaces the world state with the snapshot stored in the database. A
// missing snapshot leaves the manager empty and is not an error, so a fresh
// data directory boots cleanly.
func (m *Manager) Load(db storage.Database) error {
	raw, err := db.Get(snapshotKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("state: read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("state: decode snapshot: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = make(map[types.Address]*types.Account, len(snap.Accounts))
	for addr, acc := range snap.Accounts {
		m.accounts[addr] = acc.Clone()
	}
	if snap.TokenSupply != nil {
		m.tokenSupply = new(big.Int).Set(snap.TokenSupply)
	} else {
		m.tokenSupply = big.NewInt(0)
	}
	m.merchants = make(map[types.Address]struct{}, len(snap.Merchants))
	for _, addr := range snap.Merchants {
		m.merchants[addr] = struct{}{}
	}
	m.providers = make(map[types.Address]*escrow.Provider, len(snap.Providers))
	for _, p := range snap.Providers {
		if p != nil {
			m.providers[p.Address] = p.Clone()
		}
	}
	m.delegates = make(map[types.Address]types.Address, len(snap.Delegates))
	for delegate, provider := range snap.Delegates {
		m.delegates[delegate] = provider
	}
	m.discounts = make(map[types.Address]*marketing.Discount, len(snap.Discounts))
	for _, d := range snap.Discounts {
		if d != nil {
			m.discounts[d.Referrer] = d.Clone()
		}
	}
	m.wills = make(map[[32]byte]*platform.Will, len(snap.Wills))
	for _, w := range snap.Wills {
		if w != nil {
			m.wills[w.ID] = w.Clone()
		}
	}
	m.userWills = make(map[types.Address][][32]byte, len(snap.UserWills))
	for owner, ids := range snap.UserWills {
		out := make([][32]byte, len(ids))
		copy(out, ids)
		m.userWills[owner] = out
	}
	m.etherBalances = make(map[types.Address]*big.Int, len(snap.EtherBalances))
	for addr, bal := range snap.EtherBalances {
		if bal != nil {
			m.etherBalances[addr] = new(big.Int).Set(bal)
		}
	}
	m.treasuryLastWithdrawal = snap.TreasuryLastWithdrawal
	return nil
}
