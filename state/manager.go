package state

import (
	"math/big"
	"sync"

	"ewill/core/types"
	"ewill/native/escrow"
	"ewill/native/marketing"
	"ewill/native/platform"
)

// Manager is the in-memory world state shared by every engine. It satisfies
// the narrow State interface each engine declares; a single lock serializes
// access so engines can interleave reads and writes safely. Durability is
// provided by snapshotting to a storage.Database.
type Manager struct {
	mu sync.RWMutex

	accounts      map[types.Address]*types.Account
	tokenSupply   *big.Int
	merchants     map[types.Address]struct{}
	providers     map[types.Address]*escrow.Provider
	delegates     map[types.Address]types.Address
	discounts     map[types.Address]*marketing.Discount
	wills         map[[32]byte]*platform.Will
	userWills     map[types.Address][][32]byte
	etherBalances map[types.Address]*big.Int

	treasuryLastWithdrawal int64
}

// NewManager returns an empty world state.
func NewManager() *Manager {
	return &Manager{
		accounts:      make(map[types.Address]*types.Account),
		tokenSupply:   big.NewInt(0),
		merchants:     make(map[types.Address]struct{}),
		providers:     make(map[types.Address]*escrow.Provider),
		delegates:     make(map[types.Address]types.Address),
		discounts:     make(map[types.Address]*marketing.Discount),
		wills:         make(map[[32]byte]*platform.Will),
		userWills:     make(map[types.Address][][32]byte),
		etherBalances: make(map[types.Address]*big.Int),
	}
}

// --- token.State ---

// GetAccount returns a copy of the account, or a fresh zero-balance account
// for addresses never seen before.
func (m *Manager) GetAccount(addr types.Address) (*types.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[addr]; ok && acc != nil {
		return acc.Clone(), nil
	}
	return &types.Account{Balance: big.NewInt(0)}, nil
}

func (m *Manager) PutAccount(addr types.Address, acc *types.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[addr] = acc.Clone()
	return nil
}

func (m *Manager) TokenSupply() (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return new(big.Int).Set(m.tokenSupply), nil
}

func (m *Manager) SetTokenSupply(supply *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if supply == nil {
		supply = big.NewInt(0)
	}
	m.tokenSupply = new(big.Int).Set(supply)
	return nil
}

func (m *Manager) IsMerchant(addr types.Address) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.merchants[addr]
	return ok, nil
}

func (m *Manager) PutMerchant(addr types.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.merchants[addr] = struct{}{}
	return nil
}

func (m *Manager) DeleteMerchant(addr types.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.merchants, addr)
	return nil
}

// --- escrow.State ---

func (m *Manager) ProviderGet(addr types.Address) (*escrow.Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[addr]
	if !ok || p == nil {
		return nil, false
	}
	return p.Clone(), true
}

func (m *Manager) ProviderPut(p *escrow.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.Address] = p.Clone()
	return nil
}

func (m *Manager) DelegateOf(delegate types.Address) (types.Address, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	provider, ok := m.delegates[delegate]
	return provider, ok
}

func (m *Manager) SetDelegate(delegate, provider types.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delegates[delegate] = provider
	return nil
}

func (m *Manager) DeleteDelegate(delegate types.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.delegates, delegate)
	return nil
}

// --- treasury.State ---

func (m *Manager) TreasuryLastWithdrawal() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.treasuryLastWithdrawal, nil
}

func (m *Manager) SetTreasuryLastWithdrawal(ts int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.treasuryLastWithdrawal = ts
	return nil
}

// --- marketing.State ---

func (m *Manager) DiscountGet(referrer types.Address) (*marketing.Discount, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.discounts[referrer]
	if !ok || d == nil {
		return nil, false
	}
	return d.Clone(), true
}

func (m *Manager) DiscountPut(d *marketing.Discount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discounts[d.Referrer] = d.Clone()
	return nil
}

// --- finance.State ---

func (m *Manager) EtherBalance(addr types.Address) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if bal, ok := m.etherBalances[addr]; ok && bal != nil {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (m *Manager) SetEtherBalance(addr types.Address, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount == nil {
		amount = big.NewInt(0)
	}
	m.etherBalances[addr] = new(big.Int).Set(amount)
	return nil
}

// --- platform.State ---

func (m *Manager) WillGet(id [32]byte) (*platform.Will, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.wills[id]
	if !ok || w == nil {
		return nil, false
	}
	return w.Clone(), true
}

func (m *Manager) WillPut(w *platform.Will) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wills[w.ID] = w.Clone()
	return nil
}

func (m *Manager) UserWills(owner types.Address) [][32]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.userWills[owner]
	out := make([][32]byte, len(ids))
	copy(out, ids)
	return out
}

func (m *Manager) AppendUserWill(owner types.Address, id [32]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userWills[owner] = append(m.userWills[owner], id)
	return nil
}
