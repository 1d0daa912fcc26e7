package config

import (
	"fmt"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"

	"ewill/core/types"
)

// Genesis describes the initial world state: the one-time token issuance and
// which accounts it is split across, pre-approved merchants and any seeded
// ether float balances.
type Genesis struct {
	// Alloc maps account addresses to their share of the initial issuance,
	// in token wei.
	Alloc map[string]string `yaml:"alloc"`
	// Merchants lists addresses pre-approved to pull funds from holders.
	Merchants []string `yaml:"merchants"`
	// EtherAlloc seeds tracked ether balances, in wei.
	EtherAlloc map[string]string `yaml:"etherAlloc"`
}

// LoadGenesis reads and validates a genesis file. An empty path yields an
// empty genesis.
func LoadGenesis(path string) (*Genesis, error) {
	if path == "" {
		return &Genesis{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read genesis %s: %w", path, err)
	}
	gen := &Genesis{}
	if err := yaml.Unmarshal(raw, gen); err != nil {
		return nil, fmt.Errorf("config: decode genesis %s: %w", path, err)
	}
	if _, err := gen.TokenAllocations(); err != nil {
		return nil, err
	}
	if _, err := gen.EtherAllocations(); err != nil {
		return nil, err
	}
	if _, err := gen.MerchantAddresses(); err != nil {
		return nil, err
	}
	return gen, nil
}

// TokenAllocations returns the parsed initial balances.
func (g *Genesis) TokenAllocations() (map[types.Address]*big.Int, error) {
	return parseAllocations(g.Alloc, "alloc")
}

// EtherAllocations returns the parsed initial ether float balances.
func (g *Genesis) EtherAllocations() (map[types.Address]*big.Int, error) {
	return parseAllocations(g.EtherAlloc, "etherAlloc")
}

// MerchantAddresses returns the parsed merchant allow-list.
func (g *Genesis) MerchantAddresses() ([]types.Address, error) {
	out := make([]types.Address, 0, len(g.Merchants))
	for _, raw := range g.Merchants {
		addr, err := types.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("config: genesis merchant: %w", err)
		}
		out = append(out, addr)
	}
	return out, nil
}

// TotalSupply sums every token allocation; this becomes the one-time
// issuance amount.
func (g *Genesis) TotalSupply() (*big.Int, error) {
	alloc, err := g.TokenAllocations()
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	for _, amount := range alloc {
		total.Add(total, amount)
	}
	return total, nil
}

func parseAllocations(raw map[string]string, section string) (map[types.Address]*big.Int, error) {
	out := make(map[types.Address]*big.Int, len(raw))
	for rawAddr, rawAmount := range raw {
		addr, err := types.ParseAddress(rawAddr)
		if err != nil {
			return nil, fmt.Errorf("config: genesis %s: %w", section, err)
		}
		amount, ok := new(big.Int).SetString(rawAmount, 10)
		if !ok || amount.Sign() < 0 {
			return nil, fmt.Errorf("config: genesis %s: invalid amount %q for %s", section, rawAmount, rawAddr)
		}
		out[addr] = amount
	}
	return out, nil
}
