package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Address identifies a token holder, provider, delegate or module vault.
type Address [20]byte

// ZeroAddress is the sentinel "no identity" value. The marketing engine also
// uses it as the default-provider key in per-provider discount tables.
var ZeroAddress = Address{}

// ModuleAddress derives the deterministic vault address owned by a named
// module. Module vaults hold pooled token custody (escrow bonds, treasury
// revenue, marketing budget, finance float).
func ModuleAddress(name string) Address {
	hash := ethcrypto.Keccak256([]byte("ewill/module/" + name))
	var addr Address
	copy(addr[:], hash[len(hash)-20:])
	return addr
}

// ParseAddress decodes a 0x-prefixed or bare hex address.
func ParseAddress(s string) (Address, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(raw) != 20 {
		return Address{}, fmt.Errorf("invalid address length %d", len(raw))
	}
	var addr Address
	copy(addr[:], raw)
	return addr, nil
}

// Hex renders the address as 0x-prefixed lowercase hex.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// MarshalText implements encoding.TextMarshaler so addresses can key JSON
// maps and appear in config files as hex strings.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// IsZero reports whether the address is the zero sentinel.
func (a Address) IsZero() bool { return a == ZeroAddress }
