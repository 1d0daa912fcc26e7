package rpc

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"ewill/core/types"
)

func parseAddr(field, raw string) (types.Address, error) {
	addr, err := types.ParseAddress(raw)
	if err != nil {
		return types.Address{}, fmt.Errorf("%s: %w", field, err)
	}
	return addr, nil
}

// parseOptionalAddr accepts an empty string as the zero address, used for
// optional referrer fields.
func parseOptionalAddr(field, raw string) (types.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return types.ZeroAddress, nil
	}
	return parseAddr(field, raw)
}

func parseAmount(field, raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%s: invalid non-negative integer %q", field, raw)
	}
	return amount, nil
}

func parseHash32(field, raw string) ([32]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return [32]byte{}, fmt.Errorf("%s: %w", field, err)
	}
	if len(decoded) != 32 {
		return [32]byte{}, fmt.Errorf("%s: expected 32 bytes, got %d", field, len(decoded))
	}
	var out [32]byte
	copy(out[:], decoded)
	return out, nil
}

func hash32Hex(h [32]byte) string { return "0x" + hex.EncodeToString(h[:]) }
