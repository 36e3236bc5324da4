package merkle

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/sha3"
)

// Keccak256 computes the legacy Keccak-256 hash (the EVM hash function)
// over the concatenation of the given byte slices.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// ParseAddress decodes a 0x-prefixed hex address into its 20 raw bytes.
// Parsing is case-insensitive; checksummed and lowercase forms are equivalent.
func ParseAddress(addr string) ([]byte, error) {
	s := strings.TrimPrefix(strings.ToLower(addr), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	if len(b) != 20 {
		return nil, fmt.Errorf("%w: %q must be 20 bytes", ErrInvalidAddress, addr)
	}
	return b, nil
}

// uint256Bytes encodes a non-negative decimal amount string as a
// 32-byte big-endian word. Fractional parts below one base unit are
// truncated: the chain only tracks whole units.
func uint256Bytes(amount string) ([]byte, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil || d.IsNegative() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	n := d.BigInt()
	if n.BitLen() > 256 {
		return nil, fmt.Errorf("%w: %q exceeds uint256", ErrInvalidAmount, amount)
	}
	return n.FillBytes(make([]byte, 32)), nil
}

// Leaf computes the reward leaf hash keccak256(user ++ uint256(amount)),
// matching the packed encoding checked by the distributor contract.
func Leaf(user, amount string) ([]byte, error) {
	addr, err := ParseAddress(user)
	if err != nil {
		return nil, err
	}
	amt, err := uint256Bytes(amount)
	if err != nil {
		return nil, err
	}
	return Keccak256(addr, amt), nil
}

// Identifier computes the deterministic per-token reward identifier
// keccak256(market ++ uint256(deadline) ++ token).
func Identifier(market, token string, deadline int64) (string, error) {
	m, err := ParseAddress(market)
	if err != nil {
		return "", err
	}
	t, err := ParseAddress(token)
	if err != nil {
		return "", err
	}
	d := new(big.Int).SetInt64(deadline).FillBytes(make([]byte, 32))
	return hexHash(Keccak256(m, d, t)), nil
}

// hexHash renders a hash as a 0x-prefixed lowercase hex string.
func hexHash(h []byte) string {
	return "0x" + hex.EncodeToString(h)
}

// decodeHash parses a 0x-prefixed 32-byte hash.
func decodeHash(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(s), "0x"))
	if err != nil || len(b) != 32 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLeaf, s)
	}
	return b, nil
}
