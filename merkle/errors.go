package merkle

import "errors"

var (
	// ErrEmptyLeaves indicates a tree was requested over zero leaves.
	ErrEmptyLeaves = errors.New("merkle: empty leaf set")

	// ErrInvalidLeaf indicates a leaf is not a 32-byte hash.
	ErrInvalidLeaf = errors.New("merkle: invalid leaf")

	// ErrInvalidAddress indicates an address is not 20 bytes of hex.
	ErrInvalidAddress = errors.New("merkle: invalid address")

	// ErrInvalidAmount indicates an amount is not a base-10 unsigned integer.
	ErrInvalidAmount = errors.New("merkle: invalid amount")

	// ErrInvalidDump indicates serialized tree data fails to decode.
	ErrInvalidDump = errors.New("merkle: invalid tree dump")
)
