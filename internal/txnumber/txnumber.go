// Package txnumber maps a ledger position and an in-position index to a single
// monotonically increasing transaction number.
package txnumber

import (
	"errors"
	"fmt"
)

const (
	// IndexBits is the width of the in-position index
	IndexBits = 32

	indexMask = 1<<IndexBits - 1

	// MaxPosition keeps every number inside a signed 64-bit integer
	MaxPosition = 1<<(63-IndexBits) - 1

	// MaxIndex is the largest in-position index
	MaxIndex = indexMask
)

var (
	ErrPositionOutOfRange = errors.New("ledger position out of range")
	ErrIndexOutOfRange    = errors.New("in-position index out of range")
	ErrNegativeNumber     = errors.New("transaction number is negative")
)

// Encode returns position * 2^32 + index
func Encode(position, index int64) (int64, error) {
	if position < 0 || position > MaxPosition {
		return 0, fmt.Errorf("%w: %d", ErrPositionOutOfRange, position)
	}
	if index < 0 || index > MaxIndex {
		return 0, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return position<<IndexBits | index, nil
}

// Decode splits a transaction number back into (position, index)
func Decode(number int64) (position, index int64, err error) {
	if number < 0 {
		return 0, 0, fmt.Errorf("%w: %d", ErrNegativeNumber, number)
	}
	return number >> IndexBits, number & indexMask, nil
}

// LastOfPosition returns the largest transaction number at a position,
// i.e. Encode(position+1, 0) - 1.
func LastOfPosition(position int64) (int64, error) {
	return Encode(position, MaxIndex)
}

// Position returns the ledger position a number belongs to
func Position(number int64) int64 {
	return number >> IndexBits
}
