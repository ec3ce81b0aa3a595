package ir

import (
	"fmt"
	"math/big"
)

// Number is a sized constant.
type Number struct {
	Width int
	Value *big.Int
}

// NewNumber returns v truncated to width bits.
func NewNumber(width int, v uint64) Number {
	return Number{Width: width, Value: Truncate(new(big.Int).SetUint64(v), width)}
}

// Zeros is the all-zero value of the given width.
func Zeros(width int) Number {
	return Number{Width: width, Value: new(big.Int)}
}

// Ones is the all-ones value of the given width.
func Ones(width int) Number {
	return Number{Width: width, Value: Mask(width)}
}

// Mask returns 2^width - 1.
func Mask(width int) *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), uint(width))
	return m.Sub(m, big.NewInt(1))
}

// Truncate clears every bit of v at or above width, in place.
func Truncate(v *big.Int, width int) *big.Int {
	return v.And(v, Mask(width))
}

// IsZero reports whether every bit is clear.
func (n Number) IsZero() bool {
	return n.Value == nil || n.Value.Sign() == 0
}

// Uint64 returns the low 64 bits.
func (n Number) Uint64() uint64 {
	if n.Value == nil {
		return 0
	}
	return n.Value.Uint64()
}

func (n Number) String() string {
	if n.Value == nil {
		return fmt.Sprintf("%d'h0", n.Width)
	}
	return fmt.Sprintf("%d'h%s", n.Width, n.Value.Text(16))
}
