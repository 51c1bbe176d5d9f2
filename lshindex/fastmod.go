package lshindex

import (
	"math/big"
	"math/bits"
)

// FastMod is the "variant-typed modular-reduction helper" the design calls
// for: a single struct (not a class hierarchy) carrying a precomputed
// reciprocal, chosen at construction time based on whether the modulus fits
// a 32-bit or 64-bit range. For the common case (modulus fits uint32 --
// true for every realistic sketch size M) it implements Lemire's fastmod
// technique: division by a fixed divisor d is replaced by a multiply-and-
// shift against a precomputed 64-bit reciprocal of d, computed once at
// construction and reused on every subsequent Reduce call. The rare case of
// a modulus that does not fit uint32 (a sketch size in the billions) falls
// back to the hardware divide, since a correct 128-bit reciprocal only pays
// for itself on the hot path this index actually exercises.
type FastMod struct {
	divisor uint64
	is32    bool
	recip   uint64 // ceil(2^64 / divisor), only valid when is32
}

// NewFastMod builds a FastMod for the given positive divisor.
func NewFastMod(divisor uint64) FastMod {
	fm := FastMod{divisor: divisor}
	if divisor == 0 {
		return fm
	}
	if divisor <= 0xFFFFFFFF {
		fm.is32 = true
		num := new(big.Int).Lsh(big.NewInt(1), 64)
		num.Add(num, big.NewInt(int64(divisor)-1))
		m := new(big.Int).Div(num, big.NewInt(int64(divisor)))
		fm.recip = m.Uint64()
	}
	return fm
}

// Modulus returns the configured divisor.
func (fm FastMod) Modulus() uint64 { return fm.divisor }

// Reduce computes a % divisor, using the precomputed reciprocal in the
// common (divisor fits uint32) case and a hardware divide otherwise.
func (fm FastMod) Reduce(a uint64) uint64 {
	if fm.divisor <= 1 {
		return 0
	}
	if fm.is32 {
		// The 32-bit fastmod identity only holds for a 32-bit dividend;
		// mirror the implicit narrowing the original FastMod<uint32_t>
		// variant performs when fed a 64-bit position.
		a32 := a & 0xFFFFFFFF
		lowbits := fm.recip * a32
		hi, _ := bits.Mul64(lowbits, fm.divisor)
		return hi
	}
	return a % fm.divisor
}
