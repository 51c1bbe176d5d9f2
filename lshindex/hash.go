package lshindex

import (
	"math/bits"

	"github.com/longread/biocore/dnabit"
)

// simpleFastHash is a cheap avalanche mix used by the 128- and 256-bit
// register-block hashes and to seed the deterministic fallback walk in
// hashIndex; it is not meant to be cryptographically strong, only fast and
// well-distributed.
func simpleFastHash(x uint64) uint64 {
	return ((x ^ 0x533f8c2151b20f97) * 0x9a98567ed20c127d) ^ 0x691a9d706391077a
}

// wyhash64Step advances seed in place and returns the next pseudo-random
// value, the same stateless wyhash64 step used to drive the deterministic
// seeded walk in hashIndex's fallback path.
func wyhash64Step(seed *uint64) uint64 {
	*seed += 0x60bee2bee120fc15
	hi1, lo1 := bits.Mul64(*seed, 0xa3b195354a39b70d)
	m1 := hi1 ^ lo1
	hi2, lo2 := bits.Mul64(m1, 0x1b03738712fad5c9)
	return hi2 ^ lo2
}

// hashBlock64 is the 64-bit register-block case: WangHash directly.
func hashBlock64(v uint64) uint64 {
	return dnabit.WangHash(v)
}

// hashBlock128 is the 128-bit register-block case: two rounds of
// simpleFastHash, xor-folded.
func hashBlock128(v0, v1 uint64) uint64 {
	h0 := simpleFastHash(v0)
	h1 := simpleFastHash(v1 ^ h0)
	return dnabit.WangHash(h0 ^ h1)
}

// hashBlock256 is the 256-bit register-block case: fold the four words with
// simpleFastHash and finalize with WangHash.
func hashBlock256(words []uint64) uint64 {
	h0 := simpleFastHash(words[0])
	h1 := simpleFastHash(words[1])
	h2 := simpleFastHash(words[2])
	return dnabit.WangHash(h0 ^ (h1*h2 - words[3]))
}

// hashRegisterBlockRolling folds a register block of any width other than
// one, two or four registers by repeatedly hashing consecutive 4-word
// (256-bit) chunks with hashBlock256 and mixing the running total, then
// folding in a zero-padded tail chunk. A block shorter than four registers
// is hashed as its zero-padded tail alone.
func hashRegisterBlockRolling(block []uint64) uint64 {
	var ret uint64
	i := 0
	for len(block)-i >= 4 {
		ret ^= ret >> 31
		ret += hashBlock256(block[i : i+4])
		i += 4
	}
	if i < len(block) {
		tail := make([]uint64, 4)
		copy(tail, block[i:])
		if i == 0 {
			return hashBlock256(tail)
		}
		ret *= hashBlock256(tail)
		ret ^= ret >> 31
	}
	return ret
}

// hashRegisterBlock dispatches a contiguous register block to a
// width-specific mixing function, following the size-dispatch table from
// the design's register-block hashing section: 64 bits -> WangHash, 128
// bits -> two rounds of simpleFastHash xor-folded, 256 bits -> the
// simpleFastHash fold with a WangHash finalizer, and any other width (three
// registers, or more than four) -> a rolling 256-bit fold of that same
// construction.
func hashRegisterBlock(block []uint64) uint64 {
	switch len(block) {
	case 0:
		return 0
	case 1:
		return hashBlock64(block[0])
	case 2:
		return hashBlock128(block[0], block[1])
	case 4:
		return hashBlock256(block)
	default:
		return hashRegisterBlockRolling(block)
	}
}
