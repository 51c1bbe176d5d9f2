// Package submer implements sub-mer selection: 64-bit bit-masks over up to
// 32 k-mer base positions, and the PEXT-style extraction used to pull a
// selected subsequence out of a 2-bit-packed k-mer. These masks are the
// building block for both flavors of LSH index in package lshindex: a
// Selection used directly (bit-sampling / Hamming LSH) or slid across
// kernel offsets (k-mer-set / translationally-invariant LSH).
package submer

import (
	"math/bits"
	"sort"

	"github.com/longread/biocore/bioerr"
)

// Selection is a bit-mask with one bit per selected base position
// (population count == number of selected bases, per the sketch domain's
// data model). It is intentionally a single uint64 value type, not a
// pointer type, matching the original design's static_assert that a
// SubMerSelection is exactly the size of a uint64.
type Selection uint64

// NewSelection wraps a raw position-bitmask as a Selection.
func NewSelection(pattern uint64) Selection { return Selection(pattern) }

// MakePattern expands a position bit-mask to a 64-bit mask with both bits
// of every selected base-pair set, the 2-bits-per-base form a PEXT-style
// extraction needs when gathering from a 2-bit-packed k-mer. Selection
// itself stores the 1-bit-per-position form (so PopCount reads directly as
// "number of selected bases"); MakePattern is the bridge to the packed
// domain, computed on demand rather than stored.
func MakePattern(positions uint64) uint64 {
	var out uint64
	for i := 0; i < 32; i++ {
		if positions&(uint64(1)<<uint(i)) != 0 {
			out |= uint64(3) << uint(2*i)
		}
	}
	return out
}

// PopCount returns the number of selected base positions.
func (s Selection) PopCount() int {
	return bits.OnesCount64(uint64(s))
}

// Pattern returns the raw position bit-mask.
func (s Selection) Pattern() uint64 { return uint64(s) }

// SelectSubseq gathers the base-pairs of kmer indicated by this selection
// and packs them densely to the low bits, preserving their relative
// order -- the bit-sampling extraction used when the index is not in
// sliding mode (Hamming-distance LSH).
func (s Selection) SelectSubseq(kmer uint64) uint64 {
	var out uint64
	outPos := uint(0)
	for i := 0; i < 32; i++ {
		if uint64(s)&(uint64(1)<<uint(i)) != 0 {
			pair := (kmer >> uint(2*i)) & 0x3
			out |= pair << (2 * outPos)
			outPos++
		}
	}
	return out
}

// SelectSubseqAt is the shifted-kernel variant used in sliding mode: it
// selects the same relative pattern, but starting at base offset pos
// within the k-mer, producing one sub-k-mer per feasible offset.
func (s Selection) SelectSubseqAt(kmer uint64, pos int) uint64 {
	return s.SelectSubseq(kmer >> uint(2*pos))
}

// KernelWidth is the 1-based index of the highest set bit of the pattern --
// for a contiguous run this is just its length, but for a spaced seed it is
// the width of the full comb, counted from position 0 to the last selected
// position, inclusive (unselected low positions are counted too).
func (s Selection) KernelWidth() int {
	if s == 0 {
		return 0
	}
	return bits.Len64(uint64(s))
}

// NumberOfKernels returns the number of shifted kernel placements of this
// selection's pattern within a k-mer of length k: k - KernelWidth() + 1,
// floored at 0.
func (s Selection) NumberOfKernels(k int) int {
	n := k - s.KernelWidth() + 1
	if n < 0 {
		return 0
	}
	return n
}

// Normalize shifts the pattern so its lowest set bit lies at position 0.
// Sliding mode uses this to make kernels translation-invariant: two
// patterns that select "the same shape" at different starting offsets
// normalize to the same Selection.
func (s Selection) Normalize() Selection {
	if s == 0 {
		return s
	}
	tz := bits.TrailingZeros64(uint64(s))
	return Selection(uint64(s) >> uint(tz))
}

// GenerateContiguous returns one Selection per contiguous run of length subK
// within a k-mer of length k: for offset o in [0, k-subK], the pattern
// selecting positions [o, o+subK). For k=32, subK=1 this caps at 32 masks.
func GenerateContiguous(k, subK int) ([]Selection, error) {
	if k <= 0 || k > 32 || subK <= 0 || subK > k {
		return nil, bioerr.E(bioerr.InvalidArgument, "submer: bad k/subK", k, subK)
	}
	run := (uint64(1) << uint(subK)) - 1
	out := make([]Selection, 0, k-subK+1)
	for o := 0; o+subK <= k; o++ {
		out = append(out, Selection(run<<uint(o)))
	}
	return out, nil
}

// binomial computes C(n, r) for small n (n <= 32 in this package's usage),
// which always fits comfortably in an int64.
func binomial(n, r int) int64 {
	if r < 0 || r > n {
		return 0
	}
	if r > n-r {
		r = n - r
	}
	result := int64(1)
	for i := 0; i < r; i++ {
		result = result * int64(n-i) / int64(i+1)
	}
	return result
}

// GenerateRandomSubsequences draws up to numSequences deterministic masks
// (given seed), each selecting subK distinct positions out of k. Results
// are deduplicated and capped at C(k, subK), the total number of distinct
// such masks there are to draw.
func GenerateRandomSubsequences(k, subK int, numSequences int64, seed uint64) ([]Selection, error) {
	if k <= 0 || k > 32 || subK <= 0 || subK > k {
		return nil, bioerr.E(bioerr.InvalidArgument, "submer: bad k/subK", k, subK)
	}
	cap64 := binomial(k, subK)
	if numSequences > cap64 {
		numSequences = cap64
	}
	if numSequences <= 0 {
		return nil, nil
	}
	seen := make(map[uint64]bool, numSequences)
	out := make([]Selection, 0, numSequences)
	rng := newSplitMix64(seed)
	// Reservoir-free rejection sampling: draw subK distinct positions via
	// partial Fisher-Yates over a fresh [0,k) index slice per attempt, then
	// dedup by pattern. Bounded by cap64, so this always terminates.
	for int64(len(out)) < numSequences {
		idx := make([]int, k)
		for i := range idx {
			idx[i] = i
		}
		for i := 0; i < subK; i++ {
			j := i + int(rng.next()%uint64(k-i))
			idx[i], idx[j] = idx[j], idx[i]
		}
		chosen := idx[:subK]
		sort.Ints(chosen)
		var pattern uint64
		for _, p := range chosen {
			pattern |= uint64(1) << uint(p)
		}
		if !seen[pattern] {
			seen[pattern] = true
			out = append(out, Selection(pattern))
		}
	}
	return out, nil
}

// splitMix64 is a small deterministic PRNG used only to make
// GenerateRandomSubsequences reproducible given a seed, independent of
// math/rand's algorithm (which is not guaranteed stable across Go
// versions).
type splitMix64 struct{ state uint64 }

func newSplitMix64(seed uint64) *splitMix64 { return &splitMix64{state: seed} }

func (r *splitMix64) next() uint64 {
	r.state += 0x9E3779B97F4A7C15
	z := r.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}
