package sketch

import (
	"sort"

	farm "github.com/dgryski/go-farm"

	"github.com/longread/biocore/bioerr"
)

// Sketch is an ordered sequence of fixed-width hash registers summarizing a
// set of k-mers -- a MinHash bottom-M sketch, the compact representation
// every LSH index in package lshindex consumes. Register order matters:
// registers are kept in ascending order, the smallest M hashes seen.
type Sketch []uint64

// registerHash mixes a canonical k-mer value the same way
// fusion/kmer_index.go hashes Kmer values for its shard table: a seeded
// FarmHash, which gives good avalanche behavior for the 64-bit k-mer
// domain without the cost of a cryptographic hash.
func registerHash(kmer uint64) uint64 {
	return farm.Hash64WithSeed(uint64ToBytes(kmer), 0)
}

func uint64ToBytes(v uint64) []byte {
	return []byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	}
}

// BuildBottomM scans seq for canonical k-mers and returns the M smallest
// distinct register hashes as a Sketch, in ascending order. If seq yields
// fewer than M distinct k-mers, the returned Sketch is shorter than M;
// callers that require |S| >= M (see lshindex's insertion protocol) must
// check this themselves.
func BuildBottomM(seq string, k, m int) (Sketch, error) {
	if k <= 0 || k > 32 {
		return nil, bioerr.E(bioerr.InvalidArgument, "sketch: bad k", k)
	}
	if m <= 0 {
		return nil, bioerr.E(bioerr.InvalidArgument, "sketch: bad sketch size", m)
	}
	seen := make(map[uint64]bool)
	kz := NewKmerizer(k)
	kz.Reset(seq)
	for kz.Scan() {
		canon, _ := kz.Canonical()
		seen[registerHash(canon)] = true
	}
	regs := make(Sketch, 0, len(seen))
	for h := range seen {
		regs = append(regs, h)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i] < regs[j] })
	if len(regs) > m {
		regs = regs[:m]
	}
	return regs, nil
}

// Len is provided so Sketch can serve directly as a sort.Interface target
// for callers that build their own register vectors.
func (s Sketch) Len() int           { return len(s) }
func (s Sketch) Less(i, j int) bool { return s[i] < s[j] }
func (s Sketch) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
