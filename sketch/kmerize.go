// Package sketch builds canonical k-mer streams and fixed-size MinHash
// sketches from DNA sequences, the layer between raw reads and both the
// LSH index and the de Bruijn graph. Its Kmerizer follows the same
// Reset/Scan/Get incremental-scan shape as fusion/kmer.go's kmerizer, but
// operates on dnabit-encoded values instead of byte-sliced ASCII, since
// every downstream consumer here (submer selections, WangHash, de Bruijn
// node identity) wants the packed form directly.
package sketch

import (
	"github.com/longread/biocore/dnabit"
)

// Triple is the external k-mer ingest contract (see the design's EXTERNAL
// INTERFACES section): for a window of a sequence, the forward hash, the
// reverse-complement hash, and the packed bit encoding (value plus strand
// and width) that produced them. The core only depends on this shape, not
// on how the triples are produced; Kmerizer is one conforming producer.
type Triple struct {
	ForwardHash uint64
	ReverseHash uint64
	Bit         dnabit.DnaBit // canonical orientation
}

// Kmerizer incrementally extracts k-mers (k <= 32) from a DNA sequence,
// skipping windows containing non-ACGT bases, and keeping the running
// forward and reverse-complement encodings in sync by rolling in one base
// at a time rather than re-encoding each window from scratch.
type Kmerizer struct {
	k    int
	mask uint64 // selects the low 2k bits

	seq string
	si  int

	curPos            int
	curForward, curRC uint64
	valid             bool
}

// NewKmerizer returns a Kmerizer for k-mers of length k (1..32).
func NewKmerizer(k int) *Kmerizer {
	var mask uint64
	if k >= 32 {
		mask = ^uint64(0)
	} else {
		mask = (uint64(1) << uint(2*k)) - 1
	}
	return &Kmerizer{k: k, mask: mask}
}

// Reset rewinds the Kmerizer to scan seq from the beginning.
func (kz *Kmerizer) Reset(seq string) {
	kz.seq = seq
	kz.si = 0
	kz.valid = false
}

func firstInvalid(seq string, from int) int {
	for i := from; i < len(seq); i++ {
		if _, err := dnabit.FromASCII(seq[i]); err != nil {
			return i
		}
	}
	return len(seq)
}

// Scan advances to the next valid k-mer window and returns false once the
// sequence is exhausted. It fast-paths the common case of rolling one base
// onto the existing window, and falls back to a fresh encode whenever the
// previous window wasn't valid (start of scan, or just past an ambiguous
// base).
func (kz *Kmerizer) Scan() bool {
	if kz.valid && kz.si+kz.k <= len(kz.seq) {
		nextCh := kz.seq[kz.si+kz.k-1]
		code, err := dnabit.FromASCII(nextCh)
		if err == nil {
			kz.curPos = kz.si
			compCode := 3 - code // A<->T, C<->G under the 2-bit scheme
			shift := uint(kz.k-1) * 2
			kz.curForward = (kz.curForward >> 2) | (uint64(code) << shift)
			kz.curRC = ((kz.curRC << 2) | uint64(compCode)) & kz.mask
			kz.si++
			return true
		}
		kz.valid = false
		// fall through to slow path, which will skip past nextCh
	}
	for kz.si+kz.k <= len(kz.seq) {
		window := kz.seq[kz.si : kz.si+kz.k]
		fwd, err := dnabit.EncodeSeq(window)
		if err != nil {
			kz.si = firstInvalid(kz.seq, kz.si) + 1
			continue
		}
		rc := dnabit.ReverseComplement(fwd, kz.k)
		kz.curPos = kz.si
		kz.curForward = fwd
		kz.curRC = rc
		kz.si++
		kz.valid = true
		return true
	}
	kz.valid = false
	return false
}

// Pos returns the start offset of the current window in the source
// sequence.
func (kz *Kmerizer) Pos() int { return kz.curPos }

// Forward and ReverseComplement return the raw (non-canonicalized)
// encodings of the current window.
func (kz *Kmerizer) Forward() uint64 { return kz.curForward }

// ReverseComplement returns the current window's reverse-complement
// encoding.
func (kz *Kmerizer) ReverseComplement() uint64 { return kz.curRC }

// Canonical returns the lexicographically smaller of Forward/ReverseComplement,
// and whether the forward orientation was the canonical one.
func (kz *Kmerizer) Canonical() (value uint64, isForward bool) {
	if kz.curForward <= kz.curRC {
		return kz.curForward, true
	}
	return kz.curRC, false
}

// Triple returns the current window's ingest triple, hashing both
// orientations with WangHash and recording the canonical DnaBit.
func (kz *Kmerizer) Triple() Triple {
	canon, isFwd := kz.Canonical()
	return Triple{
		ForwardHash: dnabit.WangHash(kz.curForward),
		ReverseHash: dnabit.WangHash(kz.curRC),
		Bit:         dnabit.DnaBit{Value: canon, Strand: !isFwd, Width: kz.k},
	}
}
