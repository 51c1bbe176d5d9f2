// Package align implements pairwise sequence alignment: a standard
// quadratic-space dynamic-program aligner (global/semiglobal/local), an
// affine-gap and IUPAC-aware variant, a Hirschberg-style linear-space
// aligner, a banded-chain aligner over pre-chained seeds, and the sparse
// dynamic program used to chain seeds in the first place.
package align

import "github.com/longread/biocore/bioerr"

// Mode selects which ends of the alignment are free of gap penalty.
type Mode int

const (
	// GLOBAL penalizes gaps at every edge (Needleman-Wunsch).
	GLOBAL Mode = iota
	// SEMIGLOBAL aligns the whole query against part of the target:
	// target bases before the alignment's start and after its end cost
	// nothing, while unaligned query bases are still penalized.
	SEMIGLOBAL
	// LOCAL finds the best-scoring substring alignment (Smith-Waterman).
	LOCAL
)

// Config carries simple (non-affine) match/mismatch/insert/delete scores
// and a Mode.
type Config struct {
	Match    int
	Mismatch int
	Insert   int
	Delete   int
	Mode     Mode
}

// AffineConfig carries affine-gap scores: opening a gap costs GapOpen,
// each base the gap extends by costs GapExtend.
type AffineConfig struct {
	Match     int
	Mismatch  int
	GapOpen   int
	GapExtend int
	Mode      Mode
}

// BandedChainConfig is AffineConfig plus the band-extend width k used by
// the banded-chain aligner.
type BandedChainConfig struct {
	Match     int
	Mismatch  int
	GapOpen   int
	GapExtend int
	K         int
}

// Op is one transcript operation.
type Op byte

const (
	// OpMatch marks an aligned, identical pair of bases.
	OpMatch Op = 'M'
	// OpMismatch marks an aligned, differing pair of bases.
	OpMismatch Op = 'R'
	// OpInsert marks a query base with no corresponding target base.
	OpInsert Op = 'I'
	// OpDelete marks a target base with no corresponding query base.
	OpDelete Op = 'D'
)

// Transcript is a sequence of alignment operations, target-major (as
// produced by tracing the DP matrix from its end back to its start, then
// reversed to read left to right).
type Transcript []Op

// PairwiseAlignment is the result of a pairwise alignment: the two
// sequences as aligned (with '-' gap characters), the machine-readable
// transcript, the score, and the target/query coordinate span the
// alignment covers (useful for LOCAL/SEMIGLOBAL results).
type PairwiseAlignment struct {
	Target      string
	Query       string
	Transcript  Transcript
	Score       int
	TargetBegin int
	TargetEnd   int
	QueryBegin  int
	QueryEnd    int
	NumMismatch int
}

const negInf = -(1 << 30)

func validateInputs(target, query string) error {
	if len(target) == 0 && len(query) == 0 {
		return nil
	}
	if len(target) > 1<<20 || len(query) > 1<<20 {
		return bioerr.E(bioerr.InvalidArgument, "align: sequence too long")
	}
	return nil
}
