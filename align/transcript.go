package align

import "github.com/longread/biocore/bioerr"

// NewPairwiseAlignment derives a PairwiseAlignment's Transcript directly
// from a pair of already-aligned, equal-length strings (each '-' marking a
// gap), rather than from a DP traceback: position by position, a '-' in
// query is a deletion, a '-' in target is an insertion, equal non-gap
// bases are a match, and anything else is a mismatch. Both strings holding
// a gap at the same position is invalid.
func NewPairwiseAlignment(target, query string) (PairwiseAlignment, error) {
	if len(target) != len(query) {
		return PairwiseAlignment{}, bioerr.E(bioerr.InvalidArgument, "align: target and query must be the same length")
	}
	tr := make(Transcript, len(target))
	for i := 0; i < len(target); i++ {
		t, q := target[i], query[i]
		switch {
		case t == '-' && q == '-':
			return PairwiseAlignment{}, bioerr.E(bioerr.InvalidArgument, "align: target and query cannot both be gapped at the same position")
		case t == q:
			tr[i] = OpMatch
		case t == '-':
			tr[i] = OpInsert
		case q == '-':
			tr[i] = OpDelete
		default:
			tr[i] = OpMismatch
		}
	}
	return PairwiseAlignment{
		Target:      target,
		Query:       query,
		Transcript:  tr,
		TargetEnd:   len(target),
		QueryEnd:    len(query),
		NumMismatch: tr.Mismatches(),
	}, nil
}

// Length returns the number of transcript columns (equivalently, the
// aligned string length).
func (t Transcript) Length() int { return len(t) }

// Matches counts OpMatch entries.
func (t Transcript) Matches() int { return t.count(OpMatch) }

// Mismatches counts OpMismatch entries.
func (t Transcript) Mismatches() int { return t.count(OpMismatch) }

// Insertions counts OpInsert entries.
func (t Transcript) Insertions() int { return t.count(OpInsert) }

// Deletions counts OpDelete entries.
func (t Transcript) Deletions() int { return t.count(OpDelete) }

// Accuracy is Matches / Length.
func (t Transcript) Accuracy() float64 {
	if len(t) == 0 {
		return 0
	}
	return float64(t.Matches()) / float64(len(t))
}

func (t Transcript) count(op Op) int {
	n := 0
	for _, o := range t {
		if o == op {
			n++
		}
	}
	return n
}

// TargetToQueryPositions returns a slice of length |T|+1 (where T is the
// number of target-consuming ops in transcript), mapping each target index
// to the query index it aligns to. An insertion site (a run of I ops) is
// mapped onto the query position immediately following the insertion, so
// consecutive insertions all point at the same downstream target index's
// entry.
func TargetToQueryPositions(transcript Transcript) []int {
	// count target-consuming ops (M, R, D)
	tCount := 0
	for _, op := range transcript {
		if op != OpInsert {
			tCount++
		}
	}
	out := make([]int, tCount+1)
	tPos, qPos := 0, 0
	for _, op := range transcript {
		switch op {
		case OpMatch, OpMismatch:
			out[tPos] = qPos
			tPos++
			qPos++
		case OpDelete:
			out[tPos] = qPos
			tPos++
		case OpInsert:
			qPos++
		}
	}
	out[tCount] = qPos
	return out
}

// ClipToReference restricts alignment to the target interval [start, end),
// adjusting the transcript and both aligned strings to cover only that
// span (and whatever query bases align within it).
func ClipToReference(alignment PairwiseAlignment, start, end int) PairwiseAlignment {
	tPos, qPos := alignment.TargetBegin, alignment.QueryBegin
	var outTranscript Transcript
	var tAligned, qAligned []byte
	tIdx, qIdx := 0, 0
	mismatches := 0
	clipTStart, clipQStart, clipQEnd := -1, -1, -1
	for _, op := range alignment.Transcript {
		inRange := tPos >= start && tPos < end
		switch op {
		case OpMatch, OpMismatch:
			if inRange {
				if clipTStart < 0 {
					clipTStart, clipQStart = tPos, qPos
				}
				outTranscript = append(outTranscript, op)
				tAligned = append(tAligned, alignment.Target[tIdx])
				qAligned = append(qAligned, alignment.Query[qIdx])
				if op == OpMismatch {
					mismatches++
				}
			}
			tPos++
			qPos++
		case OpDelete:
			if inRange {
				if clipTStart < 0 {
					clipTStart, clipQStart = tPos, qPos
				}
				outTranscript = append(outTranscript, op)
				tAligned = append(tAligned, alignment.Target[tIdx])
				qAligned = append(qAligned, '-')
			}
			tPos++
		case OpInsert:
			if inRange || (tPos == start) {
				outTranscript = append(outTranscript, op)
				tAligned = append(tAligned, '-')
				qAligned = append(qAligned, alignment.Query[qIdx])
			}
			qPos++
		}
		if inRange {
			clipQEnd = qPos
		}
		tIdx++
		qIdx++
	}
	if clipTStart < 0 {
		clipTStart, clipQStart = start, qPos
	}
	if clipQEnd < 0 {
		clipQEnd = clipQStart
	}
	return PairwiseAlignment{
		Target:      string(tAligned),
		Query:       string(qAligned),
		Transcript:  outTranscript,
		TargetBegin: clipTStart,
		TargetEnd:   end,
		QueryBegin:  clipQStart,
		QueryEnd:    clipQEnd,
		NumMismatch: mismatches,
	}
}

// JustifyDirection selects which direction Justify shifts indels toward.
type JustifyDirection int

const (
	// LEFT shifts homopolymer/tandem-repeat indels toward the alignment's
	// start.
	LEFT JustifyDirection = iota
	// RIGHT shifts them toward the alignment's end.
	RIGHT
)

// Justify canonicalizes homopolymer indels by repeatedly swapping a gap
// column with a neighboring match/mismatch column that carries the same
// base on the gapped side's partner sequence, until a full pass makes no
// changes. Two equivalent representations of the same indel (e.g. an
// insertion that could sit one position to either side within a run of
// identical bases) are rewritten toward direction. Only single-column
// swaps are made: an indel spanning a whole copy of a multi-base repeat
// (e.g. a deleted "AC" inside "ACAC") is left where it is.
func Justify(alignment PairwiseAlignment, direction JustifyDirection) PairwiseAlignment {
	t := []byte(alignment.Target)
	q := []byte(alignment.Query)
	tr := append(Transcript(nil), alignment.Transcript...)

	changed := true
	for changed {
		changed = false
		if direction == LEFT {
			for i := len(tr) - 1; i > 0; i-- {
				if tryShift(t, q, tr, i, direction) {
					changed = true
				}
			}
		} else {
			for i := 1; i < len(tr); i++ {
				if tryShift(t, q, tr, i, direction) {
					changed = true
				}
			}
		}
	}
	return PairwiseAlignment{
		Target:      string(t),
		Query:       string(q),
		Transcript:  tr,
		Score:       alignment.Score,
		TargetBegin: alignment.TargetBegin,
		TargetEnd:   alignment.TargetEnd,
		QueryBegin:  alignment.QueryBegin,
		QueryEnd:    alignment.QueryEnd,
		NumMismatch: alignment.NumMismatch,
	}
}

// tryShift attempts to swap adjacent transcript positions i-1, i when
// doing so produces an equivalent alignment (shape 2L: a gap adjacent to
// a match/mismatch column where swapping just relabels which side holds
// the gap, valid when the flanking bases are equal) moved one step toward
// direction. Returns whether a swap was performed.
func tryShift(t, q []byte, tr Transcript, i int, direction JustifyDirection) bool {
	a, b := tr[i-1], tr[i]
	ta, tb := t[i-1], t[i]
	qa, qb := q[i-1], q[i]
	switch {
	case a == OpDelete && (b == OpMatch || b == OpMismatch) && ta == tb:
		// t: X X / q: - X  <->  t: X X / q: X -
		if direction == RIGHT {
			q[i-1], q[i] = qb, '-'
			tr[i-1], tr[i] = b, OpDelete
			return true
		}
	case a == OpInsert && (b == OpMatch || b == OpMismatch) && qa == qb:
		if direction == RIGHT {
			t[i-1], t[i] = tb, '-'
			tr[i-1], tr[i] = b, OpInsert
			return true
		}
	case (a == OpMatch || a == OpMismatch) && b == OpDelete && ta == tb:
		if direction == LEFT {
			q[i-1], q[i] = '-', qa
			tr[i-1], tr[i] = OpDelete, a
			return true
		}
	case (a == OpMatch || a == OpMismatch) && b == OpInsert && qa == qb:
		if direction == LEFT {
			t[i-1], t[i] = '-', ta
			tr[i-1], tr[i] = OpInsert, a
			return true
		}
	}
	return false
}
