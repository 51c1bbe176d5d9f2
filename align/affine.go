package align

// iupacSets maps an IUPAC ambiguity code to its set of represented bases,
// a bitmask over {A,C,G,T}. Unambiguous bases map to their own singleton.
var iupacSets = map[byte]uint8{
	'A': 1 << 0, 'C': 1 << 1, 'G': 1 << 2, 'T': 1 << 3,
	'R': 1<<0 | 1<<2, 'Y': 1<<1 | 1<<3, 'S': 1<<1 | 1<<2, 'W': 1<<0 | 1<<3,
	'K': 1<<2 | 1<<3, 'M': 1<<0 | 1<<1,
	'B': 1<<1 | 1<<2 | 1<<3, 'D': 1<<0 | 1<<2 | 1<<3, 'H': 1<<0 | 1<<1 | 1<<3, 'V': 1<<0 | 1<<1 | 1<<2,
	'N': 1<<0 | 1<<1 | 1<<2 | 1<<3,
}

func iupacMatch(a, b byte) bool {
	sa, ok1 := iupacSets[a]
	sb, ok2 := iupacSets[b]
	if !ok1 || !ok2 {
		return a == b
	}
	return sa&sb != 0
}

// AlignAffine aligns target and query under an affine gap penalty model
// using three coupled matrices: M (best score ending in a match/mismatch),
// Gq (best score ending in an insertion, query consumed) and Gt (best
// score ending in a deletion, target consumed). If
// iupac is true, sub-scoring treats an IUPAC ambiguity code as a match
// against any base its set contains.
func AlignAffine(target, query string, cfg AffineConfig, iupac bool) (PairwiseAlignment, error) {
	if err := validateInputs(target, query); err != nil {
		return PairwiseAlignment{}, err
	}
	n, m := len(query), len(target)
	M := make([][]int, n+1)
	Gq := make([][]int, n+1) // gap in target (query consumed, i.e. insertion)
	Gt := make([][]int, n+1) // gap in query (target consumed, i.e. deletion)
	for i := range M {
		M[i] = make([]int, m+1)
		Gq[i] = make([]int, m+1)
		Gt[i] = make([]int, m+1)
	}
	for i := range M {
		M[i][0] = negInf
		Gt[i][0] = negInf
	}
	for j := range M[0] {
		M[0][j] = negInf
		Gq[0][j] = negInf
	}
	M[0][0] = 0
	for j := 1; j <= m; j++ {
		if cfg.Mode == GLOBAL {
			Gt[0][j] = cfg.GapOpen + j*cfg.GapExtend
		} else {
			Gt[0][j] = 0
		}
	}
	for i := 1; i <= n; i++ {
		if cfg.Mode == GLOBAL {
			Gq[i][0] = cfg.GapOpen + i*cfg.GapExtend
		} else {
			Gq[i][0] = 0
		}
	}
	matchFn := func(a, b byte) bool { return a == b }
	if iupac {
		matchFn = iupacMatch
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			sub := cfg.Mismatch
			if matchFn(query[i-1], target[j-1]) {
				sub = cfg.Match
			}
			best := max3(M[i-1][j-1], Gq[i-1][j-1], Gt[i-1][j-1]) + sub
			if cfg.Mode == LOCAL && best < 0 {
				best = 0
			}
			M[i][j] = best

			Gq[i][j] = max2(M[i-1][j]+cfg.GapOpen+cfg.GapExtend, Gq[i-1][j]+cfg.GapExtend)
			Gt[i][j] = max2(M[i][j-1]+cfg.GapOpen+cfg.GapExtend, Gt[i][j-1]+cfg.GapExtend)
			if cfg.Mode == LOCAL {
				if Gq[i][j] < 0 {
					Gq[i][j] = negInf
				}
				if Gt[i][j] < 0 {
					Gt[i][j] = negInf
				}
			}
		}
	}

	endI, endJ := n, m
	bestScore := max3(M[n][m], Gq[n][m], Gt[n][m])
	if cfg.Mode == SEMIGLOBAL {
		bestScore = negInf
		for j := 0; j <= m; j++ {
			v := max3(M[n][j], Gq[n][j], Gt[n][j])
			if v > bestScore {
				bestScore, endJ = v, j
			}
		}
	} else if cfg.Mode == LOCAL {
		bestScore = 0
		endI, endJ = 0, 0
		for i := 0; i <= n; i++ {
			for j := 0; j <= m; j++ {
				v := max3(M[i][j], Gq[i][j], Gt[i][j])
				if v > bestScore {
					bestScore, endI, endJ = v, i, j
				}
			}
		}
	}

	result := tracebackAffine(target, query, M, Gq, Gt, cfg, matchFn, endI, endJ)
	result.Score = bestScore
	return result, nil
}

func max2(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func max3(a, b, c int) int { return max2(max2(a, b), c) }

type state int

const (
	stM state = iota
	stGq
	stGt
)

func tracebackAffine(target, query string, M, Gq, Gt [][]int, cfg AffineConfig, matchFn func(a, b byte) bool, endI, endJ int) PairwiseAlignment {
	i, j := endI, endJ
	cur := stM
	if Gq[i][j] > M[i][j] && Gq[i][j] >= Gt[i][j] {
		cur = stGq
	} else if Gt[i][j] > M[i][j] {
		cur = stGt
	}
	queryEnd, targetEnd := i, j
	var transcript Transcript
	var tAligned, qAligned []byte
	numMismatch := 0
	for i > 0 || j > 0 {
		if cfg.Mode == LOCAL && max3(M[i][j], Gq[i][j], Gt[i][j]) <= 0 && (i != endI || j != endJ) {
			break
		}
		switch cur {
		case stM:
			if i == 0 || j == 0 {
				i, j = 0, 0
				continue
			}
			sub := cfg.Mismatch
			match := matchFn(query[i-1], target[j-1])
			if match {
				sub = cfg.Match
				transcript = append(transcript, OpMatch)
			} else {
				transcript = append(transcript, OpMismatch)
				numMismatch++
			}
			tAligned = append(tAligned, target[j-1])
			qAligned = append(qAligned, query[i-1])
			prev := M[i][j] - sub
			i--
			j--
			switch {
			case i >= 0 && j >= 0 && prev == M[i][j]:
				cur = stM
			case i >= 0 && j >= 0 && prev == Gq[i][j]:
				cur = stGq
			default:
				cur = stGt
			}
		case stGq:
			transcript = append(transcript, OpInsert)
			tAligned = append(tAligned, '-')
			qAligned = append(qAligned, query[i-1])
			cell := Gq[i][j]
			if i > 0 && cell == M[i-1][j]+cfg.GapOpen+cfg.GapExtend {
				i--
				cur = stM
			} else {
				i--
				cur = stGq
			}
		case stGt:
			transcript = append(transcript, OpDelete)
			tAligned = append(tAligned, target[j-1])
			qAligned = append(qAligned, '-')
			cell := Gt[i][j]
			if j > 0 && cell == M[i][j-1]+cfg.GapOpen+cfg.GapExtend {
				j--
				cur = stM
			} else {
				j--
				cur = stGt
			}
		}
	}
	reverseOps(transcript)
	reverseBytes(tAligned)
	reverseBytes(qAligned)
	return PairwiseAlignment{
		Target:      string(tAligned),
		Query:       string(qAligned),
		Transcript:  transcript,
		TargetBegin: j,
		TargetEnd:   targetEnd,
		QueryBegin:  i,
		QueryEnd:    queryEnd,
		NumMismatch: numMismatch,
	}
}
