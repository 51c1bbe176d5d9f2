package align

// Align fills an (|query|+1) x (|target|+1) score matrix with simple
// match/mismatch/insert/delete scores and the given Mode, then traces back
// to produce a PairwiseAlignment. Row 0 (no query consumed) is seeded with
// j*Delete in GLOBAL mode or 0 in SEMIGLOBAL/LOCAL; column 0 (no target
// consumed) is always i*Insert (LOCAL additionally floors every cell with
// i, j >= 1 at 0). Traceback starts at (|query|, |target|) in GLOBAL/SEMIGLOBAL-fixed-
// start form, or at the best cell overall in LOCAL and the best cell of
// the last row in SEMIGLOBAL.
func Align(target, query string, cfg Config) (PairwiseAlignment, error) {
	if err := validateInputs(target, query); err != nil {
		return PairwiseAlignment{}, err
	}
	n, m := len(query), len(target)
	score := make([][]int, n+1)
	for i := range score {
		score[i] = make([]int, m+1)
	}
	for j := 0; j <= m; j++ {
		switch cfg.Mode {
		case GLOBAL:
			score[0][j] = j * cfg.Delete
		default:
			score[0][j] = 0
		}
	}
	for i := 0; i <= n; i++ {
		score[i][0] = i * cfg.Insert
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			sub := cfg.Mismatch
			if query[i-1] == target[j-1] {
				sub = cfg.Match
			}
			best := score[i-1][j-1] + sub
			if v := score[i-1][j] + cfg.Insert; v > best {
				best = v
			}
			if v := score[i][j-1] + cfg.Delete; v > best {
				best = v
			}
			if cfg.Mode == LOCAL && 0 > best {
				best = 0
			}
			score[i][j] = best
		}
	}

	endI, endJ := n, m
	switch cfg.Mode {
	case SEMIGLOBAL:
		best := score[n][0]
		endJ = 0
		for j := 1; j <= m; j++ {
			if score[n][j] > best {
				best = score[n][j]
				endJ = j
			}
		}
	case LOCAL:
		best := score[0][0]
		endI, endJ = 0, 0
		for i := 0; i <= n; i++ {
			for j := 0; j <= m; j++ {
				if score[i][j] > best {
					best = score[i][j]
					endI, endJ = i, j
				}
			}
		}
	}

	result := tracebackStandard(target, query, score, cfg, endI, endJ)
	result.Score = score[endI][endJ]
	return result, nil
}

func tracebackStandard(target, query string, score [][]int, cfg Config, endI, endJ int) PairwiseAlignment {
	i, j := endI, endJ
	var transcript Transcript
	var tAligned, qAligned []byte
	numMismatch := 0
	targetEnd, queryEnd := j, i
	for i > 0 || j > 0 {
		if cfg.Mode == LOCAL && score[i][j] == 0 && (i > 0 || j > 0) {
			if i == endI && j == endJ {
				// degenerate zero-length local hit, stop immediately
			}
			break
		}
		if cfg.Mode == GLOBAL && i == 0 && j == 0 {
			break
		}
		switch {
		case i > 0 && j > 0 && score[i][j] == score[i-1][j-1]+subScore(cfg, query[i-1], target[j-1]):
			if query[i-1] == target[j-1] {
				transcript = append(transcript, OpMatch)
			} else {
				transcript = append(transcript, OpMismatch)
				numMismatch++
			}
			tAligned = append(tAligned, target[j-1])
			qAligned = append(qAligned, query[i-1])
			i--
			j--
		case i > 0 && score[i][j] == score[i-1][j]+cfg.Insert:
			transcript = append(transcript, OpInsert)
			tAligned = append(tAligned, '-')
			qAligned = append(qAligned, query[i-1])
			i--
		case j > 0 && score[i][j] == score[i][j-1]+cfg.Delete:
			transcript = append(transcript, OpDelete)
			tAligned = append(tAligned, target[j-1])
			qAligned = append(qAligned, '-')
			j--
		default:
			// Only reachable for LOCAL at a zero-origin cell.
			i, j = 0, 0
		}
		if cfg.Mode != GLOBAL && i == 0 {
			break
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

func subScore(cfg Config, a, b byte) int {
	if a == b {
		return cfg.Match
	}
	return cfg.Mismatch
}

func reverseOps(s Transcript) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
