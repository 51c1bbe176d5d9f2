package align

// mergeSeeds merges overlapping or touching seeds (on both H and V axes)
// into maximal runs, then keeps only those whose distance from either
// sequence edge is at least k -- seeds too close to an edge can't support
// a full band without running off the matrix.
func mergeSeeds(seeds []Seed, totalH, totalV, k int) []Seed {
	if len(seeds) == 0 {
		return nil
	}
	sorted := append([]Seed(nil), seeds...)
	sortSeeds(sorted)
	merged := []Seed{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.BeginH <= last.EndH && s.BeginV <= last.EndV {
			if s.EndH > last.EndH {
				last.EndH = s.EndH
			}
			if s.EndV > last.EndV {
				last.EndV = s.EndV
			}
			continue
		}
		merged = append(merged, s)
	}
	var out []Seed
	for _, s := range merged {
		if s.BeginH >= k && s.BeginV >= k && totalH-s.EndH >= k && totalV-s.EndV >= k {
			out = append(out, s)
		}
	}
	return out
}

func sortSeeds(s []Seed) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && (s[j].BeginH < s[j-1].BeginH || (s[j].BeginH == s[j-1].BeginH && s[j].BeginV < s[j-1].BeginV)); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// BandedChainAlign aligns target against query given a set of seeds
// (already chained, i.e. ordered and roughly co-linear), following three
// stages: (1) merge/filter seeds that can support a full band, (2) for
// each gap between consecutive (or edge-to-first/last-to-edge) seeds,
// align the connecting region with a full (unbanded) affine DP with no
// end-gap penalty, (3) align each seed's own region within a band of
// width K around its diagonal. Transcripts from each stage are
// concatenated, trimming trailing I/D runs at each join so the next block
// can re-align across the boundary.
func BandedChainAlign(target, query string, seeds []Seed, cfg BandedChainConfig) (PairwiseAlignment, error) {
	if err := validateInputs(target, query); err != nil {
		return PairwiseAlignment{}, err
	}
	kept := mergeSeeds(seeds, len(target), len(query), cfg.K)

	var transcript Transcript
	var tAligned, qAligned []byte
	prevH, prevV := 0, 0
	totalScore := 0

	appendBlock := func(block PairwiseAlignment) {
		transcript = trimTrailingIndels(transcript)
		transcript = append(transcript, block.Transcript...)
		tAligned = append(tAligned, block.Target...)
		qAligned = append(qAligned, block.Query...)
		totalScore += block.Score
	}

	for _, s := range kept {
		if s.BeginH > prevH || s.BeginV > prevV {
			gapCfg := AffineConfig{Match: cfg.Match, Mismatch: cfg.Mismatch, GapOpen: cfg.GapOpen, GapExtend: cfg.GapExtend, Mode: SEMIGLOBAL}
			block, err := AlignAffine(target[prevH:s.BeginH], query[prevV:s.BeginV], gapCfg, false)
			if err != nil {
				return PairwiseAlignment{}, err
			}
			appendBlock(block)
		}
		block, err := bandedBlockAlign(target[s.BeginH:s.EndH], query[s.BeginV:s.EndV], 0, cfg)
		if err != nil {
			return PairwiseAlignment{}, err
		}
		appendBlock(block)
		prevH, prevV = s.EndH, s.EndV
	}
	if prevH < len(target) || prevV < len(query) {
		gapCfg := AffineConfig{Match: cfg.Match, Mismatch: cfg.Mismatch, GapOpen: cfg.GapOpen, GapExtend: cfg.GapExtend, Mode: SEMIGLOBAL}
		block, err := AlignAffine(target[prevH:], query[prevV:], gapCfg, false)
		if err != nil {
			return PairwiseAlignment{}, err
		}
		appendBlock(block)
	}

	return PairwiseAlignment{
		Target:      string(tAligned),
		Query:       string(qAligned),
		Transcript:  transcript,
		Score:       totalScore,
		TargetBegin: 0,
		TargetEnd:   len(target),
		QueryBegin:  0,
		QueryEnd:    len(query),
		NumMismatch: countMismatch(transcript),
	}, nil
}

func trimTrailingIndels(t Transcript) Transcript {
	i := len(t)
	for i > 0 && (t[i-1] == OpInsert || t[i-1] == OpDelete) {
		i--
	}
	return t[:i]
}

// bandedBlockAlign aligns a seed's own (target, query) subregion with a
// full-credit affine DP, restricted to a band of width K around the
// diagonal implied by the seed (cells outside the band are never
// considered, matching the spec's "out-of-band cells score -inf" rule).
// Since the seed region is typically small, this is implemented as a
// banded variant of the same three-matrix affine recursion used elsewhere
// in this package rather than a distinct compact-row data structure.
func bandedBlockAlign(target, query string, diagonal int, cfg BandedChainConfig) (PairwiseAlignment, error) {
	n, m := len(query), len(target)
	k := cfg.K
	inBand := func(i, j int) bool {
		d := j - i
		return d >= diagonal-k && d <= diagonal+k
	}
	M := make([][]int, n+1)
	Gq := make([][]int, n+1)
	Gt := make([][]int, n+1)
	for i := range M {
		M[i] = make([]int, m+1)
		Gq[i] = make([]int, m+1)
		Gt[i] = make([]int, m+1)
		for j := range M[i] {
			M[i][j], Gq[i][j], Gt[i][j] = negInf, negInf, negInf
		}
	}
	M[0][0] = 0
	for j := 1; j <= m && inBand(0, j); j++ {
		Gt[0][j] = 0
	}
	for i := 1; i <= n && inBand(i, 0); i++ {
		Gq[i][0] = 0
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if !inBand(i, j) {
				continue
			}
			sub := cfg.Mismatch
			if query[i-1] == target[j-1] {
				sub = cfg.Match
			}
			M[i][j] = max3(M[i-1][j-1], Gq[i-1][j-1], Gt[i-1][j-1]) + sub
			if inBand(i-1, j) {
				Gq[i][j] = max2(M[i-1][j]+cfg.GapOpen+cfg.GapExtend, Gq[i-1][j]+cfg.GapExtend)
			}
			if inBand(i, j-1) {
				Gt[i][j] = max2(M[i][j-1]+cfg.GapOpen+cfg.GapExtend, Gt[i][j-1]+cfg.GapExtend)
			}
		}
	}
	affCfg := AffineConfig{Match: cfg.Match, Mismatch: cfg.Mismatch, GapOpen: cfg.GapOpen, GapExtend: cfg.GapExtend, Mode: GLOBAL}
	result := tracebackAffine(target, query, M, Gq, Gt, affCfg, func(a, b byte) bool { return a == b }, n, m)
	result.Score = max3(M[n][m], Gq[n][m], Gt[n][m])
	return result, nil
}
