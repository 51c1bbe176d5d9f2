package align

import "sort"

// Seed is a diagonal-preserving matched region between a target ("H") and
// query ("V") sequence.
type Seed struct {
	BeginH, EndH int
	BeginV, EndV int
}

// Diagonal returns beginH - beginV, the offset identifying this seed's
// diagonal.
func (s Seed) Diagonal() int { return s.BeginH - s.BeginV }

func (s Seed) lenH() int { return s.EndH - s.BeginH }
func (s Seed) lenV() int { return s.EndV - s.BeginV }

// Chain is an ordered, non-overlapping sequence of seeds plus its total
// score.
type Chain struct {
	Seeds []Seed
	Score int
}

// chainScoreParams bundles the scoring constants LinkScore needs.
type chainScoreParams struct {
	matchReward    int
	mismatchPenalty int
	insertPenalty  int
	deletePenalty  int
	maxSeedGap     int
	bandK          int
}

// linkScore computes the score of extending a chain from predecessor l
// (earlier, smaller coordinates) to r (the seed being added), or returns
// (0, false) if the gap between them is too large to bridge.
func linkScore(l, r Seed, p chainScoreParams) (int, bool) {
	fwd := minInt(r.BeginH-l.BeginH, r.BeginV-l.BeginV)
	matches := minInt(l.lenH(), r.lenH())
	if d := maxInt(0, fwd-p.bandK); matches-d > 0 {
		matches -= d
	}
	nonMatches := fwd - matches
	if nonMatches > p.maxSeedGap {
		return 0, false
	}
	drift := l.Diagonal() - r.Diagonal()
	var indelPenalty int
	switch {
	case drift > 0:
		indelPenalty = drift * p.insertPenalty
	case drift < 0:
		indelPenalty = drift * p.deletePenalty
	}
	score := p.matchReward*matches + indelPenalty + p.mismatchPenalty*nonMatches
	return score, true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// chainNode tracks one seed's best-known chain during the sparse DP sweep:
// its cumulative score and a back-pointer to its chosen predecessor.
type chainNode struct {
	seed  Seed
	score int
	prev  int // index into the sweep-ordered seed slice, -1 if none
}

// ChainSeeds runs the sparse dynamic program over seeds, returning up to
// topK chains in ascending total-score order. It sorts seeds by
// (beginV, endH) for the main sweep and maintains, for each seed, the best
// predecessor found among seeds already swept (a simple O(n^2) scan here
// rather than the original's column-best/visibility-structure
// acceleration, which exists purely to avoid rechecking every prior seed;
// the result is identical, just without that optimization).
func ChainSeeds(seeds []Seed, matchReward, mismatchPenalty, insertPenalty, deletePenalty, maxSeedGap, bandK, topK int) []Chain {
	if len(seeds) == 0 {
		return nil
	}
	order := append([]Seed(nil), seeds...)
	sort.Slice(order, func(i, j int) bool {
		if order[i].BeginV != order[j].BeginV {
			return order[i].BeginV < order[j].BeginV
		}
		return order[i].EndH < order[j].EndH
	})
	params := chainScoreParams{
		matchReward:     matchReward,
		mismatchPenalty: mismatchPenalty,
		insertPenalty:   insertPenalty,
		deletePenalty:   deletePenalty,
		maxSeedGap:      maxSeedGap,
		bandK:           bandK,
	}
	nodes := make([]chainNode, len(order))
	for i, s := range order {
		nodes[i] = chainNode{seed: s, score: matchReward * s.lenH(), prev: -1}
	}
	for i := range nodes {
		best := nodes[i].score
		bestPrev := -1
		for j := 0; j < i; j++ {
			if order[j].EndH > order[i].BeginH || order[j].EndV > order[i].BeginV {
				continue
			}
			link, ok := linkScore(order[j], order[i], params)
			if !ok {
				continue
			}
			cand := nodes[j].score + link + matchReward*order[i].lenH()
			if cand > best {
				best, bestPrev = cand, j
			}
		}
		nodes[i].score = best
		nodes[i].prev = bestPrev
	}

	type scoredEnd struct {
		idx   int
		score int
	}
	ends := make([]scoredEnd, len(nodes))
	for i, n := range nodes {
		ends[i] = scoredEnd{idx: i, score: n.score}
	}
	sort.Slice(ends, func(i, j int) bool { return ends[i].score < ends[j].score })
	if len(ends) > topK && topK > 0 {
		ends = ends[len(ends)-topK:]
	}
	chains := make([]Chain, 0, len(ends))
	for _, e := range ends {
		var path []Seed
		for idx := e.idx; idx >= 0; idx = nodes[idx].prev {
			path = append([]Seed{nodes[idx].seed}, path...)
		}
		chains = append(chains, Chain{Seeds: path, Score: e.score})
	}
	return chains
}
