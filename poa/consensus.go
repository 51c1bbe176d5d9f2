package poa

import "sort"

// ConsensusConfig carries the scoring constants FindConsensus uses, plus
// the mode it runs under: GLOBAL scores every vertex against total read
// count, while the default (local) scoring compares against each vertex's
// own SpanningReads floored at minCoverage.
type ConsensusConfig struct {
	Global bool
}

// Consensus is the result of FindConsensus: the consensus sequence plus
// the vertex path it was read off of (Start and End excluded).
type Consensus struct {
	Sequence string
	Path     []VertexID
}

// totalReads returns the number of reads threaded into the graph so far,
// used as the denominator for GLOBAL-mode scoring.
func (g *Graph) totalReads() int {
	return g.numReads
}

// FindConsensus assigns every non-sentinel vertex a score of
// 2*reads - max(spanningReads, minCoverage) - 0.0001 (or
// 2*reads - totalReads - 0.0001 under GLOBAL scoring), then finds the
// maximum-reaching-score path via a topological DP, tie-breaking ties by
// preferring the lower internal vertex index for determinism.
func (g *Graph) FindConsensus(cfg ConsensusConfig, minCoverage int) Consensus {
	order := g.TopologicalOrder()
	total := g.totalReads()

	for _, v := range order {
		if v == Start || v == End {
			continue
		}
		vert := g.vertex(v)
		denom := vert.SpanningReads
		if denom < minCoverage {
			denom = minCoverage
		}
		if cfg.Global {
			denom = total
		}
		vert.Score = 2*float64(vert.Reads) - float64(denom) - 0.0001
	}
	g.vertex(Start).Score = 0
	g.vertex(End).Score = 0

	for _, v := range order {
		vert := g.vertex(v)
		if v == Start {
			vert.ReachingScore = vert.Score
			vert.reachingFrom = -1
			continue
		}
		best := float64(negInf)
		bestFrom := VertexID(-1)
		for _, e := range g.InEdges(v) {
			from := g.vertex(e.From)
			cand := from.ReachingScore
			if cand > best || (cand == best && (bestFrom < 0 || e.From < bestFrom)) {
				best, bestFrom = cand, e.From
			}
		}
		if best == negInf {
			best = 0
		}
		vert.ReachingScore = vert.Score + best
		vert.reachingFrom = bestFrom
	}

	bestV, bestScore := VertexID(-1), float64(negInf)
	for _, v := range order {
		if v == Start || v == End {
			continue
		}
		vert := g.vertex(v)
		if vert.ReachingScore > bestScore || (vert.ReachingScore == bestScore && (bestV < 0 || v < bestV)) {
			bestScore, bestV = vert.ReachingScore, v
		}
	}
	if bestV < 0 {
		return Consensus{}
	}

	var path []VertexID
	for v := bestV; v >= 0 && v != Start; {
		path = append([]VertexID{v}, path...)
		v = g.vertex(v).reachingFrom
	}
	seq := make([]byte, len(path))
	for i, v := range path {
		seq[i] = g.vertex(v).Base
	}
	return Consensus{Sequence: string(seq), Path: path}
}

// PruneGraph removes every non-sentinel vertex with Reads < minCoverage,
// deletes edges touching removed vertices, and reassigns surviving vertex
// indices to [0, n) in stable (previous-index) order.
func (g *Graph) PruneGraph(minCoverage int) {
	keep := make(map[VertexID]bool)
	keep[Start] = true
	keep[End] = true
	for _, v := range g.vertices {
		if v.ID == Start || v.ID == End {
			continue
		}
		if v.Reads >= minCoverage {
			keep[v.ID] = true
		}
	}

	oldToNew := make(map[VertexID]VertexID)
	var newVertices []Vertex
	ids := make([]VertexID, 0, len(keep))
	for id := range keep {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		newID := VertexID(len(newVertices))
		oldToNew[id] = newID
		v := *g.vertex(id)
		v.ID = newID
		newVertices = append(newVertices, v)
	}

	newOut := make(map[VertexID][]int)
	newIn := make(map[VertexID][]int)
	var newEdges []Edge
	for _, e := range g.edges {
		nf, okF := oldToNew[e.From]
		nt, okT := oldToNew[e.To]
		if !okF || !okT {
			continue
		}
		idx := len(newEdges)
		newEdges = append(newEdges, Edge{From: nf, To: nt, Count: e.Count})
		newOut[nf] = append(newOut[nf], idx)
		newIn[nt] = append(newIn[nt], idx)
	}

	g.vertices = newVertices
	g.edges = newEdges
	g.out = newOut
	g.in = newIn
	newBackbone := make([]VertexID, 0, len(g.backbone))
	for _, v := range g.backbone {
		if nv, ok := oldToNew[v]; ok {
			newBackbone = append(newBackbone, nv)
		}
	}
	g.backbone = newBackbone
}
