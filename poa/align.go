package poa

import "github.com/longread/biocore/bioerr"

// Config carries the scores TryAddRead's column DP uses, plus the mode.
// LOCAL allows any cell to additionally reach via a zero-cost Start move.
type Config struct {
	Match    int
	Mismatch int
	Insert   int
	Delete   int
	Local    bool
}

const negInf = -(1 << 30)

// moveKind records which of the three (plus Start/End) recursions a cell's
// best score came from, so CommitAdd's traceback knows what edge to walk.
type moveKind byte

const (
	moveNone moveKind = iota
	moveMatch
	moveDelete
	moveInsert
	moveStart
	moveEnd
)

// cell is one entry of an AlignmentColumn: the best score reaching this
// (vertex, row) pair and which move produced it, plus the predecessor
// vertex when the move was Match/Delete (ambiguous among several
// predecessors in a DAG, so it's recorded explicitly rather than implied).
type cell struct {
	score float64
	move  moveKind
	pred  VertexID
}

// AlignmentColumn is the compact per-vertex score array TryAddRead
// produces: one column of the conceptual alignment matrix, covering rows
// [begin, end) of the read (or the full [0, len(seq)+1) range when
// unbanded).
type AlignmentColumn struct {
	Vertex VertexID
	Begin  int
	End    int
	cells  []cell // cells[row-Begin]
}

func (c *AlignmentColumn) get(row int) cell {
	if row < c.Begin || row >= c.End {
		return cell{score: negInf}
	}
	return c.cells[row-c.Begin]
}

// AlignmentMatrix is the materialized set of per-vertex columns produced
// by one TryAddRead call, ready for CommitAdd.
type AlignmentMatrix struct {
	seq     string
	cfg     Config
	order   []VertexID
	columns map[VertexID]*AlignmentColumn
	endRow  int // best-scoring End row (= len(seq) outside LOCAL)
	endPred VertexID
}

// RangeFinder narrows the row interval [begin, end) a vertex's column
// needs to cover, letting banded alignment skip far-off-diagonal cells. A
// nil RangeFinder means unbanded: every column covers the full
// [0, len(seq)+1) range.
type RangeFinder interface {
	Range(v VertexID, seqLen int) (begin, end int)
}

// TryAddRead computes (but does not commit) the alignment of sequence
// against the graph's current topology, returning a materialized
// AlignmentMatrix. Call CommitAdd on the result to thread the read into
// the graph.
func (g *Graph) TryAddRead(sequence string, cfg Config, rf RangeFinder) (*AlignmentMatrix, error) {
	if len(sequence) == 0 {
		return nil, bioerr.E(bioerr.InvalidArgument, "poa: empty read")
	}
	order := g.TopologicalOrder()
	m := &AlignmentMatrix{seq: sequence, cfg: cfg, order: order, columns: make(map[VertexID]*AlignmentColumn)}

	rows := len(sequence) + 1
	for _, v := range order {
		begin, end := 0, rows
		if rf != nil {
			begin, end = rf.Range(v, len(sequence))
			if begin < 0 {
				begin = 0
			}
			if end > rows {
				end = rows
			}
		}
		col := &AlignmentColumn{Vertex: v, Begin: begin, End: end, cells: make([]cell, end-begin)}
		for i := range col.cells {
			col.cells[i].score = negInf
		}
		m.columns[v] = col

		if v == Start {
			for row := begin; row < end; row++ {
				var best cell
				if row == 0 {
					best = cell{score: 0, move: moveNone}
				} else if cfg.Local {
					best = cell{score: 0, move: moveStart}
				} else {
					best = cell{score: negInf}
				}
				col.cells[row-begin] = best
			}
			continue
		}

		preds := g.InEdges(v)
		if v == End {
			for row := begin; row < end; row++ {
				best := cell{score: negInf}
				for _, e := range preds {
					if pcol := m.columns[e.From]; pcol != nil {
						if pc := pcol.get(row); pc.score > best.score {
							best = cell{score: pc.score, move: moveEnd, pred: e.From}
						}
					}
				}
				col.cells[row-begin] = best
			}
			continue
		}
		for row := begin; row < end; row++ {
			best := cell{score: negInf}
			if row == 0 && v != Start {
				best = cell{score: negInf}
			}
			if cfg.Local {
				if cand := (cell{score: 0, move: moveStart}); cand.score > best.score {
					best = cand
				}
			}
			for _, e := range preds {
				pcol := m.columns[e.From]
				if pcol == nil {
					continue
				}
				if row > 0 {
					subScore := cfg.Mismatch
					if row-1 < len(sequence) && sequence[row-1] == g.vertex(v).Base {
						subScore = cfg.Match
					}
					if pc := pcol.get(row - 1); pc.score > negInf {
						if cand := pc.score + float64(subScore); cand > best.score {
							best = cell{score: cand, move: moveMatch, pred: e.From}
						}
					}
				}
				if pc := pcol.get(row); pc.score > negInf {
					if cand := pc.score + float64(cfg.Delete); cand > best.score {
						best = cell{score: cand, move: moveDelete, pred: e.From}
					}
				}
			}
			if row > 0 {
				if self := col.get(row - 1); self.score > negInf {
					if cand := self.score + float64(cfg.Insert); cand > best.score {
						best = cell{score: cand, move: moveInsert, pred: v}
					}
				}
			}
			col.cells[row-begin] = best
		}
	}

	endCol := m.columns[End]
	bestScore, bestRow := float64(negInf), len(sequence)
	if endCol != nil {
		if cfg.Local {
			for row := endCol.Begin; row < endCol.End; row++ {
				if c := endCol.get(row); c.score > bestScore {
					bestScore, bestRow = c.score, row
				}
			}
		} else if c := endCol.get(len(sequence)); c.score > negInf {
			bestScore, bestRow = c.score, len(sequence)
		}
	}
	m.endRow = bestRow
	return m, nil
}

// Score returns the best alignment score TryAddRead found.
func (m *AlignmentMatrix) Score() float64 {
	col := m.columns[End]
	if col == nil {
		return negInf
	}
	return col.get(m.endRow).score
}
