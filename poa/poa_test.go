package poa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchDominatedConfig() Config {
	// Gap/mismatch costs are deliberately huge relative to Match so the
	// best-scoring path is always the one with the fewest gaps/mismatches,
	// making traceback outcomes predictable for these tests.
	return Config{Match: 1, Mismatch: -100, Insert: -100, Delete: -100}
}

func TestAddFirstReadBuildsLinearBackbone(t *testing.T) {
	g := New()
	require.NoError(t, g.AddFirstRead("ACGT"))
	assert.Equal(t, 6, g.NVertices()) // Start, End, + 4 bases
	assert.Len(t, g.backbone, 4)

	order := g.TopologicalOrder()
	require.Len(t, order, 6)
	assert.Equal(t, Start, order[0])
	assert.Equal(t, End, order[len(order)-1])
}

func TestAddFirstReadRejectsEmptyOrRepeat(t *testing.T) {
	g := New()
	assert.Error(t, g.AddFirstRead(""))
	require.NoError(t, g.AddFirstRead("ACGT"))
	assert.Error(t, g.AddFirstRead("TTTT"))
}

func TestTryAddReadRejectsEmptySequence(t *testing.T) {
	g := New()
	require.NoError(t, g.AddFirstRead("ACGT"))
	_, err := g.TryAddRead("", matchDominatedConfig(), nil)
	assert.Error(t, err)
}

func TestIdenticalReadCommitsWithoutNewVertices(t *testing.T) {
	g := New()
	require.NoError(t, g.AddFirstRead("ACGT"))
	before := g.NVertices()

	m, err := g.TryAddRead("ACGT", matchDominatedConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, g.CommitAdd(m))
	assert.Equal(t, before, g.NVertices(), "an identical read should thread onto the existing backbone, adding no vertices")

	for _, v := range g.backbone {
		assert.Equal(t, 2, g.vertex(v).Reads)
	}
}

func TestMismatchedReadBranchesAtDivergence(t *testing.T) {
	g := New()
	require.NoError(t, g.AddFirstRead("ACGT"))
	before := g.NVertices()

	m, err := g.TryAddRead("ACGA", matchDominatedConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, g.CommitAdd(m))

	assert.Equal(t, before+1, g.NVertices(), "a single mismatched base should add exactly one branch vertex")
}

func TestFindConsensusOnBackboneOnlyReturnsTheBackboneSequence(t *testing.T) {
	g := New()
	require.NoError(t, g.AddFirstRead("ACGT"))

	c := g.FindConsensus(ConsensusConfig{}, 0)
	assert.Equal(t, "ACGT", c.Sequence)
	assert.Equal(t, g.backbone, c.Path)
}

func TestFindConsensusGlobalModeUsesTotalReadsDenominator(t *testing.T) {
	g := New()
	require.NoError(t, g.AddFirstRead("AC"))
	// Thread four more identical reads through the real TryAddRead/CommitAdd
	// path so the graph's read counter and every backbone vertex's
	// SpanningReads/Reads genuinely reach 5, exercising GLOBAL mode's
	// shared-denominator behavior against real traceback output.
	for i := 0; i < 4; i++ {
		m, err := g.TryAddRead("AC", matchDominatedConfig(), nil)
		require.NoError(t, err)
		require.NoError(t, g.CommitAdd(m))
	}
	require.Equal(t, 5, g.NumReads())
	for _, v := range g.backbone {
		assert.Equal(t, 5, g.vertex(v).Reads)
		assert.Equal(t, 5, g.vertex(v).SpanningReads)
	}

	c := g.FindConsensus(ConsensusConfig{Global: true}, 0)
	assert.Equal(t, "AC", c.Sequence)
}

// TestPOAConcreteScenarioIdenticalGGGReads reproduces spec scenario 2:
// two identical "GGG" reads threaded in GLOBAL mode produce a 5-vertex
// graph (Start, G, G, G, End), consensus "GGG", each internal vertex
// carrying 2 reads and every backbone edge traversed by both reads.
func TestPOAConcreteScenarioIdenticalGGGReads(t *testing.T) {
	g := New()
	require.NoError(t, g.AddFirstRead("GGG"))
	m, err := g.TryAddRead("GGG", matchDominatedConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, g.CommitAdd(m))

	c := g.FindConsensus(ConsensusConfig{Global: true}, 0)
	assert.Equal(t, "GGG", c.Sequence)
	assert.Equal(t, 5, g.NVertices())

	for _, v := range g.backbone {
		assert.Equal(t, 2, g.vertex(v).Reads)
	}
	prev := Start
	for _, v := range g.backbone {
		edges := g.OutEdges(prev)
		require.Len(t, edges, 1)
		assert.Equal(t, 2, edges[0].Count)
		prev = v
	}
	last := g.OutEdges(prev)
	require.Len(t, last, 1)
	assert.Equal(t, 2, last[0].Count)
}

// TestPOAConcreteScenarioDivergentGTGReads reproduces spec scenario 3:
// "GGG" followed by two "GTG" reads, in GLOBAL mode, converges on
// consensus "GTG" with the branch T vertex carrying 2 reads and the
// original backbone's middle G vertex left at 1.
func TestPOAConcreteScenarioDivergentGTGReads(t *testing.T) {
	g := New()
	require.NoError(t, g.AddFirstRead("GGG"))
	for i := 0; i < 2; i++ {
		m, err := g.TryAddRead("GTG", matchDominatedConfig(), nil)
		require.NoError(t, err)
		require.NoError(t, g.CommitAdd(m))
	}

	c := g.FindConsensus(ConsensusConfig{Global: true}, 0)
	assert.Equal(t, "GTG", c.Sequence)
	require.Len(t, c.Path, 3)

	middleT := c.Path[1]
	assert.Equal(t, byte('T'), g.vertex(middleT).Base)
	assert.Equal(t, 2, g.vertex(middleT).Reads)

	originalMiddleG := g.backbone[1]
	assert.Equal(t, 1, g.vertex(originalMiddleG).Reads)
}

func TestPruneGraphRemovesLowCoverageVerticesAndReindexes(t *testing.T) {
	g := New()
	require.NoError(t, g.AddFirstRead("ACGT"))
	// Inflate coverage on the first three backbone vertices, leaving the
	// last below threshold, then prune it out.
	for i := 0; i < 3; i++ {
		g.vertex(g.backbone[i]).Reads = 3
	}
	lastID := g.backbone[3]

	before := g.NVertices()
	g.PruneGraph(2)

	assert.Equal(t, before-1, g.NVertices())
	for _, v := range g.vertices {
		assert.NotEqual(t, lastID, v.ID, "the low-coverage vertex's old id should not reappear after reindexing")
	}
	// Sentinels are always kept, always first and second.
	assert.Equal(t, Start, g.vertices[0].ID)
	assert.Equal(t, End, g.vertices[1].ID)
}

func TestOutEdgesAndInEdgesAreConsistent(t *testing.T) {
	g := New()
	require.NoError(t, g.AddFirstRead("AC"))
	outFromStart := g.OutEdges(Start)
	require.Len(t, outFromStart, 1)
	v1 := outFromStart[0].To
	in := g.InEdges(v1)
	require.Len(t, in, 1)
	assert.Equal(t, Start, in[0].From)
}
