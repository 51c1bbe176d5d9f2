package lshindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longread/biocore/submer"
)

func TestNewKMerLSHTableDedupesAndNormalizesSelections(t *testing.T) {
	// 0b0011 and 0b1100 normalize to the same shape, shifted; sliding mode
	// should collapse them to one map.
	tbl, err := NewKMerLSHTable(8, []submer.Selection{
		submer.NewSelection(0b0011),
		submer.NewSelection(0b1100),
		submer.NewSelection(0b0011),
	}, 0, true)
	require.NoError(t, err)
	assert.Equal(t, 1, len(tbl.subMers))
}

func TestNewKMerLSHTableRejectsBadArgs(t *testing.T) {
	_, err := NewKMerLSHTable(0, []submer.Selection{submer.NewSelection(1)}, 0, true)
	assert.Error(t, err)
	_, err = NewKMerLSHTable(8, nil, 0, true)
	assert.Error(t, err)
}

func TestNewSingleKMerLSHTableInsertAndQuery(t *testing.T) {
	tbl, err := NewSingleKMerLSHTable(8, 4, 0, false)
	require.NoError(t, err)

	id, err := tbl.Insert(0xAB)
	require.NoError(t, err)
	assert.Equal(t, int64(0), id)

	hits := tbl.Query(0xAB, -1)
	require.Len(t, hits, 1)
	assert.Equal(t, ID(id), hits[0].ID)
	assert.Equal(t, 1, hits[0].Count)
}

func TestInsertAtDoesNotIssueNewID(t *testing.T) {
	tbl, err := NewSingleKMerLSHTable(8, 4, 0, false)
	require.NoError(t, err)
	require.NoError(t, tbl.InsertAt(0x12, 7))
	assert.Equal(t, int64(0), tbl.Size())

	hits := tbl.Query(0x12, -1)
	require.Len(t, hits, 1)
	assert.Equal(t, ID(7), hits[0].ID)
}

func TestSlidingModeMatchesAcrossTranslation(t *testing.T) {
	// A single contiguous 3-wide kernel, sliding, over an 8-wide k-mer.
	tbl, err := NewSingleKMerLSHTable(8, 3, 0, true)
	require.NoError(t, err)

	base := uint64(0x3A5C)
	id, err := tbl.Insert(base)
	require.NoError(t, err)

	// The same k-mer shifted by one base still shares kernel windows.
	hits := tbl.Query(base>>2, -1)
	require.Len(t, hits, 1)
	assert.Equal(t, ID(id), hits[0].ID)
	assert.Greater(t, hits[0].Count, 0)
}

func TestBottomKPooledModeUsesSingleMap(t *testing.T) {
	subMers := []submer.Selection{
		submer.NewSelection(0b0111),
		submer.NewSelection(0b1110),
	}
	tbl, err := NewKMerLSHTable(8, subMers, 2, true)
	require.NoError(t, err)
	assert.Equal(t, 1, len(tbl.maps))

	id, err := tbl.Insert(0x55AA)
	require.NoError(t, err)

	hits := tbl.Query(0x55AA, -1)
	require.Len(t, hits, 1)
	assert.Equal(t, ID(id), hits[0].ID)
}

func TestInsertParallelPreservesInsertionOrderIDs(t *testing.T) {
	tbl, err := NewSingleKMerLSHTable(16, 6, 0, false)
	require.NoError(t, err)

	mers := make([]uint64, 50)
	for i := range mers {
		mers[i] = uint64(i) * 97
	}
	require.NoError(t, tbl.InsertParallel(mers, 4))
	assert.Equal(t, int64(len(mers)), tbl.Size())

	for i, m := range mers {
		hits := tbl.Query(m, -1)
		found := false
		for _, h := range hits {
			if h.ID == ID(i) {
				found = true
			}
		}
		assert.True(t, found, "expected id %d among hits for mer %d", i, m)
	}
}

func TestInsertParallelOnEmptyIsNoop(t *testing.T) {
	tbl, err := NewSingleKMerLSHTable(8, 4, 0, false)
	require.NoError(t, err)
	require.NoError(t, tbl.InsertParallel(nil, 4))
	assert.Equal(t, int64(0), tbl.Size())
}

func TestMapQueryAccumulatesAcrossRepeatedInserts(t *testing.T) {
	tbl, err := NewSingleKMerLSHTable(8, 4, 0, false)
	require.NoError(t, err)
	mer := uint64(0x77)
	_, err = tbl.Insert(mer)
	require.NoError(t, err)
	_, err = tbl.Insert(mer)
	require.NoError(t, err)

	hits := make(map[ID]int)
	tbl.MapQuery(hits, mer, -1)
	assert.Len(t, hits, 2)
	for _, c := range hits {
		assert.Equal(t, 1, c)
	}
}

func TestQueryOrdersByCountThenID(t *testing.T) {
	// A single contiguous 2-wide kernel, sliding, over an 8-wide k-mer,
	// without bottom-k pooling. The same k-mer is inserted under two ids,
	// so both get equal counts and their order falls to the id tie-break.
	tbl, err := NewSingleKMerLSHTable(8, 2, 0, true)
	require.NoError(t, err)

	idA, err := tbl.Insert(0x0F)
	require.NoError(t, err)
	idB, err := tbl.Insert(0x0F)
	require.NoError(t, err)

	hits := tbl.Query(0x0F, -1)
	require.Len(t, hits, 2)
	assert.Equal(t, hits[0].Count, hits[1].Count)
	// equal counts tie-break by id descending
	assert.True(t, hits[0].ID > hits[1].ID)
	assert.ElementsMatch(t, []ID{ID(idA), ID(idB)}, []ID{hits[0].ID, hits[1].ID})
}

func TestTotalNumKernelsSlidingVsFixed(t *testing.T) {
	sliding, err := NewSingleKMerLSHTable(10, 4, 0, true)
	require.NoError(t, err)
	assert.Equal(t, 7, sliding.TotalNumKernels()) // 10 - 4 + 1

	fixed, err := NewSingleKMerLSHTable(10, 4, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed.TotalNumKernels())
}

func TestMapSizeReflectsDistinctBuckets(t *testing.T) {
	tbl, err := NewSingleKMerLSHTable(8, 4, 0, false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tbl.MapSize())
	_, err = tbl.Insert(0x1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tbl.MapSize())
}
