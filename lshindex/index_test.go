package lshindex

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longread/biocore/sketch"
)

func sk(vals ...uint64) sketch.Sketch { return sketch.Sketch(vals) }

func TestNewDefaultInsertAndQueryFindsExactMatch(t *testing.T) {
	idx, err := NewDefault(4, []int64{2})
	require.NoError(t, err)

	s := sk(10, 20, 30, 40)
	id, err := idx.Insert(s)
	require.NoError(t, err)
	assert.Equal(t, ID(0), id)

	ids, counts, itemsPerRow := idx.Query(s, 0, -1, false)
	require.Len(t, ids, 1)
	assert.Equal(t, id, ids[0])
	assert.Equal(t, int32(2), counts[0]) // two rows, both should match
	assert.Len(t, itemsPerRow, 1)
}

func TestInsertValidatesSketchSize(t *testing.T) {
	idx, err := NewDefault(4, []int64{2})
	require.NoError(t, err)
	_, err = idx.Insert(sk(1, 2))
	assert.Error(t, err)
}

func TestNextIDMonotonic(t *testing.T) {
	idx, err := NewDefault(4, []int64{2})
	require.NoError(t, err)
	var ids []ID
	for i := 0; i < 5; i++ {
		id, err := idx.Insert(sk(uint64(i), uint64(i+1), uint64(i+2), uint64(i+3)))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	for i, id := range ids {
		assert.Equal(t, ID(i), id)
	}
	assert.Equal(t, int64(5), idx.Size())
}

func TestBottomKIndexMembership(t *testing.T) {
	idx := NewBottomK(4)
	assert.True(t, idx.IsBottomK())
	s := sk(100, 200, 300, 400)
	id, err := idx.Insert(s)
	require.NoError(t, err)

	ids, _, _ := idx.Query(sk(200, 999, 998, 997), 0, -1, false)
	require.Len(t, ids, 1)
	assert.Equal(t, id, ids[0])
}

func TestUpdateQueryIsExhaustiveAcrossTables(t *testing.T) {
	idx, err := NewDefault(4, []int64{1, 2})
	require.NoError(t, err)
	first := sk(1, 2, 3, 4)
	_, err = idx.Insert(first)
	require.NoError(t, err)

	ids, counts, itemsPerRow, err := idx.UpdateQuery(sk(1, 2, 3, 4), 0)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Greater(t, counts[0], int32(0))
	assert.Len(t, itemsPerRow, 2) // one entry per table, even when not early-stopped
}

func TestOrderByCountThenID(t *testing.T) {
	ids := []ID{1, 2, 3, 4}
	counts := []int32{5, 5, 1, 9}
	OrderByCountThenID(ids, counts)
	assert.Equal(t, []ID{4, 2, 1, 3}, ids)
	assert.Equal(t, []int32{9, 5, 5, 1}, counts)
}

func TestWriteReadRoundTrip(t *testing.T) {
	idx, err := NewDefault(4, []int64{2})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := idx.Insert(sk(uint64(i), uint64(i+1), uint64(i+2), uint64(i+3)))
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, idx.Write(&buf))

	restored, err := Read(&buf, idx.SketchSize())
	require.NoError(t, err)
	assert.Equal(t, idx.Size(), restored.Size())
	assert.Equal(t, idx.NTables(), restored.NTables())

	s := sk(3, 4, 5, 6)
	origIDs, _, _ := idx.Query(s, 0, -1, false)
	restIDs, _, _ := restored.Query(s, 0, -1, false)
	assert.ElementsMatch(t, origIDs, restIDs)
}

func TestWriteSnappyReadSnappyRoundTrip(t *testing.T) {
	idx := NewBottomK(4)
	for i := 0; i < 5; i++ {
		base := uint64(i * 10)
		_, err := idx.Insert(sk(base, base+1, base+2, base+3))
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, idx.WriteSnappy(&buf))

	restored, err := ReadSnappy(&buf, idx.SketchSize())
	require.NoError(t, err)
	assert.Equal(t, idx.Size(), restored.Size())

	ids, _, _ := restored.Query(sk(1, 998, 997, 996), 0, -1, false)
	require.Len(t, ids, 1)
	assert.Equal(t, ID(0), ids[0])
}

func TestCloneLikePreservesShapeNotData(t *testing.T) {
	idx, err := NewDefault(4, []int64{1, 2})
	require.NoError(t, err)
	_, err = idx.Insert(sk(1, 2, 3, 4))
	require.NoError(t, err)

	clone := CloneLike(idx)
	assert.Equal(t, idx.NTables(), clone.NTables())
	assert.Equal(t, int64(0), clone.Size())
	ids, _, _ := clone.Query(sk(1, 2, 3, 4), 0, -1, false)
	assert.Empty(t, ids)
}
