package sketch

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBottomMIsSortedAndBounded(t *testing.T) {
	seq := "ACGTACGTTGCATGCATGCAGGGTTTCACAGT"
	sk, err := BuildBottomM(seq, 5, 4)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(sk), 4)
	assert.True(t, sort.IsSorted(sk))
}

func TestBuildBottomMShorterThanMWhenFewKmers(t *testing.T) {
	sk, err := BuildBottomM("ACGTA", 5, 100)
	require.NoError(t, err)
	assert.Len(t, sk, 1)
}

func TestBuildBottomMRejectsBadArgs(t *testing.T) {
	_, err := BuildBottomM("ACGT", 0, 4)
	assert.Error(t, err)
	_, err = BuildBottomM("ACGT", 4, 0)
	assert.Error(t, err)
}

func TestKmerizerScanCoversEveryWindow(t *testing.T) {
	seq := "ACGTACGT"
	kz := NewKmerizer(3)
	kz.Reset(seq)
	var positions []int
	for kz.Scan() {
		positions = append(positions, kz.Pos())
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, positions)
}

func TestKmerizerSkipsAmbiguousBases(t *testing.T) {
	kz := NewKmerizer(3)
	kz.Reset("ACNGTACG")
	var positions []int
	for kz.Scan() {
		positions = append(positions, kz.Pos())
	}
	for _, p := range positions {
		window := "ACNGTACG"[p : p+3]
		for i := 0; i < len(window); i++ {
			assert.NotEqual(t, byte('N'), window[i])
		}
	}
}

func TestKmerizerCanonicalMatchesMinOfForwardAndRC(t *testing.T) {
	kz := NewKmerizer(4)
	kz.Reset("ACGTACGT")
	for kz.Scan() {
		fwd := kz.Forward()
		rc := kz.ReverseComplement()
		canon, isFwd := kz.Canonical()
		if fwd <= rc {
			assert.True(t, isFwd)
			assert.Equal(t, fwd, canon)
		} else {
			assert.False(t, isFwd)
			assert.Equal(t, rc, canon)
		}
	}
}
