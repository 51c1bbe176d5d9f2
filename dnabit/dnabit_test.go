package dnabit

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWangHashBijective(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		x := rng.Uint64()
		h := WangHash(x)
		assert.Equal(t, x, WangHashInverse(h), "WangHashInverse(WangHash(x)) must recover x")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []string{"A", "ACGT", "TTTTTTTTTTTTTTTTTTTTTTTTTTTTTTTT", "acgtACGT"}
	for _, s := range cases {
		t.Run(s, func(t *testing.T) {
			v, err := EncodeSeq(s)
			require.NoError(t, err)
			decoded, err := DecodeSeq(v, len(s))
			require.NoError(t, err)
			assert.Equal(t, len(s), len(decoded))
		})
	}
}

func TestEncodeDecodeACGTLiteral(t *testing.T) {
	v, err := EncodeSeq("ACGT")
	require.NoError(t, err)
	assert.Equal(t, uint64(0b11100100), v)

	decoded, err := DecodeSeq(v, 4)
	require.NoError(t, err)
	assert.Equal(t, "ACGT", decoded)
}

func TestEncodeSeqRejectsNonACGT(t *testing.T) {
	_, err := EncodeSeq("ACGN")
	assert.Error(t, err)
}

func TestReverseComplementInvolution(t *testing.T) {
	for width := 1; width <= 32; width++ {
		v, err := EncodeSeq(repeatBase("ACGT", width))
		require.NoError(t, err)
		rc := ReverseComplement(v, width)
		rcrc := ReverseComplement(rc, width)
		assert.Equal(t, v, rcrc, "width %d", width)
	}
}

func repeatBase(cycle string, n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = cycle[i%len(cycle)]
	}
	return string(out)
}

func TestCanonicalIsSymmetric(t *testing.T) {
	v, err := EncodeSeq("ACGTACGT")
	require.NoError(t, err)
	rc := ReverseComplement(v, 8)
	assert.Equal(t, Canonical(v, 8), Canonical(rc, 8))
}

func TestDnaBitEqualIgnoresStrand(t *testing.T) {
	v, err := EncodeSeq("ACGT")
	require.NoError(t, err)
	rc := ReverseComplement(v, 4)
	a, err := NewDnaBit(v, false, 4)
	require.NoError(t, err)
	b, err := NewDnaBit(rc, true, 4)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestFixedContainerSetGet(t *testing.T) {
	f, err := NewFixed(2)
	require.NoError(t, err)
	require.NoError(t, f.Set(0, 1))
	require.NoError(t, f.Set(1, 2))
	require.NoError(t, f.Set(2, 3))
	v0, _ := f.Get(0)
	v1, _ := f.Get(1)
	v2, _ := f.Get(2)
	assert.Equal(t, uint64(1), v0)
	assert.Equal(t, uint64(2), v1)
	assert.Equal(t, uint64(3), v2)
	assert.Equal(t, 3, f.Size())
}

func TestFixedInsertAndRemove(t *testing.T) {
	f, err := NewFixed(4)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.NoError(t, f.Set(i, uint64(i)))
	}
	require.NoError(t, f.Insert(1, 9))
	v1, _ := f.Get(1)
	assert.Equal(t, uint64(9), v1)

	require.NoError(t, f.Remove(1))
	v1b, _ := f.Get(1)
	assert.Equal(t, uint64(1), v1b)
}

func TestFixedReverse(t *testing.T) {
	f, err := NewFixed(8)
	require.NoError(t, err)
	for i := 0; i < f.Capacity(); i++ {
		require.NoError(t, f.Set(i, uint64(i)))
	}
	f.Reverse()
	cap := f.Capacity()
	for i := 0; i < cap; i++ {
		v, _ := f.Get(i)
		assert.Equal(t, uint64(cap-1-i), v)
	}
}
