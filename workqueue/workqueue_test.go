package workqueue

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalizeRunsEveryProducedTask(t *testing.T) {
	p := New(4)
	var count int64
	for i := 0; i < 50; i++ {
		p.ProduceWith(func() error {
			atomic.AddInt64(&count, 1)
			return nil
		})
	}
	require.NoError(t, p.Finalize())
	assert.Equal(t, int64(50), count)
}

func TestFinalizeDrainsTasksProducedDuringFinalize(t *testing.T) {
	p := New(2)
	var outer, inner int64
	p.ProduceWith(func() error {
		atomic.AddInt64(&outer, 1)
		p.ProduceWith(func() error {
			atomic.AddInt64(&inner, 1)
			return nil
		})
		return nil
	})
	require.NoError(t, p.Finalize())
	assert.Equal(t, int64(1), outer)
	assert.Equal(t, int64(1), inner)
}

func TestFinalizeReturnsFirstError(t *testing.T) {
	p := New(4)
	boom := assert.AnError
	p.ProduceWith(func() error { return boom })
	err := p.Finalize()
	assert.Error(t, err)
}

func TestFinalizeOnEmptyPoolIsNoop(t *testing.T) {
	p := New(1)
	assert.NoError(t, p.Finalize())
}

func TestNewTreatsNonPositiveParallelismAsOne(t *testing.T) {
	p := New(0)
	assert.Equal(t, 1, p.Parallelism)
	p2 := New(-5)
	assert.Equal(t, 1, p2.Parallelism)
}
