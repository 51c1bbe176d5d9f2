// Package workqueue implements the thread-pool contract that the biocore
// algorithmic core treats as an external collaborator (see the
// EXTERNAL INTERFACES section of the design: "an interface
// { ProduceWith(fn); Finalize(); } with the contract that all produced
// tasks complete by Finalize return"). It is a thin wrapper over
// github.com/grailbio/base/traverse.Each, following the fan-out style
// used for bulk shard processing in pileup/snp and bio-bam-sort.
package workqueue

import (
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// Pool is a bounded worker pool satisfying the ProduceWith/Finalize
// contract. Unlike traverse.Each, which runs a fixed, known number of
// indexed jobs to completion synchronously, Pool lets callers enqueue work
// incrementally (e.g. while streaming reads through a de Bruijn or POA
// ingest loop) and defers actually running it until Finalize, so goroutine
// fan-out width stays bounded by Parallelism regardless of how many
// ProduceWith calls precede it.
type Pool struct {
	Parallelism int

	mu    sync.Mutex
	tasks []func() error
	err   errors.Once
}

// New returns a Pool that runs up to parallelism tasks concurrently when
// Finalize is called. parallelism <= 0 is treated as 1.
func New(parallelism int) *Pool {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Pool{Parallelism: parallelism}
}

// ProduceWith enqueues a task. It never blocks and never runs fn inline;
// fn runs only once Finalize is called. ProduceWith may itself be called
// from within a running task (e.g. a de Bruijn spur-removal pass enqueuing
// re-checks for former neighbors of a removed tip), which is why tasks are
// only drained by Finalize, not by ProduceWith.
func (p *Pool) ProduceWith(fn func() error) {
	p.mu.Lock()
	p.tasks = append(p.tasks, fn)
	p.mu.Unlock()
}

// Finalize is a barrier: it runs every task produced so far (including
// ones enqueued by other tasks while Finalize is running) and returns the
// first error encountered, via errors.Once; later errors are dropped and
// failed tasks are not retried. Finalize may be called more than once; later calls drain
// whatever was produced since the previous call.
func (p *Pool) Finalize() error {
	for {
		p.mu.Lock()
		batch := p.tasks
		p.tasks = nil
		p.mu.Unlock()
		if len(batch) == 0 {
			break
		}
		if terr := traverse.Limit(p.Parallelism).Each(len(batch), func(i int) error {
			return batch[i]()
		}); terr != nil {
			p.err.Set(terr)
			log.Error.Printf("workqueue: task batch of %d failed: %v", len(batch), terr)
		}
	}
	return p.err.Err()
}
