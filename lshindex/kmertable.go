package lshindex

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/longread/biocore/bioerr"
	"github.com/longread/biocore/submer"
)

// Hit is one (id, count) match returned by KMerLSHTable.Query.
type Hit struct {
	ID    ID
	Count int
}

// KMerLSHTable is the k-mer-native LSH table: unlike Index, which operates
// on opaque register sketches, it hashes a single packed k-mer directly
// against a set of submer.Selection patterns. With sliding=true
// each selection is treated as a spaced-seed kernel
// translated across every valid offset in the k-mer (k-mer-set LSH, which
// is translation invariant); with sliding=false each selection is applied
// once, at a fixed position (bit-sampling / Hamming LSH).
type KMerLSHTable struct {
	maps     []map[uint64][]ID
	mu       []sync.Mutex
	subMers  []submer.Selection
	k        int
	bottomK  int // > 0 selects pooled bottom-k mode
	sliding  bool
	id       int64 // atomic
}

// NewKMerLSHTable builds a table for k-mers of width k, with one map per
// distinct (sorted, de-duplicated) submer.Selection in subMers. bottomK <= 0
// disables bottom-k pooling, giving one map per selection; bottomK > 0
// collapses all selections' hashes into a single pooled bottom-k map.
func NewKMerLSHTable(k int, subMers []submer.Selection, bottomK int, sliding bool) (*KMerLSHTable, error) {
	if k <= 0 || k > 32 {
		return nil, bioerr.E(bioerr.InvalidArgument, "lshindex: bad k", k)
	}
	if len(subMers) == 0 {
		return nil, bioerr.E(bioerr.InvalidArgument, "lshindex: need at least one submer selection")
	}
	t := &KMerLSHTable{k: k, bottomK: bottomK, sliding: sliding}
	sms := append([]submer.Selection(nil), subMers...)
	if sliding {
		for i := range sms {
			sms[i] = sms[i].Normalize()
		}
	}
	sort.Slice(sms, func(i, j int) bool { return sms[i] < sms[j] })
	deduped := sms[:0]
	for i, s := range sms {
		if i == 0 || s != sms[i-1] {
			deduped = append(deduped, s)
		}
	}
	t.subMers = deduped
	t.setBottomK(bottomK)
	return t, nil
}

// NewSingleKMerLSHTable builds a table with a single contiguous
// SubK-wide selection covering the low subK bases of every k-mer.
func NewSingleKMerLSHTable(k, subK, bottomK int, sliding bool) (*KMerLSHTable, error) {
	if subK <= 0 || subK > 32 {
		return nil, bioerr.E(bioerr.InvalidArgument, "lshindex: bad subK", subK)
	}
	pattern := (uint64(1) << uint(subK)) - 1
	return NewKMerLSHTable(k, []submer.Selection{submer.NewSelection(pattern)}, bottomK, sliding)
}

func (t *KMerLSHTable) setBottomK(bottomK int) {
	n := len(t.subMers)
	if bottomK > 0 {
		n = 1
	}
	t.maps = make([]map[uint64][]ID, n)
	for i := range t.maps {
		t.maps[i] = make(map[uint64][]ID)
	}
	t.mu = make([]sync.Mutex, n)
	t.bottomK = bottomK
}

// Size returns the number of ids issued so far.
func (t *KMerLSHTable) Size() int64 { return atomic.LoadInt64(&t.id) }

// MapSize returns the total number of distinct buckets across every map.
func (t *KMerLSHTable) MapSize() int64 {
	var total int64
	for _, m := range t.maps {
		total += int64(len(m))
	}
	return total
}

// NextID issues the next serial id (not goroutine-safe; use with Insert).
func (t *KMerLSHTable) NextID() int64 {
	id := t.id
	t.id++
	return id
}

// NextIDThreadSafe atomically issues the next id; use with InsertThreadSafe.
func (t *KMerLSHTable) NextIDThreadSafe() int64 {
	return atomic.AddInt64(&t.id, 1) - 1
}

// IsSliding reports whether kernels slide across the k-mer (set-LSH mode)
// or are applied once at a fixed offset (Hamming-LSH mode).
func (t *KMerLSHTable) IsSliding() bool { return t.sliding }

// BottomK returns the configured bottom-k pool size, or 0 if disabled.
func (t *KMerLSHTable) BottomK() int { return t.bottomK }

// TotalNumKernels returns the number of hash evaluations one insert or
// query performs: the sum of NumberOfKernels across every selection in
// sliding mode, or just the number of selections otherwise.
func (t *KMerLSHTable) TotalNumKernels() int {
	if !t.sliding {
		return len(t.subMers)
	}
	total := 0
	for _, s := range t.subMers {
		total += s.NumberOfKernels(t.k)
	}
	return total
}

// generatePooledBottomK computes every hash this k-mer produces across all
// configured selections, then keeps the bottomK smallest (sorted
// ascending). Used only when bottomK > 0.
func (t *KMerLSHTable) generatePooledBottomK(mer uint64) []uint64 {
	var all []uint64
	if t.sliding {
		for _, s := range t.subMers {
			nk := s.NumberOfKernels(t.k)
			for pos := 0; pos < nk; pos++ {
				all = append(all, hashedSubseq(s, mer, pos))
			}
		}
	} else {
		for _, s := range t.subMers {
			all = append(all, hashedSubseqFixed(s, mer))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	if t.bottomK > 0 && len(all) > t.bottomK {
		all = all[:t.bottomK]
	}
	return all
}

func hashedSubseq(s submer.Selection, mer uint64, pos int) uint64 {
	return wangHashU64(s.SelectSubseqAt(mer, pos))
}

func hashedSubseqFixed(s submer.Selection, mer uint64) uint64 {
	return wangHashU64(s.SelectSubseq(mer))
}

func wangHashU64(v uint64) uint64 {
	return hashBlock64(v)
}

// Insert adds mer under the next serial id, single-threaded.
func (t *KMerLSHTable) Insert(mer uint64) (int64, error) {
	id := t.NextID()
	if err := t.InsertAt(mer, id); err != nil {
		return 0, err
	}
	return id, nil
}

// InsertAt inserts mer under an explicit id, single-threaded (no locking).
func (t *KMerLSHTable) InsertAt(mer uint64, id int64) error {
	return t.insert(mer, id, false)
}

// InsertThreadSafe atomically issues a new id and inserts mer, locking the
// relevant map shard(s) for concurrent callers.
func (t *KMerLSHTable) InsertThreadSafe(mer uint64) (int64, error) {
	id := t.NextIDThreadSafe()
	if err := t.insert(mer, id, true); err != nil {
		return 0, err
	}
	return id, nil
}

// InsertAtThreadSafe inserts mer under an explicit id with locking.
func (t *KMerLSHTable) InsertAtThreadSafe(mer uint64, id int64) error {
	return t.insert(mer, id, true)
}

func (t *KMerLSHTable) insert(mer uint64, id int64, threadSafe bool) error {
	if t.bottomK > 0 {
		if len(t.maps) != 1 {
			return bioerr.E(bioerr.Domain, "lshindex: bottom-k table must have exactly one map")
		}
		pooled := t.generatePooledBottomK(mer)
		if threadSafe {
			t.mu[0].Lock()
			defer t.mu[0].Unlock()
		}
		for _, v := range pooled {
			t.maps[0][v] = append(t.maps[0][v], ID(id))
		}
		return nil
	}
	for i := range t.maps {
		t.singleMapInsert(i, mer, id, threadSafe)
	}
	return nil
}

func (t *KMerLSHTable) singleMapInsert(index int, mer uint64, id int64, threadSafe bool) {
	sel := t.subMers[index]
	if threadSafe {
		t.mu[index].Lock()
		defer t.mu[index].Unlock()
	}
	m := t.maps[index]
	if t.sliding {
		nk := sel.NumberOfKernels(t.k)
		for pos := 0; pos < nk; pos++ {
			h := hashedSubseq(sel, mer, pos)
			m[h] = append(m[h], ID(id))
		}
	} else {
		h := hashedSubseqFixed(sel, mer)
		m[h] = append(m[h], ID(id))
	}
}

// InsertParallel bulk-inserts mers, partitioning the range across
// numThreads goroutines; each worker claims a contiguous block of serial
// ids up front so final id assignment matches insertion order regardless
// of goroutine completion order. numThreads <= 0 defaults to 4.
func (t *KMerLSHTable) InsertParallel(mers []uint64, numThreads int) error {
	if len(mers) == 0 {
		return nil
	}
	if numThreads <= 0 {
		numThreads = 4
	}
	n := len(mers)
	if numThreads > n {
		numThreads = n
	}
	perThread := (n + numThreads - 1) / numThreads
	oldID := t.id

	var wg sync.WaitGroup
	for start := 0; start < n; start += perThread {
		end := start + perThread
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				t.InsertAtThreadSafe(mers[i], oldID+int64(i))
			}
		}(start, end)
	}
	wg.Wait()
	t.id = oldID + int64(n)
	return nil
}

// MapQuery accumulates hit counts for mer into hits, stopping once the
// number of distinct hits reaches stopThreshold more than when it started
// (stopThreshold < 0 defaults to 2*bottomK for bottom-k tables and
// unbounded otherwise).
func (t *KMerLSHTable) MapQuery(hits map[ID]int, mer uint64, stopThreshold int) {
	increment := stopThreshold
	if increment < 0 {
		increment = t.bottomK * 2
	}
	threshold := len(hits) + increment
	if t.bottomK > 0 {
		if len(t.maps) != 1 {
			return
		}
		m := t.maps[0]
		for _, v := range t.generatePooledBottomK(mer) {
			if ids, ok := m[v]; ok {
				for _, id := range ids {
					hits[id]++
				}
			}
			if increment > 0 && len(hits) >= threshold {
				return
			}
		}
		return
	}
	for i := range t.maps {
		t.singleMapQuery(t.maps[i], hits, t.subMers[i], mer)
		if stopThreshold > 0 && len(hits) >= threshold {
			return
		}
	}
}

func (t *KMerLSHTable) singleMapQuery(indexMap map[uint64][]ID, hits map[ID]int, sel submer.Selection, mer uint64) {
	update := func(h uint64) {
		if ids, ok := indexMap[h]; ok {
			for _, id := range ids {
				hits[id]++
			}
		}
	}
	if t.sliding {
		nk := sel.NumberOfKernels(t.k)
		for pos := 0; pos < nk; pos++ {
			update(hashedSubseq(sel, mer, pos))
		}
	} else {
		update(hashedSubseqFixed(sel, mer))
	}
}

// Query returns every matching id and its hit count for mer, sorted by
// (count, id) descending.
func (t *KMerLSHTable) Query(mer uint64, stopThreshold int) []Hit {
	hits := make(map[ID]int)
	t.MapQuery(hits, mer, stopThreshold)
	ret := make([]Hit, 0, len(hits))
	for id, c := range hits {
		ret = append(ret, Hit{ID: id, Count: c})
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Count != ret[j].Count {
			return ret[i].Count > ret[j].Count
		}
		return ret[i].ID > ret[j].ID
	})
	return ret
}
