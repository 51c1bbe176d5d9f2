// Package lshindex implements the locality-sensitive hashing indexes over
// k-mer and MinHash sketches: a concurrent, shardable, serializable index
// used to retrieve candidate near-neighbors of a query sketch under set or
// Hamming similarity. Two backends share one Index type: a bit-sampling /
// spaced-seed index (one hash map per sub-mer selection pattern) and a
// bottom-k index (one hash map storing the bottom-k hashed minimizers of a
// sketch).
package lshindex

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/longread/biocore/bioerr"
	"github.com/longread/biocore/sketch"
)

// ID identifies one inserted sketch. IDs are issued by NextID and are
// always < the index's current Size().
type ID = int64

// Key is the hash-map key type used by every inner bucket map.
type Key = uint64

const defaultID ID = -1

// innerMap is one (table, sub-signature) bucket map plus the mutex that
// guards it -- a sharded lock array index-parallel with the map vector,
// per the design's recommendation to keep locks alongside data rather than
// embedded per-entry.
type innerMap struct {
	mu      sync.Mutex
	buckets map[Key][]ID
	locked  bool
}

func newInnerMap(locked bool) *innerMap {
	return &innerMap{buckets: make(map[Key][]ID), locked: locked}
}

func (m *innerMap) append(key Key, id ID) {
	if m.locked {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	m.buckets[key] = append(m.buckets[key], id)
}

func (m *innerMap) lookup(key Key) []ID {
	if m.locked {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	if ids, ok := m.buckets[key]; ok {
		// copy, so callers iterating after unlocking never race with a
		// concurrent append.
		out := make([]ID, len(ids))
		copy(out, ids)
		return out
	}
	return nil
}

// Index is the general LSH index: a set of tables, each parameterized by a
// registers-per-table count, each containing a row of hash maps.
type Index struct {
	sketchSize        int64
	totalIDs          int64 // atomic
	registersPerTable []int64
	isBottomKOnly     bool
	tables            [][]*innerMap // tables[i][j]
	locked            bool
}

// New is the most general constructor: one table per entry of
// registersPerSignature, with signaturesPerRow[i] sub-signature maps in
// table i (or sketchSize/registersPerSignature[i] if signaturesPerRow[i]
// <= 0). Both slices must have the same length.
func New(m int64, registersPerSignature []int64, signaturesPerRow []int64) (*Index, error) {
	if len(registersPerSignature) != len(signaturesPerRow) {
		return nil, bioerr.E(bioerr.InvalidArgument,
			"lshindex: registersPerSignature and signaturesPerRow must have the same length")
	}
	idx := &Index{sketchSize: m, locked: true}
	for i, r := range registersPerSignature {
		if r <= 0 {
			return nil, bioerr.E(bioerr.InvalidArgument, "lshindex: registers per signature must be > 0", r)
		}
		rows := signaturesPerRow[i]
		if rows <= 0 {
			rows = m / r
		}
		idx.registersPerTable = append(idx.registersPerTable, r)
		row := make([]*innerMap, rows)
		for j := range row {
			row[j] = newInnerMap(true)
		}
		idx.tables = append(idx.tables, row)
	}
	return idx, nil
}

// NewDefault builds an index with sketch size m, one table per entry of
// registersPerSignature, with signatures-per-row defaulting to
// m/registersPerSignature[i].
func NewDefault(m int64, registersPerSignature []int64) (*Index, error) {
	rows := make([]int64, len(registersPerSignature))
	return New(m, registersPerSignature, rows)
}

// NewDensified builds an index with sketch size m and floor(log2(m))+1
// register groupings (every power of two <= m: 1, 2, 4, 8, ...), or, if densified is
// true, one table per integer register count in [1, m].
func NewDensified(m int64, densified bool) *Index {
	idx := &Index{sketchSize: m, locked: true}
	for r := int64(1); r <= m; {
		rows := m / r
		idx.registersPerTable = append(idx.registersPerTable, r)
		row := make([]*innerMap, rows)
		for j := range row {
			row[j] = newInnerMap(true)
		}
		idx.tables = append(idx.tables, row)
		if densified {
			r++
		} else {
			r <<= 1
		}
	}
	return idx
}

// NewBottomK builds a degenerate index with exactly one table containing
// one map, storing (register-value -> [id]) for every register of an
// inserted sketch.
func NewBottomK(k int64) *Index {
	idx := &Index{
		sketchSize:        k,
		registersPerTable: []int64{1},
		isBottomKOnly:     true,
		locked:            true,
	}
	row := []*innerMap{newInnerMap(true)}
	idx.tables = [][]*innerMap{row}
	return idx
}

// NTables returns the number of tables.
func (idx *Index) NTables() int { return len(idx.tables) }

// IsBottomK reports whether this is a bottom-k index.
func (idx *Index) IsBottomK() bool { return idx.isBottomKOnly }

// SketchSize returns the configured sketch size M.
func (idx *Index) SketchSize() int64 { return idx.sketchSize }

// Size returns the number of ids issued so far.
func (idx *Index) Size() int64 { return atomic.LoadInt64(&idx.totalIDs) }

// NextID atomically issues the next id; every inserted id is < the value
// Size() returns immediately afterward.
func (idx *Index) NextID() ID {
	return atomic.AddInt64(&idx.totalIDs, 1) - 1
}

// Unlock disables the per-map mutexes, trading thread-safety for speed in
// single-threaded bulk-build scenarios (e.g. CloneLike followed by a
// known-single-threaded replay).
func (idx *Index) Unlock() {
	idx.locked = false
	for _, row := range idx.tables {
		for _, m := range row {
			m.locked = false
		}
	}
}

// CloneLike creates an empty index with identical table shape and
// per-shard lock vector as o. The canonical field is used here (o's own
// isBottomKOnly, not a stray field with a typo some historical
// implementations carried -- see DESIGN.md).
func CloneLike(o *Index) *Index {
	res := &Index{
		sketchSize:        o.sketchSize,
		registersPerTable: append([]int64(nil), o.registersPerTable...),
		isBottomKOnly:     o.isBottomKOnly,
		locked:            o.locked,
	}
	for _, row := range o.tables {
		newRow := make([]*innerMap, len(row))
		for j := range newRow {
			newRow[j] = newInnerMap(o.locked)
		}
		res.tables = append(res.tables, newRow)
	}
	return res
}

// hashIndex computes the hash key for sub-signature j of table i, given a
// sketch. Bottom-k mode returns the raw register value. Otherwise, if the
// sub-signature's register block fits entirely within the sketch, the
// block is hashed directly via the width-dispatched mixing function. If it
// would run past the sketch (which happens only when table i holds more
// than sketchSize/registersPerTable[i] rows, as an explicit row count
// passed to New allows), a deterministic seeded walk picks registersPerTable[i]
// register positions (via a FastMod-driven reduction of a wyhash64 stream)
// and folds them into a single hash.
func (idx *Index) hashIndex(s sketch.Sketch, i, j int64) Key {
	if idx.isBottomKOnly {
		return s[j]
	}
	nreg := idx.registersPerTable[i]
	offset := j * nreg
	if offset+nreg <= idx.sketchSize {
		return hashRegisterBlock(s[offset : offset+nreg])
	}
	seed := simpleFastHash(uint64((i<<32)^(i>>32)) | uint64(j))
	fm := NewFastMod(uint64(idx.sketchSize))
	update := func(v uint64) uint64 {
		seed += v
		return wyhash64Step(&seed)
	}
	pos := update(137)
	for r := int64(0); r < nreg; r++ {
		regIdx := fm.Reduce(pos)
		pos = update(s[regIdx])
	}
	return update(137)
}

// validateSketch checks the |S| >= M precondition (bottom-k mode accepts
// any length).
func (idx *Index) validateSketch(s sketch.Sketch) error {
	if !idx.isBottomKOnly && int64(len(s)) < idx.sketchSize {
		return bioerr.E(bioerr.InvalidArgument, "lshindex: sketch too small", len(s), idx.sketchSize)
	}
	return nil
}

// insertBottomK pools the |s| values and inserts each as its own key in the
// single bottom-k map.
func (idx *Index) insertBottomK(s sketch.Sketch, id ID) {
	m := idx.tables[0][0]
	for _, v := range s {
		m.append(v, id)
	}
}

// Insert issues a new id and inserts sketch s under it, per the insertion
// protocol: for every (table, sub-signature) pair, compute hashIndex, then
// append id to that bucket under the shard's own lock.
func (idx *Index) Insert(s sketch.Sketch) (ID, error) {
	if err := idx.validateSketch(s); err != nil {
		return defaultID, err
	}
	id := idx.NextID()
	idx.insertAt(s, id)
	return id, nil
}

func (idx *Index) insertAt(s sketch.Sketch, id ID) {
	if idx.isBottomKOnly {
		idx.insertBottomK(s, id)
		return
	}
	for i, row := range idx.tables {
		for j, m := range row {
			h := idx.hashIndex(s, int64(i), int64(j))
			m.append(h, id)
		}
	}
}

// InsertAll bulk-inserts sketches one after another on the calling
// goroutine, issuing ids in input order.
func (idx *Index) InsertAll(sketches []sketch.Sketch) ([]ID, error) {
	ids := make([]ID, len(sketches))
	for i, s := range sketches {
		id, err := idx.Insert(s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// UpdateQuery issues a new id for sketch s, then for every (table,
// sub-signature) pair looks up the existing bucket before appending the
// new id, tallying how many times each pre-existing id was hit. It does
// not early-terminate -- insertion is exhaustive across every table even
// after maxCandidates distinct ids have been seen.
func (idx *Index) UpdateQuery(s sketch.Sketch, maxCandidates int) (ids []ID, counts []int32, itemsPerRow []int32, err error) {
	if err = idx.validateSketch(s); err != nil {
		return nil, nil, nil, err
	}
	myID := idx.NextID()
	returnSet := make(map[ID]int32)
	if idx.isBottomKOnly {
		m := idx.tables[0][0]
		for _, v := range s {
			for _, existing := range m.lookup(v) {
				if _, ok := returnSet[existing]; !ok {
					returnSet[existing] = 1
					ids = append(ids, existing)
				} else {
					returnSet[existing]++
				}
			}
			m.append(v, myID)
		}
		itemsPerRow = append(itemsPerRow, int32(len(ids)))
	} else {
		for i, row := range idx.tables {
			before := len(ids)
			for j, m := range row {
				h := idx.hashIndex(s, int64(i), int64(j))
				for _, existing := range m.lookup(h) {
					if _, ok := returnSet[existing]; !ok {
						returnSet[existing] = 1
						ids = append(ids, existing)
					} else {
						returnSet[existing]++
					}
				}
				m.append(h, myID)
			}
			itemsPerRow = append(itemsPerRow, int32(len(ids)-before))
		}
	}
	counts = make([]int32, len(ids))
	for i, id := range ids {
		counts[i] = returnSet[id]
	}
	return ids, counts, itemsPerRow, nil
}

// Query returns candidate ids for sketch s, iterating tables from
// most-specific (largest registersPerTable) to least-specific, descending
// from startingIdx (default: the number of tables). Once the number of
// distinct ids reaches maxCandidates (0 meaning unbounded), no further table
// (in bottom-k mode, no further register value) is visited; if earlyStop is
// set, iteration also stops in the middle of a table as soon as the limit
// is reached. Results are returned in first-observation order,
// alongside per-id hit counts and per-row candidate counts.
func (idx *Index) Query(s sketch.Sketch, maxCandidates int, startingIdx int, earlyStop bool) (ids []ID, counts []int32, itemsPerRow []int32) {
	if startingIdx < 0 || startingIdx > len(idx.tables) {
		startingIdx = len(idx.tables)
	}
	limit := maxCandidates
	if limit <= 0 {
		limit = int(^uint(0) >> 1) // max int
	}
	returnSet := make(map[ID]int32)

	if idx.isBottomKOnly {
		m := idx.tables[0][0]
	bkLoop:
		for _, v := range s {
			if len(returnSet) >= limit {
				break
			}
			for _, id := range m.lookup(v) {
				if _, ok := returnSet[id]; !ok {
					returnSet[id] = 1
					ids = append(ids, id)
					if earlyStop && len(returnSet) == limit {
						break bkLoop
					}
				} else {
					returnSet[id]++
				}
			}
		}
		itemsPerRow = append(itemsPerRow, int32(len(ids)))
	} else {
	tableLoop:
		for i := startingIdx - 1; i >= 0; i-- {
			if len(returnSet) >= limit {
				break
			}
			row := idx.tables[i]
			before := len(ids)
			for j, m := range row {
				h := idx.hashIndex(s, int64(i), int64(j))
				for _, id := range m.lookup(h) {
					if _, ok := returnSet[id]; !ok {
						returnSet[id] = 1
						ids = append(ids, id)
						if earlyStop && len(returnSet) == limit {
							itemsPerRow = append(itemsPerRow, int32(len(ids)-before))
							break tableLoop
						}
					} else {
						returnSet[id]++
					}
				}
			}
			itemsPerRow = append(itemsPerRow, int32(len(ids)-before))
		}
	}
	counts = make([]int32, len(ids))
	for i, id := range ids {
		counts[i] = returnSet[id]
	}
	return ids, counts, itemsPerRow
}

// OrderByCountThenID sorts ids and their parallel counts by (count, id)
// descending, the ordering §4.3.6 leaves to the caller.
func OrderByCountThenID(ids []ID, counts []int32) {
	type pair struct {
		id    ID
		count int32
	}
	pairs := make([]pair, len(ids))
	for i := range ids {
		pairs[i] = pair{ids[i], counts[i]}
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].count != pairs[b].count {
			return pairs[a].count > pairs[b].count
		}
		return pairs[a].id > pairs[b].id
	})
	for i, p := range pairs {
		ids[i] = p.id
		counts[i] = p.count
	}
}
