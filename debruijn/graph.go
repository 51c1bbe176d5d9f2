// Package debruijn implements a k-mer de Bruijn graph: nodes are canonical
// k-mers, edges are derived from 8-bit outbound/inbound extension masks
// rather than stored as explicit pairs, and per-node coverage is tracked
// alongside a 64-bit bitset recording which of the first 64 inserted reads
// touched the node. It supports frequency filtering, spur removal, and
// enumeration of short bubbles (SNV/indel variant structures).
package debruijn

import (
	"sort"
	"sync"

	"blainsmith.com/go/seahash"
	"github.com/longread/biocore/bioerr"
	"github.com/longread/biocore/dnabit"
	"github.com/longread/biocore/workqueue"
)

const numGraphShards = 64

// base order used throughout the 8-bit edge masks: bit i (and i+4 for the
// inbound half) corresponds to base bases[i].
var bases = [4]byte{'A', 'C', 'G', 'T'}

func baseIndex(b byte) int {
	switch b {
	case 'A':
		return 0
	case 'C':
		return 1
	case 'G':
		return 2
	case 'T':
		return 3
	default:
		return -1
	}
}

// Node is one canonical k-mer vertex: its coverage, outbound/inbound
// extension masks (bit i set means base bases[i] extends the k-mer in that
// direction and the resulting neighbor is present in the graph), and a
// bitset of which reads (by insertion order, capped at 64) touched it.
type Node struct {
	Kmer     uint64
	Coverage uint32
	Out      uint8 // bit i: outbound edge via bases[i]
	In       uint8 // bit i: inbound edge via bases[i]
	Reads    uint64
}

// Graph is a canonical-k-mer de Bruijn graph over reads of a fixed k.
type Graph struct {
	K     int
	nodes map[uint64]*Node
	order []uint64 // insertion order, for deterministic iteration
	gmu   sync.Mutex
}

// New creates an empty graph over canonical k-mers of width k (1..32).
func New(k int) (*Graph, error) {
	if k <= 0 || k > 32 {
		return nil, bioerr.E(bioerr.InvalidArgument, "debruijn: bad k", k)
	}
	return &Graph{K: k, nodes: make(map[uint64]*Node)}, nil
}

// NNodes returns the current node count.
func (g *Graph) NNodes() int { return len(g.nodes) }

// Node returns the node for canonical k-mer value kmer, or nil.
func (g *Graph) Node(kmer uint64) *Node { return g.nodes[kmer] }

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, k := range g.order {
		if n, ok := g.nodes[k]; ok {
			out = append(out, n)
		}
	}
	return out
}

func (g *Graph) getOrCreate(kmer uint64) *Node {
	n, ok := g.nodes[kmer]
	if !ok {
		n = &Node{Kmer: kmer}
		g.nodes[kmer] = n
		g.order = append(g.order, kmer)
	}
	return n
}

// readBit returns the bitset bit for readID, clamped to the 64 supported
// slots: reads beyond the 64th share the top bit rather than overflowing,
// since coverage (not bit identity) is the authoritative count past that
// point.
func readBit(readID int) uint64 {
	if readID < 0 {
		readID = 0
	}
	if readID > 63 {
		readID = 63
	}
	return uint64(1) << uint(readID)
}

// AddKmers inserts every canonical k-mer of seq, tagging each with readID.
// Returns the number of k-mers inserted, or an error if seq is shorter
// than K.
func (g *Graph) AddKmers(seq string, readID int) (int, error) {
	if len(seq) < g.K {
		return 0, bioerr.E(bioerr.InvalidArgument, "debruijn: sequence shorter than k", len(seq), g.K)
	}
	count := 0
	bit := readBit(readID)
	var prevCanon uint64
	var prevForward bool
	havePrev := false
	for i := 0; i+g.K <= len(seq); i++ {
		window := seq[i : i+g.K]
		fwd, err := dnabit.EncodeSeq(window)
		if err != nil {
			havePrev = false
			continue
		}
		rc := dnabit.ReverseComplement(fwd, g.K)
		canon := fwd
		isForward := true
		if rc < fwd {
			canon = rc
			isForward = false
		}
		n := g.getOrCreate(canon)
		n.Coverage++
		n.Reads |= bit
		count++

		if havePrev && i > 0 {
			g.linkConsecutive(prevCanon, prevForward, canon, isForward)
		}
		prevCanon, prevForward, havePrev = canon, isForward, true
	}
	return count, nil
}

// extractedKmer is one canonicalized window produced by the parallel
// extraction stage of InsertReadsParallel, staged before it touches the
// shared node map.
type extractedKmer struct {
	canon    uint64
	prev     uint64
	havePrev bool
	readBit  uint64
}

// shardOf picks one of numGraphShards buckets for a read, by seahash of its
// bytes, the same sharding idiom used for mate-pair bucketing elsewhere in
// this codebase: it lets InsertReadsParallel process reads in
// numGraphShards independent batches without any read depending on another
// read's extraction result.
func shardOf(s string) int {
	h := seahash.Sum64([]byte(s))
	return int(h % uint64(numGraphShards))
}

// InsertReadsParallel extracts and canonicalizes every read's k-mers
// concurrently via pool, then merges the results into the graph serially
// (map writes are never safe to parallelize directly). Read i is assigned
// read ID startID+i.
func (g *Graph) InsertReadsParallel(reads []string, startID int, pool *workqueue.Pool) error {
	batches := make([][]extractedKmer, numGraphShards)
	var mu sync.Mutex
	for idx, seq := range reads {
		idx, seq := idx, seq
		pool.ProduceWith(func() error {
			if len(seq) < g.K {
				return nil
			}
			bit := readBit(startID + idx)
			var out []extractedKmer
			var prevCanon uint64
			havePrev := false
			for i := 0; i+g.K <= len(seq); i++ {
				fwd, err := dnabit.EncodeSeq(seq[i : i+g.K])
				if err != nil {
					havePrev = false
					continue
				}
				rc := dnabit.ReverseComplement(fwd, g.K)
				canon := fwd
				if rc < fwd {
					canon = rc
				}
				out = append(out, extractedKmer{canon: canon, prev: prevCanon, havePrev: havePrev, readBit: bit})
				prevCanon, havePrev = canon, true
			}
			shard := shardOf(seq)
			mu.Lock()
			batches[shard] = append(batches[shard], out...)
			mu.Unlock()
			return nil
		})
	}
	if err := pool.Finalize(); err != nil {
		return err
	}
	g.gmu.Lock()
	defer g.gmu.Unlock()
	for _, batch := range batches {
		for _, ek := range batch {
			n := g.getOrCreate(ek.canon)
			n.Coverage++
			n.Reads |= ek.readBit
			if ek.havePrev {
				g.linkByShift(ek.prev, ek.canon)
			}
		}
	}
	return nil
}

// AddVerifiedKmerPairs consumes a slice of canonical k-mer values known to
// be consecutive windows of one read (e.g. already parsed via dnabit), and
// links each adjacent pair directly -- the fast path that skips a later
// BuildEdges pass because adjacency is externally verified.
func (g *Graph) AddVerifiedKmerPairs(kmers []uint64, readID int) error {
	bit := readBit(readID)
	for i, km := range kmers {
		n := g.getOrCreate(km)
		n.Coverage++
		n.Reads |= bit
		if i > 0 {
			g.linkByShift(kmers[i-1], km)
		}
	}
	return nil
}

// linkConsecutive links two canonical k-mers known to be adjacent windows
// of a read (the second starts one base after the first), setting the
// outbound bit on the first and the inbound bit on the second, oriented by
// each k-mer's own canonical strand.
func (g *Graph) linkConsecutive(aCanon uint64, aForward bool, bCanon uint64, bForward bool) {
	g.linkByShift(aCanon, bCanon)
	_ = aForward
	_ = bForward
}

// linkByShift determines the extension base connecting canonical k-mers a
// and b (by trying both of a's possible one-base extensions against both
// orientations of b) and sets the corresponding mask bits. If no shift
// relationship holds (the pair was not actually adjacent), this is a no-op.
func (g *Graph) linkByShift(a, b uint64) {
	na, ok := g.nodes[a]
	if !ok {
		return
	}
	nb, ok := g.nodes[b]
	if !ok {
		return
	}
	for i, base := range bases {
		code, _ := dnabit.FromASCII(base)
		ext := dnabit.Canonical(shiftForward(a, g.K, uint64(code)), g.K)
		if ext == b {
			na.Out |= 1 << uint(i)
			if back, ok2 := backEdgeIndex(a, g.K, b); ok2 {
				nb.In |= 1 << uint(back)
			}
			return
		}
	}
}

// shiftForward appends code as the new last base of an a-width k-mer
// encoded in 2-bit little-endian form, dropping the first base.
func shiftForward(a uint64, width int, code uint64) uint64 {
	mask := widthMask(width)
	return ((a >> 2) | (code << uint(2*(width-1)))) & mask
}

func widthMask(width int) uint64 {
	if width >= 32 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(2*width)) - 1
}

// backEdgeIndex finds which base extension of b (taken in reverse) yields
// a, giving the inbound-mask bit to set on b.
func backEdgeIndex(a uint64, width int, b uint64) (int, bool) {
	for i, base := range bases {
		code, _ := dnabit.FromASCII(base)
		// Prepending code to b (dropping its last base) should equal a,
		// under b's own canonical orientation; since both a and b are
		// stored canonically, check both raw shift directions.
		shifted := dnabit.Canonical(prependBase(b, width, uint64(code)), width)
		if shifted == a {
			return i, true
		}
	}
	return 0, false
}

func prependBase(b uint64, width int, code uint64) uint64 {
	mask := widthMask(width)
	return ((b << 2) | code) & mask
}

// BuildEdges is a no-op retained for API symmetry with the original
// incremental-edge-build step: AddKmers already links edges as it scans,
// so by the time BuildEdges would run, outbound/inbound masks are already
// finalized.
func (g *Graph) BuildEdges() {}

// ValidateEdges reports whether every outbound bit has a matching inbound
// bit on the corresponding neighbor.
func (g *Graph) ValidateEdges() bool {
	for _, n := range g.nodes {
		for i := 0; i < 4; i++ {
			if n.Out&(1<<uint(i)) == 0 {
				continue
			}
			code, _ := dnabit.FromASCII(bases[i])
			neighbor := dnabit.Canonical(shiftForward(n.Kmer, g.K, uint64(code)), g.K)
			nb, ok := g.nodes[neighbor]
			if !ok {
				return false
			}
			if _, ok2 := backEdgeIndex(n.Kmer, g.K, neighbor); !ok2 {
				return false
			}
			matched := false
			for j := 0; j < 4; j++ {
				if nb.In&(1<<uint(j)) == 0 {
					continue
				}
				jcode, _ := dnabit.FromASCII(bases[j])
				if dnabit.Canonical(prependBase(neighbor, g.K, uint64(jcode)), g.K) == n.Kmer {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}

// ValidateLoad reports whether every node's coverage equals the number of
// read bits set in its bitset. This only holds while coverage fits in 64
// reads; past that point coverage and popcount(Reads) legitimately diverge
// (see readBit), so this check is only meaningful for small inputs. It
// also fails when one read contains the same canonical k-mer more than
// once, since coverage counts every occurrence while the read's bit is set
// only once.
func (g *Graph) ValidateLoad() bool {
	for _, n := range g.nodes {
		if uint32(popcount64(n.Reads)) != n.Coverage {
			return false
		}
	}
	return true
}

func popcount64(v uint64) int {
	count := 0
	for v != 0 {
		v &= v - 1
		count++
	}
	return count
}

// FrequencyFilter removes every node whose coverage is below cov, then
// clears dangling edge-mask bits pointing at removed neighbors.
func (g *Graph) FrequencyFilter(cov uint32) {
	for k, n := range g.nodes {
		if n.Coverage < cov {
			delete(g.nodes, k)
		}
	}
	g.pruneOrder()
	g.repairMasks()
}

// FrequencyFilter2 re-filters based on whether a node's surviving
// neighbor set still exists: if strict is true, a node with zero surviving
// neighbors (after the coverage cut) is also removed; it supports being
// called multiple times to let the frequency cut and the connectivity cut
// alternate passes, per the construction's two-pass filtering strategy.
func (g *Graph) FrequencyFilter2(cov uint32, strict bool) {
	for k, n := range g.nodes {
		if n.Coverage < cov {
			delete(g.nodes, k)
		}
	}
	g.pruneOrder()
	g.repairMasks()
	if strict {
		for k, n := range g.nodes {
			if n.Out == 0 && n.In == 0 {
				delete(g.nodes, k)
			}
		}
		g.pruneOrder()
	}
}

func (g *Graph) pruneOrder() {
	next := g.order[:0]
	for _, k := range g.order {
		if _, ok := g.nodes[k]; ok {
			next = append(next, k)
		}
	}
	g.order = next
}

// repairMasks clears any outbound/inbound bit whose target node no longer
// exists in the graph, after a node deletion pass.
func (g *Graph) repairMasks() {
	for _, n := range g.nodes {
		for i := 0; i < 4; i++ {
			if n.Out&(1<<uint(i)) != 0 {
				code, _ := dnabit.FromASCII(bases[i])
				neighbor := dnabit.Canonical(shiftForward(n.Kmer, g.K, uint64(code)), g.K)
				if _, ok := g.nodes[neighbor]; !ok {
					n.Out &^= 1 << uint(i)
				}
			}
			if n.In&(1<<uint(i)) != 0 {
				code, _ := dnabit.FromASCII(bases[i])
				neighbor := dnabit.Canonical(prependBase(n.Kmer, g.K, uint64(code)), g.K)
				if _, ok := g.nodes[neighbor]; !ok {
					n.In &^= 1 << uint(i)
				}
			}
		}
	}
}

func (g *Graph) outDegree(n *Node) int { return popcount8(n.Out) }
func (g *Graph) inDegree(n *Node) int  { return popcount8(n.In) }

func popcount8(v uint8) int {
	count := 0
	for v != 0 {
		v &= v - 1
		count++
	}
	return count
}

// outNeighbors returns the canonical k-mers reachable from n via its
// outbound mask.
func (g *Graph) outNeighbors(n *Node) []uint64 {
	var out []uint64
	for i := 0; i < 4; i++ {
		if n.Out&(1<<uint(i)) == 0 {
			continue
		}
		code, _ := dnabit.FromASCII(bases[i])
		out = append(out, dnabit.Canonical(shiftForward(n.Kmer, g.K, uint64(code)), g.K))
	}
	return out
}

func (g *Graph) inNeighbors(n *Node) []uint64 {
	var in []uint64
	for i := 0; i < 4; i++ {
		if n.In&(1<<uint(i)) == 0 {
			continue
		}
		code, _ := dnabit.FromASCII(bases[i])
		in = append(in, dnabit.Canonical(prependBase(n.Kmer, g.K, uint64(code)), g.K))
	}
	return in
}

// RemoveSpurs iteratively removes tips (nodes with in- or out-degree 0 on
// one side) reachable by a path of length <= maxLen from a dead end, until
// no qualifying spur remains. Returns the number of nodes removed.
func (g *Graph) RemoveSpurs(maxLen int) int {
	removed := 0
	for {
		tip := g.findSpurTip(maxLen)
		if tip == 0 {
			break
		}
		n, ok := g.nodes[tip]
		if !ok {
			break
		}
		path := g.spurPath(n, maxLen)
		if path == nil {
			break
		}
		for _, k := range path {
			if _, ok := g.nodes[k]; ok {
				delete(g.nodes, k)
				removed++
			}
		}
		g.pruneOrder()
		g.repairMasks()
	}
	return removed
}

// findSpurTip locates a node with in-degree 0 or out-degree 0 whose
// dead-end path (walking the surviving direction) has length <= maxLen.
func (g *Graph) findSpurTip(maxLen int) uint64 {
	for _, k := range g.order {
		n, ok := g.nodes[k]
		if !ok {
			continue
		}
		outDeg, inDeg := g.outDegree(n), g.inDegree(n)
		if outDeg == 0 && inDeg == 1 {
			if path := g.spurPath(n, maxLen); path != nil {
				return k
			}
		}
		if inDeg == 0 && outDeg == 1 {
			if path := g.spurPath(n, maxLen); path != nil {
				return k
			}
		}
	}
	return 0
}

// spurPath walks from tip n along its single surviving neighbor direction
// until it hits a branch point (degree != 1 on the walking side) or runs
// past maxLen, returning the path of nodes to remove (nil if it's too
// long, or the tip isn't actually a dead end).
func (g *Graph) spurPath(n *Node, maxLen int) []uint64 {
	outDeg, inDeg := g.outDegree(n), g.inDegree(n)
	var forward bool
	switch {
	case outDeg == 0 && inDeg == 1:
		forward = false
	case inDeg == 0 && outDeg == 1:
		forward = true
	default:
		return nil
	}
	path := []uint64{n.Kmer}
	cur := n
	for len(path) <= maxLen {
		var neighbors []uint64
		if forward {
			neighbors = g.outNeighbors(cur)
		} else {
			neighbors = g.inNeighbors(cur)
		}
		if len(neighbors) != 1 {
			return path
		}
		next, ok := g.nodes[neighbors[0]]
		if !ok {
			return path
		}
		nextOutDeg, nextInDeg := g.outDegree(next), g.inDegree(next)
		branching := (forward && nextInDeg > 1) || (!forward && nextOutDeg > 1)
		path = append(path, next.Kmer)
		if branching {
			// include the spur, not the branch point itself
			path = path[:len(path)-1]
			return path
		}
		cur = next
	}
	return nil
}

// Bubble is a pair of internally-disjoint paths between two branch
// endpoints, reconstructed as sequences (standardized so the
// lexicographically smaller left endpoint leads).
type Bubble struct {
	Left, Right string
}

// FindBubbles enumerates pairs of short, internally-disjoint paths between
// some node u with out-degree >= 2 and a node v where the two paths
// reconverge, covering SNV bubbles (equal-length paths) and short indel
// bubbles (path lengths differing by a small constant).
func (g *Graph) FindBubbles() []Bubble {
	const maxBubbleLen = 4
	const maxLenDiff = 1
	var bubbles []Bubble
	seen := make(map[[2]uint64]bool)
	for _, k := range g.order {
		u, ok := g.nodes[k]
		if !ok || g.outDegree(u) < 2 {
			continue
		}
		branches := g.outNeighbors(u)
		paths := make([][]uint64, 0, len(branches))
		for _, b := range branches {
			p := g.shortPathFrom(u.Kmer, b, maxBubbleLen)
			if p != nil {
				paths = append(paths, p)
			}
		}
		for i := 0; i < len(paths); i++ {
			for j := i + 1; j < len(paths); j++ {
				pa, pb := paths[i], paths[j]
				endA, endB := pa[len(pa)-1], pb[len(pb)-1]
				if endA != endB {
					continue
				}
				if abs(len(pa)-len(pb)) > maxLenDiff {
					continue
				}
				if !disjointInternal(pa, pb) {
					continue
				}
				key := [2]uint64{pa[0], endA}
				if pa[0] > endA {
					key = [2]uint64{endA, pa[0]}
				}
				if seen[key] {
					continue
				}
				seen[key] = true
				bubbles = append(bubbles, g.standardizeBubble(pa, pb))
			}
		}
	}
	return bubbles
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// shortPathFrom walks forward from start's branch neighbor first (via
// first) up to maxLen nodes, stopping early at the next branch point
// (out-degree != 1), and returns the full node list [start, first, ...]
// or nil if it runs out of budget without reconverging.
func (g *Graph) shortPathFrom(start, first uint64, maxLen int) []uint64 {
	path := []uint64{start, first}
	cur, ok := g.nodes[first]
	if !ok {
		return nil
	}
	for len(path) <= maxLen {
		if g.inDegree(cur) > 1 || g.outDegree(cur) != 1 {
			return path
		}
		next := g.outNeighbors(cur)
		if len(next) != 1 {
			return path
		}
		nb, ok := g.nodes[next[0]]
		if !ok {
			return nil
		}
		path = append(path, next[0])
		cur = nb
		if g.inDegree(cur) > 1 {
			return path
		}
	}
	return nil
}

func disjointInternal(a, b []uint64) bool {
	internal := make(map[uint64]bool)
	for i := 1; i < len(a)-1; i++ {
		internal[a[i]] = true
	}
	for i := 1; i < len(b)-1; i++ {
		if internal[b[i]] {
			return false
		}
	}
	return true
}

func (g *Graph) standardizeBubble(a, b []uint64) Bubble {
	left, right := a, b
	if seqOf(g, right) < seqOf(g, left) {
		left, right = right, left
	}
	return Bubble{Left: seqOf(g, left), Right: seqOf(g, right)}
}

// seqOf reconstructs the string spelled out by walking path, emitting the
// first k-mer in full and then one base per subsequent hop.
func seqOf(g *Graph, path []uint64) string {
	if len(path) == 0 {
		return ""
	}
	out := make([]byte, 0, g.K+len(path)-1)
	first, _ := dnabit.DecodeSeq(path[0], g.K)
	out = append(out, first...)
	for i := 1; i < len(path); i++ {
		base := extensionBase(g, path[i-1], path[i])
		out = append(out, base)
	}
	return string(out)
}

func extensionBase(g *Graph, from, to uint64) byte {
	for _, base := range bases {
		code, _ := dnabit.FromASCII(base)
		if dnabit.Canonical(shiftForward(from, g.K, uint64(code)), g.K) == to {
			return base
		}
	}
	return 'N'
}

// SortedKmers returns every node's canonical k-mer value, sorted
// ascending -- useful for deterministic dumps and tests.
func (g *Graph) SortedKmers() []uint64 {
	out := make([]uint64, 0, len(g.nodes))
	for k := range g.nodes {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
