package dnabit

import "github.com/longread/biocore/bioerr"

// Fixed is a fixed-capacity bit-packed container: capacity = 64/elemWidth
// elements of elemWidth bits each, packed low-to-high into a single 64-bit
// word. It is the generic reification of the original design's
// "template-heavy bit container with compile-time capacity" (the element
// width is a runtime field here, not a type parameter, since every
// operation only depends on the width value, not a type-level constant).
//
// Invariant: unused high bits are always zero after every mutation.
type Fixed struct {
	bits      uint64
	elemWidth uint
	size      int // number of logically populated elements, <= Capacity()
}

// NewFixed returns an empty Fixed container holding elements of the given
// bit width. elemWidth must be in [1, 64].
func NewFixed(elemWidth uint) (*Fixed, error) {
	if elemWidth == 0 || elemWidth > 64 {
		return nil, bioerr.E(bioerr.Domain, "dnabit: bad element width", elemWidth)
	}
	return &Fixed{elemWidth: elemWidth}, nil
}

// Capacity returns floor(64/elemWidth), the maximum number of elements the
// container can hold.
func (f *Fixed) Capacity() int {
	return 64 / int(f.elemWidth)
}

// Size returns the number of populated elements.
func (f *Fixed) Size() int { return f.size }

func (f *Fixed) mask() uint64 {
	if f.elemWidth == 64 {
		return ^uint64(0)
	}
	return (uint64(1) << f.elemWidth) - 1
}

func (f *Fixed) shift(idx int) uint {
	return uint(idx) * f.elemWidth
}

// Get returns the element at idx (0 is the lowest-order slot).
func (f *Fixed) Get(idx int) (uint64, error) {
	if idx < 0 || idx >= f.Capacity() {
		return 0, bioerr.E(bioerr.Domain, "dnabit: Get index out of range", idx)
	}
	return (f.bits >> f.shift(idx)) & f.mask(), nil
}

// Set overwrites the element at idx in place, without shifting neighbors.
func (f *Fixed) Set(idx int, val uint64) error {
	if idx < 0 || idx >= f.Capacity() {
		return bioerr.E(bioerr.Domain, "dnabit: Set index out of range", idx)
	}
	val &= f.mask()
	s := f.shift(idx)
	f.bits = (f.bits &^ (f.mask() << s)) | (val << s)
	if idx >= f.size {
		f.size = idx + 1
	}
	return nil
}

// Insert shifts every element at position >= idx left by one slot (toward
// higher index) and places val at idx. If the container was already at
// capacity, the topmost (highest-index) element is dropped. Size is
// saturated at Capacity().
func (f *Fixed) Insert(idx int, val uint64) error {
	cap := f.Capacity()
	if idx < 0 || idx > cap {
		return bioerr.E(bioerr.Domain, "dnabit: Insert index out of range", idx)
	}
	val &= f.mask()
	lowMask := (uint64(1) << f.shift(idx)) - 1
	if idx == 0 {
		lowMask = 0
	}
	low := f.bits & lowMask
	high := f.bits &^ lowMask
	shifted := (high << f.elemWidth) & f.fullMask()
	f.bits = shifted | (val << f.shift(idx)) | low
	if f.size < cap {
		f.size++
	}
	return nil
}

// Remove shifts every element above idx down by one slot, zeroing the
// vacated trailing slot.
func (f *Fixed) Remove(idx int) error {
	cap := f.Capacity()
	if idx < 0 || idx >= cap {
		return bioerr.E(bioerr.Domain, "dnabit: Remove index out of range", idx)
	}
	lowMask := (uint64(1) << f.shift(idx)) - 1
	if idx == 0 {
		lowMask = 0
	}
	low := f.bits & lowMask
	high := f.bits &^ ((uint64(1) << f.shift(idx+1)) - 1)
	shiftedDown := high >> f.elemWidth
	f.bits = shiftedDown | low
	if f.size > 0 {
		f.size--
	}
	return nil
}

// fullMask covers exactly Capacity()*elemWidth bits.
func (f *Fixed) fullMask() uint64 {
	n := uint(f.Capacity()) * f.elemWidth
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << n) - 1
}

// Reverse reverses the order of all Capacity() slots (index i <->
// Capacity()-1-i) by swapping elements pairwise through Get and Set, one
// pair at a time; no butterfly or mask-based rounds are used. Because Set
// extends Size to the highest slot written, Size() equals Capacity()
// afterwards whenever Capacity() >= 2.
func (f *Fixed) Reverse() {
	cap := f.Capacity()
	// Round-trip through Get/Set is sufficiently fast for the bounded
	// capacities involved (<=64 elements) and keeps the mask bookkeeping
	// (which differs for every elemWidth/capacity pair) in one place; larger
	// radix-style butterfly swaps are only a win for power-of-two elemWidths
	// that evenly divide 64, which excludes most DnaBit widths (2-bit codes
	// over an odd k).
	half := cap / 2
	for i := 0; i < half; i++ {
		j := cap - 1 - i
		vi, _ := f.Get(i)
		vj, _ := f.Get(j)
		_ = f.Set(i, vj)
		_ = f.Set(j, vi)
	}
}

// Range extracts a contiguous slice [pos, pos+n) into a new Fixed container
// of the same element width.
func (f *Fixed) Range(pos, n int) (*Fixed, error) {
	if pos < 0 || n < 0 || pos+n > f.Capacity() {
		return nil, bioerr.E(bioerr.Domain, "dnabit: Range out of bounds", pos, n)
	}
	out, err := NewFixed(f.elemWidth)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		v, _ := f.Get(pos + i)
		_ = out.Set(i, v)
	}
	return out, nil
}

// Variable adds a logical length <= capacity on top of Fixed, the way the
// original design distinguishes a fixed-capacity container from one that
// additionally tracks how many of its slots are meaningful.
type Variable struct {
	Fixed
}

// NewVariable returns an empty Variable container.
func NewVariable(elemWidth uint) (*Variable, error) {
	f, err := NewFixed(elemWidth)
	if err != nil {
		return nil, err
	}
	return &Variable{Fixed: *f}, nil
}

// Len returns the logical length (number of meaningful elements).
func (v *Variable) Len() int { return v.size }
