package dnabit

import "github.com/longread/biocore/bioerr"

// DnaBit is a 2-bit-packed DNA k-mer of width bases (0..32), carrying its
// strand orientation. Two DnaBits compare equal in canonical terms iff
// their normalized canonical values (min of value and its reverse
// complement) are equal, regardless of which strand either one was
// observed on.
type DnaBit struct {
	Value  uint64
	Strand bool // true == minus/reverse strand as originally observed
	Width  int  // number of packed bases, 0..32
}

func widthMask(width int) uint64 {
	if width <= 0 {
		return 0
	}
	if width >= 32 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(2*width)) - 1
}

// reverseGroups2 reverses the order of all 32 two-bit groups packed into a
// uint64, via 5 rounds of butterfly swaps over fixed bit-masks -- the
// log2(32) radix-reverse the original design specifies for the bit
// substrate's reverse() operation, generalized here to the fixed element
// width (2 bits per base) every DnaBit and k-mer in this package uses.
func reverseGroups2(x uint64) uint64 {
	x = ((x >> 2) & 0x3333333333333333) | ((x & 0x3333333333333333) << 2)
	x = ((x >> 4) & 0x0F0F0F0F0F0F0F0F) | ((x & 0x0F0F0F0F0F0F0F0F) << 4)
	x = ((x >> 8) & 0x00FF00FF00FF00FF) | ((x & 0x00FF00FF00FF00FF) << 8)
	x = ((x >> 16) & 0x0000FFFF0000FFFF) | ((x & 0x0000FFFF0000FFFF) << 16)
	x = (x >> 32) | (x << 32)
	return x
}

// ReverseComplement computes the reverse complement of a width-base encoded
// k-mer: bitwise complement (NCBI2na is chosen so that 2-bit complement ==
// base complement: A=00<->T=11, C=01<->G=10) followed by reversing the
// order of the width bases.
func ReverseComplement(value uint64, width int) uint64 {
	mask := widthMask(width)
	complemented := (^value) & mask
	// reverseGroups2 reverses all 32 groups; the width groups we care about
	// currently sit in the low bits, so after a full reverse they land in
	// the high bits -- shift them back down to the low end.
	reversedAll := reverseGroups2(complemented)
	shift := uint(32-width) * 2
	if width >= 32 {
		return reversedAll
	}
	return reversedAll >> shift
}

// Canonical returns the lexicographically smaller of value and its reverse
// complement, the canonical form used to key k-mers independent of the
// strand they were read from.
func Canonical(value uint64, width int) uint64 {
	rc := ReverseComplement(value, width)
	if rc < value {
		return rc
	}
	return value
}

// NewDnaBit validates width and returns a DnaBit, masking value to width.
func NewDnaBit(value uint64, strand bool, width int) (DnaBit, error) {
	if width < 0 || width > 32 {
		return DnaBit{}, bioerr.E(bioerr.InvalidArgument, "dnabit: width out of range", width)
	}
	return DnaBit{Value: value & widthMask(width), Strand: strand, Width: width}, nil
}

// CanonicalValue returns this DnaBit's canonical (min of fwd/rc) value.
func (d DnaBit) CanonicalValue() uint64 {
	return Canonical(d.Value, d.Width)
}

// Less orders two DnaBits by normalized canonical value, breaking ties by
// width then strand, so that sorting a slice of DnaBits is a total order.
func (d DnaBit) Less(o DnaBit) bool {
	dc, oc := d.CanonicalValue(), o.CanonicalValue()
	if dc != oc {
		return dc < oc
	}
	if d.Width != o.Width {
		return d.Width < o.Width
	}
	return !d.Strand && o.Strand
}

// Equal reports canonical equality, ignoring originating strand.
func (d DnaBit) Equal(o DnaBit) bool {
	return d.Width == o.Width && d.CanonicalValue() == o.CanonicalValue()
}

// ReverseComplement returns a new DnaBit which is this one's reverse
// complement, with strand flipped.
func (d DnaBit) ReverseComplement() DnaBit {
	return DnaBit{Value: ReverseComplement(d.Value, d.Width), Strand: !d.Strand, Width: d.Width}
}

// String decodes the DnaBit's raw (non-canonicalized) value to ASCII.
func (d DnaBit) String() string {
	s, err := DecodeSeq(d.Value, d.Width)
	if err != nil {
		return ""
	}
	return s
}
