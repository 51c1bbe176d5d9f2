// Package dnabit implements the bit substrate shared by every other biocore
// subsystem: 2-bit NCBI2na DNA encoding, fixed- and variable-width
// bit-packed containers holding up to 32 bases in a 64-bit word, and the
// WangHash reversible 64-bit mixing function used wherever k-mers must be
// hashed into a uniform distribution.
//
// The encode/decode tables below follow the same lookup-table idiom as
// fusion/kmer.go's asciiToKmerMap: a [256]uint8 indexed by the raw input
// byte, with an out-of-band sentinel for non-ACGT input, rather than a
// switch statement.
package dnabit

import "github.com/longread/biocore/bioerr"

const invalidCode = uint8(255)

var (
	asciiToCode [256]uint8
	codeToAscii = [4]byte{'A', 'C', 'G', 'T'}
)

func init() {
	for i := range asciiToCode {
		asciiToCode[i] = invalidCode
	}
	asciiToCode['A'], asciiToCode['a'] = 0, 0
	asciiToCode['C'], asciiToCode['c'] = 1, 1
	asciiToCode['G'], asciiToCode['g'] = 2, 2
	asciiToCode['T'], asciiToCode['t'] = 3, 3
}

// FromASCII maps an ASCII DNA base (case-insensitive A/C/G/T) to its 2-bit
// NCBI2na code. It returns bioerr.InvalidBase if base is not a recognized
// nucleotide.
func FromASCII(base byte) (uint8, error) {
	code := asciiToCode[base]
	if code == invalidCode {
		return 0, bioerr.E(bioerr.InvalidBase, "dnabit: not an ACGT base", base)
	}
	return code, nil
}

// ToASCII maps a 2-bit code (0..3) back to its ASCII base. The caller must
// guarantee code is in range; this is a pure bit substrate primitive used
// in hot loops, so it panics rather than returning an error on misuse.
func ToASCII(code uint8) byte {
	if code > 3 {
		panic("dnabit: code out of range")
	}
	return codeToAscii[code]
}

// EncodeSeq packs an ASCII DNA string into a little-end-first 2-bit
// encoding: the first base occupies the lowest two bits. For s = "ACGT"
// this yields 0b11100100 (T=3 in the high pair, A=0 in the low pair).
// len(s) must be <= 32.
func EncodeSeq(s string) (uint64, error) {
	if len(s) > 32 {
		return 0, bioerr.E(bioerr.InvalidArgument, "dnabit: sequence longer than 32 bases", len(s))
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		code, err := FromASCII(s[i])
		if err != nil {
			return 0, err
		}
		v |= uint64(code) << uint(2*i)
	}
	return v, nil
}

// DecodeSeq unpacks an encoded value of the given base width back into an
// ASCII string, inverse of EncodeSeq.
func DecodeSeq(v uint64, width int) (string, error) {
	if width < 0 || width > 32 {
		return "", bioerr.E(bioerr.InvalidArgument, "dnabit: width out of range", width)
	}
	buf := make([]byte, width)
	for i := 0; i < width; i++ {
		buf[i] = ToASCII(uint8((v >> uint(2*i)) & 0x3))
	}
	return string(buf), nil
}
