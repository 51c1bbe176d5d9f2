// Package bioerr defines the error kinds shared across the biocore
// subsystems (LSH indexing, de Bruijn graphs, POA, and alignment). It is a
// thin, domain-specific layer over github.com/grailbio/base/errors: each
// kind here maps onto one of that package's errors.Kind values so that
// callers who already range over grailbio/base/errors.Is(...) get useful
// classification without needing to know about this package.
package bioerr

import (
	"github.com/grailbio/base/errors"
)

// Kind classifies a biocore error the way the original design separates
// "size mismatch at a constructor boundary" from "short read on a
// serialized stream" from "unsupported alignment mode".
type Kind int

const (
	// Other is the kind for errors that don't fit a more specific bucket.
	Other Kind = iota
	// InvalidArgument covers constructor-boundary size mismatches: e.g.
	// len(signaturesPerRows) != len(registersPerSignatures), k > 32, or a
	// reverse-iterator pair with end < beg.
	InvalidArgument
	// Domain covers k-mer/sketch operations requested outside their
	// defined width, e.g. a non-positive block width or a bottom-K query
	// issued against multi-map index state.
	Domain
	// IO covers short reads/writes during index or graph serialization.
	IO
	// Unsupported covers alignment modes or code paths not implemented for
	// a particular entry point (e.g. SEMIGLOBAL where only GLOBAL exists).
	Unsupported
	// InvalidBase covers a non-IUPAC character encountered where a strict
	// DNA alphabet was required.
	InvalidBase
)

func (k Kind) errorsKind() errors.Kind {
	switch k {
	case InvalidArgument:
		return errors.Invalid
	case Domain:
		return errors.Invalid
	case IO:
		return errors.Invalid // grailbio/base/errors has no dedicated IO kind
	case Unsupported:
		return errors.NotSupported
	case InvalidBase:
		return errors.Invalid
	default:
		return errors.Other
	}
}

// E builds an error of the given kind, following the same call shape as
// grailbio/base/errors.E(args...): the remaining arguments are joined,
// with any error argument chained as the cause.
func E(kind Kind, args ...interface{}) error {
	all := make([]interface{}, 0, len(args)+1)
	all = append(all, kind.errorsKind())
	all = append(all, args...)
	return errors.E(all...)
}

// Is reports whether err is a bioerr error of the given kind.
func Is(kind Kind, err error) bool {
	return errors.Is(kind.errorsKind(), err)
}

// Once aggregates the first error seen across concurrent goroutines,
// exactly like grailbio/base/errors.Once as used by pamwriter's parallel
// shard writers: subsequent errors are discarded, so the first one
// reported is the one kept.
type Once = errors.Once
