package bioerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEWrapsRequestedKind(t *testing.T) {
	err := E(InvalidArgument, "bad k", 5)
	assert.Error(t, err)
	assert.True(t, Is(InvalidArgument, err))
	assert.False(t, Is(Unsupported, err))
}

func TestUnsupportedKindIsDistinctFromInvalid(t *testing.T) {
	// Unsupported maps to errors.NotSupported, a different underlying kind
	// than InvalidArgument/Domain/InvalidBase's shared errors.Invalid.
	err := E(Unsupported, "SEMIGLOBAL not implemented here")
	assert.True(t, Is(Unsupported, err))
	assert.False(t, Is(InvalidArgument, err))
}

func TestOnceKeepsFirstError(t *testing.T) {
	var once Once
	first := E(IO, "short read")
	second := E(IO, "different short read")
	once.Set(first)
	once.Set(second)
	assert.Equal(t, first, once.Err())
}
