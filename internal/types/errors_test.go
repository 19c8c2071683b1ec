package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolutionErrorMessage(t *testing.T) {
	err := &ResolutionError{
		Kind:     ErrorKindCyclicDependency,
		Location: "/s/A.xsd",
		Path:     []string{"/s/A.xsd", "/s/B.xsd", "/s/A.xsd"},
		Msg:      "circular reference detected",
	}
	assert.Equal(t,
		"cyclic-dependency: circular reference detected (location=/s/A.xsd) (path=/s/A.xsd -> /s/B.xsd -> /s/A.xsd)",
		err.Error())
}

func TestResolutionErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewResolutionError(ErrorKindFetchFailure, "http://example.com/a.xsd", "failed to fetch document").WithCause(cause)

	require.ErrorIs(t, err, cause)
	var target *ResolutionError
	require.ErrorAs(t, error(err), &target)
	assert.Equal(t, ErrorKindFetchFailure, target.Kind)
	assert.Contains(t, err.Error(), "connection refused")
}
