package xerrors

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapMatchesSentinel(t *testing.T) {
	err := Wrapf(io.ErrUnexpectedEOF, ErrCorruptState, "decode %s", ".br")
	assert.True(t, errors.Is(err, ErrCorruptState))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.False(t, errors.Is(err, ErrMissingState))
	assert.Equal(t, "[DataLoss] 510001: corrupt persisted state (decode .br): unexpected EOF", err.Error())
	assert.Empty(t, ErrCorruptState.Detail, "the sentinel is never modified")
	assert.NotEmpty(t, err.Stack)

	assert.Nil(t, Wrap(io.EOF, nil, "x"))
}

func TestFromError(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", Wrap(nil, ErrObjectNotFound, "words.tl"))
	e, ok := FromError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrNotFound, e.Type)
	assert.Equal(t, 410007, e.Code)

	_, ok = FromError(io.EOF)
	assert.False(t, ok)
	_, ok = FromError(nil)
	assert.False(t, ok)
}

func TestShortcuts(t *testing.T) {
	err := InvalidArg("bad name").WithContext("name", "../x").WithDetail("escapes %s", "root")
	assert.Equal(t, ErrInvalidArg, err.Type)
	assert.Equal(t, "../x", err.Context["name"])
	assert.Equal(t, "[InvalidArg] 400: bad name (escapes root)", err.Error())

	assert.Equal(t, ErrInternal, Internal("boom", nil).Type)
	assert.Equal(t, "Unknown", ErrorType(99).String())
}
