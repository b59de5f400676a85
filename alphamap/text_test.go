package alphamap

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/datrie/xerrors"
)

func TestParseRange(t *testing.T) {
	cases := []struct {
		in   string
		want Range
		ok   bool
	}{
		{"[0x61,0x7a]", Range{'a', 'z'}, true},
		{" [ 0x0e01 , 0x0e5b ] ", Range{0x0e01, 0x0e5b}, true},
		{"[41,5A]", Range{'A', 'Z'}, true},
		{"[0x7a,0x61]", Range{}, false},
		{"0x61,0x7a", Range{}, false},
		{"[0x61]", Range{}, false},
		{"[zz,0x7a]", Range{}, false},
		{"[0x0,0x110000]", Range{}, false},
	}
	for _, tc := range cases {
		got, err := ParseRange(tc.in)
		if !tc.ok {
			assert.True(t, errors.Is(err, xerrors.ErrInvalidRange), tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestRangeStringParsesBack(t *testing.T) {
	rg := Range{Begin: 0x4e00, End: 0x9fff}
	got, err := ParseRange(rg.String())
	require.NoError(t, err)
	assert.Equal(t, rg, got)
}

func TestParseText(t *testing.T) {
	src := "# latin letters\n[0x41,0x5a]\n\n[0x61,0x7a]\n[0x5b,0x60]\n"
	m, err := ParseText(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []Range{{'A', 'z'}}, m.Ranges())

	_, err = ParseText(strings.NewReader("[0x61,0x7a]\nnot a range\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidRange))
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseStrings(t *testing.T) {
	m, err := ParseStrings([]string{"[0x30,0x39]", "[0x61,0x66]"})
	require.NoError(t, err)
	assert.Equal(t, 16, m.Size())

	_, err = ParseStrings([]string{"[0x66,0x61]"})
	assert.True(t, errors.Is(err, xerrors.ErrInvalidRange))
}
