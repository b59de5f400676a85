package alphamap

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/datrie/xerrors"
)

func TestEmptyMapAcceptsNothing(t *testing.T) {
	m := New()
	assert.Equal(t, 0, m.Size())
	_, ok := m.Encode('a')
	assert.False(t, ok)
	_, ok = m.EncodeString("a")
	assert.False(t, ok)
}

func TestAddRangeMerges(t *testing.T) {
	m := New()
	require.NoError(t, m.AddRange('a', 'c'))
	require.NoError(t, m.AddRange('x', 'z'))
	require.NoError(t, m.AddRange('d', 'f'))
	assert.Equal(t, []Range{{'a', 'f'}, {'x', 'z'}}, m.Ranges(), "touching ranges merge")

	require.NoError(t, m.AddRange('e', 'y'))
	assert.Equal(t, []Range{{'a', 'z'}}, m.Ranges(), "overlap bridges both ranges")
	assert.Equal(t, 26, m.Size())
}

func TestAddRangeRejectsInvalid(t *testing.T) {
	m := New()
	assert.ErrorIs(t, m.AddRange('z', 'a'), xerrors.ErrInvalidRange)
	assert.ErrorIs(t, m.AddRange(-1, 5), xerrors.ErrInvalidRange)
	assert.ErrorIs(t, m.AddRange(0, MaxSymbols), xerrors.ErrAlphabetTooLarge)
	assert.Equal(t, 0, m.Size(), "failed adds leave the map untouched")
}

func TestEncodeDecodeDenseCodes(t *testing.T) {
	m, err := FromRanges(Range{'a', 'd'}, '0', "xz")
	require.NoError(t, err)
	assert.Equal(t, 7, m.Size())

	tests := []struct {
		r    rune
		code Symbol
	}{
		{'0', 1}, {'a', 2}, {'d', 5}, {'x', 6}, {'z', 7},
	}
	for _, tt := range tests {
		c, ok := m.Encode(tt.r)
		require.True(t, ok, "%q", tt.r)
		assert.Equal(t, tt.code, c, "%q", tt.r)
		r, ok := m.Decode(c)
		require.True(t, ok)
		assert.Equal(t, tt.r, r)
	}

	_, ok := m.Encode('y')
	assert.False(t, ok)
	_, ok = m.Decode(Terminator)
	assert.False(t, ok)
	_, ok = m.Decode(8)
	assert.False(t, ok)
}

func TestFromRangesRejectsUnknownItem(t *testing.T) {
	_, err := FromRanges(3.5)
	assert.ErrorIs(t, err, xerrors.ErrInvalidRange)
}

func TestPresets(t *testing.T) {
	assert.Equal(t, 128, ASCII().Size())
	assert.Equal(t, 256, Latin1().Size())

	_, ok := ASCII().Encode(0)
	assert.False(t, ok, "NUL collides with the terminator")
	_, ok = ASCII().Encode('é')
	assert.False(t, ok)
	_, ok = Latin1().Encode('é')
	assert.True(t, ok)
}

func TestEncodeString(t *testing.T) {
	m, err := FromRanges(Range{'a', 'd'})
	require.NoError(t, err)

	s, ok := m.EncodeString("abc")
	require.True(t, ok)
	assert.Equal(t, []Symbol{1, 2, 3}, s)
	assert.Equal(t, "abc", m.DecodeSymbols(append(s, Terminator, 4)))

	_, ok = m.EncodeString("def")
	assert.False(t, ok)
}

func TestCloneIsIndependent(t *testing.T) {
	m := ASCII()
	c := m.Clone()
	require.True(t, m.Equal(c))
	require.NoError(t, m.AddRange(0x100, 0x1ff))
	assert.False(t, m.Equal(c))
	assert.Equal(t, 128, c.Size())
}

func TestCodecRoundTrip(t *testing.T) {
	m, err := FromRanges(Range{'a', 'z'}, Range{0x4e00, 0x4e20}, "_")
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	got, err := ReadAlphaMap(&buf)
	require.NoError(t, err)
	assert.True(t, m.Equal(got))
	for _, r := range "_az一" {
		want, _ := m.Encode(r)
		c, ok := got.Encode(r)
		require.True(t, ok)
		assert.Equal(t, want, c)
	}
}

func TestUnmarshalRejectsOverlap(t *testing.T) {
	m, err := FromRanges(Range{'a', 'c'}, Range{'x', 'z'})
	require.NoError(t, err)
	payload, err := m.MarshalBinary()
	require.NoError(t, err)

	// 第二个区间起点改为 'b'，与第一个区间重叠。
	payload[12+3] = 'b'
	assert.ErrorIs(t, New().UnmarshalBinary(payload), xerrors.ErrCorruptState)
}
