package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildren(t *testing.T) {
	tr := newFixture(t)

	assert.ElementsMatch(t, []string{"rock", "rocket"}, tr.Children("roc"))
	assert.Equal(t, []string{"rock", "rocket"}, tr.Children("rock"), "prefix that is itself a key comes first")
	assert.Equal(t, []string{"rocket"}, tr.Children("rocke"))
	assert.Equal(t, []string{"frederico"}, tr.Children("f"))
	assert.Equal(t, []string{"frederico"}, tr.Children("frederico"))
	assert.Empty(t, tr.Children("ajsodij"))
	assert.Empty(t, tr.Children("fredx"))
	assert.Empty(t, tr.Children("rockets"))
	assert.Empty(t, tr.Children(""))
	assert.Empty(t, tr.Children("日"))
}

func TestChildrenWithValues(t *testing.T) {
	tr := New()
	require.True(t, tr.Add("tea", 1))
	require.True(t, tr.Add("ten", 2))
	require.True(t, tr.Add("te", 3))
	require.True(t, tr.Add("to", 4))

	assert.Equal(t, []Entry{{"te", 3}, {"tea", 1}, {"ten", 2}}, tr.ChildrenWithValues("te"))
	assert.Len(t, tr.ChildrenWithValues("t"), 4)
}

func TestHasChildren(t *testing.T) {
	tr := newFixture(t)

	assert.True(t, tr.HasChildren("r"))
	assert.True(t, tr.HasChildren("rock"))
	assert.True(t, tr.HasChildren("rocket"), "a complete walk succeeds even without continuations")
	assert.True(t, tr.HasChildren("fred"))
	assert.False(t, tr.HasChildren("x"))
	assert.False(t, tr.HasChildren("rockets"))
	assert.False(t, tr.HasChildren(""))
}

func TestWalkToTerminal(t *testing.T) {
	tr := newFixture(t)
	require.True(t, tr.Add("anderson", NoValue))
	require.True(t, tr.Add("andreas", NoValue))
	require.True(t, tr.Add("and", 15))

	key, ok := tr.WalkToTerminal("anderson")
	assert.True(t, ok)
	assert.Equal(t, "and", key)

	key, v, ok := tr.WalkToTerminalWithValue("anderson")
	assert.True(t, ok)
	assert.Equal(t, "and", key)
	assert.Equal(t, int32(15), v)

	key, ok = tr.WalkToTerminal("rocketry")
	assert.True(t, ok)
	assert.Equal(t, "rock", key)

	key, ok = tr.WalkToTerminal("frederico!")
	assert.True(t, ok)
	assert.Equal(t, "frederico", key)

	_, ok = tr.WalkToTerminal("an")
	assert.False(t, ok)
	_, ok = tr.WalkToTerminal("zebra")
	assert.False(t, ok)
	_, ok = tr.WalkToTerminal("")
	assert.False(t, ok)
}

func TestEnumerateStopsEarly(t *testing.T) {
	tr := newFixture(t)

	var seen []string
	complete := tr.Enumerate(func(key string, _ int32) bool {
		seen = append(seen, key)
		return len(seen) < 2
	})
	assert.False(t, complete)
	assert.Len(t, seen, 2)

	assert.True(t, tr.Enumerate(func(string, int32) bool { return true }))
	assert.True(t, New().Enumerate(func(string, int32) bool { return false }), "nothing to visit")
}

func TestAllOrdered(t *testing.T) {
	tr := newFixture(t)
	var keys []string
	for k := range tr.All() {
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"frederico", "rock", "rocket"}, keys)
}
