package darray

import (
	"bytes"
	"maps"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/datrie/codec"
	"github.com/wyfcoding/datrie/xerrors"
)

// paths 从根出发深度优先重建全部状态路径，与状态编号无关。
func paths(d *DoubleArray) map[string]bool {
	out := make(map[string]bool)
	var walk func(s int32, prefix []byte)
	walk = func(s int32, prefix []byte) {
		out[string(prefix)] = true
		for _, c := range d.Children(s) {
			next, ok := d.Walk(s, c)
			if !ok {
				panic("child reported but not walkable")
			}
			walk(next, append(append([]byte(nil), prefix...), byte(c)))
		}
	}
	walk(RootState, nil)
	return out
}

func insertPath(t *testing.T, d *DoubleArray, word []Symbol) int32 {
	t.Helper()
	s := d.Root()
	for _, c := range word {
		next, err := d.InsertBranch(s, c)
		require.NoError(t, err)
		require.Positive(t, d.Check(next))
		s = next
	}
	return s
}

func randomWord(r *rand.Rand, alphabet int) []Symbol {
	w := make([]Symbol, 1+r.IntN(6))
	for i := range w {
		w[i] = Symbol(r.IntN(alphabet) + 1)
	}
	return w
}

func TestNewHasOnlyRoot(t *testing.T) {
	d := New(26)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, RootState, d.Check(RootState))
	assert.False(t, d.HasChildren(RootState))
	assert.Empty(t, d.Children(RootState))
	require.NoError(t, d.Validate())
}

func TestInsertBranchAndWalk(t *testing.T) {
	d := New(26)
	a := insertPath(t, d, []Symbol{1, 2, 3})

	s, ok := d.Walk(RootState, 1)
	require.True(t, ok)
	s, ok = d.Walk(s, 2)
	require.True(t, ok)
	s, ok = d.Walk(s, 3)
	require.True(t, ok)
	assert.Equal(t, a, s)

	_, ok = d.Walk(RootState, 2)
	assert.False(t, ok)

	again, err := d.InsertBranch(RootState, 1)
	require.NoError(t, err)
	first, _ := d.Walk(RootState, 1)
	assert.Equal(t, first, again, "existing transition is returned unchanged")
	require.NoError(t, d.Validate())
}

func TestChildrenOrderedBySymbol(t *testing.T) {
	d := New(26)
	for _, c := range []Symbol{9, 0, 3, 26, 1} {
		_, err := d.InsertBranch(RootState, c)
		require.NoError(t, err)
	}
	assert.Equal(t, []Symbol{0, 1, 3, 9, 26}, d.Children(RootState))
}

func TestRandomInsertKeepsPaths(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	d := New(20)
	want := map[string]bool{"": true}

	for range 400 {
		w := randomWord(r, 20)
		insertPath(t, d, w)
		for i := 1; i <= len(w); i++ {
			p := make([]byte, i)
			for j := range p {
				p[j] = byte(w[j])
			}
			want[string(p)] = true
		}
		require.Equal(t, want, paths(d))
	}
	require.NoError(t, d.Validate())
}

// prefixes 返回 words 中全部单词（含空串在内）的前缀集合。
func prefixes(words map[string]bool) map[string]bool {
	out := map[string]bool{"": true}
	for w := range words {
		for i := 1; i <= len(w); i++ {
			out[w[:i]] = true
		}
	}
	return out
}

// 小字母表与长路径使目标单元频繁冲突，包括搬迁占用者兄弟组时插入状态本身被移走的情形。
func TestConflictRelocationKeepsParentLinks(t *testing.T) {
	const alphabet = 4
	renumbered := 0

	for seed := range uint64(32) {
		r := rand.New(rand.NewPCG(seed, seed*31+1))
		d := New(alphabet)
		live := make(map[string]bool)

		for op := range 500 {
			if len(live) > 0 && r.IntN(4) == 0 {
				words := slices.Sorted(maps.Keys(live))
				w := words[r.IntN(len(words))]
				s := d.Root()
				for i := range len(w) {
					next, ok := d.Walk(s, Symbol(w[i]))
					require.True(t, ok, "seed %d op %d: walk %q", seed, op, w)
					s = next
				}
				d.Prune(s)
				delete(live, w)
			} else {
				word := make([]byte, 1+r.IntN(10))
				for i := range word {
					word[i] = byte(1 + r.IntN(alphabet))
				}
				word = append(word, 0)

				s := d.Root()
				for _, b := range word {
					c := Symbol(b)
					next, err := d.InsertBranch(s, c)
					require.NoError(t, err)
					parent := d.Check(next)
					require.Positive(t, parent, "seed %d op %d", seed, op)
					require.NotEqual(t, next, parent, "seed %d op %d: child %d is its own parent", seed, op, next)
					got, ok := d.Walk(parent, c)
					require.True(t, ok, "seed %d op %d", seed, op)
					require.Equal(t, next, got, "seed %d op %d", seed, op)
					if parent != s {
						renumbered++
					}
					s = next
				}
				live[string(word)] = true
			}

			require.Equal(t, prefixes(live), paths(d), "seed %d op %d", seed, op)
			if op%50 == 0 {
				require.NoError(t, d.Validate(), "seed %d op %d", seed, op)
			}
		}
		require.NoError(t, d.Validate(), "seed %d", seed)
	}
	assert.Positive(t, renumbered, "an inserting state was moved with its siblings")
}

func TestRelocatePreservesTransitions(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	d := New(16)
	for range 200 {
		insertPath(t, d, randomWord(r, 16))
	}
	before := paths(d)

	relocated := 0
	d.OnRelocate(func(_, _, _ int32) { relocated++ })
	for range 100 {
		// 重定位会改变子状态编号，每轮重新收集仍有子转移的状态。
		var live []int32
		for id := RootState; id < int32(d.Len()); id++ {
			if d.Check(id) > 0 && d.HasChildren(id) {
				live = append(live, id)
			}
		}
		require.NotEmpty(t, live)

		s := live[r.IntN(len(live))]
		oldBase := d.Base(s)
		newBase, err := d.Relocate(s)
		require.NoError(t, err)
		assert.Equal(t, newBase, d.Base(s))
		assert.NotEqual(t, oldBase, newBase)
		require.Equal(t, before, paths(d))
	}
	assert.Equal(t, 100, relocated)
	require.NoError(t, d.Validate())
}

func TestRelocateWithExtraReservesCell(t *testing.T) {
	d := New(8)
	insertPath(t, d, []Symbol{1})
	insertPath(t, d, []Symbol{2})

	base, err := d.Relocate(RootState, 7)
	require.NoError(t, err)
	assert.Equal(t, base, d.Base(RootState))
	assert.Equal(t, []Symbol{1, 2}, d.Children(RootState))

	next, err := d.InsertBranch(RootState, 7)
	require.NoError(t, err)
	assert.Equal(t, base+7, next, "reserved target stays free")
}

func TestPruneReleasesChain(t *testing.T) {
	d := New(26)
	insertPath(t, d, []Symbol{1, 2, 0})
	leaf := insertPath(t, d, []Symbol{1, 2, 3, 4})
	free := d.FreeCells()

	d.Prune(leaf)
	assert.Equal(t, free+2, d.FreeCells(), "states for 3 and 4 are released")

	s, ok := d.Walk(RootState, 1)
	require.True(t, ok)
	s, ok = d.Walk(s, 2)
	require.True(t, ok)
	assert.Equal(t, []Symbol{0}, d.Children(s), "terminated state survives")
	require.NoError(t, d.Validate())
}

func TestPruneUpToStopsAtAncestor(t *testing.T) {
	d := New(26)
	leaf := insertPath(t, d, []Symbol{5, 6, 7})
	mid, _ := d.Walk(RootState, 5)

	d.PruneUpTo(mid, leaf)
	_, ok := d.Walk(RootState, 5)
	assert.True(t, ok)
	assert.False(t, d.HasChildren(mid))
	require.NoError(t, d.Validate())
}

func TestFreedCellsAreReused(t *testing.T) {
	d := New(26)
	leaf := insertPath(t, d, []Symbol{1, 2, 3})
	n := d.Len()
	d.Prune(leaf)
	insertPath(t, d, []Symbol{1, 2, 3})
	assert.Equal(t, n, d.Len())
}

func TestCapacityExhausted(t *testing.T) {
	d := New(26)
	d.SetLimit(40)

	var err error
	for c := Symbol(1); c <= 26 && err == nil; c++ {
		s := d.Root()
		for _, x := range []Symbol{c, 26 - c + 1, c} {
			if s, err = d.InsertBranch(s, x); err != nil {
				break
			}
		}
	}
	require.Error(t, err)
	assert.ErrorIs(t, err, xerrors.ErrCapacityExhausted)
	assert.LessOrEqual(t, d.Len(), 40)
}

func TestMarshalRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	d := New(12)
	for range 100 {
		leaf := insertPath(t, d, randomWord(r, 12))
		if r.IntN(3) == 0 {
			d.Prune(leaf)
		}
	}

	var buf bytes.Buffer
	n, err := d.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, d.Len(), got.Len())
	assert.Equal(t, d.FreeCells(), got.FreeCells())
	assert.Equal(t, d.AlphabetSize(), got.AlphabetSize())
	assert.Equal(t, paths(d), paths(got))
}

func TestReadRejectsCorruption(t *testing.T) {
	d := New(4)
	insertPath(t, d, []Symbol{1, 2})
	insertPath(t, d, []Symbol{3})

	var buf bytes.Buffer
	_, err := d.WriteTo(&buf)
	require.NoError(t, err)

	t.Run("checksum", func(t *testing.T) {
		raw := bytes.Clone(buf.Bytes())
		raw[len(raw)-12] ^= 0xff
		_, err := Read(bytes.NewReader(raw))
		assert.ErrorIs(t, err, xerrors.ErrCorruptState)
	})

	t.Run("truncated", func(t *testing.T) {
		raw := buf.Bytes()[:buf.Len()-3]
		_, err := Read(bytes.NewReader(raw))
		assert.ErrorIs(t, err, xerrors.ErrCorruptState)
	})

	t.Run("structure", func(t *testing.T) {
		payload, err := d.MarshalBinary()
		require.NoError(t, err)
		// 根状态 check 位于第 1 个单元的第二个字段。
		payload[8+8+4+3] = 9
		err = (&DoubleArray{}).UnmarshalBinary(payload)
		assert.ErrorIs(t, err, xerrors.ErrCorruptState)
	})

	t.Run("root walks back to itself", func(t *testing.T) {
		c := New(4)
		c.cells[RootState].base = 1
		payload, err := c.MarshalBinary()
		require.NoError(t, err)
		var frame bytes.Buffer
		require.NoError(t, codec.WriteFrame(&frame, Magic, Version, payload))

		_, err = Read(&frame)
		assert.ErrorIs(t, err, xerrors.ErrCorruptState)
	})

	t.Run("negative root base", func(t *testing.T) {
		c := d.Clone()
		c.cells[RootState].base = -3
		assert.ErrorIs(t, c.Validate(), xerrors.ErrCorruptState)
	})

	t.Run("self parent", func(t *testing.T) {
		c := New(4)
		c.extend(5)
		c.alloc(4)
		c.cells[RootState].base = 2
		c.cells[4] = cell{base: 3, check: 4}
		assert.ErrorIs(t, c.Validate(), xerrors.ErrCorruptState)
	})

	t.Run("dangling parent", func(t *testing.T) {
		c := d.Clone()
		c.cells[RootState].base = 0
		assert.ErrorIs(t, c.Validate(), xerrors.ErrCorruptState)
	})
}
