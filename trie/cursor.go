package trie

import (
	"slices"

	"github.com/wyfcoding/datrie/alphamap"
	"github.com/wyfcoding/datrie/xerrors"
)

// position 是自动机或尾块中的一个位置。
type position struct {
	index     int32 // 自动机状态，或 inSuffix 时的尾块编号
	suffixIdx int
	inSuffix  bool
}

func (t *Trie) rootPosition() position {
	return position{index: t.da.Root()}
}

// step 沿符号 c 前进一步，进入独立节点时切换到其尾块。
func (t *Trie) step(p *position, c alphamap.Symbol) bool {
	if p.inSuffix {
		return t.tail.WalkChar(p.index, &p.suffixIdx, c)
	}
	next, ok := t.da.Walk(p.index, c)
	if !ok {
		return false
	}
	if t.isSeparate(next) {
		*p = position{index: -t.da.Base(next), inSuffix: true}
	} else {
		p.index = next
	}
	return true
}

func (t *Trie) isWalkable(p position, c alphamap.Symbol) bool {
	if p.inSuffix {
		return t.tail.IsWalkableChar(p.index, p.suffixIdx, c)
	}
	return t.da.IsWalkable(p.index, c)
}

// walkPrefix 从根沿 prefix 前进，含字母表外字符或转移失败时返回 false。
func (t *Trie) walkPrefix(prefix string) (position, bool) {
	p := t.rootPosition()
	for _, r := range prefix {
		c, ok := t.alpha.Encode(r)
		if !ok || !t.step(&p, c) {
			return p, false
		}
	}
	return p, true
}

// valueAt 返回位置 p 处终止键的权重，p 不是终止位置时返回 false。
func (t *Trie) valueAt(p position) (int32, bool) {
	if !t.step(&p, alphamap.Terminator) || !p.inSuffix ||
		!t.tail.IsWalkableChar(p.index, p.suffixIdx, alphamap.Terminator) {
		return NoValue, false
	}
	return t.tail.Data(p.index)
}

// Cursor 是逐字符遍历字典树的游标。
// 字典树被修改后，此前创建的游标全部失效，所有操作返回零值。
type Cursor struct {
	trie       *Trie
	pos        position
	path       []rune
	generation uint64
	invalid    bool
}

// Root 返回位于根的新游标，每次调用都返回不同的实例。
func (t *Trie) Root() *Cursor {
	return &Cursor{trie: t, pos: t.rootPosition(), generation: t.generation}
}

// Valid 判断游标是否仍可使用。
func (c *Cursor) Valid() bool {
	return c != nil && !c.invalid && c.trie != nil && c.generation == c.trie.generation
}

// Err 返回游标失效的原因，游标可用时返回 nil。
func (c *Cursor) Err() error {
	switch {
	case c == nil || c.trie == nil:
		return xerrors.Wrap(nil, xerrors.ErrStaleCursor, "").WithDetail("cursor is not bound to a trie")
	case c.invalid:
		return xerrors.Wrap(nil, xerrors.ErrStaleCursor, "").
			WithDetail("walk failed").
			WithContext("path", string(c.path))
	case c.generation != c.trie.generation:
		return xerrors.Wrap(nil, xerrors.ErrStaleCursor, "").
			WithDetail("trie modified").
			WithContext("cursor_generation", c.generation).
			WithContext("trie_generation", c.trie.generation)
	}
	return nil
}

// Walk 返回沿字符 r 前进一步的新游标，原游标不变；无法前进时返回 nil。
func (c *Cursor) Walk(r rune) *Cursor {
	if !c.Valid() {
		return nil
	}
	next := c.Clone()
	if !next.advance(r) {
		return nil
	}
	return next
}

// WalkInPlace 沿字符 r 原地前进并返回自身。无法前进时返回 nil，此后游标失效。
func (c *Cursor) WalkInPlace(r rune) *Cursor {
	if !c.Valid() {
		return nil
	}
	if !c.advance(r) {
		c.invalid = true
		return nil
	}
	return c
}

func (c *Cursor) advance(r rune) bool {
	sym, ok := c.trie.alpha.Encode(r)
	if !ok || !c.trie.step(&c.pos, sym) {
		return false
	}
	c.path = append(c.path, r)
	return true
}

// State 返回最后一次前进消费的字符，尚未前进时返回 false。
func (c *Cursor) State() (rune, bool) {
	if !c.Valid() || len(c.path) == 0 {
		return 0, false
	}
	return c.path[len(c.path)-1], true
}

// FullState 返回从根开始累计的字符串。
func (c *Cursor) FullState() string {
	if !c.Valid() {
		return ""
	}
	return string(c.path)
}

// Value 返回当前位置终止键的权重，当前位置不是键结尾时返回 false。
func (c *Cursor) Value() (int32, bool) {
	if !c.Valid() {
		return NoValue, false
	}
	return c.trie.valueAt(c.pos)
}

// IsTerminal 判断当前位置是否为某个键的结尾。
func (c *Cursor) IsTerminal() bool {
	return c.Valid() && c.trie.isWalkable(c.pos, alphamap.Terminator)
}

// IsLeaf 判断当前位置是否为分支末端：是键结尾且不能再沿任何字符前进。
func (c *Cursor) IsLeaf() bool {
	if !c.IsTerminal() {
		return false
	}
	if c.pos.inSuffix {
		return c.pos.suffixIdx >= len(c.trie.tail.Suffix(c.pos.index))
	}
	return slices.Equal(c.trie.da.Children(c.pos.index), []alphamap.Symbol{alphamap.Terminator})
}

// Clone 返回状态相同但相互独立的游标。
func (c *Cursor) Clone() *Cursor {
	if c == nil {
		return nil
	}
	dup := *c
	dup.path = slices.Clone(c.path)
	return &dup
}
