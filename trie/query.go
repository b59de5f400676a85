package trie

import (
	"iter"
	"unicode/utf8"

	"github.com/wyfcoding/datrie/alphamap"
)

// Children 返回以 prefix 开头的全部键（prefix 本身是键时也包含在内），按内部符号序排列。
// prefix 为空或不存在时返回空结果。
func (t *Trie) Children(prefix string) []string {
	var out []string
	t.eachUnder(prefix, func(key string, _ int32) bool {
		out = append(out, key)
		return true
	})
	return out
}

// ChildrenWithValues 与 Children 相同，同时返回每个键的权重。
func (t *Trie) ChildrenWithValues(prefix string) []Entry {
	var out []Entry
	t.eachUnder(prefix, func(key string, value int32) bool {
		out = append(out, Entry{Key: key, Value: value})
		return true
	})
	return out
}

// HasChildren 判断从根沿 prefix 的遍历能否完成，不要求 prefix 之下还有后继。
func (t *Trie) HasChildren(prefix string) bool {
	if prefix == "" {
		return false
	}
	_, ok := t.walkPrefix(prefix)
	return ok
}

// WalkToTerminal 沿 word 前进，返回途经的第一个（最短的）完整键。
func (t *Trie) WalkToTerminal(word string) (string, bool) {
	key, _, ok := t.WalkToTerminalWithValue(word)
	return key, ok
}

// WalkToTerminalWithValue 与 WalkToTerminal 相同，同时返回该键的权重。
func (t *Trie) WalkToTerminalWithValue(word string) (string, int32, bool) {
	p := t.rootPosition()
	for i := 0; i < len(word); {
		r, size := utf8.DecodeRuneInString(word[i:])
		i += size
		c, ok := t.alpha.Encode(r)
		if !ok || !t.step(&p, c) {
			break
		}
		if v, ok := t.valueAt(p); ok {
			return word[:i], v, true
		}
	}
	return "", NoValue, false
}

// Enumerate 按内部符号序遍历全部键，fn 返回 false 时停止；完整遍历时返回 true。
func (t *Trie) Enumerate(fn func(key string, value int32) bool) bool {
	return t.collectState(t.da.Root(), nil, fn)
}

// All 返回遍历全部键与权重的迭代器。
func (t *Trie) All() iter.Seq2[string, int32] {
	return func(yield func(string, int32) bool) {
		t.Enumerate(yield)
	}
}

func (t *Trie) eachUnder(prefix string, fn func(string, int32) bool) {
	if prefix == "" {
		return
	}
	p, ok := t.walkPrefix(prefix)
	if !ok {
		return
	}
	path := []rune(prefix)
	if p.inSuffix {
		suffix := t.tail.Suffix(p.index)[p.suffixIdx:]
		v, _ := t.tail.Data(p.index)
		fn(string(path)+t.alpha.DecodeSymbols(suffix), v)
		return
	}
	t.collectState(p.index, path, fn)
}

// collectState 深度优先遍历状态 s 之下的全部键，path 为到达 s 的字符序列。
func (t *Trie) collectState(s int32, path []rune, fn func(string, int32) bool) bool {
	for _, c := range t.da.Children(s) {
		next, _ := t.da.Walk(s, c)
		key := path
		if c != alphamap.Terminator {
			r, _ := t.alpha.Decode(c)
			key = append(path[:len(path):len(path)], r)
		}

		if !t.isSeparate(next) {
			if !t.collectState(next, key, fn) {
				return false
			}
			continue
		}
		tb := -t.da.Base(next)
		v, _ := t.tail.Data(tb)
		if !fn(string(key)+t.alpha.DecodeSymbols(t.tail.Suffix(tb)), v) {
			return false
		}
	}
	return true
}
