// Package alphamap 实现字符与字典树内部符号之间的双向映射。
//
// 字母表由若干互不相交的 [Begin, End] 码点区间组成，按区间顺序依次分配
// 从 1 开始的连续符号编码，0 保留为键结束符（Terminator）。
package alphamap

import (
	"fmt"
	"slices"
	"sort"
	"unicode/utf8"

	"github.com/wyfcoding/datrie/xerrors"
)

// Symbol 是字母表内部的紧凑编码。
type Symbol uint16

const (
	// Terminator 键结束符，不对应任何真实字符。
	Terminator Symbol = 0
	// MaxSymbols 单个字母表允许的最大符号数（不含结束符）。
	MaxSymbols = 65535
)

// Range 是一个闭区间 [Begin, End]。
type Range struct {
	Begin rune
	End   rune
}

// Width 返回区间包含的码点数量。
func (r Range) Width() int { return int(r.End-r.Begin) + 1 }

func (r Range) String() string { return fmt.Sprintf("[%#x,%#x]", r.Begin, r.End) }

// AlphaMap 是有序、互不相交的码点区间集合。
// 零值等同于 New()，不接受任何字符。
type AlphaMap struct {
	ranges  []Range
	offsets []int // offsets[i] 为第 i 个区间之前的符号总数
	size    int
}

// New 创建一个空字母表。
func New() *AlphaMap {
	return &AlphaMap{}
}

// ASCII 返回覆盖 0..127 的字母表。
func ASCII() *AlphaMap {
	m := New()
	_ = m.AddRange(0, 0x7f)
	return m
}

// Latin1 返回覆盖 0..255 的字母表，未显式指定字母表的字典树使用它。
func Latin1() *AlphaMap {
	m := New()
	_ = m.AddRange(0, 0xff)
	return m
}

// FromRanges 从混合参数构造字母表：
// Range 直接加入；rune 或 int 作为单点区间；string 中的每个字符各成一个单点区间。
func FromRanges(items ...any) (*AlphaMap, error) {
	m := New()
	for _, item := range items {
		var err error
		switch v := item.(type) {
		case Range:
			err = m.AddRange(v.Begin, v.End)
		case rune:
			err = m.AddRange(v, v)
		case int:
			err = m.AddRange(rune(v), rune(v))
		case string:
			for _, r := range v {
				if err = m.AddRange(r, r); err != nil {
					break
				}
			}
		default:
			err = xerrors.Wrapf(nil, xerrors.ErrInvalidRange, "unsupported range item %T", item)
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AddRange 注册 [begin, end] 内的字符为合法字符，与已有的相交或相邻区间合并。
func (m *AlphaMap) AddRange(begin, end rune) error {
	if begin < 0 || end < 0 || begin > end || end > utf8.MaxRune {
		return xerrors.Wrapf(nil, xerrors.ErrInvalidRange, "range [%d,%d]", begin, end)
	}

	merged := Range{Begin: begin, End: end}
	next := make([]Range, 0, len(m.ranges)+1)
	inserted := false
	for _, r := range m.ranges {
		switch {
		case r.End+1 < merged.Begin:
			next = append(next, r)
		case merged.End+1 < r.Begin:
			if !inserted {
				next = append(next, merged)
				inserted = true
			}
			next = append(next, r)
		default:
			merged.Begin = min(merged.Begin, r.Begin)
			merged.End = max(merged.End, r.End)
		}
	}
	if !inserted {
		next = append(next, merged)
	}

	size := 0
	for _, r := range next {
		size += r.Width()
	}
	if size > MaxSymbols {
		return xerrors.Wrapf(nil, xerrors.ErrAlphabetTooLarge, "%d symbols, limit %d", size, MaxSymbols)
	}

	m.ranges = next
	m.reindex()
	return nil
}

func (m *AlphaMap) reindex() {
	m.offsets = m.offsets[:0]
	m.size = 0
	for _, r := range m.ranges {
		m.offsets = append(m.offsets, m.size)
		m.size += r.Width()
	}
}

// Size 返回字母表的符号数量。
func (m *AlphaMap) Size() int { return m.size }

// Ranges 返回区间列表的副本。
func (m *AlphaMap) Ranges() []Range { return slices.Clone(m.ranges) }

// Encode 将字符映射为内部符号。字符不在任何区间内，或为 U+0000 时返回 false。
func (m *AlphaMap) Encode(r rune) (Symbol, bool) {
	if r <= 0 {
		return 0, false
	}
	i, found := slices.BinarySearchFunc(m.ranges, r, func(rg Range, t rune) int {
		switch {
		case rg.End < t:
			return -1
		case rg.Begin > t:
			return 1
		}
		return 0
	})
	if !found {
		return 0, false
	}
	return Symbol(m.offsets[i] + int(r-m.ranges[i].Begin) + 1), true
}

// Decode 将内部符号还原为字符。结束符与越界符号返回 false。
func (m *AlphaMap) Decode(s Symbol) (rune, bool) {
	if s == Terminator || int(s) > m.size {
		return 0, false
	}
	code := int(s) - 1
	i := sort.Search(len(m.offsets), func(i int) bool { return m.offsets[i] > code }) - 1
	r := m.ranges[i].Begin + rune(code-m.offsets[i])
	if r == 0 {
		return 0, false
	}
	return r, true
}

// EncodeString 编码整个字符串，任一字符非法即返回 false。
func (m *AlphaMap) EncodeString(s string) ([]Symbol, bool) {
	out := make([]Symbol, 0, len(s))
	for _, r := range s {
		c, ok := m.Encode(r)
		if !ok {
			return nil, false
		}
		out = append(out, c)
	}
	return out, true
}

// DecodeSymbols 将符号序列还原为字符串，遇到结束符或非法符号即停止。
func (m *AlphaMap) DecodeSymbols(syms []Symbol) string {
	buf := make([]rune, 0, len(syms))
	for _, s := range syms {
		r, ok := m.Decode(s)
		if !ok {
			break
		}
		buf = append(buf, r)
	}
	return string(buf)
}

// Clone 返回深拷贝。
func (m *AlphaMap) Clone() *AlphaMap {
	c := &AlphaMap{ranges: slices.Clone(m.ranges)}
	c.reindex()
	return c
}

// Equal 判断两个字母表的区间布局是否完全相同。
func (m *AlphaMap) Equal(o *AlphaMap) bool {
	if m == nil || o == nil {
		return m == o
	}
	return slices.Equal(m.ranges, o.ranges)
}

func (m *AlphaMap) String() string {
	return fmt.Sprintf("alphamap%v(size=%d)", m.ranges, m.size)
}
