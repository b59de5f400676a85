// Package tail 实现字典树的尾部后缀存储。
//
// 不再分叉的键后缀整体存入一个尾块，而不是为每个字符分配自动机状态。
// 尾块编号从 1 开始，空闲块组成按编号升序的单链表。
package tail

import (
	"slices"

	"github.com/wyfcoding/datrie/alphamap"
)

type Symbol = alphamap.Symbol

const (
	// NoValue 尾块未设置权重时的数据值。
	NoValue int32 = -1

	allocated int32 = -1
)

type block struct {
	nextFree int32
	data     int32
	suffix   []Symbol
}

// Store 是尾块集合。
type Store struct {
	blocks    []block // blocks[0] 不使用
	firstFree int32
	active    int
}

// New 创建空的尾部存储。
func New() *Store {
	return &Store{blocks: make([]block, 1)}
}

// Len 返回尾块总数（含空闲块）。
func (t *Store) Len() int { return len(t.blocks) - 1 }

// Active 返回已分配的尾块数。
func (t *Store) Active() int { return t.active }

// Live 判断 i 是否为已分配的尾块。
func (t *Store) Live(i int32) bool {
	return i > 0 && int(i) < len(t.blocks) && t.blocks[i].nextFree == allocated
}

// Attach 分配一个尾块保存 suffix 与 data，返回尾块编号。
func (t *Store) Attach(suffix []Symbol, data int32) int32 {
	var i int32
	if t.firstFree != 0 {
		i = t.firstFree
		t.firstFree = t.blocks[i].nextFree
	} else {
		t.blocks = append(t.blocks, block{})
		i = int32(len(t.blocks) - 1)
	}
	t.blocks[i] = block{nextFree: allocated, data: data, suffix: slices.Clone(suffix)}
	t.active++
	return i
}

// Detach 释放尾块 i，按编号顺序插回空闲链表。
func (t *Store) Detach(i int32) {
	if !t.Live(i) {
		return
	}
	var prev int32
	j := t.firstFree
	for j != 0 && j < i {
		prev, j = j, t.blocks[j].nextFree
	}
	t.blocks[i] = block{nextFree: j, data: NoValue}
	if prev == 0 {
		t.firstFree = i
	} else {
		t.blocks[prev].nextFree = i
	}
	t.active--
}

// Suffix 返回尾块 i 的后缀（不含结束符），调用方不得修改返回的切片。
func (t *Store) Suffix(i int32) []Symbol {
	if !t.Live(i) {
		return nil
	}
	return t.blocks[i].suffix
}

// SetSuffix 替换尾块 i 的后缀。
func (t *Store) SetSuffix(i int32, suffix []Symbol) {
	if t.Live(i) {
		t.blocks[i].suffix = slices.Clone(suffix)
	}
}

// Data 返回尾块 i 的权重。
func (t *Store) Data(i int32) (int32, bool) {
	if !t.Live(i) {
		return NoValue, false
	}
	return t.blocks[i].data, true
}

// SetData 设置尾块 i 的权重。
func (t *Store) SetData(i int32, v int32) bool {
	if !t.Live(i) {
		return false
	}
	t.blocks[i].data = v
	return true
}

// at 返回后缀第 k 个符号，越过末尾时返回结束符。
func (t *Store) at(i int32, k int) Symbol {
	suffix := t.blocks[i].suffix
	if k >= len(suffix) {
		return alphamap.Terminator
	}
	return suffix[k]
}

// MatchKind 描述输入与尾块后缀的比较结果。
type MatchKind int

const (
	// Matched 输入（含结束符）与后缀完全一致。
	Matched MatchKind = iota
	// Mismatched 在 Offset 处出现不同符号。
	Mismatched
	// WalkedPastEnd 输入在后缀结束前耗尽，Offset 为输入长度。
	WalkedPastEnd
)

func (k MatchKind) String() string {
	switch k {
	case Matched:
		return "matched"
	case Mismatched:
		return "mismatched"
	case WalkedPastEnd:
		return "walked-past-end"
	}
	return "unknown"
}

// MatchResult 是 Match 的返回值。
type MatchResult struct {
	Kind   MatchKind
	Offset int
}

// Match 逐符号比较 input 与尾块 i 的后缀（末尾隐含结束符）。
func (t *Store) Match(i int32, input []Symbol) MatchResult {
	if !t.Live(i) {
		return MatchResult{Kind: Mismatched}
	}
	for k, c := range input {
		sc := t.at(i, k)
		if c != sc {
			return MatchResult{Kind: Mismatched, Offset: k}
		}
		if sc == alphamap.Terminator {
			return MatchResult{Kind: Matched, Offset: k}
		}
	}
	return MatchResult{Kind: WalkedPastEnd, Offset: len(input)}
}

// Split 在 offset 处拆分尾块 i：返回需展开为自动机状态的公共前缀与原后缀在该处的符号，
// 尾块只保留分歧符号之后的剩余部分（可能为空，即仅表示键结束）。
func (t *Store) Split(i int32, offset int) (prefix []Symbol, diverge Symbol) {
	if !t.Live(i) {
		return nil, alphamap.Terminator
	}
	suffix := t.blocks[i].suffix
	offset = min(max(offset, 0), len(suffix))
	prefix = slices.Clone(suffix[:offset])
	diverge = t.at(i, offset)
	if offset < len(suffix) {
		t.blocks[i].suffix = slices.Clone(suffix[offset+1:])
	} else {
		t.blocks[i].suffix = nil
	}
	return prefix, diverge
}

// WalkChar 从后缀位置 *idx 沿符号 c 前进。到达结束符后再走结束符时位置保持不变。
func (t *Store) WalkChar(i int32, idx *int, c Symbol) bool {
	if !t.Live(i) || *idx < 0 {
		return false
	}
	sc := t.at(i, *idx)
	if sc != c {
		return false
	}
	if sc != alphamap.Terminator {
		*idx++
	}
	return true
}

// IsWalkableChar 判断后缀位置 idx 处是否为符号 c。
func (t *Store) IsWalkableChar(i int32, idx int, c Symbol) bool {
	return t.Live(i) && idx >= 0 && t.at(i, idx) == c
}

// Clone 返回深拷贝。
func (t *Store) Clone() *Store {
	blocks := make([]block, len(t.blocks))
	for i, b := range t.blocks {
		blocks[i] = block{nextFree: b.nextFree, data: b.data, suffix: slices.Clone(b.suffix)}
	}
	return &Store{blocks: blocks, firstFree: t.firstFree, active: t.active}
}
