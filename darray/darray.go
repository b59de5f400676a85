// Package darray 实现双数组（base/check）确定有限自动机。
//
// 单元布局：
//   - 单元 0 为空闲链表头，空闲单元以 base = -prev、check = -next 组成环形双向链表，按编号升序排列。
//   - 单元 1 为根状态，check[1] = 1。
//   - 已分配单元 check > 0，值为父状态编号；空闲单元 check <= 0。
//   - base > 0 表示子转移区起点，base < 0 表示独立节点（-base 为尾块编号），base == 0 表示尚无子转移。
package darray

import (
	"fmt"
	"math"
	"slices"

	"github.com/wyfcoding/datrie/alphamap"
	"github.com/wyfcoding/datrie/xerrors"
)

type Symbol = alphamap.Symbol

const (
	// RootState 根状态编号。
	RootState int32 = 1
	// MaxCells 单元池的默认上限。
	MaxCells = math.MaxInt32

	freeHead  int32 = 0
	poolBegin int32 = 2
)

type cell struct {
	base  int32
	check int32
}

// DoubleArray 是双数组自动机。
type DoubleArray struct {
	cells        []cell
	alphabetSize int
	nfree        int
	limit        int64
	onRelocate   func(s, oldBase, newBase int32)
}

// New 创建一个只含根状态的自动机，alphabetSize 为不含结束符的符号数。
func New(alphabetSize int) *DoubleArray {
	return &DoubleArray{
		cells:        []cell{{base: 0, check: 0}, {base: 0, check: RootState}},
		alphabetSize: alphabetSize,
		limit:        MaxCells,
	}
}

// SetLimit 设置单元池上限，超过后 InsertBranch 返回 ErrCapacityExhausted。
func (d *DoubleArray) SetLimit(n int) {
	if n <= 0 || n > MaxCells {
		n = MaxCells
	}
	d.limit = int64(n)
}

// Limit 返回单元池上限。
func (d *DoubleArray) Limit() int { return int(d.limit) }

// OnRelocate 注册重定位回调，每次子转移区搬迁后调用。
func (d *DoubleArray) OnRelocate(fn func(s, oldBase, newBase int32)) { d.onRelocate = fn }

// AlphabetSize 返回构造时的字母表大小。
func (d *DoubleArray) AlphabetSize() int { return d.alphabetSize }

func (d *DoubleArray) Root() int32 { return RootState }

// Len 返回单元总数（含空闲单元与保留单元）。
func (d *DoubleArray) Len() int { return len(d.cells) }

// FreeCells 返回空闲链表中的单元数。
func (d *DoubleArray) FreeCells() int { return d.nfree }

func (d *DoubleArray) Base(s int32) int32 {
	if s < 0 || int(s) >= len(d.cells) {
		return 0
	}
	return d.cells[s].base
}

func (d *DoubleArray) Check(s int32) int32 {
	if s < 0 || int(s) >= len(d.cells) {
		return 0
	}
	return d.cells[s].check
}

// SetBase 直接设置 base，用于标记独立节点（负值）或清除（0）。
func (d *DoubleArray) SetBase(s int32, v int32) {
	if s > 0 && int(s) < len(d.cells) {
		d.cells[s].base = v
	}
}

// Walk 沿符号 c 从状态 s 转移。
func (d *DoubleArray) Walk(s int32, c Symbol) (int32, bool) {
	base := d.Base(s)
	if base <= 0 {
		return 0, false
	}
	next := base + int32(c)
	if int(next) >= len(d.cells) || d.cells[next].check != s {
		return 0, false
	}
	return next, true
}

// IsWalkable 判断是否存在 s 经 c 的转移。
func (d *DoubleArray) IsWalkable(s int32, c Symbol) bool {
	_, ok := d.Walk(s, c)
	return ok
}

// Children 按符号升序返回 s 的全部转移符号。
func (d *DoubleArray) Children(s int32) []Symbol {
	base := d.Base(s)
	if base <= 0 {
		return nil
	}
	var out []Symbol
	end := min(int(base)+d.alphabetSize, len(d.cells)-1)
	for i := int(base); i <= end; i++ {
		if d.cells[i].check == s {
			out = append(out, Symbol(i-int(base)))
		}
	}
	return out
}

// HasChildren 判断 s 是否至少有一个转移。
func (d *DoubleArray) HasChildren(s int32) bool {
	base := d.Base(s)
	if base <= 0 {
		return false
	}
	end := min(int(base)+d.alphabetSize, len(d.cells)-1)
	for i := int(base); i <= end; i++ {
		if d.cells[i].check == s {
			return true
		}
	}
	return false
}

// InsertBranch 建立 s 经 c 的转移并返回目标状态；转移已存在时直接返回。
//
// 目标单元被其他状态占用时，搬迁两组兄弟转移中较小的一组。
// 若被搬迁的是占用者且 s 恰为其子状态，s 的编号会改变，调用方应通过 Check(child) 取得新的父编号。
func (d *DoubleArray) InsertBranch(s int32, c Symbol) (int32, error) {
	if s <= 0 || int(s) >= len(d.cells) || d.cells[s].check <= 0 {
		return 0, xerrors.Internal(fmt.Sprintf("insert branch from unallocated state %d", s), nil)
	}

	var next int32
	base := d.cells[s].base
	if base > 0 {
		next = base + int32(c)
		if int(next) < len(d.cells) && d.cells[next].check == s {
			return next, nil
		}
		if int(next) < len(d.cells) && !d.isFree(next) {
			var err error
			if s, next, err = d.resolveConflict(s, c, next); err != nil {
				return 0, err
			}
		}
	} else {
		newBase, err := d.findFreeBase([]Symbol{c})
		if err != nil {
			return 0, err
		}
		d.cells[s].base = newBase
		next = newBase + int32(c)
	}

	if err := d.extend(next); err != nil {
		return 0, err
	}
	d.alloc(next)
	d.cells[next] = cell{base: 0, check: s}
	return next, nil
}

// resolveConflict 腾出 s 经 c 的目标单元，返回 s 的当前编号与空出的目标单元。
// 占用者的兄弟组被搬走且 s 是其中之一时，s 随之改号。
func (d *DoubleArray) resolveConflict(s int32, c Symbol, next int32) (parent, target int32, err error) {
	owner := d.cells[next].check
	mine := insertSorted(d.Children(s), c)
	theirs := d.Children(owner)

	if len(mine) <= len(theirs) {
		newBase, err := d.findFreeBase(mine)
		if err != nil {
			return 0, 0, err
		}
		if err := d.relocate(s, newBase); err != nil {
			return 0, 0, err
		}
		return s, newBase + int32(c), nil
	}

	ownerBase := d.cells[owner].base
	movesSelf := d.cells[s].check == owner
	newBase, err := d.findFreeBase(theirs)
	if err != nil {
		return 0, 0, err
	}
	if err := d.relocate(owner, newBase); err != nil {
		return 0, 0, err
	}
	if movesSelf {
		s = newBase + (s - ownerBase)
	}
	// s 的 base 不变，next 已随占用者搬走而空出。
	return s, d.cells[s].base + int32(c), nil
}

// Relocate 为 s 的现有子转移加上 extra 寻找新的空闲区并整体搬迁，返回新 base。
func (d *DoubleArray) Relocate(s int32, extra ...Symbol) (int32, error) {
	syms := d.Children(s)
	for _, c := range extra {
		syms = insertSorted(syms, c)
	}
	if len(syms) == 0 {
		return d.Base(s), nil
	}
	newBase, err := d.findFreeBase(syms)
	if err != nil {
		return 0, err
	}
	if err := d.relocate(s, newBase); err != nil {
		return 0, err
	}
	return newBase, nil
}

// relocate 将 s 的子状态搬到 newBase 起的区域，并改写孙状态的 check。
func (d *DoubleArray) relocate(s, newBase int32) error {
	oldBase := d.cells[s].base
	if oldBase > 0 {
		for _, c := range d.Children(s) {
			oldNext := oldBase + int32(c)
			newNext := newBase + int32(c)
			moved := d.cells[oldNext]

			if err := d.extend(newNext); err != nil {
				return err
			}
			d.alloc(newNext)
			d.cells[newNext] = cell{base: moved.base, check: s}

			if moved.base > 0 {
				end := min(int(moved.base)+d.alphabetSize, len(d.cells)-1)
				for i := int(moved.base); i <= end; i++ {
					if d.cells[i].check == oldNext {
						d.cells[i].check = newNext
					}
				}
			}
			d.free(oldNext)
		}
	}
	d.cells[s].base = newBase
	if d.onRelocate != nil {
		d.onRelocate(s, oldBase, newBase)
	}
	return nil
}

// findFreeBase 在空闲链表中首次适配一个 base，使 syms（升序、非空）的所有目标单元均空闲。
func (d *DoubleArray) findFreeBase(syms []Symbol) (int32, error) {
	first := int32(syms[0])

	s := d.nextFree(freeHead)
	for s != freeHead && s < first+poolBegin {
		s = d.nextFree(s)
	}
	if s == freeHead {
		for s = first + poolBegin; ; s++ {
			if err := d.extend(s); err != nil {
				return 0, err
			}
			if d.isFree(s) {
				break
			}
		}
	}

	for !d.fits(s-first, syms) {
		next := d.nextFree(s)
		if next == freeHead {
			n := int32(len(d.cells))
			if err := d.extend(n); err != nil {
				return 0, err
			}
			next = n
		}
		s = next
	}

	last := int64(s-first) + int64(syms[len(syms)-1])
	if last >= d.limit {
		return 0, d.exhausted(last)
	}
	return s - first, nil
}

func (d *DoubleArray) fits(base int32, syms []Symbol) bool {
	for _, c := range syms {
		t := base + int32(c)
		if int(t) < len(d.cells) && !d.isFree(t) {
			return false
		}
	}
	return true
}

func (d *DoubleArray) isFree(i int32) bool {
	return i >= poolBegin && int(i) < len(d.cells) && d.cells[i].check <= 0
}

func (d *DoubleArray) nextFree(i int32) int32 { return -d.cells[i].check }
func (d *DoubleArray) prevFree(i int32) int32 { return -d.cells[i].base }

// extend 将单元池扩展到至少包含编号 to，新单元追加到空闲链表尾部。
func (d *DoubleArray) extend(to int32) error {
	if int(to) < len(d.cells) {
		return nil
	}
	if to < 0 || int64(to) >= d.limit {
		return d.exhausted(int64(to))
	}

	begin := int32(len(d.cells))
	tail := d.prevFree(freeHead)
	d.cells = slices.Grow(d.cells, int(to-begin)+1)
	for i := begin; i <= to; i++ {
		d.cells = append(d.cells, cell{base: -(i - 1), check: -(i + 1)})
	}
	d.cells[begin].base = -tail
	d.cells[tail].check = -begin
	d.cells[to].check = -freeHead
	d.cells[freeHead].base = -to
	d.nfree += int(to-begin) + 1
	return nil
}

// alloc 将空闲单元 i 从链表中摘除。
func (d *DoubleArray) alloc(i int32) {
	prev, next := d.prevFree(i), d.nextFree(i)
	d.cells[prev].check = -next
	d.cells[next].base = -prev
	d.nfree--
}

// free 将单元 i 按编号顺序插回空闲链表。
func (d *DoubleArray) free(i int32) {
	j := d.nextFree(freeHead)
	for j != freeHead && j < i {
		j = d.nextFree(j)
	}
	prev := d.prevFree(j)
	d.cells[i] = cell{base: -prev, check: -j}
	d.cells[prev].check = -i
	d.cells[j].base = -i
	d.nfree++
}

// Prune 从 s 向上释放无子转移的状态，直到根。
func (d *DoubleArray) Prune(s int32) {
	d.PruneUpTo(RootState, s)
}

// PruneUpTo 从 s 向上释放无子转移的状态，直到（不含）p。
func (d *DoubleArray) PruneUpTo(p, s int32) {
	for s != p && s != RootState && s > 0 && !d.HasChildren(s) {
		parent := d.cells[s].check
		if parent <= 0 {
			return
		}
		d.free(s)
		s = parent
	}
}

// Clone 返回深拷贝，回调不随之复制。
func (d *DoubleArray) Clone() *DoubleArray {
	return &DoubleArray{
		cells:        slices.Clone(d.cells),
		alphabetSize: d.alphabetSize,
		nfree:        d.nfree,
		limit:        d.limit,
	}
}

func (d *DoubleArray) exhausted(at int64) error {
	return xerrors.Wrapf(nil, xerrors.ErrCapacityExhausted, "cell %d beyond pool limit %d", at, d.limit)
}

func insertSorted(syms []Symbol, c Symbol) []Symbol {
	i, found := slices.BinarySearch(syms, c)
	if found {
		return syms
	}
	return slices.Insert(syms, i, c)
}
