// Package trie 组合字母表、双数组自动机与尾部存储，提供可持久化、支持前缀查询的字符串键容器。
//
// Trie 不是并发安全的：同一实例同一时刻只能有一个写者，没有写操作进行时可以并发读。
package trie

import (
	"fmt"

	"github.com/wyfcoding/datrie/alphamap"
	"github.com/wyfcoding/datrie/darray"
	"github.com/wyfcoding/datrie/logging"
	"github.com/wyfcoding/datrie/metrics"
	"github.com/wyfcoding/datrie/tail"
	"github.com/wyfcoding/datrie/xerrors"
)

// NoValue 键未设置权重时 Get 返回的值。
const NoValue = tail.NoValue

// Entry 是一个键及其权重。
type Entry struct {
	Key   string
	Value int32
}

// Trie 是双数组字典树。
type Trie struct {
	alpha *alphamap.AlphaMap
	da    *darray.DoubleArray
	tail  *tail.Store

	// generation 每次修改后递增，用于判定游标是否过期。
	generation uint64

	logger   *logging.Logger
	metrics  *metrics.TrieMetrics
	maxCells int
}

// New 使用默认字母表（Latin-1，U+0001..U+00FF）创建字典树。
func New(opts ...Option) *Trie {
	return NewWithAlphaMap(alphamap.Latin1(), opts...)
}

// NewWithAlphaMap 使用给定字母表创建字典树。字母表被复制，之后对 m 的修改不影响字典树。
// m 为 nil 时使用默认字母表。
func NewWithAlphaMap(m *alphamap.AlphaMap, opts ...Option) *Trie {
	if m == nil {
		m = alphamap.Latin1()
	}
	t := &Trie{alpha: m.Clone(), tail: tail.New()}
	t.da = darray.New(t.alpha.Size())
	t.apply(opts)
	return t
}

func (t *Trie) apply(opts []Option) {
	t.configure(opts)
	t.attach()
}

// configure 仅应用选项，不触及自动机。
func (t *Trie) configure(opts []Option) {
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logging.Discard()
	}
}

// attach 将配置同步到当前自动机，替换自动机后需重新调用。
func (t *Trie) attach() {
	t.da.SetLimit(t.maxCells)
	t.da.OnRelocate(func(s, oldBase, newBase int32) {
		t.metrics.ObserveRelocation()
		t.logger.Debug("transitions relocated", "state", s, "old_base", oldBase, "new_base", newBase)
	})
	t.reportSize()
}

// AlphaMap 返回字母表副本。
func (t *Trie) AlphaMap() *alphamap.AlphaMap { return t.alpha.Clone() }

// Len 返回键的数量，每个键恰好占用一个尾块。
func (t *Trie) Len() int { return t.tail.Active() }

// Generation 返回修改计数。
func (t *Trie) Generation() uint64 { return t.generation }

// Add 存储 word 并设置权重 value，已存在时覆盖原权重。
// word 为空、含字母表外字符或单元池耗尽时返回 false，且不留下任何修改。
func (t *Trie) Add(word string, value int32) bool { return t.Put(word, value) == nil }

// AddIfAbsent 仅在 word 不存在时存储，已存在时返回 false 且不修改权重。
func (t *Trie) AddIfAbsent(word string, value int32) bool { return t.PutIfAbsent(word, value) == nil }

// Put 与 Add 相同，失败时返回原因：
// xerrors.ErrAlphabetViolation、xerrors.ErrCapacityExhausted 或内部错误。
func (t *Trie) Put(word string, value int32) error {
	err := t.store(word, value, true)
	t.metrics.ObserveOp("add", err == nil)
	return err
}

// PutIfAbsent 与 AddIfAbsent 相同，键已存在时返回 xerrors.ErrAlreadyPresent。
func (t *Trie) PutIfAbsent(word string, value int32) error {
	err := t.store(word, value, false)
	t.metrics.ObserveOp("add_if_absent", err == nil)
	return err
}

// Get 返回 word 的权重。word 不是完整的键时返回 false；键未设置权重时返回 NoValue。
func (t *Trie) Get(word string) (int32, bool) {
	v, ok := t.get(word)
	t.metrics.ObserveOp("get", ok)
	return v, ok
}

// HasKey 判断 word 是否为完整的键。
func (t *Trie) HasKey(word string) bool {
	_, ok := t.get(word)
	return ok
}

// Delete 删除 word，释放其尾块与不再需要的状态链。word 不存在时返回 false。
func (t *Trie) Delete(word string) bool { return t.Remove(word) == nil }

// Remove 与 Delete 相同，word 不存在时返回 xerrors.ErrKeyNotFound。
func (t *Trie) Remove(word string) error {
	err := t.remove(word)
	t.metrics.ObserveOp("delete", err == nil)
	if err != nil {
		t.logger.Debug("delete rejected", "word", word, "error", err)
	}
	return err
}

func (t *Trie) remove(word string) error {
	key, err := t.encodeKey(word)
	if err != nil {
		return err
	}
	s, i, found := t.walkKey(key)
	if !found {
		return xerrors.Wrapf(nil, xerrors.ErrKeyNotFound, "word %q leaves the automaton at %d", word, i)
	}
	tb := -t.da.Base(s)
	if t.tail.Match(tb, key[i:]).Kind != tail.Matched {
		return xerrors.Wrapf(nil, xerrors.ErrKeyNotFound, "word %q differs from tail block %d", word, tb)
	}

	t.tail.Detach(tb)
	t.da.SetBase(s, 0)
	t.da.Prune(s)
	t.changed()
	return nil
}

func (t *Trie) get(word string) (int32, bool) {
	key, err := t.encodeKey(word)
	if err != nil {
		return NoValue, false
	}
	s, i, found := t.walkKey(key)
	if !found {
		return NoValue, false
	}
	tb := -t.da.Base(s)
	if t.tail.Match(tb, key[i:]).Kind != tail.Matched {
		return NoValue, false
	}
	return t.tail.Data(tb)
}

// encodeKey 将 word 编码为以结束符结尾的符号序列。
// 空串与含字母表外字符的 word 返回 xerrors.ErrAlphabetViolation。
func (t *Trie) encodeKey(word string) ([]alphamap.Symbol, error) {
	if word == "" {
		return nil, xerrors.Wrap(nil, xerrors.ErrAlphabetViolation, "empty word")
	}
	key, ok := t.alpha.EncodeString(word)
	if !ok {
		return nil, xerrors.Wrapf(nil, xerrors.ErrAlphabetViolation, "word %q", word)
	}
	return append(key, alphamap.Terminator), nil
}

// walkKey 沿 key 在自动机中前进直到独立节点，返回该节点与尚未消费的位置。
// 中途转移失败时 found 为 false，s 为最后到达的状态、i 为失败的位置。
func (t *Trie) walkKey(key []alphamap.Symbol) (s int32, i int, found bool) {
	s = t.da.Root()
	for !t.isSeparate(s) {
		next, ok := t.da.Walk(s, key[i])
		if !ok {
			return s, i, false
		}
		s = next
		if key[i] == alphamap.Terminator {
			break
		}
		i++
	}
	return s, i, true
}

func (t *Trie) isSeparate(s int32) bool { return t.da.Base(s) < 0 }

func (t *Trie) store(word string, value int32, overwrite bool) error {
	key, err := t.encodeKey(word)
	if err != nil {
		t.logger.Debug("store rejected", "word", word, "error", err)
		return err
	}

	var snap *snapshot
	if t.mayExhaust(len(key)) {
		snap = t.snapshot()
	}

	stored, err := t.storeKey(key, value, overwrite)
	if err != nil {
		if snap != nil {
			t.restore(snap)
		}
		t.logger.Error("store rejected", "word", word, "error", err)
		return err
	}
	if !stored {
		err = xerrors.Wrapf(nil, xerrors.ErrAlreadyPresent, "word %q", word)
		t.logger.Debug("store rejected", "word", word, "error", err)
		return err
	}
	t.changed()
	return nil
}

// storeKey 插入 key；键已存在且不允许覆盖时返回 false。
func (t *Trie) storeKey(key []alphamap.Symbol, value int32, overwrite bool) (bool, error) {
	s, i, found := t.walkKey(key)
	if !found {
		return true, t.branchInBranch(s, key[i:], value)
	}

	tb := -t.da.Base(s)
	res := t.tail.Match(tb, key[i:])
	if res.Kind != tail.Matched {
		return true, t.branchInTail(s, key[i:], res.Offset, value)
	}
	if !overwrite {
		return false, nil
	}
	t.tail.SetData(tb, value)
	return true, nil
}

// branchInBranch 从状态 s 新建一条以 suffix 开头的转移，剩余部分存入新尾块。
func (t *Trie) branchInBranch(s int32, suffix []alphamap.Symbol, value int32) error {
	c := suffix[0]
	next, err := t.da.InsertBranch(s, c)
	if err != nil {
		return err
	}
	var rest []alphamap.Symbol
	if c != alphamap.Terminator {
		rest = suffix[1 : len(suffix)-1]
	}
	tb := t.tail.Attach(rest, value)
	t.da.SetBase(next, -tb)
	return nil
}

// branchInTail 在独立节点 sep 的尾块 offset 处与新后缀分歧：
// 公共前缀展开为自动机状态，原尾块挂到分歧符号下，新后缀另起分支。
func (t *Trie) branchInTail(sep int32, suffix []alphamap.Symbol, offset int, value int32) error {
	if offset >= len(suffix) {
		return xerrors.Internal(fmt.Sprintf("tail divergence at %d beyond key of %d symbols", offset, len(suffix)), nil)
	}
	tb := -t.da.Base(sep)
	prefix, diverge := t.tail.Split(tb, offset)

	s := sep
	t.da.SetBase(s, 0)
	for _, c := range prefix {
		next, err := t.da.InsertBranch(s, c)
		if err != nil {
			return err
		}
		s = next
	}

	old, err := t.da.InsertBranch(s, diverge)
	if err != nil {
		return err
	}
	// 插入可能搬迁了 s 本身。
	s = t.da.Check(old)
	t.da.SetBase(old, -tb)
	return t.branchInBranch(s, suffix[offset:], value)
}

// changed 在修改完成后推进版本并刷新规模指标。
func (t *Trie) changed() {
	t.generation++
	t.reportSize()
}

func (t *Trie) reportSize() {
	t.metrics.SetSize(t.da.Len(), t.da.FreeCells(), t.tail.Len(), t.tail.Active())
}

type snapshot struct {
	da   *darray.DoubleArray
	tail *tail.Store
}

// mayExhaust 粗略估计插入 n 个符号的键是否可能触及单元池上限。
// 每次 InsertBranch 至多使池增长一个字母表跨度，一次插入至多调用 n+1 次。
func (t *Trie) mayExhaust(n int) bool {
	growth := int64(n+1) * int64(t.alpha.Size()+4)
	return int64(t.da.Len())+growth >= int64(t.da.Limit())
}

func (t *Trie) snapshot() *snapshot {
	return &snapshot{da: t.da.Clone(), tail: t.tail.Clone()}
}

func (t *Trie) restore(s *snapshot) {
	t.da = s.da
	t.tail = s.tail
	t.attach()
}
