package cache

import (
	"encoding/binary"
	"strconv"
	"sync"

	"github.com/wyfcoding/datrie/logging"
	"github.com/wyfcoding/datrie/metrics"
	"github.com/wyfcoding/datrie/trie"
)

// LookupCache 缓存字典树的精确查询结果。
// 缓存键带有字典树的修改计数，字典树被修改后旧结果不会再被命中，并在下一次查询时整体清空。
// 与 Trie 相同，查询期间不得有并发写者。
type LookupCache struct {
	trie    *trie.Trie
	store   *BigCache
	metrics *metrics.TrieMetrics
	logger  *logging.Logger

	mu         sync.Mutex
	generation uint64
}

// NewLookupCache 在 t 之前挂接缓存 store。m 与 logger 可以为 nil。
func NewLookupCache(t *trie.Trie, store *BigCache, m *metrics.Metrics, logger *logging.Logger) *LookupCache {
	if logger == nil {
		logger = logging.Discard()
	}
	return &LookupCache{
		trie:       t,
		store:      store,
		metrics:    m.Trie(),
		logger:     logger,
		generation: t.Generation(),
	}
}

// Get 与 Trie.Get 语义相同。
func (c *LookupCache) Get(word string) (int32, bool) {
	gen := c.sync()
	key := strconv.FormatUint(gen, 36) + ":" + word

	data, hit, err := c.store.Get(key)
	if err != nil {
		c.logger.Warn("lookup cache read failed", "error", err)
	}
	if hit && len(data) == 5 {
		c.metrics.ObserveCache(true)
		return int32(binary.BigEndian.Uint32(data[1:])), data[0] == 1
	}
	c.metrics.ObserveCache(false)

	v, ok := c.trie.Get(word)
	var buf [5]byte
	if ok {
		buf[0] = 1
	}
	binary.BigEndian.PutUint32(buf[1:], uint32(v))
	if err := c.store.Set(key, buf[:]); err != nil {
		c.logger.Debug("lookup cache write skipped", "error", err)
	}
	return v, ok
}

// HasKey 与 Trie.HasKey 语义相同。
func (c *LookupCache) HasKey(word string) bool {
	_, ok := c.Get(word)
	return ok
}

// TextHasKeys 与 Trie.TextHasKeys 语义相同，逐个片段经缓存查询。
func (c *LookupCache) TextHasKeys(text string) bool {
	for _, tok := range c.trie.Tokens(text) {
		if c.HasKey(tok) {
			return true
		}
	}
	return false
}

// sync 在字典树被修改后清空缓存，返回当前修改计数。
func (c *LookupCache) sync() uint64 {
	gen := c.trie.Generation()
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		if err := c.store.Reset(); err != nil {
			c.logger.Warn("lookup cache reset failed", "error", err)
		}
		c.generation = gen
	}
	return gen
}
