package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TrieMetrics 是字典树引擎与查询缓存使用的指标集合。
type TrieMetrics struct {
	Ops          *prometheus.CounterVec   // 维度: op, result
	Size         *prometheus.GaugeVec     // 维度: kind (cells, free_cells, tail_blocks, keys)
	Relocations  prometheus.Counter       // 子转移区搬迁次数
	Persist      *prometheus.HistogramVec // 维度: op (save, read, push, pull)
	CacheLookups *prometheus.CounterVec   // 维度: result (hit, miss)
}

// Trie 返回字典树指标，首次调用时创建并注册。多个引擎实例共享同一组指标。
func (m *Metrics) Trie() *TrieMetrics {
	if m == nil {
		return nil
	}
	m.trieOnce.Do(func() {
		relocations := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datrie_relocations_total",
			Help: "Number of double-array transition block relocations",
		})
		m.registry.MustRegister(relocations)

		m.trie = &TrieMetrics{
			Ops: m.NewCounterVec(prometheus.CounterOpts{
				Name: "datrie_operations_total",
				Help: "Trie operations by kind and result",
			}, []string{"op", "result"}),
			Size: m.NewGaugeVec(prometheus.GaugeOpts{
				Name: "datrie_size",
				Help: "Current trie storage size by kind",
			}, []string{"kind"}),
			Relocations: relocations,
			Persist: m.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "datrie_persist_duration_seconds",
				Help:    "Latency of trie persistence operations",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			}, []string{"op"}),
			CacheLookups: m.NewCounterVec(prometheus.CounterOpts{
				Name: "datrie_cache_lookups_total",
				Help: "Lookup cache results",
			}, []string{"result"}),
		}
	})
	return m.trie
}

// ObserveOp 记录一次操作结果。以下方法在 t 为 nil 时均不做任何事。
func (t *TrieMetrics) ObserveOp(op string, ok bool) {
	if t == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "rejected"
	}
	t.Ops.WithLabelValues(op, result).Inc()
}

// SetSize 更新存储规模指标。
func (t *TrieMetrics) SetSize(cells, freeCells, tailBlocks, keys int) {
	if t == nil {
		return
	}
	t.Size.WithLabelValues("cells").Set(float64(cells))
	t.Size.WithLabelValues("free_cells").Set(float64(freeCells))
	t.Size.WithLabelValues("tail_blocks").Set(float64(tailBlocks))
	t.Size.WithLabelValues("keys").Set(float64(keys))
}

func (t *TrieMetrics) ObserveRelocation() {
	if t != nil {
		t.Relocations.Inc()
	}
}

func (t *TrieMetrics) ObservePersist(op string, d time.Duration) {
	if t != nil {
		t.Persist.WithLabelValues(op).Observe(d.Seconds())
	}
}

func (t *TrieMetrics) ObserveCache(hit bool) {
	if t == nil {
		return
	}
	if hit {
		t.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		t.CacheLookups.WithLabelValues("miss").Inc()
	}
}
