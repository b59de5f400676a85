package trie

import (
	"github.com/wyfcoding/datrie/logging"
	"github.com/wyfcoding/datrie/metrics"
)

// Option 定义字典树的可选配置。
type Option func(*Trie)

// WithLogger 设置日志记录器，未设置时日志被丢弃。
func WithLogger(logger *logging.Logger) Option {
	return func(t *Trie) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMetrics 设置指标采集器。
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Trie) {
		t.metrics = m.Trie()
	}
}

// WithMaxCells 限制双数组单元池的大小，超出后插入失败且不留下部分修改。
func WithMaxCells(n int) Option {
	return func(t *Trie) {
		t.maxCells = n
	}
}
