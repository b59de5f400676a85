// Package cache 提供基于 allegro/bigcache 的本地缓存，以及面向字典树查询的结果缓存。
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3" // 导入高性能本地缓存库

	"github.com/wyfcoding/datrie/config"
)

// BigCache 是对 `allegro/bigcache` 的薄封装，键为字符串、值为原始字节。
// BigCache 对所有项统一设置过期时间（LifeWindow），不支持按键过期。
type BigCache struct {
	cache *bigcache.BigCache // 底层的BigCache实例
}

// NewBigCache 按配置创建 BigCache，零值字段使用 bigcache 的默认值。
// Shards 必须为 2 的幂。
func NewBigCache(cfg config.BigCacheConfig) (*BigCache, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = 10 * time.Minute
	}
	bc := bigcache.DefaultConfig(life)
	bc.HardMaxCacheSize = cfg.HardMaxCacheSize // 硬性最大缓存大小（MB），0 表示不限
	bc.Verbose = false
	if cfg.CleanWindow > 0 {
		bc.CleanWindow = cfg.CleanWindow
	}
	if cfg.Shards > 0 {
		bc.Shards = cfg.Shards
	}
	if cfg.MaxEntrySize > 0 {
		bc.MaxEntrySize = cfg.MaxEntrySize
	}

	cache, err := bigcache.New(context.Background(), bc)
	if err != nil {
		return nil, fmt.Errorf("初始化 bigcache 失败: %w", err)
	}

	return &BigCache{cache: cache}, nil
}

// Get 获取键对应的字节，未命中时 ok 为 false。
func (c *BigCache) Get(key string) (data []byte, ok bool, err error) {
	data, err = c.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set 写入键值对，data 被复制。
func (c *BigCache) Set(key string, data []byte) error {
	return c.cache.Set(key, data)
}

// Delete 删除一个或多个键，键不存在时不返回错误。
func (c *BigCache) Delete(keys ...string) error {
	for _, key := range keys {
		if err := c.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
			return err
		}
	}
	return nil
}

// Reset 清空全部缓存项。
func (c *BigCache) Reset() error {
	return c.cache.Reset()
}

// Len 返回缓存项数量。
func (c *BigCache) Len() int {
	return c.cache.Len()
}

// Close 关闭BigCache实例，释放其占用的资源。
func (c *BigCache) Close() error {
	return c.cache.Close()
}
