// Package config 提供了统一的配置加载与管理能力.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/wyfcoding/datrie/alphamap"
	"github.com/wyfcoding/datrie/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量覆盖前缀，例如 DATRIE_TRIE_DIR 覆盖 trie.dir.
const EnvPrefix = "DATRIE"

// Config 全局顶级配置结构.
type Config struct {
	Version string         `mapstructure:"version" toml:"version"`
	Trie    TrieConfig     `mapstructure:"trie"    toml:"trie"`
	Log     LogConfig      `mapstructure:"log"     toml:"log"`
	Metrics MetricsConfig  `mapstructure:"metrics" toml:"metrics"`
	Cache   BigCacheConfig `mapstructure:"cache"   toml:"cache"`
	Minio   MinioConfig    `mapstructure:"minio"   toml:"minio"`
}

// TrieConfig 定义字典树文件位置、字母表与容量上限.
type TrieConfig struct {
	Dir      string   `mapstructure:"dir"       toml:"dir"       validate:"required"`
	Name     string   `mapstructure:"name"      toml:"name"      validate:"required,excludesall=/"`
	Alphabet []string `mapstructure:"alphabet"  toml:"alphabet"` // 形如 "[0x61,0x7a]"，为空时使用 Latin-1。
	MaxCells int      `mapstructure:"max_cells" toml:"max_cells" validate:"min=0"`
}

// Base 返回持久化文件的公共路径前缀（不含扩展名）.
func (c TrieConfig) Base() string {
	return filepath.Join(c.Dir, c.Name)
}

// AlphaMap 按配置构造字母表.
func (c TrieConfig) AlphaMap() (*alphamap.AlphaMap, error) {
	if len(c.Alphabet) == 0 {
		return alphamap.Latin1(), nil
	}
	return alphamap.ParseStrings(c.Alphabet)
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"omitempty,oneof=debug info warn warning error"` // 日志级别。
	File       string `mapstructure:"file"        toml:"file"`                                                                  // 日志文件路径。
	Console    bool   `mapstructure:"console"     toml:"console"`                                                               // 写文件时是否同时输出到控制台。
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"    validate:"min=0"`                                         // 单个文件最大大小 (MB)。
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups" validate:"min=0"`                                         // 最大备份数。
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"     validate:"min=0"`                                         // 最大保留天数。
	Compress   bool   `mapstructure:"compress"    toml:"compress"`                                                              // 是否启用压缩。
}

// Logging 转换为 logging 包的配置.
func (c LogConfig) Logging(service, module string) logging.Config {
	return logging.Config{
		Service:    service,
		Module:     module,
		Level:      c.Level,
		File:       c.File,
		Console:    c.Console,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
}

// MetricsConfig 普罗米修斯监控指标暴露配置.
type MetricsConfig struct {
	Addr    string `mapstructure:"addr"    toml:"addr"    validate:"required_if=Enabled true"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
}

// BigCacheConfig 高性能本地内存缓存参数.
type BigCacheConfig struct {
	LifeWindow       time.Duration `mapstructure:"life_window"         toml:"life_window"`
	CleanWindow      time.Duration `mapstructure:"clean_window"        toml:"clean_window"`
	Shards           int           `mapstructure:"shards"              toml:"shards"              validate:"omitempty,min=1"`
	MaxEntrySize     int           `mapstructure:"max_entry_size"      toml:"max_entry_size"      validate:"min=0"`
	HardMaxCacheSize int           `mapstructure:"hard_max_cache_size" toml:"hard_max_cache_size" validate:"min=0"`
	Enabled          bool          `mapstructure:"enabled"             toml:"enabled"`
}

// MinioConfig 定义 S3 兼容对象存储 MinIO 的连接参数.
type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"          toml:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"     toml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" toml:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"       toml:"bucket_name"       validate:"required_with=Endpoint"`
	UseSSL          bool   `mapstructure:"use_ssl"           toml:"use_ssl"`
	Retries         int    `mapstructure:"retries"           toml:"retries"           validate:"min=0"` // 瞬时失败的重试次数。
}

// Default 返回未提供配置文件时使用的默认配置.
func Default() *Config {
	return &Config{
		Trie: TrieConfig{Dir: ".", Name: "trie"},
		Log:  LogConfig{Level: "info", MaxSize: 100, MaxBackups: 3, MaxAge: 7},
		Cache: BigCacheConfig{
			LifeWindow:       10 * time.Minute,
			CleanWindow:      5 * time.Minute,
			Shards:           64,
			MaxEntrySize:     64,
			HardMaxCacheSize: 32,
		},
		Minio: MinioConfig{Retries: 3},
	}
}

var (
	vInstance = viper.New()
	hookMu    sync.Mutex
	onReload  []func(*Config)
)

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	hookMu.Lock()
	defer hookMu.Unlock()
	onReload = append(onReload, hook)
}

func reloadHooks() []func(*Config) {
	hookMu.Lock()
	defer hookMu.Unlock()
	return append([]func(*Config){}, onReload...)
}

// Load 读取 TOML 配置文件并叠加 DATRIE_ 前缀的环境变量，随后进行结构校验.
// path 为空时仅使用默认值与环境变量.
func Load(path string) (*Config, error) {
	v := viper.New()
	conf, err := load(v, path)
	if err != nil {
		return nil, err
	}
	vInstance = v
	return conf, nil
}

func load(v *viper.Viper, path string) (*Config, error) {
	conf := Default()
	setDefaults(v, conf)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config error: %w", err)
		}
	}

	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("unmarshal config error: %w", err)
	}
	if err := Validate(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// setDefaults 将默认值登记到 viper，使环境变量能覆盖配置文件中未出现的键.
func setDefaults(v *viper.Viper, conf *Config) {
	v.SetDefault("trie.dir", conf.Trie.Dir)
	v.SetDefault("trie.name", conf.Trie.Name)
	v.SetDefault("trie.max_cells", conf.Trie.MaxCells)
	v.SetDefault("log.level", conf.Log.Level)
	v.SetDefault("log.max_size", conf.Log.MaxSize)
	v.SetDefault("log.max_backups", conf.Log.MaxBackups)
	v.SetDefault("log.max_age", conf.Log.MaxAge)
	v.SetDefault("metrics.enabled", conf.Metrics.Enabled)
	v.SetDefault("metrics.addr", conf.Metrics.Addr)
	v.SetDefault("cache.enabled", conf.Cache.Enabled)
	v.SetDefault("cache.life_window", conf.Cache.LifeWindow)
	v.SetDefault("cache.clean_window", conf.Cache.CleanWindow)
	v.SetDefault("cache.shards", conf.Cache.Shards)
	v.SetDefault("cache.max_entry_size", conf.Cache.MaxEntrySize)
	v.SetDefault("cache.hard_max_cache_size", conf.Cache.HardMaxCacheSize)
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.bucket_name", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.retries", conf.Minio.Retries)
}

// Validate 校验配置结构，并确认字母表定义可以解析.
func Validate(conf *Config) error {
	if err := validator.New().Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := conf.Trie.AlphaMap(); err != nil {
		return fmt.Errorf("config validation failed: trie.alphabet: %w", err)
	}
	return nil
}

// Watch 监听 Load 所读取的配置文件，变更且校验通过后替换 conf 并依次调用热更新回调.
// 校验失败的变更被丢弃，conf 保持原值.
func Watch(conf *Config) {
	v := vInstance
	v.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		next := Default()
		if err := v.Unmarshal(next); err != nil {
			slog.Error("reload config unmarshal failed", "error", err)
			return
		}
		if err := Validate(next); err != nil {
			slog.Error("reload config validation failed", "error", err)
			return
		}

		*conf = *next

		logging.SetLevel(next.Log.Level)
		slog.Info("config hot-reloaded and validated successfully")

		for _, hook := range reloadHooks() {
			hook(next)
		}
	})
	v.WatchConfig()
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf any) {
	masked, err := Masked(conf)
	if err != nil {
		slog.Error("failed to mask config for printing", "error", err)
		return
	}
	slog.Info("Current effective configuration", "config", masked)
}

// Masked 返回敏感字段被替换为 ****** 的 JSON 文本.
func Masked(conf any) (string, error) {
	data, err := json.Marshal(conf)
	if err != nil {
		return "", err
	}

	var configMap map[string]any
	if err := json.Unmarshal(data, &configMap); err != nil {
		return "", err
	}

	mask(configMap)

	out, err := json.MarshalIndent(configMap, "  ", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "dsn", "key", "token"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)

			continue
		}

		if slice, ok := val.([]any); ok {
			for _, item := range slice {
				if itemMap, ok := item.(map[string]any); ok {
					mask(itemMap)
				}
			}

			continue
		}

		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"

				break
			}
		}
	}
}

// GetViper 返回底层的 Viper 实例.
func GetViper() *viper.Viper {
	return vInstance
}
