// Package logging 提供了统一的结构化日志（slog）封装，支持 OpenTelemetry 追踪上下文注入、
// 文件切割与运行时调整日志级别。
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// defaultLogger 是全局默认的 Logger 实例。
	defaultLogger *Logger
	once          sync.Once
)

// Config 定义日志配置
type Config struct {
	Service    string
	Module     string
	Level      string
	File       string    // 日志文件路径，为空则只输出到 Output
	Console    bool      // 配置了 File 时是否仍同时输出到 Output
	Output     io.Writer // 控制台输出目标，默认 os.Stderr
	MaxSize    int       // 每个日志文件最大尺寸 (MB)
	MaxBackups int       // 保留旧日志文件的最大个数
	MaxAge     int       // 保留旧日志文件的最大天数
	Compress   bool      // 是否压缩旧日志
}

// Logger 封装原生的 `*slog.Logger`，并携带服务名、模块名与可动态调整的日志级别。
type Logger struct {
	*slog.Logger
	Service string
	Module  string
	level   *slog.LevelVar
}

// TraceHandler 是一个 `slog.Handler` 装饰器，从 `context.Context` 中提取 `trace_id` 和 `span_id` 注入日志记录。
type TraceHandler struct {
	slog.Handler
}

// Handle 在处理日志记录之前尝试从上下文获取 SpanContext，有效时追加 trace_id 与 span_id。
func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}

// ParseLevel 将配置中的级别字符串转换为 slog.Level，未知值按 info 处理。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewFromConfig 创建一个新的 Logger 实例。
func NewFromConfig(cfg Config) *Logger {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(cfg.Level))

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
			}
			return a
		},
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var handler slog.Handler
	if cfg.File != "" {
		// 配置了文件路径时使用 lumberjack 进行日志切割
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		handler = slog.NewJSONHandler(fileWriter, opts)
		if cfg.Console {
			handler = tee(handler, slog.NewJSONHandler(out, opts))
		}
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(&TraceHandler{Handler: handler}).With(
		slog.String("service", cfg.Service),
		slog.String("module", cfg.Module),
	)

	return &Logger{
		Logger:  logger,
		Service: cfg.Service,
		Module:  cfg.Module,
		level:   level,
	}
}

// NewLogger 使用简单参数创建 logger。
func NewLogger(service, module string, level ...string) *Logger {
	lvl := "info"
	if len(level) > 0 {
		lvl = level[0]
	}
	return NewFromConfig(Config{
		Service: service,
		Module:  module,
		Level:   lvl,
	})
}

// Discard 返回丢弃全部输出的 logger，用于未注入日志的组件。
func Discard() *Logger {
	return NewFromConfig(Config{Service: "datrie", Module: "discard", Level: "error", Output: io.Discard})
}

// SetLevel 在运行时调整日志级别，配置热更新时调用。
func (l *Logger) SetLevel(level string) {
	if l == nil || l.level == nil {
		return
	}
	l.level.Set(ParseLevel(level))
}

// Level 返回当前日志级别。
func (l *Logger) Level() slog.Level {
	if l == nil || l.level == nil {
		return slog.LevelInfo
	}
	return l.level.Level()
}

// With 返回附加了属性的子 logger，级别与父 logger 联动。
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), Service: l.Service, Module: l.Module, level: l.level}
}

// InitLogger 初始化全局默认日志记录器。
func InitLogger(service, module string, level ...string) {
	once.Do(func() {
		defaultLogger = NewLogger(service, module, level...)
		slog.SetDefault(defaultLogger.Logger)
	})
}

// SetDefault 将 l 设为全局默认日志记录器，此后 InitLogger 不再生效。
func SetDefault(l *Logger) {
	if l == nil {
		return
	}
	once.Do(func() {})
	defaultLogger = l
	slog.SetDefault(l.Logger)
}

// SetLevel 调整全局默认日志记录器的级别。
func SetLevel(level string) {
	Default().SetLevel(level)
}

// Default 返回默认日志记录器实例
func Default() *Logger {
	if defaultLogger == nil {
		InitLogger("datrie", "default", "info")
	}
	return defaultLogger
}

// LogDuration 记录操作耗时，返回的函数应在操作结束时调用。
func (l *Logger) LogDuration(ctx context.Context, operation string, args ...any) func() {
	start := time.Now()
	return func() {
		logArgs := append(args, "duration", time.Since(start))
		l.InfoContext(ctx, fmt.Sprintf("%s finished", operation), logArgs...)
	}
}
