package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler 把 trietool 的日志同时写入滚动文件与控制台。
// 每个目标按自己的 Enabled 过滤；一个目标写失败时其余目标照常写入，错误合并返回。
type teeHandler []slog.Handler

func tee(targets ...slog.Handler) slog.Handler {
	if len(targets) == 1 {
		return targets[0]
	}
	return teeHandler(targets)
}

func (h teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, target := range h {
		if target.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, target := range h {
		if !target.Enabled(ctx, r.Level) {
			continue
		}
		errs = append(errs, target.Handle(ctx, r.Clone()))
	}
	return errors.Join(errs...)
}

func (h teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.each(func(target slog.Handler) slog.Handler { return target.WithAttrs(attrs) })
}

func (h teeHandler) WithGroup(name string) slog.Handler {
	return h.each(func(target slog.Handler) slog.Handler { return target.WithGroup(name) })
}

func (h teeHandler) each(fn func(slog.Handler) slog.Handler) teeHandler {
	next := make(teeHandler, len(h))
	for i, target := range h {
		next[i] = fn(target)
	}
	return next
}
