// Package retry 提供带指数退避与抖动的重试执行器，用于对象存储等可能出现瞬时故障的调用.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Func 定义了可被重试执行的函数原型，attempt 从 0 开始计数.
type Func func(attempt int) error

// Config 封装了重试策略的控制参数.
type Config struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Jitter         float64
	MaxRetries     int
}

// DefaultConfig 返回一个通用的默认重试配置.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
	}
}

type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent 标记 err 不可重试，Do 将立即返回原始错误.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err}
}

// Do 执行 fn，失败时按 cfg 退避后重试，直到成功、错误被标记为 Permanent、次数耗尽或 ctx 结束.
// onRetry 在每次等待前调用，可为 nil.
func Do(ctx context.Context, cfg Config, fn Func, onRetry func(attempt int, err error, wait time.Duration)) error {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		var p permanent
		if errors.As(lastErr, &p) {
			return p.err
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		if attempt == cfg.MaxRetries {
			break
		}

		if onRetry != nil {
			onRetry(attempt, lastErr, backoff)
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}

		next := float64(backoff) * cfg.Multiplier
		if cfg.Jitter > 0 {
			next += (rand.Float64()*2 - 1) * cfg.Jitter * next
		}
		backoff = min(time.Duration(next), cfg.MaxBackoff)
	}

	if cfg.MaxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}
