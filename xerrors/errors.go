// Package xerrors 提供了带类型、错误码与调用栈的统一错误模型。
package xerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType 错误的大类
type ErrorType uint

const (
	ErrUnknown ErrorType = iota
	ErrInternal
	ErrInvalidArg
	ErrNotFound
	ErrAlreadyExists
	ErrDataLoss
	ErrUnavailable
	ErrLimitExceeded
)

// Error 增强型错误结构
type Error struct {
	Type    ErrorType      `json:"type"`
	Code    int            `json:"code"`    // 业务自定义错误码
	Message string         `json:"message"` // 对外展示的友好消息
	Detail  string         `json:"detail"`  // 对内调试的详细信息
	Cause   error          `json:"-"`       // 原始错误
	Stack   []string       `json:"stack"`   // 堆栈追踪
	Context map[string]any `json:"context"` // 上下文数据 (路径、状态号等)
}

// Error 实现 error 接口
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %d: %s", e.Type.String(), e.Code, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap 实现 Go 1.13 解包接口
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按错误类型与错误码匹配，使包装后的错误仍可被 errors.Is 识别为原始哨兵错误。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

func (t ErrorType) String() string {
	names := [...]string{
		"Unknown", "Internal", "InvalidArg", "NotFound", "AlreadyExists",
		"DataLoss", "Unavailable", "LimitExceeded",
	}
	if int(t) >= len(names) {
		return "Unknown"
	}
	return names[t]
}

// --- 核心构造函数 ---

// New 创建新错误并自动捕获堆栈
func New(errType ErrorType, code int, message string, detail string, cause error) *Error {
	e := &Error{
		Type:    errType,
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
		Context: make(map[string]any),
	}
	e.captureStack()
	return e
}

// captureStack 捕获当前调用栈 (深度限制 10 层)
func (e *Error) captureStack() {
	const depth = 10
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // 跳过 captureStack, New 和上层构造函数
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		e.Stack = append(e.Stack, fmt.Sprintf("%s:%d (%s)", frame.File, frame.Line, frame.Function))
		if !more || len(e.Stack) >= depth {
			break
		}
	}
}

// --- 链式 API ---

// WithContext 附加一条上下文数据。
func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

// WithDetail 设置内部调试信息。
func (e *Error) WithDetail(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// --- 快捷构造工具 ---

func Internal(msg string, cause error) *Error {
	return New(ErrInternal, 500, msg, "", cause)
}

func InvalidArg(msg string) *Error {
	return New(ErrInvalidArg, 400, msg, "", nil)
}

// Wrap 以哨兵错误 kind 的类型与错误码包装 cause，并捕获新的堆栈。
// 哨兵本身不会被修改。
func Wrap(cause error, kind *Error, detail string) *Error {
	if kind == nil {
		return nil
	}
	return New(kind.Type, kind.Code, kind.Message, detail, cause)
}

// Wrapf 与 Wrap 相同，detail 支持格式化。
func Wrapf(cause error, kind *Error, format string, args ...any) *Error {
	return Wrap(cause, kind, fmt.Sprintf(format, args...))
}

// FromError 沿错误链查找第一个 *Error。
func FromError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
