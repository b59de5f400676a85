package storage

import (
	"context"
	"io"
	"time"

	"github.com/wyfcoding/datrie/logging"
	"github.com/wyfcoding/datrie/retry"
	"github.com/wyfcoding/datrie/xerrors"
)

// Retrying 为 Storage 的调用加上退避重试。对象不存在与参数错误不重试。
type Retrying struct {
	Storage
	cfg    retry.Config
	logger *logging.Logger
}

// WithRetry 包装 s。logger 为 nil 时不记录重试。
func WithRetry(s Storage, cfg retry.Config, logger *logging.Logger) *Retrying {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Retrying{Storage: s, cfg: cfg, logger: logger}
}

func transient(err error) bool {
	e, ok := xerrors.FromError(err)
	if !ok {
		return true
	}
	return e.Type != xerrors.ErrNotFound && e.Type != xerrors.ErrInvalidArg
}

func (r *Retrying) do(ctx context.Context, op, objectName string, fn func() error) error {
	return retry.Do(ctx, r.cfg, func(int) error {
		err := fn()
		if err != nil && !transient(err) {
			return retry.Permanent(err)
		}
		return err
	}, func(attempt int, err error, wait time.Duration) {
		r.logger.WarnContext(ctx, "object store call failed, retrying",
			"op", op, "object", objectName, "attempt", attempt+1, "wait", wait, "error", err)
	})
}

// Upload 仅在 reader 可 Seek 时重试，每次重试前回到起始偏移。
func (r *Retrying) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	seeker, ok := reader.(io.Seeker)
	if !ok {
		return r.Storage.Upload(ctx, objectName, reader, size, contentType)
	}
	start, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return r.Storage.Upload(ctx, objectName, reader, size, contentType)
	}
	return r.do(ctx, "upload", objectName, func() error {
		if _, err := seeker.Seek(start, io.SeekStart); err != nil {
			return retry.Permanent(err)
		}
		return r.Storage.Upload(ctx, objectName, reader, size, contentType)
	})
}

func (r *Retrying) Download(ctx context.Context, objectName string) (rc io.ReadCloser, err error) {
	err = r.do(ctx, "download", objectName, func() error {
		rc, err = r.Storage.Download(ctx, objectName)
		return err
	})
	return rc, err
}

func (r *Retrying) Exists(ctx context.Context, objectName string) (ok bool, err error) {
	err = r.do(ctx, "exists", objectName, func() error {
		ok, err = r.Storage.Exists(ctx, objectName)
		return err
	})
	return ok, err
}

func (r *Retrying) Delete(ctx context.Context, objectName string) error {
	return r.do(ctx, "delete", objectName, func() error {
		return r.Storage.Delete(ctx, objectName)
	})
}
