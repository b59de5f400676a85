// Package storage 提供持久化文件的对象存储抽象，支持 MinIO（S3 兼容）与本地目录两种驱动。
package storage

import (
	"context"
	"io"
)

// Storage 定义了对象存储的通用接口，支持多驱动扩展。
// 对象不存在时 Download 返回 xerrors.ErrObjectNotFound。
type Storage interface {
	// Upload 上传对象，同名对象被覆盖
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error

	// Download 下载对象
	Download(ctx context.Context, objectName string) (io.ReadCloser, error)

	// Exists 检查对象是否存在
	Exists(ctx context.Context, objectName string) (bool, error)

	// Delete 删除对象，对象不存在时不报错
	Delete(ctx context.Context, objectName string) error

	Close() error
}

// ContentType 持久化文件上传时使用的内容类型。
const ContentType = "application/octet-stream"
