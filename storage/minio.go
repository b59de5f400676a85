package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/wyfcoding/datrie/config"
	"github.com/wyfcoding/datrie/xerrors"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient 实现了 Storage 接口，是对接 MinIO 或 S3 兼容存储系统的具体驱动。
type MinIOClient struct {
	mu     sync.RWMutex
	client *minio.Client
	bucket string // 当前驱动绑定的存储桶名称。
}

// NewMinIOClient 构造一个新的 MinIO 存储驱动。
func NewMinIOClient(endpoint, accessKeyID, secretAccessKey, bucket string, useSSL bool) (*MinIOClient, error) {
	client, err := newMinioClient(endpoint, accessKeyID, secretAccessKey, useSSL)
	if err != nil {
		return nil, err
	}

	slog.Info("minio_client initialized", "endpoint", endpoint, "bucket", bucket)

	return &MinIOClient{
		client: client,
		bucket: bucket,
	}, nil
}

// NewMinIOClientFromConfig 按配置构造驱动。
func NewMinIOClientFromConfig(cfg config.MinioConfig) (*MinIOClient, error) {
	if cfg.Endpoint == "" || cfg.BucketName == "" {
		return nil, xerrors.InvalidArg("minio endpoint and bucket_name are required")
	}
	return NewMinIOClient(cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey, cfg.BucketName, cfg.UseSSL)
}

func (c *MinIOClient) current() (*minio.Client, string, error) {
	if c == nil {
		return nil, "", errors.New("minio client is nil")
	}
	c.mu.RLock()
	client := c.client
	bucket := c.bucket
	c.mu.RUnlock()
	if client == nil {
		return nil, "", errors.New("minio client not initialized")
	}
	return client, bucket, nil
}

// EnsureBucket 存储桶不存在时创建。
func (c *MinIOClient) EnsureBucket(ctx context.Context) error {
	client, bucket, err := c.current()
	if err != nil {
		return err
	}
	ok, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if ok {
		return nil
	}
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	slog.Info("minio bucket created", "bucket", bucket)
	return nil
}

// Upload 将数据流上传至绑定的存储桶。
func (c *MinIOClient) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	client, bucket, err := c.current()
	if err != nil {
		return err
	}
	start := time.Now()
	_, err = client.PutObject(ctx, bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		slog.Error("minio upload failed", "object", objectName, "error", err)
		return err
	}
	slog.Debug("minio upload successful", "object", objectName, "duration", time.Since(start))
	return nil
}

// Download 下载对象。GetObject 延迟到首次读取才报告错误，因此先做一次 Stat。
func (c *MinIOClient) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	client, bucket, err := c.current()
	if err != nil {
		return nil, err
	}
	obj, err := client.GetObject(ctx, bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioError(err, objectName)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, mapMinioError(err, objectName)
	}
	return obj, nil
}

func (c *MinIOClient) Delete(ctx context.Context, objectName string) error {
	client, bucket, err := c.current()
	if err != nil {
		return err
	}
	return client.RemoveObject(ctx, bucket, objectName, minio.RemoveObjectOptions{})
}

// Exists 检查对象是否存在.
func (c *MinIOClient) Exists(ctx context.Context, objectName string) (bool, error) {
	client, bucket, err := c.current()
	if err != nil {
		return false, err
	}
	_, err = client.StatObject(ctx, bucket, objectName, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *MinIOClient) Close() error {
	return nil
}

// UpdateConfig 使用最新配置刷新 MinIO 客户端。
func (c *MinIOClient) UpdateConfig(cfg config.MinioConfig) error {
	if c == nil {
		return errors.New("minio client is nil")
	}
	client, err := newMinioClient(cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey, cfg.UseSSL)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.client = client
	c.bucket = cfg.BucketName
	c.mu.Unlock()

	slog.Info("minio client updated", "endpoint", cfg.Endpoint, "bucket", cfg.BucketName)

	return nil
}

// RegisterReloadHook 注册 MinIO 客户端热更新回调。
func RegisterReloadHook(client *MinIOClient) {
	if client == nil {
		return
	}
	config.RegisterReloadHook(func(updated *config.Config) {
		if updated == nil {
			return
		}
		if err := client.UpdateConfig(updated.Minio); err != nil {
			slog.Error("minio client reload failed", "error", err)
		}
	})
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

func mapMinioError(err error, objectName string) error {
	if isNoSuchKey(err) {
		return xerrors.Wrapf(err, xerrors.ErrObjectNotFound, "object %s", objectName)
	}
	return err
}

func newMinioClient(endpoint, accessKeyID, secretAccessKey string, useSSL bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		slog.Error("failed to create minio client", "endpoint", endpoint, "error", err)
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return client, nil
}
