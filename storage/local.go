package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wyfcoding/datrie/xerrors"
)

// LocalStore 以本地目录实现 Storage，对象名即目录内的相对路径。
type LocalStore struct {
	root string
}

// NewLocalStore 返回以 root 为根目录的驱动，目录不存在时创建。
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &LocalStore{root: root}, nil
}

// Root 返回根目录。
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) path(objectName string) (string, error) {
	name := filepath.FromSlash(objectName)
	if !filepath.IsLocal(name) {
		return "", xerrors.InvalidArg(fmt.Sprintf("object name %q escapes storage root", objectName))
	}
	return filepath.Join(s.root, name), nil
}

// Upload 先写入同目录临时文件再改名，读者不会看到写了一半的对象。
func (s *LocalStore) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := s.path(objectName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, reader)
	if err == nil && size >= 0 && n != size {
		err = fmt.Errorf("upload %s: wrote %d bytes, expected %d", objectName, n, size)
	}
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (s *LocalStore) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(objectName)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, xerrors.Wrapf(err, xerrors.ErrObjectNotFound, "object %s", objectName)
	}
	return f, err
}

func (s *LocalStore) Exists(ctx context.Context, objectName string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := s.path(objectName)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *LocalStore) Delete(ctx context.Context, objectName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) Close() error { return nil }
