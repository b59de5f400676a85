package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/datrie/retry"
	"github.com/wyfcoding/datrie/xerrors"
)

var _ Storage = (*Retrying)(nil)

// flaky 让前 failures 次上传与下载失败。
type flaky struct {
	*LocalStore
	failures  int
	uploads   int
	downloads int
}

func (f *flaky) Upload(ctx context.Context, name string, r io.Reader, size int64, ct string) error {
	f.uploads++
	if f.uploads <= f.failures {
		io.CopyN(io.Discard, r, 3)
		return errors.New("connection reset")
	}
	return f.LocalStore.Upload(ctx, name, r, size, ct)
}

func (f *flaky) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	f.downloads++
	if f.downloads <= f.failures {
		return nil, errors.New("connection reset")
	}
	return f.LocalStore.Download(ctx, name)
}

func quickRetry() retry.Config {
	return retry.Config{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1}
}

func TestRetryingRecoversFromTransientFailures(t *testing.T) {
	ctx := context.Background()
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	f := &flaky{LocalStore: local, failures: 2}
	s := WithRetry(f, quickRetry(), nil)

	data := []byte("DATT payload")
	require.NoError(t, s.Upload(ctx, "words.tl", bytes.NewReader(data), int64(len(data)), ContentType))
	assert.Equal(t, 3, f.uploads)

	rc, err := s.Download(ctx, "words.tl")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, data, got, "each attempt restarts from the beginning of the reader")
	assert.Equal(t, 3, f.downloads)
}

func TestRetryingDoesNotRetryMissingObjects(t *testing.T) {
	ctx := context.Background()
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	f := &flaky{LocalStore: local}
	s := WithRetry(f, quickRetry(), nil)

	_, err = s.Download(ctx, "absent.br")
	assert.True(t, errors.Is(err, xerrors.ErrObjectNotFound))
	assert.Equal(t, 1, f.downloads)

	err = s.Upload(ctx, "../escape", bytes.NewReader(nil), 0, ContentType)
	assert.Error(t, err)
	assert.Equal(t, 1, f.uploads)
}

func TestRetryingGivesUp(t *testing.T) {
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	f := &flaky{LocalStore: local, failures: 10}
	s := WithRetry(f, quickRetry(), nil)

	_, err = s.Download(context.Background(), "words.br")
	assert.ErrorContains(t, err, "connection reset")
	assert.Equal(t, 4, f.downloads)
}
