package trie

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/datrie/alphamap"
	"github.com/wyfcoding/datrie/darray"
	"github.com/wyfcoding/datrie/storage"
	"github.com/wyfcoding/datrie/tail"
	"github.com/wyfcoding/datrie/xerrors"
)

// 持久化文件扩展名，三者共用同一路径前缀。
const (
	ExtAlphaMap    = ".sbm"
	ExtDoubleArray = ".br"
	ExtTail        = ".tl"
)

// Extensions 按写出顺序列出全部持久化文件扩展名。
var Extensions = []string{ExtAlphaMap, ExtDoubleArray, ExtTail}

func (t *Trie) artifact(ext string) io.WriterTo {
	switch ext {
	case ExtAlphaMap:
		return t.alpha
	case ExtDoubleArray:
		return t.da
	default:
		return t.tail
	}
}

// Save 将字典树写入 base.sbm、base.br 与 base.tl。
// 三个文件并行编码到同目录的临时文件，全部成功后再依次改名替换。
func (t *Trie) Save(base string) error {
	start := time.Now()
	tmps := make([]string, len(Extensions))
	defer func() {
		for _, tmp := range tmps {
			if tmp != "" {
				os.Remove(tmp)
			}
		}
	}()

	var g errgroup.Group
	for i, ext := range Extensions {
		g.Go(func() error {
			tmp, err := writeTemp(base+ext, t.artifact(ext))
			tmps[i] = tmp
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.logger.Error("trie save failed", "base", base, "error", err)
		return err
	}
	for i, ext := range Extensions {
		if err := os.Rename(tmps[i], base+ext); err != nil {
			t.logger.Error("trie save failed", "base", base, "error", err)
			return err
		}
		tmps[i] = ""
	}

	t.metrics.ObservePersist("save", time.Since(start))
	t.logger.Info("trie saved", "base", base, "keys", t.Len(), "cells", t.da.Len(), "duration", time.Since(start))
	return nil
}

func writeTemp(dst string, src io.WriterTo) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp-*")
	if err != nil {
		return "", err
	}
	w := bufio.NewWriter(f)
	if _, err = src.WriteTo(w); err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return f.Name(), err
}

// Read 从 base.sbm、base.br 与 base.tl 重建字典树，三个文件并行读取。
// 任一文件缺失返回 xerrors.ErrMissingState；内容损坏或相互矛盾返回 xerrors.ErrCorruptState。
func Read(base string, opts ...Option) (*Trie, error) {
	start := time.Now()
	t := &Trie{}
	t.configure(opts)

	err := t.load(len(Extensions), func(ext string) (io.ReadCloser, error) {
		f, err := os.Open(base + ext)
		if err != nil {
			return nil, xerrors.Wrapf(err, xerrors.ErrMissingState, "open %s", base+ext)
		}
		return bufferedFile{bufio.NewReader(f), f}, nil
	})
	if err != nil {
		t.logger.Error("trie read failed", "base", base, "error", err)
		return nil, err
	}

	t.metrics.ObservePersist("read", time.Since(start))
	t.logger.Info("trie loaded", "base", base, "keys", t.Len(), "cells", t.da.Len(), "duration", time.Since(start))
	return t, nil
}

// Exists 判断 base 对应的三个持久化文件是否都存在。
func Exists(base string) bool {
	for _, ext := range Extensions {
		if _, err := os.Stat(base + ext); errors.Is(err, fs.ErrNotExist) {
			return false
		}
	}
	return true
}

type bufferedFile struct {
	*bufio.Reader
	io.Closer
}

// load 通过 open 读取三个持久化文件，至多 parallel 个同时进行；parallel 为 1 时按 Extensions 顺序读取。
// 交叉校验通过后替换 t 的存储。
func (t *Trie) load(parallel int, open func(ext string) (io.ReadCloser, error)) error {
	var (
		alpha *alphamap.AlphaMap
		da    *darray.DoubleArray
		tl    *tail.Store
	)
	readers := map[string]func(io.Reader) error{
		ExtAlphaMap: func(r io.Reader) (err error) {
			alpha, err = alphamap.ReadAlphaMap(r)
			return err
		},
		ExtDoubleArray: func(r io.Reader) (err error) {
			da, err = darray.Read(r)
			return err
		},
		ExtTail: func(r io.Reader) (err error) {
			tl, err = tail.Read(r)
			return err
		},
	}

	var g errgroup.Group
	g.SetLimit(parallel)
	for _, ext := range Extensions {
		g.Go(func() error {
			rc, err := open(ext)
			if err != nil {
				return err
			}
			defer rc.Close()
			if err := readers[ext](rc); err != nil {
				return xerrors.Wrapf(err, xerrors.ErrCorruptState, "decode %s", ext)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := crossValidate(alpha, da, tl); err != nil {
		return err
	}

	t.alpha, t.da, t.tail = alpha, da, tl
	t.attach()
	return nil
}

// crossValidate 检查三部分数据彼此一致：自动机的字母表大小与字母表相同，
// 尾块符号位于字母表内，独立节点与存活尾块一一对应。
func crossValidate(alpha *alphamap.AlphaMap, da *darray.DoubleArray, tl *tail.Store) error {
	if da.AlphabetSize() != alpha.Size() {
		return xerrors.Wrapf(nil, xerrors.ErrCorruptState,
			"double-array alphabet size %d differs from alphabet map size %d", da.AlphabetSize(), alpha.Size())
	}
	if err := tl.Validate(alpha.Size()); err != nil {
		return err
	}
	owners := make(map[int32]int32)
	for s, tb := range da.SeparateNodes() {
		if !tl.Live(tb) {
			return xerrors.Wrapf(nil, xerrors.ErrCorruptState, "state %d points to dead tail block %d", s, tb)
		}
		if prev, dup := owners[tb]; dup {
			return xerrors.Wrapf(nil, xerrors.ErrCorruptState, "tail block %d shared by states %d and %d", tb, prev, s)
		}
		owners[tb] = s
	}
	if len(owners) != tl.Active() {
		return xerrors.Wrapf(nil, xerrors.ErrCorruptState,
			"%d live tail blocks but %d separate nodes", tl.Active(), len(owners))
	}
	return nil
}

// MarshalBinary 将字母表、自动机与尾部存储依次编码为三个帧。
func (t *Trie) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	for _, ext := range Extensions {
		if _, err := t.artifact(ext).WriteTo(&buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary 用 MarshalBinary 的输出替换字典树内容，已有的游标随之失效。
// 失败时字典树保持不变。
func (t *Trie) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	next := &Trie{logger: t.logger, metrics: t.metrics, maxCells: t.maxCells}
	next.configure(nil)

	err := next.load(1, func(string) (io.ReadCloser, error) {
		return io.NopCloser(r), nil
	})
	if err == nil && r.Len() != 0 {
		err = xerrors.Wrapf(nil, xerrors.ErrCorruptState, "%d trailing bytes", r.Len())
	}
	if err != nil {
		return err
	}

	t.alpha, t.da, t.tail, t.logger = next.alpha, next.da, next.tail, next.logger
	t.attach()
	t.changed()
	return nil
}

// SaveTo 将三个持久化文件上传到对象存储，对象名为 name 加扩展名。
func (t *Trie) SaveTo(ctx context.Context, store storage.Storage, name string) error {
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for _, ext := range Extensions {
		var buf bytes.Buffer
		if _, err := t.artifact(ext).WriteTo(&buf); err != nil {
			return err
		}
		g.Go(func() error {
			return store.Upload(ctx, name+ext, bytes.NewReader(buf.Bytes()), int64(buf.Len()), storage.ContentType)
		})
	}
	if err := g.Wait(); err != nil {
		t.logger.ErrorContext(ctx, "trie upload failed", "name", name, "error", err)
		return err
	}
	t.metrics.ObservePersist("upload", time.Since(start))
	t.logger.InfoContext(ctx, "trie uploaded", "name", name, "keys", t.Len(), "duration", time.Since(start))
	return nil
}

// ReadFrom 从对象存储下载三个持久化文件并重建字典树，错误语义与 Read 相同。
func ReadFrom(ctx context.Context, store storage.Storage, name string, opts ...Option) (*Trie, error) {
	start := time.Now()
	t := &Trie{}
	t.configure(opts)

	err := t.load(len(Extensions), func(ext string) (io.ReadCloser, error) {
		rc, err := store.Download(ctx, name+ext)
		if errors.Is(err, xerrors.ErrObjectNotFound) {
			return nil, xerrors.Wrapf(err, xerrors.ErrMissingState, "object %s", name+ext)
		}
		return rc, err
	})
	if err != nil {
		t.logger.ErrorContext(ctx, "trie download failed", "name", name, "error", err)
		return nil, err
	}

	t.metrics.ObservePersist("download", time.Since(start))
	t.logger.InfoContext(ctx, "trie downloaded", "name", name, "keys", t.Len(), "duration", time.Since(start))
	return t, nil
}
