// Package codec 定义了字典树持久化文件的统一帧格式。
//
// 帧布局（大端序）：
//
//	magic   [4]byte
//	version uint16
//	_       uint16 (保留，写 0)
//	length  uint64 负载字节数
//	payload [length]byte
//	sum     uint64 负载的 xxhash64
//
// 三个持久化文件（.br / .tl / .sbm）都以此帧包裹各自的负载。
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/wyfcoding/datrie/xerrors"
)

const (
	// HeaderBytes 帧头长度。
	HeaderBytes = 16
	// TrailerBytes 帧尾校验和长度。
	TrailerBytes = 8
	// MaxPayload 单个帧允许的最大负载，防止损坏的长度字段触发超大分配。
	MaxPayload = 1 << 34

	readChunk = 1 << 20
)

// Magic 是 4 字节的文件类型标识。
type Magic [4]byte

func (m Magic) String() string { return string(m[:]) }

// WriteFrame 将负载以帧格式写入 w。
func WriteFrame(w io.Writer, magic Magic, version uint16, payload []byte) error {
	var hdr [HeaderBytes]byte
	copy(hdr[0:4], magic[:])
	binary.BigEndian.PutUint16(hdr[4:6], version)
	binary.BigEndian.PutUint64(hdr[8:16], uint64(len(payload)))

	var sum [TrailerBytes]byte
	binary.BigEndian.PutUint64(sum[:], xxhash.Sum64(payload))

	for _, chunk := range [][]byte{hdr[:], payload, sum[:]} {
		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("write %s frame: %w", magic, err)
		}
	}
	return nil
}

// ReadFrame 从 r 读取一个帧并返回校验通过的负载。
// 魔数、版本、长度或校验和不符时返回 xerrors.ErrCorruptState。
func ReadFrame(r io.Reader, magic Magic, version uint16) ([]byte, error) {
	var hdr [HeaderBytes]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, corrupt(err, "%s: short header", magic)
	}
	if Magic(hdr[0:4]) != magic {
		return nil, corrupt(nil, "bad magic %q, want %q", hdr[0:4], magic.String())
	}
	if v := binary.BigEndian.Uint16(hdr[4:6]); v != version {
		return nil, corrupt(nil, "%s: unsupported version %d, want %d", magic, v, version)
	}
	n := binary.BigEndian.Uint64(hdr[8:16])
	if n > MaxPayload {
		return nil, corrupt(nil, "%s: payload length %d out of range", magic, n)
	}

	// 缓冲区随实际读到的数据增长，长度字段再大也只分配已读部分。
	var buf bytes.Buffer
	buf.Grow(int(min(n, readChunk)))
	got, err := buf.ReadFrom(io.LimitReader(r, int64(n)))
	if err != nil {
		return nil, corrupt(err, "%s: short payload", magic)
	}
	if uint64(got) != n {
		return nil, corrupt(io.ErrUnexpectedEOF, "%s: short payload, %d of %d bytes", magic, got, n)
	}
	payload := buf.Bytes()
	var sum [TrailerBytes]byte
	if _, err := io.ReadFull(r, sum[:]); err != nil {
		return nil, corrupt(err, "%s: missing checksum", magic)
	}
	if binary.BigEndian.Uint64(sum[:]) != xxhash.Sum64(payload) {
		return nil, corrupt(nil, "%s: checksum mismatch", magic)
	}
	return payload, nil
}

func corrupt(cause error, format string, args ...any) error {
	if errors.Is(cause, io.EOF) {
		cause = io.ErrUnexpectedEOF
	}
	return xerrors.Wrapf(cause, xerrors.ErrCorruptState, format, args...)
}
