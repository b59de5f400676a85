package codec

import (
	"encoding/binary"
	"io"

	"github.com/wyfcoding/datrie/xerrors"
)

// Encoder 以大端序追加定长字段。
type Encoder struct {
	buf []byte
}

// NewEncoder 创建一个预分配 capacity 字节的编码器。
func NewEncoder(capacity int) *Encoder {
	return &Encoder{buf: make([]byte, 0, capacity)}
}

func (e *Encoder) PutU16(v uint16) { e.buf = binary.BigEndian.AppendUint16(e.buf, v) }
func (e *Encoder) PutU32(v uint32) { e.buf = binary.BigEndian.AppendUint32(e.buf, v) }
func (e *Encoder) PutI32(v int32)  { e.PutU32(uint32(v)) }

// Bytes 返回已编码的内容。
func (e *Encoder) Bytes() []byte { return e.buf }

// Decoder 按顺序读取定长字段。第一次越界后的读取都返回零值，
// 调用方在末尾通过 Err 统一检查。
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder 创建解码器。
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.buf)-d.off < n {
		d.err = xerrors.Wrapf(nil, xerrors.ErrCorruptState, "truncated payload at offset %d", d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *Decoder) U16() uint16 {
	if b := d.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (d *Decoder) U32() uint32 {
	if b := d.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (d *Decoder) I32() int32 { return int32(d.U32()) }

// Remaining 返回尚未读取的字节数。
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

// Err 返回首个解码错误；全部读取完成后仍有剩余字节也视为损坏。
func (d *Decoder) Err() error {
	if d.err != nil {
		return d.err
	}
	if d.Remaining() != 0 {
		return xerrors.Wrapf(nil, xerrors.ErrCorruptState, "%d trailing bytes", d.Remaining())
	}
	return nil
}

// CountingWriter 记录写入的字节数，用于实现 io.WriterTo。
type CountingWriter struct {
	W io.Writer
	N int64
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.W.Write(p)
	c.N += int64(n)
	return n, err
}
