package tail

import (
	"io"

	"github.com/wyfcoding/datrie/codec"
	"github.com/wyfcoding/datrie/xerrors"
)

// Magic 是 .tl 文件的魔数。
var Magic = codec.Magic{'D', 'A', 'T', 'T'}

// Version 是 .tl 负载格式版本。
const Version uint16 = 1

// MarshalBinary 编码为负载：
// 尾块数 u32、首个空闲块 i32，随后每块依次为 nextFree i32、data i32、后缀长度 u32 与 u16 符号序列。
func (t *Store) MarshalBinary() ([]byte, error) {
	size := 8
	for _, b := range t.blocks[1:] {
		size += 12 + 2*len(b.suffix)
	}
	enc := codec.NewEncoder(size)
	enc.PutU32(uint32(t.Len()))
	enc.PutI32(t.firstFree)
	for _, b := range t.blocks[1:] {
		enc.PutI32(b.nextFree)
		enc.PutI32(b.data)
		enc.PutU32(uint32(len(b.suffix)))
		for _, c := range b.suffix {
			enc.PutU16(uint16(c))
		}
	}
	return enc.Bytes(), nil
}

// UnmarshalBinary 解码负载并校验空闲链表。
func (t *Store) UnmarshalBinary(data []byte) error {
	dec := codec.NewDecoder(data)
	n := int(dec.U32())
	firstFree := dec.I32()
	if n < 0 || n*12 > dec.Remaining() {
		return corrupt("%d blocks in %d bytes", n, len(data))
	}

	blocks := make([]block, n+1)
	for i := 1; i <= n; i++ {
		b := block{nextFree: dec.I32(), data: dec.I32()}
		l := int(dec.U32())
		if l < 0 || l*2 > dec.Remaining() {
			return corrupt("block %d suffix length %d", i, l)
		}
		if l > 0 {
			b.suffix = make([]Symbol, l)
			for k := range b.suffix {
				b.suffix[k] = Symbol(dec.U16())
			}
		}
		blocks[i] = b
	}
	if err := dec.Err(); err != nil {
		return err
	}

	loaded := &Store{blocks: blocks, firstFree: firstFree}
	if err := loaded.validateFreeList(); err != nil {
		return err
	}
	*t = *loaded
	return nil
}

func (t *Store) validateFreeList() error {
	n := int32(len(t.blocks))
	free := 0
	var prev int32
	for i := t.firstFree; i != 0; i = t.blocks[i].nextFree {
		if i <= prev || i >= n {
			return corrupt("free list link %d -> %d", prev, i)
		}
		if len(t.blocks[i].suffix) != 0 {
			return corrupt("free block %d carries a suffix", i)
		}
		prev = i
		free++
	}

	t.active = 0
	for i := int32(1); i < n; i++ {
		switch nf := t.blocks[i].nextFree; {
		case nf == allocated:
			t.active++
		case nf < 0:
			return corrupt("block %d next free %d", i, nf)
		}
	}
	if t.active+free != int(n)-1 {
		return corrupt("free list does not cover every free block")
	}
	return nil
}

// Validate 检查全部已分配后缀均为 alphabetSize 内的非结束符符号。
func (t *Store) Validate(alphabetSize int) error {
	for i := int32(1); i < int32(len(t.blocks)); i++ {
		if !t.Live(i) {
			continue
		}
		for k, c := range t.blocks[i].suffix {
			if c == 0 || int(c) > alphabetSize {
				return corrupt("block %d symbol %d at %d outside alphabet of %d", i, c, k, alphabetSize)
			}
		}
	}
	return nil
}

// WriteTo 以帧格式写出 .tl 内容。
func (t *Store) WriteTo(w io.Writer) (int64, error) {
	payload, _ := t.MarshalBinary()
	cw := &codec.CountingWriter{W: w}
	err := codec.WriteFrame(cw, Magic, Version, payload)
	return cw.N, err
}

// Read 从帧格式的 .tl 内容重建尾部存储。
func Read(r io.Reader) (*Store, error) {
	payload, err := codec.ReadFrame(r, Magic, Version)
	if err != nil {
		return nil, err
	}
	t := New()
	if err := t.UnmarshalBinary(payload); err != nil {
		return nil, err
	}
	return t, nil
}

func corrupt(format string, args ...any) error {
	return xerrors.Wrapf(nil, xerrors.ErrCorruptState, "tail: "+format, args...)
}
