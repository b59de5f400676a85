package darray

import (
	"io"

	"github.com/wyfcoding/datrie/codec"
	"github.com/wyfcoding/datrie/xerrors"
)

// Magic 是 .br 文件的魔数。
var Magic = codec.Magic{'D', 'A', 'T', 'B'}

// Version 是 .br 负载格式版本。
const Version uint16 = 1

// MarshalBinary 编码为负载：字母表大小 u32、单元数 u32，随后按编号顺序写出全部单元（含空闲单元）的 base 与 check。
func (d *DoubleArray) MarshalBinary() ([]byte, error) {
	enc := codec.NewEncoder(8 + 8*len(d.cells))
	enc.PutU32(uint32(d.alphabetSize))
	enc.PutU32(uint32(len(d.cells)))
	for _, c := range d.cells {
		enc.PutI32(c.base)
		enc.PutI32(c.check)
	}
	return enc.Bytes(), nil
}

// UnmarshalBinary 解码负载并执行结构校验。
func (d *DoubleArray) UnmarshalBinary(data []byte) error {
	dec := codec.NewDecoder(data)
	alphabetSize := int(dec.U32())
	n := int(dec.U32())
	if n < int(poolBegin) || n > MaxCells || n*8 != dec.Remaining() {
		return xerrors.Wrapf(nil, xerrors.ErrCorruptState, "darray: %d cells in %d bytes", n, len(data))
	}

	cells := make([]cell, n)
	for i := range cells {
		cells[i] = cell{base: dec.I32(), check: dec.I32()}
	}
	if err := dec.Err(); err != nil {
		return err
	}

	loaded := &DoubleArray{cells: cells, alphabetSize: alphabetSize, limit: MaxCells}
	if err := loaded.Validate(); err != nil {
		return err
	}
	*d = *loaded
	return nil
}

// WriteTo 以帧格式写出 .br 内容。
func (d *DoubleArray) WriteTo(w io.Writer) (int64, error) {
	payload, _ := d.MarshalBinary()
	cw := &codec.CountingWriter{W: w}
	err := codec.WriteFrame(cw, Magic, Version, payload)
	return cw.N, err
}

// Read 从帧格式的 .br 内容重建自动机。
func Read(r io.Reader) (*DoubleArray, error) {
	payload, err := codec.ReadFrame(r, Magic, Version)
	if err != nil {
		return nil, err
	}
	d := &DoubleArray{}
	if err := d.UnmarshalBinary(payload); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate 校验空闲链表与父子关系的一致性，并重新统计空闲单元数。
func (d *DoubleArray) Validate() error {
	n := int32(len(d.cells))
	if n < poolBegin {
		return corrupt("pool has %d cells", n)
	}
	if d.alphabetSize < 0 || d.alphabetSize > 0xffff {
		return corrupt("alphabet size %d", d.alphabetSize)
	}
	if d.cells[RootState].check != RootState {
		return corrupt("root check %d", d.cells[RootState].check)
	}
	if rb := d.cells[RootState].base; rb < 0 || (rb > 0 && rb < poolBegin) {
		return corrupt("root base %d", rb)
	}

	// 空闲链表：严格递增、前后指针一致、覆盖全部 check <= 0 的单元。
	free := 0
	prev := freeHead
	for i := d.nextFree(freeHead); i != freeHead; i = d.nextFree(i) {
		if i < poolBegin || i >= n || i <= prev {
			return corrupt("free list link %d -> %d", prev, i)
		}
		if d.prevFree(i) != prev {
			return corrupt("free cell %d back link %d, want %d", i, d.prevFree(i), prev)
		}
		prev = i
		free++
	}
	if d.prevFree(freeHead) != prev {
		return corrupt("free list tail %d, want %d", d.prevFree(freeHead), prev)
	}
	listed := free

	span := int32(d.alphabetSize)
	for i := poolBegin; i < n; i++ {
		p := d.cells[i].check
		if p <= 0 {
			free--
			continue
		}
		if p >= n || d.cells[p].check <= 0 {
			return corrupt("cell %d has unallocated parent %d", i, p)
		}
		if p == i {
			return corrupt("cell %d is its own parent", i)
		}
		if b := d.cells[i].base; b > 0 && b < poolBegin {
			return corrupt("cell %d base %d below pool start", i, b)
		}
		pb := d.cells[p].base
		if pb <= 0 || i < pb || i > pb+span {
			return corrupt("cell %d outside parent %d transition range (base %d)", i, p, pb)
		}
	}
	if free != 0 {
		return corrupt("free list does not cover every free cell")
	}
	d.nfree = listed
	return nil
}

// SeparateNodes 返回全部独立节点的尾块编号，用于与尾部存储交叉校验。
func (d *DoubleArray) SeparateNodes() map[int32]int32 {
	out := make(map[int32]int32)
	for i := poolBegin; i < int32(len(d.cells)); i++ {
		if d.cells[i].check > 0 && d.cells[i].base < 0 {
			out[i] = -d.cells[i].base
		}
	}
	return out
}

func corrupt(format string, args ...any) error {
	return xerrors.Wrapf(nil, xerrors.ErrCorruptState, "darray: "+format, args...)
}
