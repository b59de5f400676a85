package alphamap

import (
	"io"

	"github.com/wyfcoding/datrie/codec"
	"github.com/wyfcoding/datrie/xerrors"
)

var (
	// Magic 是 .sbm 文件的魔数。
	Magic = codec.Magic{'D', 'A', 'T', 'M'}
	// Version 是 .sbm 负载格式版本。
	Version uint16 = 1
)

// MarshalBinary 编码为负载：区间数 u32，随后每个区间为 begin、end 各一个 i32。
func (m *AlphaMap) MarshalBinary() ([]byte, error) {
	enc := codec.NewEncoder(4 + 8*len(m.ranges))
	enc.PutU32(uint32(len(m.ranges)))
	for _, r := range m.ranges {
		enc.PutI32(r.Begin)
		enc.PutI32(r.End)
	}
	return enc.Bytes(), nil
}

// UnmarshalBinary 解码负载。区间必须严格递增且互不相邻，否则视为损坏。
func (m *AlphaMap) UnmarshalBinary(data []byte) error {
	dec := codec.NewDecoder(data)
	n := dec.U32()
	if int(n) > MaxSymbols || int(n)*8 > dec.Remaining() {
		return xerrors.Wrapf(nil, xerrors.ErrCorruptState, "alphamap: %d ranges in %d bytes", n, len(data))
	}

	ranges := make([]Range, 0, n)
	size := 0
	for i := 0; i < int(n); i++ {
		r := Range{Begin: dec.I32(), End: dec.I32()}
		if r.Begin < 0 || r.Begin > r.End {
			return xerrors.Wrapf(nil, xerrors.ErrCorruptState, "alphamap: bad range %v", r)
		}
		if i > 0 && ranges[i-1].End+1 >= r.Begin {
			return xerrors.Wrapf(nil, xerrors.ErrCorruptState, "alphamap: range %v overlaps %v", r, ranges[i-1])
		}
		size += r.Width()
		ranges = append(ranges, r)
	}
	if err := dec.Err(); err != nil {
		return err
	}
	if size > MaxSymbols {
		return xerrors.Wrapf(nil, xerrors.ErrCorruptState, "alphamap: %d symbols exceed limit", size)
	}

	m.ranges = ranges
	m.reindex()
	return nil
}

// WriteTo 以帧格式写出 .sbm 内容。
func (m *AlphaMap) WriteTo(w io.Writer) (int64, error) {
	payload, _ := m.MarshalBinary()
	cw := &codec.CountingWriter{W: w}
	err := codec.WriteFrame(cw, Magic, Version, payload)
	return cw.N, err
}

// ReadAlphaMap 从帧格式的 .sbm 内容重建字母表。
func ReadAlphaMap(r io.Reader) (*AlphaMap, error) {
	payload, err := codec.ReadFrame(r, Magic, Version)
	if err != nil {
		return nil, err
	}
	m := New()
	if err := m.UnmarshalBinary(payload); err != nil {
		return nil, err
	}
	return m, nil
}
