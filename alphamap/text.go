package alphamap

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/wyfcoding/datrie/xerrors"
)

// ParseRange 解析 "[begin,end]" 形式的区间，两端为十六进制码点，0x 前缀可省略。
func ParseRange(s string) (Range, error) {
	body, ok := strings.CutPrefix(strings.TrimSpace(s), "[")
	if ok {
		body, ok = strings.CutSuffix(body, "]")
	}
	if !ok {
		return Range{}, xerrors.Wrapf(nil, xerrors.ErrInvalidRange, "malformed range %q", s)
	}
	lo, hi, ok := strings.Cut(body, ",")
	if !ok {
		return Range{}, xerrors.Wrapf(nil, xerrors.ErrInvalidRange, "malformed range %q", s)
	}
	begin, err := parseHex(lo)
	if err != nil {
		return Range{}, xerrors.Wrapf(err, xerrors.ErrInvalidRange, "range %q", s)
	}
	end, err := parseHex(hi)
	if err != nil {
		return Range{}, xerrors.Wrapf(err, xerrors.ErrInvalidRange, "range %q", s)
	}
	if begin > end {
		return Range{}, xerrors.Wrapf(nil, xerrors.ErrInvalidRange, "range %q: begin exceeds end", s)
	}
	return Range{Begin: begin, End: end}, nil
}

func parseHex(s string) (rune, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}
	if v > 0x10FFFF {
		return 0, strconv.ErrRange
	}
	return rune(v), nil
}

// ParseText 读取每行一个区间的文本字母表定义，空行与 # 开头的行被忽略。
func ParseText(r io.Reader) (*AlphaMap, error) {
	m := New()
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		rg, err := ParseRange(text)
		if err != nil {
			return nil, xerrors.Wrapf(err, xerrors.ErrInvalidRange, "line %d", line)
		}
		if err := m.AddRange(rg.Begin, rg.End); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrInvalidRange, "read alphabet definition")
	}
	return m, nil
}

// ParseStrings 由多个区间字符串构造字母表，供配置文件使用。
func ParseStrings(items []string) (*AlphaMap, error) {
	m := New()
	for _, item := range items {
		rg, err := ParseRange(item)
		if err != nil {
			return nil, err
		}
		if err := m.AddRange(rg.Begin, rg.End); err != nil {
			return nil, err
		}
	}
	return m, nil
}
