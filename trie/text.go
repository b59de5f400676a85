package trie

import (
	"strings"
	"unicode"
)

// AddText 按 delimiters 中的任一字符切分 text，逐个以 NoValue 存储，返回成功存储的数量。
// 单个非法片段不影响其余片段。
func (t *Trie) AddText(text, delimiters string) int {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(delimiters, r)
	})
	return t.Concat(tokens)
}

// Concat 以 NoValue 逐个存储 words，返回成功存储的数量。
func (t *Trie) Concat(words []string) int {
	n := 0
	for _, w := range words {
		if t.Add(w, NoValue) {
			n++
		}
	}
	return n
}

// ConcatEntries 逐个存储带权重的键，返回成功存储的数量。
func (t *Trie) ConcatEntries(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if t.Add(e.Key, e.Value) {
			n++
		}
	}
	return n
}

// Tokens 返回 text 中连续的、属于字母表且非空白的字符序列。
func (t *Trie) Tokens(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		if unicode.IsSpace(r) {
			return true
		}
		_, ok := t.alpha.Encode(r)
		return !ok
	})
}

// TextHasKeys 判断 text 中是否有任一片段（见 Tokens）为已存储的键。
func (t *Trie) TextHasKeys(text string) bool {
	for _, tok := range t.Tokens(text) {
		if t.HasKey(tok) {
			return true
		}
	}
	return false
}

// TagsHasKeys 判断以空格分隔的标签中是否有任一标签为已存储的键。
func (t *Trie) TagsHasKeys(tags string) bool {
	for _, tag := range strings.Split(tags, " ") {
		if tag != "" && t.HasKey(tag) {
			return true
		}
	}
	return false
}
