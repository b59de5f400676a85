package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/datrie/trie"
)

func trietool(t *testing.T, stdin string, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestVersionAndUsage(t *testing.T) {
	out, _, code := trietool(t, "", "-V")
	assert.Equal(t, 0, code)
	assert.Equal(t, "trietool dev\n", out)

	_, errOut, code := trietool(t, "", "words")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Usage: trietool")

	_, _, code = trietool(t, "", "--help")
	assert.Equal(t, 0, code)
}

func TestAddQueryDeleteList(t *testing.T) {
	dir := t.TempDir()

	_, errOut, code := trietool(t, "", "-p", dir, "words", "add", "rock", "1", "rocket", "2", "frederico")
	require.Equal(t, 0, code, errOut)
	assert.True(t, trie.Exists(filepath.Join(dir, "words")))

	out, _, code := trietool(t, "", "-p", dir, "words", "query", "rocket")
	assert.Equal(t, 0, code)
	assert.Equal(t, "2\n", out)

	out, errOut, _ = trietool(t, "", "-p", dir, "words", "query", "roc")
	assert.Empty(t, out)
	assert.Contains(t, errOut, "query: Key 'roc' not found.")

	out, _, _ = trietool(t, "", "-p", dir, "words", "list")
	assert.Equal(t, "frederico\t-1\nrock\t1\nrocket\t2\n", out)

	_, errOut, code = trietool(t, "", "-p", dir, "words", "delete", "rock", "nope")
	assert.Equal(t, 0, code)
	assert.Contains(t, errOut, "No entry 'nope'. Not deleted.")

	out, _, _ = trietool(t, "", "-p", dir, "words", "children", "ro")
	assert.Equal(t, "rocket\t2\n", out)
}

func TestCommandsChainInOneInvocation(t *testing.T) {
	dir := t.TempDir()
	out, _, code := trietool(t, "", "-p", dir, "words", "query", "x", "list")
	assert.Equal(t, 0, code)
	assert.Empty(t, out)

	list := writeFile(t, dir, "add.txt", "apple\t3\nbanana, 4\n\ncherry\nbad,x\n")
	out, errOut, code := trietool(t, "", "-p", dir, "words", "add-list", list, "query", "banana")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "4\n", out)
	assert.Contains(t, errOut, "add-list: invalid data 'x' for 'bad'")

	dl := writeFile(t, dir, "del.txt", "apple\ncherry\n")
	_, _, code = trietool(t, "", "-p", dir, "words", "delete-list", dl)
	require.Equal(t, 0, code)

	out, _, _ = trietool(t, "", "-p", dir, "words", "list")
	assert.Equal(t, "banana\t4\n", out)
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()

	_, errOut, code := trietool(t, "", "-p", dir, "words", "frobnicate")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Unknown command: frobnicate")

	_, errOut, code = trietool(t, "", "-p", dir, "words", "query")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "query: No key specified.")

	_, _, code = trietool(t, "", "-p", dir, "words", "add-list", filepath.Join(dir, "absent.txt"))
	assert.Equal(t, 1, code)

	_, errOut, code = trietool(t, "", "-p", dir, "words", "push")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "no object store configured")

	assert.False(t, trie.Exists(filepath.Join(dir, "words")), "nothing changed, nothing saved")
}

func TestAlphabetFile(t *testing.T) {
	dir := t.TempDir()
	abc := writeFile(t, dir, "abc.txt", "# lower case\n[0x61,0x7a]\n")

	_, errOut, code := trietool(t, "", "-p", dir, "-a", abc, "words", "add", "hello", "1", "Hello", "2")
	require.Equal(t, 0, code)
	assert.Contains(t, errOut, "Failed to add entry 'Hello' with data 2")
	assert.Contains(t, errOut, "add: 'Hello' has characters outside the alphabet")

	// 同名 .abm 文件在新建字典树时生效。
	writeFile(t, dir, "digits.abm", "[0x30,0x39]\n")
	_, errOut, _ = trietool(t, "", "-p", dir, "digits", "add", "123", "1", "abc", "2")
	assert.Contains(t, errOut, "Failed to add entry 'abc' with data 2")

	bad := writeFile(t, dir, "bad.txt", "[0x7a,0x61]\n")
	_, errOut, code = trietool(t, "", "-p", dir, "-a", bad, "other", "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "cannot open trie")
}

func TestAddReportsFullTrie(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "trietool.toml", "[trie]\nmax_cells = 16\n")

	_, errOut, code := trietool(t, "", "-c", cfg, "-p", dir, "words", "add", "hello", "1")
	assert.Equal(t, 0, code)
	assert.Contains(t, errOut, "Failed to add entry 'hello' with data 1")
	assert.Contains(t, errOut, "add: trie is full (trie.max_cells = 16)")
	assert.False(t, trie.Exists(filepath.Join(dir, "words")), "rejected add leaves nothing to save")
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	_, _, code := trietool(t, "", "-p", dir, "spam", "add", "cheap", "1", "pills", "2")
	require.Equal(t, 0, code)

	input := "hello there\nbuy cheap stuff\nnothing\npills now\n"
	out, _, code := trietool(t, input, "-p", dir, "spam", "scan")
	assert.Equal(t, 0, code)
	assert.Equal(t, "buy cheap stuff\npills now\n", out)

	cfg := writeFile(t, dir, "trietool.toml", "[cache]\nenabled = true\nshards = 16\n")
	out, _, code = trietool(t, input, "-c", cfg, "-p", dir, "spam", "scan")
	assert.Equal(t, 0, code)
	assert.Equal(t, "buy cheap stuff\npills now\n", out)
}

func TestPushAndPull(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(t.TempDir(), "bucket")

	_, _, code := trietool(t, "", "-p", dir, "words", "add", "rock", "1")
	require.Equal(t, 0, code)
	_, errOut, code := trietool(t, "", "-p", dir, "--store", store, "words", "push", "shared")
	require.Equal(t, 0, code, errOut)
	assert.FileExists(t, filepath.Join(store, "shared"+trie.ExtTail))

	other := t.TempDir()
	out, errOut, code := trietool(t, "", "-p", other, "--store", store, "copy", "pull", "shared", "list")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "rock\t1\n", out)
	assert.True(t, trie.Exists(filepath.Join(other, "copy")), "a pulled trie is saved locally")

	_, errOut, code = trietool(t, "", "-p", other, "--store", store, "copy", "pull", "absent")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "pull:")
}
