package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/wyfcoding/datrie/cache"
	"github.com/wyfcoding/datrie/config"
	"github.com/wyfcoding/datrie/logging"
	"github.com/wyfcoding/datrie/metrics"
	"github.com/wyfcoding/datrie/retry"
	"github.com/wyfcoding/datrie/storage"
	"github.com/wyfcoding/datrie/trie"
	"github.com/wyfcoding/datrie/xerrors"
)

var errUsage = errors.New("usage")

type tool struct {
	ctx      context.Context
	conf     *config.Config
	cfgFile  string
	storeDir string
	logger   *logging.Logger
	metrics  *metrics.Metrics
	trie     *trie.Trie
	replaced bool

	stdin          io.Reader
	stdout, stderr io.Writer
}

type command func(t *tool, args []string) (consumed int, err error)

var commands map[string]command

func init() {
	commands = map[string]command{
		"add":         (*tool).add,
		"add-list":    (*tool).addList,
		"delete":      (*tool).delete,
		"delete-list": (*tool).deleteList,
		"query":       (*tool).query,
		"list":        (*tool).list,
		"children":    (*tool).children,
		"scan":        (*tool).scan,
		"push":        (*tool).push,
		"pull":        (*tool).pull,
	}
}

func (t *tool) options() []trie.Option {
	return []trie.Option{
		trie.WithLogger(t.logger),
		trie.WithMetrics(t.metrics),
		trie.WithMaxCells(t.conf.Trie.MaxCells),
	}
}

// dispatch 依次执行 args 中的命令，每个命令消耗其所需的参数。
func (t *tool) dispatch(args []string) int {
	for len(args) > 0 {
		name := args[0]
		cmd, ok := commands[name]
		if !ok {
			fmt.Fprintf(t.stderr, "Unknown command: %s\n", name)
			return 1
		}
		n, err := cmd(t, args[1:])
		if err != nil {
			if !errors.Is(err, errUsage) {
				fmt.Fprintf(t.stderr, "%s: %v\n", name, err)
			}
			return 1
		}
		args = args[1+n:]
	}
	return 0
}

func parseValue(s string) (int32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	return int32(v), err
}

// add 消耗其后全部参数，按 WORD DATA 成对处理；最后一个单词缺少数据时存入 trie.NoValue。
func (t *tool) add(args []string) (int, error) {
	for i := 0; i < len(args); i += 2 {
		word, value := args[i], trie.NoValue
		if i+1 < len(args) {
			v, err := parseValue(args[i+1])
			if err != nil {
				fmt.Fprintf(t.stderr, "add: invalid data '%s' for '%s'\n", args[i+1], word)
				continue
			}
			value = v
		}
		if err := t.trie.Put(word, value); err != nil {
			fmt.Fprintf(t.stderr, "Failed to add entry '%s' with data %d\n", word, value)
			t.explain("add", word, err)
		}
	}
	return len(args), nil
}

func (t *tool) delete(args []string) (int, error) {
	for _, word := range args {
		if err := t.trie.Remove(word); err != nil {
			fmt.Fprintf(t.stderr, "No entry '%s'. Not deleted.\n", word)
			t.explain("delete", word, err)
		}
	}
	return len(args), nil
}

// explain 在失败提示之后补充原因；键不存在已由提示本身说明。
func (t *tool) explain(cmd, word string, err error) {
	switch {
	case errors.Is(err, xerrors.ErrKeyNotFound):
	case errors.Is(err, xerrors.ErrAlphabetViolation):
		fmt.Fprintf(t.stderr, "%s: '%s' has characters outside the alphabet\n", cmd, word)
	case errors.Is(err, xerrors.ErrCapacityExhausted):
		fmt.Fprintf(t.stderr, "%s: trie is full (trie.max_cells = %d)\n", cmd, t.conf.Trie.MaxCells)
	default:
		fmt.Fprintf(t.stderr, "%s: %v\n", cmd, err)
	}
}

// eachLine 对列表文件中每个非空行调用 fn。
func eachLine(name string, fn func(line string)) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			fn(line)
		}
	}
	return sc.Err()
}

// addList 读取每行 "WORD[\t或,DATA]" 格式的列表文件。
func (t *tool) addList(args []string) (int, error) {
	if len(args) == 0 {
		fmt.Fprintln(t.stderr, "add-list: No list file specified.")
		return 0, errUsage
	}
	err := eachLine(args[0], func(line string) {
		word, data := line, ""
		if i := strings.IndexAny(line, "\t,"); i >= 0 {
			word, data = strings.TrimSpace(line[:i]), line[i+1:]
		}
		value := trie.NoValue
		if strings.TrimSpace(data) != "" {
			v, err := parseValue(data)
			if err != nil {
				fmt.Fprintf(t.stderr, "add-list: invalid data '%s' for '%s'\n", strings.TrimSpace(data), word)
				return
			}
			value = v
		}
		if err := t.trie.Put(word, value); err != nil {
			fmt.Fprintf(t.stderr, "Failed to add key '%s' with data %d.\n", word, value)
			t.explain("add-list", word, err)
		}
	})
	return 1, err
}

func (t *tool) deleteList(args []string) (int, error) {
	if len(args) == 0 {
		fmt.Fprintln(t.stderr, "delete-list: No list file specified.")
		return 0, errUsage
	}
	err := eachLine(args[0], func(word string) {
		if err := t.trie.Remove(word); err != nil {
			fmt.Fprintf(t.stderr, "No entry '%s'. Not deleted.\n", word)
			t.explain("delete-list", word, err)
		}
	})
	return 1, err
}

func (t *tool) query(args []string) (int, error) {
	if len(args) == 0 {
		fmt.Fprintln(t.stderr, "query: No key specified.")
		return 0, errUsage
	}
	if v, ok := t.trie.Get(args[0]); ok {
		fmt.Fprintf(t.stdout, "%d\n", v)
	} else {
		fmt.Fprintf(t.stderr, "query: Key '%s' not found.\n", args[0])
	}
	return 1, nil
}

func (t *tool) list([]string) (int, error) {
	w := bufio.NewWriter(t.stdout)
	for k, v := range t.trie.All() {
		fmt.Fprintf(w, "%s\t%d\n", k, v)
	}
	return 0, w.Flush()
}

func (t *tool) children(args []string) (int, error) {
	if len(args) == 0 {
		fmt.Fprintln(t.stderr, "children: No prefix specified.")
		return 0, errUsage
	}
	for _, e := range t.trie.ChildrenWithValues(args[0]) {
		fmt.Fprintf(t.stdout, "%s\t%d\n", e.Key, e.Value)
	}
	return 1, nil
}

// scan 逐行读取标准输入，输出包含字典树中任一单词的行。
// 使用配置文件时监听其变更，日志级别随之调整。
func (t *tool) scan([]string) (int, error) {
	var matcher interface{ TextHasKeys(string) bool } = t.trie
	if t.conf.Cache.Enabled {
		bc, err := cache.NewBigCache(t.conf.Cache)
		if err != nil {
			return 0, err
		}
		defer bc.Close()
		matcher = cache.NewLookupCache(t.trie, bc, t.metrics, t.logger)
	}
	if t.cfgFile != "" {
		config.RegisterReloadHook(func(next *config.Config) {
			t.logger.Info("scan settings reloaded", "log_level", next.Log.Level)
		})
		config.Watch(t.conf)
	}

	sc := bufio.NewScanner(t.stdin)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	w := bufio.NewWriter(t.stdout)
	defer w.Flush()
	matched := 0
	for sc.Scan() {
		if err := t.ctx.Err(); err != nil {
			return 0, err
		}
		if matcher.TextHasKeys(sc.Text()) {
			matched++
			fmt.Fprintln(w, sc.Text())
		}
	}
	t.logger.Debug("scan finished", "matched", matched)
	return 0, sc.Err()
}

// objectStore 返回 push 与 pull 使用的对象存储：指定了 --store 时为本地目录，否则为配置中的 MinIO。
func (t *tool) objectStore() (storage.Storage, error) {
	if t.storeDir != "" {
		return storage.NewLocalStore(t.storeDir)
	}
	if t.conf.Minio.Endpoint == "" {
		return nil, errors.New("no object store configured, set minio.endpoint or --store")
	}
	client, err := storage.NewMinIOClientFromConfig(t.conf.Minio)
	if err != nil {
		return nil, err
	}
	if err := client.EnsureBucket(t.ctx); err != nil {
		client.Close()
		return nil, err
	}
	storage.RegisterReloadHook(client)

	policy := retry.DefaultConfig()
	policy.MaxRetries = t.conf.Minio.Retries
	return storage.WithRetry(client, policy, t.logger), nil
}

// objectName 取可选的 NAME 参数，缺省为字典树名称。
func (t *tool) objectName(args []string) (string, int) {
	if len(args) > 0 {
		if _, isCmd := commands[args[0]]; !isCmd {
			return args[0], 1
		}
	}
	return t.conf.Trie.Name, 0
}

func (t *tool) push(args []string) (int, error) {
	name, n := t.objectName(args)
	store, err := t.objectStore()
	if err != nil {
		return n, err
	}
	defer store.Close()
	return n, t.trie.SaveTo(t.ctx, store, name)
}

func (t *tool) pull(args []string) (int, error) {
	name, n := t.objectName(args)
	store, err := t.objectStore()
	if err != nil {
		return n, err
	}
	defer store.Close()
	tr, err := trie.ReadFrom(t.ctx, store, name, t.options()...)
	if err != nil {
		return n, err
	}
	t.trie = tr
	t.replaced = true
	return n, nil
}
