// trietool 是维护持久化字典树的命令行工具。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/wyfcoding/datrie/alphamap"
	"github.com/wyfcoding/datrie/config"
	"github.com/wyfcoding/datrie/logging"
	"github.com/wyfcoding/datrie/metrics"
	"github.com/wyfcoding/datrie/trie"
)

// Version 在构建时通过 -ldflags "-X main.Version=..." 注入。
var Version = "dev"

const usageText = `Usage: trietool [OPTION]... TRIE CMD ARG ...
Options:
  -p, --path DIR           set trie directory to DIR [default=.]
  -c, --config FILE        read settings from the TOML file FILE
  -a, --alphabet FILE      alphabet ranges used when TRIE does not exist yet
      --store DIR          use DIR as object store for push and pull instead of MinIO
      --metrics-addr ADDR  expose Prometheus metrics on ADDR
  -h, --help               display this help and exit
  -V, --version            output version information and exit

Commands:
  add  WORD DATA ...       add WORD with DATA to trie
  add-list LISTFILE        add WORD and DATA from LISTFILE to trie
  delete WORD ...          delete WORD from trie
  delete-list LISTFILE     delete words listed in LISTFILE from trie
  query WORD               query WORD data from trie
  list                     list all words in trie
  children PREFIX          list words starting with PREFIX
  scan                     print stdin lines that contain a word of trie
  push [NAME]              upload trie to the object store
  pull [NAME]              replace trie with the copy in the object store
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run 执行一次命令行调用并返回进程退出码。
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("trietool", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetInterspersed(false)
	flags.Usage = func() { fmt.Fprint(stderr, usageText) }

	path := flags.StringP("path", "p", "", "set trie directory to DIR")
	cfgFile := flags.StringP("config", "c", "", "read settings from FILE")
	alphaFile := flags.StringP("alphabet", "a", "", "alphabet ranges for a new trie")
	storeDir := flags.String("store", "", "local object store directory")
	metricsAddr := flags.String("metrics-addr", "", "expose Prometheus metrics on ADDR")
	showVersion := flags.BoolP("version", "V", false, "output version information and exit")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}
	if *showVersion {
		fmt.Fprintf(stdout, "trietool %s\n", Version)
		return 0
	}
	rest := flags.Args()
	if len(rest) < 2 {
		fmt.Fprint(stderr, usageText)
		return 1
	}

	conf, err := config.Load(*cfgFile)
	if err != nil {
		fmt.Fprintf(stderr, "trietool: %v\n", err)
		return 1
	}
	if *path != "" {
		conf.Trie.Dir = *path
	}
	conf.Trie.Name = rest[0]
	if *metricsAddr != "" {
		conf.Metrics.Enabled = true
		conf.Metrics.Addr = *metricsAddr
	}
	if err := config.Validate(conf); err != nil {
		fmt.Fprintf(stderr, "trietool: %v\n", err)
		return 1
	}

	logCfg := conf.Log.Logging("trietool", "cli")
	logCfg.Output = stderr
	logger := logging.NewFromConfig(logCfg)
	logging.SetDefault(logger)

	m := metrics.NewMetrics("trietool")
	m.RegisterBuildInfo("trietool", Version)
	if conf.Metrics.Enabled {
		stop := m.ExposeHttp(conf.Metrics.Addr)
		defer stop()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	app := &tool{
		ctx:      ctx,
		conf:     conf,
		cfgFile:  *cfgFile,
		storeDir: *storeDir,
		logger:   logger,
		metrics:  m,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
	}
	if err := app.open(*alphaFile); err != nil {
		fmt.Fprintf(stderr, "trietool: cannot open trie %s: %v\n", conf.Trie.Base(), err)
		return 1
	}
	generation := app.trie.Generation()

	status := app.dispatch(rest[1:])

	if app.trie.Generation() != generation || app.replaced {
		if err := app.trie.Save(conf.Trie.Base()); err != nil {
			fmt.Fprintf(stderr, "trietool: cannot save trie %s: %v\n", conf.Trie.Base(), err)
			return 1
		}
	}
	return status
}

// open 读取已有的字典树；不存在时按字母表新建。
// 字母表依次取自 alphaFile、与字典树同名的 .abm 文件、配置。
func (t *tool) open(alphaFile string) error {
	base := t.conf.Trie.Base()
	opts := t.options()
	if trie.Exists(base) {
		tr, err := trie.Read(base, opts...)
		if err != nil {
			return err
		}
		t.trie = tr
		return nil
	}

	if alphaFile == "" {
		if candidate := base + ".abm"; fileExists(candidate) {
			alphaFile = candidate
		}
	}
	var (
		alpha *alphamap.AlphaMap
		err   error
	)
	if alphaFile != "" {
		alpha, err = readAlphabet(alphaFile)
	} else {
		alpha, err = t.conf.Trie.AlphaMap()
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return err
	}
	t.logger.Debug("creating trie", slog.String("base", base), slog.Int("alphabet_size", alpha.Size()))
	t.trie = trie.NewWithAlphaMap(alpha, opts...)
	return nil
}

func readAlphabet(name string) (*alphamap.AlphaMap, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	alpha, err := alphamap.ParseText(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return alpha, nil
}

func fileExists(name string) bool {
	info, err := os.Stat(name)
	return err == nil && !info.IsDir()
}
