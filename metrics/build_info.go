package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

// RegisterBuildInfo 注册 datrie_build_info，标出工具名、发布版本与编译所用的 Go 版本。
// 重复调用只保留第一次的值。
func (m *Metrics) RegisterBuildInfo(tool, version string) {
	if m == nil || m.BuildInfo != nil {
		return
	}
	if version == "" {
		version = "dev"
	}

	m.BuildInfo = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "datrie_build_info",
		Help: "Constant 1, labelled with the datrie tool, its release and the Go toolchain that built it.",
	}, []string{"tool", "version", "go_version"})
	m.BuildInfo.WithLabelValues(tool, version, runtime.Version()).Set(1)
}
