package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/John-Robertt/CXRKit/internal/app/run"
	"github.com/John-Robertt/CXRKit/internal/config"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是一个“简洁版”的交互终端进度输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - 归档下载用字节进度条；按文件推进的阶段做节流输出（避免几千行刷屏）
type progressUI struct {
	w io.Writer

	startedAt time.Time

	// bar 是当前归档的下载进度条（同一时刻至多一个归档在下载）。
	bar *progressbar.ProgressBar

	// fileEvery 控制 OnFileDone 的节流间隔。
	fileEvery   time.Duration
	lastFileAt  time.Time
	filePrinted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:         w,
		fileEvery: 500 * time.Millisecond,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig, command string) {
	now := time.Now()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "[%s] CXRKit %s\n", now.Format("15:04:05"), command)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  path: %s\n", eff.Path)
	switch command {
	case "fetch":
		fmt.Fprintf(p.w, "  source: %s\n", eff.Source)
		fmt.Fprintf(p.w, "  raw: %s\n", eff.RawPath)
		fmt.Fprintf(p.w, "  extract: %s\n", onOff(eff.Extract))
		fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
		if eff.Timeout > 0 {
			fmt.Fprintf(p.w, "  timeout: %s\n", eff.Timeout)
		}
		if strings.TrimSpace(eff.ManifestURL) != "" {
			fmt.Fprintf(p.w, "  manifest_url: %s\n", truncate(eff.ManifestURL, 120))
		}
	case "reorg":
		fmt.Fprintf(p.w, "  raw: %s\n", eff.RawPath)
		if eff.MetadataCSV != "" {
			fmt.Fprintf(p.w, "  csv: %s\n", eff.MetadataCSV)
		}
		fmt.Fprintf(p.w, "  ratios: %g/%g/%g\n", eff.Ratios.Train, eff.Ratios.Val, eff.Ratios.Test)
		if eff.Seed != nil {
			fmt.Fprintf(p.w, "  seed: %d\n", *eff.Seed)
		} else {
			fmt.Fprintln(p.w, "  seed: (时钟，划分不可复现)")
		}
	case "stats":
		fmt.Fprintf(p.w, "  lenient: %s\n", onOff(eff.Lenient))
	}
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.flushFileLineBreak()

	switch name {
	case "fetch":
		fmt.Fprintf(p.w, "下载: source=%s archives=%d bytes=%s (%s)\n",
			stringField(fields, "source"),
			intField(fields, "archives"),
			humanize.Bytes(uint64(int64Field(fields, "bytes"))),
			formatShortDuration(dur),
		)
	case "collect":
		fmt.Fprintf(p.w, "收集: images=%d (%s)\n",
			intField(fields, "images"), formatShortDuration(dur),
		)
	case "copy":
		fmt.Fprintf(p.w, "复制: files=%d (%s)\n",
			intField(fields, "files"), formatShortDuration(dur),
		)
	case "count":
		fmt.Fprintf(p.w, "计数: total=%d (%s)\n",
			intField(fields, "total"), formatShortDuration(dur),
		)
	case "scan":
		fmt.Fprintf(p.w, "扫描: files=%d (%s)\n",
			intField(fields, "files"), formatShortDuration(dur),
		)
	case "decode":
		fmt.Fprintf(p.w, "解码: pixels=%d (%s)\n",
			int64Field(fields, "pixels"), formatShortDuration(dur),
		)
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (p *progressUI) OnFileDone(done, total int, label string) {
	// 节流：只在间隔到点或最后一个文件时打一行（覆盖式单行）。
	now := time.Now()
	if done < total && now.Sub(p.lastFileAt) < p.fileEvery {
		return
	}
	p.lastFileAt = now
	p.filePrinted = true
	fmt.Fprintf(p.w, "\r[%d/%d] %s\x1b[K", done, total, truncate(label, 60))
	if done >= total {
		p.flushFileLineBreak()
	}
}

// flushFileLineBreak 结束覆盖式单行输出（为后续整行输出让位）。
func (p *progressUI) flushFileLineBreak() {
	if p.filePrinted {
		fmt.Fprintln(p.w)
		p.filePrinted = false
	}
}

func (p *progressUI) OnArchiveStart(idx, total int, name string, size int64) io.Writer {
	p.bar = progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription(fmt.Sprintf("[%d/%d] %s", idx, total, name)),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(24),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSpinnerType(14),
	)
	return p.bar
}

func (p *progressUI) OnArchiveDone(idx, total int, name string, written int64, dur time.Duration) {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
	fmt.Fprintf(p.w, "[%d/%d] %s %s (%s)\n",
		idx, total, name, humanize.Bytes(uint64(written)), formatShortDuration(dur),
	)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func intField(fields map[string]any, key string) int {
	return int(int64Field(fields, key))
}

func int64Field(fields map[string]any, key string) int64 {
	if fields == nil {
		return 0
	}
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	default:
		return 0
	}
}

func stringField(fields map[string]any, key string) string {
	if fields == nil {
		return ""
	}
	if s, ok := fields[key].(string); ok {
		return s
	}
	return ""
}
