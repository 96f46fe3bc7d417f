package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/CXRKit/internal/domain"
)

const (
	// ErrCodeNotFound 表示无参运行但 cwd 下没有 cxrkit.json。
	ErrCodeNotFound = domain.ErrCodeConfigNotFound
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = domain.ErrCodeConfigInvalid
	// ErrCodeMissingPath 表示无参运行但配置文件缺少 path 字段。
	ErrCodeMissingPath = domain.ErrCodeConfigMissingPath
)

const (
	// DefaultSource 是 source 的最终默认值（当 CLI 与配置文件都未指定时）。
	DefaultSource = "kaggle"
	// DefaultTimeoutSeconds 是单次 HTTP 请求的总超时默认值。
	// 0 表示不设总超时：归档动辄数 GB，按时长掐断没有意义
	//（连接/握手/响应头仍有独立超时兜底）。
	DefaultTimeoutSeconds = 0
)

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --extract=false 必须能覆盖 config.extract=true。
type CLIArgs struct {
	Path string

	Source    string
	SourceSet bool

	Extract    bool
	ExtractSet bool

	RawPath    string
	RawPathSet bool

	MetadataCSV    string
	MetadataCSVSet bool

	Ratios    domain.SplitRatios
	RatiosSet bool

	Seed    int64
	SeedSet bool

	Lenient    bool
	LenientSet bool
}

// FileConfig 对应 cxrkit.json 的解析结构。
type FileConfig struct {
	Path           string          `json:"path"`
	RawPath        string          `json:"raw_path"`
	MetadataCSV    string          `json:"metadata_csv"`
	Source         string          `json:"source"`
	Extract        *bool           `json:"extract"`
	Ratios         []float64       `json:"ratios"`
	Seed           *int64          `json:"seed"`
	TimeoutSeconds int             `json:"timeout_seconds"`
	Proxy          *ProxyConfig    `json:"proxy"`
	ManifestURL    string          `json:"manifest_url"`
	Lenient        *bool           `json:"lenient"`
	_              json.RawMessage `json:"-"` // 预留：暂不对未知字段报错
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// Path 是数据集根目录：train/val/test 布局与派生文件都落在这里。
	Path string
	// RawPath 是原始数据目录（fetch 的落盘目标、reorg 的输入）。
	RawPath string
	// MetadataCSV 可选：按元数据表驱动 reorg（为空则按既有 split 布局扫描）。
	MetadataCSV string

	Source  string
	Extract bool

	Ratios domain.SplitRatios

	// Seed 为 nil 表示未配置（运行时取时钟种子，划分归属不可复现）。
	Seed *int64

	// Timeout 是单次 HTTP 请求的总超时（0 表示不限）。
	Timeout  time.Duration
	ProxyURL string

	// ManifestURL 允许从 HTML 清单页刷新归档链接（可选，仅 nih 消费）。
	// 该字段属于高级能力，仅通过 cxrkit.json 配置，不暴露 CLI 参数。
	ManifestURL string

	Lenient bool
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingPath:
		return fmt.Sprintf("%s：配置文件 %q 缺少必填字段 path", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 按文档约定发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 path：尝试读取 <path>/cxrkit.json（可选）
// 2) CLI 未提供 path：必须读取 <cwd>/cxrkit.json（必选），且其中必须包含 path
//
// 覆盖优先级（固定）：
// - path：CLI path > config path
// - source/extract/raw/csv/ratios/seed/lenient：CLI > config > 默认
// - timeout/proxy/manifest_url：仅由 config 控制（CLI 不暴露）
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
	)

	if strings.TrimSpace(cli.Path) != "" {
		// CLI 给了 path：配置文件可选，位置固定在 <path>/cxrkit.json。
		absPath := absCleanFrom(cwdAbs, cli.Path)
		cfgPath = filepath.Join(absPath, "cxrkit.json")

		var exists bool
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		_ = exists // 不存在也不报错

		return merge(cwdAbs, absPath, cli, fc, cfgPath)
	}

	// CLI 没给 path：必须读取 <cwd>/cxrkit.json，且其中必须包含 path。
	cfgPath = filepath.Join(cwdAbs, "cxrkit.json")
	var exists bool
	fc, exists, err = readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if strings.TrimSpace(fc.Path) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath}
	}

	absPath := absCleanFrom(cwdAbs, fc.Path)
	return merge(cwdAbs, absPath, cli, fc, cfgPath)
}

func merge(cwdAbs, absPath string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	// source：CLI > config > 默认
	src := DefaultSource
	if cli.SourceSet {
		src = cli.Source
	} else if strings.TrimSpace(fc.Source) != "" {
		src = fc.Source
	}
	if err := validateSource(src); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	// extract：CLI > config > 默认 true
	extract := true
	if cli.ExtractSet {
		extract = cli.Extract
	} else if fc.Extract != nil {
		extract = *fc.Extract
	}

	// raw_path：CLI > config > <path>/raw
	rawPath := filepath.Join(absPath, "raw")
	if cli.RawPathSet {
		rawPath = absCleanFrom(cwdAbs, cli.RawPath)
	} else if strings.TrimSpace(fc.RawPath) != "" {
		rawPath = absCleanFrom(cwdAbs, fc.RawPath)
	}

	// metadata_csv：CLI > config > 空（空表示 reorg 走既有 split 布局扫描）。
	metadataCSV := ""
	if cli.MetadataCSVSet {
		metadataCSV = absCleanFrom(cwdAbs, cli.MetadataCSV)
	} else if strings.TrimSpace(fc.MetadataCSV) != "" {
		metadataCSV = absCleanFrom(cwdAbs, fc.MetadataCSV)
	}

	// ratios：CLI > config > 默认 0.8/0.1/0.1。
	// 任何 I/O 之前就把不合法比例拦下来（fail fast）。
	ratios := domain.DefaultSplitRatios
	if cli.RatiosSet {
		ratios = cli.Ratios
	} else if fc.Ratios != nil {
		if len(fc.Ratios) != 3 {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("ratios 必须是 3 个数，实际是 %d 个", len(fc.Ratios))}
		}
		ratios = domain.SplitRatios{Train: fc.Ratios[0], Val: fc.Ratios[1], Test: fc.Ratios[2]}
	}
	if err := ratios.Validate(); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	// seed：CLI > config > nil（运行时取时钟种子）。
	var seed *int64
	if cli.SeedSet {
		v := cli.Seed
		seed = &v
	} else if fc.Seed != nil {
		v := *fc.Seed
		seed = &v
	}

	timeoutSeconds := fc.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = DefaultTimeoutSeconds
	}
	if timeoutSeconds < 0 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("timeout_seconds 不能为负：%d", timeoutSeconds)}
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("proxy.url 无效：%w", err)}
		}
	}

	manifestURL := strings.TrimSpace(fc.ManifestURL)
	if manifestURL != "" {
		u, err := url.Parse(manifestURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("manifest_url 无效：%q", manifestURL)}
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("manifest_url 必须是 http/https：%q", manifestURL)}
		}
	}

	// lenient：CLI > config > 默认 false（stats 对不可解码图片默认整次失败）。
	lenient := false
	if cli.LenientSet {
		lenient = cli.Lenient
	} else if fc.Lenient != nil {
		lenient = *fc.Lenient
	}

	return EffectiveConfig{
		Path:        absPath,
		RawPath:     rawPath,
		MetadataCSV: metadataCSV,
		Source:      src,
		Extract:     extract,
		Ratios:      ratios,
		Seed:        seed,
		Timeout:     time.Duration(timeoutSeconds) * time.Second,
		ProxyURL:    proxyURL,
		ManifestURL: manifestURL,
		Lenient:     lenient,
	}, nil
}

func validateSource(s string) error {
	switch s {
	case "kaggle", "nih":
		return nil
	case "":
		return fmt.Errorf("source 不能为空")
	default:
		return fmt.Errorf("source 只能是 kaggle 或 nih，实际是 %q", s)
	}
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
