package domain

import (
	"sort"
	"time"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const (
	// 配置类（任何 I/O 之前失败）。
	ErrCodeConfigNotFound    = "config_not_found"
	ErrCodeConfigInvalid     = "config_invalid"
	ErrCodeConfigMissingPath = "config_missing_path"

	// 运行类。
	ErrCodeIOFailed     = "io_failed"
	ErrCodeDecodeFailed = "decode_failed"
	ErrCodeFetchFailed  = "fetch_failed"
)

const (
	// WarnMissingFolder：规范布局下缺失 split/class 目录（按 0 计，不致命）。
	WarnMissingFolder = "missing_folder"
	// WarnSkippedImage：lenient 模式下跳过的不可解码图片。
	WarnSkippedImage = "skipped_image"
)

// Warning 是非致命问题的结构化表示（代替散落的 print）。
type Warning struct {
	Code string `json:"code"`
	Path string `json:"path"`
	Msg  string `json:"msg"`
}

// ClassSummary 是 reorg 命令里每个类别的划分结果。
type ClassSummary struct {
	Class  string `json:"class"`
	Images int    `json:"images"`
	Train  int    `json:"train"`
	Val    int    `json:"val"`
	Test   int    `json:"test"`
	Copied int    `json:"copied"`
}

// ArchiveResult 是 fetch 命令里每个归档的下载/解压结果。
type ArchiveResult struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Bytes     int64  `json:"bytes"`
	Extracted bool   `json:"extracted"`
}

// RunReport 是对外稳定输出（stdout JSON）的结构。
// 四个子命令共用同一外壳；命令专属字段缺省时省略。
type RunReport struct {
	Command string `json:"command"`
	Path    string `json:"path"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	// Seed 仅 reorg 输出：记录实际使用的随机种子。
	// Seeded=false 表示种子来自时钟，划分归属跨次运行不可复现。
	Seed   *int64 `json:"seed,omitempty"`
	Seeded bool   `json:"seeded,omitempty"`

	Warnings []Warning `json:"warnings"`

	Classes  []ClassSummary  `json:"classes,omitempty"`
	Archives []ArchiveResult `json:"archives,omitempty"`
	Counts   *CountTable     `json:"counts,omitempty"`
	Stats    *Stats          `json:"stats,omitempty"`

	// Artifacts 是本次运行写入 <path> 的派生文件（绝对路径）。
	Artifacts []string `json:"artifacts"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) warnings/classes/artifacts 稳定排序（不依赖 map/遍历顺序）
// 3) status 由 error_code 推导
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Warnings == nil {
		r.Warnings = []Warning{}
	}
	sort.SliceStable(r.Warnings, func(i, j int) bool {
		if r.Warnings[i].Code != r.Warnings[j].Code {
			return r.Warnings[i].Code < r.Warnings[j].Code
		}
		return r.Warnings[i].Path < r.Warnings[j].Path
	})

	sort.SliceStable(r.Classes, func(i, j int) bool { return r.Classes[i].Class < r.Classes[j].Class })

	if r.Artifacts == nil {
		r.Artifacts = []string{}
	}
	sort.Strings(r.Artifacts)

	if r.ErrorCode == "" {
		r.Status = StatusOK
	} else {
		r.Status = StatusFailed
	}
}

// FailedReport 构造一条命令级失败报告（配置错误等流程早期的失败）。
func FailedReport(command, path, code, msg string) RunReport {
	now := time.Now().UTC()
	rr := RunReport{
		Command:    command,
		Path:       path,
		StartedAt:  now,
		FinishedAt: now,
		ErrorCode:  code,
		ErrorMsg:   msg,
	}
	rr.Finalize()
	return rr
}
