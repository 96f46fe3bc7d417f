package run

import (
	"io"
	"time"

	"github.com/John-Robertt/CXRKit/internal/config"
	"github.com/John-Robertt/CXRKit/internal/source"
)

// Observer 用于把“运行进度/阶段信息”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 所有事件都在单 goroutine 里按序触发（实现不需要并发安全）。
type Observer interface {
	// OnStart 在命令开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig, command string)
	// OnPhaseDone 在阶段结束时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnFileDone 在单个文件处理完成时调用（复制/解码等按文件推进的阶段）。
	OnFileDone(done, total int, label string)
	// OnArchiveStart 在单个归档开始下载时调用；返回的 writer 接入下载字节流
	//（可为 nil 表示不关心字节进度）。size 为 -1 表示源站未给出 Content-Length。
	OnArchiveStart(idx, total int, name string, size int64) io.Writer
	// OnArchiveDone 在单个归档下载完成时调用。
	OnArchiveDone(idx, total int, name string, written int64, dur time.Duration)
}

// progressAdapter 把 Observer 的归档事件适配成 source.Progress。
type progressAdapter struct{ obs Observer }

func (p progressAdapter) OnArchiveStart(idx, total int, name string, size int64) io.Writer {
	return p.obs.OnArchiveStart(idx, total, name, size)
}

func (p progressAdapter) OnArchiveDone(idx, total int, name string, written int64, dur time.Duration) {
	p.obs.OnArchiveDone(idx, total, name, written, dur)
}

func asProgress(obs Observer) source.Progress {
	if obs == nil {
		return nil
	}
	return progressAdapter{obs: obs}
}
