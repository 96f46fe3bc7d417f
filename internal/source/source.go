package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/CXRKit/internal/domain"
	"github.com/John-Robertt/CXRKit/internal/infra/httpx"
)

// Options 是一次 fetch 的输入。
type Options struct {
	// Dest 是原始数据落盘目录（按需创建）。
	Dest string
	// Extract 控制下载后是否就地解压。
	Extract bool
	// ManifestURL 可选：从该 HTML 页面刷新归档链接列表（仅 nih 消费）。
	ManifestURL string
}

// Progress 把下载进度从 Source 实现里解耦出来（由 CLI 决定如何展示）。
//
// OnArchiveStart 返回的 writer 会被接入下载流（可为 nil 表示不关心字节进度）。
// size 为 -1 表示源站未给出 Content-Length。
type Progress interface {
	OnArchiveStart(idx, total int, name string, size int64) io.Writer
	OnArchiveDone(idx, total int, name string, written int64, dur time.Duration)
}

// Source 是一个可下载的数据源（kaggle/nih）。
//
// 约束：
// - Fetch 不做重试/断点续传：单个归档失败即整次失败（上层契约）
// - 归档命名与下载顺序由实现保证稳定（可与上游文档逐一对应）
type Source interface {
	Name() string
	Fetch(ctx context.Context, c *http.Client, opt Options, p Progress) ([]domain.ArchiveResult, error)
}

// Registry 是按名字查找 Source 的只读注册表。
type Registry map[string]Source

// NewRegistry 构造注册表；重名视为编程错误。
func NewRegistry(sources ...Source) (Registry, error) {
	reg := make(Registry, len(sources))
	for _, s := range sources {
		name := strings.ToLower(strings.TrimSpace(s.Name()))
		if name == "" {
			return nil, fmt.Errorf("source 名字不能为空")
		}
		if _, dup := reg[name]; dup {
			return nil, fmt.Errorf("source 重名：%q", name)
		}
		reg[name] = s
	}
	return reg, nil
}

// Lookup 按名字取 Source。
func (r Registry) Lookup(name string) (Source, error) {
	s, ok := r[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("未知 source：%q", name)
	}
	return s, nil
}

// Download 把 rawURL 下载为 destDir/name。
//
// - 先写 <name>.part 再 rename，避免中断后留下半截归档被误认为完整
// - sinkFn 在拿到响应头后调用一次（参数是 Content-Length，未知为 -1），
//   返回的 writer 被接入下载流；返回 nil 表示不关心字节进度。
//   写 sink 失败不影响下载本身。
func Download(ctx context.Context, c *http.Client, rawURL, destDir, name string, sinkFn func(size int64) io.Writer) (int64, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return 0, err
	}

	resp, err := httpx.Get(ctx, c, rawURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var sink io.Writer
	if sinkFn != nil {
		size := resp.ContentLength
		if size < 0 {
			size = -1
		}
		sink = sinkFn(size)
	}

	dst := filepath.Join(destDir, name)
	part := dst + ".part"

	out, err := os.OpenFile(part, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}

	var w io.Writer = out
	if sink != nil {
		w = io.MultiWriter(out, nopErrWriter{sink})
	}

	written, err := io.Copy(w, resp.Body)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(part)
		return written, err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(part)
		return written, err
	}
	if err := os.Rename(part, dst); err != nil {
		return written, err
	}
	return written, nil
}

// nopErrWriter 吞掉进度 writer 的错误：展示层故障不该让下载失败。
type nopErrWriter struct{ w io.Writer }

func (n nopErrWriter) Write(p []byte) (int, error) {
	_, _ = n.w.Write(p)
	return len(p), nil
}
