package kaggle

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/CXRKit/internal/archive"
	"github.com/John-Robertt/CXRKit/internal/domain"
	"github.com/John-Robertt/CXRKit/internal/source"
)

// DefaultHandle 是托管数据集的固定引用（owner/dataset）。
const DefaultHandle = "paultimothymooney/chest-xray-pneumonia"

const defaultBaseURL = "https://www.kaggle.com"

// Source 通过公开下载端点拉取托管数据集的整包 zip。
//
// 包内已经是 chest_xray/{train,val,test}/{NORMAL,PNEUMONIA}/ 的预划分布局，
// 解压后可直接作为 reorg 的原始输入。
type Source struct {
	// BaseURL 允许测试替换端点（为空则用官方域名）。
	BaseURL string
	// Handle 允许覆盖数据集引用（为空则用内置默认）。
	Handle string
}

func (Source) Name() string { return "kaggle" }

func (s Source) Fetch(ctx context.Context, c *http.Client, opt source.Options, p source.Progress) ([]domain.ArchiveResult, error) {
	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	handle := strings.TrimSpace(s.Handle)
	if handle == "" {
		handle = DefaultHandle
	}

	// 归档名取 dataset 段（与浏览器下载同名）。
	name := handle
	if i := strings.LastIndexByte(handle, '/'); i >= 0 {
		name = handle[i+1:]
	}
	name += ".zip"

	rawURL := base + "/api/v1/datasets/download/" + handle

	started := time.Now()
	var sinkFn func(size int64) io.Writer
	if p != nil {
		sinkFn = func(size int64) io.Writer {
			return p.OnArchiveStart(1, 1, name, size)
		}
	}
	written, err := source.Download(ctx, c, rawURL, opt.Dest, name, sinkFn)
	if err != nil {
		return nil, err
	}
	if p != nil {
		p.OnArchiveDone(1, 1, name, written, time.Since(started))
	}

	res := domain.ArchiveResult{
		Name:  name,
		URL:   rawURL,
		Bytes: written,
	}
	if opt.Extract {
		if err := archive.Extract(filepath.Join(opt.Dest, name), opt.Dest); err != nil {
			return []domain.ArchiveResult{res}, err
		}
		res.Extracted = true
	}
	return []domain.ArchiveResult{res}, nil
}
