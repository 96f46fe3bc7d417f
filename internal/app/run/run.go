package run

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/John-Robertt/CXRKit/internal/app/splitter"
	"github.com/John-Robertt/CXRKit/internal/config"
	"github.com/John-Robertt/CXRKit/internal/domain"
	"github.com/John-Robertt/CXRKit/internal/infra/fsx"
	"github.com/John-Robertt/CXRKit/internal/infra/httpx"
	"github.com/John-Robertt/CXRKit/internal/label"
	"github.com/John-Robertt/CXRKit/internal/meta"
	"github.com/John-Robertt/CXRKit/internal/scan"
	"github.com/John-Robertt/CXRKit/internal/source"
	"github.com/John-Robertt/CXRKit/internal/stats"
	"github.com/John-Robertt/CXRKit/internal/tab"
)

// 派生产物的固定文件名（落在数据集根目录下）。
const (
	CountsFileName = "dataset_counts.txt"
	StatsFileName  = "dataset_stats.json"
)

// Fetch 执行一次 fetch：按 source 下载归档到 raw 目录，按需就地解压。
// 失败不重试、不续传：报告里记录失败前已完成的归档。
func Fetch(ctx context.Context, eff config.EffectiveConfig, reg source.Registry, obs Observer) domain.RunReport {
	rr := begin(eff, "fetch", obs)

	client, err := httpx.NewDownloadClient(eff.ProxyURL, eff.Timeout)
	if err != nil {
		return fail(rr, domain.ErrCodeConfigInvalid, fmt.Sprintf("proxy.url 无效：%v", err))
	}

	src, err := reg.Lookup(eff.Source)
	if err != nil {
		return fail(rr, domain.ErrCodeConfigInvalid, err.Error())
	}

	fetchStarted := time.Now()
	results, err := src.Fetch(ctx, client, source.Options{
		Dest:        eff.RawPath,
		Extract:     eff.Extract,
		ManifestURL: eff.ManifestURL,
	}, asProgress(obs))
	rr.Archives = results
	if err != nil {
		return fail(rr, domain.ErrCodeFetchFailed, err.Error())
	}

	if obs != nil {
		var bytes int64
		for _, a := range results {
			bytes += a.Bytes
		}
		obs.OnPhaseDone("fetch", map[string]any{
			"source":   src.Name(),
			"archives": len(results),
			"bytes":    bytes,
		}, time.Since(fetchStarted))
	}
	return finish(rr)
}

// Reorg 执行一次重组：收集原始图片、洗牌、按比例划分、复制到规范布局。
//
// 硬约束：
// - 只复制不移动：原始数据永远不被改动
// - 两个类别独立划分（各自洗牌、各自按比例切片）
// - 单个文件复制失败即整次失败（已复制的文件保留，重跑等价于重写）
func Reorg(eff config.EffectiveConfig, obs Observer) domain.RunReport {
	rr := begin(eff, "reorg", obs)

	// 种子策略：配置了 seed 则划分归属跨次运行可复现；否则取时钟种子，
	// 报告里记下实际用的种子并标记 seeded=false。
	var seed int64
	if eff.Seed != nil {
		seed = *eff.Seed
	} else {
		seed = time.Now().UnixNano()
	}
	rr.Seed = &seed
	rr.Seeded = eff.Seed != nil
	rng := rand.New(rand.NewSource(seed))

	collectStarted := time.Now()
	byClass, warns, err := collectImages(eff)
	if err != nil {
		return fail(rr, domain.ErrCodeIOFailed, err.Error())
	}
	rr.Warnings = append(rr.Warnings, warns...)

	if obs != nil {
		total := 0
		for _, paths := range byClass {
			total += len(paths)
		}
		obs.OnPhaseDone("collect", map[string]any{
			"images": total,
		}, time.Since(collectStarted))
	}

	// 规范布局的六个目录先建好：空划分也要有目录（后续 count 按 0 计不告警）。
	for _, s := range domain.Splits() {
		for _, c := range domain.Classes() {
			if err := os.MkdirAll(filepath.Join(eff.Path, string(s), string(c)), 0o755); err != nil {
				return fail(rr, domain.ErrCodeIOFailed, err.Error())
			}
		}
	}

	// 划分计划：两个类别独立洗牌/切片，但共用同一随机源（顺序固定，可复现）。
	type classPlan struct {
		class domain.Class
		ops   []splitter.CopyOp
		sizes splitter.Sizes
	}
	plans := make([]classPlan, 0, 2)
	totalOps := 0
	for _, c := range domain.Classes() {
		ops, sizes, err := splitter.Plan(eff.Path, c, byClass[c], eff.Ratios, rng)
		if err != nil {
			return fail(rr, domain.ErrCodeConfigInvalid, err.Error())
		}
		plans = append(plans, classPlan{class: c, ops: ops, sizes: sizes})
		totalOps += len(ops)
	}

	copyStarted := time.Now()
	done := 0
	for _, p := range plans {
		copied := 0
		for _, op := range p.ops {
			if err := fsx.CopyFile(op.SrcAbs, op.DstAbs); err != nil {
				rr.Classes = append(rr.Classes, classSummary(p.class, len(p.ops), p.sizes, copied))
				return fail(rr, domain.ErrCodeIOFailed, fmt.Sprintf("复制 %q 失败：%v", op.SrcAbs, err))
			}
			copied++
			done++
			if obs != nil {
				obs.OnFileDone(done, totalOps, filepath.Base(op.DstAbs))
			}
		}
		rr.Classes = append(rr.Classes, classSummary(p.class, len(p.ops), p.sizes, copied))
	}

	if obs != nil {
		obs.OnPhaseDone("copy", map[string]any{
			"files": totalOps,
		}, time.Since(copyStarted))
	}
	return finish(rr)
}

// collectImages 收集每个类别的原始图片绝对路径。
//
// 两种来源（互斥，由配置决定）：
// - metadata_csv 为空：原始数据本身已是 split 布局，按目录扫描归类
// - metadata_csv 非空：按元数据表逐行判定类别，图片位于 <raw>/images/ 下；
//   标签不匹配任何类别的行静默跳过（既非告警也非错误）
func collectImages(eff config.EffectiveConfig) (map[domain.Class][]string, []domain.Warning, error) {
	// raw 根目录缺失必须是硬错误：单个 split 子目录缺失可以跳过（原始布局
	// 不保证三个 split 都在），但根目录不存在只可能是配置写错了，静默扫出
	// 0 张图会把一次打字错误变成“成功”的空数据集。
	fi, err := os.Stat(eff.RawPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("原始数据目录不存在：%q", eff.RawPath)
		}
		return nil, nil, err
	}
	if !fi.IsDir() {
		return nil, nil, fmt.Errorf("原始数据路径不是目录：%q", eff.RawPath)
	}

	byClass := make(map[domain.Class][]string, 2)
	var warns []domain.Warning

	if eff.MetadataCSV == "" {
		for _, c := range domain.Classes() {
			files, err := scan.ClassImages(eff.RawPath, c)
			if err != nil {
				return nil, nil, err
			}
			paths := make([]string, 0, len(files))
			for _, f := range files {
				paths = append(paths, f.AbsPath)
			}
			byClass[c] = paths
		}
		return byClass, warns, nil
	}

	entries, err := meta.ReadEntries(eff.MetadataCSV)
	if err != nil {
		return nil, nil, fmt.Errorf("读取元数据表失败：%w", err)
	}
	imagesDir := filepath.Join(eff.RawPath, "images")
	for _, e := range entries {
		c, ok := label.Classify(e.FindingLabels)
		if !ok {
			continue
		}
		abs := filepath.Join(imagesDir, e.ImageIndex)
		if _, err := os.Stat(abs); err != nil {
			if os.IsNotExist(err) {
				// 元数据覆盖全集，而图片可能只下载了部分归档：按告警跳过。
				warns = append(warns, domain.Warning{
					Code: domain.WarnSkippedImage,
					Path: abs,
					Msg:  "元数据表引用的图片不存在",
				})
				continue
			}
			return nil, nil, err
		}
		byClass[c] = append(byClass[c], abs)
	}
	return byClass, warns, nil
}

func classSummary(c domain.Class, images int, s splitter.Sizes, copied int) domain.ClassSummary {
	return domain.ClassSummary{
		Class:  string(c),
		Images: images,
		Train:  s.Train,
		Val:    s.Val,
		Test:   s.Test,
		Copied: copied,
	}
}

// Count 执行一次计数：统计规范布局六个格子的文件数，写出制表符分隔的计数表。
// 缺失目录按 0 计并产生 warning（不致命）。
func Count(eff config.EffectiveConfig, obs Observer) domain.RunReport {
	rr := begin(eff, "count", obs)

	countStarted := time.Now()
	table := domain.NewCountTable()
	for _, s := range domain.Splits() {
		for _, c := range domain.Classes() {
			files, exists, err := scan.SplitFiles(eff.Path, s, c)
			if err != nil {
				return fail(rr, domain.ErrCodeIOFailed, err.Error())
			}
			if !exists {
				rr.Warnings = append(rr.Warnings, domain.Warning{
					Code: domain.WarnMissingFolder,
					Path: filepath.Join(eff.Path, string(s), string(c)),
					Msg:  "目录不存在，按 0 计",
				})
			}
			table.Set(s, c, len(files))
		}
	}

	if err := fsx.WriteFileAtomicReplace(eff.Path, CountsFileName, tab.EncodeCounts(table)); err != nil {
		return fail(rr, domain.ErrCodeIOFailed, fmt.Sprintf("写入计数表失败：%v", err))
	}
	rr.Counts = table
	rr.Artifacts = append(rr.Artifacts, filepath.Join(eff.Path, CountsFileName))

	if obs != nil {
		obs.OnPhaseDone("count", map[string]any{
			"total": table.GrandTotal(),
		}, time.Since(countStarted))
	}
	return finish(rr)
}

// Stats 执行一次统计：解码规范布局下的全部图片，计算总体像素均值/标准差，
// 写出 JSON 产物。
//
// 解码失败的处理由 lenient 决定：
// - 默认：整次失败，不写产物（残缺输入算出来的统计没有意义）
// - lenient：跳过该图并记 warning，其余图片照常参与统计
func Stats(eff config.EffectiveConfig, dec stats.Decoder, obs Observer) domain.RunReport {
	rr := begin(eff, "stats", obs)

	scanStarted := time.Now()
	var files []domain.ImageFile
	for _, s := range domain.Splits() {
		for _, c := range domain.Classes() {
			fs, exists, err := scan.SplitFiles(eff.Path, s, c)
			if err != nil {
				return fail(rr, domain.ErrCodeIOFailed, err.Error())
			}
			if !exists {
				rr.Warnings = append(rr.Warnings, domain.Warning{
					Code: domain.WarnMissingFolder,
					Path: filepath.Join(eff.Path, string(s), string(c)),
					Msg:  "目录不存在，跳过",
				})
				continue
			}
			files = append(files, fs...)
		}
	}
	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{
			"files": len(files),
		}, time.Since(scanStarted))
	}

	decodeStarted := time.Now()
	var acc stats.Accumulator
	for i, f := range files {
		px, err := dec.DecodeNormalized(f.AbsPath)
		if err != nil {
			if !eff.Lenient {
				return fail(rr, domain.ErrCodeDecodeFailed, fmt.Sprintf("解码 %q 失败：%v", f.AbsPath, err))
			}
			rr.Warnings = append(rr.Warnings, domain.Warning{
				Code: domain.WarnSkippedImage,
				Path: f.AbsPath,
				Msg:  fmt.Sprintf("解码失败，跳过：%v", err),
			})
			continue
		}
		acc.Add(px)
		if obs != nil {
			obs.OnFileDone(i+1, len(files), f.RelPath)
		}
	}

	st, err := acc.Finalize()
	if err != nil {
		return fail(rr, domain.ErrCodeIOFailed, err.Error())
	}

	b, err := json.Marshal(st)
	if err != nil {
		return fail(rr, domain.ErrCodeIOFailed, err.Error())
	}
	b = append(b, '\n')
	if err := fsx.WriteFileAtomicReplace(eff.Path, StatsFileName, b); err != nil {
		return fail(rr, domain.ErrCodeIOFailed, fmt.Sprintf("写入统计产物失败：%v", err))
	}
	rr.Stats = &st
	rr.Artifacts = append(rr.Artifacts, filepath.Join(eff.Path, StatsFileName))

	if obs != nil {
		obs.OnPhaseDone("decode", map[string]any{
			"pixels": acc.Count(),
		}, time.Since(decodeStarted))
	}
	return finish(rr)
}

func begin(eff config.EffectiveConfig, command string, obs Observer) domain.RunReport {
	if obs != nil {
		obs.OnStart(eff, command)
	}
	return domain.RunReport{
		Command:   command,
		Path:      eff.Path,
		StartedAt: time.Now().UTC(),
	}
}

func fail(rr domain.RunReport, code, msg string) domain.RunReport {
	rr.ErrorCode = code
	rr.ErrorMsg = msg
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

func finish(rr domain.RunReport) domain.RunReport {
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}
