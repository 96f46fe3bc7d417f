package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/John-Robertt/CXRKit/internal/app/run"
	"github.com/John-Robertt/CXRKit/internal/config"
	"github.com/John-Robertt/CXRKit/internal/domain"
	"github.com/John-Robertt/CXRKit/internal/infra/imgx"
	"github.com/John-Robertt/CXRKit/internal/source"
	"github.com/John-Robertt/CXRKit/internal/source/kaggle"
	"github.com/John-Robertt/CXRKit/internal/source/nih"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "fetch", "reorg", "count", "stats":
		if code := runCmd(args[0], args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runCmd(command string, args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printCmdUsage(command)
			return 0
		}
	}

	cli, err := parseArgs(command, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printCmdUsage(command)
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	cwdAbs, _ := filepath.Abs(cwd)

	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		rr := domain.FailedReport(command, cwdAbs, config.Code(err), err.Error())
		emitReport(rr)
		return 1
	}

	reg, e := source.NewRegistry(
		kaggle.Source{},
		nih.Source{},
	)
	if e != nil {
		fmt.Fprintf(os.Stderr, "初始化 source registry 失败：%v\n", e)
		return 1
	}

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	var rr domain.RunReport
	switch command {
	case "fetch":
		rr = run.Fetch(context.Background(), eff, reg, obs)
	case "reorg":
		rr = run.Reorg(eff, obs)
	case "count":
		rr = run.Count(eff, obs)
	case "stats":
		rr = run.Stats(eff, imgx.FileDecoder{}, obs)
	}

	emitReport(rr)
	if rr.Status == domain.StatusOK {
		return 0
	}
	return 1
}

// parseArgs 手工解析子命令参数（统一的 flag 表，按需生效）。
// path 是唯一的位置参数。
func parseArgs(command string, args []string) (config.CLIArgs, error) {
	cli := config.CLIArgs{}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--source":
			if i+1 >= len(args) {
				return config.CLIArgs{}, fmt.Errorf("--source 需要一个值")
			}
			i++
			cli.Source = args[i]
			cli.SourceSet = true
		case strings.HasPrefix(a, "--source="):
			cli.Source = strings.TrimPrefix(a, "--source=")
			cli.SourceSet = true
		case a == "--extract":
			cli.Extract = true
			cli.ExtractSet = true
		case strings.HasPrefix(a, "--extract="):
			v, err := parseBoolFlag("--extract", strings.TrimPrefix(a, "--extract="))
			if err != nil {
				return config.CLIArgs{}, err
			}
			cli.Extract = v
			cli.ExtractSet = true
		case a == "--raw":
			if i+1 >= len(args) {
				return config.CLIArgs{}, fmt.Errorf("--raw 需要一个值")
			}
			i++
			cli.RawPath = args[i]
			cli.RawPathSet = true
		case strings.HasPrefix(a, "--raw="):
			cli.RawPath = strings.TrimPrefix(a, "--raw=")
			cli.RawPathSet = true
		case a == "--csv":
			if i+1 >= len(args) {
				return config.CLIArgs{}, fmt.Errorf("--csv 需要一个值")
			}
			i++
			cli.MetadataCSV = args[i]
			cli.MetadataCSVSet = true
		case strings.HasPrefix(a, "--csv="):
			cli.MetadataCSV = strings.TrimPrefix(a, "--csv=")
			cli.MetadataCSVSet = true
		case a == "--ratios":
			if i+1 >= len(args) {
				return config.CLIArgs{}, fmt.Errorf("--ratios 需要一个值")
			}
			i++
			r, err := parseRatios(args[i])
			if err != nil {
				return config.CLIArgs{}, err
			}
			cli.Ratios = r
			cli.RatiosSet = true
		case strings.HasPrefix(a, "--ratios="):
			r, err := parseRatios(strings.TrimPrefix(a, "--ratios="))
			if err != nil {
				return config.CLIArgs{}, err
			}
			cli.Ratios = r
			cli.RatiosSet = true
		case a == "--seed":
			if i+1 >= len(args) {
				return config.CLIArgs{}, fmt.Errorf("--seed 需要一个值")
			}
			i++
			v, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil {
				return config.CLIArgs{}, fmt.Errorf("--seed 必须是整数，实际是 %q", args[i])
			}
			cli.Seed = v
			cli.SeedSet = true
		case strings.HasPrefix(a, "--seed="):
			raw := strings.TrimPrefix(a, "--seed=")
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return config.CLIArgs{}, fmt.Errorf("--seed 必须是整数，实际是 %q", raw)
			}
			cli.Seed = v
			cli.SeedSet = true
		case a == "--lenient":
			cli.Lenient = true
			cli.LenientSet = true
		case strings.HasPrefix(a, "--lenient="):
			v, err := parseBoolFlag("--lenient", strings.TrimPrefix(a, "--lenient="))
			if err != nil {
				return config.CLIArgs{}, err
			}
			cli.Lenient = v
			cli.LenientSet = true
		case strings.HasPrefix(a, "-"):
			return config.CLIArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if cli.Path != "" {
				return config.CLIArgs{}, fmt.Errorf("重复的 path：%q 与 %q", cli.Path, a)
			}
			cli.Path = a
		}
	}

	if cli.SourceSet {
		switch cli.Source {
		case "kaggle", "nih":
			// ok
		case "":
			return config.CLIArgs{}, fmt.Errorf("--source 不能为空")
		default:
			return config.CLIArgs{}, fmt.Errorf("--source 只能是 kaggle 或 nih，实际是 %q", cli.Source)
		}
	}
	_ = command // 预留：目前所有子命令共享同一 flag 表

	return cli, nil
}

func parseBoolFlag(name, v string) (bool, error) {
	switch v {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("%s 只能是 true 或 false，实际是 %q", name, v)
	}
}

// parseRatios 解析 "0.8,0.1,0.1" 形式的比例参数（合法性由 config 层统一校验）。
func parseRatios(raw string) (domain.SplitRatios, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return domain.SplitRatios{}, fmt.Errorf("--ratios 必须是 3 个逗号分隔的数，实际是 %q", raw)
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.SplitRatios{}, fmt.Errorf("--ratios 第 %d 段不是数：%q", i+1, p)
		}
		vals[i] = v
	}
	return domain.SplitRatios{Train: vals[0], Val: vals[1], Test: vals[2]}, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  cxrkit <命令> [path] [参数]

命令：
  fetch   下载原始数据（kaggle 整包 / nih 12 个归档）
  reorg   洗牌并按比例划分到 train/val/test 规范布局（只复制不移动）
  count   统计规范布局的文件数并写出计数表
  stats   计算全数据集像素均值/标准差并写出 JSON

使用 "cxrkit <命令> --help" 查看详细说明。
`)
}

func printCmdUsage(command string) {
	switch command {
	case "fetch":
		fmt.Fprint(os.Stdout, `用法：
  cxrkit fetch [path] [--source kaggle|nih] [--raw DIR] [--extract[=true|false]]

参数：
  --source    数据源：kaggle|nih（未指定则读配置文件；最终默认 kaggle）
  --raw       原始数据落盘目录（默认 <path>/raw）
  --extract   下载后就地解压（默认 true）；--extract=false 只下载归档
  -h, --help  显示帮助
`)
	case "reorg":
		fmt.Fprint(os.Stdout, `用法：
  cxrkit reorg [path] [--raw DIR] [--csv FILE] [--ratios T,V,S] [--seed N]

参数：
  --raw       原始数据目录（默认 <path>/raw）
  --csv       元数据表（Data_Entry_*.csv）；不指定则按原始 split 布局扫描归类
  --ratios    train,val,test 比例（默认 0.8,0.1,0.1；之和必须为 1.0）
  --seed      随机种子（指定后划分归属跨次运行可复现）
  -h, --help  显示帮助
`)
	case "count":
		fmt.Fprint(os.Stdout, `用法：
  cxrkit count [path]

统计 <path>/{train,val,test}/{NORMAL,PNEUMONIA}/ 六个格子的文件数，
写出 <path>/dataset_counts.txt（制表符分隔）。缺失目录按 0 计（告警不报错）。
`)
	case "stats":
		fmt.Fprint(os.Stdout, `用法：
  cxrkit stats [path] [--lenient[=true|false]]

解码规范布局下的全部图片，计算总体像素均值/标准差，
写出 <path>/dataset_stats.json。

参数：
  --lenient   跳过不可解码的图片并告警（默认 false：坏图即整次失败）
  -h, --help  显示帮助
`)
	default:
		printUsage()
	}
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		emitSummary(os.Stdout, rr)
		if rr.Status == domain.StatusFailed {
			fmt.Fprintf(os.Stderr, "%s: %s\n", rr.ErrorCode, rr.ErrorMsg)
		}
		for _, w := range rr.Warnings {
			fmt.Fprintf(os.Stderr, "警告 %s %s: %s\n", w.Code, w.Path, w.Msg)
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	emitSummary(os.Stderr, rr)
}

func emitSummary(w io.Writer, rr domain.RunReport) {
	switch rr.Command {
	case "fetch":
		var bytes int64
		for _, a := range rr.Archives {
			bytes += a.Bytes
		}
		fmt.Fprintf(w, "完成：status=%s archives=%d bytes=%d warnings=%d\n",
			rr.Status, len(rr.Archives), bytes, len(rr.Warnings))
	case "reorg":
		copied := 0
		for _, c := range rr.Classes {
			copied += c.Copied
		}
		fmt.Fprintf(w, "完成：status=%s copied=%d warnings=%d\n",
			rr.Status, copied, len(rr.Warnings))
	case "count":
		total := 0
		if rr.Counts != nil {
			total = rr.Counts.GrandTotal()
		}
		fmt.Fprintf(w, "完成：status=%s total=%d warnings=%d\n",
			rr.Status, total, len(rr.Warnings))
	case "stats":
		if rr.Stats != nil {
			fmt.Fprintf(w, "完成：status=%s mean=%.6f std=%.6f warnings=%d\n",
				rr.Status, rr.Stats.Mean, rr.Stats.Std, len(rr.Warnings))
			return
		}
		fmt.Fprintf(w, "完成：status=%s warnings=%d\n", rr.Status, len(rr.Warnings))
	default:
		fmt.Fprintf(w, "完成：status=%s\n", rr.Status)
	}
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}
