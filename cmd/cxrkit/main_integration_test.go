package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/CXRKit/internal/domain"
)

func TestCLI_NoTTY_StdoutOnlyRunReportJSON(t *testing.T) {
	// 这个测试锁定对外契约：stdout 非 TTY 时只能输出一个 RunReport JSON（进度/配置必须走 stderr 或直接禁用）。
	root := t.TempDir()

	// 准备最小的规范布局：两格有文件，其余缺失（count 按 0 计并告警）。
	for _, p := range []string{
		filepath.Join(root, "train", "NORMAL", "a.jpeg"),
		filepath.Join(root, "test", "PNEUMONIA", "b.jpeg"),
	} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("创建目录失败：%v", err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("写入文件失败：%v", err)
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("读取 cwd 失败：%v", err)
	}
	repoRoot := filepath.Clean(filepath.Join(wd, "..", ".."))

	cmd := exec.Command("go", "run", "./cmd/cxrkit", "count", root)
	cmd.Dir = repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("命令执行失败：%v\nstderr=%s\nstdout=%s", err, stderr.String(), stdout.String())
	}

	// stdout 必须是单个 JSON。
	var rr domain.RunReport
	if err := json.Unmarshal(stdout.Bytes(), &rr); err != nil {
		t.Fatalf("stdout 不是合法的 RunReport JSON：%v\nstdout=%q", err, stdout.String())
	}
	if rr.Command != "count" || rr.Status != domain.StatusOK {
		t.Fatalf("报告字段不对：command=%q status=%q", rr.Command, rr.Status)
	}
	// 进度/配置不应出现在 stdout。
	if strings.Contains(stdout.String(), "配置（生效）") {
		t.Fatalf("stdout 不应包含进度/配置输出：%q", stdout.String())
	}

	// stderr 至少应包含最终摘要行。
	if !strings.Contains(stderr.String(), "完成：status=") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr.String())
	}

	// 计数表落盘。
	b, err := os.ReadFile(filepath.Join(root, "dataset_counts.txt"))
	if err != nil {
		t.Fatalf("计数表未落盘：%v", err)
	}
	if !strings.HasPrefix(string(b), "\tNORMAL\tPNEUMONIA\tTotal\n") {
		t.Fatalf("计数表表头不对：%q", b)
	}
}

func TestCLI_ConfigNotFound_FailedReport(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("读取 cwd 失败：%v", err)
	}
	repoRoot := filepath.Clean(filepath.Join(wd, "..", ".."))

	// 仓库根目录下没有 cxrkit.json，且未给 path：必须以 config_not_found 失败。
	cmd := exec.Command("go", "run", "./cmd/cxrkit", "count")
	cmd.Dir = repoRoot

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	err = cmd.Run()
	if err == nil {
		t.Fatal("缺配置应以非零码退出")
	}

	var rr domain.RunReport
	if jerr := json.Unmarshal(stdout.Bytes(), &rr); jerr != nil {
		t.Fatalf("stdout 不是合法的 RunReport JSON：%v\nstdout=%q", jerr, stdout.String())
	}
	if rr.Status != domain.StatusFailed || rr.ErrorCode != domain.ErrCodeConfigNotFound {
		t.Fatalf("期望 config_not_found：%s/%s", rr.Status, rr.ErrorCode)
	}
}
