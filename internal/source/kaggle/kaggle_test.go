package kaggle

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/CXRKit/internal/source"
)

func TestFetch(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("chest_xray/train/NORMAL/a.jpeg")
	if err != nil {
		t.Fatalf("创建 zip 条目失败：%v", err)
	}
	if _, err := w.Write([]byte("img")); err != nil {
		t.Fatalf("写 zip 条目失败：%v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("关闭 zip 失败：%v", err)
	}

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	dest := t.TempDir()
	results, err := (Source{BaseURL: srv.URL}).Fetch(context.Background(), srv.Client(), source.Options{
		Dest:    dest,
		Extract: true,
	}, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	if gotPath != "/api/v1/datasets/download/"+DefaultHandle {
		t.Fatalf("请求路径不对：%s", gotPath)
	}
	if len(results) != 1 {
		t.Fatalf("应返回单个归档，实际 %d", len(results))
	}
	if results[0].Name != "chest-xray-pneumonia.zip" {
		t.Fatalf("归档名不对：%s", results[0].Name)
	}
	if !results[0].Extracted {
		t.Fatal("应标记为已解压")
	}
	if _, err := os.Stat(filepath.Join(dest, "chest_xray", "train", "NORMAL", "a.jpeg")); err != nil {
		t.Fatalf("解压结果缺失：%v", err)
	}
}

func TestFetch_NoExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("zip-bytes"))
	}))
	defer srv.Close()

	dest := t.TempDir()
	results, err := (Source{BaseURL: srv.URL, Handle: "o/custom-set"}).Fetch(context.Background(), srv.Client(), source.Options{
		Dest: dest,
	}, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if results[0].Name != "custom-set.zip" {
		t.Fatalf("归档名不对：%s", results[0].Name)
	}
	if results[0].Extracted {
		t.Fatal("未请求解压不应标记 extracted")
	}
	if _, err := os.Stat(filepath.Join(dest, "custom-set.zip")); err != nil {
		t.Fatalf("归档落盘缺失：%v", err)
	}
}
