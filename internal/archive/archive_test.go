package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func writeTarGz(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range entries {
		if err := tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}); err != nil {
			t.Fatalf("写 tar 头失败：%v", err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatalf("写 tar 体失败：%v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("关闭 tar 失败：%v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("关闭 gzip 失败：%v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}

func TestExtract_TarGz(t *testing.T) {
	dir := t.TempDir()
	arc := filepath.Join(dir, "images_01.tar.gz")
	writeTarGz(t, arc, map[string]string{
		"images/a.png":     "aaa",
		"images/sub/b.png": "bbb",
	})

	dest := filepath.Join(dir, "out")
	if err := Extract(arc, dest); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dest, "images", "sub", "b.png"))
	if err != nil {
		t.Fatalf("读取解压文件失败：%v", err)
	}
	if string(b) != "bbb" {
		t.Fatalf("内容不一致：%q", b)
	}
}

func TestExtract_Zip(t *testing.T) {
	dir := t.TempDir()
	arc := filepath.Join(dir, "bundle.zip")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("train/NORMAL/x.jpeg")
	if err != nil {
		t.Fatalf("创建 zip 条目失败：%v", err)
	}
	if _, err := w.Write([]byte("img")); err != nil {
		t.Fatalf("写 zip 条目失败：%v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("关闭 zip 失败：%v", err)
	}
	if err := os.WriteFile(arc, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	dest := filepath.Join(dir, "out")
	if err := Extract(arc, dest); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "train", "NORMAL", "x.jpeg")); err != nil {
		t.Fatalf("解压结果缺失：%v", err)
	}
}

func TestExtract_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	arc := filepath.Join(dir, "evil.tar.gz")
	writeTarGz(t, arc, map[string]string{
		"../escape.txt": "x",
	})

	if err := Extract(arc, filepath.Join(dir, "out")); err == nil {
		t.Fatal("路径穿越条目应当报错")
	}
}

func TestExtract_UnknownFormat(t *testing.T) {
	dir := t.TempDir()
	arc := filepath.Join(dir, "data.rar")
	if err := os.WriteFile(arc, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	if err := Extract(arc, dir); err == nil {
		t.Fatal("未知格式应当报错")
	}
}
