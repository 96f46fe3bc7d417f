package archive

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// Extract 把归档解压到 dest（按扩展名分派格式）。
//
// 支持：.tar.gz / .tgz / .tar.xz / .zip。
// 任何失败直接上抛（没有部分成功的记账，没有断点续传——与下载契约一致）。
func Extract(path, dest string) error {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return extractTarGz(path, dest)
	case strings.HasSuffix(lower, ".tar.xz"):
		return extractTarXz(path, dest)
	case strings.HasSuffix(lower, ".zip"):
		return extractZip(path, dest)
	default:
		return fmt.Errorf("不支持的归档格式：%q", filepath.Base(path))
	}
}

func extractTarGz(path, dest string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		return fmt.Errorf("打开 gzip 失败（%s）：%w", filepath.Base(path), err)
	}
	defer gz.Close()

	return extractTar(tar.NewReader(gz), dest)
}

func extractTarXz(path, dest string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	xr, err := xz.NewReader(bufio.NewReader(f))
	if err != nil {
		return fmt.Errorf("打开 xz 失败（%s）：%w", filepath.Base(path), err)
	}

	return extractTar(tar.NewReader(xr), dest)
}

func extractTar(tr *tar.Reader, dest string) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target, err := securePath(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr); err != nil {
				return err
			}
		default:
			// 符号链接等一律跳过：数据归档里只该有目录和普通文件。
		}
	}
}

func extractZip(path, dest string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("打开 zip 失败（%s）：%w", filepath.Base(path), err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		target, err := securePath(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeEntry(target, rc)
		_ = rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// securePath 把归档条目名映射到 dest 内的绝对路径，并拒绝路径穿越（"../"）。
func securePath(dest, name string) (string, error) {
	dest = filepath.Clean(dest)
	target := filepath.Join(dest, filepath.FromSlash(name))
	if target != dest && !strings.HasPrefix(target, dest+string(filepath.Separator)) {
		return "", fmt.Errorf("归档条目越界：%q", name)
	}
	return target, nil
}
