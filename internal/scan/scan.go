package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/CXRKit/internal/domain"
)

// ClassImages 收集 root 下某个类别的全部图片：遍历 root/{train,val,test}/<class>/。
//
// 用途：reorg 的收集阶段（原始 hub 布局把同一类别分散在三个子目录里）。
//
// 规则（硬约束）：
// - 子目录缺失不算错误：跳过（原始布局不保证三个 split 都存在）
// - 只收集常规文件，且扩展名必须是图片（隐藏文件/杂项被过滤）
// - 输出按 RelPath 稳定排序，避免平台 ReadDir 顺序差异
func ClassImages(root string, class domain.Class) ([]domain.ImageFile, error) {
	root = filepath.Clean(root)

	files := make([]domain.ImageFile, 0, 128)
	for _, split := range domain.Splits() {
		dir := filepath.Join(root, string(split), string(class))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}

		for _, e := range entries {
			if e.IsDir() || !isImageName(e.Name()) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				return nil, err
			}
			if !info.Mode().IsRegular() {
				continue
			}
			abs := filepath.Join(dir, e.Name())
			rel, err := filepath.Rel(root, abs)
			if err != nil {
				return nil, err
			}
			files = append(files, domain.ImageFile{
				AbsPath: abs,
				RelPath: rel,
				Size:    info.Size(),
			})
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// SplitFiles 列出规范布局下 root/<split>/<class>/ 里的全部常规文件。
//
// 用途：count 与 stats 的遍历阶段。这里不做扩展名过滤：
// 计数契约是“常规文件数”，统计契约是“每个文件都解码”（坏文件由上层按模式处理）。
//
// 返回 exists=false 表示目录不存在（上层按 0 计并产生 warning，不致命）。
func SplitFiles(root string, split domain.Split, class domain.Class) (files []domain.ImageFile, exists bool, err error) {
	root = filepath.Clean(root)
	dir := filepath.Join(root, string(split), string(class))

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	files = make([]domain.ImageFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, true, err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		abs := filepath.Join(dir, e.Name())
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return nil, true, err
		}
		files = append(files, domain.ImageFile{
			AbsPath: abs,
			RelPath: rel,
			Size:    info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, true, nil
}

func isImageName(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}
