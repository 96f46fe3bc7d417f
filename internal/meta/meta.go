package meta

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// 上游元数据表（Data_Entry_*.csv）按列名取值，不依赖列的位置。
const (
	colImageIndex    = "Image Index"
	colFindingLabels = "Finding Labels"
)

// Entry 是元数据表的一行（只保留本工具关心的两列）。
type Entry struct {
	ImageIndex    string
	FindingLabels string
}

// ReadEntries 读取整张元数据表。
//
// 约束：
// - 第一行必须是表头，且包含 "Image Index" 与 "Finding Labels" 两列
// - 列数不齐的行按 CSV 标准报错（上游数据不该出现；出现即数据损坏）
// - Image Index 为空的行被跳过（没有可定位的图片文件）
func ReadEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败：%w", err)
	}

	idxImage, idxLabels := -1, -1
	for i, name := range header {
		switch name {
		case colImageIndex:
			idxImage = i
		case colFindingLabels:
			idxLabels = i
		}
	}
	if idxImage < 0 {
		return nil, fmt.Errorf("元数据表缺少列 %q", colImageIndex)
	}
	if idxLabels < 0 {
		return nil, fmt.Errorf("元数据表缺少列 %q", colFindingLabels)
	}

	entries := make([]Entry, 0, 1024)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rec[idxImage] == "" {
			continue
		}
		entries = append(entries, Entry{
			ImageIndex:    rec[idxImage],
			FindingLabels: rec[idxLabels],
		})
	}
	return entries, nil
}
