package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CountTable 是 split × class 的文件计数表。
//
// 约束：
// - 三个 split、两个 class 固定存在（缺失目录按 0 计）
// - 合计列/合计行是派生值，不单独存储（避免不一致）
type CountTable struct {
	cells map[Split]map[Class]int
}

// NewCountTable 构造全 0 的计数表。
func NewCountTable() *CountTable {
	cells := make(map[Split]map[Class]int, 3)
	for _, s := range Splits() {
		row := make(map[Class]int, 2)
		for _, c := range Classes() {
			row[c] = 0
		}
		cells[s] = row
	}
	return &CountTable{cells: cells}
}

func (t *CountTable) Set(s Split, c Class, n int) { t.cells[s][c] = n }

func (t *CountTable) Get(s Split, c Class) int { return t.cells[s][c] }

// SplitTotal 是某个 split 下两个类别之和（表格的 Total 列）。
func (t *CountTable) SplitTotal(s Split) int {
	total := 0
	for _, c := range Classes() {
		total += t.cells[s][c]
	}
	return total
}

// ClassTotal 是某个类别跨三个 split 之和（Total 行的类别列）。
func (t *CountTable) ClassTotal(c Class) int {
	total := 0
	for _, s := range Splits() {
		total += t.cells[s][c]
	}
	return total
}

// GrandTotal 是全表之和（Total 行的 Total 列）。
func (t *CountTable) GrandTotal() int {
	total := 0
	for _, s := range Splits() {
		total += t.SplitTotal(s)
	}
	return total
}

// countRow 是 JSON 输出的行结构（顺序固定，避免 map 键序的不确定性）。
type countRow struct {
	Split     string `json:"split"`
	Normal    int    `json:"normal"`
	Pneumonia int    `json:"pneumonia"`
	Total     int    `json:"total"`
}

// MarshalJSON 按固定行序（train/val/test/Total）输出，保证报告可比对。
func (t *CountTable) MarshalJSON() ([]byte, error) {
	rows := make([]countRow, 0, 4)
	for _, s := range Splits() {
		rows = append(rows, countRow{
			Split:     string(s),
			Normal:    t.Get(s, ClassNormal),
			Pneumonia: t.Get(s, ClassPneumonia),
			Total:     t.SplitTotal(s),
		})
	}
	rows = append(rows, countRow{
		Split:     "Total",
		Normal:    t.ClassTotal(ClassNormal),
		Pneumonia: t.ClassTotal(ClassPneumonia),
		Total:     t.GrandTotal(),
	})

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(rows); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON 解码 MarshalJSON 的行数组（stdout 报告必须可被下游回读）。
// Total 行与 total 列是派生值：解码时直接丢弃，读回后由方法重新计算。
func (t *CountTable) UnmarshalJSON(b []byte) error {
	var rows []countRow
	if err := json.Unmarshal(b, &rows); err != nil {
		return err
	}

	fresh := NewCountTable()
	for _, row := range rows {
		if row.Split == "Total" {
			continue
		}
		s := Split(row.Split)
		if _, ok := fresh.cells[s]; !ok {
			return fmt.Errorf("未知 split：%q", row.Split)
		}
		fresh.cells[s][ClassNormal] = row.Normal
		fresh.cells[s][ClassPneumonia] = row.Pneumonia
	}
	*t = *fresh
	return nil
}
