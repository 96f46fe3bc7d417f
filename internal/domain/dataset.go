package domain

import (
	"fmt"
	"math"
)

// Split 是规范布局的顶层划分名（train/val/test）。
type Split string

const (
	SplitTrain Split = "train"
	SplitVal   Split = "val"
	SplitTest  Split = "test"
)

// Splits 返回固定顺序的三个划分（输出/遍历一律按该顺序，保证确定性）。
func Splits() []Split {
	return []Split{SplitTrain, SplitVal, SplitTest}
}

// Class 是固定的两个类别名（目录名与类别名一致，全大写）。
type Class string

const (
	ClassNormal    Class = "NORMAL"
	ClassPneumonia Class = "PNEUMONIA"
)

// Classes 返回固定顺序的两个类别。
func Classes() []Class {
	return []Class{ClassNormal, ClassPneumonia}
}

// ratioEpsilon 是“比例和必须为 1.0”的浮点容差。
const ratioEpsilon = 1e-9

// SplitRatios 是按类别独立应用的三段比例（train/val/test）。
type SplitRatios struct {
	Train float64
	Val   float64
	Test  float64
}

// DefaultSplitRatios 是内置默认比例（与上游文档一致）。
var DefaultSplitRatios = SplitRatios{Train: 0.8, Val: 0.1, Test: 0.1}

// Validate 在任何 I/O 之前校验比例：各段在 [0,1]，且三段之和为 1.0（容差 1e-9）。
func (r SplitRatios) Validate() error {
	for _, v := range []float64{r.Train, r.Val, r.Test} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("比例必须在 [0,1] 内，实际是 %v", v)
		}
	}
	if sum := r.Train + r.Val + r.Test; math.Abs(sum-1.0) > ratioEpsilon {
		return fmt.Errorf("比例之和必须为 1.0，实际是 %v", sum)
	}
	return nil
}

// ImageFile 是扫描阶段产出的文件描述（只做 stat，不读内容）。
type ImageFile struct {
	AbsPath string
	RelPath string
	Size    int64
}
