package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/John-Robertt/CXRKit/internal/domain"
)

// Decoder 是统计侧对图片解码的最小依赖：路径 -> 归一化像素序列（[0,1]）。
// 窄接口让核心统计逻辑可以在测试里用合成像素跑，不需要真实图片文件。
type Decoder interface {
	DecodeNormalized(path string) ([]float64, error)
}

// Accumulator 对全数据集的像素做流式聚合：Σx、Σx²、N。
// 单线程使用；中间量用 float64（像素已归一化，数值范围可控）。
type Accumulator struct {
	sum   float64
	sumSq float64
	n     int64
}

// Add 累加一张图片的像素。
func (a *Accumulator) Add(px []float64) {
	a.sum += floats.Sum(px)
	a.sumSq += floats.Dot(px, px)
	a.n += int64(len(px))
}

// Count 返回已累加的像素样本数。
func (a *Accumulator) Count() int64 { return a.n }

// Finalize 计算总体均值与标准差。
//
// 口径（必须与上游一致）：
//
//	mean = Σx / N
//	std  = sqrt(Σx²/N - mean²)
//
// 总体公式，不做 Bessel 校正。浮点噪声可能让方差出现极小的负值，截断为 0。
func (a *Accumulator) Finalize() (domain.Stats, error) {
	if a.n == 0 {
		return domain.Stats{}, errors.New("没有可统计的像素（数据集为空？）")
	}

	mean := a.sum / float64(a.n)
	variance := a.sumSq/float64(a.n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return domain.Stats{
		Mean: mean,
		Std:  math.Sqrt(variance),
	}, nil
}
