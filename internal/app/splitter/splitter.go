package splitter

import (
	"errors"
	"math"
	"math/rand"
	"path/filepath"

	"github.com/John-Robertt/CXRKit/internal/domain"
)

// Sizes 是单个类别三段划分的条数。
type Sizes struct {
	Train int
	Val   int
	Test  int
}

// Partition 计算 n 张图片在给定比例下的三段大小。
//
// 口径（必须与上游一致，不得“修正”）：
// - train = ceil(ratio_train * n)
// - val   = ceil(ratio_val * n)
// - test  = 余量；向上取整可能吃掉全部余量，此时 test 截断为 0（不允许负数）
// 三段之和恒等于 n。
func Partition(n int, r domain.SplitRatios) Sizes {
	if n <= 0 {
		return Sizes{}
	}

	train := int(math.Ceil(r.Train * float64(n)))
	if train > n {
		train = n
	}
	val := int(math.Ceil(r.Val * float64(n)))
	if train+val > n {
		val = n - train
	}
	return Sizes{
		Train: train,
		Val:   val,
		Test:  n - train - val,
	}
}

// CopyOp 是一次文件复制的计划（只描述，不执行）。
type CopyOp struct {
	SrcAbs string
	DstAbs string
	Split  domain.Split
	Class  domain.Class
}

// Plan 为一个类别生成复制计划：洗牌 + 按比例切片 + 映射到规范布局路径。
//
// 约束：
// - rng 必须由调用方注入（种子策略是上层决定；测试用固定种子断言确定性）
// - srcPaths 不被改动（内部复制一份再洗牌）
// - 目标路径为 <destRoot>/<split>/<class>/<原文件名>
func Plan(destRoot string, class domain.Class, srcPaths []string, r domain.SplitRatios, rng *rand.Rand) ([]CopyOp, Sizes, error) {
	if err := r.Validate(); err != nil {
		return nil, Sizes{}, err
	}
	if rng == nil {
		return nil, Sizes{}, errors.New("随机源不能为空")
	}

	shuffled := append([]string(nil), srcPaths...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	sizes := Partition(len(shuffled), r)

	ops := make([]CopyOp, 0, len(shuffled))
	appendOps := func(split domain.Split, paths []string) {
		for _, src := range paths {
			ops = append(ops, CopyOp{
				SrcAbs: src,
				DstAbs: filepath.Join(destRoot, string(split), string(class), filepath.Base(src)),
				Split:  split,
				Class:  class,
			})
		}
	}

	appendOps(domain.SplitTrain, shuffled[:sizes.Train])
	appendOps(domain.SplitVal, shuffled[sizes.Train:sizes.Train+sizes.Val])
	appendOps(domain.SplitTest, shuffled[sizes.Train+sizes.Val:])

	return ops, sizes, nil
}
