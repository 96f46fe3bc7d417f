package splitter

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/John-Robertt/CXRKit/internal/domain"
)

func TestPartition_UpstreamExamples(t *testing.T) {
	r := domain.SplitRatios{Train: 0.8, Val: 0.1, Test: 0.1}

	// 10 张：8/1/1。
	if got := Partition(10, r); got != (Sizes{8, 1, 1}) {
		t.Fatalf("n=10 期望 {8 1 1}，实际 %+v", got)
	}
	// 3 张：ceil(2.4)=3 吃掉全部，val 和 test 被截断。
	if got := Partition(3, r); got != (Sizes{3, 0, 0}) {
		t.Fatalf("n=3 期望 {3 0 0}，实际 %+v", got)
	}
	if got := Partition(0, r); got != (Sizes{0, 0, 0}) {
		t.Fatalf("n=0 期望 {0 0 0}，实际 %+v", got)
	}
}

func TestPartition_SumsToN(t *testing.T) {
	ratios := []domain.SplitRatios{
		{Train: 0.8, Val: 0.1, Test: 0.1},
		{Train: 0.7, Val: 0.15, Test: 0.15},
		{Train: 1, Val: 0, Test: 0},
		{Train: 0, Val: 0.5, Test: 0.5},
	}
	for _, r := range ratios {
		for n := 0; n <= 100; n++ {
			s := Partition(n, r)
			if s.Train+s.Val+s.Test != n {
				t.Fatalf("比例 %+v n=%d：三段之和 %d != n", r, n, s.Train+s.Val+s.Test)
			}
			if s.Train < 0 || s.Val < 0 || s.Test < 0 {
				t.Fatalf("比例 %+v n=%d：出现负段 %+v", r, n, s)
			}
		}
	}
}

func fakePaths(n int) []string {
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		paths = append(paths, fmt.Sprintf("/raw/images/img_%03d.png", i))
	}
	return paths
}

func TestPlan_PartitionProperty(t *testing.T) {
	r := domain.SplitRatios{Train: 0.8, Val: 0.1, Test: 0.1}
	paths := fakePaths(37)

	ops, sizes, err := Plan("/dest", domain.ClassPneumonia, paths, r, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(ops) != len(paths) {
		t.Fatalf("计划条数期望 %d，实际 %d", len(paths), len(ops))
	}
	if sizes.Train+sizes.Val+sizes.Test != len(paths) {
		t.Fatalf("三段之和 %d != n", sizes.Train+sizes.Val+sizes.Test)
	}

	// 每个源路径恰好出现一次（不重复、不丢失）。
	seen := map[string]domain.Split{}
	for _, op := range ops {
		if prev, dup := seen[op.SrcAbs]; dup {
			t.Fatalf("源 %q 同时进入 %s 与 %s", op.SrcAbs, prev, op.Split)
		}
		seen[op.SrcAbs] = op.Split
	}
	if len(seen) != len(paths) {
		t.Fatalf("期望 %d 个不同源，实际 %d", len(paths), len(seen))
	}
}

func TestPlan_DeterministicWithSeed(t *testing.T) {
	r := domain.SplitRatios{Train: 0.8, Val: 0.1, Test: 0.1}
	paths := fakePaths(20)

	a, _, err := Plan("/dest", domain.ClassNormal, paths, r, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b, _, err := Plan("/dest", domain.ClassNormal, paths, r, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("相同种子应产出相同计划")
	}
}

func TestPlan_SourceSliceUntouched(t *testing.T) {
	r := domain.SplitRatios{Train: 0.8, Val: 0.1, Test: 0.1}
	paths := fakePaths(10)
	orig := append([]string(nil), paths...)

	if _, _, err := Plan("/dest", domain.ClassNormal, paths, r, rand.New(rand.NewSource(7))); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !reflect.DeepEqual(paths, orig) {
		t.Fatal("Plan 不应改动调用方的切片")
	}
}

func TestPlan_InvalidRatiosFailFast(t *testing.T) {
	if _, _, err := Plan("/dest", domain.ClassNormal, fakePaths(5), domain.SplitRatios{Train: 0.5, Val: 0.5, Test: 0.5}, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("比例和不为 1.0 应当报错")
	}
	if _, _, err := Plan("/dest", domain.ClassNormal, fakePaths(5), domain.DefaultSplitRatios, nil); err == nil {
		t.Fatal("rng 为空应当报错")
	}
}

func TestPlan_DstLayout(t *testing.T) {
	ops, _, err := Plan("/data/cxr", domain.ClassPneumonia, []string{"/raw/x/p1.png"}, domain.SplitRatios{Train: 1, Val: 0, Test: 0}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := "/data/cxr/train/PNEUMONIA/p1.png"
	if ops[0].DstAbs != want {
		t.Fatalf("目标路径期望 %q，实际 %q", want, ops[0].DstAbs)
	}
}
