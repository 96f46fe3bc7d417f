package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestFinalize_StatusFromErrorCode(t *testing.T) {
	rr := RunReport{Command: "count", StartedAt: time.Now(), FinishedAt: time.Now()}
	rr.Finalize()
	if rr.Status != StatusOK {
		t.Fatalf("期望 status=ok，实际=%q", rr.Status)
	}

	rr.ErrorCode = ErrCodeIOFailed
	rr.Finalize()
	if rr.Status != StatusFailed {
		t.Fatalf("期望 status=failed，实际=%q", rr.Status)
	}
}

func TestFinalize_StableOrdering(t *testing.T) {
	rr := RunReport{
		Warnings: []Warning{
			{Code: WarnMissingFolder, Path: "b"},
			{Code: WarnMissingFolder, Path: "a"},
		},
		Classes: []ClassSummary{
			{Class: string(ClassPneumonia)},
			{Class: string(ClassNormal)},
		},
	}
	rr.Finalize()

	if rr.Warnings[0].Path != "a" {
		t.Fatalf("warnings 未按 path 排序：%+v", rr.Warnings)
	}
	if rr.Classes[0].Class != string(ClassNormal) {
		t.Fatalf("classes 未按类别名排序：%+v", rr.Classes)
	}
}

func TestFinalize_UTCAndEmptySlices(t *testing.T) {
	loc := time.FixedZone("X", 8*3600)
	rr := RunReport{StartedAt: time.Date(2024, 1, 2, 12, 0, 0, 0, loc)}
	rr.Finalize()

	if rr.StartedAt.Location() != time.UTC {
		t.Fatalf("期望 UTC 时间，实际=%v", rr.StartedAt.Location())
	}
	b, err := json.Marshal(rr)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	// 空 warnings/artifacts 必须输出 []，不能是 null。
	if strings.Contains(string(b), `"warnings":null`) || strings.Contains(string(b), `"artifacts":null`) {
		t.Fatalf("空切片输出了 null：%s", b)
	}
}

func TestCountTable_Totals(t *testing.T) {
	ct := NewCountTable()
	ct.Set(SplitTrain, ClassNormal, 3)
	ct.Set(SplitTrain, ClassPneumonia, 5)
	ct.Set(SplitVal, ClassNormal, 1)
	ct.Set(SplitTest, ClassPneumonia, 2)

	if got := ct.SplitTotal(SplitTrain); got != 8 {
		t.Fatalf("train 合计期望 8，实际 %d", got)
	}
	if got := ct.ClassTotal(ClassNormal); got != 4 {
		t.Fatalf("NORMAL 合计期望 4，实际 %d", got)
	}
	if got := ct.GrandTotal(); got != 11 {
		t.Fatalf("总计期望 11，实际 %d", got)
	}

	// 合计一致性：各 split 合计之和 == 各 class 合计之和 == 总计。
	splitSum := 0
	for _, s := range Splits() {
		splitSum += ct.SplitTotal(s)
	}
	classSum := 0
	for _, c := range Classes() {
		classSum += ct.ClassTotal(c)
	}
	if splitSum != ct.GrandTotal() || classSum != ct.GrandTotal() {
		t.Fatalf("合计不一致：splits=%d classes=%d grand=%d", splitSum, classSum, ct.GrandTotal())
	}
}

func TestCountTable_JSONRoundTrip(t *testing.T) {
	ct := NewCountTable()
	ct.Set(SplitTrain, ClassNormal, 1341)
	ct.Set(SplitTrain, ClassPneumonia, 3875)
	ct.Set(SplitVal, ClassNormal, 8)
	ct.Set(SplitVal, ClassPneumonia, 8)
	ct.Set(SplitTest, ClassNormal, 234)
	ct.Set(SplitTest, ClassPneumonia, 390)

	// 报告整体 encode 后必须能 decode 回来（stdout JSON 契约）。
	rr := RunReport{Command: "count", Counts: ct}
	rr.Finalize()
	b, err := json.Marshal(rr)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	var back RunReport
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("报告 JSON 无法回读：%v", err)
	}
	if back.Counts == nil {
		t.Fatal("回读后 counts 不应为空")
	}
	for _, s := range Splits() {
		for _, c := range Classes() {
			if got, want := back.Counts.Get(s, c), ct.Get(s, c); got != want {
				t.Fatalf("%s/%s 回读不一致：期望 %d，实际 %d", s, c, want, got)
			}
		}
	}
	if back.Counts.GrandTotal() != ct.GrandTotal() {
		t.Fatalf("总计回读不一致：期望 %d，实际 %d", ct.GrandTotal(), back.Counts.GrandTotal())
	}
}

func TestCountTable_UnmarshalRejectsUnknownSplit(t *testing.T) {
	var ct CountTable
	raw := `[{"split":"holdout","normal":1,"pneumonia":2,"total":3}]`
	if err := json.Unmarshal([]byte(raw), &ct); err == nil {
		t.Fatal("未知 split 应当报错")
	}
}

func TestSplitRatios_Validate(t *testing.T) {
	if err := DefaultSplitRatios.Validate(); err != nil {
		t.Fatalf("默认比例应当合法：%v", err)
	}
	if err := (SplitRatios{0.7, 0.2, 0.2}).Validate(); err == nil {
		t.Fatal("比例和 1.1 应当报错")
	}
	if err := (SplitRatios{-0.1, 0.6, 0.5}).Validate(); err == nil {
		t.Fatal("负比例应当报错")
	}
	// 浮点容差：0.8+0.1+0.1 在二进制下并不精确等于 1.0。
	if err := (SplitRatios{0.8, 0.1, 0.1}).Validate(); err != nil {
		t.Fatalf("容差内的比例不应报错：%v", err)
	}
}
