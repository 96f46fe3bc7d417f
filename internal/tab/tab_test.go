package tab

import (
	"bytes"
	"testing"

	"github.com/John-Robertt/CXRKit/internal/domain"
)

func TestEncodeCounts_Golden(t *testing.T) {
	ct := domain.NewCountTable()
	ct.Set(domain.SplitTrain, domain.ClassNormal, 1341)
	ct.Set(domain.SplitTrain, domain.ClassPneumonia, 3875)
	ct.Set(domain.SplitVal, domain.ClassNormal, 8)
	ct.Set(domain.SplitVal, domain.ClassPneumonia, 8)
	ct.Set(domain.SplitTest, domain.ClassNormal, 234)
	ct.Set(domain.SplitTest, domain.ClassPneumonia, 390)

	want := "\tNORMAL\tPNEUMONIA\tTotal\n" +
		"train\t1341\t3875\t5216\n" +
		"val\t8\t8\t16\n" +
		"test\t234\t390\t624\n" +
		"Total\t1583\t4273\t5856\n"

	got := EncodeCounts(ct)
	if string(got) != want {
		t.Fatalf("编码结果不一致：\n期望：\n%q\n实际：\n%q", want, got)
	}
}

func TestEncodeCounts_Idempotent(t *testing.T) {
	ct := domain.NewCountTable()
	ct.Set(domain.SplitTrain, domain.ClassPneumonia, 7)

	a := EncodeCounts(ct)
	b := EncodeCounts(ct)
	if !bytes.Equal(a, b) {
		t.Fatal("同一张表编码两次应得到相同字节")
	}
}

func TestEncodeCounts_AllZero(t *testing.T) {
	got := EncodeCounts(domain.NewCountTable())
	want := "\tNORMAL\tPNEUMONIA\tTotal\n" +
		"train\t0\t0\t0\n" +
		"val\t0\t0\t0\n" +
		"test\t0\t0\t0\n" +
		"Total\t0\t0\t0\n"
	if string(got) != want {
		t.Fatalf("全 0 表编码不正确：%q", got)
	}
}
