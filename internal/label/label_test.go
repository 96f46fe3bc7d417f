package label

import (
	"testing"

	"github.com/John-Robertt/CXRKit/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		labels string
		want   domain.Class
		ok     bool
	}{
		{"Pneumonia", domain.ClassPneumonia, true},
		{"Pneumonia|Infiltration", domain.ClassPneumonia, true},
		{"Infiltration|Pneumonia|Edema", domain.ClassPneumonia, true},
		{"No Finding", domain.ClassNormal, true},
		// 只含其它病灶：两类都不进。
		{"Infiltration", "", false},
		{"Cardiomegaly|Edema", "", false},
		{"", "", false},
		// 同时命中两条规则：Pneumonia 优先（上游 if/elif 顺序）。
		{"Pneumonia|No Finding", domain.ClassPneumonia, true},
		// 子串匹配是大小写敏感的（与上游一致）。
		{"pneumonia", "", false},
	}

	for _, c := range cases {
		got, ok := Classify(c.labels)
		if ok != c.ok || got != c.want {
			t.Fatalf("Classify(%q) = (%q, %v)，期望 (%q, %v)", c.labels, got, ok, c.want, c.ok)
		}
	}
}
