package label

import (
	"strings"

	"github.com/John-Robertt/CXRKit/internal/domain"
)

// 上游元数据的 finding labels 是自由文本（可能是 "Pneumonia|Infiltration"
// 这类竖线拼接的多标签）。分类规则按上游脚本原样保留：
//
// 1) 包含子串 "Pneumonia" => PNEUMONIA（即使同时包含其它标签）
// 2) 否则包含子串 "No Finding" => NORMAL
// 3) 其余行静默丢弃（两类都不进）
//
// 规则 1 优先于规则 2：同时命中两者的行归为 PNEUMONIA。
// 这是已知的简化（子串匹配可能把含糊标签也吸进来），上游行为如此，
// 这里刻意不做“更聪明”的解析。
const (
	pneumoniaSubstr = "Pneumonia"
	normalSubstr    = "No Finding"
)

// Classify 把 finding labels 文本映射为类别。
// ok=false 表示该行被丢弃（两类都不属于）。
func Classify(findingLabels string) (domain.Class, bool) {
	if strings.Contains(findingLabels, pneumoniaSubstr) {
		return domain.ClassPneumonia, true
	}
	if strings.Contains(findingLabels, normalSubstr) {
		return domain.ClassNormal, true
	}
	return "", false
}
