package tab

import (
	"bytes"
	"fmt"

	"github.com/John-Robertt/CXRKit/internal/domain"
)

// EncodeCounts 把计数表编码为 tab 分隔文本（dataset_counts.txt 的内容）。
//
// 形状与上游工具链约定一致（首列为行名，首格留空）：
//
//	\tNORMAL\tPNEUMONIA\tTotal
//	train\t…\t…\t…
//	val\t…\t…\t…
//	test\t…\t…\t…
//	Total\t…\t…\t…
//
// 输出是纯函数：同一张表编码两次得到完全相同的字节（count 的幂等性依赖这一点）。
func EncodeCounts(t *domain.CountTable) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "\t%s\t%s\tTotal\n", domain.ClassNormal, domain.ClassPneumonia)
	for _, s := range domain.Splits() {
		fmt.Fprintf(&buf, "%s\t%d\t%d\t%d\n",
			s,
			t.Get(s, domain.ClassNormal),
			t.Get(s, domain.ClassPneumonia),
			t.SplitTotal(s),
		)
	}
	fmt.Fprintf(&buf, "Total\t%d\t%d\t%d\n",
		t.ClassTotal(domain.ClassNormal),
		t.ClassTotal(domain.ClassPneumonia),
		t.GrandTotal(),
	)

	return buf.Bytes()
}
