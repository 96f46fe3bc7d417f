package domain

// Stats 是整个规范数据集上的全局像素统计（dataset_stats.json 的结构）。
//
// 口径：像素强度归一化到 [0,1] 后的总体（population）均值与标准差，
// 不做 Bessel 校正（与上游训练侧的归一化口径保持一致）。
type Stats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}
