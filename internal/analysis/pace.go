package analysis

import "time"

// 语速分类。
const (
	PaceTooSlow      = "too_slow"
	PaceGood         = "good"
	PaceSlightlyFast = "slightly_fast"
	PaceTooFast      = "too_fast"
)

// WPM 根据词数与实际耗时计算每分钟词数。耗时未知或为零时返回 0。
func WPM(wordCount int, elapsed time.Duration) float64 {
	minutes := elapsed.Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(wordCount) / minutes
}

// ClassifyPace 将 WPM 归入语速区间：<100 偏慢，100-150 合适，151-170 略快，>170 偏快。
func ClassifyPace(wpm float64) string {
	switch {
	case wpm < 100:
		return PaceTooSlow
	case wpm <= 150:
		return PaceGood
	case wpm <= 170:
		return PaceSlightlyFast
	default:
		return PaceTooFast
	}
}
