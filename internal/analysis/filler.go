// Package analysis 提供口语分析的纯函数：填充词统计、语速计算与发音反馈推导。
package analysis

import (
	"regexp"
	"strings"

	"speak-coach-go/internal/model"
)

// FillerLexicon 固定的填充词词表，顺序即配置顺序。
// 词表条目之间不做去重：同一段文本可同时命中 "you know" 与单独配置的 "know"。
var FillerLexicon = []string{
	"um", "uh", "er", "ah", "like", "you know", "i mean",
	"so", "basically", "actually", "kind of", "sort of", "right", "okay",
}

var fillerPatterns = compileFillerPatterns()

func compileFillerPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(FillerLexicon))
	for _, entry := range FillerLexicon {
		patterns[entry] = regexp.MustCompile(`\b` + regexp.QuoteMeta(entry) + `\b`)
	}
	return patterns
}

// CountFillers 在整段文本上按词表做大小写不敏感的整词匹配。
// 对同一文本重复执行结果相同（幂等）。
func CountFillers(transcript string) model.FillerStats {
	stats := model.FillerStats{Breakdown: make(map[string]int)}
	lowered := strings.ToLower(transcript)
	for _, entry := range FillerLexicon {
		matches := fillerPatterns[entry].FindAllStringIndex(lowered, -1)
		if len(matches) == 0 {
			continue
		}
		stats.Breakdown[entry] = len(matches)
		stats.Total += len(matches)
	}
	return stats
}

// CountWords 按空白切分统计词数，空 token 丢弃。
func CountWords(transcript string) int {
	return len(strings.Fields(transcript))
}
