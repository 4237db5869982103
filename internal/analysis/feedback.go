package analysis

import (
	"sort"

	"speak-coach-go/internal/model"
)

const (
	// MispronouncedThreshold 低于该准确度的词视为发音问题。
	MispronouncedThreshold = 70
	// maxMispronounced 单条反馈最多列出的问题词数。
	maxMispronounced = 5
	// assumedTurnSeconds 单轮发言的假定时长（秒）。
	// 单轮路径不测量真实音频时长，WPM 按固定时长近似换算。
	assumedTurnSeconds = 15
)

// Mispronounced 从单词准确度列表中筛出低于阈值的词。
func Mispronounced(words []model.WordAccuracy) []model.WordAccuracy {
	var out []model.WordAccuracy
	for _, w := range words {
		if w.AccuracyScore < MispronouncedThreshold {
			out = append(out, w)
		}
	}
	return out
}

// BuildFeedback 根据评测结果与转写文本推导一条用户消息的发音反馈。
func BuildFeedback(overallScore, fluencyScore float64, words []model.WordAccuracy, transcript string) model.PronunciationFeedback {
	worst := Mispronounced(words)
	// 按准确度升序取最差的 5 个，稳定排序保持同分词的原始顺序
	sort.SliceStable(worst, func(i, j int) bool {
		return worst[i].AccuracyScore < worst[j].AccuracyScore
	})
	if len(worst) > maxMispronounced {
		worst = worst[:maxMispronounced]
	}

	mispronounced := make([]model.MispronouncedWord, 0, len(worst))
	for _, w := range worst {
		mispronounced = append(mispronounced, model.MispronouncedWord{
			Word:          w.Word,
			AccuracyScore: w.AccuracyScore,
			Suggestion:    SyllableHint(w.Word),
		})
	}

	wordCount := CountWords(transcript)
	wpm := float64(wordCount) * 60 / assumedTurnSeconds

	return model.PronunciationFeedback{
		OverallScore:       overallScore,
		FluencyScore:       fluencyScore,
		MispronouncedWords: mispronounced,
		Fillers:            CountFillers(transcript),
		WPM:                wpm,
		Pace:               ClassifyPace(wpm),
	}
}
