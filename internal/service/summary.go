package service

import (
	"math"
	"sort"
	"strings"

	"speak-coach-go/internal/analysis"
	"speak-coach-go/internal/model"
	"speak-coach-go/pkg/llm"
)

// 无任何评分/语速数据时的兜底值。
const (
	defaultPronunciationScore = 75
	defaultWPM                = 140
	defaultQualitativeScore   = 75
	maxPronunciationNotes     = 5
)

// LLM 字段缺失时的固定默认值。
const (
	defaultStructureFeedback = "Try giving longer answers a clear beginning, middle and end."
	defaultStyleObservation  = "conversational"
	defaultCoachingTip       = "Keep practicing out loud a little every day."
)

var defaultStrengths = []string{"You kept the conversation going."}

// summaryAggregates 由全部用户消息确定性计算出的总结输入。
type summaryAggregates struct {
	avgPronunciation float64
	fillers          model.FillerStats
	notes            []model.PronunciationNote
	avgWPM           float64
}

// aggregateUserMessages 在调用 LLM 之前汇总全部用户消息的量化数据。
func aggregateUserMessages(messages []model.Message) summaryAggregates {
	agg := summaryAggregates{
		fillers: model.FillerStats{Breakdown: map[string]int{}},
	}

	type noteAccum struct {
		word       string
		suggestion string
		count      int
		firstSeen  int
	}
	var scoreSum float64
	var scored int
	var wpmSum float64
	var withWPM int
	noteIndex := map[string]*noteAccum{}
	var noteOrder []*noteAccum

	for _, msg := range messages {
		if msg.Role != model.RoleUser || msg.Pronunciation == nil {
			continue
		}
		fb := msg.Pronunciation

		scoreSum += fb.OverallScore
		scored++

		agg.fillers.Total += fb.Fillers.Total
		for word, count := range fb.Fillers.Breakdown {
			agg.fillers.Breakdown[word] += count
		}

		// 按词（大小写不敏感）归并发音问题，保留首次出现的拼写与提示
		for _, mw := range fb.MispronouncedWords {
			key := strings.ToLower(mw.Word)
			acc, ok := noteIndex[key]
			if !ok {
				acc = &noteAccum{word: mw.Word, suggestion: mw.Suggestion, firstSeen: len(noteOrder)}
				noteIndex[key] = acc
				noteOrder = append(noteOrder, acc)
			}
			acc.count++
		}

		if fb.WPM > 0 {
			wpmSum += fb.WPM
			withWPM++
		}
	}

	agg.avgPronunciation = defaultPronunciationScore
	if scored > 0 {
		agg.avgPronunciation = scoreSum / float64(scored)
	}
	agg.avgWPM = defaultWPM
	if withWPM > 0 {
		agg.avgWPM = wpmSum / float64(withWPM)
	}

	// 出现次数降序，相同次数按首次出现顺序
	sort.SliceStable(noteOrder, func(i, j int) bool {
		return noteOrder[i].count > noteOrder[j].count
	})
	if len(noteOrder) > maxPronunciationNotes {
		noteOrder = noteOrder[:maxPronunciationNotes]
	}
	for _, acc := range noteOrder {
		agg.notes = append(agg.notes, model.PronunciationNote{
			Word:        acc.word,
			Suggestion:  acc.suggestion,
			Occurrences: acc.count,
		})
	}
	return agg
}

// buildSummary 将确定性聚合与 LLM 的定性字段合并为最终总结。
func buildSummary(conv *model.Conversation, fields *llm.SummaryFields) *model.ConversationSummary {
	agg := aggregateUserMessages(conv.Messages)

	clarity := fields.ClarityScore
	if clarity == 0 {
		clarity = defaultQualitativeScore
	}
	fluency := fields.FluencyScore
	if fluency == 0 {
		fluency = defaultQualitativeScore
	}

	structureFeedback := fields.StructureFeedback
	if structureFeedback == "" {
		structureFeedback = defaultStructureFeedback
	}
	styleObservation := fields.StyleObservation
	if styleObservation == "" {
		styleObservation = defaultStyleObservation
	}
	coachingTip := fields.CoachingTip
	if coachingTip == "" {
		coachingTip = defaultCoachingTip
	}
	strengths := fields.Strengths
	if len(strengths) == 0 {
		strengths = defaultStrengths
	}

	// 整场会话的总分权重与单轮评分刻意不同
	overall := int(math.Round(agg.avgPronunciation*0.3 + float64(clarity)*0.35 + float64(fluency)*0.35))

	return &model.ConversationSummary{
		PronunciationScore: int(math.Round(agg.avgPronunciation)),
		ClarityScore:       clarity,
		FluencyScore:       fluency,
		OverallScore:       overall,
		PronunciationNotes: agg.notes,
		Fillers:            agg.fillers,
		AverageWPM:         agg.avgWPM,
		Pace:               analysis.ClassifyPace(agg.avgWPM),
		StructureFeedback:  structureFeedback,
		StyleObservation:   styleObservation,
		CoachingTip:        coachingTip,
		Strengths:          strengths,
	}
}
