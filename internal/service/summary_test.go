package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speak-coach-go/internal/model"
	"speak-coach-go/pkg/llm"
)

func userMsg(fb model.PronunciationFeedback) model.Message {
	return model.Message{Role: model.RoleUser, Pronunciation: &fb}
}

func TestAggregateDefaultsWhenNoUserMessages(t *testing.T) {
	agg := aggregateUserMessages([]model.Message{
		{Role: model.RoleAssistant, Content: "hi"},
	})
	assert.Equal(t, 75.0, agg.avgPronunciation)
	assert.Equal(t, 140.0, agg.avgWPM)
	assert.Equal(t, 0, agg.fillers.Total)
	assert.Empty(t, agg.notes)
}

func TestAggregateAveragesAndFillerMerge(t *testing.T) {
	agg := aggregateUserMessages([]model.Message{
		userMsg(model.PronunciationFeedback{
			OverallScore: 80, WPM: 120,
			Fillers: model.FillerStats{Total: 2, Breakdown: map[string]int{"um": 2}},
		}),
		userMsg(model.PronunciationFeedback{
			OverallScore: 60, WPM: 160,
			Fillers: model.FillerStats{Total: 3, Breakdown: map[string]int{"um": 1, "like": 2}},
		}),
	})
	assert.Equal(t, 70.0, agg.avgPronunciation)
	assert.Equal(t, 140.0, agg.avgWPM)
	assert.Equal(t, 5, agg.fillers.Total)
	assert.Equal(t, map[string]int{"um": 3, "like": 2}, agg.fillers.Breakdown)
}

func TestAggregateNotesTopFiveByOccurrence(t *testing.T) {
	mw := func(word string) model.MispronouncedWord {
		return model.MispronouncedWord{Word: word, Suggestion: word}
	}
	var messages []model.Message
	// through x3, banana x2（跨消息、含大小写差异）, water/other/things/apple x1
	messages = append(messages,
		userMsg(model.PronunciationFeedback{MispronouncedWords: []model.MispronouncedWord{
			mw("through"), mw("banana"), mw("water"),
		}}),
		userMsg(model.PronunciationFeedback{MispronouncedWords: []model.MispronouncedWord{
			mw("Through"), mw("other"), mw("BANANA"),
		}}),
		userMsg(model.PronunciationFeedback{MispronouncedWords: []model.MispronouncedWord{
			mw("through"), mw("things"), mw("apple"),
		}}),
	)
	agg := aggregateUserMessages(messages)

	require.Len(t, agg.notes, 5)
	assert.Equal(t, "through", agg.notes[0].Word)
	assert.Equal(t, 3, agg.notes[0].Occurrences)
	assert.Equal(t, "banana", agg.notes[1].Word)
	assert.Equal(t, 2, agg.notes[1].Occurrences)
	// 次数相同按首次出现顺序
	assert.Equal(t, "water", agg.notes[2].Word)
	assert.Equal(t, "other", agg.notes[3].Word)
	assert.Equal(t, "things", agg.notes[4].Word)
}

func TestBuildSummaryOverallWeighting(t *testing.T) {
	conv := &model.Conversation{
		Mode: model.ModeFreeTalk,
		Messages: []model.Message{
			userMsg(model.PronunciationFeedback{OverallScore: 80, WPM: 130}),
		},
	}
	summary := buildSummary(conv, &llm.SummaryFields{ClarityScore: 90, FluencyScore: 70})

	// round(80*0.3 + 90*0.35 + 70*0.35) = round(80) = 80
	assert.Equal(t, 80, summary.OverallScore)
	assert.Equal(t, 80, summary.PronunciationScore)
	assert.Equal(t, 90, summary.ClarityScore)
	assert.Equal(t, 70, summary.FluencyScore)
	assert.Equal(t, "good", summary.Pace)
}

func TestBuildSummaryDefaultsForMissingLLMFields(t *testing.T) {
	conv := &model.Conversation{Mode: model.ModeFreeTalk}
	summary := buildSummary(conv, &llm.SummaryFields{})

	assert.Equal(t, defaultQualitativeScore, summary.ClarityScore)
	assert.Equal(t, defaultQualitativeScore, summary.FluencyScore)
	assert.Equal(t, defaultCoachingTip, summary.CoachingTip)
	assert.Equal(t, defaultStyleObservation, summary.StyleObservation)
	assert.Equal(t, defaultStructureFeedback, summary.StructureFeedback)
	assert.Equal(t, defaultStrengths, summary.Strengths)
	// round(75*0.3 + 75*0.35 + 75*0.35) = 75
	assert.Equal(t, 75, summary.OverallScore)
}
