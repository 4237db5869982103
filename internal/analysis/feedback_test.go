package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"speak-coach-go/internal/model"
)

func TestBuildFeedbackTopFiveWorst(t *testing.T) {
	words := []model.WordAccuracy{
		{Word: "alpha", AccuracyScore: 95},
		{Word: "beta", AccuracyScore: 60},
		{Word: "gamma", AccuracyScore: 30},
		{Word: "delta", AccuracyScore: 69},
		{Word: "epsilon", AccuracyScore: 50},
		{Word: "zeta", AccuracyScore: 10},
		{Word: "eta", AccuracyScore: 65},
		{Word: "theta", AccuracyScore: 40},
	}
	fb := BuildFeedback(80, 75, words, "some transcript here")

	assert.Len(t, fb.MispronouncedWords, 5)
	// 按准确度升序取最差的 5 个
	got := make([]string, 0, 5)
	for _, w := range fb.MispronouncedWords {
		got = append(got, w.Word)
	}
	assert.Equal(t, []string{"zeta", "gamma", "theta", "epsilon", "beta"}, got)
	// 70 分以上的词不出现
	assert.NotContains(t, got, "alpha")
}

func TestBuildFeedbackSuggestion(t *testing.T) {
	words := []model.WordAccuracy{{Word: "banana", AccuracyScore: 50}}
	fb := BuildFeedback(70, 70, words, "banana")
	assert.Equal(t, "ba-na-na", fb.MispronouncedWords[0].Suggestion)
}

func TestBuildFeedbackAssumedTurnWPM(t *testing.T) {
	// 15 秒假定时长：8 个词 -> 32 WPM
	fb := BuildFeedback(80, 80, nil, "one two three four five six seven eight")
	assert.Equal(t, 32.0, fb.WPM)
	assert.Equal(t, PaceTooSlow, fb.Pace)

	// 30 个词 -> 120 WPM -> good
	transcript := ""
	for i := 0; i < 30; i++ {
		transcript += "word "
	}
	fb = BuildFeedback(80, 80, nil, transcript)
	assert.Equal(t, 120.0, fb.WPM)
	assert.Equal(t, PaceGood, fb.Pace)
}

func TestBuildFeedbackFillers(t *testing.T) {
	fb := BuildFeedback(80, 80, nil, "um so I was like thinking")
	assert.Equal(t, 3, fb.Fillers.Total)
	assert.Equal(t, map[string]int{"um": 1, "so": 1, "like": 1}, fb.Fillers.Breakdown)
}
