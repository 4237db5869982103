// Package service 包含了应用的业务逻辑层。
package service

import (
	"math"

	"speak-coach-go/internal/model"
)

// 评分模式。read_aloud 与 casual 仅用于评分权重，不对应会话模式。
const (
	ScoreModeReadAloud    = "read_aloud"
	ScoreModeProfessional = "professional"
	ScoreModeCasual       = "casual"
	ScoreModeFreeTalk     = "free_talk"
)

// StructureAssessment 表达结构的评估。
type StructureAssessment struct {
	Score float64 `json:"score"`
}

// CommunicationAssessment 沟通维度的评估。
type CommunicationAssessment struct {
	Structure StructureAssessment `json:"structure"`
}

type scoreWeights struct {
	pronunciation float64
	fluency       float64
	structure     float64
}

// 各模式的权重表，每行之和为 1.0。
var modeWeights = map[string]scoreWeights{
	ScoreModeReadAloud:    {pronunciation: 0.70, fluency: 0.20, structure: 0.10},
	ScoreModeProfessional: {pronunciation: 0.30, fluency: 0.30, structure: 0.40},
	ScoreModeCasual:       {pronunciation: 0.30, fluency: 0.40, structure: 0.30},
	ScoreModeFreeTalk:     {pronunciation: 0.35, fluency: 0.35, structure: 0.30},
}

const maxFillerPenalty = 10

// Score 计算单轮的加权总分，结果在 [0,100]。
// 纯函数：输入默认已在上游校验，未知模式按 free_talk 处理。
func Score(pronunciation model.PronunciationFeedback, communication CommunicationAssessment, mode string) int {
	weights, ok := modeWeights[mode]
	if !ok {
		weights = modeWeights[ScoreModeFreeTalk]
	}

	raw := pronunciation.OverallScore*weights.pronunciation +
		pronunciation.FluencyScore*weights.fluency +
		communication.Structure.Score*weights.structure

	penalty := math.Min(float64(pronunciation.Fillers.Total)*2, maxFillerPenalty)
	score := raw - penalty

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}
