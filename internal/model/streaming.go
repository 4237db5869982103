package model

import "time"

// 转写事件类型：interim 结果可能被后续修订，final 结果稳定并计入累计统计。
const (
	EventInterim = "interim"
	EventFinal   = "final"
)

// WordAccuracy 单词级发音准确度（来自语音评测引擎）。
type WordAccuracy struct {
	Word          string   `json:"word"`
	AccuracyScore float64  `json:"accuracyScore"`
	Phonemes      []string `json:"phonemes,omitempty"`
}

// TranscriptionEvent 是一条来自流式识别的转写事件。
type TranscriptionEvent struct {
	Kind  string  `json:"kind"` // interim | final
	Text  string  `json:"text"`
	Score float64 `json:"score,omitempty"` // 可选的本段发音总分
	// HasScore 标记 Score 是否有效（0 是合法分值）。
	HasScore bool           `json:"hasScore,omitempty"`
	Words    []WordAccuracy `json:"words,omitempty"`
}

// StreamingSession 一次"一分钟练习"的流式会话状态（仅存活于连接期间）。
type StreamingSession struct {
	ID         string         `json:"id"`
	Transcript string         `json:"transcript"`
	WordCount  int            `json:"wordCount"`
	Fillers    FillerStats    `json:"fillers"`
	Words      []WordAccuracy `json:"words"`
	Scores     []float64      `json:"scores"`
	StartedAt  time.Time      `json:"startedAt"`
}

// StreamingUpdate 每收到一条转写事件即产出一条对外更新。
type StreamingUpdate struct {
	Kind            string         `json:"kind"`
	Text            string         `json:"text"`
	Transcript      string         `json:"transcript"`
	Fillers         FillerStats    `json:"fillers"`
	WordCount       int            `json:"wordCount"`
	WPM             float64        `json:"wpm"`
	DurationSeconds float64        `json:"durationSeconds"`
	Score           *float64       `json:"score,omitempty"`
	Words           []WordAccuracy `json:"words,omitempty"`
	Mispronounced   []WordAccuracy `json:"mispronounced"`
}
