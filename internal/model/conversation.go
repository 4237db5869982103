// Package model 包含了应用的数据模型定义。
package model

import "time"

// 会话模式。
const (
	ModeFreeTalk     = "free_talk"
	ModeReflective   = "reflective"
	ModeProfessional = "professional"
)

// 消息角色。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation 代表一次用户与系统之间的有界对话。
// 只能通过 ChatService 修改，"外部"只读。
type Conversation struct {
	ID              string               `json:"id"`
	UserID          string               `json:"userId"`
	Mode            string               `json:"mode"`
	StartedAt       time.Time            `json:"startedAt"`
	EndedAt         time.Time            `json:"endedAt,omitempty"`
	DurationSeconds int                  `json:"durationSeconds"`
	Messages        []Message            `json:"messages"`
	Summary         *ConversationSummary `json:"summary,omitempty"`
}

// TurnCount 返回已完成的轮次数（一问一答为一轮）。
func (c *Conversation) TurnCount() int {
	return len(c.Messages) / 2
}

// Message 代表会话中的一条消息（用户或助手）。
// 一旦追加即不可变，追加顺序即会话顺序。
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Pronunciation 仅用户消息携带。
	Pronunciation *PronunciationFeedback `json:"pronunciation,omitempty"`
	// Coaching 仅助手消息携带（可选）。
	Coaching *InlineCoaching `json:"coaching,omitempty"`
}

// PronunciationFeedback 是一条用户消息的发音/流利度反馈。
type PronunciationFeedback struct {
	OverallScore       float64             `json:"overallScore"`
	FluencyScore       float64             `json:"fluencyScore"`
	MispronouncedWords []MispronouncedWord `json:"mispronouncedWords"`
	Fillers            FillerStats         `json:"fillers"`
	WPM                float64             `json:"wpm"`
	Pace               string              `json:"pace"`
}

// MispronouncedWord 单个发音偏低的词及其提示。
type MispronouncedWord struct {
	Word          string  `json:"word"`
	AccuracyScore float64 `json:"accuracyScore"`
	Suggestion    string  `json:"suggestion"`
}

// FillerStats 填充词统计：总数与按词分解。
type FillerStats struct {
	Total     int            `json:"total"`
	Breakdown map[string]int `json:"breakdown"`
}

// InlineCoaching 助手消息内嵌的单句教练提示。
// Type 取值: pronunciation | communication | encouragement。
type InlineCoaching struct {
	Type string `json:"type"`
	Tip  string `json:"tip"`
}

// ConversationSummary 是会话结束时一次性生成的总结，之后不再修改。
type ConversationSummary struct {
	PronunciationScore int                 `json:"pronunciationScore"`
	ClarityScore       int                 `json:"clarityScore"`
	FluencyScore       int                 `json:"fluencyScore"`
	OverallScore       int                 `json:"overallScore"`
	PronunciationNotes []PronunciationNote `json:"pronunciationNotes"`
	Fillers            FillerStats         `json:"fillers"`
	AverageWPM         float64             `json:"averageWpm"`
	Pace               string              `json:"pace"`
	StructureFeedback  string              `json:"structureFeedback"`
	StyleObservation   string              `json:"styleObservation"`
	CoachingTip        string              `json:"coachingTip"`
	Strengths          []string            `json:"strengths"`
}

// PronunciationNote 总结中反复出现的发音问题（按出现次数降序，最多 5 条）。
type PronunciationNote struct {
	Word        string `json:"word"`
	Suggestion  string `json:"suggestion"`
	Occurrences int    `json:"occurrences"`
}
