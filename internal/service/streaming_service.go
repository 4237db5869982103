package service

import (
	"strings"
	"time"

	"speak-coach-go/internal/analysis"
	"speak-coach-go/internal/model"
)

// StreamingAggregator 为一路实时音频流维护累计的转写与口语统计。
// 每个事件同步处理并产出一条对外更新，不做任何挂起。
// 非并发安全：一个聚合器只服务一条连接。
type StreamingAggregator struct {
	session *model.StreamingSession
	now     func() time.Time
}

// NewStreamingAggregator 创建一个新的流式聚合器并记录会话起始时间。
func NewStreamingAggregator(id string) *StreamingAggregator {
	return newStreamingAggregator(id, time.Now)
}

func newStreamingAggregator(id string, now func() time.Time) *StreamingAggregator {
	return &StreamingAggregator{
		session: &model.StreamingSession{
			ID:        id,
			Fillers:   model.FillerStats{Breakdown: map[string]int{}},
			StartedAt: now(),
		},
		now: now,
	}
}

// Session 返回当前会话状态（只读用途）。
func (a *StreamingAggregator) Session() *model.StreamingSession {
	return a.session
}

// Process 消费一条转写事件并返回累计统计的更新。
// final 事件计入累计转写与评分；interim 事件只刷新语速与时长。
func (a *StreamingAggregator) Process(event model.TranscriptionEvent) model.StreamingUpdate {
	s := a.session

	if event.Kind == model.EventFinal && strings.TrimSpace(event.Text) != "" {
		if s.Transcript == "" {
			s.Transcript = event.Text
		} else {
			s.Transcript += " " + event.Text
		}
		// 词数与填充词每次基于完整转写重算，而不是增量累加
		s.WordCount = analysis.CountWords(s.Transcript)
		s.Fillers = analysis.CountFillers(s.Transcript)
		s.Words = append(s.Words, event.Words...)
		if event.HasScore {
			s.Scores = append(s.Scores, event.Score)
		}
	}

	elapsed := a.now().Sub(s.StartedAt)
	update := model.StreamingUpdate{
		Kind:            event.Kind,
		Text:            event.Text,
		Transcript:      s.Transcript,
		Fillers:         s.Fillers,
		WordCount:       s.WordCount,
		WPM:             analysis.WPM(s.WordCount, elapsed),
		DurationSeconds: elapsed.Seconds(),
		Words:           event.Words,
		Mispronounced:   analysis.Mispronounced(s.Words),
	}
	if event.HasScore {
		score := event.Score
		update.Score = &score
	}
	return update
}
