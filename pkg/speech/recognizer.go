package speech

import (
	"context"

	"speak-coach-go/internal/model"
)

// Recognizer 将流式上送的音频分片转换为转写事件。
// 识别不到语音的分片返回 (nil, nil)。
type Recognizer interface {
	Recognize(ctx context.Context, wavChunk []byte) (*model.TranscriptionEvent, error)
}

// restRecognizer 基于短语音 REST 评测接口的分片识别器。
// 每个分片独立识别并产出一条 final 事件；interim 事件由支持增量
// 协议的识别器产出，这个实现不生成。
type restRecognizer struct {
	client Client
}

// NewRecognizer 创建一个基于评测客户端的分片识别器。
func NewRecognizer(client Client) Recognizer {
	return &restRecognizer{client: client}
}

func (r *restRecognizer) Recognize(ctx context.Context, wavChunk []byte) (*model.TranscriptionEvent, error) {
	assessment, err := r.client.Assess(ctx, wavChunk, AssessOptions{})
	if err != nil {
		return nil, err
	}
	if assessment.Transcript == "" {
		return nil, nil
	}
	return &model.TranscriptionEvent{
		Kind:     model.EventFinal,
		Text:     assessment.Transcript,
		Score:    assessment.OverallScore,
		HasScore: true,
		Words:    assessment.Words,
	}, nil
}
