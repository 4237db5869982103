package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speak-coach-go/internal/apperr"
	"speak-coach-go/internal/model"
	"speak-coach-go/internal/repository"
	"speak-coach-go/pkg/llm"
	"speak-coach-go/pkg/speech"
	"speak-coach-go/pkg/tts"
)

// makeWAV 构造最小可解析的 16kHz 单声道 PCM WAV。
func makeWAV(pcm []byte) []byte {
	var buf bytes.Buffer
	u32 := func(v uint32) { _ = binary.Write(&buf, binary.LittleEndian, v) }
	u16 := func(v uint16) { _ = binary.Write(&buf, binary.LittleEndian, v) }
	buf.WriteString("RIFF")
	u32(uint32(36 + len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	u32(16)
	u16(1)
	u16(1)
	u32(16000)
	u32(32000)
	u16(2)
	u16(16)
	buf.WriteString("data")
	u32(uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

type fakeSpeech struct {
	assessment *speech.Assessment
	err        error
	calls      int
}

func (f *fakeSpeech) Assess(ctx context.Context, audio []byte, opts speech.AssessOptions) (*speech.Assessment, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.assessment, nil
}

type fakeLLM struct {
	reply      *llm.Reply
	replyErr   error
	summary    *llm.SummaryFields
	summaryErr error
	lastHint   string
}

func (f *fakeLLM) GenerateReply(ctx context.Context, mode string, history []model.Message, userText, hint string) (*llm.Reply, error) {
	f.lastHint = hint
	if f.replyErr != nil {
		return nil, f.replyErr
	}
	return f.reply, nil
}

func (f *fakeLLM) GenerateSummary(ctx context.Context, conv *model.Conversation) (*llm.SummaryFields, error) {
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return f.summary, nil
}

type fakeTTS struct {
	err   error
	calls int
}

func (f *fakeTTS) Synthesize(ctx context.Context, text string) (*tts.Synthesis, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &tts.Synthesis{AudioBase64: "ZmFrZQ==", DurationMs: 1200}, nil
}

func defaultFakes() (*fakeSpeech, *fakeLLM, *fakeTTS) {
	sp := &fakeSpeech{
		assessment: &speech.Assessment{
			Transcript:   "hello I am practicing",
			OverallScore: 82,
			FluencyScore: 78,
			Words: []model.WordAccuracy{
				{Word: "hello", AccuracyScore: 95},
				{Word: "practicing", AccuracyScore: 55},
			},
		},
	}
	lm := &fakeLLM{
		reply: &llm.Reply{
			Response: "That sounds great, tell me more!",
			Coaching: &model.InlineCoaching{Type: "encouragement", Tip: "Nice clear start."},
		},
		summary: &llm.SummaryFields{
			ClarityScore: 80,
			FluencyScore: 70,
			CoachingTip:  "Slow down on long words.",
			Strengths:    []string{"good vocabulary"},
		},
	}
	return sp, lm, &fakeTTS{}
}

func newTestService(sp *fakeSpeech, lm *fakeLLM, ts *fakeTTS) (ChatService, repository.ConversationStore) {
	store := repository.NewMemoryStore()
	svc := NewChatService(store, sp, lm, ts, nil, nil, 10, 120)
	return svc, store
}

func TestStartCreatesConversationWithGreetingOnly(t *testing.T) {
	sp, lm, ts := defaultFakes()
	svc, store := newTestService(sp, lm, ts)

	result, err := svc.Start(context.Background(), model.ModeFreeTalk, "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.ConversationID)
	assert.NotEmpty(t, result.Greeting)
	assert.NotEmpty(t, result.GreetingAudioBase64)

	conv, err := store.Get(context.Background(), result.ConversationID)
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Len(t, conv.Messages, 1)
	assert.Equal(t, model.RoleAssistant, conv.Messages[0].Role)

	assert.True(t, svc.IsActive(context.Background(), result.ConversationID))
}

func TestStartTTSFailureLeavesNoState(t *testing.T) {
	sp, lm, ts := defaultFakes()
	ts.err = errors.New("tts down")
	svc, store := newTestService(sp, lm, ts)

	_, err := svc.Start(context.Background(), model.ModeFreeTalk, "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeStartFailed, apperr.CodeOf(err))

	all, _ := store.List(context.Background())
	assert.Empty(t, all)
}

func TestProcessTurnAppendsMessagePair(t *testing.T) {
	sp, lm, ts := defaultFakes()
	svc, store := newTestService(sp, lm, ts)

	started, err := svc.Start(context.Background(), model.ModeFreeTalk, "")
	require.NoError(t, err)

	result, err := svc.ProcessTurn(context.Background(), TurnInput{
		ConversationID: started.ConversationID,
		Audio:          makeWAV(make([]byte, 64)),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello I am practicing", result.UserMessage.Content)
	require.NotNil(t, result.UserMessage.Pronunciation)
	assert.Equal(t, 82.0, result.UserMessage.Pronunciation.OverallScore)
	assert.Equal(t, model.RoleAssistant, result.AssistantMessage.Role)
	assert.NotNil(t, result.AssistantMessage.Coaching)

	conv, _ := store.Get(context.Background(), started.ConversationID)
	// 消息数在 start 后为 1，每轮成功后 +2
	assert.Len(t, conv.Messages, 3)
	assert.Equal(t, 1, conv.TurnCount())
}

func TestProcessTurnUnknownConversation(t *testing.T) {
	sp, lm, ts := defaultFakes()
	svc, _ := newTestService(sp, lm, ts)

	_, err := svc.ProcessTurn(context.Background(), TurnInput{
		ConversationID: "missing",
		Audio:          makeWAV(make([]byte, 8)),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestProcessTurnNoSpeech(t *testing.T) {
	sp, lm, ts := defaultFakes()
	sp.assessment = &speech.Assessment{Transcript: "   "}
	svc, store := newTestService(sp, lm, ts)

	started, _ := svc.Start(context.Background(), model.ModeFreeTalk, "")
	_, err := svc.ProcessTurn(context.Background(), TurnInput{
		ConversationID: started.ConversationID,
		Audio:          makeWAV(make([]byte, 8)),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNoSpeech, apperr.CodeOf(err))

	// 会话消息数不变
	conv, _ := store.Get(context.Background(), started.ConversationID)
	assert.Len(t, conv.Messages, 1)
}

func TestProcessTurnCollaboratorFailureDoesNotMutate(t *testing.T) {
	sp, lm, ts := defaultFakes()
	lm.replyErr = errors.New("llm down")
	svc, store := newTestService(sp, lm, ts)

	started, _ := svc.Start(context.Background(), model.ModeFreeTalk, "")
	_, err := svc.ProcessTurn(context.Background(), TurnInput{
		ConversationID: started.ConversationID,
		Audio:          makeWAV(make([]byte, 8)),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeProcessFailed, apperr.CodeOf(err))

	conv, _ := store.Get(context.Background(), started.ConversationID)
	assert.Len(t, conv.Messages, 1)

	// 会话仍然 Active，修复后可以继续
	lm.replyErr = nil
	_, err = svc.ProcessTurn(context.Background(), TurnInput{
		ConversationID: started.ConversationID,
		Audio:          makeWAV(make([]byte, 8)),
	})
	assert.NoError(t, err)
}

func TestProcessTurnMaxTurns(t *testing.T) {
	sp, lm, ts := defaultFakes()
	store := repository.NewMemoryStore()
	svc := NewChatService(store, sp, lm, ts, nil, nil, 10, 120)

	started, _ := svc.Start(context.Background(), model.ModeFreeTalk, "")
	for i := 0; i < 10; i++ {
		_, err := svc.ProcessTurn(context.Background(), TurnInput{
			ConversationID: started.ConversationID,
			Audio:          makeWAV(make([]byte, 8)),
		})
		require.NoError(t, err, "turn %d", i+1)
	}

	_, err := svc.ProcessTurn(context.Background(), TurnInput{
		ConversationID: started.ConversationID,
		Audio:          makeWAV(make([]byte, 8)),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeMaxTurns, apperr.CodeOf(err))

	conv, _ := store.Get(context.Background(), started.ConversationID)
	assert.Len(t, conv.Messages, 21) // 1 问候 + 10*2
}

func TestProcessTurnHintLimitedToTopTwo(t *testing.T) {
	sp, lm, ts := defaultFakes()
	sp.assessment.Words = []model.WordAccuracy{
		{Word: "first", AccuracyScore: 10},
		{Word: "second", AccuracyScore: 20},
		{Word: "third", AccuracyScore: 30},
	}
	sp.assessment.Transcript = "um first second third"
	svc, _ := newTestService(sp, lm, ts)

	started, _ := svc.Start(context.Background(), model.ModeFreeTalk, "")
	_, err := svc.ProcessTurn(context.Background(), TurnInput{
		ConversationID: started.ConversationID,
		Audio:          makeWAV(make([]byte, 8)),
	})
	require.NoError(t, err)

	assert.Contains(t, lm.lastHint, "first")
	assert.Contains(t, lm.lastHint, "second")
	assert.NotContains(t, lm.lastHint, "third")
	assert.Contains(t, lm.lastHint, "filler words: 1")
}

func TestEndRemovesConversation(t *testing.T) {
	sp, lm, ts := defaultFakes()
	svc, store := newTestService(sp, lm, ts)

	started, _ := svc.Start(context.Background(), model.ModeFreeTalk, "")
	_, err := svc.ProcessTurn(context.Background(), TurnInput{
		ConversationID: started.ConversationID,
		Audio:          makeWAV(make([]byte, 8)),
	})
	require.NoError(t, err)

	summary, err := svc.End(context.Background(), started.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, 80, summary.ClarityScore)

	conv, _ := store.Get(context.Background(), started.ConversationID)
	assert.Nil(t, conv)

	// 第二次 end 得到 NotFound
	_, err = svc.End(context.Background(), started.ConversationID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestEndNeverStarted(t *testing.T) {
	sp, lm, ts := defaultFakes()
	svc, _ := newTestService(sp, lm, ts)

	_, err := svc.End(context.Background(), "never-started")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestEndSummaryFailureKeepsConversation(t *testing.T) {
	sp, lm, ts := defaultFakes()
	lm.summaryErr = errors.New("llm down")
	svc, store := newTestService(sp, lm, ts)

	started, _ := svc.Start(context.Background(), model.ModeFreeTalk, "")
	_, err := svc.End(context.Background(), started.ConversationID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeSummaryFailed, apperr.CodeOf(err))

	// 会话保留，可重试
	conv, _ := store.Get(context.Background(), started.ConversationID)
	assert.NotNil(t, conv)

	lm.summaryErr = nil
	_, err = svc.End(context.Background(), started.ConversationID)
	assert.NoError(t, err)
}

func TestIsActiveUnknown(t *testing.T) {
	sp, lm, ts := defaultFakes()
	svc, _ := newTestService(sp, lm, ts)
	assert.False(t, svc.IsActive(context.Background(), "nope"))
}
