package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"speak-coach-go/internal/analysis"
	"speak-coach-go/internal/apperr"
	"speak-coach-go/internal/model"
	"speak-coach-go/internal/repository"
	"speak-coach-go/pkg/kafka"
	"speak-coach-go/pkg/llm"
	"speak-coach-go/pkg/log"
	"speak-coach-go/pkg/speech"
	"speak-coach-go/pkg/storage"
	"speak-coach-go/pkg/tts"
	"speak-coach-go/pkg/wav"
)

// StartResult Start 操作的返回值。
type StartResult struct {
	ConversationID      string `json:"conversationId"`
	Greeting            string `json:"greeting"`
	GreetingAudioBase64 string `json:"greetingAudioBase64"`
}

// TurnInput ProcessTurn 的输入：一段完整的用户语音。
type TurnInput struct {
	ConversationID string
	Audio          []byte
}

// TurnResult 一轮处理的结果。
type TurnResult struct {
	UserMessage      model.Message `json:"userMessage"`
	AssistantMessage model.Message `json:"assistantMessage"`
	AudioBase64      string        `json:"audioBase64"`
}

// ChatService 定义了会话编排的接口：start -> (audio-turn)* -> end。
type ChatService interface {
	// Start 创建一个新会话并返回问候语。合成失败时不产生任何会话状态。
	Start(ctx context.Context, mode, userID string) (*StartResult, error)
	// ProcessTurn 处理一轮用户语音：评测、生成回复、合成音频并成对追加消息。
	// 任一协作方失败都会中止本轮且不修改会话，会话保持 Active 可重试。
	ProcessTurn(ctx context.Context, input TurnInput) (*TurnResult, error)
	// End 生成总结并把会话从存储中移除；总结失败则保留会话以便重试。
	End(ctx context.Context, conversationID string) (*model.ConversationSummary, error)
	// IsActive 咨询性的存活检查，本身不过期也不移除任何会话。
	IsActive(ctx context.Context, conversationID string) bool
	// ReapExpired 移除超时未结束的会话，返回移除数量。由外部定时驱动。
	ReapExpired(ctx context.Context) int
}

type chatService struct {
	store        repository.ConversationStore
	speechClient speech.Client
	llmClient    llm.Client
	ttsClient    tts.Client
	analytics    kafka.Producer       // 可为 nil
	archive      storage.AudioArchive // 可为 nil
	maxTurns     int
	maxDuration  time.Duration
	now          func() time.Time
	// 按会话串行化：保证消息严格成对追加、无交错
	locks sync.Map // conversationID -> *sync.Mutex
}

// NewChatService 创建一个新的 ChatService 实例。analytics 与 archive 可传 nil。
func NewChatService(
	store repository.ConversationStore,
	speechClient speech.Client,
	llmClient llm.Client,
	ttsClient tts.Client,
	analytics kafka.Producer,
	archive storage.AudioArchive,
	maxTurns int,
	maxDurationSeconds int,
) ChatService {
	return &chatService{
		store:        store,
		speechClient: speechClient,
		llmClient:    llmClient,
		ttsClient:    ttsClient,
		analytics:    analytics,
		archive:      archive,
		maxTurns:     maxTurns,
		maxDuration:  time.Duration(maxDurationSeconds) * time.Second,
		now:          time.Now,
	}
}

// 各模式的固定问候语。
var greetings = map[string]string{
	model.ModeFreeTalk:     "Hey! Great to hear from you. What would you like to talk about today?",
	model.ModeReflective:   "Hi, welcome back. How are you feeling today?",
	model.ModeProfessional: "Hello! Let's practice some workplace English. How has your week been going?",
}

func normalizeMode(mode string) string {
	switch mode {
	case model.ModeReflective, model.ModeProfessional:
		return mode
	default:
		return model.ModeFreeTalk
	}
}

func (s *chatService) lockConversation(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *chatService) Start(ctx context.Context, mode, userID string) (*StartResult, error) {
	mode = normalizeMode(mode)
	greeting := greetings[mode]

	// 先合成问候音频；失败则不创建任何会话状态
	synthesis, err := s.ttsClient.Synthesize(ctx, greeting)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStartFailed, "tts: failed to synthesize greeting", err)
	}

	conv := &model.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Mode:      mode,
		StartedAt: s.now(),
		Messages: []model.Message{
			{Role: model.RoleAssistant, Content: greeting, Timestamp: s.now()},
		},
	}
	if err := s.store.Put(ctx, conv); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to store conversation", err)
	}

	log.Infow("会话已创建", "conversationId", conv.ID, "mode", mode, "userId", userID)
	return &StartResult{
		ConversationID:      conv.ID,
		Greeting:            greeting,
		GreetingAudioBase64: synthesis.AudioBase64,
	}, nil
}

func (s *chatService) ProcessTurn(ctx context.Context, input TurnInput) (*TurnResult, error) {
	unlock := s.lockConversation(input.ConversationID)
	defer unlock()

	conv, err := s.store.Get(ctx, input.ConversationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load conversation", err)
	}
	if conv == nil {
		return nil, apperr.NotFound(input.ConversationID)
	}
	if conv.TurnCount() >= s.maxTurns {
		return nil, apperr.New(apperr.CodeMaxTurns,
			fmt.Sprintf("conversation reached the maximum of %d turns", s.maxTurns))
	}

	// (a) 定位 PCM 负载并做无参考文本的发音评测
	if _, err := wav.Parse(input.Audio); err != nil {
		return nil, apperr.Wrap(apperr.CodeProcessFailed, "invalid wav audio", err)
	}
	assessment, err := s.speechClient.Assess(ctx, input.Audio, speech.AssessOptions{})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeProcessFailed, "speech: pronunciation assessment failed", err)
	}
	transcript := strings.TrimSpace(assessment.Transcript)
	if transcript == "" {
		return nil, apperr.New(apperr.CodeNoSpeech, "no speech detected in audio")
	}

	// (b) 推导发音反馈
	feedback := analysis.BuildFeedback(assessment.OverallScore, assessment.FluencyScore, assessment.Words, transcript)

	// (c) 生成教练回复；发音提示只取最差 2 个词与填充词总数
	hint := buildPronunciationHint(feedback)
	reply, err := s.llmClient.GenerateReply(ctx, conv.Mode, conv.Messages, transcript, hint)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeProcessFailed, "llm: failed to generate reply", err)
	}

	// (d) 合成回复音频
	synthesis, err := s.ttsClient.Synthesize(ctx, reply.Response)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeProcessFailed, "tts: failed to synthesize reply", err)
	}

	// (e) 成对追加消息并刷新会话时长
	userMessage := model.Message{
		Role:          model.RoleUser,
		Content:       transcript,
		Timestamp:     s.now(),
		Pronunciation: &feedback,
	}
	assistantMessage := model.Message{
		Role:      model.RoleAssistant,
		Content:   reply.Response,
		Timestamp: s.now(),
		Coaching:  reply.Coaching,
	}
	conv.Messages = append(conv.Messages, userMessage, assistantMessage)
	conv.DurationSeconds = int(s.now().Sub(conv.StartedAt).Seconds())
	if err := s.store.Put(ctx, conv); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to store conversation", err)
	}

	if s.archive != nil {
		turn := conv.TurnCount()
		convID := conv.ID
		audio := input.Audio
		go func() {
			if err := s.archive.ArchiveTurnAudio(context.Background(), convID, turn, audio); err != nil {
				log.Warnf("归档音频失败: conversationId=%s turn=%d err=%v", convID, turn, err)
			}
		}()
	}

	return &TurnResult{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
		AudioBase64:      synthesis.AudioBase64,
	}, nil
}

func (s *chatService) End(ctx context.Context, conversationID string) (*model.ConversationSummary, error) {
	unlock := s.lockConversation(conversationID)
	defer unlock()

	conv, err := s.store.Get(ctx, conversationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load conversation", err)
	}
	if conv == nil {
		return nil, apperr.NotFound(conversationID)
	}

	fields, err := s.llmClient.GenerateSummary(ctx, conv)
	if err != nil {
		// 总结失败不移除会话，调用方可以重试 end
		return nil, apperr.Wrap(apperr.CodeSummaryFailed, "llm: failed to generate summary", err)
	}

	endedAt := s.now()
	conv.EndedAt = endedAt
	conv.DurationSeconds = int(endedAt.Sub(conv.StartedAt).Seconds())
	summary := buildSummary(conv, fields)
	conv.Summary = summary

	// 总结成功后会话无条件移除，再次 end 或 turn 都会得到 NotFound
	if err := s.store.Remove(ctx, conversationID); err != nil {
		log.Warnf("移除会话失败: conversationId=%s err=%v", conversationID, err)
	}
	s.locks.Delete(conversationID)

	if s.analytics != nil {
		event := kafka.SessionCompletedEvent{
			ConversationID:  conv.ID,
			UserID:          conv.UserID,
			Mode:            conv.Mode,
			DurationSeconds: conv.DurationSeconds,
			Turns:           conv.TurnCount(),
			OverallScore:    summary.OverallScore,
			CompletedAt:     endedAt,
		}
		go func() {
			if err := s.analytics.PublishSessionCompleted(context.Background(), event); err != nil {
				log.Warnf("发布会话分析事件失败: conversationId=%s err=%v", event.ConversationID, err)
			}
		}()
	}

	log.Infow("会话已结束", "conversationId", conv.ID, "turns", conv.TurnCount(), "overallScore", summary.OverallScore)
	return summary, nil
}

func (s *chatService) IsActive(ctx context.Context, conversationID string) bool {
	conv, err := s.store.Get(ctx, conversationID)
	if err != nil || conv == nil {
		return false
	}
	return s.now().Sub(conv.StartedAt) < s.maxDuration
}

// reapGrace 超出最大时长后额外保留的窗口，留给客户端自行触发 end。
const reapGrace = 30 * time.Second

func (s *chatService) ReapExpired(ctx context.Context) int {
	conversations, err := s.store.List(ctx)
	if err != nil {
		log.Warnf("扫描会话存储失败: %v", err)
		return 0
	}
	reaped := 0
	for _, conv := range conversations {
		if s.now().Sub(conv.StartedAt) <= s.maxDuration+reapGrace {
			continue
		}
		if err := s.store.Remove(ctx, conv.ID); err != nil {
			log.Warnf("清理过期会话失败: conversationId=%s err=%v", conv.ID, err)
			continue
		}
		s.locks.Delete(conv.ID)
		reaped++
		log.Warnf("会话超时未结束，已清理: conversationId=%s startedAt=%s", conv.ID, conv.StartedAt.Format(time.RFC3339))
	}
	return reaped
}

// buildPronunciationHint 构造传给 LLM 的发音上下文：最差 2 个词 + 填充词总数。
// 这段内容只用于引导教练提示，绝不原样展示给用户。
func buildPronunciationHint(feedback model.PronunciationFeedback) string {
	var parts []string
	if len(feedback.MispronouncedWords) > 0 {
		words := feedback.MispronouncedWords
		if len(words) > 2 {
			words = words[:2]
		}
		names := make([]string, 0, len(words))
		for _, w := range words {
			names = append(names, w.Word)
		}
		parts = append(parts, "mispronounced: "+strings.Join(names, ", "))
	}
	if feedback.Fillers.Total > 0 {
		parts = append(parts, fmt.Sprintf("filler words: %d", feedback.Fillers.Total))
	}
	return strings.Join(parts, "; ")
}
