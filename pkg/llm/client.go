// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"speak-coach-go/internal/config"
	"speak-coach-go/internal/model"
)

// Reply 一次教练回复：对话响应与可选的内嵌提示。
type Reply struct {
	Response string
	Coaching *model.InlineCoaching
}

// SummaryFields LLM 产出的总结定性字段；数值字段缺失时由调用方填默认值。
type SummaryFields struct {
	ClarityScore      int
	FluencyScore      int
	StructureScore    int
	StructureFeedback string
	StyleObservation  string
	CoachingTip       string
	Strengths         []string
}

// Client 定义教练 LLM 客户端的接口。
type Client interface {
	// GenerateReply 根据会话历史与新转写生成一条教练回复。
	// hint 是发音上下文提示，只用于引导建议，绝不直接复述给用户。
	GenerateReply(ctx context.Context, mode string, history []model.Message, userText, hint string) (*Reply, error)
	// GenerateSummary 在会话结束时生成定性总结字段。
	GenerateSummary(ctx context.Context, conv *model.Conversation) (*SummaryFields, error)
}

type deepseekClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient 创建一个新的 LLM 客户端。
func NewClient(cfg config.LLMConfig) Client {
	return &deepseekClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

// chatMessage 表示一条角色消息
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Stream         bool            `json:"stream"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	TopP           *float64        `json:"top_p,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// replyPayload 教练回复的 JSON 结构。
type replyPayload struct {
	Response string `json:"response"`
	Coaching *struct {
		Type string `json:"type"`
		Tip  string `json:"tip"`
	} `json:"coaching"`
}

// summaryPayload 总结的 JSON 结构。
type summaryPayload struct {
	ClarityScore      int      `json:"clarityScore"`
	FluencyScore      int      `json:"fluencyScore"`
	StructureScore    int      `json:"structureScore"`
	StructureFeedback string   `json:"structureFeedback"`
	StyleObservation  string   `json:"styleObservation"`
	CoachingTip       string   `json:"coachingTip"`
	Strengths         []string `json:"strengths"`
}

const coachRules = `You are an encouraging English speaking coach. Reply conversationally in 1-3 sentences, ` +
	`then optionally add one short coaching tip. Always answer with a JSON object: ` +
	`{"response": "...", "coaching": {"type": "pronunciation|communication|encouragement", "tip": "one sentence"}}. ` +
	`Omit "coaching" when no tip is useful. Never repeat the pronunciation context to the user.`

const summaryRules = `You are an English speaking coach writing a session report. Given the conversation, answer ` +
	`with a JSON object: {"clarityScore": 0-100, "fluencyScore": 0-100, "structureScore": 0-100, ` +
	`"structureFeedback": "...", "styleObservation": "...", "coachingTip": "one sentence", "strengths": ["..."]}.`

func modeNote(mode string) string {
	switch mode {
	case model.ModeProfessional:
		return "Scenario: professional workplace conversation. Keep a business register."
	case model.ModeReflective:
		return "Scenario: reflective conversation. Ask gentle follow-up questions about feelings and experiences."
	default:
		return "Scenario: casual free talk. Keep it light and friendly."
	}
}

func (c *deepseekClient) GenerateReply(ctx context.Context, mode string, history []model.Message, userText, hint string) (*Reply, error) {
	messages := make([]chatMessage, 0, len(history)+2)
	system := coachRules + "\n" + modeNote(mode)
	if hint != "" {
		// 发音上下文仅用于引导提示内容
		system += "\nPronunciation context (internal, never quote): " + hint
	}
	messages = append(messages, chatMessage{Role: "system", Content: system})
	for _, m := range history {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userText})

	content, err := c.complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	var payload replyPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		// 个别模型无视 JSON 约束时，整段内容按纯回复处理
		return &Reply{Response: strings.TrimSpace(content)}, nil
	}
	reply := &Reply{Response: payload.Response}
	if payload.Coaching != nil && payload.Coaching.Tip != "" {
		reply.Coaching = &model.InlineCoaching{Type: payload.Coaching.Type, Tip: payload.Coaching.Tip}
	}
	return reply, nil
}

func (c *deepseekClient) GenerateSummary(ctx context.Context, conv *model.Conversation) (*SummaryFields, error) {
	var transcript strings.Builder
	for _, m := range conv.Messages {
		transcript.WriteString(m.Role)
		transcript.WriteString(": ")
		transcript.WriteString(m.Content)
		transcript.WriteString("\n")
	}

	messages := []chatMessage{
		{Role: "system", Content: summaryRules + "\n" + modeNote(conv.Mode)},
		{Role: "user", Content: transcript.String()},
	}

	content, err := c.complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	var payload summaryPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("解析总结响应失败: %w", err)
	}
	return &SummaryFields{
		ClarityScore:      payload.ClarityScore,
		FluencyScore:      payload.FluencyScore,
		StructureScore:    payload.StructureScore,
		StructureFeedback: payload.StructureFeedback,
		StyleObservation:  payload.StyleObservation,
		CoachingTip:       payload.CoachingTip,
		Strengths:         payload.Strengths,
	}, nil
}

// complete 调用 chat/completions 接口并返回首个 choice 的内容。
func (c *deepseekClient) complete(ctx context.Context, messages []chatMessage) (string, error) {
	reqBody := chatRequest{
		Model:          c.cfg.Model,
		Messages:       messages,
		Stream:         false,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	// 从配置注入生成参数（若非零值）
	if c.cfg.Generation.Temperature != 0 {
		t := c.cfg.Generation.Temperature
		reqBody.Temperature = &t
	}
	if c.cfg.Generation.TopP != 0 {
		p := c.cfg.Generation.TopP
		reqBody.TopP = &p
	}
	if c.cfg.Generation.MaxTokens != 0 {
		m := c.cfg.Generation.MaxTokens
		reqBody.MaxTokens = &m
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("chat api returned no choices")
	}
	return cr.Choices[0].Message.Content, nil
}
