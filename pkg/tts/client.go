// Package tts 提供语音合成服务的客户端。
package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"speak-coach-go/internal/config"
)

// Synthesis 一次合成的结果。
type Synthesis struct {
	AudioBase64 string
	DurationMs  int
}

// Client 定义语音合成客户端的接口。
type Client interface {
	Synthesize(ctx context.Context, text string) (*Synthesis, error)
}

type restClient struct {
	cfg    config.TTSConfig
	client *http.Client
}

// NewClient 创建一个新的语音合成客户端。
func NewClient(cfg config.TTSConfig) Client {
	return &restClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type synthesizeRequest struct {
	Input  string `json:"input"`
	Voice  string `json:"voice"`
	Format string `json:"response_format,omitempty"`
}

func (c *restClient) Synthesize(ctx context.Context, text string) (*Synthesis, error) {
	reqBody := synthesizeRequest{
		Input:  text,
		Voice:  c.cfg.Voice,
		Format: c.cfg.Format,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("序列化合成请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/audio/speech", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("创建合成请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("调用语音合成服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("语音合成服务返回错误 [%d]: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取合成音频失败: %w", err)
	}

	// 时长按 16kHz 16bit 单声道 PCM 估算；接口返回容器格式时该值仅供参考
	const bytesPerMs = 32
	return &Synthesis{
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
		DurationMs:  len(audio) / bytesPerMs,
	}, nil
}
