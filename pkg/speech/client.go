// Package speech 提供语音识别与发音评测服务的客户端。
package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"speak-coach-go/internal/config"
	"speak-coach-go/internal/model"
)

// Assessment 一次发音评测的结果。
type Assessment struct {
	Transcript   string
	OverallScore float64
	FluencyScore float64
	Words        []model.WordAccuracy
}

// AssessOptions 评测选项。ReferenceText 为空表示自由说（无参考文本）模式。
type AssessOptions struct {
	ReferenceText string
	Language      string
}

// Client 定义发音评测客户端的接口。
type Client interface {
	// Assess 对一段 WAV 音频做识别与发音评测。
	Assess(ctx context.Context, audio []byte, opts AssessOptions) (*Assessment, error)
}

type azureClient struct {
	cfg    config.SpeechConfig
	client *http.Client
}

// NewClient 创建一个新的发音评测客户端。
func NewClient(cfg config.SpeechConfig) Client {
	return &azureClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

// pronunciationAssessmentParams 随请求头下发的评测配置（Base64 编码 JSON）。
type pronunciationAssessmentParams struct {
	ReferenceText string `json:"ReferenceText"`
	GradingSystem string `json:"GradingSystem"`
	Granularity   string `json:"Granularity"`
	Dimension     string `json:"Dimension"`
}

// recognitionResponse 语音服务 detailed 格式的响应。
type recognitionResponse struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
	NBest             []struct {
		Display       string  `json:"Display"`
		PronScore     float64 `json:"PronScore"`
		AccuracyScore float64 `json:"AccuracyScore"`
		FluencyScore  float64 `json:"FluencyScore"`
		Words         []struct {
			Word                    string `json:"Word"`
			PronunciationAssessment struct {
				AccuracyScore float64 `json:"AccuracyScore"`
			} `json:"PronunciationAssessment"`
			Phonemes []struct {
				Phoneme string `json:"Phoneme"`
			} `json:"Phonemes"`
		} `json:"Words"`
	} `json:"NBest"`
}

func (c *azureClient) Assess(ctx context.Context, audio []byte, opts AssessOptions) (*Assessment, error) {
	language := opts.Language
	if language == "" {
		language = c.cfg.Language
	}

	url := fmt.Sprintf("%s/speech/recognition/conversation/cognitiveservices/v1?language=%s&format=detailed", c.cfg.BaseURL, language)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(audio))
	if err != nil {
		return nil, fmt.Errorf("创建评测请求失败: %w", err)
	}

	params := pronunciationAssessmentParams{
		ReferenceText: opts.ReferenceText,
		GradingSystem: "HundredMark",
		Granularity:   "Phoneme",
		Dimension:     "Comprehensive",
	}
	paramBytes, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("序列化评测配置失败: %w", err)
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "audio/wav; codecs=audio/pcm")
	req.Header.Set("Pronunciation-Assessment", base64.StdEncoding.EncodeToString(paramBytes))
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("调用语音评测服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("语音评测服务返回错误 [%d]: %s", resp.StatusCode, string(body))
	}

	var rr recognitionResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("解析评测响应失败: %w", err)
	}

	result := &Assessment{Transcript: rr.DisplayText}
	if len(rr.NBest) > 0 {
		best := rr.NBest[0]
		if best.Display != "" {
			result.Transcript = best.Display
		}
		result.OverallScore = best.PronScore
		result.FluencyScore = best.FluencyScore
		for _, w := range best.Words {
			wa := model.WordAccuracy{
				Word:          w.Word,
				AccuracyScore: w.PronunciationAssessment.AccuracyScore,
			}
			for _, p := range w.Phonemes {
				wa.Phonemes = append(wa.Phonemes, p.Phoneme)
			}
			result.Words = append(result.Words, wa)
		}
	}
	return result, nil
}
