// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"speak-coach-go/internal/config"
	"speak-coach-go/pkg/log"
)

// SessionCompletedEvent 会话结束后发布的分析事件。
type SessionCompletedEvent struct {
	ConversationID  string    `json:"conversationId"`
	UserID          string    `json:"userId"`
	Mode            string    `json:"mode"`
	DurationSeconds int       `json:"durationSeconds"`
	Turns           int       `json:"turns"`
	OverallScore    int       `json:"overallScore"`
	CompletedAt     time.Time `json:"completedAt"`
}

// Producer 发布会话分析事件。
type Producer interface {
	PublishSessionCompleted(ctx context.Context, event SessionCompletedEvent) error
}

type producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
	return &producer{writer: w}
}

// PublishSessionCompleted 发送一条会话完成事件。
func (p *producer) PublishSessionCompleted(ctx context.Context, event SessionCompletedEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx,
		kafka.Message{
			Key:   []byte(event.ConversationID),
			Value: eventBytes,
		},
	)
}
