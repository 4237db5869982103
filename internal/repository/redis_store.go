package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"speak-coach-go/internal/model"
)

const (
	conversationKeyPrefix = "coach:conversation:"
	conversationTTL       = 24 * time.Hour
)

type redisStore struct {
	redisClient *redis.Client
}

// NewRedisStore 创建一个 Redis 后端的会话存储，供多实例部署替换内存实现。
func NewRedisStore(redisClient *redis.Client) ConversationStore {
	return &redisStore{redisClient: redisClient}
}

func (s *redisStore) Get(ctx context.Context, id string) (*model.Conversation, error) {
	jsonData, err := s.redisClient.Get(ctx, conversationKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	var conv model.Conversation
	if err := json.Unmarshal([]byte(jsonData), &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return &conv, nil
}

func (s *redisStore) Put(ctx context.Context, conv *model.Conversation) error {
	jsonData, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := s.redisClient.Set(ctx, conversationKeyPrefix+conv.ID, jsonData, conversationTTL).Err(); err != nil {
		return fmt.Errorf("failed to set conversation: %w", err)
	}
	return nil
}

func (s *redisStore) Remove(ctx context.Context, id string) error {
	if err := s.redisClient.Del(ctx, conversationKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

func (s *redisStore) List(ctx context.Context) ([]*model.Conversation, error) {
	keys, err := s.redisClient.Keys(ctx, conversationKeyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation keys: %w", err)
	}
	out := make([]*model.Conversation, 0, len(keys))
	for _, k := range keys {
		jsonData, getErr := s.redisClient.Get(ctx, k).Result()
		if getErr != nil {
			continue
		}
		var conv model.Conversation
		if err := json.Unmarshal([]byte(jsonData), &conv); err != nil {
			continue
		}
		out = append(out, &conv)
	}
	return out, nil
}
