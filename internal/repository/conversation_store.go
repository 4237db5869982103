// Package repository 提供了会话数据的存取层。
package repository

import (
	"context"
	"sync"

	"speak-coach-go/internal/model"
)

// ConversationStore 定义了会话存储的操作接口。
// 会话常驻内存（进程重启即丢失），也可以替换为网络化实现。
// 未命中时 Get 返回 (nil, nil)，由调用方决定是否视为错误。
type ConversationStore interface {
	Get(ctx context.Context, id string) (*model.Conversation, error)
	Put(ctx context.Context, conv *model.Conversation) error
	Remove(ctx context.Context, id string) error
	// List 返回当前存储的全部会话，供后台清理器扫描。
	List(ctx context.Context) ([]*model.Conversation, error)
}

type memoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation
}

// NewMemoryStore 创建一个进程内的会话存储。
func NewMemoryStore() ConversationStore {
	return &memoryStore{conversations: make(map[string]*model.Conversation)}
}

func (s *memoryStore) Get(ctx context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversations[id], nil
}

func (s *memoryStore) Put(ctx context.Context, conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ID] = conv
	return nil
}

func (s *memoryStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	return nil
}

func (s *memoryStore) List(ctx context.Context) ([]*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, conv)
	}
	return out, nil
}
