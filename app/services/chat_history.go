package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ChatHistoryStore keeps one conversation per session id.
type ChatHistoryStore interface {
	// Load returns nil when the session is unknown.
	Load(ctx context.Context, sessionID string) ([]ChatMessage, error)
	Save(ctx context.Context, sessionID string, history []ChatMessage) error
	Delete(ctx context.Context, sessionID string) error
}

// RedisChatHistoryStore stores each conversation as a JSON value with a TTL.
type RedisChatHistoryStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisChatHistoryStore(client *redis.Client, prefix string, ttl time.Duration) *RedisChatHistoryStore {
	return &RedisChatHistoryStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisChatHistoryStore) key(sessionID string) string {
	return s.prefix + "chat:" + sessionID
}

func (s *RedisChatHistoryStore) Load(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	var history []ChatMessage
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("failed to decode chat history: %w", err)
	}
	return history, nil
}

func (s *RedisChatHistoryStore) Save(ctx context.Context, sessionID string, history []ChatMessage) error {
	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode chat history: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save chat history: %w", err)
	}
	return nil
}

func (s *RedisChatHistoryStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete chat history: %w", err)
	}
	return nil
}

// MemoryChatHistoryStore is the in-process store used when Redis is disabled.
type MemoryChatHistoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryChat
	ttl      time.Duration
	now      func() time.Time
}

type memoryChat struct {
	history   []ChatMessage
	expiresAt time.Time
}

func NewMemoryChatHistoryStore(ttl time.Duration) *MemoryChatHistoryStore {
	return &MemoryChatHistoryStore{sessions: make(map[string]memoryChat), ttl: ttl, now: time.Now}
}

func (s *MemoryChatHistoryStore) Load(_ context.Context, sessionID string) ([]ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if s.ttl > 0 && !s.now().Before(chat.expiresAt) {
		delete(s.sessions, sessionID)
		return nil, nil
	}
	return append([]ChatMessage(nil), chat.history...), nil
}

func (s *MemoryChatHistoryStore) Save(_ context.Context, sessionID string, history []ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	s.sessions[sessionID] = memoryChat{
		history:   append([]ChatMessage(nil), history...),
		expiresAt: now.Add(s.ttl),
	}
	return nil
}

// sweep drops abandoned sessions that were never loaded again. Caller holds mu.
func (s *MemoryChatHistoryStore) sweep(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, chat := range s.sessions {
		if !now.Before(chat.expiresAt) {
			delete(s.sessions, id)
		}
	}
}

func (s *MemoryChatHistoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
