package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vovakirdan/chatrelay/internal/store"
)

// DefaultKey is the list holding chat history.
const DefaultKey = "chat:messages"

// RedisStore keeps chat history in a Redis list, one JSON entry per message.
type RedisStore struct {
	client *redis.Client
	key    string
}

type entry struct {
	ID   string `json:"id"`
	User string `json:"user"`
	Msg  string `json:"msg"`
	Time int64  `json:"time"`
}

// New parses redisURL, connects and pings the server.
func New(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client, key: DefaultKey}, nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// AppendMessage pushes a message to the tail of the history list.
func (s *RedisStore) AppendMessage(ctx context.Context, msg *store.Message) error {
	data, err := json.Marshal(entry{ID: msg.ID, User: msg.User, Msg: msg.Msg, Time: msg.Time})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("rpush message: %w", err)
	}
	return nil
}

// ListMessages returns the whole list, head first.
func (s *RedisStore) ListMessages(ctx context.Context) ([]*store.Message, error) {
	raw, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange messages: %w", err)
	}

	messages := make([]*store.Message, 0, len(raw))
	for _, item := range raw {
		var e entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		messages = append(messages, &store.Message{ID: e.ID, User: e.User, Msg: e.Msg, Time: e.Time})
	}
	return messages, nil
}
