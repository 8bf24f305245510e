package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisHistory keeps each history in a capped redis list
type RedisHistory struct {
	client *redis.Client
	max    int64
}

// NewRedisHistory keeps at most max entries per user (MaxEntries when max <= 0)
func NewRedisHistory(client *redis.Client, max int) *RedisHistory {
	if max <= 0 {
		max = MaxEntries
	}
	return &RedisHistory{client: client, max: int64(max)}
}

func historyKey(userID string) string {
	return "chat:" + userID + ":history"
}

func (h *RedisHistory) Append(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	key := historyKey(e.UserID)
	_, err = h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, -h.max, -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("chat history append failed: %w", err)
	}
	return nil
}

func (h *RedisHistory) Recent(ctx context.Context, userID string, n int) ([]Entry, error) {
	start := int64(0)
	if n > 0 {
		start = -int64(n)
	}
	items, err := h.client.LRange(ctx, historyKey(userID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("chat history read failed: %w", err)
	}
	out := make([]Entry, 0, len(items))
	for _, item := range items {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("corrupt chat entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}
