package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sozercan/cheatsheet-ai/internal/config"
	"github.com/sozercan/cheatsheet-ai/internal/llm"
)

// Redis persists threads as lists of JSON messages.
// Data model:
//   - key prefix+id => RPUSH'ed JSON(llm.Message), trimmed to maxMessages, TTL refreshed on write
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(cfg config.MemoryConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewRedisWithClient(client, cfg.TTL), nil
}

func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Redis{client: client, prefix: "cheatsheet:thread:", ttl: ttl}
}

func (r *Redis) key(threadID string) string { return r.prefix + threadID }

// Ping checks connectivity; used at startup so a bad address fails fast.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) History(ctx context.Context, threadID string) ([]llm.Message, error) {
	raw, err := r.client.LRange(ctx, r.key(threadID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("loading thread %s: %w", threadID, err)
	}
	msgs := make([]llm.Message, 0, len(raw))
	for _, item := range raw {
		var m llm.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("decoding thread %s: %w", threadID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (r *Redis) Append(ctx context.Context, threadID string, msgs ...llm.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return err
		}
		values = append(values, string(b))
	}

	key := r.key(threadID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, -maxMessages, -1)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving thread %s: %w", threadID, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, threadID string) error {
	return r.client.Del(ctx, r.key(threadID)).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
