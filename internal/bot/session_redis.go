package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisSessionStore 基于 Redis 的会话存储
// 带 TTL，过期即视为流程中断，重启后会话全部丢失
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(key int64) string {
	return fmt.Sprintf("bot:session:%d", key)
}

func (s *RedisSessionStore) Get(ctx context.Context, key int64) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		// 损坏的会话按不存在处理
		return nil, nil
	}
	if session.Scratch == nil {
		session.Scratch = make(map[string]string)
	}
	return &session, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, key int64, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(key), data, s.ttl).Err()
}

func (s *RedisSessionStore) Clear(ctx context.Context, key int64) error {
	return s.client.Del(ctx, sessionKey(key)).Err()
}
