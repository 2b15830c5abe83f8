package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// onlineUserTTL outlives several ping periods; the websocket hub refreshes
// the key on every ping, so only a dead connection lets it lapse.
const onlineUserTTL = 5 * time.Minute

// RedisService wraps the redis operations the service needs: request rate
// limiting for the HTTP/upgrade surface and online-user bookkeeping for the
// websocket hub.
type RedisService struct {
	client *redis.Client
}

func NewRedisService(client *redis.Client) *RedisService {
	return &RedisService{client: client}
}

// CheckRateLimit implements a fixed-window counter. The first hit in a
// window creates the key with the window TTL; the call reports whether the
// current hit is still within the allowance.
func (s *RedisService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}

func (s *RedisService) SetUserOnline(ctx context.Context, userID string) error {
	return s.client.Set(ctx, onlineKey(userID), "1", onlineUserTTL).Err()
}

func (s *RedisService) SetUserOffline(ctx context.Context, userID string) error {
	return s.client.Del(ctx, onlineKey(userID)).Err()
}

func (s *RedisService) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	n, err := s.client.Exists(ctx, onlineKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func onlineKey(userID string) string {
	return fmt.Sprintf("online:%s", userID)
}
