package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"medpipe_backend/config"
	"medpipe_backend/pkg/logging"
)

// ErrQueueEmpty is returned by PopFromQueue when the wait timed out.
var ErrQueueEmpty = errors.New("queue empty")

type Service struct {
	Rdb *redis.Client
	Ctx context.Context
}

func InitRedis(cfg *config.Config) (*Service, error) {
	redisUrl := cfg.RedisURL
	if redisUrl == "" {
		return nil, fmt.Errorf("empty redis url")
	}
	opt, err := redis.ParseURL(redisUrl)
	if err != nil {
		return nil, fmt.Errorf("could not parse Redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)

	testCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rdb.Ping(testCtx).Err(); err != nil {
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	logging.Logger.Info("Connected to Redis", "addr", opt.Addr)
	return NewService(rdb), nil
}

func NewService(rdb *redis.Client) *Service {
	return &Service{Rdb: rdb, Ctx: context.Background()}
}

func (s *Service) SetCache(key string, value interface{}, expiration time.Duration) error {
	prefixedKey := "cache:" + key
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.Rdb.Set(s.Ctx, prefixedKey, jsonData, expiration).Err()
}

// GetCache returns the raw JSON string; callers decode it.
func (s *Service) GetCache(key string) (interface{}, bool) {
	prefixedKey := "cache:" + key
	val, err := s.Rdb.Get(s.Ctx, prefixedKey).Result()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (s *Service) DelCache(key string) error {
	prefixedKey := "cache:" + key
	return s.Rdb.Del(s.Ctx, prefixedKey).Err()
}

func (s *Service) PushToQueue(ctx context.Context, queueName string, value interface{}) error {
	prefixedQueueName := "queue:" + queueName
	jsonValue, err := json.Marshal(value)
	if err != nil {
		logging.Logger.Error("fail PushToQueue", "error", err)
		return err
	}
	return s.Rdb.LPush(ctx, prefixedQueueName, string(jsonValue)).Err()
}

// PopFromQueue blocks up to timeout for the oldest entry.
func (s *Service) PopFromQueue(ctx context.Context, queueName string, timeout time.Duration) (string, error) {
	prefixedQueueName := "queue:" + queueName
	res, err := s.Rdb.BRPop(ctx, timeout, prefixedQueueName).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}
	if err != nil {
		return "", err
	}
	// BRPOP answers [key, value]
	if len(res) != 2 {
		return "", fmt.Errorf("unexpected BRPOP reply: %v", res)
	}
	return res[1], nil
}

func (s *Service) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.Rdb.SetNX(ctx, "lock:"+key, time.Now().Unix(), ttl).Result()
}

func (s *Service) ReleaseLock(ctx context.Context, key string) error {
	return s.Rdb.Del(ctx, "lock:"+key).Err()
}
