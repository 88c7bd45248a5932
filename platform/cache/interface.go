package cache

import (
	"context"
	"time"
)

// CacheService is the two-level cache used for translations and language codes.
type CacheService interface {
	GetCache(key string) (interface{}, bool)
	SetCache(key string, value interface{}, expiration time.Duration) error
	DelCache(key string) error
}

// MessageQueue is the redis list used for pipeline tasks.
type MessageQueue interface {
	PushToQueue(ctx context.Context, queueName string, value interface{}) error
	PopFromQueue(ctx context.Context, queueName string, timeout time.Duration) (string, error)
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}
