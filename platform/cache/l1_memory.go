package cache

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// L1CacheService is the in-process layer.
type L1CacheService struct {
	client *cache.Cache
}

func InitL1Cache() *L1CacheService {
	return NewL1Cache(5*time.Minute, 10*time.Minute)
}

func NewL1Cache(defaultTTL, cleanupInterval time.Duration) *L1CacheService {
	return &L1CacheService{client: cache.New(defaultTTL, cleanupInterval)}
}

func (s *L1CacheService) Get(key string) (interface{}, bool) {
	return s.client.Get(key)
}

func (s *L1CacheService) Set(key string, value interface{}, expiration time.Duration) {
	if expiration <= 0 {
		expiration = cache.DefaultExpiration
	}
	s.client.Set(key, value, expiration)
}

func (s *L1CacheService) Del(key string) {
	s.client.Delete(key)
}
