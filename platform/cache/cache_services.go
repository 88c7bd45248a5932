package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"medpipe_backend/pkg/logging"
)

type Service struct {
	l1 *L1CacheService
	l2 CacheService
}

// NewCacheService layers the in-process cache over l2. l2 may be nil.
func NewCacheService(l1 *L1CacheService, l2 CacheService) *Service {
	return &Service{l1: l1, l2: l2}
}

func (cs *Service) GetCache(key string) (interface{}, bool) {
	if data, ok := cs.l1.Get(key); ok {
		return data, ok
	}
	if cs.l2 == nil {
		return nil, false
	}
	if data, ok := cs.l2.GetCache(key); ok {
		return data, ok
	}
	return nil, false
}

// SetCache keeps the JSON encoding in both levels, so a hit decodes the
// same way whichever level served it.
func (cs *Service) SetCache(key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	if cs.l2 != nil {
		if err := cs.l2.SetCache(key, value, expiration); err != nil {
			logging.Logger.Error("l2 fail SetCache", "error", err, "key", key)
			return err
		}
	}
	cs.l1.Set(key, data, time.Duration(float64(expiration)*0.3))
	return nil
}

func (cs *Service) DelCache(key string) error {
	cs.l1.Del(key)
	if cs.l2 == nil {
		return nil
	}
	if err := cs.l2.DelCache(key); err != nil {
		logging.Logger.Error("l2 fail DelCache", "error", err, "key", key)
		return err
	}
	return nil
}
