package cache

import (
	"fmt"

	"github.com/opensource-finance/harrier/internal/domain"
)

// New creates a ledger cache based on configuration.
func New(cfg domain.CacheConfig) (domain.LedgerCache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil
	case "redis":
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
