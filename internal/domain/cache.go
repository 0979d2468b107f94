package domain

import (
	"context"
	"fmt"
	"time"
)

// LedgerKey identifies one cached ledger fetch. The cache is caller-owned
// and passed into the pipeline explicitly; its lifetime is a deliberate
// choice of the embedding process, not an accident of process lifetime.
type LedgerKey struct {
	AccountID string
	Start     string // "2006-01-02"
	End       string // "2006-01-02"
}

// NewLedgerKey builds a key from an account id and window bounds.
func NewLedgerKey(accountID string, start, end time.Time) LedgerKey {
	return LedgerKey{
		AccountID: accountID,
		Start:     start.Format("2006-01-02"),
		End:       end.Format("2006-01-02"),
	}
}

// String renders the cache key.
func (k LedgerKey) String() string {
	return fmt.Sprintf("ledger:%s:%s:%s", k.AccountID, k.Start, k.End)
}

// LedgerCache caches fetched ledgers keyed by (account, window). A nil
// value with nil error means miss. Eviction is explicit via Delete plus
// whatever TTL/capacity policy the implementation enforces.
type LedgerCache interface {
	Get(ctx context.Context, key LedgerKey) ([]byte, error)
	Set(ctx context.Context, key LedgerKey, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key LedgerKey) error
	Ping(ctx context.Context) error
	Close() error
}

// CacheConfig holds ledger cache settings.
type CacheConfig struct {
	// Type is "memory" or "redis".
	Type string `yaml:"type"`

	LocalMaxSize int `yaml:"localMaxSize"`
	// TTLSeconds bounds how long a fetched ledger stays reusable.
	TTLSeconds int `yaml:"ttlSeconds"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDb"`
}
