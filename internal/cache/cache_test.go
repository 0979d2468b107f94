package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

func testKey(account string) domain.LedgerKey {
	return domain.NewLedgerKey(account,
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
}

func TestLRUGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(10)
	key := testKey("ACC-1")

	got, err := c.Get(ctx, key)
	if err != nil || got != nil {
		t.Fatalf("empty cache Get = %v, %v", got, err)
	}

	if err := c.Set(ctx, key, []byte(`[{"accountId":"ACC-1"}]`), time.Minute); err != nil {
		t.Fatal(err)
	}
	got, err = c.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `[{"accountId":"ACC-1"}]` {
		t.Errorf("Get = %s", got)
	}
}

func TestLRUKeyIsolation(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(10)

	_ = c.Set(ctx, testKey("ACC-1"), []byte("one"), time.Minute)

	other := domain.NewLedgerKey("ACC-1",
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	if got, _ := c.Get(ctx, other); got != nil {
		t.Errorf("different window hit the same entry: %s", got)
	}
	if got, _ := c.Get(ctx, testKey("ACC-2")); got != nil {
		t.Errorf("different account hit the same entry: %s", got)
	}
}

func TestLRUExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(10)
	key := testKey("ACC-1")

	_ = c.Set(ctx, key, []byte("stale"), -time.Second)
	if got, _ := c.Get(ctx, key); got != nil {
		t.Errorf("expired entry returned: %s", got)
	}
	if size, _ := c.Stats(); size != 0 {
		t.Errorf("expired entry not evicted, size = %d", size)
	}
}

func TestLRUEviction(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(3)

	for i := 0; i < 4; i++ {
		key := testKey(fmt.Sprintf("ACC-%d", i))
		_ = c.Set(ctx, key, []byte{byte(i)}, time.Minute)
	}

	if got, _ := c.Get(ctx, testKey("ACC-0")); got != nil {
		t.Error("oldest entry survived past capacity")
	}
	if got, _ := c.Get(ctx, testKey("ACC-3")); got == nil {
		t.Error("newest entry evicted")
	}
	if size, capacity := c.Stats(); size != 3 || capacity != 3 {
		t.Errorf("stats = %d/%d", size, capacity)
	}
}

func TestLRUDelete(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(10)
	key := testKey("ACC-1")

	_ = c.Set(ctx, key, []byte("x"), time.Minute)
	if err := c.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}
	if got, _ := c.Get(ctx, key); got != nil {
		t.Error("deleted entry still readable")
	}
	// deleting a missing key is a no-op
	if err := c.Delete(ctx, testKey("ACC-9")); err != nil {
		t.Errorf("Delete missing = %v", err)
	}
}

func TestNewFactory(t *testing.T) {
	c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 5})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*LRUCache); !ok {
		t.Errorf("New(memory) = %T", c)
	}

	if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
		t.Error("unsupported type must fail")
	}
}
