package engine

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache kinds. The kind is the first CacheKey part and selects the TTL.
const (
	CacheKindMetadata   = "video_meta"
	CacheKindTranscript = "transcript"
	CacheKindAnalysis   = "analysis"
)

// resultCache holds video metadata, transcripts and model analyses:
// L1 in process memory, L2 in Redis when configured.
var resultCache *tieredCache

var (
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
)

type tieredCache struct {
	l1         sync.Map      // key -> *cacheEntry
	rdb        *redis.Client // nil without Redis
	ttl        time.Duration
	kindTTL    sync.Map // kind -> time.Duration
	maxEntries int
	size       atomic.Int64
	stop       chan struct{}
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// InitCache sets up the cache with a default TTL. Calling it again replaces
// the previous cache. redisURL can be empty to disable L2.
func InitCache(redisURL string, ttl time.Duration, maxEntries int, cleanupInterval time.Duration) {
	c := &tieredCache{ttl: ttl, maxEntries: maxEntries, stop: make(chan struct{})}

	if redisURL != "" {
		c.rdb = connectRedis(redisURL)
	}

	if old := resultCache; old != nil {
		close(old.stop)
	}
	resultCache = c
	slog.Info("cache: initialized", slog.Duration("ttl", ttl), slog.Bool("redis", c.rdb != nil), slog.Int("max_entries", maxEntries))

	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	go c.cleanupLoop(cleanupInterval)
}

func connectRedis(redisURL string) *redis.Client {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		return nil
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
		rdb.Close()
		return nil
	}
	slog.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
	return rdb
}

// SetCacheTTL overrides the TTL for one cache kind. Zero restores the default.
func SetCacheTTL(kind string, ttl time.Duration) {
	if resultCache == nil {
		return
	}
	if ttl <= 0 {
		resultCache.kindTTL.Delete(kind)
		return
	}
	resultCache.kindTTL.Store(kind, ttl)
}

// CacheKey builds "hl:{kind}:{hash}" from a kind and the parts that identify
// the value. Keeping the kind readable lets Redis users scan one kind.
func CacheKey(kind string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("hl:%s:%x", kind, hash[:12])
}

func keyKind(key string) string {
	rest, ok := strings.CutPrefix(key, "hl:")
	if !ok {
		return ""
	}
	kind, _, _ := strings.Cut(rest, ":")
	return kind
}

func (c *tieredCache) ttlFor(key string) time.Duration {
	if v, ok := c.kindTTL.Load(keyKind(key)); ok {
		return v.(time.Duration)
	}
	return c.ttl
}

// CacheGet tries L1, then L2. An L2 hit is copied into L1.
func CacheGet(ctx context.Context, key string) ([]byte, bool) {
	c := resultCache
	if c == nil {
		cacheMisses.Add(1)
		return nil, false
	}

	if val, ok := c.l1.Load(key); ok {
		entry := val.(*cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			cacheHits.Add(1)
			return entry.data, true
		}
		if _, loaded := c.l1.LoadAndDelete(key); loaded {
			c.size.Add(-1)
		}
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			slog.Debug("cache: L2 hit", slog.String("kind", keyKind(key)))
			cacheHits.Add(1)
			c.storeL1(key, data)
			return data, true
		}
	}

	cacheMisses.Add(1)
	return nil, false
}

// CacheSet stores data in both tiers.
func CacheSet(ctx context.Context, key string, data []byte) {
	c := resultCache
	if c == nil {
		return
	}
	c.storeL1(key, data)
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttlFor(key)).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.Any("error", err))
		}
	}
}

func (c *tieredCache) storeL1(key string, data []byte) {
	entry := &cacheEntry{data: data, expiresAt: time.Now().Add(c.ttlFor(key))}
	if _, loaded := c.l1.Swap(key, entry); !loaded {
		c.size.Add(1)
	}
	c.evict()
}

// CacheLoadJSON loads a cached value of type T. Undecodable entries are misses.
func CacheLoadJSON[T any](ctx context.Context, key string) (T, bool) {
	var out T
	data, ok := CacheGet(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

// CacheStoreJSON marshals v and stores it.
func CacheStoreJSON[T any](ctx context.Context, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	CacheSet(ctx, key, data)
}

// CacheStats returns hit/miss counters.
func CacheStats() (hits, misses int64) {
	return cacheHits.Load(), cacheMisses.Load()
}

// evict drops the entries closest to expiry until L1 fits maxEntries.
func (c *tieredCache) evict() {
	if c.maxEntries <= 0 || c.size.Load() <= int64(c.maxEntries) {
		return
	}
	type aged struct {
		key       any
		expiresAt time.Time
	}
	var all []aged
	c.l1.Range(func(k, v any) bool {
		all = append(all, aged{k, v.(*cacheEntry).expiresAt})
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].expiresAt.Before(all[j].expiresAt) })
	for _, e := range all[:max(0, len(all)-c.maxEntries)] {
		if _, loaded := c.l1.LoadAndDelete(e.key); loaded {
			c.size.Add(-1)
		}
	}
}

func (c *tieredCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}
		now := time.Now()
		c.l1.Range(func(key, val any) bool {
			if now.After(val.(*cacheEntry).expiresAt) {
				if _, loaded := c.l1.LoadAndDelete(key); loaded {
					c.size.Add(-1)
				}
			}
			return true
		})
	}
}
